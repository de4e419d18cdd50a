// Package feed is a broker historical-data client. Sessions are opened
// with a time-based OTP derived from the account's TOTP secret, so the
// monitor can re-login unattended.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"backtest-systemv1/internal/marketdata"
	"backtest-systemv1/internal/model"

	"github.com/pquerna/otp/totp"
)

const (
	defaultRootURL = "https://apiconnect.angelone.in"

	loginPath  = "/rest/auth/angelbroking/user/v1/loginByPassword"
	candlePath = "/rest/secure/angelbroking/historical/v1/getCandleData"
)

// Config holds broker credentials and endpoint overrides.
type Config struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string
	RootURL    string // empty = production endpoint
}

// Client is a minimal authenticated broker-data client. Safe for
// concurrent use; the session token is refreshed on demand.
type Client struct {
	cfg  Config
	http *http.Client

	mu  sync.Mutex
	jwt string
}

// New creates a Client. Credentials are validated lazily at first login.
func New(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRootURL
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Login opens a session using a freshly generated TOTP code and stores the
// JWT for subsequent requests.
func (c *Client) Login(ctx context.Context) error {
	code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("feed totp: %w", err)
	}

	payload := map[string]string{
		"clientcode": c.cfg.ClientCode,
		"password":   c.cfg.Password,
		"totp":       code,
	}
	var res apiResponse
	if err := c.post(ctx, loginPath, payload, &res); err != nil {
		return fmt.Errorf("feed login: %w", err)
	}
	if !res.Status {
		return fmt.Errorf("feed login rejected: %s", res.Message)
	}

	var tokens struct {
		JWTToken string `json:"jwtToken"`
	}
	if err := json.Unmarshal(res.Data, &tokens); err != nil || tokens.JWTToken == "" {
		return fmt.Errorf("feed login: missing session token")
	}

	c.mu.Lock()
	c.jwt = tokens.JWTToken
	c.mu.Unlock()

	log.Printf("[feed] session opened for %s", c.cfg.ClientCode)
	return nil
}

// History fetches daily candles for the ticker over [from, to], logging in
// first if no session is open.
func (c *Client) History(ctx context.Context, ticker string, from, to time.Time) (*model.Series, error) {
	c.mu.Lock()
	loggedIn := c.jwt != ""
	c.mu.Unlock()
	if !loggedIn {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	payload := map[string]string{
		"symboltoken": marketdata.NormalizeTicker(ticker),
		"interval":    "ONE_DAY",
		"fromdate":    from.Format("2006-01-02 15:04"),
		"todate":      to.Format("2006-01-02 15:04"),
	}
	var res apiResponse
	if err := c.post(ctx, candlePath, payload, &res); err != nil {
		return nil, fmt.Errorf("feed history %s: %w", ticker, err)
	}
	if !res.Status {
		return nil, fmt.Errorf("feed history %s: %s", ticker, res.Message)
	}

	// Candle rows arrive as [timestamp, open, high, low, close, volume].
	var rows [][]json.RawMessage
	if err := json.Unmarshal(res.Data, &rows); err != nil {
		return nil, fmt.Errorf("feed history %s: decode: %w", ticker, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", marketdata.ErrNoData, ticker)
	}

	bars := make([]model.Bar, 0, len(rows))
	for i, row := range rows {
		bar, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("feed history %s: row %d: %w", ticker, i, err)
		}
		bars = append(bars, bar)
	}
	return model.NewSeries(ticker, bars)
}

func parseRow(row []json.RawMessage) (model.Bar, error) {
	if len(row) < 6 {
		return model.Bar{}, fmt.Errorf("short candle row (%d fields)", len(row))
	}
	var tsStr string
	if err := json.Unmarshal(row[0], &tsStr); err != nil {
		return model.Bar{}, fmt.Errorf("timestamp: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return model.Bar{}, fmt.Errorf("timestamp %q: %w", tsStr, err)
	}

	var b model.Bar
	b.TS = ts.UTC()
	fields := []*float64{&b.Open, &b.High, &b.Low, &b.Close, &b.Volume}
	for i, dst := range fields {
		if err := json.Unmarshal(row[i+1], dst); err != nil {
			return model.Bar{}, fmt.Errorf("field %d: %w", i+1, err)
		}
	}
	return b, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out *apiResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RootURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-PrivateKey", c.cfg.APIKey)
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")

	c.mu.Lock()
	if c.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.jwt)
	}
	c.mu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusForbidden {
		// Session expired; drop the token so the next call re-logs in.
		c.mu.Lock()
		c.jwt = ""
		c.mu.Unlock()
		return fmt.Errorf("session expired (status 403)")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	return json.Unmarshal(raw, out)
}
