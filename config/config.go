package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Monitoring
	Tickers         string // comma-separated
	UpdateInterval  int    // seconds between polling rounds
	Strategies      string // comma-separated strategy types, empty = all
	TradingDaysOnly bool   // idle polling on weekends and exchange holidays

	// Backtest defaults
	InitialCapital     float64
	SizingFraction     float64
	ConfidenceWeighted bool
	LeaveOpenAtEnd     bool
	Annualization      float64

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string

	// Alert channels (each enabled when its settings are present)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
	SMTPServer       string
	SMTPPort         int
	EmailUser        string
	EmailPassword    string
	RecipientEmail   string

	// Broker data feed credentials (feed disabled when unset)
	FeedAPIKey     string
	FeedClientCode string
	FeedPassword   string
	FeedTOTPSecret string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Tickers:         getEnv("TICKERS", "AAPL,TSLA,MSFT"),
		UpdateInterval:  getInt("UPDATE_INTERVAL", 300),
		Strategies:      getEnv("STRATEGIES", ""),
		TradingDaysOnly: getBool("TRADING_DAYS_ONLY", false),

		InitialCapital:     getFloat("INITIAL_CAPITAL", 100000),
		SizingFraction:     getFloat("SIZING_FRACTION", 0.10),
		ConfidenceWeighted: getBool("CONFIDENCE_WEIGHTED", false),
		LeaveOpenAtEnd:     getBool("LEAVE_OPEN_AT_END", false),
		Annualization:      getFloat("ANNUALIZATION", 252),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/bars.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		SMTPServer:       getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:         getInt("SMTP_PORT", 587),
		EmailUser:        getEnv("EMAIL_USER", ""),
		EmailPassword:    getEnv("EMAIL_PASSWORD", ""),
		RecipientEmail:   getEnv("RECIPIENT_EMAIL", ""),

		FeedAPIKey:     getEnv("FEED_API_KEY", ""),
		FeedClientCode: getEnv("FEED_CLIENT_CODE", ""),
		FeedPassword:   getEnv("FEED_PASSWORD", ""),
		FeedTOTPSecret: getEnv("FEED_TOTP_SECRET", ""),
	}
}

// ParseTickers splits the Tickers string into a clean slice.
func (c *Config) ParseTickers() []string {
	parts := strings.Split(c.Tickers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ParseStrategies splits the Strategies string; empty means all variants.
func (c *Config) ParseStrategies() []string {
	if strings.TrimSpace(c.Strategies) == "" {
		return nil
	}
	parts := strings.Split(c.Strategies, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FeedEnabled reports whether broker feed credentials are fully configured.
func (c *Config) FeedEnabled() bool {
	return c.FeedAPIKey != "" && c.FeedClientCode != "" && c.FeedPassword != "" && c.FeedTOTPSecret != ""
}

// EmailEnabled reports whether SMTP alerting is fully configured.
func (c *Config) EmailEnabled() bool {
	return c.EmailUser != "" && c.EmailPassword != "" && c.RecipientEmail != ""
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s: %q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid bool for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return b
}
