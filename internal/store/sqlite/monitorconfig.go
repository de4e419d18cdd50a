package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Monitor config lifecycle states.
const (
	StatusActive  = "active"
	StatusPaused  = "paused"
	StatusStopped = "stopped"
)

// MonitorConfig is one persisted (ticker, strategy) monitoring entry.
// The monitor loop evaluates active entries every polling round.
type MonitorConfig struct {
	ID        int64              `json:"id"`
	Ticker    string             `json:"ticker"`
	Strategy  string             `json:"strategy"`
	Params    map[string]float64 `json:"params,omitempty"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// UpsertMonitorConfig inserts or replaces the config for a (ticker, strategy)
// pair and reactivates it.
func (w *Writer) UpsertMonitorConfig(ticker, strategy string, params map[string]float64) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	_, err = w.db.Exec(`
		INSERT INTO monitor_configs (ticker, strategy, params, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (ticker, strategy) DO UPDATE SET
			params = excluded.params,
			status = excluded.status,
			updated_at = strftime('%s', 'now')
	`, ticker, strategy, string(data), StatusActive)
	if err != nil {
		return fmt.Errorf("sqlite upsert monitor config: %w", err)
	}
	return nil
}

// SetMonitorStatus transitions a monitor entry to a new lifecycle state.
func (w *Writer) SetMonitorStatus(ticker, strategy, status string) error {
	switch status {
	case StatusActive, StatusPaused, StatusStopped:
	default:
		return fmt.Errorf("invalid monitor status %q", status)
	}
	res, err := w.db.Exec(`
		UPDATE monitor_configs
		SET status = ?, updated_at = strftime('%s', 'now')
		WHERE ticker = ? AND strategy = ?
	`, status, ticker, strategy)
	if err != nil {
		return fmt.Errorf("sqlite update monitor status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no monitor config for %s/%s", ticker, strategy)
	}
	return nil
}

// DeleteMonitorConfig removes a monitor entry entirely.
func (w *Writer) DeleteMonitorConfig(ticker, strategy string) error {
	_, err := w.db.Exec(`DELETE FROM monitor_configs WHERE ticker = ? AND strategy = ?`, ticker, strategy)
	return err
}

// ListMonitorConfigs returns monitor entries, optionally filtered by status
// (empty = all), ordered by creation time.
func (r *Reader) ListMonitorConfigs(status string) ([]MonitorConfig, error) {
	rows, err := r.db.Query(`
		SELECT id, ticker, strategy, params, status, created_at, updated_at
		FROM monitor_configs
		WHERE status = ? OR ? = ''
		ORDER BY created_at ASC
	`, status, status)
	if err != nil {
		return nil, fmt.Errorf("sqlite query monitor configs: %w", err)
	}
	defer rows.Close()

	var configs []MonitorConfig
	for rows.Next() {
		var mc MonitorConfig
		var params string
		var created, updated int64
		if err := rows.Scan(&mc.ID, &mc.Ticker, &mc.Strategy, &params, &mc.Status, &created, &updated); err != nil {
			return nil, fmt.Errorf("sqlite scan monitor config: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &mc.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
		mc.CreatedAt = time.Unix(created, 0).UTC()
		mc.UpdatedAt = time.Unix(updated, 0).UTC()
		configs = append(configs, mc)
	}
	return configs, rows.Err()
}

// GetMonitorConfig fetches one entry. Returns nil when absent.
func (r *Reader) GetMonitorConfig(ticker, strategy string) (*MonitorConfig, error) {
	row := r.db.QueryRow(`
		SELECT id, ticker, strategy, params, status, created_at, updated_at
		FROM monitor_configs
		WHERE ticker = ? AND strategy = ?
	`, ticker, strategy)

	var mc MonitorConfig
	var params string
	var created, updated int64
	err := row.Scan(&mc.ID, &mc.Ticker, &mc.Strategy, &params, &mc.Status, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite get monitor config: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &mc.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	mc.CreatedAt = time.Unix(created, 0).UTC()
	mc.UpdatedAt = time.Unix(updated, 0).UTC()
	return &mc, nil
}
