package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	redisstore "backtest-systemv1/internal/store/redis"
	sqlitestore "backtest-systemv1/internal/store/sqlite"
	"backtest-systemv1/internal/strategy"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Deps bundles the stores the REST surface reads from and writes to.
type Deps struct {
	Hub        *Hub
	Subscriber *redisstore.Subscriber
	Reader     *sqlitestore.Reader
	Writer     *sqlitestore.Writer
	StartedAt  time.Time
}

// RegisterRoutes registers the WebSocket and REST routes on the mux.
func RegisterRoutes(mux *http.ServeMux, deps Deps) {
	hub := deps.Hub

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		lastTS := r.URL.Query().Get("last_ts")
		hub.HandleWSRequest(conn, lastTS)
	})

	// REST: latest broadcast payload per signal channel
	mux.HandleFunc("/api/signals/latest", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		ticker := r.URL.Query().Get("ticker")
		strategyName := r.URL.Query().Get("strategy")
		if ticker != "" && strategyName != "" {
			act, err := deps.Subscriber.LatestAction(r.Context(), ticker, strategyName)
			if err != nil {
				http.Error(w, `{"error":"redis unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			if act == nil {
				http.Error(w, `{"error":"no signal recorded"}`, http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(act)
			return
		}

		json.NewEncoder(w).Encode(hub.GetLatestAll())
	})

	// REST: recent actions from a ticker's Redis stream, oldest first
	mux.HandleFunc("/api/signals/recent", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		ticker := r.URL.Query().Get("ticker")
		if ticker == "" {
			http.Error(w, `{"error":"ticker is required"}`, http.StatusBadRequest)
			return
		}

		count := int64(50)
		if s := r.URL.Query().Get("count"); s != "" {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 && n <= 1000 {
				count = n
			}
		}

		actions, err := deps.Subscriber.RecentActions(r.Context(), ticker, count)
		if err != nil {
			http.Error(w, `{"error":"redis unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(actions)
	})

	// REST: gap backfill from the per-channel replay buffers
	mux.HandleFunc("/api/missed", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		channel := r.URL.Query().Get("channel")
		fromStr := r.URL.Query().Get("from")
		toStr := r.URL.Query().Get("to")
		if channel == "" || fromStr == "" {
			http.Error(w, `{"error":"channel and from are required"}`, http.StatusBadRequest)
			return
		}

		from, err := strconv.ParseInt(fromStr, 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid from"}`, http.StatusBadRequest)
			return
		}
		to := hub.GetChannelSeq(channel)
		if toStr != "" {
			if v, err := strconv.ParseInt(toStr, 10, 64); err == nil {
				to = v
			}
		}

		entries := hub.GetReplayRange(channel, from, to)
		msgs := make([]json.RawMessage, len(entries))
		for i, e := range entries {
			msgs[i] = e
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"channel":          channel,
			"from":             from,
			"to":               to,
			"current_seq":      hub.GetChannelSeq(channel),
			"oldest_available": hub.OldestReplaySeq(channel),
			"messages":         msgs,
		})
	})

	// REST: strategy catalogue with default parameters
	mux.HandleFunc("/api/strategies", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(strategy.DefaultSpecs())
	})

	// REST: GET list / POST upsert monitor entries
	mux.HandleFunc("/api/monitors", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)

		case http.MethodGet:
			status := r.URL.Query().Get("status")
			configs, err := deps.Reader.ListMonitorConfigs(status)
			if err != nil {
				http.Error(w, `{"error":"storage unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			if configs == nil {
				configs = []sqlitestore.MonitorConfig{}
			}
			json.NewEncoder(w).Encode(configs)

		case http.MethodPost:
			var req struct {
				Ticker   string             `json:"ticker"`
				Strategy string             `json:"strategy"`
				Params   map[string]float64 `json:"params"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
				return
			}
			if req.Ticker == "" || req.Strategy == "" {
				http.Error(w, `{"error":"ticker and strategy are required"}`, http.StatusBadRequest)
				return
			}

			// Validate the spec builds before persisting it.
			if _, err := strategy.New(strategy.Spec{Type: req.Strategy, Params: req.Params}); err != nil {
				http.Error(w, `{"error":"unknown strategy or invalid params"}`, http.StatusBadRequest)
				return
			}
			if err := deps.Writer.UpsertMonitorConfig(req.Ticker, req.Strategy, req.Params); err != nil {
				http.Error(w, `{"error":"storage unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			log.Printf("[gateway] monitor upserted: %s/%s", req.Ticker, req.Strategy)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})

		case http.MethodDelete:
			ticker := r.URL.Query().Get("ticker")
			strategyName := r.URL.Query().Get("strategy")
			if ticker == "" || strategyName == "" {
				http.Error(w, `{"error":"ticker and strategy are required"}`, http.StatusBadRequest)
				return
			}
			if err := deps.Writer.DeleteMonitorConfig(ticker, strategyName); err != nil {
				http.Error(w, `{"error":"storage unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})

		default:
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		}
	})

	// REST: monitor lifecycle transitions (active/paused/stopped)
	mux.HandleFunc("/api/monitors/status", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Ticker   string `json:"ticker"`
			Strategy string `json:"strategy"`
			Status   string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
			return
		}
		if err := deps.Writer.SetMonitorStatus(req.Ticker, req.Strategy, req.Status); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		log.Printf("[gateway] monitor %s/%s -> %s", req.Ticker, req.Strategy, req.Status)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// REST: latest stored backtest report for a (ticker, strategy) pair
	mux.HandleFunc("/api/report", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		ticker := r.URL.Query().Get("ticker")
		strategyName := r.URL.Query().Get("strategy")
		if ticker == "" || strategyName == "" {
			http.Error(w, `{"error":"ticker and strategy are required"}`, http.StatusBadRequest)
			return
		}

		report, err := deps.Reader.ReadLatestReport(ticker, strategyName)
		if err != nil {
			http.Error(w, `{"error":"storage unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		if report == nil {
			http.Error(w, `{"error":"no report stored"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(report)
	})

	// REST: trade journal
	mux.HandleFunc("/api/trades", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		trades, err := deps.Reader.ReadTrades(r.URL.Query().Get("ticker"))
		if err != nil {
			http.Error(w, `{"error":"storage unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(trades)
	})

	// REST: WS latency percentiles
	mux.HandleFunc("/api/latency", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hub.Latency.Summary())
	})

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		redisOK := hub.Rdb.Ping(r.Context()).Err() == nil

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "ok",
			"redis":      redisOK,
			"ws_clients": hub.ClientCount(),
			"uptime_sec": int64(time.Since(deps.StartedAt).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
