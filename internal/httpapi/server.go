// Package httpapi serves the operator API: lifecycle commands, risk checks,
// trade statistics, and a WebSocket stream of loop events.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"marlin/internal/bot"
	"marlin/internal/domain"
	"marlin/internal/engine"
	"marlin/internal/history"
	"marlin/internal/ledger"
	"marlin/internal/risk"
)

// commandResult is the envelope every operator command returns: a
// success/failure flag plus the current lifecycle state.
type commandResult struct {
	OK      bool       `json:"ok"`
	State   bot.Status `json:"state"`
	Command string     `json:"command,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// Server is the operator API server.
type Server struct {
	lifecycle *bot.Lifecycle
	gate      *risk.Gate
	loop      *engine.Loop
	ledger    *ledger.Ledger
	history   history.Source
	events    *engine.Hub
	symbol    string
	log       *slog.Logger
}

// NewServer wires the operator API. history and loop may be nil; the
// corresponding endpoints then report unavailability.
func NewServer(
	lifecycle *bot.Lifecycle,
	gate *risk.Gate,
	loop *engine.Loop,
	led *ledger.Ledger,
	src history.Source,
	events *engine.Hub,
	symbol string,
	log *slog.Logger,
) *Server {
	return &Server{
		lifecycle: lifecycle,
		gate:      gate,
		loop:      loop,
		ledger:    led,
		history:   src,
		events:    events,
		symbol:    symbol,
		log:       log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/bot/{command}", s.handleCommand)
	mux.HandleFunc("GET /api/bot/status", s.handleStatus)
	mux.HandleFunc("GET /api/check", s.handleCheck)
	mux.HandleFunc("GET /api/golive", s.handleGoLive)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /ws/events", s.handleEvents)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

type startRequest struct {
	Mode string `json:"mode"`
}

// handleCommand maps POST /api/bot/{command} onto lifecycle transitions. An
// unrecognized command is echoed back as a structured failure and leaves the
// state untouched.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	command := r.PathValue("command")

	var err error
	switch command {
	case "start":
		var req startRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		mode := domain.TradeMode(req.Mode)
		switch mode {
		case domain.ModePaper, domain.ModeLive:
		case "":
			mode = domain.ModePaper
		default:
			s.writeCommandError(w, http.StatusBadRequest, command, fmt.Sprintf("unknown mode %q", req.Mode))
			return
		}
		if mode == domain.ModeLive {
			if elig := s.gate.CheckGoLiveEligibility(r.Context()); !elig.Eligible {
				s.writeCommandError(w, http.StatusConflict, command, "not eligible for live trading")
				return
			}
		}
		err = s.lifecycle.Start(mode)
	case "pause":
		err = s.lifecycle.Pause()
	case "resume":
		err = s.lifecycle.Resume()
	case "stop":
		err = s.lifecycle.Stop()
	case "eod":
		if s.loop == nil {
			s.writeCommandError(w, http.StatusServiceUnavailable, command, "control loop not running")
			return
		}
		summary := s.loop.EndOfDay(r.Context())
		writeJSON(w, map[string]any{"ok": true, "state": s.lifecycle.Snapshot(), "summary": summary})
		return
	default:
		s.writeCommandError(w, http.StatusBadRequest, command, fmt.Sprintf("unknown command %q", command))
		return
	}

	if err != nil {
		s.writeCommandError(w, http.StatusConflict, command, err.Error())
		return
	}
	s.log.Info("operator command", "command", command, "state", s.lifecycle.State())
	s.events.Publish(engine.Event{Type: engine.EventState, Payload: s.lifecycle.Snapshot()})
	writeJSON(w, commandResult{OK: true, State: s.lifecycle.Snapshot(), Command: command})
}

type statusResponse struct {
	bot.Status
	Symbol     string   `json:"symbol"`
	Position   int64    `json:"position"`
	EntryPrice *float64 `json:"entry_price,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:   s.lifecycle.Snapshot(),
		Symbol:   s.symbol,
		Position: s.ledger.Position(s.symbol),
	}
	if entry, ok := s.ledger.EntryPrice(s.symbol); ok {
		resp.EntryPrice = &entry
	}
	writeJSON(w, resp)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	report := s.gate.CheckLimits(r.Context(), s.lifecycle.Mode())
	writeJSON(w, report)
}

func (s *Server) handleGoLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.gate.CheckGoLiveEligibility(r.Context()))
}

type statsResponse struct {
	Mode          domain.TradeMode `json:"mode"`
	ClosedTrades  int              `json:"closed_trades"`
	WinningTrades int              `json:"winning_trades"`
	WinRate       float64          `json:"win_rate"`
	MaxDrawdown   float64          `json:"max_drawdown"`
	TradesToday   int              `json:"trades_today"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "trade history not configured")
		return
	}
	mode := s.lifecycle.Mode()
	total, wins, err := s.history.TradeCounts(r.Context(), mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := statsResponse{Mode: mode, ClosedTrades: total, WinningTrades: wins}
	if total > 0 {
		resp.WinRate = float64(wins) / float64(total)
	}
	if dd, err := s.history.MaxDrawdownSince(r.Context(), mode, time.Unix(0, 0)); err == nil {
		resp.MaxDrawdown = dd
	}
	if n, err := s.history.CountTradesSince(r.Context(), mode, time.Now().Add(-24*time.Hour)); err == nil {
		resp.TradesToday = n
	}
	writeJSON(w, resp)
}

func (s *Server) writeCommandError(w http.ResponseWriter, status int, command, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(commandResult{
		OK:      false,
		State:   s.lifecycle.Snapshot(),
		Command: command,
		Error:   msg,
	}); err != nil {
		s.log.Error("encoding JSON response", "error", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
