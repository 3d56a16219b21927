// Package api provides the HTTP server for the stockfolio service: the
// dashboard read endpoint plus write endpoints for purchases, watchlist
// entries, and alerts. All display rounding happens here.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"stockfolio/internal/domain"
	"stockfolio/internal/engine"
	"stockfolio/internal/ledger"
)

// Server serves the portfolio HTTP API.
type Server struct {
	engine *engine.Engine
	log    *slog.Logger
}

// NewServer creates a Server over the given engine.
func NewServer(e *engine.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: e, log: log.With("component", "api")}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/positions", s.handleListPositions)
	mux.HandleFunc("POST /api/positions", s.handleRecordPurchase)
	mux.HandleFunc("GET /api/watchlist", s.handleListWatchlist)
	mux.HandleFunc("POST /api/watchlist", s.handleAddWatch)
	mux.HandleFunc("GET /api/alerts", s.handleListAlerts)
	mux.HandleFunc("POST /api/alerts", s.handleAddAlert)
	mux.HandleFunc("GET /api/trending", s.handleTrending)
}

// Handler returns an http.Handler with CORS and request logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(s.logMiddleware(mux))
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

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusFor maps engine errors to HTTP status codes: bad input is the
// caller's fault, anything else is a storage failure.
func statusFor(err error) int {
	if errors.Is(err, domain.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.engine.BuildDashboard(r.Context())
	if err != nil {
		s.log.Error("building dashboard", "error", err)
		writeError(w, http.StatusInternalServerError, "dashboard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, convertDashboard(dash))
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	vals, totals, err := s.engine.PositionValuations(r.Context())
	if err != nil {
		s.log.Error("listing positions", "error", err)
		writeError(w, http.StatusInternalServerError, "positions unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positions": convertPositions(vals),
		"totals":    convertTotals(totals),
	})
}

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.Watchlist(r.Context())
	if err != nil {
		s.log.Error("listing watchlist", "error", err)
		writeError(w, http.StatusInternalServerError, "watchlist unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"watchlist": convertWatchlist(entries)})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.engine.AlertStatuses(r.Context())
	if err != nil {
		s.log.Error("listing alerts", "error", err)
		writeError(w, http.StatusInternalServerError, "alerts unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": convertAlerts(statuses)})
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"trending": convertTrending(s.engine.TrendingQuotes(r.Context())),
	})
}

// purchaseRequest is the JSON body for POST /api/positions. Quantity and
// price arrive as JSON numbers; price is parsed through json.Number so no
// precision is lost before it reaches the ledger.
type purchaseRequest struct {
	Symbol   string      `json:"symbol"`
	Quantity int64       `json:"quantity"`
	Price    json.Number `json:"price"`
	Date     string      `json:"date"`
	Notes    string      `json:"notes"`
}

func (s *Server) handleRecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	price, err := parseDecimal(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed price")
		return
	}

	pos, err := s.engine.RecordPurchase(r.Context(), ledger.PurchaseInput{
		Symbol:   req.Symbol,
		Quantity: req.Quantity,
		Price:    price,
		Date:     req.Date,
		Notes:    req.Notes,
	})
	if err != nil {
		s.log.Warn("recording purchase failed", "symbol", req.Symbol, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":   pos.Symbol,
		"quantity": pos.Quantity,
		"avgCost":  round2(pos.AvgCost),
		"openDate": pos.OpenDate.Format(domain.DateLayout),
	})
}

type watchRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) handleAddWatch(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.engine.AddWatch(r.Context(), req.Symbol); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"symbol": domain.NormalizeSymbol(req.Symbol)})
}

type alertRequest struct {
	Symbol string      `json:"symbol"`
	Target json.Number `json:"target"`
}

func (s *Server) handleAddAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	target, err := parseDecimal(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed target")
		return
	}

	alert, err := s.engine.AddAlert(r.Context(), req.Symbol, target)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     alert.ID,
		"symbol": alert.Symbol,
		"target": round2(alert.Target),
	})
}

func parseDecimal(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}
	return decimal.NewFromString(n.String())
}
