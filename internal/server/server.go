// Package server is the HTTP API surface: the scan endpoint, the history
// listing, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/phishguard/phishguard/internal/history"
	"github.com/phishguard/phishguard/internal/logging"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/scan"
)

// Scanner is the scan entry point the server dispatches to.
type Scanner interface {
	Scan(ctx context.Context, raw string) (*model.Verdict, error)
}

// HistoryReader lists recent scans. history.Store satisfies it.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Config configures the HTTP surface.
type Config struct {
	ListenAddr string
	Logger     logging.Logger
}

// Server routes API requests to the scanner and its stores.
type Server struct {
	cfg     Config
	scanner Scanner
	history HistoryReader
	metrics http.Handler
	router  chi.Router
	logger  logging.Logger
}

// NewServer creates a Server. History and metrics may be nil; their
// endpoints then answer with empty data or 404.
func NewServer(cfg Config, scanner Scanner, hist HistoryReader, metricsHandler http.Handler) (*Server, error) {
	if scanner == nil {
		return nil, errors.New("server: nil scanner provided")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	s := &Server{
		cfg:     cfg,
		scanner: scanner,
		history: hist,
		metrics: metricsHandler,
		router:  chi.NewRouter(),
		logger:  logger,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/scan", s.optionsHandler("POST"))
	r.Options("/api/history", s.optionsHandler("GET"))

	r.Post("/api/scan", s.handleScan)
	r.Get("/api/history", s.handleHistory)
	r.Get("/api/health", s.handleHealth)

	if s.metrics != nil {
		r.Get("/metrics", s.metrics.ServeHTTP)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("http_request",
		logging.Field{Key: "method", Value: r.Method},
		logging.Field{Key: "path", Value: r.URL.Path},
	)
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe. The write
// timeout leaves headroom over the scan deadline.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- HTTP handlers ---

// maxScanBodyBytes bounds the scan request body; the payload is a single URL.
const maxScanBodyBytes = 8 << 10

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxScanBodyBytes)

	var body model.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	v, err := s.scanner.Scan(r.Context(), body.URL)
	if err != nil {
		if errors.Is(err, scan.ErrInvalidURL) {
			s.logger.Warn("rejected scan input", logging.Field{Key: "error", Value: err.Error()})
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("scan failed", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("scan served",
		logging.Field{Key: "url", Value: v.URL},
		logging.Field{Key: "result", Value: v.Result},
		logging.Field{Key: "cached", Value: v.Cached},
	)
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []history.Entry{})
		return
	}

	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing history", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
