package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ent0n29/vocabrelay/internal/config"
	"github.com/ent0n29/vocabrelay/internal/memo"
	"github.com/ent0n29/vocabrelay/internal/observability"
	"github.com/ent0n29/vocabrelay/internal/relay"
)

// Relay is the subset of relay.Service used by the handlers.
type Relay interface {
	Chat(ctx context.Context, message string) (relay.Outcome, error)
	AddWord(ctx context.Context, rec memo.Record) (relay.Outcome, error)
	GetMemos(ctx context.Context) (relay.Outcome, error)
}

type Server struct {
	cfg     config.Config
	relay   Relay
	metrics *observability.Metrics
	logger  *zap.Logger
}

func New(cfg config.Config, r Relay, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		relay:   r,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	if len(s.cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/perf/latency", s.handlePerfLatency)
	r.Get("/openapi.json", s.handleOpenAPI)

	r.Post("/chat", s.handleChat)
	r.Post("/function/addWord", s.handleAddWord)
	r.Get("/function/getMemos", s.handleGetMemos)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type errorResponse struct {
	Error any    `json:"error"`
	Code  string `json:"code,omitempty"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code string, message any) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
