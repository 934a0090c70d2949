// Package api exposes aggregation runs over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/hntally/internal/domain/model"
	"github.com/okian/hntally/pkg/logger"
)

// Runner performs one aggregation run.
type Runner interface {
	Run(ctx context.Context, topN, topK int) (model.RunResult, error)
}

// Server wires HTTP routes for the API.
type Server struct {
	healthHandler        *HealthHandler
	topCommentersHandler *TopCommentersHandler
}

// Option applies a configuration option to the Server.
type Option func(*TopCommentersHandler)

// WithDefaults sets the limits used when a request omits top_n or top_k.
func WithDefaults(topN, topK int) Option {
	return func(h *TopCommentersHandler) {
		if topN > 0 {
			h.defaultTopN = topN
		}
		if topK > 0 {
			h.defaultTopK = topK
		}
	}
}

// WithMaxTopN caps the top_n a request may ask for.
func WithMaxTopN(n int) Option {
	return func(h *TopCommentersHandler) {
		if n > 0 {
			h.maxTopN = n
		}
	}
}

// WithRunTimeout bounds each run started by a request.
func WithRunTimeout(d time.Duration) Option {
	return func(h *TopCommentersHandler) {
		if d > 0 {
			h.runTimeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(h *TopCommentersHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(runner Runner, opts ...Option) *Server {
	return &Server{
		healthHandler:        NewHealthHandler(),
		topCommentersHandler: NewTopCommentersHandler(runner, opts...),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/v1/top-commenters", MetricsMiddleware(s.topCommentersHandler.HandleGetTopCommenters, "top_commenters"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
