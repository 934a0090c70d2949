package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	service "github.com/okian/hntally/internal/app"
	"github.com/okian/hntally/pkg/logger"
	"github.com/okian/hntally/pkg/metrics"
)

const (
	defaultTopN = 30
	defaultTopK = 10
	maxTopN     = 500
)

// TopCommentersHandler runs an aggregation per request.
type TopCommentersHandler struct {
	runner      Runner
	defaultTopN int
	defaultTopK int
	maxTopN     int
	runTimeout  time.Duration
	logger      logger.Logger
}

// NewTopCommentersHandler creates the handler for GET /v1/top-commenters.
func NewTopCommentersHandler(runner Runner, opts ...Option) *TopCommentersHandler {
	h := &TopCommentersHandler{
		runner:      runner,
		defaultTopN: defaultTopN,
		defaultTopK: defaultTopK,
		maxTopN:     maxTopN,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Named("api")
	}
	return h
}

// HandleGetTopCommenters handles GET /v1/top-commenters?top_n=N&top_k=K.
func (h *TopCommentersHandler) HandleGetTopCommenters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	topN, err := intParam(r, "top_n", h.defaultTopN)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	topK, err := intParam(r, "top_k", h.defaultTopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if topN > h.maxTopN {
		writeError(w, http.StatusBadRequest, "limit_exceeded",
			fmt.Errorf("%w: top_n must be at most %d", ErrBadRequest, h.maxTopN))
		return
	}

	ctx := r.Context()
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	res, err := h.runner.Run(ctx, topN, topK)
	if err != nil {
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			metrics.RecordErrorByComponent("api", code)
			h.logger.Warn(ctx, "run failed", logger.String("code", code), logger.Error(err))
		}
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return n, nil
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidConfig):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrInsufficientData):
		return http.StatusBadGateway, "insufficient_data"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
