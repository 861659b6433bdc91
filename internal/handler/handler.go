package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/havenvlm/vlm-mux/internal/dispatch"
	"github.com/havenvlm/vlm-mux/internal/metrics"
)

// Submitter is the multiplexer surface the handler depends on.
type Submitter interface {
	Submit(ctx context.Context, item dispatch.WorkItem) (dispatch.Result, error)
}

// AnalyzeHandler accepts one media analysis request per call and routes it
// through the multiplexer.
type AnalyzeHandler struct {
	logger           *slog.Logger
	mux              Submitter
	metricsCollector *metrics.Collector
}

func NewAnalyzeHandler(logger *slog.Logger, mux Submitter, collector *metrics.Collector) *AnalyzeHandler {
	return &AnalyzeHandler{
		logger:           logger,
		mux:              mux,
		metricsCollector: collector,
	}
}

type analyzeRequest struct {
	ID     string `json:"id,omitempty"`
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	Image  string `json:"image,omitempty"`
}

type analyzeResponse struct {
	ID       string         `json:"id"`
	Endpoint string         `json:"endpoint"`
	Attempts int            `json:"attempts"`
	Model    string         `json:"model"`
	Content  string         `json:"content"`
	Usage    dispatch.Usage `json:"usage"`
}

type errorResponse struct {
	Error    string `json:"error"`
	Attempts int    `json:"attempts,omitempty"`
}

func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "prompt is required"})
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	h.logger.Info("Received work item",
		slog.String("work_id", req.ID),
		slog.String("from", r.RemoteAddr),
		slog.String("model", req.Model))

	h.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventWorkReceived,
		Timestamp: time.Now(),
	})

	start := time.Now()
	res, err := h.mux.Submit(r.Context(), dispatch.WorkItem{
		ID:        req.ID,
		Model:     req.Model,
		Prompt:    req.Prompt,
		ImageData: req.Image,
	})
	took := time.Since(start)

	if err != nil {
		h.writeFailure(w, req.ID, err, took)
		return
	}

	h.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventEndpointSelected,
		Timestamp: time.Now(),
		Endpoint:  res.Endpoint,
	})
	h.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventOutcomeCompleted,
		Timestamp: time.Now(),
		Outcome:   "success",
		Duration:  took,
	})

	writeJSON(w, http.StatusOK, analyzeResponse{
		ID:       req.ID,
		Endpoint: res.Endpoint,
		Attempts: res.Attempts,
		Model:    res.Model,
		Content:  res.Content,
		Usage:    res.Usage,
	})
}

func (h *AnalyzeHandler) writeFailure(w http.ResponseWriter, workID string, err error, took time.Duration) {
	attempts := 0
	var derr *dispatch.Error
	if errors.As(err, &derr) {
		attempts = derr.Attempts
	}

	status := http.StatusServiceUnavailable
	outcome := "exhausted"
	if dispatch.IsFatal(err) {
		status = http.StatusUnprocessableEntity
		outcome = "rejected"
	} else if errors.Is(err, context.Canceled) {
		outcome = "canceled"
	}

	if derr != nil && derr.Endpoint != "" {
		h.emitEvent(metrics.MetricEvent{
			Type:      metrics.EventAttemptFailed,
			Timestamp: time.Now(),
			Endpoint:  derr.Endpoint,
		})
	}

	h.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventOutcomeCompleted,
		Timestamp: time.Now(),
		Outcome:   outcome,
		Duration:  took,
	})

	h.logger.Warn("Work item failed",
		slog.String("work_id", workID),
		slog.String("outcome", outcome),
		slog.Int("attempts", attempts),
		slog.Any("err", err))

	writeJSON(w, status, errorResponse{Error: err.Error(), Attempts: attempts})
}

func (h *AnalyzeHandler) emitEvent(event metrics.MetricEvent) {
	if h.metricsCollector == nil {
		return
	}

	select {
	case h.metricsCollector.EventChannel() <- event:
	default:
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
