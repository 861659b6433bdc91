package mux

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/havenvlm/vlm-mux/config"
	"github.com/havenvlm/vlm-mux/internal/dispatch"
	"github.com/havenvlm/vlm-mux/internal/endpoint"
	"github.com/havenvlm/vlm-mux/internal/policy"
	"github.com/havenvlm/vlm-mux/internal/vlm"
)

// Multiplexer accepts units of work and returns the model's answer or a
// terminal failure. Each Submit runs the dispatcher protocol independently;
// concurrent calls share only the per-endpoint in-flight counters.
type Multiplexer struct {
	dispatcher *dispatch.Dispatcher
	endpoints  []*endpoint.Endpoint
	logger     *slog.Logger
}

// New builds a Multiplexer from validated configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Multiplexer, error) {
	endpoints, err := endpoint.FromConfig(cfg.Endpoints)
	if err != nil {
		return nil, err
	}

	callTimeout, err := time.ParseDuration(cfg.Router.RequestTimeout)
	if err != nil {
		return nil, err
	}

	client := vlm.NewClient(cfg.Router.ConnectionPoolSize, cfg.Router.DefaultModel)
	dispatcher := dispatch.NewDispatcher(
		endpoints,
		policy.NewWeightedStrategy(),
		client,
		logger,
		cfg.Router.MaxAttempts,
		callTimeout,
	)

	return &Multiplexer{
		dispatcher: dispatcher,
		endpoints:  endpoints,
		logger:     logger,
	}, nil
}

// Submit routes one WorkItem and returns its terminal outcome. A correlation
// id is assigned when the caller did not supply one.
func (m *Multiplexer) Submit(ctx context.Context, item dispatch.WorkItem) (dispatch.Result, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	start := time.Now()
	res, err := m.dispatcher.Dispatch(ctx, item)
	if err != nil {
		m.logger.Error("work item failed",
			slog.String("work_id", item.ID),
			slog.Duration("took", time.Since(start)),
			slog.Any("err", err))
		return dispatch.Result{}, err
	}

	m.logger.Info("work item completed",
		slog.String("work_id", item.ID),
		slog.String("endpoint", res.Endpoint),
		slog.Int("attempts", res.Attempts),
		slog.Duration("took", time.Since(start)))

	return res, nil
}

// Endpoints exposes the pool for observability surfaces. The slice must be
// treated as read-only.
func (m *Multiplexer) Endpoints() []*endpoint.Endpoint {
	return m.endpoints
}
