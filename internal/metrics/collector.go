package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventWorkReceived     EventType = "work_received"
	EventEndpointSelected EventType = "endpoint_selected"
	EventAttemptFailed    EventType = "attempt_failed"
	EventOutcomeCompleted EventType = "outcome_completed"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Endpoint  string
	Outcome   string
	Duration  time.Duration
}

// Collector consumes metric events from a buffered channel on a dedicated
// goroutine so emitters never block on bookkeeping.
type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventWorkReceived:
		c.metrics.IncrementWork()

	case EventEndpointSelected:
		c.metrics.RecordSelection(event.Endpoint)

	case EventAttemptFailed:
		c.metrics.RecordAttemptFailure(event.Endpoint)

	case EventOutcomeCompleted:
		c.metrics.RecordOutcome(event.Outcome, event.Duration)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot(pool []InFlightReader) Snapshot {
	return c.metrics.Snapshot(pool)
}
