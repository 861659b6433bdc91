package metrics_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/havenvlm/vlm-mux/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(64, slog.New(slog.NewTextHandler(io.Discard, nil)))
		collector.Start(ctx)
	})

	AfterEach(func() {
		cancel()
	})

	It("should process events from the channel", func() {
		collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventWorkReceived, Timestamp: time.Now()}
		collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventEndpointSelected, Endpoint: "primary", Timestamp: time.Now()}
		collector.EventChannel() <- metrics.MetricEvent{
			Type:     metrics.EventOutcomeCompleted,
			Outcome:  "success",
			Duration: 20 * time.Millisecond,
		}

		Eventually(func() int64 {
			return collector.Snapshot(nil).TotalWork
		}).Should(Equal(int64(1)))

		Eventually(func() int64 {
			return collector.Snapshot(nil).Endpoints["primary"].Selections
		}).Should(Equal(int64(1)))

		Eventually(func() int64 {
			return collector.Snapshot(nil).Outcomes["success"]
		}).Should(Equal(int64(1)))
	})

	It("should serve the snapshot as JSON", func() {
		collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventWorkReceived, Timestamp: time.Now()}

		Eventually(func() int64 {
			return collector.Snapshot(nil).TotalWork
		}).Should(Equal(int64(1)))

		recorder := httptest.NewRecorder()
		collector.Handler(nil)(recorder, httptest.NewRequest("GET", "/metrics", nil))

		Expect(recorder.Code).To(Equal(200))
		Expect(recorder.Header().Get("Content-Type")).To(Equal("application/json"))
		Expect(recorder.Body.String()).To(ContainSubstring(`"total_work":1`))
	})
})
