package metrics_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/havenvlm/vlm-mux/internal/metrics"
)

func TestMetrics(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Metrics Suite")
}

type fakePoolEntry struct {
	name          string
	inFlight      int
	maxConcurrent int
}

func (f fakePoolEntry) Name() string       { return f.name }
func (f fakePoolEntry) InFlight() int      { return f.inFlight }
func (f fakePoolEntry) MaxConcurrent() int { return f.maxConcurrent }

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	It("should count submitted work", func() {
		m.IncrementWork()
		m.IncrementWork()

		snap := m.Snapshot(nil)
		Expect(snap.TotalWork).To(Equal(int64(2)))
	})

	It("should aggregate per-endpoint selections and failures", func() {
		m.RecordSelection("primary")
		m.RecordSelection("primary")
		m.RecordAttemptFailure("cloud")

		snap := m.Snapshot(nil)
		Expect(snap.Endpoints["primary"].Selections).To(Equal(int64(2)))
		Expect(snap.Endpoints["cloud"].AttemptFailures).To(Equal(int64(1)))
	})

	It("should include live capacity from the pool", func() {
		pool := []metrics.InFlightReader{
			fakePoolEntry{name: "primary", inFlight: 3, maxConcurrent: 15},
		}

		snap := m.Snapshot(pool)
		Expect(snap.Endpoints["primary"].InFlight).To(Equal(3))
		Expect(snap.Endpoints["primary"].MaxConcurrent).To(Equal(15))
	})

	It("should compute latency percentiles over recorded outcomes", func() {
		for i := 1; i <= 100; i++ {
			m.RecordOutcome("success", time.Duration(i)*time.Millisecond)
		}

		snap := m.Snapshot(nil)
		Expect(snap.Outcomes["success"]).To(Equal(int64(100)))
		Expect(snap.P50Duration).To(BeNumerically("~", 50*time.Millisecond, 5*time.Millisecond))
		Expect(snap.P95Duration).To(BeNumerically("~", 95*time.Millisecond, 5*time.Millisecond))
		Expect(snap.AvgDuration).To(BeNumerically("~", 50*time.Millisecond, 5*time.Millisecond))
	})

	It("should count failure outcomes by kind", func() {
		m.RecordOutcome("rejected", time.Millisecond)
		m.RecordOutcome("exhausted", time.Millisecond)
		m.RecordOutcome("exhausted", time.Millisecond)

		snap := m.Snapshot(nil)
		Expect(snap.Outcomes["rejected"]).To(Equal(int64(1)))
		Expect(snap.Outcomes["exhausted"]).To(Equal(int64(2)))
	})
})
