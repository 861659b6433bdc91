package endpoint_test

import (
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/havenvlm/vlm-mux/config"
	"github.com/havenvlm/vlm-mux/internal/endpoint"
)

func TestEndpoint(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Endpoint Suite")
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	Expect(err).NotTo(HaveOccurred())
	return u
}

var _ = Describe("Endpoint", func() {
	var ep *endpoint.Endpoint

	BeforeEach(func() {
		ep = endpoint.New("lm-studio-primary", mustParseURL("http://localhost:1234/v1"), "secret", 5, 3, false)
	})

	Describe("accessors", func() {
		It("should expose the configured identity", func() {
			Expect(ep.Name()).To(Equal("lm-studio-primary"))
			Expect(ep.BaseURL().String()).To(Equal("http://localhost:1234/v1"))
			Expect(ep.APIKey()).To(Equal("secret"))
			Expect(ep.Weight()).To(Equal(5))
			Expect(ep.MaxConcurrent()).To(Equal(3))
			Expect(ep.IsFallback()).To(BeFalse())
		})

		It("should start with full capacity", func() {
			Expect(ep.InFlight()).To(Equal(0))
			Expect(ep.Available()).To(Equal(3))
		})
	})

	Describe("TryAcquire", func() {
		It("should admit up to the ceiling and deny beyond it", func() {
			Expect(ep.TryAcquire()).To(BeTrue())
			Expect(ep.TryAcquire()).To(BeTrue())
			Expect(ep.TryAcquire()).To(BeTrue())
			Expect(ep.TryAcquire()).To(BeFalse())
			Expect(ep.InFlight()).To(Equal(3))
			Expect(ep.Available()).To(Equal(0))
		})

		It("should admit again after a release", func() {
			for i := 0; i < 3; i++ {
				Expect(ep.TryAcquire()).To(BeTrue())
			}

			ep.Release()
			Expect(ep.TryAcquire()).To(BeTrue())
			Expect(ep.TryAcquire()).To(BeFalse())
		})
	})

	Describe("Release", func() {
		It("should never drive the counter negative", func() {
			ep.Release()
			ep.Release()
			Expect(ep.InFlight()).To(Equal(0))
			Expect(ep.Available()).To(Equal(3))
		})
	})

	Describe("concurrent admission", func() {
		It("should never exceed the ceiling under contention", func() {
			ep = endpoint.New("contended", mustParseURL("http://localhost:9000"), "", 1, 4, false)

			var exceeded atomic.Bool
			var wg sync.WaitGroup

			for i := 0; i < 64; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 200; j++ {
						if ep.TryAcquire() {
							if ep.InFlight() > ep.MaxConcurrent() {
								exceeded.Store(true)
							}
							ep.Release()
						}
					}
				}()
			}

			wg.Wait()
			Expect(exceeded.Load()).To(BeFalse())
			Expect(ep.InFlight()).To(Equal(0))
		})
	})
})

var _ = Describe("FromConfig", func() {
	It("should build the pool from endpoint configs", func() {
		endpoints, err := endpoint.FromConfig([]config.EndpointConfig{
			{Name: "primary", URL: "http://localhost:1234/v1", Weight: 5, MaxConcurrent: 15},
			{Name: "cloud", URL: "https://vlm.example.com/v1", APIKey: "token", Weight: 0, MaxConcurrent: 20, Fallback: true},
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(endpoints).To(HaveLen(2))
		Expect(endpoints[0].Name()).To(Equal("primary"))
		Expect(endpoints[1].IsFallback()).To(BeTrue())
		Expect(endpoints[1].APIKey()).To(Equal("token"))
	})
})
