package mux_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/havenvlm/vlm-mux/config"
	"github.com/havenvlm/vlm-mux/internal/dispatch"
	"github.com/havenvlm/vlm-mux/internal/mux"
)

func TestMux(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Mux Suite")
}

const completionBody = `{
	"id": "chatcmpl-1",
	"model": "smolvlm-instruct",
	"choices": [
		{"index": 0, "message": {"role": "assistant", "content": "{\"tags\": [\"Undressing\"]}"}, "finish_reason": "stop"}
	],
	"usage": {"prompt_tokens": 100, "completion_tokens": 12, "total_tokens": 112}
}`

func okServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
}

func failingServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
}

func newConfig(endpoints ...config.EndpointConfig) *config.Config {
	cfg := &config.Config{
		Server:  config.ServerConfig{Address: ":8085", Environment: config.EnvDev},
		Logging: config.LoggingConfig{Level: config.LogLevelInfo},
		Router: config.RouterConfig{
			MaxAttempts:        3,
			RequestTimeout:     "5s",
			ConnectionPoolSize: 10,
			DefaultModel:       "smolvlm-instruct",
		},
		Endpoints: endpoints,
	}
	cfg.Router.MaxConcurrentRequests = cfg.SumCeilings()
	return cfg
}

var _ = Describe("Multiplexer", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	It("should route a work item to a configured endpoint", func() {
		server := okServer()
		defer server.Close()

		m, err := mux.New(newConfig(
			config.EndpointConfig{Name: "primary", URL: server.URL, Weight: 5, MaxConcurrent: 4},
		), log)
		Expect(err).NotTo(HaveOccurred())

		res, err := m.Submit(context.Background(), dispatch.WorkItem{Prompt: "Which tags apply?"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Endpoint).To(Equal("primary"))
		Expect(res.Attempts).To(Equal(1))
		Expect(res.Content).To(ContainSubstring("Undressing"))
	})

	It("should fail over from a broken endpoint to a healthy one", func() {
		broken := failingServer()
		defer broken.Close()
		healthy := okServer()
		defer healthy.Close()

		// Weight 0 keeps the healthy endpoint out of the draw until the
		// broken one has failed and been excluded.
		m, err := mux.New(newConfig(
			config.EndpointConfig{Name: "broken", URL: broken.URL, Weight: 100, MaxConcurrent: 4},
			config.EndpointConfig{Name: "healthy", URL: healthy.URL, Weight: 0, MaxConcurrent: 4},
		), log)
		Expect(err).NotTo(HaveOccurred())

		res, err := m.Submit(context.Background(), dispatch.WorkItem{Prompt: "p"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Endpoint).To(Equal("healthy"))
		Expect(res.Attempts).To(Equal(2))
	})

	It("should report exhaustion when every endpoint is broken", func() {
		broken := failingServer()
		defer broken.Close()

		m, err := mux.New(newConfig(
			config.EndpointConfig{Name: "broken", URL: broken.URL, Weight: 5, MaxConcurrent: 4},
		), log)
		Expect(err).NotTo(HaveOccurred())

		_, err = m.Submit(context.Background(), dispatch.WorkItem{Prompt: "p"})
		Expect(err).To(MatchError(dispatch.ErrAllEndpointsExhausted))
	})

	It("should handle many concurrent submissions without leaking slots", func() {
		server := okServer()
		defer server.Close()

		m, err := mux.New(newConfig(
			config.EndpointConfig{Name: "a", URL: server.URL, Weight: 95, MaxConcurrent: 8},
			config.EndpointConfig{Name: "b", URL: server.URL, Weight: 5, MaxConcurrent: 8},
		), log)
		Expect(err).NotTo(HaveOccurred())

		var wg sync.WaitGroup
		errCh := make(chan error, 64)

		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := m.Submit(context.Background(), dispatch.WorkItem{Prompt: "p"})
				errCh <- err
			}()
		}
		wg.Wait()
		close(errCh)

		for err := range errCh {
			Expect(err).NotTo(HaveOccurred())
		}

		for _, ep := range m.Endpoints() {
			Expect(ep.InFlight()).To(Equal(0))
		}
	})

	It("should reject an unparseable request timeout", func() {
		cfg := newConfig(config.EndpointConfig{Name: "a", URL: "http://localhost:1234/v1", Weight: 1, MaxConcurrent: 1})
		cfg.Router.RequestTimeout = "soon"

		_, err := mux.New(cfg, log)
		Expect(err).To(HaveOccurred())
	})
})
