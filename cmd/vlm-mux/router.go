package main

import (
	"net/http"

	"github.com/havenvlm/vlm-mux/internal/handler"
	"github.com/havenvlm/vlm-mux/internal/metrics"
	"github.com/havenvlm/vlm-mux/internal/mux"
)

func setupRouter(analyzeHandler *handler.AnalyzeHandler, metricsCollector *metrics.Collector, m *mux.Multiplexer) *http.ServeMux {
	router := http.NewServeMux()

	pool := make([]metrics.InFlightReader, 0, len(m.Endpoints()))
	for _, ep := range m.Endpoints() {
		pool = append(pool, ep)
	}

	router.HandleFunc("/v1/analyze", analyzeHandler.ServeHTTP)
	router.HandleFunc("/metrics", metricsCollector.Handler(pool))
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return router
}
