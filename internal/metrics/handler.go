package metrics

import (
	"encoding/json"
	"net/http"
)

// Handler serves the current snapshot as JSON. pool supplies live in-flight
// counts alongside the accumulated counters.
func (c *Collector) Handler(pool []InFlightReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.metrics.Snapshot(pool)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}
