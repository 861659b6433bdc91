// Package metrics provides real-time metrics collection for the router.
//
// It uses a channel-based event pipeline to asynchronously collect counts of
// submitted work items, per-endpoint selections and attempt failures, outcome
// latencies with percentile calculations (P50, P95, P99), and terminal
// failure kinds. Events are sent via a buffered channel with non-blocking
// semantics so the request path never stalls on bookkeeping.
//
// The collected numbers are observational only: routing decisions never read
// them. The router stays stateless per request.
package metrics
