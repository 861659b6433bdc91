package policy

import (
	"github.com/havenvlm/vlm-mux/internal/endpoint"
)

// Selector picks the best endpoint for the next request from a snapshot of
// the pool, or nil when nothing can admit. Selection does not reserve
// capacity; the caller still has to win admission on the chosen endpoint.
type Selector interface {
	SelectEndpoint(endpoints []*endpoint.Endpoint) *endpoint.Endpoint
}
