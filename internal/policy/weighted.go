package policy

import (
	"math/rand"

	"github.com/havenvlm/vlm-mux/internal/endpoint"
)

// weightedStrategy implements tiered weighted-random selection. Candidates
// are the primary endpoints with spare capacity, or the fallback endpoints
// with spare capacity when every primary is saturated. Among candidates the
// draw is proportional to configured weight; zero-weight endpoints are only
// picked when no candidate carries weight.
type weightedStrategy struct{}

// NewWeightedStrategy creates the tiered weighted-random selector.
func NewWeightedStrategy() Selector {
	return &weightedStrategy{}
}

func (w *weightedStrategy) SelectEndpoint(endpoints []*endpoint.Endpoint) *endpoint.Endpoint {
	candidates := availableByTier(endpoints, false)
	if len(candidates) == 0 {
		candidates = availableByTier(endpoints, true)
	}
	if len(candidates) == 0 {
		return nil
	}

	totalWeight := 0
	for _, e := range candidates {
		totalWeight += e.Weight()
	}

	// All candidates weightless: uniform draw. This also covers the
	// sole-candidate case for a zero-weight endpoint.
	if totalWeight == 0 {
		return candidates[rand.Intn(len(candidates))]
	}

	r := rand.Intn(totalWeight)
	for _, e := range candidates {
		r -= e.Weight()
		if r < 0 {
			return e
		}
	}

	return candidates[len(candidates)-1]
}

func availableByTier(endpoints []*endpoint.Endpoint, fallback bool) []*endpoint.Endpoint {
	candidates := make([]*endpoint.Endpoint, 0, len(endpoints))

	for _, e := range endpoints {
		if e.IsFallback() == fallback && e.Available() > 0 {
			candidates = append(candidates, e)
		}
	}

	return candidates
}
