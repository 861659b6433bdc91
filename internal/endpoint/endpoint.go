package endpoint

import (
	"net/url"
	"sync"

	"github.com/havenvlm/vlm-mux/config"
)

// Endpoint is one inference backend with a concurrency-gated in-flight
// counter. The identity fields are read-only after construction; only the
// counter is mutable and it is guarded by the mutex.
type Endpoint struct {
	name          string
	baseURL       *url.URL
	apiKey        string
	weight        int
	maxConcurrent int
	fallback      bool

	mutex    sync.Mutex
	inFlight int
}

// New creates an Endpoint. maxConcurrent must be positive; the config layer
// validates this before construction.
func New(name string, baseURL *url.URL, apiKey string, weight, maxConcurrent int, fallback bool) *Endpoint {
	return &Endpoint{
		name:          name,
		baseURL:       baseURL,
		apiKey:        apiKey,
		weight:        weight,
		maxConcurrent: maxConcurrent,
		fallback:      fallback,
	}
}

// FromConfig builds the endpoint pool from validated configuration.
func FromConfig(configs []config.EndpointConfig) ([]*Endpoint, error) {
	endpoints := make([]*Endpoint, 0, len(configs))

	for _, ec := range configs {
		u, err := url.Parse(ec.URL)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, New(ec.Name, u, ec.APIKey, ec.Weight, ec.MaxConcurrent, ec.Fallback))
	}

	return endpoints, nil
}

// TryAcquire admits one request if the endpoint has spare capacity.
// It never blocks: the caller decides what to do on denial.
func (e *Endpoint) TryAcquire() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.inFlight >= e.maxConcurrent {
		return false
	}

	e.inFlight++
	return true
}

// Release returns a previously acquired slot. Must be called exactly once
// per successful TryAcquire, on every exit path of the guarded call.
func (e *Endpoint) Release() {
	e.mutex.Lock()
	if e.inFlight > 0 {
		e.inFlight--
	}
	e.mutex.Unlock()
}

// InFlight returns the current count of admitted, not-yet-completed requests.
func (e *Endpoint) InFlight() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.inFlight
}

// Available returns the remaining admission capacity.
func (e *Endpoint) Available() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.maxConcurrent - e.inFlight
}

// Name returns the unique endpoint identifier.
func (e *Endpoint) Name() string {
	return e.name
}

// BaseURL returns the endpoint's inference API base URL.
func (e *Endpoint) BaseURL() *url.URL {
	return e.baseURL
}

// APIKey returns the endpoint credential, which may be empty.
func (e *Endpoint) APIKey() string {
	return e.apiKey
}

// Weight returns the relative traffic preference among same-tier endpoints.
func (e *Endpoint) Weight() int {
	return e.weight
}

// MaxConcurrent returns the hard ceiling on simultaneous in-flight requests.
func (e *Endpoint) MaxConcurrent() int {
	return e.maxConcurrent
}

// IsFallback reports whether this endpoint only receives traffic when all
// primary endpoints are saturated.
func (e *Endpoint) IsFallback() bool {
	return e.fallback
}
