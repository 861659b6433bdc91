// Package mux is the facade the rest of the system talks to. It wires the
// endpoint pool, the routing policy, the outbound client and the dispatcher
// from configuration, and exposes a single Submit operation that is safe to
// call from any number of concurrent workers.
package mux
