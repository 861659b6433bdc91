// Package policy decides which endpoint the next request should go to.
//
// The weighted strategy is stateless: every selection is made fresh from the
// current capacity snapshot, so an endpoint that frees capacity is back in
// rotation immediately. Primaries are preferred proportionally to their
// weight; fallback endpoints are only considered when no primary can admit.
package policy
