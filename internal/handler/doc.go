// Package handler exposes the multiplexer's submit operation over HTTP and
// translates terminal routing failures into response status codes: rejected
// requests map to 422, capacity or availability exhaustion to 503.
package handler
