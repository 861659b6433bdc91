// Package endpoint models one configured inference backend: its immutable
// identity (URL, credential, weight, tier) and a live in-flight counter that
// acts as the admission gate. Admission is a counted-resource check at the
// application layer, not a connection pool: TryAcquire either grants a slot
// immediately or denies with no side effect, and every grant must be paired
// with exactly one Release.
package endpoint
