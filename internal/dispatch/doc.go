// Package dispatch turns one unit of work into one terminal outcome. It
// coordinates the routing policy and the per-endpoint admission gates, owns
// the retry and failover budget, and guarantees that every admitted call
// releases its slot on every exit path.
//
// Failover is deliberately memoryless across work items: an endpoint that
// failed one request is fully eligible for the next, because routing
// decisions are made fresh from the live capacity snapshot. Within a single
// work item an endpoint is never tried twice.
package dispatch
