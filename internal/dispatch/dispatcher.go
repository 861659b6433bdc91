package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/havenvlm/vlm-mux/internal/endpoint"
	"github.com/havenvlm/vlm-mux/internal/policy"
)

// Admission can lose the race between snapshot and acquire when the
// selected endpoint fills up in between. A denied endpoint is momentarily
// full, not sick, so we reselect a bounded number of times with a short
// pause instead of excluding it.
const (
	admissionRetryLimit = 3
	admissionRetryPause = 5 * time.Millisecond
)

// Dispatcher routes one WorkItem at a time through selection, admission,
// the call itself, and failover. It is safe for concurrent use: the only
// shared mutable state is the per-endpoint in-flight counters.
type Dispatcher struct {
	endpoints   []*endpoint.Endpoint
	selector    policy.Selector
	caller      Caller
	logger      *slog.Logger
	maxAttempts int
	callTimeout time.Duration
}

func NewDispatcher(
	endpoints []*endpoint.Endpoint,
	selector policy.Selector,
	caller Caller,
	logger *slog.Logger,
	maxAttempts int,
	callTimeout time.Duration,
) *Dispatcher {
	return &Dispatcher{
		endpoints:   endpoints,
		selector:    selector,
		caller:      caller,
		logger:      logger,
		maxAttempts: maxAttempts,
		callTimeout: callTimeout,
	}
}

// Dispatch performs up to maxAttempts endpoint-level attempts for the given
// WorkItem. Retries always change endpoint; a non-retryable failure or
// caller cancellation aborts immediately. The returned error is always a
// *Error carrying the attempt count.
func (d *Dispatcher) Dispatch(ctx context.Context, item WorkItem) (Result, error) {
	excluded := make(map[string]bool, d.maxAttempts)
	attempts := 0

	for attempts < d.maxAttempts {
		if err := ctx.Err(); err != nil {
			return Result{}, &Error{Err: err, Attempts: attempts}
		}

		ep, err := d.admit(ctx, excluded)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, &Error{Err: ctxErr, Attempts: attempts}
			}
			break
		}

		attempts++

		res, err := d.callOnce(ctx, ep, item)
		if err == nil {
			res.Endpoint = ep.Name()
			res.Attempts = attempts
			return res, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, &Error{Err: ctxErr, Endpoint: ep.Name(), Attempts: attempts}
		}

		if IsFatal(err) {
			d.logger.Warn("endpoint rejected request, aborting",
				slog.String("work_id", item.ID),
				slog.String("endpoint", ep.Name()),
				slog.Int("attempts", attempts),
				slog.Any("err", err))
			return Result{}, &Error{Err: err, Endpoint: ep.Name(), Attempts: attempts}
		}

		d.logger.Warn("endpoint attempt failed, failing over",
			slog.String("work_id", item.ID),
			slog.String("endpoint", ep.Name()),
			slog.Int("attempts", attempts),
			slog.Any("err", err))
		excluded[ep.Name()] = true
	}

	return Result{}, &Error{Err: ErrAllEndpointsExhausted, Attempts: attempts}
}

// admit selects an endpoint among those not yet tried for this WorkItem and
// attempts admission on it. The selection snapshot can be stale by the time
// admission runs, so a denial reselects rather than failing the request.
func (d *Dispatcher) admit(ctx context.Context, excluded map[string]bool) (*endpoint.Endpoint, error) {
	eligible := make([]*endpoint.Endpoint, 0, len(d.endpoints))
	for _, e := range d.endpoints {
		if !excluded[e.Name()] {
			eligible = append(eligible, e)
		}
	}

	for spin := 0; spin < admissionRetryLimit; spin++ {
		ep := d.selector.SelectEndpoint(eligible)
		if ep == nil {
			return nil, ErrNoEndpointAvailable
		}

		if ep.TryAcquire() {
			return ep, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(admissionRetryPause):
		}
	}

	return nil, ErrNoEndpointAvailable
}

// callOnce performs one guarded call. The slot release is unconditional:
// success, failure, timeout and cancellation all pass through the defer.
func (d *Dispatcher) callOnce(ctx context.Context, ep *endpoint.Endpoint, item WorkItem) (Result, error) {
	defer ep.Release()

	callCtx := ctx
	if d.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
	}

	return d.caller.Call(callCtx, ep, item)
}
