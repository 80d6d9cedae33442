// Package resilience guards calls to the diarization model and its host.
//
//   - CircuitBreaker fails fast after repeated model-call failures.
//   - Bulkhead caps concurrent model calls.
//   - Retry polls with exponential backoff (the client's 202 loop).
//   - RateLimiter is a token bucket used by the HTTP rate-limit middleware.
//
// A diarization call composes the first two:
//
//	err := bh.Execute(ctx, func() error {
//	    return cb.Execute(func() error { return pipeline.Diarize(ctx, req) })
//	})
package resilience
