// Package circuitbreaker short-circuits origin fetches to hosts that keep failing.
//
// Each origin host gets its own breaker with three states:
//
//   - CLOSED: fetches pass through
//   - OPEN: the host failed too often, fetches fail fast
//   - HALF-OPEN: the reset timeout elapsed, one probe fetch is let through
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(5, 30*time.Second)
//	cb := registry.GetBreaker("a.example")
//	if !cb.Allow() {
//	    return circuitbreaker.ErrOpen
//	}
//	if err := fetch(); err != nil {
//	    cb.RecordFailure()
//	} else {
//	    cb.RecordSuccess()
//	}
package circuitbreaker
