package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/angeloszaimis/variant-edge/internal/circuitbreaker"
)

// BreakerReporter exposes the per-host circuit breaker states.
type BreakerReporter interface {
	Stats() map[string]circuitbreaker.State
}

// Handler serves the current snapshot as JSON. breakers may be nil.
func (c *Collector) Handler(engine string, breakers BreakerReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.metrics.Snapshot(engine)

		if breakers != nil {
			if stats := breakers.Stats(); len(stats) > 0 {
				snap.Breakers = make(map[string]string, len(stats))
				for host, state := range stats {
					snap.Breakers[host] = state.String()
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}
