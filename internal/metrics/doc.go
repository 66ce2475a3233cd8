// Package metrics provides operational metrics for the variant edge.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Request totals and how many were served from a sticky cookie
//   - Pipeline failures per stage (variants, origin, rewrite)
//   - Per-origin request counts, latency percentiles (P50, P95, P99) and
//     status code distribution
//
// The collector runs in a dedicated goroutine. Handlers send events without
// blocking; when the buffer is full the event is dropped.
//
// Example usage:
//
//	collector := metrics.NewCollector(1024, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Origin:     "https://a.example/",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot("stream")
package metrics
