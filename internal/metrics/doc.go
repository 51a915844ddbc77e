// Package metrics aggregates the outcomes of simulated match clients.
//
// Each client run produces exactly one [Outcome] holding its per-stage
// [Timings]. Runs append their outcome to a shared [Collector]:
//
//	collector := metrics.NewCollector()
//	collector.Record(outcome) // safe from many goroutines
//
//	// after every run has finished
//	summary := collector.Summarize()
//
// # Statistics
//
// [Collector.Summarize] reports counts, the mean register/login and stream
// handshake latency over successful runs, p50/p95 of the queue-to-start and
// start-to-end stages, and a histogram of failure classes. A zero stage
// timing means the stage was never reached and is excluded.
//
// Percentiles are computed by [Percentile] with linear interpolation between
// order statistics, so p95 of [1 2 3] is 2.9. The JSON view additionally
// carries min/max/p99 from an HDR histogram per stage.
package metrics
