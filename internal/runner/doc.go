// Package runner fans a batch of synthetic clients out concurrently and waits
// for every one of them.
//
// Each client gets its own goroutine. With a ramp delay, client i waits
// i*RampDelay before its first network call so connection bursts are spread
// out. Outcomes go to an optional [Recorder], typically a *metrics.Collector:
//
//	collector := metrics.NewCollector()
//	r := runner.New(runner.Options{
//		Clients:   100,
//		RampDelay: 50 * time.Millisecond,
//		Client:    clientRunner,
//		Recorder:  collector,
//	})
//	result := r.Run(ctx)
//	fmt.Println(collector.Summarize())
//
// # Middleware
//
// [WithLogging] reports every failed outcome to a [FailureLogger].
package runner
