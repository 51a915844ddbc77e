package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Result captures execution summary.
type Result struct {
	Clients   int
	Successes int64
	Failures  int64
	Duration  time.Duration
}

// Runner launches a fixed batch of clients and waits for all of them.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Run starts every client on its own goroutine and returns once all have
// finished. A failed client never stops its siblings. If ctx is cancelled the
// remaining ramp delays are skipped and each client still reports an outcome.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var successes, failures int64

	var wg sync.WaitGroup
	wg.Add(r.opt.Clients)
	for i := 0; i < r.opt.Clients; i++ {
		go func(index int) {
			defer wg.Done()
			if r.opt.RampDelay > 0 {
				sleep(ctx, time.Duration(index)*r.opt.RampDelay)
			}

			outcome := r.opt.Client.Run(ctx, index)
			if r.opt.Recorder != nil {
				r.opt.Recorder.Record(outcome)
			}
			if outcome.Success {
				atomic.AddInt64(&successes, 1)
			} else {
				atomic.AddInt64(&failures, 1)
			}
		}(i)
	}
	wg.Wait()

	return Result{
		Clients:   r.opt.Clients,
		Successes: atomic.LoadInt64(&successes),
		Failures:  atomic.LoadInt64(&failures),
		Duration:  time.Since(start),
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
