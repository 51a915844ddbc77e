package runner

import (
	"context"
	"time"

	"github.com/torosent/matchload/internal/metrics"
)

// Client runs one synthetic client to completion. Implementations must
// always return an outcome; failures are reported in it, never by panicking.
type Client interface {
	Run(ctx context.Context, index int) metrics.Outcome
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, index int) metrics.Outcome

func (f ClientFunc) Run(ctx context.Context, index int) metrics.Outcome {
	return f(ctx, index)
}

// Recorder receives every outcome exactly once. *metrics.Collector satisfies it.
type Recorder interface {
	Record(outcome metrics.Outcome)
}

// Options configure the Runner.
type Options struct {
	Clients   int           // number of clients, all run concurrently
	RampDelay time.Duration // client i starts after i*RampDelay (0 means all at once)
	Client    Client        // client executor (required)
	Recorder  Recorder      // optional outcome sink
}

const errClientNotConfigured = "client not configured"

func (o *Options) normalize() {
	if o.Clients < 0 {
		o.Clients = 0
	}
	if o.RampDelay < 0 {
		o.RampDelay = 0
	}
	if o.Client == nil {
		o.Client = ClientFunc(func(_ context.Context, index int) metrics.Outcome {
			return metrics.Failed(index, errClientNotConfigured, "", metrics.Timings{})
		})
	}
}
