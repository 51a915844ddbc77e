package runner

import (
	"context"

	"github.com/torosent/matchload/internal/metrics"
)

// FailureLogger logs failed client runs.
type FailureLogger interface {
	LogFailure(outcome metrics.Outcome)
}

// loggingClient wraps a Client with failure logging.
type loggingClient struct {
	inner  Client
	logger FailureLogger
}

// WithLogging wraps a Client to log failures.
func WithLogging(c Client, logger FailureLogger) Client {
	if logger == nil {
		return c
	}
	return &loggingClient{inner: c, logger: logger}
}

func (l *loggingClient) Run(ctx context.Context, index int) metrics.Outcome {
	outcome := l.inner.Run(ctx, index)
	if !outcome.Success {
		l.logger.LogFailure(outcome)
	}
	return outcome
}
