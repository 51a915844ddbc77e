// Package logging builds the zap loggers used by matchload.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/torosent/matchload/internal/metrics"
)

// New returns a console-encoded logger writing to out at the given level.
func New(level string, out io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(out)),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core, zap.ErrorOutput(zapcore.AddSync(out))), nil
}

// FailureLogger writes one warning per failed client run.
type FailureLogger struct {
	log *zap.Logger
}

func NewFailureLogger(log *zap.Logger) *FailureLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &FailureLogger{log: log.With(zap.String("component", "failures"))}
}

func (l *FailureLogger) LogFailure(o metrics.Outcome) {
	if o.Success {
		return
	}
	l.log.Warn("client failed",
		zap.Int("client", o.Index),
		zap.String("error", o.Error),
		zap.String("session_id", o.SessionID),
		zap.Duration("register_login", o.Timings.RegisterLogin),
		zap.Duration("stream_connect", o.Timings.StreamConnect),
		zap.Duration("join_to_start", o.Timings.JoinToStart),
		zap.Duration("start_to_end", o.Timings.StartToEnd),
	)
}
