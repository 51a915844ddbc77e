// Package client drives one synthetic player through the match service:
// register, login, stream handshake, queue join, one session and its input.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/torosent/matchload/internal/auth"
	"github.com/torosent/matchload/internal/httpclient"
	"github.com/torosent/matchload/internal/metrics"
	"github.com/torosent/matchload/internal/tracing"
	"github.com/torosent/matchload/internal/websocket"
)

// Service is the HTTP side of the match service.
type Service interface {
	Register(ctx context.Context, creds httpclient.Credentials) error
	Login(ctx context.Context, creds httpclient.Credentials) (string, error)
	JoinQueue(ctx context.Context, creds auth.Provider, req httpclient.JoinRequest) error
}

// Options configure a Runner.
type Options struct {
	Service              Service      // required
	Dialer               StreamDialer // defaults to WebSocketDialer(StreamConnectTimeout)
	StreamURL            string       // required
	Password             string
	UserPrefix           string
	QueueMode            string
	QueueTimeout         int // seconds, sent in the join body
	SessionTimeout       time.Duration
	StreamConnectTimeout time.Duration
	Tracer               trace.Tracer
	Propagate            bool // inject trace context into the stream handshake
	Logger               *zap.Logger
	RunID                string
}

const (
	defaultUserPrefix     = "perf"
	defaultQueueMode      = "normal"
	defaultQueueTimeout   = 5
	defaultSessionTimeout = 15 * time.Second
	defaultConnectTimeout = 5 * time.Second
)

func (o *Options) normalize() {
	if o.UserPrefix == "" {
		o.UserPrefix = defaultUserPrefix
	}
	if o.QueueMode == "" {
		o.QueueMode = defaultQueueMode
	}
	if o.QueueTimeout <= 0 {
		o.QueueTimeout = defaultQueueTimeout
	}
	if o.SessionTimeout <= 0 {
		o.SessionTimeout = defaultSessionTimeout
	}
	if o.StreamConnectTimeout <= 0 {
		o.StreamConnectTimeout = defaultConnectTimeout
	}
	if o.Dialer == nil {
		o.Dialer = WebSocketDialer(o.StreamConnectTimeout)
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("matchload")
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Runner executes client runs. It is safe for concurrent use; every Run is
// independent of the others.
type Runner struct {
	opt Options
}

func New(opt Options) (*Runner, error) {
	if opt.Service == nil {
		return nil, errors.New("client: service is required")
	}
	if opt.StreamURL == "" {
		return nil, errors.New("client: stream URL is required")
	}
	opt.normalize()
	return &Runner{opt: opt}, nil
}

// run is the mutable state of one client run.
type run struct {
	index     int
	username  string
	start     time.Time
	sessionID string
	timings   metrics.Timings
	stream    websocket.Metrics // counters captured when the stream closes
	span      trace.Span
	log       *zap.Logger
}

// Run drives client index through the full sequence and returns its outcome.
// It never panics; every failure, including a recovered panic, becomes a
// failed outcome carrying the timings captured so far.
func (r *Runner) Run(ctx context.Context, index int) (out metrics.Outcome) {
	ctx, span := tracing.StartClientSpan(ctx, r.opt.Tracer, r.opt.RunID, index)
	start := time.Now()
	st := &run{
		index:    index,
		username: fmt.Sprintf("%s-%d-%d", r.opt.UserPrefix, index, start.UnixMilli()),
		start:    start,
		span:     span,
		log:      r.opt.Logger.With(zap.Int("client", index)),
	}
	span.SetAttributes(attribute.String(tracing.AttrUsername, st.username))

	defer func() {
		if p := recover(); p != nil {
			out = metrics.Failed(index, fmt.Sprintf("panic: %v", p), st.sessionID, st.timings)
		}
		r.finish(st, out)
	}()

	if err := r.execute(ctx, st); err != nil {
		return metrics.Failed(index, classify(ctx, err), st.sessionID, st.timings)
	}
	return metrics.Succeeded(index, st.sessionID, st.timings)
}

func (r *Runner) finish(st *run, out metrics.Outcome) {
	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrSessionID, out.SessionID),
		attribute.Int64(tracing.AttrStreamReceived, st.stream.MessagesReceived),
	}
	var err error
	if !out.Success {
		err = errors.New(out.Error)
		attrs = append(attrs, attribute.String(tracing.AttrErrorClass, out.Error))
	}
	tracing.EndSpan(st.span, err, attrs...)

	st.log.Debug("client finished",
		zap.Bool("success", out.Success),
		zap.String("error", out.Error),
		zap.Duration("elapsed", time.Since(st.start)),
		zap.Int64("messages_received", st.stream.MessagesReceived),
		zap.Int64("messages_sent", st.stream.MessagesSent),
		zap.Int64("stream_errors", st.stream.Errors),
	)
}

func (r *Runner) execute(ctx context.Context, st *run) error {
	creds, err := r.registerLogin(ctx, st)
	if err != nil {
		return err
	}

	stream, err := r.connectStream(ctx, st, creds)
	if err != nil {
		return err
	}
	defer func() {
		st.stream = stream.Metrics()
		if cerr := stream.Close(); cerr != nil {
			st.log.Debug("stream close failed", zap.Error(cerr))
		}
	}()

	joinStarted, err := r.joinQueue(ctx, st, creds)
	if err != nil {
		return err
	}

	return r.awaitSession(ctx, st, stream, joinStarted)
}
