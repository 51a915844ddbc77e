package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/torosent/matchload/internal/auth"
	"github.com/torosent/matchload/internal/httpclient"
	"github.com/torosent/matchload/internal/protocol"
	"github.com/torosent/matchload/internal/tracing"
)

// Stage names used for span events and debug logs.
const (
	StageRegisterLogin  = "register_login"
	StageStreamConnect  = "stream_connect"
	StageQueueJoin      = "queue_join"
	StageSessionStarted = "session_started"
	StageInputSent      = "input_sent"
	StageSessionEnded   = "session_ended"
)

// registerLogin creates the account and logs in. A rejected registration is
// not fatal since the account may already exist; a transport failure is.
func (r *Runner) registerLogin(ctx context.Context, st *run) (auth.Provider, error) {
	creds := httpclient.Credentials{Username: st.username, Password: r.opt.Password}

	if err := r.opt.Service.Register(ctx, creds); err != nil {
		var httpErr *httpclient.HTTPError
		if !errors.As(err, &httpErr) {
			return nil, err
		}
		st.log.Debug("register rejected", zap.Int("status", httpErr.StatusCode))
	}

	token, err := r.opt.Service.Login(ctx, creds)
	if err != nil {
		if errors.Is(err, httpclient.ErrTokenMissing) {
			return nil, stageError(ClassLoginTokenMissing, err)
		}
		return nil, statusError("login_failed", err)
	}

	st.timings.RegisterLogin = time.Since(st.start)
	tracing.StageEvent(st.span, StageRegisterLogin)
	st.log.Debug("logged in", zap.String("username", st.username), zap.Duration("took", st.timings.RegisterLogin))
	return auth.NewBearerTokenProvider(token), nil
}

// connectStream opens the stream and waits for the welcome message. The
// handshake and the wait are each bounded by StreamConnectTimeout.
func (r *Runner) connectStream(ctx context.Context, st *run, creds auth.Provider) (Stream, error) {
	header, err := auth.Header(ctx, creds)
	if err != nil {
		return nil, err
	}
	if r.opt.Propagate {
		tracing.InjectHTTPHeaders(ctx, header)
	}

	began := time.Now()
	dialCtx, cancelDial := context.WithTimeout(ctx, r.opt.StreamConnectTimeout)
	stream, err := r.opt.Dialer(dialCtx, r.opt.StreamURL, header)
	cancelDial()
	if err != nil {
		return nil, timeoutError(ClassStreamConnectTimeout, err)
	}

	welcomeCtx, cancelWelcome := context.WithTimeout(ctx, r.opt.StreamConnectTimeout)
	defer cancelWelcome()
	if _, err := stream.ReceiveMessage(welcomeCtx); err != nil {
		_ = stream.Close()
		return nil, timeoutError(ClassStreamConnectTimeout, err)
	}

	st.timings.StreamConnect = time.Since(began)
	tracing.StageEvent(st.span, StageStreamConnect)
	st.log.Debug("stream connected", zap.Duration("took", st.timings.StreamConnect))
	return stream, nil
}

// joinQueue requests admission and returns the moment the request was issued.
func (r *Runner) joinQueue(ctx context.Context, st *run, creds auth.Provider) (time.Time, error) {
	joinStarted := time.Now()
	err := r.opt.Service.JoinQueue(ctx, creds, httpclient.JoinRequest{
		Mode:           r.opt.QueueMode,
		TimeoutSeconds: r.opt.QueueTimeout,
	})
	if err != nil {
		return joinStarted, statusError("join_failed", err)
	}
	tracing.StageEvent(st.span, StageQueueJoin)
	st.log.Debug("queue joined", zap.String("mode", r.opt.QueueMode))
	return joinStarted, nil
}

// awaitSession consumes stream events until the session ends. Each receive
// is bounded by SessionTimeout. An error frame aborts the run whatever its
// event name. An end event before the start is ignored, as are repeated starts.
func (r *Runner) awaitSession(ctx context.Context, st *run, stream Stream, joinStarted time.Time) error {
	started := false

	for {
		recvCtx, cancel := context.WithTimeout(ctx, r.opt.SessionTimeout)
		msg, err := stream.ReceiveMessage(recvCtx)
		cancel()
		if err != nil {
			return timeoutError(ClassSessionTimeout, err)
		}

		env, err := protocol.Decode(msg.Data)
		if err != nil {
			return err
		}
		if env.IsError() {
			code := env.ErrorCode()
			return stageError(code, fmt.Errorf("stream error frame: %s", code))
		}

		switch env.Event {
		case protocol.EventAuthState, protocol.EventSessionState:
			continue

		case protocol.EventSessionCreated:
			p, err := env.Session()
			if err != nil {
				return err
			}
			st.sessionID = protocol.MergeSessionID(st.sessionID, p.SessionID)

		case protocol.EventSessionStarted:
			if started {
				continue
			}
			p, err := env.Session()
			if err != nil {
				return err
			}
			started = true
			st.sessionID = protocol.MergeSessionID(st.sessionID, p.SessionID)
			st.timings.JoinToStart = time.Since(joinStarted)
			tracing.StageEvent(st.span, StageSessionStarted, attribute.String(tracing.AttrSessionID, st.sessionID))
			st.log.Debug("session started", zap.String("session_id", st.sessionID), zap.Duration("join_to_start", st.timings.JoinToStart))

			if err := stream.SendJSON(ctx, protocol.NewSessionInput(st.sessionID, p.Tick)); err != nil {
				return fmt.Errorf("send session input: %w", err)
			}
			tracing.StageEvent(st.span, StageInputSent)

		case protocol.EventSessionEnded:
			if !started {
				st.log.Debug("session end before start ignored")
				continue
			}
			st.timings.StartToEnd = time.Since(joinStarted.Add(st.timings.JoinToStart))
			tracing.StageEvent(st.span, StageSessionEnded)
			st.log.Debug("session ended", zap.Duration("start_to_end", st.timings.StartToEnd))
			return nil
		}
	}
}
