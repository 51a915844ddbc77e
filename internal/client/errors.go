package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/torosent/matchload/internal/httpclient"
)

// Error classes reported for failed runs. Stream error frames add the
// service's own codes; anything else is reported by its error string.
const (
	ClassStreamConnectTimeout = "stream_connect_timeout"
	ClassSessionTimeout       = "session_timeout"
	ClassLoginTokenMissing    = "login_token_missing"
	ClassCanceled             = "canceled"
)

// StageError is a classified failure. Error returns the class so it can be
// used directly as the failure histogram key.
type StageError struct {
	Class string
	Err   error
}

func (e *StageError) Error() string {
	return e.Class
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(class string, err error) error {
	return &StageError{Class: class, Err: err}
}

// statusError classifies an HTTP status failure as <prefix>_<status>.
// Transport errors pass through unchanged.
func statusError(prefix string, err error) error {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return stageError(fmt.Sprintf("%s_%d", prefix, httpErr.StatusCode), err)
	}
	return err
}

// timeoutError maps a deadline failure to class and leaves other errors alone.
func timeoutError(class string, err error) error {
	if isTimeout(err) {
		return stageError(class, err)
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classify turns the error that ended a run into its histogram key.
// Cancellation of the parent context wins over whatever the stage reported.
func classify(parent context.Context, err error) string {
	if parent.Err() != nil {
		return ClassCanceled
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Class
	}
	return err.Error()
}
