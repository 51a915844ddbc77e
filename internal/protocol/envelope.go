// Package protocol defines the JSON envelopes exchanged with the match service stream.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Message types carried in the "t" field.
const (
	TypeEvent = "event"
	TypeError = "error"
)

// Event names used by the match service.
const (
	EventAuthState      = "auth_state"
	EventSessionCreated = "session.created"
	EventSessionStarted = "session.started"
	EventSessionState   = "session.state"
	EventSessionEnded   = "session.ended"
	EventSessionInput   = "session.input"
)

// DefaultErrorCode classifies an error frame that carries no code.
const DefaultErrorCode = "error"

// Envelope is an inbound stream message. Payload decoding is deferred to the
// accessor matching the event kind.
type Envelope struct {
	Type    string          `json:"t"`
	Event   string          `json:"event"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"p"`
}

// SessionPayload holds the fields of session.* events the harness cares about.
// Nil pointers mean the field was absent.
type SessionPayload struct {
	SessionID *string `json:"sessionId"`
	Tick      *int64  `json:"tick"`
}

// ErrorPayload is the body of a "t":"error" frame.
type ErrorPayload struct {
	Code    *string `json:"code"`
	Message string  `json:"message"`
}

// Decode parses a raw stream frame. Event is empty when the frame has a null event.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode stream message: %w", err)
	}
	return env, nil
}

// IsError reports whether the frame is an error frame.
func (e Envelope) IsError() bool {
	return e.Type == TypeError
}

// Session decodes the payload of a session event. An absent or null payload
// yields an empty SessionPayload.
func (e Envelope) Session() (SessionPayload, error) {
	var p SessionPayload
	if !hasPayload(e.Payload) {
		return p, nil
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return SessionPayload{}, fmt.Errorf("decode %s payload: %w", e.Event, err)
	}
	return p, nil
}

// ErrorCode returns the service-supplied error code, or DefaultErrorCode.
func (e Envelope) ErrorCode() string {
	if !hasPayload(e.Payload) {
		return DefaultErrorCode
	}
	var p ErrorPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil || p.Code == nil || *p.Code == "" {
		return DefaultErrorCode
	}
	return *p.Code
}

// MergeSessionID keeps current unless incoming is present and non-empty.
func MergeSessionID(current string, incoming *string) string {
	if incoming == nil || *incoming == "" {
		return current
	}
	return *incoming
}

func hasPayload(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
