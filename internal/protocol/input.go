package protocol

const (
	inputSeq      = 1
	inputSequence = 1
	inputDelta    = 1
)

// InputPayload is the body of a session.input event.
type InputPayload struct {
	SessionID  string `json:"sessionId"`
	Sequence   uint64 `json:"sequence"`
	TargetTick int64  `json:"targetTick"`
	Delta      int    `json:"delta"`
}

// Outbound is a client-to-service stream message.
type Outbound struct {
	Type    string `json:"t"`
	Seq     uint64 `json:"seq"`
	Event   string `json:"event"`
	Payload any    `json:"p"`
}

// TargetTick returns the tick an input should apply to, given the tick
// reported by session.started. Absent ticks count as 0.
func TargetTick(reported *int64) int64 {
	var tick int64
	if reported != nil {
		tick = *reported
	}
	return max(1, tick+1)
}

// NewSessionInput builds the single input event a client sends after its
// session starts.
func NewSessionInput(sessionID string, reportedTick *int64) Outbound {
	return Outbound{
		Type:  TypeEvent,
		Seq:   inputSeq,
		Event: EventSessionInput,
		Payload: InputPayload{
			SessionID:  sessionID,
			Sequence:   inputSequence,
			TargetTick: TargetTick(reportedTick),
			Delta:      inputDelta,
		},
	}
}
