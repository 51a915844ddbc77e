package metrics

import "time"

// Timings holds the per-stage latencies of one client run.
// A zero value means the stage was not reached.
type Timings struct {
	RegisterLogin time.Duration // run start until login returned a token
	StreamConnect time.Duration // stream dial until the welcome message arrived
	JoinToStart   time.Duration // queue join request until session.started
	StartToEnd    time.Duration // session.started until session.ended
}

// Outcome is the terminal result of a single client run.
type Outcome struct {
	Index     int
	Success   bool
	Error     string
	SessionID string
	Timings   Timings
}

// Succeeded builds a successful outcome.
func Succeeded(index int, sessionID string, timings Timings) Outcome {
	return Outcome{Index: index, Success: true, SessionID: sessionID, Timings: timings}
}

// Failed builds a failed outcome carrying whatever timings were captured.
// An empty class is replaced with "unknown" so failures are always classified.
func Failed(index int, class, sessionID string, timings Timings) Outcome {
	if class == "" {
		class = "unknown"
	}
	return Outcome{Index: index, Error: class, SessionID: sessionID, Timings: timings}
}
