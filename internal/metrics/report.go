package metrics

import (
	"fmt"
	"strings"
)

// Lines renders the summary one metric per line in a fixed order. The
// failure line is present only when at least one run failed.
func (s Summary) Lines() []string {
	lines := []string{
		fmt.Sprintf("Total Requests: %d", s.Total),
		fmt.Sprintf("Successes: %d", s.Successes),
		fmt.Sprintf("Failures: %d", s.Failures),
		fmt.Sprintf("Register/Login Avg: %.3fs", s.RegisterLoginAvg),
		fmt.Sprintf("WS Handshake Avg: %.3fs", s.StreamConnectAvg),
		fmt.Sprintf("Queue->Start p50/p95: %s", s.JoinToStart.p50p95()),
		fmt.Sprintf("Start->End p50/p95: %s", s.StartToEnd.p50p95()),
	}
	if len(s.Errors) > 0 {
		buckets := FlattenFailures(s.Errors)
		parts := make([]string, 0, len(buckets))
		for _, b := range buckets {
			parts = append(parts, fmt.Sprintf("%s=%d", b.Class, b.Count))
		}
		lines = append(lines, "Failure Codes: "+strings.Join(parts, ", "))
	}
	return lines
}

// String joins Lines with newlines.
func (s Summary) String() string {
	return strings.Join(s.Lines(), "\n")
}

func (st StageStats) p50p95() string {
	if st.Samples == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.3fs / %.3fs", st.P50, st.P95)
}
