package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/torosent/matchload/internal/metrics"
	"github.com/torosent/matchload/internal/threshold"
)

// PrintReport writes the human-readable run summary, one metric per line.
func PrintReport(w io.Writer, summary metrics.Summary) {
	for _, line := range summary.Lines() {
		fmt.Fprintln(w, line)
	}
}

// JSONReport is the machine-readable form of a finished run.
type JSONReport struct {
	RunID      string          `json:"run_id"`
	Duration   string          `json:"duration"`
	DurationS  float64         `json:"duration_s"`
	Summary    metrics.Summary `json:"summary"`
	Failures   []failureRow    `json:"failure_codes,omitempty"`
	Thresholds []thresholdRow  `json:"thresholds,omitempty"`
}

type thresholdRow struct {
	Threshold string  `json:"threshold"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
	Message   string  `json:"message"`
}

type failureRow struct {
	Class string `json:"class"`
	Count int    `json:"count"`
}

// PrintThresholds writes one line per evaluated threshold. Nothing is
// written when no thresholds were configured.
func PrintThresholds(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(w, "Thresholds:")
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
}

// PrintJSONReport writes summary and threshold results as indented JSON
// tagged with the run ID.
func PrintJSONReport(w io.Writer, runID string, elapsed time.Duration, summary metrics.Summary, results []threshold.Result) error {
	report := JSONReport{
		RunID:     runID,
		Duration:  elapsed.Round(time.Millisecond).String(),
		DurationS: elapsed.Seconds(),
		Summary:   summary,
	}
	for _, row := range metrics.FlattenFailures(summary.Errors) {
		report.Failures = append(report.Failures, failureRow{Class: row.Class, Count: row.Count})
	}

	for _, r := range results {
		report.Thresholds = append(report.Thresholds, thresholdRow{
			Threshold: r.Threshold.Raw,
			Actual:    r.Actual,
			Pass:      r.Pass,
			Message:   r.Message,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
