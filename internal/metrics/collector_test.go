package metrics_test

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/matchload/internal/metrics"
)

func fullTimings(joinToStart time.Duration) metrics.Timings {
	return metrics.Timings{
		RegisterLogin: 100 * time.Millisecond,
		StreamConnect: 20 * time.Millisecond,
		JoinToStart:   joinToStart,
		StartToEnd:    500 * time.Millisecond,
	}
}

func TestCollectorSummaryEndToEnd(t *testing.T) {
	c := metrics.NewCollector()
	c.Record(metrics.Succeeded(0, "s1", fullTimings(1*time.Second)))
	c.Record(metrics.Succeeded(1, "s1", fullTimings(2*time.Second)))
	c.Record(metrics.Succeeded(2, "s2", fullTimings(3*time.Second)))

	s := c.Summarize()

	if s.Total != 3 || s.Successes != 3 || s.Failures != 0 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if !almostEqual(s.JoinToStart.P50, 2.0) {
		t.Errorf("expected join->start p50 2.0, got %v", s.JoinToStart.P50)
	}
	if !almostEqual(s.JoinToStart.P95, 2.9) {
		t.Errorf("expected join->start p95 2.9, got %v", s.JoinToStart.P95)
	}
	if s.JoinToStart.Samples != 3 {
		t.Errorf("expected 3 samples, got %d", s.JoinToStart.Samples)
	}
	if !almostEqual(s.RegisterLoginAvg, 0.1) {
		t.Errorf("expected register/login avg 0.1, got %v", s.RegisterLoginAvg)
	}
	if !almostEqual(s.StreamConnectAvg, 0.02) {
		t.Errorf("expected stream connect avg 0.02, got %v", s.StreamConnectAvg)
	}
	if s.Errors != nil {
		t.Errorf("expected no error histogram, got %v", s.Errors)
	}
	// Histogram-backed fields are approximate but must bracket the samples.
	if s.JoinToStart.Min < 0.99 || s.JoinToStart.Max > 3.01 {
		t.Errorf("histogram range off: min=%v max=%v", s.JoinToStart.Min, s.JoinToStart.Max)
	}
}

func TestCollectorExcludesFailuresAndZeroStages(t *testing.T) {
	c := metrics.NewCollector()
	c.Record(metrics.Succeeded(0, "", fullTimings(time.Second)))
	c.Record(metrics.Failed(1, "login_failed_401", "", metrics.Timings{}))
	c.Record(metrics.Failed(2, "session_timeout", "", metrics.Timings{
		RegisterLogin: 5 * time.Second,
		StreamConnect: 5 * time.Second,
	}))
	c.Record(metrics.Failed(3, "login_failed_401", "", metrics.Timings{}))
	// A successful outcome with a missing stage contributes to averages only.
	c.Record(metrics.Succeeded(4, "", metrics.Timings{
		RegisterLogin: 300 * time.Millisecond,
		StreamConnect: 40 * time.Millisecond,
	}))

	s := c.Summarize()

	if s.Total != 5 || s.Successes != 2 || s.Failures != 3 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if !almostEqual(s.RegisterLoginAvg, 0.2) {
		t.Errorf("failed runs leaked into average: %v", s.RegisterLoginAvg)
	}
	if s.JoinToStart.Samples != 1 || !almostEqual(s.JoinToStart.P95, 1.0) {
		t.Errorf("expected a single join->start sample of 1s, got %+v", s.JoinToStart)
	}
	if s.Errors["login_failed_401"] != 2 || s.Errors["session_timeout"] != 1 {
		t.Errorf("unexpected error histogram: %v", s.Errors)
	}
}

func TestCollectorEmptySummary(t *testing.T) {
	s := metrics.NewCollector().Summarize()

	if s.Total != 0 || s.Successes != 0 || s.Failures != 0 {
		t.Fatalf("expected zero counts, got %+v", s)
	}
	if s.RegisterLoginAvg != 0 || s.StreamConnectAvg != 0 {
		t.Errorf("expected zero averages, got %+v", s)
	}
	if s.JoinToStart.Samples != 0 || s.StartToEnd.Samples != 0 {
		t.Errorf("expected no stage samples, got %+v", s)
	}
}

func TestCollectorConcurrentRecord(t *testing.T) {
	const k = 500
	c := metrics.NewCollector()

	var wg sync.WaitGroup
	wg.Add(k)
	for i := 0; i < k; i++ {
		go func(idx int) {
			defer wg.Done()
			if idx%3 == 0 {
				c.Record(metrics.Failed(idx, "session_timeout", "", metrics.Timings{}))
				return
			}
			c.Record(metrics.Succeeded(idx, "", fullTimings(time.Duration(idx+1)*time.Millisecond)))
		}(i)
	}
	wg.Wait()

	outcomes := c.Outcomes()
	if len(outcomes) != k {
		t.Fatalf("expected %d outcomes, got %d", k, len(outcomes))
	}
	seen := make(map[int]bool, k)
	for _, o := range outcomes {
		if seen[o.Index] {
			t.Fatalf("duplicate outcome for index %d", o.Index)
		}
		seen[o.Index] = true
	}

	p := c.Snapshot()
	if p.Completed != k || p.Successes+p.Failures != k {
		t.Errorf("snapshot mismatch: %+v", p)
	}
}

func TestFailedOutcomeAlwaysClassified(t *testing.T) {
	o := metrics.Failed(7, "", "", metrics.Timings{})
	if o.Success || o.Error == "" {
		t.Errorf("expected classified failure, got %+v", o)
	}
}

func TestStageStatsJSONEmptyIsNull(t *testing.T) {
	c := metrics.NewCollector()
	c.Record(metrics.Failed(0, "session_timeout", "", metrics.Timings{}))

	data, err := json.Marshal(c.Summarize())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := string(data)
	for _, want := range []string{
		`"join_to_start":{"samples":0,"p50_s":null,"p95_s":null,"p99_s":null,"min_s":null,"max_s":null}`,
		`"start_to_end":{"samples":0,"p50_s":null`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary JSON missing %s:\n%s", want, got)
		}
	}

	c.Record(metrics.Succeeded(1, "s", fullTimings(time.Second)))
	data, err = json.Marshal(c.Summarize().JoinToStart)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"p50_s":1,"p95_s":1`) {
		t.Errorf("populated stage JSON = %s", data)
	}
}
