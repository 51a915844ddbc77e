package metrics

import (
	"encoding/json"
	"sync"
)

// Collector accumulates client outcomes in completion order.
// Record is safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	outcomes  []Outcome
	successes int
	failures  int
}

// Progress is a point-in-time count of completed runs.
type Progress struct {
	Completed int
	Successes int
	Failures  int
}

// StageStats describes the distribution of one stage over successful runs.
// P50 and P95 are interpolated from the exact samples; Min, Max and P99 come
// from a microsecond histogram.
type StageStats struct {
	Samples int
	P50     float64
	P95     float64
	P99     float64
	Min     float64
	Max     float64
}

type stageStatsJSON struct {
	Samples int      `json:"samples"`
	P50     *float64 `json:"p50_s"`
	P95     *float64 `json:"p95_s"`
	P99     *float64 `json:"p99_s"`
	Min     *float64 `json:"min_s"`
	Max     *float64 `json:"max_s"`
}

// MarshalJSON writes the distribution values as null when the stage has no
// samples, so an empty stage never reads as a zero latency.
func (st StageStats) MarshalJSON() ([]byte, error) {
	out := stageStatsJSON{Samples: st.Samples}
	if st.Samples > 0 {
		out.P50, out.P95, out.P99 = &st.P50, &st.P95, &st.P99
		out.Min, out.Max = &st.Min, &st.Max
	}
	return json.Marshal(out)
}

// Summary is the aggregated view over all recorded outcomes. Latencies are in seconds.
type Summary struct {
	Total            int            `json:"total"`
	Successes        int            `json:"successes"`
	Failures         int            `json:"failures"`
	RegisterLoginAvg float64        `json:"register_login_avg_s"`
	StreamConnectAvg float64        `json:"stream_connect_avg_s"`
	JoinToStart      StageStats     `json:"join_to_start"`
	StartToEnd       StageStats     `json:"start_to_end"`
	Errors           map[string]int `json:"errors,omitempty"`
}

func NewCollector() *Collector {
	return &Collector{}
}

// Record appends an outcome. It never fails and performs no validation.
func (c *Collector) Record(outcome Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.outcomes = append(c.outcomes, outcome)
	if outcome.Success {
		c.successes++
	} else {
		c.failures++
	}
}

// Len returns the number of recorded outcomes.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outcomes)
}

// Snapshot returns running counts without copying outcomes.
func (c *Collector) Snapshot() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Progress{
		Completed: len(c.outcomes),
		Successes: c.successes,
		Failures:  c.failures,
	}
}

// Outcomes returns a copy of the recorded outcomes in completion order.
func (c *Collector) Outcomes() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outcome(nil), c.outcomes...)
}

// Summarize computes statistics over every outcome recorded so far.
func (c *Collector) Summarize() Summary {
	outcomes := c.Outcomes()

	summary := Summary{Total: len(outcomes)}
	var registerLogin, streamConnect, joinToStart, startToEnd []float64
	joinHist, endHist := newStageHistogram(), newStageHistogram()
	errors := make(map[string]int)

	for _, o := range outcomes {
		if !o.Success {
			summary.Failures++
			errors[o.Error]++
			continue
		}
		summary.Successes++
		registerLogin = append(registerLogin, o.Timings.RegisterLogin.Seconds())
		streamConnect = append(streamConnect, o.Timings.StreamConnect.Seconds())
		if o.Timings.JoinToStart > 0 {
			joinToStart = append(joinToStart, o.Timings.JoinToStart.Seconds())
			joinHist.record(o.Timings.JoinToStart)
		}
		if o.Timings.StartToEnd > 0 {
			startToEnd = append(startToEnd, o.Timings.StartToEnd.Seconds())
			endHist.record(o.Timings.StartToEnd)
		}
	}

	summary.RegisterLoginAvg = mean(registerLogin)
	summary.StreamConnectAvg = mean(streamConnect)
	summary.JoinToStart = stageStats(joinToStart, joinHist)
	summary.StartToEnd = stageStats(startToEnd, endHist)
	if len(errors) > 0 {
		summary.Errors = errors
	}
	return summary
}

func stageStats(samples []float64, hist *stageHistogram) StageStats {
	if len(samples) == 0 {
		return StageStats{}
	}
	return StageStats{
		Samples: len(samples),
		P50:     Percentile(samples, 50),
		P95:     Percentile(samples, 95),
		P99:     hist.seconds(99),
		Min:     hist.minSeconds(),
		Max:     hist.maxSeconds(),
	}
}
