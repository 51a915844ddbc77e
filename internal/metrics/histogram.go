package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	histogramMinMicros = 1
	histogramMaxMicros = int64(10 * time.Minute / time.Microsecond)
	histogramSigFigs   = 3
)

// stageHistogram tracks one stage's latencies in microseconds.
type stageHistogram struct {
	hist *hdrhistogram.Histogram
}

func newStageHistogram() *stageHistogram {
	return &stageHistogram{hist: hdrhistogram.New(histogramMinMicros, histogramMaxMicros, histogramSigFigs)}
}

func (h *stageHistogram) record(d time.Duration) {
	us := d.Microseconds()
	if us < h.hist.LowestTrackableValue() {
		us = h.hist.LowestTrackableValue()
	}
	if us > h.hist.HighestTrackableValue() {
		us = h.hist.HighestTrackableValue()
	}
	_ = h.hist.RecordValue(us)
}

// seconds converts a histogram value at quantile q to seconds.
func (h *stageHistogram) seconds(q float64) float64 {
	if h.hist.TotalCount() == 0 {
		return 0
	}
	return micros(h.hist.ValueAtQuantile(q))
}

func (h *stageHistogram) minSeconds() float64 {
	if h.hist.TotalCount() == 0 {
		return 0
	}
	return micros(h.hist.Min())
}

func (h *stageHistogram) maxSeconds() float64 {
	if h.hist.TotalCount() == 0 {
		return 0
	}
	return micros(h.hist.Max())
}

func micros(v int64) float64 {
	return (time.Duration(v) * time.Microsecond).Seconds()
}
