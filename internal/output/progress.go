package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/matchload/internal/metrics"
)

// Snapshotter reports how many runs have completed so far.
type Snapshotter interface {
	Snapshot() metrics.Progress
}

// ProgressReporter rewrites a single status line at a fixed interval.
type ProgressReporter struct {
	source   Snapshotter
	expected int
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	start    time.Time
}

// NewProgressReporter creates a reporter for a run of expected clients.
func NewProgressReporter(source Snapshotter, expected int, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{
		source:   source,
		expected: expected,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		start:    time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	go p.run()
}

// Stop halts updates, prints a final line and terminates it with a newline.
// It is a no-op if the reporter was never started.
func (p *ProgressReporter) Stop() {
	p.ticker.Stop()
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		<-p.finished
		fmt.Fprint(p.writer, p.line(), "\n")
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, p.line())
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) line() string {
	snap := p.source.Snapshot()
	return fmt.Sprintf("\rClients: %d/%d | Successes: %d | Failures: %d | Elapsed: %s",
		snap.Completed, p.expected, snap.Successes, snap.Failures,
		time.Since(p.start).Round(100*time.Millisecond))
}
