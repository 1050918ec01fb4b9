// Package profiler - Per-stage timing for the frame pipeline.
package profiler

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Stage names recorded by the pipeline.
const (
	StageRead     = "read"
	StageDetect   = "detect"
	StageFilter   = "filter"
	StageAudit    = "audit"
	StageAnnotate = "annotate"
	StageWrite    = "write"
)

// DefaultMaxSamples bounds the number of durations kept per stage.
const DefaultMaxSamples = 600

// StageStats summarizes the timings recorded for one stage.
type StageStats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Avg   time.Duration `json:"avg"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// timeTracker tracks operation timing statistics.
type timeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Profiler records how long each pipeline stage takes. It is safe for
// concurrent use.
type Profiler struct {
	clock      clock.Clock
	maxSamples int

	mu             sync.Mutex
	operationTimes map[string]*timeTracker
}

// New creates a profiler.
//
// Arguments:
//   - clk: The time source. Nil uses the wall clock.
//   - maxSamples: The window of durations kept per stage for the average. Zero uses DefaultMaxSamples.
//
// Returns:
//   - *Profiler: The profiler.
func New(clk clock.Clock, maxSamples int) *Profiler {
	if clk == nil {
		clk = clock.New()
	}
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Profiler{
		clock:          clk,
		maxSamples:     maxSamples,
		operationTimes: make(map[string]*timeTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The name of the operation to track.
//
// Returns:
//   - func(): Call it when the operation completes.
func (p *Profiler) StartOperation(name string) func() {
	start := p.clock.Now()
	return func() {
		p.Record(name, p.clock.Since(start))
	}
}

// Record adds one duration for name.
func (p *Profiler) Record(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &timeTracker{
			minTime: duration,
			maxTime: duration,
		}
		p.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.totalTime += duration
	if len(tracker.durations) > p.maxSamples {
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Snapshot returns the stats of every stage sorted by name. Avg covers the
// most recent samples only; Count, Min and Max cover the whole run.
func (p *Profiler) Snapshot() []StageStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make([]StageStats, 0, len(p.operationTimes))
	for name, tracker := range p.operationTimes {
		s := StageStats{
			Name:  name,
			Count: tracker.count,
			Total: tracker.totalTime,
			Min:   tracker.minTime,
			Max:   tracker.maxTime,
		}
		if n := len(tracker.durations); n > 0 {
			s.Avg = tracker.totalTime / time.Duration(n)
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// Report logs the stage timings and current heap usage.
func (p *Profiler) Report(logger *zap.SugaredLogger) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	for _, s := range p.Snapshot() {
		logger.Debugw("stage timing",
			"stage", s.Name,
			"avg", s.Avg.Truncate(time.Microsecond),
			"min", s.Min.Truncate(time.Microsecond),
			"max", s.Max.Truncate(time.Microsecond),
			"count", s.Count,
		)
	}
	logger.Debugw("runtime",
		"goroutines", runtime.NumGoroutine(),
		"heap_alloc", mem.HeapAlloc,
		"gc_cycles", mem.NumGC,
	)
}
