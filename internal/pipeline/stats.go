package pipeline

import (
	"slices"
	"sync"
	"time"
)

// Phase names a timed stage of a conversion.
type Phase string

const (
	PhaseDecode   Phase = "decode"
	PhaseClassify Phase = "classify"
	PhaseStore    Phase = "store"
)

var phases = []Phase{PhaseDecode, PhaseClassify, PhaseStore}

// Conversion is the record of one finished job.
type Conversion struct {
	Format  string
	Outcome JobStatus
	Phases  map[Phase]time.Duration
}

// Total is the sum of the recorded phase durations.
func (c Conversion) Total() time.Duration {
	var d time.Duration
	for _, v := range c.Phases {
		d += v
	}
	return d
}

// Latency summarizes durations in milliseconds.
type Latency struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// StatsSnapshot aggregates the conversions inside the window. Latencies
// cover completed conversions only; outcome counters cover every job.
type StatsSnapshot struct {
	Completed  int               `json:"completed"`
	Duplicates int               `json:"duplicates"`
	Failed     int               `json:"failed"`
	Total      Latency           `json:"total"`
	Phases     map[Phase]Latency `json:"phases"`
	Formats    map[string]int    `json:"formats"`
	FailedIn   map[Phase]int     `json:"failed_in"`
}

type conversionSample struct {
	at      time.Time
	format  string
	outcome JobStatus
	phaseMs map[Phase]int64
	failed  Phase
}

// ConversionStats keeps recent conversions within a rolling window.
type ConversionStats struct {
	mu      sync.Mutex
	samples []conversionSample
	window  time.Duration
	now     func() time.Time
}

func NewConversionStats(window time.Duration) *ConversionStats {
	if window <= 0 {
		window = time.Hour
	}
	return &ConversionStats{
		samples: make([]conversionSample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

// Record adds a finished conversion. failedIn names the phase a failed
// conversion stopped in and is ignored for other outcomes.
func (s *ConversionStats) Record(c Conversion, failedIn Phase) {
	sm := conversionSample{
		format:  c.Format,
		outcome: c.Outcome,
		phaseMs: make(map[Phase]int64, len(c.Phases)),
	}
	if c.Outcome == StatusFailed {
		sm.failed = failedIn
	}
	for p, d := range c.Phases {
		sm.phaseMs[p] = max(d.Milliseconds(), 0)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sm.at = s.now()
	s.pruneLocked(sm.at)
	s.samples = append(s.samples, sm)
}

func (s *ConversionStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())

	snap := StatsSnapshot{
		Phases:   make(map[Phase]Latency, len(phases)),
		Formats:  make(map[string]int),
		FailedIn: make(map[Phase]int),
	}
	var total []int64
	byPhase := make(map[Phase][]int64, len(phases))
	for _, sm := range s.samples {
		switch sm.outcome {
		case StatusDupSkipped:
			snap.Duplicates++
			continue
		case StatusFailed:
			snap.Failed++
			if sm.failed != "" {
				snap.FailedIn[sm.failed]++
			}
			continue
		}
		snap.Completed++
		snap.Formats[sm.format]++
		var sum int64
		for _, p := range phases {
			ms, ok := sm.phaseMs[p]
			if !ok {
				continue
			}
			byPhase[p] = append(byPhase[p], ms)
			sum += ms
		}
		total = append(total, sum)
	}

	snap.Total = summarize(total)
	for _, p := range phases {
		snap.Phases[p] = summarize(byPhase[p])
	}
	return snap
}

func (s *ConversionStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm conversionSample) bool {
		return sm.at.Before(cutoff)
	})
}

func summarize(values []int64) Latency {
	if len(values) == 0 {
		return Latency{}
	}
	slices.Sort(values)
	var sum int64
	for _, v := range values {
		sum += v
	}
	return Latency{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + float64(sorted[lo+1]-sorted[lo])*frac
}
