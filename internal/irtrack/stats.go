package irtrack

import (
	"sync"
	"time"
)

// PipelineStats tracks per-interval pipeline counters. The worker increments
// them as frames pass through; the monitor server and the periodic log line
// read-and-reset them.
type PipelineStats struct {
	mu           sync.Mutex
	frameCount   int64
	blobCount    int64
	validBlobs   int64
	visibleTools int64
	emptyPolls   int64
	lastReset    time.Time
	totalFrames  int64
	startedAt    time.Time
}

// NewPipelineStats returns zeroed stats anchored at now.
func NewPipelineStats() *PipelineStats {
	now := time.Now()
	return &PipelineStats{lastReset: now, startedAt: now}
}

// AddFrame records one processed frame with its blob and visibility counts.
func (ps *PipelineStats) AddFrame(blobs, validBlobs, visibleTools int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.frameCount++
	ps.totalFrames++
	ps.blobCount += int64(blobs)
	ps.validBlobs += int64(validBlobs)
	ps.visibleTools += int64(visibleTools)
}

// AddEmptyPoll records one poll that returned no frame.
func (ps *PipelineStats) AddEmptyPoll() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.emptyPolls++
}

// IntervalSnapshot is one read-and-reset view of the counters.
type IntervalSnapshot struct {
	Frames       int64
	Blobs        int64
	ValidBlobs   int64
	VisibleTools int64
	EmptyPolls   int64
	Duration     time.Duration
	TotalFrames  int64
	Uptime       time.Duration
}

// Snapshot returns the current counters without resetting them. Side
// readers (the monitor server) use this so they never disturb the periodic
// log interval.
func (ps *PipelineStats) Snapshot() IntervalSnapshot {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	now := time.Now()
	return IntervalSnapshot{
		Frames:       ps.frameCount,
		Blobs:        ps.blobCount,
		ValidBlobs:   ps.validBlobs,
		VisibleTools: ps.visibleTools,
		EmptyPolls:   ps.emptyPolls,
		Duration:     now.Sub(ps.lastReset),
		TotalFrames:  ps.totalFrames,
		Uptime:       now.Sub(ps.startedAt),
	}
}

// GetAndReset returns the counters accumulated since the previous call and
// clears them. Totals and uptime are cumulative.
func (ps *PipelineStats) GetAndReset() IntervalSnapshot {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := time.Now()
	snap := IntervalSnapshot{
		Frames:       ps.frameCount,
		Blobs:        ps.blobCount,
		ValidBlobs:   ps.validBlobs,
		VisibleTools: ps.visibleTools,
		EmptyPolls:   ps.emptyPolls,
		Duration:     now.Sub(ps.lastReset),
		TotalFrames:  ps.totalFrames,
		Uptime:       now.Sub(ps.startedAt),
	}

	ps.frameCount = 0
	ps.blobCount = 0
	ps.validBlobs = 0
	ps.visibleTools = 0
	ps.emptyPolls = 0
	ps.lastReset = now

	return snap
}
