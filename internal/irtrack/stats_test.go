package irtrack

import "testing"

func TestPipelineStatsGetAndReset(t *testing.T) {
	ps := NewPipelineStats()
	ps.AddFrame(10, 6, 2)
	ps.AddFrame(4, 4, 1)
	ps.AddEmptyPoll()

	snap := ps.GetAndReset()
	if snap.Frames != 2 {
		t.Errorf("Frames = %d, want 2", snap.Frames)
	}
	if snap.Blobs != 14 {
		t.Errorf("Blobs = %d, want 14", snap.Blobs)
	}
	if snap.ValidBlobs != 10 {
		t.Errorf("ValidBlobs = %d, want 10", snap.ValidBlobs)
	}
	if snap.VisibleTools != 3 {
		t.Errorf("VisibleTools = %d, want 3", snap.VisibleTools)
	}
	if snap.EmptyPolls != 1 {
		t.Errorf("EmptyPolls = %d, want 1", snap.EmptyPolls)
	}

	// interval counters reset, totals accumulate
	again := ps.GetAndReset()
	if again.Frames != 0 || again.Blobs != 0 || again.EmptyPolls != 0 {
		t.Errorf("counters not reset: %+v", again)
	}
	if again.TotalFrames != 2 {
		t.Errorf("TotalFrames = %d, want 2", again.TotalFrames)
	}
}

func TestPipelineStatsSnapshotDoesNotReset(t *testing.T) {
	ps := NewPipelineStats()
	ps.AddFrame(3, 2, 1)

	snap := ps.Snapshot()
	if snap.Frames != 1 {
		t.Errorf("Frames = %d, want 1", snap.Frames)
	}

	// a read-only snapshot must leave the interval intact
	after := ps.GetAndReset()
	if after.Frames != 1 {
		t.Errorf("Snapshot consumed the interval: Frames = %d, want 1", after.Frames)
	}
}
