package irtrack

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// PoseRecorder receives each frame's resolved tool set for persistence.
// Recording sits outside the real-time path contract: a recorder error is
// logged and dropped, never propagated into frame processing.
type PoseRecorder interface {
	RecordFrame(ts time.Time, tools *ToolSet) error
}

// PipelineConfig configures a FramePipeline.
type PipelineConfig struct {
	Tools         *ToolSet
	Method        BlobDetectionMethod
	DisplayImages bool          // regenerate annotated display images each frame
	IdleSleep     time.Duration // back-off when the source has no frame ready
	StatsInterval time.Duration // period of the stats log line; 0 disables it
	Recorder      PoseRecorder  // optional
}

// DefaultPipelineConfig returns a config with the basic centroid strategy
// and display images off.
func DefaultPipelineConfig(tools *ToolSet) PipelineConfig {
	return PipelineConfig{
		Tools:         tools,
		Method:        BlobDetectBasic,
		IdleSleep:     2 * time.Millisecond,
		StatsInterval: 5 * time.Second,
	}
}

// FramePipeline converts sensor frames into tool poses. One worker goroutine
// owns it: Run pulls frames from the source and pushes results into the
// mailbox. Everything inside a frame is synchronous.
type FramePipeline struct {
	tools    *ToolSet
	method   BlobDetectionMethod
	idle     time.Duration
	statsEvr time.Duration
	recorder PoseRecorder

	mailbox *OutputMailbox
	stats   *PipelineStats

	displayMu sync.Mutex
	display   bool

	// scratch buffers, reused across frames once sized
	ab8 *Image8
}

// NewFramePipeline builds a pipeline from an explicit configuration context.
// There is no package-global state: everything the pipeline needs arrives
// here.
func NewFramePipeline(cfg PipelineConfig) (*FramePipeline, error) {
	if cfg.Tools == nil || cfg.Tools.Len() == 0 {
		return nil, fmt.Errorf("pipeline needs at least one configured tool")
	}
	if _, ok := blobDetectors[cfg.Method]; !ok {
		return nil, fmt.Errorf("unknown blob detection method %q", cfg.Method)
	}
	idle := cfg.IdleSleep
	if idle <= 0 {
		idle = 2 * time.Millisecond
	}
	return &FramePipeline{
		tools:    cfg.Tools,
		method:   cfg.Method,
		idle:     idle,
		statsEvr: cfg.StatsInterval,
		recorder: cfg.Recorder,
		mailbox:  NewOutputMailbox(),
		stats:    NewPipelineStats(),
		display:  cfg.DisplayImages,
	}, nil
}

// Mailbox returns the output boundary consumers read from.
func (p *FramePipeline) Mailbox() *OutputMailbox { return p.mailbox }

// Stats returns the pipeline's counters.
func (p *FramePipeline) Stats() *PipelineStats { return p.stats }

// ToolCount returns the number of configured tools.
func (p *FramePipeline) ToolCount() int { return p.tools.Len() }

// SetDisplayImages toggles display-image regeneration at runtime.
func (p *FramePipeline) SetDisplayImages(on bool) {
	p.displayMu.Lock()
	defer p.displayMu.Unlock()
	p.display = on
}

func (p *FramePipeline) displayEnabled() bool {
	p.displayMu.Lock()
	defer p.displayMu.Unlock()
	return p.display
}

// Run is the worker loop. It polls the source for frames, processes each one
// synchronously, and publishes results. Cancellation is cooperative: the
// context is checked once per iteration, so stopping never aborts a frame
// mid-flight. Run returns the source's error if the source fails
// permanently, or nil on cancellation.
func (p *FramePipeline) Run(ctx context.Context, source FrameSource) error {
	log.Printf("[pipeline] worker started: %d tools, method=%s", p.tools.Len(), p.method)

	var lastStatsLog time.Time
	for {
		select {
		case <-ctx.Done():
			log.Printf("[pipeline] worker stopped")
			return nil
		default:
		}

		if err := source.Err(); err != nil {
			log.Printf("[pipeline] frame source failed: %v", err)
			return err
		}

		frame, ok := source.Poll()
		if !ok {
			p.stats.AddEmptyPoll()
			time.Sleep(p.idle)
			continue
		}

		if err := p.ProcessFrame(frame); err != nil {
			// Per-frame processing never fails for geometric reasons; an
			// error here means a malformed frame, which is skipped.
			log.Printf("[pipeline] dropping frame: %v", err)
			continue
		}

		if p.statsEvr > 0 && time.Since(lastStatsLog) >= p.statsEvr {
			snap := p.stats.GetAndReset()
			rate := float64(snap.Frames) / snap.Duration.Seconds()
			log.Printf("[pipeline] %d frames (%.1f/s), %d blobs, %d valid, %d tool sightings",
				snap.Frames, rate, snap.Blobs, snap.ValidBlobs, snap.VisibleTools)
			lastStatsLog = time.Now()
		}
	}
}

// ProcessFrame runs one frame through detection, validation, tracking and
// publication. Exported so offline reprocessing and tests can drive the
// pipeline without a worker loop.
func (p *FramePipeline) ProcessFrame(frame *SensorFrame) error {
	if frame.AB == nil || frame.Depth == nil {
		return fmt.Errorf("frame missing image data")
	}
	if frame.AB.Width != frame.Depth.Width || frame.AB.Height != frame.Depth.Height {
		return fmt.Errorf("AB %dx%d and depth %dx%d dimensions differ",
			frame.AB.Width, frame.AB.Height, frame.Depth.Width, frame.Depth.Height)
	}

	if p.ab8 == nil || p.ab8.Width != frame.AB.Width || p.ab8.Height != frame.AB.Height {
		p.ab8 = NewImage8(frame.AB.Width, frame.AB.Height)
	}
	RebalanceABImage(frame.AB, p.ab8)

	pixels, err := DetectBlobs(p.ab8, p.method)
	if err != nil {
		return fmt.Errorf("blob detection: %w", err)
	}

	blobs := ValidateBlobs(frame.Depth, frame.DepthToWorld, pixels, frame.Unproject)
	visible := UpdateTools(p.tools, blobs)
	p.stats.AddFrame(len(pixels), len(blobs), visible)

	p.mailbox.PublishTools(p.tools.Serialize())

	if p.displayEnabled() {
		annotated, err := AnnotateToolMarkers(p.ab8, p.tools)
		if err != nil {
			return fmt.Errorf("annotate display image: %w", err)
		}
		depthDisplay := NewImage8(frame.Depth.Width, frame.Depth.Height)
		DepthDisplayImage(frame.Depth, depthDisplay)
		p.mailbox.PublishDisplayImages(annotated, depthDisplay)
		p.mailbox.PublishRawImages(frame.AB, frame.Depth)
	}

	if p.recorder != nil {
		if err := p.recorder.RecordFrame(frame.Timestamp, p.tools); err != nil {
			log.Printf("[pipeline] pose recording failed: %v", err)
		}
	}

	return nil
}
