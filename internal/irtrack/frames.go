package irtrack

import "time"

// SensorFrame is one capture from the depth sensor: the two raw 16-bit
// images, the sensor's rigid pose in the world for this frame, and the
// sensor's unprojection capability. Both images share the same dimensions.
type SensorFrame struct {
	AB           *Image16
	Depth        *Image16
	DepthToWorld Mat4
	Unproject    UnprojectFunc
	Timestamp    time.Time
}

// FrameSource supplies frames to the pipeline worker. Poll returns the next
// frame if one is ready; ok=false means no frame is available right now and
// the worker should back off briefly and retry. A source signals permanent
// failure (sensor gone) through Err.
type FrameSource interface {
	Poll() (frame *SensorFrame, ok bool)
	// Err returns a non-nil error once the source has failed permanently.
	// The worker stops when it sees one.
	Err() error
}
