package irtrack

import "sync"

// OutputMailbox is the boundary between the pipeline worker and consumers.
//
// Each output channel is a single slot with an "updated" flag: the worker
// overwrites the slot and sets the flag after every frame, and a consumer
// read copies the value out and clears the flag. Publishing twice before a
// read leaves only the newer value — last-write-wins is intentional, a
// consumer always wants the freshest frame, never a backlog.
//
// The worker is the only writer; consumers only copy out. Nothing here
// blocks for longer than the copy.
type OutputMailbox struct {
	mu sync.Mutex

	tools        []float64
	toolsUpdated bool

	abDisplay           *Image8
	abDisplayUpdated    bool
	depthDisplay        *Image8
	depthDisplayUpdated bool

	rawAB           *Image16
	rawABUpdated    bool
	rawDepth        *Image16
	rawDepthUpdated bool
}

// NewOutputMailbox returns an empty mailbox.
func NewOutputMailbox() *OutputMailbox {
	return &OutputMailbox{}
}

// PublishTools stores a serialized tool snapshot and marks it fresh.
func (m *OutputMailbox) PublishTools(snapshot []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = snapshot
	m.toolsUpdated = true
}

// ToolsUpdated reports whether a snapshot has been published since the last
// TakeTools.
func (m *OutputMailbox) ToolsUpdated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toolsUpdated
}

// TakeTools returns a copy of the latest tool snapshot and clears the
// updated flag. ok is false if nothing has been published yet.
func (m *OutputMailbox) TakeTools() ([]float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tools == nil {
		return nil, false
	}
	out := make([]float64, len(m.tools))
	copy(out, m.tools)
	m.toolsUpdated = false
	return out, true
}

// PeekTools returns a copy of the latest tool snapshot without clearing the
// updated flag. Side readers use this so they never starve the primary
// consumer.
func (m *OutputMailbox) PeekTools() ([]float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tools == nil {
		return nil, false
	}
	out := make([]float64, len(m.tools))
	copy(out, m.tools)
	return out, true
}

// PeekABDisplay returns a copy of the annotated AB display image without
// clearing its updated flag.
func (m *OutputMailbox) PeekABDisplay() (*Image8, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.abDisplay == nil {
		return nil, false
	}
	return m.abDisplay.Clone(), true
}

// PeekDepthDisplay returns a copy of the depth display image without
// clearing its updated flag.
func (m *OutputMailbox) PeekDepthDisplay() (*Image8, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depthDisplay == nil {
		return nil, false
	}
	return m.depthDisplay.Clone(), true
}

// PublishDisplayImages stores the annotated AB and depth display images.
func (m *OutputMailbox) PublishDisplayImages(ab, depth *Image8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abDisplay = ab
	m.abDisplayUpdated = true
	m.depthDisplay = depth
	m.depthDisplayUpdated = true
}

// DisplayImagesUpdated reports whether display images are fresh.
func (m *OutputMailbox) DisplayImagesUpdated() (ab, depth bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.abDisplayUpdated, m.depthDisplayUpdated
}

// TakeABDisplay returns a copy of the annotated AB display image, clearing
// its updated flag.
func (m *OutputMailbox) TakeABDisplay() (*Image8, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.abDisplay == nil {
		return nil, false
	}
	m.abDisplayUpdated = false
	return m.abDisplay.Clone(), true
}

// TakeDepthDisplay returns a copy of the depth display image, clearing its
// updated flag.
func (m *OutputMailbox) TakeDepthDisplay() (*Image8, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depthDisplay == nil {
		return nil, false
	}
	m.depthDisplayUpdated = false
	return m.depthDisplay.Clone(), true
}

// PublishRawImages stores the raw 16-bit AB and depth frames for consumers
// that want unprocessed sensor data.
func (m *OutputMailbox) PublishRawImages(ab, depth *Image16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawAB = ab
	m.rawABUpdated = true
	m.rawDepth = depth
	m.rawDepthUpdated = true
}

// TakeRawAB returns a copy of the raw AB frame, clearing its updated flag.
func (m *OutputMailbox) TakeRawAB() (*Image16, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rawAB == nil {
		return nil, false
	}
	out := NewImage16(m.rawAB.Width, m.rawAB.Height)
	copy(out.Pix, m.rawAB.Pix)
	m.rawABUpdated = false
	return out, true
}

// TakeRawDepth returns a copy of the raw depth frame, clearing its updated
// flag.
func (m *OutputMailbox) TakeRawDepth() (*Image16, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rawDepth == nil {
		return nil, false
	}
	out := NewImage16(m.rawDepth.Width, m.rawDepth.Height)
	copy(out.Pix, m.rawDepth.Pix)
	m.rawDepthUpdated = false
	return out, true
}

// RawImagesUpdated reports freshness of the raw frame slots.
func (m *OutputMailbox) RawImagesUpdated() (ab, depth bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rawABUpdated, m.rawDepthUpdated
}
