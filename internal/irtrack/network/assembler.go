package network

import (
	"fmt"
	"sync/atomic"

	"github.com/argus-surgical/toolpose/internal/irtrack"
)

// FrameAssembler reassembles chunked datagrams into frames. It holds at
// most one frame in flight: a chunk from a newer sequence abandons the
// partial frame, so a lost datagram costs one frame, never a stall.
type FrameAssembler struct {
	seq      uint32
	count    int
	received int
	have     []bool
	body     []byte
	active   bool

	droppedFrames int64
}

// NewFrameAssembler returns an empty assembler.
func NewFrameAssembler() *FrameAssembler {
	return &FrameAssembler{}
}

// DroppedFrames returns the number of partial frames abandoned so far. Safe
// to read while another goroutine feeds packets.
func (a *FrameAssembler) DroppedFrames() int64 { return atomic.LoadInt64(&a.droppedFrames) }

// AddPacket feeds one datagram. It returns a completed frame when this
// packet was the last missing chunk, or nil while the frame is still
// partial. Malformed packets return an error and leave state untouched.
func (a *FrameAssembler) AddPacket(pkt []byte) (*irtrack.SensorFrame, error) {
	hdr, payload, err := parseChunk(pkt)
	if err != nil {
		return nil, err
	}

	if a.active && hdr.FrameSeq != a.seq {
		// Sequence moved on; whatever we were assembling is gone.
		if isNewer(hdr.FrameSeq, a.seq) {
			atomic.AddInt64(&a.droppedFrames, 1)
			a.reset()
		} else {
			return nil, nil // stale chunk from an already-abandoned frame
		}
	}

	if !a.active {
		a.seq = hdr.FrameSeq
		a.count = int(hdr.ChunkCount)
		a.have = make([]bool, a.count)
		a.body = make([]byte, 0, a.count*MaxChunkPayload)
		a.body = a.body[:a.count*MaxChunkPayload]
		a.received = 0
		a.active = true
	}

	if int(hdr.ChunkCount) != a.count {
		a.reset()
		return nil, fmt.Errorf("chunk count changed mid-frame: %d != %d", hdr.ChunkCount, a.count)
	}

	idx := int(hdr.ChunkIndex)
	if a.have[idx] {
		return nil, nil // duplicate datagram
	}
	a.have[idx] = true
	a.received++

	copy(a.body[idx*MaxChunkPayload:], payload)
	if idx == a.count-1 {
		// Final chunk may be short; trim the body to its true length.
		a.body = a.body[:idx*MaxChunkPayload+len(payload)]
	}

	if a.received < a.count {
		return nil, nil
	}

	body := a.body
	a.reset()
	return decodeFrameBody(body)
}

func (a *FrameAssembler) reset() {
	a.active = false
	a.have = nil
	a.body = nil
	a.received = 0
	a.count = 0
}

// isNewer reports whether sequence a is ahead of b with wraparound.
func isNewer(a, b uint32) bool {
	return int32(a-b) > 0
}
