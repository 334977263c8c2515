// Package network receives sensor frames over UDP and replays them from
// PCAP captures. A frame is too large for one datagram, so the wire format
// splits it into sequenced chunks that the receiver reassembles.
package network

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/argus-surgical/toolpose/internal/irtrack"
)

const (
	// chunkMagic marks a datagram as a frame chunk ("IRTF" little-endian).
	chunkMagic = 0x46545249

	chunkHeaderSize = 14
	frameHeaderSize = 92

	// MaxChunkPayload keeps each datagram safely under the usual MTU.
	MaxChunkPayload = 1200
)

// ChunkHeader precedes every datagram payload. Chunks of one frame share a
// sequence number; chunk indices run 0..Count-1.
type ChunkHeader struct {
	FrameSeq   uint32
	ChunkIndex uint16
	ChunkCount uint16
	PayloadLen uint16
}

// CameraIntrinsics is the pinhole model the sender transmits with each
// frame. The receiver uses it to unproject pixel coordinates.
type CameraIntrinsics struct {
	Fx, Fy float64
	Cx, Cy float64
}

// Unproject returns an unprojection function for these intrinsics. The
// function fails for all inputs when a focal length is missing.
func (ci CameraIntrinsics) Unproject() irtrack.UnprojectFunc {
	return func(u, v float64) (float64, float64, bool) {
		if ci.Fx <= 0 || ci.Fy <= 0 {
			return 0, 0, false
		}
		return (u - ci.Cx) / ci.Fx, (v - ci.Cy) / ci.Fy, true
	}
}

// EncodeFrame serializes a frame into datagram-sized chunks under seq. Used
// by replay tooling and tests; the production sender implements the same
// layout.
func EncodeFrame(frame *irtrack.SensorFrame, intrinsics CameraIntrinsics, seq uint32) ([][]byte, error) {
	if frame.AB == nil || frame.Depth == nil {
		return nil, fmt.Errorf("frame missing image data")
	}
	w, h := frame.AB.Width, frame.AB.Height
	if frame.Depth.Width != w || frame.Depth.Height != h {
		return nil, fmt.Errorf("AB and depth dimensions differ")
	}
	if w > math.MaxUint16 || h > math.MaxUint16 {
		return nil, fmt.Errorf("image dimensions %dx%d exceed wire format", w, h)
	}

	body := make([]byte, frameHeaderSize+4*w*h)
	binary.LittleEndian.PutUint16(body[0:], uint16(w))
	binary.LittleEndian.PutUint16(body[2:], uint16(h))
	binary.LittleEndian.PutUint64(body[4:], uint64(frame.Timestamp.UnixNano()))
	binary.LittleEndian.PutUint32(body[12:], math.Float32bits(float32(intrinsics.Fx)))
	binary.LittleEndian.PutUint32(body[16:], math.Float32bits(float32(intrinsics.Fy)))
	binary.LittleEndian.PutUint32(body[20:], math.Float32bits(float32(intrinsics.Cx)))
	binary.LittleEndian.PutUint32(body[24:], math.Float32bits(float32(intrinsics.Cy)))
	for i, v := range frame.DepthToWorld {
		binary.LittleEndian.PutUint32(body[28+4*i:], math.Float32bits(float32(v)))
	}
	abOff := frameHeaderSize
	depthOff := frameHeaderSize + 2*w*h
	for i, px := range frame.AB.Pix {
		binary.LittleEndian.PutUint16(body[abOff+2*i:], px)
	}
	for i, px := range frame.Depth.Pix {
		binary.LittleEndian.PutUint16(body[depthOff+2*i:], px)
	}

	count := (len(body) + MaxChunkPayload - 1) / MaxChunkPayload
	if count > math.MaxUint16 {
		return nil, fmt.Errorf("frame needs %d chunks, exceeds wire format", count)
	}

	chunks := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		start := i * MaxChunkPayload
		end := start + MaxChunkPayload
		if end > len(body) {
			end = len(body)
		}
		payload := body[start:end]

		pkt := make([]byte, chunkHeaderSize+len(payload))
		binary.LittleEndian.PutUint32(pkt[0:], chunkMagic)
		binary.LittleEndian.PutUint32(pkt[4:], seq)
		binary.LittleEndian.PutUint16(pkt[8:], uint16(i))
		binary.LittleEndian.PutUint16(pkt[10:], uint16(count))
		binary.LittleEndian.PutUint16(pkt[12:], uint16(len(payload)))
		copy(pkt[chunkHeaderSize:], payload)
		chunks = append(chunks, pkt)
	}
	return chunks, nil
}

// parseChunk validates a datagram and splits it into header and payload.
func parseChunk(pkt []byte) (ChunkHeader, []byte, error) {
	var hdr ChunkHeader
	if len(pkt) < chunkHeaderSize {
		return hdr, nil, fmt.Errorf("packet too short: %d bytes", len(pkt))
	}
	if binary.LittleEndian.Uint32(pkt[0:]) != chunkMagic {
		return hdr, nil, fmt.Errorf("bad magic")
	}
	hdr.FrameSeq = binary.LittleEndian.Uint32(pkt[4:])
	hdr.ChunkIndex = binary.LittleEndian.Uint16(pkt[8:])
	hdr.ChunkCount = binary.LittleEndian.Uint16(pkt[10:])
	hdr.PayloadLen = binary.LittleEndian.Uint16(pkt[12:])

	if hdr.ChunkCount == 0 || hdr.ChunkIndex >= hdr.ChunkCount {
		return hdr, nil, fmt.Errorf("chunk %d/%d out of range", hdr.ChunkIndex, hdr.ChunkCount)
	}
	payload := pkt[chunkHeaderSize:]
	if int(hdr.PayloadLen) != len(payload) {
		return hdr, nil, fmt.Errorf("payload length %d does not match header %d", len(payload), hdr.PayloadLen)
	}
	return hdr, payload, nil
}

// decodeFrameBody turns a reassembled frame body back into a SensorFrame.
func decodeFrameBody(body []byte) (*irtrack.SensorFrame, error) {
	if len(body) < frameHeaderSize {
		return nil, fmt.Errorf("frame body too short: %d bytes", len(body))
	}
	w := int(binary.LittleEndian.Uint16(body[0:]))
	h := int(binary.LittleEndian.Uint16(body[2:]))
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("zero frame dimensions %dx%d", w, h)
	}
	want := frameHeaderSize + 4*w*h
	if len(body) != want {
		return nil, fmt.Errorf("frame body is %d bytes, want %d for %dx%d", len(body), want, w, h)
	}

	ts := time.Unix(0, int64(binary.LittleEndian.Uint64(body[4:])))
	intrinsics := CameraIntrinsics{
		Fx: float64(math.Float32frombits(binary.LittleEndian.Uint32(body[12:]))),
		Fy: float64(math.Float32frombits(binary.LittleEndian.Uint32(body[16:]))),
		Cx: float64(math.Float32frombits(binary.LittleEndian.Uint32(body[20:]))),
		Cy: float64(math.Float32frombits(binary.LittleEndian.Uint32(body[24:]))),
	}
	var depthToWorld irtrack.Mat4
	for i := range depthToWorld {
		depthToWorld[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(body[28+4*i:])))
	}

	ab := irtrack.NewImage16(w, h)
	depth := irtrack.NewImage16(w, h)
	abOff := frameHeaderSize
	depthOff := frameHeaderSize + 2*w*h
	for i := range ab.Pix {
		ab.Pix[i] = binary.LittleEndian.Uint16(body[abOff+2*i:])
	}
	for i := range depth.Pix {
		depth.Pix[i] = binary.LittleEndian.Uint16(body[depthOff+2*i:])
	}

	return &irtrack.SensorFrame{
		AB:           ab,
		Depth:        depth,
		DepthToWorld: depthToWorld,
		Unproject:    intrinsics.Unproject(),
		Timestamp:    ts,
	}, nil
}
