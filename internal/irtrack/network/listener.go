package network

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/argus-surgical/toolpose/internal/irtrack"
)

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
}

// DefaultUDPListenerConfig returns a listener configuration on the default
// sensor stream port.
func DefaultUDPListenerConfig() UDPListenerConfig {
	return UDPListenerConfig{
		Address:     ":9801",
		RcvBuf:      4 << 20,
		LogInterval: time.Minute,
	}
}

// UDPFrameSource receives chunked sensor frames over UDP and exposes them
// through the FrameSource interface. Start runs the receive loop; Poll hands
// the most recent complete frame to the pipeline worker. Only the latest
// frame is kept: if the worker falls behind, older frames are overwritten.
type UDPFrameSource struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	assembler   *FrameAssembler

	mu      sync.Mutex
	frame   *irtrack.SensorFrame
	ready   bool
	err     error
	packets int64
	frames  int64
}

// NewUDPFrameSource creates a frame source with the provided configuration.
func NewUDPFrameSource(config UDPListenerConfig) *UDPFrameSource {
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	return &UDPFrameSource{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		assembler:   NewFrameAssembler(),
	}
}

// Poll implements irtrack.FrameSource.
func (s *UDPFrameSource) Poll() (*irtrack.SensorFrame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, false
	}
	s.ready = false
	return s.frame, true
}

// Err implements irtrack.FrameSource.
func (s *UDPFrameSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Deliver publishes a complete frame as the latest available one. Exported
// so PCAP replay and tests can feed the same source the pipeline reads.
func (s *UDPFrameSource) Deliver(frame *irtrack.SensorFrame) {
	s.mu.Lock()
	s.frame = frame
	s.ready = true
	s.frames++
	s.mu.Unlock()
}

func (s *UDPFrameSource) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// Start begins receiving datagrams and assembling frames. It blocks until
// the context is cancelled or the socket fails.
func (s *UDPFrameSource) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", s.address)
	if err != nil {
		err = fmt.Errorf("failed to resolve UDP address: %w", err)
		s.setErr(err)
		return err
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		err = fmt.Errorf("failed to listen on UDP address: %w", err)
		s.setErr(err)
		return err
	}
	defer conn.Close()

	if s.rcvBuf > 0 {
		if err := conn.SetReadBuffer(s.rcvBuf); err != nil {
			log.Printf("[udp] failed to set receive buffer size to %d: %v", s.rcvBuf, err)
		}
	}

	log.Printf("[udp] frame listener started on %s", s.address)
	go s.statsLogging(ctx)

	buffer := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			log.Print("[udp] frame listener stopping")
			return ctx.Err()
		default:
			// Short read deadline so context cancellation is noticed.
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, from, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[udp] read error: %v", err)
				continue
			}

			s.mu.Lock()
			s.packets++
			s.mu.Unlock()

			frame, err := s.assembler.AddPacket(buffer[:n])
			if err != nil {
				log.Printf("[udp] bad packet from %v: %v", from, err)
				continue
			}
			if frame != nil {
				s.Deliver(frame)
			}
		}
	}
}

func (s *UDPFrameSource) statsLogging(ctx context.Context) {
	ticker := time.NewTicker(s.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			packets, frames := s.packets, s.frames
			s.packets, s.frames = 0, 0
			s.mu.Unlock()
			log.Printf("[udp] %d packets, %d frames, %d dropped total",
				packets, frames, s.assembler.DroppedFrames())
		}
	}
}
