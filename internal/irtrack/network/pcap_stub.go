//go:build !pcap
// +build !pcap

package network

import (
	"context"
	"fmt"

	"github.com/argus-surgical/toolpose/internal/irtrack"
)

// FrameSink receives frames reassembled from a capture.
type FrameSink interface {
	Deliver(frame *irtrack.SensorFrame)
}

// ReplayPCAPFile is a stub implementation when PCAP support is disabled.
// Build with -tags=pcap to enable PCAP file replay.
func ReplayPCAPFile(ctx context.Context, pcapFile string, udpPort int, sink FrameSink, realtime bool) error {
	return fmt.Errorf("PCAP support not enabled: rebuild with -tags=pcap to enable PCAP file replay")
}
