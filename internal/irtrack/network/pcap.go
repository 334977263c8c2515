//go:build pcap
// +build pcap

package network

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/argus-surgical/toolpose/internal/irtrack"
)

// FrameSink receives frames reassembled from a capture.
type FrameSink interface {
	Deliver(frame *irtrack.SensorFrame)
}

// ReplayPCAPFile reads chunked sensor frames from a PCAP capture and feeds
// them to the sink. When realtime is true, frames are paced by the capture
// timestamps; otherwise they are delivered as fast as they decode.
// Only available when building with the 'pcap' build tag.
func ReplayPCAPFile(ctx context.Context, pcapFile string, udpPort int, sink FrameSink, realtime bool) error {
	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", pcapFile, err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return fmt.Errorf("failed to set BPF filter '%s': %w", filterStr, err)
	}
	log.Printf("[pcap] BPF filter set: %s", filterStr)

	assembler := NewFrameAssembler()
	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())

	packetCount := 0
	frameCount := 0
	startTime := time.Now()
	var firstCapture time.Time

	for {
		select {
		case <-ctx.Done():
			log.Printf("[pcap] replay stopping (processed %d packets)", packetCount)
			return ctx.Err()
		case packet := <-packetSource.Packets():
			if packet == nil {
				elapsed := time.Since(startTime)
				log.Printf("[pcap] replay complete: %d packets, %d frames, %d dropped in %v",
					packetCount, frameCount, assembler.DroppedFrames(), elapsed)
				return nil
			}
			packetCount++

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok || len(udp.Payload) == 0 {
				continue
			}

			frame, err := assembler.AddPacket(udp.Payload)
			if err != nil {
				log.Printf("[pcap] bad packet %d: %v", packetCount, err)
				continue
			}
			if frame == nil {
				continue
			}
			frameCount++

			captureTime := packet.Metadata().Timestamp
			if realtime {
				if firstCapture.IsZero() {
					firstCapture = captureTime
				}
				due := startTime.Add(captureTime.Sub(firstCapture))
				if wait := time.Until(due); wait > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(wait):
					}
				}
			}
			// Replayed frames carry the capture clock, not the current one.
			frame.Timestamp = captureTime
			sink.Deliver(frame)
		}
	}
}
