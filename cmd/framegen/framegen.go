// Command framegen streams synthetic sensor frames over UDP. It renders a
// configured tool moving on a circular path and chunks each frame with the
// same wire format the tracker receives, which makes it a self-contained
// load and integration test peer for a running tracker.
package main

import (
	"flag"
	"log"
	"math"
	"net"
	"time"

	"github.com/argus-surgical/toolpose/internal/irtrack"
	"github.com/argus-surgical/toolpose/internal/irtrack/network"
)

var (
	target     = flag.String("target", "localhost:9801", "UDP address of the tracker")
	toolConfig = flag.String("tools", "", "Path to the tool geometry config file (JSON or delimited)")
	width      = flag.Int("width", 512, "Frame width in pixels")
	height     = flag.Int("height", 512, "Frame height in pixels")
	fps        = flag.Int("fps", 30, "Frames per second to send")
	radius     = flag.Float64("orbit", 0.05, "Radius of the circular tool path in metres")
	distance   = flag.Float64("distance", 0.6, "Tool distance from the camera in metres")
	frameCount = flag.Int("frames", 0, "Number of frames to send (0 = run until interrupted)")
)

func main() {
	flag.Parse()

	if *toolConfig == "" {
		log.Fatal("tool geometry config is required (use -tools)")
	}
	tools, err := irtrack.LoadToolConfigFile(*toolConfig)
	if err != nil {
		log.Fatalf("Failed to load tool config: %v", err)
	}
	if tools.Len() == 0 {
		log.Fatalf("No valid tools in config %s", *toolConfig)
	}

	// The generator animates the first tool in the dictionary.
	var geometry []irtrack.Vec3
	tools.Each(func(t *irtrack.TrackedTool) {
		if geometry == nil {
			geometry = t.Geometry
			log.Printf("Animating tool %d (%s) with %d markers", t.ID, t.Name, len(t.Geometry))
		}
	})

	scene := irtrack.NewSyntheticScene(*width, *height, geometry)
	intrinsics := network.CameraIntrinsics{Fx: scene.Fx, Fy: scene.Fy, Cx: scene.Cx, Cy: scene.Cy}

	addr, err := net.ResolveUDPAddr("udp", *target)
	if err != nil {
		log.Fatalf("Failed to resolve target address: %v", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Fatalf("Failed to dial target: %v", err)
	}
	defer conn.Close()

	log.Printf("Streaming %dx%d frames to %s at %d fps", *width, *height, *target, *fps)

	interval := time.Second / time.Duration(*fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint32
	start := time.Now()
	for range ticker.C {
		elapsed := time.Since(start).Seconds()
		angle := 2 * math.Pi * elapsed / 10 // one orbit every 10 seconds
		pose := irtrack.RotationZPose(angle, irtrack.Vec3{
			X: *radius * math.Cos(angle),
			Y: *radius * math.Sin(angle),
			Z: *distance,
		})

		frame := scene.RenderFrame(pose, time.Now())
		chunks, err := network.EncodeFrame(frame, intrinsics, seq)
		if err != nil {
			log.Fatalf("Failed to encode frame: %v", err)
		}
		for _, chunk := range chunks {
			if _, err := conn.Write(chunk); err != nil {
				log.Fatalf("Failed to send chunk: %v", err)
			}
		}
		seq++

		if *frameCount > 0 && int(seq) >= *frameCount {
			log.Printf("Sent %d frames", seq)
			return
		}
		if seq%300 == 0 {
			log.Printf("Sent %d frames (%d chunks each)", seq, len(chunks))
		}
	}
}
