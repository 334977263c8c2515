// Command tracker runs the infrared tool tracking service: it receives
// sensor frames over UDP (or replays them from a PCAP capture), tracks the
// configured tools and serves poses over HTTP. Recorded sessions go into
// SQLite for offline analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/argus-surgical/toolpose/internal/irtrack"
	"github.com/argus-surgical/toolpose/internal/irtrack/monitor"
	"github.com/argus-surgical/toolpose/internal/irtrack/network"
	"github.com/argus-surgical/toolpose/internal/irtrack/store"
	"github.com/argus-surgical/toolpose/internal/version"
)

var (
	listen       = flag.String("listen", ":8081", "HTTP listen address")
	udpPort      = flag.Int("udp-port", 9801, "UDP port to listen for sensor frames")
	udpAddress   = flag.String("udp-addr", "", "UDP bind address (default: listen on all interfaces)")
	rcvBuf       = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes (default 4MB)")
	toolConfig   = flag.String("tools", "", "Path to the tool geometry config file (JSON or delimited)")
	blobMethod   = flag.String("blob-method", "basic", "Blob detection method: basic or refine-by-scaling")
	display      = flag.Bool("display", false, "Regenerate annotated display images each frame")
	dbFile       = flag.String("db", "toolpose.db", "Path to the SQLite database file (empty disables persistence)")
	record       = flag.Bool("record", false, "Record per-frame tool poses into a new session")
	sessionDesc  = flag.String("session-desc", "", "Description for the recorded session")
	pcapFile     = flag.String("pcap-file", "", "Replay frames from a PCAP capture instead of live UDP")
	pcapRealtime = flag.Bool("pcap-realtime", true, "Pace PCAP replay by capture timestamps")
	statsSecs    = flag.Int("log-interval", 5, "Statistics logging interval in seconds")
	showVersion  = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("toolpose tracker %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		os.Exit(0)
	}

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}
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
	log.Printf("Loaded %d tools from %s", tools.Len(), *toolConfig)

	method, err := irtrack.ParseBlobDetectionMethod(*blobMethod)
	if err != nil {
		log.Fatalf("Invalid blob detection method: %v", err)
	}

	// Persistence is optional; without it the tracker is stream-only.
	var db *store.DB
	var poses *store.PoseStore
	if *dbFile != "" {
		db, err = store.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open tracking database: %v", err)
		}
		defer db.Close()
		poses = store.NewPoseStore(db)
	}

	cfg := irtrack.DefaultPipelineConfig(tools)
	cfg.Method = method
	cfg.DisplayImages = *display
	cfg.StatsInterval = time.Duration(*statsSecs) * time.Second
	if *record {
		if poses == nil {
			log.Fatal("recording requires a database (set -db)")
		}
		sessionID, err := poses.BeginSession(*sessionDesc)
		if err != nil {
			log.Fatalf("Failed to begin recording session: %v", err)
		}
		log.Printf("Recording session %s", sessionID)
		cfg.Recorder = poses
	}

	pipeline, err := irtrack.NewFramePipeline(cfg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	var udpListenAddr string
	if *udpAddress == "" {
		udpListenAddr = fmt.Sprintf(":%d", *udpPort)
	} else {
		udpListenAddr = fmt.Sprintf("%s:%d", *udpAddress, *udpPort)
	}

	source := network.NewUDPFrameSource(network.UDPListenerConfig{
		Address: udpListenAddr,
		RcvBuf:  *rcvBuf,
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Frame input: live UDP listener, or PCAP replay feeding the same
	// source slot.
	wg.Add(1)
	if *pcapFile != "" {
		go func() {
			defer wg.Done()
			if err := network.ReplayPCAPFile(ctx, *pcapFile, *udpPort, source, *pcapRealtime); err != nil && err != context.Canceled {
				log.Printf("PCAP replay error: %v", err)
			}
			// Replay finished; let the pipeline drain and shut down.
			stop()
		}()
	} else {
		go func() {
			defer wg.Done()
			if err := source.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("UDP listener error: %v", err)
			}
			log.Print("UDP listener routine terminated")
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pipeline.Run(ctx, source); err != nil {
			log.Printf("Pipeline error: %v", err)
			stop()
		}
		log.Print("Pipeline routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ws := monitor.NewWebServer(monitor.WebServerConfig{
			Address:  *listen,
			Pipeline: pipeline,
			Poses:    poses,
			DB:       db,
			UDPPort:  *udpPort,
		})
		if err := ws.Start(ctx); err != nil {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	wg.Wait()
	log.Print("Tracker stopped")
}
