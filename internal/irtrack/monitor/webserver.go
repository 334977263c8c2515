// Package monitor serves the HTTP interface for a running tracker: a status
// page, JSON APIs for tool poses and pipeline statistics, display image
// endpoints and debug charts.
package monitor

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/argus-surgical/toolpose/internal/irtrack"
	"github.com/argus-surgical/toolpose/internal/irtrack/store"
)

//go:embed status.html
var statusHTML embed.FS

// WebServer handles the HTTP interface for monitoring the tracking pipeline.
type WebServer struct {
	address  string
	pipeline *irtrack.FramePipeline
	poses    *store.PoseStore
	db       *store.DB
	server   *http.Server
	udpPort  int
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address  string
	Pipeline *irtrack.FramePipeline
	Poses    *store.PoseStore
	DB       *store.DB
	UDPPort  int
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:  config.Address,
		pipeline: config.Pipeline,
		poses:    config.Poses,
		db:       config.DB,
		udpPort:  config.UDPPort,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// Start begins the HTTP server in a goroutine and blocks until the context
// is cancelled, then shuts the server down.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("[http] server started on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[http] shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[http] shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("[http] force close error: %v", err)
		}
	}

	return nil
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/stats", ws.handleStats)
	mux.HandleFunc("/api/tools", ws.handleTools)
	mux.HandleFunc("/api/sessions", ws.handleSessions)
	mux.HandleFunc("/api/display/ab.png", ws.handleABDisplay)
	mux.HandleFunc("/api/display/depth.png", ws.handleDepthDisplay)
	mux.HandleFunc("/api/display/toggle", ws.handleDisplayToggle)
	mux.HandleFunc("/debug/charts/trajectory", ws.handleTrajectoryChart)
	mux.HandleFunc("/debug/charts/visibility", ws.handleVisibilityChart)

	if ws.db != nil {
		ws.db.AttachAdminRoutes(mux)
	}

	return mux
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "toolpose", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	tmpl, err := template.ParseFS(statusHTML, "status.html")
	if err != nil {
		http.Error(w, "Error loading template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	snap := ws.pipeline.Stats().Snapshot()
	data := struct {
		UDPPort     int
		HTTPAddress string
		ToolCount   int
		Uptime      string
		TotalFrames int64
		Stats       irtrack.IntervalSnapshot
	}{
		UDPPort:     ws.udpPort,
		HTTPAddress: ws.address,
		ToolCount:   ws.pipeline.ToolCount(),
		Uptime:      snap.Uptime.Round(time.Second).String(),
		TotalFrames: snap.TotalFrames,
		Stats:       snap,
	}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ws.pipeline.Stats().Snapshot())
}

// toolRecord is the JSON view of one tool in the latest snapshot.
type toolRecord struct {
	ID      uint8       `json:"id"`
	Visible bool        `json:"visible"`
	Pose    [16]float64 `json:"pose_column_major"`
}

func (ws *WebServer) handleTools(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := ws.pipeline.Mailbox().PeekTools()
	if !ok {
		ws.writeJSONError(w, http.StatusNotFound, "no tool snapshot published yet")
		return
	}

	records := make([]toolRecord, 0, len(snapshot)/irtrack.SnapshotValuesPerTool)
	for off := 0; off+irtrack.SnapshotValuesPerTool <= len(snapshot); off += irtrack.SnapshotValuesPerTool {
		var rec toolRecord
		rec.ID = uint8(snapshot[off])
		rec.Visible = snapshot[off+1] != 0
		copy(rec.Pose[:], snapshot[off+2:off+18])
		records = append(records, rec)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (ws *WebServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if ws.poses == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no pose store configured")
		return
	}
	sessions, err := ws.poses.ListSessions()
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list sessions: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessions)
}

func (ws *WebServer) handleABDisplay(w http.ResponseWriter, r *http.Request) {
	img, ok := ws.pipeline.Mailbox().PeekABDisplay()
	if !ok {
		ws.writeJSONError(w, http.StatusNotFound, "no display image available; enable display images")
		return
	}
	ws.servePNG(w, img)
}

func (ws *WebServer) handleDepthDisplay(w http.ResponseWriter, r *http.Request) {
	img, ok := ws.pipeline.Mailbox().PeekDepthDisplay()
	if !ok {
		ws.writeJSONError(w, http.StatusNotFound, "no display image available; enable display images")
		return
	}
	ws.servePNG(w, img)
}

func (ws *WebServer) servePNG(w http.ResponseWriter, img *irtrack.Image8) {
	mat, err := img.Mat()
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("wrap image: %v", err))
		return
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("encode png: %v", err))
		return
	}
	defer buf.Close()

	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.GetBytes())
}

func (ws *WebServer) handleDisplayToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	enabled := r.URL.Query().Get("enabled") == "true"
	ws.pipeline.SetDisplayImages(enabled)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"display_images": enabled})
}
