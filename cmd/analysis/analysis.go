// Command analysis renders plots from recorded tracking sessions: the XY
// trajectory of each tool and its position components over time, plus a
// visibility summary on stdout.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/argus-surgical/toolpose/internal/irtrack/store"
)

var (
	dbFile    = flag.String("db", "toolpose.db", "Path to the SQLite database file")
	sessionID = flag.String("session", "", "Session to analyse (default: most recent)")
	toolID    = flag.Int("tool", -1, "Tool id to analyse (default: all tools in session)")
	outputDir = flag.String("out", "plots", "Directory for generated plot files")
)

func main() {
	flag.Parse()

	db, err := store.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open tracking database: %v", err)
	}
	defer db.Close()

	poses := store.NewPoseStore(db)

	session := *sessionID
	if session == "" {
		sessions, err := poses.ListSessions()
		if err != nil {
			log.Fatalf("Failed to list sessions: %v", err)
		}
		if len(sessions) == 0 {
			log.Fatal("No recorded sessions in database")
		}
		session = sessions[0].SessionID
		log.Printf("Using most recent session %s (%s)", session, sessions[0].StartedAt.Format("2006-01-02 15:04:05"))
	}

	counts, err := poses.VisibilityCounts(session)
	if err != nil {
		log.Fatalf("Failed to load visibility counts: %v", err)
	}
	if len(counts) == 0 {
		log.Fatalf("Session %s has no observations", session)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	for id, c := range counts {
		if *toolID >= 0 && int(id) != *toolID {
			continue
		}
		rate := 0.0
		if c[1] > 0 {
			rate = 100 * float64(c[0]) / float64(c[1])
		}
		fmt.Printf("tool %3d: %6d/%6d frames visible (%.1f%%)\n", id, c[0], c[1], rate)

		if err := plotTool(poses, session, id, *outputDir); err != nil {
			log.Printf("Failed to plot tool %d: %v", id, err)
		}
	}
}

func plotTool(poses *store.PoseStore, session string, id uint8, outDir string) error {
	obs, err := poses.Trajectory(session, id, 0)
	if err != nil {
		return err
	}

	var start float64
	xy := make(plotter.XYs, 0, len(obs))
	xt := make(plotter.XYs, 0, len(obs))
	yt := make(plotter.XYs, 0, len(obs))
	zt := make(plotter.XYs, 0, len(obs))
	for _, o := range obs {
		if !o.Visible {
			continue
		}
		if start == 0 {
			start = float64(o.Timestamp.UnixNano()) / 1e9
		}
		t := float64(o.Timestamp.UnixNano())/1e9 - start
		xy = append(xy, plotter.XY{X: o.Position.X, Y: o.Position.Y})
		xt = append(xt, plotter.XY{X: t, Y: o.Position.X})
		yt = append(yt, plotter.XY{X: t, Y: o.Position.Y})
		zt = append(zt, plotter.XY{X: t, Y: o.Position.Z})
	}
	if len(xy) == 0 {
		return fmt.Errorf("no visible observations")
	}

	pTraj := plot.New()
	pTraj.Title.Text = fmt.Sprintf("Tool %d trajectory (world XY)", id)
	pTraj.X.Label.Text = "X (m)"
	pTraj.Y.Label.Text = "Y (m)"

	trajLine, err := plotter.NewLine(xy)
	if err != nil {
		return err
	}
	trajLine.Width = vg.Points(1)
	trajLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	pTraj.Add(trajLine)

	trajFile := filepath.Join(outDir, fmt.Sprintf("tool_%03d_trajectory.png", id))
	if err := pTraj.Save(8*vg.Inch, 8*vg.Inch, trajFile); err != nil {
		return err
	}

	pPos := plot.New()
	pPos.Title.Text = fmt.Sprintf("Tool %d position over time", id)
	pPos.X.Label.Text = "time (s)"
	pPos.Y.Label.Text = "position (m)"

	series := []struct {
		pts   plotter.XYs
		label string
		col   color.RGBA
	}{
		{xt, "x", color.RGBA{R: 214, G: 39, B: 40, A: 255}},
		{yt, "y", color.RGBA{R: 44, G: 160, B: 44, A: 255}},
		{zt, "z", color.RGBA{R: 31, G: 119, B: 180, A: 255}},
	}
	for _, sr := range series {
		line, err := plotter.NewLine(sr.pts)
		if err != nil {
			return err
		}
		line.Width = vg.Points(1)
		line.Color = sr.col
		pPos.Add(line)
		pPos.Legend.Add(sr.label, line)
	}

	posFile := filepath.Join(outDir, fmt.Sprintf("tool_%03d_position.png", id))
	if err := pPos.Save(14*vg.Inch, 6*vg.Inch, posFile); err != nil {
		return err
	}

	log.Printf("Wrote %s and %s", trajFile, posFile)
	return nil
}
