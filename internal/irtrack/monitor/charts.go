package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleTrajectoryChart renders an XY scatter of one tool's recorded
// positions in a session using go-echarts. Debugging-only endpoint for a
// quick look at a recording without exporting it.
// Query params:
//   - session_id (required)
//   - tool_id (required)
//   - limit (optional; default 5000)
func (ws *WebServer) handleTrajectoryChart(w http.ResponseWriter, r *http.Request) {
	if ws.poses == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no pose store configured")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'session_id' parameter")
		return
	}
	toolID, err := strconv.Atoi(r.URL.Query().Get("tool_id"))
	if err != nil || toolID < 0 || toolID > 255 {
		ws.writeJSONError(w, http.StatusBadRequest, "missing or invalid 'tool_id' parameter")
		return
	}

	limit := 5000
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 50000 {
			limit = v
		}
	}

	obs, err := ws.poses.Trajectory(sessionID, uint8(toolID), limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("load trajectory: %v", err))
		return
	}

	data := make([]opts.ScatterData, 0, len(obs))
	maxAbs := 0.0
	start := 0.0
	for _, o := range obs {
		if !o.Visible {
			continue
		}
		if start == 0 {
			start = float64(o.Timestamp.UnixNano()) / 1e9
		}
		t := float64(o.Timestamp.UnixNano())/1e9 - start
		if math.Abs(o.Position.X) > maxAbs {
			maxAbs = math.Abs(o.Position.X)
		}
		if math.Abs(o.Position.Y) > maxAbs {
			maxAbs = math.Abs(o.Position.Y)
		}
		data = append(data, opts.ScatterData{Value: []interface{}{o.Position.X, o.Position.Y, t}})
	}
	if len(data) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no visible observations for tool in session")
		return
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 0.5
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tool Trajectory", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tool Trajectory (world XY)", Subtitle: fmt.Sprintf("session=%s tool=%d points=%d", sessionID, toolID, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(len(data)),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("trajectory", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleVisibilityChart renders a bar chart of per-tool visibility rates in
// a session.
// Query params:
//   - session_id (required)
func (ws *WebServer) handleVisibilityChart(w http.ResponseWriter, r *http.Request) {
	if ws.poses == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no pose store configured")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'session_id' parameter")
		return
	}

	counts, err := ws.poses.VisibilityCounts(sessionID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("load visibility counts: %v", err))
		return
	}
	if len(counts) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no observations for session")
		return
	}

	ids := make([]uint8, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	// small slice, insertion sort keeps the axis in tool id order
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}

	labels := make([]string, 0, len(ids))
	rates := make([]opts.BarData, 0, len(ids))
	for _, id := range ids {
		c := counts[id]
		rate := 0.0
		if c[1] > 0 {
			rate = 100 * float64(c[0]) / float64(c[1])
		}
		labels = append(labels, fmt.Sprintf("tool %d", id))
		rates = append(rates, opts.BarData{Value: rate})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tool Visibility", Theme: "dark", Width: "700px", Height: "450px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tool Visibility (%)", Subtitle: fmt.Sprintf("session=%s", sessionID)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100, Name: "visible frames (%)"}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("visibility", rates)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
