package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-surgical/toolpose/internal/irtrack"
)

func testServer(t *testing.T) (*WebServer, *irtrack.FramePipeline) {
	t.Helper()

	tools := irtrack.NewToolSet([]*irtrack.TrackedTool{{
		ID:   3,
		Name: "pointer",
		Geometry: []irtrack.Vec3{
			{X: 0, Y: 0, Z: 0},
			{X: 0.05, Y: 0, Z: 0},
			{X: 0, Y: 0.08, Z: 0},
		},
	}})
	pipeline, err := irtrack.NewFramePipeline(irtrack.DefaultPipelineConfig(tools))
	require.NoError(t, err)

	ws := NewWebServer(WebServerConfig{
		Address:  ":0",
		Pipeline: pipeline,
		UDPPort:  9801,
	})
	return ws, pipeline
}

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	ws, _ := testServer(t)
	rec := get(t, ws.setupRoutes(), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status": "ok"`)
}

func TestStatsEndpoint(t *testing.T) {
	ws, pipeline := testServer(t)
	pipeline.Stats().AddFrame(4, 3, 1)

	rec := get(t, ws.setupRoutes(), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap irtrack.IntervalSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.Frames)
	assert.Equal(t, int64(4), snap.Blobs)
	assert.Equal(t, int64(3), snap.ValidBlobs)
}

func TestToolsEndpoint(t *testing.T) {
	ws, pipeline := testServer(t)
	mux := ws.setupRoutes()

	rec := get(t, mux, "/api/tools")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no snapshot published yet")

	snapshot := make([]float64, irtrack.SnapshotValuesPerTool)
	snapshot[0] = 3
	snapshot[1] = 1
	pose := irtrack.TranslationPose(irtrack.Vec3{X: 0.1, Y: 0.2, Z: 0.5})
	copy(snapshot[2:], pose[:])
	pipeline.Mailbox().PublishTools(snapshot)

	rec = get(t, mux, "/api/tools")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []toolRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, uint8(3), records[0].ID)
	assert.True(t, records[0].Visible)
	assert.Equal(t, 0.1, records[0].Pose[12])
	assert.Equal(t, 0.5, records[0].Pose[14])

	// peeking does not consume the snapshot
	rec = get(t, mux, "/api/tools")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionsEndpointWithoutStore(t *testing.T) {
	ws, _ := testServer(t)
	rec := get(t, ws.setupRoutes(), "/api/sessions")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDisplayToggle(t *testing.T) {
	ws, _ := testServer(t)
	mux := ws.setupRoutes()

	rec := get(t, mux, "/api/display/toggle")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/display/toggle?enabled=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"display_images":true`)

	// display endpoints still 404 until the pipeline publishes an image
	rec = get(t, mux, "/api/display/ab.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
