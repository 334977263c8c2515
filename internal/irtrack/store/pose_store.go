package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/argus-surgical/toolpose/internal/irtrack"
)

// Session is one recorded tracking run.
type Session struct {
	SessionID   string    `json:"session_id"`
	Description string    `json:"description"`
	StartedAt   time.Time `json:"started_at"`
}

// PoseObservation is one tool's state in one frame.
type PoseObservation struct {
	ToolID    uint8         `json:"tool_id"`
	ToolName  string        `json:"tool_name"`
	Visible   bool          `json:"visible"`
	Timestamp time.Time     `json:"timestamp"`
	Position  irtrack.Vec3  `json:"position"`
	PoseWorld irtrack.Mat4  `json:"pose_world"`
	PoseDepth *irtrack.Mat4 `json:"pose_depth,omitempty"`
}

// PoseStore records per-frame tool poses under a session. It implements
// irtrack.PoseRecorder. BeginSession must be called before RecordFrame.
type PoseStore struct {
	db *DB

	mu      sync.Mutex
	session string
}

// NewPoseStore creates a PoseStore backed by the given database.
func NewPoseStore(db *DB) *PoseStore {
	return &PoseStore{db: db}
}

// BeginSession creates a new session row and makes it the active recording
// target. Returns the generated session id.
func (s *PoseStore) BeginSession(description string) (string, error) {
	id := uuid.New().String()
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(
			`INSERT INTO sessions (session_id, description, started_unix_ns) VALUES (?, ?, ?)`,
			id, description, time.Now().UnixNano(),
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	s.mu.Lock()
	s.session = id
	s.mu.Unlock()
	return id, nil
}

// RecordFrame writes one row per configured tool for the frame at ts.
// Invisible tools are recorded too so gaps in visibility show up in the data.
func (s *PoseStore) RecordFrame(ts time.Time, tools *irtrack.ToolSet) error {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == "" {
		return fmt.Errorf("no active session")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin frame transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO pose_observations (
			session_id, tool_id, tool_name, visible, ts_unix_ns,
			tx, ty, tz, pose_world_json, pose_depth_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var insertErr error
	tools.Each(func(tool *irtrack.TrackedTool) {
		if insertErr != nil {
			return
		}
		worldJSON, err := json.Marshal(tool.PoseWorld)
		if err != nil {
			insertErr = err
			return
		}
		depthJSON, err := json.Marshal(tool.PoseDepth)
		if err != nil {
			insertErr = err
			return
		}
		visible := 0
		if tool.Visible {
			visible = 1
		}
		_, insertErr = stmt.Exec(
			session, tool.ID, tool.Name, visible, ts.UnixNano(),
			tool.PoseWorld.At(0, 3), tool.PoseWorld.At(1, 3), tool.PoseWorld.At(2, 3),
			string(worldJSON), string(depthJSON),
		)
	})
	if insertErr != nil {
		return fmt.Errorf("insert pose observation: %w", insertErr)
	}

	return tx.Commit()
}

// ListSessions returns all sessions, newest first.
func (s *PoseStore) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT session_id, description, started_unix_ns FROM sessions ORDER BY started_unix_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var startedNs int64
		if err := rows.Scan(&sess.SessionID, &sess.Description, &startedNs); err != nil {
			return nil, err
		}
		sess.StartedAt = time.Unix(0, startedNs)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Trajectory returns the observations for one tool in one session in time
// order, optionally limited to the first limit rows (0 means all).
func (s *PoseStore) Trajectory(sessionID string, toolID uint8, limit int) ([]PoseObservation, error) {
	query := `
		SELECT tool_id, tool_name, visible, ts_unix_ns, tx, ty, tz, pose_world_json, pose_depth_json
		FROM pose_observations
		WHERE session_id = ? AND tool_id = ?
		ORDER BY ts_unix_ns ASC`
	args := []interface{}{sessionID, toolID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trajectory: %w", err)
	}
	defer rows.Close()

	var obs []PoseObservation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// VisibilityCounts returns per-tool visible and total observation counts for
// a session.
func (s *PoseStore) VisibilityCounts(sessionID string) (map[uint8][2]int64, error) {
	rows, err := s.db.Query(`
		SELECT tool_id, SUM(visible), COUNT(*)
		FROM pose_observations
		WHERE session_id = ?
		GROUP BY tool_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query visibility counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[uint8][2]int64)
	for rows.Next() {
		var toolID int
		var visible, total int64
		if err := rows.Scan(&toolID, &visible, &total); err != nil {
			return nil, err
		}
		counts[uint8(toolID)] = [2]int64{visible, total}
	}
	return counts, rows.Err()
}

func scanObservation(rows *sql.Rows) (PoseObservation, error) {
	var o PoseObservation
	var toolID, visible int
	var tsNs int64
	var tx, ty, tz sql.NullFloat64
	var worldJSON, depthJSON sql.NullString

	if err := rows.Scan(&toolID, &o.ToolName, &visible, &tsNs, &tx, &ty, &tz, &worldJSON, &depthJSON); err != nil {
		return o, err
	}
	o.ToolID = uint8(toolID)
	o.Visible = visible != 0
	o.Timestamp = time.Unix(0, tsNs)
	o.Position = irtrack.Vec3{X: tx.Float64, Y: ty.Float64, Z: tz.Float64}

	if worldJSON.Valid {
		if err := json.Unmarshal([]byte(worldJSON.String), &o.PoseWorld); err != nil {
			return o, fmt.Errorf("decode pose_world_json: %w", err)
		}
	}
	if depthJSON.Valid {
		var depth irtrack.Mat4
		if err := json.Unmarshal([]byte(depthJSON.String), &depth); err != nil {
			return o, fmt.Errorf("decode pose_depth_json: %w", err)
		}
		o.PoseDepth = &depth
	}
	return o, nil
}
