package irtrack

import "sort"

// SnapshotValuesPerTool is the width of one tool's record in a serialized
// snapshot: id, visible flag, then the 16 column-major pose entries.
const SnapshotValuesPerTool = 18

// TrackedTool is the persistent tracking state for one configured tool. The
// geometry is fixed at configuration; every other field is rewritten each
// frame by the tracker. Whenever Visible is true, ObservedWorld,
// ObservedDepth and ObservedPixels are co-indexed with Geometry: index i in
// all of them refers to the same physical marker.
type TrackedTool struct {
	ID   uint8
	Name string

	// Geometry holds the marker positions in the tool's own frame, metres,
	// in the order correspondence is solved against. Immutable after load.
	Geometry []Vec3

	Visible        bool
	ObservedWorld  []Vec3
	ObservedDepth  []Vec3
	ObservedPixels []PixelPoint
	PoseWorld      Mat4
	PoseDepth      Mat4
}

// resetFrame clears the per-frame fields ahead of a new update.
func (t *TrackedTool) resetFrame() {
	t.Visible = false
	t.PoseWorld = Identity4()
	t.PoseDepth = Identity4()
	t.ObservedWorld = t.ObservedWorld[:0]
	t.ObservedDepth = t.ObservedDepth[:0]
	t.ObservedPixels = t.ObservedPixels[:0]
}

// ToolSet is the tool dictionary: every configured tool, keyed by id,
// iterated in ascending id order. That order is load-bearing — during a
// frame update, earlier tools get first claim on blobs that could belong to
// more than one tool — so it is fixed once at configuration time.
type ToolSet struct {
	order []uint8
	tools map[uint8]*TrackedTool
}

// NewToolSet builds a ToolSet from loaded tools. Later duplicates of an id
// are ignored, matching the original loader's keep-first behaviour. The
// iteration order is ascending id, independent of input order.
func NewToolSet(tools []*TrackedTool) *ToolSet {
	ts := &ToolSet{tools: make(map[uint8]*TrackedTool, len(tools))}
	for _, tool := range tools {
		if _, exists := ts.tools[tool.ID]; exists {
			continue
		}
		ts.tools[tool.ID] = tool
		ts.order = append(ts.order, tool.ID)
	}
	sort.Slice(ts.order, func(i, j int) bool { return ts.order[i] < ts.order[j] })
	return ts
}

// Len returns the number of configured tools.
func (ts *ToolSet) Len() int { return len(ts.order) }

// Get returns the tool with the given id, or nil.
func (ts *ToolSet) Get(id uint8) *TrackedTool { return ts.tools[id] }

// Each calls fn for every tool in dictionary order.
func (ts *ToolSet) Each(fn func(*TrackedTool)) {
	for _, id := range ts.order {
		fn(ts.tools[id])
	}
}

// Serialize flattens the set into SnapshotValuesPerTool values per tool in
// dictionary order: [id, visible(0/1), pose column-major x16]. Consumers on
// the far side of the mailbox decode it positionally.
func (ts *ToolSet) Serialize() []float64 {
	out := make([]float64, 0, len(ts.order)*SnapshotValuesPerTool)
	for _, id := range ts.order {
		tool := ts.tools[id]
		out = append(out, float64(tool.ID))
		if tool.Visible {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
		out = append(out, tool.PoseWorld[:]...)
	}
	return out
}
