package irtrack

import "sort"

// UpdateTools runs one frame of tool resolution against the validated blob
// pool and returns how many tools were found visible.
//
// Tools are visited in dictionary order, and each successful match removes
// its claimed blobs from the pool before the next tool runs — so when two
// tools could both explain a blob, the earlier id wins. That first-claim rule
// is deliberate and relied upon by users with overlapping tool geometries.
//
// The pool is deduplicated once up front (matching the solver's own
// tolerance) so that the indices the solver returns stay aligned with the
// pool's parallel pixel and depth data.
func UpdateTools(tools *ToolSet, pool []InfraBlob) int {
	pool = dedupeBlobs(pool)

	collectedWorld := make([]Vec3, len(pool))
	for i, b := range pool {
		collectedWorld[i] = b.World
	}

	visible := 0
	tools.Each(func(tool *TrackedTool) {
		tool.resetFrame()

		candidates, ok := FindCorrespondence(tool.Geometry, collectedWorld)
		if !ok {
			return
		}

		// First surviving candidate in enumeration order is the
		// deterministic tie-break.
		assignment := candidates[0]

		for _, idx := range assignment {
			if idx < 0 || idx >= len(pool) {
				return
			}
			tool.ObservedWorld = append(tool.ObservedWorld, pool[idx].World)
			tool.ObservedDepth = append(tool.ObservedDepth, pool[idx].Depth)
			tool.ObservedPixels = append(tool.ObservedPixels, pool[idx].Pixel)
		}
		if len(tool.ObservedWorld) != len(tool.Geometry) {
			tool.resetFrame()
			return
		}

		tool.PoseWorld = ComputeRigidTransform(tool.Geometry, tool.ObservedWorld)
		tool.PoseDepth = ComputeRigidTransform(tool.Geometry, tool.ObservedDepth)
		tool.Visible = true
		visible++

		// Claimed blobs leave the pool so no blob serves two tools in the
		// same frame. Deleting in descending index order keeps the
		// remaining indices valid.
		claimed := append([]int(nil), assignment...)
		sort.Sort(sort.Reverse(sort.IntSlice(claimed)))
		for _, idx := range claimed {
			pool = append(pool[:idx], pool[idx+1:]...)
			collectedWorld = append(collectedWorld[:idx], collectedWorld[idx+1:]...)
		}
	})

	return visible
}

// dedupeBlobs drops blobs whose world point lies within duplicateTolerance
// of an earlier blob, keeping first occurrences.
func dedupeBlobs(pool []InfraBlob) []InfraBlob {
	out := make([]InfraBlob, 0, len(pool))
	for _, b := range pool {
		dup := false
		for _, q := range out {
			if b.World.Distance(q.World) < duplicateTolerance {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, b)
		}
	}
	return out
}
