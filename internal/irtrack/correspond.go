package irtrack

import "math"

// correspond implements the unlabeled point-matching search: given a tool's
// ordered geometry and the unordered pool of observed world points, it finds
// index assignments whose consecutive pairwise distances match the geometry's
// consecutive pairwise distances.
//
// The search grows candidate index sequences one reference point at a time
// and prunes any candidate whose newest pair distance disagrees with the
// reference pair distance by more than distanceTolerance. This keeps the
// candidate set small in practice, but the worst case is factorial in the
// marker count, which is why MaxGeometryMarkers bounds tool geometry at
// configuration load.

const (
	// distanceTolerance is the allowed absolute difference, in metres,
	// between an observed pair distance and the reference pair distance.
	distanceTolerance = 0.0025
	// duplicateTolerance collapses points closer than this, in metres,
	// before matching; near-duplicates make the search degenerate.
	duplicateTolerance = 0.001
	// MaxGeometryMarkers caps the per-tool marker count so the search stays
	// bounded. Tool entries exceeding it are rejected at configuration load.
	MaxGeometryMarkers = 10
)

// dedupePoints removes points that lie within duplicateTolerance of an
// earlier point, preserving first occurrences and their order.
func dedupePoints(points []Vec3) []Vec3 {
	out := make([]Vec3, 0, len(points))
	for _, p := range points {
		dup := false
		for _, q := range out {
			if p.Distance(q) < duplicateTolerance {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// expandCandidates appends one more collected-point index to every candidate
// sequence, producing permutations without repetition. Candidates are
// enumerated in ascending index order so downstream tie-breaking is
// deterministic. An empty input seeds the singleton sequences.
func expandCandidates(candidates [][]int, collectedCount int) [][]int {
	if len(candidates) == 0 {
		seeded := make([][]int, 0, collectedCount)
		for i := 0; i < collectedCount; i++ {
			seeded = append(seeded, []int{i})
		}
		return seeded
	}

	var expanded [][]int
	for _, cand := range candidates {
		for i := 0; i < collectedCount; i++ {
			used := false
			for _, idx := range cand {
				if idx == i {
					used = true
					break
				}
			}
			if used {
				continue
			}
			next := make([]int, len(cand), len(cand)+1)
			copy(next, cand)
			expanded = append(expanded, append(next, i))
		}
	}
	return expanded
}

// pruneByDistance keeps only the candidates whose two most recently appended
// points are refDistance apart, within distanceTolerance.
func pruneByDistance(candidates [][]int, collected []Vec3, refDistance float64) [][]int {
	kept := candidates[:0]
	for _, cand := range candidates {
		n := len(cand)
		d := collected[cand[n-1]].Distance(collected[cand[n-2]])
		if math.Abs(d-refDistance) <= distanceTolerance {
			kept = append(kept, cand)
		}
	}
	return kept
}

// FindCorrespondence resolves the tool geometry against the collected world
// points. It returns every surviving index assignment (one collected index
// per reference point, in reference order); callers take the first as a
// deterministic tie-break. ok is false when no assignment survives.
//
// Duplicate points closer than duplicateTolerance are collapsed in both
// inputs first, and both inputs need at least three points after that.
//
// A geometry with a distance-preserving symmetry yields several equally valid
// assignments; the first-in-enumeration-order choice is arbitrary in that
// case and may pick a rotated labelling. This matches the original system's
// behaviour and is a known limitation, not corrected here.
func FindCorrespondence(reference, collected []Vec3) ([][]int, bool) {
	reference = dedupePoints(reference)
	collected = dedupePoints(collected)

	if len(reference) < 3 || len(collected) < 3 {
		return nil, false
	}

	candidates := expandCandidates(nil, len(collected))
	for i := 1; i < len(reference); i++ {
		candidates = expandCandidates(candidates, len(collected))
		if len(candidates) == 0 {
			return nil, false
		}
		refDistance := reference[i].Distance(reference[i-1])
		candidates = pruneByDistance(candidates, collected, refDistance)
		if len(candidates) == 0 {
			return nil, false
		}
	}

	return candidates, true
}
