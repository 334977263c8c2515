package irtrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blobsFromWorld(points []Vec3) []InfraBlob {
	blobs := make([]InfraBlob, len(points))
	for i, p := range points {
		blobs[i] = InfraBlob{World: p, Depth: p, Pixel: PixelPoint{X: float64(i), Y: float64(i)}}
	}
	return blobs
}

func TestUpdateToolsSingleTool(t *testing.T) {
	tool := &TrackedTool{ID: 1, Geometry: testGeometry}
	set := NewToolSet([]*TrackedTool{tool})

	pose := RotationZPose(0.4, Vec3{X: 0.05, Y: -0.02, Z: 0.7})
	pool := blobsFromWorld(applyAll(pose, testGeometry))

	visible := UpdateTools(set, pool)
	require.Equal(t, 1, visible)
	require.True(t, tool.Visible)

	matNear(t, tool.PoseWorld, pose, 1e-9)
	matNear(t, tool.PoseDepth, pose, 1e-9)
	assert.Len(t, tool.ObservedWorld, len(testGeometry))
	assert.Len(t, tool.ObservedPixels, len(testGeometry))
}

func TestUpdateToolsMissingTool(t *testing.T) {
	tool := &TrackedTool{ID: 1, Geometry: testGeometry}
	set := NewToolSet([]*TrackedTool{tool})

	// pool holds unrelated points
	pool := blobsFromWorld([]Vec3{
		{X: 1, Y: 1, Z: 1},
		{X: 2, Y: 1, Z: 1},
		{X: 1, Y: 2, Z: 1},
	})

	visible := UpdateTools(set, pool)
	assert.Equal(t, 0, visible)
	assert.False(t, tool.Visible)
	assert.True(t, tool.PoseWorld.IsIdentity(), "missing tool keeps the identity sentinel")
	assert.Empty(t, tool.ObservedWorld)
}

func TestUpdateToolsVisibilityClearsBetweenFrames(t *testing.T) {
	tool := &TrackedTool{ID: 1, Geometry: testGeometry}
	set := NewToolSet([]*TrackedTool{tool})

	pose := TranslationPose(Vec3{Z: 0.5})
	require.Equal(t, 1, UpdateTools(set, blobsFromWorld(applyAll(pose, testGeometry))))
	require.True(t, tool.Visible)

	// next frame: tool gone
	require.Equal(t, 0, UpdateTools(set, nil))
	assert.False(t, tool.Visible)
	assert.True(t, tool.PoseWorld.IsIdentity())
	assert.Empty(t, tool.ObservedWorld)
}

func TestUpdateToolsFirstClaimConsumesBlobs(t *testing.T) {
	// two tools with identical geometry competing for one marker set:
	// the lower id gets the blobs, the higher id stays invisible
	toolA := &TrackedTool{ID: 2, Geometry: testGeometry}
	toolB := &TrackedTool{ID: 7, Geometry: testGeometry}
	set := NewToolSet([]*TrackedTool{toolB, toolA})

	pose := TranslationPose(Vec3{Z: 0.6})
	pool := blobsFromWorld(applyAll(pose, testGeometry))

	visible := UpdateTools(set, pool)
	assert.Equal(t, 1, visible)
	assert.True(t, toolA.Visible, "lower id should claim the blobs")
	assert.False(t, toolB.Visible, "pool should be consumed before the higher id runs")
}

func TestUpdateToolsTwoToolsTwoMarkerSets(t *testing.T) {
	geomB := []Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0.040, Y: 0, Z: 0},
		{X: 0, Y: 0.065, Z: 0},
	}
	toolA := &TrackedTool{ID: 1, Geometry: testGeometry}
	toolB := &TrackedTool{ID: 2, Geometry: geomB}
	set := NewToolSet([]*TrackedTool{toolA, toolB})

	poseA := TranslationPose(Vec3{X: -0.2, Z: 0.5})
	poseB := TranslationPose(Vec3{X: 0.2, Z: 0.8})

	pool := append(
		blobsFromWorld(applyAll(poseA, testGeometry)),
		blobsFromWorld(applyAll(poseB, geomB))...,
	)

	visible := UpdateTools(set, pool)
	require.Equal(t, 2, visible)
	matNear(t, toolA.PoseWorld, poseA, 1e-9)
	matNear(t, toolB.PoseWorld, poseB, 1e-9)
}

func TestUpdateToolsDeduplicatesPool(t *testing.T) {
	tool := &TrackedTool{ID: 1, Geometry: testGeometry}
	set := NewToolSet([]*TrackedTool{tool})

	pose := TranslationPose(Vec3{Z: 0.5})
	world := applyAll(pose, testGeometry)
	// duplicate every marker within the collapse tolerance
	doubled := make([]Vec3, 0, 2*len(world))
	for _, p := range world {
		doubled = append(doubled, p, p.Add(Vec3{X: 0.0004}))
	}

	visible := UpdateTools(set, blobsFromWorld(doubled))
	require.Equal(t, 1, visible)
	matNear(t, tool.PoseWorld, pose, 1e-3)
}
