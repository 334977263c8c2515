package irtrack

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Marker annotation parameters for the AB display image.
const (
	markerCrossSize  = 25
	markerThickness  = 5
	markerBrightness = 100
)

// AnnotateToolMarkers draws a cross at every observed marker centre on the
// AB display image, so an operator can see which blobs were claimed by
// tools. Tools that were not resolved this frame have no observed pixels and
// contribute nothing.
func AnnotateToolMarkers(img *Image8, tools *ToolSet) (*Image8, error) {
	mat, err := img.Mat()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	grey := color.RGBA{R: markerBrightness, G: markerBrightness, B: markerBrightness, A: 255}
	half := markerCrossSize / 2

	tools.Each(func(tool *TrackedTool) {
		for _, px := range tool.ObservedPixels {
			cx := int(px.X + 0.5)
			cy := int(px.Y + 0.5)
			gocv.Line(&mat, image.Pt(cx-half, cy), image.Pt(cx+half, cy), grey, markerThickness)
			gocv.Line(&mat, image.Pt(cx, cy-half), image.Pt(cx, cy+half), grey, markerThickness)
		}
	})

	return Image8FromMat(mat)
}
