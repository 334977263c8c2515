package irtrack

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// Blob detection thresholds. The binary threshold assumes the AB image has
// been through RebalanceABImage; retro-reflective markers saturate well above
// 180 while skin and cloth returns stay below it.
const (
	blobBinaryThreshold = 180
	minBlobArea         = 5     // px², rejects noise speckles
	maxBlobArea         = 16384 // px², 1/16 of a 512x512 frame, rejects saturation artifacts
	minBlobCircularity  = 0.7
)

// BlobDetectionMethod selects the centroid strategy used by DetectBlobs.
type BlobDetectionMethod string

const (
	// BlobDetectBasic filters contours by area and circularity and takes the
	// first-order image-moment centroid of each accepted region.
	BlobDetectBasic BlobDetectionMethod = "basic"
	// BlobDetectRefineByScaling applies the same filters, then upscales each
	// accepted region and fits an ellipse to its re-detected boundary for a
	// sub-pixel centre estimate.
	BlobDetectRefineByScaling BlobDetectionMethod = "refine-by-scaling"
)

type blobDetectFunc func(binary gocv.Mat) []PixelPoint

// blobDetectors is the runtime strategy table. Both strategies receive the
// already-thresholded binary image.
var blobDetectors = map[BlobDetectionMethod]blobDetectFunc{
	BlobDetectBasic:           detectBlobsBasic,
	BlobDetectRefineByScaling: detectBlobsRefined,
}

// ParseBlobDetectionMethod validates a method name from configuration.
func ParseBlobDetectionMethod(s string) (BlobDetectionMethod, error) {
	m := BlobDetectionMethod(s)
	if _, ok := blobDetectors[m]; !ok {
		return "", fmt.Errorf("unknown blob detection method %q", s)
	}
	return m, nil
}

// DetectBlobs finds candidate marker centroids in a rebalanced 8-bit AB
// image. The result is unordered and recomputed from scratch on every call;
// an unknown method falls back to the basic strategy.
func DetectBlobs(img *Image8, method BlobDetectionMethod) ([]PixelPoint, error) {
	mat, err := img.Mat()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(mat, &binary, blobBinaryThreshold, 255, gocv.ThresholdBinary)

	detect, ok := blobDetectors[method]
	if !ok {
		detect = detectBlobsBasic
	}
	return detect(binary), nil
}

// acceptContour applies the shared area and circularity filters.
func acceptContour(area, perimeter float64) bool {
	if area < minBlobArea || area > maxBlobArea {
		return false
	}
	if perimeter <= 0 {
		return false
	}
	// 4πA/P² is 1.0 for a perfect disc; elongated reflections score low.
	circularity := (4 * math.Pi * area) / (perimeter * perimeter)
	return circularity >= minBlobCircularity
}

func detectBlobsBasic(binary gocv.Mat) []PixelPoint {
	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var centres []PixelPoint
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		perimeter := gocv.ArcLength(contour, true)
		if !acceptContour(area, perimeter) {
			continue
		}

		cx, cy, ok := contourCentroid(contours, i)
		if !ok {
			continue
		}
		centres = append(centres, PixelPoint{X: cx, Y: cy})
	}
	return centres
}

// contourCentroid rasterises one contour into a mask the size of its bounding
// box and takes the first-order moment centroid (m10/m00, m01/m00) in
// full-image coordinates.
func contourCentroid(contours gocv.PointsVector, idx int) (float64, float64, bool) {
	rect := gocv.BoundingRect(contours.At(idx))
	mask := gocv.NewMatWithSize(rect.Dy(), rect.Dx(), gocv.MatTypeCV8U)
	defer mask.Close()

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	offset := image.Pt(-rect.Min.X, -rect.Min.Y)
	gocv.DrawContoursWithParams(&mask, contours, idx, white, -1, gocv.Line8, hierarchy, 0, offset)

	m := gocv.Moments(mask, true)
	m00 := m["m00"]
	if m00 == 0 {
		return 0, 0, false
	}
	cx := m["m10"]/m00 + float64(rect.Min.X)
	cy := m["m01"]/m00 + float64(rect.Min.Y)
	return cx, cy, true
}

// refineTargetSize is the approximate size, in pixels, that a blob's larger
// bounding-box dimension is scaled up to before the ellipse fit.
const refineTargetSize = 200.0

func detectBlobsRefined(binary gocv.Mat) []PixelPoint {
	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	width := binary.Cols()
	height := binary.Rows()

	var centres []PixelPoint
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		perimeter := gocv.ArcLength(contour, true)
		if !acceptContour(area, perimeter) {
			continue
		}

		// Expand the bounding box by one pixel so the contour of the crop is
		// not clipped at the region edge.
		rect := gocv.BoundingRect(contour)
		xmin := rect.Min.X - 1
		if xmin < 0 {
			xmin = 0
		}
		ymin := rect.Min.Y - 1
		if ymin < 0 {
			ymin = 0
		}
		xmax := rect.Max.X + 1
		if xmax > width-1 {
			xmax = width - 1
		}
		ymax := rect.Max.Y + 1
		if ymax > height-1 {
			ymax = height - 1
		}
		if xmax <= xmin || ymax <= ymin {
			continue
		}

		crop := binary.Region(image.Rect(xmin, ymin, xmax, ymax))
		sf := math.Min(refineTargetSize/float64(xmax-xmin), refineTargetSize/float64(ymax-ymin))

		scaled := gocv.NewMat()
		gocv.Resize(crop, &scaled, image.Point{}, sf, sf, gocv.InterpolationLinear)
		crop.Close()

		// Linear interpolation smears the edge; re-threshold before tracing
		// the enlarged boundary.
		gocv.Threshold(scaled, &scaled, blobBinaryThreshold, 255, gocv.ThresholdBinary)

		sub := gocv.FindContours(scaled, gocv.RetrievalExternal, gocv.ChainApproxSimple)

		best := -1
		bestArea := 0.0
		for j := 0; j < sub.Size(); j++ {
			a := gocv.ContourArea(sub.At(j))
			if a > bestArea {
				bestArea = a
				best = j
			}
		}

		if best >= 0 {
			subContour := sub.At(best)
			subPerimeter := gocv.ArcLength(subContour, true)
			circ := 0.0
			if subPerimeter > 0 {
				circ = (4 * math.Pi * bestArea) / (subPerimeter * subPerimeter)
			}
			if circ >= minBlobCircularity && subContour.Size() >= 5 {
				ellipse := gocv.FitEllipse(subContour)
				centres = append(centres, PixelPoint{
					X: float64(ellipse.Center.X)/sf + float64(xmin),
					Y: float64(ellipse.Center.Y)/sf + float64(ymin),
				})
			}
		}

		sub.Close()
		scaled.Close()
	}
	return centres
}
