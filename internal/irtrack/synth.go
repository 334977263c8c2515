package irtrack

import (
	"math"
	"time"
)

// SyntheticScene renders sensor frames of a marker set seen through a
// pinhole camera. It exists for the frame generator tool and for end-to-end
// tests: the rendered frames go through the same detection and validation
// path as live sensor data.
type SyntheticScene struct {
	Width, Height int
	Fx, Fy        float64
	Cx, Cy        float64

	// Geometry holds marker positions in the tool frame, metres.
	Geometry []Vec3

	// MarkerRadius is the rendered blob radius in pixels.
	MarkerRadius int

	// DepthToWorld is stamped on every rendered frame. Markers are placed
	// directly in the depth camera frame, so identity keeps world and
	// camera coordinates equal.
	DepthToWorld Mat4
}

// NewSyntheticScene returns a scene with a centred pinhole camera and
// identity depth-to-world transform.
func NewSyntheticScene(width, height int, geometry []Vec3) *SyntheticScene {
	return &SyntheticScene{
		Width:        width,
		Height:       height,
		Fx:           float64(width),
		Fy:           float64(width),
		Cx:           float64(width) / 2,
		Cy:           float64(height) / 2,
		Geometry:     geometry,
		MarkerRadius: 4,
		DepthToWorld: Identity4(),
	}
}

// UnprojectFunc returns the unprojection matching the scene's camera.
func (s *SyntheticScene) UnprojectFunc() UnprojectFunc {
	fx, fy, cx, cy := s.Fx, s.Fy, s.Cx, s.Cy
	return func(u, v float64) (float64, float64, bool) {
		if fx <= 0 || fy <= 0 {
			return 0, 0, false
		}
		return (u - cx) / fx, (v - cy) / fy, true
	}
}

// RenderFrame renders the geometry under the given camera-frame pose. Each
// marker becomes a bright disc in the AB image with matching depth samples.
// Markers behind the camera or outside the image are simply not drawn.
func (s *SyntheticScene) RenderFrame(pose Mat4, ts time.Time) *SensorFrame {
	ab := NewImage16(s.Width, s.Height)
	depth := NewImage16(s.Width, s.Height)

	for _, marker := range s.Geometry {
		p := pose.Apply(marker)
		if p.Z <= 0 {
			continue
		}
		u := s.Fx*p.X/p.Z + s.Cx
		v := s.Fy*p.Y/p.Z + s.Cy
		s.drawMarker(ab, depth, u, v, p.Z)
	}

	return &SensorFrame{
		AB:           ab,
		Depth:        depth,
		DepthToWorld: s.DepthToWorld,
		Unproject:    s.UnprojectFunc(),
		Timestamp:    ts,
	}
}

// markerBrightnessRaw saturates to 255 after the AB rebalance shift.
const markerBrightnessRaw = 4000

func (s *SyntheticScene) drawMarker(ab, depth *Image16, u, v, z float64) {
	rawDepth := uint16(math.Round(z * 1000))
	if rawDepth == 0 || rawDepth > MaxValidRawDepth {
		return
	}

	r := s.MarkerRadius
	cu, cv := int(math.Round(u)), int(math.Round(v))
	// Depth is filled over a wider disc so bilinear sampling at the blob
	// centroid never straddles a zero sample.
	for dy := -r - 1; dy <= r+1; dy++ {
		for dx := -r - 1; dx <= r+1; dx++ {
			x, y := cu+dx, cv+dy
			if x < 0 || x >= s.Width || y < 0 || y >= s.Height {
				continue
			}
			d2 := float64(dx*dx + dy*dy)
			if d2 <= float64(r*r) {
				ab.SetAt(x, y, markerBrightnessRaw)
			}
			if d2 <= float64((r+1)*(r+1)) {
				depth.SetAt(x, y, rawDepth)
			}
		}
	}
}

// TranslationPose returns a pose that moves the tool frame to t with no
// rotation. Handy for scripted marker paths.
func TranslationPose(t Vec3) Mat4 {
	m := Identity4()
	m.Set(0, 3, t.X)
	m.Set(1, 3, t.Y)
	m.Set(2, 3, t.Z)
	return m
}

// RotationZPose returns a pose rotating about the camera Z axis by angle
// radians and translating to t.
func RotationZPose(angle float64, t Vec3) Mat4 {
	m := Identity4()
	c, sn := math.Cos(angle), math.Sin(angle)
	m.Set(0, 0, c)
	m.Set(0, 1, -sn)
	m.Set(1, 0, sn)
	m.Set(1, 1, c)
	m.Set(0, 3, t.X)
	m.Set(1, 3, t.Y)
	m.Set(2, 3, t.Z)
	return m
}
