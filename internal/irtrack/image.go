package irtrack

import (
	"fmt"

	"gocv.io/x/gocv"
)

// MaxValidRawDepth is the largest raw depth sample the sensor reports for a
// real surface. Larger values (and zero) are the sensor's invalid/out-of-range
// sentinel.
const MaxValidRawDepth = 4090

// Image16 is a single-channel 16-bit image in row-major order.
type Image16 struct {
	Width  int
	Height int
	Pix    []uint16
}

// NewImage16 allocates a zeroed 16-bit image.
func NewImage16(width, height int) *Image16 {
	return &Image16{Width: width, Height: height, Pix: make([]uint16, width*height)}
}

// At returns the sample at integer coordinates without bounds checking.
func (im *Image16) At(x, y int) uint16 { return im.Pix[y*im.Width+x] }

// SetAt assigns the sample at integer coordinates without bounds checking.
func (im *Image16) SetAt(x, y int, v uint16) { im.Pix[y*im.Width+x] = v }

// BilinearAt samples the image at a sub-pixel coordinate by weighting the
// four neighbouring samples with the fractional offsets. It returns ok=false
// for coordinates outside the image.
func (im *Image16) BilinearAt(p PixelPoint) (float64, bool) {
	x0 := int(p.X)
	y0 := int(p.Y)
	if p.X < 0 || p.Y < 0 || p.X >= float64(im.Width) || p.Y >= float64(im.Height) {
		return 0, false
	}
	x1 := x0 + 1
	if x1 > im.Width-1 {
		x1 = im.Width - 1
	}
	y1 := y0 + 1
	if y1 > im.Height-1 {
		y1 = im.Height - 1
	}

	dx := p.X - float64(x0)
	dy := p.Y - float64(y0)

	q00 := float64(im.At(x0, y0))
	q01 := float64(im.At(x1, y0))
	q10 := float64(im.At(x0, y1))
	q11 := float64(im.At(x1, y1))

	v := q00*(1-dx)*(1-dy) +
		q01*dx*(1-dy) +
		q10*(1-dx)*dy +
		q11*dx*dy
	return v, true
}

// Image8 is a single-channel 8-bit image in row-major order.
type Image8 struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewImage8 allocates a zeroed 8-bit image.
func NewImage8(width, height int) *Image8 {
	return &Image8{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// Clone returns a deep copy of the image.
func (im *Image8) Clone() *Image8 {
	out := NewImage8(im.Width, im.Height)
	copy(out.Pix, im.Pix)
	return out
}

// Mat wraps the pixel buffer in a gocv Mat. The Mat copies the data; the
// caller owns the returned Mat and must Close it.
func (im *Image8) Mat() (gocv.Mat, error) {
	m, err := gocv.NewMatFromBytes(im.Height, im.Width, gocv.MatTypeCV8U, im.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("wrap 8-bit image: %w", err)
	}
	return m, nil
}

// Image8FromMat copies a single-channel 8-bit Mat back into an Image8.
func Image8FromMat(m gocv.Mat) (*Image8, error) {
	if m.Type() != gocv.MatTypeCV8U {
		return nil, fmt.Errorf("expected CV8U mat, got type %d", m.Type())
	}
	data, err := m.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("read mat data: %w", err)
	}
	out := NewImage8(m.Cols(), m.Rows())
	copy(out.Pix, data)
	return out, nil
}

// RebalanceABImage brightens a raw 16-bit active-brightness image and maps it
// to 8 bits: each raw sample is right-shifted by 2 and then saturated into
// the 8-bit range. The shift keeps marker returns inside the 8-bit range
// instead of blowing out the whole image.
func RebalanceABImage(raw *Image16, out *Image8) {
	for i, v := range raw.Pix {
		v >>= 2
		if v > 255 {
			v = 255
		}
		out.Pix[i] = uint8(v)
	}
}

// DepthDisplayImage renders a raw 16-bit depth image into an 8-bit display
// image. Out-of-range samples (> MaxValidRawDepth) are floored to zero and
// everything else is mapped linearly so a depth of one metre (raw 1000) hits
// full brightness.
func DepthDisplayImage(raw *Image16, out *Image8) {
	const scale = 255.0 / 1000.0
	for i, v := range raw.Pix {
		if v > MaxValidRawDepth {
			out.Pix[i] = 0
			continue
		}
		d := float64(v) * scale
		if d > 255 {
			d = 255
		}
		out.Pix[i] = uint8(d)
	}
}
