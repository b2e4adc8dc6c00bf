// Package frame provides the detector frame data type shared by the
// calibration and extraction packages: a dense 2-D float64 image with an
// optional same-shape variance plane, plus bad-pixel masking utilities.
//
// Frames handed to the extraction pipeline are treated as read-only; no
// function in this module mutates a frame it did not allocate itself.
package frame

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Errors returned by frame functions.
var (
	ErrBadShape   = errors.New("frame: dimensions must be positive")
	ErrShapeMatch = errors.New("frame: variance plane shape does not match data")
	ErrMaskShape  = errors.New("frame: mask length does not match frame")
)

// Frame is a dense row-major detector image. X indexes columns (fast axis),
// Y indexes rows.
type Frame struct {
	Nx, Ny int
	Data   []float64
}

// New allocates a zero-filled frame of nx columns by ny rows.
func New(nx, ny int) (*Frame, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadShape, nx, ny)
	}

	return &Frame{
		Nx:   nx,
		Ny:   ny,
		Data: make([]float64, nx*ny),
	}, nil
}

// FromData wraps an existing row-major buffer. The buffer is not copied.
func FromData(nx, ny int, data []float64) (*Frame, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadShape, nx, ny)
	}

	if len(data) != nx*ny {
		return nil, fmt.Errorf("%w: have %d values, want %d", ErrShapeMatch, len(data), nx*ny)
	}

	return &Frame{Nx: nx, Ny: ny, Data: data}, nil
}

// Index returns the flat offset of pixel (x, y). No bounds check.
func (f *Frame) Index(x, y int) int {
	return y*f.Nx + x
}

// At returns the value of pixel (x, y). No bounds check.
func (f *Frame) At(x, y int) float64 {
	return f.Data[y*f.Nx+x]
}

// Set stores v at pixel (x, y). No bounds check.
func (f *Frame) Set(x, y int, v float64) {
	f.Data[y*f.Nx+x] = v
}

// Contains reports whether pixel (x, y) lies on the detector.
func (f *Frame) Contains(x, y int) bool {
	return x >= 0 && x < f.Nx && y >= 0 && y < f.Ny
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	data := make([]float64, len(f.Data))
	copy(data, f.Data)

	return &Frame{Nx: f.Nx, Ny: f.Ny, Data: data}
}

// SameShape reports whether g has identical dimensions.
func (f *Frame) SameShape(g *Frame) bool {
	return g != nil && f.Nx == g.Nx && f.Ny == g.Ny
}

// GenBadPixMask identifies bad pixels by comparing the frame against a
// median-filtered copy. A pixel is good when its residual against the
// smoothed image stays below threshold standard deviations of the global
// residual. filterSize must be odd; typical values are 3 or 5.
//
// The returned mask is true for good pixels. The smoothed image is
// returned alongside so callers can reuse it.
func GenBadPixMask(f *Frame, filterSize int, threshold float64) ([]bool, *Frame) {
	if filterSize < 1 {
		filterSize = 3
	}

	if filterSize%2 == 0 {
		filterSize++
	}

	smoothed := medianFilter(f, filterSize)

	res := make([]float64, len(f.Data))
	for i := range res {
		res[i] = f.Data[i] - smoothed.Data[i]
	}

	sigma := stddev(res)

	mask := make([]bool, len(f.Data))
	if sigma == 0 {
		for i := range mask {
			mask[i] = true
		}

		return mask, smoothed
	}

	for i := range mask {
		mask[i] = math.Abs(res[i])/sigma < threshold
	}

	return mask, smoothed
}

// ApplyBadPixMask returns a copy of the variance plane with every bad
// pixel's variance set to +Inf, so inverse-variance weighting downstream
// excludes it. The mask follows the GenBadPixMask convention: true marks
// a good pixel.
func ApplyBadPixMask(varmap *Frame, mask []bool) (*Frame, error) {
	if len(mask) != len(varmap.Data) {
		return nil, fmt.Errorf("%w: mask %d, frame %d", ErrMaskShape, len(mask), len(varmap.Data))
	}

	out := varmap.Clone()

	for i, good := range mask {
		if !good {
			out.Data[i] = math.Inf(1)
		}
	}

	return out, nil
}

// CircularMask returns a mask that is true inside a circle of the given
// radius centered on the frame center.
func CircularMask(nx, ny int, radius float64) []bool {
	mask := make([]bool, nx*ny)
	cx := nx / 2
	cy := ny / 2

	for y := range ny {
		for x := range nx {
			dx := float64(x - cx)
			dy := float64(y - cy)

			if math.Sqrt(dx*dx+dy*dy) < radius {
				mask[y*nx+x] = true
			}
		}
	}

	return mask
}

// medianFilter applies a size x size median filter with zero padding at
// the edges, matching the usual sliding-median convention.
func medianFilter(f *Frame, size int) *Frame {
	out := &Frame{Nx: f.Nx, Ny: f.Ny, Data: make([]float64, len(f.Data))}
	half := size / 2
	window := make([]float64, 0, size*size)

	for y := range f.Ny {
		for x := range f.Nx {
			window = window[:0]

			for dy := -half; dy <= half; dy++ {
				for dx := -half; dx <= half; dx++ {
					xx := x + dx
					yy := y + dy

					if xx < 0 || xx >= f.Nx || yy < 0 || yy >= f.Ny {
						window = append(window, 0)
						continue
					}

					window = append(window, f.At(xx, yy))
				}
			}

			out.Set(x, y, median(window))
		}
	}

	return out
}

func median(v []float64) float64 {
	sort.Float64s(v)

	n := len(v)
	if n == 0 {
		return 0
	}

	if n%2 == 1 {
		return v[n/2]
	}

	return 0.5 * (v[n/2-1] + v[n/2])
}

func stddev(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}

	mean := 0.0
	for _, x := range v {
		mean += x
	}

	mean /= float64(len(v))

	acc := 0.0
	for _, x := range v {
		d := x - mean
		acc += d * d
	}

	return math.Sqrt(acc / float64(len(v)))
}
