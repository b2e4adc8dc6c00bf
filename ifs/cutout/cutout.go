// Package cutout slices the minimal sub-image of a detector frame that
// covers one lenslet's footprints across all wavelengths. A cutout borrows
// the source frame; it never copies or mutates it.
package cutout

import (
	"errors"
	"fmt"

	"github.com/lanemeier7/crispy/ifs/frame"
	"github.com/lanemeier7/crispy/ifs/pixsol"
)

// Errors returned by cutout extraction.
var (
	ErrOffDetector = errors.New("cutout: lenslet footprint entirely off detector")
	ErrBadLenslet  = errors.New("cutout: lenslet index out of range")
	ErrBadMargin   = errors.New("cutout: margin must be non-negative")
)

// Bounds is a half-open pixel box [Xmin, Xmax) x [Ymin, Ymax) in detector
// coordinates.
type Bounds struct {
	Xmin, Xmax, Ymin, Ymax int
}

// Width returns the box width in pixels.
func (b Bounds) Width() int { return b.Xmax - b.Xmin }

// Height returns the box height in pixels.
func (b Bounds) Height() int { return b.Ymax - b.Ymin }

// Area returns the number of pixels inside the box.
func (b Bounds) Area() int {
	if b.Xmax <= b.Xmin || b.Ymax <= b.Ymin {
		return 0
	}

	return b.Width() * b.Height()
}

// Contains reports whether detector pixel (x, y) lies inside the box.
func (b Bounds) Contains(x, y int) bool {
	return x >= b.Xmin && x < b.Xmax && y >= b.Ymin && y < b.Ymax
}

// Cutout is a non-owning view of one lenslet's region of a detector frame,
// together with that lenslet's footprints in wavelength order.
type Cutout struct {
	Bounds  Bounds
	Lenslet int
	// Foot holds the lenslet's footprints across all wavelength bins,
	// borrowed from the pixel-solution table.
	Foot []pixsol.Footprint

	src *frame.Frame
}

// Extract computes the union bounding box of all valid footprints of one
// lenslet, expands it by margin pixels to admit PSF wings, and clips it to
// the frame. It fails with ErrOffDetector when no footprint survives on
// the detector; callers treat that as "no spectrum producible".
func Extract(img *frame.Frame, tbl *pixsol.Table, lenslet, margin int) (*Cutout, error) {
	if lenslet < 0 || lenslet >= tbl.Lenslets() {
		return nil, fmt.Errorf("%w: %d of %d", ErrBadLenslet, lenslet, tbl.Lenslets())
	}

	if margin < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBadMargin, margin)
	}

	foot := tbl.Lenslet(lenslet)

	var b Bounds

	found := false

	for _, fp := range foot {
		if !fp.OK {
			continue
		}

		if !found {
			b = Bounds{Xmin: fp.Xmin, Xmax: fp.Xmax, Ymin: fp.Ymin, Ymax: fp.Ymax}
			found = true

			continue
		}

		b.Xmin = min(b.Xmin, fp.Xmin)
		b.Xmax = max(b.Xmax, fp.Xmax)
		b.Ymin = min(b.Ymin, fp.Ymin)
		b.Ymax = max(b.Ymax, fp.Ymax)
	}

	if !found {
		return nil, fmt.Errorf("%w: lenslet %d", ErrOffDetector, lenslet)
	}

	b.Xmin = max(b.Xmin-margin, 0)
	b.Ymin = max(b.Ymin-margin, 0)
	b.Xmax = min(b.Xmax+margin, img.Nx)
	b.Ymax = min(b.Ymax+margin, img.Ny)

	if b.Area() == 0 {
		return nil, fmt.Errorf("%w: lenslet %d clipped to %+v", ErrOffDetector, lenslet, b)
	}

	return &Cutout{
		Bounds:  b,
		Lenslet: lenslet,
		Foot:    foot,
		src:     img,
	}, nil
}

// At returns the source pixel value at detector coordinates (x, y).
func (c *Cutout) At(x, y int) float64 {
	return c.src.At(x, y)
}

// Channels returns the number of wavelength bins covered by the cutout.
func (c *Cutout) Channels() int {
	return len(c.Foot)
}

// Source returns the borrowed detector frame.
func (c *Cutout) Source() *frame.Frame {
	return c.src
}
