// Package pixsol rasterizes the geometric model over a wavelength grid,
// producing the per-lenslet, per-wavelength detector footprints the
// extraction stages consume. The resulting table is deterministic for
// identical inputs and can be persisted to and reloaded from FITS.
package pixsol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/lanemeier7/crispy/ifs/psflet"
	"github.com/lanemeier7/crispy/ifs/wavegrid"
)

// NumGeoCoef is the expected length of the geometric coefficient vector:
// a detector offset (x0, y0) plus a linear lattice-to-detector map
// (dx/di, dx/dj, dy/di, dy/dj).
const NumGeoCoef = 6

// Errors returned by table generation.
var (
	ErrDetectorShape = errors.New("pixsol: detector dimensions must be positive")
	ErrGeometry      = errors.New("pixsol: lenslet and pixel pitch must be positive")
	ErrLattice       = errors.New("pixsol: lenslet lattice size must be positive")
	ErrCoefLayout    = errors.New("pixsol: model coefficient vector has unexpected length")
	ErrStaleTable    = errors.New("pixsol: table fingerprint does not match inputs")
)

// Detector describes the detector pixel grid.
type Detector struct {
	Nx, Ny int
}

// Geometry describes the lenslet array and its mapping onto the detector.
type Geometry struct {
	// NLens is the side length of the square lenslet lattice.
	NLens int
	// LensletPitch and PixelPitch are physical pitches in meters; their
	// ratio converts lattice offsets to detector pixels.
	LensletPitch float64
	PixelPitch   float64
	// BoxRadius is the footprint half-size in pixels around the centroid.
	BoxRadius int
}

// Footprint is the detector region one lenslet occupies at one wavelength:
// a sub-pixel centroid plus a clipped half-open bounding box
// [Xmin, Xmax) x [Ymin, Ymax). OK is false when clipping collapsed the box
// to zero area; such footprints are recorded but excluded from extraction.
type Footprint struct {
	X, Y                   float64
	Xmin, Xmax, Ymin, Ymax int
	OK                     bool
}

// Area returns the number of pixels inside the clipped box.
func (fp Footprint) Area() int {
	if fp.Xmax <= fp.Xmin || fp.Ymax <= fp.Ymin {
		return 0
	}

	return (fp.Xmax - fp.Xmin) * (fp.Ymax - fp.Ymin)
}

// Table holds footprints for the full lenslet lattice in fixed enumeration
// order: lenslet id j*NLens+i (row-major over the lattice), wavelengths in
// grid order within each lenslet.
type Table struct {
	NLens       int
	NLam        int
	Fingerprint uint64
	Foot        []Footprint
}

// Index returns the linear lenslet id for lattice coordinates (i, j).
func Index(i, j, nlens int) int {
	return j*nlens + i
}

// At returns the footprint of a lenslet at wavelength bin k.
func (t *Table) At(lenslet, k int) Footprint {
	return t.Foot[lenslet*t.NLam+k]
}

// Lenslet returns the footprints of one lenslet across all wavelengths.
func (t *Table) Lenslet(lenslet int) []Footprint {
	off := lenslet * t.NLam
	return t.Foot[off : off+t.NLam]
}

// Lenslets returns the number of lenslets in the table.
func (t *Table) Lenslets() int {
	return t.NLens * t.NLens
}

// Verify checks the table against the fingerprint of the inputs it is
// supposed to derive from.
func (t *Table) Verify(want uint64) error {
	if t.Fingerprint != want {
		return fmt.Errorf("%w: table %016x, inputs %016x", ErrStaleTable, t.Fingerprint, want)
	}

	return nil
}

// Generate evaluates the model at every wavelength bin for every lenslet
// and records the clipped footprint. Footprints partially off the detector
// are clipped, never dropped; fully-off footprints become zero-area
// records. Identical inputs yield a bit-identical table.
func Generate(model *psflet.Model, grid *wavegrid.Grid, det Detector, geo Geometry) (*Table, error) {
	if det.Nx <= 0 || det.Ny <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDetectorShape, det.Nx, det.Ny)
	}

	if geo.NLens <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrLattice, geo.NLens)
	}

	if geo.LensletPitch <= 0 || geo.PixelPitch <= 0 {
		return nil, fmt.Errorf("%w: lenslet %g m, pixel %g m", ErrGeometry, geo.LensletPitch, geo.PixelPitch)
	}

	if model.NumCoef() != NumGeoCoef {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCoefLayout, model.NumCoef(), NumGeoCoef)
	}

	nlam := grid.Channels()
	nlens := geo.NLens
	scale := geo.LensletPitch / geo.PixelPitch
	center := float64(nlens-1) / 2

	t := &Table{
		NLens:       nlens,
		NLam:        nlam,
		Fingerprint: Fingerprint(model, grid, det, geo),
		Foot:        make([]Footprint, nlens*nlens*nlam),
	}

	for j := range nlens {
		for i := range nlens {
			u := float64(i) - center
			v := float64(j) - center
			base := Index(i, j, nlens) * nlam

			for k, lam := range grid.Lam {
				c, _ := model.Evaluate(lam)

				xc := c[0] + (c[2]*u+c[3]*v)*scale
				yc := c[1] + (c[4]*u+c[5]*v)*scale

				t.Foot[base+k] = clipBox(xc, yc, geo.BoxRadius, det)
			}
		}
	}

	return t, nil
}

// clipBox builds the half-open footprint box around a centroid and clips
// it to the detector.
func clipBox(xc, yc float64, radius int, det Detector) Footprint {
	px := int(math.Floor(xc))
	py := int(math.Floor(yc))

	fp := Footprint{
		X:    xc,
		Y:    yc,
		Xmin: clampInt(px-radius, 0, det.Nx),
		Xmax: clampInt(px+radius+1, 0, det.Nx),
		Ymin: clampInt(py-radius, 0, det.Ny),
		Ymax: clampInt(py+radius+1, 0, det.Ny),
	}
	fp.OK = fp.Area() > 0

	return fp
}

// Fingerprint hashes the inputs a table derives from: the calibration
// model, the wavelength grid, and the detector/lenslet geometry.
func Fingerprint(model *psflet.Model, grid *wavegrid.Grid, det Detector, geo Geometry) uint64 {
	h := fnv.New64a()

	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	put(model.Fingerprint())
	put(grid.Fingerprint())
	put(uint64(det.Nx))
	put(uint64(det.Ny))
	put(uint64(geo.NLens))
	put(uint64(geo.BoxRadius))
	put(math.Float64bits(geo.LensletPitch))
	put(math.Float64bits(geo.PixelPitch))

	return h.Sum64()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
