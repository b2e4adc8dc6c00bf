// Package psflet models the wavelength dependence of lenslet spot geometry.
//
// A calibration table supplies geometric coefficient vectors at a handful
// of wavelengths; the model fits an independent polynomial in wavelength
// through each coefficient column and evaluates the full vector at any
// wavelength in between. The fitted coefficients live in a single dense
// interpolation matrix of shape (order+1) x numCoef, rebuilt atomically on
// construction and never mutated afterwards.
package psflet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Calibration wavelengths outside this open interval (nm) are rejected.
const (
	minCalWavelength = 400.0
	maxCalWavelength = 1200.0
)

// Errors returned by model construction.
var (
	ErrNoData             = errors.New("psflet: calibration table is empty")
	ErrInsufficientPoints = errors.New("psflet: need at least order+1 calibration wavelengths")
	ErrUnorderedTable     = errors.New("psflet: calibration wavelengths must be strictly increasing")
	ErrWavelengthRange    = errors.New("psflet: calibration wavelength outside instrument band")
	ErrCoefMismatch       = errors.New("psflet: calibration coefficient vectors differ in length")
	ErrBadOrder           = errors.New("psflet: polynomial order must be non-negative")
	ErrSingularFit        = errors.New("psflet: polynomial fit is singular")
)

// CalPoint is one calibration sample: a wavelength and the flattened
// geometric coefficient vector measured there.
type CalPoint struct {
	Lam  float64
	Coef []float64
}

// Model evaluates lenslet spot geometry as a function of wavelength.
// It is read-only after construction and safe for concurrent use.
type Model struct {
	order       int
	numCoef     int
	lamMin      float64
	lamMax      float64
	interp      *mat.Dense // (order+1) x numCoef polynomial columns
	fingerprint uint64
}

// NewModel fits a degree-order polynomial in wavelength through every
// coefficient column of the calibration table. The fit is exact when the
// table has exactly order+1 rows and least-squares otherwise.
func NewModel(points []CalPoint, order int) (*Model, error) {
	if order < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBadOrder, order)
	}

	if len(points) == 0 {
		return nil, ErrNoData
	}

	if len(points) < order+1 {
		return nil, fmt.Errorf("%w: order %d with %d points", ErrInsufficientPoints, order, len(points))
	}

	numCoef := len(points[0].Coef)

	for i, p := range points {
		if p.Lam <= minCalWavelength || p.Lam >= maxCalWavelength {
			return nil, fmt.Errorf("%w: %g nm at row %d", ErrWavelengthRange, p.Lam, i)
		}

		if len(p.Coef) != numCoef {
			return nil, fmt.Errorf("%w: row %d has %d, row 0 has %d", ErrCoefMismatch, i, len(p.Coef), numCoef)
		}

		if i > 0 && p.Lam <= points[i-1].Lam {
			return nil, fmt.Errorf("%w: row %d (%g nm) after %g nm", ErrUnorderedTable, i, p.Lam, points[i-1].Lam)
		}
	}

	m := &Model{
		order:       order,
		numCoef:     numCoef,
		lamMin:      points[0].Lam,
		lamMax:      points[len(points)-1].Lam,
		fingerprint: calFingerprint(points, order),
	}

	if err := m.buildInterpolation(points); err != nil {
		return nil, err
	}

	return m, nil
}

// buildInterpolation solves the Vandermonde system for all coefficient
// columns at once. Wavelengths are rescaled to [-1, 1] before building
// the design matrix to keep the system well conditioned.
func (m *Model) buildInterpolation(points []CalPoint) error {
	rows := len(points)
	cols := m.order + 1

	v := mat.NewDense(rows, cols, nil)
	b := mat.NewDense(rows, m.numCoef, nil)

	for i, p := range points {
		t := m.rescale(p.Lam)
		pow := 1.0

		for k := range cols {
			v.Set(i, k, pow)
			pow *= t
		}

		for c, val := range p.Coef {
			b.Set(i, c, val)
		}
	}

	var qr mat.QR
	qr.Factorize(v)

	interp := mat.NewDense(cols, m.numCoef, nil)
	if err := qr.SolveTo(interp, false, b); err != nil {
		return fmt.Errorf("%w: %v", ErrSingularFit, err)
	}

	m.interp = interp

	return nil
}

// Evaluate returns the geometric coefficient vector at lam by evaluating
// every column polynomial. It never fails: wavelengths outside the
// calibrated range are extrapolated and flagged.
func (m *Model) Evaluate(lam float64) (coef []float64, extrapolated bool) {
	t := m.rescale(lam)
	coef = make([]float64, m.numCoef)

	// Horner per column, walking the interpolation rows top-down.
	for c := range m.numCoef {
		v := m.interp.At(m.order, c)
		for k := m.order - 1; k >= 0; k-- {
			v = v*t + m.interp.At(k, c)
		}

		coef[c] = v
	}

	return coef, lam < m.lamMin || lam > m.lamMax
}

// Order returns the polynomial degree of the interpolation.
func (m *Model) Order() int { return m.order }

// NumCoef returns the length of the coefficient vector.
func (m *Model) NumCoef() int { return m.numCoef }

// Domain returns the calibrated wavelength range in nm.
func (m *Model) Domain() (lamMin, lamMax float64) {
	return m.lamMin, m.lamMax
}

// Fingerprint returns a stable 64-bit hash of the calibration inputs,
// used to key derived artifacts.
func (m *Model) Fingerprint() uint64 { return m.fingerprint }

func (m *Model) rescale(lam float64) float64 {
	if m.lamMax == m.lamMin {
		return 0
	}

	return 2*(lam-m.lamMin)/(m.lamMax-m.lamMin) - 1
}

func calFingerprint(points []CalPoint, order int) uint64 {
	h := fnv.New64a()

	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(order))
	h.Write(buf[:])

	put := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}

	for _, p := range points {
		put(p.Lam)

		for _, c := range p.Coef {
			put(c)
		}
	}

	return h.Sum64()
}
