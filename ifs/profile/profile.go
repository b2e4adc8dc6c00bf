// Package profile builds PSFlet profile templates: per-wavelength maps of
// the fraction of a lenslet's light landing in each cutout pixel. The
// optimal and least-squares extractors weight pixels by these templates.
package profile

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/lanemeier7/crispy/ifs/cutout"
)

// ErrFWHM is returned for a non-positive PSF width.
var ErrFWHM = errors.New("profile: FWHM must be positive")

// fwhmToSigma converts a Gaussian FWHM to its standard deviation.
const fwhmToSigma = 1 / 2.35

// Stack holds one unit-normalized profile template per wavelength bin,
// each laid out row-major over the cutout bounds. A null footprint yields
// an all-zero template.
type Stack struct {
	Bounds cutout.Bounds
	W      [][]float64
}

// Channels returns the number of wavelength bins in the stack.
func (s *Stack) Channels() int { return len(s.W) }

// Model builds a profile stack for one lenslet's cutout.
type Model interface {
	Stack(cut *cutout.Cutout) (*Stack, error)
}

// GaussianModel is a Model using a symmetric Gaussian PSFlet whose pixel
// weights are integrated over pixel boxes with the error function.
type GaussianModel struct {
	// FWHM is the PSFlet full width at half maximum in pixels.
	FWHM float64
}

// Stack builds per-wavelength Gaussian templates centered on each
// footprint centroid, restricted to the clipped footprint box and
// normalized to unit sum over the cutout window.
func (g GaussianModel) Stack(cut *cutout.Cutout) (*Stack, error) {
	if g.FWHM <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrFWHM, g.FWHM)
	}

	sigma := g.FWHM * fwhmToSigma
	b := cut.Bounds
	s := &Stack{
		Bounds: b,
		W:      make([][]float64, len(cut.Foot)),
	}

	for k, fp := range cut.Foot {
		w := make([]float64, b.Area())
		s.W[k] = w

		if !fp.OK {
			continue
		}

		for y := fp.Ymin; y < fp.Ymax; y++ {
			if y < b.Ymin || y >= b.Ymax {
				continue
			}

			py := pixelFraction(float64(y)-fp.Y, sigma)
			row := (y - b.Ymin) * b.Width()

			for x := fp.Xmin; x < fp.Xmax; x++ {
				if !b.Contains(x, y) {
					continue
				}

				w[row+x-b.Xmin] = pixelFraction(float64(x)-fp.X, sigma) * py
			}
		}

		sum := vecmath.Sum(w)
		if sum > 0 {
			vecmath.ScaleBlockInPlace(w, 1/sum)
		}
	}

	return s, nil
}

// Gaussian returns a size x size unit-normalized Gaussian PSFlet stamp
// with the peak offset by (offx, offy) pixels from the stamp center.
func Gaussian(size int, fwhm, offx, offy float64) ([]float64, error) {
	if fwhm <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrFWHM, fwhm)
	}

	sigma := fwhm * fwhmToSigma
	half := size / 2

	stamp := make([]float64, size*size)
	for y := range size {
		py := pixelFraction(float64(y-half)-offy, sigma)

		for x := range size {
			stamp[y*size+x] = pixelFraction(float64(x-half)-offx, sigma) * py
		}
	}

	sum := vecmath.Sum(stamp)
	if sum > 0 {
		vecmath.ScaleBlockInPlace(stamp, 1/sum)
	}

	return stamp, nil
}

// pixelFraction integrates a unit Gaussian over a pixel box centered at
// distance d from the Gaussian mean.
func pixelFraction(d, sigma float64) float64 {
	s := math.Sqrt2 * sigma
	return 0.5 * (math.Erf((d+0.5)/s) - math.Erf((d-0.5)/s))
}
