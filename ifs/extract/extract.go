package extract

import (
	"errors"
	"fmt"
	"math"

	"github.com/lanemeier7/crispy/ifs/cutout"
	"github.com/lanemeier7/crispy/ifs/frame"
	"github.com/lanemeier7/crispy/ifs/profile"
)

// Errors returned by the extractors.
var (
	ErrStackMismatch = errors.New("extract: profile stack does not match cutout")
	ErrShapeMismatch = errors.New("extract: variance map shape does not match frame")
	ErrDegenerateFit = errors.New("extract: least-squares system is ill-conditioned")
)

// Spectrum is one lenslet's extracted 1-D spectrum: flux and variance per
// wavelength bin, in wavelength-grid order. Bins where every pixel was
// masked carry NaN flux and +Inf variance as an explicit no-data marker.
type Spectrum struct {
	Lam  []float64
	Flux []float64
	Var  []float64
}

// NoData reports whether bin k carries the no-data marker.
func (s *Spectrum) NoData(k int) bool {
	return math.IsInf(s.Var[k], 1)
}

// BuildMask computes the good-pixel mask for a cutout window, laid out
// row-major over the cutout bounds: a pixel is good when its data value is
// finite and its variance (if a variance map is given) is finite and
// positive. Both extraction paths share this mask.
func BuildMask(cut *cutout.Cutout, varmap *frame.Frame) []bool {
	b := cut.Bounds
	mask := make([]bool, b.Area())

	for y := b.Ymin; y < b.Ymax; y++ {
		row := (y - b.Ymin) * b.Width()

		for x := b.Xmin; x < b.Xmax; x++ {
			d := cut.At(x, y)
			good := !math.IsNaN(d) && !math.IsInf(d, 0)

			if good && varmap != nil {
				v := varmap.At(x, y)
				good = v > 0 && !math.IsInf(v, 0)
			}

			mask[row+x-b.Xmin] = good
		}
	}

	return mask
}

// Optimal reduces a cutout to a spectrum with a Horne-style matched
// filter: flux = sum(w*d*p) / sum(w*p^2) and variance = 1 / sum(w*p^2)
// per wavelength bin, with w the inverse variance and p the
// unit-normalized profile weight. A nil variance map means unit weights.
// Inputs are never mutated.
func Optimal(cut *cutout.Cutout, stack *profile.Stack, varmap *frame.Frame) (*Spectrum, error) {
	if err := checkInputs(cut, stack, varmap); err != nil {
		return nil, err
	}

	mask := BuildMask(cut, varmap)

	return optimalMasked(cut, stack, varmap, mask), nil
}

func optimalMasked(cut *cutout.Cutout, stack *profile.Stack, varmap *frame.Frame, mask []bool) *Spectrum {
	b := cut.Bounds
	nlam := len(stack.W)

	s := &Spectrum{
		Flux: make([]float64, nlam),
		Var:  make([]float64, nlam),
	}

	for k, w := range stack.W {
		numer := 0.0
		denom := 0.0

		for y := b.Ymin; y < b.Ymax; y++ {
			row := (y - b.Ymin) * b.Width()

			for x := b.Xmin; x < b.Xmax; x++ {
				idx := row + x - b.Xmin

				p := w[idx]
				if p == 0 || !mask[idx] {
					continue
				}

				wt := 1.0
				if varmap != nil {
					wt = 1 / varmap.At(x, y)
				}

				numer += wt * cut.At(x, y) * p
				denom += wt * p * p
			}
		}

		if denom > 0 {
			s.Flux[k] = numer / denom
			s.Var[k] = 1 / denom
		} else {
			s.Flux[k] = math.NaN()
			s.Var[k] = math.Inf(1)
		}
	}

	return s
}

func checkInputs(cut *cutout.Cutout, stack *profile.Stack, varmap *frame.Frame) error {
	if stack.Bounds != cut.Bounds || len(stack.W) != len(cut.Foot) {
		return fmt.Errorf("%w: lenslet %d, stack %+v over %d bins, cutout %+v over %d bins",
			ErrStackMismatch, cut.Lenslet, stack.Bounds, len(stack.W), cut.Bounds, len(cut.Foot))
	}

	if varmap != nil && !cut.Source().SameShape(varmap) {
		return fmt.Errorf("%w: frame %dx%d, variance %dx%d",
			ErrShapeMismatch, cut.Source().Nx, cut.Source().Ny, varmap.Nx, varmap.Ny)
	}

	return nil
}
