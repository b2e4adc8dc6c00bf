package extract

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/lanemeier7/crispy/ifs/cutout"
	"github.com/lanemeier7/crispy/ifs/frame"
	"github.com/lanemeier7/crispy/ifs/profile"
)

// Condition numbers beyond this mark the normal equations as degenerate.
const condMax = 1e12

// LeastSquares reduces a cutout to a spectrum by solving a weighted linear
// least-squares system: the per-wavelength profile templates form the
// design matrix columns and the fitted amplitudes are the fluxes. Template
// overlap is accounted for exactly, which matters when neighboring
// wavelength bins share pixels. Amplitude variances come from the diagonal
// of the inverse normal matrix.
//
// Bins whose template has no unmasked support are excluded from the solve
// and carry the no-data marker. A near-degenerate system (overlapping,
// linearly dependent templates) fails with ErrDegenerateFit instead of
// returning unbounded values.
func LeastSquares(cut *cutout.Cutout, stack *profile.Stack, varmap *frame.Frame) (*Spectrum, error) {
	if err := checkInputs(cut, stack, varmap); err != nil {
		return nil, err
	}

	mask := BuildMask(cut, varmap)
	b := cut.Bounds
	nlam := len(stack.W)

	weights := make([]float64, b.Area())
	data := make([]float64, b.Area())

	for y := b.Ymin; y < b.Ymax; y++ {
		row := (y - b.Ymin) * b.Width()

		for x := b.Xmin; x < b.Xmax; x++ {
			idx := row + x - b.Xmin
			if !mask[idx] {
				continue
			}

			wt := 1.0
			if varmap != nil {
				wt = 1 / varmap.At(x, y)
			}

			weights[idx] = wt
			data[idx] = cut.At(x, y)
		}
	}

	// Columns with no unmasked support cannot be fit; solve the rest.
	active := make([]int, 0, nlam)

	for k, w := range stack.W {
		norm := 0.0
		for idx, p := range w {
			norm += weights[idx] * p * p
		}

		if norm > 0 {
			active = append(active, k)
		}
	}

	s := &Spectrum{
		Flux: make([]float64, nlam),
		Var:  make([]float64, nlam),
	}

	for k := range nlam {
		s.Flux[k] = math.NaN()
		s.Var[k] = math.Inf(1)
	}

	if len(active) == 0 {
		return s, nil
	}

	n := len(active)
	normal := mat.NewSymDense(n, nil)
	rhs := mat.NewVecDense(n, nil)

	for a, ka := range active {
		wa := stack.W[ka]

		r := 0.0
		for idx, p := range wa {
			r += weights[idx] * p * data[idx]
		}

		rhs.SetVec(a, r)

		for c := a; c < n; c++ {
			wc := stack.W[active[c]]

			m := 0.0
			for idx, p := range wa {
				m += weights[idx] * p * wc[idx]
			}

			normal.SetSym(a, c, m)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(normal); !ok {
		return nil, fmt.Errorf("%w: lenslet %d, bounds %+v", ErrDegenerateFit, cut.Lenslet, b)
	}

	if cond := chol.Cond(); cond > condMax {
		return nil, fmt.Errorf("%w: lenslet %d, bounds %+v, condition %g", ErrDegenerateFit, cut.Lenslet, b, cond)
	}

	var amp mat.VecDense
	if err := chol.SolveVecTo(&amp, rhs); err != nil {
		return nil, fmt.Errorf("%w: lenslet %d: %v", ErrDegenerateFit, cut.Lenslet, err)
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: lenslet %d: %v", ErrDegenerateFit, cut.Lenslet, err)
	}

	for a, k := range active {
		s.Flux[k] = amp.AtVec(a)
		s.Var[k] = inv.At(a, a)
	}

	return s, nil
}
