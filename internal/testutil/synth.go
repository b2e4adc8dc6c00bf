package testutil

import (
	"github.com/lanemeier7/crispy/ifs/frame"
	"github.com/lanemeier7/crispy/ifs/psflet"
)

// DispersionCal builds a synthetic calibration table over [blue, red] nm
// with n samples. The geometry is an axis-aligned lenslet lattice centered
// on the detector with unit lattice scaling, dispersed linearly along x by
// dispPix pixels across the band. Detector center is (cx, cy).
func DispersionCal(n int, blue, red, cx, cy, dispPix float64) []psflet.CalPoint {
	points := make([]psflet.CalPoint, n)

	for i := range points {
		lam := blue + (red-blue)*float64(i)/float64(n-1)
		frac := (lam - blue) / (red - blue)

		points[i] = psflet.CalPoint{
			Lam: lam,
			Coef: []float64{
				cx + dispPix*(frac-0.5), // x0 walks along the dispersion axis
				cy,
				1, 0,
				0, 1,
			},
		}
	}

	return points
}

// ConstantFrame returns an nx by ny frame filled with v.
func ConstantFrame(t testingT, nx, ny int, v float64) *frame.Frame {
	f, err := frame.New(nx, ny)
	if err != nil {
		t.Fatalf("ConstantFrame: %v", err)
	}

	for i := range f.Data {
		f.Data[i] = v
	}

	return f
}

// testingT is the subset of *testing.T used by the frame builders, so
// helpers stay usable from benchmarks.
type testingT interface {
	Fatalf(format string, args ...any)
}
