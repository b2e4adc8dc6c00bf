package extract_test

import (
	"testing"

	"github.com/lanemeier7/crispy/ifs/cutout"
	"github.com/lanemeier7/crispy/ifs/extract"
	"github.com/lanemeier7/crispy/ifs/pixsol"
	"github.com/lanemeier7/crispy/ifs/profile"
	"github.com/lanemeier7/crispy/internal/testutil"
)

func benchFixture(b *testing.B) (*cutout.Cutout, *profile.Stack) {
	b.Helper()

	img := testutil.ConstantFrame(b, 64, 64, 1)

	foot := make([]pixsol.Footprint, 16)
	for k := range foot {
		x := 6 + 3*k

		foot[k] = pixsol.Footprint{
			X: float64(x), Y: 32,
			Xmin: x - 2, Xmax: x + 3,
			Ymin: 30, Ymax: 35,
			OK: true,
		}
	}

	tbl := &pixsol.Table{NLens: 1, NLam: len(foot), Foot: foot}

	cut, err := cutout.Extract(img, tbl, 0, 2)
	if err != nil {
		b.Fatalf("cutout.Extract: %v", err)
	}

	stack, err := profile.GaussianModel{FWHM: 2}.Stack(cut)
	if err != nil {
		b.Fatalf("Stack: %v", err)
	}

	return cut, stack
}

func BenchmarkOptimal(b *testing.B) {
	cut, stack := benchFixture(b)
	varmap := testutil.ConstantFrame(b, 64, 64, 1)

	b.ResetTimer()

	for range b.N {
		if _, err := extract.Optimal(cut, stack, varmap); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLeastSquares(b *testing.B) {
	cut, stack := benchFixture(b)
	varmap := testutil.ConstantFrame(b, 64, 64, 1)

	b.ResetTimer()

	for range b.N {
		if _, err := extract.LeastSquares(cut, stack, varmap); err != nil {
			b.Fatal(err)
		}
	}
}
