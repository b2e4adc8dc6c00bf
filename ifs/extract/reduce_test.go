package extract_test

import (
	"errors"
	"testing"

	"github.com/lanemeier7/crispy/ifs/cutout"
	"github.com/lanemeier7/crispy/ifs/extract"
	"github.com/lanemeier7/crispy/ifs/pixsol"
	"github.com/lanemeier7/crispy/ifs/profile"
	"github.com/lanemeier7/crispy/ifs/psflet"
	"github.com/lanemeier7/crispy/ifs/wavegrid"
	"github.com/lanemeier7/crispy/internal/testutil"
)

func profile2() profile.GaussianModel {
	return profile.GaussianModel{FWHM: 2}
}

func reduceFixture(t *testing.T, cx float64) (*pixsol.Table, *wavegrid.Grid, pixsol.Detector) {
	t.Helper()

	grid, err := wavegrid.New(wavegrid.Config{R: 50, Channels: 4, BlueLimit: 600, RedLimit: 720})
	if err != nil {
		t.Fatalf("wavegrid.New: %v", err)
	}

	model, err := psflet.NewModel(testutil.DispersionCal(5, 600, 720, cx, 32, 12), 2)
	if err != nil {
		t.Fatalf("psflet.NewModel: %v", err)
	}

	det := pixsol.Detector{Nx: 64, Ny: 64}

	tbl, err := pixsol.Generate(model, grid, det, pixsol.Geometry{
		NLens:        3,
		LensletPitch: 8e-5,
		PixelPitch:   1e-5,
		BoxRadius:    2,
	})
	if err != nil {
		t.Fatalf("pixsol.Generate: %v", err)
	}

	return tbl, grid, det
}

// TestReduceAllLenslets runs the full driving loop on a lattice entirely
// on the detector and checks result ordering and spectrum shape.
func TestReduceAllLenslets(t *testing.T) {
	tbl, grid, det := reduceFixture(t, 32)
	img := testutil.ConstantFrame(t, det.Nx, det.Ny, 1)
	varmap := testutil.ConstantFrame(t, det.Nx, det.Ny, 1)

	results, err := extract.Reduce(img, varmap, tbl, grid, profile2(), extract.WithWorkers(4))
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	if len(results) != tbl.Lenslets() {
		t.Fatalf("got %d results, want %d", len(results), tbl.Lenslets())
	}

	for i, res := range results {
		if res.Lenslet != i {
			t.Fatalf("result %d carries lenslet %d; order must follow lenslet enumeration", i, res.Lenslet)
		}

		if res.Err != nil {
			t.Fatalf("lenslet %d failed: %v", i, res.Err)
		}

		if len(res.Spectrum.Flux) != grid.Channels() {
			t.Fatalf("lenslet %d spectrum has %d bins, want %d", i, len(res.Spectrum.Flux), grid.Channels())
		}

		testutil.RequireSliceNearlyEqual(t, res.Spectrum.Lam, grid.Lam, 0)
	}
}

// TestReduceIsolatesFailures puts one lenslet column off the detector and
// checks that its errors never abort the remaining lenslets.
func TestReduceIsolatesFailures(t *testing.T) {
	tbl, grid, det := reduceFixture(t, -6)
	img := testutil.ConstantFrame(t, det.Nx, det.Ny, 1)

	results, err := extract.Reduce(img, nil, tbl, grid, profile2())
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	failed := 0
	succeeded := 0

	for _, res := range results {
		switch {
		case res.Err != nil:
			if !errors.Is(res.Err, cutout.ErrOffDetector) {
				t.Fatalf("lenslet %d: unexpected error %v", res.Lenslet, res.Err)
			}

			failed++
		default:
			succeeded++
		}
	}

	if failed == 0 {
		t.Fatalf("expected off-detector lenslets to fail")
	}

	if succeeded == 0 {
		t.Fatalf("expected on-detector lenslets to succeed alongside failures")
	}
}

// TestReduceMatchesDirectExtraction cross-checks the concurrent driver
// against single-lenslet extraction.
func TestReduceMatchesDirectExtraction(t *testing.T) {
	tbl, grid, det := reduceFixture(t, 32)
	img := testutil.ConstantFrame(t, det.Nx, det.Ny, 1)
	varmap := testutil.ConstantFrame(t, det.Nx, det.Ny, 1)

	results, err := extract.Reduce(img, varmap, tbl, grid, profile2(),
		extract.WithMargin(3), extract.WithMode(extract.ModeOptimal))
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	for _, res := range results {
		cut, err := cutout.Extract(img, tbl, res.Lenslet, 3)
		if err != nil {
			t.Fatalf("cutout.Extract(%d): %v", res.Lenslet, err)
		}

		stack, err := profile2().Stack(cut)
		if err != nil {
			t.Fatalf("Stack(%d): %v", res.Lenslet, err)
		}

		want, err := extract.Optimal(cut, stack, varmap)
		if err != nil {
			t.Fatalf("Optimal(%d): %v", res.Lenslet, err)
		}

		testutil.RequireSliceNearlyEqual(t, res.Spectrum.Flux, want.Flux, 0)

		diff, err := testutil.MaxAbsDiff(res.Spectrum.Var, want.Var)
		if err != nil {
			t.Fatalf("MaxAbsDiff(%d): %v", res.Lenslet, err)
		}

		if diff != 0 {
			t.Fatalf("lenslet %d variance differs from direct extraction by %v", res.Lenslet, diff)
		}
	}
}

// TestReduceFailsFastOnBadInputs covers the construction-time checks that
// must fire before any per-lenslet work starts.
func TestReduceFailsFastOnBadInputs(t *testing.T) {
	tbl, grid, det := reduceFixture(t, 32)
	img := testutil.ConstantFrame(t, det.Nx, det.Ny, 1)

	smallVar := testutil.ConstantFrame(t, det.Nx-1, det.Ny, 1)
	if _, err := extract.Reduce(img, smallVar, tbl, grid, profile2()); !errors.Is(err, extract.ErrShapeMismatch) {
		t.Fatalf("Reduce with bad variance shape = %v, want ErrShapeMismatch", err)
	}

	narrow, err := wavegrid.New(wavegrid.Config{R: 50, Channels: 3, BlueLimit: 600, RedLimit: 720})
	if err != nil {
		t.Fatalf("wavegrid.New: %v", err)
	}

	if _, err := extract.Reduce(img, nil, tbl, narrow, profile2()); !errors.Is(err, extract.ErrGridMismatch) {
		t.Fatalf("Reduce with mismatched grid = %v, want ErrGridMismatch", err)
	}
}
