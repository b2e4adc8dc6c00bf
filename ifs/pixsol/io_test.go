package pixsol_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanemeier7/crispy/ifs/pixsol"
)

// TestSaveLoadRoundtrip verifies that a persisted table reloads exactly,
// including null-footprint markers and the fingerprint.
func TestSaveLoadRoundtrip(t *testing.T) {
	grid := testGrid(t)

	// Off-center so the roundtrip covers both clipped and null footprints.
	model := testModel(t, 4, 16, 12)
	det := pixsol.Detector{Nx: 32, Ny: 32}

	tbl, err := pixsol.Generate(model, grid, det, testGeometry())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pixsol.fits")
	require.NoError(t, tbl.Save(path))

	got, err := pixsol.Load(path)
	require.NoError(t, err)

	if diff := cmp.Diff(tbl, got); diff != "" {
		t.Fatalf("table mismatch after roundtrip (-saved +loaded):\n%s", diff)
	}

	require.NoError(t, got.Verify(pixsol.Fingerprint(model, grid, det, testGeometry())))
}

// TestLoadMissingFile verifies the error path for an absent table.
func TestLoadMissingFile(t *testing.T) {
	_, err := pixsol.Load(filepath.Join(t.TempDir(), "absent.fits"))
	assert.Error(t, err)
}
