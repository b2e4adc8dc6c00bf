package pixsol

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/astrogo/fitsio"
)

// ErrBadTable is returned when a persisted table fails structural checks.
var ErrBadTable = errors.New("pixsol: malformed pixel-solution table")

// Six values per (lenslet, wavelength) record, in persisted order.
const recordLen = 6

// Save writes the table to path as a single float64 FITS image HDU of
// shape (6, NLam, NLens*NLens): per record (centroid_x, centroid_y,
// bbox_xmin, bbox_xmax, bbox_ymin, bbox_ymax). Zero-area boxes encode the
// null-footprint marker. Lenslet enumeration order is fixed, so the
// persisted layout is deterministic.
func (t *Table) Save(path string) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pixsol: create %s: %w", path, err)
	}
	defer w.Close()

	out, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("pixsol: create FITS %s: %w", path, err)
	}
	defer out.Close()

	img := fitsio.NewImage(-64, []int{recordLen, t.NLam, t.NLens * t.NLens})
	defer img.Close()

	err = img.Header().Append(
		fitsio.Card{Name: "NLENS", Value: t.NLens, Comment: "lenslet lattice side length"},
		fitsio.Card{Name: "NLAM", Value: t.NLam, Comment: "wavelength bin count"},
		fitsio.Card{Name: "FPRINT", Value: fmt.Sprintf("%016x", t.Fingerprint), Comment: "input fingerprint"},
	)
	if err != nil {
		return fmt.Errorf("pixsol: write header %s: %w", path, err)
	}

	data := make([]float64, len(t.Foot)*recordLen)
	for i, fp := range t.Foot {
		off := i * recordLen
		data[off+0] = fp.X
		data[off+1] = fp.Y
		data[off+2] = float64(fp.Xmin)
		data[off+3] = float64(fp.Xmax)
		data[off+4] = float64(fp.Ymin)
		data[off+5] = float64(fp.Ymax)
	}

	if err := img.Write(&data); err != nil {
		return fmt.Errorf("pixsol: write table data %s: %w", path, err)
	}

	if err := out.Write(img); err != nil {
		return fmt.Errorf("pixsol: write HDU %s: %w", path, err)
	}

	return nil
}

// Load reads a table persisted by Save. The null-footprint marker (a
// zero-area box) is restored as OK=false.
func Load(path string) (*Table, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pixsol: open %s: %w", path, err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("pixsol: read FITS %s: %w", path, err)
	}
	defer f.Close()

	hdu := f.HDU(0)

	img, ok := hdu.(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%w: %s primary HDU is not an image", ErrBadTable, path)
	}

	hdr := img.Header()

	nlens, err := intCard(hdr, "NLENS")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadTable, path, err)
	}

	nlam, err := intCard(hdr, "NLAM")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadTable, path, err)
	}

	fingerprint, err := fingerprintCard(hdr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadTable, path, err)
	}

	axes := img.Header().Axes()
	if len(axes) != 3 || axes[0] != recordLen || axes[1] != nlam || axes[2] != nlens*nlens {
		return nil, fmt.Errorf("%w: %s has axes %v for NLENS=%d NLAM=%d", ErrBadTable, path, axes, nlens, nlam)
	}

	data := make([]float64, nlens*nlens*nlam*recordLen)
	if err := img.Read(&data); err != nil {
		return nil, fmt.Errorf("pixsol: read table data %s: %w", path, err)
	}

	t := &Table{
		NLens:       nlens,
		NLam:        nlam,
		Fingerprint: fingerprint,
		Foot:        make([]Footprint, nlens*nlens*nlam),
	}

	for i := range t.Foot {
		off := i * recordLen
		fp := Footprint{
			X:    data[off+0],
			Y:    data[off+1],
			Xmin: int(data[off+2]),
			Xmax: int(data[off+3]),
			Ymin: int(data[off+4]),
			Ymax: int(data[off+5]),
		}
		fp.OK = fp.Area() > 0
		t.Foot[i] = fp
	}

	return t, nil
}

func intCard(hdr *fitsio.Header, name string) (int, error) {
	card := hdr.Get(name)
	if card == nil {
		return 0, fmt.Errorf("missing %s card", name)
	}

	v, ok := card.Value.(int)
	if !ok || v <= 0 {
		return 0, fmt.Errorf("invalid %s card value %v", name, card.Value)
	}

	return v, nil
}

func fingerprintCard(hdr *fitsio.Header) (uint64, error) {
	card := hdr.Get("FPRINT")
	if card == nil {
		return 0, errors.New("missing FPRINT card")
	}

	s, ok := card.Value.(string)
	if !ok {
		return 0, fmt.Errorf("invalid FPRINT card value %v", card.Value)
	}

	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid FPRINT card value %q", s)
	}

	return v, nil
}
