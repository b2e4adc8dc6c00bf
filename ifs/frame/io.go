package frame

import (
	"errors"
	"fmt"
	"os"

	"github.com/astrogo/fitsio"
)

// ErrNotImage is returned when a FITS HDU does not hold a 2-D image.
var ErrNotImage = errors.New("frame: FITS HDU is not a 2-D image")

// Load reads a frame from the primary HDU of a FITS file. Integer and
// float pixel types are all widened to float64.
func Load(path string) (*Frame, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frame: open %s: %w", path, err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("frame: read FITS %s: %w", path, err)
	}
	defer f.Close()

	hdu := f.HDU(0)

	img, ok := hdu.(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, path)
	}

	axes := img.Header().Axes()
	if len(axes) != 2 || axes[0] <= 0 || axes[1] <= 0 {
		return nil, fmt.Errorf("%w: %s has axes %v", ErrNotImage, path, axes)
	}

	data := make([]float64, axes[0]*axes[1])
	if err := img.Read(&data); err != nil {
		return nil, fmt.Errorf("frame: read image data %s: %w", path, err)
	}

	return FromData(axes[0], axes[1], data)
}

// Save writes the frame to path as a float64 primary FITS HDU,
// overwriting any existing file.
func (f *Frame) Save(path string) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("frame: create %s: %w", path, err)
	}
	defer w.Close()

	out, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("frame: create FITS %s: %w", path, err)
	}
	defer out.Close()

	img := fitsio.NewImage(-64, []int{f.Nx, f.Ny})
	defer img.Close()

	if err := img.Write(&f.Data); err != nil {
		return fmt.Errorf("frame: write image data %s: %w", path, err)
	}

	if err := out.Write(img); err != nil {
		return fmt.Errorf("frame: write HDU %s: %w", path, err)
	}

	return nil
}
