package extract

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/lanemeier7/crispy/ifs/cutout"
	"github.com/lanemeier7/crispy/ifs/frame"
	"github.com/lanemeier7/crispy/ifs/pixsol"
	"github.com/lanemeier7/crispy/ifs/profile"
	"github.com/lanemeier7/crispy/ifs/wavegrid"
)

// ErrGridMismatch is returned when the pixel-solution table and the
// wavelength grid disagree on the number of bins.
var ErrGridMismatch = errors.New("extract: table and grid bin counts differ")

// Result is the outcome of extracting one lenslet. Exactly one of
// Spectrum and Err is set; a failed lenslet never aborts its siblings.
type Result struct {
	Lenslet  int
	Spectrum *Spectrum
	Err      error
}

type reduceConfig struct {
	mode    Mode
	margin  int
	workers int
}

// Option configures Reduce.
type Option func(*reduceConfig)

// WithMode selects the extraction algorithm. Default is ModeOptimal.
func WithMode(m Mode) Option {
	return func(cfg *reduceConfig) { cfg.mode = m }
}

// WithMargin sets the cutout margin in pixels for PSF wings. Default 2.
func WithMargin(margin int) Option {
	return func(cfg *reduceConfig) {
		if margin >= 0 {
			cfg.margin = margin
		}
	}
}

// WithWorkers sets the number of concurrent extraction workers. Default
// is GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(cfg *reduceConfig) {
		if n > 0 {
			cfg.workers = n
		}
	}
}

// Reduce extracts every lenslet in the table from a detector frame,
// returning one Result per lenslet in lenslet-enumeration order.
//
// The model, table, and frames are read-only throughout, so lenslets are
// processed concurrently without locking: each worker writes only its own
// results. Per-lenslet failures (off-detector cutouts, degenerate fits)
// are recorded in the corresponding Result; construction-level problems
// fail fast before any extraction starts.
func Reduce(img, varmap *frame.Frame, tbl *pixsol.Table, grid *wavegrid.Grid, model profile.Model, opts ...Option) ([]Result, error) {
	if varmap != nil && !img.SameShape(varmap) {
		return nil, fmt.Errorf("%w: frame %dx%d, variance %dx%d",
			ErrShapeMismatch, img.Nx, img.Ny, varmap.Nx, varmap.Ny)
	}

	if tbl.NLam != grid.Channels() {
		return nil, fmt.Errorf("%w: table %d, grid %d", ErrGridMismatch, tbl.NLam, grid.Channels())
	}

	cfg := reduceConfig{
		mode:    ModeOptimal,
		margin:  2,
		workers: runtime.GOMAXPROCS(0),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	n := tbl.Lenslets()
	results := make([]Result, n)

	if cfg.workers > n {
		cfg.workers = n
	}

	var wg sync.WaitGroup

	for w := range cfg.workers {
		lo := w * n / cfg.workers
		hi := (w + 1) * n / cfg.workers

		wg.Add(1)

		go func(lo, hi int) {
			defer wg.Done()

			for lenslet := lo; lenslet < hi; lenslet++ {
				results[lenslet] = extractOne(img, varmap, tbl, grid, model, lenslet, cfg)
			}
		}(lo, hi)
	}

	wg.Wait()

	return results, nil
}

func extractOne(img, varmap *frame.Frame, tbl *pixsol.Table, grid *wavegrid.Grid, model profile.Model, lenslet int, cfg reduceConfig) Result {
	res := Result{Lenslet: lenslet}

	cut, err := cutout.Extract(img, tbl, lenslet, cfg.margin)
	if err != nil {
		res.Err = err
		return res
	}

	stack, err := model.Stack(cut)
	if err != nil {
		res.Err = fmt.Errorf("lenslet %d: %w", lenslet, err)
		return res
	}

	s, err := Extract(cut, stack, varmap, cfg.mode)
	if err != nil {
		res.Err = err
		return res
	}

	s.Lam = grid.Lam
	res.Spectrum = s

	return res
}
