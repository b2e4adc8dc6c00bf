package extract

import (
	"errors"
	"fmt"

	"github.com/lanemeier7/crispy/ifs/cutout"
	"github.com/lanemeier7/crispy/ifs/frame"
	"github.com/lanemeier7/crispy/ifs/profile"
)

// ErrUnknownMode is returned for an unrecognized extraction mode.
var ErrUnknownMode = errors.New("extract: unknown extraction mode")

// Mode selects the extraction algorithm applied to a cutout.
type Mode int

const (
	// ModeOptimal is the variance-weighted matched filter.
	ModeOptimal Mode = iota
	// ModeLeastSquares solves the weighted linear system over all
	// templates at once.
	ModeLeastSquares
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeOptimal:
		return "optimal"
	case ModeLeastSquares:
		return "lstsq"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Extract dispatches to the extractor selected by mode.
func Extract(cut *cutout.Cutout, stack *profile.Stack, varmap *frame.Frame, mode Mode) (*Spectrum, error) {
	switch mode {
	case ModeOptimal:
		return Optimal(cut, stack, varmap)
	case ModeLeastSquares:
		return LeastSquares(cut, stack, varmap)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}
}
