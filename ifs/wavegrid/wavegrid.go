// Package wavegrid builds the wavelength sampling used by the calibration
// and extraction pipeline: N bin midpoints and N+1 bin edges spanning the
// instrument bandpass at constant resolving power.
package wavegrid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
)

// Errors returned by grid construction.
var (
	ErrChannelCount   = errors.New("wavegrid: channel count must be positive")
	ErrResolvingPower = errors.New("wavegrid: resolving power must be positive")
	ErrBandpass       = errors.New("wavegrid: bandpass limits must satisfy 0 < blue < red")
	ErrNonMonotonic   = errors.New("wavegrid: computed edges are not strictly increasing")
)

// Config describes the requested spectral sampling.
type Config struct {
	// R is the resolving power; bin width scales as lambda/R.
	R float64
	// Channels is the number of spectral bins N.
	Channels int
	// BlueLimit and RedLimit are the bandpass endpoints in nm.
	BlueLimit float64
	RedLimit  float64
}

// Grid holds an ordered wavelength sampling. Lam has Channels midpoints,
// Edges has Channels+1 bin boundaries; both are strictly increasing and
// immutable once built.
type Grid struct {
	Lam   []float64
	Edges []float64
}

// New builds a constant-resolving-power grid for cfg. Raw edges follow
// edge[i+1]/edge[i] = 1 + 1/R, then the sequence is rescaled in log space
// so the first and last edges land exactly on the configured bandpass
// limits. The log-space rescale maps the raw geometric steps onto a single
// constant ratio, edge[i] = Blue * (Red/Blue)^(i/N), so the relative bin
// width 1/R stays uniform across the band.
func New(cfg Config) (*Grid, error) {
	if cfg.Channels <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrChannelCount, cfg.Channels)
	}

	if cfg.R <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrResolvingPower, cfg.R)
	}

	if cfg.BlueLimit <= 0 || cfg.RedLimit <= cfg.BlueLimit {
		return nil, fmt.Errorf("%w: got [%g, %g]", ErrBandpass, cfg.BlueLimit, cfg.RedLimit)
	}

	n := cfg.Channels
	span := cfg.RedLimit / cfg.BlueLimit

	edges := make([]float64, n+1)
	edges[0] = cfg.BlueLimit

	for i := 1; i < n; i++ {
		edges[i] = cfg.BlueLimit * math.Pow(span, float64(i)/float64(n))
	}

	edges[n] = cfg.RedLimit

	for i := 0; i < n; i++ {
		if !(edges[i+1] > edges[i]) {
			return nil, fmt.Errorf("%w: edge[%d]=%g, edge[%d]=%g",
				ErrNonMonotonic, i, edges[i], i+1, edges[i+1])
		}
	}

	lam := make([]float64, n)
	for i := range lam {
		lam[i] = 0.5 * (edges[i] + edges[i+1])
	}

	return &Grid{Lam: lam, Edges: edges}, nil
}

// Channels returns the number of spectral bins.
func (g *Grid) Channels() int {
	return len(g.Lam)
}

// HalfWidth returns half the width of bin i in nm.
func (g *Grid) HalfWidth(i int) float64 {
	return 0.5 * (g.Edges[i+1] - g.Edges[i])
}

// Fingerprint returns a stable 64-bit hash of the grid edges, used to key
// derived artifacts such as persisted pixel-solution tables.
func (g *Grid) Fingerprint() uint64 {
	h := fnv.New64a()

	var buf [8]byte
	for _, e := range g.Edges {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(e))
		h.Write(buf[:])
	}

	return h.Sum64()
}
