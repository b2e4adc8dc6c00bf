package wavegrid

import (
	"errors"
	"math"
	"testing"
)

func TestNewGridShapeAndEndpoints(t *testing.T) {
	cfg := Config{R: 50, Channels: 19, BlueLimit: 600, RedLimit: 720}

	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if len(g.Lam) != cfg.Channels {
		t.Fatalf("midpoint count = %d, want %d", len(g.Lam), cfg.Channels)
	}

	if len(g.Edges) != cfg.Channels+1 {
		t.Fatalf("edge count = %d, want %d", len(g.Edges), cfg.Channels+1)
	}

	if g.Edges[0] != cfg.BlueLimit {
		t.Fatalf("blue edge = %v, want exactly %v", g.Edges[0], cfg.BlueLimit)
	}

	if g.Edges[len(g.Edges)-1] != cfg.RedLimit {
		t.Fatalf("red edge = %v, want exactly %v", g.Edges[len(g.Edges)-1], cfg.RedLimit)
	}

	for i := 0; i+1 < len(g.Edges); i++ {
		if g.Edges[i+1] <= g.Edges[i] {
			t.Fatalf("edges not ascending at %d: %v >= %v", i, g.Edges[i], g.Edges[i+1])
		}
	}

	for i := 0; i+1 < len(g.Lam); i++ {
		if g.Lam[i+1] <= g.Lam[i] {
			t.Fatalf("midpoints not ascending at %d", i)
		}
	}

	for i, lam := range g.Lam {
		if lam <= g.Edges[i] || lam >= g.Edges[i+1] {
			t.Fatalf("midpoint %d = %v outside bin [%v, %v]", i, lam, g.Edges[i], g.Edges[i+1])
		}
	}
}

func TestNewGridConstantResolvingPower(t *testing.T) {
	g, err := New(Config{R: 70, Channels: 25, BlueLimit: 600, RedLimit: 720})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// The endpoint rescale happens in log space, so the edge ratio is a
	// single constant up to rounding.
	want := g.Edges[1] / g.Edges[0]
	for i := 1; i+1 < len(g.Edges); i++ {
		ratio := g.Edges[i+1] / g.Edges[i]
		if math.Abs(ratio-want) > 1e-12 {
			t.Fatalf("edge ratio %d = %v, want %v", i, ratio, want)
		}
	}
}

func TestNewGridReproducible(t *testing.T) {
	cfg := Config{R: 50, Channels: 19, BlueLimit: 600, RedLimit: 720}

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			t.Fatalf("edge %d differs between identical builds", i)
		}
	}

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("fingerprint differs between identical builds")
	}
}

func TestNewGridRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"zero channels", Config{R: 50, Channels: 0, BlueLimit: 600, RedLimit: 720}, ErrChannelCount},
		{"negative channels", Config{R: 50, Channels: -3, BlueLimit: 600, RedLimit: 720}, ErrChannelCount},
		{"zero R", Config{R: 0, Channels: 10, BlueLimit: 600, RedLimit: 720}, ErrResolvingPower},
		{"negative R", Config{R: -1, Channels: 10, BlueLimit: 600, RedLimit: 720}, ErrResolvingPower},
		{"inverted band", Config{R: 50, Channels: 10, BlueLimit: 720, RedLimit: 600}, ErrBandpass},
		{"zero blue", Config{R: 50, Channels: 10, BlueLimit: 0, RedLimit: 600}, ErrBandpass},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); !errors.Is(err, tc.want) {
				t.Fatalf("New(%+v) = %v, want %v", tc.cfg, err, tc.want)
			}
		})
	}
}

func TestFingerprintDistinguishesGrids(t *testing.T) {
	a, err := New(Config{R: 50, Channels: 19, BlueLimit: 600, RedLimit: 720})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b, err := New(Config{R: 50, Channels: 20, BlueLimit: 600, RedLimit: 720})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if a.Fingerprint() == b.Fingerprint() {
		t.Fatalf("different grids share a fingerprint")
	}
}

func TestHalfWidth(t *testing.T) {
	g, err := New(Config{R: 50, Channels: 4, BlueLimit: 600, RedLimit: 650})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := range g.Lam {
		want := 0.5 * (g.Edges[i+1] - g.Edges[i])
		if g.HalfWidth(i) != want {
			t.Fatalf("HalfWidth(%d) = %v, want %v", i, g.HalfWidth(i), want)
		}
	}
}
