package extract_test

import (
	"fmt"

	"github.com/lanemeier7/crispy/ifs/cutout"
	"github.com/lanemeier7/crispy/ifs/extract"
	"github.com/lanemeier7/crispy/ifs/frame"
	"github.com/lanemeier7/crispy/ifs/pixsol"
	"github.com/lanemeier7/crispy/ifs/profile"
)

func ExampleOptimal() {
	// A single wavelength bin whose footprint covers a 5x5 window with a
	// flat profile: every pixel carries 1/25 of the lenslet's light.
	img, err := frame.New(5, 5)
	if err != nil {
		panic(err)
	}

	varmap, err := frame.New(5, 5)
	if err != nil {
		panic(err)
	}

	for i := range img.Data {
		img.Data[i] = 1
		varmap.Data[i] = 1
	}

	tbl := &pixsol.Table{
		NLens: 1,
		NLam:  1,
		Foot: []pixsol.Footprint{
			{X: 2, Y: 2, Xmin: 0, Xmax: 5, Ymin: 0, Ymax: 5, OK: true},
		},
	}

	cut, err := cutout.Extract(img, tbl, 0, 0)
	if err != nil {
		panic(err)
	}

	w := make([]float64, 25)
	for i := range w {
		w[i] = 1.0 / 25
	}

	spec, err := extract.Optimal(cut, &profile.Stack{Bounds: cut.Bounds, W: [][]float64{w}}, varmap)
	if err != nil {
		panic(err)
	}

	fmt.Printf("flux: %.0f\n", spec.Flux[0])
	fmt.Printf("variance: %.0f\n", spec.Var[0])
	// Output:
	// flux: 25
	// variance: 25
}
