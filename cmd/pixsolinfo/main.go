// Command pixsolinfo summarizes a persisted pixel-solution table.
//
// Usage:
//
//	pixsolinfo [flags] table.fits
//
// It prints the lattice dimensions, the input fingerprint, and coverage
// statistics: how many footprints survived clipping and the detector
// region the table spans.
//
// Examples:
//
//	pixsolinfo pixsol.fits
//	pixsolinfo -lenslet 512 pixsol.fits
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lanemeier7/crispy/ifs/pixsol"
)

func main() {
	lenslet := flag.Int("lenslet", -1, "print per-wavelength footprints of one lenslet id")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pixsolinfo [flags] table.fits")
		flag.PrintDefaults()
		os.Exit(2)
	}

	tbl, err := pixsol.Load(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "pixsolinfo: %v\n", err)
		os.Exit(1)
	}

	if *lenslet >= 0 {
		if *lenslet >= tbl.Lenslets() {
			fmt.Fprintf(os.Stderr, "pixsolinfo: lenslet %d out of range (table has %d)\n", *lenslet, tbl.Lenslets())
			os.Exit(1)
		}

		printLenslet(tbl, *lenslet)

		return
	}

	printSummary(tbl)
}

func printSummary(tbl *pixsol.Table) {
	valid := 0
	xmin, xmax := int(^uint(0)>>1), 0
	ymin, ymax := int(^uint(0)>>1), 0

	for _, fp := range tbl.Foot {
		if !fp.OK {
			continue
		}

		valid++

		xmin = min(xmin, fp.Xmin)
		xmax = max(xmax, fp.Xmax)
		ymin = min(ymin, fp.Ymin)
		ymax = max(ymax, fp.Ymax)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "lattice\t%d x %d lenslets\n", tbl.NLens, tbl.NLens)
	fmt.Fprintf(w, "bins\t%d wavelengths\n", tbl.NLam)
	fmt.Fprintf(w, "fingerprint\t%016x\n", tbl.Fingerprint)
	fmt.Fprintf(w, "footprints\t%d of %d on detector (%.1f%%)\n",
		valid, len(tbl.Foot), 100*float64(valid)/float64(len(tbl.Foot)))

	if valid > 0 {
		fmt.Fprintf(w, "coverage\tx [%d, %d) y [%d, %d)\n", xmin, xmax, ymin, ymax)
	}

	w.Flush()
}

func printLenslet(tbl *pixsol.Table, lenslet int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "bin\tcentroid\tbox\t")

	for k, fp := range tbl.Lenslet(lenslet) {
		if !fp.OK {
			fmt.Fprintf(w, "%d\t(%.2f, %.2f)\toff detector\t\n", k, fp.X, fp.Y)
			continue
		}

		fmt.Fprintf(w, "%d\t(%.2f, %.2f)\tx [%d, %d) y [%d, %d)\t\n",
			k, fp.X, fp.Y, fp.Xmin, fp.Xmax, fp.Ymin, fp.Ymax)
	}

	w.Flush()
}
