// Package extract recovers calibrated 1-D spectra from lenslet cutouts.
//
// Two extraction algorithms are provided, selected by Mode:
//
//   - Optimal: Horne-style variance-weighted matched filtering. Each
//     wavelength bin is estimated independently from its own profile
//     template; fast and robust when templates barely overlap.
//   - LeastSquares: a single weighted linear solve over all templates,
//     which deblends overlapping neighbor bins at the cost of a dense
//     factorization per lenslet.
//
// Both paths share one explicit good-pixel mask (finite data, positive
// finite variance) and flag bins with no usable pixels as NaN flux with
// infinite variance rather than failing.
//
// # Usage
//
// Extract one lenslet:
//
//	cut, err := cutout.Extract(img, table, lenslet, 2)
//	stack, err := profile.GaussianModel{FWHM: 2}.Stack(cut)
//	spec, err := extract.Optimal(cut, stack, varmap)
//
// Or reduce a whole frame concurrently:
//
//	results, err := extract.Reduce(img, varmap, table, grid, model,
//	    extract.WithMode(extract.ModeLeastSquares))
//
// Reduce isolates per-lenslet failures: one lenslet falling off the
// detector or producing a degenerate fit never aborts the others.
package extract
