// Package spectrum builds wavenumber axes and persists spectra as CSV sidecars.
package spectrum

import "math"

// Axis returns n evenly spaced wavenumbers from start to end inclusive,
// rounded to two decimal places.
func Axis(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	axis := make([]float64, n)
	if n == 1 {
		axis[0] = round2(start)
		return axis
	}
	step := (end - start) / float64(n-1)
	for i := range axis {
		axis[i] = round2(start + step*float64(i))
	}
	axis[n-1] = round2(end)
	return axis
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
