// Package indicator provides rolling technical indicator calculations over
// price slices.
//
// Every function returns a slice aligned with its input: the first window-1
// entries are undefined and hold the NaN marker rather than a silent zero.
// Use Defined to test entries before comparing them. All functions are pure;
// standard deviations are population (not sample) throughout.
package indicator

import "math"

// Undefined is the "not yet available" marker used for warm-up entries.
func Undefined() float64 { return math.NaN() }

// Defined reports whether an indicator entry holds a real value.
func Defined(v float64) bool { return !math.IsNaN(v) }

// warmup allocates an output slice with every entry undefined.
func warmup(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
