package indicator

import "math"

// StdDev calculates the rolling population standard deviation.
// Uses running sums of x and x² for O(n) total work; the variance is
// clamped at zero to absorb floating-point cancellation on flat windows.
func StdDev(values []float64, window int) []float64 {
	out := warmup(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	sum, sumSq := 0.0, 0.0
	for i, v := range values {
		sum += v
		sumSq += v * v
		if i >= window {
			old := values[i-window]
			sum -= old
			sumSq -= old * old
		}
		if i >= window-1 {
			n := float64(window)
			mean := sum / n
			variance := sumSq/n - mean*mean
			if variance < 0 {
				variance = 0
			}
			out[i] = math.Sqrt(variance)
		}
	}
	return out
}

// Bollinger calculates Bollinger Bands: a rolling SMA middle band and
// outer bands at ± k rolling population standard deviations.
func Bollinger(values []float64, window int, k float64) (middle, upper, lower []float64) {
	middle = SMA(values, window)
	std := StdDev(values, window)
	n := len(values)
	upper = warmup(n)
	lower = warmup(n)
	for i := 0; i < n; i++ {
		if Defined(middle[i]) && Defined(std[i]) {
			upper[i] = middle[i] + k*std[i]
			lower[i] = middle[i] - k*std[i]
		}
	}
	return middle, upper, lower
}
