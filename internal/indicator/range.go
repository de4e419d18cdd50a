package indicator

// RollingMax calculates the N-bar rolling maximum (inclusive of the
// current value). Window scan per bar — fine at breakout window sizes.
func RollingMax(values []float64, window int) []float64 {
	out := warmup(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		max := values[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if values[j] > max {
				max = values[j]
			}
		}
		out[i] = max
	}
	return out
}

// RollingMin calculates the N-bar rolling minimum (inclusive of the
// current value).
func RollingMin(values []float64, window int) []float64 {
	out := warmup(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		min := values[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if values[j] < min {
				min = values[j]
			}
		}
		out[i] = min
	}
	return out
}

// Momentum calculates the N-bar fractional price change:
// values[i]/values[i-period] - 1. Defined from index period.
func Momentum(values []float64, period int) []float64 {
	out := warmup(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}
	for i := period; i < len(values); i++ {
		if values[i-period] != 0 {
			out[i] = values[i]/values[i-period] - 1
		}
	}
	return out
}
