package indicator

// SMA calculates the Simple Moving Average over a rolling window.
// Uses a running sum for O(n) total work.
func SMA(values []float64, window int) []float64 {
	out := warmup(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA calculates the Exponential Moving Average, seeded with the simple
// average of the first window values.
func EMA(values []float64, window int) []float64 {
	out := warmup(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	sum := 0.0
	for i := 0; i < window; i++ {
		sum += values[i]
	}
	prev := sum / float64(window)
	out[window-1] = prev

	mult := 2.0 / float64(window+1)
	for i := window; i < len(values); i++ {
		prev = values[i]*mult + prev*(1-mult)
		out[i] = prev
	}
	return out
}

// emaFrom computes an EMA over a slice whose leading entries may be
// undefined, starting the seed window at the first defined entry.
// Used for the MACD signal line, which runs over the MACD line itself.
func emaFrom(values []float64, window int) []float64 {
	out := warmup(len(values))
	start := -1
	for i, v := range values {
		if Defined(v) {
			start = i
			break
		}
	}
	if start < 0 || len(values)-start < window {
		return out
	}
	sub := EMA(values[start:], window)
	copy(out[start:], sub)
	return out
}
