package indicator

// MACD calculates the MACD line (fast EMA - slow EMA), its signal line
// (EMA of the MACD line), and the histogram (line - signal).
// The line is defined from index slow-1, the signal and histogram from
// index slow+signalPeriod-2.
func MACD(values []float64, fast, slow, signalPeriod int) (line, signal, histogram []float64) {
	n := len(values)
	line = warmup(n)
	signal = warmup(n)
	histogram = warmup(n)
	if fast <= 0 || slow <= 0 || signalPeriod <= 0 || n < slow {
		return line, signal, histogram
	}

	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	for i := slow - 1; i < n; i++ {
		line[i] = emaFast[i] - emaSlow[i]
	}

	signal = emaFrom(line, signalPeriod)
	for i := range histogram {
		if Defined(line[i]) && Defined(signal[i]) {
			histogram[i] = line[i] - signal[i]
		}
	}
	return line, signal, histogram
}
