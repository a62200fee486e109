package stats

import "math"

// MeanStdDev returns the mean and population standard deviation of values.
// Both are zero for an empty slice.
func MeanStdDev(values []float64) (mean, stdDev float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// FilteredMean averages the values lying within sigma standard deviations of
// the mean. If filtering leaves nothing, the plain mean is returned.
// The second result is the number of samples that survived the filter.
func FilteredMean(values []float64, sigma float64) (float64, int) {
	if len(values) == 0 {
		return 0, 0
	}

	mean, std := MeanStdDev(values)
	limit := sigma * std

	var sum float64
	kept := 0
	for _, v := range values {
		if math.Abs(v-mean) <= limit {
			sum += v
			kept++
		}
	}
	if kept == 0 {
		return mean, 0
	}
	return sum / float64(kept), kept
}
