package feature

import "math"

// standardScaler captures per-column mean and population standard deviation
// for the numeric feature block.
type standardScaler struct {
	means  []float64
	scales []float64
}

// fitScaler computes column statistics over the fit-time rows. A constant
// column keeps scale 1 so standardization maps it to zero rather than NaN.
func fitScaler(rows [][numericCount]float64) standardScaler {
	means := make([]float64, numericCount)
	scales := make([]float64, numericCount)

	n := float64(len(rows))
	for _, row := range rows {
		for j := 0; j < numericCount; j++ {
			means[j] += row[j]
		}
	}
	for j := range means {
		means[j] /= n
	}

	for _, row := range rows {
		for j := 0; j < numericCount; j++ {
			d := row[j] - means[j]
			scales[j] += d * d
		}
	}
	for j := range scales {
		scales[j] = math.Sqrt(scales[j] / n)
		if scales[j] == 0 {
			scales[j] = 1
		}
	}

	return standardScaler{means: means, scales: scales}
}
