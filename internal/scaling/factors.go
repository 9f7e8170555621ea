package scaling

import (
	"fmt"
	"math"
	"strconv"

	"spikenorm/internal/services"
	"spikenorm/internal/spikein"
)

// Factors derives one scaling factor per sample. With spike-in data every
// sample is scaled to the lowest count, factor[i] = min(counts) / counts[i],
// so the most diluted sample keeps factor 1 and the rest are scaled down.
// Without spike-in data every factor is 1.
func Factors(counts spikein.Counts, n int) ([]float64, error) {
	if n <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "scaling", "factors", "batch is empty", nil)
	}
	factors := make([]float64, n)
	if !counts.Present() {
		for i := range factors {
			factors[i] = 1
		}
		return factors, nil
	}
	if counts.Len() != n {
		return nil, services.Wrap(services.ErrConfiguration, "scaling", "factors",
			fmt.Sprintf("%d spike-in counts for %d samples", counts.Len(), n), nil)
	}

	minimum := math.Inf(1)
	for i, value := range counts.Values {
		if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
			return nil, services.Wrap(services.ErrValidation, "scaling", "factors",
				fmt.Sprintf("sample %d: spike-in count %s must be a positive finite number", i+1, Format(value)), nil)
		}
		minimum = math.Min(minimum, value)
	}
	for i, value := range counts.Values {
		factors[i] = minimum / value
		if factors[i] <= 0 {
			// Counts spanning more than the float64 range underflow to zero.
			return nil, services.Wrap(services.ErrValidation, "scaling", "factors",
				fmt.Sprintf("sample %d: spike-in count %g is too large relative to the lowest count %g", i+1, value, minimum), nil)
		}
	}
	return factors, nil
}

// Format renders a factor as the shortest decimal that parses back to the
// same float64.
func Format(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
