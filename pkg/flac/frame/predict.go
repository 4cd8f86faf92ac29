// ABOUTME: Prediction reconstruction for fixed and LPC subframes
// ABOUTME: Wide-accumulator dot product, arithmetic shift, residual add
package frame

import (
	"fmt"
	"math"
)

// fixedCoeffs are the binomial-difference coefficients of the five fixed
// polynomial predictors, ordered most recent sample first.
var fixedCoeffs = [5][]int32{
	1: {1},
	2: {2, -1},
	3: {3, -3, 1},
	4: {4, -6, 4, -1},
}

// The prediction accumulator must hold up to 32 products of a 15-bit
// signed coefficient and a 33-bit signed sample. These constants refuse to
// compile if that sum cannot be represented in int64.
const (
	maxPredictorOrder   = 32
	maxCoeffMagnitude   = 1 << 14
	maxSampleMagnitude  = 1 << 32
	maxPredictionSum    = int64(maxPredictorOrder) * maxCoeffMagnitude * maxSampleMagnitude
	accumulatorHeadroom = math.MaxInt64 - maxPredictionSum
	_ensureNonNegative  = uint64(accumulatorHeadroom)
)

// reconstruct turns warm-up samples plus residuals into the channel's
// signal, in place. samples holds len(coeffs) warm-up values followed by
// residuals. For each position the predictor computes the dot product of
// the coefficients with the preceding samples, applies the sign-preserving
// right shift, then adds the residual. The order of those operations is
// fixed; deviating changes the decoded signal.
func reconstruct(samples []int32, coeffs []int32, shift uint) error {
	order := len(coeffs)
	for i := order; i < len(samples); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += int64(c) * int64(samples[i-1-j])
		}
		v := sum>>shift + int64(samples[i])
		if v < math.MinInt32 || v > math.MaxInt32 {
			return fmt.Errorf("%w: predicted sample at index %d out of range", ErrArithmeticOverflow, i)
		}
		samples[i] = int32(v)
	}
	return nil
}
