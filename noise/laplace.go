//
// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package noise

import (
	"fmt"
	"math"

	"github.com/google/differential-privacy/dpcov/checks"
	"github.com/google/differential-privacy/dpcov/rand"
)

// granularityParam determines the resolution of the numerical noise that is
// being generated relative to the sensitivity and privacy parameter epsilon.
// More precisely, the granularity parameter corresponds to the value 2ᵏ described in
// https://github.com/google/differential-privacy/blob/main/common_docs/Secure_Noise_Generation.pdf.
// Larger values result in more fine grained noise, but increase the chance of
// sampling inaccuracies due to overflows. The probability of an overflow is less
// than 2⁻¹⁰⁰⁰, if the granularity parameter is set to a value of 2⁴⁰ or less and
// the epsilon passed to AddNoise is at least 2⁻⁵⁰.
//
// This parameter should be a power of 2.
var granularityParam = math.Exp2(40)

// Laplace adds Laplace noise with location 0 and scale Δ/ε.
//
// The noise is based on a geometric sampling mechanism that is robust against
// unintentional privacy leaks due to artifacts of floating point arithmetic. See
// https://github.com/google/differential-privacy/blob/main/common_docs/Secure_Noise_Generation.pdf
// for more information.
//
// Not thread-safe: every Laplace owns one generator stream.
type Laplace struct {
	g *rand.Generator
}

// NewLaplace returns a Laplace mechanism drawing from g. A nil g draws from a
// fresh stream of rand.Secure().
func NewLaplace(g *rand.Generator) *Laplace {
	if g == nil {
		g = rand.Secure().Stream(0)
	}
	return &Laplace{g: g}
}

// AddNoise adds Laplace noise to x so that the output is ε-differentially
// private given the L_1 sensitivity of x. x is first rounded to the
// granularity of the noise.
func (l *Laplace) AddNoise(x, sensitivity, epsilon float64) (float64, error) {
	if err := checkArgsLaplace(sensitivity, epsilon); err != nil {
		return 0, fmt.Errorf("Laplace.AddNoise: %w", err)
	}
	return l.addLaplace(x, epsilon, sensitivity), nil
}

// Draw returns a single sample of Laplace noise with scale sensitivity/epsilon.
func (l *Laplace) Draw(sensitivity, epsilon float64) (float64, error) {
	if err := checkArgsLaplace(sensitivity, epsilon); err != nil {
		return 0, fmt.Errorf("Laplace.Draw: %w", err)
	}
	return l.addLaplace(0, epsilon, sensitivity), nil
}

// Scale returns the scale parameter λ = sensitivity/epsilon.
func (l *Laplace) Scale(sensitivity, epsilon float64) (float64, error) {
	if err := checkArgsLaplace(sensitivity, epsilon); err != nil {
		return 0, fmt.Errorf("Laplace.Scale: %w", err)
	}
	return sensitivity / epsilon, nil
}

func (*Laplace) String() string {
	return "Laplace Noise"
}

// LaplaceConfidenceInterval computes a confidence interval that contains the
// raw value x from which noisedX was computed with probability 1 - alpha,
// given the scale λ of the Laplace noise that was added.
//
// See https://github.com/google/differential-privacy/tree/main/common_docs/confidence_intervals.md.
func LaplaceConfidenceInterval(noisedX, lambda, alpha float64) (ConfidenceInterval, error) {
	if err := checks.CheckAlpha(alpha); err != nil {
		return ConfidenceInterval{}, err
	}
	if err := checks.CheckSensitivity(lambda); err != nil {
		return ConfidenceInterval{}, fmt.Errorf("scale of the noise: %w", err)
	}
	return computeConfidenceIntervalLaplace(noisedX, lambda, alpha), nil
}

func checkArgsLaplace(sensitivity, epsilon float64) error {
	if err := checks.CheckSensitivity(sensitivity); err != nil {
		return err
	}
	if err := checks.CheckEpsilonVeryStrict(epsilon); err != nil {
		return err
	}
	if math.IsInf(sensitivity/epsilon, 0) {
		return fmt.Errorf("Scale %e/%e overflows float64: %w", sensitivity, epsilon, checks.ErrInvalidSensitivity)
	}
	return nil
}

// addLaplace adds Laplace noise scaled to the given epsilon and l1Sensitivity to x.
func (l *Laplace) addLaplace(x, epsilon, l1Sensitivity float64) float64 {
	granularity := ceilPowerOfTwo((l1Sensitivity / epsilon) / granularityParam)
	sample := l.twoSidedGeometric(granularity * epsilon / (l1Sensitivity + granularity))
	return roundToMultipleOfPowerOfTwo(x, granularity) + float64(sample)*granularity
}

// computeConfidenceIntervalLaplace computes a confidence interval that contains the raw value x from which
// float64 noisedX is computed with a probability equal to 1 - alpha with the given lambda.
func computeConfidenceIntervalLaplace(noisedX float64, lambda, alpha float64) ConfidenceInterval {
	z := inverseCDFLaplace(lambda, alpha/2)
	// Because of the symmetry of the Laplace distribution, -z corresponds to the
	// (1 - alpha/2)-quantile of the distribution, meaning that the interval [z, -z]
	// contains 1-alpha of the probability mass. alpha/2 is more accurately
	// representable than 1 - alpha/2 for the small alphas used in practice.
	return ConfidenceInterval{LowerBound: noisedX + z, UpperBound: noisedX - z}
}

// inverseCDFLaplace computes the quantile z satisfying Pr[Y <= z] = p for a random variable Y
// that is Laplace distributed with the specified lambda where mean is zero.
func inverseCDFLaplace(lambda, p float64) float64 {
	if p < 0.5 {
		return lambda * math.Log(2*p)
	}
	return -lambda * math.Log(2*(1-p))
}

// geometric draws a sample drawn from a geometric distribution with parameter
//
//	p = 1 - e^-λ.
//
// More precisely, it returns the number of Bernoulli trials until the first success
// where the success probability is p = 1 - e^-λ. The returned sample is truncated
// to the max int64 value.
//
// Note that to ensure that a truncation happens with probability less than 10⁻⁶,
// λ must be greater than 2⁻⁵⁹.
func (l *Laplace) geometric(lambda float64) int64 {
	if l.g.Uniform() > -1.0*math.Expm1(-1.0*lambda*math.MaxInt64) {
		return math.MaxInt64
	}

	// Binary search for the sample in (left, right]. Each iteration keeps the
	// left or the right subinterval according to the probability of the sample
	// lying in it, until a single value remains.
	var left int64 = 0              // exclusive bound
	var right int64 = math.MaxInt64 // inclusive bound

	for left+1 < right {
		// Midpoint splitting the probability mass of the interval roughly in
		// half; it is at most the arithmetic mean, which shortens the search
		// for large success probabilities.
		mid := left - int64(math.Floor((math.Log(0.5)+math.Log1p(math.Exp(lambda*float64(left-right))))/lambda))
		// Keep mid inside the interval despite rounding.
		if mid <= left {
			mid = left + 1
		} else if mid >= right {
			mid = right - 1
		}

		// q = Pr[X ≤ mid | left < X ≤ right], approximately one half.
		q := math.Expm1(lambda*float64(left-mid)) / math.Expm1(lambda*float64(left-right))
		if l.g.Uniform() <= q {
			right = mid
		} else {
			left = mid
		}
	}
	return right
}

// twoSidedGeometric draws a sample from a geometric distribution that is
// mirrored at 0. The non-negative part of the distribution's PDF matches
// the PDF of a geometric distribution of parameter p = 1 - e^-λ that is
// shifted to the left by 1 and scaled accordingly.
func (l *Laplace) twoSidedGeometric(lambda float64) int64 {
	var sample int64 = 0
	var sign int64 = -1
	// Keep a sample of 0 only if the sign is positive. Otherwise, the
	// probability of 0 would be twice as high as it should be.
	for sample == 0 && sign == -1 {
		sample = l.geometric(lambda) - 1
		sign = int64(l.g.Sign())
	}
	return sample * sign
}

// ceilPowerOfTwo returns the smallest power of 2 larger or equal to x. The
// value of x must be a finite positive number not greater than 2^1023. The
// result is an exact power of 2, or NaN outside the domain.
func ceilPowerOfTwo(x float64) float64 {
	if x <= 0.0 || math.IsInf(x, 0) || math.IsNaN(x) {
		return math.NaN()
	}

	// float64 layout is "1*s 11*e 52*m" (sign, exponent, mantissa).
	const (
		exponentMask uint64 = 0x7ff0000000000000
		mantissaMask uint64 = 0x000fffffffffffff
	)

	bits := math.Float64bits(x)
	// A finite positive number is a power of 2 iff its mantissa is 0.
	if bits&mantissaMask == 0 {
		return x
	}

	exponentBits := bits & exponentMask
	if exponentBits >= math.Float64bits(math.MaxFloat64)&exponentMask {
		return math.NaN()
	}
	// Bump the exponent by one and drop the mantissa.
	return math.Float64frombits(exponentBits + 0x0010000000000000)
}

// roundToMultipleOfPowerOfTwo returns a multiple of granularity that is
// closest to x. granularity must be an exact power of 2.
func roundToMultipleOfPowerOfTwo(x, granularity float64) float64 {
	return math.Round(x/granularity) * granularity
}
