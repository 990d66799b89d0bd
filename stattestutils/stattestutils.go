//
// Copyright 2023 Google LLC
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

// Package stattestutils provides naive statistical reference computations
// for tests of the covariance releases.
//
// Nothing here is optimized or differentially private; the functions exist to
// check library results against a straightforward implementation.
package stattestutils

import (
	"math"
	mathrand "math/rand/v2"
)

// SampleMean returns the average of values, or 0 for an empty slice.
func SampleMean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / math.Max(1, float64(len(values)))
}

// SampleVariance returns the mean squared distance of values to their mean,
// i.e. the population variance with denominator n.
func SampleVariance(values []float64) float64 {
	mean := SampleMean(values)
	var sumOfSquares float64
	for _, v := range values {
		sumOfSquares += (v - mean) * (v - mean)
	}
	return sumOfSquares / math.Max(1, float64(len(values)))
}

// SampleCovariance returns the unbiased sample covariance of x and y,
//
//	Σ (x_k - mean(x)) (y_k - mean(y)) / (n - 1).
//
// It returns NaN when the slices differ in length or hold fewer than two
// values.
func SampleCovariance(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	mx, my := SampleMean(x), SampleMean(y)
	var sum float64
	for k := range x {
		sum += (x[k] - mx) * (y[k] - my)
	}
	return sum / float64(len(x)-1)
}

// Clamp returns a copy of values with each entry forced into [lower, upper].
func Clamp(values []float64, lower, upper float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Min(upper, math.Max(lower, v))
	}
	return out
}

// UniformColumn returns n values drawn uniformly from [lower, upper) using a
// generator seeded with seed.
func UniformColumn(seed uint64, n int, lower, upper float64) []float64 {
	r := mathrand.New(mathrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, n)
	for i := range out {
		out[i] = lower + (upper-lower)*r.Float64()
	}
	return out
}
