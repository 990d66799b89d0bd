//
// Copyright 2025 Google LLC
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

// Package sensitivity computes global sensitivities of bounded estimators.
//
// Neighbouring datasets have the same, public number of rows n and differ in
// the value of exactly one row (bounded differential privacy). Every row is
// assumed to have been clamped into its declared bounds.
package sensitivity

import (
	"fmt"

	"github.com/google/differential-privacy/dpcov/checks"
	"github.com/google/differential-privacy/dpcov/column"
)

// Mean returns the sensitivity of the mean of n values clamped to b:
// (upper - lower) / n.
func Mean(b column.Bounds, n int64) (float64, error) {
	if err := b.Validate(); err != nil {
		return 0, fmt.Errorf("sensitivity.Mean: %w", err)
	}
	if err := checks.CheckCountPositive(n); err != nil {
		return 0, fmt.Errorf("sensitivity.Mean: %w", err)
	}
	return b.Width() / float64(n), nil
}

// Variance returns the sensitivity of the sample variance of n values clamped
// to b: (upper - lower)² / (n - 1).
func Variance(b column.Bounds, n int64) (float64, error) {
	return Covariance(b, b, n)
}

// Covariance returns the sensitivity of the sample covariance of two columns
// of n rows clamped to bi and bj:
//
//	Δ(i, j) = (hi_i - lo_i) * (hi_j - lo_j) / (n - 1)
func Covariance(bi, bj column.Bounds, n int64) (float64, error) {
	if err := bi.Validate(); err != nil {
		return 0, fmt.Errorf("sensitivity.Covariance: %w", err)
	}
	if err := bj.Validate(); err != nil {
		return 0, fmt.Errorf("sensitivity.Covariance: %w", err)
	}
	if err := checks.CheckCountForCovariance(n); err != nil {
		return 0, fmt.Errorf("sensitivity.Covariance: %w", err)
	}
	delta := bi.Width() * bj.Width() / float64(n-1)
	if err := checks.CheckSensitivity(delta); err != nil {
		return 0, fmt.Errorf("sensitivity.Covariance: widths %e and %e over %d rows: %w", bi.Width(), bj.Width(), n, err)
	}
	return delta, nil
}
