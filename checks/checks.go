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

// Package checks contains checks for differentially private functions.
//
// Every check returns an error wrapping one of the sentinel errors below, so
// that callers can classify failures with errors.Is.
package checks

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidBounds reports a lower bound that is not strictly below the
	// upper bound, or a bound that is not finite.
	ErrInvalidBounds = errors.New("invalid bounds")
	// ErrNonPositiveN reports a row count too small for the statistic.
	ErrNonPositiveN = errors.New("non-positive row count")
	// ErrNonPositiveEpsilon reports an epsilon that is not strictly positive and finite.
	ErrNonPositiveEpsilon = errors.New("non-positive epsilon")
	// ErrDimensionMismatch reports vectors or columns whose lengths disagree.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrConfiguration reports a missing or malformed required input.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidSensitivity reports a sensitivity that is not strictly positive and finite.
	ErrInvalidSensitivity = errors.New("invalid sensitivity")
	// ErrNaNValue reports a NaN entry in a column; NaN cannot be clamped.
	ErrNaNValue = errors.New("NaN value")
)

const (
	epsilonName = "Epsilon"
	countName   = "Count"
)

func verifyName(defaultName string, nameSlice []string) (string, error) {
	var name string
	switch len(nameSlice) {
	case 0:
		name = defaultName
	case 1:
		name = nameSlice[0]
	default:
		return "", fmt.Errorf("This should never happen. There should be 0 or 1 'name' parameter, got %d", len(nameSlice))
	}
	return name, nil
}

// CheckEpsilonVeryStrict returns an error if ε is +∞ or less than 2⁻⁵⁰.
func CheckEpsilonVeryStrict(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon < math.Exp2(-50.0) || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("%s is %e, must be at least 2^-50 and finite: %w", epsName, epsilon, ErrNonPositiveEpsilon)
	}
	return nil
}

// CheckEpsilonStrict returns an error if ε is nonpositive or +∞.
func CheckEpsilonStrict(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("%s is %f, must be strictly positive and finite: %w", epsName, epsilon, ErrNonPositiveEpsilon)
	}
	return nil
}

// CheckBoundsFloat64 returns an error if lower is not strictly smaller than
// upper, or if either parameter is NaN or ±∞.
func CheckBoundsFloat64(lower, upper float64) error {
	if math.IsNaN(lower) {
		return fmt.Errorf("Lower bound cannot be NaN: %w", ErrInvalidBounds)
	}
	if math.IsNaN(upper) {
		return fmt.Errorf("Upper bound cannot be NaN: %w", ErrInvalidBounds)
	}
	if math.IsInf(lower, 0) {
		return fmt.Errorf("Lower bound cannot be infinity: %w", ErrInvalidBounds)
	}
	if math.IsInf(upper, 0) {
		return fmt.Errorf("Upper bound cannot be infinity: %w", ErrInvalidBounds)
	}
	if lower >= upper {
		return fmt.Errorf("Upper bound (%f) must be strictly larger than lower bound (%f): %w", upper, lower, ErrInvalidBounds)
	}
	if math.IsInf(upper-lower, 0) {
		return fmt.Errorf("Range of bounds [%e, %e] overflows float64: %w", lower, upper, ErrInvalidBounds)
	}
	return nil
}

// CheckCountForCovariance returns an error if n ≤ 1, for which the sample
// covariance is undefined.
func CheckCountForCovariance(n int64, name ...string) error {
	cName, err := verifyName(countName, name)
	if err != nil {
		return err
	}
	if n <= 1 {
		return fmt.Errorf("%s is %d, must be at least 2: %w", cName, n, ErrNonPositiveN)
	}
	return nil
}

// CheckCountPositive returns an error if n ≤ 0.
func CheckCountPositive(n int64, name ...string) error {
	cName, err := verifyName(countName, name)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("%s is %d, must be strictly positive: %w", cName, n, ErrNonPositiveN)
	}
	return nil
}

// CheckSensitivity returns an error if sensitivity is nonpositive or +∞.
func CheckSensitivity(sensitivity float64) error {
	if sensitivity <= 0 || math.IsInf(sensitivity, 0) || math.IsNaN(sensitivity) {
		return fmt.Errorf("Sensitivity is %f, must be strictly positive and finite: %w", sensitivity, ErrInvalidSensitivity)
	}
	return nil
}

// CheckDimension returns an error if got differs from want. what names the
// vector being checked.
func CheckDimension(what string, want, got int) error {
	if want != got {
		return fmt.Errorf("%s has length %d, want %d: %w", what, got, want, ErrDimensionMismatch)
	}
	return nil
}

// CheckAlpha returns an error if the supplied alpha is not between 0 and 1.
func CheckAlpha(alpha float64) error {
	if alpha <= 0 || alpha >= 1 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return fmt.Errorf("Alpha is %f, must be within (0, 1) and finite: %w", alpha, ErrConfiguration)
	}
	return nil
}
