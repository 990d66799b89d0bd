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

// Package postprocess derives statistics from released covariances.
//
// Every function only reads releases, so its results are as private as its
// inputs and cost no additional budget. Functions are deterministic: equal
// inputs give bit-identical outputs. Values are returned as computed; a
// correlation outside [-1, 1] caused by noise is not clipped.
package postprocess

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/differential-privacy/dpcov/checks"
	"github.com/google/differential-privacy/dpcov/covariance"
	"github.com/google/differential-privacy/dpcov/noise"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNonPositiveVariance is returned when a released variance that is
	// used as a divisor is not strictly positive.
	ErrNonPositiveVariance = errors.New("non-positive released variance")
	// ErrSingular is returned when the released predictor covariance cannot
	// be inverted.
	ErrSingular = errors.New("singular covariance matrix")
	// ErrWrongMode is returned when a release of the wrong mode is passed.
	ErrWrongMode = errors.New("release has the wrong mode")
)

func checkMode(what string, r *covariance.Release, want covariance.Mode) error {
	if r == nil {
		return fmt.Errorf("%s is nil: %w", what, checks.ErrConfiguration)
	}
	if r.Mode() != want {
		return fmt.Errorf("%s has mode %v, want %v: %w", what, r.Mode(), want, ErrWrongMode)
	}
	return nil
}

func checkDiagonal(what string, s mat.Symmetric) error {
	for i := 0; i < s.SymmetricDim(); i++ {
		if v := s.At(i, i); !(v > 0) {
			return fmt.Errorf("%s has variance %g at %d: %w", what, v, i, ErrNonPositiveVariance)
		}
	}
	return nil
}

// Correlation returns the correlation matrix of a Matrix release.
func Correlation(r *covariance.Release) (*mat.SymDense, error) {
	if err := checkMode("Correlation input", r, covariance.Matrix); err != nil {
		return nil, err
	}
	cov, _ := r.Symmetric()
	if err := checkDiagonal("Correlation input", cov); err != nil {
		return nil, err
	}
	corr := mat.NewSymDense(cov.SymmetricDim(), nil)
	stat.CovToCorr(corr, cov)
	return corr, nil
}

// CrossCorrelation returns the correlations of a Cross release, using the
// variances on the diagonals of two Matrix releases over its left and right
// columns.
func CrossCorrelation(cross, leftCov, rightCov *covariance.Release) (*mat.Dense, error) {
	if err := checkMode("CrossCorrelation input", cross, covariance.Cross); err != nil {
		return nil, err
	}
	if err := checkMode("left covariance", leftCov, covariance.Matrix); err != nil {
		return nil, err
	}
	if err := checkMode("right covariance", rightCov, covariance.Matrix); err != nil {
		return nil, err
	}
	if err := checkNames("left covariance", leftCov.RowNames(), cross.RowNames()); err != nil {
		return nil, err
	}
	if err := checkNames("right covariance", rightCov.RowNames(), cross.ColNames()); err != nil {
		return nil, err
	}
	left, _ := leftCov.Symmetric()
	right, _ := rightCov.Symmetric()
	if err := checkDiagonal("left covariance", left); err != nil {
		return nil, err
	}
	if err := checkDiagonal("right covariance", right); err != nil {
		return nil, err
	}
	rows, cols := cross.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, cross.At(i, j)/math.Sqrt(left.At(i, i)*right.At(j, j)))
		}
	}
	return out, nil
}

func checkNames(what string, got, want []string) error {
	if err := checks.CheckDimension(what, len(want), len(got)); err != nil {
		return err
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%s has column %q at %d, want %q: %w", what, got[i], i, want[i], checks.ErrConfiguration)
		}
	}
	return nil
}

// Slope returns the slope cov(x, y)/var(x) of the least squares line of y on
// x, given a Scalar release of cov(x, y) and a Scalar release of var(x),
// i.e. the covariance of x with itself.
func Slope(cov, variance *covariance.Release) (float64, error) {
	if err := checkMode("covariance", cov, covariance.Scalar); err != nil {
		return 0, err
	}
	if err := checkMode("variance", variance, covariance.Scalar); err != nil {
		return 0, err
	}
	x := variance.RowNames()[0]
	if variance.ColNames()[0] != x {
		return 0, fmt.Errorf("variance release is the covariance of %q and %q, want a column with itself: %w",
			x, variance.ColNames()[0], checks.ErrConfiguration)
	}
	if cov.RowNames()[0] != x && cov.ColNames()[0] != x {
		return 0, fmt.Errorf("covariance of %q and %q does not involve %q: %w",
			cov.RowNames()[0], cov.ColNames()[0], x, checks.ErrConfiguration)
	}
	v, _ := variance.Scalar()
	if !(v > 0) {
		return 0, fmt.Errorf("variance of %q is %g: %w", x, v, ErrNonPositiveVariance)
	}
	c, _ := cov.Scalar()
	return c / v, nil
}

// RegressionCoefficients returns the least squares coefficients of the
// column at index response on all other columns of a Matrix release, in
// column order with the response skipped. The intercept is not estimated.
func RegressionCoefficients(r *covariance.Release, response int) ([]float64, error) {
	if err := checkMode("RegressionCoefficients input", r, covariance.Matrix); err != nil {
		return nil, err
	}
	k, _ := r.Dims()
	if response < 0 || response >= k {
		return nil, fmt.Errorf("response index %d outside a %d×%d matrix: %w", response, k, k, checks.ErrConfiguration)
	}
	if k < 2 {
		return nil, fmt.Errorf("a regression needs at least one predictor: %w", checks.ErrConfiguration)
	}
	predictors := make([]int, 0, k-1)
	for i := 0; i < k; i++ {
		if i != response {
			predictors = append(predictors, i)
		}
	}
	sxx := mat.NewDense(k-1, k-1, nil)
	sxy := mat.NewVecDense(k-1, nil)
	for a, i := range predictors {
		for b, j := range predictors {
			sxx.Set(a, b, r.At(i, j))
		}
		sxy.SetVec(a, r.At(i, response))
	}
	var beta mat.VecDense
	if err := beta.SolveVec(sxx, sxy); err != nil {
		return nil, fmt.Errorf("couldn't solve for the coefficients of %v: %v: %w", r.RowNames()[response], err, ErrSingular)
	}
	return mat.Col(nil, 0, &beta), nil
}

// ConfidenceIntervals returns, for every value of r, an interval that
// contains the value before noise with probability 1 - alpha.
func ConfidenceIntervals(r *covariance.Release, alpha float64) ([][]noise.ConfidenceInterval, error) {
	if r == nil {
		return nil, fmt.Errorf("ConfidenceIntervals input is nil: %w", checks.ErrConfiguration)
	}
	rows, cols := r.Dims()
	out := make([][]noise.ConfidenceInterval, rows)
	for i := range out {
		out[i] = make([]noise.ConfidenceInterval, cols)
		for j := range out[i] {
			ci, err := noise.LaplaceConfidenceInterval(r.At(i, j), r.NoiseScale(i, j), alpha)
			if err != nil {
				return nil, fmt.Errorf("ConfidenceIntervals: cell (%d, %d): %w", i, j, err)
			}
			out[i][j] = ci
		}
	}
	return out, nil
}
