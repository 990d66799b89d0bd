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

// Package covariance computes differentially private sample covariances of
// bounded columns.
//
// Values are clamped to their declared bounds before any aggregate is
// formed, and the means used in the covariance formula are the means of the
// clamped values. Every released cell receives Laplace noise calibrated to
// the sensitivity of that cell under one-row substitution with a fixed,
// public row count n:
//
//	Δ(i, j) = (hi_i - lo_i) * (hi_j - lo_j) / (n - 1)
//
// The three release modes split the requested epsilon differently:
//
//   - Scalar adds one draw with scale Δ/ε.
//   - Matrix splits ε evenly over the K(K+1)/2 unordered cells of a K×K
//     matrix and mirrors each draw into (i, j) and (j, i), so the result is
//     exactly symmetric.
//   - Cross splits ε evenly over all L·R ordered cells of an L×R matrix and
//     noises every cell independently. A Cross release over identical left
//     and right columns is therefore not symmetric.
//
// For general details and key definitions, see
// https://github.com/google/differential-privacy/blob/main/differential_privacy.md#key-definitions.
package covariance

import (
	"fmt"

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/dpcov/checks"
	"github.com/google/differential-privacy/dpcov/column"
	"github.com/google/differential-privacy/dpcov/noise"
	"github.com/google/differential-privacy/dpcov/sensitivity"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Request describes one covariance release.
type Request struct {
	Mode Mode
	// Left holds the only column of a Scalar release's left operand, the
	// columns of a Matrix release, or the row columns of a Cross release.
	Left column.Set
	// Right holds the only column of a Scalar release's right operand or the
	// column columns of a Cross release. Must be empty for Matrix releases.
	Right column.Set
	// Privacy parameter ε spent by the whole release. Required.
	Epsilon float64
}

// Engine evaluates covariance requests. Not thread-safe: it draws noise from a
// single mechanism.
type Engine struct {
	mechanism noise.Mechanism
}

// NewEngine returns an Engine adding noise with m. A nil m uses Laplace noise
// drawn from the secure random source.
func NewEngine(m noise.Mechanism) *Engine {
	if m == nil {
		m = noise.NewLaplace(nil)
	}
	return &Engine{mechanism: m}
}

// plan is a validated request with its operands bound.
type plan struct {
	mode        Mode
	left, right []*column.Bounded
	n           int64
	epsilon     float64
	cellEpsilon float64
	numCells    int
	rowNames    []string
	colNames    []string
}

// Validate checks req without computing anything: mode and shape, bounds,
// row counts, epsilon, and the sensitivity and noise scale of every cell.
// A request that passes Validate can only fail to
// compute if the column values change or hold NaNs.
func Validate(req Request) error {
	_, err := newPlan(req)
	return err
}

// Validate is the package-level Validate.
func (e *Engine) Validate(req Request) error {
	return Validate(req)
}

func newPlan(req Request) (*plan, error) {
	if err := checks.CheckEpsilonStrict(req.Epsilon); err != nil {
		return nil, err
	}
	p := &plan{mode: req.Mode, epsilon: req.Epsilon}
	var err error
	switch req.Mode {
	case Scalar:
		if err := checks.CheckDimension("Left columns of a Scalar request", 1, req.Left.Len()); err != nil {
			return nil, err
		}
		if err := checks.CheckDimension("Right columns of a Scalar request", 1, req.Right.Len()); err != nil {
			return nil, err
		}
		if p.left, err = req.Left.Resolve(); err != nil {
			return nil, err
		}
		if p.right, err = req.Right.Resolve(); err != nil {
			return nil, err
		}
		p.numCells = 1
	case Matrix:
		if req.Right.Len() != 0 {
			return nil, fmt.Errorf("a Matrix request takes a single column set, got %d right columns: %w", req.Right.Len(), checks.ErrConfiguration)
		}
		if p.left, err = req.Left.Resolve(); err != nil {
			return nil, err
		}
		p.right = p.left
		k := len(p.left)
		p.numCells = k * (k + 1) / 2
	case Cross:
		if p.left, err = req.Left.Resolve(); err != nil {
			return nil, fmt.Errorf("left columns: %w", err)
		}
		if p.right, err = req.Right.Resolve(); err != nil {
			return nil, fmt.Errorf("right columns: %w", err)
		}
		p.numCells = len(p.left) * len(p.right)
	default:
		return nil, fmt.Errorf("unknown release mode %v: %w", req.Mode, checks.ErrConfiguration)
	}

	p.n = p.left[0].Count()
	for _, c := range append(append([]*column.Bounded(nil), p.left...), p.right...) {
		if c.Count() != p.n {
			return nil, fmt.Errorf("column %q has count %d, want %d like column %q: %w",
				c.Name(), c.Count(), p.n, p.left[0].Name(), checks.ErrDimensionMismatch)
		}
	}
	if err := checks.CheckCountForCovariance(p.n); err != nil {
		return nil, err
	}
	p.cellEpsilon = p.epsilon / float64(p.numCells)
	if err := checks.CheckEpsilonVeryStrict(p.cellEpsilon, "Epsilon per cell"); err != nil {
		return nil, fmt.Errorf("epsilon %e split over %d cells: %w", p.epsilon, p.numCells, err)
	}
	if err := p.checkCells(); err != nil {
		return nil, err
	}
	p.rowNames = names(p.left)
	p.colNames = names(p.right)
	return p, nil
}

// checkCells checks that every cell has a finite, positive sensitivity and
// noise scale.
func (p *plan) checkCells() error {
	for i, ci := range p.left {
		j0 := 0
		if p.mode == Matrix {
			j0 = i
		}
		for _, cj := range p.right[j0:] {
			delta, err := sensitivity.Covariance(ci.Bounds(), cj.Bounds(), p.n)
			if err != nil {
				return fmt.Errorf("cell (%s, %s): %w", ci.Name(), cj.Name(), err)
			}
			if err := checks.CheckSensitivity(delta / p.cellEpsilon); err != nil {
				return fmt.Errorf("noise scale of cell (%s, %s) for sensitivity %e and ε=%e per cell: %w",
					ci.Name(), cj.Name(), delta, p.cellEpsilon, err)
			}
		}
	}
	return nil
}

func names(cols []*column.Bounded) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name()
	}
	return out
}

// Compute evaluates req.
func (e *Engine) Compute(req Request) (*Release, error) {
	p, err := newPlan(req)
	if err != nil {
		return nil, fmt.Errorf("couldn't plan %v release: %w", req.Mode, err)
	}
	if p.cellEpsilon < 1e-3 {
		log.Warningf("covariance: %v release over %d cells gets ε=%g per cell, noise is likely to dominate", p.mode, p.numCells, p.cellEpsilon)
	}
	var r *Release
	switch p.mode {
	case Scalar:
		r, err = e.computeScalar(p)
	case Matrix:
		r, err = e.computeMatrix(p)
	case Cross:
		r, err = e.computeCross(p)
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't compute %v release: %w", p.mode, err)
	}
	log.V(1).Infof("covariance: released %v %v×%v with ε=%g (%d cells, ε=%g per cell)",
		p.mode, p.rowNames, p.colNames, p.epsilon, p.numCells, p.cellEpsilon)
	return r, nil
}

// ComputeScalar releases the covariance of left and right with budget epsilon.
func (e *Engine) ComputeScalar(left, right column.Column, epsilon float64) (*Release, error) {
	return e.Compute(Request{
		Mode:    Scalar,
		Left:    column.Set{Columns: []column.Column{left}},
		Right:   column.Set{Columns: []column.Column{right}},
		Epsilon: epsilon,
	})
}

// ComputeMatrix releases the covariance matrix of cols with budget epsilon.
func (e *Engine) ComputeMatrix(cols column.Set, epsilon float64) (*Release, error) {
	return e.Compute(Request{Mode: Matrix, Left: cols, Epsilon: epsilon})
}

// ComputeCross releases the cross-covariance matrix of left and right with
// budget epsilon.
func (e *Engine) ComputeCross(left, right column.Set, epsilon float64) (*Release, error) {
	return e.Compute(Request{Mode: Cross, Left: left, Right: right, Epsilon: epsilon})
}

// clampAll clamps every column once, even when it appears several times.
func clampAll(cols ...[]*column.Bounded) (map[*column.Bounded][]float64, error) {
	out := make(map[*column.Bounded][]float64)
	for _, set := range cols {
		for _, c := range set {
			if _, ok := out[c]; ok {
				continue
			}
			v, err := c.Clamped()
			if err != nil {
				return nil, err
			}
			out[c] = v
		}
	}
	return out, nil
}

// noisyCell adds noise to trueValue for the cell of columns ci and cj.
func (e *Engine) noisyCell(p *plan, i, j int, trueValue float64) (float64, Cell, error) {
	ci, cj := p.left[i], p.right[j]
	delta, err := sensitivity.Covariance(ci.Bounds(), cj.Bounds(), p.n)
	if err != nil {
		return 0, Cell{}, err
	}
	scale, err := e.mechanism.Scale(delta, p.cellEpsilon)
	if err != nil {
		return 0, Cell{}, err
	}
	noised, err := e.mechanism.AddNoise(trueValue, delta, p.cellEpsilon)
	if err != nil {
		return 0, Cell{}, err
	}
	return noised, Cell{Row: i, Col: j, Sensitivity: delta, Epsilon: p.cellEpsilon, Scale: scale}, nil
}

func (e *Engine) computeScalar(p *plan) (*Release, error) {
	clamped, err := clampAll(p.left, p.right)
	if err != nil {
		return nil, err
	}
	cov := stat.Covariance(clamped[p.left[0]], clamped[p.right[0]], nil)
	noised, cell, err := e.noisyCell(p, 0, 0, cov)
	if err != nil {
		return nil, err
	}
	return &Release{
		mode:     Scalar,
		rowNames: p.rowNames,
		colNames: p.colNames,
		values:   mat.NewDense(1, 1, []float64{noised}),
		scales:   mat.NewDense(1, 1, []float64{cell.Scale}),
		epsilon:  p.epsilon,
		cells:    []Cell{cell},
	}, nil
}

func (e *Engine) computeMatrix(p *plan) (*Release, error) {
	clamped, err := clampAll(p.left)
	if err != nil {
		return nil, err
	}
	k := len(p.left)
	data := mat.NewDense(int(p.n), k, nil)
	for j, c := range p.left {
		data.SetCol(j, clamped[c])
	}
	trueCov := mat.NewSymDense(k, nil)
	stat.CovarianceMatrix(trueCov, data, nil)

	values := mat.NewSymDense(k, nil)
	scales := mat.NewDense(k, k, nil)
	cells := make([]Cell, 0, p.numCells)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			noised, cell, err := e.noisyCell(p, i, j, trueCov.At(i, j))
			if err != nil {
				return nil, err
			}
			// SetSym writes both (i, j) and (j, i).
			values.SetSym(i, j, noised)
			scales.Set(i, j, cell.Scale)
			scales.Set(j, i, cell.Scale)
			cells = append(cells, cell)
		}
	}
	return &Release{
		mode:     Matrix,
		rowNames: p.rowNames,
		colNames: p.colNames,
		values:   values,
		scales:   scales,
		epsilon:  p.epsilon,
		cells:    cells,
	}, nil
}

func (e *Engine) computeCross(p *plan) (*Release, error) {
	clamped, err := clampAll(p.left, p.right)
	if err != nil {
		return nil, err
	}
	l, r := len(p.left), len(p.right)
	values := mat.NewDense(l, r, nil)
	scales := mat.NewDense(l, r, nil)
	cells := make([]Cell, 0, p.numCells)
	for i, ci := range p.left {
		for j, cj := range p.right {
			cov := stat.Covariance(clamped[ci], clamped[cj], nil)
			noised, cell, err := e.noisyCell(p, i, j, cov)
			if err != nil {
				return nil, err
			}
			values.Set(i, j, noised)
			scales.Set(i, j, cell.Scale)
			cells = append(cells, cell)
		}
	}
	return &Release{
		mode:     Cross,
		rowNames: p.rowNames,
		colNames: p.colNames,
		values:   values,
		scales:   scales,
		epsilon:  p.epsilon,
		cells:    cells,
	}, nil
}
