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

package covariance

import (
	"fmt"

	"github.com/google/differential-privacy/dpcov/checks"
	"gonum.org/v1/gonum/mat"
)

// Mode is an enum type. Its values are the supported shapes of a covariance release.
type Mode int

// Release modes. The zero value is not a valid mode.
const (
	// Scalar releases the covariance of one left and one right column.
	Scalar Mode = iota + 1
	// Matrix releases the symmetric covariance matrix of a single column set.
	Matrix
	// Cross releases the covariance of every (left, right) column pair.
	Cross
)

var modeName = map[Mode]string{
	Scalar: "Scalar",
	Matrix: "Matrix",
	Cross:  "Cross",
}

func (m Mode) String() string {
	if name, ok := modeName[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Cell holds the noise parameters of one independently noised cell of a release.
type Cell struct {
	Row, Col    int
	Sensitivity float64
	Epsilon     float64
	// Scale of the Laplace noise added to the cell, Sensitivity/Epsilon.
	Scale float64
}

// Release is the immutable, noised output of one covariance request.
//
// Accessors return copies; nothing reachable from a Release can be used to
// modify it.
type Release struct {
	mode     Mode
	rowNames []string
	colNames []string
	// *mat.SymDense for Matrix releases, *mat.Dense otherwise.
	values  mat.Matrix
	scales  *mat.Dense
	epsilon float64
	cells   []Cell
}

// Mode returns the shape of the release.
func (r *Release) Mode() Mode { return r.mode }

// Epsilon returns the privacy budget consumed by the release, which equals the
// epsilon requested for it.
func (r *Release) Epsilon() float64 { return r.epsilon }

// Dims returns the number of rows and columns of the released values.
func (r *Release) Dims() (rows, cols int) { return r.values.Dims() }

// At returns the released value at row i and column j.
func (r *Release) At(i, j int) float64 { return r.values.At(i, j) }

// Scalar returns the released value of a Scalar release.
func (r *Release) Scalar() (float64, error) {
	if r.mode != Scalar {
		return 0, fmt.Errorf("Scalar: release has mode %v: %w", r.mode, checks.ErrConfiguration)
	}
	return r.values.At(0, 0), nil
}

// Values returns a copy of the released values.
func (r *Release) Values() *mat.Dense {
	return mat.DenseCopyOf(r.values)
}

// Symmetric returns a copy of the values of a Matrix release. ok is false for
// other modes.
func (r *Release) Symmetric() (s *mat.SymDense, ok bool) {
	sym, ok := r.values.(*mat.SymDense)
	if !ok {
		return nil, false
	}
	n := sym.SymmetricDim()
	s = mat.NewSymDense(n, nil)
	s.CopySym(sym)
	return s, true
}

// NoiseScale returns the scale of the noise added to the value at row i and
// column j.
func (r *Release) NoiseScale(i, j int) float64 { return r.scales.At(i, j) }

// RowNames returns the names of the columns indexing the rows of the values.
func (r *Release) RowNames() []string { return append([]string(nil), r.rowNames...) }

// ColNames returns the names of the columns indexing the columns of the values.
func (r *Release) ColNames() []string { return append([]string(nil), r.colNames...) }

// Cells returns the noise parameters of every independently noised cell, in
// row-major order. Matrix releases list each unordered pair once (i ≤ j).
func (r *Release) Cells() []Cell { return append([]Cell(nil), r.cells...) }
