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

// Package column describes the bounded numeric columns that differentially
// private covariance releases read from.
//
// A Column is what a dataset loader hands over: a name, the values, and the
// declared bounds and row count, any of which may be missing. Bind and
// Set.Resolve turn descriptors into Bounded columns, failing when a required
// declaration is absent or inconsistent. The values are owned by the caller
// and only ever read.
package column

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/dpcov/checks"
)

// Bounds is an inclusive [Lower, Upper] range declared for a column.
type Bounds struct {
	Lower, Upper float64
}

// Validate returns an error wrapping checks.ErrInvalidBounds unless Lower < Upper
// and both are finite.
func (b Bounds) Validate() error {
	return checks.CheckBoundsFloat64(b.Lower, b.Upper)
}

// Width returns Upper - Lower.
func (b Bounds) Width() float64 {
	return b.Upper - b.Lower
}

// Column is a column descriptor as produced by a dataset loader.
type Column struct {
	Name   string
	Values []float64
	// Bounds declared for the column. Optional here, required by every
	// release unless supplied through Set.Lower and Set.Upper.
	Bounds *Bounds
	// Count is the declared, public number of rows. Required; 0 means unset.
	Count int64
}

// Bounded is a column whose bounds and row count have been validated.
// Immutable once created; the values slice is shared with the caller.
type Bounded struct {
	name   string
	values []float64
	bounds Bounds
	count  int64
}

// Bind validates c against bounds, or against c.Bounds when bounds is nil.
func Bind(c Column, bounds *Bounds) (*Bounded, error) {
	if bounds == nil {
		bounds = c.Bounds
	}
	if bounds == nil {
		return nil, fmt.Errorf("column %q has no declared bounds: %w", c.Name, checks.ErrConfiguration)
	}
	if err := bounds.Validate(); err != nil {
		return nil, fmt.Errorf("column %q: %w", c.Name, err)
	}
	if c.Count == 0 {
		return nil, fmt.Errorf("column %q has no declared row count: %w", c.Name, checks.ErrConfiguration)
	}
	if err := checks.CheckCountPositive(c.Count, "Count of column "+c.Name); err != nil {
		return nil, err
	}
	if int64(len(c.Values)) != c.Count {
		return nil, fmt.Errorf("column %q has %d values but a declared count of %d: %w",
			c.Name, len(c.Values), c.Count, checks.ErrDimensionMismatch)
	}
	return &Bounded{name: c.Name, values: c.Values, bounds: *bounds, count: c.Count}, nil
}

// Name returns the column name.
func (b *Bounded) Name() string { return b.name }

// Bounds returns the declared bounds.
func (b *Bounded) Bounds() Bounds { return b.bounds }

// Count returns the declared row count.
func (b *Bounded) Count() int64 { return b.count }

// Clamped returns a copy of the values with every entry forced into the
// declared bounds. NaN entries cannot be clamped and make Clamped fail.
func (b *Bounded) Clamped() ([]float64, error) {
	if int64(len(b.values)) != b.count {
		return nil, fmt.Errorf("column %q has %d values but a declared count of %d: %w",
			b.name, len(b.values), b.count, checks.ErrDimensionMismatch)
	}
	out := make([]float64, len(b.values))
	clamped := 0
	for i, v := range b.values {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("column %q has a NaN at row %d: %w", b.name, i, checks.ErrNaNValue)
		}
		c, err := ClampFloat64(v, b.bounds.Lower, b.bounds.Upper)
		if err != nil {
			return nil, fmt.Errorf("couldn't clamp value %v of column %q: %w", v, b.name, err)
		}
		if c != v {
			clamped++
		}
		out[i] = c
	}
	if clamped > 0 {
		log.V(1).Infof("column %q: clamped %d of %d values into [%g, %g]", b.name, clamped, len(out), b.bounds.Lower, b.bounds.Upper)
	}
	return out, nil
}

// ClampFloat64 clamps e within lower and upper, such that lower is returned
// if e < lower, and upper is returned if e > upper. Otherwise, e is returned.
func ClampFloat64(e, lower, upper float64) (float64, error) {
	if lower > upper {
		return 0, fmt.Errorf("lower must be less than or equal to upper, got lower = %v, upper = %v: %w", lower, upper, checks.ErrInvalidBounds)
	}
	if e > upper {
		return upper, nil
	}
	if e < lower {
		return lower, nil
	}
	return e, nil
}

// Set is an ordered selection of columns, optionally with explicit bound
// vectors. When Lower and Upper are set they override the bounds declared on
// the columns and must hold exactly one entry per column.
type Set struct {
	Columns      []Column
	Lower, Upper []float64
}

// Len returns the number of columns in the set.
func (s Set) Len() int { return len(s.Columns) }

// Names returns the column names in order.
func (s Set) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Resolve validates every column of the set and returns them bound, in order.
func (s Set) Resolve() ([]*Bounded, error) {
	if len(s.Columns) == 0 {
		return nil, fmt.Errorf("column set is empty: %w", checks.ErrConfiguration)
	}
	explicit := s.Lower != nil || s.Upper != nil
	if explicit {
		if err := checks.CheckDimension("Lower bounds vector", len(s.Columns), len(s.Lower)); err != nil {
			return nil, err
		}
		if err := checks.CheckDimension("Upper bounds vector", len(s.Columns), len(s.Upper)); err != nil {
			return nil, err
		}
	}
	out := make([]*Bounded, len(s.Columns))
	for i, c := range s.Columns {
		var bounds *Bounds
		if explicit {
			bounds = &Bounds{Lower: s.Lower[i], Upper: s.Upper[i]}
		}
		b, err := Bind(c, bounds)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
