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

package column

import (
	"errors"
	"math"
	"testing"

	"github.com/google/differential-privacy/dpcov/checks"
	"github.com/google/go-cmp/cmp"
)

func TestClampFloat64(t *testing.T) {
	for _, tc := range []struct {
		desc         string
		valueToClamp float64
		lower        float64
		upper        float64
		want         float64
		wantErr      bool
	}{
		{
			desc:         "Equal bounds, value is less than bound",
			valueToClamp: -1,
			lower:        1,
			upper:        1,
			want:         1,
		},
		{
			desc:         "Negative bounds, value is inside bounds",
			valueToClamp: -2,
			lower:        -3,
			upper:        -1,
			want:         -2,
		},
		{
			desc:         "Negative bounds, value is less than lower bound",
			valueToClamp: -4,
			lower:        -3,
			upper:        -1,
			want:         -3,
		},
		{
			desc:         "Positive bounds, value is greater than upper bound",
			valueToClamp: 600000,
			lower:        0,
			upper:        500000,
			want:         500000,
		},
		{
			desc:         "Positive infinity is clamped to upper bound",
			valueToClamp: math.Inf(1),
			lower:        0,
			upper:        100,
			want:         100,
		},
		{
			desc:         "Lower bound is greater than upper bound",
			valueToClamp: 0,
			lower:        1,
			upper:        -1,
			wantErr:      true,
		},
	} {
		got, err := ClampFloat64(tc.valueToClamp, tc.lower, tc.upper)
		if (err != nil) != tc.wantErr {
			t.Errorf("ClampFloat64: when %s for err got %v, wantErr %t", tc.desc, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ClampFloat64: when %s got %f, want %f", tc.desc, got, tc.want)
		}
	}
}

func TestBind(t *testing.T) {
	values := []float64{1, 2, 3}
	for _, tc := range []struct {
		desc    string
		col     Column
		bounds  *Bounds
		wantErr error
	}{
		{"bounds declared on column",
			Column{Name: "a", Values: values, Bounds: &Bounds{0, 10}, Count: 3},
			nil,
			nil},
		{"bounds supplied explicitly",
			Column{Name: "a", Values: values, Count: 3},
			&Bounds{0, 10},
			nil},
		{"bounds missing",
			Column{Name: "a", Values: values, Count: 3},
			nil,
			checks.ErrConfiguration},
		{"count missing",
			Column{Name: "a", Values: values, Bounds: &Bounds{0, 10}},
			nil,
			checks.ErrConfiguration},
		{"negative count",
			Column{Name: "a", Values: values, Bounds: &Bounds{0, 10}, Count: -3},
			nil,
			checks.ErrNonPositiveN},
		{"count disagrees with data",
			Column{Name: "a", Values: values, Bounds: &Bounds{0, 10}, Count: 4},
			nil,
			checks.ErrDimensionMismatch},
		{"inverted bounds",
			Column{Name: "a", Values: values, Bounds: &Bounds{10, 0}, Count: 3},
			nil,
			checks.ErrInvalidBounds},
		{"explicit bounds override invalid declared bounds",
			Column{Name: "a", Values: values, Bounds: &Bounds{10, 0}, Count: 3},
			&Bounds{0, 10},
			nil},
	} {
		_, err := Bind(tc.col, tc.bounds)
		if tc.wantErr == nil && err != nil {
			t.Errorf("Bind: when %s got err %v, want nil", tc.desc, err)
		}
		if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
			t.Errorf("Bind: when %s got err %v, want %v", tc.desc, err, tc.wantErr)
		}
	}
}

func TestClampedCopiesAndClamps(t *testing.T) {
	values := []float64{-5, 0, 50, 150}
	b, err := Bind(Column{Name: "age", Values: values, Bounds: &Bounds{0, 100}, Count: 4}, nil)
	if err != nil {
		t.Fatalf("Bind: got err %v", err)
	}
	got, err := b.Clamped()
	if err != nil {
		t.Fatalf("Clamped: got err %v", err)
	}
	if diff := cmp.Diff([]float64{0, 0, 50, 100}, got); diff != "" {
		t.Errorf("Clamped: diff (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{-5, 0, 50, 150}, values); diff != "" {
		t.Errorf("Clamped modified the caller's values: diff (-want +got):\n%s", diff)
	}
}

func TestClampedRejectsNaN(t *testing.T) {
	b, err := Bind(Column{Name: "x", Values: []float64{1, math.NaN()}, Bounds: &Bounds{0, 1}, Count: 2}, nil)
	if err != nil {
		t.Fatalf("Bind: got err %v", err)
	}
	if _, err := b.Clamped(); !errors.Is(err, checks.ErrNaNValue) {
		t.Errorf("Clamped: got err %v, want ErrNaNValue", err)
	}
}

func TestSetResolve(t *testing.T) {
	a := Column{Name: "a", Values: []float64{1, 2}, Count: 2}
	b := Column{Name: "b", Values: []float64{3, 4}, Bounds: &Bounds{0, 5}, Count: 2}
	c := Column{Name: "c", Values: []float64{5, 6}, Bounds: &Bounds{0, 10}, Count: 2}
	for _, tc := range []struct {
		desc    string
		set     Set
		want    []Bounds
		wantErr error
	}{
		{"declared bounds",
			Set{Columns: []Column{b, c}},
			[]Bounds{{0, 5}, {0, 10}},
			nil},
		{"explicit vectors override declared bounds",
			Set{Columns: []Column{a, b}, Lower: []float64{-1, -2}, Upper: []float64{1, 2}},
			[]Bounds{{-1, 1}, {-2, 2}},
			nil},
		{"three columns, two bounds",
			Set{Columns: []Column{a, b, c}, Lower: []float64{0, 0}, Upper: []float64{1, 1}},
			nil,
			checks.ErrDimensionMismatch},
		{"only lower vector",
			Set{Columns: []Column{b, c}, Lower: []float64{0, 0}},
			nil,
			checks.ErrDimensionMismatch},
		{"column without bounds",
			Set{Columns: []Column{a, b}},
			nil,
			checks.ErrConfiguration},
		{"empty set",
			Set{},
			nil,
			checks.ErrConfiguration},
	} {
		got, err := tc.set.Resolve()
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Resolve: when %s got err %v, want %v", tc.desc, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Resolve: when %s got err %v", tc.desc, err)
			continue
		}
		var gotBounds []Bounds
		for _, g := range got {
			gotBounds = append(gotBounds, g.Bounds())
		}
		if diff := cmp.Diff(tc.want, gotBounds); diff != "" {
			t.Errorf("Resolve: when %s diff (-want +got):\n%s", tc.desc, diff)
		}
	}
}

func TestCatalog(t *testing.T) {
	x := Column{Name: "x", Values: []float64{1}, Count: 1}
	y := Column{Name: "y", Values: []float64{2}, Count: 1}
	if _, err := NewCatalog(x, x); !errors.Is(err, checks.ErrConfiguration) {
		t.Errorf("NewCatalog with duplicates: got err %v, want ErrConfiguration", err)
	}
	if _, err := NewCatalog(Column{}); !errors.Is(err, checks.ErrConfiguration) {
		t.Errorf("NewCatalog with unnamed column: got err %v, want ErrConfiguration", err)
	}
	cat, err := NewCatalog(x, y)
	if err != nil {
		t.Fatalf("NewCatalog: got err %v", err)
	}
	if diff := cmp.Diff([]string{"x", "y"}, cat.Names()); diff != "" {
		t.Errorf("Names: diff (-want +got):\n%s", diff)
	}
	s, err := cat.Select([]string{"y", "x"}, nil, nil)
	if err != nil {
		t.Fatalf("Select: got err %v", err)
	}
	if diff := cmp.Diff([]string{"y", "x"}, s.Names()); diff != "" {
		t.Errorf("Select: diff (-want +got):\n%s", diff)
	}
	if _, err := cat.Select([]string{"z"}, nil, nil); !errors.Is(err, checks.ErrConfiguration) {
		t.Errorf("Select(unknown): got err %v, want ErrConfiguration", err)
	}
	if _, err := cat.Select(nil, nil, nil); !errors.Is(err, checks.ErrConfiguration) {
		t.Errorf("Select(nil): got err %v, want ErrConfiguration", err)
	}
}
