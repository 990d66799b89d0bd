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
	"fmt"

	"github.com/google/differential-privacy/dpcov/checks"
)

// Catalog is a fixed set of named columns. Column references in release
// requests are resolved against it when the request is built.
type Catalog struct {
	columns map[string]Column
	order   []string
}

// NewCatalog returns a Catalog holding cols. Names must be non-empty and unique.
func NewCatalog(cols ...Column) (*Catalog, error) {
	c := &Catalog{columns: make(map[string]Column, len(cols))}
	for _, col := range cols {
		if col.Name == "" {
			return nil, fmt.Errorf("NewCatalog: column names cannot be empty: %w", checks.ErrConfiguration)
		}
		if _, ok := c.columns[col.Name]; ok {
			return nil, fmt.Errorf("NewCatalog: duplicate column %q: %w", col.Name, checks.ErrConfiguration)
		}
		c.columns[col.Name] = col
		c.order = append(c.order, col.Name)
	}
	return c, nil
}

// Names returns the column names in insertion order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Column returns the column called name.
func (c *Catalog) Column(name string) (Column, error) {
	col, ok := c.columns[name]
	if !ok {
		return Column{}, fmt.Errorf("unknown column %q: %w", name, checks.ErrConfiguration)
	}
	return col, nil
}

// Select resolves names into a Set. lower and upper are optional explicit
// bound vectors; see Set.
func (c *Catalog) Select(names []string, lower, upper []float64) (Set, error) {
	if len(names) == 0 {
		return Set{}, fmt.Errorf("Select: no columns selected: %w", checks.ErrConfiguration)
	}
	cols := make([]Column, len(names))
	for i, name := range names {
		col, err := c.Column(name)
		if err != nil {
			return Set{}, fmt.Errorf("Select: %w", err)
		}
		cols[i] = col
	}
	return Set{Columns: cols, Lower: lower, Upper: upper}, nil
}
