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

// Package accountant tracks the privacy budget spent by an analysis under
// sequential composition: the total ε of a set of releases is the sum of
// their individual ε.
//
// Sums are kept as decimals built from the shortest representation of each
// float64 input, so that charges like 0.1 and 0.2 against a cap of 0.3 are
// accepted exactly instead of failing on floating point drift.
package accountant

import (
	"errors"
	"fmt"
	"math"
	"sync"

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/dpcov/checks"
	"github.com/shopspring/decimal"
)

// ErrBudgetExceeded is returned when a charge would take the total spent
// above the cap.
var ErrBudgetExceeded = errors.New("privacy budget exceeded")

// NodeHandle identifies a charge recorded by an Accountant. Handles are
// assigned densely from 0 in the order charges are accepted.
type NodeHandle int

// Node is one accepted charge.
type Node struct {
	Handle  NodeHandle
	Label   string
	Epsilon float64
}

// Options is used to configure an Accountant.
type Options struct {
	// Cap is the maximum total ε. Optional, nil means no cap.
	Cap *float64
}

// Accountant records charges against an optional ε cap. It is safe for
// concurrent use.
type Accountant struct {
	mu    sync.Mutex
	// cap is set by New and never written afterwards.
	cap   *decimal.Decimal
	spent decimal.Decimal
	nodes []Node
}

// New returns an Accountant configured by opt. A nil opt means no cap.
func New(opt *Options) (*Accountant, error) {
	if opt == nil {
		opt = &Options{}
	}
	a := &Accountant{spent: decimal.Zero}
	if opt.Cap != nil {
		if err := checks.CheckEpsilonStrict(*opt.Cap, "Cap"); err != nil {
			return nil, fmt.Errorf("accountant.New: %w", err)
		}
		c := decimal.NewFromFloat(*opt.Cap)
		a.cap = &c
	}
	return a, nil
}

// Check returns the error AddNode would return for a charge of epsilon,
// without recording anything.
func (a *Accountant) Check(epsilon float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.checkThreadUnsafe(epsilon)
	return err
}

// AddNode records a charge of epsilon under label. A rejected charge leaves
// the Accountant unchanged.
func (a *Accountant) AddNode(label string, epsilon float64) (NodeHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	total, err := a.checkThreadUnsafe(epsilon)
	if err != nil {
		return 0, fmt.Errorf("couldn't charge %q: %w", label, err)
	}
	h := NodeHandle(len(a.nodes))
	a.nodes = append(a.nodes, Node{Handle: h, Label: label, Epsilon: epsilon})
	a.spent = total
	log.V(1).Infof("accountant: node %d (%s) charged ε=%g, total spent %s", h, label, epsilon, total)
	return h, nil
}

// checkThreadUnsafe returns the total spent after charging epsilon. Callers
// must hold a.mu.
func (a *Accountant) checkThreadUnsafe(epsilon float64) (decimal.Decimal, error) {
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return decimal.Decimal{}, err
	}
	total := a.spent.Add(decimal.NewFromFloat(epsilon))
	if a.cap != nil && total.GreaterThan(*a.cap) {
		return decimal.Decimal{}, fmt.Errorf("charging ε=%g would spend %s of a cap of %s: %w", epsilon, total, a.cap, ErrBudgetExceeded)
	}
	return total, nil
}

// TotalSpent returns the sum of the ε of every accepted charge.
func (a *Accountant) TotalSpent() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.spent.InexactFloat64()
}

// Remaining returns cap - TotalSpent, or +Inf when there is no cap.
func (a *Accountant) Remaining() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cap == nil {
		return math.Inf(1)
	}
	return a.cap.Sub(a.spent).InexactFloat64()
}

// Nodes returns the accepted charges in order.
func (a *Accountant) Nodes() []Node {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Node(nil), a.nodes...)
}
