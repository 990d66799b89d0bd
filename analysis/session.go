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

// Package analysis groups covariance requests into a session that is charged
// against a single privacy budget and released at once.
//
// A Session starts in Building. Every request added is validated and charged
// to the session's accountant immediately, so a request that would exceed
// the cap is rejected before anything is computed. Release evaluates every
// request and moves the session to Released only if all of them succeed.
package analysis

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/dpcov/accountant"
	"github.com/google/differential-privacy/dpcov/checks"
	"github.com/google/differential-privacy/dpcov/column"
	"github.com/google/differential-privacy/dpcov/covariance"
	"github.com/google/differential-privacy/dpcov/noise"
	"github.com/google/differential-privacy/dpcov/rand"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSessionAlreadyReleased is returned when a request is added to a
	// released session.
	ErrSessionAlreadyReleased = errors.New("session already released")
	// ErrDoubleRelease is returned by every Release call after a successful one.
	ErrDoubleRelease = errors.New("session released twice")
)

// Options is used to configure a Session.
type Options struct {
	// Cap on the total ε of the session. Optional, nil means no cap.
	Cap *float64
	// Source of the randomness used for noise. Request i draws from
	// Source.Stream(i). Defaults to rand.Secure().
	Source rand.Source
	// NewMechanism builds the noise mechanism for one request from its
	// generator. Defaults to Laplace noise.
	NewMechanism func(*rand.Generator) noise.Mechanism
	// Parallelism is the maximum number of requests evaluated at the same
	// time. Defaults to runtime.GOMAXPROCS(0).
	Parallelism int
}

// Session collects covariance requests over the columns of a catalog.
// It is safe for concurrent use.
type Session struct {
	mu           sync.Mutex
	catalog      *column.Catalog
	acct         *accountant.Accountant
	source       rand.Source
	newMechanism func(*rand.Generator) noise.Mechanism
	parallelism  int

	state    State
	requests []covariance.Request
	results  map[accountant.NodeHandle]*covariance.Release
}

// NewSession returns a Session reading from catalog, configured by opt. A nil
// catalog only allows requests built with AddRequest; a nil opt uses the
// defaults documented on Options.
func NewSession(catalog *column.Catalog, opt *Options) (*Session, error) {
	if opt == nil {
		opt = &Options{}
	}
	acct, err := accountant.New(&accountant.Options{Cap: opt.Cap})
	if err != nil {
		return nil, fmt.Errorf("NewSession: %w", err)
	}
	source := opt.Source
	if source == nil {
		source = rand.Secure()
	}
	newMechanism := opt.NewMechanism
	if newMechanism == nil {
		newMechanism = func(g *rand.Generator) noise.Mechanism { return noise.NewLaplace(g) }
	}
	parallelism := opt.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Session{
		catalog:      catalog,
		acct:         acct,
		source:       source,
		newMechanism: newMechanism,
		parallelism:  parallelism,
		state:        Building,
	}, nil
}

// AddRequest validates req and charges its ε to the session. The returned
// handle keys the request's result in the map returned by Release.
func (s *Session) AddRequest(req covariance.Request) (accountant.NodeHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Building {
		return 0, fmt.Errorf("AddRequest: %s: %w", s.state.errorMessage(), ErrSessionAlreadyReleased)
	}
	if err := s.acct.Check(req.Epsilon); err != nil {
		return 0, fmt.Errorf("AddRequest: %w", err)
	}
	if err := covariance.Validate(req); err != nil {
		return 0, fmt.Errorf("AddRequest: %w", err)
	}
	h, err := s.acct.AddNode(label(req), req.Epsilon)
	if err != nil {
		return 0, fmt.Errorf("AddRequest: %w", err)
	}
	s.requests = append(s.requests, req)
	return h, nil
}

func label(req covariance.Request) string {
	switch req.Mode {
	case covariance.Matrix:
		return fmt.Sprintf("%v(%s)", req.Mode, strings.Join(req.Left.Names(), ", "))
	default:
		return fmt.Sprintf("%v(%s; %s)", req.Mode, strings.Join(req.Left.Names(), ", "), strings.Join(req.Right.Names(), ", "))
	}
}

func (s *Session) selectColumns(names []string) (column.Set, error) {
	if s.catalog == nil {
		return column.Set{}, fmt.Errorf("session has no column catalog: %w", checks.ErrConfiguration)
	}
	return s.catalog.Select(names, nil, nil)
}

// AddScalar adds a Scalar request for the covariance of the named columns.
func (s *Session) AddScalar(left, right string, epsilon float64) (accountant.NodeHandle, error) {
	l, err := s.selectColumns([]string{left})
	if err != nil {
		return 0, fmt.Errorf("AddScalar: %w", err)
	}
	r, err := s.selectColumns([]string{right})
	if err != nil {
		return 0, fmt.Errorf("AddScalar: %w", err)
	}
	return s.AddRequest(covariance.Request{Mode: covariance.Scalar, Left: l, Right: r, Epsilon: epsilon})
}

// AddMatrix adds a Matrix request over the named columns.
func (s *Session) AddMatrix(names []string, epsilon float64) (accountant.NodeHandle, error) {
	cols, err := s.selectColumns(names)
	if err != nil {
		return 0, fmt.Errorf("AddMatrix: %w", err)
	}
	return s.AddRequest(covariance.Request{Mode: covariance.Matrix, Left: cols, Epsilon: epsilon})
}

// AddCross adds a Cross request between the named left and right columns.
func (s *Session) AddCross(left, right []string, epsilon float64) (accountant.NodeHandle, error) {
	l, err := s.selectColumns(left)
	if err != nil {
		return 0, fmt.Errorf("AddCross: %w", err)
	}
	r, err := s.selectColumns(right)
	if err != nil {
		return 0, fmt.Errorf("AddCross: %w", err)
	}
	return s.AddRequest(covariance.Request{Mode: covariance.Cross, Left: l, Right: r, Epsilon: epsilon})
}

// Release evaluates every request. On success the session moves to Released
// and the results are returned keyed by handle. On failure no result is kept,
// the session stays in Building and Release may be called again.
func (s *Session) Release() (map[accountant.NodeHandle]*covariance.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Building {
		return nil, fmt.Errorf("Release: %s: %w", s.state.errorMessage(), ErrDoubleRelease)
	}

	out := make([]*covariance.Release, len(s.requests))
	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i, req := range s.requests {
		g.Go(func() error {
			e := covariance.NewEngine(s.newMechanism(s.source.Stream(uint64(i))))
			r, err := e.Compute(req)
			if err != nil {
				return fmt.Errorf("request %d (%s): %w", i, label(req), err)
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warningf("analysis: release of %d requests failed, session stays %v: %v", len(s.requests), s.state, err)
		return nil, fmt.Errorf("Release: %w", err)
	}

	s.results = make(map[accountant.NodeHandle]*covariance.Release, len(out))
	for i, r := range out {
		s.results[accountant.NodeHandle(i)] = r
	}
	s.state = Released
	log.Infof("analysis: released %d requests, total ε=%g", len(out), s.acct.TotalSpent())
	return s.copyResults(), nil
}

// copyResults returns a copy of the results map. Callers must hold s.mu.
func (s *Session) copyResults() map[accountant.NodeHandle]*covariance.Release {
	out := make(map[accountant.NodeHandle]*covariance.Release, len(s.results))
	for h, r := range s.results {
		out[h] = r
	}
	return out
}

// Results returns the released results, or false if the session has not
// been released.
func (s *Session) Results() (map[accountant.NodeHandle]*covariance.Release, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Released {
		return nil, false
	}
	return s.copyResults(), true
}

// State returns the lifecycle state of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CheckBudget returns the error a request spending epsilon would get from
// the session's accountant, without charging anything.
func (s *Session) CheckBudget(epsilon float64) error {
	if err := s.acct.Check(epsilon); err != nil {
		return fmt.Errorf("CheckBudget: %w", err)
	}
	return nil
}

// TotalSpent returns the ε charged by every accepted request.
func (s *Session) TotalSpent() float64 { return s.acct.TotalSpent() }

// Remaining returns the ε left under the cap, or +Inf without a cap.
func (s *Session) Remaining() float64 { return s.acct.Remaining() }

// Ledger returns the charges accepted so far, one per request.
func (s *Session) Ledger() []accountant.Node { return s.acct.Nodes() }
