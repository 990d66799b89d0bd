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

// Package noise contains methods to generate and add noise to data.
package noise

// ConfidenceInterval holds lower and upper bounds as float64 for the confidence interval.
type ConfidenceInterval struct {
	LowerBound, UpperBound float64
}

// Mechanism is an interface for primitives that add noise to data to make it
// differentially private.
//
// A Mechanism draws from a single random stream and is not safe for
// concurrent use.
type Mechanism interface {
	// AddNoise adds noise to x so that the output is ε-differentially private
	// given the sensitivity of x.
	AddNoise(x, sensitivity, epsilon float64) (float64, error)

	// Draw returns one noise sample calibrated to sensitivity and epsilon,
	// independent of every earlier draw.
	Draw(sensitivity, epsilon float64) (float64, error)

	// Scale returns the scale parameter of the noise distribution used for
	// the given sensitivity and epsilon.
	Scale(sensitivity, epsilon float64) (float64, error)
}
