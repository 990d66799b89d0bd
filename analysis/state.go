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

package analysis

// State is the lifecycle state of a Session.
type State int

const (
	// Building accepts new requests.
	Building State = iota
	// Released holds the results of a successful Release and accepts nothing.
	Released
)

var stateName = map[State]string{
	Building: "Building",
	Released: "Released",
}

var errorMessages = map[State]string{
	Building: "",
	Released: "Session has already been released",
}

func (s State) String() string {
	if name, ok := stateName[s]; ok {
		return name
	}
	return "Unknown"
}

func (s State) errorMessage() string {
	return errorMessages[s]
}
