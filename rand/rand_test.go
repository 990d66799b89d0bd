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

package rand

import (
	"bytes"
	"testing"
)

func TestBooleanBufIsShifting(t *testing.T) {
	g := NewGenerator(bytes.NewReader([]byte{
		0b00100100,
		0b10010000,
	}))
	for pos, want := range []bool{
		// first byte
		false,
		false,
		true,
		false,
		false,
		true,
		false,
		false,
		// second byte
		false,
		false,
		false,
		false,
		true,
		false,
		false,
		true,
	} {
		if got := g.Boolean(); got != want {
			t.Errorf("Boolean: got %v, want %v in %v-th iteration", got, want, pos)
		}
	}
}

func TestGeometricCountsLeadingZeros(t *testing.T) {
	for _, tc := range []struct {
		desc  string
		input []byte
		want  float64
	}{
		{"first bit set", []byte{0b10000000}, 1},
		{"fourth bit set", []byte{0b00010000}, 4},
		{"zero byte then last bit set", []byte{0, 0b00000001}, 16},
	} {
		g := NewGenerator(bytes.NewReader(tc.input))
		if got := g.Geometric(); got != tc.want {
			t.Errorf("Geometric: when %s got %f, want %f", tc.desc, got, tc.want)
		}
	}
}

func TestUniformIsInUnitInterval(t *testing.T) {
	g := Secure().Stream(0)
	for i := 0; i < 10000; i++ {
		if u := g.Uniform(); u <= 0 || u > 1 {
			t.Fatalf("Uniform: got %f, want value in (0, 1]", u)
		}
	}
}

func TestSeededStreamsAreReproducible(t *testing.T) {
	a, b := Seeded(42).Stream(3), Seeded(42).Stream(3)
	for i := 0; i < 100; i++ {
		if x, y := a.U64(), b.U64(); x != y {
			t.Fatalf("Seeded(42).Stream(3): draw %d differs between generators: %d != %d", i, x, y)
		}
	}
}

func TestSeededStreamsAreDistinct(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		s1, s2   Source
		id1, id2 uint64
	}{
		{"same seed, different streams", Seeded(1), Seeded(1), 0, 1},
		{"different seeds, same stream", Seeded(1), Seeded(2), 0, 0},
		{"swapped seed and stream", Seeded(1), Seeded(0), 0, 1},
	} {
		a, b := tc.s1.Stream(tc.id1), tc.s2.Stream(tc.id2)
		same := true
		for i := 0; i < 8; i++ {
			if a.U64() != b.U64() {
				same = false
			}
		}
		if same {
			t.Errorf("%s: streams produced identical output", tc.desc)
		}
	}
}
