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

// Package rand provides sources of randomness and the generators drawing
// from them that the noise mechanisms of this module consume.
//
// A Source hands out Generators, one per evaluation stream. A Generator is
// not safe for concurrent use; concurrent evaluations each take their own
// stream so that no two cells of a release ever share a draw.
package rand

import (
	"bufio"
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math"
	"math/bits"
	mathrand "math/rand/v2"
	"sync"

	log "github.com/golang/glog"
)

var (
	randBufLock sync.Mutex
	randBuf     io.Reader = bufio.NewReaderSize(cryptorand.Reader, 65536)
)

func readRandBuf(b []byte) (int, error) {
	randBufLock.Lock()
	defer randBufLock.Unlock()
	return io.ReadFull(randBuf, b)
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(b []byte) (int, error) { return f(b) }

// Source produces independent streams of random bits.
type Source interface {
	// Stream returns a Generator for the stream identified by id. Generators
	// of distinct ids are independent of each other.
	Stream(id uint64) *Generator
}

type secureSource struct{}

// Secure returns the Source used for production releases. Every stream reads
// from the operating system's cryptographically secure generator, so streams
// are independent regardless of their ids and never repeat across sessions.
func Secure() Source {
	return secureSource{}
}

func (secureSource) Stream(_ uint64) *Generator {
	return NewGenerator(readerFunc(readRandBuf))
}

type seededSource struct {
	seed uint64
}

// Seeded returns a deterministic Source. The same seed and stream id always
// yield the same sequence, which makes releases reproducible in tests.
//
// Seeded sources must not be used for releases that are published.
func Seeded(seed uint64) Source {
	return seededSource{seed: seed}
}

func (s seededSource) Stream(id uint64) *Generator {
	return NewGenerator(mathrand.NewChaCha8(streamKey(s.seed, id)))
}

// streamKey derives a ChaCha8 key that is distinct for every (seed, id) pair.
func streamKey(seed, id uint64) [32]byte {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[0:], seed)
	binary.LittleEndian.PutUint64(key[8:], id)
	binary.LittleEndian.PutUint64(key[16:], splitMix64(seed))
	binary.LittleEndian.PutUint64(key[24:], splitMix64(id))
	return key
}

func splitMix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Generator draws values from a stream of random bits. Not thread-safe.
type Generator struct {
	r io.Reader

	bitBuf uint8
	bitPos int8
}

// NewGenerator returns a Generator reading random bits from r.
func NewGenerator(r io.Reader) *Generator {
	return &Generator{r: r, bitPos: math.MaxInt8}
}

func (g *Generator) read(b []byte) {
	if _, err := io.ReadFull(g.r, b); err != nil {
		log.Fatalf("out of randomness, should never happen: %v", err)
	}
}

// U64 returns a uniformly random uint64.
func (g *Generator) U64() uint64 {
	var r [8]uint8
	g.read(r[:])
	return binary.LittleEndian.Uint64(r[:])
}

// U8 returns a uniformly random uint8.
func (g *Generator) U8() uint8 {
	var r [1]uint8
	g.read(r[:])
	return r[0]
}

// Sign returns +1.0 or -1.0 with equal probabilities.
func (g *Generator) Sign() float64 {
	if g.Boolean() {
		return 1.0
	}
	return -1.0
}

// Boolean returns true or false with equal probability.
func (g *Generator) Boolean() bool {
	if g.bitPos > 7 { // Out of random bits.
		g.bitBuf = g.U8()
		g.bitPos = 0
	}
	res := g.bitBuf&(1<<g.bitPos) > 0
	g.bitPos++
	return res
}

// Uniform returns a float64 from the interval (0,1] such that each float
// in the interval is returned with positive probability and the resulting
// distribution simulates a continuous uniform distribution on (0, 1].
func (g *Generator) Uniform() float64 {
	i := g.U64() % (1 << 53)
	r := (1 + float64(i)/(1<<53)) / math.Pow(2, g.Geometric())
	// We want to avoid returning 0, since we're taking the log of the output.
	if r == 0 {
		return 1
	}
	return r
}

// Geometric returns a float64 that counts the number of Bernoulli trials until
// the first success for a success probability of 0.5.
func (g *Generator) Geometric() float64 {
	// 1 plus the number of leading zeros from an infinite stream of random bits
	// follows the desired geometric distribution.
	b := 1
	var r uint8
	for r == 0 {
		r = g.U8()
		b += bits.LeadingZeros8(r)
	}
	return float64(b)
}
