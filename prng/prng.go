// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package prng derives the deterministic random streams used in a simulation from a single root seed.
// Each node gets an independent stream per purpose, so that adding or removing traffic on one node
// does not change the backoff draws of another.
package prng

import (
	"math/rand"
	"time"

	. "github.com/wpansim/wpansim/types"
)

type RandomSeed int64

// Purpose selects one of the independent random streams of a node.
type Purpose uint8

const (
	PurposeBackoff Purpose = 1 // CSMA-CA backoff draws
	PurposeRx      Purpose = 2 // PHY packet error draws
	PurposeTraffic Purpose = 3 // traffic generator jitter
)

var (
	rootSeed          RandomSeed
	unitRandGenerator *rand.Rand
)

func init() {
	Init(1)
}

// Init initializes the prng package, either with a fixed PRNG seed (seed != 0) or a 'random' time-based PRNG
// seed (if seed == 0). It returns the root seed in use.
func Init(seed int64) RandomSeed {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rootSeed = RandomSeed(seed)
	unitRandGenerator = rand.New(rand.NewSource(int64(mix(uint64(seed), 0))))
	return rootSeed
}

// GetRootSeed returns the root seed set by the last Init.
func GetRootSeed() RandomSeed {
	return rootSeed
}

// NewNodeRand returns a new random generator for the given node and purpose. The same
// (root seed, node, purpose) always yields the same sequence.
func NewNodeRand(id NodeId, purpose Purpose) *rand.Rand {
	return NewRand(rootSeed, id, purpose)
}

// NewRand is like NewNodeRand with an explicit root seed.
func NewRand(seed RandomSeed, id NodeId, purpose Purpose) *rand.Rand {
	key := uint64(id)<<8 | uint64(purpose)
	return rand.New(rand.NewSource(int64(mix(uint64(seed), key))))
}

// NewUnitRandom generates a new random unit [0, 1) float, which can be used as a random probability.
func NewUnitRandom() float64 {
	return unitRandGenerator.Float64()
}

// mix is the splitmix64 finalizer applied to seed and key.
func mix(seed uint64, key uint64) uint64 {
	z := seed + (key+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
