// Copyright 2026 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package ints

import (
	"golang.org/x/exp/constraints"
)

// TestBit check if the k-th bit is set in range "in"
func TestBit[K constraints.Integer](in []uint64, k K) bool {
	return in[uint64(k)/64]&(uint64(1)<<(uint64(k)%64)) != 0
}

// SetBit sets the k-th bit in range "in"
func SetBit[K constraints.Integer](in []uint64, k K) {
	in[uint64(k)/64] |= uint64(1) << (uint64(k) % 64)
}

// ClearBit clears the k-th bit in range "in"
func ClearBit[K constraints.Integer](in []uint64, k K) {
	in[uint64(k)/64] &^= uint64(1) << (uint64(k) % 64)
}
