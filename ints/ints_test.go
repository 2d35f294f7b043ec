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

import "testing"

func TestClampers(t *testing.T) {
	if Min(3, 5) != 3 || Min(-2, -7) != -7 {
		t.Error("Min")
	}
	if Max(3, 5) != 5 || Max(uint16(9), uint16(1)) != 9 {
		t.Error("Max")
	}
	if Clamp(10, 0, 5) != 5 || Clamp(-1, 0, 5) != 0 || Clamp(3, 0, 5) != 3 {
		t.Error("Clamp")
	}
}

func TestBits(t *testing.T) {
	words := make([]uint64, 4)
	for _, k := range []int{0, 1, 63, 64, 200} {
		if TestBit(words, k) {
			t.Fatalf("bit %d set in empty range", k)
		}
		SetBit(words, k)
		if !TestBit(words, k) {
			t.Fatalf("bit %d not set", k)
		}
	}
	ClearBit(words, 64)
	if TestBit(words, 64) {
		t.Error("bit 64 still set")
	}
	if !TestBit(words, 63) || !TestBit(words, 200) {
		t.Error("neighboring bits disturbed")
	}
}
