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

package decode

import "github.com/dchest/siphash"

// maxInternLength bounds the strings worth interning; dict keys and enum
// values repeat, long payload strings do not.
const maxInternLength = 64

// the keys only pick the hash function; collisions are handled by the
// equality check in string
const (
	internK0 = 0x736e656c6c657221
	internK1 = 0x9e3779b97f4a7c15
)

// internTable de-duplicates short strings across one decode call, so a
// million rows with the same dict keys allocate each key once.
type internTable struct {
	m map[uint64]string
}

func (t *internTable) string(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if len(b) > maxInternLength {
		return string(b)
	}
	h := siphash.Hash(internK0, internK1, b)
	if s, ok := t.m[h]; ok && s == string(b) {
		return s
	}
	s := string(b)
	if t.m == nil {
		t.m = make(map[uint64]string, 8)
	}
	t.m[h] = s
	return s
}
