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

// Package utf8 provides additional UTF-8 related functions.
package utf8

import (
	"encoding/binary"
	stdutf8 "unicode/utf8"
)

// ValidPrefix returns the length of the longest prefix of b that is valid
// UTF-8 and ends on a rune boundary, plus whether the remainder after that
// prefix could still become a valid rune given more bytes.
//
// Streaming tokenizers use it to split text at arbitrary buffer boundaries:
// incomplete=true means "suspend and wait for more input", incomplete=false
// with n < len(b) means the input is malformed at offset n.
func ValidPrefix(b []byte) (n int, incomplete bool) {
	for n < len(b) {
		if b[n] < 0x80 {
			n++
			continue
		}
		r, size := stdutf8.DecodeRune(b[n:])
		if r == stdutf8.RuneError && size <= 1 {
			if !stdutf8.FullRune(b[n:]) && len(b)-n < stdutf8.UTFMax {
				return n, true
			}
			return n, false
		}
		n += size
	}
	return n, false
}

// Valid reports whether b is entirely valid UTF-8, using an 8-byte SWAR
// fast path for ASCII runs.
func Valid(b []byte) bool {
	for len(b) >= 8 {
		qword := binary.LittleEndian.Uint64(b)
		if qword&0x8080808080808080 != 0 {
			break
		}
		b = b[8:]
	}
	return stdutf8.Valid(b)
}
