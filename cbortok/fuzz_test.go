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

//go:build go1.18

package cbortok

import (
	"testing"

	"github.com/SnellerInc/streamdec/stream"
)

// Feeding the same item byte-at-a-time must behave exactly like feeding
// it in large chunks: same terminal status, same event trace.
func FuzzDecodeTokens(f *testing.F) {
	items := [][]byte{
		{0x00},
		{0x17},
		{0x18, 0x18},
		{0x3b, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		{0x64, 't', 'e', 'x', 't'},
		{0x44, 0xde, 0xad, 0xbe, 0xef},
		{0x7f, 0x62, 'a', 'b', 0x61, 'c', 0xff},         // indefinite text
		{0x83, 0x01, 0x82, 0x02, 0x03, 0xa1, 0x61, 'k', 0x07},
		{0x9f, 0x01, 0x02, 0xff},                        // indefinite array
		{0xc1, 0xf9, 0x3c, 0x00},                        // tag 1 around float16
		{0xf4}, {0xf5}, {0xf6}, {0xf7},
		{0xfb, 0x3f, 0xf0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		{0x62, 0xc3},       // truncated é inside a text string
		{0x5f, 0x41, 0x00}, // unterminated indefinite bytes
		{0xff},             // stray break
	}
	for i := range items {
		f.Add(items[i])
	}
	f.Fuzz(func(t *testing.T, input []byte) {
		whole, wst := tokenize(NewDecoder(), input, 64, 256)
		// token capacity must fit a whole chain, which is emitted
		// atomically
		bytewise, bst := tokenize(NewDecoder(), input, 1, stream.MaxIntChain)
		if wst != bst {
			t.Fatalf("whole: %q, byte-at-a-time: %q", wst.Message(), bst.Message())
		}
		if !wst.IsOK() {
			return
		}
		if w, b := events(t, input, whole), events(t, input, bytewise); w != b {
			t.Fatalf("whole decodes %s, byte-at-a-time %s", w, b)
		}
	})
}
