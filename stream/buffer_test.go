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

package stream_test

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/SnellerInc/streamdec/stream"
)

func checkInvariant(t *testing.T, b *stream.Buffer) {
	t.Helper()
	if b.ReadIndex < 0 || b.ReadIndex > b.WriteIndex || b.WriteIndex > len(b.Data) {
		t.Fatalf("invariant violated: ri=%d wi=%d cap=%d", b.ReadIndex, b.WriteIndex, len(b.Data))
	}
}

func TestBufferOps(t *testing.T) {
	b := stream.NewBuffer(64)
	checkInvariant(t, b)
	if n := copy(b.WriterSlice(), "hello, world"); n != 12 {
		t.Fatalf("copied %d bytes", n)
	}
	b.AdvanceWriter(12)
	checkInvariant(t, b)
	if got := string(b.ReaderSlice()); got != "hello, world" {
		t.Errorf("reader slice %q", got)
	}
	b.AdvanceReader(7)
	if got := string(b.ReaderSlice()); got != "world" {
		t.Errorf("reader slice %q", got)
	}
	if b.ReaderPosition() != 7 {
		t.Errorf("reader position %d", b.ReaderPosition())
	}
	if b.WriterPosition() != 12 {
		t.Errorf("writer position %d", b.WriterPosition())
	}

	before := append([]byte(nil), b.ReaderSlice()...)
	posBefore, riBefore := b.Pos, b.ReadIndex
	b.Compact()
	checkInvariant(t, b)
	if !bytes.Equal(b.ReaderSlice(), before) {
		t.Errorf("compact changed contents: %q", b.ReaderSlice())
	}
	if b.ReadIndex != 0 {
		t.Errorf("compact left ri=%d", b.ReadIndex)
	}
	if b.Pos != posBefore+uint64(riBefore) {
		t.Errorf("compact pos=%d, want %d", b.Pos, posBefore+uint64(riBefore))
	}
	if b.ReaderPosition() != 7 {
		t.Errorf("reader position changed by compact: %d", b.ReaderPosition())
	}
}

func TestBufferRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(0x5EED))
	b := stream.NewBuffer(97)
	for i := 0; i < 10000; i++ {
		switch rng.Intn(4) {
		case 0:
			b.AdvanceWriter(rng.Intn(b.WriterLength() + 1))
		case 1:
			b.AdvanceReader(rng.Intn(b.ReaderLength() + 1))
		case 2:
			b.Compact()
		case 3:
			b.CompactRetaining(rng.Intn(32))
		}
		checkInvariant(t, b)
	}
}

func TestCompactRetaining(t *testing.T) {
	b := stream.NewBuffer(32)
	copy(b.WriterSlice(), "0123456789abcdef")
	b.AdvanceWriter(16)
	b.AdvanceReader(10)

	b.CompactRetaining(4)
	checkInvariant(t, b)
	if b.ReadIndex != 4 {
		t.Fatalf("retained %d bytes, want 4", b.ReadIndex)
	}
	// history stays addressable in front of the read cursor
	if got := string(b.Data[:b.WriteIndex]); got != "6789abcdef" {
		t.Errorf("retained window %q", got)
	}
	if b.Pos != 6 {
		t.Errorf("pos %d, want 6", b.Pos)
	}
	if b.ReaderPosition() != 10 {
		t.Errorf("reader position %d, want 10", b.ReaderPosition())
	}

	// asking for more history than was read keeps everything
	b2 := stream.NewBuffer(8)
	copy(b2.WriterSlice(), "xy")
	b2.AdvanceWriter(2)
	b2.AdvanceReader(1)
	b2.CompactRetaining(100)
	if b2.Pos != 0 || b2.ReadIndex != 1 {
		t.Errorf("pos=%d ri=%d after no-op retain", b2.Pos, b2.ReadIndex)
	}
}

func TestAdvanceOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	b := stream.NewBuffer(4)
	b.AdvanceReader(1) // nothing written yet
}

func TestReaderBuffer(t *testing.T) {
	b := stream.ReaderBuffer([]byte("abc"))
	if !b.Closed || b.ReaderLength() != 3 || b.WriterLength() != 0 {
		t.Fatalf("bad reader buffer: %+v", b)
	}
}

func TestTokenBufferCompact(t *testing.T) {
	b := stream.NewTokenBuffer(4)
	b.Put(stream.MakeToken(stream.CatFiller, 0, 3))
	b.Put(stream.MakeToken(stream.CatNumber, stream.NumFormatText|stream.NumIntSigned|stream.NumFloat, 2))
	b.Put(stream.MakeToken(stream.CatFiller, 0, 1))
	if b.Full() {
		t.Fatal("not full yet")
	}
	_ = b.Next()
	_ = b.Next()
	if b.ReaderPosition() != 5 {
		t.Errorf("reader position %d, want 5", b.ReaderPosition())
	}
	b.Compact()
	if b.Pos != 5 {
		t.Errorf("pos %d, want 5", b.Pos)
	}
	if b.ReaderLength() != 1 || b.ReadIndex != 0 {
		t.Errorf("ri=%d wi=%d", b.ReadIndex, b.WriteIndex)
	}
	if got := b.Next(); got.Length() != 1 {
		t.Errorf("surviving token length %d", got.Length())
	}
}

func TestSatAdd(t *testing.T) {
	if got := stream.SatAdd(1, 2); got != 3 {
		t.Errorf("1+2=%d", got)
	}
	if got := stream.SatAdd(math.MaxUint64-1, 5); got != math.MaxUint64 {
		t.Errorf("saturating add = %d", got)
	}
}
