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

// Package stream provides the fixed-capacity buffers, the packed token
// representation, and the suspension protocol shared by every streaming
// format decoder in this repository.
//
// A decoder never performs I/O of its own: it consumes bytes from a Buffer
// that some Input refills, emits tokens into a TokenBuffer, and yields
// control with a Status whenever it runs out of input bytes or output room.
package stream

import (
	"math"

	"github.com/SnellerInc/streamdec/ints"
)

// Buffer is a fixed-capacity byte buffer with separate read and write
// cursors. The invariant
//
//	0 <= ReadIndex <= WriteIndex <= len(Data)
//
// holds at all times; methods that would break it panic, since a violation
// is a bug in the caller rather than a recoverable decode error.
//
// Pos counts the bytes of the stream that logically precede Data[0], so
// absolute stream positions survive compaction. Closed means no further
// bytes will ever be written.
type Buffer struct {
	Data       []byte
	ReadIndex  int
	WriteIndex int
	Pos        uint64
	Closed     bool
}

// NewBuffer returns an empty Buffer with the given fixed capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{Data: make([]byte, capacity)}
}

// ReaderBuffer returns a Buffer whose contents are exactly data, already
// written and closed. It is the natural shape for in-memory or mmap'd
// sources that bring their own buffer.
func ReaderBuffer(data []byte) *Buffer {
	return &Buffer{Data: data, WriteIndex: len(data), Closed: true}
}

// Reset restores b to its freshly-created state, keeping the backing
// storage.
func (b *Buffer) Reset() {
	b.ReadIndex = 0
	b.WriteIndex = 0
	b.Pos = 0
	b.Closed = false
}

// ReaderLength returns the number of written-but-unread bytes.
func (b *Buffer) ReaderLength() int { return b.WriteIndex - b.ReadIndex }

// WriterLength returns the remaining room for writes.
func (b *Buffer) WriterLength() int { return len(b.Data) - b.WriteIndex }

// ReaderSlice returns the written-but-unread bytes.
func (b *Buffer) ReaderSlice() []byte { return b.Data[b.ReadIndex:b.WriteIndex] }

// WriterSlice returns the writable region after the write cursor.
func (b *Buffer) WriterSlice() []byte { return b.Data[b.WriteIndex:] }

// ReaderPosition returns the absolute stream position of the read cursor.
func (b *Buffer) ReaderPosition() uint64 { return SatAdd(b.Pos, uint64(b.ReadIndex)) }

// WriterPosition returns the absolute stream position of the write cursor.
func (b *Buffer) WriterPosition() uint64 { return SatAdd(b.Pos, uint64(b.WriteIndex)) }

// AdvanceReader moves the read cursor forward by n bytes.
func (b *Buffer) AdvanceReader(n int) {
	if n < 0 || n > b.ReaderLength() {
		panic("stream: invalid reader advance")
	}
	b.ReadIndex += n
}

// AdvanceWriter moves the write cursor forward by n bytes, which must
// already have been copied into WriterSlice.
func (b *Buffer) AdvanceWriter(n int) {
	if n < 0 || n > b.WriterLength() {
		panic("stream: invalid writer advance")
	}
	b.WriteIndex += n
}

// Compact slides the unread bytes to offset zero, folding the length of the
// discarded prefix into Pos. The contents of ReaderSlice are unchanged.
func (b *Buffer) Compact() {
	b.CompactRetaining(0)
}

// CompactRetaining is Compact, except that it keeps up to history of the
// most recently read bytes in front of the read cursor. Decoders for
// back-referencing formats (LZ77 family) rely on that history remaining
// addressable after a refill.
func (b *Buffer) CompactRetaining(history int) {
	if history < 0 {
		panic("stream: invalid history length")
	}
	keep := ints.Min(history, b.ReadIndex)
	discard := b.ReadIndex - keep
	if discard == 0 {
		return
	}
	copy(b.Data, b.Data[discard:b.WriteIndex])
	b.ReadIndex = keep
	b.WriteIndex -= discard
	b.Pos = SatAdd(b.Pos, uint64(discard))
}

// TokenBuffer is the token analogue of Buffer: fixed capacity, read and
// write cursors, and the same cursor invariant. Pos counts the cumulative
// source bytes represented by the tokens that have been compacted away, not
// a token count, so consumers can recover absolute byte positions from a
// token stream alone.
type TokenBuffer struct {
	Data       []Token
	ReadIndex  int
	WriteIndex int
	Pos        uint64
	Closed     bool
}

// NewTokenBuffer returns an empty TokenBuffer holding up to capacity tokens.
func NewTokenBuffer(capacity int) *TokenBuffer {
	return &TokenBuffer{Data: make([]Token, capacity)}
}

// Reset restores b to its freshly-created state, keeping the backing
// storage.
func (b *TokenBuffer) Reset() {
	b.ReadIndex = 0
	b.WriteIndex = 0
	b.Pos = 0
	b.Closed = false
}

// ReaderLength returns the number of written-but-unread tokens.
func (b *TokenBuffer) ReaderLength() int { return b.WriteIndex - b.ReadIndex }

// WriterLength returns the remaining room, in tokens.
func (b *TokenBuffer) WriterLength() int { return len(b.Data) - b.WriteIndex }

// Full reports whether there is no room for another token.
func (b *TokenBuffer) Full() bool { return b.WriteIndex >= len(b.Data) }

// Put appends one token. The caller must have checked Full.
func (b *TokenBuffer) Put(t Token) {
	if b.Full() {
		panic("stream: token buffer overflow")
	}
	b.Data[b.WriteIndex] = t
	b.WriteIndex++
}

// Next pops the next unread token. The caller must have checked
// ReaderLength.
func (b *TokenBuffer) Next() Token {
	if b.ReadIndex >= b.WriteIndex {
		panic("stream: token buffer underflow")
	}
	t := b.Data[b.ReadIndex]
	b.ReadIndex++
	return t
}

// ReaderPosition returns the absolute source-byte position corresponding to
// the read cursor: Pos plus the lengths of the already-read tokens that have
// not yet been compacted away.
func (b *TokenBuffer) ReaderPosition() uint64 {
	pos := b.Pos
	for _, t := range b.Data[:b.ReadIndex] {
		pos = SatAdd(pos, uint64(t.Length()))
	}
	return pos
}

// Compact slides the unread tokens to offset zero, folding the source-byte
// lengths of the discarded tokens into Pos.
func (b *TokenBuffer) Compact() {
	if b.ReadIndex == 0 {
		return
	}
	for _, t := range b.Data[:b.ReadIndex] {
		b.Pos = SatAdd(b.Pos, uint64(t.Length()))
	}
	copy(b.Data, b.Data[b.ReadIndex:b.WriteIndex])
	b.WriteIndex -= b.ReadIndex
	b.ReadIndex = 0
}

// SatAdd returns x+y, saturating at the maximum uint64 instead of wrapping.
func SatAdd(x, y uint64) uint64 {
	if s := x + y; s >= x {
		return s
	}
	return math.MaxUint64
}
