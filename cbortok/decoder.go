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

// Package cbortok implements a resumable CBOR (RFC 8949) tokenizer with
// the same coroutine contract as jsontok: tokens are emitted only once
// their source bytes are resident, and the decoder suspends with
// ShortRead/ShortWrite instead of blocking.
//
// CBOR concepts with no built-in token shape (tags, simple values,
// negative integers below -2^63) are emitted as extended tokens under
// Major; see the Ext flags.
package cbortok

import (
	"github.com/SnellerInc/streamdec/ints"
	"github.com/SnellerInc/streamdec/stream"
	"github.com/SnellerInc/streamdec/utf8"
)

// MaxDepth is the maximum nesting depth of arrays and maps.
const MaxDepth = 1024

// Major is the extended-token namespace for CBOR-specific concepts
// ("CBR" in ASCII).
const Major = 0x434252

// Extended-token minor layout: flag bits above the shared Continued bit
// (bit 20), value bits below it. Multi-token extended chains carry
// stream.IntPayloadBits value bits per token, most significant first;
// only the first token of a chain carries a flag bit.
const (
	ExtTag          = 1 << 23 // tag number (major type 6)
	ExtSimple       = 1 << 22 // simple value (major type 7, not bool/null/undefined/float)
	ExtMinus1MinusX = 1 << 21 // integer -1-x for the chained unsigned x

	ExtValueMask = 1<<stream.IntPayloadBits - 1
)

var (
	errBadInput       = stream.Error("cbortok: bad input")
	errUnexpectedEOF  = stream.Error("cbortok: unexpected end of file")
	errBadUTF8        = stream.Error("cbortok: bad UTF-8")
	errRecursionDepth = stream.Error("cbortok: unsupported recursion depth")
)

type state uint8

const (
	sValue      state = iota // expecting a data item (or break)
	sStringData              // mid definite-length string payload
	sIndefChunk              // inside an indefinite string: chunk or break
	sDone
)

// Decoder tokenizes one top-level CBOR data item. The zero value is ready
// to use.
type Decoder struct {
	state state
	depth int

	// per-open-container bookkeeping; counts is items left for
	// definite containers and items seen for indefinite ones
	counts    [MaxDepth]uint64
	dictBits  [MaxDepth / 64]uint64
	indefBits [MaxDepth / 64]uint64

	strRemaining uint64 // definite string payload bytes not yet tokenized
	strBytes     bool   // current string chain is a byte string
	indefStr     bool   // current definite payload is a chunk of an indefinite string
	afterTag     bool   // a tag was emitted and its item has not completed
}

// NewDecoder returns a fresh Decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Reset returns d to its initial state.
func (d *Decoder) Reset() { *d = Decoder{} }

// SetQuirkEnabled is accepted for interface symmetry with jsontok; the
// CBOR tokenizer defines no quirks.
func (d *Decoder) SetQuirkEnabled(quirk uint32, enabled bool) {}

// DecodeTokens implements stream.TokenDecoder.
func (d *Decoder) DecodeTokens(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	for {
		var st stream.Status
		switch d.state {
		case sDone:
			return stream.EndOfData
		case sStringData:
			st = d.stringData(dst, src)
		case sIndefChunk:
			st = d.indefChunk(dst, src)
		default:
			st = d.item(dst, src)
		}
		if st != stream.OK {
			return st
		}
		if d.state == sDone {
			return stream.OK
		}
	}
}

func emit(dst *stream.TokenBuffer, src *stream.Buffer, t stream.Token) {
	dst.Put(t)
	src.AdvanceReader(t.Length())
}

// itemDone advances bookkeeping after one complete data item.
func (d *Decoder) itemDone() {
	d.afterTag = false
	if d.depth == 0 {
		d.state = sDone
		return
	}
	i := d.depth - 1
	if ints.TestBit(d.indefBits[:], i) {
		d.counts[i]++
	} else {
		d.counts[i]--
	}
	d.state = sValue
}

// closeCompleted emits zero-length pop tokens for definite containers
// whose last item has been consumed.
func (d *Decoder) closeCompleted(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	for d.depth > 0 {
		i := d.depth - 1
		if ints.TestBit(d.indefBits[:], i) || d.counts[i] != 0 {
			return stream.OK
		}
		if dst.Full() {
			return stream.ShortWrite
		}
		emit(dst, src, d.popToken(0))
		d.depth--
		d.itemDone()
		if d.state == sDone {
			return stream.OK
		}
	}
	return stream.OK
}

func (d *Decoder) popToken(length int) stream.Token {
	i := d.depth - 1
	detail := uint32(stream.StructPop)
	if ints.TestBit(d.dictBits[:], i) {
		detail |= stream.StructFromDict
	} else {
		detail |= stream.StructFromList
	}
	switch {
	case d.depth == 1:
		detail |= stream.StructToNone
	case ints.TestBit(d.dictBits[:], d.depth-2):
		detail |= stream.StructToDict
	default:
		detail |= stream.StructToList
	}
	return stream.MakeToken(stream.CatStructure, detail, length)
}

func (d *Decoder) pushToken(dict bool, length int) stream.Token {
	detail := uint32(stream.StructPush)
	switch {
	case d.depth == 0:
		detail |= stream.StructFromNone
	case ints.TestBit(d.dictBits[:], d.depth-1):
		detail |= stream.StructFromDict
	default:
		detail |= stream.StructFromList
	}
	if dict {
		detail |= stream.StructToDict
	} else {
		detail |= stream.StructToList
	}
	return stream.MakeToken(stream.CatStructure, detail, length)
}

// prefix decodes a data item head. It returns the argument value and the
// total head width in bytes; ok is false when more bytes are needed.
func prefix(rs []byte) (x uint64, width int, ok bool) {
	info := rs[0] & 0x1f
	switch {
	case info < 24:
		return uint64(info), 1, true
	case info == 24:
		width = 2
	case info == 25:
		width = 3
	case info == 26:
		width = 5
	case info == 27:
		width = 9
	default:
		// 28-30 reserved, 31 handled by the caller
		return 0, 0, true
	}
	if len(rs) < width {
		return 0, width, false
	}
	for _, c := range rs[1:width] {
		x = x<<8 | uint64(c)
	}
	return x, width, true
}

func (d *Decoder) item(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	if st := d.closeCompleted(dst, src); st != stream.OK || d.state == sDone {
		return st
	}
	rs := src.ReaderSlice()
	if len(rs) == 0 {
		if src.Closed {
			return errUnexpectedEOF
		}
		return stream.ShortRead
	}
	major := rs[0] >> 5
	info := rs[0] & 0x1f

	if rs[0] == 0xff { // break
		return d.breakStop(dst, src)
	}
	if info >= 28 && info <= 30 {
		return errBadInput
	}
	if info == 31 {
		switch major {
		case 2, 3:
			return d.openIndefString(dst, src, major == 2)
		case 4, 5:
			return d.openContainer(dst, src, major == 5, true, 0, 1)
		default:
			return errBadInput
		}
	}

	x, width, ok := prefix(rs)
	if !ok {
		if src.Closed {
			return errUnexpectedEOF
		}
		return stream.ShortRead
	}

	switch major {
	case 0:
		st := emitUintChain(dst, src, stream.CatIntUnsigned, 0, x, width)
		if st != stream.OK {
			return st
		}
		d.itemDone()
		return stream.OK
	case 1:
		if x > 0x7fffffffffffffff {
			// -1-x is below -2^63; hand the raw x to the caller
			st := emitExtChain(dst, src, ExtMinus1MinusX, x, width)
			if st != stream.OK {
				return st
			}
		} else {
			st := emitIntChain(dst, src, -1-int64(x), width)
			if st != stream.OK {
				return st
			}
		}
		d.itemDone()
		return stream.OK
	case 2, 3:
		return d.openDefString(dst, src, major == 2, x, width)
	case 4:
		return d.openContainer(dst, src, false, false, x, width)
	case 5:
		if x > 0x7fffffffffffffff {
			return errBadInput
		}
		return d.openContainer(dst, src, true, false, 2*x, width)
	case 6:
		st := emitExtChain(dst, src, ExtTag, x, width)
		if st != stream.OK {
			return st
		}
		d.afterTag = true
		return stream.OK
	default: // 7
		return d.simpleOrFloat(dst, src, info, x, width)
	}
}

func (d *Decoder) breakStop(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	if d.afterTag || d.depth == 0 {
		return errBadInput
	}
	i := d.depth - 1
	if !ints.TestBit(d.indefBits[:], i) {
		return errBadInput
	}
	if ints.TestBit(d.dictBits[:], i) && d.counts[i]%2 != 0 {
		// map broken between a key and its value
		return errBadInput
	}
	if dst.Full() {
		return stream.ShortWrite
	}
	emit(dst, src, d.popToken(1))
	d.depth--
	d.itemDone()
	return stream.OK
}

func (d *Decoder) openContainer(dst *stream.TokenBuffer, src *stream.Buffer, dict, indef bool, count uint64, width int) stream.Status {
	if d.depth >= MaxDepth {
		return errRecursionDepth
	}
	if dst.Full() {
		return stream.ShortWrite
	}
	emit(dst, src, d.pushToken(dict, width))
	i := d.depth
	d.depth++
	d.counts[i] = count
	if dict {
		ints.SetBit(d.dictBits[:], i)
	} else {
		ints.ClearBit(d.dictBits[:], i)
	}
	if indef {
		ints.SetBit(d.indefBits[:], i)
	} else {
		ints.ClearBit(d.indefBits[:], i)
	}
	d.afterTag = false
	d.state = sValue
	return stream.OK
}

func strCat(bytes bool) stream.Category {
	if bytes {
		return stream.CatBytes
	}
	return stream.CatString
}

func (d *Decoder) openDefString(dst *stream.TokenBuffer, src *stream.Buffer, bytes bool, n uint64, width int) stream.Status {
	if dst.Full() {
		return stream.ShortWrite
	}
	emit(dst, src, stream.MakeToken(strCat(bytes), stream.StrConvertDrop|stream.Continued, width))
	d.strBytes = bytes
	d.strRemaining = n
	d.indefStr = false
	d.state = sStringData
	return stream.OK
}

func (d *Decoder) openIndefString(dst *stream.TokenBuffer, src *stream.Buffer, bytes bool) stream.Status {
	if dst.Full() {
		return stream.ShortWrite
	}
	emit(dst, src, stream.MakeToken(strCat(bytes), stream.StrConvertDrop|stream.Continued, 1))
	d.strBytes = bytes
	d.state = sIndefChunk
	return stream.OK
}

// indefChunk handles the inside of an indefinite-length string: either a
// definite chunk of the same string type, or the closing break.
func (d *Decoder) indefChunk(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	rs := src.ReaderSlice()
	if len(rs) == 0 {
		if src.Closed {
			return errUnexpectedEOF
		}
		return stream.ShortRead
	}
	if rs[0] == 0xff {
		if dst.Full() {
			return stream.ShortWrite
		}
		emit(dst, src, stream.MakeToken(strCat(d.strBytes), stream.StrConvertDrop, 1))
		d.itemDone()
		return stream.OK
	}
	major := rs[0] >> 5
	info := rs[0] & 0x1f
	wantMajor := byte(3)
	if d.strBytes {
		wantMajor = 2
	}
	if major != wantMajor || info > 27 {
		return errBadInput
	}
	n, width, ok := prefix(rs)
	if !ok {
		if src.Closed {
			return errUnexpectedEOF
		}
		return stream.ShortRead
	}
	if dst.Full() {
		return stream.ShortWrite
	}
	emit(dst, src, stream.MakeToken(strCat(d.strBytes), stream.StrConvertDrop|stream.Continued, width))
	d.strRemaining = n
	d.indefStr = true
	d.state = sStringData
	return stream.OK
}

func (d *Decoder) stringData(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	for d.strRemaining > 0 {
		rs := src.ReaderSlice()
		if len(rs) == 0 {
			if src.Closed {
				return errUnexpectedEOF
			}
			return stream.ShortRead
		}
		limit := len(rs)
		if uint64(limit) > d.strRemaining {
			limit = int(d.strRemaining)
		}
		limit = ints.Min(limit, stream.MaxTokenLength)

		n := limit
		detail := uint32(stream.StrConvert1To1 | stream.Continued)
		if !d.strBytes {
			valid, incomplete := utf8.ValidPrefix(rs[:limit])
			switch {
			case valid == limit:
			case incomplete && uint64(limit) == d.strRemaining:
				// a rune may not span the end of the string (or,
				// for indefinite strings, the end of a chunk)
				return errBadUTF8
			case incomplete && limit == len(rs):
				if valid == 0 {
					if src.Closed {
						return errUnexpectedEOF
					}
					return stream.ShortRead
				}
				n = valid
			case incomplete:
				// rune split by the token length cap
				n = valid
			default:
				return errBadUTF8
			}
			if n == 0 {
				return errBadUTF8
			}
		}
		if dst.Full() {
			return stream.ShortWrite
		}
		emit(dst, src, stream.MakeToken(strCat(d.strBytes), detail, n))
		d.strRemaining -= uint64(n)
	}

	// close the chain, or return to chunk scanning
	if d.indefStr {
		d.state = sIndefChunk
		return stream.OK
	}
	if dst.Full() {
		return stream.ShortWrite
	}
	emit(dst, src, stream.MakeToken(strCat(d.strBytes), stream.StrConvertDrop, 0))
	d.itemDone()
	return stream.OK
}

func (d *Decoder) simpleOrFloat(dst *stream.TokenBuffer, src *stream.Buffer, info byte, x uint64, width int) stream.Status {
	switch info {
	case 25, 26, 27: // half, single, double
		if dst.Full() {
			return stream.ShortWrite
		}
		detail := uint32(stream.NumFloat | stream.NumFormatBE | stream.NumIgnoreFirstByte)
		emit(dst, src, stream.MakeToken(stream.CatNumber, detail, width))
		d.itemDone()
		return stream.OK
	case 24:
		if x < 32 {
			// two-byte encoding of a one-byte simple value
			return errBadInput
		}
	}
	var lit uint32
	switch x {
	case 20:
		lit = stream.LitFalse
	case 21:
		lit = stream.LitTrue
	case 22:
		lit = stream.LitNull
	case 23:
		lit = stream.LitUndefined
	}
	if dst.Full() {
		return stream.ShortWrite
	}
	if lit != 0 {
		emit(dst, src, stream.MakeToken(stream.CatNumber, lit, width))
	} else {
		emit(dst, src, stream.MakeExtToken(Major, ExtSimple|uint32(x), width))
	}
	d.itemDone()
	return stream.OK
}

// uintGroups is the number of IntPayloadBits groups needed for x.
func uintGroups(x uint64) int {
	n := 1
	for x>>stream.IntPayloadBits != 0 {
		x >>= stream.IntPayloadBits
		n++
	}
	return n
}

// emitUintChain emits x as an inline-integer chain of cat tokens; the
// first token covers the source bytes, continuations are zero-length.
func emitUintChain(dst *stream.TokenBuffer, src *stream.Buffer, cat stream.Category, flags uint32, x uint64, srcLen int) stream.Status {
	n := uintGroups(x)
	if dst.WriterLength() < n {
		return stream.ShortWrite
	}
	for i := n - 1; i >= 0; i-- {
		detail := flags | uint32(x>>(uint(i)*stream.IntPayloadBits))&ExtValueMask
		if i > 0 {
			detail |= stream.Continued
		}
		length := 0
		if i == n-1 {
			length = srcLen
		}
		emit(dst, src, stream.MakeToken(cat, detail, length))
	}
	return stream.OK
}

// emitIntChain emits v as a sign-extended CatIntSigned chain.
func emitIntChain(dst *stream.TokenBuffer, src *stream.Buffer, v int64, srcLen int) stream.Status {
	n := stream.MaxIntChain
	for n > 1 {
		shift := uint(64 - stream.IntPayloadBits*(n-1))
		if int64(uint64(v)<<shift)>>shift != v {
			break
		}
		n--
	}
	if dst.WriterLength() < n {
		return stream.ShortWrite
	}
	for i := n - 1; i >= 0; i-- {
		// arithmetic shift keeps the leading group sign-extended
		detail := uint32(v>>(uint(i)*stream.IntPayloadBits)) & ExtValueMask
		if i > 0 {
			detail |= stream.Continued
		}
		length := 0
		if i == n-1 {
			length = srcLen
		}
		emit(dst, src, stream.MakeToken(stream.CatIntSigned, detail, length))
	}
	return stream.OK
}

// emitExtChain emits x as an extended-token chain under Major; flag is
// set only on the leading token.
func emitExtChain(dst *stream.TokenBuffer, src *stream.Buffer, flag uint32, x uint64, srcLen int) stream.Status {
	n := uintGroups(x)
	if dst.WriterLength() < n {
		return stream.ShortWrite
	}
	for i := n - 1; i >= 0; i-- {
		minor := uint32(x>>(uint(i)*stream.IntPayloadBits)) & ExtValueMask
		if i == n-1 {
			minor |= flag
		}
		if i > 0 {
			minor |= stream.Continued
		}
		length := 0
		if i == n-1 {
			length = srcLen
		}
		emit(dst, src, stream.MakeExtToken(Major, minor, length))
	}
	return stream.OK
}
