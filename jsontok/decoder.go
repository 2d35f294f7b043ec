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

// Package jsontok implements a resumable JSON tokenizer.
//
// The Decoder is a coroutine-style decode step: it consumes bytes from a
// stream.Buffer, emits stream.Tokens, and suspends with ShortRead or
// ShortWrite whenever input runs dry or output fills up, resuming exactly
// where it stopped on the next call. Every source byte of the decoded
// value is covered by exactly one token, so token lengths alone recover
// absolute byte positions.
package jsontok

import (
	"github.com/SnellerInc/streamdec/ints"
	"github.com/SnellerInc/streamdec/stream"
	"github.com/SnellerInc/streamdec/utf8"
)

const (
	// MaxDepth is the maximum nesting depth of arrays and objects.
	MaxDepth = 1024

	// MaxNumberLength is the maximum byte length of one number literal.
	// It bounds how many bytes must be resident to tokenize a number, so
	// it must be far below any reasonable input buffer size.
	MaxNumberLength = 99
)

// Quirks toggle optional leniencies without changing the core algorithm.
// Unknown quirk values are ignored by SetQuirkEnabled.
const (
	QuirkAllowCommentBlock  uint32 = 0x4A530001 // /* ... */
	QuirkAllowCommentLine   uint32 = 0x4A530002 // // ... to end of line
	QuirkAllowTrailingComma uint32 = 0x4A530003 // [1,2,] and {"a":1,}
	QuirkAllowInfNaNNumbers uint32 = 0x4A530004 // Infinity, -Infinity, NaN

	// QuirkExpectMultipleTopLevelValues keeps the decoder in its value
	// state after a top-level value completes, so a stream of
	// whitespace-separated values tokenizes until end of input.
	QuirkExpectMultipleTopLevelValues uint32 = 0x4A530005
)

const (
	quirkCommentBlock = 1 << iota
	quirkCommentLine
	quirkTrailingComma
	quirkInfNaN
	quirkMultiValue
)

var (
	errBadInput       = stream.Error("jsontok: bad input")
	errUnexpectedEOF  = stream.Error("jsontok: unexpected end of file")
	errBadUTF8        = stream.Error("jsontok: bad UTF-8")
	errBadEscape      = stream.Error("jsontok: bad backslash-escape")
	errRecursionDepth = stream.Error("jsontok: unsupported recursion depth")
	errNumberLength   = stream.Error("jsontok: unsupported number length")
)

// resume points; see stream.TokenDecoder
type state uint8

const (
	sValue      state = iota // expecting a value (top level, list element, or dict value)
	sListFirst               // just opened '[': value or ']'
	sListComma               // after ',' in a list
	sKeyFirst                // just opened '{': key or '}'
	sKeyComma                // after ',' in a dict
	sColon                   // between a key and its value
	sAfterValue              // expecting ',' or the container's closer
	sString                  // mid string body
	sCommentBlock            // mid /* comment
	sCommentLine             // mid // comment
	sDone                    // top-level value complete
)

// Decoder tokenizes one top-level JSON value. The zero value is ready to
// use. A Decoder is exclusively owned by its caller; it is not safe for
// concurrent use.
type Decoder struct {
	state  state
	ret    state // state to restore after a comment
	quirks uint32
	depth  int
	stack  [MaxDepth / 64]uint64 // bit set = dict, clear = list
	inKey  bool
	star   bool // block comment scan saw a trailing '*'
}

// NewDecoder returns a fresh Decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Reset returns d to its initial state, keeping quirk settings.
func (d *Decoder) Reset() {
	q := d.quirks
	*d = Decoder{quirks: q}
}

// SetQuirkEnabled toggles one of the Quirk constants. Unknown values are
// ignored.
func (d *Decoder) SetQuirkEnabled(quirk uint32, enabled bool) {
	var bit uint32
	switch quirk {
	case QuirkAllowCommentBlock:
		bit = quirkCommentBlock
	case QuirkAllowCommentLine:
		bit = quirkCommentLine
	case QuirkAllowTrailingComma:
		bit = quirkTrailingComma
	case QuirkAllowInfNaNNumbers:
		bit = quirkInfNaN
	case QuirkExpectMultipleTopLevelValues:
		bit = quirkMultiValue
	default:
		return
	}
	if enabled {
		d.quirks |= bit
	} else {
		d.quirks &^= bit
	}
}

func (d *Decoder) quirkOn(bit uint32) bool { return d.quirks&bit != 0 }

// DecodeTokens implements stream.TokenDecoder. Tokenization ends just
// past the top-level value; trailing input, whitespace included, is left
// unread (with the multiple-top-level-values quirk it instead runs to end
// of input).
func (d *Decoder) DecodeTokens(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	for {
		var st stream.Status
		switch d.state {
		case sDone:
			return stream.EndOfData
		case sString:
			st = d.stringChunk(dst, src)
		case sCommentBlock:
			st = d.commentBlock(dst, src)
		case sCommentLine:
			st = d.commentLine(dst, src)
		default:
			st = d.dispatch(dst, src)
		}
		if st != stream.OK {
			return st
		}
		if d.state == sDone {
			return stream.OK
		}
	}
}

// emit writes one token and consumes its source bytes. The caller must
// have checked dst.Full.
func emit(dst *stream.TokenBuffer, src *stream.Buffer, t stream.Token) {
	dst.Put(t)
	src.AdvanceReader(t.Length())
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// skipFiller consumes whitespace, emitting filler tokens, and returns the
// next significant byte without consuming it.
func (d *Decoder) skipFiller(dst *stream.TokenBuffer, src *stream.Buffer) (byte, stream.Status) {
	for {
		rs := src.ReaderSlice()
		n := 0
		for n < len(rs) && n < stream.MaxTokenLength && isSpace(rs[n]) {
			n++
		}
		if n > 0 {
			if dst.Full() {
				return 0, stream.ShortWrite
			}
			emit(dst, src, stream.MakeToken(stream.CatFiller, 0, n))
			continue
		}
		if len(rs) == 0 {
			if src.Closed {
				return 0, errUnexpectedEOF
			}
			return 0, stream.ShortRead
		}
		return rs[0], stream.OK
	}
}

func (d *Decoder) dispatch(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	b, st := d.skipFiller(dst, src)
	if st == errUnexpectedEOF && d.state == sValue && d.depth == 0 && d.quirkOn(quirkMultiValue) {
		// a clean end of a multi-value stream
		d.state = sDone
		return stream.OK
	}
	if st != stream.OK {
		return st
	}
	if b == '/' && d.quirks&(quirkCommentBlock|quirkCommentLine) != 0 {
		return d.openComment(dst, src)
	}
	switch d.state {
	case sValue, sListFirst, sListComma:
		if b == ']' && d.state != sValue {
			if d.state == sListComma && !d.quirkOn(quirkTrailingComma) {
				return errBadInput
			}
			return d.closeContainer(dst, src, ']')
		}
		return d.value(dst, src, b)

	case sKeyFirst, sKeyComma:
		if b == '}' {
			if d.state == sKeyComma && !d.quirkOn(quirkTrailingComma) {
				return errBadInput
			}
			return d.closeContainer(dst, src, '}')
		}
		if b != '"' {
			return errBadInput
		}
		d.inKey = true
		return d.openString(dst, src)

	case sColon:
		if b != ':' {
			return errBadInput
		}
		if dst.Full() {
			return stream.ShortWrite
		}
		emit(dst, src, stream.MakeToken(stream.CatFiller, 0, 1))
		d.state = sValue
		return stream.OK

	case sAfterValue:
		dict := ints.TestBit(d.stack[:], d.depth-1)
		switch {
		case b == ',':
			if dst.Full() {
				return stream.ShortWrite
			}
			emit(dst, src, stream.MakeToken(stream.CatFiller, 0, 1))
			if dict {
				d.state = sKeyComma
			} else {
				d.state = sListComma
			}
			return stream.OK
		case b == ']' && !dict:
			return d.closeContainer(dst, src, ']')
		case b == '}' && dict:
			return d.closeContainer(dst, src, '}')
		}
		return errBadInput
	}
	return stream.Error("jsontok: internal error: bad state")
}

func (d *Decoder) value(dst *stream.TokenBuffer, src *stream.Buffer, b byte) stream.Status {
	switch {
	case b == '{' || b == '[':
		return d.openContainer(dst, src, b)
	case b == '"':
		d.inKey = false
		return d.openString(dst, src)
	case b == '-' || (b >= '0' && b <= '9'):
		return d.number(dst, src)
	case b == 'n' || b == 't' || b == 'f':
		return d.literal(dst, src)
	case d.quirkOn(quirkInfNaN) && (b == 'I' || b == 'i' || b == 'N'):
		return d.infNaN(dst, src, false)
	}
	return errBadInput
}

// valueDone advances the state machine after a complete value.
func (d *Decoder) valueDone() {
	switch {
	case d.depth > 0:
		d.state = sAfterValue
	case d.quirkOn(quirkMultiValue):
		d.state = sValue
	default:
		d.state = sDone
	}
}

func (d *Decoder) openContainer(dst *stream.TokenBuffer, src *stream.Buffer, b byte) stream.Status {
	if d.depth >= MaxDepth {
		return errRecursionDepth
	}
	if dst.Full() {
		return stream.ShortWrite
	}
	detail := uint32(stream.StructPush)
	switch {
	case d.depth == 0:
		detail |= stream.StructFromNone
	case ints.TestBit(d.stack[:], d.depth-1):
		detail |= stream.StructFromDict
	default:
		detail |= stream.StructFromList
	}
	if b == '{' {
		detail |= stream.StructToDict
		ints.SetBit(d.stack[:], d.depth)
		d.state = sKeyFirst
	} else {
		detail |= stream.StructToList
		ints.ClearBit(d.stack[:], d.depth)
		d.state = sListFirst
	}
	emit(dst, src, stream.MakeToken(stream.CatStructure, detail, 1))
	d.depth++
	return stream.OK
}

func (d *Decoder) closeContainer(dst *stream.TokenBuffer, src *stream.Buffer, b byte) stream.Status {
	if dst.Full() {
		return stream.ShortWrite
	}
	detail := uint32(stream.StructPop)
	if b == '}' {
		detail |= stream.StructFromDict
	} else {
		detail |= stream.StructFromList
	}
	switch {
	case d.depth == 1:
		detail |= stream.StructToNone
	case ints.TestBit(d.stack[:], d.depth-2):
		detail |= stream.StructToDict
	default:
		detail |= stream.StructToList
	}
	emit(dst, src, stream.MakeToken(stream.CatStructure, detail, 1))
	d.depth--
	d.valueDone()
	return stream.OK
}

func (d *Decoder) openString(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	if dst.Full() {
		return stream.ShortWrite
	}
	emit(dst, src, stream.MakeToken(stream.CatString, stream.StrConvertDrop|stream.Continued, 1))
	d.state = sString
	return stream.OK
}

func (d *Decoder) stringChunk(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	for {
		rs := src.ReaderSlice()
		if len(rs) == 0 {
			if src.Closed {
				return errUnexpectedEOF
			}
			return stream.ShortRead
		}

		// plain fragment: bytes before the next quote, escape, or
		// control character
		stop := 0
		limit := ints.Min(len(rs), stream.MaxTokenLength)
		for stop < limit {
			c := rs[stop]
			if c == '"' || c == '\\' || c < 0x20 {
				break
			}
			stop++
		}
		valid, incomplete := utf8.ValidPrefix(rs[:stop])
		if valid > 0 {
			if dst.Full() {
				return stream.ShortWrite
			}
			emit(dst, src, stream.MakeToken(stream.CatString, stream.StrConvert1To1|stream.Continued, valid))
			continue
		}
		if valid < stop {
			// the fragment starts mid-rune: a truncated sequence at
			// the end of the buffer may still be completed by more
			// input, anything else is malformed
			if incomplete && stop == len(rs) && !src.Closed {
				return stream.ShortRead
			}
			return errBadUTF8
		}

		switch c := rs[0]; {
		case c == '"':
			if dst.Full() {
				return stream.ShortWrite
			}
			emit(dst, src, stream.MakeToken(stream.CatString, stream.StrConvertDrop, 1))
			if d.inKey {
				d.inKey = false
				d.state = sColon
			} else {
				d.valueDone()
			}
			return stream.OK
		case c == '\\':
			st := d.escape(dst, src, rs)
			if st != stream.OK {
				return st
			}
			continue
		default: // control character
			return errBadInput
		}
	}
}

var simpleEscapes = map[byte]uint32{
	'"': '"', '\\': '\\', '/': '/',
	'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t',
}

func (d *Decoder) escape(dst *stream.TokenBuffer, src *stream.Buffer, rs []byte) stream.Status {
	if len(rs) < 2 {
		if src.Closed {
			return errUnexpectedEOF
		}
		return stream.ShortRead
	}
	if cp, ok := simpleEscapes[rs[1]]; ok {
		if dst.Full() {
			return stream.ShortWrite
		}
		emit(dst, src, stream.MakeToken(stream.CatCodePoint, cp, 2))
		return stream.OK
	}
	if rs[1] != 'u' {
		return errBadEscape
	}
	if len(rs) < 6 {
		if src.Closed {
			return errUnexpectedEOF
		}
		return stream.ShortRead
	}
	r1, ok := hex4(rs[2:6])
	if !ok {
		return errBadEscape
	}
	switch {
	case r1 >= 0xDC00 && r1 <= 0xDFFF:
		// unpaired low surrogate
		return errBadEscape
	case r1 >= 0xD800 && r1 <= 0xDBFF:
		if len(rs) >= 7 && rs[6] != '\\' {
			return errBadEscape
		}
		if len(rs) >= 8 && rs[7] != 'u' {
			return errBadEscape
		}
		if len(rs) < 12 {
			if src.Closed {
				return errUnexpectedEOF
			}
			return stream.ShortRead
		}
		r2, ok := hex4(rs[8:12])
		if !ok || r2 < 0xDC00 || r2 > 0xDFFF {
			return errBadEscape
		}
		if dst.Full() {
			return stream.ShortWrite
		}
		cp := 0x10000 + (r1-0xD800)<<10 + (r2 - 0xDC00)
		emit(dst, src, stream.MakeToken(stream.CatCodePoint, cp, 12))
		return stream.OK
	}
	if dst.Full() {
		return stream.ShortWrite
	}
	emit(dst, src, stream.MakeToken(stream.CatCodePoint, r1, 6))
	return stream.OK
}

func hex4(b []byte) (uint32, bool) {
	var v uint32
	for _, c := range b[:4] {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint32(c - '0')
		case c >= 'a' && c <= 'f':
			v |= uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= uint32(c-'A') + 10
		default:
			return 0, false
		}
	}
	return v, true
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E'
}

func (d *Decoder) number(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	rs := src.ReaderSlice()
	if d.quirkOn(quirkInfNaN) && len(rs) >= 2 && rs[0] == '-' && !isNumberByte(rs[1]) {
		return d.infNaN(dst, src, true)
	}
	n := 0
	for n < len(rs) && n <= MaxNumberLength && isNumberByte(rs[n]) {
		n++
	}
	if n > MaxNumberLength {
		return errNumberLength
	}
	if n == len(rs) && !src.Closed {
		// the number may continue past the available bytes
		return stream.ShortRead
	}
	isInt, ok := validNumber(rs[:n])
	if !ok {
		return errBadInput
	}
	if dst.Full() {
		return stream.ShortWrite
	}
	detail := uint32(stream.NumFormatText | stream.NumFloat)
	if isInt {
		detail |= stream.NumIntSigned
	}
	emit(dst, src, stream.MakeToken(stream.CatNumber, detail, n))
	d.valueDone()
	return stream.OK
}

// validNumber checks b against the JSON number grammar and reports whether
// it is integral (no fraction or exponent).
func validNumber(b []byte) (isInt, ok bool) {
	i := 0
	if i < len(b) && b[i] == '-' {
		i++
	}
	switch {
	case i < len(b) && b[i] == '0':
		i++
	case i < len(b) && b[i] >= '1' && b[i] <= '9':
		for i < len(b) && b[i] >= '0' && b[i] <= '9' {
			i++
		}
	default:
		return false, false
	}
	isInt = true
	if i < len(b) && b[i] == '.' {
		isInt = false
		i++
		if i >= len(b) || b[i] < '0' || b[i] > '9' {
			return false, false
		}
		for i < len(b) && b[i] >= '0' && b[i] <= '9' {
			i++
		}
	}
	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		isInt = false
		i++
		if i < len(b) && (b[i] == '+' || b[i] == '-') {
			i++
		}
		if i >= len(b) || b[i] < '0' || b[i] > '9' {
			return false, false
		}
		for i < len(b) && b[i] >= '0' && b[i] <= '9' {
			i++
		}
	}
	return isInt, i == len(b)
}

var literals = [...]struct {
	word   string
	detail uint32
}{
	{"null", stream.LitNull},
	{"true", stream.LitTrue},
	{"false", stream.LitFalse},
}

func (d *Decoder) literal(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	rs := src.ReaderSlice()
	for _, l := range &literals {
		if rs[0] != l.word[0] {
			continue
		}
		if len(rs) < len(l.word) {
			if prefixOf(rs, l.word) {
				if src.Closed {
					return errUnexpectedEOF
				}
				return stream.ShortRead
			}
			return errBadInput
		}
		if string(rs[:len(l.word)]) != l.word {
			return errBadInput
		}
		if dst.Full() {
			return stream.ShortWrite
		}
		emit(dst, src, stream.MakeToken(stream.CatNumber, l.detail, len(l.word)))
		d.valueDone()
		return stream.OK
	}
	return errBadInput
}

func prefixOf(b []byte, word string) bool {
	return string(b) == word[:len(b)]
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// infNaN tokenizes Infinity/NaN literals (case-insensitive, optional
// leading minus), gated on QuirkAllowInfNaNNumbers.
func (d *Decoder) infNaN(dst *stream.TokenBuffer, src *stream.Buffer, neg bool) stream.Status {
	rs := src.ReaderSlice()
	i := 0
	if neg {
		i = 1
	}
	n := i
	for n < len(rs) && n-i < 10 {
		c := lower(rs[n])
		if c < 'a' || c > 'z' {
			break
		}
		n++
	}
	if n == len(rs) && !src.Closed && n-i < 10 {
		return stream.ShortRead
	}
	word := make([]byte, 0, 10)
	for _, c := range rs[i:n] {
		word = append(word, lower(c))
	}
	var detail uint32
	switch string(word) {
	case "inf", "infinity":
		detail = stream.NumPosInf
		if neg {
			detail = stream.NumNegInf
		}
	case "nan":
		detail = stream.NumPosNaN
		if neg {
			detail = stream.NumNegNaN
		}
	default:
		return errBadInput
	}
	if dst.Full() {
		return stream.ShortWrite
	}
	emit(dst, src, stream.MakeToken(stream.CatNumber, detail, n))
	d.valueDone()
	return stream.OK
}

func (d *Decoder) openComment(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	rs := src.ReaderSlice()
	if len(rs) < 2 {
		if src.Closed {
			return errBadInput
		}
		return stream.ShortRead
	}
	var next state
	switch {
	case rs[1] == '*' && d.quirkOn(quirkCommentBlock):
		next = sCommentBlock
	case rs[1] == '/' && d.quirkOn(quirkCommentLine):
		next = sCommentLine
	default:
		return errBadInput
	}
	if dst.Full() {
		return stream.ShortWrite
	}
	emit(dst, src, stream.MakeToken(stream.CatFiller, 0, 2))
	d.ret = d.state
	d.state = next
	d.star = false
	return stream.OK
}

func (d *Decoder) commentBlock(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	for {
		rs := src.ReaderSlice()
		if len(rs) == 0 {
			if src.Closed {
				return errUnexpectedEOF
			}
			return stream.ShortRead
		}
		if dst.Full() {
			return stream.ShortWrite
		}
		n := 0
		limit := ints.Min(len(rs), stream.MaxTokenLength)
		for n < limit {
			c := rs[n]
			n++
			if d.star && c == '/' {
				emit(dst, src, stream.MakeToken(stream.CatFiller, 0, n))
				d.state = d.ret
				return stream.OK
			}
			d.star = c == '*'
		}
		emit(dst, src, stream.MakeToken(stream.CatFiller, 0, n))
	}
}

func (d *Decoder) commentLine(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	for {
		rs := src.ReaderSlice()
		if len(rs) == 0 {
			if src.Closed {
				// comment terminated by end of input
				d.state = d.ret
				return stream.OK
			}
			return stream.ShortRead
		}
		if dst.Full() {
			return stream.ShortWrite
		}
		n := 0
		limit := ints.Min(len(rs), stream.MaxTokenLength)
		for n < limit {
			c := rs[n]
			n++
			if c == '\n' {
				emit(dst, src, stream.MakeToken(stream.CatFiller, 0, n))
				d.state = d.ret
				return stream.OK
			}
		}
		emit(dst, src, stream.MakeToken(stream.CatFiller, 0, n))
	}
}
