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

// Package decode drives a stream.TokenDecoder and turns its token stream
// into typed callbacks: one DecodeJSON/DecodeCBOR call decodes one
// top-level value, refilling the source buffer from a stream.Input as the
// tokenizer suspends.
package decode

import (
	"encoding/binary"
	"errors"
	"math"
	"strconv"
	stdutf8 "unicode/utf8"

	"github.com/SnellerInc/streamdec/cbortok"
	"github.com/SnellerInc/streamdec/jsontok"
	"github.com/SnellerInc/streamdec/stream"
	"github.com/SnellerInc/streamdec/utf8"
)

const (
	srcBufferSize = 32768
	tokBufferSize = 256

	// DefaultMaxMetadataLength caps raw-passthrough metadata collection
	// when Options.MaxMetadataLength is zero.
	DefaultMaxMetadataLength = 1 << 20
)

// Result is the outcome of one decode call. A decode succeeded if and only
// if ErrorMessage is empty. CursorPosition is the absolute source-stream
// position of the decode cursor when the call returned; on success it sits
// just past the decoded value.
type Result struct {
	ErrorMessage   string
	CursorPosition uint64
}

// Options adjusts a decode call. The zero value is ready to use.
type Options struct {
	// Quirks is passed through to the tokenizer; see the jsontok Quirk
	// constants.
	Quirks []uint32

	// MaxMetadataLength caps the byte length of one raw-passthrough
	// metadata blob; 0 means DefaultMaxMetadataLength.
	MaxMetadataLength uint64

	// Pointer restricts DecodeJSON to the sub-value identified by an
	// RFC 6901 JSON Pointer; callbacks fire only for that subtree and
	// decoding stops as soon as it completes.
	Pointer string
}

// Callbacks receives the decoded structure of one value. A non-nil error
// from any method stops the decode and becomes the Result's ErrorMessage.
//
// Done is called exactly once per decode call, success or failure, and may
// inspect the final Result, the input and the source buffer (nil when the
// decode failed before a buffer existed).
type Callbacks interface {
	AppendNull() error
	AppendBool(b bool) error
	AppendI64(v int64) error
	AppendU64(v uint64) error
	AppendF64(v float64) error
	AppendByteString(b []byte) error
	AppendTextString(s string) error

	// Push and Pop bracket arrays and maps; flags is the structure
	// token's detail bits (StructToDict etc.).
	Push(flags uint32) error
	Pop(flags uint32) error

	Done(result *Result, input stream.Input, buf *stream.Buffer)
}

// CBORTagAppender is an optional Callbacks extension; without it, CBOR
// tags are skipped.
type CBORTagAppender interface {
	AppendCBORTag(tag uint64) error
}

// CBORSimpleValueAppender is an optional Callbacks extension; without it,
// CBOR simple values are a decode error.
type CBORSimpleValueAppender interface {
	AppendCBORSimpleValue(v uint8) error
}

// Minus1MinusXAppender is an optional Callbacks extension for CBOR
// negative integers below -2^63; without it they are a decode error.
type Minus1MinusXAppender interface {
	AppendMinus1MinusX(x uint64) error
}

// UndefinedAppender is an optional Callbacks extension; without it, CBOR
// undefined decodes as null.
type UndefinedAppender interface {
	AppendUndefined() error
}

// MetadataHandler is an optional Callbacks extension; without it, any
// reported metadata is an "unsupported metadata" decode error. data is
// non-nil only for raw-passthrough metadata.
type MetadataHandler interface {
	HandleMetadata(minfo *stream.MoreInformation, data []byte) error
}

// DecodeJSON decodes one top-level JSON value from input.
func DecodeJSON(cb Callbacks, input stream.Input, opts Options) Result {
	dec := jsontok.NewDecoder()
	for _, q := range opts.Quirks {
		dec.SetQuirkEnabled(q, true)
	}
	if opts.Pointer != "" {
		target, err := parsePointer(opts.Pointer)
		if err != nil {
			res := Result{ErrorMessage: err.Error()}
			cb.Done(&res, input, nil)
			return res
		}
		return run(newPtrFilter(cb, target), input, dec, opts)
	}
	return run(cb, input, dec, opts)
}

// DecodeCBOR decodes one top-level CBOR data item from input.
func DecodeCBOR(cb Callbacks, input stream.Input, opts Options) Result {
	if opts.Pointer != "" {
		res := Result{ErrorMessage: "decode: bad JSON Pointer (CBOR input)"}
		cb.Done(&res, input, nil)
		return res
	}
	dec := cbortok.NewDecoder()
	return run(cb, input, dec, opts)
}

// errStop is returned by in-package callback wrappers to end a decode
// successfully before the tokenizer is exhausted.
var errStop = errors.New("decode: stop")

var (
	errUnexpectedToken = errors.New("decode: internal error: unexpected token")
	errBadExtToken     = errors.New("decode: internal error: bad extended token")
	errBadNumber       = errors.New("decode: internal error: bad number token")
	errBadTextString   = errors.New("decode: internal error: bad UTF-8 in text string")
)

type pendKind uint8

const (
	pendNone pendKind = iota
	pendUint
	pendInt
	pendTag
	pendMinus1MinusX
)

type driver struct {
	cb    Callbacks
	input stream.Input
	dec   stream.TokenDecoder
	opts  Options

	src *stream.Buffer
	tok *stream.TokenBuffer

	// cursor is the index into src.Data up to which tokens have been
	// consumed; src.ReadIndex minus cursor is the byte length of tokens
	// emitted but not yet popped.
	cursor int

	depth     int
	completed bool
	stopped   bool
	failMsg   string

	// inline-integer / extended-token chain accumulation
	pend    pendKind
	pendLen int
	pendU   uint64
	pendS   int64

	// string chain accumulation
	strOpen  bool
	strBytes bool
	val      []byte

	intern internTable
}

func run(cb Callbacks, input stream.Input, dec stream.TokenDecoder, opts Options) Result {
	if opts.MaxMetadataLength == 0 {
		opts.MaxMetadataLength = DefaultMaxMetadataLength
	}
	d := &driver{cb: cb, input: input, dec: dec, opts: opts}
	if bi, ok := input.(stream.BufferedInput); ok {
		d.src = bi.BringsItsOwnBuffer()
	}
	if d.src == nil {
		d.src = stream.NewBuffer(srcBufferSize)
	}
	d.cursor = d.src.ReadIndex
	d.tok = stream.NewTokenBuffer(tokBufferSize)

	d.loop()

	res := Result{
		ErrorMessage:   d.failMsg,
		CursorPosition: stream.SatAdd(d.src.Pos, uint64(d.cursor)),
	}
	cb.Done(&res, input, d.src)
	return res
}

func (d *driver) fail(msg string) { d.failMsg = msg }

func (d *driver) loop() {
	for {
		st := d.dec.DecodeTokens(d.tok, d.src)
		if !d.processTokens() {
			return
		}
		if d.completed || d.stopped {
			return
		}
		switch {
		case st.IsOK():
			if d.pend != pendNone || d.strOpen || d.depth != 0 {
				d.fail("decode: internal error: truncated token stream")
			}
			return
		case st == stream.ShortRead:
			if !d.refill() {
				return
			}
		case st == stream.ShortWrite:
			d.tok.Compact()
		case st == stream.MetadataReported:
			if !d.metadata() {
				return
			}
		case st.IsError():
			d.fail(st.Message())
			return
		default:
			d.fail("decode: internal error: unexpected status: " + st.Message())
			return
		}
	}
}

// processTokens pops and dispatches every buffered token. It returns false
// when the decode must end (failure or an errStop callback).
func (d *driver) processTokens() bool {
	for d.tok.ReaderLength() > 0 {
		t := d.tok.Next()
		n := t.Length()
		if n > d.src.ReadIndex-d.cursor {
			d.fail("decode: internal error: bad token indexes")
			return false
		}
		span := d.src.Data[d.cursor : d.cursor+n]
		d.cursor += n
		if err := d.token(t, span); err != nil {
			if err == errStop {
				d.stopped = true
			} else {
				d.fail(err.Error())
			}
			return false
		}
		if d.completed {
			return true
		}
	}
	return true
}

// value finishes one decoded value after its callback.
func (d *driver) value(err error) error {
	if err != nil {
		return err
	}
	if d.depth == 0 {
		d.completed = true
	}
	return nil
}

func (d *driver) token(t stream.Token, span []byte) error {
	if d.pend != pendNone {
		return d.continueChain(t)
	}
	if d.strOpen {
		return d.stringToken(t, span)
	}
	if t.Major() != 0 {
		return d.extToken(t)
	}
	switch t.Category() {
	case stream.CatFiller:
		return nil
	case stream.CatString, stream.CatBytes:
		d.strOpen = true
		d.strBytes = t.Category() == stream.CatBytes
		d.val = d.val[:0]
		return d.stringToken(t, span)
	case stream.CatNumber:
		return d.numberToken(t, span)
	case stream.CatIntSigned, stream.CatIntUnsigned:
		if t.Continued() {
			if t.Category() == stream.CatIntSigned {
				d.pend = pendInt
				d.pendS = t.IntPayloadSigned()
			} else {
				d.pend = pendUint
				d.pendU = t.IntPayload()
			}
			d.pendLen = 1
			return nil
		}
		if t.Category() == stream.CatIntSigned {
			return d.value(d.cb.AppendI64(t.IntPayloadSigned()))
		}
		return d.value(d.cb.AppendU64(t.IntPayload()))
	case stream.CatStructure:
		det := t.Detail()
		if det&stream.StructPush != 0 {
			d.depth++
			return d.cb.Push(det)
		}
		if d.depth == 0 {
			return errUnexpectedToken
		}
		if err := d.cb.Pop(det); err != nil {
			return err
		}
		d.depth--
		return d.value(nil)
	}
	return errUnexpectedToken
}

func (d *driver) stringToken(t stream.Token, span []byte) error {
	if t.Major() != 0 {
		return errUnexpectedToken
	}
	switch t.Category() {
	case stream.CatCodePoint:
		d.val = stdutf8.AppendRune(d.val, rune(t.Detail()))
		return nil
	case stream.CatString, stream.CatBytes:
		if (t.Category() == stream.CatBytes) != d.strBytes {
			return errUnexpectedToken
		}
		if t.Detail()&stream.StrConvert1To1 != 0 {
			d.val = append(d.val, span...)
		}
		if t.Continued() {
			return nil
		}
		d.strOpen = false
		if d.strBytes {
			return d.value(d.cb.AppendByteString(d.val))
		}
		if !utf8.Valid(d.val) {
			return errBadTextString
		}
		return d.value(d.cb.AppendTextString(d.intern.string(d.val)))
	}
	return errUnexpectedToken
}

func (d *driver) extToken(t stream.Token) error {
	if t.Major() != cbortok.Major {
		return errBadExtToken
	}
	minor := t.Minor()
	switch {
	case minor&cbortok.ExtSimple != 0:
		if t.Continued() {
			return errBadExtToken
		}
		v := uint8(minor & cbortok.ExtValueMask)
		sa, ok := d.cb.(CBORSimpleValueAppender)
		if !ok {
			return errors.New("decode: unsupported CBOR simple value")
		}
		return d.value(sa.AppendCBORSimpleValue(v))
	case minor&cbortok.ExtTag != 0:
		return d.startExtChain(t, pendTag)
	case minor&cbortok.ExtMinus1MinusX != 0:
		return d.startExtChain(t, pendMinus1MinusX)
	}
	return errBadExtToken
}

func (d *driver) startExtChain(t stream.Token, kind pendKind) error {
	d.pendU = t.IntPayload()
	if !t.Continued() {
		return d.endChain(kind)
	}
	d.pend = kind
	d.pendLen = 1
	return nil
}

func (d *driver) continueChain(t stream.Token) error {
	switch d.pend {
	case pendInt:
		if t.Major() != 0 || t.Category() != stream.CatIntSigned {
			return errUnexpectedToken
		}
		d.pendS = d.pendS<<stream.IntPayloadBits | int64(t.IntPayload())
	case pendUint:
		if t.Major() != 0 || t.Category() != stream.CatIntUnsigned {
			return errUnexpectedToken
		}
		d.pendU = d.pendU<<stream.IntPayloadBits | t.IntPayload()
	case pendTag, pendMinus1MinusX:
		if t.Major() != cbortok.Major ||
			t.Minor()&(cbortok.ExtTag|cbortok.ExtSimple|cbortok.ExtMinus1MinusX) != 0 {
			return errBadExtToken
		}
		d.pendU = d.pendU<<stream.IntPayloadBits | t.IntPayload()
	}
	d.pendLen++
	if d.pendLen > stream.MaxIntChain {
		return errBadExtToken
	}
	if t.Continued() {
		return nil
	}
	kind := d.pend
	d.pend = pendNone
	d.pendLen = 0
	return d.endChain(kind)
}

func (d *driver) endChain(kind pendKind) error {
	switch kind {
	case pendInt:
		return d.value(d.cb.AppendI64(d.pendS))
	case pendUint:
		return d.value(d.cb.AppendU64(d.pendU))
	case pendTag:
		// tags annotate the next value; they are not a value themselves
		if ta, ok := d.cb.(CBORTagAppender); ok {
			return ta.AppendCBORTag(d.pendU)
		}
		return nil
	case pendMinus1MinusX:
		ma, ok := d.cb.(Minus1MinusXAppender)
		if !ok {
			return errors.New("decode: integer out of range (-1-x)")
		}
		return d.value(ma.AppendMinus1MinusX(d.pendU))
	}
	return errUnexpectedToken
}

func (d *driver) numberToken(t stream.Token, span []byte) error {
	det := t.Detail()
	switch {
	case det&stream.LitNull != 0:
		return d.value(d.cb.AppendNull())
	case det&stream.LitTrue != 0:
		return d.value(d.cb.AppendBool(true))
	case det&stream.LitFalse != 0:
		return d.value(d.cb.AppendBool(false))
	case det&stream.LitUndefined != 0:
		if ua, ok := d.cb.(UndefinedAppender); ok {
			return d.value(ua.AppendUndefined())
		}
		return d.value(d.cb.AppendNull())
	case det&stream.NumFormatText != 0:
		if det&stream.NumIntSigned != 0 {
			if v, err := strconv.ParseInt(string(span), 10, 64); err == nil {
				return d.value(d.cb.AppendI64(v))
			}
			// out of int64 range; fall through to float
		}
		f, err := strconv.ParseFloat(string(span), 64)
		if err != nil {
			return errBadNumber
		}
		return d.value(d.cb.AppendF64(f))
	case det&stream.NumFormatBE != 0:
		b := span
		if det&stream.NumIgnoreFirstByte != 0 {
			b = b[1:]
		}
		var f float64
		switch len(b) {
		case 2:
			f = stream.Float16(binary.BigEndian.Uint16(b))
		case 4:
			f = stream.Float32(binary.BigEndian.Uint32(b))
		case 8:
			f = stream.Float64(binary.BigEndian.Uint64(b))
		default:
			return errBadNumber
		}
		return d.value(d.cb.AppendF64(f))
	case det&stream.NumPosInf != 0:
		return d.value(d.cb.AppendF64(math.Inf(1)))
	case det&stream.NumNegInf != 0:
		return d.value(d.cb.AppendF64(math.Inf(-1)))
	case det&(stream.NumPosNaN|stream.NumNegNaN) != 0:
		return d.value(d.cb.AppendF64(math.NaN()))
	}
	return errBadNumber
}

// refill compacts src and asks the input for more bytes. It requires that
// every emitted token has been consumed, so compaction cannot discard live
// token bytes.
func (d *driver) refill() bool {
	if d.cursor != d.src.ReadIndex {
		d.fail("decode: internal error: bad cursor index")
		return false
	}
	if d.src.Closed {
		d.fail("decode: internal error: source buffer is closed")
		return false
	}
	d.src.Compact()
	d.cursor = d.src.ReadIndex
	if d.src.WriterLength() == 0 {
		d.fail("decode: internal error: source buffer is full")
		return false
	}
	if err := d.input.CopyIn(d.src); err != nil {
		d.fail(err.Error())
		return false
	}
	return true
}

func (d *driver) metadata() bool {
	mr, ok := d.dec.(stream.MetadataReporter)
	if !ok {
		d.fail("decode: internal error: metadata from a decoder without a reporter")
		return false
	}
	var minfo stream.MoreInformation
	st := mr.TellMeMore(d.src, &minfo, d.src)
	if st.IsError() {
		d.fail(st.Message())
		return false
	}
	if !st.IsOK() {
		d.fail("decode: internal error: bad metadata status: " + st.Message())
		return false
	}
	switch minfo.Flavor {
	case stream.MetaParsed:
		return d.handleMeta(&minfo, nil)
	case stream.MetaRawPassthrough:
		return d.rawMeta(&minfo)
	case stream.MetaIORedirect:
		d.fail("decode: unsupported metadata (I/O redirection)")
		return false
	}
	d.fail("decode: unsupported metadata")
	return false
}

func (d *driver) handleMeta(minfo *stream.MoreInformation, data []byte) bool {
	mh, ok := d.cb.(MetadataHandler)
	if !ok {
		d.fail("decode: unsupported metadata")
		return false
	}
	if err := mh.HandleMetadata(minfo, data); err != nil {
		d.fail(err.Error())
		return false
	}
	return true
}

// rawMeta skips to the reported byte range, collects it, and hands it to
// the MetadataHandler. The range may extend past the bytes currently
// buffered; collection refills as needed.
func (d *driver) rawMeta(minfo *stream.MoreInformation) bool {
	if minfo.RangeMax < minfo.RangeMin || d.src.ReaderPosition() > minfo.RangeMin {
		d.fail("decode: internal error: bad metadata range")
		return false
	}
	if minfo.RangeMax-minfo.RangeMin > d.opts.MaxMetadataLength {
		d.fail("decode: metadata is too large")
		return false
	}
	for d.src.ReaderPosition() < minfo.RangeMin {
		n := d.src.ReaderLength()
		if n == 0 {
			if d.src.Closed {
				d.fail("decode: unexpected end of file")
				return false
			}
			if !d.refill() {
				return false
			}
			continue
		}
		if skip := minfo.RangeMin - d.src.ReaderPosition(); uint64(n) > skip {
			n = int(skip)
		}
		d.src.AdvanceReader(n)
		d.cursor = d.src.ReadIndex
	}
	var data []byte
	for d.src.ReaderPosition() < minfo.RangeMax {
		rs := d.src.ReaderSlice()
		if len(rs) == 0 {
			if d.src.Closed {
				d.fail("decode: unexpected end of file")
				return false
			}
			if !d.refill() {
				return false
			}
			continue
		}
		n := len(rs)
		if take := minfo.RangeMax - d.src.ReaderPosition(); uint64(n) > take {
			n = int(take)
		}
		data = append(data, rs[:n]...)
		d.src.AdvanceReader(n)
		d.cursor = d.src.ReadIndex
	}
	return d.handleMeta(minfo, data)
}
