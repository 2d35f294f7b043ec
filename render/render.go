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

// Package render turns a decode callback stream back into JSON text.
package render

import (
	"encoding/base64"
	"math"
	"math/big"
	"strconv"

	"github.com/SnellerInc/streamdec/decode"
	"github.com/SnellerInc/streamdec/stream"
)

type frame struct {
	dict bool
	n    int
}

// JSON implements decode.Callbacks by appending JSON text to an internal
// buffer. The zero value renders compact output; SetIndent switches to
// pretty-printing. CBOR byte strings render as base64 strings, undefined
// as null, simple values as their number, and integers below -2^63 via
// big-integer formatting; non-finite floats render as the Infinity/NaN
// literals jsontok accepts under QuirkAllowInfNaNNumbers.
type JSON struct {
	buf    []byte
	indent string
	stack  []frame
}

// NewJSON returns a compact renderer.
func NewJSON() *JSON { return &JSON{} }

// SetIndent enables pretty-printing with the given per-level indent.
func (j *JSON) SetIndent(indent string) { j.indent = indent }

// Bytes returns the rendered text.
func (j *JSON) Bytes() []byte { return j.buf }

// Reset clears the renderer for reuse.
func (j *JSON) Reset() {
	j.buf = j.buf[:0]
	j.stack = j.stack[:0]
}

func (j *JSON) newline(depth int) {
	if j.indent == "" {
		return
	}
	j.buf = append(j.buf, '\n')
	for i := 0; i < depth; i++ {
		j.buf = append(j.buf, j.indent...)
	}
}

// pre emits the separator owed before the next key or value.
func (j *JSON) pre() {
	if len(j.stack) == 0 {
		return
	}
	fr := &j.stack[len(j.stack)-1]
	if fr.dict && fr.n%2 == 1 {
		j.buf = append(j.buf, ':')
		if j.indent != "" {
			j.buf = append(j.buf, ' ')
		}
		fr.n++
		return
	}
	if fr.n > 0 {
		j.buf = append(j.buf, ',')
	}
	fr.n++
	j.newline(len(j.stack))
}

func (j *JSON) AppendNull() error {
	j.pre()
	j.buf = append(j.buf, "null"...)
	return nil
}

func (j *JSON) AppendBool(b bool) error {
	j.pre()
	j.buf = strconv.AppendBool(j.buf, b)
	return nil
}

func (j *JSON) AppendI64(v int64) error {
	j.pre()
	j.buf = strconv.AppendInt(j.buf, v, 10)
	return nil
}

func (j *JSON) AppendU64(v uint64) error {
	j.pre()
	j.buf = strconv.AppendUint(j.buf, v, 10)
	return nil
}

func (j *JSON) AppendF64(v float64) error {
	j.pre()
	switch {
	case math.IsInf(v, 1):
		j.buf = append(j.buf, "Infinity"...)
	case math.IsInf(v, -1):
		j.buf = append(j.buf, "-Infinity"...)
	case math.IsNaN(v):
		j.buf = append(j.buf, "NaN"...)
	default:
		j.buf = strconv.AppendFloat(j.buf, v, 'g', -1, 64)
	}
	return nil
}

func (j *JSON) AppendByteString(b []byte) error {
	j.pre()
	j.buf = append(j.buf, '"')
	j.buf = append(j.buf, base64.StdEncoding.EncodeToString(b)...)
	j.buf = append(j.buf, '"')
	return nil
}

const hexDigits = "0123456789abcdef"

func (j *JSON) AppendTextString(s string) error {
	j.pre()
	j.buf = append(j.buf, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			j.buf = append(j.buf, '\\', c)
		case c == '\n':
			j.buf = append(j.buf, '\\', 'n')
		case c == '\r':
			j.buf = append(j.buf, '\\', 'r')
		case c == '\t':
			j.buf = append(j.buf, '\\', 't')
		case c < 0x20:
			j.buf = append(j.buf, '\\', 'u', '0', '0',
				hexDigits[c>>4], hexDigits[c&0xf])
		default:
			j.buf = append(j.buf, c)
		}
	}
	j.buf = append(j.buf, '"')
	return nil
}

func (j *JSON) Push(flags uint32) error {
	j.pre()
	dict := flags&stream.StructToDict != 0
	if dict {
		j.buf = append(j.buf, '{')
	} else {
		j.buf = append(j.buf, '[')
	}
	j.stack = append(j.stack, frame{dict: dict})
	return nil
}

func (j *JSON) Pop(flags uint32) error {
	fr := j.stack[len(j.stack)-1]
	j.stack = j.stack[:len(j.stack)-1]
	if fr.n > 0 {
		j.newline(len(j.stack))
	}
	if fr.dict {
		j.buf = append(j.buf, '}')
	} else {
		j.buf = append(j.buf, ']')
	}
	return nil
}

func (j *JSON) Done(result *decode.Result, input stream.Input, buf *stream.Buffer) {}

// AppendUndefined implements decode.UndefinedAppender.
func (j *JSON) AppendUndefined() error { return j.AppendNull() }

// AppendCBORSimpleValue implements decode.CBORSimpleValueAppender.
func (j *JSON) AppendCBORSimpleValue(v uint8) error { return j.AppendU64(uint64(v)) }

// AppendMinus1MinusX implements decode.Minus1MinusXAppender.
func (j *JSON) AppendMinus1MinusX(x uint64) error {
	j.pre()
	v := new(big.Int).SetUint64(x)
	v.Neg(v.Add(v, big.NewInt(1)))
	j.buf = v.Append(j.buf, 10)
	return nil
}
