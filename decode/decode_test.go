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

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/fxamacker/cbor/v2"

	"github.com/SnellerInc/streamdec/jsontok"
	"github.com/SnellerInc/streamdec/source"
	"github.com/SnellerInc/streamdec/stream"
)

// traceCB records the callback sequence as strings.
type traceCB struct {
	events    []string
	doneCalls int
}

func (c *traceCB) ev(s string) error {
	c.events = append(c.events, s)
	return nil
}

func (c *traceCB) AppendNull() error      { return c.ev("null") }
func (c *traceCB) AppendBool(b bool) error {
	return c.ev(strconv.FormatBool(b))
}
func (c *traceCB) AppendI64(v int64) error  { return c.ev(fmt.Sprintf("int(%d)", v)) }
func (c *traceCB) AppendU64(v uint64) error { return c.ev(fmt.Sprintf("uint(%d)", v)) }
func (c *traceCB) AppendF64(v float64) error {
	return c.ev("float(" + strconv.FormatFloat(v, 'g', -1, 64) + ")")
}
func (c *traceCB) AppendByteString(b []byte) error {
	return c.ev(fmt.Sprintf("bytes(% x)", b))
}
func (c *traceCB) AppendTextString(s string) error {
	return c.ev(fmt.Sprintf("str(%q)", s))
}
func (c *traceCB) Push(flags uint32) error {
	if flags&stream.StructToDict != 0 {
		return c.ev("push(dict)")
	}
	return c.ev("push(list)")
}
func (c *traceCB) Pop(flags uint32) error {
	if flags&stream.StructFromDict != 0 {
		return c.ev("pop(dict)")
	}
	return c.ev("pop(list)")
}
func (c *traceCB) Done(result *Result, input stream.Input, buf *stream.Buffer) {
	c.doneCalls++
}

func (c *traceCB) trace() string { return strings.Join(c.events, " ") }

// cborCB adds every optional appender on top of traceCB.
type cborCB struct {
	traceCB
}

func (c *cborCB) AppendCBORTag(tag uint64) error {
	return c.ev(fmt.Sprintf("tag(%d)", tag))
}
func (c *cborCB) AppendCBORSimpleValue(v uint8) error {
	return c.ev(fmt.Sprintf("simple(%d)", v))
}
func (c *cborCB) AppendMinus1MinusX(x uint64) error {
	return c.ev(fmt.Sprintf("-1-%d", x))
}
func (c *cborCB) AppendUndefined() error { return c.ev("undef") }

func checkDone(t *testing.T, cb *traceCB) {
	t.Helper()
	if cb.doneCalls != 1 {
		t.Fatalf("Done called %d times", cb.doneCalls)
	}
}

func TestDecodeJSONObject(t *testing.T) {
	input := `{"a":1,"b":[2,3]}`
	want := `push(dict) str("a") int(1) str("b") push(list) int(2) int(3) pop(list) pop(dict)`

	for name, in := range map[string]stream.Input{
		"memory":   source.NewMemoryInput([]byte(input)),
		"one-byte": source.NewReaderInput(iotest.OneByteReader(strings.NewReader(input))),
	} {
		cb := &traceCB{}
		res := DecodeJSON(cb, in, Options{})
		if res.ErrorMessage != "" {
			t.Fatalf("%s: %s", name, res.ErrorMessage)
		}
		if got := cb.trace(); got != want {
			t.Errorf("%s: got %s", name, got)
		}
		if res.CursorPosition != uint64(len(input)) {
			t.Errorf("%s: cursor %d, want %d", name, res.CursorPosition, len(input))
		}
		checkDone(t, cb)
	}
}

func TestDecodeJSONTruncated(t *testing.T) {
	input := `{"a":1,"b":[2,`
	cb := &traceCB{}
	res := DecodeJSON(cb, source.NewMemoryInput([]byte(input)), Options{})
	if !strings.Contains(res.ErrorMessage, "unexpected end of file") {
		t.Fatalf("got %q", res.ErrorMessage)
	}
	if res.CursorPosition > uint64(len(input)) {
		t.Errorf("cursor %d past input end %d", res.CursorPosition, len(input))
	}
	checkDone(t, cb)
}

func TestDecodeJSONEmpty(t *testing.T) {
	cb := &traceCB{}
	res := DecodeJSON(cb, source.NewMemoryInput(nil), Options{})
	if !strings.Contains(res.ErrorMessage, "unexpected end of file") {
		t.Fatalf("got %q", res.ErrorMessage)
	}
	if len(cb.events) != 0 {
		t.Errorf("unexpected events: %v", cb.events)
	}
	checkDone(t, cb)
}

func TestDecodeJSONValues(t *testing.T) {
	input := `[0, -7, 9007199254740993, 123456789012345678901234567890,
		0.5, 1e300, "café", "😀", true, false, null]`
	cb := &traceCB{}
	res := DecodeJSON(cb, source.NewMemoryInput([]byte(input)), Options{})
	if res.ErrorMessage != "" {
		t.Fatal(res.ErrorMessage)
	}
	want := `push(list) int(0) int(-7) int(9007199254740993) ` +
		`float(1.2345678901234568e+29) float(0.5) float(1e+300) ` +
		`str("café") str("😀") true false null pop(list)`
	if got := cb.trace(); got != want {
		t.Errorf("got %s", got)
	}
}

func TestDecodeJSONQuirks(t *testing.T) {
	input := "// header\n[1, /* two */ 2, Infinity,]"
	cb := &traceCB{}
	res := DecodeJSON(cb, source.NewMemoryInput([]byte(input)), Options{
		Quirks: []uint32{
			jsontok.QuirkAllowCommentBlock,
			jsontok.QuirkAllowCommentLine,
			jsontok.QuirkAllowTrailingComma,
			jsontok.QuirkAllowInfNaNNumbers,
		},
	})
	if res.ErrorMessage != "" {
		t.Fatal(res.ErrorMessage)
	}
	if got := cb.trace(); got != "push(list) int(1) int(2) float(+Inf) pop(list)" {
		t.Errorf("got %s", got)
	}

	cb = &traceCB{}
	res = DecodeJSON(cb, source.NewMemoryInput([]byte(input)), Options{})
	if res.ErrorMessage == "" {
		t.Fatal("expected an error without quirks")
	}
}

func TestDecodeCBOR(t *testing.T) {
	doc := []any{
		uint64(1),
		int64(-1000000),
		"text",
		[]byte{0xde, 0xad},
		nil,
		true,
		map[string]any{"k": uint64(7)},
	}
	data, err := cbor.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	want := `push(list) uint(1) int(-1000000) str("text") bytes(de ad) ` +
		`null true push(dict) str("k") uint(7) pop(dict) pop(list)`

	for name, in := range map[string]stream.Input{
		"memory":   source.NewMemoryInput(data),
		"one-byte": source.NewReaderInput(iotest.OneByteReader(strings.NewReader(string(data)))),
	} {
		cb := &cborCB{}
		res := DecodeCBOR(cb, in, Options{})
		if res.ErrorMessage != "" {
			t.Fatalf("%s: %s", name, res.ErrorMessage)
		}
		if got := cb.trace(); got != want {
			t.Errorf("%s: got %s", name, got)
		}
		if res.CursorPosition != uint64(len(data)) {
			t.Errorf("%s: cursor %d, want %d", name, res.CursorPosition, len(data))
		}
		checkDone(t, &cb.traceCB)
	}
}

func TestDecodeCBORExtensions(t *testing.T) {
	// tag 1 around a float, an undefined, a simple value, and -1-x
	// below the int64 range, all inside one array
	data := []byte{
		0x84,
		0xc1, 0xf9, 0x3c, 0x00, // 1(1.0 as float16)
		0xf7,       // undefined
		0xf0,       // simple(16)
		0x3b, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, // -1-(2^64-1)
	}
	cb := &cborCB{}
	res := DecodeCBOR(cb, source.NewMemoryInput(data), Options{})
	if res.ErrorMessage != "" {
		t.Fatal(res.ErrorMessage)
	}
	want := `push(list) tag(1) float(1) undef simple(16) -1-18446744073709551615 pop(list)`
	if got := cb.trace(); got != want {
		t.Errorf("got %s", got)
	}

	// without the optional interfaces: tags are invisible, undefined
	// becomes null, simple values fail
	plain := &traceCB{}
	res = DecodeCBOR(plain, source.NewMemoryInput(data), Options{})
	if !strings.Contains(res.ErrorMessage, "unsupported CBOR simple value") {
		t.Fatalf("got %q", res.ErrorMessage)
	}
	if got := plain.trace(); got != "push(list) float(1) null" {
		t.Errorf("got %s", got)
	}

	// -1-x alone without an appender
	neg := []byte{0x3b, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	res = DecodeCBOR(&traceCB{}, source.NewMemoryInput(neg), Options{})
	if !strings.Contains(res.ErrorMessage, "integer out of range") {
		t.Fatalf("got %q", res.ErrorMessage)
	}
}

func TestDecodeCBORFloats(t *testing.T) {
	cases := map[string]string{
		"\xf9\x3e\x00":                     "float(1.5)",
		"\xfa\x40\x49\x0f\xdb":             "float(3.1415927410125732)",
		"\xfb\x40\x09\x21\xfb\x54\x44\x2d\x18": "float(3.141592653589793)",
		"\xf9\x7c\x00":                     "float(+Inf)",
		"\xf9\xfc\x00":                     "float(-Inf)",
	}
	for data, want := range cases {
		cb := &traceCB{}
		res := DecodeCBOR(cb, source.NewMemoryInput([]byte(data)), Options{})
		if res.ErrorMessage != "" {
			t.Fatalf("% x: %s", data, res.ErrorMessage)
		}
		if got := cb.trace(); got != want {
			t.Errorf("% x: got %s, want %s", data, got, want)
		}
	}
}

func TestDecodeCallbackError(t *testing.T) {
	// a callback error becomes the result and stops the decode
	failing := &failAfterCB{traceCB: &traceCB{}, failOn: "int(2)"}
	res := DecodeJSON(failing, source.NewMemoryInput([]byte(`[1,2,3]`)), Options{})
	if !strings.Contains(res.ErrorMessage, "synthetic failure") {
		t.Fatalf("got %q", res.ErrorMessage)
	}
	if got := failing.trace(); got != "push(list) int(1)" {
		t.Errorf("events before failure: %s", got)
	}
	checkDone(t, failing.traceCB)
}

type failAfterCB struct {
	*traceCB
	failOn string
}

func (c *failAfterCB) AppendI64(v int64) error {
	if fmt.Sprintf("int(%d)", v) == c.failOn {
		return fmt.Errorf("synthetic failure at %d", v)
	}
	return c.traceCB.AppendI64(v)
}

func TestInternTable(t *testing.T) {
	var tab internTable
	a := tab.string([]byte("key"))
	b := tab.string([]byte("key"))
	if a != "key" || b != "key" {
		t.Fatalf("got %q, %q", a, b)
	}
	long := strings.Repeat("x", maxInternLength+1)
	if got := tab.string([]byte(long)); got != long {
		t.Fatalf("long string mangled")
	}
	if got := tab.string(nil); got != "" {
		t.Fatalf("empty string: %q", got)
	}
}
