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
	"strings"
	"testing"
	"testing/iotest"

	"github.com/SnellerInc/streamdec/source"
	"github.com/SnellerInc/streamdec/stream"
)

// metaFourCC identifies the test format's metadata.
const metaFourCC = 0x54455354 // "TEST"

// metaDecoder is a tiny TokenDecoder for exercising the metadata side
// channel. Its format is a sequence of records:
//
//	'P' v        parsed metadata carrying the value byte v
//	'R' n <n*B>  raw-passthrough metadata of n payload bytes
//	'0'..'9'     the decoded value (a single-digit number); ends the item
type metaDecoder struct {
	pending *stream.MoreInformation
}

func (m *metaDecoder) DecodeTokens(dst *stream.TokenBuffer, src *stream.Buffer) stream.Status {
	for {
		rs := src.ReaderSlice()
		if len(rs) == 0 {
			if src.Closed {
				return stream.Error("metatest: unexpected end of file")
			}
			return stream.ShortRead
		}
		switch c := rs[0]; {
		case c == 'P' || c == 'R':
			if len(rs) < 2 {
				if src.Closed {
					return stream.Error("metatest: unexpected end of file")
				}
				return stream.ShortRead
			}
			if dst.Full() {
				return stream.ShortWrite
			}
			minfo := &stream.MoreInformation{FourCC: metaFourCC}
			if c == 'P' {
				minfo.Flavor = stream.MetaParsed
				minfo.Parsed = uint64(rs[1])
			} else {
				minfo.Flavor = stream.MetaRawPassthrough
			}
			dst.Put(stream.MakeToken(stream.CatFiller, 0, 2))
			src.AdvanceReader(2)
			if c == 'R' {
				start := src.ReaderPosition()
				minfo.RangeMin = start
				minfo.RangeMax = start + uint64(rs[1])
			}
			m.pending = minfo
			return stream.MetadataReported
		case c >= '0' && c <= '9':
			if dst.Full() {
				return stream.ShortWrite
			}
			dst.Put(stream.MakeToken(stream.CatNumber,
				stream.NumFormatText|stream.NumIntSigned, 1))
			src.AdvanceReader(1)
			return stream.OK
		default:
			return stream.Error("metatest: bad input")
		}
	}
}

func (m *metaDecoder) TellMeMore(dst *stream.Buffer, minfo *stream.MoreInformation, src *stream.Buffer) stream.Status {
	if m.pending == nil {
		return stream.Error("metatest: internal error: no pending metadata")
	}
	*minfo = *m.pending
	m.pending = nil
	return stream.OK
}

// metaCB records metadata alongside the value trace.
type metaCB struct {
	traceCB
}

func (c *metaCB) HandleMetadata(minfo *stream.MoreInformation, data []byte) error {
	switch minfo.Flavor {
	case stream.MetaParsed:
		return c.ev(fmt.Sprintf("meta-parsed(%d)", minfo.Parsed))
	case stream.MetaRawPassthrough:
		return c.ev(fmt.Sprintf("meta-raw(%q)", data))
	}
	return fmt.Errorf("metatest: unknown flavor %d", minfo.Flavor)
}

func metaRun(cb Callbacks, input stream.Input, opts Options) Result {
	return run(cb, input, &metaDecoder{}, opts)
}

func TestMetadataSideChannel(t *testing.T) {
	input := "P\x07" + "R\x05HELLO" + "5"
	cb := &metaCB{}
	res := metaRun(cb, source.NewMemoryInput([]byte(input)), Options{})
	if res.ErrorMessage != "" {
		t.Fatal(res.ErrorMessage)
	}
	if got := cb.trace(); got != `meta-parsed(7) meta-raw("HELLO") int(5)` {
		t.Errorf("got %s", got)
	}
	if res.CursorPosition != uint64(len(input)) {
		t.Errorf("cursor %d, want %d", res.CursorPosition, len(input))
	}
	checkDone(t, &cb.traceCB)
}

func TestMetadataAcrossRefills(t *testing.T) {
	// one-byte reads force a refill for every payload byte
	payload := strings.Repeat("abcdefgh", 25)
	in := "R" + string([]byte{byte(len(payload))}) + payload + "9"
	cb := &metaCB{}
	res := metaRun(cb, source.NewReaderInput(iotest.OneByteReader(strings.NewReader(in))), Options{})
	if res.ErrorMessage != "" {
		t.Fatal(res.ErrorMessage)
	}
	if got := cb.trace(); got != fmt.Sprintf("meta-raw(%q) int(9)", payload) {
		t.Errorf("got %s", got)
	}
}

func TestMetadataUnsupported(t *testing.T) {
	// a plain callback set has no MetadataHandler
	cb := &traceCB{}
	res := metaRun(cb, source.NewMemoryInput([]byte("P\x01"+"5")), Options{})
	if !strings.Contains(res.ErrorMessage, "unsupported metadata") {
		t.Fatalf("got %q", res.ErrorMessage)
	}
	checkDone(t, cb)
}

func TestMetadataTooLarge(t *testing.T) {
	cb := &metaCB{}
	res := metaRun(cb, source.NewMemoryInput([]byte("R\x05HELLO"+"5")),
		Options{MaxMetadataLength: 4})
	if !strings.Contains(res.ErrorMessage, "metadata is too large") {
		t.Fatalf("got %q", res.ErrorMessage)
	}
	checkDone(t, &cb.traceCB)
}

func TestMetadataTruncated(t *testing.T) {
	cb := &metaCB{}
	res := metaRun(cb, source.NewMemoryInput([]byte("R\x05HE")), Options{})
	if !strings.Contains(res.ErrorMessage, "unexpected end of file") {
		t.Fatalf("got %q", res.ErrorMessage)
	}
}
