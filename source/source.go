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

// Package source provides stream.Input adapters: io.Reader plumbing,
// zero-copy in-memory and mmap'd inputs, and transparent decompression.
package source

import (
	"errors"
	"io"
	"unsafe"

	"github.com/SnellerInc/streamdec/stream"
)

var (
	errClosedBuffer = errors.New("source: copy into a closed buffer")
	errNoSpace      = errors.New("source: destination buffer has no space")
)

type readerInput struct {
	r io.Reader
}

// NewReaderInput adapts any io.Reader into a stream.Input. End of stream
// closes the destination buffer; read errors surface as-is.
func NewReaderInput(r io.Reader) stream.Input {
	return &readerInput{r: r}
}

func (ri *readerInput) CopyIn(dst *stream.Buffer) error {
	if dst.Closed {
		return errClosedBuffer
	}
	dst.Compact()
	ws := dst.WriterSlice()
	if len(ws) == 0 {
		return errNoSpace
	}
	for {
		n, err := ri.r.Read(ws)
		dst.AdvanceWriter(n)
		switch {
		case err == io.EOF:
			dst.Closed = true
			return nil
		case err != nil:
			return err
		case n > 0:
			return nil
		}
		// a (0, nil) read; try again
	}
}

// MemoryInput serves a byte slice. It brings its own buffer, so decode
// loops that accept one read the slice in place with no copying.
type MemoryInput struct {
	buf  *stream.Buffer
	data []byte
	off  int
}

// NewMemoryInput returns an input over data. The caller must not mutate
// data for the lifetime of the input.
func NewMemoryInput(data []byte) *MemoryInput {
	return &MemoryInput{buf: stream.ReaderBuffer(data), data: data}
}

// BringsItsOwnBuffer implements stream.BufferedInput.
func (m *MemoryInput) BringsItsOwnBuffer() *stream.Buffer { return m.buf }

// CopyIn implements stream.Input for callers that supply their own
// buffer. The destination must not alias the input slice.
func (m *MemoryInput) CopyIn(dst *stream.Buffer) error {
	if dst.Closed {
		return errClosedBuffer
	}
	if overlaps(dst.Data, m.data) {
		return errors.New("source: destination buffer aliases the input")
	}
	dst.Compact()
	ws := dst.WriterSlice()
	if len(ws) == 0 {
		return errNoSpace
	}
	n := copy(ws, m.data[m.off:])
	m.off += n
	dst.AdvanceWriter(n)
	if m.off == len(m.data) {
		dst.Closed = true
	}
	return nil
}

func overlaps(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	lo := uintptr(unsafe.Pointer(unsafe.SliceData(a)))
	hi := lo + uintptr(len(a))
	blo := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	bhi := blo + uintptr(len(b))
	return lo < bhi && blo < hi
}
