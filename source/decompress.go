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

package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	"github.com/SnellerInc/streamdec/stream"
)

// NewZstdInput wraps r, which must be a zstd stream, as a stream.Input.
func NewZstdInput(r io.Reader) (stream.Input, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return NewReaderInput(zr.IOReadCloser()), nil
}

// NewS2Input wraps r, which must be an s2 stream, as a stream.Input.
func NewS2Input(r io.Reader) stream.Input {
	return NewReaderInput(s2.NewReader(r))
}

// NewGzipInput wraps r, which must be a gzip stream, as a stream.Input.
func NewGzipInput(r io.Reader) (stream.Input, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return NewReaderInput(gr), nil
}

// NewDecompressInput picks a decompressor by name ("zstd", "s2", "gzip",
// or "" for none) and wraps r with it.
func NewDecompressInput(name string, r io.Reader) (stream.Input, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return NewReaderInput(r), nil
	case "zstd":
		return NewZstdInput(r)
	case "s2":
		return NewS2Input(r), nil
	case "gzip", "gz":
		return NewGzipInput(r)
	}
	return nil, fmt.Errorf("source: unknown compression %q", name)
}

// CompressionForPath guesses the compression name from a file suffix; ""
// means uncompressed.
func CompressionForPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".zst"), strings.HasSuffix(path, ".zstd"):
		return "zstd"
	case strings.HasSuffix(path, ".s2"):
		return "s2"
	case strings.HasSuffix(path, ".gz"):
		return "gzip"
	}
	return ""
}
