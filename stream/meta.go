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

package stream

// MetaFlavor discriminates the kinds of out-of-band information a decoder
// can report. Consumers must treat flavors they do not recognize as
// "unsupported metadata", not silently skip them.
type MetaFlavor uint32

const (
	MetaInvalid MetaFlavor = iota

	// MetaIORedirect asks the caller to restart decoding at RangeMin with
	// the format identified by FourCC.
	MetaIORedirect

	// MetaParsed carries metadata the decoder already interpreted; the
	// value is in Parsed.
	MetaParsed

	// MetaRawPassthrough identifies a raw byte range [RangeMin, RangeMax)
	// of the source stream that must be copied verbatim, not tokenized.
	MetaRawPassthrough
)

// MoreInformation is the typed answer to a TellMeMore query.
type MoreInformation struct {
	Flavor MetaFlavor
	FourCC uint32

	// RangeMin and RangeMax are absolute source-stream positions,
	// inclusive-exclusive. Valid for MetaIORedirect and
	// MetaRawPassthrough.
	RangeMin uint64
	RangeMax uint64

	// Parsed is the decoded value for MetaParsed.
	Parsed uint64
}

// Reset zeroes m so a decoder can fill it in.
func (m *MoreInformation) Reset() {
	*m = MoreInformation{}
}
