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

// Token is one syntactic unit of a decoded stream, packed into 64 bits:
//
//	bits 63-40  major    24-bit namespace; 0 is the built-in namespace
//	bits 39-16  minor    24-bit payload; for major 0 it splits into
//	                     bits 39-37 category and bits 36-16 detail
//	bits 15-0   length   source bytes covered by this token
//
// Summing Length over a contiguous, complete run of tokens yields the
// number of source bytes those tokens describe; that identity is what lets
// consumers track absolute byte positions without re-deriving offsets from
// the bytes themselves.
//
// Values too wide for one token are carried by a chain: every token but the
// last has the Continued bit (bit 20 of the detail, or of the minor for
// non-zero majors) set, and the consumer concatenates the per-token payload
// groups. Unicode-code-point tokens are the one exception: they only ever
// occur inside a string chain, so they are implicitly continued and all 21
// detail bits hold the scalar value.
type Token uint64

// Category classifies a built-in (major 0) token.
type Category uint8

const (
	CatFiller Category = iota
	CatString          // text string fragment chain (UTF-8)
	CatBytes           // byte string fragment chain
	CatStructure
	CatNumber
	CatCodePoint // one Unicode scalar value inside a string chain
	CatIntSigned
	CatIntUnsigned
)

const (
	// MaxTokenLength is the most source bytes a single token can cover;
	// longer spans are represented by token chains.
	MaxTokenLength = 0xFFFF

	// MaxDetail is the largest value the 21-bit detail field can hold.
	// It is wide enough for any Unicode scalar value.
	MaxDetail = 0x1FFFFF

	majorShift    = 40
	minorShift    = 16
	categoryShift = 37
	detailShift   = 16
	majorMask     = 0xFFFFFF
	minorMask     = 0xFFFFFF
	detailMask    = MaxDetail
)

// Continued marks a token whose chain has at least one more token. It is a
// detail flag for string, bytes, and inline-integer tokens and a minor flag
// for extension (non-zero major) tokens.
const Continued = 1 << 20

// String and bytes detail flags.
const (
	StrConvertDrop = 1 << 0 // source bytes contribute nothing (quotes, chunk headers)
	StrConvert1To1 = 1 << 1 // source bytes are copied verbatim
)

// Structure detail flags. Exactly one of push/pop, one "from" and one "to"
// flag are set, so a single pop callback can tell a closed list from a
// closed dict.
const (
	StructPush     = 1 << 0
	StructPop      = 1 << 1
	StructFromNone = 1 << 2
	StructFromList = 1 << 3
	StructFromDict = 1 << 4
	StructToNone   = 1 << 5
	StructToList   = 1 << 6
	StructToDict   = 1 << 7
)

// Number detail flags. Literal null/false/true/undefined ride the number
// category; the built-in namespace has no separate literal category.
const (
	NumFloat       = 1 << 0
	NumIntSigned   = 1 << 1
	NumIntUnsigned = 1 << 2
	NumNegInf      = 1 << 3
	NumPosInf      = 1 << 4
	NumNegNaN      = 1 << 5
	NumPosNaN      = 1 << 6

	NumFormatText      = 1 << 7 // value is the token's source text
	NumFormatBE        = 1 << 8 // value is big-endian binary in the source bytes
	NumIgnoreFirstByte = 1 << 10

	LitNull      = 1 << 11
	LitFalse     = 1 << 12
	LitTrue      = 1 << 13
	LitUndefined = 1 << 14
)

// Inline-integer chains carry IntPayloadBits value bits per token, most
// significant group first; the leading group of a signed chain is
// sign-extended. 4 groups of 20 bits cover any 64-bit value, so a chain
// longer than MaxIntChain is never well-formed.
const (
	IntPayloadBits = 20
	IntPayloadMask = 1<<IntPayloadBits - 1
	MaxIntChain    = 4
)

// MakeToken packs a built-in token. detail must include any flag bits
// (Continued, conversion, structure or number flags) the category calls for.
func MakeToken(cat Category, detail uint32, length int) Token {
	if uint32(detail) > MaxDetail {
		panic("stream: token detail overflow")
	}
	if length < 0 || length > MaxTokenLength {
		panic("stream: token length overflow")
	}
	return Token(uint64(cat)<<categoryShift | uint64(detail)<<detailShift | uint64(length))
}

// MakeExtToken packs a token in a format-specific namespace. major must be
// non-zero and at most 24 bits; minor layout is up to the format.
func MakeExtToken(major, minor uint32, length int) Token {
	if major == 0 || major > majorMask {
		panic("stream: bad token major")
	}
	if minor > minorMask {
		panic("stream: token minor overflow")
	}
	if length < 0 || length > MaxTokenLength {
		panic("stream: token length overflow")
	}
	return Token(uint64(major)<<majorShift | uint64(minor)<<minorShift | uint64(length))
}

// Major returns the 24-bit namespace id; 0 is the built-in namespace.
func (t Token) Major() uint32 { return uint32(t>>majorShift) & majorMask }

// Minor returns the full 24-bit minor field. Only meaningful for tokens
// with a non-zero major.
func (t Token) Minor() uint32 { return uint32(t>>minorShift) & minorMask }

// Category returns the built-in category. Only meaningful when Major is 0.
func (t Token) Category() Category { return Category(t>>categoryShift) & 7 }

// Detail returns the 21-bit detail field. Only meaningful when Major is 0.
func (t Token) Detail() uint32 { return uint32(t>>detailShift) & detailMask }

// Length returns the number of source bytes this token covers.
func (t Token) Length() int { return int(t & MaxTokenLength) }

// Continued reports whether this token's chain has at least one more token.
func (t Token) Continued() bool {
	if t.Major() != 0 {
		return t.Minor()&Continued != 0
	}
	switch t.Category() {
	case CatString, CatBytes, CatIntSigned, CatIntUnsigned:
		return t.Detail()&Continued != 0
	case CatCodePoint:
		// code points only occur inside string chains
		return true
	}
	return false
}

// IntPayload returns the token's inline-integer payload group.
func (t Token) IntPayload() uint64 { return uint64(t.Detail()) & IntPayloadMask }

// IntPayloadSigned returns the payload group sign-extended from
// IntPayloadBits bits, the interpretation of the leading token of a signed
// chain.
func (t Token) IntPayloadSigned() int64 {
	return int64(t.IntPayload()<<(64-IntPayloadBits)) >> (64 - IntPayloadBits)
}
