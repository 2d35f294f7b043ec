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

// Input refills a Buffer from some external byte source. The core treats
// CopyIn as an opaque, possibly slow, synchronous call; cancellation is
// achieved by the caller simply not calling the decode loop again.
//
// CopyIn must not write to a Buffer whose Closed flag is set: end of stream
// was already signaled, and a call in that state is a contract violation
// that the adapter reports as an error rather than ignoring. Adapters
// should Compact dst before writing.
type Input interface {
	CopyIn(dst *Buffer) error
}

// BufferedInput is implemented by inputs whose backing storage is already a
// complete, closed Buffer (an in-memory slice, an mmap'd file). The decode
// loop reads from that buffer directly instead of copying.
type BufferedInput interface {
	Input
	BringsItsOwnBuffer() *Buffer
}

// TokenDecoder is the per-format coroutine decode step. DecodeTokens runs
// until it fills dst, exhausts src, or finishes or fails, then returns with
// enough private state to resume exactly where it left off:
//
//   - OK: a complete top-level value's tokens have been emitted.
//   - ShortRead: src is exhausted; refill it and call again.
//   - ShortWrite: dst is full; drain and compact it and call again.
//   - an error: terminal; do not call again.
//
// A token is only emitted once all of its source bytes are resident in
// src, and emitting a token advances src's read cursor by the token's
// length. Decoder state is exclusively owned by the instance; nothing else
// may alias or mutate it.
type TokenDecoder interface {
	DecodeTokens(dst *TokenBuffer, src *Buffer) Status
}

// MetadataReporter is implemented by decoders whose format carries
// out-of-band metadata. After DecodeTokens returns the MetadataReported
// note, the decode loop calls TellMeMore to learn what kind; see
// MoreInformation.
type MetadataReporter interface {
	TellMeMore(dst *Buffer, minfo *MoreInformation, src *Buffer) Status
}
