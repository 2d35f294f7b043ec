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

import "fmt"

// Status is the outcome of one decode step. It has exactly four shapes:
//
//   - ok: the step completed; there is nothing more to produce here.
//   - suspension: the step paused and must be called again once the caller
//     has refilled input (ShortRead) or drained output (ShortWrite).
//     Suspensions are not errors; they are how bounded-memory decoding of
//     arbitrarily long streams works, and they must never surface to users.
//   - note: a non-fatal, decode-specific signal such as EndOfData.
//   - error: terminal. Retrying after an error is unsafe because decoder
//     resume state is only valid for forward progress, never for replay.
//
// The representation is a single string with a leading sigil: '$' for
// suspensions, '@' for notes, '#' for errors, and the empty string for ok.
// Statuses compare with ==. Message text is diagnostic only, with one
// convention: the substring "internal error" marks a failed runtime
// invariant, which a CLI should map to a distinct exit code since it
// signals a bug in the runtime rather than bad input.
type Status struct {
	repr string
}

// Canonical non-error statuses.
var (
	OK         = Status{}
	ShortRead  = Status{"$short read"}
	ShortWrite = Status{"$short write"}

	EndOfData        = Status{"@end of data"}
	MetadataReported = Status{"@metadata reported"}
)

// Error returns an error status with the given message.
func Error(msg string) Status { return Status{"#" + msg} }

// Errorf returns an error status with a formatted message.
func Errorf(format string, args ...any) Status {
	return Status{"#" + fmt.Sprintf(format, args...)}
}

// IsOK reports whether s is the ok status.
func (s Status) IsOK() bool { return s.repr == "" }

// IsSuspension reports whether s is ShortRead or ShortWrite.
func (s Status) IsSuspension() bool { return len(s.repr) > 0 && s.repr[0] == '$' }

// IsNote reports whether s is a note.
func (s Status) IsNote() bool { return len(s.repr) > 0 && s.repr[0] == '@' }

// IsError reports whether s is terminal.
func (s Status) IsError() bool { return len(s.repr) > 0 && s.repr[0] == '#' }

// Message returns the status text without its sigil. It is empty for OK.
func (s Status) Message() string {
	if s.repr == "" {
		return ""
	}
	return s.repr[1:]
}
