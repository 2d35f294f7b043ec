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
	"errors"
	"strings"

	"github.com/SnellerInc/streamdec/stream"
)

var errBadPointer = errors.New("decode: bad JSON Pointer")

// parsePointer splits an RFC 6901 pointer into unescaped reference tokens.
func parsePointer(p string) ([]string, error) {
	if p == "" {
		return nil, nil
	}
	if p[0] != '/' {
		return nil, errBadPointer
	}
	parts := strings.Split(p[1:], "/")
	for i, part := range parts {
		if !strings.Contains(part, "~") {
			continue
		}
		var sb strings.Builder
		for j := 0; j < len(part); j++ {
			if part[j] != '~' {
				sb.WriteByte(part[j])
				continue
			}
			j++
			switch {
			case j >= len(part):
				return nil, errBadPointer
			case part[j] == '0':
				sb.WriteByte('~')
			case part[j] == '1':
				sb.WriteByte('/')
			default:
				return nil, errBadPointer
			}
		}
		parts[i] = sb.String()
	}
	return parts, nil
}

// parseIndex interprets a reference token as an array index; -1 means it
// can never match an index.
func parseIndex(tok string) int {
	if tok == "0" {
		return 0
	}
	if tok == "" || tok[0] < '1' || tok[0] > '9' {
		return -1
	}
	n := 0
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if c < '0' || c > '9' || n > (1<<31)/10 {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// ptrFilter narrows a callback stream to the subtree a JSON Pointer
// names. Matching is greedy: the first key (or index) that equals the
// next reference token commits that branch, with no backtracking. Once
// the matched subtree completes, the filter stops the decode with
// errStop; if the document ends first, Done rewrites the result to a
// "no match" error.
type ptrFilter struct {
	out    Callbacks
	target []string

	matched  int  // reference tokens committed so far
	inTarget bool // forwarding the matched subtree
	subDepth int  // open containers within the matched subtree
	found    bool
	failed   bool // no match is possible; swallow the rest
	skipDeep int  // >0: inside a skipped sibling subtree

	// the container currently being scanned for target[matched]
	frontier struct {
		active     bool
		dict       bool
		awaitKey   bool
		keyMatched bool
		index      int
		wantIndex  int
	}
}

func newPtrFilter(out Callbacks, target []string) *ptrFilter {
	f := &ptrFilter{out: out, target: target}
	if len(target) == 0 {
		f.inTarget = true
		f.found = true
	}
	return f
}

func (f *ptrFilter) enterFrontier(dictFlags uint32) {
	f.frontier.active = true
	f.frontier.dict = dictFlags&stream.StructToDict != 0
	f.frontier.awaitKey = f.frontier.dict
	f.frontier.keyMatched = false
	f.frontier.index = 0
	f.frontier.wantIndex = parseIndex(f.target[f.matched])
}

// leaf handles a complete scalar value; emit forwards it to the output
// callbacks when the value is inside the matched subtree.
func (f *ptrFilter) leaf(emit func() error) error {
	switch {
	case f.inTarget:
		if err := emit(); err != nil {
			return err
		}
		if f.subDepth == 0 {
			return errStop
		}
		return nil
	case f.skipDeep > 0, f.failed:
		return nil
	case !f.frontier.active:
		// the root value is a scalar but the pointer wants structure
		f.failed = true
		return nil
	}
	return f.element(false, func() error {
		// a scalar cannot carry the remaining reference tokens
		f.failed = true
		return nil
	}, func() error {
		if err := emit(); err != nil {
			return err
		}
		return errStop
	})
}

// element resolves one frontier element position: descend continues the
// match into this element, hit emits it as the final match. Non-matching
// pushed containers start a skip; their element slot completes when the
// matching Pop arrives.
func (f *ptrFilter) element(isPush bool, descend, hit func() error) error {
	fr := &f.frontier
	var match bool
	if fr.dict {
		match = fr.keyMatched
		fr.keyMatched = false
	} else {
		match = fr.index == fr.wantIndex
	}
	if !match {
		if isPush {
			f.skipDeep = 1
		} else {
			f.elementComplete()
		}
		return nil
	}
	f.matched++
	if f.matched == len(f.target) {
		f.found = true
		f.inTarget = true
		return hit()
	}
	return descend()
}

func (f *ptrFilter) elementComplete() {
	if f.frontier.dict {
		f.frontier.awaitKey = true
	} else {
		f.frontier.index++
	}
}

func (f *ptrFilter) AppendNull() error {
	return f.leaf(func() error { return f.out.AppendNull() })
}

func (f *ptrFilter) AppendBool(b bool) error {
	return f.leaf(func() error { return f.out.AppendBool(b) })
}

func (f *ptrFilter) AppendI64(v int64) error {
	return f.leaf(func() error { return f.out.AppendI64(v) })
}

func (f *ptrFilter) AppendU64(v uint64) error {
	return f.leaf(func() error { return f.out.AppendU64(v) })
}

func (f *ptrFilter) AppendF64(v float64) error {
	return f.leaf(func() error { return f.out.AppendF64(v) })
}

func (f *ptrFilter) AppendByteString(b []byte) error {
	return f.leaf(func() error { return f.out.AppendByteString(b) })
}

func (f *ptrFilter) AppendTextString(s string) error {
	fr := &f.frontier
	if !f.inTarget && f.skipDeep == 0 && !f.failed && fr.active && fr.dict && fr.awaitKey {
		fr.keyMatched = s == f.target[f.matched]
		fr.awaitKey = false
		return nil
	}
	return f.leaf(func() error { return f.out.AppendTextString(s) })
}

func (f *ptrFilter) Push(flags uint32) error {
	switch {
	case f.inTarget:
		f.subDepth++
		return f.out.Push(flags)
	case f.skipDeep > 0:
		f.skipDeep++
		return nil
	case f.failed:
		return nil
	case !f.frontier.active:
		// the root container; start scanning it for target[0]
		f.enterFrontier(flags)
		return nil
	case f.frontier.dict && f.frontier.awaitKey:
		// a container in key position cannot happen in JSON
		f.failed = true
		return nil
	}
	return f.element(true, func() error {
		f.enterFrontier(flags)
		return nil
	}, func() error {
		f.subDepth = 1
		return f.out.Push(flags)
	})
}

func (f *ptrFilter) Pop(flags uint32) error {
	switch {
	case f.inTarget:
		f.subDepth--
		if err := f.out.Pop(flags); err != nil {
			return err
		}
		if f.subDepth == 0 {
			return errStop
		}
		return nil
	case f.skipDeep > 0:
		f.skipDeep--
		if f.skipDeep == 0 {
			f.elementComplete()
		}
		return nil
	case f.failed:
		return nil
	}
	// the frontier container closed without a match
	f.failed = true
	return nil
}

func (f *ptrFilter) Done(result *Result, input stream.Input, buf *stream.Buffer) {
	if result.ErrorMessage == "" && !f.found {
		result.ErrorMessage = "decode: JSON Pointer had no match"
	}
	f.out.Done(result, input, buf)
}
