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

//go:build unix

package source

import (
	"os"

	"golang.org/x/sys/unix"
)

// MmapInput is a BufferedInput over a read-only memory mapping of a file.
// Close unmaps; the decode must be finished by then.
type MmapInput struct {
	*MemoryInput
	mapped []byte
}

// NewMmapInput maps f. The file must not be truncated while the input is
// live.
func NewMmapInput(f *os.File) (*MmapInput, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		// zero-length mappings are not portable
		return &MmapInput{MemoryInput: NewMemoryInput(nil)}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, &os.PathError{Op: "mmap", Path: f.Name(), Err: err}
	}
	return &MmapInput{MemoryInput: NewMemoryInput(data), mapped: data}, nil
}

// Close releases the mapping.
func (m *MmapInput) Close() error {
	if m.mapped == nil {
		return nil
	}
	data := m.mapped
	m.mapped = nil
	return unix.Munmap(data)
}
