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

//go:build !unix

package source

import (
	"io"
	"os"
)

// MmapInput falls back to reading the whole file up front on platforms
// without memory mapping support.
type MmapInput struct {
	*MemoryInput
}

func NewMmapInput(f *os.File) (*MmapInput, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &MmapInput{MemoryInput: NewMemoryInput(data)}, nil
}

func (m *MmapInput) Close() error { return nil }
