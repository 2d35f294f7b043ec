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

import "math"

// Float16 widens an IEEE 754 binary16 bit pattern to float64. Every
// binary16 value, including subnormals, is exactly representable in
// binary64, so the conversion is lossless.
func Float16(b uint16) float64 {
	sign := b>>15 != 0
	exp := int(b>>10) & 0x1F
	man := uint64(b & 0x3FF)
	var f float64
	switch {
	case exp == 0x1F:
		if man != 0 {
			bits := uint64(0x7FF8000000000000) | man<<42
			if sign {
				bits |= 1 << 63
			}
			return math.Float64frombits(bits)
		}
		f = math.Inf(1)
	case exp == 0:
		// subnormal: man * 2^-24
		f = math.Ldexp(float64(man), -24)
	default:
		// (1024+man) * 2^(exp-25)
		f = math.Ldexp(float64(man|0x400), exp-25)
	}
	if sign {
		f = -f
	}
	return f
}

// Float32 widens an IEEE 754 binary32 bit pattern to float64.
func Float32(b uint32) float64 {
	return float64(math.Float32frombits(b))
}

// Float64 reinterprets an IEEE 754 binary64 bit pattern.
func Float64(b uint64) float64 {
	return math.Float64frombits(b)
}
