/*
 * Copyright 2021-present by Nedim Sabic Sabic
 * https://www.fibratus.io
 * All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utf16

import (
	"encoding/binary"
	"unicode/utf8"
)

const (
	surr1 = 0xd800
	surr2 = 0xdc00
	surr3 = 0xe000
)

func isHighSurrogate(r rune) bool { return r >= surr1 && r < surr2 }
func isLowSurrogate(r rune) bool  { return r >= surr2 && r < surr3 }

// Decode converts UTF-16 code units to the UTF-8 string. Unpaired
// surrogates are replaced with U+FFFD.
func Decode(p []uint16) string {
	return decode(len(p), func(i int) rune { return rune(p[i]) })
}

// DecodeBytes converts the little-endian UTF-16 byte buffer, as found in
// kernel UNICODE_STRING buffers, to the UTF-8 string. A trailing odd byte is
// ignored.
func DecodeBytes(b []byte) string {
	return decode(len(b)/2, func(i int) rune { return rune(binary.LittleEndian.Uint16(b[i*2:])) })
}

func decode(n int, unit func(int) rune) string {
	s := make([]byte, 0, 2*n)
	for i := 0; i < n; i++ {
		r := unit(i)
		switch {
		case isHighSurrogate(r):
			if i+1 < n {
				if r2 := unit(i + 1); isLowSurrogate(r2) {
					i++
					r = 0x10000 + (r-surr1)<<10 + (r2 - surr2)
					break
				}
			}
			r = utf8.RuneError
		case isLowSurrogate(r):
			r = utf8.RuneError
		}
		s = utf8.AppendRune(s, r)
	}
	return string(s)
}
