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
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	var tests = []struct {
		in  string
		out string
	}{
		{"EventLog-System", "EventLog-System"},
		{"Microsoft-Windows-Kernel-Process", "Microsoft-Windows-Kernel-Process"},
		{"Überwachung", "Überwachung"},
		{"trace \U0001F50D", "trace \U0001F50D"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.out, Decode(utf16.Encode([]rune(tt.in))))
		})
	}
}

func TestDecodeUnpairedSurrogates(t *testing.T) {
	assert.Equal(t, "a\uFFFDb", Decode([]uint16{'a', 0xd83d, 'b'}))
	assert.Equal(t, "\uFFFD", Decode([]uint16{0xdc00}))
	assert.Equal(t, "x\uFFFD", Decode([]uint16{'x', 0xd83d}))
}

func TestDecodeBytes(t *testing.T) {
	b := []byte{'C', 0, 'i', 0, 'r', 0, 'c', 0, 'u', 0, 'l', 0, 'a', 0, 'r', 0}
	assert.Equal(t, "Circular", DecodeBytes(b))
	assert.Equal(t, "Circular", DecodeBytes(append(b, 'x')))
	assert.Equal(t, "\U0001F50D", DecodeBytes([]byte{0x3d, 0xd8, 0x0d, 0xdd}))
	assert.Empty(t, DecodeBytes(nil))
}
