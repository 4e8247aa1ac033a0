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

package pe

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// driverImage builds the headers of the PE32+ image with the given SizeOfImage.
func driverImage(size uint32) []byte {
	b := make([]byte, 0x400)
	copy(b, "MZ")
	binary.LittleEndian.PutUint32(b[0x3c:], 0x80)
	copy(b[0x80:], "PE\x00\x00")
	// file header
	binary.LittleEndian.PutUint16(b[0x84:], 0x8664)
	binary.LittleEndian.PutUint32(b[0x88:], 0x5f3a2b10)
	binary.LittleEndian.PutUint16(b[0x94:], 0xf0)
	binary.LittleEndian.PutUint16(b[0x96:], 0x22)
	// optional header
	oh := b[0x98:]
	binary.LittleEndian.PutUint16(oh[0:], 0x20b)
	binary.LittleEndian.PutUint64(oh[24:], 0x140000000)
	binary.LittleEndian.PutUint32(oh[32:], 0x1000)
	binary.LittleEndian.PutUint32(oh[36:], 0x200)
	binary.LittleEndian.PutUint32(oh[56:], size)
	binary.LittleEndian.PutUint32(oh[60:], 0x400)
	binary.LittleEndian.PutUint16(oh[68:], 1)
	binary.LittleEndian.PutUint32(oh[108:], 16)
	return b
}

func TestParseBytes(t *testing.T) {
	img, err := ParseBytes(driverImage(0xa4d000))
	require.NoError(t, err)
	assert.True(t, img.Is64)
	assert.Equal(t, uint32(0xa4d000), img.Size)
	assert.Equal(t, uint16(0x8664), img.Machine)
	assert.Equal(t, 2020, img.LinkTime.Year())
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etwdrv.sys")
	require.NoError(t, os.WriteFile(path, driverImage(0x7000), 0o600))

	img, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x7000), img.Size)

	_, err = Parse(filepath.Join(t.TempDir(), "missing.sys"))
	require.Error(t, err)
}

func TestImageSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ntoskrnl.exe")
	require.NoError(t, os.WriteFile(path, driverImage(0x1046000), 0o600))

	size, err := ImageSize(path, dir)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1046000), size)

	_, err = ImageSize(`\??\`+filepath.Join(dir, "gone.sys"), dir)
	require.Error(t, err)
}

func TestParseInvalidImage(t *testing.T) {
	b := driverImage(0x7000)
	copy(b, "XX")
	_, err := ParseBytes(b)
	require.Error(t, err)

	b = driverImage(0x7000)
	copy(b[0x80:], "NE")
	_, err = ParseBytes(b)
	require.Error(t, err)
}

func TestDriverPath(t *testing.T) {
	var tests = []struct {
		path     string
		expected string
	}{
		{`\SystemRoot\system32\ntoskrnl.exe`, `C:\Windows\system32\ntoskrnl.exe`},
		{`\systemroot\System32\drivers\FLTMGR.SYS`, `C:\Windows\System32\drivers\FLTMGR.SYS`},
		{`\??\C:\Program Files\Agent\agent.sys`, `C:\Program Files\Agent\agent.sys`},
		{`System32\drivers\etwdrv.sys`, `C:\Windows\System32\drivers\etwdrv.sys`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, DriverPath(tt.path, `C:\Windows`))
		})
	}
}
