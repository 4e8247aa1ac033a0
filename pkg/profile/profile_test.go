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

package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
name: test-profile
kernel: ">= 10.0.22000"
modules:
  nt:
    symbols:
      PspHostSiloGlobals: "0xcfb2c0"
    types:
      _ETW_HASH_BUCKET:
        size: "0x38"
        fields:
          ListHead:   {offset: 0x0, type: list_entry, count: 3}
          BucketLock: {offset: "0x30", type: uint64}
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(minimal), "minimal")
	require.NoError(t, err)

	assert.Equal(t, "test-profile", p.Name)
	assert.Equal(t, "minimal", p.Source())

	rva, ok := p.Symbol("nt", "PspHostSiloGlobals")
	require.True(t, ok)
	assert.Equal(t, uint64(0xcfb2c0), rva)

	typ, err := p.Type("nt", "_ETW_HASH_BUCKET")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x38), typ.Size)
	f, err := typ.Field("BucketLock")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x30), f.Offset)
	assert.Equal(t, "BucketLock", f.Name)

	size, err := p.SizeOf("nt", ListEntry)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), size)

	_, err = p.Type("nt", "_EPROCESS")
	require.Error(t, err)
	_, err = typ.Field("Lock")
	require.Error(t, err)

	assert.True(t, p.Matches("10.0.22621.1"))
	assert.False(t, p.Matches("10.0.19041.1"))
	assert.False(t, p.Matches("not-a-version"))
}

func TestParseInvalid(t *testing.T) {
	var tests = []struct {
		name string
		doc  string
	}{
		{"missing modules", `name: broken`},
		{"unknown field key", `
name: broken
modules:
  nt:
    types:
      _A: {size: 8, fields: {X: {offset: 0, type: uint8, width: 3}}}
`},
		{"undeclared type", `
name: broken
modules:
  nt:
    types:
      _A: {size: 8, fields: {X: {offset: 0, type: _B}}}
`},
		{"offset overflow", `
name: broken
modules:
  nt:
    types:
      _A: {size: 8, fields: {X: {offset: 8, type: uint8}}}
`},
		{"pointer bitfield", `
name: broken
modules:
  nt:
    types:
      _A: {size: 8, fields: {X: {offset: 0, type: uint8, pointer: 1, bits: 1}}}
`},
		{"bad constraint", `
name: broken
kernel: "~~ 10"
modules:
  nt:
    types: {}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), tt.name)
			require.Error(t, err)
		})
	}
}

func TestBundledProfiles(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	require.NotEmpty(t, r.Profiles())

	p, err := r.Select("10.0.19045.3803")
	require.NoError(t, err)
	assert.Equal(t, "windows-10-19041-x64", p.Name)

	for _, typ := range []string{"_ESERVERSILO_GLOBALS", "_ETW_SILODRIVERSTATE", "_ETW_HASH_BUCKET", "_ETW_GUID_ENTRY",
		"_ETW_REG_ENTRY", "_WMI_LOGGER_CONTEXT", "_ETW_REALTIME_CONSUMER", "_EPROCESS"} {
		_, err := p.Type("nt", typ)
		assert.NoError(t, err, typ)
	}

	_, err = r.Select("6.1.7601")
	require.Error(t, err)

	_, ok := r.Find("windows-10-19041-x64")
	assert.True(t, ok)
}

func TestRegistryFromPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "win11.yml"), []byte(minimal), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("name: broken"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# profiles"), 0o644))

	r, err := NewRegistry(dir)
	require.NoError(t, err)

	p, err := r.Select("10.0.22631.2861")
	require.NoError(t, err)
	assert.Equal(t, "test-profile", p.Name)
	assert.Equal(t, filepath.Join(dir, "win11.yml"), p.Source())

	_, err = NewRegistry(filepath.Join(dir, "nonexistent"))
	require.Error(t, err)
}
