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

package symbolize

import (
	"strings"
	"testing"

	"github.com/rabbitstack/etwscan/pkg/mem"
	"github.com/rabbitstack/etwscan/pkg/profile"
	"github.com/rabbitstack/etwscan/pkg/snapshot"
	"github.com/rabbitstack/etwscan/pkg/util/va"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ntBase  = va.Address(0xfffff80000000000)
	fltBase = va.Address(0xfffff80010000000)
)

var testProfile = []byte(`
name: test
kernel: ">= 10.0"
arch: amd64
modules:
  nt:
    symbols:
      EtwpTraceMessage: 0x3000
      PspHostSiloGlobals: 0x9000
    types: {}
`)

func testMeta() snapshot.Meta {
	return snapshot.Meta{
		Kernel: "10.0.19041.1",
		Arch:   "amd64",
		Modules: []snapshot.Module{
			{Name: "FLTMGR", Base: fltBase, Size: 0x8000},
			{Name: "nt", Base: ntBase, Size: 0x100000},
		},
		Symbols: map[string]va.Address{
			"nt!EtwRegister":         ntBase + 0x1000,
			"nt!PspHostSiloGlobals":  ntBase + 0x9100,
			"FLTMGR!FltpEtwCallback": fltBase + 0x200,
			"bogus":                  ntBase,
			"missing!Symbol":         ntBase,
		},
	}
}

func TestSymbolize(t *testing.T) {
	p, err := profile.Parse(testProfile, "test.yml")
	require.NoError(t, err)
	s := NewSymbolizer(testMeta(), p)

	var tests = []struct {
		addr     va.Address
		expected string
	}{
		{ntBase + 0x1000, "nt!EtwRegister"},
		{ntBase + 0x1010, "nt!EtwRegister+0x10"},
		{ntBase + 0x3040, "nt!EtwpTraceMessage+0x40"},
		{ntBase + 0x9100, "nt!PspHostSiloGlobals"},
		{ntBase + 0x800, "nt+0x800"},
		{fltBase + 0x210, "FLTMGR!FltpEtwCallback+0x10"},
		{ntBase + 0x9100 + 0x10001, "nt+0x19101"},
		{fltBase + 0x9000, "0xfffff80010009000"},
		{va.Address(0xffffa00000001000), "0xffffa00000001000"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Resolve(tt.addr))
		})
	}
}

func TestSymbolizeWithoutProfile(t *testing.T) {
	s := NewSymbolizer(testMeta(), nil)
	sym := s.Symbolize(ntBase + 0x3040)
	assert.Equal(t, "nt", sym.Module)
	assert.Equal(t, "EtwRegister", sym.Name)
	assert.Equal(t, uint64(0x2040), sym.Offset)
}

func TestModuleSymbols(t *testing.T) {
	syms := newModuleSymbols()
	syms.add("B", 0x200)
	syms.add("A", 0x100)
	syms.sort()
	assert.Equal(t, 2, syms.Len())

	_, _, ok := syms.SymbolFromRVA(0x50)
	assert.False(t, ok)
	name, off, ok := syms.SymbolFromRVA(0x1ff)
	require.True(t, ok)
	assert.Equal(t, "A", name)
	assert.Equal(t, uint64(0xff), off)
	name, off, ok = syms.SymbolFromRVA(0x200)
	require.True(t, ok)
	assert.Equal(t, "B", name)
	assert.Equal(t, uint64(0), off)

	name, off, ok = syms.SymbolFromRVA(0x200 + maxDisplacement)
	require.True(t, ok)
	assert.Equal(t, "B", name)
	assert.Equal(t, uint64(maxDisplacement), off)
	_, _, ok = syms.SymbolFromRVA(0x201 + maxDisplacement)
	assert.False(t, ok)
}

// sub rsp, 0x28; xor eax, eax; add rsp, 0x28; ret
var prologue = []byte{0x48, 0x83, 0xec, 0x28, 0x33, 0xc0, 0x48, 0x83, 0xc4, 0x28, 0xc3}

func TestDisassemble(t *testing.T) {
	img := mem.NewImage()
	code := make([]byte, 0x20)
	copy(code, prologue)
	img.Map(ntBase+0x1000, code)

	s := NewSymbolizer(testMeta(), nil, WithDisassembly(img, 8))

	insts, err := s.Disassemble(ntBase+0x1000, 8)
	require.NoError(t, err)
	require.Len(t, insts, 4)
	assert.True(t, strings.HasPrefix(insts[0], "sub"))
	assert.Equal(t, "ret", insts[3])

	insts, err = s.Disassemble(ntBase+0x1000, 2)
	require.NoError(t, err)
	assert.Len(t, insts, 2)

	name := s.Resolve(ntBase + 0x1000)
	assert.True(t, strings.HasPrefix(name, "nt!EtwRegister ["))
	assert.True(t, strings.HasSuffix(name, "ret]"))

	_, err = s.Disassemble(ntBase+0x50000, 4)
	require.Error(t, err)
	assert.True(t, mem.IsUnreadable(err))
	assert.Equal(t, "nt+0x50000", s.Resolve(ntBase+0x50000))
}

func TestDisassembleWithoutMemory(t *testing.T) {
	s := NewSymbolizer(testMeta(), nil)
	_, err := s.Disassemble(ntBase, 1)
	require.Error(t, err)
}
