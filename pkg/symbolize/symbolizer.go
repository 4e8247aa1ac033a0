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
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rabbitstack/etwscan/pkg/mem"
	"github.com/rabbitstack/etwscan/pkg/profile"
	"github.com/rabbitstack/etwscan/pkg/snapshot"
	"github.com/rabbitstack/etwscan/pkg/util/va"
	log "github.com/sirupsen/logrus"
	"golang.org/x/arch/x86/x86asm"
)

// Symbol is the symbolic location of the kernel address.
type Symbol struct {
	Addr   va.Address
	Module string
	Name   string
	Offset uint64
}

// String returns the symbol in the debugger notation, e.g. nt!EtwpTraceMessage+0x40.
func (s Symbol) String() string {
	switch {
	case s.Module == "":
		return s.Addr.Hex()
	case s.Name == "":
		return fmt.Sprintf("%s+%#x", s.Module, s.Offset)
	case s.Offset == 0:
		return s.Module + "!" + s.Name
	default:
		return fmt.Sprintf("%s!%s+%#x", s.Module, s.Name, s.Offset)
	}
}

// Option configures the symbolizer.
type Option func(*Symbolizer)

// WithDisassembly makes the resolved callbacks carry the disassembly of
// the first n instructions read from the target memory.
func WithDisassembly(r mem.Reader, n int) Option {
	return func(s *Symbolizer) {
		s.r = r
		s.disasm = n
	}
}

// Symbolizer converts raw kernel addresses into symbol names and modules.
// Symbols come from the snapshot symbol table and the profile RVAs.
type Symbolizer struct {
	mu      sync.RWMutex
	modules []snapshot.Module
	symbols map[string]*ModuleSymbols
	cache   map[va.Address]string

	r      mem.Reader
	disasm int
}

// NewSymbolizer builds the symbolizer from the loaded modules and symbols
// of the snapshot. The profile may be nil.
func NewSymbolizer(meta snapshot.Meta, p *profile.Profile, opts ...Option) *Symbolizer {
	s := &Symbolizer{
		modules: make([]snapshot.Module, len(meta.Modules)),
		symbols: make(map[string]*ModuleSymbols),
		cache:   make(map[va.Address]string),
	}
	copy(s.modules, meta.Modules)
	sort.Slice(s.modules, func(i, j int) bool { return s.modules[i].Base < s.modules[j].Base })

	bases := meta.ModuleBases()
	for key, addr := range meta.Symbols {
		mod, name, ok := strings.Cut(key, "!")
		if !ok {
			continue
		}
		base, ok := bases[mod]
		if !ok || addr < base {
			log.Debugf("symbol %s doesn't belong to any loaded module", key)
			continue
		}
		s.module(mod).add(name, uint64(addr-base))
	}
	if p != nil {
		for mod, m := range p.Modules {
			for name, rva := range m.Symbols {
				if _, ok := meta.Symbols[mod+"!"+name]; ok {
					continue
				}
				s.module(mod).add(name, rva)
			}
		}
	}
	for _, syms := range s.symbols {
		syms.sort()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Symbolizer) module(name string) *ModuleSymbols {
	syms, ok := s.symbols[name]
	if !ok {
		syms = newModuleSymbols()
		s.symbols[name] = syms
	}
	return syms
}

// Symbolize finds the module and the closest symbol for the address.
func (s *Symbolizer) Symbolize(addr va.Address) Symbol {
	sym := Symbol{Addr: addr}
	i := sort.Search(len(s.modules), func(i int) bool { return s.modules[i].Base > addr })
	if i == 0 || !s.modules[i-1].Contains(addr) {
		return sym
	}
	mod := s.modules[i-1]
	sym.Module = mod.Name
	rva := addr - mod.Base
	sym.Offset = rva.Uint64()
	if syms, ok := s.symbols[mod.Name]; ok {
		if name, off, ok := syms.SymbolFromRVA(rva); ok {
			sym.Name, sym.Offset = name, off
		}
	}
	return sym
}

// Resolve returns the symbolic name of the callback address. If the disassembly
// is enabled, the callback prologue is appended to the symbol.
func (s *Symbolizer) Resolve(addr va.Address) string {
	s.mu.RLock()
	name, ok := s.cache[addr]
	s.mu.RUnlock()
	if ok {
		return name
	}
	name = s.Symbolize(addr).String()
	if s.disasm > 0 && s.r != nil {
		insts, err := s.Disassemble(addr, s.disasm)
		if err != nil {
			log.Debugf("unable to disassemble callback at %s: %v", addr.Hex(), err)
		} else if len(insts) > 0 {
			name += " [" + strings.Join(insts, "; ") + "]"
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[addr] = name
	return name
}

// maxInstLen is the maximum length of the x86 instruction
const maxInstLen = 15

// Disassemble decodes up to n instructions starting at the address. Decoding
// stops at the first return instruction.
func (s *Symbolizer) Disassemble(addr va.Address, n int) ([]string, error) {
	if s.r == nil {
		return nil, fmt.Errorf("no memory to disassemble %s", addr.Hex())
	}
	code, err := s.read(addr, n*maxInstLen)
	if err != nil {
		return nil, err
	}
	insts := make([]string, 0, n)
	pc := addr.Uint64()
	for len(insts) < n && len(code) > 0 {
		inst, err := x86asm.Decode(code, 64)
		if err != nil {
			if len(insts) == 0 {
				return nil, err
			}
			break
		}
		insts = append(insts, x86asm.IntelSyntax(inst, pc, s.lookup))
		if inst.Op == x86asm.RET {
			break
		}
		code = code[inst.Len:]
		pc += uint64(inst.Len)
	}
	return insts, nil
}

// read fetches the code bytes. If the range crosses into the unreadable memory,
// the read is retried with the smaller size.
func (s *Symbolizer) read(addr va.Address, size int) ([]byte, error) {
	for {
		b := make([]byte, size)
		err := s.r.ReadMemory(addr, b)
		if err == nil {
			return b, nil
		}
		if size <= maxInstLen || !mem.IsUnreadable(err) {
			return nil, err
		}
		size /= 2
	}
}

func (s *Symbolizer) lookup(addr uint64) (string, uint64) {
	sym := s.Symbolize(va.Address(addr))
	if sym.Name == "" {
		return "", 0
	}
	return sym.Module + "!" + sym.Name, addr - sym.Offset
}
