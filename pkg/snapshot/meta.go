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

package snapshot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rabbitstack/etwscan/pkg/util/bytes"
	"github.com/rabbitstack/etwscan/pkg/util/va"
)

// Module describes the kernel module loaded at the time the snapshot was taken.
type Module struct {
	// Name is the short module name used in symbol references (e.g. nt)
	Name string `yaml:"name"`
	// Path is the full path of the module image.
	Path string `yaml:"path"`
	// Base is the module load address.
	Base va.Address `yaml:"base"`
	// Size is the size of the module image in memory.
	Size uint32 `yaml:"size"`
}

// Contains determines if the address falls inside the module image.
func (m Module) Contains(addr va.Address) bool {
	return addr >= m.Base && addr < m.Base.Inc(uint64(m.Size))
}

// Meta describes the system where the snapshot was taken.
type Meta struct {
	// Kernel is the kernel build version (e.g. 10.0.19045.3803)
	Kernel string `yaml:"kernel"`
	// Arch is the machine architecture.
	Arch string `yaml:"arch"`
	// Hostname is the name of the machine.
	Hostname string `yaml:"hostname"`
	// Timestamp is the time the snapshot was taken.
	Timestamp time.Time `yaml:"timestamp"`
	// Modules contains the loaded kernel modules.
	Modules []Module `yaml:"modules"`
	// Symbols maps symbol names in the module!name form to their resolved addresses.
	Symbols map[string]va.Address `yaml:"symbols"`
}

// ModuleBases returns the base addresses of the kernel modules indexed by module name.
func (m Meta) ModuleBases() map[string]va.Address {
	bases := make(map[string]va.Address, len(m.Modules))
	for _, mod := range m.Modules {
		bases[mod.Name] = mod.Base
	}
	return bases
}

// FindModule returns the module that contains the given address.
func (m Meta) FindModule(addr va.Address) (Module, bool) {
	for _, mod := range m.Modules {
		if mod.Contains(addr) {
			return mod, true
		}
	}
	return Module{}, false
}

// SymbolNames returns the sorted list of resolved symbols.
func (m Meta) SymbolNames() []string {
	names := make([]string, 0, len(m.Symbols))
	for name := range m.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the metadata is complete enough to drive a scan.
func (m Meta) Validate() error {
	if m.Kernel == "" {
		return fmt.Errorf("kernel version is required")
	}
	for name := range m.Symbols {
		if !strings.Contains(name, "!") {
			return fmt.Errorf("symbol %q is not in module!name form", name)
		}
	}
	return nil
}

// Marshal produces the byte stream of the snapshot metadata.
func (m *Meta) Marshal() []byte {
	b := make([]byte, 0)

	b = appendString(b, m.Kernel)
	b = appendString(b, m.Arch)
	b = appendString(b, m.Hostname)
	var ts uint64
	if !m.Timestamp.IsZero() {
		ts = uint64(m.Timestamp.UnixNano())
	}
	b = append(b, bytes.WriteUint64(ts)...)

	b = append(b, bytes.WriteUint16(uint16(len(m.Modules)))...)
	for _, mod := range m.Modules {
		b = appendString(b, mod.Name)
		b = appendString(b, mod.Path)
		b = append(b, bytes.WriteUint64(mod.Base.Uint64())...)
		b = append(b, bytes.WriteUint32(mod.Size)...)
	}

	b = append(b, bytes.WriteUint16(uint16(len(m.Symbols)))...)
	for _, name := range m.SymbolNames() {
		b = appendString(b, name)
		b = append(b, bytes.WriteUint64(m.Symbols[name].Uint64())...)
	}

	return b
}

// Unmarshal recovers the snapshot metadata from the byte stream.
func (m *Meta) Unmarshal(b []byte) error {
	d := &decoder{b: b}

	m.Kernel = d.string()
	m.Arch = d.string()
	m.Hostname = d.string()
	if ts := d.uint64(); ts != 0 {
		m.Timestamp = time.Unix(0, int64(ts))
	}

	nmods := int(d.uint16())
	m.Modules = make([]Module, 0, nmods)
	for i := 0; i < nmods && d.err == nil; i++ {
		var mod Module
		mod.Name = d.string()
		mod.Path = d.string()
		mod.Base = va.Address(d.uint64())
		mod.Size = d.uint32()
		m.Modules = append(m.Modules, mod)
	}

	nsyms := int(d.uint16())
	m.Symbols = make(map[string]va.Address, nsyms)
	for i := 0; i < nsyms && d.err == nil; i++ {
		name := d.string()
		m.Symbols[name] = va.Address(d.uint64())
	}

	return d.err
}

func appendString(b []byte, s string) []byte {
	b = append(b, bytes.WriteUint16(uint16(len(s)))...)
	return append(b, s...)
}

// decoder reads length-prefixed values and records the first overflow.
type decoder struct {
	b   []byte
	off int
	err error
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if d.off+n > len(d.b) {
		d.err = fmt.Errorf("metadata is truncated at offset %d", d.off)
		return false
	}
	return true
}

func (d *decoder) uint16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := bytes.ReadUint16(d.b[d.off:])
	d.off += 2
	return v
}

func (d *decoder) uint32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := bytes.ReadUint32(d.b[d.off:])
	d.off += 4
	return v
}

func (d *decoder) uint64() uint64 {
	if !d.need(8) {
		return 0
	}
	v := bytes.ReadUint64(d.b[d.off:])
	d.off += 8
	return v
}

func (d *decoder) string() string {
	l := int(d.uint16())
	if !d.need(l) {
		return ""
	}
	s := string(d.b[d.off : d.off+l])
	d.off += l
	return s
}
