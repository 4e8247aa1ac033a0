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
	"fmt"
	"sort"

	"github.com/hashicorp/go-version"
	"github.com/pkg/errors"
)

// PointerSize is the size of the pointer on the supported targets.
const PointerSize = 8

// Primitive type names recognized in field declarations.
const (
	Uint8         = "uint8"
	Uint16        = "uint16"
	Uint32        = "uint32"
	Uint64        = "uint64"
	Int32         = "int32"
	Int64         = "int64"
	Pointer       = "pointer"
	GUID          = "guid"
	ListEntry     = "list_entry"
	UnicodeString = "unicode_string"
)

var primitives = map[string]uint32{
	Uint8:         1,
	Uint16:        2,
	Uint32:        4,
	Uint64:        8,
	Int32:         4,
	Int64:         8,
	Pointer:       PointerSize,
	GUID:          16,
	ListEntry:     2 * PointerSize,
	UnicodeString: 2 * PointerSize,
}

// IsPrimitive returns true if the type name designates a primitive type.
func IsPrimitive(typ string) bool {
	_, ok := primitives[typ]
	return ok
}

// Field describes the location and the shape of the structure member.
type Field struct {
	// Name is the field name as it appears in the debug symbols.
	Name string `mapstructure:"-"`
	// Offset is the byte offset of the field from the start of the enclosing structure.
	Offset uint32 `mapstructure:"offset"`
	// Type is either a primitive type name or the name of a structure declared in the same module.
	Type string `mapstructure:"type"`
	// Pointer is the level of indirection. 1 denotes a pointer to Type, 2 a pointer to pointer, and so on.
	Pointer int `mapstructure:"pointer"`
	// Count is the number of elements if the field is an inline array.
	Count int `mapstructure:"count"`
	// Bit is the position of the first bit if the field is a bit field.
	Bit uint8 `mapstructure:"bit"`
	// Bits is the width of the bit field. Zero means the field is not a bit field.
	Bits uint8 `mapstructure:"bits"`
}

// IsBitfield determines if the field is a bit field.
func (f *Field) IsBitfield() bool { return f.Bits > 0 }

// Type describes the structure layout.
type Type struct {
	Name   string            `mapstructure:"-"`
	Size   uint32            `mapstructure:"size"`
	Fields map[string]*Field `mapstructure:"fields"`
}

// Field returns the field descriptor for the given member name.
func (t *Type) Field(name string) (*Field, error) {
	f, ok := t.Fields[name]
	if !ok {
		return nil, fmt.Errorf("%s has no field named %s", t.Name, name)
	}
	return f, nil
}

// Module groups type layouts and symbol offsets of a kernel image.
type Module struct {
	// Symbols maps global symbol names to their RVAs.
	Symbols map[string]uint64 `mapstructure:"symbols"`
	// Types contains the structure layouts.
	Types map[string]*Type `mapstructure:"types"`
}

// Profile describes the memory layout of the kernel structures for
// a range of kernel builds.
type Profile struct {
	Name        string             `mapstructure:"name"`
	Description string             `mapstructure:"description"`
	Kernel      string             `mapstructure:"kernel"`
	Arch        string             `mapstructure:"arch"`
	Modules     map[string]*Module `mapstructure:"modules"`

	constraints version.Constraints
	source      string
}

// Source returns the location from where the profile was loaded.
func (p *Profile) Source() string { return p.source }

// Module returns the module layout.
func (p *Profile) Module(name string) (*Module, error) {
	m, ok := p.Modules[name]
	if !ok {
		return nil, fmt.Errorf("profile %s has no %s module", p.Name, name)
	}
	return m, nil
}

// Type returns the structure layout declared in the module.
func (p *Profile) Type(module, name string) (*Type, error) {
	m, err := p.Module(module)
	if err != nil {
		return nil, err
	}
	t, ok := m.Types[name]
	if !ok {
		return nil, fmt.Errorf("profile %s has no %s!%s type", p.Name, module, name)
	}
	return t, nil
}

// Symbol returns the RVA of the global symbol.
func (p *Profile) Symbol(module, name string) (uint64, bool) {
	m, ok := p.Modules[module]
	if !ok {
		return 0, false
	}
	rva, ok := m.Symbols[name]
	return rva, ok
}

// SizeOf returns the size of the primitive or the structure type.
func (p *Profile) SizeOf(module, typ string) (uint32, error) {
	if size, ok := primitives[typ]; ok {
		return size, nil
	}
	t, err := p.Type(module, typ)
	if err != nil {
		return 0, err
	}
	return t.Size, nil
}

// Matches determines if the profile applies to the given kernel version.
// A profile without the kernel constraint matches every version.
func (p *Profile) Matches(kernel string) bool {
	if p.constraints == nil {
		return true
	}
	v, err := version.NewVersion(kernel)
	if err != nil {
		return false
	}
	return p.constraints.Check(v)
}

// check verifies the profile is self-consistent, i.e. every referenced
// structure type is declared and every field fits inside its structure.
func (p *Profile) check() error {
	if p.Kernel != "" {
		c, err := version.NewConstraint(p.Kernel)
		if err != nil {
			return errors.Wrapf(err, "invalid kernel constraint in %s profile", p.Name)
		}
		p.constraints = c
	}
	for mname, m := range p.Modules {
		for tname, t := range m.Types {
			t.Name = tname
			for fname, f := range t.Fields {
				f.Name = fname
				if !IsPrimitive(f.Type) {
					if _, ok := m.Types[f.Type]; !ok {
						return fmt.Errorf("%s!%s.%s references undeclared type %s", mname, tname, fname, f.Type)
					}
				}
				if f.Bits > 0 && (f.Pointer > 0 || f.Count > 0) {
					return fmt.Errorf("%s!%s.%s bit field can't be a pointer or an array", mname, tname, fname)
				}
				if t.Size > 0 && f.Offset >= t.Size {
					return fmt.Errorf("%s!%s.%s offset %#x exceeds the type size %#x", mname, tname, fname, f.Offset, t.Size)
				}
			}
		}
	}
	return nil
}

// TypeNames returns the sorted list of structure names declared in the module.
func (m *Module) TypeNames() []string {
	names := make([]string, 0, len(m.Types))
	for name := range m.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
