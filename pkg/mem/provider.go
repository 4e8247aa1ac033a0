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

package mem

import (
	"encoding/binary"
	"expvar"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/profile"
	"github.com/rabbitstack/etwscan/pkg/util/va"
)

var (
	reads        = expvar.NewInt("mem.reads")
	readBytes    = expvar.NewInt("mem.read.bytes")
	readFailures = expvar.NewInt("mem.read.failures")
	listWalks    = expvar.NewInt("mem.list.walks")
	listFailures = expvar.NewInt("mem.list.failures")
)

// DefaultMaxListEntries is the default upper bound on the number of entries
// collected from a single intrusive list.
const DefaultMaxListEntries = 1 << 16

// Provider resolves kernel globals and produces typed views over the target memory.
type Provider interface {
	// ResolveGlobal returns the address of the named global in the module.
	ResolveGlobal(module, name string) (va.Address, error)
	// TypedObjectAt interprets the memory at the given address as the structure of the specified type.
	TypedObjectAt(addr va.Address, module, typ string) (*Object, error)
	// IterateList walks the intrusive doubly-linked list rooted at the head object. Each entry
	// is materialized as the structure of the given type that embeds the list link in the
	// field named by link.
	IterateList(head *Object, module, typ, link string) ([]*Object, error)
	// IterateArray returns the elements of the inline array field.
	IterateArray(obj *Object, field string) ([]*Object, error)
}

// Option configures the memory provider.
type Option func(*provider)

// WithModules sets the base addresses of the loaded kernel modules.
func WithModules(modules map[string]va.Address) Option {
	return func(p *provider) {
		p.modules = modules
	}
}

// WithSymbols sets the resolved symbol addresses. Keys are in the module!name form.
// Resolved symbols take precedence over profile RVAs.
func WithSymbols(symbols map[string]va.Address) Option {
	return func(p *provider) {
		p.symbols = symbols
	}
}

// WithMaxListEntries bounds the number of entries collected from a single list.
func WithMaxListEntries(n int) Option {
	return func(p *provider) {
		if n > 0 {
			p.maxListEntries = n
		}
	}
}

type provider struct {
	r              Reader
	profile        *profile.Profile
	modules        map[string]va.Address
	symbols        map[string]va.Address
	maxListEntries int
}

// NewProvider builds the memory provider that reads the target memory through the
// reader and interprets it according to the profile layouts.
func NewProvider(r Reader, p *profile.Profile, opts ...Option) Provider {
	prov := &provider{
		r:              r,
		profile:        p,
		modules:        make(map[string]va.Address),
		symbols:        make(map[string]va.Address),
		maxListEntries: DefaultMaxListEntries,
	}
	for _, opt := range opts {
		opt(prov)
	}
	return prov
}

func (p *provider) ResolveGlobal(module, name string) (va.Address, error) {
	if addr, ok := p.symbols[module+"!"+name]; ok {
		return addr, nil
	}
	rva, ok := p.profile.Symbol(module, name)
	if !ok {
		return 0, fmt.Errorf("unable to resolve %s!%s symbol", module, name)
	}
	base, ok := p.modules[module]
	if !ok {
		return 0, fmt.Errorf("unable to resolve %s!%s symbol: unknown %s module base", module, name, module)
	}
	return base.Inc(rva), nil
}

func (p *provider) TypedObjectAt(addr va.Address, module, typ string) (*Object, error) {
	if _, err := p.profile.SizeOf(module, typ); err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, ErrNullPointer
	}
	return &Object{src: p, module: module, typ: typ, addr: addr}, nil
}

func (p *provider) IterateList(head *Object, module, typ, link string) ([]*Object, error) {
	if head.typ != profile.ListEntry || head.count > 0 || head.ind > 0 {
		return nil, fmt.Errorf("%s at %s is not a list head", head.typ, head.addr.Hex())
	}
	t, err := p.profile.Type(module, typ)
	if err != nil {
		return nil, err
	}
	f, err := t.Field(link)
	if err != nil {
		return nil, err
	}
	if f.Type != profile.ListEntry || f.Pointer > 0 || f.Count > 0 {
		return nil, fmt.Errorf("%s!%s.%s is not a list link", module, typ, link)
	}

	listWalks.Add(1)

	flink, err := p.readPointer(head.addr)
	if err != nil {
		listFailures.Add(1)
		return nil, errors.Wrapf(err, "unable to read %s!%s list head", module, typ)
	}

	entries := make([]*Object, 0)
	seen := make(map[va.Address]bool)
	for cur := flink; cur != head.addr; {
		if cur.IsZero() {
			listFailures.Add(1)
			return nil, &ListError{Head: head.addr, Link: cur, Msg: "null forward link"}
		}
		if seen[cur] {
			listFailures.Add(1)
			return nil, &ListError{Head: head.addr, Link: cur, Msg: "cycle detected"}
		}
		if len(entries) >= p.maxListEntries {
			listFailures.Add(1)
			return nil, errors.Wrapf(ErrListTooLong, "%s!%s list at %s", module, typ, head.addr.Hex())
		}
		seen[cur] = true
		entries = append(entries, &Object{src: p, module: module, typ: typ, addr: cur.Dec(uint64(f.Offset))})
		next, err := p.readPointer(cur)
		if err != nil {
			listFailures.Add(1)
			return nil, errors.Wrapf(err, "unable to follow %s!%s.%s link", module, typ, link)
		}
		cur = next
	}

	return entries, nil
}

func (p *provider) IterateArray(obj *Object, field string) ([]*Object, error) {
	arr, err := obj.Field(field)
	if err != nil {
		return nil, err
	}
	if arr.count == 0 {
		return nil, fmt.Errorf("%s.%s is not an array", obj.typ, field)
	}
	elems := make([]*Object, 0, arr.count)
	for i := 0; i < arr.count; i++ {
		e, err := arr.Index(i)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	return elems, nil
}

func (p *provider) read(addr va.Address, b []byte) error {
	if err := p.r.ReadMemory(addr, b); err != nil {
		readFailures.Add(1)
		return err
	}
	reads.Add(1)
	readBytes.Add(int64(len(b)))
	return nil
}

func (p *provider) readPointer(addr va.Address) (va.Address, error) {
	var b [profile.PointerSize]byte
	if err := p.read(addr, b[:]); err != nil {
		return 0, err
	}
	return va.Address(binary.LittleEndian.Uint64(b[:])), nil
}
