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

package etw

import (
	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/mem"
	"github.com/rabbitstack/etwscan/pkg/util/va"
)

const (
	// kernel is the name of the module where the ETW structures live
	kernel = "nt"
	// HostSiloGlobals is the global that anchors the ETW state of the host silo.
	HostSiloGlobals = "PspHostSiloGlobals"
)

// CallbackResolver translates the kernel callback address into the symbolic name.
type CallbackResolver interface {
	Resolve(addr va.Address) string
}

// Option configures the scanner.
type Option func(*Scanner)

// WithStrict turns per-element failures into errors that abort the whole operation.
func WithStrict(strict bool) Option {
	return func(s *Scanner) {
		s.strict = strict
	}
}

// WithCallbackResolver sets the resolver for kernel registration callbacks.
func WithCallbackResolver(r CallbackResolver) Option {
	return func(s *Scanner) {
		s.resolver = r
	}
}

// Scanner reconstructs the ETW state from the kernel memory. Each operation
// performs a fresh traversal of the target memory and no state is retained
// between calls.
type Scanner struct {
	mem      mem.Provider
	strict   bool
	resolver CallbackResolver
}

// NewScanner creates the scanner that reads the kernel memory through the provider.
func NewScanner(p mem.Provider, opts ...Option) *Scanner {
	s := &Scanner{mem: p}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// siloState resolves the ETW state of the host silo (_ETW_SILODRIVERSTATE).
func (s *Scanner) siloState() (*mem.Object, error) {
	addr, err := s.mem.ResolveGlobal(kernel, HostSiloGlobals)
	if err != nil {
		return nil, err
	}
	globals, err := s.mem.TypedObjectAt(addr, kernel, "_ESERVERSILO_GLOBALS")
	if err != nil {
		return nil, err
	}
	ptr, err := globals.Field("EtwSiloState")
	if err != nil {
		return nil, err
	}
	state, err := ptr.Deref()
	if err != nil {
		return nil, errors.Wrap(err, "unable to resolve ETW silo state")
	}
	return state, nil
}

// fail handles the failure to process a single element. The diagnostic is
// recorded and the enumeration goes on, unless the scanner is strict.
func (s *Scanner) fail(r reporter, element string, addr va.Address, err error) error {
	d := newDiagnostic(element, addr, err)
	if s.strict {
		return d
	}
	r.report(d)
	return nil
}

// fields reads the structure members while retaining the first error,
// so that a batch of reads can be checked once.
type fields struct {
	obj *mem.Object
	err error
}

func (f *fields) uint(path string) uint64 {
	if f.err != nil {
		return 0
	}
	v, err := f.obj.ReadUint(path)
	f.err = errors.Wrapf(err, "%s.%s", f.obj.TypeName(), path)
	return v
}

func (f *fields) bool(path string) bool { return f.uint(path) != 0 }

func (f *fields) ptr(path string) va.Address {
	if f.err != nil {
		return 0
	}
	v, err := f.obj.ReadPointer(path)
	f.err = errors.Wrapf(err, "%s.%s", f.obj.TypeName(), path)
	return v
}

func (f *fields) guid(path string) GUID {
	if f.err != nil {
		return GUID{}
	}
	v, err := f.obj.ReadGUID(path)
	f.err = errors.Wrapf(err, "%s.%s", f.obj.TypeName(), path)
	return v
}

func (f *fields) ustr(path string) string {
	if f.err != nil {
		return ""
	}
	v, err := f.obj.ReadUnicodeString(path)
	f.err = errors.Wrapf(err, "%s.%s", f.obj.TypeName(), path)
	return v
}

func (f *fields) addr(path string) va.Address {
	if f.err != nil {
		return 0
	}
	v, err := f.obj.Field(path)
	if err != nil {
		f.err = errors.Wrapf(err, "%s.%s", f.obj.TypeName(), path)
		return 0
	}
	return v.Address()
}
