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
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/profile"
	"github.com/rabbitstack/etwscan/pkg/util/utf16"
	"github.com/rabbitstack/etwscan/pkg/util/va"
)

// Object is the typed view over the target memory. The view is lazy and
// no memory is read until one of the value accessors is invoked. When
// the view has a non-zero indirection level, the memory at its address
// holds a pointer that is transparently followed on field access.
type Object struct {
	src    *provider
	module string
	typ    string
	addr   va.Address
	ind    int
	count  int
	bit    uint8
	bits   uint8
}

// Address returns the address of the memory backing this view.
func (o *Object) Address() va.Address { return o.addr }

// TypeName returns the name of the type underlying the view.
func (o *Object) TypeName() string { return o.typ }

// Module returns the module name the type is declared in.
func (o *Object) Module() string { return o.module }

// Len returns the number of elements if the view is an inline array.
func (o *Object) Len() int { return o.count }

// IsPointer determines if the view designates a pointer.
func (o *Object) IsPointer() bool { return o.ind > 0 || o.typ == profile.Pointer }

// String returns the human-readable description of the view.
func (o *Object) String() string {
	var sb strings.Builder
	sb.WriteString(o.module)
	sb.WriteRune('!')
	sb.WriteString(o.typ)
	sb.WriteString(strings.Repeat("*", o.ind))
	if o.count > 0 {
		sb.WriteString("[" + strconv.Itoa(o.count) + "]")
	}
	sb.WriteString(" @ ")
	sb.WriteString(o.addr.Hex())
	return sb.String()
}

// Field returns the view of the structure member designated by the path. The path
// is the sequence of dot-separated field names, where each name can carry the
// array subscript, e.g. EnableInfo[3].LoggerId. Pointers are dereferenced as the
// path is resolved.
func (o *Object) Field(path string) (*Object, error) {
	cur := o
	for _, seg := range strings.Split(path, ".") {
		name, idx, err := parseSegment(seg)
		if err != nil {
			return nil, err
		}
		for cur.ind > 0 && cur.count == 0 {
			cur, err = cur.Deref()
			if err != nil {
				return nil, errors.Wrapf(err, "unable to dereference %s", name)
			}
		}
		if cur.count > 0 {
			return nil, fmt.Errorf("%s: can't access %s field of an array", cur, name)
		}
		t, err := cur.src.profile.Type(cur.module, cur.typ)
		if err != nil {
			return nil, err
		}
		f, err := t.Field(name)
		if err != nil {
			return nil, err
		}
		cur = &Object{
			src:    cur.src,
			module: cur.module,
			typ:    f.Type,
			addr:   cur.addr.Inc(uint64(f.Offset)),
			ind:    f.Pointer,
			count:  f.Count,
			bit:    f.Bit,
			bits:   f.Bits,
		}
		if idx >= 0 {
			cur, err = cur.Index(idx)
			if err != nil {
				return nil, err
			}
		}
	}
	return cur, nil
}

// Index returns the i-th element of the inline array. If the view
// is a pointer, the element is computed relative to the pointed address.
func (o *Object) Index(i int) (*Object, error) {
	if i < 0 {
		return nil, fmt.Errorf("%s: negative index %d", o, i)
	}
	switch {
	case o.count > 0:
		if i >= o.count {
			return nil, fmt.Errorf("%s: index %d out of range", o, i)
		}
		size, err := o.elemSize(o.ind)
		if err != nil {
			return nil, err
		}
		return &Object{src: o.src, module: o.module, typ: o.typ, addr: o.addr.Inc(uint64(i) * uint64(size)), ind: o.ind}, nil
	case o.ind > 0:
		ptr, err := o.Deref()
		if err != nil {
			return nil, err
		}
		size, err := o.elemSize(ptr.ind)
		if err != nil {
			return nil, err
		}
		ptr.addr = ptr.addr.Inc(uint64(i) * uint64(size))
		return ptr, nil
	default:
		return nil, fmt.Errorf("%s is neither an array nor a pointer", o)
	}
}

// Deref follows the pointer and returns the view of the pointed object.
func (o *Object) Deref() (*Object, error) {
	if o.ind == 0 {
		return nil, fmt.Errorf("%s is not a pointer", o)
	}
	if o.count > 0 {
		return nil, fmt.Errorf("%s: can't dereference an array", o)
	}
	p, err := o.src.readPointer(o.addr)
	if err != nil {
		return nil, err
	}
	if p.IsZero() {
		return nil, errors.Wrapf(ErrNullPointer, "%s", o)
	}
	return &Object{src: o.src, module: o.module, typ: o.typ, addr: p, ind: o.ind - 1}, nil
}

// Pointer returns the raw pointer value stored in the view. Contrary to Deref,
// a null pointer is not considered an error.
func (o *Object) Pointer() (va.Address, error) {
	if !o.IsPointer() || o.count > 0 {
		return 0, fmt.Errorf("%s is not a pointer", o)
	}
	return o.src.readPointer(o.addr)
}

// Uint reads the integer value. Bit fields are extracted from their storage unit.
func (o *Object) Uint() (uint64, error) {
	if o.count > 0 {
		return 0, fmt.Errorf("%s: can't read an array as integer", o)
	}
	if o.ind > 0 {
		p, err := o.src.readPointer(o.addr)
		return p.Uint64(), err
	}
	var (
		b [8]byte
		v uint64
	)
	switch o.typ {
	case profile.Uint8:
		if err := o.src.read(o.addr, b[:1]); err != nil {
			return 0, err
		}
		v = uint64(b[0])
	case profile.Uint16:
		if err := o.src.read(o.addr, b[:2]); err != nil {
			return 0, err
		}
		v = uint64(binary.LittleEndian.Uint16(b[:]))
	case profile.Uint32, profile.Int32:
		if err := o.src.read(o.addr, b[:4]); err != nil {
			return 0, err
		}
		v = uint64(binary.LittleEndian.Uint32(b[:]))
	case profile.Uint64, profile.Int64, profile.Pointer:
		if err := o.src.read(o.addr, b[:8]); err != nil {
			return 0, err
		}
		v = binary.LittleEndian.Uint64(b[:])
	default:
		return 0, fmt.Errorf("%s is not an integer", o)
	}
	if o.bits > 0 {
		v = (v >> o.bit) & (1<<o.bits - 1)
	}
	return v, nil
}

// Bool reads the integer value and reports whether it is non-zero.
func (o *Object) Bool() (bool, error) {
	v, err := o.Uint()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// GUID reads the raw bytes of the GUID structure.
func (o *Object) GUID() ([16]byte, error) {
	var g [16]byte
	if o.typ != profile.GUID || o.ind > 0 || o.count > 0 {
		return g, fmt.Errorf("%s is not a GUID", o)
	}
	err := o.src.read(o.addr, g[:])
	return g, err
}

// UnicodeString reads the counted UTF-16 string described by the UNICODE_STRING structure.
func (o *Object) UnicodeString() (string, error) {
	if o.typ != profile.UnicodeString || o.ind > 0 || o.count > 0 {
		return "", fmt.Errorf("%s is not a UNICODE_STRING", o)
	}
	var hdr [2 * profile.PointerSize]byte
	if err := o.src.read(o.addr, hdr[:]); err != nil {
		return "", err
	}
	length := binary.LittleEndian.Uint16(hdr[0:])
	buf := va.Address(binary.LittleEndian.Uint64(hdr[8:]))
	if length == 0 {
		return "", nil
	}
	if buf.IsZero() {
		return "", errors.Wrapf(ErrNullPointer, "%s buffer", o)
	}
	b := make([]byte, length&^1)
	if err := o.src.read(buf, b); err != nil {
		return "", err
	}
	return utf16.DecodeBytes(b), nil
}

// CString reads the byte array as a NUL-terminated ANSI string.
func (o *Object) CString() (string, error) {
	if o.typ != profile.Uint8 || o.ind > 0 || o.count == 0 {
		return "", fmt.Errorf("%s is not a character array", o)
	}
	b := make([]byte, o.count)
	if err := o.src.read(o.addr, b); err != nil {
		return "", err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

// Probe verifies the whole memory backing the view is readable.
func (o *Object) Probe() error {
	size, err := o.elemSize(o.ind)
	if err != nil {
		return err
	}
	n := int(size)
	if o.count > 0 {
		n *= o.count
	}
	return o.src.read(o.addr, make([]byte, n))
}

// ReadUint resolves the field path and reads its integer value.
func (o *Object) ReadUint(path string) (uint64, error) {
	f, err := o.Field(path)
	if err != nil {
		return 0, err
	}
	return f.Uint()
}

// ReadBool resolves the field path and reads its boolean value.
func (o *Object) ReadBool(path string) (bool, error) {
	f, err := o.Field(path)
	if err != nil {
		return false, err
	}
	return f.Bool()
}

// ReadPointer resolves the field path and reads the raw pointer.
func (o *Object) ReadPointer(path string) (va.Address, error) {
	f, err := o.Field(path)
	if err != nil {
		return 0, err
	}
	return f.Pointer()
}

// ReadGUID resolves the field path and reads the GUID bytes.
func (o *Object) ReadGUID(path string) ([16]byte, error) {
	f, err := o.Field(path)
	if err != nil {
		return [16]byte{}, err
	}
	return f.GUID()
}

// ReadUnicodeString resolves the field path and reads the UNICODE_STRING.
func (o *Object) ReadUnicodeString(path string) (string, error) {
	f, err := o.Field(path)
	if err != nil {
		return "", err
	}
	return f.UnicodeString()
}

// ReadCString resolves the field path and reads the character array.
func (o *Object) ReadCString(path string) (string, error) {
	f, err := o.Field(path)
	if err != nil {
		return "", err
	}
	return f.CString()
}

func (o *Object) elemSize(ind int) (uint32, error) {
	if ind > 0 {
		return profile.PointerSize, nil
	}
	return o.src.profile.SizeOf(o.module, o.typ)
}

func parseSegment(seg string) (string, int, error) {
	if seg == "" {
		return "", -1, errors.New("empty field name")
	}
	lb := strings.IndexByte(seg, '[')
	if lb < 0 {
		return seg, -1, nil
	}
	if !strings.HasSuffix(seg, "]") || lb == 0 {
		return "", -1, fmt.Errorf("malformed field subscript %q", seg)
	}
	idx, err := strconv.Atoi(seg[lb+1 : len(seg)-1])
	if err != nil {
		return "", -1, fmt.Errorf("malformed field subscript %q", seg)
	}
	return seg[:lb], idx, nil
}
