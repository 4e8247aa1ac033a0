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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rabbitstack/etwscan/pkg/mem"
	"github.com/rabbitstack/etwscan/pkg/util/va"
	log "github.com/sirupsen/logrus"
)

// ErrStaleObject signals the object doesn't look like a live object of the expected kind.
var ErrStaleObject = errors.New("stale object or type mismatch")

// ErrorKind classifies the failures encountered while reconstructing the ETW state.
type ErrorKind uint8

const (
	// UnreadableMemory denotes the address or the field couldn't be fetched from the target.
	UnreadableMemory ErrorKind = iota
	// TypeMismatchOrStaleHandle denotes the object doesn't correspond to a live object of the expected kind.
	TypeMismatchOrStaleHandle
	// InvalidSlot denotes the empty logger table slot. It is a normal skip condition.
	InvalidSlot
)

func (k ErrorKind) String() string {
	switch k {
	case UnreadableMemory:
		return "UnreadableMemory"
	case TypeMismatchOrStaleHandle:
		return "TypeMismatchOrStaleHandle"
	case InvalidSlot:
		return "InvalidSlot"
	default:
		return "Unknown"
	}
}

// KindOf classifies the error.
func KindOf(err error) ErrorKind {
	var d Diagnostic
	if errors.As(err, &d) {
		return d.Kind
	}
	if mem.IsUnreadable(err) {
		return UnreadableMemory
	}
	return TypeMismatchOrStaleHandle
}

// Diagnostic records the failure to process one element of the enumeration.
type Diagnostic struct {
	Kind    ErrorKind
	Element string
	Addr    va.Address
	Err     error
}

func newDiagnostic(element string, addr va.Address, err error) Diagnostic {
	return Diagnostic{Kind: KindOf(err), Element: element, Addr: addr, Err: err}
}

// Error returns the diagnostic message.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s at %s: %s: %v", d.Element, d.Addr.Hex(), d.Kind, d.Err)
}

// Unwrap returns the underlying error.
func (d Diagnostic) Unwrap() error { return d.Err }

// MarshalJSON encodes the diagnostic.
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    string     `json:"kind"`
		Element string     `json:"element"`
		Addr    va.Address `json:"address"`
		Err     string     `json:"error"`
	}{d.Kind.String(), d.Element, d.Addr, d.Err.Error()})
}

// Result is the outcome of the enumeration. Items are the elements that were
// reconstructed successfully. Diagnostics describe the elements that were skipped.
type Result[T any] struct {
	Items       []T          `json:"items"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

func newResult[T any]() *Result[T] {
	return &Result[T]{Items: make([]T, 0)}
}

// Len returns the number of items.
func (r *Result[T]) Len() int { return len(r.Items) }

// HasDiagnostics determines if any of the elements was skipped.
func (r *Result[T]) HasDiagnostics() bool { return len(r.Diagnostics) > 0 }

func (r *Result[T]) add(item T) { r.Items = append(r.Items, item) }

func (r *Result[T]) report(d Diagnostic) {
	log.WithFields(log.Fields{
		"kind":    d.Kind,
		"element": d.Element,
		"address": d.Addr.Hex(),
	}).Warnf("skipping element: %v", d.Err)
	r.Diagnostics = append(r.Diagnostics, d)
}

// merge appends diagnostics that were already reported.
func (r *Result[T]) merge(diags []Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, diags...)
}

// reporter collects diagnostics of the enumerated elements.
type reporter interface {
	report(Diagnostic)
}
