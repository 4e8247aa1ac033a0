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
	"sort"

	"github.com/rabbitstack/etwscan/pkg/util/va"
)

// Reader fetches raw bytes from the target address space.
type Reader interface {
	// ReadMemory fills the buffer with the bytes starting at the given
	// address. The read either succeeds entirely or fails with the
	// UnreadableError.
	ReadMemory(addr va.Address, b []byte) error
}

// Region is the contiguous range of the captured memory.
type Region struct {
	Base va.Address
	Data []byte
}

// End returns the first address past the region.
func (r Region) End() va.Address { return r.Base.Inc(uint64(len(r.Data))) }

// contains determines if the address falls within the region.
func (r Region) contains(addr va.Address) bool { return addr >= r.Base && addr < r.End() }

// Image is the sparse address space backed by in-memory regions.
// Regions must not overlap. Reads spanning adjacent regions are
// satisfied as long as there are no holes in the requested range.
type Image struct {
	regions []Region
}

// NewImage creates an empty memory image.
func NewImage() *Image {
	return &Image{regions: make([]Region, 0)}
}

// Map adds the region at the specified base address.
func (m *Image) Map(base va.Address, data []byte) {
	m.regions = append(m.regions, Region{Base: base, Data: data})
	sort.Slice(m.regions, func(i, j int) bool { return m.regions[i].Base < m.regions[j].Base })
}

// Regions returns all mapped regions ordered by base address.
func (m *Image) Regions() []Region { return m.regions }

// ReadMemory reads memory from the mapped regions.
func (m *Image) ReadMemory(addr va.Address, b []byte) error {
	n := 0
	for n < len(b) {
		r, ok := m.find(addr.Inc(uint64(n)))
		if !ok {
			return &UnreadableError{Addr: addr, Size: len(b)}
		}
		off := uint64(addr.Inc(uint64(n)) - r.Base)
		n += copy(b[n:], r.Data[off:])
	}
	return nil
}

// WriteMemory overwrites the mapped memory. It is used to build
// synthetic targets.
func (m *Image) WriteMemory(addr va.Address, b []byte) error {
	n := 0
	for n < len(b) {
		r, ok := m.find(addr.Inc(uint64(n)))
		if !ok {
			return &UnreadableError{Addr: addr, Size: len(b)}
		}
		off := uint64(addr.Inc(uint64(n)) - r.Base)
		n += copy(r.Data[off:], b[n:])
	}
	return nil
}

func (m *Image) find(addr va.Address) (Region, bool) {
	i := sort.Search(len(m.regions), func(i int) bool { return m.regions[i].End() > addr })
	if i < len(m.regions) && m.regions[i].contains(addr) {
		return m.regions[i], true
	}
	return Region{}, false
}
