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
	"sort"

	"github.com/rabbitstack/etwscan/pkg/util/va"
)

// maxDisplacement is the largest distance from the symbol start at which an
// address is still attributed to the symbol. Farther addresses are rendered
// as module offsets.
const maxDisplacement = 0x10000

type symbol struct {
	rva  uint64
	name string
}

// ModuleSymbols contains the symbols of the specific module sorted by RVA (Relative Virtual Address).
type ModuleSymbols struct {
	syms []symbol
}

func newModuleSymbols() *ModuleSymbols {
	return &ModuleSymbols{syms: make([]symbol, 0)}
}

func (m *ModuleSymbols) add(name string, rva uint64) {
	m.syms = append(m.syms, symbol{rva: rva, name: name})
}

func (m *ModuleSymbols) sort() {
	sort.Slice(m.syms, func(i, j int) bool { return m.syms[i].rva < m.syms[j].rva })
}

// Len returns the number of symbols.
func (m *ModuleSymbols) Len() int { return len(m.syms) }

// SymbolFromRVA finds the closest symbol at or before the RVA. It returns
// the symbol name and the displacement from the symbol start. No symbol is
// returned when the displacement exceeds maxDisplacement.
func (m *ModuleSymbols) SymbolFromRVA(rva va.Address) (string, uint64, bool) {
	i := sort.Search(len(m.syms), func(i int) bool { return m.syms[i].rva > rva.Uint64() })
	if i == 0 {
		return "", 0, false
	}
	sym := m.syms[i-1]
	off := rva.Uint64() - sym.rva
	if off > maxDisplacement {
		return "", 0, false
	}
	return sym.name, off, true
}
