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
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	htypes "github.com/rabbitstack/etwscan/pkg/handle/types"
	pstypes "github.com/rabbitstack/etwscan/pkg/ps/types"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stats contains the snapshot statistics.
type Stats struct {
	File            string
	Kernel          string
	Size            uint64
	Regions         int
	Chunks          uint64
	MemoryBytes     uint64
	CompressedBytes uint64
	Modules         int
	Symbols         int
	Processes       uint64
	Handles         uint64
	Registrations   uint64
	Consumers       uint64
}

func (s *Stats) countHandles(ps *pstypes.PS) {
	for _, h := range ps.Handles {
		s.Handles++
		switch h.Type {
		case htypes.EtwRegistration:
			s.Registrations++
		case htypes.EtwConsumer:
			s.Consumers++
		}
	}
}

// Ratio returns the compression ratio of the memory chunks.
func (s *Stats) Ratio() float64 {
	if s.CompressedBytes == 0 {
		return 0
	}
	return float64(s.MemoryBytes) / float64(s.CompressedBytes)
}

// Print renders the statistics table to the writer.
func (s *Stats) Print(w io.Writer) {
	p := message.NewPrinter(language.English)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Snapshot Statistics")
	t.SetStyle(table.StyleLight)

	t.AppendRow(table.Row{"File", filepath.Base(s.File)})
	t.AppendRow(table.Row{"Kernel", s.Kernel})
	t.AppendSeparator()

	t.AppendRow(table.Row{"Memory regions", p.Sprintf("%d", s.Regions)})
	t.AppendRow(table.Row{"Memory chunks", p.Sprintf("%d", s.Chunks)})
	t.AppendRow(table.Row{"Memory captured", humanize.IBytes(s.MemoryBytes)})
	t.AppendRow(table.Row{"Memory compressed", humanize.IBytes(s.CompressedBytes)})
	t.AppendRow(table.Row{"Compression ratio", p.Sprintf("%.2f", s.Ratio())})
	t.AppendSeparator()

	t.AppendRow(table.Row{"Modules", s.Modules})
	t.AppendRow(table.Row{"Symbols", s.Symbols})
	t.AppendRow(table.Row{"Processes", p.Sprintf("%d", s.Processes)})
	t.AppendRow(table.Row{"Handles", p.Sprintf("%d", s.Handles)})
	t.AppendRow(table.Row{"EtwRegistration handles", p.Sprintf("%d", s.Registrations)})
	t.AppendRow(table.Row{"EtwConsumer handles", p.Sprintf("%d", s.Consumers)})

	if s.Size > 0 {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Snapshot size", humanize.Bytes(s.Size)})
	}

	t.Render()
}
