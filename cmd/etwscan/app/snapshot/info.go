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
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rabbitstack/etwscan/internal/bootstrap"
	"github.com/rabbitstack/etwscan/pkg/snapshot"
	"github.com/rabbitstack/etwscan/pkg/util/spinner"
	"github.com/spf13/cobra"
)

func info(cmd *cobra.Command, args []string) error {
	if err := bootstrap.InitConfigAndLogger(infoCfg); err != nil {
		return err
	}
	spin := spinner.Show("Opening " + args[0])
	snap, err := snapshot.Open(args[0])
	spin.Stop()
	if err != nil {
		return err
	}
	defer snap.Close()

	writeMeta(os.Stdout, snap.Meta())
	snap.Stats().Print(os.Stdout)
	if showModules {
		writeModules(os.Stdout, snap.Meta())
	}
	return nil
}

func writeMeta(w io.Writer, meta snapshot.Meta) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("System")
	t.SetStyle(table.StyleLight)

	t.AppendRow(table.Row{"Hostname", meta.Hostname})
	t.AppendRow(table.Row{"Kernel", meta.Kernel})
	t.AppendRow(table.Row{"Architecture", meta.Arch})
	if !meta.Timestamp.IsZero() {
		t.AppendRow(table.Row{"Taken at", meta.Timestamp.Format("2006-01-02 15:04:05 MST")})
	}

	t.Render()
}

func writeModules(w io.Writer, meta snapshot.Meta) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Modules")
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Base", "Size", "Path"})
	for _, mod := range meta.Modules {
		t.AppendRow(table.Row{mod.Name, mod.Base.Hex(), mod.Size, mod.Path})
	}
	t.Render()

	if len(meta.Symbols) == 0 {
		return
	}
	s := table.NewWriter()
	s.SetOutputMirror(w)
	s.SetTitle("Symbols")
	s.SetStyle(table.StyleLight)
	s.AppendHeader(table.Row{"Symbol", "Address"})
	for _, name := range meta.SymbolNames() {
		s.AppendRow(table.Row{name, meta.Symbols[name].Hex()})
	}
	s.Render()
}
