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

package report

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rabbitstack/etwscan/pkg/etw"
)

func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(header)
	t.SetStyle(table.StyleLight)
	return t
}

func guidsTable(w io.Writer, entries []*etw.GuidEntry) {
	t := newTable(w, table.Row{"Type", "Entry", "GUID", "Name", "Enabled", "Logger", "Registrations"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Type, e.Addr.Hex(), e.GUID, e.GUID.Name(), e.LastEnable.Enabled, e.LastEnable.LoggerID, len(e.Registrations)})
	}
	t.Render()
}

func loggersTable(w io.Writer, loggers []*etw.LoggerContext) {
	t := newTable(w, table.Row{"ID", "Name", "Context", "Instance GUID", "Mode", "Consumers", "Enabled GUIDs"})
	for _, l := range loggers {
		consumers := make([]string, 0, len(l.Consumers))
		for _, c := range l.Consumers {
			if c.Process != nil {
				consumers = append(consumers, c.Process.String())
			} else {
				consumers = append(consumers, c.Addr.Hex())
			}
		}
		t.AppendRow(table.Row{l.ID, l.Name, l.Addr.Hex(), l.InstanceGUID, strings.Join(l.Mode.Flags(), "\n"), strings.Join(consumers, "\n"), len(l.EnabledGuids)})
	}
	t.Render()
}

func consumersTable(w io.Writer, bindings []*etw.ConsumerBinding) {
	t := newTable(w, table.Row{"PID", "Process", "Handle", "Consumer", "Logger ID", "Logger", "Provider GUIDs"})
	for _, b := range bindings {
		t.AppendRow(table.Row{b.PID, b.ProcessName, hex(b.Handle), b.Consumer.Addr.Hex(), b.Logger.ID, b.Logger.Name, joinGuids(b.Guids, "\n")})
	}
	t.Render()
}

func providersTable(w io.Writer, providers []*etw.Provider) {
	t := newTable(w, table.Row{"PID", "Process", "Handle", "Registration", "GUID", "Name"})
	for _, p := range providers {
		t.AppendRow(table.Row{p.PID, p.ProcessName, hex(p.Handle), p.Registration.Addr.Hex(), p.GUID, p.GUID.Name()})
	}
	t.Render()
}

func diagnosticsTable(w io.Writer, diags []etw.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	t := newTable(w, table.Row{"Kind", "Element", "Address", "Error"})
	t.SetTitle("Skipped elements")
	for _, d := range diags {
		t.AppendRow(table.Row{d.Kind, d.Element, d.Addr.Hex(), d.Err})
	}
	t.Render()
}
