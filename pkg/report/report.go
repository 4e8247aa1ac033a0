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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rabbitstack/etwscan/pkg/etw"
)

// Format determines how the results are rendered.
type Format string

const (
	// Text renders the indented listing in the style of the kernel debugger output.
	Text Format = "text"
	// Table renders the results as tables.
	Table Format = "table"
	// JSON renders the results as JSON documents.
	JSON Format = "json"
	// Template renders the results through the user-provided text template.
	Template Format = "template"
	// Line renders each result item as a single line formatted by the line template.
	Line Format = "line"
)

// Formats contains all supported formats.
var Formats = []Format{Text, Table, JSON, Template, Line}

// ParseFormat parses the output format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q. Choose between %s", s, formatNames())
}

func formatNames() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, "|")
}

// Config contains the options that influence the rendering.
type Config struct {
	Format Format
	// Template is the text/template source used by the template format.
	Template string
	// LineFormat is the line template used by the line format.
	LineFormat string
}

// Report renders the reconstructed ETW state to the writer.
type Report struct {
	w      io.Writer
	format Format
	tmpl   *templateRenderer
	line   *LineFormatter
}

// New creates the report writer. Templates are parsed upfront, so
// syntax errors surface before the scan is started.
func New(w io.Writer, c Config) (*Report, error) {
	r := &Report{w: w, format: c.Format}
	switch c.Format {
	case Text, Table, JSON:
	case Template:
		t, err := newTemplateRenderer(c.Template)
		if err != nil {
			return nil, err
		}
		r.tmpl = t
	case Line:
		if c.LineFormat != "" {
			f, err := NewLineFormatter(c.LineFormat)
			if err != nil {
				return nil, err
			}
			r.line = f
		}
	default:
		return nil, fmt.Errorf("unknown output format %q", c.Format)
	}
	return r, nil
}

// Guids renders the registered GUID entries.
func (r *Report) Guids(res *etw.Result[*etw.GuidEntry]) error {
	return render(r, res, renderers[*etw.GuidEntry]{
		text:   writeGuids,
		table:  guidsTable,
		record: guidRecord,
		line:   guidLine,
	})
}

// Loggers renders the logger contexts.
func (r *Report) Loggers(res *etw.Result[*etw.LoggerContext]) error {
	return render(r, res, renderers[*etw.LoggerContext]{
		text:   writeLoggers,
		table:  loggersTable,
		record: loggerRecord,
		line:   loggerLine,
	})
}

// Consumers renders the realtime consumers held by processes.
func (r *Report) Consumers(res *etw.Result[*etw.ConsumerBinding]) error {
	return render(r, res, renderers[*etw.ConsumerBinding]{
		text:   writeConsumers,
		table:  consumersTable,
		record: consumerRecord,
		line:   consumerLine,
	})
}

// Providers renders the provider registrations held by processes.
func (r *Report) Providers(res *etw.Result[*etw.Provider]) error {
	return render(r, res, renderers[*etw.Provider]{
		text:   writeProviders,
		table:  providersTable,
		record: providerRecord,
		line:   providerLine,
	})
}

type renderers[T any] struct {
	text   func(io.Writer, []T)
	table  func(io.Writer, []T)
	record func(T) Record
	line   string
}

func render[T any](r *Report, res *etw.Result[T], rs renderers[T]) error {
	switch r.format {
	case JSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case Template:
		return r.tmpl.execute(r.w, res)
	case Line:
		f := r.line
		if f == nil {
			var err error
			f, err = NewLineFormatter(rs.line)
			if err != nil {
				return err
			}
		}
		for _, item := range res.Items {
			if _, err := r.w.Write(append(f.Format(rs.record(item)), '\n')); err != nil {
				return err
			}
		}
		writeDiagnostics(r.w, res.Diagnostics)
	case Table:
		rs.table(r.w, res.Items)
		diagnosticsTable(r.w, res.Diagnostics)
	default:
		rs.text(r.w, res.Items)
		writeDiagnostics(r.w, res.Diagnostics)
	}
	return nil
}
