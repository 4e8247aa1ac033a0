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

package config

import (
	"bytes"
	"text/template"

	"github.com/rabbitstack/etwscan/pkg/report"
)

var schema = `
{
	"$schema": "http://json-schema.org/draft-07/schema#",

	"type": "object",
	"properties": {
		"config-file":	{"type": "string"},
		"snapshot": {
			"type": "object",
			"properties": {
				"file":			{"type": "string"}
			},
			"additionalProperties": false
		},
		"memory": {
			"type": "object",
			"properties": {
				"cache-size":	{"type": "integer", "minimum": 1, "maximum": {{ .MaxCacheSize }}}
			},
			"additionalProperties": false
		},
		"profile": {
			"type": "object",
			"properties": {
				"file":			{"type": "string"},
				"paths":		{"type": "array", "items": {"type": "string", "minLength": 1}}
			},
			"additionalProperties": false
		},
		"scan": {
			"type": "object",
			"properties": {
				"strict":			{"type": "boolean"},
				"max-list-entries":	{"type": "integer", "minimum": 1, "maximum": {{ .MaxListEntries }}},
				"disassemble":		{"type": "integer", "minimum": 0, "maximum": {{ .MaxDisassemble }}}
			},
			"additionalProperties": false
		},
		"output": {
			"type": "object",
			"properties": {
				"format":			{"type": "string", "enum": [{{ range $i, $f := .Formats }}{{ if $i }}, {{ end }}"{{ $f }}"{{ end }}]},
				"template":			{"type": "string"},
				"template-file":	{"type": "string"},
				"line-format":		{"type": "string"}
			},
			"additionalProperties": false
		},
		"pack": {
			"type": "object",
			"properties": {
				"output":		{"type": "string"},
				"live":			{"type": "boolean"}
			},
			"additionalProperties": false
		},
		"logging": {
			"type": "object",
			"properties": {
				"level":		{"type": "string", "enum": ["trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "FATAL", "PANIC"]},
				"max-age":		{"type": "integer", "minimum": 0},
				"max-backups":	{"type": "integer", "minimum": 0},
				"max-size":		{"type": "integer", "minimum": 1},
				"formatter":	{"type": "string", "enum": ["json", "text"]},
				"path":			{"type": "string"},
				"log-stdout":	{"type": "boolean"}
			},
			"additionalProperties": false
		}
	},
	"additionalProperties": false
}
`

type schemaConfig struct {
	MaxCacheSize   int
	MaxListEntries int
	MaxDisassemble int
	Formats        []report.Format
}

func interpolateSchema() string {
	tmpl := template.Must(template.New("schema").Parse(schema))

	var b bytes.Buffer
	err := tmpl.Execute(&b, &schemaConfig{
		MaxCacheSize:   4096,
		MaxListEntries: 1 << 20,
		MaxDisassemble: 32,
		Formats:        report.Formats,
	})
	if err != nil {
		return ""
	}

	return b.String()
}
