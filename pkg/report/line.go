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
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/rabbitstack/etwscan/pkg/etw"
	"github.com/rabbitstack/etwscan/pkg/util/fasttemplate"
)

const (
	// startTag represents the leading tag surrounding field name
	startTag = "{{"
	// endTag represents the trailing tag surrounding field name
	endTag = "}}"
)

// Field names available in line templates. Fields that don't
// apply to the rendered item are substituted with empty strings.
const (
	kind      = ".Kind"
	typ       = ".Type"
	addr      = ".Address"
	guid      = ".Guid"
	name      = ".Name"
	enabled   = ".Enabled"
	loggerID  = ".LoggerId"
	logger    = ".Logger"
	mode      = ".Mode"
	consumers = ".Consumers"
	pid       = ".Pid"
	proc      = ".Process"
	handle    = ".Handle"
	guids     = ".Guids"
)

var fields = map[string]bool{
	kind:      true,
	typ:       true,
	addr:      true,
	guid:      true,
	name:      true,
	enabled:   true,
	loggerID:  true,
	logger:    true,
	mode:      true,
	consumers: true,
	pid:       true,
	proc:      true,
	handle:    true,
	guids:     true,
}

// default line templates
const (
	guidLine     = "{{ .Type }} {{ .Address }} {{ .Guid }} {{ .Name }} logger={{ .LoggerId }} enabled={{ .Enabled }}"
	loggerLine   = "{{ .LoggerId }} {{ .Logger }} {{ .Address }} {{ .Mode }} consumers={{ .Consumers }} guids={{ .Guids }}"
	consumerLine = "{{ .Process }} ({{ .Pid }}) handle={{ .Handle }} consumer={{ .Address }} logger={{ .Logger }} ({{ .LoggerId }}) guids={{ .Guids }}"
	providerLine = "{{ .Process }} ({{ .Pid }}) handle={{ .Handle }} registration={{ .Address }} {{ .Guid }} {{ .Name }}"
)

var (
	// tmplRegexp defines the regular expression for parsing template fields.
	tmplRegexp = regexp.MustCompile(`({{2}.*?}{2})`)
	// tmplNormRegexp removes the brackets and surrounding spaces from the field name.
	tmplNormRegexp = regexp.MustCompile(`({{2}\s*([A-Za-z.]+)\s*}{2})`)
)

// Record is the flattened result item keyed by the line template field name.
type Record map[string]interface{}

// LineFormatter renders records through the line template.
type LineFormatter struct {
	t *fasttemplate.Template
}

// NewLineFormatter parses the line template and ensures it only references known fields.
func NewLineFormatter(template string) (*LineFormatter, error) {
	flds := tmplRegexp.FindAllStringSubmatch(template, -1)
	if len(flds) == 0 {
		return nil, fmt.Errorf("invalid line format: %q", template)
	}
	if ok, pos := isTemplateBalanced(template); !ok {
		return nil, fmt.Errorf("line format syntax error near field #%d: %q", pos, template)
	}
	for i, field := range flds {
		fname := sanitize(field[0])
		if fname == "" {
			return nil, fmt.Errorf("empty field found at position %d", i+1)
		}
		if !fields[fname] {
			return nil, fmt.Errorf("%s is not a known field name. Maybe you meant one "+
				"of the following fields: %s", fname, hintFields())
		}
	}
	norm := tmplNormRegexp.ReplaceAllString(template, "{{$2}}")
	t, err := fasttemplate.NewTemplate(norm, startTag, endTag)
	if err != nil {
		return nil, fmt.Errorf("invalid line format %q: %v", norm, err)
	}
	return &LineFormatter{t: t}, nil
}

// Format renders the record.
func (f *LineFormatter) Format(r Record) []byte {
	return f.t.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		switch v := r[tag].(type) {
		case nil:
			return 0, nil
		case string:
			return w.Write([]byte(v))
		case fmt.Stringer:
			return w.Write([]byte(v.String()))
		default:
			return w.Write([]byte(fmt.Sprintf("%v", v)))
		}
	})
}

func hintFields() string {
	s := make([]string, 0, len(fields))
	for field := range fields {
		s = append(s, field)
	}
	sort.Strings(s)
	return strings.Join(s, " ")
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '{' || r == '}' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

const expectedBracketsSeq = "{{}}"

// isTemplateBalanced ensures each tag in the template has its pair of leading/trailing brackets.
func isTemplateBalanced(tmpl string) (bool, int) {
	s := strings.Map(func(r rune) rune {
		if r == '{' || r == '}' {
			return r
		}
		return -1
	}, tmpl)
	partSize := len(expectedBracketsSeq)
	var i int
	for ; i < len(s)/partSize; i++ {
		if s[i*partSize:(i+1)*partSize] != expectedBracketsSeq {
			return false, i + 1
		}
	}
	if len(s)%partSize != 0 {
		return false, i + 1
	}
	return true, -1
}

func hex(v uint64) string { return "0x" + strconv.FormatUint(v, 16) }

func joinGuids(entries []*etw.GuidEntry, sep string) string {
	s := make([]string, len(entries))
	for i, e := range entries {
		s[i] = e.GUID.String()
	}
	return strings.Join(s, sep)
}

func guidRecord(e *etw.GuidEntry) Record {
	return Record{
		kind:     "guid",
		typ:      e.Type,
		addr:     e.Addr.Hex(),
		guid:     e.GUID,
		name:     e.GUID.Name(),
		enabled:  strconv.FormatBool(e.LastEnable.Enabled),
		loggerID: strconv.Itoa(int(e.LastEnable.LoggerID)),
	}
}

func loggerRecord(l *etw.LoggerContext) Record {
	return Record{
		kind:      "logger",
		addr:      l.Addr.Hex(),
		guid:      l.InstanceGUID,
		name:      l.Name,
		loggerID:  strconv.Itoa(int(l.ID)),
		logger:    l.Name,
		mode:      l.Mode,
		consumers: strconv.Itoa(len(l.Consumers)),
		guids:     joinGuids(l.EnabledGuids, ","),
	}
}

func consumerRecord(b *etw.ConsumerBinding) Record {
	return Record{
		kind:     "consumer",
		addr:     b.Consumer.Addr.Hex(),
		pid:      strconv.Itoa(int(b.PID)),
		proc:     b.ProcessName,
		handle:   hex(b.Handle),
		loggerID: strconv.Itoa(int(b.Logger.ID)),
		logger:   b.Logger.Name,
		mode:     b.Logger.Mode,
		guids:    joinGuids(b.Guids, ","),
	}
}

func providerRecord(p *etw.Provider) Record {
	return Record{
		kind:   "provider",
		addr:   p.Registration.Addr.Hex(),
		pid:    strconv.Itoa(int(p.PID)),
		proc:   p.ProcessName,
		handle: hex(p.Handle),
		guid:   p.GUID,
		name:   p.GUID.Name(),
	}
}
