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
	"errors"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/rabbitstack/etwscan/pkg/util/va"
)

type templateRenderer struct {
	t *template.Template
}

func newTemplateRenderer(src string) (*templateRenderer, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("template output format requires the template")
	}
	funcmap := sprig.TxtFuncMap()
	funcmap["hexaddr"] = func(addr va.Address) string { return addr.Hex() }
	t, err := template.New("report").Funcs(funcmap).Parse(src)
	if err != nil {
		return nil, err
	}
	return &templateRenderer{t: t}, nil
}

// execute runs the template with the result as the data. The template
// accesses the result items through .Items and diagnostics through .Diagnostics.
func (r *templateRenderer) execute(w io.Writer, data interface{}) error {
	return r.t.Execute(w, data)
}
