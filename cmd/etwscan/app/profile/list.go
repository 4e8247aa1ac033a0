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

package profile

import (
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rabbitstack/etwscan/internal/bootstrap"
	"github.com/rabbitstack/etwscan/pkg/profile"
	"github.com/spf13/cobra"
)

func list(cmd *cobra.Command, args []string) error {
	if err := bootstrap.InitConfigAndLogger(cfg); err != nil {
		return err
	}
	reg, err := bootstrap.LoadProfiles(cfg)
	if err != nil {
		return err
	}
	writeProfiles(os.Stdout, reg.Profiles())
	return nil
}

func writeProfiles(w io.Writer, profiles []*profile.Profile) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Name", "Kernel", "Modules", "Types", "Source"})
	t.SetStyle(table.StyleLight)

	for _, p := range profiles {
		modules := make([]string, 0, len(p.Modules))
		types := 0
		for name, m := range p.Modules {
			modules = append(modules, name)
			types += len(m.Types)
		}
		t.AppendRow(table.Row{p.Name, p.Kernel, strings.Join(modules, ","), types, p.Source()})
	}
	t.Render()
}
