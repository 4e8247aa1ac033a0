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

package scan

import (
	"github.com/rabbitstack/etwscan/internal/bootstrap"
	"github.com/rabbitstack/etwscan/pkg/config"
	"github.com/rabbitstack/etwscan/pkg/etw"
	"github.com/rabbitstack/etwscan/pkg/report"
	"github.com/spf13/cobra"
)

// GuidsCmd prints the provider GUIDs registered in the kernel GUID hash table.
var GuidsCmd = &cobra.Command{
	Use:   "guids",
	Short: "List registered provider GUIDs along with their registration entries",
	Args:  cobra.NoArgs,
	RunE:  guids,
}

var (
	guidsCfg = config.NewWithOpts(config.WithScan())

	guidTypes       []string
	includeDisabled bool
	loggerID        uint16
)

func init() {
	guidsCfg.MustViperize(GuidsCmd)

	GuidsCmd.Flags().StringSliceVarP(&guidTypes, "type", "t", []string{}, "Comma-separated list of GUID types (trace|notification|group). All types are listed by default")
	GuidsCmd.Flags().BoolVar(&includeDisabled, "include-disabled", false, "Include GUID entries that are not enabled by any session")
	GuidsCmd.Flags().Uint16VarP(&loggerID, "logger", "l", 0, "Only list GUIDs enabled for the logger session with this identifier. With --include-disabled, GUIDs bound to the session but not enabled are listed too")
}

func parseGuidTypes(names []string) ([]etw.GuidType, error) {
	if len(names) == 0 {
		return etw.GuidTypes, nil
	}
	types := make([]etw.GuidType, 0, len(names))
	for _, name := range names {
		typ, err := etw.ParseGuidType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, typ)
	}
	return types, nil
}

func guids(cmd *cobra.Command, args []string) error {
	types, err := parseGuidTypes(guidTypes)
	if err != nil {
		return err
	}
	byLogger := cmd.Flags().Changed("logger")
	return run(guidsCfg, func(app *bootstrap.App, r *report.Report) error {
		if !byLogger {
			res, err := app.Scanner().RegisteredGuids(includeDisabled, types...)
			if err != nil {
				return err
			}
			return r.Guids(res)
		}
		res, err := guidsForLogger(app.Scanner(), loggerID, includeDisabled, types)
		if err != nil {
			return err
		}
		return r.Guids(res)
	})
}

// guidScanner scans the GUID hash table for the entries of one GUID type.
type guidScanner interface {
	ScanGuids(filter etw.LoggerFilter, typ etw.GuidType) (*etw.Result[*etw.GuidEntry], error)
}

// guidsForLogger collects the entries of the given types bound to the logger.
// Unless includeDisabled is set, only entries enabled for the logger are kept.
func guidsForLogger(s guidScanner, id uint16, includeDisabled bool, types []etw.GuidType) (*etw.Result[*etw.GuidEntry], error) {
	res := &etw.Result[*etw.GuidEntry]{Items: make([]*etw.GuidEntry, 0)}
	for _, typ := range types {
		entries, err := s.ScanGuids(etw.ForLogger(id), typ)
		if err != nil {
			return nil, err
		}
		for _, e := range entries.Items {
			if includeDisabled || e.EnabledFor(id) {
				res.Items = append(res.Items, e)
			}
		}
		res.Diagnostics = append(res.Diagnostics, entries.Diagnostics...)
	}
	return res, nil
}
