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
	"github.com/rabbitstack/etwscan/pkg/report"
	"github.com/spf13/cobra"
)

// ProvidersCmd correlates the EtwRegistration handles of processes with the provider GUIDs they registered.
var ProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Show provider GUIDs registered by processes through their EtwRegistration handles",
	Args:  cobra.NoArgs,
	RunE:  providers,
}

var (
	providersCfg = config.NewWithOpts(config.WithScan())
	providersSel selector
)

func init() {
	providersCfg.MustViperize(ProvidersCmd)
	providersSel.addFlags(ProvidersCmd)
}

func providers(cmd *cobra.Command, args []string) error {
	if err := providersSel.validate(); err != nil {
		return err
	}
	return run(providersCfg, func(app *bootstrap.App, r *report.Report) error {
		procs, err := providersSel.processes(app.Directory())
		if err != nil {
			return err
		}
		res, err := app.Correlator().ProvidersFor(procs)
		if err != nil {
			return err
		}
		return r.Providers(res)
	})
}
