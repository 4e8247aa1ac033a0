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

// ConsumersCmd correlates the EtwConsumer handles of processes with the logger sessions they consume.
var ConsumersCmd = &cobra.Command{
	Use:   "consumers",
	Short: "Show logger sessions consumed by processes through their EtwConsumer handles",
	Args:  cobra.NoArgs,
	RunE:  consumers,
}

var (
	consumersCfg = config.NewWithOpts(config.WithScan())
	consumersSel selector
)

func init() {
	consumersCfg.MustViperize(ConsumersCmd)
	consumersSel.addFlags(ConsumersCmd)
}

func consumers(cmd *cobra.Command, args []string) error {
	if err := consumersSel.validate(); err != nil {
		return err
	}
	return run(consumersCfg, func(app *bootstrap.App, r *report.Report) error {
		procs, err := consumersSel.processes(app.Directory())
		if err != nil {
			return err
		}
		res, err := app.Correlator().ConsumersFor(procs)
		if err != nil {
			return err
		}
		return r.Consumers(res)
	})
}
