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

// LoggersCmd prints the active logger sessions with their realtime consumers and enabled GUIDs.
var LoggersCmd = &cobra.Command{
	Use:   "loggers",
	Short: "List active logger sessions, their realtime consumers and enabled provider GUIDs",
	Args:  cobra.NoArgs,
	RunE:  loggers,
}

var loggersCfg = config.NewWithOpts(config.WithScan())

func init() {
	loggersCfg.MustViperize(LoggersCmd)
}

func loggers(cmd *cobra.Command, args []string) error {
	return run(loggersCfg, func(app *bootstrap.App, r *report.Report) error {
		res, err := app.Scanner().ScanLoggers()
		if err != nil {
			return err
		}
		return r.Loggers(res)
	})
}
