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
	"github.com/rabbitstack/etwscan/pkg/config"
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:   "profile",
	Short: "List or validate kernel type profiles",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List bundled and user profiles",
	Args:  cobra.NoArgs,
	RunE:  list,
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate profiles for structural correctness",
	Args:  cobra.MinimumNArgs(1),
	RunE:  validate,
}

var cfg = config.NewWithOpts(config.WithProfile())

func init() {
	cfg.MustViperize(Command)

	Command.AddCommand(listCmd)
	Command.AddCommand(validateCmd)
}
