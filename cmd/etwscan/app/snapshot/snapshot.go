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

package snapshot

import (
	"github.com/rabbitstack/etwscan/pkg/config"
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect or build kernel snapshot files",
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show snapshot metadata and statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  info,
}

var packCmd = &cobra.Command{
	Use:   "pack <manifest>",
	Short: "Build the snapshot file from the manifest of raw memory dumps",
	Long: `
	Builds the snapshot file from the YAML manifest. The manifest declares the
	kernel version, loaded modules, resolved symbols and the files with the
	raw dumps of kernel memory regions. Processes and their handles are taken
	from the manifest, or from the running system if the --pack.live flag is set.
	`,
	Args: cobra.ExactArgs(1),
	RunE: pack,
}

var (
	infoCfg = config.NewWithOpts()
	packCfg = config.NewWithOpts(config.WithPack())

	showModules bool
)

func init() {
	infoCfg.MustViperize(infoCmd)
	packCfg.MustViperize(packCmd)

	infoCmd.Flags().BoolVarP(&showModules, "modules", "m", false, "List loaded kernel modules and resolved symbols")

	Command.AddCommand(infoCmd)
	Command.AddCommand(packCmd)
}
