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

package app

import (
	"github.com/rabbitstack/etwscan/cmd/etwscan/app/config"
	"github.com/rabbitstack/etwscan/cmd/etwscan/app/profile"
	"github.com/rabbitstack/etwscan/cmd/etwscan/app/scan"
	"github.com/rabbitstack/etwscan/cmd/etwscan/app/snapshot"
	"github.com/spf13/cobra"
)

// RootCmd is the entrance to etwscan CLI
var RootCmd = &cobra.Command{
	Use:   "etwscan",
	Short: "Reconstruct the ETW kernel state from kernel memory snapshots",
	Long: `
	etwscan rebuilds the Event Tracing for Windows state kept in kernel memory.
	It enumerates the registered provider GUIDs, the active logger sessions and
	their realtime consumers, and correlates ETW handles held by processes
	with the providers they registered and the sessions they consume.
	`,
	SilenceUsage: true,
}

func init() {
	RootCmd.AddCommand(scan.GuidsCmd)
	RootCmd.AddCommand(scan.LoggersCmd)
	RootCmd.AddCommand(scan.ConsumersCmd)
	RootCmd.AddCommand(scan.ProvidersCmd)
	RootCmd.AddCommand(snapshot.Command)
	RootCmd.AddCommand(profile.Command)
	RootCmd.AddCommand(config.Command)
	RootCmd.AddCommand(versionCmd)
}
