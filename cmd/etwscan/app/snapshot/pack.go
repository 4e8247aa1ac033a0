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
	"os"

	"github.com/rabbitstack/etwscan/internal/bootstrap"
	"github.com/rabbitstack/etwscan/pkg/handle"
	"github.com/rabbitstack/etwscan/pkg/ps"
	"github.com/rabbitstack/etwscan/pkg/snapshot"
	"github.com/rabbitstack/etwscan/pkg/util/spinner"
	"github.com/rabbitstack/etwscan/pkg/util/version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func pack(cmd *cobra.Command, args []string) error {
	if err := bootstrap.InitConfigAndLogger(packCfg); err != nil {
		return err
	}
	m, err := snapshot.LoadManifest(args[0])
	if err != nil {
		return err
	}

	var src snapshot.ProcessSource
	if packCfg.Pack.Live {
		dir, err := ps.NewLiveDirectory(handle.NewEnumerator(), false)
		if err != nil {
			return err
		}
		src = dir
		amendLive(m)
	}

	log.Infof("packing %s snapshot with %s", packCfg.Pack.Output, version.ProductToken())
	spin := spinner.Show("Packing " + args[0])
	stats, err := snapshot.Pack(m, packCfg.Pack.Output, src)
	spin.Stop()
	if err != nil {
		return err
	}
	stats.Print(os.Stdout)
	return nil
}
