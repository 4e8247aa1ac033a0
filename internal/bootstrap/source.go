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

package bootstrap

import (
	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/config"
	"github.com/rabbitstack/etwscan/pkg/profile"
	"github.com/rabbitstack/etwscan/pkg/snapshot"
	"github.com/rabbitstack/etwscan/pkg/util/spinner"
	log "github.com/sirupsen/logrus"
)

// ErrNoSnapshot is returned when the scan command is not given the snapshot file.
var ErrNoSnapshot = errors.New("snapshot file is required. Use --snapshot.file to specify it")

// OpenSnapshot opens the snapshot file designated in the config.
func OpenSnapshot(cfg *config.Config) (*snapshot.Snapshot, error) {
	if !cfg.IsSnapshotSet() {
		return nil, ErrNoSnapshot
	}
	spin := spinner.Show("Opening " + cfg.Snapshot.File)
	defer spin.Stop()
	snap, err := snapshot.Open(cfg.Snapshot.File, snapshot.WithCacheSize(cfg.Snapshot.CacheSize))
	if err != nil {
		return nil, err
	}
	if err := snap.Meta().Validate(); err != nil {
		snap.Close()
		return nil, errors.Wrapf(err, "invalid %s snapshot", cfg.Snapshot.File)
	}
	return snap, nil
}

// LoadProfiles builds the profile registry from the bundled profiles
// and the configured profile directories.
func LoadProfiles(cfg *config.Config) (*profile.Registry, error) {
	return profile.NewRegistry(cfg.Profile.Paths...)
}

// SelectProfile picks the profile for the kernel version. The explicitly
// configured profile file takes precedence over the registry lookup.
func SelectProfile(cfg *config.Config, kernel string) (*profile.Profile, error) {
	if cfg.Profile.File != "" {
		p, err := profile.Load(cfg.Profile.File)
		if err != nil {
			return nil, err
		}
		if !p.Matches(kernel) {
			log.Warnf("%s profile doesn't declare support for kernel %s", p.Name, kernel)
		}
		return p, nil
	}
	reg, err := LoadProfiles(cfg)
	if err != nil {
		return nil, err
	}
	return reg.Select(kernel)
}
