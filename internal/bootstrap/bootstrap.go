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
	"github.com/rabbitstack/etwscan/pkg/config"
	"github.com/rabbitstack/etwscan/pkg/etw"
	"github.com/rabbitstack/etwscan/pkg/mem"
	"github.com/rabbitstack/etwscan/pkg/profile"
	"github.com/rabbitstack/etwscan/pkg/ps"
	"github.com/rabbitstack/etwscan/pkg/snapshot"
	"github.com/rabbitstack/etwscan/pkg/symbolize"
	"github.com/rabbitstack/etwscan/pkg/util/version"
	log "github.com/sirupsen/logrus"
)

// App wires the snapshot, the type profile and the memory provider
// into the ETW scanners.
type App struct {
	config     *config.Config
	snap       *snapshot.Snapshot
	profile    *profile.Profile
	dir        ps.Directory
	symbolizer *symbolize.Symbolizer
	scanner    *etw.Scanner
	correlator *etw.Correlator
}

// NewApp constructs a new bootstrap application with the specified configuration.
// The configuration is passed from individual command work functions.
func NewApp(cfg *config.Config) (*App, error) {
	if err := InitConfigAndLogger(cfg); err != nil {
		return nil, err
	}
	log.Debugf("bootstrapping etwscan %s", version.Get())

	snap, err := OpenSnapshot(cfg)
	if err != nil {
		return nil, err
	}
	meta := snap.Meta()
	p, err := SelectProfile(cfg, meta.Kernel)
	if err != nil {
		snap.Close()
		return nil, err
	}
	log.Infof("scanning %s snapshot of kernel %s with %s profile", cfg.Snapshot.File, meta.Kernel, p.Name)

	provider := mem.NewProvider(
		snap,
		p,
		mem.WithModules(meta.ModuleBases()),
		mem.WithSymbols(meta.Symbols),
		mem.WithMaxListEntries(cfg.Scan.MaxListEntries),
	)

	var symOpts []symbolize.Option
	if cfg.Scan.Disassemble > 0 {
		symOpts = append(symOpts, symbolize.WithDisassembly(snap, cfg.Scan.Disassemble))
	}
	symbolizer := symbolize.NewSymbolizer(meta, p, symOpts...)

	scanner := etw.NewScanner(
		provider,
		etw.WithStrict(cfg.Scan.Strict),
		etw.WithCallbackResolver(symbolizer),
	)
	dir := ps.NewDirectory(snap.Processes())

	app := &App{
		config:     cfg,
		snap:       snap,
		profile:    p,
		dir:        dir,
		symbolizer: symbolizer,
		scanner:    scanner,
		correlator: etw.NewCorrelator(scanner, dir),
	}
	return app, nil
}

// Scanner returns the kernel structure scanner.
func (a *App) Scanner() *etw.Scanner { return a.scanner }

// Correlator returns the process handle correlator.
func (a *App) Correlator() *etw.Correlator { return a.correlator }

// Directory returns the process directory captured in the snapshot.
func (a *App) Directory() ps.Directory { return a.dir }

// Profile returns the selected type profile.
func (a *App) Profile() *profile.Profile { return a.profile }

// Symbolizer returns the kernel address symbolizer.
func (a *App) Symbolizer() *symbolize.Symbolizer { return a.symbolizer }

// Shutdown releases the snapshot file.
func (a *App) Shutdown() error {
	if a.snap == nil {
		return nil
	}
	return a.snap.Close()
}
