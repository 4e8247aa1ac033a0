//go:build windows

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
	"runtime"

	"github.com/rabbitstack/etwscan/pkg/pe"
	"github.com/rabbitstack/etwscan/pkg/snapshot"
	"github.com/rabbitstack/etwscan/pkg/sys"
	"github.com/rabbitstack/etwscan/pkg/util/va"
	log "github.com/sirupsen/logrus"
)

// amendLive completes the manifest metadata from the running system.
// Modules declared in the manifest get their paths filled in from the
// loaded driver list, drivers absent from the manifest are appended, and
// unknown module sizes are read from the SizeOfImage of the image file.
func amendLive(m *snapshot.Manifest) {
	if kernel := sys.KernelVersion(); kernel != m.Kernel {
		log.Warnf("manifest kernel %s differs from the running kernel %s", m.Kernel, kernel)
	}
	if m.Hostname == "" {
		m.Hostname, _ = os.Hostname()
	}
	if m.Arch == "" {
		m.Arch = runtime.GOARCH
	}

	drivers, err := sys.EnumDevices()
	if err != nil {
		log.Warnf("couldn't enumerate kernel modules: %v", err)
		return
	}
	known := make(map[string]int, len(m.Modules))
	for i, mod := range m.Modules {
		known[mod.Name] = i
	}
	for _, drv := range drivers {
		name := drv.ModuleName()
		if i, ok := known[name]; ok {
			if m.Modules[i].Path == "" {
				m.Modules[i].Path = drv.Filename
			}
			if m.Modules[i].Base == 0 {
				m.Modules[i].Base = va.Address(drv.Addr)
			}
			continue
		}
		known[name] = len(m.Modules)
		m.Modules = append(m.Modules, snapshot.Module{Name: name, Path: drv.Filename, Base: va.Address(drv.Addr)})
	}

	systemRoot := os.Getenv("SystemRoot")
	if systemRoot == "" {
		systemRoot = `C:\Windows`
	}
	for i, mod := range m.Modules {
		if mod.Size != 0 || mod.Path == "" {
			continue
		}
		size, err := pe.ImageSize(mod.Path, systemRoot)
		if err != nil {
			log.Warnf("couldn't determine the size of %s module: %v", mod.Name, err)
			continue
		}
		m.Modules[i].Size = size
	}
	log.Debugf("manifest carries %d kernel modules", len(m.Modules))
}
