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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	pstypes "github.com/rabbitstack/etwscan/pkg/ps/types"
	"github.com/rabbitstack/etwscan/pkg/util/va"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// RegionFile references the raw memory dump of a kernel address range.
type RegionFile struct {
	// Base is the virtual address of the first byte in the dump.
	Base va.Address `yaml:"base"`
	// File is the path of the raw dump. Relative paths are resolved against the manifest directory.
	File string `yaml:"file"`
	// Offset is the offset within the file where the region starts.
	Offset int64 `yaml:"offset"`
	// Size is the number of bytes to take from the file. Zero takes everything past the offset.
	Size int64 `yaml:"size"`
}

// Manifest describes the raw artifacts that are packed into the snapshot.
type Manifest struct {
	Meta      `yaml:",inline"`
	Regions   []RegionFile  `yaml:"regions"`
	Processes []*pstypes.PS `yaml:"processes"`

	dir string
}

// ProcessSource supplies processes and their handles from an external process directory.
type ProcessSource interface {
	Processes() ([]*pstypes.PS, error)
}

// LoadManifest reads the snapshot manifest from the YAML file.
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrapf(err, "couldn't decode %s manifest", path)
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s manifest", path)
	}
	if len(m.Regions) == 0 {
		return nil, fmt.Errorf("%s manifest declares no memory regions", path)
	}
	m.dir = filepath.Dir(path)
	return &m, nil
}

func (m *Manifest) path(file string) string {
	if filepath.IsAbs(file) || m.dir == "" {
		return file
	}
	return filepath.Join(m.dir, file)
}

// Pack builds the snapshot file from the manifest. If the process source is
// given, its processes are appended to the ones declared in the manifest.
func Pack(m *Manifest, output string, src ProcessSource) (*Stats, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	w, err := NewWriter(output, m.Meta)
	if err != nil {
		return nil, err
	}

	for _, r := range m.Regions {
		data, err := readRegion(m.path(r.File), r.Offset, r.Size)
		if err != nil {
			w.Close()
			return nil, err
		}
		log.Debugf("packing %d bytes at %s from %s", len(data), r.Base.Hex(), r.File)
		if err := w.WriteRegion(r.Base, data); err != nil {
			w.Close()
			return nil, err
		}
	}

	procs := m.Processes
	if src != nil {
		ps, err := src.Processes()
		if err != nil {
			w.Close()
			return nil, errors.Wrap(err, "couldn't enumerate processes")
		}
		procs = append(procs, ps...)
	}
	for _, ps := range procs {
		for i := range ps.Handles {
			ps.Handles[i].Pid = ps.PID
		}
		if err := w.WriteProcess(ps); err != nil {
			w.Close()
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return w.Stats(), nil
}

func readRegion(path string, off, size int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if off < 0 || off > fi.Size() {
		return nil, fmt.Errorf("offset %d is out of %s bounds", off, path)
	}
	if size == 0 {
		size = fi.Size() - off
	}
	if off+size > fi.Size() {
		return nil, fmt.Errorf("region of %d bytes at offset %d exceeds %s size", size, off, path)
	}
	data := make([]byte, size)
	if _, err := f.ReadAt(data, off); err != nil {
		return nil, err
	}
	return data, nil
}
