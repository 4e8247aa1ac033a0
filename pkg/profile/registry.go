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
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

//go:embed profiles/*.yml
var bundled embed.FS

// Registry holds all known profiles. Profiles loaded from user
// directories take precedence over the bundled ones.
type Registry struct {
	profiles []*Profile
}

// NewRegistry builds the registry from bundled profiles and the profiles
// found in the given directories. Invalid profiles in user directories
// are logged and skipped.
func NewRegistry(paths ...string) (*Registry, error) {
	r := &Registry{}
	for _, dir := range paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("unable to read %s profiles directory: %v", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !isProfileFile(e.Name()) {
				continue
			}
			p, err := Load(filepath.Join(dir, e.Name()))
			if err != nil {
				log.Warnf("skipping profile: %v", err)
				continue
			}
			r.profiles = append(r.profiles, p)
		}
	}
	entries, err := bundled.ReadDir("profiles")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := path.Join("profiles", e.Name())
		b, err := bundled.ReadFile(name)
		if err != nil {
			return nil, err
		}
		p, err := Parse(b, "bundled:"+e.Name())
		if err != nil {
			return nil, err
		}
		r.profiles = append(r.profiles, p)
	}
	return r, nil
}

// Profiles returns all registered profiles.
func (r *Registry) Profiles() []*Profile { return r.profiles }

// Select returns the first profile whose kernel constraint
// is satisfied by the given kernel version.
func (r *Registry) Select(kernel string) (*Profile, error) {
	for _, p := range r.profiles {
		if p.Matches(kernel) {
			log.Debugf("selected %s profile for kernel %s", p.Name, kernel)
			return p, nil
		}
	}
	return nil, fmt.Errorf("no profile matches kernel version %s", kernel)
}

// Find returns the profile by name.
func (r *Registry) Find(name string) (*Profile, bool) {
	for _, p := range r.profiles {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
