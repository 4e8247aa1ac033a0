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
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/util/multierror"
	"gopkg.in/yaml.v3"
)

// Load reads and validates the profile from the YAML file.
func Load(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%q profile does not exist", path)
		}
		return nil, err
	}
	return Parse(b, path)
}

// Parse decodes the profile from the YAML document. The document is first
// validated against the profile JSON schema. The source identifies
// the origin of the profile in error messages.
func Parse(b []byte, source string) (*Profile, error) {
	var out interface{}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrapf(err, "couldn't read the %s profile", source)
	}
	if errs := profileSchema.Validate(out); len(errs) > 0 {
		return nil, fmt.Errorf("invalid %s profile: %v", source, multierror.Wrap(errs...))
	}
	p := &Profile{source: source}
	if err := decode(out, p); err != nil {
		return nil, errors.Wrapf(err, "couldn't decode the %s profile", source)
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	return p, nil
}

func decode(input, output interface{}) error {
	var decoderConfig = &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           output,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// isProfileFile determines if the file has the profile extension.
func isProfileFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yml", ".yaml":
		return true
	default:
		return false
	}
}
