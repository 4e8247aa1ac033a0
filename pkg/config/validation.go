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

package config

import (
	"sync"

	"github.com/rabbitstack/etwscan/pkg/util/jsonschema"
)

var (
	configSchema *jsonschema.Schema
	once         sync.Once
)

// validate checks the config document against the config schema.
func validate(m interface{}) (bool, []error) {
	once.Do(func() {
		configSchema = jsonschema.MustCompile(interpolateSchema())
	})
	errs := configSchema.Validate(m)
	return len(errs) == 0, errs
}
