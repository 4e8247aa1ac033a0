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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rabbitstack/etwscan/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteProfiles(t *testing.T) {
	reg, err := profile.NewRegistry()
	require.NoError(t, err)

	var b bytes.Buffer
	writeProfiles(&b, reg.Profiles())
	assert.Contains(t, b.String(), "windows-10-19041-x64")
	assert.Contains(t, b.String(), "bundled:")
}

func TestValidateFiles(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.yml")
	require.NoError(t, os.WriteFile(valid, []byte(`
name: custom
kernel: ">= 10.0.22621"
modules:
  nt:
    types:
      _LIST:
        size: 0x10
        fields:
          Flink: {offset: 0, type: pointer}
`), 0o644))
	invalid := filepath.Join(dir, "invalid.yml")
	require.NoError(t, os.WriteFile(invalid, []byte(`
name: broken
modules: {}
`), 0o644))

	require.NoError(t, validateFiles([]string{valid}))
	err := validateFiles([]string{valid, invalid, filepath.Join(dir, "missing.yml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yml")
}
