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

package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	v := New("1.4.2", "a3f1c9e", "2024-03-01")
	assert.Equal(t, int64(1), v.Major)
	assert.Equal(t, int64(4), v.Minor)
	assert.Equal(t, int64(2), v.Patch)
	assert.Equal(t, "a3f1c9e", v.Commit)

	dev := New("", "a3f1c9e", "")
	assert.Zero(t, dev.Major)

	require.Panics(t, func() { New("1.4", "", "") })
}

func TestProductToken(t *testing.T) {
	Set("")
	assert.True(t, IsDev())
	assert.Equal(t, "etwscan/dev", ProductToken())

	Set("1.4.2")
	defer Set("")
	assert.False(t, IsDev())
	assert.Equal(t, "etwscan/1.4.2", ProductToken())
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	New("1.4.2", "a3f1c9e", "2024-03-01").Render(&buf)
	assert.Contains(t, buf.String(), "1.4.2")
	assert.Contains(t, buf.String(), "a3f1c9e")

	buf.Reset()
	New("", "", "").Render(&buf)
	assert.Contains(t, buf.String(), "dev")
}
