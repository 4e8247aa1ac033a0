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

package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFromConfig(t *testing.T) {
	defer logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))

	require.Error(t, InitFromConfig(Config{Level: "loud"}, "etwscan.log"))
	require.Error(t, InitFromConfig(Config{Level: "info", Formatter: "xml"}, "etwscan.log"))
	require.Error(t, InitFromConfig(Config{Level: "info", Path: t.TempDir()}, ""))

	require.NoError(t, InitFromConfig(Config{Level: "warn"}, "etwscan.log"))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	assert.Equal(t, os.Stderr, logrus.StandardLogger().Out)

	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, InitFromConfig(Config{Path: dir, Level: "info", Formatter: "json", MaxSize: 1}, "etwscan.log"))

	logrus.Info("etwscan initialized")

	_, err := os.Stat(filepath.Join(dir, "etwscan.log"))
	require.NoError(t, err)
}
