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
	"strings"
	"testing"

	"github.com/rabbitstack/etwscan/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromYamlFile(t *testing.T) {
	c := NewWithOpts(WithScan())

	err := c.flags.Parse([]string{"--config-file=_fixtures/etwscan.yml"})
	require.NoError(t, c.viper.BindPFlags(c.flags))
	require.NoError(t, err)
	require.NoError(t, c.TryLoadFile(c.File()))

	require.NoError(t, c.Init())
	require.NoError(t, c.Validate())

	assert.True(t, c.IsSnapshotSet())
	assert.Equal(t, "win10.ksnap", c.Snapshot.File)
	assert.Equal(t, 32, c.Snapshot.CacheSize)
	assert.Equal(t, []string{"profiles", "/opt/etwscan/profiles"}, c.Profile.Paths)
	assert.True(t, c.Scan.Strict)
	assert.Equal(t, 8192, c.Scan.MaxListEntries)
	assert.Equal(t, 4, c.Scan.Disassemble)
	assert.Equal(t, report.Line, c.Output.Format)
	assert.Equal(t, ".Guid .Name", c.Output.LineFormat)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "text", c.Log.Formatter)
	assert.Equal(t, 15, c.Log.MaxBackups)
}

func TestNewFromJsonFile(t *testing.T) {
	c := NewWithOpts(WithScan())

	err := c.flags.Parse([]string{"--config-file=_fixtures/etwscan.json", "--scan.strict"})
	require.NoError(t, c.viper.BindPFlags(c.flags))
	require.NoError(t, err)
	require.NoError(t, c.TryLoadFile(c.File()))

	require.NoError(t, c.Init())
	require.NoError(t, c.Validate())

	// flags take precedence over the config file
	assert.True(t, c.Scan.Strict)
	assert.Equal(t, 1024, c.Scan.MaxListEntries)
	assert.Equal(t, DefaultCacheSize, c.Snapshot.CacheSize)
	assert.Equal(t, report.Table, c.Output.Format)
}

func TestInvalidConfigFile(t *testing.T) {
	c := NewWithOpts(WithScan())

	require.NoError(t, c.flags.Parse([]string{"--config-file=_fixtures/invalid.yml"}))
	require.NoError(t, c.viper.BindPFlags(c.flags))
	require.NoError(t, c.TryLoadFile(c.File()))

	err := c.Validate()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "invalid config"))
	require.Error(t, c.Init())
}

func TestDefaults(t *testing.T) {
	c := NewWithOpts(WithScan())
	require.NoError(t, c.viper.BindPFlags(c.flags))
	require.NoError(t, c.Init())
	require.NoError(t, c.Validate())

	assert.False(t, c.IsSnapshotSet())
	assert.Equal(t, report.Text, c.Output.Format)
	assert.Equal(t, DefaultMaxListEntries, c.Scan.MaxListEntries)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Nil(t, c.flags.Lookup("pack.output"))
}

func TestTemplateFile(t *testing.T) {
	c := NewWithOpts(WithScan())
	require.NoError(t, c.flags.Parse([]string{"--output.format=template", "--output.template-file=_fixtures/template.tmpl"}))
	require.NoError(t, c.viper.BindPFlags(c.flags))
	require.NoError(t, c.Init())
	assert.Equal(t, report.Template, c.Output.Format)
	assert.Contains(t, c.Output.Template, "range .Items")

	c = NewWithOpts(WithScan())
	require.NoError(t, c.flags.Parse([]string{"--output.template-file=_fixtures/missing.tmpl"}))
	require.NoError(t, c.viper.BindPFlags(c.flags))
	require.Error(t, c.Init())
}

func TestPackFlags(t *testing.T) {
	c := NewWithOpts(WithPack())
	require.NoError(t, c.flags.Parse([]string{"-o", "out.ksnap", "--pack.live"}))
	require.NoError(t, c.viper.BindPFlags(c.flags))
	require.NoError(t, c.Init())

	assert.Equal(t, "out.ksnap", c.Pack.Output)
	assert.True(t, c.Pack.Live)
	assert.Nil(t, c.flags.Lookup("output.format"))
}

func TestPrint(t *testing.T) {
	c := NewWithOpts(WithScan())
	require.NoError(t, c.flags.Parse([]string{"--profile.paths=a,b"}))
	require.NoError(t, c.viper.BindPFlags(c.flags))

	out := c.Print()
	assert.Contains(t, out, "scan.max-list-entries")
	assert.Contains(t, out, "a,b")
	assert.Less(t, strings.Index(out, "logging.level"), strings.Index(out, "scan.strict"))
}
