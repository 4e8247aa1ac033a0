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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/report"
	"github.com/rabbitstack/etwscan/pkg/util/log"
	"github.com/rabbitstack/etwscan/pkg/util/multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configFile = "config-file"

	snapshotFile = "snapshot.file"
	cacheSize    = "memory.cache-size"

	profileFile  = "profile.file"
	profilePaths = "profile.paths"

	strict         = "scan.strict"
	maxListEntries = "scan.max-list-entries"
	disassemble    = "scan.disassemble"

	outputFormat       = "output.format"
	outputTemplate     = "output.template"
	outputTemplateFile = "output.template-file"
	outputLineFormat   = "output.line-format"

	packOutput = "pack.output"
	packLive   = "pack.live"
)

const (
	// DefaultCacheSize is the default number of decompressed memory chunks kept in the cache.
	DefaultCacheSize = 64
	// DefaultMaxListEntries is the default upper bound on the number of visited list entries.
	DefaultMaxListEntries = 1 << 16
)

// SnapshotConfig determines the source of the kernel memory.
type SnapshotConfig struct {
	// File is the path of the kernel snapshot file.
	File string `json:"file" yaml:"file"`
	// CacheSize is the number of decompressed memory chunks kept in the cache.
	CacheSize int `json:"cache-size" yaml:"cache-size"`
}

// ProfileConfig determines where the type profiles are loaded from.
type ProfileConfig struct {
	// File is the profile that is used regardless of the snapshot kernel version.
	File string `json:"file" yaml:"file"`
	// Paths contains extra directories with profiles.
	Paths []string `json:"paths" yaml:"paths"`
}

// ScanConfig influences the behaviour of the kernel structure scanners.
type ScanConfig struct {
	// Strict makes the scan fail on the first element that can't be decoded.
	Strict bool `json:"strict" yaml:"strict"`
	// MaxListEntries bounds the walk of the kernel linked lists.
	MaxListEntries int `json:"max-list-entries" yaml:"max-list-entries"`
	// Disassemble is the number of callback prologue instructions to decode. Zero disables disassembly.
	Disassemble int `json:"disassemble" yaml:"disassemble"`
}

// PackConfig contains the options for building the snapshot file.
type PackConfig struct {
	// Output is the path of the resulting snapshot file.
	Output string `json:"output" yaml:"output"`
	// Live indicates if the processes and handles are taken from the running system.
	Live bool `json:"live" yaml:"live"`
}

// Config stores configuration options for fine-tuning the behaviour of etwscan.
type Config struct {
	// Snapshot contains the snapshot source settings.
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`
	// Profile contains the profile lookup settings.
	Profile ProfileConfig `json:"profile" yaml:"profile"`
	// Scan contains the scanner settings.
	Scan ScanConfig `json:"scan" yaml:"scan"`
	// Output stores the report rendering options.
	Output report.Config `json:"output" yaml:"output"`
	// Pack contains the snapshot packing settings.
	Pack PackConfig `json:"pack" yaml:"pack"`
	// Log contains log-specific configuration options
	Log log.Config `json:"logging" yaml:"logging"`

	flags *pflag.FlagSet
	viper *viper.Viper
	opts  *Options
}

// Options determines which config flags are toggled depending on the command type.
type Options struct {
	scan    bool
	pack    bool
	profile bool
}

// Option is the type alias for the config option.
type Option func(*Options)

// WithScan determines one of the scan commands is executed.
func WithScan() Option {
	return func(o *Options) {
		o.scan = true
	}
}

// WithPack determines the snapshot pack command is executed.
func WithPack() Option {
	return func(o *Options) {
		o.pack = true
	}
}

// WithProfile determines one of the profile commands is executed.
func WithProfile() Option {
	return func(o *Options) {
		o.profile = true
	}
}

// NewWithOpts builds a new configuration store from a variety of sources such as configuration files,
// environment variables or command line flags.
func NewWithOpts(options ...Option) *Config {
	opts := &Options{}

	for _, opt := range options {
		opt(opts)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	c := &Config{
		Log:   log.Config{},
		viper: v,
		flags: new(pflag.FlagSet),
		opts:  opts,
	}

	c.addFlags()

	return c
}

// MustViperize adds the flag set to the Cobra command and binds them within the Viper flags.
func (c *Config) MustViperize(cmd *cobra.Command) {
	cmd.PersistentFlags().AddFlagSet(c.flags)
	if err := c.viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		panic(err)
	}
	if c.opts.pack {
		if err := cmd.MarkPersistentFlagRequired(packOutput); err != nil {
			panic(err)
		}
	}
}

// Init setups the configuration state from Viper.
func (c *Config) Init() error {
	c.Log.InitFromViper(c.viper)

	c.Snapshot.File = c.viper.GetString(snapshotFile)
	c.Snapshot.CacheSize = c.viper.GetInt(cacheSize)
	c.Profile.File = c.viper.GetString(profileFile)
	c.Profile.Paths = c.viper.GetStringSlice(profilePaths)
	c.Scan.Strict = c.viper.GetBool(strict)
	c.Scan.MaxListEntries = c.viper.GetInt(maxListEntries)
	c.Scan.Disassemble = c.viper.GetInt(disassemble)
	c.Pack.Output = c.viper.GetString(packOutput)
	c.Pack.Live = c.viper.GetBool(packLive)

	if c.opts.scan {
		format, err := report.ParseFormat(c.viper.GetString(outputFormat))
		if err != nil {
			return err
		}
		c.Output.Format = format
		c.Output.Template = c.viper.GetString(outputTemplate)
		c.Output.LineFormat = c.viper.GetString(outputLineFormat)
		if file := c.viper.GetString(outputTemplateFile); file != "" {
			b, err := os.ReadFile(file)
			if err != nil {
				return errors.Wrap(err, "couldn't read the output template")
			}
			c.Output.Template = string(b)
		}
	}
	return nil
}

// TryLoadFile attempts to load the configuration file from specified path on the file system.
func (c *Config) TryLoadFile(file string) error {
	c.viper.SetConfigFile(file)
	return c.viper.ReadInConfig()
}

// Validate ensures that all configuration options provided by user have the expected values. It returns
// a list of validation errors prefixed with the offending configuration property/flag.
func (c *Config) Validate() error {
	// we'll first validate the structure and values of the config file
	if file := c.File(); file != "" {
		var out interface{}
		b, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		switch filepath.Ext(file) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(b, &out)
		case ".json":
			err = json.Unmarshal(b, &out)
		default:
			return fmt.Errorf("%s is not a supported config file extension", filepath.Ext(file))
		}
		if err != nil {
			return fmt.Errorf("couldn't read the config file: %v", err)
		}
		valid, errs := validate(out)
		if !valid || len(errs) > 0 {
			return fmt.Errorf("invalid config: %v", multierror.Wrap(errs...))
		}
	}
	// now validate the Viper config flags
	valid, errs := validate(c.viper.AllSettings())
	if !valid || len(errs) > 0 {
		return fmt.Errorf("invalid config: %v", multierror.Wrap(errs...))
	}
	return nil
}

// File returns the config file path.
func (c *Config) File() string { return c.viper.GetString(configFile) }

// IsSnapshotSet determines if the snapshot file is given.
func (c *Config) IsSnapshotSet() bool { return c.Snapshot.File != "" }

func (c *Config) addFlags() {
	c.flags.String(configFile, "", "Indicates the location of the configuration file")
	if c.opts.scan || c.opts.profile {
		c.flags.String(profileFile, "", "Specifies the profile file that overrides the profile selected by the kernel version")
		c.flags.StringSlice(profilePaths, []string{}, "Comma-separated list of directories with additional profiles")
	}
	if c.opts.scan {
		c.flags.StringP(snapshotFile, "s", "", "The path of the kernel snapshot file")
		c.flags.Int(cacheSize, DefaultCacheSize, "Specifies the number of decompressed memory chunks kept in the cache")
		c.flags.Bool(strict, false, "Makes the scan fail on the first kernel structure that can't be decoded instead of reporting it")
		c.flags.Int(maxListEntries, DefaultMaxListEntries, "Specifies the maximum number of entries visited when walking kernel linked lists")
		c.flags.Int(disassemble, 0, "Specifies the number of instructions disassembled at the provider callback address")
		c.flags.StringP(outputFormat, "f", string(report.Text), fmt.Sprintf("Determines the output format (%s)", formatNames()))
		c.flags.String(outputTemplate, "", "Specifies the Go template used by the template output format")
		c.flags.String(outputTemplateFile, "", "Specifies the file with the Go template used by the template output format")
		c.flags.String(outputLineFormat, "", "Specifies the line template used by the line output format (e.g. .Guid .Name)")
	}
	if c.opts.pack {
		c.flags.StringP(packOutput, "o", "", "The path of the output snapshot file")
		c.flags.Bool(packLive, false, "Indicates if processes and handles are collected from the running system")
	}
	c.Log.AddFlags(c.flags)
}

func formatNames() string {
	names := make([]string, len(report.Formats))
	for i, f := range report.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, "|")
}
