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

package pe

import (
	"expvar"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	peparser "github.com/saferwall/pe"
	peparserlog "github.com/saferwall/pe/log"
	log "github.com/sirupsen/logrus"
)

// parserWarnings counts the anomalies reported by the PE parser
var parserWarnings = expvar.NewMap("pe.parser.warnings")

// Image contains the header facts of the kernel module image needed to
// place the module in the kernel address space.
type Image struct {
	// Size is the size of the image once mapped in memory (SizeOfImage).
	Size uint32
	// Is64 indicates if the image has the PE32+ optional header.
	Is64 bool
	// Machine is the target machine of the image.
	Machine uint16
	// LinkTime is the image link timestamp.
	LinkTime time.Time
}

// Parse reads the headers of the image file located at the given path.
func Parse(path string) (*Image, error) {
	pe, err := peparser.New(path, newParserOpts())
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open %s image", path)
	}
	return parse(pe, path)
}

// ParseBytes reads the image headers from the byte slice.
func ParseBytes(data []byte) (*Image, error) {
	pe, err := peparser.NewBytes(data, newParserOpts())
	if err != nil {
		return nil, err
	}
	return parse(pe, "in-memory")
}

func parse(pe *peparser.File, source string) (*Image, error) {
	defer pe.Close()
	if err := pe.ParseDOSHeader(); err != nil {
		return nil, errors.Wrapf(err, "invalid DOS header in %s image", source)
	}
	if err := pe.ParseNTHeader(); err != nil {
		return nil, errors.Wrapf(err, "invalid NT header in %s image", source)
	}

	img := &Image{
		Is64:     pe.Is64,
		Machine:  uint16(pe.NtHeader.FileHeader.Machine),
		LinkTime: time.Unix(int64(pe.NtHeader.FileHeader.TimeDateStamp), 0).UTC(),
	}
	switch oh := pe.NtHeader.OptionalHeader.(type) {
	case peparser.ImageOptionalHeader64:
		img.Size = oh.SizeOfImage
	case peparser.ImageOptionalHeader32:
		img.Size = oh.SizeOfImage
	default:
		return nil, fmt.Errorf("%s image has no optional header", source)
	}
	return img, nil
}

// ImageSize returns the in-memory size of the kernel module image given by
// the path in any of the forms accepted by DriverPath.
func ImageSize(path, systemRoot string) (uint32, error) {
	img, err := Parse(DriverPath(path, systemRoot))
	if err != nil {
		return 0, err
	}
	return img.Size, nil
}

// DriverPath converts the kernel module path reported by the device driver
// enumeration into the file system path. Paths are either rooted at
// \SystemRoot, carry the \??\ prefix, or are relative to the system root.
func DriverPath(path, systemRoot string) string {
	const (
		sysRootPrefix = `\systemroot\`
		nsPrefix      = `\??\`
	)
	lower := strings.ToLower(path)
	switch {
	case strings.HasPrefix(lower, sysRootPrefix):
		return systemRoot + `\` + path[len(sysRootPrefix):]
	case strings.HasPrefix(path, nsPrefix):
		return path[len(nsPrefix):]
	case strings.HasPrefix(lower, `system32\`):
		return systemRoot + `\` + path
	}
	return filepath.Clean(path)
}

func newParserOpts() *peparser.Options {
	return &peparser.Options{
		DisableCertValidation:     true,
		OmitIATDirectory:          true,
		OmitSecurityDirectory:     true,
		OmitExceptionDirectory:    true,
		OmitTLSDirectory:          true,
		OmitCLRHeaderDirectory:    true,
		OmitCLRMetadata:           true,
		OmitDelayImportDirectory:  true,
		OmitBoundImportDirectory:  true,
		OmitArchitectureDirectory: true,
		OmitDebugDirectory:        true,
		OmitRelocDirectory:        true,
		OmitResourceDirectory:     true,
		OmitImportDirectory:       true,
		OmitExportDirectory:       true,
		OmitLoadConfigDirectory:   true,
		OmitGlobalPtrDirectory:    true,
		Logger:                    &Logger{},
	}
}

// Logger is the adapter for routing PE parser logs to logrus.
type Logger struct{}

// Log implements the PE parser logger interface.
func (l Logger) Log(level peparserlog.Level, keyvals ...interface{}) error {
	if len(keyvals) < 2 {
		return nil
	}
	switch level {
	case peparserlog.LevelDebug, peparserlog.LevelInfo:
		log.Debug(keyvals[1:]...)
	case peparserlog.LevelWarn:
		parserWarnings.Add(fmt.Sprintf("%s", keyvals[1:]), 1)
	default:
		log.Warn(keyvals[1:]...)
	}
	return nil
}
