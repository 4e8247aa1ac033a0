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
	"errors"
	"fmt"

	"github.com/rabbitstack/etwscan/pkg/snapshot/section"
	"github.com/rabbitstack/etwscan/pkg/util/bytes"
)

// magic identifies snapshot files. The magic is stored within the first 8 bytes of the file
// and also serves to initialize the byte order on the machine where the snapshot is read.
const magic = bytes.Sentinel

// major represents the major digit of the snapshot file format. Incrementing the major
// digit makes older readers incapable of opening the snapshot.
const major = uint8(1)

// minor represents the minor digit of the snapshot file format
const minor = uint8(0)

// flags denotes extra flags for the purpose of the header description
const flags = uint64(0)

// headerSize is the size of the magic, version digits and flags.
const headerSize = 8 + 1 + 1 + 8

// ChunkSize is the maximum amount of memory stored in a single compressed chunk.
const ChunkSize = 64 * 1024

// Ext is the default snapshot file extension.
const Ext = ".ksnap"

var (
	errMagicMismatch = errors.New("invalid snapshot file magic number")
	errMajorVer      = errors.New("incompatible snapshot version format. Please upgrade etwscan to newer version")
	errWriteMagic    = func(err error) error { return fmt.Errorf("couldn't write magic number: %v", err) }
	errWriteVersion  = func(s string, err error) error { return fmt.Errorf("couldn't write %s version digit: %v", s, err) }
	errWriteSection  = func(s section.Type, err error) error { return fmt.Errorf("couldn't write %s section: %v", s, err) }
	errReadSection   = func(s section.Type, err error) error { return fmt.Errorf("couldn't read %s section: %v", s, err) }
)
