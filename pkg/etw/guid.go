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

package etw

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GUID is the Windows GUID structure in its in-memory layout. The first
// three components are stored in little-endian byte order.
type GUID [16]byte

// ParseGUID parses the GUID from its canonical textual form. The braces
// around the GUID are optional.
func ParseGUID(s string) (GUID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return GUID{}, fmt.Errorf("invalid GUID %q: %v", s, err)
	}
	var g GUID
	binary.LittleEndian.PutUint32(g[0:], binary.BigEndian.Uint32(u[0:]))
	binary.LittleEndian.PutUint16(g[4:], binary.BigEndian.Uint16(u[4:]))
	binary.LittleEndian.PutUint16(g[6:], binary.BigEndian.Uint16(u[6:]))
	copy(g[8:], u[8:])
	return g, nil
}

// MustParseGUID is like ParseGUID but panics if the GUID can't be parsed.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

// IsZero determines if all GUID bytes are zero.
func (g GUID) IsZero() bool { return g == GUID{} }

// String returns the GUID in the registry format, e.g. {22FB2CD6-0E7B-422B-A0C7-2FAD1FD0E716}.
func (g GUID) String() string {
	return fmt.Sprintf("{%08X-%04X-%04X-%04X-%012X}",
		binary.LittleEndian.Uint32(g[0:]),
		binary.LittleEndian.Uint16(g[4:]),
		binary.LittleEndian.Uint16(g[6:]),
		g[8:10],
		g[10:])
}

// Name returns the provider name if the GUID belongs to a well-known provider.
func (g GUID) Name() string { return knownProviders[g] }

// MarshalText encodes the GUID in the registry format.
func (g GUID) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

// UnmarshalText decodes the GUID from its textual form.
func (g *GUID) UnmarshalText(b []byte) error {
	v, err := ParseGUID(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

var knownProviders = map[GUID]string{
	MustParseGUID("22fb2cd6-0e7b-422b-a0c7-2fad1fd0e716"): "Microsoft-Windows-Kernel-Process",
	MustParseGUID("edd08927-9cc4-4e65-b970-c2560fb5c289"): "Microsoft-Windows-Kernel-File",
	MustParseGUID("7dd42a49-5329-4832-8dfd-43d979153a88"): "Microsoft-Windows-Kernel-Network",
	MustParseGUID("c7bde69a-e1e0-4177-b6ef-283ad1525271"): "Microsoft-Windows-Kernel-Disk",
	MustParseGUID("b675ec37-bdb6-4648-bc92-f3fdc74d3ca2"): "Microsoft-Windows-Kernel-EventTracing",
	MustParseGUID("151f55dc-467d-471f-83b5-5f889d46ff66"): "SystemProcessProvider",
	MustParseGUID("599a2a76-4d91-4910-9ac7-7d33f2e97a6c"): "SystemSchedulerProvider",
	MustParseGUID("d4bbee17-b545-4888-858b-744169015b25"): "SystemInterruptProvider",
	MustParseGUID("82958ca9-b6cd-47f8-a3a8-03ae85a4bc24"): "SystemMemoryProvider",
	MustParseGUID("3d5c43e3-0f1c-4202-b817-174c0070dc79"): "SystemIoProvider",
	MustParseGUID("16156bd9-fab4-4cfa-a232-89d1099058e3"): "SystemRegistryProvider",
	MustParseGUID("01853a65-418f-4f36-aefc-dc0f1d2fd235"): "SystemConfigProvider",
	MustParseGUID("3d6fa8d0-fe05-11d0-9dda-00c04fd7ba7c"): "ProcessGuid",
	MustParseGUID("3d6fa8d1-fe05-11d0-9dda-00c04fd7ba7c"): "ThreadGuid",
	MustParseGUID("3d6fa8d3-fe05-11d0-9dda-00c04fd7ba7c"): "PageFaultGuid",
	MustParseGUID("3d6fa8d4-fe05-11d0-9dda-00c04fd7ba7c"): "DiskIoGuid",
	MustParseGUID("ce1dbfb4-137e-4da6-87b0-3f59aa102cbc"): "PerfInfoGuid",
	MustParseGUID("2cb15d1d-5fc1-11d2-abe1-00a0c911f518"): "ImageLoadGuid",
	MustParseGUID("ae53722e-c863-11d2-8659-00c04fa321a1"): "RegistryGuid",
}
