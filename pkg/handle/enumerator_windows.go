//go:build windows

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

package handle

import (
	"expvar"
	"os"
	"unsafe"

	htypes "github.com/rabbitstack/etwscan/pkg/handle/types"
	"github.com/rabbitstack/etwscan/pkg/sys"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

var (
	globalBufferSize uint32 = 4096

	handleTypeQueryFailures = expvar.NewInt("handle.type.query.failures")
	handlesEnumerated       = expvar.NewInt("handle.enumerated.count")
)

// maxProcHandles determines the maximum number of system-wide handles the enumerator processes
const maxProcHandles = 1 << 22

type enumerator struct {
	// types caches object type names by the object type index
	types map[uint16]string
}

// NewEnumerator creates the enumerator that walks the system-wide handle table.
func NewEnumerator() Enumerator {
	if err := sys.SetDebugPrivilege(); err != nil {
		log.Warnf("handles of protected processes won't be visible: %v", err)
	}
	return &enumerator{types: make(map[uint16]string)}
}

func (e *enumerator) Enumerate(all bool) (map[uint32]htypes.Handles, error) {
	size := globalBufferSize
	buf := make([]byte, size)
	for {
		err := windows.NtQuerySystemInformation(windows.SystemExtendedHandleInformation, unsafe.Pointer(&buf[0]), size, nil)
		if err == windows.STATUS_INFO_LENGTH_MISMATCH || err == windows.STATUS_BUFFER_TOO_SMALL || err == windows.STATUS_BUFFER_OVERFLOW {
			size *= 2
			buf = make([]byte, size)
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	sysHandleInfo := (*sys.SystemHandleInformationEx)(unsafe.Pointer(&buf[0]))
	count := int(sysHandleInfo.NumberOfHandles)
	if count > maxProcHandles {
		log.Warnf("system handle table size exceeded. Shrinking from %d to %d handles", count, maxProcHandles)
		count = maxProcHandles
	}
	sysHandles := unsafe.Slice(&sysHandleInfo.Handles[0], count)

	handles := make(map[uint32]htypes.Handles)
	for _, sysHandle := range sysHandles {
		pid := uint32(sysHandle.ProcessID)
		if pid == uint32(os.Getpid()) {
			continue
		}
		typ := e.typeName(sysHandle.Handle, sysHandle.ObjectTypeIndex, pid)
		if typ == "" || (!all && KindOf(typ) == Other) {
			continue
		}
		handles[pid] = append(handles[pid], htypes.Handle{
			Num:    uint64(sysHandle.Handle),
			Object: sysHandle.Object,
			Type:   typ,
			Pid:    pid,
		})
		handlesEnumerated.Add(1)
	}
	return handles, nil
}

// typeName resolves the object type name by duplicating the first handle
// seen for each object type index.
func (e *enumerator) typeName(raw windows.Handle, index uint16, pid uint32) string {
	if typ, ok := e.types[index]; ok {
		return typ
	}
	typ, err := queryType(raw, pid)
	if err != nil {
		handleTypeQueryFailures.Add(1)
		log.Debug(err)
		return ""
	}
	e.types[index] = typ
	return typ
}
