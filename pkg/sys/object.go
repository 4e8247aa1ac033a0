//go:build windows

/*
 * Copyright 2021-2022 by Nedim Sabic Sabic
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

package sys

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// ObjectTypeInformationClass is the NtQueryObject class that yields ObjectTypeInformation.
const ObjectTypeInformationClass = 2

// GenericMapping maps generic access rights to object-specific rights.
type GenericMapping struct {
	GenericRead    uint32
	GenericWrite   uint32
	GenericExecute uint32
	GenericAll     uint32
}

// ObjectTypeInformation mirrors the OBJECT_TYPE_INFORMATION layout.
type ObjectTypeInformation struct {
	TypeName                   windows.NTUnicodeString
	TotalNumberOfObjects       uint32
	TotalNumberOfHandles       uint32
	TotalPagedPoolUsage        uint32
	TotalNonPagedPoolUsage     uint32
	TotalNamePoolUsage         uint32
	TotalHandleTableUsage      uint32
	HighWaterNumberOfObjects   uint32
	HighWaterNumberOfHandles   uint32
	HighWaterPagedPoolUsage    uint32
	HighWaterNonPagedPoolUsage uint32
	HighWaterNamePoolUsage     uint32
	HighWaterHandleTableUsage  uint32
	InvalidAttributes          uint32
	GenericMapping             GenericMapping
	ValidAccessMask            uint32
	SecurityRequired           bool
	MaintainHandleCount        bool
	TypeIndex                  uint8
	ReservedByte               int8
	PoolType                   uint32
	DefaultPagedPoolCharge     uint32
	DefaultNonPagedPoolCharge  uint32
}

func isShortBuffer(err error) bool {
	return err == windows.STATUS_INFO_LENGTH_MISMATCH || err == windows.STATUS_BUFFER_TOO_SMALL || err == windows.STATUS_BUFFER_OVERFLOW
}

// QueryObject queries the object information of the given class. The
// buffer grows to the size reported by the kernel, which includes the
// trailing name strings.
func QueryObject[C any](obj windows.Handle, class int32) (*C, error) {
	var c C
	size := uint32(unsafe.Sizeof(c))
	for attempt := 0; attempt < 2; attempt++ {
		buf := make([]byte, size)
		err := NtQueryObject(obj, class, unsafe.Pointer(&buf[0]), size, &size)
		switch {
		case err == nil:
			return (*C)(unsafe.Pointer(&buf[0])), nil
		case isShortBuffer(err) && size > uint32(len(buf)):
			continue
		default:
			return nil, err
		}
	}
	return nil, windows.STATUS_BUFFER_TOO_SMALL
}
