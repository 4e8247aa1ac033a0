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

package sys

import (
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// DevSize specifies the initial size used to allocate the driver base addresses
const DevSize = 1024

// Driver contains the metadata of the kernel module loaded in the system.
type Driver struct {
	Filename string
	Addr     uintptr
}

// String returns the driver string representation.
func (d Driver) String() string {
	return fmt.Sprintf("File: %s, Base: %#x", d.Filename, d.Addr)
}

// ModuleName returns the short module name used in symbol references. All
// kernel image flavors are referred to as nt.
func (d Driver) ModuleName() string {
	name := strings.ToLower(filepath.Base(d.Filename))
	if strings.HasPrefix(name, "ntoskrnl") || strings.HasPrefix(name, "ntkrnl") {
		return "nt"
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// EnumDevices returns metadata about device drivers encountered in the
// system. The first driver is always the kernel image.
func EnumDevices() ([]Driver, error) {
	needed := uint32(0)
	addrs := make([]uintptr, DevSize)
	err := EnumDeviceDrivers(uintptr(unsafe.Pointer(&addrs[0])), DevSize*uint32(unsafe.Sizeof(addrs[0])), &needed)
	if err != nil {
		return nil, err
	}
	n := needed / uint32(unsafe.Sizeof(addrs[0]))
	// base image size greater than initial allocation
	if n > uint32(len(addrs)) {
		addrs = make([]uintptr, n)
		err := EnumDeviceDrivers(uintptr(unsafe.Pointer(&addrs[0])), needed, &needed)
		if err != nil {
			return nil, err
		}
	}
	addrs = addrs[:n]
	drivers := make([]Driver, 0, len(addrs))
	for _, addr := range addrs {
		filename := make([]uint16, windows.MAX_PATH)
		if GetDeviceDriverFileName(addr, &filename[0], windows.MAX_PATH) == 0 {
			continue
		}
		drivers = append(drivers, Driver{Addr: addr, Filename: windows.UTF16ToString(filename)})
	}
	return drivers, nil
}
