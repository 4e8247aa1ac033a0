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
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modntdll = windows.NewLazySystemDLL("ntdll.dll")
	modpsapi = windows.NewLazySystemDLL("psapi.dll")

	procNtQueryObject            = modntdll.NewProc("NtQueryObject")
	procEnumDeviceDrivers        = modpsapi.NewProc("EnumDeviceDrivers")
	procGetDeviceDriverFileNameW = modpsapi.NewProc("GetDeviceDriverFileNameW")
)

// NtQueryObject retrieves various kinds of object information.
func NtQueryObject(handle windows.Handle, objectInfoClass int32, objInfo unsafe.Pointer, objInfoLen uint32, retLen *uint32) (ntstatus error) {
	r0, _, _ := syscall.SyscallN(procNtQueryObject.Addr(), uintptr(handle), uintptr(objectInfoClass), uintptr(objInfo), uintptr(objInfoLen), uintptr(unsafe.Pointer(retLen)))
	if r0 != 0 {
		ntstatus = windows.NTStatus(r0)
	}
	return
}

// EnumDeviceDrivers retrieves the load address for each device driver in the system.
func EnumDeviceDrivers(imageBase uintptr, size uint32, needed *uint32) (err error) {
	r1, _, e1 := syscall.SyscallN(procEnumDeviceDrivers.Addr(), imageBase, uintptr(size), uintptr(unsafe.Pointer(needed)))
	if r1 == 0 {
		err = e1
	}
	return
}

// GetDeviceDriverFileName retrieves the path for the specified device driver.
func GetDeviceDriverFileName(imageBase uintptr, filename *uint16, size uint32) (n uint32) {
	r0, _, _ := syscall.SyscallN(procGetDeviceDriverFileNameW.Addr(), imageBase, uintptr(unsafe.Pointer(filename)), uintptr(size))
	n = uint32(r0)
	return
}
