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

package ps

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/handle"
	pstypes "github.com/rabbitstack/etwscan/pkg/ps/types"
	"golang.org/x/sys/windows"
)

// NewLiveDirectory builds the process directory from the processes running in
// the local system. Process handles are collected through the handle enumerator.
func NewLiveDirectory(enum handle.Enumerator, all bool) (Directory, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create process snapshot")
	}
	//nolint:errcheck
	defer windows.CloseHandle(snap)

	handles, err := enum.Enumerate(all)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't enumerate system handles")
	}

	procs := make([]*pstypes.PS, 0)
	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	for err = windows.Process32First(snap, &pe); err == nil; err = windows.Process32Next(snap, &pe) {
		ps := &pstypes.PS{
			PID:  pe.ProcessID,
			Ppid: pe.ParentProcessID,
			Name: windows.UTF16ToString(pe.ExeFile[:]),
		}
		var sessionID uint32
		if windows.ProcessIdToSessionId(ps.PID, &sessionID) == nil {
			ps.SessionID = sessionID
		}
		ps.Exe = queryImageName(ps.PID)
		for _, h := range handles[ps.PID] {
			ps.AddHandle(h)
		}
		procs = append(procs, ps)
	}

	return NewDirectory(procs), nil
}

func queryImageName(pid uint32) string {
	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	//nolint:errcheck
	defer windows.CloseHandle(proc)
	var size uint32 = windows.MAX_PATH
	n := make([]uint16, size)
	if err := windows.QueryFullProcessImageName(proc, 0, &n[0], &size); err != nil {
		return ""
	}
	return windows.UTF16ToString(n[:size])
}
