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

package types

import (
	"fmt"

	htypes "github.com/rabbitstack/etwscan/pkg/handle/types"
)

// PS encapsulates the process state captured alongside the kernel memory.
type PS struct {
	// PID is the identifier of this process.
	PID uint32 `json:"pid" yaml:"pid"`
	// Ppid represents the parent of this process.
	Ppid uint32 `json:"ppid" yaml:"ppid"`
	// Name is the process' image name including file extension (e.g. cmd.exe)
	Name string `json:"name" yaml:"name"`
	// Exe is the full name of the process' executable (e.g. C:\Windows\system32\cmd.exe)
	Exe string `json:"exe" yaml:"exe"`
	// SessionID is the unique identifier for the current session.
	SessionID uint32 `json:"session" yaml:"session"`
	// Object is the kernel address of the process object (EPROCESS).
	Object uint64 `json:"object" yaml:"object"`
	// Handles represents the collection of handles allocated by the process.
	Handles htypes.Handles `json:"handles" yaml:"handles"`
}

// String returns a string representation of the process' state.
func (ps *PS) String() string {
	return fmt.Sprintf(`
		Pid:  %d
		Ppid: %d
		Name: %s
		Exe:  %s
		Session ID: %d
		Object: %#x
		Handles: %d
		`,
		ps.PID,
		ps.Ppid,
		ps.Name,
		ps.Exe,
		ps.SessionID,
		ps.Object,
		len(ps.Handles),
	)
}

// AddHandle adds a new handle to the process handle table.
func (ps *PS) AddHandle(handle htypes.Handle) {
	handle.Pid = ps.PID
	ps.Handles = append(ps.Handles, handle)
}

// RemoveHandle removes a handle with specified handle value from the process handle table.
func (ps *PS) RemoveHandle(num uint64) {
	for i, h := range ps.Handles {
		if h.Num == num {
			ps.Handles = append(ps.Handles[:i], ps.Handles[i+1:]...)
			break
		}
	}
}
