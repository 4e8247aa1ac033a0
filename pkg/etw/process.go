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
	"strings"

	"github.com/rabbitstack/etwscan/pkg/util/va"
)

// readProcess reads the identity of the process from its executive process object.
// The full image path is optional since the audit information may be paged out.
func (s *Scanner) readProcess(addr va.Address) (*ProcessRef, error) {
	obj, err := s.mem.TypedObjectAt(addr, kernel, "_EPROCESS")
	if err != nil {
		return nil, err
	}
	pid, err := obj.ReadUint("UniqueProcessId")
	if err != nil {
		return nil, err
	}
	name, err := obj.ReadCString("ImageFileName")
	if err != nil {
		return nil, err
	}
	proc := &ProcessRef{Addr: addr, PID: uint32(pid), Name: name}
	if path, err := obj.ReadUnicodeString("SeAuditProcessCreationInfo.ImageFileName.Name"); err == nil && path != "" {
		proc.Path = path
		proc.Name = basename(path)
	}
	return proc, nil
}

func basename(path string) string {
	if i := strings.LastIndexByte(path, '\\'); i >= 0 {
		return path[i+1:]
	}
	return path
}
