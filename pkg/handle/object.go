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
	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/sys"
	"golang.org/x/sys/windows"
)

// queryType duplicates the handle owned by the process into this process and
// asks the object manager for the object type name, e.g. EtwRegistration.
func queryType(raw windows.Handle, pid uint32) (string, error) {
	owner, err := windows.OpenProcess(windows.PROCESS_DUP_HANDLE, false, pid)
	if err != nil {
		return "", errors.Wrapf(err, "couldn't open process %d", pid)
	}
	//nolint:errcheck
	defer windows.CloseHandle(owner)

	var dup windows.Handle
	if err := windows.DuplicateHandle(owner, raw, windows.CurrentProcess(), &dup, 0, false, 0); err != nil {
		return "", errors.Wrapf(err, "couldn't duplicate handle %#x of process %d", raw, pid)
	}
	//nolint:errcheck
	defer windows.CloseHandle(dup)

	info, err := sys.QueryObject[sys.ObjectTypeInformation](dup, sys.ObjectTypeInformationClass)
	if err != nil {
		return "", errors.Wrapf(err, "couldn't query type of handle %#x", raw)
	}
	if info.TypeName.Length == 0 {
		return "", errors.Errorf("handle %#x has an empty type name", raw)
	}
	return info.TypeName.String(), nil
}
