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
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// SeDebugPrivilege grants access to the handle tables of processes owned by other users.
const SeDebugPrivilege = "SeDebugPrivilege"

// EnablePrivilege enables the named privilege in the token. The token must be
// opened with TOKEN_ADJUST_PRIVILEGES access.
func EnablePrivilege(token windows.Token, name string) error {
	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, windows.StringToUTF16Ptr(name), &luid); err != nil {
		return errors.Wrapf(err, "couldn't look up %s", name)
	}
	privs := windows.Tokenprivileges{
		PrivilegeCount: 1,
		Privileges: [1]windows.LUIDAndAttributes{
			{Luid: luid, Attributes: windows.SE_PRIVILEGE_ENABLED},
		},
	}
	if err := windows.AdjustTokenPrivileges(token, false, &privs, 0, nil, nil); err != nil {
		return errors.Wrapf(err, "couldn't enable %s", name)
	}
	return nil
}

// SetDebugPrivilege enables SeDebugPrivilege in the token of the current process.
func SetDebugPrivilege() error {
	var token windows.Token
	err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token)
	if err != nil {
		return errors.Wrap(err, "couldn't open process token")
	}
	defer token.Close()
	return EnablePrivilege(token, SeDebugPrivilege)
}
