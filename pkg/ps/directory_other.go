//go:build !windows

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
	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/handle"
)

// NewLiveDirectory builds the process directory from the processes running in
// the local system. Only the handle enumerator errors are surfaced on
// platforms other than Windows.
func NewLiveDirectory(enum handle.Enumerator, all bool) (Directory, error) {
	if _, err := enum.Enumerate(all); err != nil {
		return nil, errors.Wrap(err, "couldn't enumerate system handles")
	}
	return nil, errors.New("live process directory is only supported on Windows")
}
