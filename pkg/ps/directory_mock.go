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
	htypes "github.com/rabbitstack/etwscan/pkg/handle/types"
	pstypes "github.com/rabbitstack/etwscan/pkg/ps/types"
	"github.com/stretchr/testify/mock"
)

// DirectoryMock is the process directory mock used in tests.
type DirectoryMock struct {
	mock.Mock
}

// Processes method
func (d *DirectoryMock) Processes() ([]*pstypes.PS, error) {
	args := d.Called()
	return args.Get(0).([]*pstypes.PS), args.Error(1)
}

// Handles method
func (d *DirectoryMock) Handles(pid uint32) (htypes.Handles, error) {
	args := d.Called(pid)
	hs, _ := args.Get(0).(htypes.Handles)
	return hs, args.Error(1)
}
