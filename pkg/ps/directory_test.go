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
	"testing"

	htypes "github.com/rabbitstack/etwscan/pkg/handle/types"
	pstypes "github.com/rabbitstack/etwscan/pkg/ps/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func procs() []*pstypes.PS {
	app := &pstypes.PS{PID: 1234, Name: "app.exe"}
	app.AddHandle(htypes.Handle{Num: 0x1a4, Type: htypes.EtwConsumer})
	return []*pstypes.PS{
		{PID: 4, Name: "System"},
		{PID: 620, Name: "svchost.exe"},
		app,
		{PID: 2048, Name: "App.exe"},
		{PID: 4096, Name: "appxsvc.exe"},
	}
}

func TestDirectory(t *testing.T) {
	d := NewDirectory(procs())

	ps, err := d.Processes()
	require.NoError(t, err)
	require.Len(t, ps, 5)
	assert.Equal(t, uint32(4), ps[0].PID)
	assert.Equal(t, uint32(4096), ps[4].PID)

	hs, err := d.Handles(1234)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, uint32(1234), hs[0].Pid)

	hs, err = d.Handles(4)
	require.NoError(t, err)
	assert.Empty(t, hs)

	_, err = d.Handles(9999)
	require.Error(t, err)
	assert.Equal(t, ErrNoProcess(9999), err)
}

func TestFind(t *testing.T) {
	d := NewDirectory(procs())
	ps, err := Find(d, 620)
	require.NoError(t, err)
	assert.Equal(t, "svchost.exe", ps.Name)

	_, err = Find(d, 1)
	require.Error(t, err)
}

func TestSelect(t *testing.T) {
	d := NewDirectory(procs())

	ps, err := Select(d, "APP.EXE")
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, uint32(1234), ps[0].PID)
	assert.Equal(t, uint32(2048), ps[1].PID)

	ps, err = Select(d, "svch")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, uint32(620), ps[0].PID)

	_, err = Select(d, "notepad")
	require.Error(t, err)
}

func TestDirectoryMock(t *testing.T) {
	d := new(DirectoryMock)
	d.On("Processes").Return(procs(), nil)
	d.On("Handles", uint32(4)).Return(htypes.Handles{}, nil)

	ps, err := Find(d, 1234)
	require.NoError(t, err)
	assert.Equal(t, "app.exe", ps.Name)

	hs, err := d.Handles(4)
	require.NoError(t, err)
	assert.Empty(t, hs)
	d.AssertExpectations(t)
}
