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
	"errors"
	"testing"

	htypes "github.com/rabbitstack/etwscan/pkg/handle/types"
	"github.com/rabbitstack/etwscan/pkg/ps"
	pstypes "github.com/rabbitstack/etwscan/pkg/ps/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processes() []*pstypes.PS {
	system := &pstypes.PS{PID: 4, Name: "System"}

	app := &pstypes.PS{PID: 1234, Name: "app.exe", Object: appProcess.Uint64()}
	app.AddHandle(htypes.Handle{Num: 0x10, Type: htypes.EtwConsumer, Object: consumerObj.Uint64()})
	app.AddHandle(htypes.Handle{Num: 0x14, Type: htypes.EtwConsumer, Object: unmapped.Uint64()})
	app.AddHandle(htypes.Handle{Num: 0x18, Type: htypes.EtwRegistration, Object: userReg.Uint64()})
	app.AddHandle(htypes.Handle{Num: 0x1c, Type: "File", Object: unmapped.Uint64()})

	svc := &pstypes.PS{PID: 800, Name: "svchost.exe"}
	svc.AddHandle(htypes.Handle{Num: 0x8, Type: htypes.EtwRegistration, Object: unmapped.Uint64()})

	return []*pstypes.PS{system, app, svc}
}

func TestConsumersForProcess(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	procs := processes()
	c := NewCorrelator(k.scanner(), ps.NewDirectory(procs))

	res, err := c.ConsumersForProcess(procs[1])
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	b := res.Items[0]
	assert.Equal(t, uint32(1234), b.PID)
	assert.Equal(t, "app.exe", b.ProcessName)
	assert.Equal(t, uint64(0x10), b.Handle)
	assert.Equal(t, consumerObj, b.Consumer.Addr)
	require.NotNil(t, b.Logger)
	assert.Equal(t, uint16(testLoggerID), b.Logger.ID)
	assert.Equal(t, "TestLogger", b.Logger.Name)
	require.Len(t, b.Guids, 1)
	assert.Equal(t, traceGUID, b.Guids[0].GUID)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, UnreadableMemory, d.Kind)
	assert.Equal(t, unmapped, d.Addr)
	assert.Contains(t, d.Element, "0x14")
}

func TestConsumersForProcessWithoutHandles(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	procs := processes()
	c := NewCorrelator(k.scanner(), ps.NewDirectory(procs))

	res, err := c.ConsumersForProcess(procs[0])
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Empty(t, res.Diagnostics)

	res, err = c.ConsumersForProcess(procs[2])
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Empty(t, res.Diagnostics)
}

func TestConsumersForProcessStaleLogger(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	// the consumer references the free logger slot
	k.consumer(ntBase+0x15000, 5, appProcess)

	p := &pstypes.PS{PID: 1234, Name: "app.exe"}
	p.AddHandle(htypes.Handle{Num: 0x20, Type: htypes.EtwConsumer, Object: (ntBase + 0x15000).Uint64()})
	c := NewCorrelator(k.scanner(), ps.NewDirectory([]*pstypes.PS{p}))

	res, err := c.ConsumersForProcess(p)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, TypeMismatchOrStaleHandle, res.Diagnostics[0].Kind)
}

func TestProvidersForProcess(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	procs := processes()
	c := NewCorrelator(k.scanner(), ps.NewDirectory(procs))

	res, err := c.ProvidersForProcess(procs[1])
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Items, 1)
	p := res.Items[0]
	assert.Equal(t, traceGUID, p.GUID)
	assert.Equal(t, uint64(0x18), p.Handle)
	assert.Equal(t, userReg, p.Registration.Addr)
	require.NotNil(t, p.Registration.Process)
	assert.Equal(t, uint32(1234), p.Registration.Process.PID)

	res, err = c.ProvidersForProcess(procs[2])
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnreadableMemory, res.Diagnostics[0].Kind)
}

func TestCorrelateAll(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	c := NewCorrelator(k.scanner(), ps.NewDirectory(processes()))

	providers, err := c.ProvidersForAll()
	require.NoError(t, err)
	require.Len(t, providers.Items, 1)
	assert.Equal(t, uint32(1234), providers.Items[0].PID)
	require.Len(t, providers.Diagnostics, 1)
	assert.Contains(t, providers.Diagnostics[0].Element, "svchost.exe")

	consumers, err := c.ConsumersForAll()
	require.NoError(t, err)
	require.Len(t, consumers.Items, 1)
	assert.Len(t, consumers.Diagnostics, 1)

	_, err = NewCorrelator(k.scanner(WithStrict(true)), ps.NewDirectory(processes())).ProvidersForAll()
	require.Error(t, err)
}

func TestCorrelateSelected(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	procs := processes()
	c := NewCorrelator(k.scanner(), ps.NewDirectory(procs))

	consumers, err := c.ConsumersFor(procs[:1])
	require.NoError(t, err)
	assert.Equal(t, 0, consumers.Len())

	providers, err := c.ProvidersFor(procs[1:2])
	require.NoError(t, err)
	require.Len(t, providers.Items, 1)
	assert.Equal(t, "app.exe", providers.Items[0].ProcessName)
	assert.False(t, providers.HasDiagnostics())
}

func TestCorrelateDirectoryFailures(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)

	gone := &pstypes.PS{PID: 99, Name: "gone.exe"}
	app := processes()[1]
	dir := new(ps.DirectoryMock)
	dir.On("Processes").Return([]*pstypes.PS{gone, app}, nil)
	dir.On("Handles", uint32(99)).Return(nil, ps.ErrNoProcess(99))
	dir.On("Handles", uint32(1234)).Return(app.Handles, nil)

	c := NewCorrelator(k.scanner(), dir)
	res, err := c.ConsumersForAll()
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Len(t, res.Diagnostics, 2)
	assert.Contains(t, res.Diagnostics[0].Element, "gone.exe")
	dir.AssertExpectations(t)

	failing := new(ps.DirectoryMock)
	failing.On("Processes").Return([]*pstypes.PS(nil), errors.New("access denied"))
	_, err = NewCorrelator(k.scanner(), failing).ProvidersForAll()
	require.Error(t, err)
}

func TestProcessRef(t *testing.T) {
	k := newKernelTarget(t)
	k.process(ntBase+0x16000, 4, "System", "")

	proc, err := k.scanner().readProcess(ntBase + 0x16000)
	require.NoError(t, err)
	assert.Equal(t, "System", proc.Name)
	assert.Equal(t, uint32(4), proc.PID)
	assert.Empty(t, proc.Path)
	assert.Equal(t, "System (4)", proc.String())

	_, err = k.scanner().readProcess(unmapped)
	require.Error(t, err)
}
