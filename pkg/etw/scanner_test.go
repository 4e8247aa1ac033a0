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
	"testing"

	"github.com/rabbitstack/etwscan/pkg/mem"
	"github.com/rabbitstack/etwscan/pkg/util/va"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addrs(entries []*GuidEntry) []va.Address {
	out := make([]va.Address, len(entries))
	for i, e := range entries {
		out[i] = e.Addr
	}
	return out
}

func TestScanGuids(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	s := k.scanner()

	var tests = []struct {
		name   string
		filter LoggerFilter
		typ    GuidType
		want   []va.Address
	}{
		{"all trace", AnyLogger, TraceGuid, []va.Address{traceEntry, staleEntry, otherEntry}},
		{"trace bound to logger 3", ForLogger(testLoggerID), TraceGuid, []va.Address{traceEntry, staleEntry}},
		{"trace bound to logger 7", ForLogger(7), TraceGuid, []va.Address{otherEntry}},
		{"trace bound to logger 12", ForLogger(12), TraceGuid, []va.Address{}},
		{"all notification", AnyLogger, NotificationGuid, []va.Address{notifEntry}},
		{"all group", AnyLogger, GroupGuid, []va.Address{groupEntry}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.ScanGuids(tt.filter, tt.typ)
			require.NoError(t, err)
			assert.Empty(t, res.Diagnostics)
			assert.Equal(t, tt.want, addrs(res.Items))
			for _, e := range res.Items {
				assert.Equal(t, tt.typ, e.Type)
			}
		})
	}

	res, err := s.ScanGuids(AnyLogger, TraceGuid)
	require.NoError(t, err)
	e := res.Items[0]
	assert.Equal(t, traceGUID, e.GUID)
	assert.Equal(t, "Microsoft-Windows-Kernel-Process", e.GUID.Name())
	assert.True(t, e.LastEnable.Enabled)
	assert.Equal(t, uint16(testLoggerID), e.LastEnable.LoggerID)
	assert.Len(t, e.EnableInfo, 8)
	assert.Equal(t, traceEntry+0x38, e.RegListHead)
	assert.True(t, e.EnabledFor(testLoggerID))

	_, err = s.ScanGuids(AnyLogger, GuidType(3))
	require.Error(t, err)
}

func TestScanGuidsFilterIsSubsequence(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	s := k.scanner()

	for _, typ := range GuidTypes {
		all, err := s.ScanGuids(AnyLogger, typ)
		require.NoError(t, err)
		for id := uint16(0); id < maxLoggers; id++ {
			res, err := s.ScanGuids(ForLogger(id), typ)
			require.NoError(t, err)

			seen := make(map[va.Address]bool)
			j := 0
			for _, e := range res.Items {
				assert.False(t, seen[e.Addr], "entry %s yielded twice for logger %d", e.Addr.Hex(), id)
				seen[e.Addr] = true
				assert.True(t, e.BoundTo(id))
				for j < len(all.Items) && all.Items[j].Addr != e.Addr {
					j++
				}
				assert.Less(t, j, len(all.Items), "entry %s is not in the unfiltered scan", e.Addr.Hex())
			}
		}
	}
}

func TestScanGuidsCorruptedBucket(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	k.ptr(bucketHead(20, 0), unmapped)

	res, err := k.scanner().ScanGuids(AnyLogger, TraceGuid)
	require.NoError(t, err)
	assert.Equal(t, []va.Address{traceEntry, staleEntry, otherEntry}, addrs(res.Items))
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnreadableMemory, res.Diagnostics[0].Kind)
	assert.Equal(t, bucketHead(20, 0), res.Diagnostics[0].Addr)

	_, err = k.scanner(WithStrict(true)).ScanGuids(AnyLogger, TraceGuid)
	require.Error(t, err)
	assert.Equal(t, UnreadableMemory, KindOf(err))
}

func TestScanGuidsUnreadableHashTable(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	// the hash table of this silo state crosses the end of the image
	k.ptr(siloGlobals+0x368, ntBase+imageSize-0x400)

	_, err := k.scanner().ScanGuids(AnyLogger, TraceGuid)
	require.Error(t, err)
	assert.True(t, mem.IsUnreadable(err))

	_, err = k.scanner().RegisteredGuids(false)
	require.Error(t, err)
}

func TestScanGuidsNullSiloState(t *testing.T) {
	k := newKernelTarget(t)
	k.ptr(siloGlobals+0x368, 0)

	_, err := k.scanner().ScanGuids(AnyLogger, TraceGuid)
	require.Error(t, err)
	_, err = k.scanner().ScanLoggers()
	require.Error(t, err)
}

func TestRegisteredGuids(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	s := k.scanner(WithCallbackResolver(resolverFunc(func(addr va.Address) string {
		if addr == callback {
			return "nt!EtwpTraceCallback+0x40"
		}
		return addr.Hex()
	})))

	res, err := s.RegisteredGuids(false)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []va.Address{traceEntry, otherEntry, notifEntry, groupEntry}, addrs(res.Items))

	e := res.Items[0]
	require.Len(t, e.Registrations, 2)

	user := e.Registrations[0]
	assert.Equal(t, userReg, user.Addr)
	assert.Equal(t, traceGUID, user.GUID)
	assert.True(t, user.IsUserRegistration)
	assert.False(t, user.IsKernelRegistration)
	require.NotNil(t, user.Process)
	assert.Equal(t, uint32(1234), user.Process.PID)
	assert.Equal(t, "app.exe", user.Process.Name)
	assert.Equal(t, `\Device\HarddiskVolume3\apps\app.exe`, user.Process.Path)
	assert.Empty(t, user.CallbackSymbol)

	kern := e.Registrations[1]
	assert.Equal(t, kernelReg, kern.Addr)
	assert.True(t, kern.IsKernelRegistration)
	assert.Nil(t, kern.Process)
	assert.Equal(t, callback, kern.Callback)
	assert.Equal(t, "nt!EtwpTraceCallback+0x40", kern.CallbackSymbol)

	group := res.Items[3]
	require.Len(t, group.Registrations, 1)
	assert.Equal(t, groupReg, group.Registrations[0].Addr)
	assert.Equal(t, groupGUID, group.Registrations[0].GUID)

	res, err = s.RegisteredGuids(true, TraceGuid)
	require.NoError(t, err)
	assert.Equal(t, []va.Address{traceEntry, staleEntry, otherEntry}, addrs(res.Items))
	assert.Empty(t, res.Items[1].Registrations)
}

func TestRegisteredGuidsStaleProcess(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	k.regEntry(userReg, traceEntry, unmapped, 0, 0x2)

	res, err := k.scanner().RegisteredGuids(false, TraceGuid)
	require.NoError(t, err)
	require.Len(t, res.Items[0].Registrations, 2)
	assert.Nil(t, res.Items[0].Registrations[0].Process)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnreadableMemory, res.Diagnostics[0].Kind)
	assert.Equal(t, unmapped, res.Diagnostics[0].Addr)
}

func TestScanLoggers(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)

	res, err := k.scanner().ScanLoggers()
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Items, 1)

	l := res.Items[0]
	assert.Equal(t, uint16(testLoggerID), l.ID)
	assert.Equal(t, loggerCtx, l.Addr)
	assert.Equal(t, "TestLogger", l.Name)
	assert.Equal(t, traceGUID, l.InstanceGUID)
	assert.Equal(t, uint32(0x10000), l.BufferSize)
	assert.True(t, l.IsSystemLogger())
	assert.Equal(t, "REAL_TIME_MODE|SYSTEM_LOGGER_MODE", l.Mode.String())

	require.Len(t, l.Consumers, 1)
	c := l.Consumers[0]
	assert.Equal(t, consumerObj, c.Addr)
	assert.Equal(t, uint16(testLoggerID), c.LoggerID)
	assert.Equal(t, uint32(2), c.BuffersLost)
	require.NotNil(t, c.Process)
	assert.Equal(t, "app.exe", c.Process.Name)
	assert.Equal(t, uint32(1234), c.Process.PID)

	require.Len(t, l.EnabledGuids, 1)
	assert.Equal(t, traceGUID, l.EnabledGuids[0].GUID)
	for _, e := range l.EnabledGuids {
		assert.True(t, e.EnabledFor(l.ID))
	}
}

func TestScanLoggersSkipsFreeSlots(t *testing.T) {
	k := newKernelTarget(t)

	res, err := k.scanner().ScanLoggers()
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Empty(t, res.Diagnostics)

	populate(k)
	k.ptr(slotAddr(testLoggerID), 1)
	res, err = k.scanner().ScanLoggers()
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestScanLoggersUniqueIDs(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	// slot 1 precedes the resident logger but its context claims id 3
	k.logger(1, ntBase+0x13000, testLoggerID, "Misplaced", 0)
	// slot 5 holds the context that claims the id of the logger in slot 3
	k.logger(5, ntBase+0x13800, testLoggerID, "Impostor", 0)
	// slot 6 holds the context with the id beyond the table size
	k.logger(6, ntBase+0x14000, 40, "OutOfRange", 0)

	res, err := k.scanner().ScanLoggers()
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "TestLogger", res.Items[0].Name)
	require.Len(t, res.Diagnostics, 3)
	for _, d := range res.Diagnostics {
		assert.Equal(t, TypeMismatchOrStaleHandle, d.Kind)
		assert.ErrorIs(t, d, ErrStaleObject)
	}
}

func TestScanLoggersUnreadableContext(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	k.ptr(slotAddr(4), unmapped)

	res, err := k.scanner().ScanLoggers()
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnreadableMemory, res.Diagnostics[0].Kind)
	assert.Equal(t, unmapped, res.Diagnostics[0].Addr)

	_, err = k.scanner(WithStrict(true)).ScanLoggers()
	require.Error(t, err)
}

func TestLookupLogger(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	s := k.scanner()

	l, ok, err := s.LookupLogger(testLoggerID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "TestLogger", l.Name)
	assert.Empty(t, l.Consumers)

	for _, id := range []uint16{0, 1, maxLoggers, 1000} {
		_, ok, err = s.LookupLogger(id)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	k.logger(5, ntBase+0x13000, 6, "Misplaced", 0)
	_, ok, err = s.LookupLogger(5)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, TypeMismatchOrStaleHandle, KindOf(err))
}

func TestEnabledGuids(t *testing.T) {
	k := newKernelTarget(t)
	populate(k)
	s := k.scanner()

	res, err := s.EnabledGuids(testLoggerID)
	require.NoError(t, err)
	assert.Equal(t, []va.Address{traceEntry}, addrs(res.Items))

	res, err = s.EnabledGuids(7)
	require.NoError(t, err)
	assert.Equal(t, []va.Address{otherEntry}, addrs(res.Items))
}
