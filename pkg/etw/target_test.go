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
	"encoding/binary"
	"testing"

	"github.com/rabbitstack/etwscan/pkg/mem"
	"github.com/rabbitstack/etwscan/pkg/profile"
	"github.com/rabbitstack/etwscan/pkg/util/va"
	"github.com/stretchr/testify/require"
)

// layout of the synthetic kernel image
const (
	ntBase       = va.Address(0xfffff80000000000)
	siloGlobals  = ntBase + 0x1000
	siloState    = ntBase + 0x2000
	loggerTable  = ntBase + 0x4000
	loggerCtx    = ntBase + 0x5000
	consumerObj  = ntBase + 0x6000
	appProcess   = ntBase + 0x8000
	traceEntry   = ntBase + 0xa000
	userReg      = ntBase + 0xb000
	staleEntry   = ntBase + 0xc000
	otherEntry   = ntBase + 0xd000
	notifEntry   = ntBase + 0xe000
	groupEntry   = ntBase + 0xf000
	groupReg     = ntBase + 0x10000
	kernelReg    = ntBase + 0x11000
	callback     = ntBase + 0x12340
	imageSize    = 0x40000
	maxLoggers   = 8
	testLoggerID = 3
	unmapped     = va.Address(0xffffa00000000000)
)

var (
	traceGUID = MustParseGUID("22fb2cd6-0e7b-422b-a0c7-2fad1fd0e716")
	staleGUID = MustParseGUID("{7dd42a49-5329-4832-8dfd-43d979153a88}")
	otherGUID = MustParseGUID("edd08927-9cc4-4e65-b970-c2560fb5c289")
	notifGUID = MustParseGUID("b675ec37-bdb6-4648-bc92-f3fdc74d3ca2")
	groupGUID = MustParseGUID("c7bde69a-e1e0-4177-b6ef-283ad1525271")
)

type kernelTarget struct {
	t    *testing.T
	img  *mem.Image
	strs va.Address
}

func bucketHead(bucket, typ int) va.Address {
	return siloState + 0x1b8 + va.Address(bucket*0x38+typ*0x10)
}

func slotAddr(i int) va.Address { return loggerTable + va.Address(i*8) }

// newKernelTarget builds the image with the empty GUID hash table and the logger table
// where all slots are free.
func newKernelTarget(t *testing.T) *kernelTarget {
	img := mem.NewImage()
	img.Map(ntBase, make([]byte, imageSize))
	k := &kernelTarget{t: t, img: img, strs: ntBase + 0x30000}

	k.ptr(siloGlobals+0x368, siloState)
	k.u32(siloState+0x10, maxLoggers)
	k.ptr(siloState+0x1b0, loggerTable)
	for i := 0; i < 64; i++ {
		for typ := 0; typ < 3; typ++ {
			h := bucketHead(i, typ)
			k.ptr(h, h)
			k.ptr(h+8, h)
		}
	}
	for i := 0; i < maxLoggers; i++ {
		k.ptr(slotAddr(i), 1)
	}
	return k
}

func (k *kernelTarget) write(addr va.Address, b []byte) {
	require.NoError(k.t, k.img.WriteMemory(addr, b))
}

func (k *kernelTarget) u16(addr va.Address, v uint16) {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	k.write(addr, b)
}

func (k *kernelTarget) u32(addr va.Address, v uint32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	k.write(addr, b)
}

func (k *kernelTarget) ptr(addr, v va.Address) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v.Uint64())
	k.write(addr, b)
}

func (k *kernelTarget) ustr(addr va.Address, s string) {
	b := make([]byte, 0, len(s)*2)
	for _, c := range s {
		b = append(b, byte(c), 0)
	}
	buf := k.strs
	k.strs = k.strs.Inc(uint64(len(b) + 16))
	k.write(buf, b)
	k.u16(addr, uint16(len(b)))
	k.u16(addr+2, uint16(len(b)))
	k.ptr(addr+8, buf)
}

// link chains the entries into the circular list rooted at the head.
// The off is the offset of the list link inside the entry structure.
func (k *kernelTarget) link(head va.Address, off uint64, entries ...va.Address) {
	prev := head
	for _, e := range entries {
		l := e.Inc(off)
		k.ptr(prev, l)
		k.ptr(l+8, prev)
		prev = l
	}
	k.ptr(prev, head)
	k.ptr(head+8, prev)
}

func (k *kernelTarget) process(addr va.Address, pid uint32, name, path string) {
	k.ptr(addr+0x440, va.Address(pid))
	k.write(addr+0x5a8, []byte(name))
	if path != "" {
		info := addr + 0x1000
		k.ptr(addr+0x5c0, info)
		k.ustr(info, path)
	}
}

func (k *kernelTarget) logger(slot int, addr va.Address, id uint32, name string, mode uint32) {
	k.ptr(slotAddr(slot), addr)
	k.u32(addr, id)
	k.u32(addr+0x4, 0x10000)
	k.u32(addr+0xc, mode)
	k.ustr(addr+0x80, name)
	k.write(addr+0x120, traceGUID[:])
	head := addr + 0x160
	k.link(head, 0)
}

func (k *kernelTarget) consumer(addr va.Address, loggerID uint16, proc va.Address) {
	k.ptr(addr+0x18, proc)
	k.u32(addr+0x50, 2)
	k.u16(addr+0x58, loggerID)
}

func (k *kernelTarget) guidEntry(addr va.Address, guid GUID, last *LastEnable, infos ...EnableInfo) {
	k.write(addr+0x28, guid[:])
	k.link(addr+0x38, 0)
	if last != nil {
		k.u16(addr+0x58, last.LoggerID)
		if last.Enabled {
			k.write(addr+0x5b, []byte{1})
		}
	}
	for i, info := range infos {
		ei := addr + 0x80 + va.Address(i*0x20)
		if info.IsEnabled {
			k.u32(ei, 1)
		}
		k.u16(ei+6, info.LoggerID)
	}
}

func (k *kernelTarget) regEntry(addr, guidEntry, proc, cb va.Address, flags uint16) {
	k.ptr(addr+0x20, guidEntry)
	k.ptr(addr+0x50, proc)
	k.ptr(addr+0x58, cb)
	k.u16(addr+0x62, flags)
}

func (k *kernelTarget) provider() mem.Provider {
	r, err := profile.NewRegistry()
	require.NoError(k.t, err)
	p, ok := r.Find("windows-10-19041-x64")
	require.True(k.t, ok)
	return mem.NewProvider(k.img, p,
		mem.WithModules(map[string]va.Address{"nt": ntBase}),
		mem.WithSymbols(map[string]va.Address{"nt!" + HostSiloGlobals: siloGlobals}),
	)
}

func (k *kernelTarget) scanner(opts ...Option) *Scanner {
	return NewScanner(k.provider(), opts...)
}

type resolverFunc func(va.Address) string

func (f resolverFunc) Resolve(addr va.Address) string { return f(addr) }

// populate lays out the ETW state shared by most tests:
//
//   - logger 3 "TestLogger" with one realtime consumer owned by app.exe (1234)
//   - trace entry enabled for logger 3 with one user and one kernel registration
//   - trace entry that retains logger 3 in its enable info but is disabled
//   - trace entry enabled twice for logger 7
//   - one notification and one group entry
//   - null logger slot 0 and free slots elsewhere
func populate(k *kernelTarget) {
	k.process(appProcess, 1234, "app.exe", `\Device\HarddiskVolume3\apps\app.exe`)

	k.ptr(slotAddr(0), 0)
	k.logger(testLoggerID, loggerCtx, testLoggerID, "TestLogger", uint32(SystemLoggerMode|0x100))
	k.consumer(consumerObj, testLoggerID, appProcess)
	k.link(loggerCtx+0x160, 0, consumerObj)

	k.guidEntry(traceEntry, traceGUID, &LastEnable{Enabled: true, LoggerID: testLoggerID}, EnableInfo{LoggerID: testLoggerID, IsEnabled: true})
	k.guidEntry(staleEntry, staleGUID, &LastEnable{LoggerID: testLoggerID}, EnableInfo{LoggerID: testLoggerID})
	k.guidEntry(otherEntry, otherGUID, &LastEnable{Enabled: true, LoggerID: 7}, EnableInfo{LoggerID: 7, IsEnabled: true}, EnableInfo{LoggerID: 7, IsEnabled: true})
	k.link(bucketHead(5, 0), 0, traceEntry, staleEntry)
	k.link(bucketHead(9, 0), 0, otherEntry)

	k.regEntry(userReg, traceEntry, appProcess, 0, 0x2)
	k.regEntry(kernelReg, traceEntry, 0, callback, 0x1)
	k.link(traceEntry+0x38, 0, userReg, kernelReg)

	k.guidEntry(notifEntry, notifGUID, &LastEnable{Enabled: true})
	k.link(bucketHead(2, 1), 0, notifEntry)

	k.guidEntry(groupEntry, groupGUID, &LastEnable{Enabled: true, LoggerID: testLoggerID})
	k.regEntry(groupReg, groupEntry, 0, 0, 0)
	k.link(groupEntry+0x38, 0x10, groupReg)
	k.link(bucketHead(2, 2), 0, groupEntry)
}
