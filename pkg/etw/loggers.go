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
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/mem"
	"github.com/rabbitstack/etwscan/pkg/util/va"
	log "github.com/sirupsen/logrus"
)

// maxLoggerSlots bounds the logger table size since logger ids are 16-bit wide.
const maxLoggerSlots = 1 << 16

// loggerSlot is the raw value stored in the logger context table.
type loggerSlot va.Address

// freeSlot marks the logger table slot that holds no logger context.
const freeSlot loggerSlot = 1

// resident returns the address of the logger context if the slot is occupied.
func (s loggerSlot) resident() (va.Address, bool) {
	if s == freeSlot || s == 0 {
		return 0, false
	}
	return va.Address(s), true
}

// loggerTable resolves the logger context table along with the number of slots.
func (s *Scanner) loggerTable() (*mem.Object, int, error) {
	state, err := s.siloState()
	if err != nil {
		return nil, 0, err
	}
	n, err := state.ReadUint("MaxLoggers")
	if err != nil {
		return nil, 0, errors.Wrap(err, "unable to read the logger table size")
	}
	if n > maxLoggerSlots {
		return nil, 0, fmt.Errorf("implausible logger table size %d", n)
	}
	table, err := state.Field("EtwpLoggerContext")
	if err != nil {
		return nil, 0, err
	}
	ptr, err := table.Pointer()
	if err != nil {
		return nil, 0, errors.Wrap(err, "unable to read the logger table")
	}
	if ptr.IsZero() {
		return nil, 0, errors.Wrap(mem.ErrNullPointer, "logger table")
	}
	return table, int(n), nil
}

func (s *Scanner) slot(table *mem.Object, i int) (loggerSlot, error) {
	e, err := table.Index(i)
	if err != nil {
		return 0, err
	}
	raw, err := e.Pointer()
	if err != nil {
		return 0, err
	}
	return loggerSlot(raw), nil
}

// ScanLoggers enumerates the logger contexts occupying the logger table. Each
// logger carries its realtime consumers and the trace GUIDs it currently enables.
func (s *Scanner) ScanLoggers() (*Result[*LoggerContext], error) {
	table, n, err := s.loggerTable()
	if err != nil {
		return nil, err
	}
	res := newResult[*LoggerContext]()
	ids := bitset.New(uint(n))
	for i := 0; i < n; i++ {
		slot, err := s.slot(table, i)
		if err != nil {
			if err := s.fail(res, fmt.Sprintf("logger slot %d", i), table.Address(), err); err != nil {
				return nil, err
			}
			continue
		}
		addr, ok := slot.resident()
		if !ok {
			log.Tracef("logger slot %d is empty: %s", i, InvalidSlot)
			continue
		}
		logger, err := s.readLogger(addr)
		if err != nil {
			if err := s.fail(res, fmt.Sprintf("logger slot %d", i), addr, err); err != nil {
				return nil, err
			}
			continue
		}
		if int(logger.ID) != i || ids.Test(uint(logger.ID)) {
			err := errors.Wrapf(ErrStaleObject, "logger slot %d holds logger %d", i, logger.ID)
			if err := s.fail(res, fmt.Sprintf("logger slot %d", i), addr, err); err != nil {
				return nil, err
			}
			continue
		}
		ids.Set(uint(logger.ID))

		consumers, err := s.Consumers(logger)
		if err != nil {
			if err := s.fail(res, "consumers of "+logger.String(), addr, err); err != nil {
				return nil, err
			}
		} else {
			logger.Consumers = consumers.Items
			res.merge(consumers.Diagnostics)
		}

		guids, err := s.EnabledGuids(logger.ID)
		if err != nil {
			return nil, err
		}
		logger.EnabledGuids = guids.Items
		res.merge(guids.Diagnostics)

		res.add(logger)
	}
	return res, nil
}

// LookupLogger returns the logger context occupying the slot of the given logger id.
// The logger consumers and enabled GUIDs are not collected.
func (s *Scanner) LookupLogger(id uint16) (*LoggerContext, bool, error) {
	table, n, err := s.loggerTable()
	if err != nil {
		return nil, false, err
	}
	if int(id) >= n {
		return nil, false, nil
	}
	slot, err := s.slot(table, int(id))
	if err != nil {
		return nil, false, err
	}
	addr, ok := slot.resident()
	if !ok {
		return nil, false, nil
	}
	logger, err := s.readLogger(addr)
	if err != nil {
		return nil, false, err
	}
	if logger.ID != id {
		return nil, false, errors.Wrapf(ErrStaleObject, "logger slot %d holds logger %d", id, logger.ID)
	}
	return logger, true, nil
}

// Consumers enumerates the realtime consumers attached to the logger.
func (s *Scanner) Consumers(logger *LoggerContext) (*Result[*Consumer], error) {
	obj, err := s.mem.TypedObjectAt(logger.Addr, kernel, "_WMI_LOGGER_CONTEXT")
	if err != nil {
		return nil, err
	}
	head, err := obj.Field("Consumers")
	if err != nil {
		return nil, err
	}
	entries, err := s.mem.IterateList(head, kernel, "_ETW_REALTIME_CONSUMER", "Links")
	if err != nil {
		return nil, err
	}
	res := newResult[*Consumer]()
	for _, o := range entries {
		c, err := s.readConsumer(o, res)
		if err != nil {
			if err := s.fail(res, "realtime consumer", o.Address(), err); err != nil {
				return nil, err
			}
			continue
		}
		res.add(c)
	}
	return res, nil
}

// EnabledGuids returns the trace GUIDs that are currently enabled for the logger.
// Notification and group GUIDs are never attributed to loggers.
func (s *Scanner) EnabledGuids(id uint16) (*Result[*GuidEntry], error) {
	guids, err := s.ScanGuids(ForLogger(id), TraceGuid)
	if err != nil {
		return nil, err
	}
	enabled := make([]*GuidEntry, 0, len(guids.Items))
	for _, entry := range guids.Items {
		if entry.EnabledFor(id) {
			enabled = append(enabled, entry)
		}
	}
	guids.Items = enabled
	return guids, nil
}

func (s *Scanner) readLogger(addr va.Address) (*LoggerContext, error) {
	obj, err := s.mem.TypedObjectAt(addr, kernel, "_WMI_LOGGER_CONTEXT")
	if err != nil {
		return nil, err
	}
	f := &fields{obj: obj}
	id := f.uint("LoggerId")
	logger := &LoggerContext{
		Addr:                addr,
		Name:                f.ustr("LoggerName"),
		InstanceGUID:        f.guid("InstanceGuid"),
		LogFileName:         f.ustr("LogFileName"),
		RealtimeLogFileName: f.ustr("RealtimeLogfileName"),
		Mode:                LoggerMode(f.uint("LoggerMode")),
		BufferSize:          uint32(f.uint("BufferSize")),
		Consumers:           make([]*Consumer, 0),
		EnabledGuids:        make([]*GuidEntry, 0),
	}
	if f.err != nil {
		return nil, f.err
	}
	if id >= maxLoggerSlots {
		return nil, errors.Wrapf(ErrStaleObject, "invalid logger id %d", id)
	}
	logger.ID = uint16(id)
	return logger, nil
}

// readConsumer reads the realtime consumer. The failure to resolve the
// consumer process is reported but the consumer is retained.
func (s *Scanner) readConsumer(obj *mem.Object, r reporter) (*Consumer, error) {
	f := &fields{obj: obj}
	c := &Consumer{
		Addr:        obj.Address(),
		LoggerID:    uint16(f.uint("LoggerId")),
		BuffersLost: uint32(f.uint("BuffersLost")),
	}
	proc := f.ptr("ProcessObject")
	if f.err != nil {
		return nil, f.err
	}
	if proc.IsZero() {
		return c, nil
	}
	var err error
	c.Process, err = s.readProcess(proc)
	if err != nil {
		if err := s.fail(r, "consumer process", proc, err); err != nil {
			return nil, err
		}
	}
	return c, nil
}
