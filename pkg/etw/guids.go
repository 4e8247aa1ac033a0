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

	"github.com/pkg/errors"
	"github.com/rabbitstack/etwscan/pkg/mem"
	"github.com/rabbitstack/etwscan/pkg/util/va"
)

// ScanGuids enumerates the GUID entries of the given type registered in the
// GUID hash table. If the logger filter is set, only the entries having at
// least one enable info slot bound to the logger are returned. Entries are
// yielded in bucket order, and in list order within the bucket.
func (s *Scanner) ScanGuids(filter LoggerFilter, typ GuidType) (*Result[*GuidEntry], error) {
	if !typ.valid() {
		return nil, fmt.Errorf("invalid GUID type %d", uint8(typ))
	}
	state, err := s.siloState()
	if err != nil {
		return nil, err
	}
	table, err := state.Field("EtwpGuidHashTable")
	if err != nil {
		return nil, err
	}
	if err := table.Probe(); err != nil {
		return nil, errors.Wrap(err, "GUID hash table is unreadable")
	}
	buckets, err := s.mem.IterateArray(state, "EtwpGuidHashTable")
	if err != nil {
		return nil, err
	}

	res := newResult[*GuidEntry]()
	seen := make(map[va.Address]bool)
	for i, bucket := range buckets {
		head, err := bucket.Field(fmt.Sprintf("ListHead[%d]", int(typ)))
		if err != nil {
			return nil, err
		}
		entries, err := s.mem.IterateList(head, kernel, "_ETW_GUID_ENTRY", "GuidList")
		if err != nil {
			if err := s.fail(res, fmt.Sprintf("GUID hash bucket %d", i), head.Address(), err); err != nil {
				return nil, err
			}
			continue
		}
		for _, obj := range entries {
			if seen[obj.Address()] {
				continue
			}
			entry, err := s.readGuidEntry(obj, typ)
			if err != nil {
				if err := s.fail(res, "GUID entry", obj.Address(), err); err != nil {
					return nil, err
				}
				continue
			}
			if id, ok := filter.LoggerID(); ok && !entry.BoundTo(id) {
				continue
			}
			seen[entry.Addr] = true
			res.add(entry)
		}
	}
	return res, nil
}

// RegEntries enumerates the registration entries of the GUID entry. Group
// GUID registrations are chained through a dedicated link.
func (s *Scanner) RegEntries(entry *GuidEntry) (*Result[*RegEntry], error) {
	obj, err := s.mem.TypedObjectAt(entry.Addr, kernel, "_ETW_GUID_ENTRY")
	if err != nil {
		return nil, err
	}
	head, err := obj.Field("RegListHead")
	if err != nil {
		return nil, err
	}
	regs, err := s.mem.IterateList(head, kernel, "_ETW_REG_ENTRY", entry.Type.regLink())
	if err != nil {
		return nil, err
	}
	res := newResult[*RegEntry]()
	for _, o := range regs {
		reg, err := s.readRegEntry(o, res)
		if err != nil {
			if err := s.fail(res, "registration entry", o.Address(), err); err != nil {
				return nil, err
			}
			continue
		}
		res.add(reg)
	}
	return res, nil
}

// RegisteredGuids enumerates GUID entries of the given types along with their
// registration entries. Unless includeDisabled is set, only the entries whose
// last enablement is active are returned. All GUID types are scanned if none
// is given.
func (s *Scanner) RegisteredGuids(includeDisabled bool, types ...GuidType) (*Result[*GuidEntry], error) {
	if len(types) == 0 {
		types = GuidTypes
	}
	res := newResult[*GuidEntry]()
	for _, typ := range types {
		guids, err := s.ScanGuids(AnyLogger, typ)
		if err != nil {
			return nil, err
		}
		res.merge(guids.Diagnostics)
		for _, entry := range guids.Items {
			if !includeDisabled && !entry.LastEnable.Enabled {
				continue
			}
			regs, err := s.RegEntries(entry)
			if err != nil {
				if err := s.fail(res, "registration list of "+entry.GUID.String(), entry.RegListHead, err); err != nil {
					return nil, err
				}
			} else {
				entry.Registrations = regs.Items
				res.merge(regs.Diagnostics)
			}
			res.add(entry)
		}
	}
	return res, nil
}

func (s *Scanner) readGuidEntry(obj *mem.Object, typ GuidType) (*GuidEntry, error) {
	f := &fields{obj: obj}
	entry := &GuidEntry{
		Addr:               obj.Address(),
		Type:               typ,
		GUID:               f.guid("Guid"),
		SecurityDescriptor: f.ptr("SecurityDescriptor"),
		LastEnable: LastEnable{
			Enabled:     f.bool("LastEnable.Enabled"),
			LoggerID:    uint16(f.uint("LastEnable.LoggerId")),
			Level:       uint8(f.uint("LastEnable.Level")),
			EnableFlags: f.uint("LastEnable.EnableFlags"),
		},
		RegListHead: f.addr("RegListHead"),
	}
	if f.err != nil {
		return nil, f.err
	}
	infos, err := s.mem.IterateArray(obj, "EnableInfo")
	if err != nil {
		return nil, err
	}
	entry.EnableInfo = make([]EnableInfo, 0, len(infos))
	for _, info := range infos {
		f := &fields{obj: info}
		ei := EnableInfo{
			LoggerID:        uint16(f.uint("LoggerId")),
			IsEnabled:       f.bool("IsEnabled"),
			Level:           uint8(f.uint("Level")),
			EnableProperty:  uint32(f.uint("EnableProperty")),
			MatchAnyKeyword: f.uint("MatchAnyKeyword"),
			MatchAllKeyword: f.uint("MatchAllKeyword"),
		}
		if f.err != nil {
			return nil, f.err
		}
		entry.EnableInfo = append(entry.EnableInfo, ei)
	}
	return entry, nil
}

// readRegEntry reads the registration entry. The owning process is resolved
// for user registrations only. The failure to resolve the owning process is
// reported but the registration is retained.
func (s *Scanner) readRegEntry(obj *mem.Object, r reporter) (*RegEntry, error) {
	f := &fields{obj: obj}
	reg := &RegEntry{
		Addr:                 obj.Address(),
		GuidEntry:            f.ptr("GuidEntry"),
		Callback:             f.ptr("Callback"),
		IsUserRegistration:   f.bool("DbgUserRegistration"),
		IsKernelRegistration: f.bool("DbgKernelRegistration"),
		Index:                uint16(f.uint("Index")),
		EnableMask:           uint8(f.uint("EnableMask")),
	}
	if f.err != nil {
		return nil, f.err
	}
	if reg.GuidEntry.IsZero() {
		return nil, errors.Wrap(ErrStaleObject, "registration without GUID entry")
	}
	guid, err := obj.ReadGUID("GuidEntry.Guid")
	if err != nil {
		return nil, errors.Wrap(err, "unable to read registration GUID")
	}
	reg.GUID = guid

	if reg.IsUserRegistration {
		addr, err := obj.ReadPointer("Process")
		if err != nil {
			return nil, err
		}
		if !addr.IsZero() {
			reg.Process, err = s.readProcess(addr)
			if err != nil {
				if err := s.fail(r, "registration process", addr, err); err != nil {
					return nil, err
				}
			}
		}
	}
	if reg.IsKernelRegistration && !reg.Callback.IsZero() && s.resolver != nil {
		reg.CallbackSymbol = s.resolver.Resolve(reg.Callback)
	}
	return reg, nil
}
