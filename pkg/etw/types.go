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
	"strings"

	"github.com/rabbitstack/etwscan/pkg/util/va"
)

// GuidType identifies the list of the GUID hash bucket the entry is linked into.
type GuidType uint8

const (
	// TraceGuid is the regular trace provider GUID.
	TraceGuid GuidType = iota
	// NotificationGuid is the notification GUID.
	NotificationGuid
	// GroupGuid is the provider group GUID.
	GroupGuid
)

// GuidTypes contains all GUID types in the order they are laid out in the hash bucket.
var GuidTypes = []GuidType{TraceGuid, NotificationGuid, GroupGuid}

func (t GuidType) String() string {
	switch t {
	case TraceGuid:
		return "trace"
	case NotificationGuid:
		return "notification"
	case GroupGuid:
		return "group"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// KernelName returns the ETW_GUID_TYPE enumerator name.
func (t GuidType) KernelName() string {
	switch t {
	case TraceGuid:
		return "EtwTraceGuidType"
	case NotificationGuid:
		return "EtwNotificationGuidType"
	case GroupGuid:
		return "EtwGroupGuidType"
	default:
		return t.String()
	}
}

// MarshalText encodes the GUID type name.
func (t GuidType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t GuidType) valid() bool { return t <= GroupGuid }

// regLink returns the link field that chains registration entries of this GUID type.
func (t GuidType) regLink() string {
	if t == GroupGuid {
		return "GroupRegList"
	}
	return "RegList"
}

// ParseGuidType parses the GUID type from its name.
func ParseGuidType(s string) (GuidType, error) {
	switch strings.ToLower(s) {
	case "trace", "0":
		return TraceGuid, nil
	case "notification", "1":
		return NotificationGuid, nil
	case "group", "2":
		return GroupGuid, nil
	default:
		return 0, fmt.Errorf("unknown GUID type %q", s)
	}
}

// LoggerFilter restricts the GUID scan to entries bound to a specific logger.
// The zero value matches entries regardless of the logger binding.
type LoggerFilter struct {
	id  uint16
	set bool
}

// AnyLogger is the filter that matches all GUID entries.
var AnyLogger = LoggerFilter{}

// ForLogger returns the filter that matches GUID entries bound to the logger.
func ForLogger(id uint16) LoggerFilter { return LoggerFilter{id: id, set: true} }

// IsAny determines if the filter matches all entries.
func (f LoggerFilter) IsAny() bool { return !f.set }

// LoggerID returns the logger identifier the filter is bound to.
func (f LoggerFilter) LoggerID() (uint16, bool) { return f.id, f.set }

func (f LoggerFilter) String() string {
	if !f.set {
		return "any"
	}
	return fmt.Sprintf("logger %d", f.id)
}

// EnableInfo describes the enablement of the provider for a single logger session.
type EnableInfo struct {
	LoggerID        uint16 `json:"logger_id"`
	IsEnabled       bool   `json:"is_enabled"`
	Level           uint8  `json:"level"`
	EnableProperty  uint32 `json:"enable_property"`
	MatchAnyKeyword uint64 `json:"match_any_keyword"`
	MatchAllKeyword uint64 `json:"match_all_keyword"`
}

// LastEnable records the most recent enablement of the provider.
type LastEnable struct {
	Enabled     bool   `json:"enabled"`
	LoggerID    uint16 `json:"logger_id"`
	Level       uint8  `json:"level"`
	EnableFlags uint64 `json:"enable_flags"`
}

// GuidEntry is the registered GUID (_ETW_GUID_ENTRY).
type GuidEntry struct {
	Addr               va.Address   `json:"address"`
	GUID               GUID         `json:"guid"`
	Type               GuidType     `json:"type"`
	SecurityDescriptor va.Address   `json:"security_descriptor"`
	LastEnable         LastEnable   `json:"last_enable"`
	EnableInfo         []EnableInfo `json:"enable_info"`
	RegListHead        va.Address   `json:"reg_list_head"`
	// Registrations are only collected for the registered GUIDs view.
	Registrations []*RegEntry `json:"registrations,omitempty"`
}

// BoundTo determines if any of the enable info slots references the logger.
func (e *GuidEntry) BoundTo(id uint16) bool {
	for _, info := range e.EnableInfo {
		if info.LoggerID == id {
			return true
		}
	}
	return false
}

// EnabledFor determines if the provider is currently enabled for the logger.
// Enable info slots may retain the logger id after the provider is disabled,
// so the enablement flag must be checked as well.
func (e *GuidEntry) EnabledFor(id uint16) bool {
	for _, info := range e.EnableInfo {
		if info.LoggerID == id && info.IsEnabled {
			return true
		}
	}
	return false
}

func (e *GuidEntry) String() string {
	if name := e.GUID.Name(); name != "" {
		return e.GUID.String() + " (" + name + ")"
	}
	return e.GUID.String()
}

// ProcessRef identifies the process that owns the ETW object.
type ProcessRef struct {
	Addr va.Address `json:"address"`
	PID  uint32     `json:"pid"`
	Name string     `json:"name"`
	Path string     `json:"path,omitempty"`
}

func (p *ProcessRef) String() string { return fmt.Sprintf("%s (%d)", p.Name, p.PID) }

// RegEntry is the provider registration entry (_ETW_REG_ENTRY).
type RegEntry struct {
	Addr      va.Address `json:"address"`
	GuidEntry va.Address `json:"guid_entry"`
	GUID      GUID       `json:"guid"`
	// Process is nil for kernel registrations or if the owning process is gone.
	Process              *ProcessRef `json:"process,omitempty"`
	Callback             va.Address  `json:"callback"`
	CallbackSymbol       string      `json:"callback_symbol,omitempty"`
	IsUserRegistration   bool        `json:"is_user_registration"`
	IsKernelRegistration bool        `json:"is_kernel_registration"`
	Index                uint16      `json:"index"`
	EnableMask           uint8       `json:"enable_mask"`
}

// Consumer is the realtime consumer (_ETW_REALTIME_CONSUMER) attached to the logger.
type Consumer struct {
	Addr        va.Address  `json:"address"`
	LoggerID    uint16      `json:"logger_id"`
	Process     *ProcessRef `json:"process,omitempty"`
	BuffersLost uint32      `json:"buffers_lost"`
}

// LoggerContext is the logger session (_WMI_LOGGER_CONTEXT) occupying the logger table slot.
type LoggerContext struct {
	ID                  uint16       `json:"id"`
	Addr                va.Address   `json:"address"`
	Name                string       `json:"name"`
	InstanceGUID        GUID         `json:"instance_guid"`
	LogFileName         string       `json:"log_file_name,omitempty"`
	RealtimeLogFileName string       `json:"realtime_log_file_name,omitempty"`
	Mode                LoggerMode   `json:"mode"`
	BufferSize          uint32       `json:"buffer_size"`
	Consumers           []*Consumer  `json:"consumers"`
	EnabledGuids        []*GuidEntry `json:"enabled_guids"`
}

// IsSystemLogger determines if this is the system trace logger.
func (l *LoggerContext) IsSystemLogger() bool { return l.Mode.IsSystemLogger() }

func (l *LoggerContext) String() string { return fmt.Sprintf("%s (%d)", l.Name, l.ID) }
