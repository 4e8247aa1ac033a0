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
	"math/bits"
	"strings"
)

// LoggerMode is the set of EVENT_TRACE_* flags the logger session was started with.
type LoggerMode uint32

// SystemLoggerMode identifies the system trace logger session.
const SystemLoggerMode LoggerMode = 0x2000000

var modeNames = map[LoggerMode]string{
	0x1:        "FILE_MODE_SEQUENTIAL",
	0x2:        "FILE_MODE_CIRCULAR",
	0x4:        "FILE_MODE_APPEND",
	0x8:        "FILE_MODE_NEWFILE",
	0x20:       "FILE_MODE_PREALLOCATE",
	0x40:       "NONSTOPPABLE_MODE",
	0x80:       "SECURE_MODE",
	0x100:      "REAL_TIME_MODE",
	0x200:      "DELAY_OPEN_FILE_MODE",
	0x400:      "BUFFERING_MODE",
	0x800:      "PRIVATE_LOGGER_MODE",
	0x1000:     "ADD_HEADER_MODE",
	0x2000:     "USE_KBYTES_FOR_SIZE",
	0x4000:     "USE_GLOBAL_SEQUENCE",
	0x8000:     "USE_LOCAL_SEQUENCE",
	0x10000:    "RELOG_MODE",
	0x20000:    "PRIVATE_IN_PROC",
	0x100000:   "MODE_RESERVED",
	0x400000:   "STOP_ON_HYBRID_SHUTDOWN",
	0x800000:   "PERSIST_ON_HYBRID_SHUTDOWN",
	0x1000000:  "USE_PAGED_MEMORY",
	0x2000000:  "SYSTEM_LOGGER_MODE",
	0x8000000:  "INDEPENDENT_SESSION_MODE",
	0x10000000: "NO_PER_PROCESSOR_BUFFERING",
	0x80000000: "ADDTO_TRIAGE_DUMP",
}

// IsSystemLogger determines if the mode designates the system trace logger.
func (m LoggerMode) IsSystemLogger() bool { return m&SystemLoggerMode == SystemLoggerMode }

// Flags returns the names of the flags set in the mode, ordered by the bit position.
// Undocumented bits are rendered as hex values.
func (m LoggerMode) Flags() []string {
	flags := make([]string, 0, bits.OnesCount32(uint32(m)))
	for v := uint32(m); v != 0; v &= v - 1 {
		bit := LoggerMode(v & -v)
		if name, ok := modeNames[bit]; ok {
			flags = append(flags, name)
		} else {
			flags = append(flags, fmt.Sprintf("%#x", uint32(bit)))
		}
	}
	return flags
}

func (m LoggerMode) String() string {
	if m == 0 {
		return "0x0"
	}
	return strings.Join(m.Flags(), "|")
}
