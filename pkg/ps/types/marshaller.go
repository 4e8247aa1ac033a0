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

package types

import (
	"fmt"

	htypes "github.com/rabbitstack/etwscan/pkg/handle/types"
	"github.com/rabbitstack/etwscan/pkg/snapshot/section"
	"github.com/rabbitstack/etwscan/pkg/snapshot/version"
	"github.com/rabbitstack/etwscan/pkg/util/bytes"
)

// Marshal produces a byte stream of the process state for writing to the snapshot file.
func (ps *PS) Marshal() []byte {
	b := make([]byte, 0)

	// write pid and ppid
	b = append(b, bytes.WriteUint32(ps.PID)...)
	b = append(b, bytes.WriteUint32(ps.Ppid)...)

	// write process name
	b = append(b, bytes.WriteUint16(uint16(len(ps.Name)))...)
	b = append(b, ps.Name...)
	// write full executable path
	b = append(b, bytes.WriteUint16(uint16(len(ps.Exe)))...)
	b = append(b, ps.Exe...)

	// write session ID and the process object address
	b = append(b, bytes.WriteUint32(ps.SessionID)...)
	b = append(b, bytes.WriteUint64(ps.Object)...)

	// write handles
	sec := section.New(section.Handle, version.HandleSecV1, uint32(len(ps.Handles)), 0)
	b = append(b, sec[:]...)
	for _, handle := range ps.Handles {
		buf := handle.Marshal()
		b = append(b, bytes.WriteUint16(uint16(len(buf)))...)
		b = append(b, buf...)
	}

	return b
}

// Unmarshal recovers the process' state from the snapshot file.
func (ps *PS) Unmarshal(b []byte) error {
	if len(b) < 12 {
		return fmt.Errorf("expected at least 12 bytes but got %d bytes", len(b))
	}

	// read pid/ppid
	ps.PID = bytes.ReadUint32(b[0:])
	ps.Ppid = bytes.ReadUint32(b[4:])

	offset := 8
	var err error
	ps.Name, offset, err = readString(b, offset)
	if err != nil {
		return err
	}
	ps.Exe, offset, err = readString(b, offset)
	if err != nil {
		return err
	}

	if len(b) < offset+12+section.Size {
		return fmt.Errorf("process %d state is truncated", ps.PID)
	}
	ps.SessionID = bytes.ReadUint32(b[offset:])
	ps.Object = bytes.ReadUint64(b[offset+4:])
	offset += 12

	// read handles
	sec := section.Read(b[offset:])
	if sec.Type() != section.Handle {
		return fmt.Errorf("expected handle section but got %q", sec.Type())
	}
	offset += section.Size
	ps.Handles = make(htypes.Handles, 0, sec.Len())
	for i := 0; i < int(sec.Len()); i++ {
		if len(b) < offset+2 {
			return fmt.Errorf("handle %d of process %d is truncated", i, ps.PID)
		}
		l := int(bytes.ReadUint16(b[offset:]))
		offset += 2
		if len(b) < offset+l {
			return fmt.Errorf("handle %d of process %d is truncated", i, ps.PID)
		}
		handle, err := htypes.NewFromSnapshot(b[offset : offset+l])
		if err != nil {
			return err
		}
		ps.Handles = append(ps.Handles, handle)
		offset += l
	}

	return nil
}

// NewFromSnapshot restores the process state from the snapshot buffer.
func NewFromSnapshot(buf []byte) (*PS, error) {
	ps := &PS{}
	if err := ps.Unmarshal(buf); err != nil {
		return nil, err
	}
	return ps, nil
}

func readString(b []byte, offset int) (string, int, error) {
	if len(b) < offset+2 {
		return "", offset, fmt.Errorf("string length at offset %d is truncated", offset)
	}
	l := int(bytes.ReadUint16(b[offset:]))
	offset += 2
	if len(b) < offset+l {
		return "", offset, fmt.Errorf("string at offset %d overflows the buffer", offset)
	}
	return string(b[offset : offset+l]), offset + l, nil
}
