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

	"github.com/rabbitstack/etwscan/pkg/util/bytes"
)

// NewFromSnapshot restores handle state from the snapshot buffer.
func NewFromSnapshot(buf []byte) (Handle, error) {
	h := Handle{}
	err := h.Unmarshal(buf)
	if err != nil {
		return Handle{}, err
	}
	return h, nil
}

// Marshal dumps the state of the handle to byte slice that is suitable for serializing to snapshot file.
func (h *Handle) Marshal() []byte {
	b := make([]byte, 0, h.Len())

	// write handle value, object address and the pid that owns this handle
	b = append(b, bytes.WriteUint64(h.Num)...)
	b = append(b, bytes.WriteUint64(h.Object)...)
	b = append(b, bytes.WriteUint32(h.Pid)...)

	// write handle type and name
	b = append(b, bytes.WriteUint16(uint16(len(h.Type)))...)
	b = append(b, h.Type...)

	b = append(b, bytes.WriteUint16(uint16(len(h.Name)))...)
	b = append(b, h.Name...)

	return b
}

// Unmarshal transforms the byte slice back to handle structure.
func (h *Handle) Unmarshal(b []byte) error {
	if len(b) < 24 {
		return fmt.Errorf("expected at least 24 bytes but got %d bytes", len(b))
	}

	h.Num = bytes.ReadUint64(b[0:])
	h.Object = bytes.ReadUint64(b[8:])
	h.Pid = bytes.ReadUint32(b[16:])

	// read handle type and name
	l := int(bytes.ReadUint16(b[20:]))
	if len(b) < 24+l {
		return fmt.Errorf("handle type overflows the buffer: %d > %d", 24+l, len(b))
	}
	h.Type = string(b[22 : 22+l])
	offset := 22 + l

	n := int(bytes.ReadUint16(b[offset:]))
	offset += 2
	if len(b) < offset+n {
		return fmt.Errorf("handle name overflows the buffer: %d > %d", offset+n, len(b))
	}
	h.Name = string(b[offset : offset+n])

	return nil
}
