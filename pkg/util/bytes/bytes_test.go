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

package bytes

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitNativeEndian(t *testing.T) {
	defer InitNativeEndian(nil)

	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, Sentinel)
	InitNativeEndian(b)
	assert.Equal(t, binary.BigEndian, NativeEndian)
	assert.Equal(t, uint32(0x01020304), ReadUint32([]byte{1, 2, 3, 4}))

	binary.LittleEndian.PutUint64(b, Sentinel)
	InitNativeEndian(b)
	assert.Equal(t, binary.LittleEndian, NativeEndian)
	assert.Equal(t, uint16(0x0201), ReadUint16(WriteUint16(0x0201)))
	assert.Equal(t, uint64(0xfffff80412000000), ReadUint64(WriteUint64(0xfffff80412000000)))

	assert.Panics(t, func() { InitNativeEndian([]byte("garbage!")) })
}
