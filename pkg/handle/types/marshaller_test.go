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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshaller(t *testing.T) {
	h := Handle{
		Num:    0x1a4,
		Type:   EtwConsumer,
		Object: 0xffffd105e9baaf70,
		Pid:    uint32(1234),
	}
	buf := h.Marshal()
	assert.Len(t, buf, h.Len())

	clone, err := NewFromSnapshot(buf)
	require.NoError(t, err)

	assert.Equal(t, uint64(0x1a4), clone.Num)
	assert.Equal(t, EtwConsumer, clone.Type)
	assert.Equal(t, "", clone.Name)
	assert.Equal(t, uint32(1234), clone.Pid)
	assert.Equal(t, uint64(0xffffd105e9baaf70), clone.Object)

	h = Handle{
		Num:  0x2c,
		Name: `\Device\HarddiskVolume4\Windows\Temp\DPTF`,
		Type: "File",
		Pid:  uint32(1023),
	}
	clone, err = NewFromSnapshot(h.Marshal())
	require.NoError(t, err)
	assert.Equal(t, h, clone)
}

func TestUnmarshalTruncated(t *testing.T) {
	h := Handle{Num: 0x1a4, Type: EtwRegistration, Name: "provider"}
	buf := h.Marshal()

	_, err := NewFromSnapshot(buf[:10])
	require.Error(t, err)
	_, err = NewFromSnapshot(buf[:len(buf)-3])
	require.Error(t, err)
}

func TestETWHandles(t *testing.T) {
	hs := Handles{
		{Num: 4, Type: "File"},
		{Num: 8, Type: EtwRegistration},
		{Num: 12, Type: EtwConsumer},
		{Num: 16, Type: "Key"},
	}
	etw := hs.ETW()
	require.Len(t, etw, 2)
	assert.Equal(t, uint64(8), etw[0].Num)
	assert.Equal(t, uint64(12), etw[1].Num)
	assert.Contains(t, hs.String(), "Type: EtwConsumer")
}
