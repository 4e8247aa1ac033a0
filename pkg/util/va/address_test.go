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

package va

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestAddress(t *testing.T) {
	addr := Address(0xfffff8047a3c2000)
	assert.Equal(t, "fffff8047a3c2000", addr.String())
	assert.Equal(t, "0xfffff8047a3c2000", addr.Hex())
	assert.Equal(t, "0x0000000000000001", Address(1).Hex())
	assert.True(t, addr.InSystemRange())
	assert.True(t, addr.IsCanonical())
	assert.False(t, Address(0x0000900000000000).IsCanonical())
	assert.Equal(t, Address(0xfffff8047a3c2010), addr.Inc(0x10))
	assert.Equal(t, Address(0xfffff8047a3c1ff0), addr.Dec(0x10))
	assert.True(t, Address(0).IsZero())
}
