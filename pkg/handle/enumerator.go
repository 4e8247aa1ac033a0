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

package handle

import htypes "github.com/rabbitstack/etwscan/pkg/handle/types"

// Enumerator collects the handles allocated by the processes running in the system.
type Enumerator interface {
	// Enumerate returns the handles indexed by the owning process identifier. Unless
	// all is true, only handles referencing ETW objects are returned.
	Enumerate(all bool) (map[uint32]htypes.Handles, error)
}
