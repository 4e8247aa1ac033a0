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

const (
	// EtwRegistration designates the handle of the ETW provider registration object
	EtwRegistration = htypes.EtwRegistration
	// EtwConsumer designates the handle of the ETW realtime consumer object
	EtwConsumer = htypes.EtwConsumer
)

// Kind classifies the handle by the ETW object it references.
type Kind uint8

const (
	// Other is any handle that doesn't reference an ETW object.
	Other Kind = iota
	// Provider is the handle of the provider registration object (_ETW_REG_ENTRY).
	Provider
	// Consumer is the handle of the realtime consumer object (_ETW_REALTIME_CONSUMER).
	Consumer
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Provider:
		return "provider"
	case Consumer:
		return "consumer"
	default:
		return "other"
	}
}

// KindOf classifies the handle by its object type name.
func KindOf(typ string) Kind {
	switch typ {
	case EtwRegistration:
		return Provider
	case EtwConsumer:
		return Consumer
	default:
		return Other
	}
}
