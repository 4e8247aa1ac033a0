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
	"strings"
)

// Object type names of the ETW handles as reported by the object manager.
const (
	// EtwRegistration is the object type of the provider registration handle.
	EtwRegistration = "EtwRegistration"
	// EtwConsumer is the object type of the realtime consumer handle.
	EtwConsumer = "EtwConsumer"
)

// Handles represents a collection of handles.
type Handles []Handle

// Handle stores the metadata of the handle allocated by a process.
type Handle struct {
	// Num represents the handle value in the process handle table.
	Num uint64 `json:"id" yaml:"num"`
	// Object is the kernel address of the object body that this handle references.
	Object uint64 `json:"object" yaml:"object"`
	// Pid represents the process's identifier that owns the handle.
	Pid uint32 `json:"-" yaml:"-"`
	// Type is the object type name of this handle (e.g. EtwRegistration, EtwConsumer, File)
	Type string `json:"type" yaml:"type"`
	// Name is the object name if the object is named.
	Name string `json:"name,omitempty" yaml:"name"`
}

// String returns a string representation of the handle.
func (h Handle) String() string {
	return fmt.Sprintf("Num: %#x Type: %s, Name: %s, Object: %#x, PID: %d", h.Num, h.Type, h.Name, h.Object, h.Pid)
}

// IsETW determines if the handle references one of the ETW objects.
func (h Handle) IsETW() bool { return h.Type == EtwRegistration || h.Type == EtwConsumer }

// Len returns the length in bytes of the Handle structure.
func (h Handle) Len() int {
	return 8 + 8 + 4 + 2 + len(h.Type) + 2 + len(h.Name)
}

// String returns the string representation of all handles.
func (handles Handles) String() string {
	var sb strings.Builder
	for _, h := range handles {
		sb.WriteString(h.String() + " | ")
	}
	return strings.TrimSuffix(sb.String(), " | ")
}

// ETW returns the handles referencing ETW objects.
func (handles Handles) ETW() Handles {
	hs := make(Handles, 0)
	for _, h := range handles {
		if h.IsETW() {
			hs = append(hs, h)
		}
	}
	return hs
}
