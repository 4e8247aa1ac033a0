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

package mem

import (
	"errors"
	"fmt"

	"github.com/rabbitstack/etwscan/pkg/util/va"
)

var (
	// ErrNullPointer is returned when dereferencing a null pointer.
	ErrNullPointer = errors.New("null pointer dereference")
	// ErrListTooLong signals the intrusive list walk exceeded the maximum number of entries.
	ErrListTooLong = errors.New("list exceeds the maximum number of entries")
)

// UnreadableError is returned when the range of the target memory can't be fetched.
// This happens if the page was not captured, is paged out or the address is bogus.
// Err is set when the backing store failed to produce the captured bytes.
type UnreadableError struct {
	Addr va.Address
	Size int
	Err  error
}

// Error returns the error message.
func (e *UnreadableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to read %d bytes at %s: %v", e.Size, e.Addr.Hex(), e.Err)
	}
	return fmt.Sprintf("unable to read %d bytes at %s", e.Size, e.Addr.Hex())
}

// Unwrap returns the underlying backing store error.
func (e *UnreadableError) Unwrap() error { return e.Err }

// IsUnreadable determines if the error, or any error in its chain, is the unreadable memory error.
func IsUnreadable(err error) bool {
	var e *UnreadableError
	return errors.As(err, &e)
}

// ListError signals a structural inconsistency found while walking the intrusive list.
type ListError struct {
	Head va.Address
	Link va.Address
	Msg  string
}

// Error returns the error message.
func (e *ListError) Error() string {
	return fmt.Sprintf("corrupted list at %s (link %s): %s", e.Head.Hex(), e.Link.Hex(), e.Msg)
}
