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

package multierror

import (
	"strings"
)

// Error aggregates a list of errors into a single error value.
type Error struct {
	errs []error
}

// Wrap builds the multi error from the given errors. It returns nil
// if all provided errors are nil.
func Wrap(errs ...error) error {
	m := &Error{}
	for _, err := range errs {
		if err != nil {
			m.errs = append(m.errs, err)
		}
	}
	if len(m.errs) == 0 {
		return nil
	}
	return m
}

// Error returns the string with all errors separated by a newline.
func (m *Error) Error() string {
	var b strings.Builder
	for i, err := range m.errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Errors returns the underlying errors.
func (m *Error) Errors() []error { return m.errs }

// Unwrap makes the wrapped errors visible to errors.Is and errors.As.
func (m *Error) Unwrap() []error { return m.errs }
