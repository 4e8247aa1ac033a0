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

// Package jsonschema validates decoded YAML/JSON documents against JSON schemas.
package jsonschema

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// Schema is the compiled JSON schema.
type Schema struct {
	s *gojsonschema.Schema
}

// Compile parses the schema source.
func Compile(src string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		return nil, errors.Wrap(err, "invalid schema")
	}
	return &Schema{s: s}, nil
}

// MustCompile is like Compile but panics if the schema can't be parsed.
func MustCompile(src string) *Schema {
	s, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks the document against the schema. The document is the
// generic value produced by the YAML or JSON decoder. Each schema
// violation is returned as a separate error.
func (s *Schema) Validate(doc interface{}) []error {
	converted, err := Normalize(doc)
	if err != nil {
		return []error{fmt.Errorf("fail to convert keys to string: %v", err)}
	}
	r, err := s.s.Validate(gojsonschema.NewGoLoader(converted))
	if err != nil {
		return []error{fmt.Errorf("fail to validate through schema: %v", err)}
	}
	if r.Valid() {
		return nil
	}
	errs := make([]error, len(r.Errors()))
	for i, err := range r.Errors() {
		errs[i] = errors.New(err.String())
	}
	return errs
}

// Normalize converts map keys to strings recursively. The YAML decoder
// may produce maps with interface keys which the schema validator can't
// traverse.
func Normalize(value interface{}) (interface{}, error) {
	return normalize(value, "")
}

func normalize(value interface{}, prefix string) (interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		dict := make(map[string]interface{}, len(v))
		for key, entry := range v {
			e, err := normalize(entry, join(prefix, key))
			if err != nil {
				return nil, err
			}
			dict[key] = e
		}
		return dict, nil
	case map[interface{}]interface{}:
		dict := make(map[string]interface{}, len(v))
		for k, entry := range v {
			key, ok := k.(string)
			if !ok {
				return nil, invalidKeyError(prefix, k)
			}
			e, err := normalize(entry, join(prefix, key))
			if err != nil {
				return nil, err
			}
			dict[key] = e
		}
		return dict, nil
	case []interface{}:
		list := make([]interface{}, len(v))
		for i, entry := range v {
			e, err := normalize(entry, fmt.Sprintf("%s[%d]", prefix, i))
			if err != nil {
				return nil, err
			}
			list[i] = e
		}
		return list, nil
	}
	return value, nil
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func invalidKeyError(prefix string, key interface{}) error {
	location := "at top level"
	if prefix != "" {
		location = "in " + prefix
	}
	return errors.Errorf("non-string key %s: %#v", location, key)
}
