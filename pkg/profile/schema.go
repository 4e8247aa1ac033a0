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

package profile

import "github.com/rabbitstack/etwscan/pkg/util/jsonschema"

var schema = `
{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"definitions": {
		"offset": {
			"anyOf": [
				{"type": "integer", "minimum": 0},
				{"type": "string", "pattern": "^(0x[0-9a-fA-F]+|[0-9]+)$"}
			]
		},
		"field": {
			"type": "object",
			"properties": {
				"offset":	{"$ref": "#/definitions/offset"},
				"type":		{"type": "string", "minLength": 1},
				"pointer":	{"type": "integer", "minimum": 0, "maximum": 4},
				"count":	{"type": "integer", "minimum": 0},
				"bit":		{"type": "integer", "minimum": 0, "maximum": 63},
				"bits":		{"type": "integer", "minimum": 0, "maximum": 64}
			},
			"required": ["offset", "type"],
			"additionalProperties": false
		},
		"type": {
			"type": "object",
			"properties": {
				"size":		{"$ref": "#/definitions/offset"},
				"fields":	{
					"type": "object",
					"additionalProperties": {"$ref": "#/definitions/field"}
				}
			},
			"required": ["size", "fields"],
			"additionalProperties": false
		}
	},

	"type": "object",
	"properties": {
		"name":			{"type": "string", "minLength": 1},
		"description":	{"type": "string"},
		"kernel":		{"type": "string"},
		"arch":			{"type": "string", "enum": ["amd64"]},
		"modules":		{
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": "object",
				"properties": {
					"symbols":	{
						"type": "object",
						"additionalProperties": {"$ref": "#/definitions/offset"}
					},
					"types":	{
						"type": "object",
						"additionalProperties": {"$ref": "#/definitions/type"}
					}
				},
				"additionalProperties": false
			}
		}
	},
	"required": ["name", "modules"],
	"additionalProperties": false
}
`

var profileSchema = jsonschema.MustCompile(schema)
