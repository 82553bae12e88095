// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package workflow defines the contract between the workflow-manager
// orchestrator and an individual workflow binary (§6): the
// --workflow-metadata self-description document, the one-to-one mapping
// from schema fields to CLI flags, and a cobra command builder that
// gives a workflow binary the full common flag surface (--phases,
// concurrency, resume files, batching toggle) wired into the
// Orchestration Engine.
package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FieldType enumerates the value types a workflow input field may have.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldBool   FieldType = "bool"
	FieldInt    FieldType = "int"
)

// Field describes one workflow input in the metadata document. Each
// field derives exactly one CLI flag named after Field.Name.
type Field struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Default     string    `json:"default,omitempty"`
}

// Metadata is the JSON document a workflow binary prints for
// --workflow-metadata, describing itself to the orchestrator.
type Metadata struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

// JSON serializes the metadata document the way --workflow-metadata
// prints it.
func (m Metadata) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ParseMetadata decodes a --workflow-metadata document.
func ParseMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("workflow: parse metadata: %w", err)
	}
	if m.ID == "" {
		return m, fmt.Errorf("workflow: metadata missing id")
	}
	return m, nil
}

// Params is the resolved input parameter map a workflow run starts with:
// every schema field, filled from its flag or default.
type Params map[string]string

// String returns a field's value.
func (p Params) String(name string) string { return p[name] }

// Bool interprets a field's value as a boolean; absent or unparsable
// values are false.
func (p Params) Bool(name string) bool {
	v, err := strconv.ParseBool(p[name])
	return err == nil && v
}

// Int interprets a field's value as an integer; absent or unparsable
// values are zero.
func (p Params) Int(name string) int {
	v, err := strconv.Atoi(p[name])
	if err != nil {
		return 0
	}
	return v
}

// Validate checks that every required field has a value.
func (m Metadata) Validate(p Params) error {
	for _, f := range m.Fields {
		if f.Required && p[f.Name] == "" {
			return fmt.Errorf("workflow: required field --%s not set", f.Name)
		}
	}
	return nil
}
