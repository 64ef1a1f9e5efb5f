// Copyright 2021 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"fmt"
	"strings"
)

// ValidationError is an error type used when validation of the workflow
// configuration fails. It is always raised before the destination is touched.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "validation failed for fields %s", joinQuoted(e.Violations.Fields()))
	for _, v := range e.Violations {
		if v.Reason == "" {
			continue
		}
		fmt.Fprintf(b, "\n  %s: %s", v.Field, v.Reason)
	}
	return b.String()
}

type ViolationType string

const (
	Missing ViolationType = "missing"
	Invalid ViolationType = "invalid"
)

type Violations []Violation

func (v Violations) Fields() []string {
	var fields []string
	for _, v := range v {
		fields = append(fields, v.Field)
	}
	return fields
}

// Add appends a violation for field.
func (v *Violations) Add(field, value string, t ViolationType, reason string) {
	*v = append(*v, Violation{Field: field, Value: value, Type: t, Reason: reason})
}

// Err returns a *ValidationError if there are any violations, nil otherwise.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Violations: v}
}

type Violation struct {
	Field  string
	Value  string
	Type   ViolationType
	Reason string
}

func joinQuoted(s []string) string {
	quoted := make([]string, 0, len(s))
	for _, e := range s {
		quoted = append(quoted, fmt.Sprintf("%q", e))
	}
	return strings.Join(quoted, ", ")
}
