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

package destination_test

import (
	"testing"

	"github.com/kptdev/transplant/internal/errors"
	. "github.com/kptdev/transplant/pkg/destination"
	"github.com/stretchr/testify/assert"
)

func TestParseAuthor(t *testing.T) {
	testCases := map[string]struct {
		input    string
		expected Author
		errors   bool
	}{
		"name and email": {
			input:    "Foo Bar <foo@bar.com>",
			expected: Author{Name: "Foo Bar", Email: "foo@bar.com"},
		},
		"surrounding spaces": {
			input:    "  Foo <foo@bar.com>  ",
			expected: Author{Name: "Foo", Email: "foo@bar.com"},
		},
		"empty email": {
			input:    "Foo <>",
			expected: Author{Name: "Foo"},
		},
		"missing email": {
			input:  "Foo Bar",
			errors: true,
		},
		"missing name": {
			input:  "<foo@bar.com>",
			errors: true,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			a, err := ParseAuthor(tc.input)
			if tc.errors {
				assert.Error(t, err)
				return
			}
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.Equal(t, tc.expected, a)
		})
	}
}

func TestTransformResult_defaults(t *testing.T) {
	r := TransformResult{}
	assert.Equal(t, DefaultAuthor, r.AuthorOrDefault())
	assert.Equal(t, "Transplant <noreply@transplant.dev>", r.AuthorOrDefault().String())
	assert.Equal(t, DefaultSummary, r.SummaryOrDefault())

	r = TransformResult{Author: Author{Name: "Foo", Email: "foo@bar.com"}, Summary: " Import\n"}
	assert.Equal(t, "Foo <foo@bar.com>", r.AuthorOrDefault().String())
	assert.Equal(t, "Import", r.SummaryOrDefault())

	b := r.WithBaseline("abc")
	assert.Equal(t, "abc", b.Baseline)
	assert.Empty(t, r.Baseline)
}

func TestTransformResult_Validate(t *testing.T) {
	testCases := map[string]struct {
		result         TransformResult
		expectedFields []string
	}{
		"valid": {
			result: TransformResult{ContentRoot: "/tmp/x", OriginRef: "abc", LabelName: DefaultLabelName},
		},
		"everything missing": {
			result:         TransformResult{},
			expectedFields: []string{"contentRoot", "originRef", "labelName"},
		},
		"multi line ref": {
			result:         TransformResult{ContentRoot: "/tmp/x", OriginRef: "a\nb", LabelName: "L"},
			expectedFields: []string{"originRef"},
		},
		"label with colon": {
			result:         TransformResult{ContentRoot: "/tmp/x", OriginRef: "a", LabelName: "a:b"},
			expectedFields: []string{"labelName"},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			err := tc.result.Validate()
			if len(tc.expectedFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var validationErr *errors.ValidationError
			if !assert.True(t, errors.As(err, &validationErr)) {
				t.FailNow()
			}
			assert.Equal(t, tc.expectedFields, validationErr.Violations.Fields())
		})
	}
}

func TestWriterResult_String(t *testing.T) {
	assert.Equal(t, "OK", OK.String())
	assert.Equal(t, "NO_CHANGES", NoChanges.String())
}
