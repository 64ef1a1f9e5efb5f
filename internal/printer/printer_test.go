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

package printer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinter_messages(t *testing.T) {
	var out, errOut bytes.Buffer
	pr := New(strings.NewReader(""), &out, &errOut)

	pr.Printf("table\n")
	pr.Progressf("Git Destination: Fetching %s %s", "file:///repo", "main")
	pr.Infof("pending change")
	pr.Warnf("Git Destination: no changes to push\n")

	assert.Equal(t, "table\n", out.String())
	assert.Equal(t, "Git Destination: Fetching file:///repo main\n"+
		"INFO: pending change\n"+
		"WARN: Git Destination: no changes to push\n", errOut.String())
}

func TestPrinter_Confirm(t *testing.T) {
	testCases := map[string]struct {
		input    string
		expected bool
		errors   bool
		prompts  int
	}{
		"yes": {
			input:    "y\n",
			expected: true,
			prompts:  1,
		},
		"long yes without newline": {
			input:    "YES",
			expected: true,
			prompts:  1,
		},
		"no": {
			input:    "n\n",
			expected: false,
			prompts:  1,
		},
		"asks again on unknown answer": {
			input:    "maybe\nno\n",
			expected: false,
			prompts:  2,
		},
		"end of input": {
			input:   "",
			errors:  true,
			prompts: 1,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			var errOut bytes.Buffer
			pr := New(strings.NewReader(tc.input), &bytes.Buffer{}, &errOut)

			answer, err := pr.Confirm("Proceed?")
			if tc.errors {
				assert.Error(t, err)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tc.expected, answer)
			}
			assert.Equal(t, tc.prompts, strings.Count(errOut.String(), "Proceed? [y/n] "))
		})
	}
}

func TestContext(t *testing.T) {
	pr := New(nil, nil, nil)
	ctx := WithContext(context.Background(), pr)
	assert.Equal(t, pr, FromContextOrDie(ctx))
	assert.Panics(t, func() { FromContextOrDie(context.Background()) })
}
