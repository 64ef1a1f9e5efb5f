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

package glob_test

import (
	"testing"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/glob"
	"github.com/kptdev/transplant/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPathMatcher_Matches(t *testing.T) {
	testCases := map[string]struct {
		patterns []string
		path     string
		expected bool
	}{
		"exact file": {
			patterns: []string{"keep.txt"},
			path:     "keep.txt",
			expected: true,
		},
		"exact file does not match nested file": {
			patterns: []string{"keep.txt"},
			path:     "dir/keep.txt",
			expected: false,
		},
		"single star stays in segment": {
			patterns: []string{"*.txt"},
			path:     "dir/a.txt",
			expected: false,
		},
		"double star crosses segments": {
			patterns: []string{"**/OWNERS"},
			path:     "a/b/OWNERS",
			expected: true,
		},
		"double star matches top level": {
			patterns: []string{"**/OWNERS"},
			path:     "OWNERS",
			expected: true,
		},
		"directory contents": {
			patterns: []string{"docs/**"},
			path:     "docs/a/b.md",
			expected: true,
		},
		"second pattern": {
			patterns: []string{"a", "b/*"},
			path:     "b/c",
			expected: true,
		},
		"no patterns": {
			path:     "a",
			expected: false,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			m, err := glob.New(tc.patterns...)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.Equal(t, tc.expected, m.Matches(types.RepoPath(tc.path)))
		})
	}
}

func TestNew_invalid(t *testing.T) {
	for _, p := range []string{"", "/abs", "a/../b", "./a", "a//b", "[a"} {
		t.Run(p, func(t *testing.T) {
			_, err := glob.New(p)
			if assert.Error(t, err) {
				assert.Equal(t, errors.InvalidParam, errors.KindOf(err))
			}
		})
	}
}

func TestPathMatcher_Filter(t *testing.T) {
	m, err := glob.New("**/HEAD", "keep.txt")
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, []string{"refs/HEAD", "keep.txt"},
		m.Filter([]string{"a.txt", "refs/HEAD", "keep.txt", "keep.txt.bak"}))

	var zero *glob.PathMatcher
	assert.True(t, zero.Empty())
	assert.False(t, zero.Matches("a"))
	assert.False(t, m.Empty())
}
