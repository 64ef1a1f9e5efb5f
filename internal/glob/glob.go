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

// Package glob compiles the path globs used to exclude destination files
// from being overwritten or deleted.
package glob

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/types"
)

// PathMatcher matches destination relative paths against a list of globs.
// A '*' matches within a single path segment and '**' matches any number of
// segments. The zero value matches nothing.
type PathMatcher struct {
	patterns []string
}

// New validates patterns and returns a PathMatcher for them.
func New(patterns ...string) (*PathMatcher, error) {
	const op errors.Op = "glob.New"
	for _, p := range patterns {
		if err := Validate(p); err != nil {
			return nil, errors.E(op, errors.InvalidParam, err)
		}
	}
	return &PathMatcher{patterns: append([]string{}, patterns...)}, nil
}

// Validate returns an error if pattern is not a relative, normalized glob.
func Validate(pattern string) error {
	switch {
	case pattern == "":
		return fmt.Errorf("empty glob")
	case strings.HasPrefix(pattern, "/"):
		return fmt.Errorf("glob %q must be relative to the destination root", pattern)
	case !doublestar.ValidatePattern(pattern):
		return fmt.Errorf("invalid glob %q", pattern)
	}
	for _, segment := range strings.Split(pattern, "/") {
		if segment == "." || segment == ".." || segment == "" {
			return fmt.Errorf("glob %q is not normalized", pattern)
		}
	}
	return nil
}

// Matches returns true if p matches any of the globs.
func (m *PathMatcher) Matches(p types.RepoPath) bool {
	if m == nil {
		return false
	}
	name := path.Clean(string(p))
	for _, pattern := range m.patterns {
		// Patterns were validated in New, so Match cannot fail.
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Filter returns the paths that match, in their original order.
func (m *PathMatcher) Filter(paths []string) []string {
	var matched []string
	for _, p := range paths {
		if m.Matches(types.RepoPath(p)) {
			matched = append(matched, p)
		}
	}
	return matched
}

// Empty returns true if the matcher has no globs.
func (m *PathMatcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

// Patterns returns the globs of the matcher.
func (m *PathMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string{}, m.patterns...)
}

func (m *PathMatcher) String() string {
	return fmt.Sprintf("glob(%s)", strings.Join(m.Patterns(), ", "))
}
