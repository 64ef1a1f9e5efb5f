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

// Package types defines the path value types shared by the transplant
// packages.
package types

import (
	"os"
	"path/filepath"
	"strings"
)

// UniquePath represents an absolute OS-defined path on the filesystem, for
// example a destination folder or a staging work tree.
type UniquePath string

// String returns the absolute path in string format.
func (u UniquePath) String() string {
	return string(u)
}

// Empty returns true if the path is not set.
func (u UniquePath) Empty() bool {
	return len(u) == 0
}

// RelativePath returns the path relative to the current working directory.
// Paths outside of the working directory are returned unchanged.
func (u UniquePath) RelativePath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	rPath, err := filepath.Rel(cwd, string(u))
	if err != nil {
		return string(u), err
	}
	if strings.HasPrefix(rPath, "..") {
		return string(u), nil
	}
	return rPath, nil
}

// RepoPath is a slash-separated path relative to the root of a destination
// tree. It is the logical path that exclusion rules are evaluated against and
// never refers to storage-internal bookkeeping such as the .git directory.
type RepoPath string

// NewRepoPath converts an OS path relative to root into a RepoPath.
func NewRepoPath(root, path string) (RepoPath, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return RepoPath(filepath.ToSlash(rel)), nil
}

func (r RepoPath) String() string {
	return string(r)
}
