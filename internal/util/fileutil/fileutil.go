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

// Package fileutil contains the file tree operations shared by the
// destinations and the transformations.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/types"
	"github.com/otiai10/copy"
	"sigs.k8s.io/kustomize/kyaml/copyutil"
)

// NotADirectoryError is returned when a directory cannot be created because
// one of its path components already exists and is not a directory.
type NotADirectoryError struct {
	Path    string
	Blocker string
}

func (e *NotADirectoryError) Error() string {
	return fmt.Sprintf("Cannot create '%s' because '%s' already exists and is not a directory",
		e.Path, e.Blocker)
}

// EnsureDir creates dir and its parents. A non-directory in the way is
// reported as a *NotADirectoryError.
func EnsureDir(dir string) error {
	const op errors.Op = "fileutil.EnsureDir"
	dir = filepath.Clean(dir)
	for p := dir; ; p = filepath.Dir(p) {
		fi, err := os.Stat(p)
		if err == nil {
			if !fi.IsDir() {
				return errors.E(op, errors.Environment, types.UniquePath(dir),
					&NotADirectoryError{Path: dir, Blocker: p})
			}
			break
		}
		if filepath.Dir(p) == p {
			break
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(dir), err)
	}
	return nil
}

// CopyTree copies the contents of src into dst, overwriting existing files.
// Git directories are skipped and symlinks are copied as links. src is
// never modified.
func CopyTree(src, dst string) error {
	const op errors.Op = "fileutil.CopyTree"
	if err := EnsureDir(dst); err != nil {
		return errors.E(op, err)
	}
	opts := copy.Options{
		Skip: func(_ os.FileInfo, path, _ string) (bool, error) {
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return false, err
			}
			return copyutil.IsDotGitFolder(rel), nil
		},
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
	}
	if err := copy.Copy(src, dst, opts); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(dst),
			fmt.Errorf("error copying %s: %w", src, err))
	}
	return nil
}

// DeleteRecursively removes every file below root for which keep returns
// false, as well as the directories left empty afterwards. root itself is
// never removed. It returns the deleted files as destination relative paths.
func DeleteRecursively(root string, keep func(types.RepoPath) bool) ([]types.RepoPath, error) {
	const op errors.Op = "fileutil.DeleteRecursively"
	var deleted []types.RepoPath
	var dirs []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if info.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		rel, err := types.NewRepoPath(root, path)
		if err != nil {
			return err
		}
		if keep != nil && keep(rel) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return deleted, errors.E(op, errors.IO, types.UniquePath(root), err)
	}

	// Deepest directories first, so parents are empty by the time they are
	// visited.
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil {
			return deleted, errors.E(op, errors.IO, types.UniquePath(d), err)
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(d); err != nil {
			return deleted, errors.E(op, errors.IO, types.UniquePath(d), err)
		}
	}
	return deleted, nil
}
