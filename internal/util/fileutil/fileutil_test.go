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

package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/testutil"
	"github.com/kptdev/transplant/internal/types"
	. "github.com/kptdev/transplant/internal/util/fileutil"
	"github.com/stretchr/testify/assert"
)

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	testutil.WriteFiles(t, src, map[string]string{
		"a.txt":         "a",
		"dir/b.txt":     "b",
		".git/HEAD":     "ref: refs/heads/main",
		"dir/.git/HEAD": "ref: refs/heads/main",
	})
	dst := filepath.Join(t.TempDir(), "nested", "dst")
	testutil.WriteFiles(t, dst, map[string]string{
		"a.txt":   "old",
		"old.txt": "stays",
	})

	err := CopyTree(src, dst)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, map[string]string{
		"a.txt":     "a",
		"dir/b.txt": "b",
		"old.txt":   "stays",
	}, testutil.ReadTree(t, dst))
	_, err = os.Stat(filepath.Join(dst, ".git"))
	assert.True(t, os.IsNotExist(err))

	// The source is left untouched.
	assert.Equal(t, "a", testutil.ReadTree(t, src)["a.txt"])
}

func TestCopyTree_symlink(t *testing.T) {
	src := t.TempDir()
	testutil.WriteFiles(t, src, map[string]string{"a.txt": "a"})
	if !assert.NoError(t, os.Symlink("a.txt", filepath.Join(src, "link"))) {
		t.FailNow()
	}
	dst := t.TempDir()

	if !assert.NoError(t, CopyTree(src, dst)) {
		t.FailNow()
	}
	target, err := os.Readlink(filepath.Join(dst, "link"))
	if assert.NoError(t, err) {
		assert.Equal(t, "a.txt", target)
	}
}

func TestDeleteRecursively(t *testing.T) {
	testCases := map[string]struct {
		files           map[string]string
		keep            []string
		expectedFiles   map[string]string
		expectedDeleted []types.RepoPath
	}{
		"everything": {
			files: map[string]string{
				"a.txt":       "a",
				"dir/sub/b":   "b",
				"dir/c.txt":   "c",
				"other/d.txt": "d",
			},
			expectedFiles:   map[string]string{},
			expectedDeleted: []types.RepoPath{"a.txt", "dir/c.txt", "dir/sub/b", "other/d.txt"},
		},
		"keeps excluded files and their directories": {
			files: map[string]string{
				"keep.txt":       "X",
				"dir/keep.txt":   "Y",
				"dir/remove.txt": "Z",
			},
			keep: []string{"keep.txt", "dir/keep.txt"},
			expectedFiles: map[string]string{
				"keep.txt":     "X",
				"dir/keep.txt": "Y",
			},
			expectedDeleted: []types.RepoPath{"dir/remove.txt"},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			root := t.TempDir()
			testutil.WriteFiles(t, root, tc.files)
			keep := map[types.RepoPath]bool{}
			for _, k := range tc.keep {
				keep[types.RepoPath(k)] = true
			}

			deleted, err := DeleteRecursively(root, func(p types.RepoPath) bool { return keep[p] })
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.ElementsMatch(t, tc.expectedDeleted, deleted)
			assert.Equal(t, tc.expectedFiles, testutil.ReadTree(t, root))

			entries, err := os.ReadDir(root)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			for _, e := range entries {
				if e.IsDir() {
					sub, _ := os.ReadDir(filepath.Join(root, e.Name()))
					assert.NotEmpty(t, sub, "empty directory %s left behind", e.Name())
				}
			}
		})
	}
}

func TestEnsureDir_notADirectory(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"file": "x"})
	target := filepath.Join(root, "file", "sub")

	err := EnsureDir(target)
	if !assert.Error(t, err) {
		t.FailNow()
	}
	var notDir *NotADirectoryError
	if !assert.True(t, errors.As(err, &notDir)) {
		t.FailNow()
	}
	assert.Equal(t, filepath.Join(root, "file"), notDir.Blocker)
	assert.Equal(t, errors.Environment, errors.KindOf(err))
	assert.Contains(t, err.Error(),
		"Cannot create '"+target+"' because '"+filepath.Join(root, "file")+"' already exists and is not a directory")

	assert.NoError(t, EnsureDir(filepath.Join(root, "a", "b")))
}
