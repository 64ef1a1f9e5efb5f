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

package folder_test

import (
	"path/filepath"
	"testing"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/folder"
	"github.com/kptdev/transplant/internal/glob"
	"github.com/kptdev/transplant/internal/printer/fake"
	"github.com/kptdev/transplant/internal/testutil"
	"github.com/kptdev/transplant/internal/util/fileutil"
	"github.com/kptdev/transplant/pkg/destination"
	"github.com/stretchr/testify/assert"
)

func TestWrite(t *testing.T) {
	testCases := map[string]struct {
		existing      map[string]string
		content       map[string]string
		excluded      []string
		expectedFiles map[string]string
	}{
		"new directory": {
			content:       map[string]string{"a.txt": "a", "dir/b.txt": "b"},
			expectedFiles: map[string]string{"a.txt": "a", "dir/b.txt": "b"},
		},
		"previous data is deleted": {
			existing:      map[string]string{"old.txt": "old", "dir/old.txt": "old", "a.txt": "previous"},
			content:       map[string]string{"a.txt": "a"},
			expectedFiles: map[string]string{"a.txt": "a"},
		},
		"excluded files survive": {
			existing:      map[string]string{"keep.txt": "X", "sub/OWNERS": "me", "old.txt": "old"},
			content:       map[string]string{"a.txt": "a"},
			excluded:      []string{"keep.txt", "**/OWNERS"},
			expectedFiles: map[string]string{"keep.txt": "X", "sub/OWNERS": "me", "a.txt": "a"},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			pr := fake.New()
			ctx := fake.CtxWithPrinter(pr)
			dir := filepath.Join(t.TempDir(), "out")
			if tc.existing != nil {
				testutil.WriteFiles(t, dir, tc.existing)
			}
			workdir := t.TempDir()
			testutil.WriteFiles(t, workdir, tc.content)
			excluded, err := glob.New(tc.excluded...)
			testutil.AssertNoError(t, err)

			d, err := folder.New(ctx, dir, false)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			res, err := d.NewWriter().Write(ctx, destination.TransformResult{
				ContentRoot:   workdir,
				ExcludedPaths: excluded,
			})
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.Equal(t, destination.OK, res)
			assert.Equal(t, tc.expectedFiles, testutil.ReadTree(t, dir))
			assert.Equal(t, []string{
				"FolderDestination: creating " + dir,
				"FolderDestination: deleting previous data from " + dir,
				"FolderDestination: Copying contents of the workdir to " + dir,
			}, pr.Texts(fake.Progress))
		})
	}
}

func TestNew(t *testing.T) {
	pr := fake.New()
	ctx := fake.CtxWithPrinter(pr)

	_, err := folder.New(ctx, "", false)
	var validationErr *errors.ValidationError
	if assert.True(t, errors.As(err, &validationErr)) {
		assert.Equal(t, []string{"folder-dir"}, validationErr.Violations.Fields())
		assert.Contains(t, err.Error(), "--folder-dir is required with FolderDestination destination")
	}

	d, err := folder.New(ctx, "relative/out", true)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.True(t, filepath.IsAbs(d.Dir()))
	assert.Equal(t, []string{"Field 'askConfirmation' is ignored in FolderDestination."}, pr.Texts(fake.Warn))

	_, found, err := d.PreviousRef(ctx, destination.DefaultLabelName)
	assert.NoError(t, err)
	assert.False(t, found)
	_, err = d.LabelNameWhenOrigin()
	assert.True(t, errors.Is(err, destination.ErrUnsupported))
}

func TestWrite_notADirectory(t *testing.T) {
	ctx := fake.CtxWithNilPrinter()
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"file": "x"})
	dir := filepath.Join(root, "file", "out")

	d, err := folder.New(ctx, dir, false)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	_, err = d.NewWriter().Write(ctx, destination.TransformResult{ContentRoot: t.TempDir()})
	var notDir *fileutil.NotADirectoryError
	if assert.True(t, errors.As(err, &notDir)) {
		assert.Equal(t, filepath.Join(root, "file"), notDir.Blocker)
	}
	assert.Contains(t, err.Error(), "Cannot create '"+dir+"' because '"+filepath.Join(root, "file")+"' already exists and is not a directory")
}
