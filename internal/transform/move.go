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

package transform

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/printer"
	"github.com/kptdev/transplant/internal/types"
	"github.com/kptdev/transplant/internal/util/fileutil"
)

// MoveElement moves a file or directory. An empty Before moves the whole
// workdir, an empty After moves to the root of the workdir.
type MoveElement struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// MoveFiles moves and renames files.
type MoveFiles struct {
	paths []MoveElement
}

// NewMoveFiles validates paths and returns a MoveFiles.
func NewMoveFiles(paths []MoveElement) (*MoveFiles, error) {
	const op errors.Op = "transform.NewMoveFiles"
	var v errors.Violations
	if len(paths) == 0 {
		v.Add("paths", "", errors.Missing, "'paths' attribute is required and cannot be empty. "+
			"At least one file movement/rename is needed.")
	}
	for i, p := range paths {
		if err := ValidatePath(p.Before); err != nil {
			v.Add(fmt.Sprintf("paths[%d].before", i), p.Before, errors.Invalid, err.Error())
		}
		if err := ValidatePath(p.After); err != nil {
			v.Add(fmt.Sprintf("paths[%d].after", i), p.After, errors.Invalid, err.Error())
		}
	}
	if err := v.Err(); err != nil {
		return nil, errors.E(op, errors.Validation, err)
	}
	return &MoveFiles{paths: append([]MoveElement{}, paths...)}, nil
}

// ValidatePath returns an error unless p is a normalized path relative to
// the workdir that stays inside it.
func ValidatePath(p string) error {
	clean := path.Clean(filepath.ToSlash(p))
	if p != "" && (filepath.IsAbs(p) || strings.HasPrefix(p, "/") ||
		clean != strings.TrimSuffix(filepath.ToSlash(p), "/") ||
		clean == ".." || strings.HasPrefix(clean, "../")) {
		return fmt.Errorf("'%s' is not a relative path", p)
	}
	return nil
}

func (m *MoveFiles) Describe() string {
	return fmt.Sprintf("Renaming %d file(s)", len(m.paths))
}

func (m *MoveFiles) Reverse() (Transformation, error) {
	const op errors.Op = "transform.MoveFiles.Reverse"
	return nil, errors.E(op, errors.InvalidParam, fmt.Errorf("MoveFiles: %w", ErrNotReversible))
}

func (m *MoveFiles) Transform(ctx context.Context, workdir string) error {
	const op errors.Op = "transform.MoveFiles"
	pr := printer.FromContextOrDie(ctx)
	for _, e := range m.paths {
		pr.Progressf("Moving %s", e.Before)
		if err := move(workdir, e); err != nil {
			return errors.E(op, types.UniquePath(workdir), err)
		}
	}
	return nil
}

func move(workdir string, e MoveElement) error {
	before := filepath.Join(workdir, filepath.FromSlash(e.Before))
	after := filepath.Join(workdir, filepath.FromSlash(e.After))
	if _, err := os.Lstat(before); err != nil {
		if os.IsNotExist(err) {
			return errors.E(errors.Validation,
				fmt.Errorf("Error moving '%s'. It doesn't exist in the workdir", e.Before))
		}
		return errors.E(errors.IO, err)
	}

	// Moving a directory into one of its own subdirectories is only allowed
	// when the target has no files, anything else is most likely a mistake.
	if fi, err := os.Lstat(after); err == nil && fi.IsDir() && within(before, after) {
		if err := verifyNoFiles(after); err != nil {
			return err
		}
	}
	if err := fileutil.EnsureDir(filepath.Dir(after)); err != nil {
		return err
	}

	return filepath.Walk(before, func(src string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if src == after {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(before, src)
		if err != nil {
			return err
		}
		dst := filepath.Join(after, rel)
		if err := fileutil.EnsureDir(filepath.Dir(dst)); err != nil {
			return err
		}
		if _, err := os.Lstat(dst); err == nil {
			return errors.E(errors.Validation,
				fmt.Errorf("Cannot move file to '%s' because it already exists", dst))
		}
		if err := os.Rename(src, dst); err != nil {
			return errors.E(errors.IO, err)
		}
		return nil
	})
}

// within returns true if p is dir or is inside dir.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func verifyNoFiles(dir string) error {
	var existing []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		existing = append(existing, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return errors.E(errors.IO, err)
	}
	if len(existing) > 0 {
		sort.Strings(existing)
		return errors.E(errors.Validation, fmt.Errorf("Files already exist in %s: [%s]",
			dir, strings.Join(existing, ", ")))
	}
	return nil
}
