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

// Package folder implements a destination that writes snapshots to a local
// directory, replacing its previous content. It keeps no history.
package folder

import (
	"context"
	"path/filepath"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/printer"
	"github.com/kptdev/transplant/internal/types"
	"github.com/kptdev/transplant/internal/util/fileutil"
	"github.com/kptdev/transplant/pkg/destination"
)

// MissingDirReason explains the violation reported when no directory is
// configured.
const MissingDirReason = "--folder-dir is required with FolderDestination destination"

// Destination writes snapshots to a directory.
type Destination struct {
	dir string
}

var _ destination.Destination = &Destination{}

// New returns a Destination writing to dir. Relative paths are resolved
// against the current directory.
func New(ctx context.Context, dir string, askConfirmation bool) (*Destination, error) {
	const op errors.Op = "folder.New"
	if askConfirmation {
		printer.FromContextOrDie(ctx).Warnf("Field 'askConfirmation' is ignored in FolderDestination.")
	}
	if dir == "" {
		var v errors.Violations
		v.Add("folder-dir", "", errors.Missing, MissingDirReason)
		return nil, errors.E(op, errors.Validation, v.Err())
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.E(op, errors.IO, types.UniquePath(dir), err)
	}
	return &Destination{dir: abs}, nil
}

// Dir returns the absolute path of the directory.
func (d *Destination) Dir() string {
	return d.dir
}

func (d *Destination) NewWriter() destination.Writer {
	return &writer{dir: d.dir}
}

// PreviousRef always reports that there is no previous migration.
func (d *Destination) PreviousRef(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (d *Destination) LabelNameWhenOrigin() (string, error) {
	return "", destination.ErrUnsupported
}

type writer struct {
	dir string
}

// Write deletes everything in the directory that is not excluded and copies
// the content root in.
func (w *writer) Write(ctx context.Context, result destination.TransformResult) (destination.WriterResult, error) {
	const op errors.Op = "folder.Write"
	pr := printer.FromContextOrDie(ctx)
	if result.ContentRoot == "" {
		var v errors.Violations
		v.Add("contentRoot", "", errors.Missing, "")
		return destination.OK, errors.E(op, errors.Validation, v.Err())
	}

	pr.Progressf("FolderDestination: creating %s", w.dir)
	if err := fileutil.EnsureDir(w.dir); err != nil {
		return destination.OK, errors.E(op, err)
	}

	pr.Progressf("FolderDestination: deleting previous data from %s", w.dir)
	if _, err := fileutil.DeleteRecursively(w.dir, result.ExcludedPaths.Matches); err != nil {
		return destination.OK, errors.E(op, err)
	}

	pr.Progressf("FolderDestination: Copying contents of the workdir to %s", w.dir)
	if err := fileutil.CopyTree(result.ContentRoot, w.dir); err != nil {
		return destination.OK, errors.E(op, err)
	}
	return destination.OK, nil
}
