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

// Package config reads and validates workflow files.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/folder"
	"github.com/kptdev/transplant/internal/gitdest"
	"github.com/kptdev/transplant/internal/glob"
	"github.com/kptdev/transplant/internal/transform"
	"github.com/kptdev/transplant/internal/types"
	"github.com/kptdev/transplant/pkg/destination"
	"sigs.k8s.io/yaml"
)

// Authoring modes.
const (
	// Overwrite attributes every change to the default author.
	Overwrite = "overwrite"
	// PassThru keeps the author of the origin change when there is one.
	PassThru = "pass_thru"
)

// Workflow is the content of a workflow file.
type Workflow struct {
	Name string `json:"name,omitempty"`

	Origin Origin `json:"origin"`

	Destination Destination `json:"destination"`

	Authoring Authoring `json:"authoring,omitempty"`

	// ExcludedDestinationPaths are globs of destination paths that are
	// never modified.
	ExcludedDestinationPaths []string `json:"excludedDestinationPaths,omitempty"`

	AskConfirmation bool `json:"askConfirmation,omitempty"`

	Transformations []Transformation `json:"transformations,omitempty"`

	// CacheDir is not part of the file, it can only be set as an override.
	CacheDir string `json:"-"`

	// dir is the directory of the workflow file.
	dir string
}

type Origin struct {
	// Path is the directory holding the origin snapshot. Relative paths
	// are resolved against the workflow file.
	Path string `json:"path"`

	// LabelName defaults to destination.DefaultLabelName.
	LabelName string `json:"labelName,omitempty"`
}

// Destination holds exactly one destination kind.
type Destination struct {
	Git    *Git    `json:"git,omitempty"`
	Folder *Folder `json:"folder,omitempty"`
}

type Git struct {
	URL   string `json:"url"`
	Fetch string `json:"fetch,omitempty"`
	Push  string `json:"push"`
}

type Folder struct {
	// Path is resolved against the current directory.
	Path string `json:"path"`
}

type Authoring struct {
	Default string `json:"default,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// Transformation holds exactly one transformation kind.
type Transformation struct {
	Move *Move `json:"move,omitempty"`
}

type Move struct {
	Paths []transform.MoveElement `json:"paths"`
}

// ReadFile reads and decodes the workflow file at path. Unknown fields
// are rejected. The result is not validated.
func ReadFile(path string) (*Workflow, error) {
	const op errors.Op = "config.ReadFile"
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.E(op, errors.IO, types.UniquePath(path), err)
	}
	w, err := Parse(b)
	if err != nil {
		return nil, errors.E(op, types.UniquePath(path), err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.E(op, errors.IO, types.UniquePath(path), err)
	}
	w.dir = abs
	return w, nil
}

// Parse decodes a workflow. Relative origin paths are resolved against
// the current directory.
func Parse(b []byte) (*Workflow, error) {
	const op errors.Op = "config.Parse"
	var w Workflow
	if err := yaml.UnmarshalStrict(b, &w); err != nil {
		return nil, errors.E(op, errors.Validation, fmt.Errorf("invalid workflow file: %w", err))
	}
	return &w, nil
}

// Validate checks the workflow and returns a *errors.ValidationError
// listing every problem found.
func (w *Workflow) Validate() error {
	const op errors.Op = "config.Validate"
	var v errors.Violations

	if w.Origin.Path == "" {
		v.Add("origin.path", "", errors.Missing, "")
	}
	if w.Origin.LabelName != "" {
		if err := destination.ValidateLabelName(w.Origin.LabelName); err != nil {
			v.Add("origin.labelName", w.Origin.LabelName, errors.Invalid, err.Error())
		}
	}

	d := w.Destination
	switch {
	case d.Git == nil && d.Folder == nil:
		v.Add("destination", "", errors.Missing, "one of 'git' or 'folder' is required")
	case d.Git != nil && d.Folder != nil:
		v.Add("destination", "", errors.Invalid, "only one of 'git' or 'folder' can be set")
	case d.Git != nil:
		if d.Git.URL == "" {
			v.Add("destination.git.url", "", errors.Missing, "")
		}
		if d.Git.Push == "" {
			v.Add("destination.git.push", "", errors.Missing, "")
		}
	case d.Folder != nil:
		if d.Folder.Path == "" {
			v.Add("folder-dir", "", errors.Missing, folder.MissingDirReason)
		}
	}

	if w.Authoring.Default != "" {
		if _, err := destination.ParseAuthor(w.Authoring.Default); err != nil {
			v.Add("authoring.default", w.Authoring.Default, errors.Invalid, err.Error())
		}
	}
	switch w.Authoring.Mode {
	case "", Overwrite, PassThru:
	default:
		v.Add("authoring.mode", w.Authoring.Mode, errors.Invalid,
			fmt.Sprintf("must be one of %q or %q", Overwrite, PassThru))
	}

	for i, p := range w.ExcludedDestinationPaths {
		if err := glob.Validate(p); err != nil {
			v.Add(fmt.Sprintf("excludedDestinationPaths[%d]", i), p, errors.Invalid, err.Error())
		}
	}

	for i, t := range w.Transformations {
		field := fmt.Sprintf("transformations[%d]", i)
		if t.Move == nil {
			v.Add(field, "", errors.Missing, "unknown or empty transformation")
			continue
		}
		if _, err := transform.NewMoveFiles(t.Move.Paths); err != nil {
			var verr *errors.ValidationError
			if !errors.As(err, &verr) {
				return errors.E(op, err)
			}
			for _, vio := range verr.Violations {
				v.Add(field+".move."+vio.Field, vio.Value, vio.Type, vio.Reason)
			}
		}
	}

	if err := v.Err(); err != nil {
		return errors.E(op, errors.Validation, err)
	}
	return nil
}

// OriginDir returns the absolute path of the origin directory.
func (w *Workflow) OriginDir() (string, error) {
	return resolve(w.dir, w.Origin.Path)
}

// LabelName returns the configured label name or the default one.
func (w *Workflow) LabelName() string {
	if w.Origin.LabelName == "" {
		return destination.DefaultLabelName
	}
	return w.Origin.LabelName
}

// DefaultAuthor returns the configured default author, or
// destination.DefaultAuthor.
func (w *Workflow) DefaultAuthor() (destination.Author, error) {
	if w.Authoring.Default == "" {
		return destination.DefaultAuthor, nil
	}
	return destination.ParseAuthor(w.Authoring.Default)
}

// PassThruAuthor returns true if origin authors are kept.
func (w *Workflow) PassThruAuthor() bool {
	return w.Authoring.Mode == PassThru
}

// ExcludedPaths returns the matcher for the excluded destination paths.
func (w *Workflow) ExcludedPaths() (*glob.PathMatcher, error) {
	return glob.New(w.ExcludedDestinationPaths...)
}

// Sequence returns the configured transformations.
func (w *Workflow) Sequence() (transform.Sequence, error) {
	const op errors.Op = "config.Sequence"
	var seq transform.Sequence
	for _, t := range w.Transformations {
		if t.Move == nil {
			continue
		}
		m, err := transform.NewMoveFiles(t.Move.Paths)
		if err != nil {
			return nil, errors.E(op, err)
		}
		seq = append(seq, m)
	}
	return seq, nil
}

// NewDestination builds the configured destination.
func (w *Workflow) NewDestination(ctx context.Context) (destination.Destination, error) {
	const op errors.Op = "config.NewDestination"
	d := w.Destination
	switch {
	case d.Git != nil:
		dest, err := gitdest.New(gitdest.Options{
			URL:             d.Git.URL,
			Fetch:           d.Git.Fetch,
			Push:            d.Git.Push,
			AskConfirmation: w.AskConfirmation,
			CacheDir:        w.CacheDir,
		})
		if err != nil {
			return nil, errors.E(op, err)
		}
		return dest, nil
	case d.Folder != nil:
		dest, err := folder.New(ctx, d.Folder.Path, w.AskConfirmation)
		if err != nil {
			return nil, errors.E(op, err)
		}
		return dest, nil
	}
	return nil, errors.E(op, errors.Validation, fmt.Errorf("no destination configured"))
}

func resolve(base, p string) (string, error) {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return filepath.Abs(p)
	}
	return filepath.Join(base, p), nil
}
