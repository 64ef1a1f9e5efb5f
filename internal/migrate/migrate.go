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

// Package migrate runs a workflow: it transforms a copy of the origin
// directory and writes the result to the destination.
package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kptdev/transplant/internal/config"
	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/gitutil"
	"github.com/kptdev/transplant/internal/printer"
	"github.com/kptdev/transplant/internal/types"
	"github.com/kptdev/transplant/internal/util/fileutil"
	"github.com/kptdev/transplant/pkg/destination"
	"k8s.io/klog/v2"
)

// Options are the per run settings of a migration.
type Options struct {
	// OriginRef identifies the origin snapshot. Empty means HEAD of the
	// origin directory, which must then be a git work tree.
	OriginRef string

	// Baseline is the destination commit the origin was last imported
	// at, or destination.LastMigrated. Empty publishes without a baseline.
	Baseline string

	// Summary of the destination change. Empty means the default
	// summary.
	Summary string
}

// Migrator runs a single workflow.
type Migrator struct {
	Workflow *config.Workflow

	// NewDestination builds the destination. Defaults to
	// Workflow.NewDestination.
	NewDestination func(ctx context.Context) (destination.Destination, error)
}

// New returns a Migrator for w.
func New(w *config.Workflow) *Migrator {
	return &Migrator{Workflow: w, NewDestination: w.NewDestination}
}

// Run performs the migration.
func (m *Migrator) Run(ctx context.Context, opts Options) (destination.WriterResult, error) {
	const op errors.Op = "migrate.Run"
	pr := printer.FromContextOrDie(ctx)
	w := m.Workflow

	originDir, err := w.OriginDir()
	if err != nil {
		return 0, errors.E(op, errors.IO, err)
	}
	if fi, err := os.Stat(originDir); err != nil || !fi.IsDir() {
		var v errors.Violations
		v.Add("origin.path", w.Origin.Path, errors.Invalid, fmt.Sprintf("%s is not a directory", originDir))
		return 0, errors.E(op, errors.Validation, types.UniquePath(originDir), v.Err())
	}

	seq, err := w.Sequence()
	if err != nil {
		return 0, errors.E(op, err)
	}
	excluded, err := w.ExcludedPaths()
	if err != nil {
		return 0, errors.E(op, errors.Validation, err)
	}
	author, err := w.DefaultAuthor()
	if err != nil {
		return 0, errors.E(op, errors.Validation, err)
	}

	origin, err := describeOrigin(ctx, originDir, opts.OriginRef)
	if err != nil {
		return 0, errors.E(op, err)
	}
	if w.PassThruAuthor() && !origin.author.Empty() {
		author = origin.author
	}

	dest, err := m.NewDestination(ctx)
	if err != nil {
		return 0, errors.E(op, err)
	}

	workdir, err := os.MkdirTemp("", "transplant-workdir-")
	if err != nil {
		return 0, errors.E(op, errors.IO, err)
	}
	defer os.RemoveAll(workdir)

	pr.Progressf("Copying origin %s", originDir)
	if err := fileutil.CopyTree(originDir, workdir); err != nil {
		return 0, errors.E(op, err)
	}
	if err := seq.Transform(ctx, workdir); err != nil {
		return 0, errors.E(op, err)
	}

	result := destination.TransformResult{
		ContentRoot:   workdir,
		OriginRef:     origin.ref,
		LabelName:     w.LabelName(),
		Author:        author,
		Timestamp:     origin.timestamp,
		Summary:       opts.Summary,
		ExcludedPaths: excluded,
	}
	if opts.Baseline != "" {
		result = result.WithBaseline(opts.Baseline)
	}
	klog.V(1).Infof("writing %s at %s", w.LabelName(), origin.ref)
	res, err := dest.NewWriter().Write(ctx, result)
	if err != nil {
		return 0, errors.E(op, err)
	}
	return res, nil
}

// LastMigrated returns the origin ref recorded in the destination by the
// last migration of the workflow.
func (m *Migrator) LastMigrated(ctx context.Context) (string, bool, error) {
	const op errors.Op = "migrate.LastMigrated"
	dest, err := m.NewDestination(ctx)
	if err != nil {
		return "", false, errors.E(op, err)
	}
	ref, found, err := dest.PreviousRef(ctx, m.Workflow.LabelName())
	if err != nil {
		return "", false, errors.E(op, err)
	}
	return ref, found, nil
}

type originInfo struct {
	ref       string
	author    destination.Author
	timestamp time.Time
}

// describeOrigin resolves the origin ref and, when the origin directory is
// the root of a git work tree, the author and date of the origin commit. A
// directory nested inside some other work tree is not a git origin.
func describeOrigin(ctx context.Context, dir, ref string) (originInfo, error) {
	const op errors.Op = "migrate.describeOrigin"
	info := originInfo{ref: ref}
	notGit := func(reason string) (originInfo, error) {
		if ref != "" {
			klog.V(1).Infof("not reading origin metadata of %s: %s", dir, reason)
			return info, nil
		}
		var v errors.Violations
		v.Add("origin-ref", "", errors.Missing,
			fmt.Sprintf("%s is not a git work tree, --origin-ref is required", dir))
		return originInfo{}, errors.E(op, errors.Validation, types.UniquePath(dir), v.Err())
	}

	runner, err := gitutil.NewLocalGitRunner(dir)
	if err != nil {
		if ref != "" {
			klog.V(1).Infof("not reading origin metadata: %v", err)
			return info, nil
		}
		return originInfo{}, errors.E(op, err)
	}
	rr, err := runner.Run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return notGit("not a git work tree")
	}
	if !samePath(strings.TrimSpace(rr.Stdout), dir) {
		return notGit("it is inside the work tree " + strings.TrimSpace(rr.Stdout))
	}

	rev := ref
	if rev == "" {
		rev = "HEAD"
	}
	rr, err = runner.Run(ctx, "log", "-1", "--no-color", "--format=%H%x1f%an%x1f%ae%x1f%at", rev, "--")
	if err != nil {
		return notGit(fmt.Sprintf("%s is not a commit", rev))
	}
	fields := strings.Split(strings.TrimSpace(rr.Stdout), "\x1f")
	if len(fields) != 4 {
		return originInfo{}, errors.E(op, errors.Git, fmt.Errorf("unexpected git log output %q", rr.Stdout))
	}
	if info.ref == "" {
		info.ref = fields[0]
	}
	info.author = destination.Author{Name: fields[1], Email: fields[2]}
	if secs, err := strconv.ParseInt(fields[3], 10, 64); err == nil {
		info.timestamp = time.Unix(secs, 0)
	}
	return info, nil
}

// samePath reports whether a and b name the same directory once symlinks
// are resolved.
func samePath(a, b string) bool {
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ra == rb
}
