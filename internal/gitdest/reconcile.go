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

package gitdest

import (
	"context"
	"path/filepath"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/gitutil"
	"github.com/kptdev/transplant/internal/glob"
	"github.com/kptdev/transplant/internal/types"
	"github.com/kptdev/transplant/internal/util/fileutil"
	"k8s.io/klog/v2"
)

// reconciler turns a content root into destination trees. It works on a
// private copy of the content root in tmpDir and never touches a ref.
type reconciler struct {
	repo        *gitutil.Repo
	contentRoot string
	excluded    *glob.PathMatcher
	tmpDir      string
}

// stage returns the tree of the content root laid over base: paths matching
// the exclusions keep their state in base, every other path is taken from
// the content root, and files of base missing from the content root are
// dropped. An empty base is an empty destination.
func (r *reconciler) stage(ctx context.Context, base string) (string, error) {
	const op errors.Op = "gitdest.stage"
	workTree := filepath.Join(r.tmpDir, "tree")
	if err := fileutil.CopyTree(r.contentRoot, workTree); err != nil {
		return "", errors.E(op, err)
	}

	// Excluded paths belong to the destination, whatever the content root
	// holds for them.
	dropped, err := fileutil.DeleteRecursively(workTree, func(p types.RepoPath) bool {
		return !r.excluded.Matches(p)
	})
	if err != nil {
		return "", errors.E(op, err)
	}
	for _, p := range dropped {
		klog.V(3).Infof("ignoring excluded path %s of the content root", p)
	}

	stage := r.repo.Stage(workTree, filepath.Join(r.tmpDir, "index"))
	if base != "" && !r.excluded.Empty() {
		files, err := r.repo.ListFiles(ctx, base)
		if err != nil {
			return "", errors.E(op, err)
		}
		if err := stage.RestorePaths(ctx, base, r.excluded.Filter(files)); err != nil {
			return "", errors.E(op, err)
		}
	}
	tree, err := stage.WriteTree(ctx)
	if err != nil {
		return "", errors.E(op, err)
	}
	return tree, nil
}

// rebase applies the change from baseline to snapshot on top of tip with a
// three-way merge and returns the merged tree. snapshot is a commit whose
// parent is baseline.
func (r *reconciler) rebase(ctx context.Context, baseline, tip, snapshot string) (string, error) {
	const op errors.Op = "gitdest.rebase"
	res, err := r.repo.MergeTrees(ctx, baseline, tip, snapshot)
	if err != nil {
		return "", errors.E(op, err)
	}
	if len(res.Conflicts) > 0 {
		return "", errors.E(op, errors.Conflict,
			&RebaseConflictError{Baseline: baseline, Paths: res.Conflicts})
	}
	return res.Tree, nil
}
