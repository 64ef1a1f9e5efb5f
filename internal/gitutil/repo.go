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

package gitutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/types"
	"k8s.io/klog/v2"
)

// EmptyTree is the id of the tree object with no entries.
const EmptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Repo is a git directory. Commands are run with an explicit --git-dir so
// the repository never needs a checkout of its own.
type Repo struct {
	// GitDir is the path to the git directory.
	GitDir string

	runner *GitLocalRunner
}

// OpenRepo returns a Repo for the git directory at gitDir.
func OpenRepo(gitDir string) (*Repo, error) {
	const op errors.Op = "gitutil.OpenRepo"
	r, err := NewLocalGitRunner(gitDir)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return &Repo{GitDir: gitDir, runner: r}, nil
}

// Run runs a git command against the repository.
func (r *Repo) Run(ctx context.Context, args ...string) (RunResult, error) {
	return r.runner.Run(ctx, r.args(args)...)
}

// Stage returns a Stage that uses workTree as the work tree and a private
// index file at indexFile. Neither path may be inside the other. Stage
// commands run from the root of workTree, so pathspecs are relative to it.
func (r *Repo) Stage(workTree, indexFile string) *Stage {
	runner := r.runner.WithEnv("GIT_INDEX_FILE=" + indexFile)
	runner.Dir = workTree
	return &Stage{
		repo:     r,
		WorkTree: workTree,
		runner:   runner,
	}
}

func (r *Repo) args(args []string) []string {
	return append([]string{"--git-dir=" + r.GitDir, "-c", "core.autocrlf=false"}, args...)
}

// Fetch fetches ref from url and returns the commit it points to. The last
// return value is false if the remote has no such ref, which is the case for
// a branch that has not been created yet or an empty repository.
func (r *Repo) Fetch(ctx context.Context, url, ref string) (string, bool, error) {
	const op errors.Op = "gitutil.Fetch"
	_, err := r.Run(ctx, "fetch", "--no-tags", "--quiet", url, ref)
	if err != nil {
		if IsGitExecErrorType(err, UnknownReference) {
			return "", false, nil
		}
		AmendGitExecError(err, func(e *GitExecError) {
			e.Repo = url
			e.Ref = ref
		})
		return "", false, errors.E(op, errors.Repo(url), err)
	}
	sha, err := r.RevParse(ctx, "FETCH_HEAD")
	if err != nil {
		return "", false, errors.E(op, errors.Repo(url), err)
	}
	return sha, true, nil
}

// Push pushes commit to ref in url. When force is true the remote ref is
// overwritten regardless of its current value.
func (r *Repo) Push(ctx context.Context, url, commit, ref string, force bool) error {
	const op errors.Op = "gitutil.Push"
	refspec := commit + ":" + ref
	if force {
		refspec = "+" + refspec
	}
	if _, err := r.Run(ctx, "push", "--quiet", url, refspec); err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Repo = url
			e.Ref = ref
		})
		return errors.E(op, errors.Repo(url), err)
	}
	return nil
}

// RevParse resolves rev to a full object id.
func (r *Repo) RevParse(ctx context.Context, rev string) (string, error) {
	const op errors.Op = "gitutil.RevParse"
	rr, err := r.Run(ctx, "rev-parse", "--verify", "--end-of-options", rev)
	if err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Ref = rev
			e.Type = UnknownReference
		})
		return "", errors.E(op, err)
	}
	return strings.TrimSpace(rr.Stdout), nil
}

// CommitExists returns true if rev names a commit present in the repository.
func (r *Repo) CommitExists(ctx context.Context, rev string) bool {
	_, err := r.Run(ctx, "cat-file", "-e", rev+"^{commit}")
	return err == nil
}

// TreeOf returns the tree id of commit. An empty commit id yields EmptyTree.
func (r *Repo) TreeOf(ctx context.Context, commit string) (string, error) {
	if commit == "" {
		return EmptyTree, nil
	}
	return r.RevParse(ctx, commit+"^{tree}")
}

// ListFiles lists all file paths in the tree of commit.
func (r *Repo) ListFiles(ctx context.Context, commit string) ([]string, error) {
	const op errors.Op = "gitutil.ListFiles"
	if commit == "" {
		return nil, nil
	}
	rr, err := r.Run(ctx, "ls-tree", "-r", "-z", "--name-only", commit)
	if err != nil {
		return nil, errors.E(op, err)
	}
	var files []string
	for _, f := range strings.Split(rr.Stdout, "\x00") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}

// Signature identifies the author or committer of a commit.
type Signature struct {
	Name  string
	Email string
	// Date is in git's internal format: "<unix seconds> <+hhmm>". Empty means now.
	Date string
}

// CommitTree creates a commit object for tree with the given parents and
// message, and returns its id. The repository refs are not updated.
func (r *Repo) CommitTree(ctx context.Context, tree string, parents []string, message string,
	author, committer Signature) (string, error) {
	const op errors.Op = "gitutil.CommitTree"
	args := []string{"commit-tree", tree}
	for _, p := range parents {
		args = append(args, "-p", p)
	}
	runner := r.runner.WithEnv(
		"GIT_AUTHOR_NAME="+author.Name,
		"GIT_AUTHOR_EMAIL="+author.Email,
		"GIT_COMMITTER_NAME="+committer.Name,
		"GIT_COMMITTER_EMAIL="+committer.Email,
	)
	if author.Date != "" {
		runner = runner.WithEnv("GIT_AUTHOR_DATE=" + author.Date)
	}
	if committer.Date != "" {
		runner = runner.WithEnv("GIT_COMMITTER_DATE=" + committer.Date)
	}
	rr, err := runner.RunWithStdin(ctx, strings.NewReader(message), r.args(args)...)
	if err != nil {
		return "", errors.E(op, err)
	}
	return strings.TrimSpace(rr.Stdout), nil
}

// MergeResult is the outcome of a three-way tree merge.
type MergeResult struct {
	// Tree is the merged tree. It is empty when there are conflicts.
	Tree string
	// Conflicts lists, sorted, the paths that could not be merged cleanly.
	Conflicts []string
}

// MergeTrees merges ours and theirs using base as the merge ancestor. The
// merge runs in a scratch work tree and index, so neither the refs nor any
// checkout of the repository are touched.
func (r *Repo) MergeTrees(ctx context.Context, base, ours, theirs string) (MergeResult, error) {
	const op errors.Op = "gitutil.MergeTrees"
	dir, err := os.MkdirTemp("", "transplant-merge-")
	if err != nil {
		return MergeResult{}, errors.E(op, errors.IO, err)
	}
	defer os.RemoveAll(dir)
	workTree := filepath.Join(dir, "tree")
	if err := os.Mkdir(workTree, 0700); err != nil {
		return MergeResult{}, errors.E(op, errors.IO, types.UniquePath(workTree), err)
	}

	s := r.Stage(workTree, filepath.Join(dir, "index"))
	// A three-way read-tree expects the index to hold ours.
	if _, err := s.run(ctx, "read-tree", ours); err != nil {
		return MergeResult{}, errors.E(op, err)
	}
	if _, err := s.run(ctx, "read-tree", "-m", "-u", base, ours, theirs); err != nil {
		return MergeResult{}, errors.E(op, err)
	}
	// merge-index fails if any path could not be merged. Those paths are
	// left unmerged in the index.
	_, mergeErr := s.run(ctx, "merge-index", "-o", "git-merge-one-file", "-a")
	conflicts, err := s.UnmergedPaths(ctx)
	if err != nil {
		return MergeResult{}, errors.E(op, err)
	}
	if len(conflicts) > 0 {
		klog.V(2).Infof("merge of %s and %s has conflicts in %v", ours, theirs, conflicts)
		return MergeResult{Conflicts: conflicts}, nil
	}
	if mergeErr != nil {
		return MergeResult{}, errors.E(op, mergeErr)
	}
	rr, err := s.run(ctx, "write-tree")
	if err != nil {
		return MergeResult{}, errors.E(op, err)
	}
	return MergeResult{Tree: strings.TrimSpace(rr.Stdout)}, nil
}

// DiffTrees returns a patch describing the changes from tree a to tree b.
func (r *Repo) DiffTrees(ctx context.Context, a, b string) (string, error) {
	const op errors.Op = "gitutil.DiffTrees"
	rr, err := r.Run(ctx, "diff", "--no-color", "--no-ext-diff", "--binary", a, b)
	if err != nil {
		return "", errors.E(op, err)
	}
	return rr.Stdout, nil
}
