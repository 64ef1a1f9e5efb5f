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
	"fmt"
	"strings"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/types"
	"sigs.k8s.io/kustomize/kyaml/sets"
)

// Stage pairs a Repo with a temporary work tree and a private index. It is
// used to turn a directory into a tree object.
type Stage struct {
	repo *Repo

	// WorkTree is the directory that is staged.
	WorkTree string

	runner *GitLocalRunner
}

func (s *Stage) run(ctx context.Context, args ...string) (RunResult, error) {
	return s.runner.Run(ctx, s.args(args)...)
}

func (s *Stage) args(args []string) []string {
	return append([]string{
		"--git-dir=" + s.repo.GitDir,
		"--work-tree=" + s.WorkTree,
		"--literal-pathspecs",
		"-c", "core.autocrlf=false",
	}, args...)
}

// RestorePaths writes the given paths, as found in the tree of commit, into
// the work tree.
func (s *Stage) RestorePaths(ctx context.Context, commit string, paths []string) error {
	const op errors.Op = "gitutil.RestorePaths"
	if len(paths) == 0 {
		return nil
	}
	stdin := strings.NewReader(strings.Join(paths, "\x00"))
	_, err := s.runner.RunWithStdin(ctx, stdin, s.args([]string{
		"checkout", commit, "--pathspec-from-file=-", "--pathspec-file-nul",
	})...)
	if err != nil {
		return errors.E(op, types.UniquePath(s.WorkTree), err)
	}
	return nil
}

// WriteTree records the full contents of the work tree, ignored files
// included, as a tree object and returns its id.
func (s *Stage) WriteTree(ctx context.Context) (string, error) {
	const op errors.Op = "gitutil.WriteTree"
	if _, err := s.run(ctx, "add", "--all", "--force", "."); err != nil {
		return "", errors.E(op, types.UniquePath(s.WorkTree), err)
	}
	rr, err := s.run(ctx, "write-tree")
	if err != nil {
		return "", errors.E(op, types.UniquePath(s.WorkTree), err)
	}
	return strings.TrimSpace(rr.Stdout), nil
}

// UnmergedPaths returns the sorted paths that have unmerged entries in the
// index.
func (s *Stage) UnmergedPaths(ctx context.Context) ([]string, error) {
	const op errors.Op = "gitutil.UnmergedPaths"
	rr, err := s.run(ctx, "ls-files", "--unmerged", "-z")
	if err != nil {
		return nil, errors.E(op, types.UniquePath(s.WorkTree), err)
	}
	paths := sets.String{}
	for _, entry := range strings.Split(rr.Stdout, "\x00") {
		if entry == "" {
			continue
		}
		// <mode> <object> <stage>\t<path>
		i := strings.IndexByte(entry, '\t')
		if i < 0 {
			return nil, errors.E(op, errors.Git, fmt.Errorf("unexpected ls-files entry %q", entry))
		}
		paths.Insert(entry[i+1:])
	}
	if len(paths) == 0 {
		return nil, nil
	}
	return paths.List(), nil
}
