// Copyright 2019 The kpt Authors
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

// Package gitutil runs git as a subprocess and wraps the handful of
// plumbing commands the destinations need.
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/kptdev/transplant/internal/errors"
	"k8s.io/klog/v2"
)

// NewLocalGitRunner returns a new GitLocalRunner running commands in dir.
func NewLocalGitRunner(dir string) (*GitLocalRunner, error) {
	const op errors.Op = "gitutil.NewLocalGitRunner"
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, errors.E(op, errors.Git, &GitExecError{
			Type: GitExecutableNotFound,
			Err:  fmt.Errorf("no 'git' program on path: %w", err),
		})
	}

	return &GitLocalRunner{
		gitPath: p,
		Dir:     dir,
	}, nil
}

// GitLocalRunner runs git commands in a local git repo.
type GitLocalRunner struct {
	// Path to the git executable.
	gitPath string

	// Dir is the directory the commands are run in.
	Dir string

	// Env holds extra environment variables for every command, on top of
	// the environment of the current process.
	Env []string
}

type RunResult struct {
	Stdout string
	Stderr string
}

// WithEnv returns a copy of the runner with env appended to its environment.
func (g *GitLocalRunner) WithEnv(env ...string) *GitLocalRunner {
	cp := *g
	cp.Env = append(append([]string{}, g.Env...), env...)
	return &cp
}

// Run runs a git command.
// Omit the 'git' part of the command.
func (g *GitLocalRunner) Run(ctx context.Context, args ...string) (RunResult, error) {
	return g.run(ctx, nil, args...)
}

// RunWithStdin runs a git command, feeding stdin to the process.
func (g *GitLocalRunner) RunWithStdin(ctx context.Context, stdin io.Reader, args ...string) (RunResult, error) {
	return g.run(ctx, stdin, args...)
}

func (g *GitLocalRunner) run(ctx context.Context, stdin io.Reader, args ...string) (RunResult, error) {
	const op errors.Op = "gitutil.run"

	klog.V(2).Infof("git %s", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, g.gitPath, args...)
	cmd.Dir = g.Dir
	cmd.Env = append(os.Environ(), g.Env...)
	cmd.Stdin = stdin

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	cmd.Stdout = cmdStdout
	cmd.Stderr = cmdStderr

	err := cmd.Run()
	if err != nil {
		execErr := &GitExecError{
			Type:   determineErrorType(cmdStderr.String()),
			Args:   args,
			Err:    err,
			StdOut: cmdStdout.String(),
			StdErr: cmdStderr.String(),
		}
		if len(args) > 0 {
			execErr.Command = args[0]
		}
		return RunResult{
			Stdout: cmdStdout.String(),
			Stderr: cmdStderr.String(),
		}, errors.E(op, errors.Git, execErr)
	}
	return RunResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}
