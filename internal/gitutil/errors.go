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
	"os/exec"
	"regexp"
	"strings"

	"github.com/kptdev/transplant/internal/errors"
)

type GitExecErrorType int

const (
	Unknown GitExecErrorType = iota
	GitExecutableNotFound
	UnknownReference
	HTTPSAuthRequired
	RepositoryNotFound
	RepositoryUnavailable
	PushRejected
)

// GitExecError is returned when a git command exits with an error.
type GitExecError struct {
	Type    GitExecErrorType
	Args    []string
	Err     error
	Command string
	Repo    string
	Ref     string
	StdErr  string
	StdOut  string
}

func (e *GitExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString(e.Err.Error())
	b.WriteString(": ")
	b.WriteString(e.StdErr)
	return b.String()
}

func (e *GitExecError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code of the git process, or -1 if the process
// did not run to completion.
func (e *GitExecError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// AmendGitExecError calls f with the *GitExecError found in the chain of err,
// if there is one. It is used to attach the repo and ref to an error after
// the fact.
func AmendGitExecError(err error, f func(e *GitExecError)) {
	var gitExecErr *GitExecError
	if errors.As(err, &gitExecErr) {
		f(gitExecErr)
	}
}

// IsGitExecErrorType returns true if err wraps a *GitExecError of type t.
func IsGitExecErrorType(err error, t GitExecErrorType) bool {
	var gitExecErr *GitExecError
	return errors.As(err, &gitExecErr) && gitExecErr.Type == t
}

func determineErrorType(stdErr string) GitExecErrorType {
	switch {
	case strings.Contains(stdErr, "unknown revision or path not in the working tree"),
		strings.Contains(stdErr, "couldn't find remote ref"),
		strings.Contains(stdErr, "Not a valid object name"):
		return UnknownReference
	case strings.Contains(stdErr, "could not read Username"):
		return HTTPSAuthRequired
	case strings.Contains(stdErr, "Could not resolve host"),
		strings.Contains(stdErr, "Connection timed out"),
		strings.Contains(stdErr, "Connection refused"):
		return RepositoryUnavailable
	case matches(`fatal: repository '.*' not found`, stdErr),
		strings.Contains(stdErr, "does not appear to be a git repository"):
		return RepositoryNotFound
	case strings.Contains(stdErr, "[rejected]"),
		strings.Contains(stdErr, "[remote rejected]"),
		strings.Contains(stdErr, "failed to push some refs"):
		return PushRejected
	}
	return Unknown
}

func matches(pattern, s string) bool {
	matched, err := regexp.Match(pattern, []byte(s))
	if err != nil {
		// This should only return an error if the pattern is invalid, so
		// we just panic if that happens.
		panic(err)
	}
	return matched
}
