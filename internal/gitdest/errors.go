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
	"fmt"
	"strings"
)

// AmbiguousHistoryError is returned when the history search reaches a merge
// commit before finding a migration for the label. There is no way to tell
// which parent holds the migration history.
type AmbiguousHistoryError struct {
	Label   string
	Commit  string
	Parents []string
}

func (e *AmbiguousHistoryError) Error() string {
	return fmt.Sprintf("Found commit with multiple parents (merge commit) when looking for %s. "+
		"Please invoke transplant with the --baseline flag.", e.Label)
}

// RebaseConflictError is returned when the snapshot and the destination
// changed the same paths incompatibly since the baseline.
type RebaseConflictError struct {
	Baseline string
	Paths    []string
}

func (e *RebaseConflictError) Error() string {
	return "conflict in " + strings.Join(e.Paths, ", ")
}

// UserAbortError is returned when the operator does not confirm the pending
// change.
type UserAbortError struct{}

func (e *UserAbortError) Error() string {
	return "User aborted execution: did not confirm diff changes"
}

// PushError is returned when the commit was created but could not be
// published. The destination may have advanced concurrently.
type PushError struct {
	URL    string
	Ref    string
	Commit string
	Err    error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("error pushing %s to %s %s: %v", e.Commit, e.URL, e.Ref, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}
