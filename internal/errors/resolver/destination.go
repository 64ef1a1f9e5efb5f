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

package resolver

import (
	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/gitdest"
	"github.com/kptdev/transplant/internal/util/fileutil"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&destinationErrorResolver{})
}

const (
	//nolint:lll
	ambiguousHistoryMsg = `
Error: Found commit with multiple parents (merge commit) when looking for {{ .label }}.
Commit {{ .commit }} has parents {{ join .parents ", " }} and only one of them can hold the migration history.
Please invoke transplant with the --baseline flag.
`

	conflictMsg = `
Error: The migrated changes conflict with changes made in the destination since {{ .baseline }}.
Conflicting paths:
{{- template "PathList" . }}
Please resolve the conflicts in the destination and run the migration again.
`

	userAbortMsg = `
Error: User aborted execution: did not confirm diff changes.
`

	pushMsg = `
Error: Pushing {{ .commit }} to {{ printf "%q" .ref }} in repo {{ printf "%q" .url }} failed. The destination may have changed concurrently.

{{- template "NestedErrDetails" . }}
`

	notADirectoryMsg = `
Error: Cannot create {{ printf "%q" .path }} because {{ printf "%q" .blocker }} already exists and is not a directory.
`
)

// destinationErrorResolver is an implementation of the ErrorResolver
// interface that resolves the errors returned by destination writers.
type destinationErrorResolver struct{}

func (*destinationErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var ambiguousErr *gitdest.AmbiguousHistoryError
	if errors.As(err, &ambiguousErr) {
		return ResolvedResult{
			Message: ExecuteTemplate(ambiguousHistoryMsg, map[string]interface{}{
				"label":   ambiguousErr.Label,
				"commit":  ambiguousErr.Commit,
				"parents": ambiguousErr.Parents,
			}),
			ExitCode: ExitAmbiguousHistory,
		}, true
	}

	var conflictErr *gitdest.RebaseConflictError
	if errors.As(err, &conflictErr) {
		return ResolvedResult{
			Message: ExecuteTemplate(conflictMsg, map[string]interface{}{
				"baseline": conflictErr.Baseline,
				"paths":    conflictErr.Paths,
			}),
			ExitCode: ExitConflict,
		}, true
	}

	var abortErr *gitdest.UserAbortError
	if errors.As(err, &abortErr) {
		return ResolvedResult{
			Message:  ExecuteTemplate(userAbortMsg, nil),
			ExitCode: ExitUserAbort,
		}, true
	}

	var pushErr *gitdest.PushError
	if errors.As(err, &pushErr) {
		return ResolvedResult{
			Message: ExecuteTemplate(pushMsg, map[string]interface{}{
				"commit": pushErr.Commit,
				"ref":    pushErr.Ref,
				"url":    pushErr.URL,
				"err":    pushErr,
			}),
			ExitCode: ExitPush,
		}, true
	}

	var notADirErr *fileutil.NotADirectoryError
	if errors.As(err, &notADirErr) {
		return ResolvedResult{
			Message: ExecuteTemplate(notADirectoryMsg, map[string]interface{}{
				"path":    notADirErr.Path,
				"blocker": notADirErr.Blocker,
			}),
		}, true
	}
	return ResolvedResult{}, false
}
