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

// Package destination defines the contract between a migration workflow and
// the places it publishes to.
package destination

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/glob"
)

const (
	// LastMigrated is a special baseline value. It selects the last commit
	// found by the history search as the merge ancestor.
	LastMigrated = "last-migrated"

	// DefaultLabelName is the label used to record the origin revision in
	// destination commit messages.
	DefaultLabelName = "GitOrigin-RevId"

	// DefaultSummary is the first line of a migration commit message when
	// the workflow does not provide one.
	DefaultSummary = "Project import generated by Transplant."
)

// ErrUnsupported is returned by destinations for operations they do not
// implement.
var ErrUnsupported = errors.New("operation not supported by this destination")

// TransformResult describes a transformed snapshot ready to be written to
// a destination. It is consumed once per write attempt.
type TransformResult struct {
	// ContentRoot is the directory holding the transformed tree. Writers
	// never modify it.
	ContentRoot string

	// OriginRef identifies the origin change the snapshot was built from.
	OriginRef string

	// LabelName is the key of the trailer recording OriginRef.
	LabelName string

	// Author of the resulting change. The zero value means DefaultAuthor.
	Author Author

	// Timestamp attributed to the resulting change. The zero value means
	// the time of the write.
	Timestamp time.Time

	// Summary is the first paragraph of the commit message. Empty means
	// DefaultSummary.
	Summary string

	// ExcludedPaths matches destination relative paths that are never
	// overwritten or deleted.
	ExcludedPaths *glob.PathMatcher

	// Baseline is the destination revision the snapshot was computed
	// against, or LastMigrated. Empty means the snapshot is published as if
	// the destination were empty.
	Baseline string
}

// WithBaseline returns a copy of the result with the given baseline.
func (r TransformResult) WithBaseline(baseline string) TransformResult {
	r.Baseline = baseline
	return r
}

// AuthorOrDefault returns the author of the result, or DefaultAuthor.
func (r TransformResult) AuthorOrDefault() Author {
	if r.Author.Empty() {
		return DefaultAuthor
	}
	return r.Author
}

// SummaryOrDefault returns the summary of the result, or DefaultSummary.
func (r TransformResult) SummaryOrDefault() string {
	if strings.TrimSpace(r.Summary) == "" {
		return DefaultSummary
	}
	return strings.TrimSpace(r.Summary)
}

// Validate returns a *errors.ValidationError if the result cannot be
// written.
func (r TransformResult) Validate() error {
	var v errors.Violations
	if r.ContentRoot == "" {
		v.Add("contentRoot", "", errors.Missing, "")
	}
	if r.OriginRef == "" {
		v.Add("originRef", "", errors.Missing, "")
	} else if strings.ContainsAny(r.OriginRef, "\r\n") {
		v.Add("originRef", r.OriginRef, errors.Invalid, "must be a single line")
	}
	if err := ValidateLabelName(r.LabelName); err != nil {
		v.Add("labelName", r.LabelName, errors.Invalid, err.Error())
	}
	return v.Err()
}

// ValidateLabelName returns an error if name cannot be used as the key of
// a commit message trailer.
func ValidateLabelName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("label name cannot be empty")
	case strings.ContainsAny(name, ": \t\r\n"):
		return fmt.Errorf("label name %q cannot contain colons or whitespace", name)
	}
	return nil
}

// WriterResult is the outcome of a successful write.
type WriterResult int

const (
	// OK means the snapshot was published.
	OK WriterResult = iota
	// NoChanges means the destination already had the content of the
	// snapshot and nothing was published.
	NoChanges
)

func (r WriterResult) String() string {
	switch r {
	case OK:
		return "OK"
	case NoChanges:
		return "NO_CHANGES"
	}
	return fmt.Sprintf("WriterResult(%d)", int(r))
}

// Writer publishes snapshots. A Writer may keep state between writes, for
// example to chain consecutive changes.
type Writer interface {
	// Write publishes result. User visible narration and confirmation
	// prompts go through the printer carried by ctx.
	Write(ctx context.Context, result TransformResult) (WriterResult, error)
}

// Destination is a place snapshots are published to.
type Destination interface {
	// NewWriter returns a Writer for a single workflow run.
	NewWriter() Writer

	// PreviousRef returns the origin revision recorded by the last
	// migration for labelName. The second return value is false if there
	// was none.
	PreviousRef(ctx context.Context, labelName string) (string, bool, error)

	// LabelNameWhenOrigin returns the label this destination uses when it
	// acts as an origin, or ErrUnsupported.
	LabelNameWhenOrigin() (string, error)
}
