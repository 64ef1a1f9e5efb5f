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

// Package gitdest publishes snapshots to a git repository, one commit per
// snapshot, recording the origin revision in the commit message so later
// migrations can resume from it.
package gitdest

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/gitutil"
	"github.com/kptdev/transplant/pkg/destination"
	"k8s.io/klog/v2"
)

// fetchAttempts is the number of times a fetch is attempted when the
// remote is unavailable.
const fetchAttempts = 3

// Options configures a git destination.
type Options struct {
	// URL of the destination repository.
	URL string

	// Fetch is the ref the new commits are based on. Defaults to Push.
	Fetch string

	// Push is the ref the new commits are pushed to. When it differs from
	// Fetch the ref is treated as a review ref: consecutive writes chain
	// on each other and pushes are forced.
	Push string

	// AskConfirmation shows the pending change and asks the operator to
	// confirm before pushing.
	AskConfirmation bool

	// CacheDir holds the local copies of destination repositories. Empty
	// means the gitutil default.
	CacheDir string

	// Committer of the new commits. Defaults to destination.DefaultAuthor.
	Committer destination.Author
}

// Destination is a git repository destination.
type Destination struct {
	opts     Options
	fetchRef string
	pushRef  string

	// now returns the committer time.
	now func() time.Time
	// newBackOff returns the policy used to retry fetches.
	newBackOff func() backoff.BackOff
}

var _ destination.Destination = &Destination{}

// New validates opts and returns a Destination.
func New(opts Options) (*Destination, error) {
	const op errors.Op = "gitdest.New"
	var v errors.Violations
	if opts.URL == "" {
		v.Add("git.url", "", errors.Missing, "")
	}
	if opts.Push == "" {
		v.Add("git.push", "", errors.Missing, "")
	}
	if err := v.Err(); err != nil {
		return nil, errors.E(op, errors.Validation, err)
	}
	if opts.Fetch == "" {
		opts.Fetch = opts.Push
	}
	if opts.Committer.Empty() {
		opts.Committer = destination.DefaultAuthor
	}
	return &Destination{
		opts:     opts,
		fetchRef: QualifyRef(opts.Fetch),
		pushRef:  QualifyRef(opts.Push),
		now:      time.Now,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), fetchAttempts-1)
		},
	}, nil
}

// QualifyRef turns a branch name into a full ref. Names starting with
// "refs/" are returned unchanged.
func QualifyRef(ref string) string {
	if strings.HasPrefix(ref, "refs/") {
		return ref
	}
	return "refs/heads/" + ref
}

// IsReviewRef returns true if pushes go to a different ref than the one
// commits are based on.
func (d *Destination) IsReviewRef() bool {
	return d.fetchRef != d.pushRef
}

// NewWriter returns a Writer. Writes of a single Writer to a review ref
// are chained.
func (d *Destination) NewWriter() destination.Writer {
	return &Writer{dest: d}
}

// PreviousRef returns the origin revision of the last migration found in
// the history of the push ref, or of the fetch ref when the push ref does
// not exist.
func (d *Destination) PreviousRef(ctx context.Context, labelName string) (string, bool, error) {
	const op errors.Op = "gitdest.PreviousRef"
	repo, err := d.cacheRepo(ctx)
	if err != nil {
		return "", false, errors.E(op, err)
	}
	tip, found, err := d.fetch(ctx, repo, d.pushRef)
	if err != nil {
		return "", false, errors.E(op, err)
	}
	if !found && d.IsReviewRef() {
		tip, found, err = d.fetch(ctx, repo, d.fetchRef)
		if err != nil {
			return "", false, errors.E(op, err)
		}
	}
	if !found {
		return "", false, nil
	}
	prior, err := Locate(ctx, repo.Log(tip), labelName)
	if err != nil {
		return "", false, errors.E(op, errors.Repo(d.opts.URL), err)
	}
	if prior == nil {
		return "", false, nil
	}
	return prior.OriginRef, true, nil
}

// LabelNameWhenOrigin returns the label used to record git revisions.
func (d *Destination) LabelNameWhenOrigin() (string, error) {
	return destination.DefaultLabelName, nil
}

func (d *Destination) cacheRepo(ctx context.Context) (*gitutil.Repo, error) {
	return gitutil.CacheRepo(ctx, d.opts.CacheDir, d.opts.URL)
}

// fetch fetches ref into repo, retrying while the remote is unavailable.
func (d *Destination) fetch(ctx context.Context, repo *gitutil.Repo, ref string) (string, bool, error) {
	var sha string
	var found bool
	err := backoff.RetryNotify(func() error {
		var err error
		sha, found, err = repo.Fetch(ctx, d.opts.URL, ref)
		if err != nil && !gitutil.IsGitExecErrorType(err, gitutil.RepositoryUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(d.newBackOff(), ctx), func(err error, wait time.Duration) {
		klog.Warningf("fetching %s %s failed, retrying in %s: %v", d.opts.URL, ref, wait, err)
	})
	return sha, found, err
}
