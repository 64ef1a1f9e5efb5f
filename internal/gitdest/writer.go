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
	"fmt"
	"os"
	"time"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/gitutil"
	"github.com/kptdev/transplant/internal/printer"
	"github.com/kptdev/transplant/pkg/destination"
	"k8s.io/klog/v2"
)

type state int

const (
	idle state = iota
	locating
	confirming
	reconciling
	committing
	pushing
	done
	aborted
	failed
)

func (s state) String() string {
	switch s {
	case idle:
		return "Idle"
	case locating:
		return "Locating"
	case confirming:
		return "Confirming"
	case reconciling:
		return "Reconciling"
	case committing:
		return "Committing"
	case pushing:
		return "Pushing"
	case done:
		return "Done"
	case aborted:
		return "Aborted"
	case failed:
		return "Failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Writer writes snapshots to a git destination. It remembers the last
// commit it pushed so consecutive writes to a review ref form a chain.
type Writer struct {
	dest *Destination

	// lastPushed is the commit pushed by the previous successful write.
	lastPushed string
}

// Write publishes result as a single commit. Nothing is pushed if the
// operator declines the confirmation, the history is ambiguous or the
// baseline rebase conflicts. When the destination already has the content
// of the snapshot nothing is committed and destination.NoChanges is
// returned.
func (w *Writer) Write(ctx context.Context, result destination.TransformResult) (destination.WriterResult, error) {
	const op errors.Op = "gitdest.Write"
	if err := result.Validate(); err != nil {
		return destination.OK, errors.E(op, errors.Validation, err)
	}

	tmpDir, err := os.MkdirTemp("", "transplant-git-")
	if err != nil {
		return destination.OK, errors.E(op, errors.IO, err)
	}
	defer os.RemoveAll(tmpDir)

	p := &publish{
		w:      w,
		dest:   w.dest,
		result: result,
		pr:     printer.FromContextOrDie(ctx),
		tmpDir: tmpDir,
	}
	res, err := p.run(ctx)
	if err != nil {
		p.transition(p.state.onError())
		return res, errors.E(op, errors.Repo(w.dest.opts.URL), err)
	}
	p.transition(done)
	return res, nil
}

// publish holds the state of a single write.
type publish struct {
	w      *Writer
	dest   *Destination
	result destination.TransformResult
	pr     printer.Printer
	tmpDir string
	state  state

	repo *gitutil.Repo
	rec  *reconciler

	// parent is the commit the new commit goes on top of, empty for a root
	// commit.
	parent string
	// baseline is the merge ancestor in baseline mode, empty in initial
	// mode.
	baseline string
	// prior is the last migration found in the history of parent.
	prior *PriorRef
}

// onError returns the terminal state for an error raised in s. A write is
// aborted, leaving the destination untouched, up to reconciling. Once
// committing starts it has failed.
func (s state) onError() state {
	switch s {
	case committing, pushing:
		return failed
	}
	return aborted
}

func (p *publish) transition(s state) {
	klog.V(1).Infof("git destination %s %s: %s -> %s", p.dest.opts.URL, p.dest.pushRef, p.state, s)
	p.state = s
}

func (p *publish) run(ctx context.Context) (destination.WriterResult, error) {
	if err := p.locate(ctx); err != nil {
		return destination.OK, err
	}

	p.pr.Progressf("Git Destination: Adding files for push")
	// The snapshot is staged on top of the state it was computed against,
	// so the preview shows exactly the change it brings.
	previewBase := p.parent
	if p.baseline != "" {
		previewBase = p.baseline
	}
	snapshotTree, err := p.rec.stage(ctx, previewBase)
	if err != nil {
		return destination.OK, err
	}
	baseTree, err := p.repo.TreeOf(ctx, previewBase)
	if err != nil {
		return destination.OK, err
	}
	if snapshotTree == baseTree {
		return p.noChanges(), nil
	}

	if p.dest.opts.AskConfirmation {
		if err := p.confirm(ctx, baseTree, snapshotTree); err != nil {
			return destination.OK, err
		}
	}

	tree, err := p.reconcile(ctx, snapshotTree)
	if err != nil {
		return destination.OK, err
	}
	parentTree, err := p.repo.TreeOf(ctx, p.parent)
	if err != nil {
		return destination.OK, err
	}
	if tree == parentTree {
		return p.noChanges(), nil
	}

	p.transition(committing)
	commit, err := p.commit(ctx, tree, p.parent)
	if err != nil {
		return destination.OK, err
	}

	p.transition(pushing)
	if err := p.push(ctx, commit); err != nil {
		return destination.OK, err
	}
	p.w.lastPushed = commit
	return destination.OK, nil
}

// locate fetches the destination and resolves the parent, the baseline and
// the prior migration.
func (p *publish) locate(ctx context.Context) error {
	const op errors.Op = "gitdest.locate"
	p.transition(locating)

	repo, err := p.dest.cacheRepo(ctx)
	if err != nil {
		return errors.E(op, err)
	}
	p.repo = repo
	p.rec = &reconciler{
		repo:        repo,
		contentRoot: p.result.ContentRoot,
		excluded:    p.result.ExcludedPaths,
		tmpDir:      p.tmpDir,
	}

	p.pr.Progressf("Git Destination: Fetching %s %s", p.dest.opts.URL, p.dest.opts.Fetch)
	tip, _, err := p.dest.fetch(ctx, repo, p.dest.fetchRef)
	if err != nil {
		return errors.E(op, err)
	}
	p.parent = tip
	if p.dest.IsReviewRef() && p.w.lastPushed != "" {
		p.parent = p.w.lastPushed
	}

	switch b := p.result.Baseline; b {
	case "":
		if err := p.locatePrior(ctx); err != nil {
			return errors.E(op, err)
		}
	case destination.LastMigrated:
		if err := p.locatePrior(ctx); err != nil {
			return errors.E(op, err)
		}
		if p.prior == nil {
			p.pr.Warnf("Git Destination: no previous migration found, publishing from scratch")
			break
		}
		p.baseline = p.prior.Commit
	default:
		// An explicit baseline overrides the history search.
		if p.parent == "" {
			return errors.E(op, errors.Validation, invalidBaseline(b,
				fmt.Sprintf("destination %s has no commits", p.dest.opts.Fetch)))
		}
		if !repo.CommitExists(ctx, b) {
			return errors.E(op, errors.Validation, invalidBaseline(b,
				fmt.Sprintf("commit not found in %s", p.dest.opts.URL)))
		}
		baseline, err := repo.RevParse(ctx, b+"^{commit}")
		if err != nil {
			return errors.E(op, err)
		}
		p.baseline = baseline
	}
	return nil
}

func (p *publish) locatePrior(ctx context.Context) error {
	if p.parent == "" {
		return nil
	}
	prior, err := Locate(ctx, p.repo.Log(p.parent), p.result.LabelName)
	if err != nil {
		return err
	}
	if prior != nil {
		klog.V(1).Infof("last migration of %s in %s is %s", p.result.LabelName, prior.Commit, prior.OriginRef)
	}
	p.prior = prior
	return nil
}

func invalidBaseline(baseline, reason string) error {
	var v errors.Violations
	v.Add("baseline", baseline, errors.Invalid, reason)
	return v.Err()
}

func (p *publish) confirm(ctx context.Context, baseTree, snapshotTree string) error {
	const op errors.Op = "gitdest.confirm"
	p.transition(confirming)
	diff, err := p.repo.DiffTrees(ctx, baseTree, snapshotTree)
	if err != nil {
		return errors.E(op, err)
	}
	p.pr.Infof("\n%s", diff)
	ok, err := p.pr.Confirm(fmt.Sprintf("Proceed with push to %s %s?", p.dest.opts.URL, p.dest.opts.Push))
	if err != nil {
		return errors.E(op, err)
	}
	if !ok {
		return errors.E(op, errors.UserAbort, &UserAbortError{})
	}
	return nil
}

// reconcile returns the tree of the new commit.
func (p *publish) reconcile(ctx context.Context, snapshotTree string) (string, error) {
	const op errors.Op = "gitdest.reconcile"
	p.transition(reconciling)
	if p.baseline == "" {
		return snapshotTree, nil
	}
	snapshot, err := p.commit(ctx, snapshotTree, p.baseline)
	if err != nil {
		return "", errors.E(op, err)
	}
	tree, err := p.rec.rebase(ctx, p.baseline, p.parent, snapshot)
	if err != nil {
		return "", errors.E(op, err)
	}
	return tree, nil
}

func (p *publish) commit(ctx context.Context, tree, parent string) (string, error) {
	var parents []string
	if parent != "" {
		parents = append(parents, parent)
	}
	author := p.result.AuthorOrDefault()
	ts := p.result.Timestamp
	if ts.IsZero() {
		ts = p.dest.now()
	}
	committer := p.dest.opts.Committer
	return p.repo.CommitTree(ctx, tree, parents, p.message(),
		gitutil.Signature{Name: author.Name, Email: author.Email, Date: gitDate(ts)},
		gitutil.Signature{Name: committer.Name, Email: committer.Email, Date: gitDate(p.dest.now())})
}

func (p *publish) message() string {
	return fmt.Sprintf("%s\n\n%s\n", p.result.SummaryOrDefault(),
		Trailer(p.result.LabelName, p.result.OriginRef))
}

func (p *publish) push(ctx context.Context, commit string) error {
	const op errors.Op = "gitdest.push"
	p.pr.Progressf("Git Destination: Pushing to %s %s", p.dest.opts.URL, p.dest.opts.Push)
	err := p.repo.Push(ctx, p.dest.opts.URL, commit, p.dest.pushRef, p.dest.IsReviewRef())
	if err != nil {
		return errors.E(op, errors.Push, &PushError{
			URL:    p.dest.opts.URL,
			Ref:    p.dest.pushRef,
			Commit: commit,
			Err:    err,
		})
	}
	return nil
}

func (p *publish) noChanges() destination.WriterResult {
	p.pr.Warnf("Git Destination: no changes to push")
	return destination.NoChanges
}

// gitDate formats t in git's internal date format.
func gitDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Unix(), t.Format("-0700"))
}
