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
	"io"
	"strings"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/gitutil"
	"k8s.io/klog/v2"
)

// CommitSource yields commits tip first and returns io.EOF once the history
// is exhausted. *gitutil.CommitIterator implements it.
type CommitSource interface {
	Next(ctx context.Context) (*gitutil.Commit, error)
}

// Verdict tells Search what to do after looking at a commit.
type Verdict int

const (
	// Continue moves on to the next commit.
	Continue Verdict = iota
	// Found stops the search and returns the commit.
	Found
	// Abort stops the search with the error returned by the predicate.
	Abort
)

// Predicate classifies a commit during a history search.
type Predicate func(c *gitutil.Commit) (Verdict, error)

// Search walks source until pred returns Found or Abort. It returns nil
// and no error if the history is exhausted without a match.
func Search(ctx context.Context, source CommitSource, pred Predicate) (*gitutil.Commit, error) {
	const op errors.Op = "gitdest.Search"
	for {
		c, err := source.Next(ctx)
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, errors.E(op, err)
		}
		v, err := pred(c)
		switch v {
		case Found:
			return c, nil
		case Abort:
			if err == nil {
				err = fmt.Errorf("history search aborted at commit %s", c.SHA)
			}
			return nil, err
		}
	}
}

// LabelPredicate matches the first commit carrying a trailer for label and
// aborts with an *AmbiguousHistoryError on merge commits.
func LabelPredicate(label string) Predicate {
	return func(c *gitutil.Commit) (Verdict, error) {
		if c.IsMerge() {
			return Abort, &AmbiguousHistoryError{Label: label, Commit: c.SHA, Parents: c.Parents}
		}
		if _, ok := FindLabel(c.Message, label); ok {
			return Found, nil
		}
		klog.V(3).Infof("commit %s has no %s label", c.SHA, label)
		return Continue, nil
	}
}

// FindLabel returns the value of the last "<label>: <value>" line in
// message.
func FindLabel(message, label string) (string, bool) {
	prefix := label + ":"
	var value string
	var found bool
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		v := strings.TrimSpace(strings.TrimPrefix(line, prefix))
		if v == "" {
			continue
		}
		value, found = v, true
	}
	return value, found
}

// Trailer returns the commit message line recording value for label.
func Trailer(label, value string) string {
	return label + ": " + value
}

// PriorRef is the last destination commit recognized as a migration for a
// label.
type PriorRef struct {
	// Commit is the destination commit carrying the trailer.
	Commit string
	// OriginRef is the value of the trailer.
	OriginRef string
}

// Locate searches source for the last migration recorded with label. It
// returns nil if there is none.
func Locate(ctx context.Context, source CommitSource, label string) (*PriorRef, error) {
	const op errors.Op = "gitdest.Locate"
	c, err := Search(ctx, source, LabelPredicate(label))
	if err != nil {
		var ambiguous *AmbiguousHistoryError
		if errors.As(err, &ambiguous) {
			return nil, errors.E(op, errors.AmbiguousHistory, err)
		}
		return nil, errors.E(op, err)
	}
	if c == nil {
		return nil, nil
	}
	ref, _ := FindLabel(c.Message, label)
	return &PriorRef{Commit: c.SHA, OriginRef: ref}, nil
}
