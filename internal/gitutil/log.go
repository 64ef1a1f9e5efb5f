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
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kptdev/transplant/internal/errors"
)

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"

	// logFormat prints one record per commit: sha, parents, author name,
	// author email, author time and raw body.
	logFormat = "%H" + fieldSep + "%P" + fieldSep + "%an" + fieldSep + "%ae" +
		fieldSep + "%at" + fieldSep + "%B" + recordSep

	// DefaultLogPageSize is the number of commits read per git invocation.
	DefaultLogPageSize = 100
)

// Commit is a single entry of the commit history.
type Commit struct {
	SHA         string
	Parents     []string
	AuthorName  string
	AuthorEmail string
	AuthorDate  time.Time
	Message     string
}

// IsMerge returns true if the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// CommitIterator walks the ancestors of a commit, tip first, in reverse
// chronological topological order. Commits are read a page at a time so
// only one page is held in memory.
type CommitIterator struct {
	repo     *Repo
	tip      string
	pageSize int

	skip int
	page []*Commit
	done bool
}

// Log returns an iterator over the history of tip.
func (r *Repo) Log(tip string) *CommitIterator {
	return &CommitIterator{repo: r, tip: tip, pageSize: DefaultLogPageSize}
}

// WithPageSize sets the number of commits fetched per git invocation.
func (it *CommitIterator) WithPageSize(n int) *CommitIterator {
	if n > 0 {
		it.pageSize = n
	}
	return it
}

// Next returns the next commit, or io.EOF once the history is exhausted.
func (it *CommitIterator) Next(ctx context.Context) (*Commit, error) {
	if len(it.page) == 0 && !it.done {
		if err := it.fill(ctx); err != nil {
			return nil, err
		}
	}
	if len(it.page) == 0 {
		return nil, io.EOF
	}
	c := it.page[0]
	it.page = it.page[1:]
	return c, nil
}

func (it *CommitIterator) fill(ctx context.Context) error {
	const op errors.Op = "gitutil.CommitIterator"
	rr, err := it.repo.Run(ctx, "log", "--topo-order", "--no-color",
		"--format="+logFormat,
		"--skip="+strconv.Itoa(it.skip),
		"--max-count="+strconv.Itoa(it.pageSize),
		it.tip, "--")
	if err != nil {
		return errors.E(op, err)
	}
	commits, err := parseLog(rr.Stdout)
	if err != nil {
		return errors.E(op, errors.Git, err)
	}
	it.skip += len(commits)
	if len(commits) < it.pageSize {
		it.done = true
	}
	it.page = commits
	return nil
}

func parseLog(out string) ([]*Commit, error) {
	var commits []*Commit
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}
		fields := strings.SplitN(record, fieldSep, 6)
		if len(fields) != 6 {
			return nil, fmt.Errorf("unexpected git log record %q", record)
		}
		secs, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid author time %q: %w", fields[4], err)
		}
		commits = append(commits, &Commit{
			SHA:         fields[0],
			Parents:     strings.Fields(fields[1]),
			AuthorName:  fields[2],
			AuthorEmail: fields[3],
			AuthorDate:  time.Unix(secs, 0).UTC(),
			Message:     fields[5],
		})
	}
	return commits, nil
}
