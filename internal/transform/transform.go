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

// Package transform contains the transformations applied to a working copy
// of the origin before it is written to a destination.
package transform

import (
	"context"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/printer"
	"k8s.io/klog/v2"
)

// ErrNotReversible is returned by transformations that cannot be undone.
var ErrNotReversible = errors.New("transformation is not reversible")

// Transformation modifies the files of a working directory in place.
type Transformation interface {
	// Transform applies the transformation to workdir.
	Transform(ctx context.Context, workdir string) error

	// Describe returns a short human readable description.
	Describe() string

	// Reverse returns the transformation that undoes this one.
	Reverse() (Transformation, error)
}

// Sequence applies transformations in order.
type Sequence []Transformation

func (s Sequence) Transform(ctx context.Context, workdir string) error {
	const op errors.Op = "transform.Sequence"
	pr := printer.FromContextOrDie(ctx)
	for i, t := range s {
		pr.Progressf("[%2d/%d] Transform %s", i+1, len(s), t.Describe())
		klog.V(1).Infof("running transformation %q in %s", t.Describe(), workdir)
		if err := t.Transform(ctx, workdir); err != nil {
			return errors.E(op, err)
		}
	}
	return nil
}

func (s Sequence) Describe() string {
	return "sequence"
}

// Reverse returns the reversed transformations in reverse order.
func (s Sequence) Reverse() (Transformation, error) {
	reversed := make(Sequence, 0, len(s))
	for i := len(s) - 1; i >= 0; i-- {
		r, err := s[i].Reverse()
		if err != nil {
			return nil, err
		}
		reversed = append(reversed, r)
	}
	return reversed, nil
}
