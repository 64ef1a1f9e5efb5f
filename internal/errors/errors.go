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

// Package errors defines the error handling used by the transplant codebase.
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/kptdev/transplant/internal/types"
)

// Error is an implementation of the error interface used in the transplant
// codebase.
// It is based on the design in https://commandcenter.blogspot.com/2017/12/error-handling-in-upspin.html
type Error struct {
	// Path is the filesystem path of the object involved in the operation.
	Path types.UniquePath

	// Repo is the url of the repository involved in the operation.
	Repo Repo

	// Op is the operation being performed, for ex. gitdest.write, folder.write
	Op Op

	// Kind refers to class of errors
	Kind Kind

	// Err refers to wrapped error (if any)
	Err error
}

func (e *Error) Error() string {
	b := new(strings.Builder)

	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(string(e.Op))
	}

	if e.Path != "" {
		pad(b, ": ")
		b.WriteString("path ")
		b.WriteString(string(e.Path))
	}

	if e.Repo != "" {
		pad(b, ": ")
		b.WriteString("repo ")
		b.WriteString(string(e.Repo))
	}

	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}

	if e.Err != nil {
		if wrappedErr, ok := e.Err.(*Error); ok {
			if !wrappedErr.Zero() {
				pad(b, ":\n\t")
				b.WriteString(wrappedErr.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// pad appends given str to the string buffer.
func pad(b *strings.Builder, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Zero() bool {
	return e.Op == "" && e.Path == "" && e.Repo == "" && e.Kind == 0 && e.Err == nil
}

// Op describes the operation being performed.
type Op string

// Repo is the url of a git repository.
type Repo string

// Kind describes the class of errors encountered.
type Kind int

const (
	Other            Kind = iota // Unclassified. Will not be printed.
	Internal                     // Internal error.
	InvalidParam                 // Value is not valid.
	MissingParam                 // Required value is missing or empty.
	Git                          // Errors from Git
	IO                           // Error doing IO operations
	Validation                   // Configuration failed validation.
	AmbiguousHistory             // History search hit a merge commit.
	Conflict                     // Concurrent destination changes conflict.
	UserAbort                    // The operator declined to proceed.
	Push                         // Publishing the commit failed.
	Environment                  // The environment does not allow the operation.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Internal:
		return "internal error"
	case InvalidParam:
		return "invalid parameter value"
	case MissingParam:
		return "missing parameter value"
	case Git:
		return "git error"
	case IO:
		return "IO error"
	case Validation:
		return "validation error"
	case AmbiguousHistory:
		return "ambiguous history"
	case Conflict:
		return "conflict"
	case UserAbort:
		return "aborted by user"
	case Push:
		return "push failed"
	case Environment:
		return "environment error"
	}
	return "unknown kind"
}

// E builds an *Error from the provided arguments. Arguments are matched by
// type: Op, Kind, types.UniquePath, Repo, an error or a string message.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("errors.E must have at least one argument")
	}

	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case types.UniquePath:
			e.Path = a
		case Repo:
			e.Repo = a
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case *Error:
			cp := *a
			e.Err = &cp
		case error:
			e.Err = a
		case string:
			e.Err = goerrors.New(a)
		default:
			panic(fmt.Errorf("unknown type %T for value %v in call to error.E", a, a))
		}
	}

	wrappedErr, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	if e.Path == wrappedErr.Path {
		wrappedErr.Path = ""
	}

	if e.Repo == wrappedErr.Repo {
		wrappedErr.Repo = ""
	}

	if e.Op == wrappedErr.Op {
		wrappedErr.Op = ""
	}

	if e.Kind == wrappedErr.Kind {
		wrappedErr.Kind = 0
	}

	return e
}

// KindOf returns the outermost non-zero Kind found in the error chain, or
// Other if there is none.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind != Other {
			return e.Kind
		}
		err = goerrors.Unwrap(err)
	}
	return Other
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return goerrors.New(text)
}
