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

// Package printer defines the UI sink used to display transplant CLI output
// and to ask the operator for confirmation.
package printer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kptdev/transplant/internal/errors"
	"golang.org/x/term"
)

// Printer defines capabilities to display content in transplant CLI.
// Every user visible message of a migration goes through a Printer so the
// narration can be replaced in tests.
type Printer interface {
	// Printf writes command output, for example a table, to the out stream.
	Printf(format string, args ...interface{})
	// Progressf reports progress of the current operation.
	Progressf(format string, args ...interface{})
	// Infof displays information the operator should read, for example the
	// pending change before a confirmation.
	Infof(format string, args ...interface{})
	// Warnf displays a warning.
	Warnf(format string, args ...interface{})
	// Confirm asks a yes/no question and returns the answer.
	Confirm(prompt string) (bool, error)
}

// New returns an instance of Printer. Nil streams default to the standard
// streams of the process.
func New(inStream io.Reader, outStream, errStream io.Writer) Printer {
	if inStream == nil {
		inStream = os.Stdin
	}
	if outStream == nil {
		outStream = os.Stdout
	}
	if errStream == nil {
		errStream = os.Stderr
	}
	return &printer{
		in:        bufio.NewReader(inStream),
		inFile:    inStream,
		outStream: outStream,
		errStream: errStream,
	}
}

// printer implements default Printer to be used in transplant codebase.
type printer struct {
	in        *bufio.Reader
	inFile    io.Reader
	outStream io.Writer
	errStream io.Writer
}

// Printf is the wrapper over fmt.Printf that displays the output.
func (pr *printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(pr.outStream, format, args...)
}

// Progressf prints progress messages to stderr stream
// https://mehulkar.com/blog/2017/11/stdout-vs-stderr/
func (pr *printer) Progressf(format string, args ...interface{}) {
	pr.line("", format, args...)
}

func (pr *printer) Infof(format string, args ...interface{}) {
	pr.line("INFO: ", format, args...)
}

func (pr *printer) Warnf(format string, args ...interface{}) {
	pr.line("WARN: ", format, args...)
}

func (pr *printer) line(prefix, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(pr.errStream, prefix+msg)
}

// Confirm prompts on the stderr stream and reads the answer from the in
// stream. It refuses to prompt when the in stream is a file that is not a
// terminal, since nobody could answer.
func (pr *printer) Confirm(prompt string) (bool, error) {
	const op errors.Op = "printer.Confirm"
	if f, ok := pr.inFile.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, errors.E(op, errors.Environment,
			fmt.Errorf("cannot ask for confirmation %q: stdin is not a terminal", prompt))
	}
	for {
		fmt.Fprintf(pr.errStream, "%s [y/n] ", prompt)
		answer, err := pr.in.ReadString('\n')
		if err != nil && (err != io.EOF || answer == "") {
			return false, errors.E(op, errors.IO, fmt.Errorf("error reading answer: %w", err))
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if err == io.EOF {
			return false, errors.E(op, errors.IO, fmt.Errorf("error reading answer: %w", err))
		}
	}
}

// The key type is unexported to prevent collisions with context keys defined in
// other packages.
type contextKey int

// printerKey is the context key for the printer.  Its value of zero is
// arbitrary.  If this package defined other context keys, they would have
// different integer values.
const printerKey contextKey = 0

// Helper functions to set and retrieve printer instance from a context.
// Defining them here avoids the context key collision.

// FromContextOrDie returns printer instance associated with the context.
func FromContextOrDie(ctx context.Context) Printer {
	pr, ok := ctx.Value(printerKey).(Printer)
	if ok {
		return pr
	}
	panic("printer missing in context")
}

// WithContext creates new context from the given parent context
// by setting the printer instance.
func WithContext(ctx context.Context, pr Printer) context.Context {
	return context.WithValue(ctx, printerKey, pr)
}
