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

package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/kptdev/transplant/internal/printer"
)

type MessageType int

const (
	Output MessageType = iota
	Progress
	Info
	Warn
	Prompt
)

type Message struct {
	Type MessageType
	Text string
}

// Printer implements the printer.Printer interface. It records every message
// and answers confirmation prompts from a script.
type Printer struct {
	mu        sync.Mutex
	Messages  []Message
	responses []bool
}

var _ printer.Printer = &Printer{}

// New returns a Printer with no scripted answers. Any confirmation prompt
// fails.
func New() *Printer {
	return &Printer{}
}

// RespondYes appends an affirmative answer to the script.
func (p *Printer) RespondYes() *Printer {
	return p.respond(true)
}

// RespondNo appends a negative answer to the script.
func (p *Printer) RespondNo() *Printer {
	return p.respond(false)
}

func (p *Printer) respond(answer bool) *Printer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, answer)
	return p
}

func (p *Printer) Printf(format string, args ...interface{}) {
	p.record(Output, format, args...)
}

func (p *Printer) Progressf(format string, args ...interface{}) {
	p.record(Progress, format, args...)
}

func (p *Printer) Infof(format string, args ...interface{}) {
	p.record(Info, format, args...)
}

func (p *Printer) Warnf(format string, args ...interface{}) {
	p.record(Warn, format, args...)
}

func (p *Printer) Confirm(prompt string) (bool, error) {
	p.record(Prompt, "%s", prompt)
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.responses) == 0 {
		return false, fmt.Errorf("unexpected confirmation prompt %q", prompt)
	}
	answer := p.responses[0]
	p.responses = p.responses[1:]
	return answer, nil
}

func (p *Printer) record(t MessageType, format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, Message{Type: t, Text: fmt.Sprintf(format, args...)})
}

// Texts returns the text of the recorded messages of type t, in order.
func (p *Printer) Texts(t MessageType) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var texts []string
	for _, m := range p.Messages {
		if m.Type == t {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

// CtxWithPrinter returns a new context with the Printer added.
func CtxWithPrinter(p *Printer) context.Context {
	return printer.WithContext(context.Background(), p)
}

// CtxWithNilPrinter returns a new context with a Printer that has no
// scripted answers.
func CtxWithNilPrinter() context.Context {
	return CtxWithPrinter(New())
}
