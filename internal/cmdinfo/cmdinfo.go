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

// Package cmdinfo contains the info command
package cmdinfo

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/kptdev/transplant/internal/config"
	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/migrate"
	"github.com/kptdev/transplant/internal/types"
	"github.com/kptdev/transplant/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

const (
	infoShort = `Show the origin ref last migrated to the destination`
	infoLong  = `
Searches the destination history of the workflow in CONFIG for the last
migration and prints the origin ref it recorded.
`
	infoExamples = `
  $ {{.}} info workflow.yaml
`
)

// None is printed when the destination has no migration.
const None = "<none>"

// NewRunner returns a command runner
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:     "info CONFIG",
		Args:    cobra.ExactArgs(1),
		Short:   infoShort,
		Long:    infoShort + "\n" + infoLong,
		Example: infoExamples,
		PreRunE: r.preRunE,
		RunE:    r.runE,
	}
	cmdutil.FixDocs("{{.}}", parent, c)
	r.Command = c
	config.AddOverrideFlags(c.Flags())
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function
type Runner struct {
	ctx      context.Context
	Command  *cobra.Command
	workflow *config.Workflow
}

func (r *Runner) preRunE(c *cobra.Command, args []string) error {
	const op errors.Op = "cmdinfo.preRunE"
	overrides, err := config.NewOverrides(c.Flags())
	if err != nil {
		return errors.E(op, err)
	}
	w, err := config.Load(args[0], overrides)
	if err != nil {
		return errors.E(op, types.UniquePath(args[0]), err)
	}
	r.workflow = w
	return nil
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdinfo.runE"
	ref, found, err := migrate.New(r.workflow).LastMigrated(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}
	if !found {
		ref = None
	}
	t := table.NewWriter()
	t.SetOutputMirror(c.OutOrStdout())
	t.AppendHeader(table.Row{"LABEL", "LAST MIGRATED REF"})
	t.AppendRow(table.Row{r.workflow.LabelName(), ref})
	t.Render()
	return nil
}
