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

// Package cmdmigrate contains the migrate command
package cmdmigrate

import (
	"context"

	"github.com/kptdev/transplant/internal/config"
	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/migrate"
	"github.com/kptdev/transplant/internal/printer"
	"github.com/kptdev/transplant/internal/types"
	"github.com/kptdev/transplant/internal/util/cmdutil"
	"github.com/kptdev/transplant/pkg/destination"
	"github.com/spf13/cobra"
)

const (
	migrateShort = `Publish the origin directory of a workflow to its destination`
	migrateLong  = `
Copies the origin directory of the workflow in CONFIG, applies the configured
transformations and writes the result to the destination.

Git destinations get a single new commit recording the origin ref in a
message trailer. With --baseline the changes made in the destination since
that commit are kept; use --baseline=last-migrated to use the commit of the
last migration.

Exit codes: 2 invalid configuration, 3 ambiguous destination history,
4 conflict with destination changes, 5 aborted by the user, 6 push failed.
`
	migrateExamples = `
  # publish HEAD of the origin repository
  $ {{.}} migrate workflow.yaml

  # publish an explicit origin ref, keeping destination changes
  $ {{.}} migrate workflow.yaml --origin-ref=v1.2.0 --baseline=last-migrated

  # publish to a review ref
  $ {{.}} migrate workflow.yaml --git-push=refs/for/main --ask-confirmation
`
)

// NewRunner returns a command runner
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{
		ctx: ctx,
	}
	c := &cobra.Command{
		Use:     "migrate CONFIG",
		Args:    cobra.ExactArgs(1),
		Short:   migrateShort,
		Long:    migrateShort + "\n" + migrateLong,
		Example: migrateExamples,
		PreRunE: r.preRunE,
		RunE:    r.runE,
	}
	cmdutil.FixDocs("{{.}}", parent, c)
	r.Command = c
	c.Flags().StringVar(&r.Options.OriginRef, "origin-ref", "",
		"origin revision being migrated. Defaults to HEAD of the origin directory.")
	c.Flags().StringVar(&r.Options.Baseline, "baseline", "",
		"destination commit the origin was last imported at, or '"+destination.LastMigrated+"'.")
	c.Flags().StringVar(&r.Options.Summary, "message", "",
		"summary of the destination change.")
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
	Options  migrate.Options
	workflow *config.Workflow
}

func (r *Runner) preRunE(c *cobra.Command, args []string) error {
	const op errors.Op = "cmdmigrate.preRunE"
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

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = "cmdmigrate.runE"
	pr := printer.FromContextOrDie(r.ctx)
	res, err := migrate.New(r.workflow).Run(r.ctx, r.Options)
	if err != nil {
		pr.Printf("migration...failed\n")
		return errors.E(op, err)
	}
	pr.Printf("migration...%s\n", res)
	return nil
}
