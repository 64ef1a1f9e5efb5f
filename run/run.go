// Copyright 2019 The kpt Authors
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

package run

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"

	"github.com/kptdev/transplant/commands"
	"github.com/kptdev/transplant/internal/printer"
	"github.com/kptdev/transplant/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

const (
	cliShort = `Publish a directory to a git repository or folder, one commit per migration`
	cliLong  = `
transplant copies the content of an origin directory, applies a sequence of
transformations and publishes the result to a destination. Every commit it
creates in a git destination records the origin ref in a message trailer, so
later migrations can find where the previous one left off.
`
)

func GetMain(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "transplant",
		Short:        cliShort,
		Long:         cliShort + "\n" + cliLong,
		SilenceUsage: true,
		// We handle all errors in main after return from cobra so we can
		// adjust the error message coming from libraries
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cmd.Flags().GetBool("help")
			if err != nil {
				return err
			}
			if h {
				return cmd.Help()
			}
			return cmd.Usage()
		},
	}

	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	// wire the global printer
	pr := printer.New(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())

	// create context with associated printer
	ctx = printer.WithContext(ctx, pr)

	cmd.AddCommand(commands.GetTransplantCommands(ctx, "transplant")...)

	// enable stack traces
	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"Print a stack-trace on failure")

	if _, err := exec.LookPath("git"); err != nil {
		fmt.Fprintf(os.Stderr, "transplant requires that `git` is installed and on the PATH")
		os.Exit(1)
	}

	cmd.AddCommand(versionCmd)

	// help and documentation. Cobra only adds the help command to a
	// command that already has sub-commands.
	cmd.InitDefaultHelpCmd()
	hideFlags(cmd)
	return cmd
}

var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of transplant",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
	},
}

// hideFlags hides any cobra flags that are unlikely to be used by
// customers.
func hideFlags(cmd *cobra.Command) {
	flags := []string{
		// Flags related to logging
		"add_dir_header",
		"alsologtostderr",
		"log_backtrace_at",
		"log_dir",
		"log_file",
		"log_file_max_size",
		"logtostderr",
		"one_output",
		"skip_headers",
		"skip_log_headers",
		"stack-trace",
		"stderrthreshold",
		"vmodule",
	}
	for _, f := range flags {
		_ = cmd.PersistentFlags().MarkHidden(f)
	}

	// We need to recurse into subcommands otherwise flags aren't hidden on leaf commands
	for _, child := range cmd.Commands() {
		hideFlags(child)
	}
}
