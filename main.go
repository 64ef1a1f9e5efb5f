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

package main

import (
	"context"
	"fmt"
	"os"

	goerrors "github.com/go-errors/errors"
	"github.com/kptdev/transplant/internal/errors/resolver"
	"github.com/kptdev/transplant/internal/util/cmdutil"
	"github.com/kptdev/transplant/run"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	os.Exit(runMain())
}

// runMain runs the root command and returns the exit code.
func runMain() int {
	klog.InitFlags(nil)
	defer klog.Flush()

	cmd := run.GetMain(context.Background())
	if err := cmd.Execute(); err != nil {
		return handleErr(cmd, err)
	}
	return 0
}

// handleErr prints err and returns the exit code for it.
func handleErr(cmd *cobra.Command, err error) int {
	if cmdutil.PrintErrorStacktrace() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", goerrors.Wrap(err, 1).ErrorStack())
	}
	if rr, found := resolver.ResolveError(err); found {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", rr.Message)
		return rr.ExitCode
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
	return resolver.ExitCode(err)
}
