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

package cmdmigrate_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kptdev/transplant/internal/cmdmigrate"
	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/printer/fake"
	"github.com/kptdev/transplant/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.ConfigureTestCache(m))
}

func writeWorkflow(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	testutil.AssertNoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestCmd(t *testing.T) {
	repo := testutil.NewTestGitRepo(t)
	origin := t.TempDir()
	testutil.WriteFiles(t, origin, map[string]string{"a.txt": "a\n"})
	cfg := writeWorkflow(t, fmt.Sprintf(`
origin: {path: %s}
destination:
  git: {url: %s, push: main}
`, origin, repo.URL()))

	pr := fake.New()
	r := cmdmigrate.NewRunner(fake.CtxWithPrinter(pr), "transplant")
	r.Command.SetArgs([]string{cfg, "--origin-ref=r1", "--message=Import r1"})
	if !assert.NoError(t, r.Command.Execute()) {
		t.FailNow()
	}
	repo.AssertFiles(t, "main", map[string]string{"a.txt": "a\n"})
	assert.Equal(t, "Import r1\n\nGitOrigin-RevId: r1", repo.Message("main"))
	assert.Equal(t, []string{"migration...OK\n"}, pr.Texts(fake.Output))

	// Publishing the same content again is not an error.
	pr = fake.New()
	r = cmdmigrate.NewRunner(fake.CtxWithPrinter(pr), "transplant")
	r.Command.SetArgs([]string{cfg, "--origin-ref=r1"})
	if !assert.NoError(t, r.Command.Execute()) {
		t.FailNow()
	}
	assert.Equal(t, []string{"migration...NO_CHANGES\n"}, pr.Texts(fake.Output))
	assert.Equal(t, "1", repo.CommitCount("main"))
}

func TestCmd_overrides(t *testing.T) {
	repo := testutil.NewTestGitRepo(t)
	origin := t.TempDir()
	testutil.WriteFiles(t, origin, map[string]string{"a.txt": "a\n"})
	cfg := writeWorkflow(t, fmt.Sprintf(`
origin: {path: %s}
destination:
  git: {url: file:///does/not/exist.git, push: main}
`, origin))

	r := cmdmigrate.NewRunner(fake.CtxWithPrinter(fake.New()), "transplant")
	r.Command.SetArgs([]string{cfg, "--origin-ref=r1", "--git-url=" + repo.URL(), "--git-push=feature"})
	if !assert.NoError(t, r.Command.Execute()) {
		t.FailNow()
	}
	assert.True(t, repo.RefExists("refs/heads/feature"))
	assert.False(t, repo.RefExists("refs/heads/main"))
}

func TestCmd_invalidConfig(t *testing.T) {
	cfg := writeWorkflow(t, `
origin: {path: src}
destination:
  git: {url: file:///repo.git}
`)
	pr := fake.New()
	r := cmdmigrate.NewRunner(fake.CtxWithPrinter(pr), "transplant")
	r.Command.SilenceUsage = true
	r.Command.SetArgs([]string{cfg})
	err := r.Command.Execute()
	if assert.Error(t, err) {
		assert.Equal(t, errors.Validation, errors.KindOf(err))
	}
	assert.Empty(t, pr.Texts(fake.Output))
}

func TestCmd_unknownBaseline(t *testing.T) {
	repo := testutil.NewTestGitRepo(t)
	repo.CommitFiles("main", map[string]string{"a.txt": "a\n"}, "initial")
	origin := t.TempDir()
	testutil.WriteFiles(t, origin, map[string]string{"a.txt": "b\n"})
	cfg := writeWorkflow(t, fmt.Sprintf(`
origin: {path: %s}
destination:
  git: {url: %s, push: main}
`, origin, repo.URL()))

	pr := fake.New()
	r := cmdmigrate.NewRunner(fake.CtxWithPrinter(pr), "transplant")
	r.Command.SilenceUsage = true
	r.Command.SetArgs([]string{cfg, "--origin-ref=r1", "--baseline=0123456789abcdef0123456789abcdef01234567"})
	err := r.Command.Execute()
	if assert.Error(t, err) {
		assert.Equal(t, errors.Validation, errors.KindOf(err))
	}
	assert.Equal(t, []string{"migration...failed\n"}, pr.Texts(fake.Output))
	assert.Equal(t, "1", repo.CommitCount("main"))
}
