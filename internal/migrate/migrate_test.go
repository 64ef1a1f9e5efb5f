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

package migrate_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kptdev/transplant/internal/config"
	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/migrate"
	"github.com/kptdev/transplant/internal/printer/fake"
	"github.com/kptdev/transplant/internal/testutil"
	"github.com/kptdev/transplant/pkg/destination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.ConfigureTestCache(m))
}

func gitWorkflow(t *testing.T, origin string, repo *testutil.TestGitRepo, extra string) *config.Workflow {
	w, err := config.Parse([]byte(fmt.Sprintf(`
origin:
  path: %s
destination:
  git:
    url: %s
    push: main
%s`, origin, repo.URL(), extra)))
	require.NoError(t, err)
	require.NoError(t, w.Validate())
	return w
}

func TestRun(t *testing.T) {
	repo := testutil.NewTestGitRepo(t)
	origin := t.TempDir()
	testutil.WriteFiles(t, origin, map[string]string{
		"lib/a.txt":   "a\n",
		"lib/b/c.txt": "c\n",
		"BUILD":       "internal\n",
	})
	w := gitWorkflow(t, origin, repo, `
transformations:
  - move:
      paths:
        - {before: lib, after: ""}
        - {before: BUILD, after: internal/BUILD}
`)

	pr := fake.New()
	ctx := fake.CtxWithPrinter(pr)
	res, err := migrate.New(w).Run(ctx, migrate.Options{OriginRef: "abc123"})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, destination.OK, res)
	repo.AssertFiles(t, "main", map[string]string{
		"a.txt":          "a\n",
		"b/c.txt":        "c\n",
		"internal/BUILD": "internal\n",
	})
	assert.Equal(t, destination.DefaultSummary+"\n\n"+destination.DefaultLabelName+": abc123", repo.Message("main"))
	assert.Equal(t, destination.DefaultAuthor.String(), repo.Author("main"))

	// The origin directory is never modified.
	assert.Equal(t, map[string]string{
		"lib/a.txt":   "a\n",
		"lib/b/c.txt": "c\n",
		"BUILD":       "internal\n",
	}, testutil.ReadTree(t, origin))

	ref, found, err := migrate.New(w).LastMigrated(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc123", ref)
}

func TestRun_gitOrigin(t *testing.T) {
	repo := testutil.NewTestGitRepo(t)
	origin := t.TempDir()
	testutil.Git(t, origin, "init", "--quiet")
	testutil.WriteFiles(t, origin, map[string]string{"a.txt": "a\n"})
	testutil.Git(t, origin, "add", "--all")
	testutil.Git(t, origin, "commit", "--quiet", "-m", "upstream change",
		"--author=Alice <alice@example.com>", "--date=@1600000000 +0000")
	head := testutil.Git(t, origin, "rev-parse", "HEAD")

	w := gitWorkflow(t, origin, repo, `
authoring:
  default: "Team <team@example.com>"
  mode: pass_thru
`)
	ctx := fake.CtxWithPrinter(fake.New())
	_, err := migrate.New(w).Run(ctx, migrate.Options{})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	repo.AssertFiles(t, "main", map[string]string{"a.txt": "a\n"})
	assert.Equal(t, "Alice <alice@example.com>", repo.Author("main"))
	assert.Equal(t, "1600000000", repo.Bare("log", "-1", "--format=%at", "main"))
	assert.Contains(t, repo.Message("main"), destination.DefaultLabelName+": "+head)
	assert.NotContains(t, repo.Files("main"), ".git/HEAD")
}

func TestRun_overwriteAuthor(t *testing.T) {
	repo := testutil.NewTestGitRepo(t)
	origin := t.TempDir()
	testutil.Git(t, origin, "init", "--quiet")
	testutil.WriteFiles(t, origin, map[string]string{"a.txt": "a\n"})
	testutil.Git(t, origin, "add", "--all")
	testutil.Git(t, origin, "commit", "--quiet", "-m", "upstream change", "--author=Alice <alice@example.com>")

	w := gitWorkflow(t, origin, repo, `
authoring:
  default: "Team <team@example.com>"
`)
	_, err := migrate.New(w).Run(fake.CtxWithPrinter(fake.New()), migrate.Options{Summary: "Import upstream"})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "Team <team@example.com>", repo.Author("main"))
	assert.Equal(t, "Import upstream", firstLine(repo.Message("main")))
}

func TestRun_missingOriginRef(t *testing.T) {
	repo := testutil.NewTestGitRepo(t)
	origin := t.TempDir()
	testutil.WriteFiles(t, origin, map[string]string{"a.txt": "a\n"})
	w := gitWorkflow(t, origin, repo, "")

	_, err := migrate.New(w).Run(fake.CtxWithPrinter(fake.New()), migrate.Options{})
	if assert.Error(t, err) {
		assert.Equal(t, errors.Validation, errors.KindOf(err))
	}
	assert.False(t, repo.RefExists("refs/heads/main"))
}

func TestRun_originInsideOtherWorkTree(t *testing.T) {
	repo := testutil.NewTestGitRepo(t)
	outer := t.TempDir()
	testutil.Git(t, outer, "init", "--quiet")
	testutil.WriteFiles(t, outer, map[string]string{"README": "outer\n", "src/a.txt": "a\n"})
	testutil.Git(t, outer, "add", "--all")
	testutil.Git(t, outer, "commit", "--quiet", "-m", "outer", "--author=Alice <alice@example.com>")
	origin := filepath.Join(outer, "src")
	w := gitWorkflow(t, origin, repo, `
authoring:
  default: "Team <team@example.com>"
  mode: pass_thru
`)

	_, err := migrate.New(w).Run(fake.CtxWithPrinter(fake.New()), migrate.Options{})
	var validationErr *errors.ValidationError
	if assert.True(t, errors.As(err, &validationErr)) {
		assert.Equal(t, []string{"origin-ref"}, validationErr.Violations.Fields())
	}
	assert.False(t, repo.RefExists("refs/heads/main"))

	_, err = migrate.New(w).Run(fake.CtxWithPrinter(fake.New()), migrate.Options{OriginRef: "r1"})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	repo.AssertFiles(t, "main", map[string]string{"a.txt": "a\n"})
	assert.Equal(t, "Team <team@example.com>", repo.Author("main"))
	assert.Contains(t, repo.Message("main"), destination.DefaultLabelName+": r1")
}

func TestRun_missingOriginDir(t *testing.T) {
	repo := testutil.NewTestGitRepo(t)
	w := gitWorkflow(t, filepath.Join(t.TempDir(), "nope"), repo, "")

	_, err := migrate.New(w).Run(fake.CtxWithPrinter(fake.New()), migrate.Options{OriginRef: "r1"})
	if assert.Error(t, err) {
		assert.Equal(t, errors.Validation, errors.KindOf(err))
	}
}

func TestRun_lastMigrated(t *testing.T) {
	repo := testutil.NewTestGitRepo(t)
	origin := t.TempDir()
	testutil.WriteFiles(t, origin, map[string]string{"a.txt": "a\n", "b.txt": "b\n"})
	w := gitWorkflow(t, origin, repo, "")
	ctx := fake.CtxWithPrinter(fake.New())

	_, err := migrate.New(w).Run(ctx, migrate.Options{OriginRef: "r1", Baseline: destination.LastMigrated})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	repo.CommitFiles("main", map[string]string{"c.txt": "human\n"}, "destination only change")

	testutil.WriteFiles(t, origin, map[string]string{"a.txt": "a2\n"})
	res, err := migrate.New(w).Run(ctx, migrate.Options{OriginRef: "r2", Baseline: destination.LastMigrated})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, destination.OK, res)
	repo.AssertFiles(t, "main", map[string]string{"a.txt": "a2\n", "b.txt": "b\n", "c.txt": "human\n"})

	ref, found, err := migrate.New(w).LastMigrated(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "r2", ref)
}

func TestRun_folder(t *testing.T) {
	origin := t.TempDir()
	testutil.WriteFiles(t, origin, map[string]string{"a.txt": "a\n"})
	out := filepath.Join(t.TempDir(), "out")
	testutil.WriteFiles(t, out, map[string]string{"old.txt": "old\n", "keep.txt": "keep\n"})

	w, err := config.Parse([]byte(fmt.Sprintf(`
origin: {path: %s}
destination: {folder: {path: %s}}
excludedDestinationPaths: [keep.txt]
`, origin, out)))
	require.NoError(t, err)

	res, err := migrate.New(w).Run(fake.CtxWithPrinter(fake.New()), migrate.Options{OriginRef: "r1"})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, destination.OK, res)
	assert.Equal(t, map[string]string{"a.txt": "a\n", "keep.txt": "keep\n"}, testutil.ReadTree(t, out))
}

func TestRun_destinationError(t *testing.T) {
	origin := t.TempDir()
	testutil.WriteFiles(t, origin, map[string]string{"a.txt": "a\n"})
	w, err := config.Parse([]byte(fmt.Sprintf("origin: {path: %s}\ndestination: {folder: {path: out}}", origin)))
	require.NoError(t, err)

	m := migrate.New(w)
	m.NewDestination = func(context.Context) (destination.Destination, error) {
		return nil, errors.E(errors.Validation, "no destination")
	}
	_, err = m.Run(fake.CtxWithPrinter(fake.New()), migrate.Options{OriginRef: "r1"})
	if assert.Error(t, err) {
		assert.Equal(t, errors.Validation, errors.KindOf(err))
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
