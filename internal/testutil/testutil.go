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

package testutil

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/kptdev/transplant/internal/gitutil"
	"github.com/stretchr/testify/assert"
	assertnow "gotest.tools/assert"
	"sigs.k8s.io/kustomize/kyaml/sets"
)

const TmpDirPrefix = "test-transplant"

var AssertNoError = assertnow.NilError

// gitEnv makes test commits independent of the user's git configuration.
var gitEnv = []string{
	"GIT_AUTHOR_NAME=Test Contributor",
	"GIT_AUTHOR_EMAIL=contributor@example.com",
	"GIT_COMMITTER_NAME=Test Contributor",
	"GIT_COMMITTER_EMAIL=contributor@example.com",
	"GIT_CONFIG_NOSYSTEM=1",
}

// ConfigureTestCache points the destination cache to a temporary directory
// for the duration of the tests in m.
func ConfigureTestCache(m *testing.M) int {
	dir, err := os.MkdirTemp("", TmpDirPrefix+"-cache-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create cache dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(dir)
	if err := os.Setenv(gitutil.RepoCacheDirEnv, dir); err != nil {
		fmt.Fprintf(os.Stderr, "unable to set %s: %v\n", gitutil.RepoCacheDirEnv, err)
		return 1
	}
	return m.Run()
}

// TestGitRepo is a bare repository playing the role of a destination, plus
// a scratch clone used to make commits the way a human contributor would.
type TestGitRepo struct {
	t *testing.T

	// RepoDirectory is the bare repository.
	RepoDirectory string

	// ScratchDirectory is a clone of RepoDirectory with a work tree.
	ScratchDirectory string
}

// NewTestGitRepo creates an empty bare repository with main as its default
// branch.
func NewTestGitRepo(t *testing.T) *TestGitRepo {
	t.Helper()
	g := &TestGitRepo{
		t:                t,
		RepoDirectory:    filepath.Join(t.TempDir(), "dest.git"),
		ScratchDirectory: filepath.Join(t.TempDir(), "scratch"),
	}
	Git(t, "", "init", "--quiet", "--bare", "--initial-branch=main", g.RepoDirectory)
	Git(t, "", "clone", "--quiet", g.RepoDirectory, g.ScratchDirectory)
	return g
}

// URL returns the url of the bare repository.
func (g *TestGitRepo) URL() string {
	return "file://" + filepath.ToSlash(g.RepoDirectory)
}

// Scratch runs a git command in the scratch clone.
func (g *TestGitRepo) Scratch(args ...string) string {
	g.t.Helper()
	return Git(g.t, g.ScratchDirectory, args...)
}

// Bare runs a git command in the bare repository.
func (g *TestGitRepo) Bare(args ...string) string {
	g.t.Helper()
	return Git(g.t, g.RepoDirectory, args...)
}

// CommitFiles writes files on top of the current state of branch, commits
// them with message and pushes the result back. It returns the new commit.
func (g *TestGitRepo) CommitFiles(branch string, files map[string]string, message string) string {
	g.t.Helper()
	g.checkout(branch)
	WriteFiles(g.t, g.ScratchDirectory, files)
	g.Scratch("add", "--all")
	g.Scratch("commit", "--quiet", "--allow-empty", "-m", message)
	g.Scratch("push", "--quiet", "origin", "HEAD:refs/heads/"+branch)
	return g.Scratch("rev-parse", "HEAD")
}

// RemoveFiles deletes paths from branch in a new commit and returns it.
func (g *TestGitRepo) RemoveFiles(branch string, paths []string, message string) string {
	g.t.Helper()
	g.checkout(branch)
	g.Scratch(append([]string{"rm", "--quiet", "--"}, paths...)...)
	g.Scratch("commit", "--quiet", "-m", message)
	g.Scratch("push", "--quiet", "origin", "HEAD:refs/heads/"+branch)
	return g.Scratch("rev-parse", "HEAD")
}

// CreateBranch creates branch in the bare repository pointing at from.
func (g *TestGitRepo) CreateBranch(branch, from string) {
	g.t.Helper()
	g.Bare("branch", "--force", branch, from)
}

// Merge merges other into branch with a merge commit and returns it.
func (g *TestGitRepo) Merge(branch, other, message string) string {
	g.t.Helper()
	g.checkout(branch)
	g.Scratch("merge", "--quiet", "--no-ff", "-m", message, "origin/"+other)
	g.Scratch("push", "--quiet", "origin", "HEAD:refs/heads/"+branch)
	return g.Scratch("rev-parse", "HEAD")
}

func (g *TestGitRepo) checkout(branch string) {
	g.t.Helper()
	g.Scratch("fetch", "--quiet", "origin")
	if g.RefExists("refs/heads/" + branch) {
		g.Scratch("checkout", "--quiet", "-f", "-B", branch, "origin/"+branch)
		return
	}
	g.Scratch("symbolic-ref", "HEAD", "refs/heads/"+branch)
	g.Scratch("rm", "-r", "-f", "--quiet", "--ignore-unmatch", ".")
}

// RefExists returns true if ref exists in the bare repository.
func (g *TestGitRepo) RefExists(ref string) bool {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", ref)
	cmd.Dir = g.RepoDirectory
	return cmd.Run() == nil
}

// RevParse resolves rev in the bare repository.
func (g *TestGitRepo) RevParse(rev string) string {
	g.t.Helper()
	return g.Bare("rev-parse", "--verify", rev)
}

// Parents returns the parents of rev.
func (g *TestGitRepo) Parents(rev string) []string {
	g.t.Helper()
	return strings.Fields(g.Bare("log", "-n1", "--format=%P", rev))
}

// Message returns the full commit message of rev.
func (g *TestGitRepo) Message(rev string) string {
	g.t.Helper()
	return g.Bare("log", "-n1", "--format=%B", rev)
}

// Author returns the author of rev as "Name <email>".
func (g *TestGitRepo) Author(rev string) string {
	g.t.Helper()
	return g.Bare("log", "-n1", "--format=%an <%ae>", rev)
}

// CommitCount returns the number of commits reachable from rev.
func (g *TestGitRepo) CommitCount(rev string) string {
	g.t.Helper()
	return g.Bare("rev-list", "--count", rev)
}

// Files returns the contents of every file in the tree of rev.
func (g *TestGitRepo) Files(rev string) map[string]string {
	g.t.Helper()
	files := map[string]string{}
	out := g.Bare("ls-tree", "-r", "--name-only", rev)
	if out == "" {
		return files
	}
	for _, name := range strings.Split(out, "\n") {
		files[name] = GitRaw(g.t, g.RepoDirectory, "cat-file", "-p", rev+":"+name)
	}
	return files
}

// AssertFiles verifies that the tree of rev contains exactly the expected
// files.
func (g *TestGitRepo) AssertFiles(t *testing.T, rev string, expected map[string]string) bool {
	return assert.Equal(t, expected, g.Files(rev))
}

// Git runs git in dir and returns its trimmed stdout. The test fails
// immediately if git fails.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	return strings.TrimSpace(GitRaw(t, dir, args...))
}

// GitRaw runs git in dir and returns its stdout as is.
func GitRaw(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), gitEnv...)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String()
}

// WriteFiles writes files relative to dir, creating parent directories.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		AssertNoError(t, os.MkdirAll(filepath.Dir(p), 0700))
		AssertNoError(t, os.WriteFile(p, []byte(content), 0600))
	}
}

// ReadTree returns the contents of every regular file below dir, keyed by
// slash-separated relative path. Git directories are skipped.
func ReadTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	AssertNoError(t, err)
	return files
}

// Diff returns the set of relative file paths that differ between the two
// directories, either because they only exist on one side or because their
// contents differ.
func Diff(t *testing.T, sourceDir, destDir string) sets.String {
	t.Helper()
	source := ReadTree(t, sourceDir)
	dest := ReadTree(t, destDir)

	sourceFiles := sets.String{}
	for f := range source {
		sourceFiles.Insert(f)
	}
	destFiles := sets.String{}
	for f := range dest {
		destFiles.Insert(f)
	}

	diff := sourceFiles.SymmetricDifference(destFiles)
	for _, f := range sourceFiles.Intersection(destFiles).List() {
		if source[f] != dest[f] {
			diff.Insert(f)
		}
	}
	return diff
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
