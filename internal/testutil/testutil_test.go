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


package testutil_test

import (
	"os"
	"testing"

	"github.com/kptdev/transplant/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.ConfigureTestCache(m))
}

func TestFiles(t *testing.T) {
	g := testutil.NewTestGitRepo(t)
	files := map[string]string{
		"a.txt":     "a\n",
		"b.txt":     "b",
		"dir/c.txt": "\n  c  \n\n",
	}
	g.CommitFiles("main", files, "files")

	assert.Equal(t, files, g.Files("main"))
	assert.Equal(t, "a", testutil.Git(t, g.RepoDirectory, "cat-file", "-p", "main:a.txt"))
	assert.Equal(t, "a\n", testutil.GitRaw(t, g.RepoDirectory, "cat-file", "-p", "main:a.txt"))
}
