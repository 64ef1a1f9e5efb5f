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

package gitutil

import (
	"context"
	"crypto/md5"
	"encoding/base32"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/kptdev/transplant/internal/types"
)

// RepoCacheDirEnv is the name of the environment variable that controls the cache directory
// for destination repos.  Defaults to UserHomeDir/.transplant/repos if unspecified.
const RepoCacheDirEnv = "TRANSPLANT_CACHE_DIR"

// CacheRepo returns the cache git directory for the repository at uri,
// creating it if needed. cacheDir overrides the default cache location when
// it is not empty.
func CacheRepo(ctx context.Context, cacheDir, uri string) (*Repo, error) {
	const op errors.Op = "gitutil.CacheRepo"
	if cacheDir == "" {
		var err error
		cacheDir, err = repoCacheDir()
		if err != nil {
			return nil, errors.E(op, err)
		}
	}
	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return nil, errors.E(op, errors.IO, types.UniquePath(cacheDir), fmt.Errorf(
			"error creating cache directory for repo: %w", err))
	}

	gitDir, err := filepath.Abs(filepath.Join(cacheDir, repoDirName(uri)))
	if err != nil {
		return nil, errors.E(op, errors.IO, types.UniquePath(cacheDir), err)
	}
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		gitRunner, err := NewLocalGitRunner(cacheDir)
		if err != nil {
			return nil, errors.E(op, errors.Repo(uri), err)
		}
		if _, err := gitRunner.Run(ctx, "init", "--quiet", "--bare", gitDir); err != nil {
			return nil, errors.E(op, errors.Git, errors.Repo(uri),
				fmt.Errorf("error running `git init`: %w", err))
		}
	}
	return OpenRepo(gitDir)
}

// repoDirName returns the cache directory name for a remote repo.
// This takes the md5 hash of the repo uri and then base32 encodes it to make
// sure it doesn't contain characters that isn't legal in directory names.
func repoDirName(uri string) string {
	sum := md5.Sum([]byte(uri))
	return strings.ToLower(strings.TrimRight(base32.StdEncoding.EncodeToString(sum[:]), "="))
}

func repoCacheDir() (string, error) {
	const op errors.Op = "gitutil.repoCacheDir"
	dir := os.Getenv(RepoCacheDirEnv)
	if dir != "" {
		return dir, nil
	}

	// cache location unspecified, use UserHomeDir/.transplant/repos
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.E(op, errors.IO, fmt.Errorf(
			"error looking up user home dir: %w", err))
	}
	return filepath.Join(dir, ".transplant", "repos"), nil
}
