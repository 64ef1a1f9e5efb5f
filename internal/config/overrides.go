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

package config

import (
	"strings"

	"github.com/kptdev/transplant/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

// EnvPrefix is the prefix of the environment variables overriding
// workflow values, e.g. TRANSPLANT_GIT_URL.
const EnvPrefix = "TRANSPLANT"

// Override keys. Each one is a flag name and, upper cased with the prefix,
// an environment variable.
const (
	FolderDirKey       = "folder-dir"
	GitURLKey          = "git-url"
	GitFetchKey        = "git-fetch"
	GitPushKey         = "git-push"
	AskConfirmationKey = "ask-confirmation"
	CacheDirKey        = "cache-dir"
)

// AddOverrideFlags registers the override flags on fs.
func AddOverrideFlags(fs *pflag.FlagSet) {
	fs.String(FolderDirKey, "", "directory written by a folder destination")
	fs.String(GitURLKey, "", "url of the destination repository")
	fs.String(GitFetchKey, "", "destination ref new changes are based on")
	fs.String(GitPushKey, "", "destination ref new changes are pushed to")
	fs.Bool(AskConfirmationKey, false, "show the change and ask for confirmation before pushing")
	fs.String(CacheDirKey, "", "directory holding the local copies of destination repositories")
}

// Overrides applies flag and environment overrides to a workflow. Flags
// take precedence over the environment, which takes precedence over the
// file.
type Overrides struct {
	v *viper.Viper
}

// NewOverrides returns Overrides reading from the environment and, when it
// is not nil, from the flags registered by AddOverrideFlags on fs.
func NewOverrides(fs *pflag.FlagSet) (*Overrides, error) {
	const op errors.Op = "config.NewOverrides"
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{FolderDirKey, GitURLKey, GitFetchKey, GitPushKey, AskConfirmationKey, CacheDirKey} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.E(op, errors.Internal, err)
		}
		if fs == nil {
			continue
		}
		if f := fs.Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.E(op, errors.Internal, err)
			}
		}
	}
	return &Overrides{v: v}, nil
}

// Apply modifies w in place.
func (o *Overrides) Apply(w *Workflow) {
	if o.v.IsSet(FolderDirKey) {
		if w.Destination.Git != nil {
			klog.Warningf("ignoring %s override for a git destination", FolderDirKey)
		} else {
			if w.Destination.Folder == nil {
				w.Destination.Folder = &Folder{}
			}
			w.Destination.Folder.Path = o.v.GetString(FolderDirKey)
		}
	}

	for key, set := range map[string]func(*Git, string){
		GitURLKey:   func(g *Git, s string) { g.URL = s },
		GitFetchKey: func(g *Git, s string) { g.Fetch = s },
		GitPushKey:  func(g *Git, s string) { g.Push = s },
	} {
		if !o.v.IsSet(key) {
			continue
		}
		if w.Destination.Folder != nil {
			klog.Warningf("ignoring %s override for a folder destination", key)
			continue
		}
		if w.Destination.Git == nil {
			w.Destination.Git = &Git{}
		}
		set(w.Destination.Git, o.v.GetString(key))
	}

	if o.v.IsSet(AskConfirmationKey) {
		w.AskConfirmation = o.v.GetBool(AskConfirmationKey)
	}
	if o.v.IsSet(CacheDirKey) {
		w.CacheDir = o.v.GetString(CacheDirKey)
	}
}

// Load reads the workflow file at path, applies overrides and validates
// the result.
func Load(path string, o *Overrides) (*Workflow, error) {
	const op errors.Op = "config.Load"
	w, err := ReadFile(path)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if o != nil {
		o.Apply(w)
	}
	if err := w.Validate(); err != nil {
		return nil, errors.E(op, err)
	}
	return w, nil
}
