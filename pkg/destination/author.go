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

package destination

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultAuthor is used when a snapshot has no author.
var DefaultAuthor = Author{Name: "Transplant", Email: "noreply@transplant.dev"}

var authorRegex = regexp.MustCompile(`^([^<>]+)<([^<>]*)>$`)

// Author is the identity of the person or tool a change is attributed to.
type Author struct {
	Name  string
	Email string
}

// ParseAuthor parses an author in the "Name <email>" form.
func ParseAuthor(s string) (Author, error) {
	m := authorRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return Author{}, fmt.Errorf("invalid author %q, expected 'Name <email>'", s)
	}
	return Author{Name: strings.TrimSpace(m[1]), Email: strings.TrimSpace(m[2])}, nil
}

// Empty returns true for the zero Author.
func (a Author) Empty() bool {
	return a.Name == "" && a.Email == ""
}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}
