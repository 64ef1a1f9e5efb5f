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

package commands

import (
	"strings"
	"testing"

	"github.com/kptdev/transplant/internal/printer/fake"
	"github.com/stretchr/testify/assert"
)

func TestGetTransplantCommands(t *testing.T) {
	cmds := GetTransplantCommands(fake.CtxWithPrinter(fake.New()), "transplant")
	var names []string
	for _, c := range cmds {
		names = append(names, c.Name())
		assert.True(t, c.SilenceUsage)
		assert.False(t, strings.Contains(c.Example, "{{.}}"), c.Name())
		assert.Contains(t, c.Example, "transplant "+c.Name())
	}
	assert.Equal(t, []string{"migrate", "info"}, names)
}
