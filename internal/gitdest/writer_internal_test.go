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

package gitdest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_onError(t *testing.T) {
	testCases := map[state]state{
		idle:        aborted,
		locating:    aborted,
		confirming:  aborted,
		reconciling: aborted,
		committing:  failed,
		pushing:     failed,
	}

	for from, expected := range testCases {
		t.Run(from.String(), func(t *testing.T) {
			assert.Equal(t, expected, from.onError())
		})
	}
	assert.Equal(t, "Failed", failed.String())
}
