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

package resolver

import (
	"github.com/kptdev/transplant/internal/errors"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&validationErrorResolver{})
}

const (
	validationMsg = `
Error: Invalid configuration.
{{- range .violations }}
  {{ .Field }}: {{ if .Reason }}{{ .Reason }}{{ else }}{{ .Type }}{{ end }}
{{- end }}
`
)

// validationErrorResolver is an implementation of the ErrorResolver interface
// to resolve configuration validation errors.
type validationErrorResolver struct{}

func (*validationErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var validationErr *errors.ValidationError
	if !errors.As(err, &validationErr) {
		return ResolvedResult{}, false
	}
	return ResolvedResult{
		Message: ExecuteTemplate(validationMsg, map[string]interface{}{
			"violations": validationErr.Violations,
		}),
		ExitCode: ExitValidation,
	}, true
}
