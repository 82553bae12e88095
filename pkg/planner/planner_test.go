// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molaco/workflow-manager/pkg/engine"
)

type stubBackend struct {
	response string
	err      error
	gotSys   string
	gotUser  string
}

func (s *stubBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	s.gotSys = system
	s.gotUser = prompt
	return s.response, s.err
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    [][]string
		wantErr bool
	}{
		{
			name: "bare object",
			text: `{"batches": [["a"], ["b", "c"]]}`,
			want: [][]string{{"a"}, {"b", "c"}},
		},
		{
			name: "fenced with prose",
			text: "Here is the schedule:\n```json\n{\"batches\": [[\"a\"]]}\n```\nDone.",
			want: [][]string{{"a"}},
		},
		{
			name: "braces inside strings",
			text: `{"batches": [["task-{0}"]]}`,
			want: [][]string{{"task-{0}"}},
		},
		{name: "no object", text: "I cannot schedule these tasks.", wantErr: true},
		{name: "unterminated object", text: `{"batches": [["a"]`, wantErr: true},
		{name: "empty batches", text: `{"batches": []}`, wantErr: true},
		{name: "not a plan", text: `{"something": "else"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ParsePlan(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Batches)
		})
	}
}

func TestPlan(t *testing.T) {
	tasks := []engine.TaskSummary{
		{ID: "a", Description: "first"},
		{ID: "b", Description: "second", DependsOn: []string{"a"}},
	}

	t.Run("happy path", func(t *testing.T) {
		backend := &stubBackend{response: `{"batches": [["a"], ["b"]]}`}
		p := New(backend, nil)
		plan, err := p.Plan(context.Background(), tasks)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a"}, {"b"}}, plan.Batches)
		assert.Contains(t, backend.gotUser, `"a"`)
		assert.NotEmpty(t, backend.gotSys)
	})

	t.Run("backend error surfaces for fallback", func(t *testing.T) {
		backend := &stubBackend{err: errors.New("throttled")}
		p := New(backend, nil)
		_, err := p.Plan(context.Background(), tasks)
		assert.Error(t, err)
	})

	t.Run("unparsable response surfaces for fallback", func(t *testing.T) {
		backend := &stubBackend{response: "sorry, no"}
		p := New(backend, nil)
		_, err := p.Plan(context.Background(), tasks)
		assert.Error(t, err)
	})
}
