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
package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripIdentity(t *testing.T) {
	boom := errors.New("boom")
	events := []Event{
		PhaseStarted(0, "analyze", 5),
		PhaseCompleted(4, "synthesize"),
		PhaseFailed(2, "research", boom),
		TaskStarted(1, "t1", "generate prompts", 3),
		TaskProgress("t1", "halfway"),
		TaskCompleted("t1", "done"),
		TaskCompleted("t2", ""),
		TaskFailed("t3", boom),
		AgentStarted("t1", "writer", "drafts notes"),
		AgentMessage("t1", "writer", "chunk"),
		AgentCompleted("t1", "writer", "ok"),
		AgentFailed("t1", "writer", boom),
		StateFileCreated(1, "/tmp/prompts.json", "generated prompts"),
		RawOutput(StreamStdout, "noise"),
		RawOutput(StreamStderr, "diagnostics"),
	}
	for _, e := range events {
		t.Run(string(e.Type), func(t *testing.T) {
			data, err := e.Marshal()
			require.NoError(t, err)
			got, err := Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, e, got)
		})
	}
}

func TestEncodeCarriesMarker(t *testing.T) {
	line, err := Encode(PhaseStarted(0, "X", 1))
	require.NoError(t, err)
	assert.Contains(t, line, Marker)

	got := ParseStderrLine(line)
	assert.Equal(t, TypePhaseStarted, got.Type)
	assert.Equal(t, "X", got.Name)
}

func TestParseStderrLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
	}{
		{
			name: "marker with valid event",
			line: Marker + `{"type":"task_completed","task_id":"t1"}`,
			want: TaskCompleted("t1", ""),
		},
		{
			name: "plain line is raw_output",
			line: "plain diagnostics",
			want: RawOutput(StreamStderr, "plain diagnostics"),
		},
		{
			name: "marker with broken json degrades to raw_output",
			line: Marker + `{"type":`,
			want: RawOutput(StreamStderr, Marker+`{"type":`),
		},
		{
			name: "marker mid-line does not trigger",
			line: "prefix " + Marker + "{}",
			want: RawOutput(StreamStderr, "prefix "+Marker+"{}"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStderrLine(tt.line))
		})
	}
}
