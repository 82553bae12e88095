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

import "strings"

// Marker is the ASCII discriminator prefix (§4.5, §9) that distinguishes a
// structured event line on a workflow binary's stderr from unstructured
// output. Everything after it on the line is the event's JSON encoding;
// everything on a line that doesn't start with it is raw_output.
const Marker = "__WF_EVENT__:"

// Encode prefixes an event's JSON encoding with Marker, producing the
// exact line a workflow binary writes to its own stderr.
func Encode(e Event) (string, error) {
	b, err := e.Marshal()
	if err != nil {
		return "", err
	}
	return Marker + string(b), nil
}

// ParseStderrLine classifies one line of a child's stderr per §6/§9: a
// line beginning with Marker is parsed as a structured event; any other
// line, or one that fails to parse or carries a tag outside the closed
// set despite the marker, becomes a raw_output{stream:"stderr"} event.
// This function never fails — it is the single point past which stderr is
// either a known event or unstructured text, never a parse error surfaced
// to the caller.
func ParseStderrLine(line string) Event {
	if rest, ok := strings.CutPrefix(line, Marker); ok {
		if e, err := Unmarshal([]byte(rest)); err == nil {
			switch e.Type {
			case TypePhaseStarted, TypePhaseCompleted, TypePhaseFailed,
				TypeTaskStarted, TypeTaskProgress, TypeTaskCompleted, TypeTaskFailed,
				TypeAgentStarted, TypeAgentMessage, TypeAgentCompleted, TypeAgentFailed,
				TypeStateFileCreated, TypeRawOutput:
				return e
			}
		}
	}
	return RawOutput(StreamStderr, line)
}
