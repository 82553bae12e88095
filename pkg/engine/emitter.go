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
package engine

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/event"
	"github.com/molaco/workflow-manager/internal/log"
)

// Emitter receives every lifecycle event the engine produces. Satisfied
// by *eventbus.Bus when the engine runs in-process with the orchestrator,
// and by *LineEmitter when it runs inside a workflow binary whose events
// cross a process boundary on stderr.
type Emitter interface {
	Publish(e event.Event)
}

// LineEmitter writes each event as one marker-prefixed line (§4.5's
// __WF_EVENT__ wire format) to w, typically os.Stderr. Writes are
// serialized so concurrent tasks never interleave partial lines.
type LineEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineEmitter constructs a LineEmitter over w.
func NewLineEmitter(w io.Writer) *LineEmitter {
	return &LineEmitter{w: w}
}

// Publish encodes and writes one event line. Emission failures are logged
// and swallowed: event delivery is never allowed to fail orchestration.
func (l *LineEmitter) Publish(e event.Event) {
	line, err := event.Encode(e)
	if err != nil {
		log.Warn("engine: failed to encode event", zap.String("type", string(e.Type)), zap.Error(err))
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := fmt.Fprintln(l.w, line); err != nil {
		log.Warn("engine: failed to write event line", zap.Error(err))
	}
}

// nopEmitter backs a nil Options.Emitter so the engine never nil-checks
// at each emission site.
type nopEmitter struct{}

func (nopEmitter) Publish(event.Event) {}
