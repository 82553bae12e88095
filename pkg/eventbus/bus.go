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

// Package eventbus serializes the closed event set of internal/event from
// many producers (the Orchestration Engine, one goroutine per live Agent
// Session) to two deterministic consumers: a live Tree mapped into the
// TUI, and a durable Store. Per-producer order is preserved; there is no
// ordering guarantee across producers (§5).
package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/event"
	"github.com/molaco/workflow-manager/internal/log"
	"github.com/molaco/workflow-manager/internal/pubsub"
)

// bufferSize bounds the Bus's internal channel. Per §4.5's failure
// semantics, event loss is minimized with buffering and drop-warn used
// only as a last resort — this is deliberately generous so a slow Store
// write never back-pressures an agent's reader fiber.
const bufferSize = 4096

// Store is the durable sink a Bus forwards every event to. It is
// satisfied by *store.Store; kept as a narrow interface here so eventbus
// never imports the storage package.
type Store interface {
	AppendEvent(ctx context.Context, runID string, e event.Event) error
}

// Bus fans out one Workflow Run's events to a Tree (for the TUI) and a
// Store (for durable history), plus any number of ad-hoc subscribers.
// Exactly one goroutine (started by Run) applies events to the Tree and
// writes to the Store; producers only ever call Publish.
type Bus struct {
	runID  string
	events chan event.Event
	broker *pubsub.Broker[event.Event]
	tree   *Tree
	store  Store
	logger *zap.Logger
}

// New constructs a Bus for one Workflow Run. store may be nil, in which
// case events are still applied to the Tree and published to subscribers
// but never persisted — useful for tests and dry runs.
func New(runID string, store Store) *Bus {
	return &Bus{
		runID:  runID,
		events: make(chan event.Event, bufferSize),
		broker: pubsub.NewBroker[event.Event](),
		tree:   NewTree(),
		store:  store,
		logger: log.Logger(),
	}
}

// Tree returns the Bus's live hierarchical view tree.
func (b *Bus) Tree() *Tree { return b.tree }

// Subscribe returns a channel of every event published after the call,
// until ctx is done. Intended for the TUI program's event loop.
func (b *Bus) Subscribe(ctx context.Context) <-chan pubsub.Event[event.Event] {
	return b.broker.Subscribe(ctx)
}

// Publish hands one event to the Bus. It never blocks the caller: if the
// internal buffer is full the event is dropped and a warning logged,
// which per §4.5 is the documented last resort, never ordinary operation.
func (b *Bus) Publish(e event.Event) {
	select {
	case b.events <- e:
	default:
		b.logger.Warn("eventbus: buffer full, dropping event", zap.String("type", string(e.Type)))
	}
}

// Run is the Bus's single applier fiber: it drains events in arrival
// order, applies each to the Tree, mirrors raw_output to the logger, fans
// it out to subscribers, and forwards it to the Store. It returns when
// ctx is cancelled or Close has drained the channel. A Store failure is
// logged and never stops the loop (§4.5, §7).
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-b.events:
			if !ok {
				return
			}
			b.tree.Apply(e)
			if e.Type == event.TypeRawOutput {
				b.logger.Debug("agent raw output", zap.String("stream", e.Stream), zap.String("line", e.Line))
			}
			b.broker.Publish(pubsub.NewCreatedEvent(e))
			if b.store != nil {
				if err := b.store.AppendEvent(ctx, b.runID, e); err != nil {
					b.logger.Warn("eventbus: failed to persist event", zap.Error(err), zap.String("type", string(e.Type)))
				}
			}
		}
	}
}

// Close signals Run to exit once the channel drains. A second call
// panics per Go channel semantics, matching the "close is terminal"
// failure semantics elsewhere in this module — callers close exactly
// once, after all producers have stopped calling Publish.
func (b *Bus) Close() {
	close(b.events)
	b.broker.Shutdown()
}
