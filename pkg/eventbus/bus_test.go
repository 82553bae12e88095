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
package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molaco/workflow-manager/internal/event"
)

type recordStore struct {
	mu     sync.Mutex
	events []event.Event
	fail   bool
}

func (r *recordStore) AppendEvent(ctx context.Context, runID string, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("store down")
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recordStore) all() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

func TestBusForwardsInOrder(t *testing.T) {
	st := &recordStore{}
	bus := New("run-1", st)

	done := make(chan struct{})
	go func() {
		bus.Run(context.Background())
		close(done)
	}()

	published := []event.Event{
		event.PhaseStarted(0, "X", 1),
		event.TaskStarted(0, "t1", "desc", 1),
		event.TaskCompleted("t1", ""),
		event.PhaseCompleted(0, "X"),
	}
	for _, e := range published {
		bus.Publish(e)
	}
	bus.Close()
	<-done

	assert.Equal(t, published, st.all(), "store receives events in publish order")

	snap := bus.Tree().Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, Completed, snap[0].Status)
	assert.Equal(t, Completed, snap[0].Tasks[0].Status)
}

func TestBusStoreFailureDoesNotStopApplication(t *testing.T) {
	st := &recordStore{fail: true}
	bus := New("run-1", st)

	done := make(chan struct{})
	go func() {
		bus.Run(context.Background())
		close(done)
	}()

	bus.Publish(event.PhaseStarted(0, "X", 1))
	bus.Publish(event.PhaseCompleted(0, "X"))
	bus.Close()
	<-done

	snap := bus.Tree().Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, Completed, snap[0].Status, "tree still applied despite store failures")
}

func TestBusSubscriberReceivesEvents(t *testing.T) {
	bus := New("run-1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := bus.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		bus.Run(context.Background())
		close(done)
	}()

	bus.Publish(event.TaskStarted(0, "t1", "", 1))

	got := <-sub
	assert.Equal(t, event.TypeTaskStarted, got.Payload.Type)

	bus.Close()
	<-done
}
