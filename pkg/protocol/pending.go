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
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/log"
)

// ErrClosed is the completion value every still-pending request receives
// when the table is drained, per the transport-close failure semantics.
var ErrClosed = errors.New("protocol: pending request table closed")

var requestCounter atomic.Uint64

// NewRequestID concatenates a process-local monotone counter with the
// current wall-clock nanoseconds in hex, prefixed by req_. Callers treat
// the result as opaque; only equality is load-bearing.
func NewRequestID() string {
	n := requestCounter.Add(1)
	return fmt.Sprintf("req_%d%s", n, strconv.FormatInt(time.Now().UnixNano(), 16))
}

// pendingEntry is completed exactly once, either with a response body or
// with ErrClosed.
type pendingEntry struct {
	resultCh chan pendingResult
}

type pendingResult struct {
	body json.RawMessage
	err  error
}

// PendingTable correlates outbound control requests with their eventual
// control_response, guarded by a brief mutual-exclusion region spanning
// insert-before-send and complete-on-response; no await is ever held
// across the lock.
type PendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
	logger  *zap.Logger
}

// NewPendingTable constructs an empty table.
func NewPendingTable() *PendingTable {
	return &PendingTable{
		entries: make(map[string]*pendingEntry),
		logger:  log.Logger(),
	}
}

// Insert registers a request id before its line is written to Transport,
// returning a channel that receives exactly one pendingResult.
func (t *PendingTable) Insert(requestID string) <-chan pendingResult {
	entry := &pendingEntry{resultCh: make(chan pendingResult, 1)}
	t.mu.Lock()
	t.entries[requestID] = entry
	t.mu.Unlock()
	return entry.resultCh
}

// Complete delivers a control_response body to the waiter for requestID.
// An unknown id is logged and dropped — non-fatal, per the spec.
func (t *PendingTable) Complete(requestID string, body json.RawMessage, respErr error) {
	t.mu.Lock()
	entry, ok := t.entries[requestID]
	if ok {
		delete(t.entries, requestID)
	}
	t.mu.Unlock()

	if !ok {
		t.logger.Warn("protocol: control_response for unknown request id", zap.String("request_id", requestID))
		return
	}
	entry.resultCh <- pendingResult{body: body, err: respErr}
}

// Drain completes every still-pending request with ErrClosed, for use
// when the transport's receive path errors out or the session closes.
func (t *PendingTable) Drain() {
	t.mu.Lock()
	remaining := t.entries
	t.entries = make(map[string]*pendingEntry)
	t.mu.Unlock()

	for id, entry := range remaining {
		entry.resultCh <- pendingResult{err: ErrClosed}
		t.logger.Debug("protocol: drained pending request", zap.String("request_id", id))
	}
}

// Cancel removes and completes a single pending request with ErrClosed,
// for explicit cancellation of one in-flight request.
func (t *PendingTable) Cancel(requestID string) {
	t.mu.Lock()
	entry, ok := t.entries[requestID]
	if ok {
		delete(t.entries, requestID)
	}
	t.mu.Unlock()

	if ok {
		entry.resultCh <- pendingResult{err: ErrClosed}
	}
}

// Await blocks on resultCh (as returned by Insert) until it is completed.
func Await(resultCh <-chan pendingResult) (json.RawMessage, error) {
	res := <-resultCh
	return res.body, res.err
}
