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
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/molaco/workflow-manager/pkg/toolrpc"
	"github.com/molaco/workflow-manager/pkg/transport"
)

// conduit is the message channel a Proxy relays over. It is the subset
// of transport.Transport the proxy needs, kept as an interface so tests
// can substitute an in-memory server.
type conduit interface {
	Write(line string) error
	Close() error
}

// Proxy forwards each tunneled JSON-RPC request to an external MCP
// server process and relays the matching response back, so a child
// agent's embedded-server calls can be served by any off-the-shelf MCP
// server without the orchestrator knowing its tool surface. The server
// speaks the same line-delimited JSON framing agents do, so the Proxy
// rides the module's own Transport, including its Docker spawn backend
// for sandboxed tool servers. It satisfies agentclient.ToolHandler.
//
// Requests are serialized: stdio framing carries one conversation, and
// a workflow's embedded-tool call volume is low enough that pipelining
// buys nothing worth the correlation machinery.
type Proxy struct {
	mu   sync.Mutex
	t    conduit
	msgs <-chan transport.RawMessage
}

// NewStdioProxy spawns the external MCP server over a Transport and
// wraps it in a Proxy.
func NewStdioProxy(ctx context.Context, opts transport.Options) (*Proxy, error) {
	t, err := transport.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("toolserver: spawn MCP server: %w", err)
	}
	msgs, err := t.Messages()
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("toolserver: take MCP server messages: %w", err)
	}
	return &Proxy{t: t, msgs: msgs}, nil
}

// newProxy wraps an already-connected conduit and message stream
// (tests).
func newProxy(t conduit, msgs <-chan transport.RawMessage) *Proxy {
	return &Proxy{t: t, msgs: msgs}
}

// HandleTool relays one request/response pair.
func (p *Proxy) HandleTool(ctx context.Context, req *toolrpc.Request) *toolrpc.Response {
	p.mu.Lock()
	defer p.mu.Unlock()

	payload, err := json.Marshal(req)
	if err != nil {
		return toolrpc.Fail(req, toolrpc.CodeInternal, fmt.Sprintf("marshal request: %v", err))
	}
	if err := p.t.Write(string(payload)); err != nil {
		return toolrpc.Fail(req, toolrpc.CodeInternal, fmt.Sprintf("send to MCP server: %v", err))
	}

	// Notifications carry no id and get no response.
	if req.ID == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return toolrpc.Fail(req, toolrpc.CodeInternal, fmt.Sprintf("await MCP server response: %v", ctx.Err()))
		case raw, ok := <-p.msgs:
			if !ok {
				return toolrpc.Fail(req, toolrpc.CodeInternal, "MCP server closed its output")
			}
			if raw.Err != nil {
				continue
			}
			var resp toolrpc.Response
			if err := json.Unmarshal(raw.Value, &resp); err != nil {
				continue
			}
			if resp.Result == nil && resp.Error == nil {
				// A request or notification from the server, not a
				// response.
				continue
			}
			if !resp.ID.Equal(req.ID) {
				continue
			}
			return &resp
		}
	}
}

// Close shuts the external server down.
func (p *Proxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.t.Close()
}
