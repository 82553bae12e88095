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

// Package toolserver implements the Embedded Tool Server: an in-process
// JSON-RPC 2.0 handler answering the subset of a child agent's tool
// calls tunneled through mcp_message control requests, without leaving
// the orchestrator. Registry serves tools registered as Go functions;
// Proxy forwards to an external MCP server process over stdio.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/molaco/workflow-manager/pkg/toolrpc"
)

// ToolFunc executes one registered tool call.
type ToolFunc func(ctx context.Context, args map[string]any) (*toolrpc.CallToolResult, error)

type registeredTool struct {
	tool    toolrpc.Tool
	handler ToolFunc
}

// Registry is an in-process Embedded Tool Server. It answers the three
// methods a child agent issues against an embedded server — initialize,
// tools/list, and tools/call — and rejects everything else with
// MethodNotFound. It satisfies agentclient.ToolHandler.
type Registry struct {
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]registeredTool
}

// NewRegistry constructs an empty Registry identifying itself with the
// given server name.
func NewRegistry(name, version string) *Registry {
	return &Registry{
		name:    name,
		version: version,
		tools:   make(map[string]registeredTool),
	}
}

// Register adds one tool after validating it is listable and callable.
// Re-registering a name replaces it.
func (r *Registry) Register(tool toolrpc.Tool, handler ToolFunc) error {
	if err := tool.Validate(); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("toolserver: tool %q has no handler", tool.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = registeredTool{tool: tool, handler: handler}
	return nil
}

// HandleTool answers one tunneled JSON-RPC request.
func (r *Registry) HandleTool(ctx context.Context, req *toolrpc.Request) *toolrpc.Response {
	switch req.Method {
	case "initialize":
		return toolrpc.Result(req, toolrpc.InitializeResult{
			ProtocolVersion: toolrpc.ProtocolVersion,
			Capabilities:    toolrpc.ServerCapabilities{Tools: &toolrpc.ToolsCapability{}},
			ServerInfo:      toolrpc.Implementation{Name: r.name, Version: r.version},
		})
	case "tools/list":
		return toolrpc.Result(req, toolrpc.ToolListResult{Tools: r.listTools()})
	case "tools/call":
		return r.callTool(ctx, req)
	default:
		return toolrpc.Fail(req, toolrpc.CodeMethodNotFound, fmt.Sprintf("method %q not supported", req.Method))
	}
}

func (r *Registry) listTools() []toolrpc.Tool {
	r.mu.RLock()
	tools := make([]toolrpc.Tool, 0, len(r.tools))
	for _, rt := range r.tools {
		tools = append(tools, rt.tool)
	}
	r.mu.RUnlock()
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

func (r *Registry) callTool(ctx context.Context, req *toolrpc.Request) *toolrpc.Response {
	var params toolrpc.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return toolrpc.Fail(req, toolrpc.CodeInvalidParams, fmt.Sprintf("invalid tools/call params: %v", err))
	}

	r.mu.RLock()
	rt, ok := r.tools[params.Name]
	r.mu.RUnlock()
	if !ok {
		return toolrpc.Fail(req, toolrpc.CodeMethodNotFound, fmt.Sprintf("tool %q not registered", params.Name))
	}

	result, err := rt.handler(ctx, params.Arguments)
	if err != nil {
		// A tool error is a successful call with isError content, per MCP
		// convention; protocol-level errors are reserved for envelope
		// problems.
		return toolrpc.Result(req, toolrpc.CallToolResult{
			IsError: true,
			Content: toolrpc.TextContent(err.Error()),
		})
	}
	return toolrpc.Result(req, *result)
}
