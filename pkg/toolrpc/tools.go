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
package toolrpc

import "fmt"

// ProtocolVersion is the MCP protocol revision the Embedded Tool
// Server answers initialize with.
const ProtocolVersion = "2024-11-05"

// Implementation identifies one side of the tunnel in the initialize
// exchange.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsCapability marks that the server serves tools/list and
// tools/call. It is the only capability an embedded server advertises.
type ToolsCapability struct{}

// ServerCapabilities is the capability set returned from initialize.
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// InitializeResult is the initialize response body.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
}

// Tool describes one registered tool: its name, what it does, and a
// JSON Schema for its arguments.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Validate rejects tools that cannot be listed or called: a tool needs
// a name and an argument schema before a child agent can see it.
func (t Tool) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("toolrpc: tool has no name")
	}
	if t.InputSchema == nil {
		return fmt.Errorf("toolrpc: tool %q has no input schema", t.Name)
	}
	return nil
}

// ToolListResult is the tools/list response body.
type ToolListResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams is the tools/call request body.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CallToolResult is the tools/call response body. A tool-level failure
// is reported as IsError with explanatory content, not as a JSON-RPC
// error: the envelope succeeded, the tool did not.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content is one item of tool output. The embedded servers in this
// module only ever produce text, but the type tag is kept so a proxied
// external server's richer content passes through unharmed.
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// TextContent builds the common single-text-item result content.
func TextContent(text string) []Content {
	return []Content{{Type: "text", Text: text}}
}
