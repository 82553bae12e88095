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

import "encoding/json"

// Interrupt builds the `{"type":"control","method":"interrupt"}` line.
func Interrupt() json.RawMessage {
	return mustMarshal(struct {
		Type   string `json:"type"`
		Method string `json:"method"`
	}{Type: "control", Method: "interrupt"})
}

// HookCallbackResponse builds a control_response carrying a hook's output.
func HookCallbackResponse(requestID string, output json.RawMessage) json.RawMessage {
	return controlResponse(requestID, "success", output)
}

// mcpResponseWrapper is the `{"mcp_response": <jsonrpc envelope>}` body
// used for embedded-tool responses. The Protocol Handler tunnels the
// inner JSON-RPC envelope verbatim; it never inspects it.
type mcpResponseWrapper struct {
	MCPResponse json.RawMessage `json:"mcp_response"`
}

// EmbeddedToolResponse builds a control_response wrapping a JSON-RPC 2.0
// response envelope produced by the Embedded Tool Server.
func EmbeddedToolResponse(requestID string, jsonrpcResponse json.RawMessage) json.RawMessage {
	wrapped := mustMarshal(mcpResponseWrapper{MCPResponse: jsonrpcResponse})
	return controlResponse(requestID, "success", wrapped)
}

// PermissionResponse builds a control_response carrying an allow/deny
// decision body.
func PermissionResponse(requestID string, decisionBody json.RawMessage) json.RawMessage {
	return controlResponse(requestID, "success", decisionBody)
}

func controlResponse(requestID, subtype string, body json.RawMessage) json.RawMessage {
	return mustMarshal(ControlResponseEnvelope{
		Type: "control_response",
		Response: ControlResponder{
			Subtype:   subtype,
			RequestID: requestID,
			Response:  body,
		},
	})
}

// Initialize builds the `initialize` control_request carrying the hooks
// configuration, keyed under the generated requestID so the response can
// be correlated via the Pending Request Table.
func Initialize(requestID string, hooksConfig json.RawMessage) json.RawMessage {
	reqBody := mustMarshal(struct {
		Subtype string          `json:"subtype"`
		Hooks   json.RawMessage `json:"hooks"`
	}{Subtype: SubtypeInitialize, Hooks: hooksConfig})

	return mustMarshal(ControlRequestEnvelope{
		Type:      "control_request",
		RequestID: requestID,
		Request:   reqBody,
	})
}

// mustMarshal panics only on a programmer error (a type that can't
// marshal), never on data supplied at runtime by the child process.
func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic("protocol: unmarshalable outbound envelope: " + err.Error())
	}
	return b
}
