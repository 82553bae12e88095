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

// Package protocol classifies raw transport lines into typed control and
// conversation messages, and builds the outbound control envelopes the
// child process expects. It owns no I/O; Agent Client drives it against a
// Transport's message channel.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind classifies an inbound wire envelope: a response to a control
// request we issued (the initialize handshake response included), a
// control request the child issued to us, or an ordinary conversation
// message (assistant/user/result/...). KindUnknown marks a line to ignore.
type Kind int

const (
	KindUnknown Kind = iota
	KindControlResponse
	KindControlRequest
	KindConversation
)

// envelopeHeader is the minimal shape needed to classify a line before
// fully decoding it.
type envelopeHeader struct {
	Type string `json:"type"`
}

// ControlResponseEnvelope is the `{"type":"control_response",...}` shape.
type ControlResponseEnvelope struct {
	Type     string           `json:"type"`
	Response ControlResponder `json:"response"`
}

// ControlResponder is the inner `response` object of a control_response.
type ControlResponder struct {
	Subtype   string          `json:"subtype"`
	RequestID string          `json:"request_id"`
	Response  json.RawMessage `json:"response"`
	Error     string          `json:"error,omitempty"`
}

// ControlRequestEnvelope is the `{"type":"control_request",...}` shape,
// used both for requests the child sends us (hook_callback, mcp_message)
// and, on the way out, for the initialize handshake.
type ControlRequestEnvelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Request   json.RawMessage `json:"request"`
}

// controlRequestSubtype peeks at a control_request's subtype without fully
// decoding its body, so Classify can route it before the caller picks the
// concrete payload type.
type controlRequestSubtype struct {
	Subtype string `json:"subtype"`
}

// Subtypes recognized in a control_request's `request.subtype`.
const (
	SubtypeHookCallback = "hook_callback"
	SubtypeMCPMessage   = "mcp_message"
	SubtypeInitialize   = "initialize"
)

// ErrMalformedControlRequest wraps a control_request body that failed to
// parse; per the spec this fails only the one request, never the session.
type ErrMalformedControlRequest struct {
	RequestID string
	Cause     error
}

func (e *ErrMalformedControlRequest) Error() string {
	return fmt.Sprintf("protocol: malformed control request %s: %v", e.RequestID, e.Cause)
}
func (e *ErrMalformedControlRequest) Unwrap() error { return e.Cause }

// Classify inspects a raw JSON line's `type` field and reports which of
// the wire shapes it is; a missing type or one outside the closed set of
// top-level types is KindUnknown. It does not fully decode the body; callers
// use DecodeControlResponse / DecodeControlRequest / DecodeConversation as
// appropriate once they know the kind.
func Classify(raw json.RawMessage) (Kind, error) {
	var hdr envelopeHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return KindUnknown, fmt.Errorf("protocol: classify: %w", err)
	}
	switch hdr.Type {
	case "control_response":
		return KindControlResponse, nil
	case "control_request":
		return KindControlRequest, nil
	case "user", "assistant", "result", "system", "control":
		return KindConversation, nil
	default:
		return KindUnknown, nil
	}
}

// DecodeControlResponse fully decodes a line already classified as
// KindControlResponse.
func DecodeControlResponse(raw json.RawMessage) (*ControlResponseEnvelope, error) {
	var env ControlResponseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("protocol: decode control_response: %w", err)
	}
	return &env, nil
}

// DecodeControlRequest fully decodes a line already classified as
// KindControlRequest and reports its subtype as found. An unrecognized
// subtype is not an error, so the caller can route it to an
// "unrecognized control" sink without failing the session.
func DecodeControlRequest(raw json.RawMessage) (*ControlRequestEnvelope, string, error) {
	var env ControlRequestEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", &ErrMalformedControlRequest{Cause: err}
	}
	var sub controlRequestSubtype
	if err := json.Unmarshal(env.Request, &sub); err != nil {
		return &env, "", &ErrMalformedControlRequest{RequestID: env.RequestID, Cause: err}
	}
	return &env, sub.Subtype, nil
}

// ConversationMessage is the closed set of assistant/user/result/system
// message shapes (plus the out-of-band control line) the child streams
// back on the main message queue. The
// user and assistant types nest their payload under `message`; result
// carries its timing and usage counters at the top level of the body.
type ConversationMessage struct {
	Type    string          `json:"type"`
	Role    string          `json:"role,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// messageBody is the nested `message` object of a user/assistant line.
type messageBody struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ContentBlock is one element of an assistant message's content array:
// text, tool_use, or tool_result.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// Blocks decodes the message's content block array. A plain string
// content (legal for user messages) decodes to a single text block.
func (m *ConversationMessage) Blocks() []ContentBlock {
	content := m.Content
	if len(content) == 0 && len(m.Message) > 0 {
		var body messageBody
		if err := json.Unmarshal(m.Message, &body); err != nil {
			return nil
		}
		content = body.Content
	}
	if len(content) == 0 {
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(content, &blocks); err == nil {
		return blocks
	}
	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return []ContentBlock{{Type: "text", Text: text}}
	}
	return nil
}

// TextContent concatenates the message's text blocks, the usual way a
// caller turns a streamed assistant chunk into a displayable string.
func (m *ConversationMessage) TextContent() string {
	var out string
	for _, b := range m.Blocks() {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

// DecodeConversation fully decodes a line already classified as
// KindConversation.
func DecodeConversation(raw json.RawMessage) (*ConversationMessage, error) {
	var msg ConversationMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("protocol: decode conversation message: %w", err)
	}
	return &msg, nil
}

// UserMessage builds the `{"type":"user","message":{...}}` line for
// SendMessage.
func UserMessage(content string) json.RawMessage {
	return mustMarshal(struct {
		Type    string      `json:"type"`
		Message messageBody `json:"message"`
	}{
		Type:    "user",
		Message: messageBody{Role: "user", Content: mustMarshal(content)},
	})
}
