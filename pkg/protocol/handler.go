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

	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/log"
)

// ControlRequest is a control_request the child sent us, already
// classified by subtype and handed to the owning channel. Body is the
// subtype's own payload (the hook_callback args, or the tunneled
// JSON-RPC envelope for mcp_message) — Handler never interprets it.
type ControlRequest struct {
	RequestID string
	Subtype   string
	Body      json.RawMessage
}

// Handler implements the classification and routing rules of §4.2. Agent
// Client's reader fiber feeds it every parsed line from Transport's
// message queue via Route; Handler never touches Transport itself.
type Handler struct {
	Pending *PendingTable

	// Conversation receives every assistant/user/result/system/control line.
	Conversation chan *ConversationMessage
	// HookRequests receives control_request{subtype:"hook_callback"}.
	HookRequests chan ControlRequest
	// ToolRequests receives control_request{subtype:"mcp_message"}.
	ToolRequests chan ControlRequest
	// UnrecognizedControl receives control_request with any other
	// subtype, so the session doesn't fail on a forward-compatible
	// addition to the wire protocol.
	UnrecognizedControl chan ControlRequest

	logger *zap.Logger
}

// NewHandler constructs a Handler with the given channel buffer depth.
func NewHandler(bufferSize int) *Handler {
	return &Handler{
		Pending:             NewPendingTable(),
		Conversation:        make(chan *ConversationMessage, bufferSize),
		HookRequests:        make(chan ControlRequest, bufferSize),
		ToolRequests:        make(chan ControlRequest, bufferSize),
		UnrecognizedControl: make(chan ControlRequest, bufferSize),
		logger:              log.Logger(),
	}
}

// Route classifies one parsed line and dispatches it. It never returns an
// error for malformed control request bodies: those fail only that
// request (logged) per the spec's failure semantics, not the session.
func (h *Handler) Route(raw json.RawMessage) {
	kind, err := Classify(raw)
	if err != nil {
		h.logger.Warn("protocol: unclassifiable line", zap.Error(err))
		return
	}

	switch kind {
	case KindControlResponse:
		h.routeControlResponse(raw)
	case KindControlRequest:
		h.routeControlRequest(raw)
	case KindConversation:
		h.routeConversation(raw)
	default:
		h.logger.Debug("protocol: dropped line with unrecognized type")
	}
}

func (h *Handler) routeControlResponse(raw json.RawMessage) {
	env, err := DecodeControlResponse(raw)
	if err != nil {
		h.logger.Warn("protocol: malformed control_response", zap.Error(err))
		return
	}
	var respErr error
	if env.Response.Error != "" {
		respErr = &controlResponseError{Message: env.Response.Error}
	}
	h.Pending.Complete(env.Response.RequestID, env.Response.Response, respErr)
}

func (h *Handler) routeControlRequest(raw json.RawMessage) {
	env, subtype, err := DecodeControlRequest(raw)
	if err != nil {
		h.logger.Warn("protocol: malformed control_request", zap.Error(err))
		return
	}
	cr := ControlRequest{RequestID: env.RequestID, Subtype: subtype, Body: env.Request}
	switch subtype {
	case SubtypeHookCallback:
		h.HookRequests <- cr
	case SubtypeMCPMessage:
		h.ToolRequests <- cr
	default:
		h.UnrecognizedControl <- cr
	}
}

func (h *Handler) routeConversation(raw json.RawMessage) {
	msg, err := DecodeConversation(raw)
	if err != nil {
		h.logger.Warn("protocol: malformed conversation message", zap.Error(err))
		return
	}
	h.Conversation <- msg
}

// Close drains the pending table and closes every outbound channel. It
// must only be called after the reader fiber has stopped calling Route.
func (h *Handler) Close() {
	h.Pending.Drain()
	close(h.Conversation)
	close(h.HookRequests)
	close(h.ToolRequests)
	close(h.UnrecognizedControl)
}

type controlResponseError struct{ Message string }

func (e *controlResponseError) Error() string { return e.Message }
