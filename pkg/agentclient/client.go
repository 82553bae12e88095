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

// Package agentclient composes Transport and Protocol into one live Agent
// Session (§4.3): a bidirectional conversation with a child process, plus
// background fibers that dispatch hook callbacks, embedded-tool calls,
// and tool permission requests back to host-supplied managers.
package agentclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/log"
	"github.com/molaco/workflow-manager/internal/permission"
	"github.com/molaco/workflow-manager/pkg/protocol"
	"github.com/molaco/workflow-manager/pkg/toolrpc"
	"github.com/molaco/workflow-manager/pkg/transport"
)

// ErrClosed is returned by every Client operation after Close has run.
var ErrClosed = errors.New("agentclient: session closed")

// ErrReceiverAlreadyTaken is returned by a second call to
// TakeHookReceiver or TakePermissionReceiver.
var ErrReceiverAlreadyTaken = errors.New("agentclient: receiver already taken")

// HookRequest is one hook_callback control request, decoded enough for a
// HookHandler to act on without touching the wire envelope.
type HookRequest struct {
	RequestID  string
	CallbackID string
	Event      string
	ToolName   string
	Input      json.RawMessage
	Context    json.RawMessage
}

// HookHandler invokes the user-registered callback matching a hook
// request and returns its output, which is sent back verbatim as the
// hook_callback's control_response body.
type HookHandler interface {
	HandleHook(ctx context.Context, req HookRequest) (json.RawMessage, error)
}

// ToolHandler answers an embedded tool server's JSON-RPC call tunneled
// inside an mcp_message control request.
type ToolHandler interface {
	HandleTool(ctx context.Context, req *toolrpc.Request) *toolrpc.Response
}

// permissionHookEvent is the hook event name a pre_tool_use callback is
// routed under; the Agent Client treats it as a Permission Request rather
// than an ordinary hook whenever a permission.Service is configured.
const permissionHookEvent = "pre_tool_use"

type hookCallbackBody struct {
	CallbackID string          `json:"callback_id"`
	Event      string          `json:"event"`
	ToolName   string          `json:"tool_name,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Context    json.RawMessage `json:"context,omitempty"`
}

// permissionDecisionBody is the wire shape of a permission response,
// specific to this module: the donor protocol only defines the envelope,
// not this payload.
type permissionDecisionBody struct {
	Allow         bool   `json:"allow"`
	InputOverride any    `json:"input_override,omitempty"`
	DenyReason    string `json:"deny_reason,omitempty"`
}

type hookErrorBody struct {
	Error string `json:"error"`
}

// Options configures one Agent Client session.
type Options struct {
	// Command/Args/Env/Dir/LookupPaths/Spawner/CloseGrace configure the
	// underlying Transport exactly as transport.Options does.
	Command     string
	Args        []string
	Env         map[string]string
	Dir         string
	LookupPaths []string
	Spawner     transport.Spawner
	CloseGrace  time.Duration

	// HooksConfig, if non-nil, is sent as the initialize handshake's hooks
	// payload. A non-nil HooksConfig or a non-empty ToolServers map causes
	// construction to issue the initialize control request.
	HooksConfig json.RawMessage

	// HookHandler handles hook callbacks automatically, including
	// pre_tool_use callbacks when no PermissionService is set. When nil,
	// hook requests are delivered on the channel returned by
	// TakeHookReceiver.
	HookHandler HookHandler

	// PermissionService, when set, makes the Agent Client answer
	// pre_tool_use hook callbacks as Permission Requests routed through
	// it, rather than treating them as ordinary hooks. When nil,
	// pre_tool_use callbacks go to HookHandler if one is set, and
	// otherwise are delivered on the channel returned by
	// TakePermissionReceiver.
	PermissionService permission.Service

	// ToolHandler answers embedded tool server calls automatically. When
	// nil, mcp_message requests are answered with a MethodNotFound error
	// response (no embedded tool server configured).
	ToolHandler ToolHandler

	// InitializeTimeout bounds how long construction waits for the
	// initialize handshake's response before proceeding without hooks.
	InitializeTimeout time.Duration

	// HandlerBufferSize sets the Protocol Handler's channel buffer depth.
	HandlerBufferSize int
}

func (o Options) initializeTimeout() time.Duration {
	if o.InitializeTimeout > 0 {
		return o.InitializeTimeout
	}
	return 3 * time.Second
}

func (o Options) handlerBufferSize() int {
	if o.HandlerBufferSize > 0 {
		return o.HandlerBufferSize
	}
	return 64
}

func (o Options) transportOptions() transport.Options {
	return transport.Options{
		Command:     o.Command,
		Args:        o.Args,
		Env:         o.Env,
		Dir:         o.Dir,
		LookupPaths: o.LookupPaths,
		Spawner:     o.Spawner,
		CloseGrace:  o.CloseGrace,
	}
}

// Client is one live Agent Session: a child process conversation driven
// by a reader fiber, a writer fiber, and however many of the hook/
// tool/permission dispatcher fibers its Options require.
type Client struct {
	transport *transport.Transport
	handler   *protocol.Handler
	outbound  chan json.RawMessage

	hookHandler HookHandler
	toolHandler ToolHandler
	permSvc     permission.Service

	hookReceiver       chan HookRequest
	hookReceiverTaken  bool
	permReceiver       chan permission.PermissionRequest
	permReceiverTaken  bool
	receiverMu         sync.Mutex

	permWaiters sync.Map // ToolCallID -> chan permission.PermissionNotification

	closeOnce sync.Once
	closed    chan struct{}

	logger *zap.Logger
}

// New constructs and connects an Agent Client per §4.3: it spawns the
// child, wires the Protocol Handler, starts the reader/writer fibers and
// whichever dispatcher fibers Options configures, and — if hooks or
// embedded tool servers are present — performs the bounded-timeout
// initialize handshake before returning.
func New(ctx context.Context, opts Options) (*Client, error) {
	t, err := transport.Connect(ctx, opts.transportOptions())
	if err != nil {
		return nil, err
	}

	msgs, err := t.Messages()
	if err != nil {
		t.Close()
		return nil, err
	}

	c := &Client{
		transport:    t,
		handler:      protocol.NewHandler(opts.handlerBufferSize()),
		outbound:     make(chan json.RawMessage, opts.handlerBufferSize()),
		hookHandler:  opts.HookHandler,
		toolHandler:  opts.ToolHandler,
		permSvc:      opts.PermissionService,
		hookReceiver: make(chan HookRequest, opts.handlerBufferSize()),
		permReceiver: make(chan permission.PermissionRequest, opts.handlerBufferSize()),
		closed:       make(chan struct{}),
		logger:       log.Logger(),
	}

	go c.readerFiber(msgs)
	go c.writerFiber()
	go c.diagnosticsFiber()
	go c.hookDispatchFiber(ctx)
	go c.toolDispatchFiber(ctx)
	if c.permSvc != nil {
		go c.notificationFiber(ctx)
	}

	if opts.HooksConfig != nil || opts.ToolHandler != nil {
		hooksConfig := opts.HooksConfig
		if hooksConfig == nil {
			hooksConfig = json.RawMessage(`{}`)
		}
		if err := c.initialize(hooksConfig, opts.initializeTimeout()); err != nil {
			c.logger.Warn("agentclient: initialize handshake failed, continuing without hooks", zap.Error(err))
		}
	}

	return c, nil
}

func (c *Client) initialize(hooksConfig json.RawMessage, timeout time.Duration) error {
	reqID := protocol.NewRequestID()
	resultCh := c.handler.Pending.Insert(reqID)
	if err := c.sendControl(protocol.Initialize(reqID, hooksConfig)); err != nil {
		c.handler.Pending.Cancel(reqID)
		return fmt.Errorf("agentclient: initialize: %w", err)
	}

	done := make(chan struct{})
	var body json.RawMessage
	var err error
	go func() {
		body, err = protocol.Await(resultCh)
		close(done)
	}()

	select {
	case <-done:
		if err != nil {
			return fmt.Errorf("agentclient: initialize: %w", err)
		}
		_ = body
		return nil
	case <-time.After(timeout):
		c.handler.Pending.Cancel(reqID)
		return fmt.Errorf("agentclient: initialize: timed out after %s", timeout)
	}
}

// readerFiber consumes Transport's parsed message queue and routes every
// line through the Protocol Handler.
func (c *Client) readerFiber(msgs <-chan transport.RawMessage) {
	for raw := range msgs {
		if raw.Err != nil {
			c.logger.Debug("agentclient: unparsable line from child", zap.Error(raw.Err))
			continue
		}
		c.handler.Route(raw.Value)
	}
	c.handler.Close()
}

// writerFiber consumes the outbound control queue and writes each
// envelope to Transport, serializing every outbound write through one
// fiber per the §5 sharing discipline. It exits on the closed signal
// rather than a channel close: the queue is never closed, so a
// dispatcher racing Close can never hit a send-on-closed-channel panic.
func (c *Client) writerFiber() {
	for {
		select {
		case <-c.closed:
			return
		case line := <-c.outbound:
			if err := c.transport.Write(string(line)); err != nil {
				c.logger.Debug("agentclient: write failed, child likely exited", zap.Error(err))
			}
		}
	}
}

func (c *Client) diagnosticsFiber() {
	for line := range c.transport.Diagnostics() {
		c.logger.Debug("agentclient: child stderr", zap.String("line", line))
	}
}

// hookDispatchFiber drains hook_callback control requests. A pre_tool_use
// callback is routed as a Permission Request when a permission.Service is
// configured; every other callback goes to HookHandler, or — lacking
// one — to the manual-mode permission receiver (pre_tool_use) or hook
// receiver (all other events).
func (c *Client) hookDispatchFiber(ctx context.Context) {
	for req := range c.handler.HookRequests {
		var body hookCallbackBody
		if err := json.Unmarshal(req.Body, &body); err != nil {
			c.logger.Warn("agentclient: malformed hook_callback body", zap.Error(err))
			c.respondHookError(req.RequestID, err)
			continue
		}

		if body.Event == permissionHookEvent && c.permSvc != nil {
			c.dispatchPermission(ctx, req.RequestID, body)
			continue
		}

		if c.hookHandler != nil {
			out, err := c.hookHandler.HandleHook(ctx, HookRequest{
				RequestID:  req.RequestID,
				CallbackID: body.CallbackID,
				Event:      body.Event,
				ToolName:   body.ToolName,
				Input:      body.Input,
				Context:    body.Context,
			})
			if err != nil {
				c.respondHookError(req.RequestID, err)
				continue
			}
			if err := c.sendControl(protocol.HookCallbackResponse(req.RequestID, out)); err != nil {
				c.logger.Debug("agentclient: session closed before hook response could be sent", zap.String("request_id", req.RequestID))
			}
			continue
		}

		if body.Event == permissionHookEvent {
			c.deliverPermissionManual(req.RequestID, body)
			continue
		}
		c.deliverHookManual(req.RequestID, body)
	}
}

func (c *Client) respondHookError(requestID string, err error) {
	out, marshalErr := json.Marshal(hookErrorBody{Error: err.Error()})
	if marshalErr != nil {
		c.logger.Warn("agentclient: failed to marshal hook error body", zap.Error(marshalErr))
		return
	}
	if sendErr := c.sendControl(protocol.HookCallbackResponse(requestID, out)); sendErr != nil {
		c.logger.Debug("agentclient: session closed before hook error could be sent", zap.String("request_id", requestID))
	}
}

func (c *Client) deliverHookManual(requestID string, body hookCallbackBody) {
	c.receiverMu.Lock()
	taken := c.hookReceiverTaken
	c.receiverMu.Unlock()
	if !taken {
		c.logger.Debug("agentclient: hook_callback with no handler and no receiver taken; dropping", zap.String("callback_id", body.CallbackID))
		return
	}
	select {
	case c.hookReceiver <- HookRequest{
		RequestID: requestID, CallbackID: body.CallbackID, Event: body.Event,
		ToolName: body.ToolName, Input: body.Input, Context: body.Context,
	}:
	case <-c.closed:
	}
}

func (c *Client) dispatchPermission(ctx context.Context, requestID string, body hookCallbackBody) {
	req := permission.PermissionRequest{
		ID:          requestID,
		ToolCallID:  requestID,
		ToolName:    body.ToolName,
		Description: body.Event,
		Arguments:   string(body.Input),
	}

	waiter := make(chan permission.PermissionNotification, 1)
	c.permWaiters.Store(req.ToolCallID, waiter)
	c.permSvc.Request(req)

	select {
	case notif := <-waiter:
		c.respondPermission(requestID, permissionDecisionBody{Allow: notif.Granted})
	case <-ctx.Done():
		c.permWaiters.Delete(req.ToolCallID)
	case <-c.closed:
		c.permWaiters.Delete(req.ToolCallID)
	}
}

func (c *Client) deliverPermissionManual(requestID string, body hookCallbackBody) {
	c.receiverMu.Lock()
	taken := c.permReceiverTaken
	c.receiverMu.Unlock()
	if !taken {
		c.logger.Debug("agentclient: permission request with no service and no receiver taken; denying", zap.String("tool", body.ToolName))
		c.respondPermission(requestID, permissionDecisionBody{Allow: false, DenyReason: "no permission manager configured"})
		return
	}
	select {
	case c.permReceiver <- permission.PermissionRequest{
		ID: requestID, ToolCallID: requestID, ToolName: body.ToolName,
		Description: body.Event, Arguments: string(body.Input),
	}:
	case <-c.closed:
	}
}

func (c *Client) respondPermission(requestID string, decision permissionDecisionBody) {
	out, err := json.Marshal(decision)
	if err != nil {
		c.logger.Warn("agentclient: failed to marshal permission decision", zap.Error(err))
		return
	}
	if err := c.sendControl(protocol.PermissionResponse(requestID, out)); err != nil {
		c.logger.Debug("agentclient: session closed before permission decision could be sent", zap.String("request_id", requestID))
	}
}

// notificationFiber routes permission.Service notifications back to
// whichever dispatchPermission call is waiting on that tool-call id.
func (c *Client) notificationFiber(ctx context.Context) {
	ch := c.permSvc.SubscribeNotifications(ctx)
	for ev := range ch {
		if w, ok := c.permWaiters.LoadAndDelete(ev.Payload.ToolCallID); ok {
			w.(chan permission.PermissionNotification) <- ev.Payload
		}
	}
}

// toolDispatchFiber drains mcp_message control requests and answers them
// via ToolHandler, or a MethodNotFound error when none is configured.
func (c *Client) toolDispatchFiber(ctx context.Context) {
	for req := range c.handler.ToolRequests {
		var rpcReq toolrpc.Request
		if err := json.Unmarshal(req.Body, &rpcReq); err != nil {
			c.logger.Warn("agentclient: malformed mcp_message body", zap.Error(err))
			continue
		}

		var resp *toolrpc.Response
		if c.toolHandler != nil {
			resp = c.toolHandler.HandleTool(ctx, &rpcReq)
		} else {
			resp = toolrpc.Fail(&rpcReq, toolrpc.CodeMethodNotFound, "no embedded tool server configured")
		}
		if resp == nil {
			continue
		}

		out, err := json.Marshal(resp)
		if err != nil {
			c.logger.Warn("agentclient: failed to marshal tool response", zap.Error(err))
			continue
		}
		if err := c.sendControl(protocol.EmbeddedToolResponse(req.RequestID, out)); err != nil {
			c.logger.Debug("agentclient: session closed before tool response could be sent", zap.String("request_id", req.RequestID))
		}
	}
}

// SendMessage writes a user-input line straight to Transport. Unlike
// control responses it does not ride the outbound control queue: user
// input must not queue behind a backlog of control traffic, and
// Transport's write mutex already serializes it against the writer
// fiber.
func (c *Client) SendMessage(line json.RawMessage) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	if err := c.transport.Write(string(line)); err != nil {
		return fmt.Errorf("agentclient: send message: %w", err)
	}
	return nil
}

// sendControl enqueues one envelope on the outbound control queue.
func (c *Client) sendControl(line json.RawMessage) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.outbound <- line:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

// NextMessage blocks for the next conversation message (assistant chunk,
// result, or system message), or returns ok=false once the session ends.
func (c *Client) NextMessage(ctx context.Context) (*protocol.ConversationMessage, bool) {
	select {
	case msg, ok := <-c.handler.Conversation:
		return msg, ok
	case <-ctx.Done():
		return nil, false
	}
}

// Interrupt enqueues the `control{method:interrupt}` line; delivery is
// best-effort and the call returns without waiting on streaming.
func (c *Client) Interrupt() error {
	return c.sendControl(protocol.Interrupt())
}

// RespondToHook answers a hook_callback in manual mode (no HookHandler
// configured), for a request previously received via TakeHookReceiver.
func (c *Client) RespondToHook(requestID string, payload json.RawMessage) error {
	return c.sendControl(protocol.HookCallbackResponse(requestID, payload))
}

// RespondToPermission answers a permission request in manual mode (no
// permission.Service configured), for a request previously received via
// TakePermissionReceiver.
func (c *Client) RespondToPermission(requestID string, decision permission.Decision) error {
	body := permissionDecisionBody{
		Allow:         decision.Allow,
		InputOverride: decision.InputOverride,
		DenyReason:    decision.DenyReason,
	}
	out, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("agentclient: marshal permission decision: %w", err)
	}
	return c.sendControl(protocol.PermissionResponse(requestID, out))
}

// TakeHookReceiver hands the caller the channel of hook requests left
// unhandled because no HookHandler was configured. Takeable exactly once.
func (c *Client) TakeHookReceiver() (<-chan HookRequest, error) {
	c.receiverMu.Lock()
	defer c.receiverMu.Unlock()
	if c.hookReceiverTaken {
		return nil, ErrReceiverAlreadyTaken
	}
	c.hookReceiverTaken = true
	return c.hookReceiver, nil
}

// TakePermissionReceiver hands the caller the channel of permission
// requests left unhandled because no permission.Service was configured.
// Takeable exactly once.
func (c *Client) TakePermissionReceiver() (<-chan permission.PermissionRequest, error) {
	c.receiverMu.Lock()
	defer c.receiverMu.Unlock()
	if c.permReceiverTaken {
		return nil, ErrReceiverAlreadyTaken
	}
	c.permReceiverTaken = true
	return c.permReceiver, nil
}

// Close tears the session down: signals the writer and permission
// fibers to exit via the closed channel and closes Transport, which in
// turn ends the reader fiber and, through the handler's channels
// closing, the dispatcher fibers. The outbound queue is deliberately
// never closed (see writerFiber). Idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.transport.Close()
	})
	return err
}
