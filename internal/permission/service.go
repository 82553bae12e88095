package permission

import (
	"context"
	"sync"

	"github.com/molaco/workflow-manager/internal/pubsub"
)

// service is the default in-memory Service implementation: a single
// mutual-exclusion region tracks granted tool-call ids, fanning both
// requests and grant/deny notifications out through a pubsub.Broker.
type service struct {
	mu                  sync.Mutex
	skip                bool
	granted             map[string]bool
	persistentlyGranted map[string]map[string]bool // sessionID -> toolName -> bool
	autoApproved        map[string]bool

	requests      *pubsub.Broker[PermissionRequest]
	notifications *pubsub.Broker[PermissionNotification]
}

// NewService constructs a Service with no prior grants.
func NewService() Service {
	return &service{
		granted:             make(map[string]bool),
		persistentlyGranted: make(map[string]map[string]bool),
		autoApproved:        make(map[string]bool),
		requests:            pubsub.NewBroker[PermissionRequest](),
		notifications:       pubsub.NewBroker[PermissionNotification](),
	}
}

func (s *service) SetSkipRequests(skip bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skip = skip
}

func (s *service) SkipRequests() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skip
}

func (s *service) Grant(perm PermissionRequest) {
	s.mu.Lock()
	s.granted[perm.ToolCallID] = true
	s.mu.Unlock()

	s.notifications.Publish(pubsub.NewCreatedEvent(PermissionNotification{
		ToolCallID: perm.ToolCallID,
		Granted:    true,
	}))
}

func (s *service) GrantPersistent(perm PermissionRequest) {
	s.mu.Lock()
	s.granted[perm.ToolCallID] = true
	byTool, ok := s.persistentlyGranted[perm.SessionID]
	if !ok {
		byTool = make(map[string]bool)
		s.persistentlyGranted[perm.SessionID] = byTool
	}
	byTool[perm.ToolName] = true
	s.mu.Unlock()

	s.notifications.Publish(pubsub.NewCreatedEvent(PermissionNotification{
		ToolCallID: perm.ToolCallID,
		Granted:    true,
	}))
}

func (s *service) Deny(perm PermissionRequest) {
	s.mu.Lock()
	s.granted[perm.ToolCallID] = false
	s.mu.Unlock()

	s.notifications.Publish(pubsub.NewCreatedEvent(PermissionNotification{
		ToolCallID: perm.ToolCallID,
		Granted:    false,
	}))
}

func (s *service) IsGranted(toolCallID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granted[toolCallID]
}

func (s *service) Decide(decision Decision) {
	if decision.Allow {
		s.Grant(PermissionRequest{ToolCallID: decision.ToolCallID})
		return
	}
	s.Deny(PermissionRequest{ToolCallID: decision.ToolCallID})
}

func (s *service) Subscribe(ctx context.Context) <-chan pubsub.Event[PermissionRequest] {
	return s.requests.Subscribe(ctx)
}

func (s *service) SubscribeNotifications(ctx context.Context) <-chan pubsub.Event[PermissionNotification] {
	return s.notifications.Subscribe(ctx)
}

func (s *service) AutoApproveSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoApproved[sessionID] = true
}

// Request publishes a new Permission Request for subscribers (the host's
// permission dispatcher fiber, or an interactive TUI prompt) to observe and
// eventually answer via Grant/GrantPersistent/Deny/Decide. It returns
// immediately; the caller awaiting a decision should watch
// SubscribeNotifications or poll IsGranted.
func (s *service) Request(req PermissionRequest) {
	s.mu.Lock()
	skip := s.skip
	autoApproved := s.autoApproved[req.SessionID]
	persistentlyGranted := s.persistentlyGranted[req.SessionID][req.ToolName]
	s.mu.Unlock()

	if skip || autoApproved || persistentlyGranted {
		s.Grant(req)
		return
	}

	s.requests.Publish(pubsub.NewCreatedEvent(req))
}
