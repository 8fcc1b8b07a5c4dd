package tools

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// PendingCall is a tool invocation parked while the control plane waits for
// the client's approval decision. ID is the correlation token carried by
// the approval request and the client's reply.
type PendingCall struct {
	ID        string
	SessionID string
	RequestID string
	Tool      string
	Args      json.RawMessage
}

// Broker gates tool execution on client approval. A tool approved once is
// approved for the remainder of its session. With approval disabled the
// broker answers NeedsApproval false for everything.
type Broker struct {
	mu              sync.Mutex
	requireApproval bool
	pending         map[string]PendingCall
	approved        map[string]map[string]bool // session ID -> tool name
}

// NewBroker creates a Broker with the given approval policy.
func NewBroker(requireApproval bool) *Broker {
	return &Broker{
		requireApproval: requireApproval,
		pending:         make(map[string]PendingCall),
		approved:        make(map[string]map[string]bool),
	}
}

// NeedsApproval reports whether executing the named tool in the session
// requires a client decision first.
func (b *Broker) NeedsApproval(sessionID, tool string) bool {
	if !b.requireApproval {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.approved[sessionID][tool]
}

// Park stores a pending call and returns its correlation ID.
func (b *Broker) Park(sessionID, requestID, tool string, args json.RawMessage) string {
	call := PendingCall{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		RequestID: requestID,
		Tool:      tool,
		Args:      args,
	}

	b.mu.Lock()
	b.pending[call.ID] = call
	b.mu.Unlock()

	return call.ID
}

// Resolve consumes a pending call by correlation ID. When approved, the
// tool becomes session-approved so subsequent calls skip the round-trip.
// Returns false for an unknown or already-resolved ID.
func (b *Broker) Resolve(id string, approved bool) (PendingCall, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	call, exists := b.pending[id]
	if !exists {
		return PendingCall{}, false
	}
	delete(b.pending, id)

	if approved {
		if b.approved[call.SessionID] == nil {
			b.approved[call.SessionID] = make(map[string]bool)
		}
		b.approved[call.SessionID][call.Tool] = true
	}
	return call, true
}

// DropSession discards pending calls and approval grants for a session.
// Called when the session is destroyed.
func (b *Broker) DropSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, call := range b.pending {
		if call.SessionID == sessionID {
			delete(b.pending, id)
		}
	}
	delete(b.approved, sessionID)
}
