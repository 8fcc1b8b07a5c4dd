// Package registry owns the session table: the mapping from session ID to
// the two live stream handles (client side, worker side) and to the
// session's context. It is the only component permitted to add or remove
// sessions. All mutation of a session's bindings goes through the
// registry's mutex; sends happen outside it so a slow peer cannot stall
// unrelated sessions.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/controlplane/contextstore"
	"github.com/tailored-agentic-units/controlplane/observability"
)

// Stream is a bound peer connection. Send must be safe for concurrent use;
// the registry borrows the handle for routing and never closes it.
type Stream interface {
	Send(v any) error
}

type session struct {
	id      string
	client  Stream
	worker  Stream
	context *contextstore.Context
}

// Registry is the session table. Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	observer observability.Observer
	metrics  *Metrics
}

// New creates an empty Registry. A nil observer is replaced with a no-op.
func New(observer observability.Observer) *Registry {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return &Registry{
		sessions: make(map[string]*session),
		observer: observer,
		metrics:  NewMetrics(),
	}
}

// Create allocates a fresh session with an empty context and returns its
// identifier. Never fails.
func (r *Registry) Create() string {
	id := uuid.Must(uuid.NewV7()).String()

	r.mu.Lock()
	r.sessions[id] = &session{id: id, context: contextstore.New()}
	r.mu.Unlock()

	r.metrics.RecordSessionCreated()
	r.emit(EventSessionCreate, observability.LevelInfo, id, nil)
	return id
}

// BindClient stores the client stream for a session, replacing any previous
// handle. The replaced handle is abandoned; no further sends reach it.
func (r *Registry) BindClient(sessionID string, stream Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.client = stream
	r.emit(EventClientBind, observability.LevelVerbose, sessionID, nil)
	return nil
}

// BindWorker stores the worker stream for a session, replacing any previous
// handle.
func (r *Registry) BindWorker(sessionID string, stream Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.worker = stream
	r.emit(EventWorkerBind, observability.LevelVerbose, sessionID, nil)
	return nil
}

// SendToClient routes a message to the session's bound client stream.
// Returns ErrSessionNotFound or ErrNoStream when there is no destination;
// callers log and drop on those conditions, they are not fatal.
func (r *Registry) SendToClient(sessionID string, msg any) error {
	stream, err := r.lookup(sessionID, func(s *session) Stream { return s.client })
	if err != nil {
		r.metrics.RecordDropped()
		r.emit(EventRouteDrop, observability.LevelVerbose, sessionID, map[string]any{"side": "client", "reason": err.Error()})
		return err
	}
	if err := stream.Send(msg); err != nil {
		r.metrics.RecordDropped()
		return fmt.Errorf("send to client failed: %w", err)
	}
	r.metrics.RecordRoutedToClient()
	return nil
}

// SendToWorker routes a message to the session's bound worker stream.
func (r *Registry) SendToWorker(sessionID string, msg any) error {
	stream, err := r.lookup(sessionID, func(s *session) Stream { return s.worker })
	if err != nil {
		r.metrics.RecordDropped()
		r.emit(EventRouteDrop, observability.LevelVerbose, sessionID, map[string]any{"side": "worker", "reason": err.Error()})
		return err
	}
	if err := stream.Send(msg); err != nil {
		r.metrics.RecordDropped()
		return fmt.Errorf("send to worker failed: %w", err)
	}
	r.metrics.RecordRoutedToWorker()
	return nil
}

// Context returns the session's context store.
func (r *Registry) Context(sessionID string) (*contextstore.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s.context, nil
}

// Destroy removes the session and discards its context. Subsequent
// operations on the ID behave as session not found.
func (r *Registry) Destroy(sessionID string) error {
	r.mu.Lock()
	_, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	r.metrics.RecordSessionDestroyed()
	r.emit(EventSessionDestroy, observability.LevelInfo, sessionID, nil)
	return nil
}

// ReleaseWorker clears the worker binding if stream is still the bound
// handle. A stale handle (already replaced by a reconnect) is ignored. The
// session record persists: the client may still be attached, or a worker
// may reconnect.
func (r *Registry) ReleaseWorker(sessionID string, stream Stream) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	released := ok && s.worker == stream
	if released {
		s.worker = nil
	}
	r.mu.Unlock()

	if released {
		r.emit(EventWorkerRelease, observability.LevelVerbose, sessionID, nil)
	}
}

// ReleaseClient destroys the session if stream is still the bound client
// handle, and reports whether it did. A stale handle is ignored so a
// reconnected client's session survives the old connection's teardown.
func (r *Registry) ReleaseClient(sessionID string, stream Stream) bool {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	owned := ok && s.client == stream
	if owned {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if owned {
		r.metrics.RecordSessionDestroyed()
		r.emit(EventSessionDestroy, observability.LevelInfo, sessionID, nil)
	}
	return owned
}

// Sessions returns the IDs of all live sessions.
func (r *Registry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Metrics returns a snapshot of the registry counters.
func (r *Registry) Metrics() MetricsSnapshot {
	return r.metrics.Snapshot()
}

func (r *Registry) lookup(sessionID string, pick func(*session) Stream) (Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	stream := pick(s)
	if stream == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNoStream, sessionID)
	}
	return stream, nil
}

func (r *Registry) emit(eventType observability.EventType, level observability.Level, sessionID string, data map[string]any) {
	r.observer.OnEvent(context.Background(), observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "registry",
		Session:   sessionID,
		Data:      data,
	})
}
