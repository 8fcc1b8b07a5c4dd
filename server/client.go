package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tailored-agentic-units/controlplane/core/protocol"
	"github.com/tailored-agentic-units/controlplane/observability"
	"github.com/tailored-agentic-units/controlplane/registry"
	"github.com/tailored-agentic-units/controlplane/tools"
)

// handleClient runs the receive loop for one client connection. A client
// may start multiple tasks over one connection; every session it started
// is destroyed when the connection ends.
func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.emit(EventTransportError, observability.LevelWarning, "", map[string]any{"side": "client", "error": err.Error()})
		return
	}
	defer conn.Close()

	stream := newWSStream(conn)
	var sessions []string

	s.emit(EventClientConnect, observability.LevelVerbose, "", nil)

	for {
		var req protocol.ClientRequest
		if err := conn.ReadJSON(&req); err != nil {
			break
		}

		switch req.Type {
		case protocol.ClientStartTask:
			sessions = append(sessions, s.startTask(r.Context(), stream))

		case protocol.ClientUserInput:
			s.forwardInput(req)

		case protocol.ClientToolApproval:
			s.resolveApproval(req.ToolCallID, req.Approved)

		default:
			s.emit(EventTransportError, observability.LevelWarning, req.SessionID, map[string]any{
				"side":  "client",
				"error": "unknown request type",
				"kind":  string(req.Type),
			})
		}
	}

	// Transport-level failure or orderly close: either way this client is
	// gone, and its sessions go with it.
	for _, id := range sessions {
		if s.registry.ReleaseClient(id, stream) {
			s.broker.DropSession(id)
		}
	}
	s.emit(EventClientDisconnect, observability.LevelVerbose, "", map[string]any{"sessions": len(sessions)})
}

// startTask allocates a session, binds the client stream, confirms, and
// kicks off worker provisioning.
func (s *Server) startTask(ctx context.Context, stream *wsStream) string {
	id := s.registry.Create()
	if err := s.registry.BindClient(id, stream); err != nil {
		// Create and bind race only with an explicit destroy, which cannot
		// target a fresh ID; treat as a transport-level oddity.
		s.emit(EventTransportError, observability.LevelError, id, map[string]any{"error": err.Error()})
		return id
	}

	_ = stream.Send(protocol.ClientEvent{Type: protocol.ClientSessionStarted, SessionID: id})

	go func() {
		if err := s.provisioner.Provision(context.WithoutCancel(ctx), id); err != nil {
			s.emit(EventProvisionError, observability.LevelError, id, map[string]any{"error": err.Error()})
			_ = s.registry.SendToClient(id, protocol.ClientEvent{
				Type:      protocol.ClientError,
				SessionID: id,
				Error:     "worker provisioning failed: " + err.Error(),
			})
		}
	}()

	return id
}

// forwardInput routes user input to the session's worker. Input with no
// bound worker is dropped, not queued.
func (s *Server) forwardInput(req protocol.ClientRequest) {
	err := s.registry.SendToWorker(req.SessionID, protocol.WorkerReply{
		Type: protocol.WorkerProcessInput,
		Text: req.Text,
	})
	if err != nil {
		s.emit(EventInputDrop, observability.LevelWarning, req.SessionID, map[string]any{"reason": err.Error()})
	}
}

// resolveApproval consumes a pending tool call by correlation ID and either
// executes it or replies a denial to the worker.
func (s *Server) resolveApproval(toolCallID string, approved bool) {
	call, ok := s.broker.Resolve(toolCallID, approved)
	if !ok {
		s.emit(EventToolDenied, observability.LevelWarning, "", map[string]any{
			"tool_call_id": toolCallID,
			"reason":       "unknown or already resolved",
		})
		return
	}

	if !approved {
		s.emit(EventToolDenied, observability.LevelInfo, call.SessionID, map[string]any{"tool": call.Tool})
		s.replyToolError(call.SessionID, call.RequestID, "tool call denied by client")
		return
	}

	s.emit(EventToolApproved, observability.LevelInfo, call.SessionID, map[string]any{"tool": call.Tool})
	go s.executeTool(call)
}

// executeTool runs an approved (or approval-exempt) tool call and routes
// the result back through the registry, so a reconnected worker still
// receives it.
func (s *Server) executeTool(call tools.PendingCall) {
	ctx, cancel := context.WithTimeout(context.Background(), s.completionTimeout)
	defer cancel()

	result, err := s.tools.Execute(ctx, call.Tool, call.Args)
	if err != nil {
		s.replyToolError(call.SessionID, call.RequestID, err.Error())
		return
	}

	encoded, err := json.Marshal(struct {
		Content string `json:"content"`
		IsError bool   `json:"is_error,omitempty"`
	}{Content: result.Content, IsError: result.IsError})
	if err != nil {
		s.replyToolError(call.SessionID, call.RequestID, "failed to encode tool result: "+err.Error())
		return
	}

	err = s.registry.SendToWorker(call.SessionID, protocol.WorkerReply{
		Type:      protocol.WorkerToolResponse,
		RequestID: call.RequestID,
		Result:    encoded,
	})
	if err != nil && !errors.Is(err, registry.ErrNoStream) && !errors.Is(err, registry.ErrSessionNotFound) {
		s.emit(EventTransportError, observability.LevelWarning, call.SessionID, map[string]any{"error": err.Error()})
	}
}

func (s *Server) replyToolError(sessionID, requestID, message string) {
	_ = s.registry.SendToWorker(sessionID, protocol.WorkerReply{
		Type:      protocol.WorkerToolResponse,
		RequestID: requestID,
		Error:     message,
	})
}
