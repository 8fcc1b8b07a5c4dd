package server

import (
	"encoding/json"
	"net/http"

	"github.com/tailored-agentic-units/controlplane/core/protocol"
	"github.com/tailored-agentic-units/controlplane/observability"
	"github.com/tailored-agentic-units/controlplane/tools"
)

// handleWorker runs the receive loop for one worker connection. The
// connection moves through three states: connected (unregistered),
// registered against a session, disconnected. Only register is accepted
// while unregistered; everything else is logged and suppressed, with no
// reply, as is any capability request whose session no longer exists.
func (s *Server) handleWorker(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.emit(EventTransportError, observability.LevelWarning, "", map[string]any{"side": "worker", "error": err.Error()})
		return
	}
	defer conn.Close()

	stream := newWSStream(conn)
	registered := false
	sessionID := ""

	s.emit(EventWorkerConnect, observability.LevelVerbose, "", nil)

	for {
		var req protocol.WorkerRequest
		if err := conn.ReadJSON(&req); err != nil {
			break
		}

		if req.Type == protocol.WorkerRegister {
			if err := s.registry.BindWorker(req.SessionID, stream); err != nil {
				_ = stream.Send(protocol.WorkerReply{
					Type:    protocol.WorkerRegistrationResponse,
					Success: false,
					Error:   err.Error(),
				})
				continue
			}
			if registered && sessionID != req.SessionID {
				// Re-registration against another session is the worker
				// leaving the old one: drop that binding and signal its
				// client, exactly as a disconnect would.
				s.registry.ReleaseWorker(sessionID, stream)
				_ = s.registry.SendToClient(sessionID, protocol.ClientEvent{
					Type:      protocol.ClientTaskCompleted,
					SessionID: sessionID,
				})
			}
			registered = true
			sessionID = req.SessionID
			s.emit(EventWorkerRegister, observability.LevelInfo, sessionID, map[string]any{"agent": req.AgentID})
			_ = stream.Send(protocol.WorkerReply{Type: protocol.WorkerRegistrationResponse, Success: true})
			continue
		}

		if !registered {
			s.emit(EventSuppressed, observability.LevelWarning, "", map[string]any{
				"kind":   string(req.Type),
				"reason": "request before registration",
			})
			continue
		}

		switch req.Type {
		case protocol.WorkerProgress:
			// A drop here is a race with the client disconnecting; the
			// worker is not informed and the event is not retried.
			_ = s.registry.SendToClient(sessionID, protocol.ClientEvent{
				Type:      protocol.ClientAgentOutput,
				SessionID: sessionID,
				Text:      req.Text,
			})

		case protocol.WorkerGetModels:
			_ = stream.Send(protocol.WorkerReply{
				Type:      protocol.WorkerGetModelsResponse,
				RequestID: req.RequestID,
				Models:    s.resolver.List(),
			})

		case protocol.WorkerContextCommand:
			s.handleContextCommand(stream, sessionID, req)

		case protocol.WorkerCompletionRequest:
			// One goroutine per request: back-to-back completions may
			// overlap and complete out of issuance order; the request ID
			// is the worker's only correlation.
			go s.runCompletion(sessionID, stream, req)

		case protocol.WorkerToolRequest:
			s.handleToolRequest(stream, sessionID, req)

		default:
			s.emit(EventSuppressed, observability.LevelWarning, sessionID, map[string]any{
				"kind":   string(req.Type),
				"reason": "unknown request type",
			})
		}
	}

	if registered {
		s.registry.ReleaseWorker(sessionID, stream)
		// The worker leaving is the task ending as far as the client is
		// concerned; a drop means the client already left too.
		_ = s.registry.SendToClient(sessionID, protocol.ClientEvent{
			Type:      protocol.ClientTaskCompleted,
			SessionID: sessionID,
		})
	}
	s.emit(EventWorkerDisconnect, observability.LevelVerbose, sessionID, nil)
}

// handleContextCommand dispatches context mutations and queries.
// Mutations are fire-and-forget: validation failures are logged, never
// replied. Only get_info produces a correlated response.
func (s *Server) handleContextCommand(stream *wsStream, sessionID string, req protocol.WorkerRequest) {
	if req.Command == nil {
		s.emit(EventSuppressed, observability.LevelWarning, sessionID, map[string]any{
			"kind":   string(req.Type),
			"reason": "missing context command",
		})
		return
	}

	ctx, err := s.registry.Context(sessionID)
	if err != nil {
		s.emit(EventSuppressed, observability.LevelWarning, sessionID, map[string]any{
			"kind":   string(req.Type),
			"reason": err.Error(),
		})
		return
	}

	cmd := req.Command
	switch cmd.Op {
	case protocol.ContextAddMessage:
		var metadata map[string]any
		if len(cmd.Metadata) > 0 {
			if err := json.Unmarshal(cmd.Metadata, &metadata); err != nil {
				s.emit(EventSuppressed, observability.LevelWarning, sessionID, map[string]any{
					"kind":   "add_message",
					"reason": "invalid metadata: " + err.Error(),
				})
				return
			}
		}
		if err := ctx.Append(cmd.Section, cmd.Role, cmd.Content, metadata); err != nil {
			s.emit(EventSuppressed, observability.LevelWarning, sessionID, map[string]any{
				"kind":   "add_message",
				"reason": err.Error(),
			})
		}

	case protocol.ContextCompact:
		if err := ctx.Compact(cmd.Section, cmd.KeepRecent); err != nil {
			s.emit(EventSuppressed, observability.LevelWarning, sessionID, map[string]any{
				"kind":   "compact",
				"reason": err.Error(),
			})
		}

	case protocol.ContextGetInfo:
		info := ctx.Info()
		_ = stream.Send(protocol.WorkerReply{
			Type:      protocol.WorkerContextResponse,
			RequestID: req.RequestID,
			Info:      &info,
		})

	default:
		s.emit(EventSuppressed, observability.LevelWarning, sessionID, map[string]any{
			"kind":   string(cmd.Op),
			"reason": "unknown context op",
		})
	}
}

// handleToolRequest routes a tool call through the approval broker. Unknown
// tools and approval failures come back as correlated error replies; a
// granted or exempt call executes asynchronously.
func (s *Server) handleToolRequest(stream *wsStream, sessionID string, req protocol.WorkerRequest) {
	s.emit(EventToolRequest, observability.LevelVerbose, sessionID, map[string]any{"tool": req.Tool})

	if !s.tools.Has(req.Tool) {
		s.replyToolError(sessionID, req.RequestID, "tool not found: "+req.Tool)
		return
	}

	if s.broker.NeedsApproval(sessionID, req.Tool) {
		id := s.broker.Park(sessionID, req.RequestID, req.Tool, req.Args)
		err := s.registry.SendToClient(sessionID, protocol.ClientEvent{
			Type:       protocol.ClientApprovalRequest,
			SessionID:  sessionID,
			ToolCallID: id,
			Tool:       req.Tool,
			Args:       req.Args,
		})
		if err != nil {
			s.broker.Resolve(id, false)
			s.replyToolError(sessionID, req.RequestID, "no client connected to approve tool call")
		}
		return
	}

	go s.executeTool(tools.PendingCall{
		SessionID: sessionID,
		RequestID: req.RequestID,
		Tool:      req.Tool,
		Args:      req.Args,
	})
}
