package server

import (
	"context"
	"encoding/json"

	"github.com/tailored-agentic-units/controlplane/core/protocol"
	"github.com/tailored-agentic-units/controlplane/observability"
)

// runCompletion executes one completion request end to end. It holds no
// session-scoped lock across the backend call: the context snapshot and
// model resolution happen first, then the HTTP call, and only the final
// reply re-enters shared state. Every path produces exactly one correlated
// reply — a provider failure is a normal response with the error field set,
// never a stream failure.
func (s *Server) runCompletion(sessionID string, stream *wsStream, req protocol.WorkerRequest) {
	store, err := s.registry.Context(sessionID)
	if err != nil {
		// Session destroyed between dispatch and execution: suppress.
		s.emit(EventSuppressed, observability.LevelWarning, sessionID, map[string]any{
			"kind":   string(req.Type),
			"reason": err.Error(),
		})
		return
	}

	s.emit(EventCompletionStart, observability.LevelVerbose, sessionID, map[string]any{
		"request": req.RequestID,
		"model":   req.Model,
	})

	handle, err := s.resolver.Resolve(req.Model)
	if err != nil {
		s.replyCompletionError(stream, sessionID, req.RequestID, err.Error())
		return
	}

	payload, err := buildCompletionPayload(store.Snapshot(), req.Params)
	if err != nil {
		s.replyCompletionError(stream, sessionID, req.RequestID, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.completionTimeout)
	defer cancel()

	body, err := handle.Complete(ctx, payload)
	if err != nil {
		s.replyCompletionError(stream, sessionID, req.RequestID, err.Error())
		return
	}

	s.emit(EventCompletionDone, observability.LevelVerbose, sessionID, map[string]any{"request": req.RequestID})
	_ = stream.Send(protocol.WorkerReply{
		Type:      protocol.WorkerCompletionResponse,
		RequestID: req.RequestID,
		Body:      body,
	})
}

// buildCompletionPayload assembles the provider payload: the context
// snapshot under "messages", with request-supplied parameters merged over
// it. Malformed parameter JSON is a validation error, not a connection
// failure.
func buildCompletionPayload(snapshot []map[string]any, params json.RawMessage) (json.RawMessage, error) {
	payload := map[string]any{"messages": snapshot}

	if len(params) > 0 {
		var merged map[string]any
		if err := json.Unmarshal(params, &merged); err != nil {
			return nil, &paramsError{cause: err}
		}
		for k, v := range merged {
			payload[k] = v
		}
	}

	return json.Marshal(payload)
}

type paramsError struct {
	cause error
}

func (e *paramsError) Error() string {
	return "invalid completion params: " + e.cause.Error()
}

func (s *Server) replyCompletionError(stream *wsStream, sessionID, requestID, message string) {
	s.emit(EventCompletionError, observability.LevelWarning, sessionID, map[string]any{
		"request": requestID,
		"error":   message,
	})
	_ = stream.Send(protocol.WorkerReply{
		Type:      protocol.WorkerCompletionResponse,
		RequestID: requestID,
		Error:     message,
	})
}
