package protocol

import "encoding/json"

// ClientRequestType discriminates client-originated envelopes.
type ClientRequestType string

const (
	ClientStartTask    ClientRequestType = "start_task"
	ClientUserInput    ClientRequestType = "user_input"
	ClientToolApproval ClientRequestType = "tool_approval"
)

// ClientEventType discriminates control-plane envelopes pushed to a client.
type ClientEventType string

const (
	ClientSessionStarted  ClientEventType = "session_started"
	ClientAgentOutput     ClientEventType = "agent_output"
	ClientApprovalRequest ClientEventType = "approval_request"
	ClientTaskCompleted   ClientEventType = "task_completed"
	ClientError           ClientEventType = "error"
)

// ClientRequest is the envelope for every client-originated message.
type ClientRequest struct {
	Type      ClientRequestType `json:"type"`
	SessionID string            `json:"session_id,omitempty"`

	// user_input
	Text string `json:"text,omitempty"`

	// tool_approval
	ToolCallID string `json:"tool_call_id,omitempty"`
	Approved   bool   `json:"approved,omitempty"`
}

// ClientEvent is the envelope for every control-plane message pushed to a
// client. Output events are tagged with the session they belong to.
type ClientEvent struct {
	Type      ClientEventType `json:"type"`
	SessionID string          `json:"session_id,omitempty"`

	// agent_output
	Text string `json:"text,omitempty"`

	// approval_request
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Tool       string          `json:"tool,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}
