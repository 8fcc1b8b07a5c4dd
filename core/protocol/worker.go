package protocol

import "encoding/json"

// WorkerRequestType discriminates worker-originated envelopes.
type WorkerRequestType string

const (
	WorkerRegister          WorkerRequestType = "register"
	WorkerProgress          WorkerRequestType = "progress"
	WorkerGetModels         WorkerRequestType = "get_models"
	WorkerContextCommand    WorkerRequestType = "context_command"
	WorkerCompletionRequest WorkerRequestType = "completion_request"
	WorkerToolRequest       WorkerRequestType = "tool_request"
)

// WorkerReplyType discriminates control-plane envelopes pushed to a worker.
type WorkerReplyType string

const (
	WorkerRegistrationResponse WorkerReplyType = "registration_response"
	WorkerGetModelsResponse    WorkerReplyType = "get_models_response"
	WorkerContextResponse      WorkerReplyType = "context_response"
	WorkerCompletionResponse   WorkerReplyType = "completion_response"
	WorkerToolResponse         WorkerReplyType = "tool_response"
	WorkerProcessInput         WorkerReplyType = "process_input"
	WorkerShutdown             WorkerReplyType = "shutdown"
)

// ContextOp discriminates context command variants.
type ContextOp string

const (
	ContextAddMessage ContextOp = "add_message"
	ContextCompact    ContextOp = "compact"
	ContextGetInfo    ContextOp = "get_info"
)

// ContextCommand is a context mutation or query carried inside a
// context_command envelope. KeepRecent is only meaningful for compact;
// zero is a valid value, so it is not omitted when empty.
type ContextCommand struct {
	Op         ContextOp       `json:"op"`
	Section    Section         `json:"section,omitempty"`
	Role       Role            `json:"role,omitempty"`
	Content    string          `json:"content,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	KeepRecent int             `json:"keep_recent"`
}

// WorkerRequest is the envelope for every worker-originated message.
// Only the fields relevant to Type are populated.
type WorkerRequest struct {
	Type      WorkerRequestType `json:"type"`
	RequestID string            `json:"request_id,omitempty"`

	// register
	AgentID   string `json:"agent_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// progress
	Text string `json:"text,omitempty"`

	// completion_request
	Model  string          `json:"model,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// context_command
	Command *ContextCommand `json:"command,omitempty"`

	// tool_request
	Tool string          `json:"tool,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`
}

// WorkerReply is the envelope for every control-plane message sent to a
// worker: correlated replies plus the process_input and shutdown pushes.
type WorkerReply struct {
	Type      WorkerReplyType `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Success   bool            `json:"success,omitempty"`
	Error     string          `json:"error,omitempty"`

	Models []ModelInfo     `json:"models,omitempty"`
	Info   *ContextInfo    `json:"info,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`

	// process_input
	Text string `json:"text,omitempty"`
}
