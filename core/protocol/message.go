// Package protocol defines the wire types exchanged between the control
// plane and its two kinds of peers: user-facing clients and isolated
// workers. Envelopes are JSON objects with a type discriminant; every
// reply-producing request carries a caller-generated request ID that the
// control plane echoes verbatim so replies can be correlated on a shared
// stream.
package protocol

// Role identifies the sender of a context message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Section identifies one of the fixed context sections. Sections are
// assembled into provider payloads in the order returned by Sections.
type Section string

const (
	SectionSystem       Section = "system"
	SectionConversation Section = "conversation"
	SectionTools        Section = "tools"
)

// Sections returns the fixed section set in assembly order.
func Sections() []Section {
	return []Section{SectionSystem, SectionConversation, SectionTools}
}

// IsValid reports whether s is one of the fixed sections.
func (s Section) IsValid() bool {
	switch s {
	case SectionSystem, SectionConversation, SectionTools:
		return true
	}
	return false
}

// ContextMessage is a single entry in a context section. Metadata is an
// open key/value map merged into the flattened message object on snapshot;
// role and content take precedence when a metadata key collides with them.
type ContextMessage struct {
	Role     Role           `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ModelInfo describes a configured model for GetModels responses.
type ModelInfo struct {
	Key         string `json:"key"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// ContextInfo is the structured reply to a ContextCommand get_info.
type ContextInfo struct {
	Sections map[string]int `json:"sections"`
	Total    int            `json:"total"`
}
