// Package contextstore manages a session's sectioned conversation context.
// Each section is an ordered message log: entries are appended, never
// reordered, and only truncated from the front by compaction. Snapshot
// flattens the sections in the fixed assembly order for submission to a
// completion provider.
package contextstore

import (
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/controlplane/core/protocol"
)

// Context holds the per-session message log. Safe for concurrent use.
type Context struct {
	mu       sync.RWMutex
	sections map[protocol.Section][]protocol.ContextMessage
}

// New creates an empty Context with all sections present.
func New() *Context {
	sections := make(map[protocol.Section][]protocol.ContextMessage, len(protocol.Sections()))
	for _, s := range protocol.Sections() {
		sections[s] = nil
	}
	return &Context{sections: sections}
}

// Append adds a message to the end of a section. Duplicates are allowed and
// insertion order is preserved.
func (c *Context) Append(section protocol.Section, role protocol.Role, content string, metadata map[string]any) error {
	if !section.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sections[section] = append(c.sections[section], protocol.ContextMessage{
		Role:     role,
		Content:  content,
		Metadata: metadata,
	})
	return nil
}

// Compact truncates a section to its most recent keepRecent entries.
// A no-op when the section is already short enough. Negative keepRecent is
// rejected rather than clamped.
func (c *Context) Compact(section protocol.Section, keepRecent int) error {
	if !section.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if keepRecent < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeKeep, keepRecent)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.sections[section]
	if len(entries) <= keepRecent {
		return nil
	}
	kept := make([]protocol.ContextMessage, keepRecent)
	copy(kept, entries[len(entries)-keepRecent:])
	c.sections[section] = kept
	return nil
}

// Snapshot flattens the context into a single ordered sequence of message
// objects: sections in the order system, conversation, tools, each
// internally in insertion order. Metadata keys are merged into the object;
// role and content win on collision.
func (c *Context) Snapshot() []map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []map[string]any
	for _, section := range protocol.Sections() {
		for _, msg := range c.sections[section] {
			flat := make(map[string]any, len(msg.Metadata)+2)
			for k, v := range msg.Metadata {
				flat[k] = v
			}
			flat["role"] = string(msg.Role)
			flat["content"] = msg.Content
			out = append(out, flat)
		}
	}
	return out
}

// Info returns per-section entry counts and the total.
func (c *Context) Info() protocol.ContextInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := protocol.ContextInfo{Sections: make(map[string]int, len(c.sections))}
	for _, section := range protocol.Sections() {
		n := len(c.sections[section])
		info.Sections[string(section)] = n
		info.Total += n
	}
	return info
}

// Len returns the number of entries in a section. Unknown sections have
// length zero.
func (c *Context) Len(section protocol.Section) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sections[section])
}
