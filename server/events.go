package server

import "github.com/tailored-agentic-units/controlplane/observability"

// Router event types emitted during connection handling and capability
// dispatch.
const (
	EventClientConnect    observability.EventType = "controlplane.client.connect"
	EventClientDisconnect observability.EventType = "controlplane.client.disconnect"
	EventWorkerConnect    observability.EventType = "controlplane.worker.connect"
	EventWorkerDisconnect observability.EventType = "controlplane.worker.disconnect"
	EventWorkerRegister   observability.EventType = "controlplane.worker.register"
	EventSuppressed       observability.EventType = "controlplane.worker.suppressed"
	EventInputDrop        observability.EventType = "controlplane.input.drop"
	EventCompletionStart  observability.EventType = "controlplane.completion.start"
	EventCompletionDone   observability.EventType = "controlplane.completion.done"
	EventCompletionError  observability.EventType = "controlplane.completion.error"
	EventToolRequest      observability.EventType = "controlplane.tool.request"
	EventToolApproved     observability.EventType = "controlplane.tool.approved"
	EventToolDenied       observability.EventType = "controlplane.tool.denied"
	EventTransportError   observability.EventType = "controlplane.transport.error"
	EventProvisionError   observability.EventType = "controlplane.provision.error"
)
