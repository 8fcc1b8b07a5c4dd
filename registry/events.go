package registry

import "github.com/tailored-agentic-units/controlplane/observability"

// Registry event types emitted during session lifecycle and routing.
const (
	EventSessionCreate  observability.EventType = "controlplane.session.create"
	EventSessionDestroy observability.EventType = "controlplane.session.destroy"
	EventClientBind     observability.EventType = "controlplane.session.bind.client"
	EventWorkerBind     observability.EventType = "controlplane.session.bind.worker"
	EventWorkerRelease  observability.EventType = "controlplane.session.release.worker"
	EventRouteDrop      observability.EventType = "controlplane.route.drop"
)
