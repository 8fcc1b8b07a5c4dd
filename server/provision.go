package server

import (
	"context"
	"os"
	"os/exec"
)

// Provisioner causes a worker process to be connected for a new session.
// The mechanism (container, VM, subprocess) is a host concern; the control
// plane's only coupling is that a worker eventually registers with the
// session ID.
type Provisioner interface {
	Provision(ctx context.Context, sessionID string) error
}

// ProvisionerFunc adapts a function to the Provisioner interface.
type ProvisionerFunc func(ctx context.Context, sessionID string) error

func (f ProvisionerFunc) Provision(ctx context.Context, sessionID string) error {
	return f(ctx, sessionID)
}

// NoopProvisioner does nothing; the host launches workers out of band.
type NoopProvisioner struct{}

func (NoopProvisioner) Provision(ctx context.Context, sessionID string) error {
	return nil
}

// ExecProvisioner launches a worker subprocess per session. The session ID
// is appended as the final argument and exported as CONTROLPLANE_SESSION.
type ExecProvisioner struct {
	Command string
	Args    []string
}

func (p *ExecProvisioner) Provision(ctx context.Context, sessionID string) error {
	args := append(append([]string(nil), p.Args...), sessionID)
	cmd := exec.CommandContext(ctx, p.Command, args...)
	cmd.Env = append(os.Environ(), "CONTROLPLANE_SESSION="+sessionID)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Start()
}
