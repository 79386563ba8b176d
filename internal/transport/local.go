package transport

import (
	"context"
	"os/exec"
)

// LocalTransport runs commands through a login shell on this host, so the
// Slurm module environment is loaded the same way as for an interactive user.
type LocalTransport struct{}

func NewLocalTransport() *LocalTransport {
	return &LocalTransport{}
}

func (t *LocalTransport) Describe() string {
	return "local"
}

func (t *LocalTransport) Run(ctx context.Context, command string) (RunResult, error) {
	return run(ctx, exec.CommandContext(ctx, "bash", "-lc", command), command, t.Describe())
}
