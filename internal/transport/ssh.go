package transport

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type SSHOptions struct {
	Target         string
	ConfigPath     string
	IdentityFile   string
	Port           int
	ConnectTimeout time.Duration
}

// SSHTransport runs commands on a login node through the system OpenSSH
// client. The job and node queries share one multiplexed connection.
type SSHTransport struct {
	opts        SSHOptions
	controlPath string
}

func NewSSHTransport(opts SSHOptions) *SSHTransport {
	return &SSHTransport{
		opts:        opts,
		controlPath: buildControlPath(opts),
	}
}

func (t *SSHTransport) Describe() string {
	return "ssh:" + t.opts.Target
}

func (t *SSHTransport) Run(ctx context.Context, command string) (RunResult, error) {
	return run(ctx, exec.CommandContext(ctx, "ssh", t.buildSSHArgs(command)...), command, t.Describe())
}

func (t *SSHTransport) buildSSHArgs(command string) []string {
	args := make([]string, 0, 24)
	if t.opts.ConnectTimeout > 0 {
		seconds := int(math.Ceil(t.opts.ConnectTimeout.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		args = append(args, "-o", fmt.Sprintf("ConnectTimeout=%d", seconds))
	}
	args = append(args,
		"-o", "BatchMode=yes",
		"-o", "ConnectionAttempts=2",
		"-o", "ServerAliveInterval=15",
		"-o", "ServerAliveCountMax=3",
		"-o", "ControlMaster=auto",
		"-o", "ControlPersist=60",
	)
	if t.controlPath != "" {
		args = append(args, "-o", "ControlPath="+t.controlPath)
	}

	if t.opts.ConfigPath != "" {
		args = append(args, "-F", t.opts.ConfigPath)
	}
	if t.opts.IdentityFile != "" {
		args = append(args, "-i", t.opts.IdentityFile)
	}
	if t.opts.Port > 0 {
		args = append(args, "-p", strconv.Itoa(t.opts.Port))
	}

	return append(args, t.opts.Target, "bash -lc "+shellQuote(command))
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func buildControlPath(opts SSHOptions) string {
	key := fmt.Sprintf("%s|%s|%s|%d", opts.Target, opts.ConfigPath, opts.IdentityFile, opts.Port)
	sum := sha1.Sum([]byte(key))
	root := filepath.Join(os.TempDir(), "slurm-usage-ssh")
	if err := os.MkdirAll(root, 0o700); err != nil {
		return ""
	}
	return filepath.Join(root, "cm-"+hex.EncodeToString(sum[:8]))
}
