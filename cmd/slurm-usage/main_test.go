package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestHelpIncludesUsageAndCommands(t *testing.T) {
	code, out, _ := execute(t, "--help")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{
		"slurm-usage [flags] [ssh-target]",
		"Behavior:",
		"Authentication:",
		"Examples:",
		"doctor",
		"dry-run",
		"completion",
		"--format",
		"--interactive",
		"--config",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("help missing %q", want)
		}
	}
}

func TestArgumentErrorsExitTwo(t *testing.T) {
	cases := map[string][]string{
		"extra positional": {"a", "b"},
		"unknown flag":     {"--refresh", "1s"},
		"bad format":       {"--format", "yaml"},
		"ssh without host": {"dry-run", "--port", "22"},
		"bad log level":    {"dry-run", "--log-level", "loud"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			code, _, errOut := execute(t, args...)
			if code != 2 {
				t.Fatalf("expected exit 2, got %d (stderr: %s)", code, errOut)
			}
			if !strings.Contains(errOut, "argument error:") {
				t.Fatalf("expected argument error on stderr, got %q", errOut)
			}
		})
	}
}

func TestDryRunPrintsPlan(t *testing.T) {
	code, out, errOut := execute(t, "dry-run", "--format", "json", "cluster_alias")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, errOut)
	}
	for _, want := range []string{
		"slurm-usage dry-run",
		"mode: remote",
		"target: cluster_alias",
		"format: json",
		"dry-run only: no local or remote commands were executed.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("dry-run output missing %q", want)
		}
	}
}

func TestCompletionScriptsForBashAndZsh(t *testing.T) {
	code, bashScript, _ := execute(t, "completion", "bash")
	if code != 0 {
		t.Fatalf("unexpected bash exit code %d", code)
	}
	if !strings.Contains(bashScript, "slurm-usage") {
		t.Fatalf("expected bash completion for slurm-usage, got:\n%s", bashScript)
	}

	code, zshScript, _ := execute(t, "completion", "zsh")
	if code != 0 {
		t.Fatalf("unexpected zsh exit code %d", code)
	}
	if !strings.Contains(zshScript, "#compdef slurm-usage") {
		t.Fatalf("expected zsh completion header, got:\n%s", zshScript)
	}
}
