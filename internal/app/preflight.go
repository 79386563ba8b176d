package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"slurm_usage/internal/config"
	"slurm_usage/internal/slurm"
	"slurm_usage/internal/transport"
)

type doctorCheck struct {
	name   string
	detail string
	err    error
}

type doctorDeps struct {
	lookPath          func(string) (string, error)
	stat              func(string) (os.FileInfo, error)
	buildTransport    func(config.Config) (transport.Transport, error)
	checkAvailability func(context.Context, transport.Transport, time.Duration) error
}

func defaultDoctorDeps() doctorDeps {
	return doctorDeps{
		lookPath:          exec.LookPath,
		stat:              os.Stat,
		buildTransport:    buildTransport,
		checkAvailability: checkSlurmAvailability,
	}
}

func RunDoctor(ctx context.Context, cfg config.Config, out io.Writer) error {
	return runDoctorWithDeps(ctx, cfg, out, defaultDoctorDeps())
}

func runDoctorWithDeps(ctx context.Context, cfg config.Config, out io.Writer, deps doctorDeps) error {
	target := "local"
	if cfg.Mode == config.ModeRemote {
		target = cfg.Target
	}

	fmt.Fprintln(out, "slurm-usage doctor")
	fmt.Fprintf(out, "mode: %s\n", cfg.Mode)
	fmt.Fprintf(out, "target: %s\n", target)
	fmt.Fprintf(out, "config: %s\n\n", configSource(cfg))

	checks := buildDoctorChecks(ctx, cfg, deps)
	failed := false
	for _, check := range checks {
		if check.err != nil {
			failed = true
			fmt.Fprintf(out, "[fail] %s: %v\n", check.name, check.err)
			continue
		}
		fmt.Fprintf(out, "[ok] %s: %s\n", check.name, check.detail)
	}

	if failed {
		fmt.Fprintln(out, "\ndoctor result: FAIL")
		return errors.New("doctor checks failed")
	}

	fmt.Fprintln(out, "\ndoctor result: PASS")
	return nil
}

func buildDoctorChecks(ctx context.Context, cfg config.Config, deps doctorDeps) []doctorCheck {
	checks := make([]doctorCheck, 0, 8)

	appendToolCheck := func(scope string, tool string) {
		if path, err := deps.lookPath(tool); err != nil {
			checks = append(checks, doctorCheck{
				name: scope + " tool " + tool,
				err:  fmt.Errorf("not found in PATH"),
			})
		} else {
			checks = append(checks, doctorCheck{
				name:   scope + " tool " + tool,
				detail: path,
			})
		}
	}

	appendFileCheck := func(name string, path string) {
		if strings.TrimSpace(path) == "" {
			return
		}
		resolved := resolveHomePath(path)
		info, err := deps.stat(resolved)
		if err != nil {
			checks = append(checks, doctorCheck{
				name: name,
				err:  fmt.Errorf("path is not readable: %s", resolved),
			})
			return
		}
		if info.IsDir() {
			checks = append(checks, doctorCheck{
				name: name,
				err:  fmt.Errorf("expected a file but found a directory: %s", resolved),
			})
			return
		}
		checks = append(checks, doctorCheck{
			name:   name,
			detail: resolved,
		})
	}

	if cfg.Mode == config.ModeLocal {
		for _, tool := range []string{"bash", "squeue", "scontrol"} {
			appendToolCheck("local", tool)
		}
	} else {
		appendToolCheck("local", "ssh")
		appendFileCheck("ssh config file", cfg.SSHConfig)
		appendFileCheck("ssh identity file", cfg.IdentityFile)
	}
	appendFileCheck("config file", cfg.ConfigFile)

	if classifier, err := buildClassifier(cfg.Classes); err != nil {
		checks = append(checks, doctorCheck{name: "node class rules", err: err})
	} else {
		checks = append(checks, doctorCheck{
			name:   "node class rules",
			detail: fmt.Sprintf("%d rules, unmatched nodes are lowmem", len(classifier.Rules())),
		})
	}

	tr, err := deps.buildTransport(cfg)
	if err != nil {
		checks = append(checks, doctorCheck{
			name: "transport initialization",
			err:  err,
		})
		return checks
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.CommandTimeout)
	defer cancel()

	if err := deps.checkAvailability(ctx, tr, cfg.CommandTimeout); err != nil {
		checks = append(checks, doctorCheck{
			name: "slurm preflight",
			err:  err,
		})
	} else {
		checks = append(checks, doctorCheck{
			name:   "slurm preflight",
			detail: "required Slurm commands are reachable on " + tr.Describe(),
		})
	}

	return checks
}

func RunDryRun(cfg config.Config, out io.Writer) error {
	target := "local"
	if cfg.Mode == config.ModeRemote {
		target = cfg.Target
	}

	fmt.Fprintln(out, "slurm-usage dry-run")
	fmt.Fprintf(out, "mode: %s\n", cfg.Mode)
	fmt.Fprintf(out, "target: %s\n", target)
	fmt.Fprintf(out, "config: %s\n", configSource(cfg))
	fmt.Fprintf(out, "format: %s\n", cfg.Format)
	fmt.Fprintf(out, "interactive: %t\n", cfg.Interactive)
	fmt.Fprintf(out, "connect-timeout: %s\n", cfg.ConnectTimeout)
	fmt.Fprintf(out, "command-timeout: %s\n", cfg.CommandTimeout)
	fmt.Fprintf(out, "retries: %d\n", cfg.Retries)
	fmt.Fprintf(out, "no-color: %t\n", cfg.NoColor)

	classifier, err := buildClassifier(cfg.Classes)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "node classes (first match wins, otherwise lowmem):")
	for _, rule := range classifier.Rules() {
		fmt.Fprintf(out, "  *%s* -> %s\n", rule.Match, rule.Class)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "planned sequence:")
	fmt.Fprintln(out, "1. Parse flags and build the configured transport.")
	if cfg.Mode == config.ModeLocal {
		fmt.Fprintln(out, "2. Run a local preflight check for bash, squeue, and scontrol.")
	} else {
		fmt.Fprintln(out, "2. Connect over OpenSSH to the target and validate squeue and scontrol remotely.")
	}
	fmt.Fprintf(out, "3. Run `%s` and `%s` concurrently.\n", slurm.JobQueryCommand, slurm.NodeQueryCommand)
	if cfg.Interactive {
		fmt.Fprintln(out, "4. Summarize users and nodes, then open the report viewer until quit.")
	} else {
		fmt.Fprintf(out, "4. Summarize users and nodes, print the %s report, and exit.\n", cfg.Format)
	}
	fmt.Fprintln(out, "5. Exit without mutating any Slurm queue or cluster state.")
	fmt.Fprintln(out, "\ndry-run only: no local or remote commands were executed.")

	return nil
}

func configSource(cfg config.Config) string {
	if cfg.ConfigFile == "" {
		return "flags and environment only"
	}
	return cfg.ConfigFile
}

func resolveHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return path
}
