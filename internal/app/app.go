package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"slurm_usage/internal/config"
	"slurm_usage/internal/report"
	"slurm_usage/internal/retry"
	"slurm_usage/internal/slurm"
	"slurm_usage/internal/transport"
	"slurm_usage/internal/tui"
	"slurm_usage/internal/usage"
)

// missingSlurmCommandsError is typed so retry classification is stable and
// does not depend on brittle string matching.
type missingSlurmCommandsError struct {
	source  string
	missing string
}

func (e *missingSlurmCommandsError) Error() string {
	return fmt.Sprintf("missing required Slurm commands on %s: %s", e.source, e.missing)
}

// NewLogger returns a text logger on w at level. Diagnostics always go to
// stderr so report output stays clean for pipes.
func NewLogger(level string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return log, nil
}

// Run collects one snapshot and either writes the report to out or opens the
// interactive viewer on it.
func Run(ctx context.Context, cfg config.Config, out io.Writer, log logrus.FieldLogger) error {
	tr, err := buildTransport(cfg)
	if err != nil {
		return err
	}
	return runWithTransport(ctx, cfg, tr, out, log)
}

func runWithTransport(ctx context.Context, cfg config.Config, tr transport.Transport, out io.Writer, log logrus.FieldLogger) error {
	classifier, err := buildClassifier(cfg.Classes)
	if err != nil {
		return err
	}

	if err := awaitSlurmAvailability(ctx, tr, cfg.CommandTimeout, retry.Default(cfg.Retries), log); err != nil {
		return err
	}

	src := slurm.NewCommandSource(tr, cfg.CommandTimeout, retry.Default(cfg.Retries), log)
	rep, err := collectReport(ctx, slurm.NewCollector(src, src, classifier, log), tr.Describe())
	if err != nil {
		return err
	}

	if cfg.Interactive {
		prog := tea.NewProgram(tui.NewModel(tui.Options{Report: rep, NoColor: cfg.NoColor}), tea.WithAltScreen())
		_, err := prog.Run()
		return err
	}

	renderer, err := report.New(cfg.Format, out, cfg.NoColor)
	if err != nil {
		return err
	}
	return renderer.Render(out, rep)
}

func collectReport(ctx context.Context, collector *slurm.Collector, source string) (usage.Report, error) {
	snap, err := collector.Collect(ctx)
	if err != nil {
		return usage.Report{}, err
	}
	return usage.Summarize(snap, source), nil
}

func buildTransport(cfg config.Config) (transport.Transport, error) {
	switch cfg.Mode {
	case config.ModeLocal:
		return transport.NewLocalTransport(), nil
	case config.ModeRemote:
		return transport.NewSSHTransport(transport.SSHOptions{
			Target:         cfg.Target,
			ConfigPath:     cfg.SSHConfig,
			IdentityFile:   cfg.IdentityFile,
			Port:           cfg.Port,
			ConnectTimeout: cfg.ConnectTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported mode: %s", cfg.Mode)
	}
}

// buildClassifier turns config rules into a classifier. No rules means the
// built-in cluster layout.
func buildClassifier(rules []config.ClassRule) (*slurm.Classifier, error) {
	if len(rules) == 0 {
		return slurm.NewClassifier(slurm.DefaultRules), nil
	}
	out := make([]slurm.Rule, 0, len(rules))
	for i, r := range rules {
		class, ok := slurm.ParseClass(r.Class)
		if !ok {
			return nil, fmt.Errorf("classes[%d]: unknown class %q", i, r.Class)
		}
		out = append(out, slurm.Rule{Match: r.Match, Class: class})
	}
	return slurm.NewClassifier(out), nil
}

func checkSlurmAvailability(ctx context.Context, tr transport.Transport, timeout time.Duration) error {
	const checkCmd = `missing=""; for c in squeue scontrol; do if ! command -v "$c" >/dev/null 2>&1; then missing="$missing $c"; fi; done; if [ -n "$missing" ]; then echo "$missing"; exit 7; fi`

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := tr.Run(checkCtx, checkCmd)
	if err != nil {
		if missing := strings.TrimSpace(res.Stdout); missing != "" {
			return &missingSlurmCommandsError{
				source:  tr.Describe(),
				missing: missing,
			}
		}
		var runErr *transport.RunError
		if errors.As(err, &runErr) && runErr.Timeout {
			return fmt.Errorf("Slurm capability check timed out on %s; consider increasing --command-timeout", tr.Describe())
		}
		return fmt.Errorf("failed Slurm capability check on %s: %w", tr.Describe(), err)
	}
	return nil
}

// awaitSlurmAvailability retries the capability check under policy. A
// missing command is permanent and is returned immediately.
func awaitSlurmAvailability(
	ctx context.Context,
	tr transport.Transport,
	timeout time.Duration,
	policy retry.Policy,
	log logrus.FieldLogger,
) error {
	policy.Retryable = func(err error) bool { return !isMissingSlurmCommandError(err) }
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.WithError(err).WithFields(logrus.Fields{
			"target":  tr.Describe(),
			"attempt": attempt,
		}).Warnf("transient preflight failure; retrying in %s", delay)
	}
	return policy.Do(ctx, func(ctx context.Context) error {
		return checkSlurmAvailability(ctx, tr, timeout)
	})
}

func isMissingSlurmCommandError(err error) bool {
	if err == nil {
		return false
	}
	var missingErr *missingSlurmCommandsError
	return errors.As(err, &missingErr)
}
