package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"slurm_usage/internal/app"
	"slurm_usage/internal/config"
)

const longHelp = `slurm-usage: read-only per-user and per-node Slurm usage report

Positional target:
  ssh-target is optional.
  - omitted: run locally (requires local squeue/scontrol)
  - provided: run remotely through OpenSSH using alias or user@host

Behavior:
  - queries the scheduler once, prints the report and exits
  - never mutates Slurm state
  - transient SSH/network/slurmctld failures retry with backoff up to --retries
  - missing Slurm commands are treated as non-recoverable errors
  - malformed scheduler records are skipped and counted

Configuration:
  - every flag can be set as SLURM_USAGE_<FLAG>, e.g. SLURM_USAGE_FORMAT=json
  - --config points at a YAML file with the same keys plus "target" and
    "classes", a list of {match, class} node class rules

Authentication:
  - uses standard OpenSSH auth flows (ssh-agent, keys, config)
  - supports SSH config aliases and bastion/proxy jumps
  - does not accept password flags`

const examples = `  slurm-usage
  slurm-usage cluster_alias
  slurm-usage --format json user@cluster.example.org
  slurm-usage --format prom cluster_alias > /var/lib/node_exporter/slurm_usage.prom
  slurm-usage --interactive cluster_alias
  slurm-usage --config ~/.config/slurm-usage.yaml
  slurm-usage doctor cluster_alias
  slurm-usage dry-run cluster_alias`

// usageError marks failures caused by how the tool was invoked.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, err := newRootCmd(stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "slurm-usage error: %v\n", err)
		return 1
	}
	root.SetArgs(args)

	err = root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(stderr, "argument error: %v\n", err)
		fmt.Fprintln(stderr, "run 'slurm-usage --help' for usage details")
		return 2
	}
	fmt.Fprintf(stderr, "slurm-usage error: %v\n", err)
	return 1
}

func newRootCmd(stdout, stderr io.Writer) (*cobra.Command, error) {
	v := viper.New()

	root := &cobra.Command{
		Use:           "slurm-usage [flags] [ssh-target]",
		Short:         "Report per-user and per-node Slurm usage",
		Long:          longHelp,
		Example:       examples,
		Args:          targetArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(v, config.CommandReport, args, stderr)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg, stdout, log)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	if err := config.BindFlags(root.PersistentFlags(), v); err != nil {
		return nil, err
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "doctor [flags] [ssh-target]",
			Short: "Run non-mutating preflight checks and exit",
			Args:  targetArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := setup(v, config.CommandDoctor, args, stderr)
				if err != nil {
					return err
				}
				return app.RunDoctor(cmd.Context(), cfg, stdout)
			},
		},
		&cobra.Command{
			Use:   "dry-run [flags] [ssh-target]",
			Short: "Print the resolved configuration and planned steps without running anything",
			Args:  targetArgs,
			RunE: func(_ *cobra.Command, args []string) error {
				cfg, _, err := setup(v, config.CommandDryRun, args, stderr)
				if err != nil {
					return err
				}
				return app.RunDryRun(cfg, stdout)
			},
		},
	)
	return root, nil
}

func targetArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
		return &usageError{err: err}
	}
	return nil
}

func setup(v *viper.Viper, command config.Command, args []string, stderr io.Writer) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(v, command, args)
	if err != nil {
		return config.Config{}, nil, &usageError{err: err}
	}
	log, err := app.NewLogger(cfg.LogLevel, stderr)
	if err != nil {
		return config.Config{}, nil, &usageError{err: err}
	}
	log.WithFields(logrus.Fields{
		"command": cfg.Command,
		"mode":    cfg.Mode,
		"target":  cfg.Target,
		"format":  cfg.Format,
	}).Debug("configuration resolved")
	return cfg, log, nil
}
