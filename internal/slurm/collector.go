package slurm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"slurm_usage/internal/retry"
	"slurm_usage/internal/transport"
)

const (
	// --array prints one line per array task so per-user counts match what
	// the scheduler is actually running.
	JobQueryCommand  = `squeue --array --noheader -o "%i %u %N %c %m"`
	NodeQueryCommand = `scontrol show nodes --oneliner`
)

// ErrNoNodes is returned when the node query succeeds but yields nothing;
// a cluster without nodes means the query went to the wrong place.
var ErrNoNodes = errors.New("node query returned no records")

type JobSource interface {
	JobLines(ctx context.Context) ([]string, error)
}

type NodeSource interface {
	NodeLines(ctx context.Context) ([]string, error)
}

// CommandSource answers both queries by running the Slurm CLI through a
// transport, retrying transient failures.
type CommandSource struct {
	transport      transport.Transport
	commandTimeout time.Duration
	policy         retry.Policy
	log            logrus.FieldLogger
}

func NewCommandSource(t transport.Transport, commandTimeout time.Duration, policy retry.Policy, log logrus.FieldLogger) *CommandSource {
	if policy.Retryable == nil {
		policy.Retryable = transport.IsRetryable
	}
	return &CommandSource{
		transport:      t,
		commandTimeout: commandTimeout,
		policy:         policy,
		log:            log,
	}
}

func (s *CommandSource) JobLines(ctx context.Context) ([]string, error) {
	return s.lines(ctx, JobQueryCommand)
}

func (s *CommandSource) NodeLines(ctx context.Context) ([]string, error) {
	return s.lines(ctx, NodeQueryCommand)
}

func (s *CommandSource) lines(ctx context.Context, command string) ([]string, error) {
	log := s.log.WithField("command", command)
	policy := s.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.WithError(err).WithField("attempt", attempt).Warnf("query failed; retrying in %s", delay)
	}

	var raw string
	start := time.Now()
	err := policy.Do(ctx, func(ctx context.Context) error {
		out, err := s.runWithTimeout(ctx, command)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithField("elapsed", time.Since(start)).Debug("query finished")
	return splitLines(raw), nil
}

func (s *CommandSource) runWithTimeout(ctx context.Context, command string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	res, err := s.transport.Run(cmdCtx, command)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(res.Stdout, "\n"), nil
}

type Collector struct {
	jobs       JobSource
	nodes      NodeSource
	classifier *Classifier
	log        logrus.FieldLogger
}

func NewCollector(jobs JobSource, nodes NodeSource, classifier *Classifier, log logrus.FieldLogger) *Collector {
	return &Collector{
		jobs:       jobs,
		nodes:      nodes,
		classifier: classifier,
		log:        log,
	}
}

// Collect runs both queries concurrently and parses them. Malformed records
// are logged and dropped; only query failures abort the snapshot.
func (c *Collector) Collect(ctx context.Context) (Snapshot, error) {
	var jobLines, nodeLines []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lines, err := c.jobs.JobLines(gctx)
		if err != nil {
			return fmt.Errorf("query jobs: %w", err)
		}
		jobLines = lines
		return nil
	})
	g.Go(func() error {
		lines, err := c.nodes.NodeLines(gctx)
		if err != nil {
			return fmt.Errorf("query nodes: %w", err)
		}
		nodeLines = lines
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	jobs, jobErrs := ParseJobLines(jobLines, c.classifier)
	nodes, nodeErrs := ParseNodeLines(nodeLines, c.classifier)
	for _, err := range jobErrs {
		c.log.WithError(err).Warn("skipping malformed job record")
	}
	for _, err := range nodeErrs {
		c.log.WithError(err).Warn("skipping malformed node record")
	}
	if len(nodes) == 0 && len(nodeErrs) == 0 {
		return Snapshot{}, ErrNoNodes
	}

	return Snapshot{
		Jobs:        jobs,
		Nodes:       nodes,
		Skipped:     len(jobErrs) + len(nodeErrs),
		CollectedAt: time.Now(),
	}, nil
}

func splitLines(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}
