package slurm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"slurm_usage/internal/retry"
	"slurm_usage/internal/transport"
)

type fakeSource struct {
	jobs     []string
	nodes    []string
	jobErr   error
	nodeErr  error
	jobCalls atomic.Int32
}

func (f *fakeSource) JobLines(context.Context) ([]string, error) {
	f.jobCalls.Add(1)
	return f.jobs, f.jobErr
}

func (f *fakeSource) NodeLines(context.Context) ([]string, error) {
	return f.nodes, f.nodeErr
}

type scriptedTransport struct {
	calls     atomic.Int32
	responses map[string][]transportResponse
}

type transportResponse struct {
	stdout string
	err    error
}

func (s *scriptedTransport) Run(_ context.Context, command string) (transport.RunResult, error) {
	s.calls.Add(1)
	queue := s.responses[command]
	if len(queue) == 0 {
		return transport.RunResult{}, errors.New("unexpected command " + command)
	}
	r := queue[0]
	if len(queue) > 1 {
		s.responses[command] = queue[1:]
	}
	return transport.RunResult{Stdout: r.stdout}, r.err
}

func (s *scriptedTransport) Describe() string {
	return "scripted"
}

func TestJobQueryCommandExpandsArrays(t *testing.T) {
	if !strings.Contains(JobQueryCommand, "--array") {
		t.Fatalf("job query must expand array tasks: %q", JobQueryCommand)
	}
	if !strings.Contains(JobQueryCommand, `"%i %u %N %c %m"`) {
		t.Fatalf("job query must produce the five-field layout: %q", JobQueryCommand)
	}
}

func TestCollectorParsesBothQueries(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	src := &fakeSource{
		jobs: []string{
			"1 alice node01-[2-3] 4 8G",
			"2 bob  1 1G",
			"3 carol node1 4 8T",
			"4 dave",
		},
		nodes: []string{
			"NodeName=node01-2 State=MIXED CPUAlloc=4 CPUTot=8 AllocMem=8192 RealMemory=16384",
			"NodeName=node01-3 State=MIXED CPUAlloc=4 CPUTot=8 AllocMem=8192 RealMemory=16384",
		},
	}

	snap, err := NewCollector(src, src, nil, log).Collect(context.Background())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(snap.Jobs) != 2 || len(snap.Nodes) != 2 {
		t.Fatalf("unexpected jobs/nodes %d/%d", len(snap.Jobs), len(snap.Nodes))
	}
	if snap.Skipped != 1 {
		t.Fatalf("expected one skipped record, got %d", snap.Skipped)
	}
	if snap.CollectedAt.IsZero() {
		t.Fatalf("expected collection timestamp")
	}
	if len(hook.Entries) != 1 || hook.LastEntry().Level != logrus.WarnLevel {
		t.Fatalf("expected one warning for the malformed record, got %d entries", len(hook.Entries))
	}
}

func TestCollectorFailsOnQueryError(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	src := &fakeSource{nodeErr: errors.New("slurmctld unreachable")}
	_, err := NewCollector(src, src, nil, log).Collect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "query nodes") {
		t.Fatalf("expected wrapped node query error, got %v", err)
	}
}

func TestCollectorRejectsEmptyNodeQuery(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	src := &fakeSource{jobs: []string{"1 alice  1 1G"}}
	_, err := NewCollector(src, src, nil, log).Collect(context.Background())
	if !errors.Is(err, ErrNoNodes) {
		t.Fatalf("expected ErrNoNodes, got %v", err)
	}
}

func TestCommandSourceRetriesTransientFailures(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	tr := &scriptedTransport{responses: map[string][]transportResponse{
		JobQueryCommand: {
			{err: &transport.RunError{ExitCode: 255, Stderr: "Connection reset by peer"}},
			{stdout: "1 alice node1 1 1G\n2 bob  1 1G\n"},
		},
	}}
	policy := retry.Policy{Attempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	lines, err := NewCommandSource(tr, time.Second, policy, log).JobLines(context.Background())
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if len(lines) != 2 || lines[1] != "2 bob  1 1G" {
		t.Fatalf("unexpected lines %q", lines)
	}
	if tr.calls.Load() != 2 {
		t.Fatalf("expected 2 transport calls, got %d", tr.calls.Load())
	}
	if len(hook.Entries) == 0 {
		t.Fatalf("expected retry warning to be logged")
	}
}

func TestCommandSourceDoesNotRetryBrokenCommand(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	tr := &scriptedTransport{responses: map[string][]transportResponse{
		NodeQueryCommand: {
			{err: &transport.RunError{ExitCode: 127, Stderr: "scontrol: command not found"}},
		},
	}}
	policy := retry.Policy{Attempts: 5, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	if _, err := NewCommandSource(tr, time.Second, policy, log).NodeLines(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if tr.calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", tr.calls.Load())
	}
}

func TestSplitLines(t *testing.T) {
	if got := splitLines("  \n"); got != nil {
		t.Fatalf("expected nil for blank output, got %q", got)
	}
	if got := splitLines("a\nb"); len(got) != 2 {
		t.Fatalf("unexpected split %q", got)
	}
}
