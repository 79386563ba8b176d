package slurm

import (
	"errors"
	"math"
	"testing"
)

func TestParseJobLineRunning(t *testing.T) {
	job, err := ParseJobLine("4242_7 alice node09-[1-2] 4 8G", nil)
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if job.ID != "4242_7" || job.User != "alice" {
		t.Fatalf("unexpected id/user %q/%q", job.ID, job.User)
	}
	if !job.Running {
		t.Fatalf("expected running job")
	}
	if len(job.Nodes) != 2 || job.Nodes[0] != "node09-1" || job.Nodes[1] != "node09-2" {
		t.Fatalf("unexpected nodes %v", job.Nodes)
	}
	if job.CPUs != 4 || job.MemGB != 8 {
		t.Fatalf("unexpected cpus/mem %d/%.2f", job.CPUs, job.MemGB)
	}
	if job.Class != ClassHighMem {
		t.Fatalf("expected himem class, got %q", job.Class)
	}
}

func TestParseJobLinePending(t *testing.T) {
	job, err := ParseJobLine("4243 bob  2 4000M", nil)
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if job.Running {
		t.Fatalf("expected pending job")
	}
	if len(job.Nodes) != 0 {
		t.Fatalf("expected no nodes, got %v", job.Nodes)
	}
	if job.Class != "" {
		t.Fatalf("expected empty class for pending job, got %q", job.Class)
	}
	if math.Abs(job.MemGB-4.0) > 1e-9 {
		t.Fatalf("expected 4000M to parse as 4.0, got %v", job.MemGB)
	}
}

func TestParseJobLineShort(t *testing.T) {
	_, err := ParseJobLine("4244 carol 2", nil)
	var short *MissingFieldError
	if !errors.As(err, &short) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if short.Got != 3 || short.Want != 5 {
		t.Fatalf("unexpected field counts %d/%d", short.Got, short.Want)
	}
}

func TestParseJobLineRejectsBadFields(t *testing.T) {
	tests := []struct {
		line    string
		wantErr any
	}{
		{line: "1 alice node1 4 8T", wantErr: &FormatError{}},
		{line: "1 alice node1 4 8", wantErr: &FormatError{}},
		{line: "1 alice node1 x 8G", wantErr: &FormatError{}},
		{line: "1 alice node1 4 xG", wantErr: &FormatError{}},
		{line: "1 alice node[1-x] 4 8G", wantErr: &ParseError{}},
	}
	for _, tt := range tests {
		_, err := ParseJobLine(tt.line, nil)
		if err == nil {
			t.Fatalf("expected error for %q", tt.line)
		}
		switch tt.wantErr.(type) {
		case *FormatError:
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FormatError for %q, got %T", tt.line, err)
			}
		case *ParseError:
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError for %q, got %T", tt.line, err)
			}
		}
	}
}

func TestParseMemGB(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{in: "4G", want: 4},
		{in: "4000M", want: 4},
		{in: "2.5G", want: 2.5},
		{in: "500M", want: 0.5},
		{in: "0M", want: 0},
	}
	for _, tt := range tests {
		got, err := ParseMemGB(tt.in)
		if err != nil {
			t.Fatalf("ParseMemGB(%q) unexpected error %v", tt.in, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("ParseMemGB(%q)=%v want=%v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "4K", "4g", "G", "-1G", "NaNG", "InfM", "+InfG", "-InfG", "InfinityG"} {
		_, err := ParseMemGB(bad)
		var ferr *FormatError
		if !errors.As(err, &ferr) {
			t.Fatalf("expected FormatError for %q, got %v", bad, err)
		}
	}
}

func TestParseJobLinesSkipsShortAndMalformed(t *testing.T) {
	lines := []string{
		"1 alice node01-[2-3] 4 8G",
		"",
		"2 bob 3",
		"3 carol node1 4 8T",
		"4 dave  1 1G",
	}
	jobs, skipped := ParseJobLines(lines, nil)
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].User != "alice" || jobs[1].User != "dave" {
		t.Fatalf("unexpected job order %q/%q", jobs[0].User, jobs[1].User)
	}
	if len(skipped) != 1 {
		t.Fatalf("expected only the bad memory line to be reported, got %v", skipped)
	}
	var rec *RecordError
	if !errors.As(skipped[0], &rec) || rec.Line != "3 carol node1 4 8T" {
		t.Fatalf("expected RecordError for carol's line, got %v", skipped[0])
	}
}

func TestParseNodeLineBasic(t *testing.T) {
	line := "NodeName=node10-2 Arch=x86_64 CoresPerSocket=16 CPUAlloc=32 CPUTot=64 CPULoad=16.00 RealMemory=262144 AllocMem=131072 FreeMem=96000 State=MIXED Reason=Not responding [slurm@2024-01-01]"
	node, err := ParseNodeLine(line, nil)
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if node.Name != "node10-2" || node.Class != ClassHighMem {
		t.Fatalf("unexpected node name/class %q/%q", node.Name, node.Class)
	}
	if node.Down {
		t.Fatalf("MIXED node must not be down")
	}
	if node.CPUAlloc != 32 || node.CPUTotal != 64 {
		t.Fatalf("unexpected cpu alloc/total: %d/%d", node.CPUAlloc, node.CPUTotal)
	}
	if node.MemAllocGB != 128 || node.MemTotalGB != 256 {
		t.Fatalf("unexpected mem alloc/total: %.2f/%.2f", node.MemAllocGB, node.MemTotalGB)
	}
	if node.CPUUtil() != 50 || node.MemUtil() != 50 {
		t.Fatalf("unexpected utilization %.2f/%.2f", node.CPUUtil(), node.MemUtil())
	}
}

func TestParseNodeLineDownIsExactMatch(t *testing.T) {
	base := "NodeName=n1 CPUAlloc=0 CPUTot=8 AllocMem=0 RealMemory=1024 State="
	for state, want := range map[string]bool{
		"DOWN":      true,
		"DOWN*":     false,
		"IDLE+DOWN": false,
		"down":      false,
		"IDLE":      false,
	} {
		node, err := ParseNodeLine(base+state, nil)
		if err != nil {
			t.Fatalf("state %q: unexpected error %v", state, err)
		}
		if node.Down != want {
			t.Fatalf("state %q: down=%v want=%v", state, node.Down, want)
		}
	}
}

func TestParseNodeLineMissingKey(t *testing.T) {
	_, err := ParseNodeLine("NodeName=n1 State=IDLE CPUAlloc=0 CPUTot=8 AllocMem=0", nil)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Value != "RealMemory" {
		t.Fatalf("expected missing RealMemory, got %q", fe.Value)
	}
}

func TestParseNodeLineNonNumeric(t *testing.T) {
	_, err := ParseNodeLine("NodeName=n1 State=IDLE CPUAlloc=N/A CPUTot=8 AllocMem=0 RealMemory=1", nil)
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Field != "CPUAlloc" {
		t.Fatalf("expected CPUAlloc FormatError, got %v", err)
	}
}

func TestParseKVLineJoinsContinuationTokens(t *testing.T) {
	fields := parseKVLine("stray NodeName=n1 Reason=Not responding OS=Linux 5.14 AllocTRES=cpu=4,mem=8G")
	if fields["Reason"] != "Not responding" {
		t.Fatalf("unexpected Reason %q", fields["Reason"])
	}
	if fields["OS"] != "Linux 5.14" {
		t.Fatalf("unexpected OS %q", fields["OS"])
	}
	if fields["AllocTRES"] != "cpu=4,mem=8G" {
		t.Fatalf("expected split on first '=' only, got %q", fields["AllocTRES"])
	}
	if _, ok := fields["stray"]; ok {
		t.Fatalf("leading token without key must be ignored")
	}
}

func TestParseNodeLinesKeepsOrder(t *testing.T) {
	lines := []string{
		"NodeName=zeta State=IDLE CPUAlloc=0 CPUTot=8 AllocMem=0 RealMemory=1024",
		"NodeName=alpha State=IDLE CPUAlloc=0 CPUTot=8",
		"NodeName=beta State=IDLE CPUAlloc=0 CPUTot=8 AllocMem=0 RealMemory=1024",
	}
	nodes, skipped := ParseNodeLines(lines, nil)
	if len(nodes) != 2 || nodes[0].Name != "zeta" || nodes[1].Name != "beta" {
		t.Fatalf("unexpected nodes %+v", nodes)
	}
	if len(skipped) != 1 {
		t.Fatalf("expected one skipped record, got %d", len(skipped))
	}
}
