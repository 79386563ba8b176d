package slurm

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const jobFieldCount = 5

var requiredNodeKeys = []string{"NodeName", "State", "CPUAlloc", "CPUTot", "AllocMem", "RealMemory"}

// ParseJobLines parses squeue output. Blank and short lines are dropped
// without error; other malformed lines are dropped and their errors
// returned so callers can report them.
func ParseJobLines(lines []string, c *Classifier) ([]Job, []error) {
	out := make([]Job, 0, len(lines))
	var skipped []error
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		job, err := ParseJobLine(line, c)
		if err != nil {
			var short *MissingFieldError
			if !errors.As(err, &short) {
				skipped = append(skipped, &RecordError{Line: line, Err: err})
			}
			continue
		}
		out = append(out, job)
	}
	return out, skipped
}

// ParseJobLine parses one "%i %u %N %c %m" line. Fields are split on single
// spaces because a pending job leaves the node-list field empty.
func ParseJobLine(line string, c *Classifier) (Job, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, " ")
	if len(fields) < jobFieldCount {
		return Job{}, &MissingFieldError{Line: line, Got: len(fields), Want: jobFieldCount}
	}

	cpus, err := strconv.Atoi(fields[3])
	if err != nil || cpus < 0 {
		return Job{}, &FormatError{Field: "cpu count", Value: fields[3], Err: err}
	}
	mem, err := ParseMemGB(fields[4])
	if err != nil {
		return Job{}, err
	}

	job := Job{
		ID:      fields[0],
		User:    fields[1],
		Running: fields[2] != "",
		Nodes:   []string{},
		CPUs:    cpus,
		MemGB:   mem,
	}
	if job.Running {
		job.Nodes, err = ExpandNodeList(fields[2])
		if err != nil {
			return Job{}, err
		}
		if len(job.Nodes) > 0 {
			job.Class = c.Classify(job.Nodes[0])
		}
	}
	return job, nil
}

// ParseMemGB converts squeue's minimum-memory column to GiB. "G" values are
// taken as-is and "M" values are divided by 1000, matching how the cluster's
// reports have always been computed.
func ParseMemGB(raw string) (float64, error) {
	if raw == "" {
		return 0, &FormatError{Field: "memory", Value: raw}
	}
	num, unit := raw[:len(raw)-1], raw[len(raw)-1]
	var div float64
	switch unit {
	case 'G':
		div = 1
	case 'M':
		div = 1000
	default:
		return 0, &FormatError{Field: "memory", Value: raw, Err: errors.New("unit must be G or M")}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 {
		return 0, &FormatError{Field: "memory", Value: raw, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &FormatError{Field: "memory", Value: raw, Err: errors.New("not a finite number")}
	}
	return v / div, nil
}

// ParseNodeLines parses `scontrol show nodes --oneliner` output, keeping the
// scheduler's node order.
func ParseNodeLines(lines []string, c *Classifier) ([]Node, []error) {
	out := make([]Node, 0, len(lines))
	var skipped []error
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		node, err := ParseNodeLine(line, c)
		if err != nil {
			skipped = append(skipped, &RecordError{Line: line, Err: err})
			continue
		}
		out = append(out, node)
	}
	return out, skipped
}

func ParseNodeLine(line string, c *Classifier) (Node, error) {
	fields := parseKVLine(line)
	for _, key := range requiredNodeKeys {
		if _, ok := fields[key]; !ok {
			return Node{}, &FormatError{Field: "node record", Value: key, Err: errors.New("missing key")}
		}
	}

	var ints [4]int
	for i, key := range []string{"CPUAlloc", "CPUTot", "AllocMem", "RealMemory"} {
		n, err := strconv.Atoi(fields[key])
		if err != nil {
			return Node{}, &FormatError{Field: key, Value: fields[key], Err: err}
		}
		ints[i] = n
	}

	name := fields["NodeName"]
	state := fields["State"]
	return Node{
		Name:       name,
		Class:      c.Classify(name),
		State:      state,
		Down:       state == "DOWN",
		CPUAlloc:   ints[0],
		CPUTotal:   ints[1],
		MemAllocGB: float64(ints[2]) / 1024.0,
		MemTotalGB: float64(ints[3]) / 1024.0,
	}, nil
}

// parseKVLine splits KEY=VALUE tokens. A token without "=" continues the
// previous value, e.g. "Reason=Not responding".
func parseKVLine(line string) map[string]string {
	out := make(map[string]string)
	last := ""
	for _, token := range strings.Fields(line) {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			if last != "" {
				out[last] += " " + token
			}
			continue
		}
		out[key] = value
		last = key
	}
	return out
}
