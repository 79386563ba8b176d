// Package usage folds parsed jobs and nodes into the per-user and per-node
// report tables.
package usage

import (
	"sort"
	"time"

	"slurm_usage/internal/slurm"
)

// Status is the node status tag shown in the node table.
type Status string

const (
	StatusDown    Status = "DOWN"
	StatusFullCPU Status = "FULL(CPU)"
	StatusFullMem Status = "FULL(MEM)"
	StatusFree    Status = "FREE"
	StatusBusy    Status = "BUSY"
)

// fullThreshold is the utilization percentage above which a node counts as
// full.
const fullThreshold = 95.0

// ClassUsage is what one user's running jobs hold on one class of nodes.
// Nodes is a distinct count; CPUs and MemGB add up per job, so two jobs on
// the same node both count.
type ClassUsage struct {
	Nodes int     `json:"nodes"`
	CPUs  int     `json:"cpus"`
	MemGB float64 `json:"mem_gb"`
}

type UserRow struct {
	User        string     `json:"user"`
	Running     int        `json:"running"`
	Pending     int        `json:"pending"`
	LowMem      ClassUsage `json:"lowmem"`
	HighMem     ClassUsage `json:"himem"`
	Interactive ClassUsage `json:"interactive"`
}

// Class returns the usage bucket for c, or nil for an unknown class.
func (r *UserRow) Class(c slurm.Class) *ClassUsage {
	switch c {
	case slurm.ClassLowMem:
		return &r.LowMem
	case slurm.ClassHighMem:
		return &r.HighMem
	case slurm.ClassInteractive:
		return &r.Interactive
	default:
		return nil
	}
}

type NodeRow struct {
	Name       string      `json:"name"`
	Class      slurm.Class `json:"class"`
	CPUAlloc   int         `json:"cpus_alloc"`
	CPUTotal   int         `json:"cpus_total"`
	CPUUtil    float64     `json:"cpu_util_pct"`
	MemAllocGB float64     `json:"mem_alloc_gb"`
	MemTotalGB float64     `json:"mem_total_gb"`
	MemUtil    float64     `json:"mem_util_pct"`
	Status     Status      `json:"status"`
}

type Totals struct {
	Running    int     `json:"running"`
	Pending    int     `json:"pending"`
	CPUAlloc   int     `json:"cpus_alloc"`
	CPUTotal   int     `json:"cpus_total"`
	MemAllocGB float64 `json:"mem_alloc_gb"`
	MemTotalGB float64 `json:"mem_total_gb"`
	Down       int     `json:"down"`
}

type Report struct {
	Source      string    `json:"source"`
	CollectedAt time.Time `json:"collected_at"`
	Users       []UserRow `json:"users"`
	Nodes       []NodeRow `json:"nodes"`
	Totals      Totals    `json:"totals"`
	Skipped     int       `json:"skipped"`
}

func Summarize(snap slurm.Snapshot, source string) Report {
	users := Users(snap.Jobs)
	nodes := Nodes(snap.Nodes)
	return Report{
		Source:      source,
		CollectedAt: snap.CollectedAt,
		Users:       users,
		Nodes:       nodes,
		Totals:      totals(users, nodes),
		Skipped:     snap.Skipped,
	}
}

// Users groups jobs by exact user name, ordered by name. Only running jobs
// contribute class usage; a running job with no known class is counted but
// holds nothing.
func Users(jobs []slurm.Job) []UserRow {
	rows := make(map[string]*UserRow)
	seen := make(map[string]map[slurm.Class]map[string]struct{})

	for _, job := range jobs {
		row, ok := rows[job.User]
		if !ok {
			row = &UserRow{User: job.User}
			rows[job.User] = row
			seen[job.User] = make(map[slurm.Class]map[string]struct{})
		}
		if !job.Running {
			row.Pending++
			continue
		}
		row.Running++

		bucket := row.Class(job.Class)
		if bucket == nil {
			continue
		}
		nodeSet, ok := seen[job.User][job.Class]
		if !ok {
			nodeSet = make(map[string]struct{})
			seen[job.User][job.Class] = nodeSet
		}
		for _, node := range job.Nodes {
			nodeSet[node] = struct{}{}
		}
		bucket.Nodes = len(nodeSet)
		bucket.CPUs += job.CPUs * len(job.Nodes)
		bucket.MemGB += job.MemGB * float64(len(job.Nodes))
	}

	out := make([]UserRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].User < out[j].User
	})
	return out
}

// Nodes keeps the scheduler's node order.
func Nodes(nodes []slurm.Node) []NodeRow {
	out := make([]NodeRow, 0, len(nodes))
	for _, n := range nodes {
		cpuUtil := n.CPUUtil()
		memUtil := n.MemUtil()
		out = append(out, NodeRow{
			Name:       n.Name,
			Class:      n.Class,
			CPUAlloc:   n.CPUAlloc,
			CPUTotal:   n.CPUTotal,
			CPUUtil:    cpuUtil,
			MemAllocGB: n.MemAllocGB,
			MemTotalGB: n.MemTotalGB,
			MemUtil:    memUtil,
			Status:     NodeStatus(n.Down, cpuUtil, memUtil),
		})
	}
	return out
}

// NodeStatus applies the status precedence DOWN, FULL(CPU), FULL(MEM), FREE,
// BUSY. Values are compared unrounded.
func NodeStatus(down bool, cpuUtil, memUtil float64) Status {
	switch {
	case down:
		return StatusDown
	case cpuUtil > fullThreshold:
		return StatusFullCPU
	case memUtil > fullThreshold:
		return StatusFullMem
	case cpuUtil == 0 && memUtil == 0:
		return StatusFree
	default:
		return StatusBusy
	}
}

func totals(users []UserRow, nodes []NodeRow) Totals {
	var t Totals
	for _, u := range users {
		t.Running += u.Running
		t.Pending += u.Pending
	}
	for _, n := range nodes {
		t.CPUAlloc += n.CPUAlloc
		t.CPUTotal += n.CPUTotal
		t.MemAllocGB += n.MemAllocGB
		t.MemTotalGB += n.MemTotalGB
		if n.Status == StatusDown {
			t.Down++
		}
	}
	return t
}
