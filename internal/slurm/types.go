package slurm

import "time"

// Class is the coarse node category usage is bucketed by.
type Class string

const (
	ClassLowMem      Class = "lowmem"
	ClassHighMem     Class = "himem"
	ClassInteractive Class = "interactive"
)

// Classes lists the known classes in report column order (L/H/I).
var Classes = []Class{ClassLowMem, ClassHighMem, ClassInteractive}

// ParseClass maps a lowercase class name to its Class.
func ParseClass(v string) (Class, bool) {
	for _, c := range Classes {
		if string(c) == v {
			return c, true
		}
	}
	return "", false
}

// Job is one job-array task from the queue. Class is derived from Nodes[0]
// and is empty for pending jobs; the nodes of a job are assumed to share a
// class.
type Job struct {
	ID      string
	User    string
	Running bool
	Nodes   []string
	CPUs    int
	MemGB   float64
	Class   Class
}

// Node is one scontrol node record with memory already converted to GiB.
type Node struct {
	Name  string
	Class Class
	State string
	Down  bool

	CPUAlloc int
	CPUTotal int

	MemAllocGB float64
	MemTotalGB float64
}

func (n Node) CPUUtil() float64 {
	return utilPct(float64(n.CPUAlloc), float64(n.CPUTotal))
}

func (n Node) MemUtil() float64 {
	return utilPct(n.MemAllocGB, n.MemTotalGB)
}

func utilPct(alloc, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return alloc * 100.0 / total
}

type Snapshot struct {
	Jobs        []Job
	Nodes       []Node
	Skipped     int
	CollectedAt time.Time
}
