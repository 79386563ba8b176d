package report

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"slurm_usage/internal/slurm"
	"slurm_usage/internal/usage"
)

const namespace = "slurm_usage"

// Prometheus writes the report in the text exposition format, suitable for
// node_exporter's textfile collector.
type Prometheus struct{}

func (Prometheus) Render(w io.Writer, r usage.Report) error {
	reg, err := NewRegistry(r)
	if err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

// NewRegistry loads one report into a fresh registry.
func NewRegistry(r usage.Report) (*prometheus.Registry, error) {
	var (
		userJobs    = gaugeVec("user_jobs", "Job-array tasks per user by state.", "user", "state")
		userNodes   = gaugeVec("user_nodes", "Distinct nodes held by a user's running jobs per node class.", "user", "class")
		userCPUs    = gaugeVec("user_cpus", "CPUs allocated to a user's running jobs per node class.", "user", "class")
		userMem     = gaugeVec("user_memory_gigabytes", "Memory allocated to a user's running jobs per node class.", "user", "class")
		nodeCPUs    = gaugeVec("node_cpus", "Node CPUs by kind (alloc or total).", "node", "class", "kind")
		nodeMem     = gaugeVec("node_memory_gigabytes", "Node memory by kind (alloc or total).", "node", "class", "kind")
		nodeStatus  = gaugeVec("node_status", "Node status tag; the value is always 1.", "node", "class", "status")
		skipped     = prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "skipped_records", Help: "Malformed scheduler records dropped."})
		collectedAt = prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "collected_timestamp_seconds", Help: "Unix time the snapshot was collected."})
	)

	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{userJobs, userNodes, userCPUs, userMem, nodeCPUs, nodeMem, nodeStatus, skipped, collectedAt} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	for _, u := range r.Users {
		userJobs.WithLabelValues(u.User, "running").Set(float64(u.Running))
		userJobs.WithLabelValues(u.User, "pending").Set(float64(u.Pending))
		for _, class := range slurm.Classes {
			cu := u.Class(class)
			userNodes.WithLabelValues(u.User, string(class)).Set(float64(cu.Nodes))
			userCPUs.WithLabelValues(u.User, string(class)).Set(float64(cu.CPUs))
			userMem.WithLabelValues(u.User, string(class)).Set(cu.MemGB)
		}
	}
	for _, n := range r.Nodes {
		class := string(n.Class)
		nodeCPUs.WithLabelValues(n.Name, class, "alloc").Set(float64(n.CPUAlloc))
		nodeCPUs.WithLabelValues(n.Name, class, "total").Set(float64(n.CPUTotal))
		nodeMem.WithLabelValues(n.Name, class, "alloc").Set(n.MemAllocGB)
		nodeMem.WithLabelValues(n.Name, class, "total").Set(n.MemTotalGB)
		nodeStatus.WithLabelValues(n.Name, class, string(n.Status)).Set(1)
	}
	skipped.Set(float64(r.Skipped))
	if !r.CollectedAt.IsZero() {
		collectedAt.Set(float64(r.CollectedAt.Unix()))
	}
	return reg, nil
}
