package report

import (
	"fmt"
	"io"
	"strings"

	"slurm_usage/internal/uifmt"
	"slurm_usage/internal/usage"
)

const (
	UserTitle = "*** User Based (Lowmem/Himem/Interactive) ***"
	NodeTitle = "*** Node Based ***"
)

type Text struct {
	Styles Styles
}

func (t Text) Render(w io.Writer, r usage.Report) error {
	var b strings.Builder

	b.WriteString("\n" + t.Styles.Title.Render(UserTitle) + "\n\n")
	b.WriteString(t.Styles.Header.Render(UserHeader()) + "\n")
	for _, u := range r.Users {
		b.WriteString(UserLine(u) + "\n")
	}

	b.WriteString("\n\n" + t.Styles.Title.Render(NodeTitle) + "\n\n")
	b.WriteString(t.Styles.Header.Render(NodeHeader()) + "\n")
	for _, n := range r.Nodes {
		b.WriteString(NodeLine(n, t.Styles) + "\n")
	}
	b.WriteString(t.Styles.Total.Render(TotalLine(r.Totals)) + "\n")

	if r.Skipped > 0 {
		fmt.Fprintf(&b, "\n%d malformed scheduler records skipped\n", r.Skipped)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func UserHeader() string {
	return fmt.Sprintf("%8s\t%8s\t%8s\t%11s\t%11s\t%20s", "USER", "RUNNING", "PENDING", "NODES(L/H/I)", "CPUS(L/H/I)", "MEM(GB)(L/H/I)")
}

func UserLine(u usage.UserRow) string {
	return fmt.Sprintf(
		"%8s\t%8d\t%8d\t%s\t%s\t%s",
		u.User,
		u.Running,
		u.Pending,
		uifmt.Triple(u.LowMem.Nodes, u.HighMem.Nodes, u.Interactive.Nodes),
		uifmt.Triple(u.LowMem.CPUs, u.HighMem.CPUs, u.Interactive.CPUs),
		uifmt.GBTriple(u.LowMem.MemGB, u.HighMem.MemGB, u.Interactive.MemGB),
	)
}

func NodeHeader() string {
	return fmt.Sprintf("%15s\t%15s\t%15s\t%15s\t  %s", "NAME", "TYPE", "CPU_USAGE", "MEM_USAGE", "STATUS")
}

func NodeLine(n usage.NodeRow, s Styles) string {
	return fmt.Sprintf(
		"%15s\t%15s\t%8d (%s)\t%s (%s)\t  %s",
		n.Name,
		n.Class,
		n.CPUAlloc,
		uifmt.Percent(n.CPUUtil),
		uifmt.GB(n.MemAllocGB),
		uifmt.Percent(n.MemUtil),
		s.Status(n.Status),
	)
}

func TotalLine(t usage.Totals) string {
	return fmt.Sprintf(
		"%15s\t%15s\t%15s\t%15s\t  jobs %d running / %d pending, %d down",
		"TOTAL",
		"",
		uifmt.Ratio(t.CPUAlloc, t.CPUTotal),
		uifmt.GBPair(t.MemAllocGB, t.MemTotalGB),
		t.Running,
		t.Pending,
		t.Down,
	)
}
