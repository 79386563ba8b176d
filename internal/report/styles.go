package report

import (
	"github.com/charmbracelet/lipgloss"

	"slurm_usage/internal/usage"
)

type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Total  lipgloss.Style

	down lipgloss.Style
	free lipgloss.Style
	busy lipgloss.Style
}

// NewStyles builds report styles on r. Full and down nodes are red, free
// nodes green and busy nodes blue.
func NewStyles(r *lipgloss.Renderer, noColor bool) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	// Rows are tab separated; lipgloss would otherwise expand the tabs.
	base := r.NewStyle().TabWidth(lipgloss.NoTabConversion)
	if noColor {
		return Styles{Title: base, Header: base, Total: base, down: base, free: base, busy: base}
	}
	return Styles{
		Title:  base.Bold(true),
		Header: base.Bold(true),
		Total:  base.Bold(true),
		down:   base.Foreground(lipgloss.Color("1")),
		free:   base.Foreground(lipgloss.Color("2")),
		busy:   base.Foreground(lipgloss.Color("4")),
	}
}

func (s Styles) Status(st usage.Status) string {
	switch st {
	case usage.StatusDown, usage.StatusFullCPU, usage.StatusFullMem:
		return s.down.Render(string(st))
	case usage.StatusFree:
		return s.free.Render(string(st))
	default:
		return s.busy.Render(string(st))
	}
}
