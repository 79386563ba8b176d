// Package report renders a usage.Report as aligned text, JSON or Prometheus
// text exposition.
package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"slurm_usage/internal/usage"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatProm = "prom"
)

var Formats = []string{FormatText, FormatJSON, FormatProm}

type Renderer interface {
	Render(w io.Writer, r usage.Report) error
}

// New returns the renderer for format. Text colors are resolved against w,
// so piping the report to a file drops escape codes.
func New(format string, w io.Writer, noColor bool) (Renderer, error) {
	switch format {
	case FormatText, "":
		return Text{Styles: NewStyles(lipgloss.NewRenderer(w), noColor)}, nil
	case FormatJSON:
		return JSON{}, nil
	case FormatProm:
		return Prometheus{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
