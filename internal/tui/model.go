package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"slurm_usage/internal/report"
	"slurm_usage/internal/usage"
)

type Options struct {
	Report  usage.Report
	NoColor bool
}

type table int

const (
	tableUsers table = iota
	tableNodes
)

// Model is a read-only viewer over one report. It never re-queries the
// scheduler; quitting and re-running is the refresh.
type Model struct {
	report usage.Report

	width  int
	height int

	table  table
	offset int

	styles styles
	rows   report.Styles
}

type styles struct {
	title    lipgloss.Style
	dim      lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	bad      lipgloss.Style
	chip     lipgloss.Style
	chipBad  lipgloss.Style
	tableHdr lipgloss.Style
	accent   lipgloss.Style
}

const (
	frameRightGutter = 1
	tabStop          = 8
	viewportClipText = "... output clipped to terminal height ..."
	footerText       = "tab switch table  ↑/↓ pgup/pgdn home/end scroll  q quit"
)

func NewModel(opts Options) Model {
	return Model{
		report: opts.Report,
		styles: defaultStyles(opts.NoColor),
		rows:   report.NewStyles(lipgloss.DefaultRenderer(), opts.NoColor),
	}
}

func defaultStyles(noColor bool) styles {
	if noColor {
		bold := lipgloss.NewStyle().Bold(true)
		return styles{
			title:    bold,
			dim:      lipgloss.NewStyle(),
			label:    bold,
			value:    bold,
			bad:      bold,
			chip:     bold,
			chipBad:  bold,
			tableHdr: bold,
			accent:   bold,
		}
	}

	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1),
		dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		label:    lipgloss.NewStyle().Foreground(lipgloss.Color("109")),
		value:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")),
		bad:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		chip:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("238")).Padding(0, 1),
		chipBad:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Padding(0, 1),
		tableHdr: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("60")),
		accent:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "tab", "shift+tab":
			if m.table == tableUsers {
				m.table = tableNodes
			} else {
				m.table = tableUsers
			}
			m.offset = 0
		case "up", "k":
			m.offset--
		case "down", "j":
			m.offset++
		case "pgup", "b":
			m.offset -= m.pageSize()
		case "pgdown", "f", " ":
			m.offset += m.pageSize()
		case "home", "g":
			m.offset = 0
		case "end", "G":
			m.offset = len(m.tableRows())
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	m.offset = m.clampOffset(m.offset)
	return m, nil
}

func (m Model) View() string {
	viewWidth := stabilizedFrameWidth(m.width)
	if viewWidth <= 0 || m.height <= 0 {
		return "initializing..."
	}
	m.width = viewWidth

	lines := m.headerLines()
	lines = append(lines, "")
	lines = append(lines, m.tableLines()...)

	footer := m.styles.dim.Render(m.positionText() + "  " + footerText)
	joined := pinFooterToBottom(strings.Join(lines, "\n"), footer, m.height)
	return clipToViewport(joined, viewWidth, m.height)
}

func (m Model) headerLines() []string {
	r := m.report
	left := m.styles.title.Render(" SLURM USAGE ") + "  " +
		m.styles.label.Render("source: ") + m.styles.value.Render(r.Source)
	if !r.CollectedAt.IsZero() {
		left += "  " + m.styles.chip.Render("collected: "+r.CollectedAt.Format("15:04:05"))
	}
	right := m.styles.chip.Render(fmt.Sprintf("%d users / %d nodes", len(r.Users), len(r.Nodes)))
	if r.Skipped > 0 {
		right = m.styles.chipBad.Render(fmt.Sprintf("%d records skipped", r.Skipped)) + " " + right
	}

	lines := []string{joinWithPaddingKeepRight(left, right, m.width)}
	if alert, ok := nodeStateAlert(r.Totals); ok {
		lines = append(lines, m.styles.bad.Render(alert))
	}
	return lines
}

func (m Model) tableLines() []string {
	title, header := report.UserTitle, report.UserHeader()
	if m.table == tableNodes {
		title, header = report.NodeTitle, report.NodeHeader()
	}

	rows := m.tableRows()
	start := m.clampOffset(m.offset)
	end := min(len(rows), start+m.pageSize())
	lines := []string{
		m.styles.accent.Render(title),
		m.styles.tableHdr.Render(expandTabs(header)),
	}
	for _, row := range rows[start:end] {
		lines = append(lines, expandTabs(row))
	}
	if m.table == tableNodes {
		lines = append(lines, m.styles.accent.Render(expandTabs(report.TotalLine(m.report.Totals))))
	}
	return lines
}

func (m Model) tableRows() []string {
	if m.table == tableNodes {
		rows := make([]string, 0, len(m.report.Nodes))
		for _, n := range m.report.Nodes {
			rows = append(rows, report.NodeLine(n, m.rows))
		}
		return rows
	}
	rows := make([]string, 0, len(m.report.Users))
	for _, u := range m.report.Users {
		rows = append(rows, report.UserLine(u))
	}
	return rows
}

// pageSize is how many table rows fit between the fixed header and footer.
func (m Model) pageSize() int {
	fixed := len(m.headerLines()) + 1 + 2 + 1 // blank, title, column header, footer
	if m.table == tableNodes {
		fixed++ // total line
	}
	return max(1, m.height-fixed)
}

func (m Model) clampOffset(offset int) int {
	limit := max(0, len(m.tableRows())-m.pageSize())
	return max(0, min(offset, limit))
}

func (m Model) positionText() string {
	total := len(m.tableRows())
	if total == 0 {
		return "no rows"
	}
	start := m.clampOffset(m.offset)
	end := min(total, start+m.pageSize())
	return fmt.Sprintf("rows %d-%d of %d", start+1, end, total)
}

func nodeStateAlert(t usage.Totals) (string, bool) {
	if t.Down == 0 {
		return "", false
	}
	return fmt.Sprintf("node alert: down=%d", t.Down), true
}

// expandTabs replaces tabs with spaces up to the next multiple of tabStop,
// measuring cells so styled segments do not shift the columns.
func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for i, seg := range strings.Split(s, "\t") {
		if i > 0 {
			pad := tabStop - col%tabStop
			b.WriteString(strings.Repeat(" ", pad))
			col += pad
		}
		b.WriteString(seg)
		col += ansi.StringWidth(seg)
	}
	return b.String()
}

func stabilizedFrameWidth(width int) int {
	if width <= 0 {
		return 0
	}
	if width <= frameRightGutter {
		return width
	}
	return width - frameRightGutter
}

func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	return ansi.Truncate(s, maxRunes, "…")
}

func joinWithPaddingKeepRight(left, right string, width int) string {
	if width <= 0 {
		return ""
	}
	rightWidth := lipgloss.Width(right)
	if rightWidth >= width {
		return truncateRunes(right, width)
	}
	maxLeftWidth := max(0, width-rightWidth-1)
	left = truncateRunes(left, maxLeftWidth)
	leftWidth := lipgloss.Width(left)
	padding := max(1, width-leftWidth-rightWidth)
	return left + strings.Repeat(" ", padding) + right
}

func clipToViewport(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	clipped := len(lines) > height
	if len(lines) > height {
		lines = lines[:height]
	}
	if clipped && len(lines) > 0 {
		lines[len(lines)-1] = truncateRunes(viewportClipText, width)
	}
	for i := range lines {
		lines[i] = truncateRunes(lines[i], width)
		if pad := width - lipgloss.Width(lines[i]); pad > 0 {
			lines[i] += strings.Repeat(" ", pad)
		}
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func pinFooterToBottom(top, footer string, height int) string {
	if height <= 0 {
		return ""
	}
	footerLines := []string{}
	if footer != "" {
		footerLines = strings.Split(footer, "\n")
	}
	topLines := []string{}
	if top != "" {
		topLines = strings.Split(top, "\n")
	}

	maxTopLines := max(0, height-len(footerLines))
	if len(topLines) > maxTopLines {
		topLines = topLines[:maxTopLines]
	}
	for len(topLines) < maxTopLines {
		topLines = append(topLines, "")
	}

	all := append(topLines, footerLines...)
	if len(all) == 0 {
		return ""
	}
	return strings.Join(all, "\n")
}
