package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/sambabib/depfresh/pkg/analyzer"
)

var (
	outdatedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	upToDateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	newerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	unknownStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle   = lipgloss.NewStyle().Bold(true)
)

// TextOptions controls the text report.
type TextOptions struct {
	Color bool
}

// StatusStyle returns the style used to render a status.
func StatusStyle(s analyzer.Status) lipgloss.Style {
	switch s {
	case analyzer.StatusOutdated:
		return outdatedStyle
	case analyzer.StatusUpToDate:
		return upToDateStyle
	case analyzer.StatusNewer:
		return newerStyle
	default:
		return unknownStyle
	}
}

type cell struct {
	text  string
	style *lipgloss.Style
}

// PrintTextReport writes the report as an aligned table followed by a summary.
func PrintTextReport(w io.Writer, report analyzer.Report, opts TextOptions) error {
	headers := []string{"NAME", "CURRENT", "LATEST", "STATUS"}
	withNotes := false
	for _, r := range report.Rows {
		if r.Note != "" {
			withNotes = true
			break
		}
	}
	if withNotes {
		headers = append(headers, "NOTE")
	}

	rows := make([][]cell, 0, len(report.Rows))
	for _, r := range report.Rows {
		name := r.Name
		if r.Section == analyzer.SectionDevDependencies {
			name += " (dev)"
		}
		latest := r.Latest
		if latest == "" {
			latest = "-"
		}
		style := StatusStyle(r.Status)
		row := []cell{{text: name}, {text: r.Current}, {text: latest}, {text: r.Status.String(), style: &style}}
		if withNotes {
			row = append(row, cell{text: r.Note})
		}
		rows = append(rows, row)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if cw := runewidth.StringWidth(c.text); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	header := make([]cell, len(headers))
	for i, h := range headers {
		header[i] = cell{text: h, style: &headerStyle}
	}
	if _, err := fmt.Fprintln(w, formatRow(header, widths, opts.Color)); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, formatRow(row, widths, opts.Color)); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\n%s\n", Summary(report))
	return err
}

func formatRow(cells []cell, widths []int, color bool) string {
	var b strings.Builder
	for i, c := range cells {
		text := c.text
		if color && c.style != nil {
			text = c.style.Render(text)
		}
		b.WriteString(text)
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(c.text)+2))
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Summary returns a one-line count of outdated and unchecked dependencies.
func Summary(report analyzer.Report) string {
	unknown := 0
	for _, r := range report.Rows {
		if r.Status == analyzer.StatusUnknown {
			unknown++
		}
	}
	msg := fmt.Sprintf("Found %d outdated %s", len(report.Outdated), plural(len(report.Outdated), "dependency", "dependencies"))
	if unknown > 0 {
		msg += fmt.Sprintf(", %d could not be checked", unknown)
	}
	return msg
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
