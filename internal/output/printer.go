package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// span is one piece of an output line. Text is sanitized when the span is
// made, so column widths are measured on what the terminal will show.
type span struct {
	text  string
	style *lipgloss.Style
	width int
}

func plain(s string) span {
	return span{text: SanitizeTerminal(s)}
}

func plainf(format string, args ...any) span {
	return plain(fmt.Sprintf(format, args...))
}

// pad left-aligns the span in a column w cells wide. Wider text is kept
// whole and pushes the rest of the line.
func (s span) pad(w int) span {
	s.width = w
	return s
}

func (s span) render(color bool) string {
	out := s.text
	if color && s.style != nil {
		out = s.style.Render(out)
	}
	if gap := s.width - lipgloss.Width(s.text); gap > 0 {
		out += strings.Repeat(" ", gap)
	}
	return out
}

// printer writes whole lines of spans. Command names and paths belong to
// other users, so nothing reaches w without going through a span.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer, theme Theme) printer {
	return printer{w: w, color: theme.color}
}

func (p printer) line(spans ...span) {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.render(p.color))
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(p.w, b.String())
}

func (p printer) blank() {
	_, _ = io.WriteString(p.w, "\n")
}

// column is one left-aligned table column. The last column is never padded.
type column struct {
	title string
	width int
}

type table struct {
	p    printer
	cols []column
}

// table prints the header row and returns a writer for the body rows.
func (p printer) table(theme Theme, cols ...column) table {
	t := table{p: p, cols: cols}
	header := make([]span, len(cols))
	for i, c := range cols {
		header[i] = theme.paint(theme.header, c.title)
	}
	t.row(header...)
	return t
}

func (t table) row(cells ...span) {
	spans := make([]span, 0, 2*len(cells))
	for i, c := range cells {
		if i > 0 {
			spans = append(spans, span{text: " "})
		}
		if i < len(t.cols)-1 {
			c = c.pad(t.cols[i].width)
		}
		spans = append(spans, c)
	}
	t.p.line(spans...)
}

// PrintError writes err as one sanitized "Error: ..." line.
func PrintError(w io.Writer, err error) {
	newPrinter(w, Theme{}).line(plain("Error: " + err.Error()))
}
