package output

import (
	"io"
	"strings"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

// PrintTree prints an ancestry chain, oldest first, the holder last.
func PrintTree(w io.Writer, chain []model.ProcessSnapshot, theme Theme) {
	p := newPrinter(w, theme)

	for i, proc := range chain {
		var spans []span
		if i > 0 {
			spans = append(spans, plain(strings.Repeat("  ", i)), theme.paint(theme.branch, "└─ "))
		}

		style := theme.dim
		if i == len(chain)-1 {
			style = theme.command
		}
		spans = append(spans,
			theme.paint(style, proc.Command),
			plainf(" (pid %d, uid %d)", proc.PID, proc.UID))
		p.line(spans...)
	}
}

// Ancestry is one holder's chain as rendered by RenderTrees. Err is set when
// the chain could not be read.
type Ancestry struct {
	PID      int
	Chain    []model.ProcessSnapshot
	Launcher string
	Err      error
}

// RenderTrees prints one ancestry tree per distinct holder.
func RenderTrees(w io.Writer, trees []Ancestry, theme Theme) {
	p := newPrinter(w, theme)
	for i, t := range trees {
		if i > 0 {
			p.blank()
		}
		if t.Err != nil {
			p.line(plainf("pid %d: %s", t.PID, t.Err))
			continue
		}
		PrintTree(w, t.Chain, theme)
		if t.Launcher != "" {
			p.line(theme.paint(theme.dim, "Started by:"), plain(" "+t.Launcher))
		}
	}
}
