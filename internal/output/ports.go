package output

import (
	"io"
	"strconv"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

var portColumns = []column{
	{"PORT", 5},
	{"PROTO", 5},
	{"PID", 7},
	{"COMMAND", commandWidth},
	{"STATE", 12},
	{"ADDRESS", 0},
}

// RenderPorts prints a port listing, one row per holder.
func RenderPorts(w io.Writer, listing *model.PortListing, theme Theme) {
	p := newPrinter(w, theme)

	renderMode(p, theme, listing.Privileged, listing.Degraded, listing.Skipped)

	if len(listing.Rows) == 0 {
		p.line(plain("No active holders detected."))
	} else {
		t := p.table(theme, portColumns...)
		for _, r := range listing.Rows {
			pid, command := holderIdentity(r.Confirmed, r.PID, r.Command)
			addr := r.LocalAddr
			if r.Note != "" {
				addr += "  (" + r.Note + ")"
			}
			t.row(
				plain(strconv.Itoa(int(r.Port))),
				plain(string(r.Protocol)),
				plain(pid),
				theme.paint(theme.command, command),
				plain(r.State),
				plain(addr),
			)
		}
	}

	renderWarnings(p, listing.Warnings, theme)
}
