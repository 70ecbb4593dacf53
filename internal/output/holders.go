package output

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

const commandWidth = 16

var holderColumns = []column{
	{"PID", 7},
	{"COMMAND", commandWidth},
	{"REASON", 10},
	{"DETAIL", 0},
}

// RenderHolders prints a resolution result as a table.
func RenderHolders(w io.Writer, res *model.ResolutionResult, theme Theme) {
	p := newPrinter(w, theme)

	renderMode(p, theme, res.Privileged, res.Degraded, res.Skipped)
	p.line(plain("Target: " + DescribeTarget(res.Target)))

	if len(res.Holders) == 0 {
		p.line(plain("No active holders detected."))
	} else {
		p.line(theme.paint(theme.header, "Held by:"))
		t := p.table(theme, holderColumns...)
		for _, h := range res.Holders {
			pid, command := holderIdentity(h.Confirmed, h.PID, h.Command)
			t.row(
				plain(pid),
				theme.paint(theme.command, command),
				plain(h.Descriptor.String()),
				plain(holderDetail(h)),
			)
		}
	}

	renderWarnings(p, res.Warnings, theme)
}

// holderIdentity hides the pid and command of evidence that names no process.
func holderIdentity(confirmed bool, pid int, command string) (string, string) {
	if !confirmed {
		return "-", "?"
	}
	return strconv.Itoa(pid), command
}

func renderMode(p printer, theme Theme, privileged, degraded bool, skipped int) {
	p.line(theme.paint(theme.dim, ModeMessage(privileged)))
	if degraded {
		p.line(theme.paint(theme.partial, fmt.Sprintf("Partial result: %d processes skipped (permission denied)", skipped)))
	}
}

// DescribeTarget renders a classified target for humans.
func DescribeTarget(t model.Target) string {
	switch t.Type {
	case model.TargetFile:
		return fmt.Sprintf("%s (dev %d, inode %d)", t.File.Path, t.File.Dev, t.File.Inode)
	case model.TargetPort:
		proto := "tcp/udp"
		if t.Port.Protocol == model.ProtocolTCP || t.Port.Protocol == model.ProtocolUDP {
			proto = string(t.Port.Protocol)
		}
		desc := fmt.Sprintf("%s port %d", proto, t.Port.Port)
		if t.Port.Family == model.FamilyV4 || t.Port.Family == model.FamilyV6 {
			desc += " (" + string(t.Port.Family) + " only)"
		}
		return desc
	}
	return t.Value
}

func holderDetail(h model.HolderEvidence) string {
	detail := ""
	if s := h.Socket; s != nil {
		detail = fmt.Sprintf("%s %s %s", s.Protocol, endpoint(s.LocalAddr, s.LocalPort), s.StateLabel())
	}
	if h.Note != "" {
		if detail != "" {
			detail += ", "
		}
		detail += h.Note
	}
	return detail
}

func endpoint(addr string, port uint16) string {
	if addr == "" {
		addr = "*"
	}
	return net.JoinHostPort(addr, strconv.Itoa(int(port)))
}

func renderWarnings(p printer, warnings []model.Warning, theme Theme) {
	for _, w := range warnings {
		p.line(theme.paint(theme.warn, "Warning:"), plain(" "+w.Detail))
	}
}
