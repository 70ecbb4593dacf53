package output

import "github.com/charmbracelet/lipgloss"

// Theme decorates already sanitized text. The zero Theme prints plain text.
type Theme struct {
	color bool

	header  lipgloss.Style
	dim     lipgloss.Style
	command lipgloss.Style
	warn    lipgloss.Style
	partial lipgloss.Style
	branch  lipgloss.Style
}

func NewTheme(color bool) Theme {
	return Theme{
		color:   color,
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("57")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		command: lipgloss.NewStyle().Foreground(lipgloss.Color("35")),
		warn:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		partial: lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")),
		branch:  lipgloss.NewStyle().Foreground(lipgloss.Color("99")),
	}
}

// paint makes a span drawn with s when the theme has color.
func (t Theme) paint(s lipgloss.Style, text string) span {
	sp := plain(text)
	sp.style = &s
	return sp
}

// PrivilegeMode is "root" or "user".
func PrivilegeMode(privileged bool) string {
	if privileged {
		return "root"
	}
	return "user"
}

// ModeMessage tells the user how much of the system the run could see.
func ModeMessage(privileged bool) string {
	if privileged {
		return "Running as root: full visibility."
	}
	return "Running as user: processes of other users may be hidden."
}
