// Package tui is the interactive view: a live table of the holders of one
// target, or of every socket, refreshed once per second. It only reads.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oxyzenQ/zenlixem/internal/output"
	"github.com/oxyzenQ/zenlixem/internal/process"
	"github.com/oxyzenQ/zenlixem/internal/resolve"
	"github.com/oxyzenQ/zenlixem/pkg/model"
)

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

// Engine is the part of the resolver the view needs.
type Engine interface {
	Resolve(ctx context.Context, raw string, opts model.Options) (*model.ResolutionResult, error)
	Ports(ctx context.Context, opts model.Options) (*model.PortListing, error)
}

// Options seeds the view. An empty Target opens the port listing.
type Options struct {
	Target  string
	Options model.Options
}

type tickMsg time.Time

type holdersMsg struct {
	target string
	res    *model.ResolutionResult
	err    error
}

type portsMsg struct {
	listing *model.PortListing
	err     error
}

type viewState int

const (
	stateHolders viewState = iota
	statePorts
)

type tuiModel struct {
	engine  Engine
	history process.SnapshotSource

	state       viewState
	table       table.Model
	targetInput textinput.Model
	filterInput textinput.Model
	editing     bool
	filtering   bool

	target  string
	opts    model.Options
	result  *model.ResolutionResult
	listing *model.PortListing

	paused      bool
	detailsPID  int
	detailsTree string
	sortColumn  int
	sortAsc     bool
	message     string
	messageTime time.Time
	err         error
	width       int
	height      int
}

func newModel(engine Engine, history process.SnapshotSource, o Options) tuiModel {
	ti := textinput.New()
	ti.Placeholder = "path or port"
	ti.CharLimit = 4096
	ti.Width = 40
	ti.SetValue(o.Target)

	fi := textinput.New()
	fi.Placeholder = "Filter..."
	fi.CharLimit = 50
	fi.Width = 30

	m := tuiModel{
		engine:      engine,
		history:     history,
		state:       statePorts,
		targetInput: ti,
		filterInput: fi,
		target:      o.Target,
		opts:        o.Options,
		sortAsc:     true,
	}
	if o.Target != "" {
		m.state = stateHolders
	}
	m.initTable()
	return m
}

func (m *tuiModel) initTable() {
	var columns []table.Column
	switch m.state {
	case stateHolders:
		columns = []table.Column{
			{Title: "PID", Width: 8},
			{Title: "Command", Width: 18},
			{Title: "Reason", Width: 12},
			{Title: "Detail", Width: 60},
		}
	case statePorts:
		columns = []table.Column{
			{Title: "Proto", Width: 6},
			{Title: "Port", Width: 8},
			{Title: "Local Address", Width: 25},
			{Title: "State", Width: 12},
			{Title: "PID", Width: 8},
			{Title: "Command", Width: 18},
			{Title: "Note", Width: 32},
		}
	}

	if m.sortColumn < len(columns) {
		indicator := " ↑"
		if !m.sortAsc {
			indicator = " ↓"
		}
		columns[m.sortColumn].Title += indicator
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(m.height-15, 5)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(true)
	t.SetStyles(s)

	m.table = t
	m.updateRows()
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(tick(), m.refreshData())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) refreshData() tea.Cmd {
	if m.paused {
		return nil
	}
	engine, opts := m.engine, m.opts
	switch m.state {
	case stateHolders:
		if m.target == "" {
			return nil
		}
		target := m.target
		return func() tea.Msg {
			res, err := engine.Resolve(context.Background(), target, opts)
			return holdersMsg{target: target, res: res, err: err}
		}
	case statePorts:
		return func() tea.Msg {
			listing, err := engine.Ports(context.Background(), opts)
			return portsMsg{listing: listing, err: err}
		}
	}
	return nil
}

func (m *tuiModel) switchTo(state viewState) {
	m.state = state
	m.sortColumn = 0
	m.sortAsc = true
	m.closeDetails()
	m.initTable()
}

func (m *tuiModel) closeDetails() {
	m.detailsPID = 0
	m.detailsTree = ""
}

func (m *tuiModel) flash(msg string) {
	m.message = msg
	m.messageTime = time.Now()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if m.editing {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "enter":
				m.editing = false
				m.targetInput.Blur()
				m.target = strings.TrimSpace(m.targetInput.Value())
				m.result = nil
				m.switchTo(stateHolders)
				return m, m.refreshData()
			case "esc":
				m.editing = false
				m.targetInput.Blur()
				m.targetInput.SetValue(m.target)
				return m, nil
			}
		}
		m.targetInput, cmd = m.targetInput.Update(msg)
		return m, cmd
	}

	if m.filtering {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "enter", "esc":
				m.filtering = false
				m.filterInput.Blur()
				m.updateRows()
				return m, nil
			}
		}
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.updateRows()
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "1":
			m.switchTo(stateHolders)
			return m, m.refreshData()
		case "2":
			m.switchTo(statePorts)
			return m, m.refreshData()
		case "t":
			m.editing = true
			m.targetInput.Focus()
			return m, textinput.Blink
		case "/":
			m.filtering = true
			m.filterInput.Focus()
			return m, nil
		case "l":
			m.opts.ListeningOnly = !m.opts.ListeningOnly
			if m.opts.ListeningOnly {
				m.opts.Established = false
			}
			return m, m.refreshData()
		case "c":
			m.opts.Protocol = nextProtocol(m.opts.Protocol)
			return m, m.refreshData()
		case "p":
			m.paused = !m.paused
			return m, nil
		case "s":
			m.sortColumn = (m.sortColumn + 1) % len(m.table.Columns())
			m.sortAsc = true
			m.initTable()
			return m, nil
		case "r":
			m.sortAsc = !m.sortAsc
			m.initTable()
			return m, nil
		case "esc":
			m.closeDetails()
			return m, nil
		case "up", "down", "j", "k", "pgup", "pgdown", "home", "end":
			m.closeDetails()
		case "enter":
			if pid := m.selectedPID(); pid > 0 {
				m.detailsPID = pid
				m.updateDetails()
			}
			return m, nil
		}
	case tickMsg:
		return m, tea.Batch(tick(), m.refreshData())
	case holdersMsg:
		if msg.target != m.target {
			return m, nil
		}
		if msg.err != nil {
			if isFatal(msg.err) {
				m.err = msg.err
				return m, nil
			}
			m.result = nil
			m.flash(msg.err.Error())
		} else {
			m.result = msg.res
		}
		m.updateRows()
	case portsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.listing = msg.listing
		m.updateRows()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(m.height-15, 5))
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// isFatal separates a broken environment from a bad target, which the user
// can fix by typing another one.
func isFatal(err error) bool {
	return errors.Is(err, resolve.ErrEnvironment)
}

func nextProtocol(p model.Protocol) model.Protocol {
	switch p {
	case model.ProtocolTCP:
		return model.ProtocolUDP
	case model.ProtocolUDP:
		return model.ProtocolBoth
	default:
		return model.ProtocolTCP
	}
}

func (m tuiModel) selectedPID() int {
	selected := m.table.SelectedRow()
	if len(selected) == 0 {
		return 0
	}
	idx := 0
	if m.state == statePorts {
		idx = 4
	}
	pid, _ := strconv.Atoi(selected[idx])
	return pid
}

func (m *tuiModel) rows() []table.Row {
	var rows []table.Row
	switch m.state {
	case stateHolders:
		if m.result == nil {
			return nil
		}
		for _, h := range m.result.Holders {
			pid := "-"
			if h.Confirmed {
				pid = strconv.Itoa(h.PID)
			}
			detail := h.Note
			if s := h.Socket; s != nil {
				detail = strings.TrimSuffix(fmt.Sprintf("%s %s:%d %s, %s", s.Protocol, s.LocalAddr, s.LocalPort, s.StateLabel(), h.Note), ", ")
			}
			rows = append(rows, table.Row{
				pid,
				output.SanitizeTerminal(h.Command),
				h.Descriptor.String(),
				output.SanitizeTerminal(detail),
			})
		}
	case statePorts:
		if m.listing == nil {
			return nil
		}
		for _, r := range m.listing.Rows {
			pid := "-"
			if r.Confirmed {
				pid = strconv.Itoa(r.PID)
			}
			rows = append(rows, table.Row{
				string(r.Protocol),
				strconv.Itoa(int(r.Port)),
				r.LocalAddr,
				r.State,
				pid,
				output.SanitizeTerminal(r.Command),
				r.Note,
			})
		}
	}
	return rows
}

// filterColumns maps filter prefixes ("pid:4300") to column indexes.
func (m *tuiModel) filterColumns(prefix string) []int {
	switch m.state {
	case stateHolders:
		switch prefix {
		case "pid":
			return []int{0}
		case "cmd":
			return []int{1}
		case "reason":
			return []int{2}
		}
	case statePorts:
		switch prefix {
		case "proto":
			return []int{0}
		case "port":
			return []int{1}
		case "state":
			return []int{3}
		case "pid":
			return []int{4}
		case "cmd":
			return []int{5}
		}
	}
	return nil
}

func (m *tuiModel) updateRows() {
	filterRaw := strings.ToLower(m.filterInput.Value())
	filterPrefix, filterValue := "", filterRaw
	if before, after, ok := strings.Cut(filterRaw, ":"); ok {
		filterPrefix, filterValue = before, after
	}

	var rows []table.Row
	for _, row := range m.rows() {
		if filterValue != "" && !rowMatches(row, m.filterColumns(filterPrefix), filterPrefix, filterValue) {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) > 0 && m.sortColumn < len(m.table.Columns()) {
		numeric := m.numericColumn(m.sortColumn)
		sort.SliceStable(rows, func(i, j int) bool {
			valI, valJ := rows[i][m.sortColumn], rows[j][m.sortColumn]
			if numeric {
				numI, _ := strconv.Atoi(valI)
				numJ, _ := strconv.Atoi(valJ)
				if numI != numJ {
					if m.sortAsc {
						return numI < numJ
					}
					return numI > numJ
				}
				return false
			}
			if m.sortAsc {
				return valI < valJ
			}
			return valI > valJ
		})
	}

	m.table.SetRows(rows)
}

func rowMatches(row table.Row, columns []int, prefix, value string) bool {
	if prefix != "" && len(columns) == 0 {
		// unknown prefix: match the whole text
		value = prefix + ":" + value
	}
	if len(columns) == 0 {
		for _, f := range row {
			if strings.Contains(strings.ToLower(f), value) {
				return true
			}
		}
		return false
	}
	for _, c := range columns {
		if strings.Contains(strings.ToLower(row[c]), value) {
			return true
		}
	}
	return false
}

func (m *tuiModel) numericColumn(col int) bool {
	switch m.state {
	case stateHolders:
		return col == 0
	case statePorts:
		return col == 1 || col == 4
	}
	return false
}

func (m *tuiModel) updateDetails() {
	if m.detailsPID == 0 {
		return
	}

	ancestry, err := process.BuildAncestry(m.history, m.detailsPID)
	if err != nil {
		m.detailsTree = "Error: " + err.Error()
		return
	}

	var b strings.Builder
	output.PrintTree(&b, ancestry, output.NewTheme(false))
	m.detailsTree = strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) status() string {
	var degraded bool
	var warnings []model.Warning
	var privileged bool
	switch {
	case m.state == stateHolders && m.result != nil:
		degraded, warnings, privileged = m.result.Degraded, m.result.Warnings, m.result.Privileged
	case m.state == statePorts && m.listing != nil:
		degraded, warnings, privileged = m.listing.Degraded, m.listing.Warnings, m.listing.Privileged
	default:
		return ""
	}

	parts := []string{output.ModeMessage(privileged)}
	if degraded {
		parts = append(parts, "partial result")
	}
	for _, w := range warnings {
		parts = append(parts, string(w.Kind))
	}
	return strings.Join(parts, " • ")
}

func (m tuiModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("\nError: %v\n\nPress q to quit", m.err)
	}

	var b strings.Builder
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	title := "whoholds Interactive Mode"
	if m.paused {
		title += " (PAUSED)"
	}
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("57")).Bold(true).Render(title) + "\n\n")

	tabs := []string{"[1] Holders", "[2] Ports"}
	for i, t := range tabs {
		style := lipgloss.NewStyle().Padding(0, 1)
		if int(m.state) == i {
			style = style.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Bold(true)
		} else {
			style = style.Foreground(lipgloss.Color("240"))
		}
		b.WriteString(style.Render(t))
		b.WriteString(" ")
	}

	proto := m.opts.Protocol
	if proto == "" {
		proto = model.ProtocolBoth
	}
	b.WriteString(dim.Render(fmt.Sprintf("  Proto: [c] %s  Listening: [l] %t", proto, m.opts.ListeningOnly)))
	if m.sortColumn < len(m.table.Columns()) {
		b.WriteString(dim.Render(fmt.Sprintf("  Sort: [s] %s", m.table.Columns()[m.sortColumn].Title)))
	}
	b.WriteString("\n\n")

	switch {
	case m.editing:
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("57")).Render(" Target: ") + m.targetInput.View() + "\n")
	case m.state == stateHolders && m.target != "":
		b.WriteString(dim.Render(" Target: "+output.SanitizeTerminal(m.target)) + "\n")
	case m.state == stateHolders:
		b.WriteString(dim.Render(" Press t to enter a path or port") + "\n")
	default:
		b.WriteString("\n")
	}

	if m.filtering {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("57")).Render(" / ") + m.filterInput.View() + "\n")
	} else if m.filterInput.Value() != "" {
		b.WriteString(dim.Render(" Filter: "+m.filterInput.Value()) + "\n")
	} else {
		b.WriteString("\n")
	}

	b.WriteString(baseStyle.Render(m.table.View()) + "\n")

	if s := m.status(); s != "" {
		b.WriteString(dim.Render(" "+s) + "\n")
	}

	if m.message != "" && time.Since(m.messageTime) < 3*time.Second {
		b.WriteString("\n" + lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1).
			Render(" "+output.SanitizeTerminal(m.message)+" ") + "\n")
	}

	if m.detailsTree != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("57")).Bold(true).Render(" Ancestry: ") + "\n" + m.detailsTree + "\n")
	}

	help := "\n  q: quit • 1-2: tabs • t: target • /: filter • c: protocol • l: listening • s: sort • r: reverse • p: pause • enter: ancestry"
	if m.detailsPID != 0 {
		help += " • esc: close ancestry"
	}
	b.WriteString(dim.Render(help) + "\n")

	return b.String()
}

// Run starts the interactive view and blocks until the user quits.
func Run(engine Engine, history process.SnapshotSource, o Options) error {
	p := tea.NewProgram(newModel(engine, history, o), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
