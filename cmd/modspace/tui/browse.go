package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// BrowseMode represents the current mode of the browser
type BrowseMode int

const (
	ModeTable BrowseMode = iota
	ModeDetail
)

const (
	minColumnWidth = 4
	maxColumnWidth = 32
)

// BrowseModel is the Bubbletea model for browsing one resource
type BrowseModel struct {
	mode    BrowseMode
	name    string
	columns []string
	table   table.Model
	detail  DetailView
	width   int
	height  int
}

// NewBrowseModel builds a table of rows under columns sized to their content.
func NewBrowseModel(name string, columns []string, rows [][]string) BrowseModel {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		w := lipgloss.Width(c)
		for _, r := range rows {
			if i < len(r) {
				w = max(w, lipgloss.Width(r[i]))
			}
		}
		cols[i] = table.Column{Title: c, Width: min(max(w, minColumnWidth), maxColumnWidth)}
	}

	trows := make([]table.Row, len(rows))
	for i, r := range rows {
		trows[i] = table.Row(r)
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(trows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 20)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorText).
		Background(colorPrimary).
		Bold(false)
	t.SetStyles(s)

	return BrowseModel{
		mode:    ModeTable,
		name:    name,
		columns: columns,
		table:   t,
	}
}

// Init initializes the model
func (m BrowseModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if h := msg.Height - 8; h > 0 {
			m.table.SetHeight(min(h, len(m.table.Rows())+1))
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

		switch m.mode {
		case ModeTable:
			if msg.String() == "enter" {
				row := m.table.SelectedRow()
				if row == nil {
					return m, nil
				}
				m.detail = NewDetailView(fmt.Sprintf("%s #%d", m.name, m.table.Cursor()+1), m.columns, row)
				m.mode = ModeDetail
				return m, nil
			}
		case ModeDetail:
			if msg.String() == "esc" || msg.String() == "enter" {
				m.mode = ModeTable
			}
			return m, nil
		}
	}

	if m.mode == ModeTable {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI
func (m BrowseModel) View() string {
	if m.mode == ModeDetail {
		return m.detail.View()
	}

	title := titleStyle.Render(m.name) + " " + subtitleStyle.Render(fmt.Sprintf("%d row(s)", len(m.table.Rows())))
	help := HelpBar(
		[2]string{"↑/↓", "navigate"},
		[2]string{"enter", "inspect"},
		[2]string{"q", "quit"},
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		boxStyle.Render(m.table.View()),
		help,
	)
}

// RunBrowser starts the interactive resource browser
func RunBrowser(name string, columns []string, rows [][]string) error {
	p := tea.NewProgram(NewBrowseModel(name, columns, rows), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
