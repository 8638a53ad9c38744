package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DetailView shows one row as label/value pairs.
type DetailView struct {
	Title  string
	Labels []string
	Values []string
}

// NewDetailView pairs labels with values. Missing values render empty.
func NewDetailView(title string, labels, values []string) DetailView {
	return DetailView{Title: title, Labels: labels, Values: values}
}

// View renders the detail view
func (d DetailView) View() string {
	width := 0
	for _, l := range d.Labels {
		width = max(width, lipgloss.Width(l))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Title))
	b.WriteString("\n")
	for i, l := range d.Labels {
		v := ""
		if i < len(d.Values) {
			v = d.Values[i]
		}
		b.WriteString(labelStyle.Width(width + 2).Render(l))
		b.WriteString(valueStyle.Render(v))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(FormatKey("esc", "back") + " • " + FormatKey("q", "quit")))

	return activeBoxStyle.Render(b.String())
}

// HelpBar renders key bindings separated by bullets.
func HelpBar(pairs ...[2]string) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = FormatKey(p[0], p[1])
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}
