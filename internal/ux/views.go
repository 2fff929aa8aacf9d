package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used by text views.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Name   lipgloss.Style
	Muted  lipgloss.Style
	Border lipgloss.Style
}

// NewStyles builds styles bound to w. With noColor set every style is plain.
func NewStyles(w io.Writer, noColor bool) Styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return Styles{Title: plain, Label: plain, Name: plain, Muted: plain, Border: plain}
	}

	r := lipgloss.NewRenderer(w)
	return Styles{
		Title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Label:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		Name:   r.NewStyle().Foreground(lipgloss.Color("10")),
		Muted:  r.NewStyle().Foreground(lipgloss.Color("8")),
		Border: r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1),
	}
}

// StagesView is the output of describe: node names grouped by stage.
type StagesView struct {
	Stages [][]string `json:"stages" yaml:"stages" toml:"stages"`
}

// RenderText draws one line per stage.
func (v StagesView) RenderText(s Styles) string {
	if len(v.Stages) == 0 {
		return s.Muted.Render("no stages")
	}

	var b strings.Builder
	b.WriteString(s.Title.Render("Stages"))
	for i, stage := range v.Stages {
		names := make([]string, len(stage))
		for j, n := range stage {
			names[j] = s.Name.Render(n)
		}
		b.WriteString("\n")
		b.WriteString(s.Label.Render(fmt.Sprintf("%d:", i)))
		b.WriteString(" ")
		b.WriteString(strings.Join(names, ", "))
	}
	return s.Border.Render(b.String())
}

// NodeSummary describes one declared node.
type NodeSummary struct {
	Name        string   `json:"name" yaml:"name" toml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Pre         []string `json:"pre,omitempty" yaml:"pre,omitempty" toml:"pre,omitempty"`
}

// NodeList is the output of list.
type NodeList struct {
	Nodes []NodeSummary `json:"nodes" yaml:"nodes" toml:"nodes"`
}

// RenderText draws the nodes as an aligned table.
func (l NodeList) RenderText(s Styles) string {
	if len(l.Nodes) == 0 {
		return s.Muted.Render("no nodes")
	}

	width := 0
	for _, n := range l.Nodes {
		width = max(width, len(n.Name))
	}

	lines := make([]string, 0, len(l.Nodes))
	for _, n := range l.Nodes {
		line := s.Name.Render(fmt.Sprintf("%-*s", width, n.Name))
		if n.Description != "" {
			line += "  " + n.Description
		}
		if len(n.Pre) > 0 {
			line += "  " + s.Muted.Render("pre: "+strings.Join(n.Pre, ", "))
		}
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return strings.Join(lines, "\n")
}
