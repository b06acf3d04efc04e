package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// fieldGroup is a vertical stack of labelled text inputs with one focused.
type fieldGroup struct {
	labels []string
	inputs []textinput.Model
	focus  int
}

func newFieldGroup(labels ...string) fieldGroup {
	g := fieldGroup{labels: labels, inputs: make([]textinput.Model, len(labels))}
	for i := range labels {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		ti.Width = 40
		g.inputs[i] = ti
	}
	g.inputs[0].Focus()
	return g
}

func (g *fieldGroup) mask(i int) {
	g.inputs[i].EchoMode = textinput.EchoPassword
	g.inputs[i].EchoCharacter = '•'
}

func (g *fieldGroup) value(i int) string { return g.inputs[i].Value() }

func (g *fieldGroup) last() bool { return g.focus == len(g.inputs)-1 }

// move shifts focus by delta, wrapping at both ends.
func (g *fieldGroup) move(delta int) tea.Cmd {
	g.inputs[g.focus].Blur()
	n := len(g.inputs)
	g.focus = ((g.focus+delta)%n + n) % n
	return g.inputs[g.focus].Focus()
}

func (g *fieldGroup) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	g.inputs[g.focus], cmd = g.inputs[g.focus].Update(msg)
	return cmd
}

func (g fieldGroup) view() string {
	var b strings.Builder
	for i, in := range g.inputs {
		label := g.labels[i]
		if i == g.focus {
			label = styleAccent().Render(label)
		} else {
			label = styleMuted().Render(label)
		}
		b.WriteString(label + "\n")
		b.WriteString(in.View() + "\n\n")
	}
	return b.String()
}
