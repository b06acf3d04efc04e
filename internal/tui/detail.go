package tui

import (
	"context"
	"fmt"
	"strings"

	"taskdesk/internal/taskdetail"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type detailScreen struct {
	sid     screenID
	ctx     context.Context
	api     taskdetail.Backend
	id      int
	state   taskdetail.State
	spinner spinner.Model
}

func newDetailScreen(ctx context.Context, api taskdetail.Backend, id int) *detailScreen {
	return &detailScreen{
		sid:     nextScreenID(),
		ctx:     ctx,
		api:     api,
		id:      id,
		state:   taskdetail.State{Phase: taskdetail.Loading},
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (s *detailScreen) Init() tea.Cmd {
	sid, ctx, api, id := s.sid, s.ctx, s.api, s.id
	return tea.Batch(s.spinner.Tick, func() tea.Msg {
		return detailLoadedMsg{sid: sid, state: taskdetail.Load(ctx, api, id)}
	})
}

func (s *detailScreen) capturesText() bool { return false }

func (s *detailScreen) keys() []key.Binding {
	k := []key.Binding{key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back"))}
	if s.state.Phase == taskdetail.Loaded {
		k = append(k, key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")))
	}
	return k
}

func (s *detailScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case detailLoadedMsg:
		if msg.sid != s.sid {
			return s, nil
		}
		s.state = msg.state
		return s, nil
	case spinner.TickMsg:
		if s.state.Phase != taskdetail.Loading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "backspace":
			return s, navigate(location{route: routeList})
		case "e":
			if s.state.Phase == taskdetail.Loaded {
				return s, navigate(location{route: routeEdit, id: s.id})
			}
		}
	}
	return s, nil
}

func (s *detailScreen) View(width, height int) string {
	heading := styleHeading().Render(fmt.Sprintf("Task #%d", s.id))
	switch s.state.Phase {
	case taskdetail.Loading:
		return heading + "\n\n" + s.spinner.View() + " Loading task…"
	case taskdetail.Failed:
		return heading + "\n\n" + styleError().Render(s.state.Message)
	case taskdetail.NotFound:
		return heading + "\n\n" + styleMuted().Render(s.state.Message)
	}

	fields := s.state.Fields()
	labelW := 0
	for _, f := range fields {
		if w := lipgloss.Width(f.Label); w > labelW {
			labelW = w
		}
	}
	value := lipgloss.NewStyle()
	if s.state.Completed() {
		value = styleCompleted()
	}
	var b strings.Builder
	b.WriteString(heading + "\n\n")
	for _, f := range fields {
		label := styleMuted().Width(labelW + 2).Render(f.Label + ":")
		b.WriteString(label + " " + value.Render(f.Value) + "\n")
	}
	b.WriteString("\n" + styleMuted().Render("Description:") + "\n")
	b.WriteString(renderMarkdown(s.state.Description(), width))
	return b.String()
}
