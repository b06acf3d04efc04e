package tui

import (
	"context"
	"strings"

	"taskdesk/internal/model"
	"taskdesk/internal/session"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	signupFirst = iota
	signupLast
	signupEmail
	signupPassword
	signupConfirm
)

type signupScreen struct {
	ctx context.Context
	reg session.Registrar

	fields fieldGroup
	busy   bool
	lines  []string
}

func newSignupScreen(ctx context.Context, reg session.Registrar) *signupScreen {
	g := newFieldGroup("First Name", "Last Name", "Email", "Password", "Confirm Password")
	g.mask(signupPassword)
	g.mask(signupConfirm)
	return &signupScreen{ctx: ctx, reg: reg, fields: g}
}

func (s *signupScreen) Init() tea.Cmd { return nil }

func (s *signupScreen) capturesText() bool { return true }

func (s *signupScreen) keys() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "sign up")),
	}
}

func (s *signupScreen) submit() tea.Cmd {
	s.busy = true
	s.lines = nil
	in := model.SignupInput{
		FirstName: s.fields.value(signupFirst),
		LastName:  s.fields.value(signupLast),
		Email:     s.fields.value(signupEmail),
		Password:  s.fields.value(signupPassword),
	}
	confirm := s.fields.value(signupConfirm)
	ctx, reg := s.ctx, s.reg
	return func() tea.Msg {
		return signupDoneMsg{err: session.Signup(ctx, reg, in, confirm)}
	}
}

func (s *signupScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case signupDoneMsg:
		s.busy = false
		if msg.err != nil {
			s.lines = strings.Split(msg.err.Error(), "\n")
			return s, nil
		}
		return s, navigate(location{route: routeLogin})

	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}
		switch msg.String() {
		case "tab", "down":
			return s, s.fields.move(1)
		case "shift+tab", "up":
			return s, s.fields.move(-1)
		case "enter":
			if !s.fields.last() {
				return s, s.fields.move(1)
			}
			return s, s.submit()
		}
		return s, s.fields.update(msg)
	}
	return s, nil
}

func (s *signupScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(styleHeading().Render("Sign Up") + "\n\n")
	b.WriteString(s.fields.view())
	for _, l := range s.lines {
		b.WriteString(styleError().Render(l) + "\n")
	}
	b.WriteString(styleMuted().Render("Have an account? ctrl+l to log in.") + "\n")
	return b.String()
}
