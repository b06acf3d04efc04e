package tui

import (
	"context"
	"strings"

	"taskdesk/internal/session"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	loginEmail = iota
	loginPassword
)

type loginScreen struct {
	ctx  context.Context
	auth session.Authenticator
	sess *session.Store

	fields  fieldGroup
	busy    bool
	errText string
}

func newLoginScreen(ctx context.Context, auth session.Authenticator, sess *session.Store) *loginScreen {
	g := newFieldGroup("Email", "Password")
	g.mask(loginPassword)
	return &loginScreen{ctx: ctx, auth: auth, sess: sess, fields: g}
}

func (s *loginScreen) Init() tea.Cmd { return nil }

func (s *loginScreen) capturesText() bool { return true }

func (s *loginScreen) keys() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "login")),
	}
}

func (s *loginScreen) submit() tea.Cmd {
	s.busy = true
	s.errText = ""
	ctx, auth, sess := s.ctx, s.auth, s.sess
	email, password := s.fields.value(loginEmail), s.fields.value(loginPassword)
	return func() tea.Msg {
		_, err := sess.Login(ctx, auth, email, password)
		return loginDoneMsg{err: err}
	}
}

func (s *loginScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		s.busy = false
		if msg.err != nil {
			s.errText = msg.err.Error()
			return s, nil
		}
		return s, navigate(location{route: routeList})

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

func (s *loginScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(styleHeading().Render("Login") + "\n\n")
	b.WriteString(s.fields.view())
	if s.busy {
		b.WriteString(styleMuted().Render("Logging in…") + "\n")
	}
	if s.errText != "" {
		b.WriteString(styleError().Render(s.errText) + "\n")
	}
	b.WriteString(styleMuted().Render("No account? ctrl+r to sign up.") + "\n")
	return b.String()
}
