package tui

import (
	"context"
	"log/slog"

	"taskdesk/internal/api"
	"taskdesk/internal/logging"
	"taskdesk/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	Client  *api.Client
	Session *session.Store
	Logger  *slog.Logger
}

// Run starts the full-screen app and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	applyThemePreference()
	applyColorProfilePreference()

	m := newAppModel(ctx, opts.Client, opts.Session, opts.Logger)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Session changes can come from the API client's 401 hook, off the update loop.
	unsubscribe := opts.Session.Subscribe(func(s session.Session) {
		go p.Send(sessionChangedMsg{session: s})
	})
	defer unsubscribe()

	_, err := p.Run()
	return err
}
