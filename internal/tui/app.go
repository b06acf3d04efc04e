package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskdesk/internal/api"
	"taskdesk/internal/session"
	"taskdesk/internal/taskdetail"
	"taskdesk/internal/taskform"
	"taskdesk/internal/tasklist"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type route int

const (
	routeLogin route = iota
	routeSignup
	routeList
	routeNew
	routeDetails
	routeEdit
)

func (r route) protected() bool {
	return r != routeLogin && r != routeSignup
}

func (r route) String() string {
	switch r {
	case routeLogin:
		return "login"
	case routeSignup:
		return "signup"
	case routeList:
		return "tasks"
	case routeNew:
		return "new"
	case routeDetails:
		return "details"
	case routeEdit:
		return "edit"
	}
	return "unknown"
}

type location struct {
	route   route
	id      int
	myTasks bool
}

// screen is one routed view. Screens never navigate directly; they return
// navigateMsg commands.
type screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (screen, tea.Cmd)
	View(width, height int) string
	// capturesText reports whether printable keys belong to a focused input.
	capturesText() bool
	keys() []key.Binding
}

// backend is the API surface the TUI uses; *api.Client satisfies it.
type backend interface {
	session.Authenticator
	session.Registrar
	tasklist.Fetcher
	tasklist.Deleter
	taskform.Backend
	taskdetail.Backend
}

type appKeys struct {
	NewTask key.Binding
	MyTasks key.Binding
	Tasks   key.Binding
	Logout  key.Binding
	Login   key.Binding
	Signup  key.Binding
	Quit    key.Binding
}

func defaultAppKeys() appKeys {
	return appKeys{
		NewTask: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "create task")),
		MyTasks: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "my tasks")),
		Tasks:   key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "all tasks")),
		Logout:  key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "logout")),
		Login:   key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "login")),
		Signup:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "sign up")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

type appModel struct {
	api  backend
	sess *session.Store
	log  *slog.Logger
	ctx  context.Context

	keys appKeys
	help help.Model
	now  func() time.Time

	loc    location
	screen screen

	width  int
	height int
}

func newAppModel(ctx context.Context, client backend, sess *session.Store, logger *slog.Logger) appModel {
	m := appModel{
		api:  client,
		sess: sess,
		log:  logger,
		ctx:  ctx,
		keys: defaultAppKeys(),
		help: help.New(),
		now:  time.Now,
	}
	m.loc, m.screen = m.resolve(location{route: routeList})
	return m
}

// resolve applies the session guard and builds the screen for the resulting location.
func (m appModel) resolve(to location) (location, screen) {
	if to.route.protected() {
		to = session.Guard(m.sess, to, func() location { return location{route: routeLogin} })
	}
	switch to.route {
	case routeSignup:
		return to, newSignupScreen(m.ctx, m.api)
	case routeList:
		return to, newListScreen(m.ctx, m.api, m.log, to.myTasks)
	case routeNew:
		return to, newFormScreen(m.ctx, m.api, m.log, 0)
	case routeEdit:
		return to, newFormScreen(m.ctx, m.api, m.log, to.id)
	case routeDetails:
		return to, newDetailScreen(m.ctx, m.api, to.id)
	default:
		return location{route: routeLogin}, newLoginScreen(m.ctx, m.api, m.sess)
	}
}

func (m appModel) navigate(to location) (appModel, tea.Cmd) {
	m.loc, m.screen = m.resolve(to)
	m.log.Debug("navigate", "route", m.loc.route.String(), "id", m.loc.id)
	return m, m.screen.Init()
}

func navigate(to location) tea.Cmd {
	return func() tea.Msg { return navigateMsg{to: to} }
}

func (m appModel) Init() tea.Cmd {
	return m.screen.Init()
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case navigateMsg:
		return m.navigate(msg.to)

	case sessionChangedMsg:
		if msg.session.Empty() && m.loc.route.protected() {
			return m.navigate(location{route: routeLogin})
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if msg.String() == "q" && !m.screen.capturesText() {
			return m, tea.Quit
		}
		if cmd, ok := m.globalKey(msg); ok {
			return m, cmd
		}
	}

	// An unauthorized result on a protected screen sends the user back to login.
	if r, ok := msg.(resultMsg); ok && m.loc.route.protected() && errors.Is(r.resultErr(), api.ErrUnauthorized) {
		m.log.Info("unauthorized; returning to login")
		return m.navigate(location{route: routeLogin})
	}

	var cmd tea.Cmd
	m.screen, cmd = m.screen.Update(msg)
	return m, cmd
}

func (m appModel) loggedIn() bool { return !m.sess.Snapshot().Empty() }

func (m appModel) globalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if m.loggedIn() {
		switch {
		case key.Matches(msg, m.keys.NewTask):
			return navigate(location{route: routeNew}), true
		case key.Matches(msg, m.keys.MyTasks):
			return navigate(location{route: routeList, myTasks: true}), true
		case key.Matches(msg, m.keys.Tasks):
			return navigate(location{route: routeList}), true
		case key.Matches(msg, m.keys.Logout):
			return m.logout(), true
		}
		return nil, false
	}
	switch {
	case key.Matches(msg, m.keys.Login):
		return navigate(location{route: routeLogin}), true
	case key.Matches(msg, m.keys.Signup):
		return navigate(location{route: routeSignup}), true
	}
	return nil, false
}

func (m appModel) logout() tea.Cmd {
	sess, log := m.sess, m.log
	return func() tea.Msg {
		if err := sess.Logout(context.Background()); err != nil {
			log.Error("logout", "err", err)
		}
		return navigateMsg{to: location{route: routeLogin}}
	}
}

func (m appModel) navKeys() []key.Binding {
	if m.loggedIn() {
		return []key.Binding{m.keys.NewTask, m.keys.MyTasks, m.keys.Tasks, m.keys.Logout, m.keys.Quit}
	}
	return []key.Binding{m.keys.Login, m.keys.Signup, m.keys.Quit}
}

func (m appModel) viewNav() string {
	brand := styleAccent().Render("Task Manager")
	var left string
	if snap := m.sess.Snapshot(); !snap.Empty() {
		left = brand + " " + styleHeading().Render(fmt.Sprintf("Welcome, %s %s!", snap.User.FirstName, snap.User.LastName))
		if exp, ok := session.TokenExpiry(snap.Token); ok {
			left += " " + styleMuted().Render("(session until "+exp.Local().Format("2006-01-02 15:04")+")")
		}
	} else {
		left = brand
	}
	return left + "\n" + m.help.ShortHelpView(m.navKeys())
}

func (m appModel) viewFooter() string {
	return styleMuted().Render(fmt.Sprintf("© %d Task Management App", m.now().Year()))
}

func (m appModel) View() string {
	width := m.width
	if width <= 0 {
		width = 100
	}
	height := m.height
	if height <= 0 {
		height = 30
	}

	nav := m.viewNav()
	footer := m.viewFooter()
	screenHelp := m.help.ShortHelpView(m.screen.keys())
	bodyH := height - lipgloss.Height(nav) - lipgloss.Height(footer) - lipgloss.Height(screenHelp) - 2
	if bodyH < 3 {
		bodyH = 3
	}
	body := m.screen.View(width, bodyH)

	return strings.Join([]string{nav, "", body, screenHelp, footer}, "\n")
}
