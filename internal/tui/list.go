package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"taskdesk/internal/tasklist"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	xansi "github.com/charmbracelet/x/ansi"
)

type listBackend interface {
	tasklist.Fetcher
	tasklist.Deleter
}

type listKeys struct {
	Up, Down, Open, Edit, Delete, Search, Refresh, New, Sort key.Binding
}

func defaultListKeys() listKeys {
	return listKeys{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Sort:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7"), key.WithHelp("1-7", "sort column")),
	}
}

type deleteConfirm struct {
	id    int
	title string
	focus confirmModalFocus
}

type listScreen struct {
	sid     screenID
	ctx     context.Context
	api     listBackend
	log     *slog.Logger
	list    *tasklist.List
	search  textinput.Model
	spinner spinner.Model
	km      listKeys

	searching bool
	cursor    int
	confirm   *deleteConfirm
}

func newListScreen(ctx context.Context, api listBackend, logger *slog.Logger, myTasks bool) *listScreen {
	ti := textinput.New()
	ti.Prompt = "Search: "
	ti.Placeholder = "title or description"
	ti.CharLimit = 200

	l := tasklist.New()
	l.MyTasks = myTasks
	return &listScreen{
		sid:     nextScreenID(),
		ctx:     ctx,
		api:     api,
		log:     logger,
		list:    l,
		search:  ti,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		km:      defaultListKeys(),
	}
}

func (s *listScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, s.fetch())
}

// fetch issues a new ticket; older in-flight results are dropped on arrival.
func (s *listScreen) fetch() tea.Cmd {
	query := s.search.Value()
	ticket := s.list.Begin(query)
	sid, api, ctx := s.sid, s.api, s.ctx
	return func() tea.Msg {
		tasks, err := api.ListTasks(ctx, query)
		return tasksLoadedMsg{sid: sid, ticket: ticket, tasks: tasks, err: err}
	}
}

func (s *listScreen) deleteCmd(id int) tea.Cmd {
	sid, api, ctx := s.sid, s.api, s.ctx
	return func() tea.Msg {
		return taskDeletedMsg{sid: sid, id: id, err: api.DeleteTask(ctx, id)}
	}
}

func (s *listScreen) capturesText() bool { return s.searching }

func (s *listScreen) keys() []key.Binding {
	if s.confirm != nil || s.searching {
		return nil
	}
	k := s.km
	return []key.Binding{k.Up, k.Down, k.Open, k.Edit, k.Delete, k.Search, k.Sort, k.Refresh, k.New}
}

func (s *listScreen) selected() (tasklist.Row, bool) {
	rows := s.list.Rows()
	if s.cursor < 0 || s.cursor >= len(rows) {
		return tasklist.Row{}, false
	}
	return rows[s.cursor], true
}

func (s *listScreen) clampCursor() {
	n := len(s.list.Tasks())
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

func (s *listScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksLoadedMsg:
		if msg.sid != s.sid {
			s.log.Debug("dropped task fetch for a closed screen", "ticket", msg.ticket)
			return s, nil
		}
		if !s.list.Apply(msg.ticket, msg.tasks, msg.err) {
			s.log.Debug("dropped stale task fetch", "ticket", msg.ticket)
		}
		if msg.err != nil {
			s.log.Error("error fetching tasks", "err", msg.err)
		}
		s.clampCursor()
		return s, nil

	case taskDeletedMsg:
		if msg.sid != s.sid {
			return s, nil
		}
		if msg.err != nil {
			s.log.Error("error deleting task", "id", msg.id, "err", msg.err)
			s.list.DeleteFailed(msg.err)
			return s, nil
		}
		s.list.Remove(msg.id)
		s.clampCursor()
		return s, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		if s.confirm != nil {
			return s.updateConfirm(msg)
		}
		if s.searching {
			return s.updateSearch(msg)
		}
		return s.updateKeys(msg)
	}
	return s, nil
}

func (s *listScreen) updateConfirm(msg tea.KeyMsg) (screen, tea.Cmd) {
	c := s.confirm
	switch msg.String() {
	case "tab", "shift+tab", "left", "right", "h", "l":
		c.focus = c.focus.toggle()
		return s, nil
	case "y":
		s.confirm = nil
		return s, s.deleteCmd(c.id)
	case "n", "esc":
		s.confirm = nil
		return s, nil
	case "enter":
		s.confirm = nil
		if c.focus == confirmFocusConfirm {
			return s, s.deleteCmd(c.id)
		}
		return s, nil
	}
	return s, nil
}

func (s *listScreen) updateSearch(msg tea.KeyMsg) (screen, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		s.searching = false
		s.search.Blur()
		return s, nil
	}
	before := s.search.Value()
	var cmd tea.Cmd
	s.search, cmd = s.search.Update(msg)
	if s.search.Value() != before {
		s.cursor = 0
		return s, tea.Batch(cmd, s.fetch())
	}
	return s, cmd
}

func (s *listScreen) updateKeys(msg tea.KeyMsg) (screen, tea.Cmd) {
	switch {
	case key.Matches(msg, s.km.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(msg, s.km.Down):
		if s.cursor < len(s.list.Tasks())-1 {
			s.cursor++
		}
	case key.Matches(msg, s.km.Open):
		if r, ok := s.selected(); ok {
			return s, navigate(location{route: routeDetails, id: r.ID})
		}
	case key.Matches(msg, s.km.Edit):
		if r, ok := s.selected(); ok {
			return s, navigate(location{route: routeEdit, id: r.ID})
		}
	case key.Matches(msg, s.km.Delete):
		if r, ok := s.selected(); ok {
			s.confirm = &deleteConfirm{id: r.ID, title: r.Title, focus: confirmFocusCancel}
		}
	case key.Matches(msg, s.km.Search):
		s.searching = true
		return s, s.search.Focus()
	case key.Matches(msg, s.km.Refresh):
		return s, s.fetch()
	case key.Matches(msg, s.km.New):
		return s, navigate(location{route: routeNew})
	case key.Matches(msg, s.km.Sort):
		idx := int(msg.Runes[0] - '1')
		if idx >= 0 && idx < len(tasklist.Headers) {
			s.list.Toggle(tasklist.Headers[idx].Key)
		}
	}
	return s, nil
}

// columnWidths caps each column; description and title get the slack.
func columnWidths(total int) []int {
	w := []int{4, 24, 32, 12, 9, 18, 11}
	budget := total - 3*len(w)
	sum := 0
	for _, x := range w {
		sum += x
	}
	for sum > budget && w[2] > 10 {
		w[2]--
		sum--
	}
	for sum > budget && w[1] > 10 {
		w[1]--
		sum--
	}
	return w
}

func (s *listScreen) View(width, height int) string {
	var b strings.Builder

	title := "Tasks"
	if s.list.MyTasks {
		title = "My Tasks"
	}
	b.WriteString(styleHeading().Render(title))
	if s.list.Loading() {
		b.WriteString(" " + s.spinner.View())
	}
	b.WriteString("\n")
	if s.searching || s.search.Value() != "" {
		b.WriteString(s.search.View() + "\n")
	}
	if msg := s.list.Err(); msg != "" {
		b.WriteString(styleError().Render(msg) + "\n")
	}

	rows := s.list.Rows()
	if len(rows) == 0 && !s.list.Loading() {
		b.WriteString(styleMuted().Render("No tasks found.") + "\n")
	}
	if len(rows) > 0 {
		b.WriteString(s.viewTable(rows, width) + "\n")
	}

	if s.confirm != nil {
		body := fmt.Sprintf("Are you sure you want to delete %q?", s.confirm.title)
		modal := renderConfirmModal(width, "Delete task", body, "Delete", "Cancel", s.confirm.focus)
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
	}
	return b.String()
}

func (s *listScreen) viewTable(rows []tasklist.Row, width int) string {
	widths := columnWidths(width)
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		c := r.Cells()
		for i := range c {
			c[i] = xansi.Truncate(c[i], widths[i], "…")
		}
		cells = append(cells, c)
	}

	base := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(tasklist.HeaderLabels(s.list.Sort())...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return base.Bold(true)
			}
			st := base
			if row == s.cursor {
				st = st.Inherit(styleSelected())
			}
			if row >= 0 && row < len(rows) && rows[row].Completed {
				st = st.Inherit(styleCompleted())
			}
			return st
		}).
		Render()
}
