package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"taskdesk/internal/model"
	"taskdesk/internal/taskform"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formField int

const (
	fieldTitle formField = iota
	fieldDescription
	fieldStatus
	fieldPriority
	fieldDueDate
	fieldAssignee
	fieldSave
	formFieldCount
)

type formScreen struct {
	sid  screenID
	ctx  context.Context
	api  taskform.Backend
	log  *slog.Logger
	form *taskform.Form

	title   textinput.Model
	desc    textarea.Model
	due     textinput.Model
	spinner spinner.Model

	focus   formField
	loading bool
	saving  bool
}

func newFormScreen(ctx context.Context, api taskform.Backend, logger *slog.Logger, id int) *formScreen {
	title := textinput.New()
	title.Prompt = ""
	title.Placeholder = "Title"
	title.CharLimit = 200
	title.Width = 50
	title.Focus()

	desc := textarea.New()
	desc.Placeholder = "Description (markdown)"
	desc.ShowLineNumbers = false
	desc.SetWidth(50)
	desc.SetHeight(4)

	due := textinput.New()
	due.Prompt = ""
	due.Placeholder = "YYYY-MM-DD"
	due.CharLimit = 10
	due.Width = 12

	f := taskform.New(logger)
	f.ID = id
	return &formScreen{
		sid:     nextScreenID(),
		ctx:     ctx,
		api:     api,
		log:     logger,
		form:    f,
		title:   title,
		desc:    desc,
		due:     due,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		loading: id != 0,
	}
}

func (s *formScreen) Init() tea.Cmd {
	sid, ctx, api, logger := s.sid, s.ctx, s.api, s.log
	cmds := []tea.Cmd{func() tea.Msg {
		f := taskform.New(logger)
		f.LoadAssignees(ctx, api)
		return assigneesLoadedMsg{sid: sid, users: f.Assignees}
	}}
	if id := s.form.ID; id != 0 {
		cmds = append(cmds, s.spinner.Tick, func() tea.Msg {
			f := taskform.New(logger)
			err := f.Load(ctx, api, id)
			return formTaskLoadedMsg{sid: sid, form: f, err: err}
		})
	}
	return tea.Batch(cmds...)
}

func (s *formScreen) capturesText() bool {
	return s.focus == fieldTitle || s.focus == fieldDescription || s.focus == fieldDueDate
}

func (s *formScreen) keys() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		key.NewBinding(key.WithKeys("left", "right"), key.WithHelp("←/→", "change")),
		key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// sync copies the input widgets into the form model.
func (s *formScreen) sync() {
	s.form.Title = s.title.Value()
	s.form.Description = s.desc.Value()
	s.form.DueDate = s.due.Value()
}

func (s *formScreen) fill() {
	s.title.SetValue(s.form.Title)
	s.desc.SetValue(s.form.Description)
	s.due.SetValue(s.form.DueDate)
}

func (s *formScreen) submit() tea.Cmd {
	s.sync()
	s.saving = true
	f := *s.form
	sid, ctx, api := s.sid, s.ctx, s.api
	return func() tea.Msg {
		_, err := f.Submit(ctx, api)
		return taskSavedMsg{sid: sid, message: f.Err, err: err}
	}
}

func (s *formScreen) setFocus(next formField) tea.Cmd {
	s.title.Blur()
	s.desc.Blur()
	s.due.Blur()
	s.focus = (next%formFieldCount + formFieldCount) % formFieldCount
	switch s.focus {
	case fieldTitle:
		return s.title.Focus()
	case fieldDescription:
		return s.desc.Focus()
	case fieldDueDate:
		return s.due.Focus()
	}
	return nil
}

func cycle[T comparable](vals []T, cur T, delta int) T {
	for i, v := range vals {
		if v == cur {
			n := len(vals)
			return vals[((i+delta)%n+n)%n]
		}
	}
	return vals[0]
}

func (s *formScreen) cycleAssignee(delta int) {
	ids := []int{0}
	for _, u := range s.form.Assignees {
		ids = append(ids, u.ID)
	}
	s.form.AssigneeID = cycle(ids, s.form.AssigneeID, delta)
}

func (s *formScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case assigneesLoadedMsg:
		if msg.sid != s.sid {
			return s, nil
		}
		s.form.Assignees = msg.users
		return s, nil

	case formTaskLoadedMsg:
		if msg.sid != s.sid || msg.form.ID != s.form.ID {
			s.log.Debug("dropped stale task load", "id", msg.form.ID)
			return s, nil
		}
		s.loading = false
		if msg.err != nil {
			s.form.Err = msg.form.Err
			return s, nil
		}
		users := s.form.Assignees
		*s.form = *msg.form
		s.form.Assignees = users
		s.fill()
		return s, nil

	case taskSavedMsg:
		if msg.sid != s.sid {
			return s, nil
		}
		s.saving = false
		if msg.err != nil {
			s.form.Err = msg.message
			s.log.Error("error saving task", "id", s.form.ID, "err", msg.err)
			return s, nil
		}
		s.form.Err = ""
		return s, navigate(location{route: routeList})

	case spinner.TickMsg:
		if !s.loading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		if s.saving || s.loading {
			if msg.String() == "esc" {
				return s, navigate(location{route: routeList})
			}
			return s, nil
		}
		return s.updateKey(msg)
	}
	return s, nil
}

func (s *formScreen) updateKey(msg tea.KeyMsg) (screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return s, navigate(location{route: routeList})
	case "ctrl+s":
		return s, s.submit()
	case "tab":
		return s, s.setFocus(s.focus + 1)
	case "shift+tab":
		return s, s.setFocus(s.focus - 1)
	}

	var cmd tea.Cmd
	switch s.focus {
	case fieldTitle:
		if msg.String() == "enter" {
			return s, s.setFocus(s.focus + 1)
		}
		s.title, cmd = s.title.Update(msg)
	case fieldDescription:
		s.desc, cmd = s.desc.Update(msg)
	case fieldDueDate:
		if msg.String() == "enter" {
			return s, s.setFocus(s.focus + 1)
		}
		s.due, cmd = s.due.Update(msg)
	case fieldStatus, fieldPriority, fieldAssignee:
		delta := 0
		switch msg.String() {
		case "left", "h":
			delta = -1
		case "right", "l", " ":
			delta = 1
		case "enter", "down", "j":
			return s, s.setFocus(s.focus + 1)
		case "up", "k":
			return s, s.setFocus(s.focus - 1)
		}
		if delta != 0 {
			switch s.focus {
			case fieldStatus:
				s.form.Status = cycle(model.Statuses, s.form.Status, delta)
			case fieldPriority:
				s.form.Priority = cycle(model.Priorities, s.form.Priority, delta)
			default:
				s.cycleAssignee(delta)
			}
		}
	case fieldSave:
		if msg.String() == "enter" || msg.String() == " " {
			return s, s.submit()
		}
	}
	return s, cmd
}

func (s *formScreen) label(f formField, text string) string {
	if s.focus == f {
		return styleAccent().Render("› " + text)
	}
	return styleMuted().Render("  " + text)
}

func selector(v string) string { return "‹ " + v + " ›" }

func (s *formScreen) View(width, height int) string {
	var b strings.Builder
	heading := "Create Task"
	if s.form.Editing() {
		heading = fmt.Sprintf("Edit Task #%d", s.form.ID)
	}
	b.WriteString(styleHeading().Render(heading))
	if s.loading {
		b.WriteString(" " + s.spinner.View())
	}
	b.WriteString("\n\n")

	b.WriteString(s.label(fieldTitle, "Title") + "\n" + s.title.View() + "\n\n")
	b.WriteString(s.label(fieldDescription, "Description") + "\n" + s.desc.View() + "\n\n")
	b.WriteString(s.label(fieldStatus, "Status") + "  " + selector(string(s.form.Status)) + "\n")
	b.WriteString(s.label(fieldPriority, "Priority") + "  " + selector(string(s.form.Priority)) + "\n")
	b.WriteString(s.label(fieldDueDate, "Due Date") + "  " + s.due.View() + "\n")
	b.WriteString(s.label(fieldAssignee, "Assigned To") + "  " + selector(s.form.AssigneeLabel()) + "\n\n")

	save := "[ Save ]"
	if s.saving {
		save = "[ Saving… ]"
	}
	if s.focus == fieldSave {
		b.WriteString(styleSelected().Render(save))
	} else {
		b.WriteString(save)
	}
	b.WriteString("\n")
	if s.form.Err != "" {
		b.WriteString("\n" + styleError().Render(s.form.Err) + "\n")
	}
	return b.String()
}
