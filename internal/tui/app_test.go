package tui

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"taskdesk/internal/api"
	"taskdesk/internal/logging"
	"taskdesk/internal/model"
	"taskdesk/internal/session"
	"taskdesk/internal/testutil/fakeapi"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t     *testing.T
	srv   *fakeapi.Server
	store *session.Store
	m     appModel
	quit  bool
}

func newHarness(t *testing.T, loggedIn bool) *harness {
	t.Helper()
	srv := fakeapi.New(t)
	srv.SeedUser(model.User{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}, "secret")

	store, err := session.Open(context.Background(), session.NewMemoryPersister(), logging.Discard())
	require.NoError(t, err)
	client := api.NewClient(api.Options{
		BaseURL:        srv.URL,
		Timeout:        5 * time.Second,
		Tokens:         store,
		OnUnauthorized: store.HandleUnauthorized,
	})
	if loggedIn {
		_, err := store.Login(context.Background(), client, "ada@example.com", "secret")
		require.NoError(t, err)
	}

	h := &harness{t: t, srv: srv, store: store}
	h.m = newAppModel(context.Background(), client, store, logging.Discard())
	h.m.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	h.send(tea.WindowSizeMsg{Width: 140, Height: 40})
	h.drain(h.m.Init())
	return h
}

// send feeds msg to the model and runs every command it returns to completion.
func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(appModel)
	h.drain(cmd)
}

func (h *harness) drain(cmd tea.Cmd) {
	for _, msg := range runCmd(cmd) {
		if _, ok := msg.(tea.QuitMsg); ok {
			h.quit = true
			continue
		}
		h.send(msg)
	}
}

func (h *harness) key(k string) {
	h.t.Helper()
	switch k {
	case "enter":
		h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "tab":
		h.send(tea.KeyMsg{Type: tea.KeyTab})
	case "esc":
		h.send(tea.KeyMsg{Type: tea.KeyEsc})
	case "down":
		h.send(tea.KeyMsg{Type: tea.KeyDown})
	case "ctrl+s":
		h.send(tea.KeyMsg{Type: tea.KeyCtrlS})
	case "ctrl+x":
		h.send(tea.KeyMsg{Type: tea.KeyCtrlX})
	case "ctrl+c":
		h.send(tea.KeyMsg{Type: tea.KeyCtrlC})
	case "ctrl+n":
		h.send(tea.KeyMsg{Type: tea.KeyCtrlN})
	case "ctrl+r":
		h.send(tea.KeyMsg{Type: tea.KeyCtrlR})
	default:
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	}
}

func (h *harness) typeText(s string) {
	h.t.Helper()
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) list() *listScreen {
	h.t.Helper()
	s, ok := h.m.screen.(*listScreen)
	require.Truef(h.t, ok, "screen is %T, want list", h.m.screen)
	return s
}

// runCmd executes cmd, fanning batches out concurrently, and keeps only
// messages the app acts on. Cursor blinks and spinner ticks are dropped.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		if keep(msg) {
			return []tea.Msg{msg}
		}
		return nil
	}
	results := make([][]tea.Msg, len(batch))
	var wg sync.WaitGroup
	for i, c := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = runCmd(c)
		}()
	}
	wg.Wait()
	var out []tea.Msg
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func keep(msg tea.Msg) bool {
	switch msg.(type) {
	case navigateMsg, sessionChangedMsg, loginDoneMsg, signupDoneMsg,
		tasksLoadedMsg, taskDeletedMsg, assigneesLoadedMsg, formTaskLoadedMsg,
		taskSavedMsg, detailLoadedMsg, tea.QuitMsg:
		return true
	}
	return false
}

func seedTasks(srv *fakeapi.Server) {
	desc := "write the **report**"
	srv.SeedTask(model.Task{Title: "Banana", Status: model.StatusTodo, Priority: model.PriorityHigh, Description: &desc})
	srv.SeedTask(model.Task{Title: "apple", Status: model.StatusCompleted, Priority: model.PriorityLow})
	srv.SeedTask(model.Task{Title: "Cherry", Status: model.StatusInProgress, Priority: model.PriorityMedium})
}

func (s *listScreen) rowTitles() string {
	var out []string
	for _, r := range s.list.Rows() {
		out = append(out, r.Title)
	}
	return strings.Join(out, ",")
}

func TestProtectedStartRedirectsToLogin(t *testing.T) {
	h := newHarness(t, false)

	assert.Equal(t, routeLogin, h.m.loc.route)
	view := h.m.View()
	assert.Contains(t, view, "Login")
	assert.NotContains(t, view, "Welcome")
	assert.Contains(t, view, "© 2026 Task Management App")

	h.send(navigateMsg{to: location{route: routeDetails, id: 1}})
	assert.Equal(t, routeLogin, h.m.loc.route)
	assert.Empty(t, h.srv.RequestsTo(http.MethodGet, "/tasks/1"))
}

func TestLoginFlowShowsTaskList(t *testing.T) {
	h := newHarness(t, false)
	seedTasks(h.srv)

	h.typeText("ada@example.com")
	h.key("tab")
	h.typeText("secret")
	h.key("enter")

	require.Equal(t, routeList, h.m.loc.route)
	assert.False(t, h.store.Snapshot().Empty())
	view := h.m.View()
	assert.Contains(t, view, "Welcome, Ada Lovelace!")
	assert.Contains(t, view, "Banana")
	assert.Contains(t, view, "Not Assigned")
}

func TestLoginFailureStaysOnLogin(t *testing.T) {
	h := newHarness(t, false)

	h.typeText("ada@example.com")
	h.key("tab")
	h.typeText("wrong")
	h.key("enter")

	assert.Equal(t, routeLogin, h.m.loc.route)
	assert.True(t, h.store.Snapshot().Empty())
	assert.Contains(t, h.m.View(), "Incorrect email or password")
}

func TestSignupThenLogin(t *testing.T) {
	h := newHarness(t, false)
	h.key("ctrl+r")
	require.Equal(t, routeSignup, h.m.loc.route)

	for _, v := range []string{"Grace", "Hopper", "grace@example.com", "pw1", "pw2"} {
		h.typeText(v)
		if v != "pw2" {
			h.key("tab")
		}
	}
	h.key("enter")
	assert.Equal(t, routeSignup, h.m.loc.route)
	assert.Contains(t, h.m.View(), "Passwords do not match")
	assert.Empty(t, h.srv.RequestsTo(http.MethodPost, "/auth/signup"))

	h.send(tea.KeyMsg{Type: tea.KeyBackspace})
	h.typeText("1")
	h.key("enter")
	assert.Equal(t, routeLogin, h.m.loc.route)
	assert.Len(t, h.srv.RequestsTo(http.MethodPost, "/auth/signup"), 1)
}

func TestListSortToggle(t *testing.T) {
	h := newHarness(t, true)
	seedTasks(h.srv)
	h.key("r")

	l := h.list()
	assert.Equal(t, "Banana,apple,Cherry", l.rowTitles())

	h.key("2")
	assert.Equal(t, "apple,Banana,Cherry", l.rowTitles())
	assert.Contains(t, h.m.View(), "Title ↑")

	h.key("2")
	assert.Equal(t, "Cherry,Banana,apple", l.rowTitles())
	assert.Contains(t, h.m.View(), "Title ↓")
}

func TestListSearchRefetches(t *testing.T) {
	h := newHarness(t, true)
	seedTasks(h.srv)

	h.key("/")
	h.typeText("cher")
	h.key("enter")

	assert.Equal(t, "Cherry", h.list().rowTitles())
	reqs := h.srv.RequestsTo(http.MethodGet, "/tasks")
	require.NotEmpty(t, reqs)
	assert.Equal(t, "search=cher", reqs[len(reqs)-1].Query)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	h := newHarness(t, true)
	seedTasks(h.srv)
	h.key("r")

	h.key("d")
	assert.Contains(t, h.m.View(), "Delete task")
	h.key("n")
	assert.Empty(t, h.srv.RequestsTo(http.MethodDelete, "/tasks/1"))
	assert.Len(t, h.srv.Tasks(), 3)

	h.key("d")
	h.key("y")
	assert.Len(t, h.srv.RequestsTo(http.MethodDelete, "/tasks/1"), 1)
	assert.Len(t, h.srv.Tasks(), 2)
	assert.Equal(t, "apple,Cherry", h.list().rowTitles())
}

func TestDeleteFailureKeepsRow(t *testing.T) {
	h := newHarness(t, true)
	seedTasks(h.srv)
	h.key("r")

	h.srv.FailNext(http.MethodDelete, "/tasks/1", http.StatusInternalServerError, `{}`)
	h.key("d")
	h.key("tab")
	h.key("enter")

	assert.Equal(t, "Banana,apple,Cherry", h.list().rowTitles())
	assert.Contains(t, h.m.View(), "Failed to delete task")
}

func TestUnauthorizedReturnsToLogin(t *testing.T) {
	h := newHarness(t, true)
	seedTasks(h.srv)

	h.srv.FailNext(http.MethodGet, "/tasks", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
	h.key("r")

	assert.Equal(t, routeLogin, h.m.loc.route)
	assert.True(t, h.store.Snapshot().Empty())
}

func TestFormRequiresTitle(t *testing.T) {
	h := newHarness(t, true)
	h.key("ctrl+n")
	require.Equal(t, routeNew, h.m.loc.route)

	h.key("ctrl+s")
	assert.Equal(t, routeNew, h.m.loc.route)
	assert.Contains(t, h.m.View(), "title: field required")
	assert.Empty(t, h.srv.RequestsTo(http.MethodPost, "/tasks"))
}

func TestFormCreatesTask(t *testing.T) {
	h := newHarness(t, true)
	h.key("ctrl+n")

	h.typeText("Write report")
	h.key("tab") // description
	h.key("tab") // status
	h.key("l")   // In Progress
	h.key("tab") // priority
	h.key("tab") // due date
	h.typeText("2026-05-01")
	h.key("ctrl+s")

	require.Equal(t, routeList, h.m.loc.route)
	tasks := h.srv.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write report", tasks[0].Title)
	assert.Equal(t, model.StatusInProgress, tasks[0].Status)
	assert.Equal(t, model.PriorityMedium, tasks[0].Priority)
	posts := h.srv.RequestsTo(http.MethodPost, "/tasks")
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0].Body, `"due_date":"2026-05-01T00:00:00.000Z"`)
	assert.Contains(t, posts[0].Body, `"assignee_id":null`)
}

func TestEditPrefillsForm(t *testing.T) {
	h := newHarness(t, true)
	seedTasks(h.srv)

	h.send(navigateMsg{to: location{route: routeEdit, id: 3}})
	f, ok := h.m.screen.(*formScreen)
	require.True(t, ok)
	assert.Equal(t, "Cherry", f.title.Value())
	assert.Equal(t, model.StatusInProgress, f.form.Status)
	assert.Len(t, f.form.Assignees, 1)

	h.typeText("!")
	h.key("ctrl+s")
	require.Equal(t, routeList, h.m.loc.route)
	assert.Len(t, h.srv.RequestsTo(http.MethodPut, "/tasks/3"), 1)
}

func TestDetailStates(t *testing.T) {
	h := newHarness(t, true)
	seedTasks(h.srv)

	h.send(navigateMsg{to: location{route: routeDetails, id: 1}})
	view := h.m.View()
	assert.Contains(t, view, "Banana")
	assert.Contains(t, view, "Assigned To")
	assert.Contains(t, view, "report")

	h.key("e")
	assert.Equal(t, routeEdit, h.m.loc.route)

	h.send(navigateMsg{to: location{route: routeDetails, id: 99}})
	assert.Contains(t, h.m.View(), "Task not found")
	h.key("esc")
	assert.Equal(t, routeList, h.m.loc.route)
}

func TestLogoutReturnsToLogin(t *testing.T) {
	h := newHarness(t, true)
	h.key("ctrl+x")

	assert.Equal(t, routeLogin, h.m.loc.route)
	assert.True(t, h.store.Snapshot().Empty())
	assert.NotContains(t, h.m.View(), "Welcome")
}

func TestSessionClearedElsewhereRedirects(t *testing.T) {
	h := newHarness(t, true)
	require.Equal(t, routeList, h.m.loc.route)

	h.send(sessionChangedMsg{session: session.Session{}})
	assert.Equal(t, routeLogin, h.m.loc.route)
}

func TestQuit(t *testing.T) {
	h := newHarness(t, true)
	h.key("ctrl+c")
	assert.True(t, h.quit)

	// "q" is text while an input has focus.
	h = newHarness(t, false)
	h.key("q")
	assert.False(t, h.quit)
	assert.Equal(t, "q", h.m.screen.(*loginScreen).fields.value(loginEmail))

	h = newHarness(t, true)
	h.key("q")
	assert.True(t, h.quit)
}

// stage applies msg but hands back its command unrun, so a result can be
// delivered after the user has moved on.
func (h *harness) stage(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(appModel)
	return cmd
}

func TestEditIgnoresLoadForEarlierScreen(t *testing.T) {
	h := newHarness(t, true)
	seedTasks(h.srv)

	late := h.stage(navigateMsg{to: location{route: routeEdit, id: 1}})
	h.send(navigateMsg{to: location{route: routeEdit, id: 3}})
	h.drain(late)

	f, ok := h.m.screen.(*formScreen)
	require.True(t, ok)
	assert.Equal(t, 3, f.form.ID)
	assert.Equal(t, "Cherry", f.title.Value())

	h.key("ctrl+s")
	assert.Len(t, h.srv.RequestsTo(http.MethodPut, "/tasks/3"), 1)
	assert.Empty(t, h.srv.RequestsTo(http.MethodPut, "/tasks/1"))
}

func TestEditSameTaskTwiceKeepsLatestScreen(t *testing.T) {
	h := newHarness(t, true)
	seedTasks(h.srv)

	late := h.stage(navigateMsg{to: location{route: routeEdit, id: 3}})
	h.send(navigateMsg{to: location{route: routeEdit, id: 3}})
	h.typeText("!")
	h.drain(late)

	f, ok := h.m.screen.(*formScreen)
	require.True(t, ok)
	assert.Equal(t, "Cherry!", f.title.Value(), "typed input must survive a late load")
}

func TestSaveResultForEarlierFormDoesNotNavigate(t *testing.T) {
	h := newHarness(t, true)

	h.send(navigateMsg{to: location{route: routeNew}})
	h.typeText("Draft")
	late := h.stage(tea.KeyMsg{Type: tea.KeyCtrlS})
	h.send(navigateMsg{to: location{route: routeNew}})
	h.drain(late)

	assert.Equal(t, routeNew, h.m.loc.route)
	require.Len(t, h.srv.RequestsTo(http.MethodPost, "/tasks"), 1)
}

func TestDetailIgnoresLoadForEarlierScreen(t *testing.T) {
	h := newHarness(t, true)
	seedTasks(h.srv)

	late := h.stage(navigateMsg{to: location{route: routeDetails, id: 1}})
	h.send(navigateMsg{to: location{route: routeDetails, id: 3}})
	h.drain(late)

	view := h.m.View()
	assert.Contains(t, view, "Cherry")
	assert.NotContains(t, view, "Banana")
}

func TestListIgnoresFetchForEarlierScreen(t *testing.T) {
	h := newHarness(t, true)
	seedTasks(h.srv)

	late := h.stage(navigateMsg{to: location{route: routeList}})
	h.send(navigateMsg{to: location{route: routeList}})
	require.Len(t, h.list().list.Tasks(), 3)

	h.srv.SeedTask(model.Task{Title: "Durian", Status: model.StatusTodo, Priority: model.PriorityLow})
	h.drain(late)

	assert.Len(t, h.list().list.Tasks(), 3)
	assert.NotContains(t, h.list().rowTitles(), "Durian")
}
