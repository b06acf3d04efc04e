package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"taskdesk/internal/model"
	"taskdesk/internal/testutil/fakeapi"
)

type cliEnv struct {
	srv      *fakeapi.Server
	stateDir string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{"TASKDESK_API_URL", "TASKDESK_STATE_DIR", "TASKDESK_TIMEOUT", "TASKDESK_LOG_LEVEL", "TASKDESK_FORMAT", "TASKDESK_EMAIL"} {
		t.Setenv(k, "")
	}
	srv := fakeapi.New(t)
	srv.SeedUser(model.User{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}, "secret")
	return cliEnv{srv: srv, stateDir: t.TempDir()}
}

func runCLI(t *testing.T, env cliEnv, args ...string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	app := newApp()
	app.interactive = func() bool { return false }
	t.Cleanup(app.close)
	cmd := newRootCmd(app)

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	base := []string{"--api-url", env.srv.URL, "--state-dir", env.stateDir, "--env-file", "", "--format", "json"}
	cmd.SetArgs(append(base, args...))

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

func login(t *testing.T, env cliEnv) {
	t.Helper()
	if _, stderr, err := runCLI(t, env, "login", "--email", "ada@example.com", "--password", "secret"); err != nil {
		t.Fatalf("login: %v\nstderr: %s", err, stderr)
	}
}

func decodeData(t *testing.T, out []byte) any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("invalid json output %q: %v", out, err)
	}
	data, ok := env["data"]
	if !ok {
		t.Fatalf("missing data envelope: %s", out)
	}
	return data
}

func TestProtectedCommandsRequireLogin(t *testing.T) {
	env := newCLIEnv(t)

	for _, args := range [][]string{{"tasks", "list"}, {"whoami"}, {"users", "list"}, {"tasks", "show", "1"}} {
		_, stderr, err := runCLI(t, env, args...)
		if err == nil {
			t.Fatalf("%v: expected error without a session", args)
		}
		if got := ExitCode(err); got != ExitUnauthorized {
			t.Fatalf("%v: exit code %d, want %d", args, got, ExitUnauthorized)
		}
		if !strings.Contains(string(stderr), "taskdesk login") {
			t.Fatalf("%v: stderr should point at login, got %q", args, stderr)
		}
	}
	if n := len(env.srv.Requests()); n != 0 {
		t.Fatalf("guarded commands must not hit the backend, saw %d requests", n)
	}
}

func TestLoginPersistsSessionAcrossInvocations(t *testing.T) {
	env := newCLIEnv(t)
	login(t, env)

	out, _, err := runCLI(t, env, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	data := decodeData(t, out).(map[string]any)
	user := data["user"].(map[string]any)
	if user["email"] != "ada@example.com" {
		t.Fatalf("whoami user = %#v", user)
	}
	if data["tokenExpiresAt"] == nil {
		t.Fatalf("expected token expiry from the jwt, got %#v", data)
	}

	if _, _, err := runCLI(t, env, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := runCLI(t, env, "whoami"); ExitCode(err) != ExitUnauthorized {
		t.Fatalf("after logout: err=%v", err)
	}
}

func TestLoginFailure(t *testing.T) {
	env := newCLIEnv(t)
	_, stderr, err := runCLI(t, env, "login", "--email", "ada@example.com", "--password", "wrong")
	if err == nil {
		t.Fatalf("expected login failure")
	}
	if strings.TrimSpace(string(stderr)) != "Incorrect email or password" {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestLoginWithoutTerminalNeedsFlags(t *testing.T) {
	env := newCLIEnv(t)
	_, _, err := runCLI(t, env, "login")
	if got := ExitCode(err); got != ExitUsage {
		t.Fatalf("exit code %d, want %d (err=%v)", got, ExitUsage, err)
	}
}

func TestTasksListSortsClientSide(t *testing.T) {
	env := newCLIEnv(t)
	env.srv.SeedTask(model.Task{ID: 1, Title: "B", Status: model.StatusTodo, Priority: model.PriorityLow})
	env.srv.SeedTask(model.Task{ID: 2, Title: "a", Status: model.StatusTodo, Priority: model.PriorityLow})
	login(t, env)

	out, _, err := runCLI(t, env, "tasks", "list", "--sort", "title")
	if err != nil {
		t.Fatalf("tasks list: %v", err)
	}
	items := decodeData(t, out).([]any)
	if len(items) != 2 || items[0].(map[string]any)["id"].(float64) != 2 {
		t.Fatalf("unexpected order: %#v", items)
	}

	out, _, err = runCLI(t, env, "tasks", "list", "--sort", "title", "--desc", "--search", "b")
	if err != nil {
		t.Fatalf("tasks list: %v", err)
	}
	items = decodeData(t, out).([]any)
	if len(items) != 1 {
		t.Fatalf("search should filter on the backend: %#v", items)
	}
	reqs := env.srv.RequestsTo(http.MethodGet, "/tasks")
	if reqs[len(reqs)-1].Query != "search=b" {
		t.Fatalf("query = %q", reqs[len(reqs)-1].Query)
	}
}

func TestTasksListBadSortKeyIsUsage(t *testing.T) {
	env := newCLIEnv(t)
	login(t, env)
	_, _, err := runCLI(t, env, "tasks", "list", "--sort", "owner")
	if got := ExitCode(err); got != ExitUsage {
		t.Fatalf("exit code %d, want %d", got, ExitUsage)
	}
}

func TestTasksLifecycle(t *testing.T) {
	env := newCLIEnv(t)
	login(t, env)

	out, stderr, err := runCLI(t, env, "tasks", "create", "--title", "Write report", "--due", "2024-06-01", "--priority", "high", "--assignee", "1")
	if err != nil {
		t.Fatalf("create: %v\n%s", err, stderr)
	}
	task := decodeData(t, out).(map[string]any)["task"].(map[string]any)
	if task["due_date"] != "2024-06-01T00:00:00.000Z" || task["priority"] != "High" {
		t.Fatalf("created task = %#v", task)
	}

	if _, stderr, err := runCLI(t, env, "tasks", "edit", "1", "--status", "done"); err != nil {
		t.Fatalf("edit: %v\n%s", err, stderr)
	}
	got := env.srv.Tasks()[0]
	if got.Status != model.StatusCompleted || got.Title != "Write report" || got.AssigneeID == nil {
		t.Fatalf("edit should only change status: %#v", got)
	}

	out, _, err = runCLI(t, env, "tasks", "show", "1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	assignee := decodeData(t, out).(map[string]any)["assignee"].(map[string]any)
	if assignee["email"] != "ada@example.com" {
		t.Fatalf("assignee = %#v", assignee)
	}

	if _, _, err := runCLI(t, env, "tasks", "delete", "1"); ExitCode(err) != ExitUsage {
		t.Fatalf("delete without --yes and no terminal must refuse, err=%v", err)
	}
	if _, _, err := runCLI(t, env, "tasks", "delete", "1", "--yes"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := len(env.srv.Tasks()); n != 0 {
		t.Fatalf("expected task to be gone, have %d", n)
	}

	if _, _, err := runCLI(t, env, "tasks", "show", "1"); ExitCode(err) != ExitNotFound {
		t.Fatalf("show deleted: err=%v code=%d", err, ExitCode(err))
	}
}

func TestTasksCreateValidation(t *testing.T) {
	env := newCLIEnv(t)
	login(t, env)
	before := len(env.srv.Requests())

	_, stderr, err := runCLI(t, env, "tasks", "create")
	if got := ExitCode(err); got != ExitValidation {
		t.Fatalf("exit code %d, want %d", got, ExitValidation)
	}
	if strings.TrimSpace(string(stderr)) != "title: field required" {
		t.Fatalf("stderr = %q", stderr)
	}
	if len(env.srv.Requests()) != before {
		t.Fatalf("local validation must not call the backend")
	}

	env.srv.FailNext(http.MethodPost, "/tasks", http.StatusUnprocessableEntity, `{"detail":[{"msg":"bad","loc":["body","priority"]}]}`)
	_, stderr, err = runCLI(t, env, "tasks", "create", "--title", "x")
	if got := ExitCode(err); got != ExitValidation {
		t.Fatalf("exit code %d, want %d", got, ExitValidation)
	}
	if strings.TrimSpace(string(stderr)) != "priority: bad" {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestUnauthorizedClearsStoredSession(t *testing.T) {
	env := newCLIEnv(t)
	login(t, env)

	env.srv.FailNext(http.MethodGet, "/tasks", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
	_, _, err := runCLI(t, env, "tasks", "list")
	if got := ExitCode(err); got != ExitUnauthorized {
		t.Fatalf("exit code %d, want %d", got, ExitUnauthorized)
	}
	if _, _, err := runCLI(t, env, "whoami"); ExitCode(err) != ExitUnauthorized {
		t.Fatalf("session should be gone after a 401, err=%v", err)
	}
}

func TestSignup(t *testing.T) {
	env := newCLIEnv(t)

	_, stderr, err := runCLI(t, env, "signup", "--email", "g@example.com", "--password", "a", "--confirm-password", "b")
	if got := ExitCode(err); got != ExitValidation {
		t.Fatalf("mismatch exit code %d", got)
	}
	if strings.TrimSpace(string(stderr)) != "Passwords do not match" {
		t.Fatalf("stderr = %q", stderr)
	}
	if len(env.srv.RequestsTo(http.MethodPost, "/auth/signup")) != 0 {
		t.Fatalf("mismatch must not call the backend")
	}

	if _, stderr, err := runCLI(t, env, "signup", "--first-name", "Grace", "--email", "g@example.com", "--password", "pw"); err != nil {
		t.Fatalf("signup: %v\n%s", err, stderr)
	}
	_, stderr, err = runCLI(t, env, "signup", "--email", "g@example.com", "--password", "pw")
	if err == nil || strings.TrimSpace(string(stderr)) != "Email already registered" {
		t.Fatalf("duplicate signup: err=%v stderr=%q", err, stderr)
	}
}

func TestUsersListTable(t *testing.T) {
	env := newCLIEnv(t)
	login(t, env)
	out, _, err := runCLI(t, env, "users", "list", "--format", "table")
	if err != nil {
		t.Fatalf("users list: %v", err)
	}
	if !strings.Contains(string(out), "ada@example.com") || !strings.Contains(string(out), "Ada Lovelace") {
		t.Fatalf("table output:\n%s", out)
	}
}

func TestUnknownCommandIsUsage(t *testing.T) {
	env := newCLIEnv(t)
	_, _, err := runCLI(t, env, "wat")
	if got := ExitCode(err); got != ExitUsage {
		t.Fatalf("exit code %d, want %d", got, ExitUsage)
	}
}

func TestConfigSetPersistsOnlyTheFile(t *testing.T) {
	env := newCLIEnv(t)

	if _, stderr, err := runCLI(t, env, "config", "set", "log_level", "debug"); err != nil {
		t.Fatalf("config set: %v\nstderr: %s", err, stderr)
	}
	out, stderr, err := runCLI(t, env, "config", "set", "timeout", "45s")
	if err != nil {
		t.Fatalf("config set: %v\nstderr: %s", err, stderr)
	}
	saved := decodeData(t, out).(map[string]any)
	if saved["log_level"] != "debug" || saved["timeout"] != "45s" {
		t.Fatalf("saved settings = %v", saved)
	}
	// --api-url is passed on every run but must not be written to the file.
	if saved["api_url"] != "" {
		t.Fatalf("api_url leaked into the file: %v", saved["api_url"])
	}

	out, _, err = runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	shown := decodeData(t, out).(map[string]any)
	if shown["api_url"] != env.srv.URL {
		t.Errorf("api_url = %v, want flag value %s", shown["api_url"], env.srv.URL)
	}
	if shown["log_level"] != "debug" || shown["timeout"] != "45s" {
		t.Errorf("resolved settings = %v", shown)
	}
	if p, _ := shown["path"].(string); !strings.HasSuffix(p, "config.yaml") {
		t.Errorf("path = %v", shown["path"])
	}
}

func TestConfigSetRejectsBadInput(t *testing.T) {
	env := newCLIEnv(t)

	for _, args := range [][]string{
		{"config", "set", "colour", "blue"},
		{"config", "set", "timeout", "soon"},
		{"config", "set", "api_url", "ftp://x"},
		{"config", "set", "timeout"},
	} {
		_, _, err := runCLI(t, env, args...)
		if got := ExitCode(err); got != ExitUsage {
			t.Fatalf("%v: exit code %d, want %d (err %v)", args, got, ExitUsage, err)
		}
	}
	out, _, err := runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if got := decodeData(t, out).(map[string]any)["timeout"]; got != "30s" {
		t.Fatalf("timeout = %v, want default after rejected writes", got)
	}
}

func TestWhoamiReportsClientBaseURL(t *testing.T) {
	env := newCLIEnv(t)
	login(t, env)

	out, _, err := runCLI(t, env, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	data := decodeData(t, out).(map[string]any)
	if data["apiUrl"] != env.srv.URL {
		t.Fatalf("apiUrl = %v, want %s", data["apiUrl"], env.srv.URL)
	}
}
