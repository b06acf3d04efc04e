// Package fakeapi is an in-memory stand-in for the task backend, used by
// tests across packages.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"taskdesk/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Request is a recorded inbound request.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
	Body          string
}

type failure struct {
	status int
	body   string
}

type Server struct {
	*httptest.Server

	mu        sync.Mutex
	users     []model.User
	passwords map[string]string
	tasks     []model.Task
	nextID    int
	token     string
	requests  []Request
	failures  map[string][]failure
	gate      map[string]chan struct{}
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		passwords: map[string]string{},
		failures:  map[string][]failure{},
		gate:      map[string]chan struct{}{},
		nextID:    1,
	}
	s.token = signToken(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Token is the access token handed out by a successful login.
func (s *Server) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Server) SeedUser(u model.User, password string) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = len(s.users) + 1
	}
	s.users = append(s.users, u)
	s.passwords[strings.ToLower(u.Email)] = password
	return u
}

// SeedTask stores a task as-is; a zero ID is assigned the next free id.
func (s *Server) SeedTask(task model.Task) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == 0 {
		task.ID = s.nextID
	}
	if task.ID >= s.nextID {
		s.nextID = task.ID + 1
	}
	s.tasks = append(s.tasks, task)
	return task
}

func (s *Server) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo filters recorded requests by method and path.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// FailNext makes the next request matching method+path answer with status
// and a raw JSON body.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

// Hold blocks requests to method+path until the returned release func runs.
func (s *Server) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gate[method+" "+path] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gate, method+" "+path)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/auth/users", s.handleListUsers)
		r.Get("/users/{id}", s.handleGetUser)
		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks", s.handleCreateTask)
		r.Get("/tasks/{id}", s.handleGetTask)
		r.Put("/tasks/{id}", s.handleUpdateTask)
		r.Delete("/tasks/{id}", s.handleDeleteTask)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(b)))

		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          string(b),
		})
		gate := s.gate[key]
		var f *failure
		if queue := s.failures[key]; len(queue) > 0 {
			f = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if gate != nil {
			<-gate
		}
		if f != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.Token() {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in model.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(in.Email) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{
			{"msg": "field required", "loc": []any{"body", "email"}},
		}})
		return
	}
	s.mu.Lock()
	_, exists := s.passwords[strings.ToLower(in.Email)]
	s.mu.Unlock()
	if exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := s.SeedUser(model.User{Email: in.Email, FirstName: in.FirstName, LastName: in.LastName}, in.Password)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	email := strings.ToLower(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")

	s.mu.Lock()
	want, ok := s.passwords[email]
	var user model.User
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			user = u
		}
	}
	token := s.token
	s.mu.Unlock()

	if !ok || want != password {
		writeDetail(w, http.StatusBadRequest, "Incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]model.User, len(s.users))
	copy(out, s.users)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if q != "" {
			hay := strings.ToLower(t.Title)
			if t.Description != nil {
				hay += " " + strings.ToLower(*t.Description)
			}
			if !strings.Contains(hay, q) {
				continue
			}
		}
		out = append(out, s.withAssigneeName(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			writeJSON(w, http.StatusOK, s.withAssigneeName(t))
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Task not found")
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeTaskInput(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	t := model.Task{ID: s.nextID, OwnerID: 1, CreatedAt: model.Timestamp{Raw: "2024-01-01T00:00:00", Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}
	s.nextID++
	applyInput(&t, in)
	s.tasks = append(s.tasks, t)
	out := s.withAssigneeName(t)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := decodeTaskInput(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			applyInput(&s.tasks[i], in)
			writeJSON(w, http.StatusOK, s.withAssigneeName(s.tasks[i]))
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Task not found")
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"detail": "Task deleted"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Task not found")
}

// withAssigneeName must be called with s.mu held.
func (s *Server) withAssigneeName(t model.Task) model.Task {
	t.AssigneeName = nil
	if t.AssigneeID == nil {
		return t
	}
	for _, u := range s.users {
		if u.ID == *t.AssigneeID {
			name := u.DisplayName()
			t.AssigneeName = &name
		}
	}
	return t
}

func decodeTaskInput(w http.ResponseWriter, r *http.Request) (model.TaskInput, bool) {
	var in model.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return in, false
	}
	var problems []map[string]any
	if strings.TrimSpace(in.Title) == "" {
		problems = append(problems, map[string]any{"msg": "field required", "loc": []any{"body", "title"}})
	}
	if in.DueDate != nil {
		if _, err := time.Parse(time.RFC3339Nano, *in.DueDate); err != nil {
			problems = append(problems, map[string]any{"msg": "invalid datetime format", "loc": []any{"body", "due_date"}})
		}
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": problems})
		return in, false
	}
	return in, true
}

func applyInput(t *model.Task, in model.TaskInput) {
	t.Title = in.Title
	desc := in.Description
	t.Description = &desc
	t.Status = in.Status
	t.Priority = in.Priority
	t.AssigneeID = in.AssigneeID
	t.DueDate = nil
	if in.DueDate != nil {
		ts, err := model.ParseTimestamp(*in.DueDate)
		if err == nil {
			t.DueDate = &ts
		}
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{
			{"msg": "value is not a valid integer", "loc": []any{"path", "id"}},
		}})
		return 0, false
	}
	return id, true
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func signToken(exp time.Time) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "fakeapi",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("fakeapi-secret"))
	if err != nil {
		panic(fmt.Sprintf("fakeapi: sign token: %v", err))
	}
	return s
}

// SortedTaskIDs is a small helper for assertions that ignore order.
func SortedTaskIDs(tasks []model.Task) []int {
	ids := make([]int, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	sort.Ints(ids)
	return ids
}
