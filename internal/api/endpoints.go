package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"taskdesk/internal/model"
)

const loginPath = "/auth/login"

type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type,omitempty"`
	User        model.User `json:"user"`
}

func (c *Client) Signup(ctx context.Context, in model.SignupInput) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/signup", nil, in, nil)
}

// Login submits form-encoded credentials (the backend's OAuth2 password flow
// uses "username" for the email).
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var out LoginResponse
	if err := c.doForm(ctx, loginPath, form, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("login: response has no access_token")
	}
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser returns nil, nil when the backend answers with an empty body.
func (c *Client) GetUser(ctx context.Context, id int) (*model.User, error) {
	var out *model.User
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTasks always sends the search parameter, empty or not.
func (c *Client) ListTasks(ctx context.Context, search string) ([]model.Task, error) {
	q := url.Values{}
	q.Set("search", search)
	var out []model.Task
	if err := c.doJSON(ctx, http.MethodGet, "/tasks", q, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Task{}
	}
	return out, nil
}

// GetTask returns nil, nil when the backend answers with an empty body.
func (c *Client) GetTask(ctx context.Context, id int) (*model.Task, error) {
	var out *model.Task
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, in model.TaskInput) (*model.Task, error) {
	var out *model.Task
	if err := c.doJSON(ctx, http.MethodPost, "/tasks", nil, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateTask(ctx context.Context, id int, in model.TaskInput) (*model.Task, error) {
	var out *model.Task
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d", id), nil, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, nil, nil)
}
