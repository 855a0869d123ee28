package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"basegraph.app/chat/internal/http/dto"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

type APIConfig struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// AdminAPIKey is only needed for the seeding calls.
	AdminAPIKey string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// API is a typed client for the chat HTTP routes.
type API struct {
	baseURL     string
	token       string
	adminAPIKey string
	httpClient  *http.Client
}

// APIError is a non-2xx response. It matches the service error sentinels
// through errors.Is so callers can branch the same way on both sides.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat api: %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case service.ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	case service.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case service.ErrConflict:
		return e.StatusCode == http.StatusConflict
	case service.ErrInvalidToken:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

func NewAPI(cfg APIConfig) (*API, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("chat api: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("chat api: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.Token,
		adminAPIKey: cfg.AdminAPIKey,
		httpClient:  httpClient,
	}, nil
}

// SetToken replaces the bearer token, e.g. after Login.
func (a *API) SetToken(token string) {
	a.token = token
}

func (a *API) BaseURL() string {
	return a.baseURL
}

func (a *API) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	if err := a.do(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	req := dto.LoginRequest{Email: email, Password: password}
	if err := a.do(ctx, http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ListUsers(ctx context.Context) ([]model.User, error) {
	var out dto.UserListResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (a *API) SetStatus(ctx context.Context, userID string, status model.UserStatus) (*model.User, error) {
	var out model.User
	path := "/api/v1/users/" + url.PathEscape(userID) + "/status"
	if err := a.do(ctx, http.MethodPatch, path, nil, dto.UpdateStatusRequest{Status: status}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ResetUnread(ctx context.Context, userID string) error {
	return a.do(ctx, http.MethodPost, "/api/v1/users/"+url.PathEscape(userID)+"/unread/reset", nil, nil, nil)
}

func (a *API) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out dto.ProjectListResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/projects", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func (a *API) ListMessages(ctx context.Context, senderID, receiverID string, projectID *string) ([]model.Message, error) {
	q := url.Values{"sender_id": {senderID}, "receiver_id": {receiverID}}
	if projectID != nil {
		q.Set("project_id", *projectID)
	}
	var out dto.MessageListResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/messages", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (a *API) SendMessage(ctx context.Context, req dto.SendMessageRequest) (*model.Message, error) {
	var out model.Message
	if err := a.do(ctx, http.MethodPost, "/api/v1/messages", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) EditMessage(ctx context.Context, messageID, content string) (*model.Message, error) {
	var out model.Message
	path := "/api/v1/messages/" + url.PathEscape(messageID)
	if err := a.do(ctx, http.MethodPatch, path, nil, dto.EditMessageRequest{Content: content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) DeleteMessage(ctx context.Context, messageID string) error {
	return a.do(ctx, http.MethodDelete, "/api/v1/messages/"+url.PathEscape(messageID), nil, nil, nil)
}

func (a *API) ToggleMessage(ctx context.Context, messageID string, flag model.StatusFlag) (*model.Message, error) {
	var out model.Message
	path := "/api/v1/messages/" + url.PathEscape(messageID) + "/toggle"
	if err := a.do(ctx, http.MethodPost, path, nil, dto.ToggleStatusRequest{Field: flag}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) CreateTask(ctx context.Context, messageID string, req dto.CreateTaskRequest) (*model.Task, error) {
	var out model.Task
	path := "/api/v1/messages/" + url.PathEscape(messageID) + "/tasks"
	if err := a.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) CreatePoll(ctx context.Context, messageID string, req dto.CreatePollRequest) (*model.Poll, error) {
	var out model.Poll
	path := "/api/v1/messages/" + url.PathEscape(messageID) + "/polls"
	if err := a.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	var q url.Values
	if filter != "" {
		q = url.Values{"filter": {string(filter)}}
	}
	var out dto.TaskListResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/tasks", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

func (a *API) ToggleTask(ctx context.Context, taskID string) (*model.Task, error) {
	var out model.Task
	if err := a.do(ctx, http.MethodPost, "/api/v1/tasks/"+url.PathEscape(taskID)+"/toggle", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) DeleteTask(ctx context.Context, taskID string) error {
	return a.do(ctx, http.MethodDelete, "/api/v1/tasks/"+url.PathEscape(taskID), nil, nil, nil)
}

func (a *API) ListPolls(ctx context.Context) ([]model.Poll, error) {
	var out dto.PollListResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/polls", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Polls, nil
}

func (a *API) GetPoll(ctx context.Context, pollID string) (*model.Poll, error) {
	var out model.Poll
	if err := a.do(ctx, http.MethodGet, "/api/v1/polls/"+url.PathEscape(pollID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Vote(ctx context.Context, pollID, optionID, userID string) (*model.Poll, error) {
	var out model.Poll
	path := "/api/v1/polls/" + url.PathEscape(pollID) + "/votes"
	if err := a.do(ctx, http.MethodPost, path, nil, dto.VoteRequest{OptionID: optionID, UserID: userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*model.User, error) {
	var out model.User
	if err := a.do(ctx, http.MethodPost, "/api/v1/admin/users", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) CreateProject(ctx context.Context, req dto.CreateProjectRequest) (*model.Project, error) {
	var out model.Project
	if err := a.do(ctx, http.MethodPost, "/api/v1/admin/projects", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends body as JSON and decodes a 2xx response into out when out is
// non-nil.
func (a *API) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	requestURL := a.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("chat api: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return fmt.Errorf("chat api: creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	if a.adminAPIKey != "" && strings.HasPrefix(path, "/api/v1/admin/") {
		req.Header.Set("X-Admin-API-Key", a.adminAPIKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("chat api: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("chat api: decoding %s %s response: %w", method, path, err)
	}
	return nil
}
