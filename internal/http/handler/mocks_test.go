package handler_test

import (
	"context"

	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
)

type mockLedgerService struct {
	sendFn         func(ctx context.Context, params service.SendParams) (*model.Message, error)
	editFn         func(ctx context.Context, messageID, content string) (*model.Message, error)
	deleteFn       func(ctx context.Context, messageID string) error
	toggleStatusFn func(ctx context.Context, messageID string, flag model.StatusFlag) (*model.Message, error)
	queryFn        func(ctx context.Context, a, b string, projectID *string) ([]model.Message, error)
}

func (m *mockLedgerService) Send(ctx context.Context, params service.SendParams) (*model.Message, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, params)
	}
	return nil, nil
}

func (m *mockLedgerService) Edit(ctx context.Context, messageID, content string) (*model.Message, error) {
	if m.editFn != nil {
		return m.editFn(ctx, messageID, content)
	}
	return nil, nil
}

func (m *mockLedgerService) Delete(ctx context.Context, messageID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, messageID)
	}
	return nil
}

func (m *mockLedgerService) ToggleStatus(ctx context.Context, messageID string, flag model.StatusFlag) (*model.Message, error) {
	if m.toggleStatusFn != nil {
		return m.toggleStatusFn(ctx, messageID, flag)
	}
	return nil, nil
}

func (m *mockLedgerService) Query(ctx context.Context, a, b string, projectID *string) ([]model.Message, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, a, b, projectID)
	}
	return nil, nil
}

type mockIndexService struct {
	createTaskFn func(ctx context.Context, messageID string, params service.TaskParams) (*model.Task, error)
	createPollFn func(ctx context.Context, messageID string, params service.PollParams) (*model.Poll, error)
	voteFn       func(ctx context.Context, pollID, optionID, userID string) (*model.Poll, error)
	toggleTaskFn func(ctx context.Context, taskID string) (*model.Task, error)
	deleteTaskFn func(ctx context.Context, taskID string) error
	listTasksFn  func(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	getPollFn    func(ctx context.Context, pollID string) (*model.Poll, error)
	listPollsFn  func(ctx context.Context) ([]model.Poll, error)
}

func (m *mockIndexService) CreateTaskFromMessage(ctx context.Context, messageID string, params service.TaskParams) (*model.Task, error) {
	if m.createTaskFn != nil {
		return m.createTaskFn(ctx, messageID, params)
	}
	return nil, nil
}

func (m *mockIndexService) CreatePollFromMessage(ctx context.Context, messageID string, params service.PollParams) (*model.Poll, error) {
	if m.createPollFn != nil {
		return m.createPollFn(ctx, messageID, params)
	}
	return nil, nil
}

func (m *mockIndexService) Vote(ctx context.Context, pollID, optionID, userID string) (*model.Poll, error) {
	if m.voteFn != nil {
		return m.voteFn(ctx, pollID, optionID, userID)
	}
	return nil, nil
}

func (m *mockIndexService) ToggleTaskComplete(ctx context.Context, taskID string) (*model.Task, error) {
	if m.toggleTaskFn != nil {
		return m.toggleTaskFn(ctx, taskID)
	}
	return nil, nil
}

func (m *mockIndexService) DeleteTask(ctx context.Context, taskID string) error {
	if m.deleteTaskFn != nil {
		return m.deleteTaskFn(ctx, taskID)
	}
	return nil
}

func (m *mockIndexService) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	if m.listTasksFn != nil {
		return m.listTasksFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockIndexService) GetPoll(ctx context.Context, pollID string) (*model.Poll, error) {
	if m.getPollFn != nil {
		return m.getPollFn(ctx, pollID)
	}
	return nil, nil
}

func (m *mockIndexService) ListPolls(ctx context.Context) ([]model.Poll, error) {
	if m.listPollsFn != nil {
		return m.listPollsFn(ctx)
	}
	return nil, nil
}

func (m *mockIndexService) OnMessageDeleted(context.Context, service.StoreProvider, string) (service.DeletedRefs, error) {
	return service.DeletedRefs{}, nil
}

type mockPresenceService struct {
	setStatusFn   func(ctx context.Context, userID string, status model.UserStatus) (*model.User, error)
	resetUnreadFn func(ctx context.Context, userID string) error
	listUsersFn   func(ctx context.Context) ([]model.User, error)
}

func (m *mockPresenceService) SetStatus(ctx context.Context, userID string, status model.UserStatus) (*model.User, error) {
	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, userID, status)
	}
	return nil, nil
}

func (m *mockPresenceService) OnMessageDelivered(context.Context, *model.Message) error {
	return nil
}

func (m *mockPresenceService) ResetUnread(ctx context.Context, userID string) error {
	if m.resetUnreadFn != nil {
		return m.resetUnreadFn(ctx, userID)
	}
	return nil
}

func (m *mockPresenceService) ListUsers(ctx context.Context) ([]model.User, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return nil, nil
}

type mockAuthService struct {
	registerFn func(ctx context.Context, params service.RegisterParams) (*service.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*service.AuthResult, error)
}

func (m *mockAuthService) Register(ctx context.Context, params service.RegisterParams) (*service.AuthResult, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, params)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*service.AuthResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) ValidateToken(string) (string, error) {
	return "", service.ErrInvalidToken
}
