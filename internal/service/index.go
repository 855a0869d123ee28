package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/chat/common/id"
	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/internal/model"
)

type TaskParams struct {
	AssignedTo []string
	DueAt      *time.Time
	// ProjectID defaults to the source message's project.
	ProjectID *string
}

type PollParams struct {
	Question  string
	Options   []string
	CreatedBy string
	EndAt     *time.Time
}

// DeletedRefs lists the derived entities removed with a message.
type DeletedRefs struct {
	TaskIDs []string
	PollIDs []string
}

// IndexService manages tasks and polls derived from messages.
type IndexService interface {
	CreateTaskFromMessage(ctx context.Context, messageID string, params TaskParams) (*model.Task, error)
	CreatePollFromMessage(ctx context.Context, messageID string, params PollParams) (*model.Poll, error)
	Vote(ctx context.Context, pollID, optionID, userID string) (*model.Poll, error)
	ToggleTaskComplete(ctx context.Context, taskID string) (*model.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	GetPoll(ctx context.Context, pollID string) (*model.Poll, error)
	ListPolls(ctx context.Context) ([]model.Poll, error)
	// OnMessageDeleted removes every task and poll referencing messageID
	// using the caller's transaction.
	OnMessageDeleted(ctx context.Context, stores StoreProvider, messageID string) (DeletedRefs, error)
}

type indexService struct {
	stores StoreProvider
	tx     TxRunner
	events EventSink
	clock  *Clock
}

func NewIndexService(stores StoreProvider, tx TxRunner, events EventSink, clock *Clock) IndexService {
	if events == nil {
		events = NopSink()
	}
	if clock == nil {
		clock = NewClock(nil)
	}
	return &indexService{stores: stores, tx: tx, events: events, clock: clock}
}

func (s *indexService) CreateTaskFromMessage(ctx context.Context, messageID string, params TaskParams) (*model.Task, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr(messageID), Component: "chat.service.index"})

	var task *model.Task
	err := s.tx.WithTx(ctx, func(sp StoreProvider) error {
		msg, err := sp.Messages().GetByID(ctx, messageID)
		if err != nil {
			return storeErr(err, "getting message", "message", messageID)
		}

		title := msg.Content
		if title == "" {
			if att, ok := model.AttachmentOf(msg.Body); ok {
				title = att.FileName
			}
		}
		projectID := params.ProjectID
		if projectID == nil {
			projectID = msg.ProjectID
		}
		assigned := params.AssignedTo
		if assigned == nil {
			assigned = []string{}
		}

		task = &model.Task{
			ID:         id.NewString(),
			Title:      title,
			AssignedTo: assigned,
			DueAt:      params.DueAt,
			ProjectID:  projectID,
			MessageID:  &msg.ID,
		}
		if err := sp.Tasks().Create(ctx, task); err != nil {
			return storeErr(err, "creating task", "message", messageID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, model.Event{Type: model.EventTaskCreated, Task: task, MessageID: messageID, At: s.clock.Now()})
	slog.InfoContext(ctx, "task created from message", "task_id", task.ID, "assignees", len(task.AssignedTo))
	return task, nil
}

func (s *indexService) CreatePollFromMessage(ctx context.Context, messageID string, params PollParams) (*model.Poll, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr(messageID), Component: "chat.service.index"})

	question := strings.TrimSpace(params.Question)
	if question == "" {
		return nil, invalid("question", "must not be empty")
	}
	var texts []string
	for _, opt := range params.Options {
		if opt = strings.TrimSpace(opt); opt != "" {
			texts = append(texts, opt)
		}
	}
	if len(texts) < 2 {
		return nil, invalid("options", "a poll needs at least two options")
	}
	if strings.TrimSpace(params.CreatedBy) == "" {
		return nil, invalid("created_by", "must not be empty")
	}

	poll := &model.Poll{
		ID:        id.NewString(),
		Question:  question,
		CreatedBy: params.CreatedBy,
		EndAt:     params.EndAt,
		MessageID: messageID,
	}
	for _, text := range texts {
		poll.Options = append(poll.Options, model.PollOption{ID: id.NewString(), Text: text, Votes: []string{}})
	}

	err := s.tx.WithTx(ctx, func(sp StoreProvider) error {
		if _, err := sp.Messages().GetByID(ctx, messageID); err != nil {
			return storeErr(err, "getting message", "message", messageID)
		}
		if err := sp.Polls().Create(ctx, poll); err != nil {
			return storeErr(err, "creating poll", "message", messageID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, model.Event{Type: model.EventPollCreated, Poll: poll, MessageID: messageID, At: s.clock.Now()})
	slog.InfoContext(ctx, "poll created from message", "poll_id", poll.ID, "options", len(poll.Options))
	return poll, nil
}

func (s *indexService) Vote(ctx context.Context, pollID, optionID, userID string) (*model.Poll, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("user_id", "must not be empty")
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(userID), Component: "chat.service.index"})

	var poll *model.Poll
	err := s.tx.WithTx(ctx, func(sp StoreProvider) error {
		current, err := sp.Polls().GetByID(ctx, pollID)
		if err != nil {
			return storeErr(err, "getting poll", "poll", pollID)
		}
		if current.Closed(s.clock.Now()) {
			return invalid("poll", "voting has closed")
		}
		if _, ok := current.Option(optionID); !ok {
			return &NotFoundError{Entity: "option", ID: optionID}
		}
		poll, err = sp.Polls().Vote(ctx, pollID, optionID, userID)
		if err != nil {
			return storeErr(err, "recording vote", "option", optionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, model.Event{Type: model.EventPollVoted, Poll: poll, MessageID: poll.MessageID, At: s.clock.Now()})
	return poll, nil
}

func (s *indexService) ToggleTaskComplete(ctx context.Context, taskID string) (*model.Task, error) {
	task, err := s.stores.Tasks().ToggleComplete(ctx, taskID)
	if err != nil {
		return nil, storeErr(err, "toggling task", "task", taskID)
	}
	s.events.Publish(ctx, model.Event{Type: model.EventTaskUpdated, Task: task, At: s.clock.Now()})
	return task, nil
}

func (s *indexService) DeleteTask(ctx context.Context, taskID string) error {
	removed, err := s.stores.Tasks().Delete(ctx, taskID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if removed {
		s.events.Publish(ctx, model.Event{Type: model.EventTaskDeleted, TaskID: taskID, At: s.clock.Now()})
	}
	return nil
}

func (s *indexService) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	tasks, err := s.stores.Tasks().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

func (s *indexService) GetPoll(ctx context.Context, pollID string) (*model.Poll, error) {
	poll, err := s.stores.Polls().GetByID(ctx, pollID)
	if err != nil {
		return nil, storeErr(err, "getting poll", "poll", pollID)
	}
	return poll, nil
}

func (s *indexService) ListPolls(ctx context.Context) ([]model.Poll, error) {
	polls, err := s.stores.Polls().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing polls: %w", err)
	}
	if polls == nil {
		polls = []model.Poll{}
	}
	return polls, nil
}

func (s *indexService) OnMessageDeleted(ctx context.Context, stores StoreProvider, messageID string) (DeletedRefs, error) {
	var refs DeletedRefs
	var err error
	if refs.TaskIDs, err = stores.Tasks().DeleteByMessage(ctx, messageID); err != nil {
		return DeletedRefs{}, fmt.Errorf("deleting tasks for message: %w", err)
	}
	if refs.PollIDs, err = stores.Polls().DeleteByMessage(ctx, messageID); err != nil {
		return DeletedRefs{}, fmt.Errorf("deleting polls for message: %w", err)
	}
	return refs, nil
}
