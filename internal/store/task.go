package store

import (
	"context"

	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/model"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, title, completed, assigned_to, due_at, project_id, message_id, created_at`

type taskStore struct {
	q db.DBTX
}

func newTaskStore(q db.DBTX) TaskStore {
	return &taskStore{q: q}
}

func (s *taskStore) Create(ctx context.Context, t *model.Task) error {
	assigned := t.AssignedTo
	if assigned == nil {
		assigned = []string{}
	}
	row := s.q.QueryRow(ctx, `
		INSERT INTO tasks (id, title, completed, assigned_to, due_at, project_id, message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+taskColumns,
		t.ID, t.Title, t.Completed, assigned, t.DueAt, t.ProjectID, t.MessageID,
	)
	created, err := scanTask(row)
	if err != nil {
		return mapErr(err)
	}
	*t = *created
	return nil
}

func (s *taskStore) GetByID(ctx context.Context, id string) (*model.Task, error) {
	t, err := scanTask(s.q.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (s *taskStore) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	switch filter {
	case model.TaskFilterActive:
		query += ` WHERE NOT completed`
	case model.TaskFilterCompleted:
		query += ` WHERE completed`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *taskStore) ToggleComplete(ctx context.Context, id string) (*model.Task, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE tasks SET completed = NOT completed WHERE id = $1
		RETURNING `+taskColumns, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (s *taskStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *taskStore) DeleteByMessage(ctx context.Context, messageID string) ([]string, error) {
	return collectIDs(ctx, s.q, `DELETE FROM tasks WHERE message_id = $1 RETURNING id`, messageID)
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	if err := row.Scan(&t.ID, &t.Title, &t.Completed, &t.AssignedTo, &t.DueAt, &t.ProjectID, &t.MessageID, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func collectIDs(ctx context.Context, q db.DBTX, sql string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
