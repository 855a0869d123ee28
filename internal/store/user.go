package store

import (
	"context"

	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/model"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, role, avatar, status, created_at, updated_at`

type userStore struct {
	q db.DBTX
}

func newUserStore(q db.DBTX) UserStore {
	return &userStore{q: q}
}

func (s *userStore) Create(ctx context.Context, user *model.User) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO users (id, name, role, avatar, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		user.ID, user.Name, user.Role, user.Avatar, string(user.Status),
	)
	created, err := scanUser(row)
	if err != nil {
		return mapErr(err)
	}
	*user = *created
	return nil
}

func (s *userStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (s *userStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *userStore) UpdateStatus(ctx context.Context, id string, status model.UserStatus) (*model.User, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE users SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, string(status),
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u      model.User
		status string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Role, &u.Avatar, &status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Status = model.UserStatus(status)
	return &u, nil
}
