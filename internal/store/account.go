package store

import (
	"context"

	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/model"
)

type accountStore struct {
	q db.DBTX
}

func newAccountStore(q db.DBTX) AccountStore {
	return &accountStore{q: q}
}

func (s *accountStore) Create(ctx context.Context, account *model.Account) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO accounts (user_id, email, password_hash)
		VALUES ($1, lower($2), $3)
		RETURNING email, created_at`,
		account.UserID, account.Email, account.PasswordHash,
	).Scan(&account.Email, &account.CreatedAt)
	return mapErr(err)
}

func (s *accountStore) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account
	err := s.q.QueryRow(ctx, `
		SELECT user_id, email, password_hash, created_at
		FROM accounts WHERE email = lower($1)`, email,
	).Scan(&a.UserID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}
