package store

import (
	"context"
	"fmt"

	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/model"
	"github.com/jackc/pgx/v5"
)

type pollStore struct {
	q db.DBTX
}

func newPollStore(q db.DBTX) PollStore {
	return &pollStore{q: q}
}

func (s *pollStore) Create(ctx context.Context, p *model.Poll) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO polls (id, question, created_by, end_at, message_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		p.ID, p.Question, p.CreatedBy, p.EndAt, p.MessageID,
	).Scan(&p.CreatedAt)
	if err != nil {
		return mapErr(err)
	}

	batch := &pgx.Batch{}
	for i, opt := range p.Options {
		batch.Queue(`INSERT INTO poll_options (id, poll_id, text, position) VALUES ($1, $2, $3, $4)`,
			opt.ID, p.ID, opt.Text, i)
	}
	if err := s.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting poll options: %w", mapErr(err))
	}
	for i := range p.Options {
		if p.Options[i].Votes == nil {
			p.Options[i].Votes = []string{}
		}
	}
	return nil
}

func (s *pollStore) GetByID(ctx context.Context, id string) (*model.Poll, error) {
	var p model.Poll
	err := s.q.QueryRow(ctx, `
		SELECT id, question, created_by, end_at, message_id, created_at
		FROM polls WHERE id = $1`, id,
	).Scan(&p.ID, &p.Question, &p.CreatedBy, &p.EndAt, &p.MessageID, &p.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := s.loadOptions(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *pollStore) List(ctx context.Context) ([]model.Poll, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, question, created_by, end_at, message_id, created_at
		FROM polls ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	polls, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Poll, error) {
		var p model.Poll
		err := row.Scan(&p.ID, &p.Question, &p.CreatedBy, &p.EndAt, &p.MessageID, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, err
	}
	for i := range polls {
		if err := s.loadOptions(ctx, &polls[i]); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

func (s *pollStore) loadOptions(ctx context.Context, p *model.Poll) error {
	rows, err := s.q.Query(ctx, `
		SELECT o.id, o.text, COALESCE(array_agg(v.user_id ORDER BY v.voted_at) FILTER (WHERE v.user_id IS NOT NULL), '{}')
		FROM poll_options o
		LEFT JOIN poll_votes v ON v.option_id = o.id
		WHERE o.poll_id = $1
		GROUP BY o.id, o.text, o.position
		ORDER BY o.position`, p.ID)
	if err != nil {
		return fmt.Errorf("loading poll options: %w", err)
	}
	opts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PollOption, error) {
		var o model.PollOption
		err := row.Scan(&o.ID, &o.Text, &o.Votes)
		return o, err
	})
	if err != nil {
		return fmt.Errorf("loading poll options: %w", err)
	}
	p.Options = opts
	return nil
}

func (s *pollStore) Vote(ctx context.Context, pollID, optionID, userID string) (*model.Poll, error) {
	tag, err := s.q.Exec(ctx, `
		INSERT INTO poll_votes (poll_id, user_id, option_id)
		SELECT o.poll_id, $3, o.id FROM poll_options o WHERE o.id = $2 AND o.poll_id = $1
		ON CONFLICT (poll_id, user_id) DO UPDATE
			SET option_id = EXCLUDED.option_id,
			    voted_at = CASE WHEN poll_votes.option_id = EXCLUDED.option_id THEN poll_votes.voted_at ELSE now() END`,
		pollID, optionID, userID,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, pollID)
}

func (s *pollStore) DeleteByMessage(ctx context.Context, messageID string) ([]string, error) {
	return collectIDs(ctx, s.q, `DELETE FROM polls WHERE message_id = $1 RETURNING id`, messageID)
}
