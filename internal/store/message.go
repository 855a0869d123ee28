package store

import (
	"context"
	"fmt"

	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/model"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, seq, sender_id, receiver_id, content, kind, file_url, file_name, ref_id,
	project_id, reply_to, is_read, is_done, is_edited, version, created_at`

type messageStore struct {
	q db.DBTX
}

func newMessageStore(q db.DBTX) MessageStore {
	return &messageStore{q: q}
}

func (s *messageStore) Create(ctx context.Context, msg *model.Message) error {
	att, _ := model.AttachmentOf(msg.Body)
	err := s.q.QueryRow(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, kind, file_url, file_name, ref_id,
			project_id, reply_to, is_read, is_done, is_edited, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING seq`,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, string(msg.Kind()),
		att.URL, att.FileName, model.RefOf(msg.Body),
		msg.ProjectID, msg.ReplyTo, msg.IsRead, msg.IsDone, msg.IsEdited, msg.Version, msg.Timestamp,
	).Scan(&msg.Seq)
	return mapErr(err)
}

func (s *messageStore) GetByID(ctx context.Context, id string) (*model.Message, error) {
	row := s.q.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	m, err := scanMessage(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return m, nil
}

func (s *messageStore) ListConversation(ctx context.Context, a, b string, projectID *string) ([]model.Message, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE ((sender_id = $1 AND receiver_id = $2)
			OR (sender_id = $2 AND receiver_id = $1)
			OR receiver_id = $3)
		  AND ($4::text IS NULL OR project_id = $4)
		ORDER BY created_at ASC, seq ASC`,
		a, b, model.ReceiverAll, projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func (s *messageStore) UpdateContent(ctx context.Context, id, content string) (*model.Message, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE messages SET content = $2, is_edited = true, version = version + 1
		WHERE id = $1
		RETURNING `+messageColumns,
		id, content,
	)
	m, err := scanMessage(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return m, nil
}

func (s *messageStore) ToggleFlag(ctx context.Context, id string, flag model.StatusFlag) (*model.Message, error) {
	var query string
	switch flag {
	case model.StatusFlagRead:
		query = `UPDATE messages SET is_read = NOT is_read, version = version + 1 WHERE id = $1 RETURNING ` + messageColumns
	case model.StatusFlagDone:
		query = `UPDATE messages SET is_done = NOT is_done, version = version + 1 WHERE id = $1 RETURNING ` + messageColumns
	default:
		return nil, fmt.Errorf("unknown status flag %q", flag)
	}
	m, err := scanMessage(s.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return m, nil
}

func (s *messageStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanMessage(row pgx.Row) (*model.Message, error) {
	var m model.Message
	var kind, fileURL, fileName, refID string
	err := row.Scan(
		&m.ID, &m.Seq, &m.SenderID, &m.ReceiverID, &m.Content,
		&kind, &fileURL, &fileName, &refID,
		&m.ProjectID, &m.ReplyTo, &m.IsRead, &m.IsDone, &m.IsEdited, &m.Version, &m.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	body, err := model.NewBody(model.MessageKind(kind), model.Attachment{URL: fileURL, FileName: fileName}, refID)
	if err != nil {
		return nil, fmt.Errorf("decoding message %s: %w", m.ID, err)
	}
	m.Body = body
	return &m, nil
}
