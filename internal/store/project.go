package store

import (
	"context"

	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/model"
)

type projectStore struct {
	q db.DBTX
}

func newProjectStore(q db.DBTX) ProjectStore {
	return &projectStore{q: q}
}

func (s *projectStore) Create(ctx context.Context, p *model.Project) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO projects (id, name, color, description)
		VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.Color, p.Description,
	)
	return mapErr(err)
}

func (s *projectStore) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.q.QueryRow(ctx, `SELECT id, name, color, description FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Color, &p.Description)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *projectStore) List(ctx context.Context) ([]model.Project, error) {
	rows, err := s.q.Query(ctx, `SELECT id, name, color, description FROM projects ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Color, &p.Description); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
