package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"basegraph.app/chat/common/id"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
)

type CreateUserParams struct {
	ID     string
	Name   string
	Role   string
	Avatar string
}

type CreateProjectParams struct {
	ID          string
	Name        string
	Color       string
	Description string
}

// DirectoryService manages the user and project reference data that admins
// seed.
type DirectoryService interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	CreateProject(ctx context.Context, params CreateProjectParams) (*model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
}

type directoryService struct {
	users    store.UserStore
	projects store.ProjectStore
}

func NewDirectoryService(users store.UserStore, projects store.ProjectStore) DirectoryService {
	return &directoryService{users: users, projects: projects}
}

func (s *directoryService) CreateUser(ctx context.Context, params CreateUserParams) (*model.User, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, invalid("name", "must not be empty")
	}
	userID := params.ID
	if userID == "" {
		userID = id.NewString()
	}
	if userID == model.ReceiverAll {
		return nil, invalid("id", fmt.Sprintf("%q is reserved", model.ReceiverAll))
	}
	role := params.Role
	if role == "" {
		role = "member"
	}

	user := &model.User{
		ID:     userID,
		Name:   name,
		Role:   role,
		Avatar: params.Avatar,
		Status: model.UserStatusOffline,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeErr(err, "creating user", "user", userID)
	}

	slog.InfoContext(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *directoryService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "getting user", "user", userID)
	}
	return user, nil
}

func (s *directoryService) CreateProject(ctx context.Context, params CreateProjectParams) (*model.Project, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, invalid("name", "must not be empty")
	}
	projectID := params.ID
	if projectID == "" {
		projectID = id.NewString()
	}

	project := &model.Project{
		ID:          projectID,
		Name:        name,
		Color:       params.Color,
		Description: params.Description,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, storeErr(err, "creating project", "project", projectID)
	}

	slog.InfoContext(ctx, "project created", "project_id", project.ID)
	return project, nil
}

func (s *directoryService) ListProjects(ctx context.Context) ([]model.Project, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	if projects == nil {
		projects = []model.Project{}
	}
	return projects, nil
}
