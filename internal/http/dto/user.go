package dto

import (
	"time"

	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
)

type UpdateStatusRequest struct {
	Status model.UserStatus `json:"status" binding:"required,oneof=online offline busy"`
}

type CreateUserRequest struct {
	ID     string `json:"id,omitempty" binding:"omitempty,max=64"`
	Name   string `json:"name" binding:"required,min=1,max=255"`
	Role   string `json:"role,omitempty" binding:"omitempty,max=32"`
	Avatar string `json:"avatar,omitempty" binding:"omitempty,url,max=2048"`
}

func (r CreateUserRequest) ToParams() service.CreateUserParams {
	return service.CreateUserParams{ID: r.ID, Name: r.Name, Role: r.Role, Avatar: r.Avatar}
}

type CreateProjectRequest struct {
	ID          string `json:"id,omitempty" binding:"omitempty,max=64"`
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Color       string `json:"color,omitempty" binding:"omitempty,max=32"`
	Description string `json:"description,omitempty" binding:"max=2000"`
}

func (r CreateProjectRequest) ToParams() service.CreateProjectParams {
	return service.CreateProjectParams{ID: r.ID, Name: r.Name, Color: r.Color, Description: r.Description}
}

type UserListResponse struct {
	Users []model.User `json:"users"`
}

type ProjectListResponse struct {
	Projects []model.Project `json:"projects"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=128"`
}

type AuthResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func ToAuthResponse(res *service.AuthResult) *AuthResponse {
	return &AuthResponse{User: res.User, Token: res.Token, ExpiresAt: res.ExpiresAt}
}
