package model

import (
	"fmt"
	"time"
)

type UserStatus string

const (
	UserStatusOnline  UserStatus = "online"
	UserStatusOffline UserStatus = "offline"
	UserStatusBusy    UserStatus = "busy"
)

func ParseUserStatus(s string) (UserStatus, error) {
	switch st := UserStatus(s); st {
	case UserStatusOnline, UserStatusOffline, UserStatusBusy:
		return st, nil
	default:
		return "", fmt.Errorf("unknown user status %q", s)
	}
}

type User struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Role           string     `json:"role"`
	Avatar         string     `json:"avatar,omitempty"`
	Status         UserStatus `json:"status"`
	UnreadMessages int64      `json:"unread_messages"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Account holds login credentials for a User.
type Account struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}
