package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"basegraph.app/chat/common/id"
	"basegraph.app/chat/core/config"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type RegisterParams struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// AuthService issues and validates bearer tokens. It lives at the HTTP
// boundary only; the ledger never sees credentials.
type AuthService interface {
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// ValidateToken returns the user id the token was issued to.
	ValidateToken(token string) (string, error)
}

type authService struct {
	stores StoreProvider
	tx     TxRunner
	cfg    config.AuthConfig
	now    func() time.Time
}

func NewAuthService(stores StoreProvider, tx TxRunner, cfg config.AuthConfig) AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * 24 * time.Hour
	}
	return &authService{stores: stores, tx: tx, cfg: cfg, now: time.Now}
}

func (s *authService) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, invalid("name", "must not be empty")
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email", "must be a valid address")
	}
	if len(params.Password) < minPasswordLength {
		return nil, invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	role := params.Role
	if role == "" {
		role = "member"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		ID:     id.NewString(),
		Name:   name,
		Role:   role,
		Status: model.UserStatusOffline,
	}
	err = s.tx.WithTx(ctx, func(sp StoreProvider) error {
		if err := sp.Users().Create(ctx, user); err != nil {
			return storeErr(err, "creating user", "user", user.ID)
		}
		account := &model.Account{UserID: user.ID, Email: email, PasswordHash: string(hash)}
		if err := sp.Accounts().Create(ctx, account); err != nil {
			return storeErr(err, "creating account", "account", email)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID)
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := s.stores.Accounts().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("getting account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "login failed", "user_id", account.UserID)
		return nil, ErrInvalidCredentials
	}

	user, err := s.stores.Users().GetByID(ctx, account.UserID)
	if err != nil {
		return nil, storeErr(err, "getting user", "user", account.UserID)
	}
	return s.issue(user)
}

func (s *authService) issue(user *model.User) (*AuthResult, error) {
	now := s.now()
	expires := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expires}, nil
}

func (s *authService) ValidateToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
