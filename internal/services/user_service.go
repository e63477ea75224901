package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dompet/internal/auth"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/storage"
)

// Session is what a successful register or login hands back.
type Session struct {
	User      core.User `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenIssuer signs tokens for a user id. *auth.Tokens satisfies it.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

type UserService struct {
	store  storage.Store
	tokens TokenIssuer
	now    func() time.Time
}

func NewUserService(store storage.Store, tokens TokenIssuer) *UserService {
	return &UserService{store: store, tokens: tokens, now: time.Now}
}

// Register creates a user. A taken email is core.ErrConflict.
func (s *UserService) Register(ctx context.Context, in core.RegisterInput) (Session, error) {
	if err := in.Validate(); err != nil {
		return Session{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}

	u := core.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        core.NormalizeEmail(in.Email),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return Session{}, fmt.Errorf("%w: email already registered", core.ErrConflict)
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentAuth).InfoContext(ctx, "User registered",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, u.ID)

	return s.session(u)
}

// Login checks credentials. Unknown emails and wrong passwords both return
// core.ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, in core.LoginInput) (Session, error) {
	if err := in.Validate(); err != nil {
		return Session{}, err
	}

	u, err := s.store.GetUserByEmail(ctx, core.NormalizeEmail(in.Email))
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: invalid email or password", core.ErrUnauthorized)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		log.FromContext(ctx).WithComponent(log.ComponentAuth).WarnContext(ctx, "Login rejected",
			log.FieldUserID, u.ID,
			log.FieldErrorType, log.ErrorTypeAuth)
		return Session{}, fmt.Errorf("%w: invalid email or password", core.ErrUnauthorized)
	}

	return s.session(u)
}

func (s *UserService) Get(ctx context.Context, id string) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserService) session(u core.User) (Session, error) {
	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token, ExpiresAt: exp}, nil
}
