// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fieldmgr/fieldmgr/internal/apperror"
	"github.com/fieldmgr/fieldmgr/internal/email"
	"github.com/fieldmgr/fieldmgr/internal/metrics"
	"github.com/fieldmgr/fieldmgr/internal/model"
	"github.com/fieldmgr/fieldmgr/internal/repository"
)

// MsgUserExists is returned when the normalized email is already registered.
const MsgUserExists = "User already exists."

// UserStore persists users. Emails passed in are already normalized.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UserExists(ctx context.Context, email string) (bool, error)
}

// UserService handles user registration and lookup.
type UserService struct {
	store   UserStore
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore, logger *slog.Logger, recorder metrics.Recorder) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		store:   store,
		logger:  logger,
		metrics: recorder,
	}
}

// Create registers a user under the normalized form of rawEmail.
func (s *UserService) Create(ctx context.Context, rawEmail string) (*model.User, error) {
	if err := email.Validate(rawEmail); err != nil {
		return nil, err
	}
	addr := email.Normalize(rawEmail)

	// Fast path only; the unique constraint on users.email decides races.
	exists, err := s.store.UserExists(ctx, addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.Conflict(MsgUserExists, nil)
	}

	user := &model.User{Email: addr}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, apperror.Conflict(MsgUserExists, err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.IncUserCreated()
	s.logger.InfoContext(ctx, "user_created",
		slog.Int64("user_id", user.ID),
		slog.String("email", addr),
	)

	return user, nil
}

// GetByEmail returns the user registered under rawEmail, or nil if there is none.
func (s *UserService) GetByEmail(ctx context.Context, rawEmail string) (*model.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email.Normalize(rawEmail))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}
