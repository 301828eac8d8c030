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

// ResourceStore persists owner-scoped resources. Every method except Create
// filters by the owner's normalized email; Get returns repository.ErrNotFound
// for rows that are missing or owned by someone else.
type ResourceStore[T model.Resource] interface {
	List(ctx context.Context, ownerEmail string) ([]T, error)
	Get(ctx context.Context, ownerEmail string, id int64) (T, error)
	Create(ctx context.Context, ownerID int64, name string) (T, error)
	Rename(ctx context.Context, ownerEmail string, id int64, name string) (bool, error)
	Delete(ctx context.Context, ownerEmail string, id int64) (bool, error)
}

// OwnerLookup resolves a normalized email to its user.
type OwnerLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// ResourceService implements ownership-scoped CRUD for one resource kind.
type ResourceService[T model.Resource] struct {
	kind    model.Kind
	store   ResourceStore[T]
	owners  OwnerLookup
	logger  *slog.Logger
	metrics metrics.Recorder
}

// FieldService manages fields.
type FieldService = ResourceService[model.Field]

// DeviceService manages devices.
type DeviceService = ResourceService[model.Device]

// NewResourceService creates a ResourceService for kind.
func NewResourceService[T model.Resource](
	kind model.Kind,
	store ResourceStore[T],
	owners OwnerLookup,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *ResourceService[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ResourceService[T]{
		kind:    kind,
		store:   store,
		owners:  owners,
		logger:  logger,
		metrics: recorder,
	}
}

// Kind returns the resource kind served.
func (s *ResourceService[T]) Kind() model.Kind {
	return s.kind
}

// List returns every resource owned by ownerEmail. An unknown owner simply
// has no resources.
func (s *ResourceService[T]) List(ctx context.Context, ownerEmail string) ([]T, error) {
	items, err := s.store.List(ctx, email.Normalize(ownerEmail))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind.Table, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get returns the resource with id if ownerEmail owns it. Missing and
// foreign rows both yield a NotFound error.
func (s *ResourceService[T]) Get(ctx context.Context, ownerEmail string, id int64) (T, error) {
	item, err := s.store.Get(ctx, email.Normalize(ownerEmail), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return item, apperror.NotFound(NotFoundMessage(s.kind))
		}
		return item, fmt.Errorf("get %s: %w", s.kind.Name, err)
	}
	return item, nil
}

// Create validates name and stores a new resource owned by ownerEmail.
func (s *ResourceService[T]) Create(ctx context.Context, ownerEmail, name string) (T, error) {
	var zero T

	addr := email.Normalize(ownerEmail)
	name, err := validateName(s.kind, name)
	if err != nil {
		return zero, err
	}

	owner, err := s.owners.GetUserByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return zero, apperror.NotFound(ownerNotFoundMessage(addr))
		}
		return zero, fmt.Errorf("resolve owner: %w", err)
	}

	item, err := s.store.Create(ctx, owner.ID, name)
	if err != nil {
		if errors.Is(err, repository.ErrOwnerNotFound) {
			return zero, apperror.NotFound(ownerNotFoundMessage(addr))
		}
		return zero, fmt.Errorf("create %s: %w", s.kind.Name, err)
	}

	s.metrics.IncResourceCreated(s.kind.Name)
	s.logger.InfoContext(ctx, s.kind.Name+"_created",
		slog.Int64("id", model.Record(item).ID),
		slog.String("owner", addr),
	)

	return item, nil
}

// Update renames the resource with id if ownerEmail owns it.
// It returns false when the resource is missing or owned by someone else.
func (s *ResourceService[T]) Update(ctx context.Context, ownerEmail string, id int64, newName string) (bool, error) {
	addr := email.Normalize(ownerEmail)
	name, err := validateName(s.kind, newName)
	if err != nil {
		return false, err
	}

	ok, err := s.store.Rename(ctx, addr, id, name)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", s.kind.Name, err)
	}
	if !ok {
		return false, nil
	}

	s.metrics.IncResourceUpdated(s.kind.Name)
	s.logger.InfoContext(ctx, s.kind.Name+"_updated",
		slog.Int64("id", id),
		slog.String("owner", addr),
	)

	return true, nil
}

// Delete removes the resource with id if ownerEmail owns it.
// It returns false when the resource is missing or owned by someone else.
func (s *ResourceService[T]) Delete(ctx context.Context, ownerEmail string, id int64) (bool, error) {
	addr := email.Normalize(ownerEmail)

	ok, err := s.store.Delete(ctx, addr, id)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", s.kind.Name, err)
	}
	if !ok {
		return false, nil
	}

	s.metrics.IncResourceDeleted(s.kind.Name)
	s.logger.InfoContext(ctx, s.kind.Name+"_deleted",
		slog.Int64("id", id),
		slog.String("owner", addr),
	)

	return true, nil
}
