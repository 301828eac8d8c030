// Package testutil provides in-memory stores and database fixtures for tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fieldmgr/fieldmgr/internal/model"
	"github.com/fieldmgr/fieldmgr/internal/repository"
)

// MemoryStore is an in-memory stand-in for the PostgreSQL repository.
// It enforces the same constraints: unique user email, owner foreign key,
// and owner-email scoping on every resource read and write.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]*model.User
	records map[string]map[int64]model.Record

	// Err, when set, is returned by every call.
	Err error
	// SkipExistsCheck makes UserExists always report false, simulating a
	// concurrent insert that lands between the pre-check and the insert.
	SkipExistsCheck bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[int64]*model.User),
		records: make(map[string]map[int64]model.Record),
	}
}

// CreateUser inserts user, enforcing email uniqueness.
func (m *MemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}

	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now().UTC()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

// GetUserByEmail returns the user with email or repository.ErrUserNotFound.
func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	u := m.userByEmail(email)
	if u == nil {
		return nil, repository.ErrUserNotFound
	}
	found := *u
	return &found, nil
}

// UserExists reports whether a user has email.
func (m *MemoryStore) UserExists(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return false, m.Err
	}
	if m.SkipExistsCheck {
		return false, nil
	}
	return m.userByEmail(email) != nil, nil
}

// UserCount returns how many users have email.
func (m *MemoryStore) UserCount(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, u := range m.users {
		if u.Email == email {
			n++
		}
	}
	return n
}

// DeleteUser removes a user and cascades to the resources it owns.
func (m *MemoryStore) DeleteUser(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users, id)
	for _, table := range m.records {
		for rid, rec := range table {
			if rec.OwnerID == id {
				delete(table, rid)
			}
		}
	}
}

func (m *MemoryStore) userByEmail(email string) *model.User {
	for _, u := range m.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (m *MemoryStore) table(name string) map[int64]model.Record {
	t, ok := m.records[name]
	if !ok {
		t = make(map[int64]model.Record)
		m.records[name] = t
	}
	return t
}

// ownedRecord returns the row with id if its owner has ownerEmail.
func (m *MemoryStore) ownedRecord(table, ownerEmail string, id int64) (model.Record, bool) {
	rec, ok := m.table(table)[id]
	if !ok {
		return model.Record{}, false
	}
	owner, ok := m.users[rec.OwnerID]
	if !ok || owner.Email != ownerEmail {
		return model.Record{}, false
	}
	return rec, true
}

// MemoryScoped is an owner-scoped view of one MemoryStore table.
type MemoryScoped[T model.Resource] struct {
	store *MemoryStore
	kind  model.Kind
}

// Scoped returns the owner-scoped table for kind.
func Scoped[T model.Resource](store *MemoryStore, kind model.Kind) *MemoryScoped[T] {
	return &MemoryScoped[T]{store: store, kind: kind}
}

// Fields returns the owner-scoped fields table.
func (m *MemoryStore) Fields() *MemoryScoped[model.Field] {
	return Scoped[model.Field](m, model.FieldKind)
}

// Devices returns the owner-scoped devices table.
func (m *MemoryStore) Devices() *MemoryScoped[model.Device] {
	return Scoped[model.Device](m, model.DeviceKind)
}

// List returns rows owned by ownerEmail ordered by ID.
func (s *MemoryScoped[T]) List(ctx context.Context, ownerEmail string) ([]T, error) {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	items := make([]T, 0)
	for id := range m.table(s.kind.Table) {
		if rec, ok := m.ownedRecord(s.kind.Table, ownerEmail, id); ok {
			items = append(items, T(rec))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return model.Record(items[i]).ID < model.Record(items[j]).ID
	})
	return items, nil
}

// Get returns the row with id if ownerEmail owns it.
func (s *MemoryScoped[T]) Get(ctx context.Context, ownerEmail string, id int64) (T, error) {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if m.Err != nil {
		return zero, m.Err
	}
	rec, ok := m.ownedRecord(s.kind.Table, ownerEmail, id)
	if !ok {
		return zero, repository.ErrNotFound
	}
	return T(rec), nil
}

// Create inserts a row owned by ownerID.
func (s *MemoryScoped[T]) Create(ctx context.Context, ownerID int64, name string) (T, error) {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if m.Err != nil {
		return zero, m.Err
	}
	if _, ok := m.users[ownerID]; !ok {
		return zero, repository.ErrOwnerNotFound
	}

	m.nextID++
	now := time.Now().UTC()
	rec := model.Record{
		ID:        m.nextID,
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.table(s.kind.Table)[rec.ID] = rec
	return T(rec), nil
}

// Rename sets the name of an owned row.
func (s *MemoryScoped[T]) Rename(ctx context.Context, ownerEmail string, id int64, name string) (bool, error) {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return false, m.Err
	}
	rec, ok := m.ownedRecord(s.kind.Table, ownerEmail, id)
	if !ok {
		return false, nil
	}
	rec.Name = name
	rec.UpdatedAt = time.Now().UTC()
	m.table(s.kind.Table)[id] = rec
	return true, nil
}

// Delete removes an owned row.
func (s *MemoryScoped[T]) Delete(ctx context.Context, ownerEmail string, id int64) (bool, error) {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return false, m.Err
	}
	if _, ok := m.ownedRecord(s.kind.Table, ownerEmail, id); !ok {
		return false, nil
	}
	delete(m.table(s.kind.Table), id)
	return true, nil
}

// ErrStoreDown is a generic backend failure for tests.
var ErrStoreDown = errors.New("connection refused")
