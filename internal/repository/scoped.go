package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldmgr/fieldmgr/internal/model"
)

// Scoped is an owner-scoped table of resources of type T.
// Every read and write joins on users and filters by the owner's normalized
// email, so a row owned by someone else behaves exactly like a missing row.
type Scoped[T model.Resource] struct {
	repo *Repository
	kind model.Kind

	listQuery   string
	getQuery    string
	createQuery string
	renameQuery string
	deleteQuery string
}

// NewScoped returns the scoped table for kind. kind.Table is interpolated
// into SQL and must be one of the model kinds, never client input.
func NewScoped[T model.Resource](repo *Repository, kind model.Kind) *Scoped[T] {
	columns := "r.id, r.name, r.owner_id, r.created_at, r.updated_at"

	return &Scoped[T]{
		repo: repo,
		kind: kind,
		listQuery: fmt.Sprintf(`
			SELECT %s
			FROM %s r
			JOIN users u ON u.id = r.owner_id
			WHERE u.email = $1
			ORDER BY r.id
		`, columns, kind.Table),
		getQuery: fmt.Sprintf(`
			SELECT %s
			FROM %s r
			JOIN users u ON u.id = r.owner_id
			WHERE u.email = $1 AND r.id = $2
		`, columns, kind.Table),
		createQuery: fmt.Sprintf(`
			INSERT INTO %s (name, owner_id)
			VALUES ($1, $2)
			RETURNING id, name, owner_id, created_at, updated_at
		`, kind.Table),
		renameQuery: fmt.Sprintf(`
			UPDATE %s r
			SET name = $3, updated_at = NOW()
			FROM users u
			WHERE u.id = r.owner_id AND u.email = $1 AND r.id = $2
		`, kind.Table),
		deleteQuery: fmt.Sprintf(`
			DELETE FROM %s r
			USING users u
			WHERE u.id = r.owner_id AND u.email = $1 AND r.id = $2
		`, kind.Table),
	}
}

// Fields returns the owner-scoped fields table.
func (r *Repository) Fields() *Scoped[model.Field] {
	return NewScoped[model.Field](r, model.FieldKind)
}

// Devices returns the owner-scoped devices table.
func (r *Repository) Devices() *Scoped[model.Device] {
	return NewScoped[model.Device](r, model.DeviceKind)
}

// List returns all resources owned by ownerEmail, ordered by ID.
func (s *Scoped[T]) List(ctx context.Context, ownerEmail string) ([]T, error) {
	rows, err := s.repo.pool.Query(ctx, s.listQuery, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.kind.Table, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", s.kind.Name, err)
		}
		items = append(items, T(rec))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", s.kind.Table, err)
	}

	return items, nil
}

// Get returns the resource with id if ownerEmail owns it, else ErrNotFound.
func (s *Scoped[T]) Get(ctx context.Context, ownerEmail string, id int64) (T, error) {
	rec, err := scanRecord(s.repo.pool.QueryRow(ctx, s.getQuery, ownerEmail, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return T{}, ErrNotFound
		}
		return T{}, fmt.Errorf("failed to get %s: %w", s.kind.Name, err)
	}

	return T(rec), nil
}

// Create inserts a resource owned by ownerID and returns the stored row.
func (s *Scoped[T]) Create(ctx context.Context, ownerID int64, name string) (T, error) {
	rec, err := scanRecord(s.repo.pool.QueryRow(ctx, s.createQuery, name, ownerID))
	if err != nil {
		if isForeignKeyViolation(err) {
			return T{}, ErrOwnerNotFound
		}
		return T{}, fmt.Errorf("failed to create %s: %w", s.kind.Name, err)
	}

	return T(rec), nil
}

// Rename sets the name of the resource with id if ownerEmail owns it.
// Returns false when no owned row matched.
func (s *Scoped[T]) Rename(ctx context.Context, ownerEmail string, id int64, name string) (bool, error) {
	result, err := s.repo.pool.Exec(ctx, s.renameQuery, ownerEmail, id, name)
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", s.kind.Name, err)
	}

	return result.RowsAffected() > 0, nil
}

// Delete removes the resource with id if ownerEmail owns it.
// Returns false when no owned row matched.
func (s *Scoped[T]) Delete(ctx context.Context, ownerEmail string, id int64) (bool, error) {
	result, err := s.repo.pool.Exec(ctx, s.deleteQuery, ownerEmail, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", s.kind.Name, err)
	}

	return result.RowsAffected() > 0, nil
}

// scanRecord scans a single row into a Record.
func scanRecord(row pgx.Row) (model.Record, error) {
	var rec model.Record
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.OwnerID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}
