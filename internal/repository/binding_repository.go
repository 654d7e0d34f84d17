package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/env-booking/internal/model"
)

// BindingRepo manages the entity-to-resource mapping table.  Environments,
// instances, applications, interfaces, components, infrastructure elements
// and datasets all map onto bookable resources differently; instead of
// per-type branching, every mapping is a row in `resource_bindings` and
// this repository is the single lookup point.
type BindingRepo struct {
	db *sql.DB
}

// NewBindingRepo returns a new BindingRepo bound to the given database.
func NewBindingRepo(db *sql.DB) *BindingRepo { return &BindingRepo{db: db} }

// Binding mirrors a row of the resource_bindings table.
type Binding struct {
	ID       uint64            `json:"id"`
	Entity   model.EntityRef   `json:"entity"`
	Resource model.ResourceRef `json:"resource"`
}

// Create inserts a binding and assigns the generated ID.  Duplicate
// bindings (same entity and resource) are rejected by a unique key; the
// MySQL duplicate-entry error is surfaced as a ValidationError.
func (r *BindingRepo) Create(ctx context.Context, b *Binding) error {
	const q = `INSERT INTO resource_bindings (entity_type, entity_id, resource_type, resource_id) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.Entity.Type, b.Entity.ID, b.Resource.Type, b.Resource.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.NewValidationError("binding already exists")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// Delete removes a binding by ID, returning ErrBindingNotFound when no row
// matched.
func (r *BindingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resource_bindings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBindingNotFound
	}
	return nil
}

// ListResourcesForEntity returns the bookable resources an entity maps
// onto.  An entity that is itself bookable carries a self-binding row; an
// entity with no bindings returns an empty slice, which makes its refreshes
// conflict-free by construction.
func (r *BindingRepo) ListResourcesForEntity(ctx context.Context, entity model.EntityRef) ([]model.ResourceRef, error) {
	const q = `SELECT resource_type, resource_id
               FROM resource_bindings
               WHERE entity_type = ? AND entity_id = ?
               ORDER BY resource_type, resource_id`
	rows, err := r.db.QueryContext(ctx, q, entity.Type, entity.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := make([]model.ResourceRef, 0)
	for rows.Next() {
		var ref model.ResourceRef
		if err := rows.Scan(&ref.Type, &ref.ID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ListByEntityType returns all bindings for an entity type, used by the
// admin listing endpoint.
func (r *BindingRepo) ListByEntityType(ctx context.Context, entityType string) ([]Binding, error) {
	const q = `SELECT id, entity_type, entity_id, resource_type, resource_id
               FROM resource_bindings
               WHERE entity_type = ?
               ORDER BY entity_id, resource_type, resource_id`
	rows, err := r.db.QueryContext(ctx, q, entityType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]Binding, 0)
	for rows.Next() {
		var b Binding
		if err := rows.Scan(&b.ID, &b.Entity.Type, &b.Entity.ID, &b.Resource.Type, &b.Resource.ID); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// GetByID returns a binding or ErrBindingNotFound.
func (r *BindingRepo) GetByID(ctx context.Context, id uint64) (*Binding, error) {
	var b Binding
	err := r.db.QueryRowContext(ctx,
		`SELECT id, entity_type, entity_id, resource_type, resource_id FROM resource_bindings WHERE id = ?`,
		id).Scan(&b.ID, &b.Entity.Type, &b.Entity.ID, &b.Resource.Type, &b.Resource.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBindingNotFound
		}
		return nil, err
	}
	return &b, nil
}
