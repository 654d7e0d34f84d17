package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/env-booking/internal/model"
)

// ConflictRepo persists conflict records produced by the detectors.  A
// conflict row belongs to either a refresh intent (intent_id set) or a
// candidate reservation (reservation_id set) and always references the
// existing reservation it collides with.  Overlap bounds are stored so the
// record stays meaningful after its parents move.
type ConflictRepo struct {
	db *sql.DB
}

// NewConflictRepo returns a new ConflictRepo bound to the given database.
func NewConflictRepo(db *sql.DB) *ConflictRepo { return &ConflictRepo{db: db} }

// DB exposes the underlying sql.DB for multi-repository transactions.
func (r *ConflictRepo) DB() *sql.DB { return r.db }

const conflictColumns = `id, intent_id, reservation_id, with_reservation_id,
       resource_type, resource_id, type, severity,
       overlap_start, overlap_end, resolution, resolution_notes,
       resolved_by, resolved_at, created_at`

// scanConflict reads the full conflicts column set and derives the overlap
// duration from the stored bounds.
func scanConflict(row rowScanner) (*model.Conflict, error) {
	var c model.Conflict
	var intentID, reservationID, resolvedBy sql.NullInt64
	var resourceType, notes sql.NullString
	var resourceID sql.NullInt64
	var resolvedAt sql.NullTime
	err := row.Scan(
		&c.ID, &intentID, &reservationID, &c.WithReservation,
		&resourceType, &resourceID, &c.Type, &c.Severity,
		&c.Overlap.Start, &c.Overlap.End, &c.Resolution, &notes,
		&resolvedBy, &resolvedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if intentID.Valid {
		id := uint64(intentID.Int64)
		c.IntentID = &id
	}
	if reservationID.Valid {
		id := uint64(reservationID.Int64)
		c.ReservationID = &id
	}
	if resourceType.Valid && resourceID.Valid {
		c.Resource = &model.ResourceRef{Type: resourceType.String, ID: uint64(resourceID.Int64)}
	}
	if notes.Valid {
		c.ResolutionNotes = &notes.String
	}
	if resolvedBy.Valid {
		id := uint64(resolvedBy.Int64)
		c.ResolvedBy = &id
	}
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}
	c.OverlapDuration = c.Overlap.Duration()
	return &c, nil
}

// CreateBulkTx inserts a batch of detector results within the caller's
// transaction, populating the generated IDs.  Passing an empty slice has no
// effect and returns nil.
func (r *ConflictRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, conflicts []model.Conflict) error {
	const q = `INSERT INTO conflicts
               (intent_id, reservation_id, with_reservation_id, resource_type, resource_id,
                type, severity, overlap_start, overlap_end, resolution)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range conflicts {
		c := &conflicts[i]
		var resourceType, resourceID interface{}
		if c.Resource != nil {
			resourceType = c.Resource.Type
			resourceID = c.Resource.ID
		}
		res, err := tx.ExecContext(ctx, q,
			c.IntentID, c.ReservationID, c.WithReservation, resourceType, resourceID,
			c.Type, c.Severity, c.Overlap.Start.UTC(), c.Overlap.End.UTC(), c.Resolution,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = uint64(id)
	}
	return nil
}

// GetByID returns a conflict or ErrConflictNotFound.
func (r *ConflictRepo) GetByID(ctx context.Context, id uint64) (*model.Conflict, error) {
	c, err := scanConflict(r.db.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConflictNotFound
		}
		return nil, err
	}
	return c, nil
}

// GetByIDForUpdateTx loads a conflict under a row lock so resolution is
// serialized per conflict.
func (r *ConflictRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Conflict, error) {
	c, err := scanConflict(tx.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConflictNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListByIntent returns all conflicts owned by a refresh intent, oldest
// first.  The approval path calls this to re-read current resolution state
// rather than trusting the flag computed at submission.
func (r *ConflictRepo) ListByIntent(ctx context.Context, intentID uint64) ([]model.Conflict, error) {
	return r.queryConflicts(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE intent_id = ? ORDER BY id ASC`, intentID)
}

// ListByIntentTx is ListByIntent inside the caller's transaction, used by
// approve() so the conflicts it gates on are read under the intent's lock.
func (r *ConflictRepo) ListByIntentTx(ctx context.Context, tx *sql.Tx, intentID uint64) ([]model.Conflict, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE intent_id = ? ORDER BY id ASC`, intentID)
	if err != nil {
		return nil, err
	}
	return collectConflicts(rows)
}

// ListByReservation returns all conflicts owned by a candidate reservation.
func (r *ConflictRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Conflict, error) {
	return r.queryConflicts(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE reservation_id = ? ORDER BY id ASC`, reservationID)
}

func (r *ConflictRepo) queryConflicts(ctx context.Context, q string, args ...interface{}) ([]model.Conflict, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectConflicts(rows)
}

func collectConflicts(rows *sql.Rows) ([]model.Conflict, error) {
	defer rows.Close()
	result := make([]model.Conflict, 0)
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// UpdateResolutionTx writes a resolution back inside the caller's
// transaction.  The WHERE guard on UNRESOLVED is belt-and-braces on top of
// the row lock: if another writer resolved the conflict first the update
// affects zero rows and sql.ErrNoRows is returned so the caller can re-read.
func (r *ConflictRepo) UpdateResolutionTx(ctx context.Context, tx *sql.Tx, c *model.Conflict) error {
	const q = `UPDATE conflicts
               SET resolution = ?, resolution_notes = ?, resolved_by = ?, resolved_at = ?
               WHERE id = ? AND resolution = 'UNRESOLVED'`
	var resolvedAt interface{}
	if c.ResolvedAt != nil {
		resolvedAt = c.ResolvedAt.UTC().Format("2006-01-02 15:04:05")
	}
	res, err := tx.ExecContext(ctx, q, c.Resolution, c.ResolutionNotes, c.ResolvedBy, resolvedAt, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteUnresolvedByIntentTx removes the open conflicts of an intent inside
// the caller's transaction.  Used on re-submission: a fresh detector run
// replaces stale open conflicts, while resolved ones are kept as history.
func (r *ConflictRepo) DeleteUnresolvedByIntentTx(ctx context.Context, tx *sql.Tx, intentID uint64) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM conflicts WHERE intent_id = ? AND resolution = 'UNRESOLVED'`, intentID)
	return err
}
