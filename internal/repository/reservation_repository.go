package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/env-booking/internal/model"
)

// ReservationRepo provides persistence for reservations and the resources
// they hold.  A reservation row lives in `reservations`; its resource claims
// live in `reservation_resources`, one row per {resource_type, resource_id}.
// All timestamps are stored in UTC (the connection uses parseTime + loc=UTC
// so DATETIME columns scan directly into time.Time).
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a reservation and its resource rows within the scope of
// an existing transaction.  The generated ID and DB-default timestamps are
// populated on the provided model.  The caller must commit or roll back.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (owner_id, starts_at, ends_at, status, priority, phase, conflict_status)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.OwnerID, res.Interval.Start.UTC(), res.Interval.End.UTC(),
		res.Status, res.Priority, res.Phase, res.ConflictStatus,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	for _, ref := range res.Resources {
		const rq = `INSERT INTO reservation_resources (reservation_id, resource_type, resource_id) VALUES (?, ?, ?)`
		if _, err := tx.ExecContext(ctx, rq, res.ID, ref.Type, ref.ID); err != nil {
			return err
		}
	}
	// Query back the row to populate DB-assigned timestamps.
	const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt)
}

// scanner abstracts *sql.Row for the single-row scan helpers below.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanReservation reads the common reservation column set.
func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var phase sql.NullString
	err := row.Scan(
		&res.ID, &res.OwnerID, &res.Interval.Start, &res.Interval.End,
		&res.Status, &res.Priority, &phase, &res.ConflictStatus,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phase.Valid {
		res.Phase = phase.String
	}
	return &res, nil
}

const reservationColumns = `id, owner_id, starts_at, ends_at, status, priority, phase, conflict_status, created_at, updated_at`

// GetByID returns a reservation with its resource set, or
// ErrReservationNotFound when no such row exists.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if err := r.loadResources(ctx, []*model.Reservation{res}); err != nil {
		return nil, err
	}
	return res, nil
}

// loadResources populates the Resources slice of each reservation in one
// query.  Reservations with no resource rows end up with an empty slice.
func (r *ReservationRepo) loadResources(ctx context.Context, reservations []*model.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}
	index := make(map[uint64]*model.Reservation, len(reservations))
	ids := make([]interface{}, 0, len(reservations))
	placeholders := make([]string, 0, len(reservations))
	for _, res := range reservations {
		res.Resources = []model.ResourceRef{}
		index[res.ID] = res
		ids = append(ids, res.ID)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT reservation_id, resource_type, resource_id
          FROM reservation_resources
          WHERE reservation_id IN (` + strings.Join(placeholders, ",") + `)
          ORDER BY reservation_id, resource_type, resource_id`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var rid uint64
		var ref model.ResourceRef
		if err := rows.Scan(&rid, &ref.Type, &ref.ID); err != nil {
			return err
		}
		if res, ok := index[rid]; ok {
			res.Resources = append(res.Resources, ref)
		}
	}
	return rows.Err()
}

// queryReservations runs a query returning reservation rows and loads the
// resource sets for all of them.
func (r *ReservationRepo) queryReservations(ctx context.Context, q string, args ...interface{}) ([]*model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]*model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadResources(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListByOwner returns all reservations created by the given user, newest
// first.
func (r *ReservationRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Reservation, error) {
	return r.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID)
}

// ListAll returns every reservation, newest first.  Used by approver views.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]*model.Reservation, error) {
	return r.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations ORDER BY created_at DESC`)
}

// ListActiveForResources returns the active reservations (status outside
// COMPLETED/CANCELLED) holding any of the given resources.  The result is a
// snapshot for conflict detection; half-open interval filtering happens in
// the detector, not in SQL, so the detector stays the single source of
// overlap semantics.
func (r *ReservationRepo) ListActiveForResources(ctx context.Context, refs []model.ResourceRef) ([]*model.Reservation, error) {
	if len(refs) == 0 {
		return []*model.Reservation{}, nil
	}
	preds := make([]string, 0, len(refs))
	args := make([]interface{}, 0, len(refs)*2)
	for _, ref := range refs {
		preds = append(preds, "(rr.resource_type = ? AND rr.resource_id = ?)")
		args = append(args, ref.Type, ref.ID)
	}
	q := `SELECT DISTINCT r.id, r.owner_id, r.starts_at, r.ends_at, r.status, r.priority, r.phase, r.conflict_status, r.created_at, r.updated_at
          FROM reservations r
          JOIN reservation_resources rr ON rr.reservation_id = r.id
          WHERE r.status NOT IN ('COMPLETED', 'CANCELLED')
            AND (` + strings.Join(preds, " OR ") + `)
          ORDER BY r.starts_at ASC`
	return r.queryReservations(ctx, q, args...)
}

// ListActiveForEntity resolves the entity's bookable resources through the
// resource_bindings table and returns the active reservations holding any
// of them.  This is the reservation lookup behind refresh conflict
// detection.
func (r *ReservationRepo) ListActiveForEntity(ctx context.Context, entity model.EntityRef) ([]*model.Reservation, error) {
	const q = `SELECT DISTINCT r.id, r.owner_id, r.starts_at, r.ends_at, r.status, r.priority, r.phase, r.conflict_status, r.created_at, r.updated_at
               FROM reservations r
               JOIN reservation_resources rr ON rr.reservation_id = r.id
               JOIN resource_bindings rb ON rb.resource_type = rr.resource_type AND rb.resource_id = rr.resource_id
               WHERE r.status NOT IN ('COMPLETED', 'CANCELLED')
                 AND rb.entity_type = ? AND rb.entity_id = ?
               ORDER BY r.starts_at ASC`
	return r.queryReservations(ctx, q, entity.Type, entity.ID)
}

// UpdateStatus sets a reservation's status.  It returns
// ErrReservationNotFound when the row does not exist.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE reservations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish "missing" from "already in that status".
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ? LIMIT 1`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrReservationNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes a reservation and its resource rows.  Only the owning user
// may delete (admins pass force=true).  Conflict records that referenced
// the reservation as the *existing* side are kept: deletion removes the
// reservation from future conflict computations but does not retroactively
// invalidate resolved conflicts.
func (r *ReservationRepo) Delete(ctx context.Context, id, userID uint64, force bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var ownerID uint64
	if err := tx.QueryRowContext(ctx, `SELECT owner_id FROM reservations WHERE id = ? FOR UPDATE`, id).Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReservationNotFound
		}
		return err
	}
	if ownerID != userID && !force {
		return ErrForbidden
	}
	// Conflicts owned by this reservation (it was the candidate) cascade.
	if _, err := tx.ExecContext(ctx, `DELETE FROM conflicts WHERE reservation_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservation_resources WHERE reservation_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
