package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/env-booking/internal/model"
)

// IntentRepo provides persistence for refresh intents.  Lifecycle
// transitions load the row under FOR UPDATE inside a transaction so two
// concurrent actions on the same intent serialize at the database; the
// state machine itself assumes at most one in-flight mutation per intent.
type IntentRepo struct {
	db *sql.DB
}

// NewIntentRepo returns a new IntentRepo bound to the given database.
func NewIntentRepo(db *sql.DB) *IntentRepo { return &IntentRepo{db: db} }

// DB exposes the underlying sql.DB for multi-repository transactions.
func (r *IntentRepo) DB() *sql.DB { return r.db }

const intentColumns = `id, requester_id, entity_type, entity_id, planned_start, planned_end,
       kind, impact, requires_downtime, estimated_downtime_min, status,
       conflict_acknowledged, reason, rejection_reason, outcome,
       actual_duration_min, completion_notes, created_at, updated_at`

// scanIntent reads the full refresh_intents column set.
func scanIntent(row rowScanner) (*model.RefreshIntent, error) {
	var in model.RefreshIntent
	var plannedEnd sql.NullTime
	var rejection, outcome, notes sql.NullString
	var duration sql.NullInt64
	err := row.Scan(
		&in.ID, &in.RequesterID, &in.Target.Type, &in.Target.ID,
		&in.Interval.Start, &plannedEnd,
		&in.Kind, &in.Impact, &in.RequiresDowntime, &in.EstimatedDowntimeMin, &in.Status,
		&in.ConflictAcknowledged, &in.Reason, &rejection, &outcome,
		&duration, &notes, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if plannedEnd.Valid {
		in.Interval.End = plannedEnd.Time
	}
	if rejection.Valid {
		in.RejectionReason = &rejection.String
	}
	if outcome.Valid {
		in.Outcome = &outcome.String
	}
	if duration.Valid {
		d := uint32(duration.Int64)
		in.ActualDurationMin = &d
	}
	if notes.Valid {
		in.CompletionNotes = &notes.String
	}
	return &in, nil
}

// Create inserts a new refresh intent.  A zero planned end is stored as
// NULL; the default refresh window is a detection-time policy, never
// materialized into the row.
func (r *IntentRepo) Create(ctx context.Context, in *model.RefreshIntent) error {
	const q = `INSERT INTO refresh_intents
               (requester_id, entity_type, entity_id, planned_start, planned_end,
                kind, impact, requires_downtime, estimated_downtime_min, status,
                conflict_acknowledged, reason)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var plannedEnd interface{}
	if !in.Interval.End.IsZero() {
		plannedEnd = in.Interval.End.UTC()
	}
	res, err := r.db.ExecContext(ctx, q,
		in.RequesterID, in.Target.Type, in.Target.ID, in.Interval.Start.UTC(), plannedEnd,
		in.Kind, in.Impact, in.RequiresDowntime, in.EstimatedDowntimeMin, in.Status,
		in.ConflictAcknowledged, in.Reason,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	in.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM refresh_intents WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, in.ID).Scan(&in.CreatedAt, &in.UpdatedAt)
}

// GetByID returns a refresh intent or ErrIntentNotFound.
func (r *IntentRepo) GetByID(ctx context.Context, id uint64) (*model.RefreshIntent, error) {
	in, err := scanIntent(r.db.QueryRowContext(ctx,
		`SELECT `+intentColumns+` FROM refresh_intents WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return in, nil
}

// GetByIDForUpdateTx loads an intent under a row lock.  Every lifecycle
// transition goes through this so concurrent actions on the same intent
// serialize instead of racing (two simultaneous approvals must not both
// succeed).
func (r *IntentRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.RefreshIntent, error) {
	in, err := scanIntent(tx.QueryRowContext(ctx,
		`SELECT `+intentColumns+` FROM refresh_intents WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return in, nil
}

// UpdateTx writes back the mutable lifecycle fields inside the caller's
// transaction.  Always paired with GetByIDForUpdateTx.
func (r *IntentRepo) UpdateTx(ctx context.Context, tx *sql.Tx, in *model.RefreshIntent) error {
	const q = `UPDATE refresh_intents
               SET status = ?, conflict_acknowledged = ?, rejection_reason = ?,
                   outcome = ?, actual_duration_min = ?, completion_notes = ?,
                   updated_at = CURRENT_TIMESTAMP
               WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		in.Status, in.ConflictAcknowledged, in.RejectionReason,
		in.Outcome, in.ActualDurationMin, in.CompletionNotes, in.ID,
	)
	return err
}

// SetConflictAcknowledged flips the requester's acknowledgement flag.
func (r *IntentRepo) SetConflictAcknowledged(ctx context.Context, id uint64, acknowledged bool) error {
	const q = `UPDATE refresh_intents SET conflict_acknowledged = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, acknowledged, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM refresh_intents WHERE id = ? LIMIT 1`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrIntentNotFound
			}
			return err
		}
	}
	return nil
}

// ListByRequester returns the given user's intents, newest first.
func (r *IntentRepo) ListByRequester(ctx context.Context, requesterID uint64) ([]*model.RefreshIntent, error) {
	return r.queryIntents(ctx,
		`SELECT `+intentColumns+` FROM refresh_intents WHERE requester_id = ? ORDER BY created_at DESC`,
		requesterID)
}

// ListAll returns every refresh intent, newest first.  Used by approver
// views.
func (r *IntentRepo) ListAll(ctx context.Context) ([]*model.RefreshIntent, error) {
	return r.queryIntents(ctx,
		`SELECT `+intentColumns+` FROM refresh_intents ORDER BY created_at DESC`)
}

func (r *IntentRepo) queryIntents(ctx context.Context, q string, args ...interface{}) ([]*model.RefreshIntent, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]*model.RefreshIntent, 0)
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, in)
	}
	return result, rows.Err()
}
