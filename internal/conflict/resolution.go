package conflict

import (
	"fmt"
	"time"

	"github.com/iliyamo/env-booking/internal/model"
)

// AlreadyResolvedError is returned when a caller tries to resolve a
// conflict that has already left UNRESOLVED.  Resolutions are recorded
// exactly once; a correction workflow would append a new resolution event
// rather than rewrite the existing record.
type AlreadyResolvedError struct {
	ConflictID uint64
	Resolution string
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("conflict %d is already resolved as %s", e.ConflictID, e.Resolution)
}

// IsAlreadyResolved reports whether err is an *AlreadyResolvedError.
func IsAlreadyResolved(err error) bool {
	_, ok := err.(*AlreadyResolvedError)
	return ok
}

// Resolve applies a terminal resolution to an open conflict in place.  It
// validates the requested status, enforces the resolve-once invariant and
// stamps resolver identity and time.  Resolving a conflict does not re-run
// any detector and does not touch the parent intent; the approval path
// re-reads resolution state when it needs to decide whether MAJOR blocking
// still holds.
func Resolve(c *model.Conflict, resolution, notes string, resolverID uint64, now time.Time) error {
	if !model.ValidResolution(resolution) {
		return model.NewValidationError("unknown resolution status: " + resolution)
	}
	if c.IsResolved() {
		return &AlreadyResolvedError{ConflictID: c.ID, Resolution: c.Resolution}
	}
	c.Resolution = resolution
	if notes != "" {
		c.ResolutionNotes = &notes
	}
	c.ResolvedBy = &resolverID
	at := now.UTC()
	c.ResolvedAt = &at
	return nil
}

// UnresolvedHigh filters a conflict list down to the open HIGH-severity
// entries, the ones that block ordinary approval of a refresh intent.
func UnresolvedHigh(conflicts []model.Conflict) []model.Conflict {
	blocking := make([]model.Conflict, 0)
	for i := range conflicts {
		if conflicts[i].Severity == model.SeverityHigh && !conflicts[i].IsResolved() {
			blocking = append(blocking, conflicts[i])
		}
	}
	return blocking
}
