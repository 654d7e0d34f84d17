package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/env-booking/internal/conflict"
	"github.com/iliyamo/env-booking/internal/repository"
	queuepublisher "github.com/iliyamo/env-booking/internal/service"
)

// ConflictHandler exposes the resolution workflow for flagged conflicts.
type ConflictHandler struct {
	Conflicts *repository.ConflictRepo
	Publisher *queuepublisher.Publisher
}

// NewConflictHandler constructs a ConflictHandler.
func NewConflictHandler(conflicts *repository.ConflictRepo, publisher *queuepublisher.Publisher) *ConflictHandler {
	if conflicts == nil {
		panic("nil repository passed to NewConflictHandler")
	}
	return &ConflictHandler{Conflicts: conflicts, Publisher: publisher}
}

// Get handles GET /v1/conflicts/:id.
func (h *ConflictHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conflict id"})
	}
	cf, err := h.Conflicts.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"conflict": cf})
}

// Resolve handles POST /v1/conflicts/:id/resolve.  The conflict row is
// locked for the duration so two racing resolvers cannot both win; the
// update itself also guards on the UNRESOLVED state, so a conflict is
// resolved exactly once.
func (h *ConflictHandler) Resolve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conflict id"})
	}
	var body struct {
		Resolution string `json:"resolution"`
		Notes      string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	tx, err := h.Conflicts.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cf, err := h.Conflicts.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if err := conflict.Resolve(cf, body.Resolution, strings.TrimSpace(body.Notes), userID, time.Now()); err != nil {
		return writeDomainError(c, err)
	}
	if err := h.Conflicts.UpdateResolutionTx(ctx, tx, cf); err != nil {
		if err == sql.ErrNoRows {
			// Lost a race that the row lock should have prevented; report
			// it the same way as a repeat resolution.
			return writeDomainError(c, &conflict.AlreadyResolvedError{ConflictID: cf.ID, Resolution: cf.Resolution})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update conflict"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	if h.Publisher != nil {
		h.Publisher.PublishConflictResolved(ctx, cf)
	}
	return c.JSON(http.StatusOK, echo.Map{"conflict": cf})
}
