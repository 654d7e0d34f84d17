package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/env-booking/internal/conflict"
	"github.com/iliyamo/env-booking/internal/model"
	"github.com/iliyamo/env-booking/internal/repository"
	queuepublisher "github.com/iliyamo/env-booking/internal/service"
)

// ReservationHandler serves creation, conflict preview and lifecycle of
// reservations.  Detection runs against a snapshot read from the
// reservation store; creation is performed in a transaction so the
// reservation and the conflicts flagged on it commit atomically.
type ReservationHandler struct {
	Reservations *repository.ReservationRepo
	Conflicts    *repository.ConflictRepo
	Publisher    *queuepublisher.Publisher
}

// NewReservationHandler constructs a ReservationHandler.  All repositories
// must be non-nil; the publisher may be nil in tests.
func NewReservationHandler(reservations *repository.ReservationRepo, conflicts *repository.ConflictRepo, publisher *queuepublisher.Publisher) *ReservationHandler {
	if reservations == nil || conflicts == nil {
		panic("nil repository passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: reservations, Conflicts: conflicts, Publisher: publisher}
}

// reservationReq is the request body for creating or previewing a
// reservation.  Times are RFC3339.
type reservationReq struct {
	StartsAt  string              `json:"starts_at"`
	EndsAt    string              `json:"ends_at"`
	Resources []model.ResourceRef `json:"resources"`
	Priority  string              `json:"priority"`
	Phase     string              `json:"phase"`
}

// parseReservationReq validates the request body and builds the detector
// candidate.
func parseReservationReq(req reservationReq) (conflict.Candidate, error) {
	start, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return conflict.Candidate{}, model.NewValidationError("invalid starts_at, want RFC3339")
	}
	end, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return conflict.Candidate{}, model.NewValidationError("invalid ends_at, want RFC3339")
	}
	iv := model.NewInterval(start.UTC(), end.UTC())
	if err := iv.Validate(); err != nil {
		return conflict.Candidate{}, err
	}
	if len(req.Resources) == 0 {
		return conflict.Candidate{}, model.NewValidationError("at least one resource is required")
	}
	for _, ref := range req.Resources {
		if strings.TrimSpace(ref.Type) == "" || ref.ID == 0 {
			return conflict.Candidate{}, model.NewValidationError("resource type and id are required")
		}
	}
	priority := strings.ToUpper(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = model.PriorityNormal
	}
	if !model.ValidPriority(priority) {
		return conflict.Candidate{}, model.NewValidationError("unknown priority: " + req.Priority)
	}
	return conflict.Candidate{Interval: iv, Resources: req.Resources, Priority: priority}, nil
}

// Check handles POST /v1/reservations/check.  It runs booking conflict
// detection against the current snapshot without persisting anything, so a
// client can show the user what they are about to book over.
func (h *ReservationHandler) Check(c echo.Context) error {
	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	candidate, err := parseReservationReq(req)
	if err != nil {
		return writeDomainError(c, err)
	}
	ctx := c.Request().Context()
	active, err := h.Reservations.ListActiveForResources(ctx, candidate.Resources)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	conflicts := conflict.DetectBookingConflicts(candidate, active)
	return c.JSON(http.StatusOK, echo.Map{
		"conflicts":     conflicts,
		"has_conflicts": len(conflicts) > 0,
	})
}

// Create handles POST /v1/reservations.  Detection runs first; detected
// double bookings never block creation, they are persisted alongside the
// reservation and the reservation is flagged for human review.
func (h *ReservationHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	candidate, err := parseReservationReq(req)
	if err != nil {
		return writeDomainError(c, err)
	}
	ctx := c.Request().Context()
	active, err := h.Reservations.ListActiveForResources(ctx, candidate.Resources)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	conflicts := conflict.DetectBookingConflicts(candidate, active)

	res := &model.Reservation{
		Interval:       candidate.Interval,
		Status:         model.ReservationRequested,
		Resources:      candidate.Resources,
		Priority:       candidate.Priority,
		Phase:          strings.TrimSpace(req.Phase),
		OwnerID:        userID,
		ConflictStatus: model.ConflictStatusNone,
	}
	if len(conflicts) > 0 {
		res.ConflictStatus = model.ConflictStatusFlagged
	}

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Reservations.CreateTx(ctx, tx, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
	}
	for i := range conflicts {
		conflicts[i].ReservationID = &res.ID
	}
	if err := h.Conflicts.CreateBulkTx(ctx, tx, conflicts); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record conflicts"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	if len(conflicts) > 0 && h.Publisher != nil {
		// Best effort: a publish failure never unwinds a committed booking.
		h.Publisher.PublishBookingFlagged(ctx, res, conflicts)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation": res,
		"conflicts":   conflicts,
	})
}

// List handles GET /v1/reservations.  Approvers and admins see every
// reservation; engineers see their own.
func (h *ReservationHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	role := getRole(c)
	var reservations []*model.Reservation
	if role == model.RoleApprover || role == model.RoleAdmin {
		reservations, err = h.Reservations.ListAll(ctx)
	} else {
		reservations, err = h.Reservations.ListByOwner(ctx, userID)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": reservations})
}

// Get handles GET /v1/reservations/:id, returning the reservation and all
// conflicts in which it is the candidate.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	conflicts, err := h.Conflicts.ListByReservation(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation": res,
		"conflicts":   conflicts,
	})
}

// UpdateStatus handles PATCH /v1/reservations/:id/status.  External approval
// actions drive a reservation through its statuses; once terminal it stays
// terminal.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	status := strings.ToUpper(strings.TrimSpace(body.Status))
	if !model.ValidReservationStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status: " + body.Status})
	}
	ctx := c.Request().Context()
	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if !res.IsActive() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is already " + res.Status})
	}
	if err := h.Reservations.UpdateStatus(ctx, id, status); err != nil {
		return writeDomainError(c, err)
	}
	res.Status = status
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

// Delete handles DELETE /v1/reservations/:id.  Owners delete their own
// reservations; admins may delete any.  Deletion removes the reservation
// from future conflict computations but keeps resolved conflict records in
// which it was the existing side.
func (h *ReservationHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	force := getRole(c) == model.RoleAdmin
	if err := h.Reservations.Delete(c.Request().Context(), id, userID, force); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
