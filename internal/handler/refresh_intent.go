package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/env-booking/internal/conflict"
	"github.com/iliyamo/env-booking/internal/lifecycle"
	"github.com/iliyamo/env-booking/internal/model"
	"github.com/iliyamo/env-booking/internal/repository"
	queuepublisher "github.com/iliyamo/env-booking/internal/service"
)

// RefreshIntentHandler drives refresh intents through their approval
// lifecycle.  Every transition loads the intent under a row lock inside a
// transaction, applies the pure state machine, and writes the result back,
// so two concurrent actions on the same intent serialize at the database.
// Audit events are published after commit on a best-effort basis.
type RefreshIntentHandler struct {
	Intents      *repository.IntentRepo
	Reservations *repository.ReservationRepo
	Conflicts    *repository.ConflictRepo
	Publisher    *queuepublisher.Publisher
}

// NewRefreshIntentHandler constructs a RefreshIntentHandler.  All
// repositories must be non-nil; the publisher may be nil in tests.
func NewRefreshIntentHandler(intents *repository.IntentRepo, reservations *repository.ReservationRepo, conflicts *repository.ConflictRepo, publisher *queuepublisher.Publisher) *RefreshIntentHandler {
	if intents == nil || reservations == nil || conflicts == nil {
		panic("nil repository passed to NewRefreshIntentHandler")
	}
	return &RefreshIntentHandler{
		Intents:      intents,
		Reservations: reservations,
		Conflicts:    conflicts,
		Publisher:    publisher,
	}
}

// intentReq is the request body for creating or previewing a refresh
// intent.  planned_end may be omitted; the default refresh window is then
// applied at detection time.
type intentReq struct {
	Entity               model.EntityRef `json:"entity"`
	PlannedStart         string          `json:"planned_start"`
	PlannedEnd           string          `json:"planned_end"`
	Kind                 string          `json:"kind"`
	Impact               string          `json:"impact"`
	RequiresDowntime     bool            `json:"requires_downtime"`
	EstimatedDowntimeMin uint32          `json:"estimated_downtime_min"`
	Reason               string          `json:"reason"`
}

// parseIntentReq validates the request body and builds an unsaved intent.
func parseIntentReq(req intentReq, requesterID uint64) (*model.RefreshIntent, error) {
	if err := req.Entity.Validate(); err != nil {
		return nil, err
	}
	start, err := time.Parse(time.RFC3339, req.PlannedStart)
	if err != nil {
		return nil, model.NewValidationError("invalid planned_start, want RFC3339")
	}
	iv := model.Interval{Start: start.UTC()}
	if strings.TrimSpace(req.PlannedEnd) != "" {
		end, err := time.Parse(time.RFC3339, req.PlannedEnd)
		if err != nil {
			return nil, model.NewValidationError("invalid planned_end, want RFC3339")
		}
		iv.End = end.UTC()
	}
	if err := iv.Normalized().Validate(); err != nil {
		return nil, err
	}
	kind := strings.ToUpper(strings.TrimSpace(req.Kind))
	if !model.ValidRefreshKind(kind) {
		return nil, model.NewValidationError("unknown refresh kind: " + req.Kind)
	}
	impact := strings.ToUpper(strings.TrimSpace(req.Impact))
	if !model.ValidImpact(impact) {
		return nil, model.NewValidationError("unknown impact type: " + req.Impact)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, model.NewValidationError("reason is required")
	}
	return &model.RefreshIntent{
		Target:               model.EntityRef{Type: strings.ToUpper(req.Entity.Type), ID: req.Entity.ID},
		Interval:             iv,
		Kind:                 kind,
		Impact:               impact,
		RequiresDowntime:     req.RequiresDowntime,
		EstimatedDowntimeMin: req.EstimatedDowntimeMin,
		Status:               model.IntentDraft,
		Reason:               strings.TrimSpace(req.Reason),
		RequesterID:          requesterID,
	}, nil
}

// Create handles POST /v1/refresh-intents.  The intent is saved as a DRAFT;
// conflict detection runs at submission.
func (h *RefreshIntentHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req intentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in, err := parseIntentReq(req, userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	if err := h.Intents.Create(c.Request().Context(), in); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create intent"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"intent": in})
}

// Check handles POST /v1/refresh-intents/check: a stateless preview of
// what submitting this intent would flag, so the requester sees the
// conflicts before acknowledging them.
func (h *RefreshIntentHandler) Check(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req intentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in, err := parseIntentReq(req, userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	reservations, err := h.Reservations.ListActiveForEntity(c.Request().Context(), in.Target)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	result, err := conflict.DetectRefreshConflicts(in, reservations)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// List handles GET /v1/refresh-intents.  Approvers and admins see all
// intents; engineers see their own.
func (h *RefreshIntentHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	role := getRole(c)
	var intents []*model.RefreshIntent
	if role == model.RoleApprover || role == model.RoleAdmin {
		intents, err = h.Intents.ListAll(ctx)
	} else {
		intents, err = h.Intents.ListByRequester(ctx, userID)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"intents": intents})
}

// Get handles GET /v1/refresh-intents/:id.  The aggregate conflict flag is
// recomputed from the unresolved conflicts on every read rather than
// trusting a value stored at submission time.
func (h *RefreshIntentHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid intent id"})
	}
	ctx := c.Request().Context()
	in, err := h.Intents.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	conflicts, err := h.Conflicts.ListByIntent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	open := make([]model.Conflict, 0, len(conflicts))
	for i := range conflicts {
		if !conflicts[i].IsResolved() {
			open = append(open, conflicts[i])
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"intent":         in,
		"conflicts":      conflicts,
		"aggregate_flag": model.AggregateSeverity(open),
	})
}

// ListConflicts handles GET /v1/refresh-intents/:id/conflicts.
func (h *RefreshIntentHandler) ListConflicts(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid intent id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Intents.GetByID(ctx, id); err != nil {
		return writeDomainError(c, err)
	}
	conflicts, err := h.Conflicts.ListByIntent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"conflicts": conflicts})
}

// Acknowledge handles POST /v1/refresh-intents/:id/acknowledge.  Only the
// requester can acknowledge the conflicts on their own intent; the flag is
// one precondition of force approval.
func (h *RefreshIntentHandler) Acknowledge(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid intent id"})
	}
	ctx := c.Request().Context()
	in, err := h.Intents.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if in.RequesterID != userID && getRole(c) != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if in.IsTerminal() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "intent is already " + in.Status})
	}
	if err := h.Intents.SetConflictAcknowledged(ctx, id, true); err != nil {
		return writeDomainError(c, err)
	}
	in.ConflictAcknowledged = true
	return c.JSON(http.StatusOK, echo.Map{"intent": in})
}

// transitionFn applies a lifecycle action to a locked intent and returns
// the audit event plus any extra response fields.  Additional per-action
// work (detection on submit, conflict reads on approve) happens inside the
// same transaction.
type transitionFn func(ctx echo.Context, tx *sql.Tx, in *model.RefreshIntent) (lifecycle.Event, echo.Map, error)

// runTransition is the shared transaction harness for all lifecycle
// endpoints: lock the intent row, apply the action, persist, commit, then
// publish the audit event.  A publish failure is logged by the publisher
// and never affects the committed transition.
func (h *RefreshIntentHandler) runTransition(c echo.Context, fn transitionFn) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid intent id"})
	}
	ctx := c.Request().Context()
	tx, err := h.Intents.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	in, err := h.Intents.GetByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	ev, extra, err := fn(c, tx, in)
	if err != nil {
		return writeDomainError(c, err)
	}
	if err := h.Intents.UpdateTx(ctx, tx, in); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update intent"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	if h.Publisher != nil {
		h.Publisher.PublishLifecycleEvent(ctx, in, ev)
	}
	resp := echo.Map{"intent": in, "event": ev}
	for k, v := range extra {
		resp[k] = v
	}
	return c.JSON(http.StatusOK, resp)
}

// Submit handles POST /v1/refresh-intents/:id/submit.  The transition to
// REQUESTED triggers a detector run whose conflicts are persisted in the
// same transaction; stale unresolved conflicts from a previous submission
// are replaced, resolved ones are kept as history.
func (h *RefreshIntentHandler) Submit(c echo.Context) error {
	return h.runTransition(c, func(c echo.Context, tx *sql.Tx, in *model.RefreshIntent) (lifecycle.Event, echo.Map, error) {
		userID, _ := getUserID(c)
		ev, err := lifecycle.Submit(in, userID, time.Now())
		if err != nil {
			return ev, nil, err
		}
		ctx := c.Request().Context()
		reservations, err := h.Reservations.ListActiveForEntity(ctx, in.Target)
		if err != nil {
			return ev, nil, err
		}
		detected, err := conflict.DetectRefreshConflicts(in, reservations)
		if err != nil {
			return ev, nil, err
		}
		for i := range detected.Conflicts {
			detected.Conflicts[i].IntentID = &in.ID
		}
		if err := h.Conflicts.DeleteUnresolvedByIntentTx(ctx, tx, in.ID); err != nil {
			return ev, nil, err
		}
		if err := h.Conflicts.CreateBulkTx(ctx, tx, detected.Conflicts); err != nil {
			return ev, nil, err
		}
		return ev, echo.Map{
			"conflicts":               detected.Conflicts,
			"aggregate_flag":          detected.AggregateFlag,
			"requires_force_approval": detected.RequiresForceApproval,
		}, nil
	})
}

// Approve handles POST /v1/refresh-intents/:id/approve.  The conflicts the
// gate evaluates are re-read under the intent's lock so resolutions made
// since submission count and a concurrent approval cannot slip through.
func (h *RefreshIntentHandler) Approve(c echo.Context) error {
	return h.runTransition(c, func(c echo.Context, tx *sql.Tx, in *model.RefreshIntent) (lifecycle.Event, echo.Map, error) {
		userID, _ := getUserID(c)
		conflicts, err := h.Conflicts.ListByIntentTx(c.Request().Context(), tx, in.ID)
		if err != nil {
			return lifecycle.Event{}, nil, err
		}
		canForce := model.HasCapability(getRole(c), model.CapabilityApproveWithConflicts)
		ev, err := lifecycle.Approve(in, conflicts, canForce, userID, time.Now())
		return ev, nil, err
	})
}

// Reject handles POST /v1/refresh-intents/:id/reject.  The reason is
// mandatory and is recorded on the intent.
func (h *RefreshIntentHandler) Reject(c echo.Context) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	return h.runTransition(c, func(c echo.Context, tx *sql.Tx, in *model.RefreshIntent) (lifecycle.Event, echo.Map, error) {
		userID, _ := getUserID(c)
		ev, err := lifecycle.Reject(in, strings.TrimSpace(body.Reason), userID, time.Now())
		return ev, nil, err
	})
}

// Schedule handles POST /v1/refresh-intents/:id/schedule.
func (h *RefreshIntentHandler) Schedule(c echo.Context) error {
	return h.runTransition(c, func(c echo.Context, tx *sql.Tx, in *model.RefreshIntent) (lifecycle.Event, echo.Map, error) {
		userID, _ := getUserID(c)
		ev, err := lifecycle.Schedule(in, userID, time.Now())
		return ev, nil, err
	})
}

// Start handles POST /v1/refresh-intents/:id/start.
func (h *RefreshIntentHandler) Start(c echo.Context) error {
	return h.runTransition(c, func(c echo.Context, tx *sql.Tx, in *model.RefreshIntent) (lifecycle.Event, echo.Map, error) {
		userID, _ := getUserID(c)
		ev, err := lifecycle.Start(in, userID, time.Now())
		return ev, nil, err
	})
}

// Complete handles POST /v1/refresh-intents/:id/complete with the run
// outcome, duration and operator notes.
func (h *RefreshIntentHandler) Complete(c echo.Context) error {
	var body struct {
		Outcome         string `json:"outcome"`
		DurationMinutes uint32 `json:"duration_minutes"`
		Notes           string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	return h.runTransition(c, func(c echo.Context, tx *sql.Tx, in *model.RefreshIntent) (lifecycle.Event, echo.Map, error) {
		userID, _ := getUserID(c)
		ev, err := lifecycle.Complete(in, body.Outcome, body.DurationMinutes, strings.TrimSpace(body.Notes), userID, time.Now())
		return ev, nil, err
	})
}

// Cancel handles POST /v1/refresh-intents/:id/cancel.
func (h *RefreshIntentHandler) Cancel(c echo.Context) error {
	return h.runTransition(c, func(c echo.Context, tx *sql.Tx, in *model.RefreshIntent) (lifecycle.Event, echo.Map, error) {
		userID, _ := getUserID(c)
		ev, err := lifecycle.Cancel(in, userID, time.Now())
		return ev, nil, err
	})
}

// Rollback handles POST /v1/refresh-intents/:id/rollback.
func (h *RefreshIntentHandler) Rollback(c echo.Context) error {
	return h.runTransition(c, func(c echo.Context, tx *sql.Tx, in *model.RefreshIntent) (lifecycle.Event, echo.Map, error) {
		userID, _ := getUserID(c)
		ev, err := lifecycle.Rollback(in, userID, time.Now())
		return ev, nil, err
	})
}
