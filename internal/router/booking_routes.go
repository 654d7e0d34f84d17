package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/env-booking/internal/handler"
	"github.com/iliyamo/env-booking/internal/middleware"
	"github.com/iliyamo/env-booking/internal/model"
)

// RegisterReservations registers the reservation endpoints under /v1.  All
// routes require a valid JWT; any role may book.  Creation never blocks on
// conflicts, so there is no approver gate here.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
	mws := append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleEngineer, model.RoleApprover, model.RoleAdmin),
	}, extra...)
	g := e.Group("/v1", mws...)

	g.POST("/reservations/check", h.Check)
	g.POST("/reservations", h.Create)
	g.GET("/reservations", h.List)
	g.GET("/reservations/:id", h.Get)
	g.PATCH("/reservations/:id/status", h.UpdateStatus)
	g.DELETE("/reservations/:id", h.Delete)
}

// RegisterRefreshIntents registers the refresh intent lifecycle endpoints
// under /v1.  Approve and reject are limited to roles that carry the
// corresponding capability; the remaining transitions are open to any
// authenticated role and are guarded by the state machine itself.
func RegisterRefreshIntents(e *echo.Echo, h *handler.RefreshIntentHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
	mws := append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleEngineer, model.RoleApprover, model.RoleAdmin),
	}, extra...)
	g := e.Group("/v1/refresh-intents", mws...)

	g.POST("/check", h.Check)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/conflicts", h.ListConflicts)
	g.POST("/:id/acknowledge", h.Acknowledge)
	g.POST("/:id/submit", h.Submit)
	g.POST("/:id/schedule", h.Schedule)
	g.POST("/:id/start", h.Start)
	g.POST("/:id/complete", h.Complete)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id/rollback", h.Rollback)

	approvers := middleware.RequireRole(model.RoleApprover, model.RoleAdmin)
	g.POST("/:id/approve", h.Approve, approvers)
	g.POST("/:id/reject", h.Reject, approvers)
}

// RegisterConflicts registers the conflict resolution endpoints under /v1.
func RegisterConflicts(e *echo.Echo, h *handler.ConflictHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
	mws := append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleEngineer, model.RoleApprover, model.RoleAdmin),
	}, extra...)
	g := e.Group("/v1/conflicts", mws...)

	g.GET("/:id", h.Get)
	g.POST("/:id/resolve", h.Resolve)
}

// RegisterBindings registers the admin-only entity-to-resource binding
// endpoints under /v1.
func RegisterBindings(e *echo.Echo, h *handler.BindingHandler, jwtSecret string) {
	g := e.Group(
		"/v1/bindings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.POST("", h.Create)
	g.GET("", h.List)
	// Static segment before the :id wildcard.
	g.GET("/resolve", h.Resolve)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
}
