package handler // handler defines the HTTP handlers for the booking and refresh API

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/env-booking/internal/conflict"
	"github.com/iliyamo/env-booking/internal/lifecycle"
	"github.com/iliyamo/env-booking/internal/model"
	"github.com/iliyamo/env-booking/internal/repository"
)

// getUserID extracts the user_id placed in context by the JWT middleware
// and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// getRole extracts the role claim placed in context by the JWT middleware.
func getRole(c echo.Context) string {
	if role, ok := c.Get("role").(string); ok {
		return role
	}
	return ""
}

// pathID parses the :id path parameter as a positive integer.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// writeDomainError maps the core error taxonomy onto HTTP responses.
// Validation problems are 400, transition problems 409, blocked approvals
// 409 with the blocking conflicts attached, missing records 404.  Anything
// unrecognized falls through to a generic 500 so handler code never leaks
// raw database errors to clients.
func writeDomainError(c echo.Context, err error) error {
	switch {
	case model.IsValidationError(err):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case lifecycle.IsInvalidTransition(err):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case lifecycle.IsApprovalBlocked(err):
		blocked := err.(*lifecycle.ApprovalBlockedError)
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     blocked.Error(),
			"conflicts": blocked.Conflicts,
		})
	case conflict.IsAlreadyResolved(err):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrReservationNotFound),
		errors.Is(err, repository.ErrIntentNotFound),
		errors.Is(err, repository.ErrConflictNotFound),
		errors.Is(err, repository.ErrBindingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
