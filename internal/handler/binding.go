package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/env-booking/internal/model"
	"github.com/iliyamo/env-booking/internal/repository"
)

// BindingHandler manages the entity-to-resource bindings that tell the
// refresh detector which reservable resources a refresh target touches.
// The routes are admin-only; wiring is done at the router.
type BindingHandler struct {
	Bindings *repository.BindingRepo
}

// NewBindingHandler constructs a BindingHandler.
func NewBindingHandler(bindings *repository.BindingRepo) *BindingHandler {
	if bindings == nil {
		panic("nil repository passed to NewBindingHandler")
	}
	return &BindingHandler{Bindings: bindings}
}

type bindingReq struct {
	Entity   model.EntityRef   `json:"entity"`
	Resource model.ResourceRef `json:"resource"`
}

// Create handles POST /v1/bindings.
func (h *BindingHandler) Create(c echo.Context) error {
	var req bindingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := req.Entity.Validate(); err != nil {
		return writeDomainError(c, err)
	}
	if strings.TrimSpace(req.Resource.Type) == "" || req.Resource.ID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource type and id are required"})
	}
	b := &repository.Binding{
		Entity: model.EntityRef{Type: strings.ToUpper(req.Entity.Type), ID: req.Entity.ID},
		Resource: model.ResourceRef{
			Type: strings.ToUpper(strings.TrimSpace(req.Resource.Type)),
			ID:   req.Resource.ID,
		},
	}
	if err := h.Bindings.Create(c.Request().Context(), b); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"binding": b})
}

// List handles GET /v1/bindings?entity_type=ENVIRONMENT.
func (h *BindingHandler) List(c echo.Context) error {
	entityType := strings.ToUpper(strings.TrimSpace(c.QueryParam("entity_type")))
	if entityType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "entity_type query parameter is required"})
	}
	bindings, err := h.Bindings.ListByEntityType(c.Request().Context(), entityType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bindings": bindings})
}

// Resolve handles GET /v1/bindings/resolve?entity_type=X&entity_id=N and
// returns the reservable resources the given entity maps to.  Useful for
// checking what a refresh of that entity would contend with.
func (h *BindingHandler) Resolve(c echo.Context) error {
	entity := model.EntityRef{Type: strings.ToUpper(strings.TrimSpace(c.QueryParam("entity_type")))}
	id, err := strconv.ParseUint(c.QueryParam("entity_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entity_id"})
	}
	entity.ID = id
	if err := entity.Validate(); err != nil {
		return writeDomainError(c, err)
	}
	resources, err := h.Bindings.ListResourcesForEntity(c.Request().Context(), entity)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"entity": entity, "resources": resources})
}

// Get handles GET /v1/bindings/:id.
func (h *BindingHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid binding id"})
	}
	b, err := h.Bindings.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"binding": b})
}

// Delete handles DELETE /v1/bindings/:id.
func (h *BindingHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid binding id"})
	}
	if err := h.Bindings.Delete(c.Request().Context(), id); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
