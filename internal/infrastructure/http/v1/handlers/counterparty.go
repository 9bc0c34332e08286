package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinibill/internal/domain/catalogs/counterparty"
	"clinibill/internal/infrastructure/http/v1/dto"
)

// CounterpartyHandler serves the counterparty catalog.
type CounterpartyHandler struct {
	*BaseHandler
	service *counterparty.Service
}

// NewCounterpartyHandler creates a counterparty handler.
func NewCounterpartyHandler(base *BaseHandler, service *counterparty.Service) *CounterpartyHandler {
	return &CounterpartyHandler{BaseHandler: base, service: service}
}

// List handles GET /counterparties
func (h *CounterpartyHandler) List(c *gin.Context) {
	cps, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse{Items: cps, Total: len(cps)})
}

// Get handles GET /counterparties/:id
func (h *CounterpartyHandler) Get(c *gin.Context) {
	cpID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	cp, err := h.service.GetByID(c.Request.Context(), cpID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

// Create handles POST /counterparties
func (h *CounterpartyHandler) Create(c *gin.Context) {
	var req dto.CreateCounterpartyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cp := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), cp); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, cp)
}

// Update handles PUT /counterparties/:id
func (h *CounterpartyHandler) Update(c *gin.Context) {
	cpID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateCounterpartyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cp, err := h.service.GetByID(c.Request.Context(), cpID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(cp)

	if err := h.service.Update(c.Request.Context(), cp); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

// Completeness handles GET /counterparties/:id/completeness
//
// Reports whether the counterparty can be invoiced automatically and which
// required fields are missing. Operators use this to fix records before the
// next batch run instead of discovering skips in the report.
func (h *CounterpartyHandler) Completeness(c *gin.Context) {
	cpID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	invoiceable, missing, err := h.service.Completeness(c.Request.Context(), cpID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CompletenessResponse{
		Invoiceable:   invoiceable,
		MissingFields: missing,
	})
}
