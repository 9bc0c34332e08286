package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinibill/internal/core/id"
	"clinibill/internal/domain/documents/invoice"
	"clinibill/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler serves read access to issued invoices.
// Invoices are created only by the batch engine; there is no create endpoint.
type InvoiceHandler struct {
	*BaseHandler
	repo invoice.Repository
}

// NewInvoiceHandler creates an invoice handler.
func NewInvoiceHandler(base *BaseHandler, repo invoice.Repository) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, repo: repo}
}

// List handles GET /invoices
// Optional filters: organizationId, counterpartyId, from, to, limit, offset.
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter invoice.ListFilter

	if v := c.Query("organizationId"); v != "" {
		orgID, err := id.Parse(v)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.OrganizationID = &orgID
	}
	if v := c.Query("counterpartyId"); v != "" {
		cpID, err := id.Parse(v)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.CounterpartyID = &cpID
	}
	if v := c.Query("from"); v != "" {
		from, err := dto.ParseDate("from", v)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.DateFrom = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := dto.ParseDate("to", v)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.DateTo = &to
	}
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	invs, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{Items: invs, Total: len(invs)})
}

// Get handles GET /invoices/:id, including lines.
func (h *InvoiceHandler) Get(c *gin.Context) {
	invID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	inv, err := h.repo.GetByID(c.Request.Context(), invID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}
