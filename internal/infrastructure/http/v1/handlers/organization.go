package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinibill/internal/domain/catalogs/organization"
	"clinibill/internal/domain/numbering"
	"clinibill/internal/infrastructure/http/v1/dto"
)

// OrganizationHandler serves the organization catalog and its numbering
// administration endpoint.
type OrganizationHandler struct {
	*BaseHandler
	service *organization.Service
}

// NewOrganizationHandler creates an organization handler.
func NewOrganizationHandler(base *BaseHandler, service *organization.Service) *OrganizationHandler {
	return &OrganizationHandler{BaseHandler: base, service: service}
}

// List handles GET /organizations
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse{Items: orgs, Total: len(orgs)})
}

// Get handles GET /organizations/:id
func (h *OrganizationHandler) Get(c *gin.Context) {
	orgID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	org, err := h.service.GetByID(c.Request.Context(), orgID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

// Create handles POST /organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	org, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), org); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

// Update handles PUT /organizations/:id
func (h *OrganizationHandler) Update(c *gin.Context) {
	orgID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateOrganizationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	org, err := h.service.GetByID(c.Request.Context(), orgID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := req.ApplyTo(org); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Update(c.Request.Context(), org); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

// RaiseSequenceFloor handles POST /organizations/:id/sequence-floor
//
// Raises the numbering counter of one series so the next issued number is
// floor+1. Rejected with 422 when floor does not exceed the current counter.
func (h *OrganizationHandler) RaiseSequenceFloor(c *gin.Context) {
	orgID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RaiseSequenceFloorRequest
	if !h.BindJSON(c, &req) {
		return
	}

	docType, err := numbering.ParseDocumentType(req.DocumentType)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.RaiseSequenceFloor(c.Request.Context(), orgID, docType, req.Floor); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documentType": string(docType),
		"floor":        req.Floor,
	})
}
