package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinibill/internal/core/apperror"
	"clinibill/internal/core/id"
	"clinibill/internal/domain/billing"
	"clinibill/internal/infrastructure/http/v1/dto"
	"clinibill/internal/infrastructure/storage/postgres"
)

// BillingHandler serves batch invoice generation.
type BillingHandler struct {
	*BaseHandler
	orchestrator *billing.Orchestrator
	audit        *postgres.BatchRunAudit
}

// NewBillingHandler creates a billing handler. audit may be nil when run
// history is disabled.
func NewBillingHandler(base *BaseHandler, orchestrator *billing.Orchestrator, audit *postgres.BatchRunAudit) *BillingHandler {
	return &BillingHandler{BaseHandler: base, orchestrator: orchestrator, audit: audit}
}

// Run handles POST /billing/runs
//
// Executes one batch generation run synchronously and returns the report.
// Per-group failures are inside the report, not the HTTP status: 200 means
// the run itself completed, check the report for what it achieved.
func (h *BillingHandler) Run(c *gin.Context) {
	var req dto.RunBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	scope, err := req.ToScope()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.orchestrator.Run(c.Request.Context(), billing.RunRequest{Scope: scope})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// History handles GET /billing/runs?organizationId=...&limit=...
func (h *BillingHandler) History(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusOK, dto.ListResponse{Items: []any{}, Total: 0})
		return
	}

	orgID, err := id.Parse(c.Query("organizationId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid organization id").
			WithDetail("param", "organizationId"))
		return
	}
	limit := h.ParseIntQuery(c, "limit", 20)

	entries, err := h.audit.History(c.Request.Context(), orgID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{Items: entries, Total: len(entries)})
}
