// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"clinibill/internal/domain/billing"
	"clinibill/internal/domain/catalogs/counterparty"
	"clinibill/internal/domain/catalogs/organization"
	"clinibill/internal/domain/numbering"
	"clinibill/internal/infrastructure/http/v1/handlers"
	"clinibill/internal/infrastructure/http/v1/middleware"
	"clinibill/internal/infrastructure/storage/postgres"
	"clinibill/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool   *postgres.Pool
	TxM    *postgres.TxManager
	Logger *logger.Logger

	// Billing collaborators
	Renderer billing.Renderer
	Storage  billing.BlobStorage

	// Audit is optional; nil disables run history
	Audit *postgres.BatchRunAudit
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Wire repositories and services once; TxManager carries per-request
	// transaction state through the context.
	seqStore := postgres.NewSequenceStore(cfg.TxM)
	allocator := numbering.NewAllocator(seqStore)

	orgRepo := postgres.NewOrganizationRepo(cfg.TxM)
	orgService := organization.NewService(orgRepo, allocator)

	cpRepo := postgres.NewCounterpartyRepo(cfg.TxM)
	cpService := counterparty.NewService(cpRepo)

	invoiceRepo := postgres.NewInvoiceRepo(cfg.TxM)
	recordRepo := postgres.NewRecordRepo(cfg.TxM)

	orchestrator := billing.NewOrchestrator(billing.OrchestratorConfig{
		Organizations: orgRepo,
		Aggregator:    billing.NewAggregator(recordRepo, cpRepo, billing.DefaultPriceResolver),
		Validator:     billing.NewCompletenessValidator(),
		Assembler:     billing.NewAssembler(),
		Allocator:     allocator,
		Invoices:      invoiceRepo,
		Renderer:      cfg.Renderer,
		Storage:       cfg.Storage,
		Audit:         auditSink(cfg.Audit),
	})

	base := handlers.NewBaseHandler()

	// API v1
	api := router.Group("/api/v1")
	{
		orgHandler := handlers.NewOrganizationHandler(base, orgService)
		orgs := api.Group("/organizations")
		{
			orgs.GET("", orgHandler.List)
			orgs.POST("", orgHandler.Create)
			orgs.GET("/:id", orgHandler.Get)
			orgs.PUT("/:id", orgHandler.Update)
			orgs.POST("/:id/sequence-floor", orgHandler.RaiseSequenceFloor)
		}

		cpHandler := handlers.NewCounterpartyHandler(base, cpService)
		cps := api.Group("/counterparties")
		{
			cps.GET("", cpHandler.List)
			cps.POST("", cpHandler.Create)
			cps.GET("/:id", cpHandler.Get)
			cps.PUT("/:id", cpHandler.Update)
			cps.GET("/:id/completeness", cpHandler.Completeness)
		}

		billingHandler := handlers.NewBillingHandler(base, orchestrator, cfg.Audit)
		runs := api.Group("/billing")
		{
			runs.POST("/runs", billingHandler.Run)
			runs.GET("/runs", billingHandler.History)
		}

		invHandler := handlers.NewInvoiceHandler(base, invoiceRepo)
		invs := api.Group("/invoices")
		{
			invs.GET("", invHandler.List)
			invs.GET("/:id", invHandler.Get)
		}
	}

	return router
}

// auditSink avoids storing a typed nil in the AuditSink interface.
func auditSink(audit *postgres.BatchRunAudit) billing.AuditSink {
	if audit == nil {
		return nil
	}
	return audit
}
