// Package main is a one-shot batch invoice generation runner, intended for
// cron jobs and month-end closings without going through the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clinibill/internal/core/id"
	"clinibill/internal/domain/billing"
	"clinibill/internal/domain/numbering"
	"clinibill/internal/infrastructure/blob"
	"clinibill/internal/infrastructure/http/v1/dto"
	"clinibill/internal/infrastructure/render"
	"clinibill/internal/infrastructure/storage/postgres"
	"clinibill/pkg/logger"
)

func main() {
	var (
		orgFlag    = flag.String("org", "", "organization id (required)")
		fromFlag   = flag.String("from", "", "range start, yyyy-mm-dd (required)")
		toFlag     = flag.String("to", "", "range end, yyyy-mm-dd, inclusive (required)")
		typeFlag   = flag.String("type", "normal", "document type: normal, rectificative, simplified")
		policyFlag = flag.String("policy", "", "billable policy expression (CEL); empty bills every record in range")
	)
	flag.Parse()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	scope, err := buildScope(*orgFlag, *fromFlag, *toFlag, *typeFlag, *policyFlag)
	if err != nil {
		log.Fatalw("invalid arguments", "error", err)
	}

	// SIGINT/SIGTERM cancels between groups; the group in flight finishes.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)

	storage, err := blob.NewFilesystemStorage(getEnv("DOCUMENT_DIR", "./documents"))
	if err != nil {
		log.Fatalw("failed to initialize document storage", "error", err)
	}

	audit, err := postgres.NewBatchRunAudit(txm)
	if err != nil {
		log.Fatalw("failed to initialize batch run audit", "error", err)
	}

	orgRepo := postgres.NewOrganizationRepo(txm)
	cpRepo := postgres.NewCounterpartyRepo(txm)

	orchestrator := billing.NewOrchestrator(billing.OrchestratorConfig{
		Organizations: orgRepo,
		Aggregator:    billing.NewAggregator(postgres.NewRecordRepo(txm), cpRepo, billing.DefaultPriceResolver),
		Validator:     billing.NewCompletenessValidator(),
		Assembler:     billing.NewAssembler(),
		Allocator:     numbering.NewAllocator(postgres.NewSequenceStore(txm)),
		Invoices:      postgres.NewInvoiceRepo(txm),
		Renderer:      render.NewHTTPRenderer(getEnv("RENDERER_URL", "http://localhost:9090/render")),
		Storage:       storage,
		Audit:         audit,
	})

	report, err := orchestrator.Run(ctx, billing.RunRequest{Scope: scope})
	if err != nil {
		log.Fatalw("batch run failed", "error", err, "summary", report.Summary())
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalw("failed to encode report", "error", err)
	}
	fmt.Println(string(out))

	if len(report.Errors) > 0 {
		os.Exit(1)
	}
}

func buildScope(org, from, to, docType, policy string) (billing.Scope, error) {
	orgID, err := id.Parse(org)
	if err != nil {
		return billing.Scope{}, fmt.Errorf("invalid -org: %w", err)
	}

	fromDate, err := dto.ParseDate("from", from)
	if err != nil {
		return billing.Scope{}, err
	}
	toDate, err := dto.ParseDate("to", to)
	if err != nil {
		return billing.Scope{}, err
	}

	parsedType, err := numbering.ParseDocumentType(docType)
	if err != nil {
		return billing.Scope{}, err
	}

	return billing.Scope{
		OrganizationID: orgID,
		From:           fromDate,
		To:             toDate,
		DocType:        parsedType,
		PolicyExpr:     policy,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
