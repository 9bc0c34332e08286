package billing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clinibill/internal/core/apperror"
	"clinibill/internal/domain/catalogs/organization"
	"clinibill/internal/domain/documents/invoice"
	"clinibill/internal/domain/numbering"
	"clinibill/pkg/logger"
)

var tracer = otel.Tracer("clinibill/billing")

// RunRequest describes one batch generation run.
type RunRequest struct {
	Scope Scope
}

// OrchestratorConfig wires the orchestrator's collaborators.
type OrchestratorConfig struct {
	Organizations organization.Repository
	Aggregator    *Aggregator
	Validator     *CompletenessValidator
	Assembler     *Assembler
	Allocator     *numbering.Allocator
	Invoices      invoice.Repository
	Renderer      Renderer
	Storage       BlobStorage

	// Audit is optional; nil disables run auditing
	Audit AuditSink
}

// Orchestrator drives a batch run end to end:
// aggregate → validate → (per eligible group) allocate → assemble → persist
// → render/store, collecting a structured report. Groups are processed one
// at a time to bound allocator contention and keep issued-number ordering
// deterministic within a run; independent runs may execute concurrently and
// still get unique numbers because allocation is atomic in the store.
type Orchestrator struct {
	orgs       organization.Repository
	aggregator *Aggregator
	validator  *CompletenessValidator
	assembler  *Assembler
	allocator  *numbering.Allocator
	invoices   invoice.Repository
	renderer   Renderer
	storage    BlobStorage
	audit      AuditSink
}

// NewOrchestrator creates a batch orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		orgs:       cfg.Organizations,
		aggregator: cfg.Aggregator,
		validator:  cfg.Validator,
		assembler:  cfg.Assembler,
		allocator:  cfg.Allocator,
		invoices:   cfg.Invoices,
		renderer:   cfg.Renderer,
		storage:    cfg.Storage,
		audit:      cfg.Audit,
	}
}

// Run executes one batch generation run and returns its report.
//
// The returned error is non-nil only for unrecoverable setup failures
// (organization not found, invalid policy); the report's phase is then
// PhaseError and no invoices were attempted. Per-group failures never abort
// the run - they are recorded in the report and processing continues with
// the next group.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*Report, error) {
	scope := req.Scope

	ctx, span := tracer.Start(ctx, "billing.run",
		trace.WithAttributes(
			attribute.String("organization_id", scope.OrganizationID.String()),
			attribute.String("document_type", string(scope.DocType)),
		))
	defer span.End()

	report := NewReport(scope.OrganizationID)

	// --- validating phase ---

	org, err := o.orgs.GetByID(ctx, scope.OrganizationID)
	if err != nil {
		return report.Finish(PhaseError), err
	}

	docType := scope.DocType
	if docType == "" {
		docType = numbering.TypeNormal
	}
	if !docType.Valid() {
		return report.Finish(PhaseError), apperror.NewValidation("unknown document type").
			WithDetail("field", "documentType").
			WithDetail("value", string(docType))
	}

	policy, err := CompileBillablePolicy(scope.PolicyExpr)
	if err != nil {
		return report.Finish(PhaseError), err
	}

	collected, err := o.aggregator.Collect(ctx, scope, policy, org.FallbackPrice)
	if err != nil {
		return report.Finish(PhaseError), err
	}

	report.TotalGroups = len(collected.Groups)
	report.ExcludedByPolicy = collected.ExcludedByPolicy
	report.SkippedRecords = collected.SkippedErrors

	eligible, ineligible := o.validator.Partition(collected.Groups)
	report.EligibleGroups = len(eligible)
	for _, group := range ineligible {
		report.AddSkipped(group.Counterparty.Name, group.MissingFields)
	}

	if len(collected.Groups) == 0 {
		// Nothing to do is a normal outcome, not an error.
		logger.Info(ctx, "batch run found nothing to bill",
			"organization", org.Name,
			"from", scope.From.Format("2006-01-02"),
			"to", scope.To.Format("2006-01-02"),
		)
		return o.finish(ctx, report, PhaseCompleted)
	}

	// --- generating phase ---

	report.Phase = PhaseGenerating

	for i, group := range eligible {
		// Cooperative cancellation between group iterations. A group
		// already in flight completes or fails whole thanks to the
		// transactional persist; it is never half-applied.
		if err := ctx.Err(); err != nil {
			remaining := len(eligible) - i
			report.Errors = append(report.Errors,
				fmt.Sprintf("run cancelled: %d eligible group(s) not processed", remaining))
			logger.Warn(ctx, "batch run cancelled", "remaining_groups", remaining)
			break
		}

		inv, lines, err := o.generateOne(ctx, org, docType, group)
		if err != nil {
			if apperror.IsAlreadyBilled(err) {
				// Re-run over an overlapping scope: treated as
				// already-succeeded, counted but not erred.
				report.AlreadyBilled++
				continue
			}
			report.AddGroupError(group.Counterparty.Name, err)
			logger.Error(ctx, "invoice generation failed for group",
				"counterparty", group.Counterparty.Name, "error", err)
			continue
		}

		report.Generated++
		report.InvoiceNumbers = append(report.InvoiceNumbers, inv.Number)

		// Best-effort post-processing: the invoice record stands even if
		// the document cannot be produced right now.
		o.renderAndStore(ctx, inv, lines, report)
	}

	return o.finish(ctx, report, PhaseCompleted)
}

// generateOne processes a single eligible group: dedup check, number
// allocation, assembly, transactional persist, last-number bookkeeping.
func (o *Orchestrator) generateOne(ctx context.Context, org *organization.Organization, docType numbering.DocumentType, group *CounterpartyGroup) (*invoice.Invoice, []invoice.Line, error) {
	// Idempotency guard: a source record maps to at most one invoice line.
	unbilled := make([]PricedRecord, 0, len(group.Records))
	for _, rec := range group.Records {
		exists, err := o.invoices.ExistsLineForSourceRecord(ctx, rec.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("check existing lines: %w", err)
		}
		if !exists {
			unbilled = append(unbilled, rec)
		}
	}
	if len(unbilled) == 0 {
		return nil, nil, apperror.NewBusinessRule(apperror.CodeAlreadyBilled,
			"all records in group are already billed")
	}

	billable := &CounterpartyGroup{
		Counterparty: group.Counterparty,
		Records:      unbilled,
	}

	issueDate := time.Now().UTC()

	number, err := o.allocator.Allocate(ctx, org.ID, docType, org.NumberingConfig(), issueDate)
	if err != nil {
		return nil, nil, err
	}

	lines, totals := o.assembler.Assemble(billable, Rates{
		TaxRate:         org.DefaultTaxRate,
		WithholdingRate: org.DefaultWithholdingRate,
	})

	inv := invoice.NewInvoice(org.ID, group.Counterparty.ID, docType)
	inv.Number = number.Formatted
	inv.RawNumber = number.Value
	inv.Date = issueDate
	inv.ApplyTotals(totals)
	inv.Comment = fmt.Sprintf("Automatic invoice for %d service record(s)", len(lines))
	inv.Lines = lines

	if err := inv.Validate(ctx); err != nil {
		return nil, nil, err
	}

	// Header and lines commit or roll back together. A failure here leaves
	// an allocated-but-unused number behind; that gap is reported as a
	// group error rather than hidden.
	if err := o.invoices.Save(ctx, inv, lines); err != nil {
		return nil, nil, fmt.Errorf("persist invoice %s: %w", inv.Number, err)
	}

	// Display bookkeeping only; the counter of record already advanced.
	if err := o.orgs.SetLastIssuedNumber(ctx, org.ID, docType, inv.Number); err != nil {
		logger.Warn(ctx, "failed to update last issued number",
			"organization", org.Name, "number", inv.Number, "error", err)
	}

	logger.Info(ctx, "invoice generated",
		"number", inv.Number,
		"counterparty", group.Counterparty.Name,
		"total", inv.Total.String(),
	)

	return inv, lines, nil
}

// renderAndStore produces and stores the printable document. Failures are
// surfaced separately from generation errors and never undo the invoice.
func (o *Orchestrator) renderAndStore(ctx context.Context, inv *invoice.Invoice, lines []invoice.Line, report *Report) {
	data, err := o.renderer.Render(ctx, inv, lines)
	if err != nil {
		report.AddRenderFailure(inv.Number, err)
		logger.Warn(ctx, "invoice render failed", "number", inv.Number, "error", err)
		return
	}

	url, err := o.storage.Store(ctx, data, inv.Number+".pdf")
	if err != nil {
		report.AddRenderFailure(inv.Number, err)
		logger.Warn(ctx, "invoice document store failed", "number", inv.Number, "error", err)
		return
	}

	if err := o.invoices.SetDocumentURL(ctx, inv.ID, url); err != nil {
		report.AddRenderFailure(inv.Number, err)
		logger.Warn(ctx, "failed to link rendered document", "number", inv.Number, "error", err)
	}
}

func (o *Orchestrator) finish(ctx context.Context, report *Report, phase Phase) (*Report, error) {
	report.Finish(phase)

	if o.audit != nil {
		if err := o.audit.SaveRun(ctx, report.OrganizationID, report); err != nil {
			logger.Warn(ctx, "failed to audit batch run", "error", err)
		}
	}

	logger.Info(ctx, "batch run finished", "summary", report.Summary())
	return report, nil
}
