package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"clinibill/internal/core/apperror"
	"clinibill/internal/core/id"
	"clinibill/internal/core/types"
	"clinibill/internal/domain/catalogs/organization"
	"clinibill/internal/domain/documents/invoice"
	"clinibill/internal/domain/numbering"
)

// --- orchestrator fakes ---

type fakeOrgRepo struct {
	org         *organization.Organization
	lastNumbers map[string]string
}

func (r *fakeOrgRepo) GetByID(_ context.Context, orgID id.ID) (*organization.Organization, error) {
	if r.org == nil || r.org.ID != orgID {
		return nil, apperror.NewNotFound("organization", orgID)
	}
	return r.org, nil
}

func (r *fakeOrgRepo) List(_ context.Context) ([]*organization.Organization, error) {
	return []*organization.Organization{r.org}, nil
}

func (r *fakeOrgRepo) Create(_ context.Context, org *organization.Organization) error { return nil }
func (r *fakeOrgRepo) Update(_ context.Context, org *organization.Organization) error { return nil }

func (r *fakeOrgRepo) SetLastIssuedNumber(_ context.Context, _ id.ID, docType numbering.DocumentType, number string) error {
	if r.lastNumbers == nil {
		r.lastNumbers = make(map[string]string)
	}
	r.lastNumbers[string(docType)] = number
	return nil
}

type fakeSeqStore struct {
	mu      sync.Mutex
	counter int64
}

func (s *fakeSeqStore) Increment(_ context.Context, _ id.ID, _ numbering.DocumentType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return s.counter, nil
}

func (s *fakeSeqStore) SetFloor(_ context.Context, _ id.ID, _ numbering.DocumentType, floor int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counter >= floor {
		return false, nil
	}
	s.counter = floor
	return true, nil
}

type fakeInvoiceRepo struct {
	saved   []*invoice.Invoice
	billed  map[id.ID]bool // source records already billed
	docURLs map[id.ID]string
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		billed:  make(map[id.ID]bool),
		docURLs: make(map[id.ID]string),
	}
}

func (r *fakeInvoiceRepo) Save(_ context.Context, inv *invoice.Invoice, lines []invoice.Line) error {
	r.saved = append(r.saved, inv)
	for _, line := range lines {
		if line.SourceRecordID != nil {
			r.billed[*line.SourceRecordID] = true
		}
	}
	return nil
}

func (r *fakeInvoiceRepo) ExistsLineForSourceRecord(_ context.Context, recordID id.ID) (bool, error) {
	return r.billed[recordID], nil
}

func (r *fakeInvoiceRepo) SetDocumentURL(_ context.Context, invID id.ID, url string) error {
	r.docURLs[invID] = url
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, invID id.ID) (*invoice.Invoice, error) {
	for _, inv := range r.saved {
		if inv.ID == invID {
			return inv, nil
		}
	}
	return nil, apperror.NewNotFound("invoice", invID)
}

func (r *fakeInvoiceRepo) GetLines(_ context.Context, _ id.ID) ([]invoice.Line, error) {
	return nil, nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, _ invoice.ListFilter) ([]*invoice.Invoice, error) {
	return r.saved, nil
}

type fakeRenderer struct {
	fail  bool
	calls int
}

func (r *fakeRenderer) Render(_ context.Context, inv *invoice.Invoice, _ []invoice.Line) ([]byte, error) {
	r.calls++
	if r.fail {
		return nil, errors.New("render service down")
	}
	return []byte("PDF:" + inv.Number), nil
}

type fakeStorage struct {
	stored map[string][]byte
}

func (s *fakeStorage) Store(_ context.Context, data []byte, name string) (string, error) {
	if s.stored == nil {
		s.stored = make(map[string][]byte)
	}
	s.stored[name] = data
	return "/docs/" + name, nil
}

type fakeAudit struct {
	runs []*Report
}

func (a *fakeAudit) SaveRun(_ context.Context, _ id.ID, report *Report) error {
	a.runs = append(a.runs, report)
	return nil
}

// --- test harness ---

type orchestratorFixture struct {
	org      *organization.Organization
	orgs     *fakeOrgRepo
	source   *fakeRecordSource
	cps      *fakeCounterpartyRepo
	invoices *fakeInvoiceRepo
	renderer *fakeRenderer
	storage  *fakeStorage
	audit    *fakeAudit
}

func newFixture() *orchestratorFixture {
	org := organization.NewOrganization("ORG01", "Main Clinic", "FACT")
	org.DefaultTaxRate = types.MustRate("21")
	org.DefaultWithholdingRate = types.MustRate("15")
	org.FallbackPrice = types.MustMoney("45")

	return &orchestratorFixture{
		org:      org,
		orgs:     &fakeOrgRepo{org: org},
		source:   &fakeRecordSource{},
		cps:      newFakeCounterpartyRepo(),
		invoices: newFakeInvoiceRepo(),
		renderer: &fakeRenderer{},
		storage:  &fakeStorage{},
		audit:    &fakeAudit{},
	}
}

func (f *orchestratorFixture) orchestrator() *Orchestrator {
	return NewOrchestrator(OrchestratorConfig{
		Organizations: f.orgs,
		Aggregator:    NewAggregator(f.source, f.cps, nil),
		Validator:     NewCompletenessValidator(),
		Assembler:     NewAssembler(),
		Allocator:     numbering.NewAllocator(&fakeSeqStore{}),
		Invoices:      f.invoices,
		Renderer:      f.renderer,
		Storage:       f.storage,
		Audit:         f.audit,
	})
}

func (f *orchestratorFixture) scope() Scope {
	return Scope{OrganizationID: f.org.ID}
}

func TestOrchestrator_Run_HappyPath(t *testing.T) {
	f := newFixture()
	cpA := invoiceableCounterparty("CP001", "Alpha")
	cpB := invoiceableCounterparty("CP002", "Beta")
	f.cps.Create(context.Background(), cpA)
	f.cps.Create(context.Background(), cpB)
	f.source.records = []SourceRecord{
		record(f.org.ID, cpA.ID, "completed", "100"),
		record(f.org.ID, cpA.ID, "completed", "50"),
		record(f.org.ID, cpB.ID, "completed", "80"),
	}

	report, err := f.orchestrator().Run(context.Background(), RunRequest{Scope: f.scope()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Phase != PhaseCompleted {
		t.Errorf("phase = %s, want completed", report.Phase)
	}
	if report.Generated != 2 {
		t.Errorf("generated = %d, want 2", report.Generated)
	}
	if len(f.invoices.saved) != 2 {
		t.Fatalf("saved invoices = %d, want 2", len(f.invoices.saved))
	}

	// Alphabetical processing order: Alpha first, so FACT0001 is Alpha's.
	if report.InvoiceNumbers[0] != "FACT0001" || report.InvoiceNumbers[1] != "FACT0002" {
		t.Errorf("numbers = %v, want [FACT0001 FACT0002]", report.InvoiceNumbers)
	}

	// Alpha's invoice: 2 lines, base 150, tax 31.50, withholding 22.50.
	alpha := f.invoices.saved[0]
	if len(alpha.Lines) != 2 {
		t.Errorf("alpha lines = %d, want 2", len(alpha.Lines))
	}
	if !alpha.Total.Equal(types.MustMoney("159.00")) {
		t.Errorf("alpha total = %s, want 159.00", alpha.Total)
	}

	// Rendered documents linked.
	if len(f.invoices.docURLs) != 2 {
		t.Errorf("document URLs = %d, want 2", len(f.invoices.docURLs))
	}

	// Bookkeeping and audit.
	if f.orgs.lastNumbers["normal"] != "FACT0002" {
		t.Errorf("last issued = %s, want FACT0002", f.orgs.lastNumbers["normal"])
	}
	if len(f.audit.runs) != 1 {
		t.Errorf("audit runs = %d, want 1", len(f.audit.runs))
	}
}

func TestOrchestrator_Run_IncompleteCounterpartySkipped(t *testing.T) {
	f := newFixture()
	complete := invoiceableCounterparty("CP001", "Complete")
	incomplete := invoiceableCounterparty("CP002", "Incomplete")
	incomplete.PostalCode = nil
	f.cps.Create(context.Background(), complete)
	f.cps.Create(context.Background(), incomplete)
	f.source.records = []SourceRecord{
		record(f.org.ID, complete.ID, "completed", "100"),
		record(f.org.ID, incomplete.ID, "completed", "100"),
	}

	report, err := f.orchestrator().Run(context.Background(), RunRequest{Scope: f.scope()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Generated != 1 {
		t.Errorf("generated = %d, want 1", report.Generated)
	}
	if len(report.Skipped) != 1 {
		t.Fatalf("skipped = %d, want 1", len(report.Skipped))
	}
	if report.Skipped[0].CounterpartyName != "Incomplete" {
		t.Errorf("skipped name = %s", report.Skipped[0].CounterpartyName)
	}
	if report.Skipped[0].MissingFields[0] != "postal_code" {
		t.Errorf("missing fields = %v", report.Skipped[0].MissingFields)
	}
	// Skips are not errors.
	if len(report.Errors) != 0 {
		t.Errorf("errors = %v, want none", report.Errors)
	}
}

func TestOrchestrator_Run_PartialFailureIsolation(t *testing.T) {
	f := newFixture()
	for i, name := range []string{"Alpha", "Beta", "Gamma"} {
		cp := invoiceableCounterparty(fmt.Sprintf("CP%03d", i+1), name)
		f.cps.Create(context.Background(), cp)
		f.source.records = append(f.source.records,
			record(f.org.ID, cp.ID, "completed", "100"))
	}

	// Beta (second in processing order) fails to persist.
	failOnSecond := &failNthInvoiceRepo{fakeInvoiceRepo: f.invoices, failNth: 2}

	orch := NewOrchestrator(OrchestratorConfig{
		Organizations: f.orgs,
		Aggregator:    NewAggregator(f.source, f.cps, nil),
		Validator:     NewCompletenessValidator(),
		Assembler:     NewAssembler(),
		Allocator:     numbering.NewAllocator(&fakeSeqStore{}),
		Invoices:      failOnSecond,
		Renderer:      f.renderer,
		Storage:       f.storage,
		Audit:         f.audit,
	})

	report, err := orch.Run(context.Background(), RunRequest{Scope: f.scope()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One group failed, the other two were not aborted.
	if report.Generated != 2 {
		t.Errorf("generated = %d, want 2", report.Generated)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("errors = %v, want 1", report.Errors)
	}
	if report.Phase != PhaseCompleted {
		t.Errorf("phase = %s, want completed (per-group failure is not a run failure)", report.Phase)
	}
}

// failNthInvoiceRepo fails the nth Save call.
type failNthInvoiceRepo struct {
	*fakeInvoiceRepo
	failNth int
	calls   int
}

func (r *failNthInvoiceRepo) Save(ctx context.Context, inv *invoice.Invoice, lines []invoice.Line) error {
	r.calls++
	if r.calls == r.failNth {
		return errors.New("storage unavailable")
	}
	return r.fakeInvoiceRepo.Save(ctx, inv, lines)
}

func TestOrchestrator_Run_IdempotentRerun(t *testing.T) {
	f := newFixture()
	cp := invoiceableCounterparty("CP001", "Alpha")
	f.cps.Create(context.Background(), cp)
	f.source.records = []SourceRecord{
		record(f.org.ID, cp.ID, "completed", "100"),
	}

	orch := f.orchestrator()

	first, err := orch.Run(context.Background(), RunRequest{Scope: f.scope()})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Generated != 1 {
		t.Fatalf("first run generated = %d, want 1", first.Generated)
	}

	// Same scope again: the record is already billed, so the group is
	// silently skipped, not duplicated and not erred.
	second, err := orch.Run(context.Background(), RunRequest{Scope: f.scope()})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Generated != 0 {
		t.Errorf("second run generated = %d, want 0", second.Generated)
	}
	if second.AlreadyBilled != 1 {
		t.Errorf("second run alreadyBilled = %d, want 1", second.AlreadyBilled)
	}
	if len(second.Errors) != 0 {
		t.Errorf("second run errors = %v, want none", second.Errors)
	}
	if len(f.invoices.saved) != 1 {
		t.Errorf("total invoices = %d, want 1 (no duplicates)", len(f.invoices.saved))
	}
}

func TestOrchestrator_Run_PartialGroupRebill(t *testing.T) {
	f := newFixture()
	cp := invoiceableCounterparty("CP001", "Alpha")
	f.cps.Create(context.Background(), cp)

	billed := record(f.org.ID, cp.ID, "completed", "100")
	fresh := record(f.org.ID, cp.ID, "completed", "60")
	f.source.records = []SourceRecord{billed, fresh}
	f.invoices.billed[billed.ID] = true

	report, err := f.orchestrator().Run(context.Background(), RunRequest{Scope: f.scope()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the unbilled record makes it onto the new invoice.
	if report.Generated != 1 {
		t.Fatalf("generated = %d, want 1", report.Generated)
	}
	inv := f.invoices.saved[0]
	if len(inv.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(inv.Lines))
	}
	if *inv.Lines[0].SourceRecordID != fresh.ID {
		t.Error("invoice must reference the unbilled record only")
	}
}

func TestOrchestrator_Run_NothingToDo(t *testing.T) {
	f := newFixture()

	report, err := f.orchestrator().Run(context.Background(), RunRequest{Scope: f.scope()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Phase != PhaseCompleted {
		t.Errorf("phase = %s, want completed (empty scope is a normal outcome)", report.Phase)
	}
	if report.Generated != 0 || len(report.Errors) != 0 {
		t.Errorf("empty run must generate nothing and err nothing")
	}
}

func TestOrchestrator_Run_UnknownOrganization(t *testing.T) {
	f := newFixture()

	report, err := f.orchestrator().Run(context.Background(), RunRequest{
		Scope: Scope{OrganizationID: id.New()},
	})
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if report.Phase != PhaseError {
		t.Errorf("phase = %s, want error", report.Phase)
	}
}

func TestOrchestrator_Run_InvalidPolicy(t *testing.T) {
	f := newFixture()

	scope := f.scope()
	scope.PolicyExpr = "status +"

	report, err := f.orchestrator().Run(context.Background(), RunRequest{Scope: scope})
	if err == nil {
		t.Fatal("expected error for invalid policy")
	}
	if report.Phase != PhaseError {
		t.Errorf("phase = %s, want error", report.Phase)
	}
}

func TestOrchestrator_Run_RenderFailureNonFatal(t *testing.T) {
	f := newFixture()
	f.renderer.fail = true
	cp := invoiceableCounterparty("CP001", "Alpha")
	f.cps.Create(context.Background(), cp)
	f.source.records = []SourceRecord{
		record(f.org.ID, cp.ID, "completed", "100"),
	}

	report, err := f.orchestrator().Run(context.Background(), RunRequest{Scope: f.scope()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Invoice persisted despite the render failure.
	if report.Generated != 1 {
		t.Errorf("generated = %d, want 1", report.Generated)
	}
	if len(f.invoices.saved) != 1 {
		t.Errorf("saved = %d, want 1", len(f.invoices.saved))
	}
	// Failure surfaced separately, not as a generation error.
	if len(report.RenderFailures) != 1 {
		t.Errorf("renderFailures = %v, want 1", report.RenderFailures)
	}
	if len(report.Errors) != 0 {
		t.Errorf("errors = %v, want none", report.Errors)
	}
}

func TestOrchestrator_Run_Cancellation(t *testing.T) {
	f := newFixture()
	for i, name := range []string{"Alpha", "Beta", "Gamma"} {
		cp := invoiceableCounterparty(fmt.Sprintf("CP%03d", i+1), name)
		f.cps.Create(context.Background(), cp)
		f.source.records = append(f.source.records,
			record(f.org.ID, cp.ID, "completed", "100"))
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel after the first group persists.
	cancelAfterFirst := &cancelingInvoiceRepo{fakeInvoiceRepo: f.invoices, cancel: cancel}

	orch := NewOrchestrator(OrchestratorConfig{
		Organizations: f.orgs,
		Aggregator:    NewAggregator(f.source, f.cps, nil),
		Validator:     NewCompletenessValidator(),
		Assembler:     NewAssembler(),
		Allocator:     numbering.NewAllocator(&fakeSeqStore{}),
		Invoices:      cancelAfterFirst,
		Renderer:      f.renderer,
		Storage:       f.storage,
		Audit:         f.audit,
	})

	report, err := orch.Run(ctx, RunRequest{Scope: f.scope()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// First group completed whole; the rest were not started.
	if report.Generated != 1 {
		t.Errorf("generated = %d, want 1", report.Generated)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("errors = %v, want the cancellation note", report.Errors)
	}
}

// cancelingInvoiceRepo cancels the run context after the first successful Save.
type cancelingInvoiceRepo struct {
	*fakeInvoiceRepo
	cancel context.CancelFunc
	once   sync.Once
}

func (r *cancelingInvoiceRepo) Save(ctx context.Context, inv *invoice.Invoice, lines []invoice.Line) error {
	err := r.fakeInvoiceRepo.Save(ctx, inv, lines)
	r.once.Do(r.cancel)
	return err
}
