package billing

import (
	"fmt"
	"time"

	"clinibill/internal/core/id"
)

// Phase is the batch run state machine.
type Phase string

const (
	PhaseValidating Phase = "validating"
	PhaseGenerating Phase = "generating"
	PhaseCompleted  Phase = "completed"
	PhaseError      Phase = "error"
)

// SkippedGroup names a counterparty excluded from auto-generation and the
// fields an operator must fill before the next run.
type SkippedGroup struct {
	CounterpartyName string   `json:"counterpartyName"`
	MissingFields    []string `json:"missingFields"`
}

// Report is the structured result of one batch run. It is ephemeral: built
// once per run, returned to the caller, never persisted as a first-class
// entity (the audit sink keeps a serialized copy for operators).
type Report struct {
	OrganizationID id.ID `json:"organizationId"`
	Phase          Phase `json:"phase"`

	// Group accounting
	TotalGroups    int `json:"totalGroups"`
	EligibleGroups int `json:"eligibleGroups"`
	Generated      int `json:"generated"`
	AlreadyBilled  int `json:"alreadyBilled"`

	// Record accounting
	ExcludedByPolicy int `json:"excludedByPolicy"`

	// Counterparties excluded by the completeness gate
	Skipped []SkippedGroup `json:"skipped,omitempty"`

	// Errors are per-group generation failures, in processing order. These
	// count against "generation failed"; render failures do not.
	Errors []string `json:"errors,omitempty"`

	// SkippedRecords are records that could not be grouped at all
	SkippedRecords []string `json:"skippedRecords,omitempty"`

	// RenderFailures are invoices persisted without a rendered document,
	// surfaced separately from generation errors
	RenderFailures []string `json:"renderFailures,omitempty"`

	// InvoiceNumbers lists the numbers issued by this run, in order
	InvoiceNumbers []string `json:"invoiceNumbers,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// NewReport starts a report in the validating phase.
func NewReport(orgID id.ID) *Report {
	return &Report{
		OrganizationID: orgID,
		Phase:          PhaseValidating,
		StartedAt:      time.Now().UTC(),
	}
}

// AddGroupError records a per-group generation failure and keeps the run
// going. The counterparty name identifies the failed group for operators.
func (r *Report) AddGroupError(counterpartyName string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", counterpartyName, err))
}

// AddSkipped records a counterparty excluded by the completeness gate.
func (r *Report) AddSkipped(counterpartyName string, missing []string) {
	r.Skipped = append(r.Skipped, SkippedGroup{
		CounterpartyName: counterpartyName,
		MissingFields:    missing,
	})
}

// AddRenderFailure records a best-effort render/store failure.
func (r *Report) AddRenderFailure(invoiceNumber string, err error) {
	r.RenderFailures = append(r.RenderFailures, fmt.Sprintf("%s: %v", invoiceNumber, err))
}

// Finish stamps the terminal phase and finish time.
func (r *Report) Finish(phase Phase) *Report {
	r.Phase = phase
	r.FinishedAt = time.Now().UTC()
	return r
}

// Summary is a one-line human-readable outcome for logs.
func (r *Report) Summary() string {
	return fmt.Sprintf("phase=%s generated=%d/%d skipped=%d already_billed=%d errors=%d",
		r.Phase, r.Generated, r.EligibleGroups, len(r.Skipped), r.AlreadyBilled, len(r.Errors))
}
