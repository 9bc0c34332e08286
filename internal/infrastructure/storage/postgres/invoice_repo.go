package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"clinibill/internal/core/apperror"
	"clinibill/internal/core/id"
	"clinibill/internal/domain/documents/invoice"
)

const (
	invoicesTable     = "doc_invoices"
	invoiceLinesTable = "doc_invoice_lines"
)

var invoiceColumns = []string{
	"id", "deletion_mark", "version",
	"created_at", "updated_at", "created_by", "updated_by",
	"number", "date", "organization_id", "comment",
	"counterparty_id", "document_type", "raw_number",
	"base", "tax", "withholding", "discount", "total",
	"status", "document_url",
}

var invoiceLineColumns = []string{
	"line_id", "invoice_id", "line_no", "description",
	"quantity", "unit_price", "discount_pct", "tax_rate", "withholding_rate",
	"amount", "source_record_id",
}

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	txm *TxManager
}

var _ invoice.Repository = (*InvoiceRepo)(nil)

// NewInvoiceRepo creates an invoice repository.
func NewInvoiceRepo(txm *TxManager) *InvoiceRepo {
	return &InvoiceRepo{txm: txm}
}

func (r *InvoiceRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Save persists the header and all lines in one transaction. A duplicate
// source_record_id trips the table's unique index and surfaces as a conflict,
// so two racing runs cannot bill the same record twice even if both passed
// the pre-check.
func (r *InvoiceRepo) Save(ctx context.Context, inv *invoice.Invoice, lines []invoice.Line) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.insertHeader(ctx, inv); err != nil {
			return err
		}
		for i := range lines {
			if err := r.insertLine(ctx, inv.ID, &lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *InvoiceRepo) insertHeader(ctx context.Context, inv *invoice.Invoice) error {
	q := r.builder().
		Insert(invoicesTable).
		Columns(invoiceColumns...).
		Values(
			inv.ID, inv.DeletionMark, inv.Version,
			inv.CreatedAt, inv.UpdatedAt, inv.CreatedBy, inv.UpdatedBy,
			inv.Number, inv.Date, inv.OrganizationID, inv.Comment,
			inv.CounterpartyID, string(inv.Type), inv.RawNumber,
			inv.Base, inv.Tax, inv.Withholding, inv.Discount, inv.Total,
			string(inv.Status), inv.DocumentURL,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("invoice", "number", inv.Number)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	return nil
}

func (r *InvoiceRepo) insertLine(ctx context.Context, invID id.ID, line *invoice.Line) error {
	q := r.builder().
		Insert(invoiceLinesTable).
		Columns(invoiceLineColumns...).
		Values(
			line.LineID, invID, line.LineNo, line.Description,
			line.Quantity, line.UnitPrice, line.DiscountPct, line.TaxRate, line.WithholdingRate,
			line.Amount, line.SourceRecordID,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewAlreadyBilled(deref(line.SourceRecordID))
		}
		return fmt.Errorf("insert invoice line %d: %w", line.LineNo, err)
	}

	return nil
}

func deref(recID *id.ID) id.ID {
	if recID == nil {
		return id.Nil()
	}
	return *recID
}

// ExistsLineForSourceRecord reports whether the record has already been
// billed on any non-deleted invoice.
func (r *InvoiceRepo) ExistsLineForSourceRecord(ctx context.Context, recordID id.ID) (bool, error) {
	querier := r.txm.GetQuerier(ctx)

	var exists bool
	err := querier.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1
            FROM `+invoiceLinesTable+` l
            JOIN `+invoicesTable+` i ON i.id = l.invoice_id
            WHERE l.source_record_id = $1 AND NOT i.deletion_mark
        )
	`, recordID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check billed record: %w", err)
	}

	return exists, nil
}

// SetDocumentURL records the rendered document location.
func (r *InvoiceRepo) SetDocumentURL(ctx context.Context, invID id.ID, url string) error {
	q := r.builder().
		Update(invoicesTable).
		Set("document_url", url).
		Where(squirrel.Eq{"id": invID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set document url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("invoice", invID)
	}

	return nil
}

func (r *InvoiceRepo) GetByID(ctx context.Context, invID id.ID) (*invoice.Invoice, error) {
	q := r.builder().
		Select(invoiceColumns...).
		From(invoicesTable).
		Where(squirrel.Eq{"id": invID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var inv invoice.Invoice
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &inv, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("invoice", invID)
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	lines, err := r.GetLines(ctx, invID)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines

	return &inv, nil
}

func (r *InvoiceRepo) GetLines(ctx context.Context, invID id.ID) ([]invoice.Line, error) {
	q := r.builder().
		Select(
			"line_id", "line_no", "description",
			"quantity", "unit_price", "discount_pct", "tax_rate", "withholding_rate",
			"amount", "source_record_id",
		).
		From(invoiceLinesTable).
		Where(squirrel.Eq{"invoice_id": invID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []invoice.Line
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get invoice lines: %w", err)
	}

	return lines, nil
}

func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	q := r.builder().
		Select(invoiceColumns...).
		From(invoicesTable).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("date DESC", "raw_number DESC")

	if filter.OrganizationID != nil {
		q = q.Where(squirrel.Eq{"organization_id": *filter.OrganizationID})
	}
	if filter.CounterpartyID != nil {
		q = q.Where(squirrel.Eq{"counterparty_id": *filter.CounterpartyID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.Lt{"date": filter.DateTo.AddDate(0, 0, 1)})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var invs []*invoice.Invoice
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &invs, sql, args...); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	return invs, nil
}
