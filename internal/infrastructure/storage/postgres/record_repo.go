package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinibill/internal/core/id"
	"clinibill/internal/core/types"
	"clinibill/internal/domain/billing"
)

const serviceRecordsTable = "doc_service_records"

// RecordRepo implements billing.RecordSource over the service records table.
// Records are produced by the scheduling system; this repo only reads them.
type RecordRepo struct {
	txm *TxManager
}

var _ billing.RecordSource = (*RecordRepo)(nil)

// NewRecordRepo creates a service record repository.
func NewRecordRepo(txm *TxManager) *RecordRepo {
	return &RecordRepo{txm: txm}
}

// dbServiceRecord mirrors the table row. counterparty_id and price are
// nullable in the schema; the domain type carries a nil-UUID / nil pointer
// instead.
type dbServiceRecord struct {
	ID             id.ID        `db:"id"`
	OrganizationID id.ID        `db:"organization_id"`
	CounterpartyID *id.ID       `db:"counterparty_id"`
	Date           time.Time    `db:"date"`
	Status         string       `db:"status"`
	Description    string       `db:"description"`
	Price          *types.Money `db:"price"`
}

func (r *dbServiceRecord) toDomain() billing.SourceRecord {
	rec := billing.SourceRecord{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		CounterpartyID: id.Nil(),
		Date:           r.Date,
		Status:         r.Status,
		Description:    r.Description,
		Price:          r.Price,
	}
	if r.CounterpartyID != nil {
		rec.CounterpartyID = *r.CounterpartyID
	}
	return rec
}

// ListBillable returns all records of the organization whose date falls in
// the inclusive [from, to] range, regardless of status. The range is
// day-granular: to 2024-03-31 includes records at any time on 2024-03-31.
func (r *RecordRepo) ListBillable(ctx context.Context, orgID id.ID, from, to time.Time) ([]billing.SourceRecord, error) {
	q := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "organization_id", "counterparty_id", "date", "status", "description", "price").
		From(serviceRecordsTable).
		Where(squirrel.Eq{"organization_id": orgID}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.Lt{"date": to.AddDate(0, 0, 1)}).
		OrderBy("date", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*dbServiceRecord
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list service records: %w", err)
	}

	records := make([]billing.SourceRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}
