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
	"clinibill/internal/domain/catalogs/counterparty"
)

const counterpartiesTable = "cat_counterparties"

var counterpartyColumns = []string{
	"id", "deletion_mark", "version", "code", "name",
	"legal_name", "tax_id", "address", "postal_code", "city",
	"phone", "email", "comment",
}

// CounterpartyRepo implements counterparty.Repository.
type CounterpartyRepo struct {
	txm *TxManager
}

var _ counterparty.Repository = (*CounterpartyRepo)(nil)

// NewCounterpartyRepo creates a counterparty repository.
func NewCounterpartyRepo(txm *TxManager) *CounterpartyRepo {
	return &CounterpartyRepo{txm: txm}
}

func (r *CounterpartyRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *CounterpartyRepo) GetByID(ctx context.Context, cpID id.ID) (*counterparty.Counterparty, error) {
	q := r.builder().
		Select(counterpartyColumns...).
		From(counterpartiesTable).
		Where(squirrel.Eq{"id": cpID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var cp counterparty.Counterparty
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &cp, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("counterparty", cpID)
		}
		return nil, fmt.Errorf("get counterparty: %w", err)
	}

	return &cp, nil
}

func (r *CounterpartyRepo) GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*counterparty.Counterparty, error) {
	if len(ids) == 0 {
		return map[id.ID]*counterparty.Counterparty{}, nil
	}

	q := r.builder().
		Select(counterpartyColumns...).
		From(counterpartiesTable).
		Where(squirrel.Eq{"id": ids})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var cps []*counterparty.Counterparty
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &cps, sql, args...); err != nil {
		return nil, fmt.Errorf("get counterparties: %w", err)
	}

	result := make(map[id.ID]*counterparty.Counterparty, len(cps))
	for _, cp := range cps {
		result[cp.ID] = cp
	}
	return result, nil
}

func (r *CounterpartyRepo) List(ctx context.Context) ([]*counterparty.Counterparty, error) {
	q := r.builder().
		Select(counterpartyColumns...).
		From(counterpartiesTable).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var cps []*counterparty.Counterparty
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &cps, sql, args...); err != nil {
		return nil, fmt.Errorf("list counterparties: %w", err)
	}

	return cps, nil
}

func (r *CounterpartyRepo) Create(ctx context.Context, cp *counterparty.Counterparty) error {
	q := r.builder().
		Insert(counterpartiesTable).
		Columns(counterpartyColumns...).
		Values(
			cp.ID, cp.DeletionMark, cp.Version, cp.Code, cp.Name,
			cp.LegalName, cp.TaxID, cp.Address, cp.PostalCode, cp.City,
			cp.Phone, cp.Email, cp.Comment,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert counterparty: %w", err)
	}

	return nil
}

func (r *CounterpartyRepo) Update(ctx context.Context, cp *counterparty.Counterparty) error {
	q := r.builder().
		Update(counterpartiesTable).
		Set("deletion_mark", cp.DeletionMark).
		Set("code", cp.Code).
		Set("name", cp.Name).
		Set("legal_name", cp.LegalName).
		Set("tax_id", cp.TaxID).
		Set("address", cp.Address).
		Set("postal_code", cp.PostalCode).
		Set("city", cp.City).
		Set("phone", cp.Phone).
		Set("email", cp.Email).
		Set("comment", cp.Comment).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": cp.ID}).
		Where(squirrel.Eq{"version": cp.Version}) // optimistic lock

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update counterparty: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(counterpartiesTable, cp.ID)
	}

	return nil
}
