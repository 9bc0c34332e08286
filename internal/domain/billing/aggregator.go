package billing

import (
	"context"
	"fmt"
	"sort"

	"clinibill/internal/core/id"
	"clinibill/internal/core/types"
	"clinibill/internal/domain/catalogs/counterparty"
)

// Aggregator collects source records for a scope and groups them by
// counterparty. It never filters by status on its own: the explicit policy
// passed by the caller decides billability.
type Aggregator struct {
	source         RecordSource
	counterparties counterparty.Repository
	resolver       PriceResolver
}

// NewAggregator creates an aggregator. resolver may be nil, in which case
// the record's own price is used.
func NewAggregator(source RecordSource, counterparties counterparty.Repository, resolver PriceResolver) *Aggregator {
	if resolver == nil {
		resolver = DefaultPriceResolver
	}
	return &Aggregator{
		source:         source,
		counterparties: counterparties,
		resolver:       resolver,
	}
}

// CollectResult is the outcome of record aggregation.
type CollectResult struct {
	// Groups are ordered alphabetically by counterparty name so issued
	// numbers follow a stable processing order within one run.
	Groups []*CounterpartyGroup

	// SkippedErrors are records that could not be grouped (no
	// counterparty, unknown counterparty), one human-readable entry each.
	SkippedErrors []string

	// ExcludedByPolicy counts records the billing policy declared
	// non-billable.
	ExcludedByPolicy int
}

// Collect pulls all records in scope, applies the billable policy, and
// groups the survivors by counterparty with running totals. A record whose
// price is not resolvable is billed at fallbackPrice.
func (a *Aggregator) Collect(ctx context.Context, scope Scope, policy *BillablePolicy, fallbackPrice types.Money) (*CollectResult, error) {
	records, err := a.source.ListBillable(ctx, scope.OrganizationID, scope.From, scope.To)
	if err != nil {
		return nil, fmt.Errorf("list billable records: %w", err)
	}

	result := &CollectResult{}

	// First pass: policy + counterparty presence.
	var billable []SourceRecord
	cpIDs := make(map[id.ID]struct{})
	for _, rec := range records {
		ok, err := policy.Billable(rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.ExcludedByPolicy++
			continue
		}

		if id.IsNil(rec.CounterpartyID) {
			result.SkippedErrors = append(result.SkippedErrors,
				fmt.Sprintf("record %s (%s): no counterparty assigned", rec.ID, rec.Date.Format("2006-01-02")))
			continue
		}

		billable = append(billable, rec)
		cpIDs[rec.CounterpartyID] = struct{}{}
	}

	if len(billable) == 0 {
		return result, nil
	}

	ids := make([]id.ID, 0, len(cpIDs))
	for cpID := range cpIDs {
		ids = append(ids, cpID)
	}
	cps, err := a.counterparties.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load counterparties: %w", err)
	}

	// Second pass: group with resolved prices.
	byCp := make(map[id.ID]*CounterpartyGroup)
	for _, rec := range billable {
		cp, ok := cps[rec.CounterpartyID]
		if !ok {
			result.SkippedErrors = append(result.SkippedErrors,
				fmt.Sprintf("record %s: counterparty %s not found", rec.ID, rec.CounterpartyID))
			continue
		}

		price, resolved := a.resolver(rec)
		if !resolved {
			price = fallbackPrice
		}

		group, ok := byCp[rec.CounterpartyID]
		if !ok {
			group = &CounterpartyGroup{Counterparty: cp, Total: types.Zero()}
			byCp[rec.CounterpartyID] = group
		}
		group.Records = append(group.Records, PricedRecord{SourceRecord: rec, UnitPrice: price})
		group.Total = group.Total.Add(price)
	}

	result.Groups = make([]*CounterpartyGroup, 0, len(byCp))
	for _, group := range byCp {
		result.Groups = append(result.Groups, group)
	}

	// Stable iteration order: alphabetical by name, ID as tie-breaker.
	sort.Slice(result.Groups, func(i, j int) bool {
		ni, nj := result.Groups[i].Counterparty.Name, result.Groups[j].Counterparty.Name
		if ni != nj {
			return ni < nj
		}
		return result.Groups[i].Counterparty.ID.String() < result.Groups[j].Counterparty.ID.String()
	})

	return result, nil
}
