package billing

// CompletenessValidator partitions counterparty groups into eligible and
// ineligible for automatic invoicing. It only annotates groups; data is
// never mutated here and an incomplete counterparty is never silently
// billed.
type CompletenessValidator struct{}

// NewCompletenessValidator creates a validator using the catalog's required
// invoicing field set.
func NewCompletenessValidator() *CompletenessValidator {
	return &CompletenessValidator{}
}

// Validate annotates the group and reports eligibility plus any missing
// field names.
func (v *CompletenessValidator) Validate(group *CounterpartyGroup) (bool, []string) {
	missing := group.Counterparty.MissingInvoiceFields()
	group.Eligible = len(missing) == 0
	group.MissingFields = missing
	return group.Eligible, missing
}

// Partition runs Validate over all groups and splits them.
func (v *CompletenessValidator) Partition(groups []*CounterpartyGroup) (eligible, ineligible []*CounterpartyGroup) {
	for _, group := range groups {
		if ok, _ := v.Validate(group); ok {
			eligible = append(eligible, group)
		} else {
			ineligible = append(ineligible, group)
		}
	}
	return eligible, ineligible
}
