// Package query evaluates charge listings: the conjunctive filter, the
// free-text search and the pager. It keeps no state between calls.
package query

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/segyhp/fleet-charges/internal/domain"
	"github.com/segyhp/fleet-charges/pkg/utils"

	"golang.org/x/text/cases"
)

// Filter returns the charges that satisfy every active predicate of q, in input order.
func Filter(charges []*domain.Charge, q domain.ChargeQuery, lookups domain.Lookups) []*domain.Charge {
	// A Caser is stateful, so each call folds with its own
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(q.Search))

	result := make([]*domain.Charge, 0, len(charges))
	for _, c := range charges {
		if c == nil {
			continue
		}
		if !matchesSelections(c, q) {
			continue
		}
		if !MatchesDateRange(c, q.DateFrom, q.DateTo) {
			continue
		}
		if needle != "" && !strings.Contains(fold.String(SearchText(c, lookups)), needle) {
			continue
		}
		result = append(result, c)
	}
	return result
}

func matchesSelections(c *domain.Charge, q domain.ChargeQuery) bool {
	return inSet(q.CategoryIDs, c.CategoryID) &&
		inSet(q.SupplierIDs, c.SupplierID) &&
		inSet(q.CityIDs, c.CityID) &&
		inSet(q.AmbulanceIDs, c.AmbulanceID) &&
		inSet(q.Types, c.Type) &&
		inSet(q.PaidStatuses, c.PaymentStatus()) &&
		inSet(q.Validities, c.Validity())
}

// inSet is a membership test where an empty selection accepts everything.
func inSet[T comparable](selected []T, value T) bool {
	return len(selected) == 0 || slices.Contains(selected, value)
}

// MatchesDateRange tests a charge against optional inclusive bounds.
// A recurring charge with a known end must overlap [from, to]; a recurring
// charge without an end and a variable charge are tested as a single date.
func MatchesDateRange(c *domain.Charge, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}

	start, end, ok := span(c)
	if !ok {
		return false
	}
	if to != nil && start.After(*to) {
		return false
	}
	if from != nil && end.Before(*from) {
		return false
	}
	return true
}

// span returns the dated interval of a charge; a point-in-time charge has start == end.
func span(c *domain.Charge) (time.Time, time.Time, bool) {
	switch {
	case c.Recurring != nil:
		start := c.Recurring.StartDate
		if start.IsZero() {
			return time.Time{}, time.Time{}, false
		}
		if end, ok := c.Recurring.EndDate(); ok {
			return start, end, true
		}
		return start, start, true
	case c.Variable != nil:
		at := c.Variable.EffectiveDate
		if at.IsZero() {
			return time.Time{}, time.Time{}, false
		}
		return at, at, true
	}
	return time.Time{}, time.Time{}, false
}

// SearchText joins every searchable attribute of a charge into one string.
func SearchText(c *domain.Charge, lookups domain.Lookups) string {
	parts := []string{
		c.ID,
		c.Label,
		lookups.SupplierName(c.SupplierID),
		lookups.CategoryName(c.CategoryID),
		lookups.AmbulancePlate(c.AmbulanceID),
		lookups.CityName(c.CityID),
		lookups.StaffName(c.StaffID),
		string(c.Type),
	}

	var start, end, effective time.Time
	if r := c.Recurring; r != nil {
		parts = append(parts,
			string(r.Periodicity),
			r.UnitAmount.String(),
			strconv.Itoa(r.PeriodCount),
		)
		start = r.StartDate
		end, _ = r.EndDate()
	}
	if v := c.Variable; v != nil {
		parts = append(parts, v.Amount.String())
		effective = v.EffectiveDate
	}

	parts = append(parts, c.Notes, c.InvoicePeriod)
	for _, d := range []time.Time{start, end, effective} {
		if d.IsZero() {
			continue
		}
		parts = append(parts, utils.FormatDisplayDate(d), utils.FormatDate(d))
	}

	return strings.Join(parts, " ")
}
