package domain

import (
	"encoding/json"
	"time"

	customError "github.com/segyhp/fleet-charges/pkg/errors"
	"github.com/segyhp/fleet-charges/pkg/utils"

	"github.com/shopspring/decimal"
)

// ChargeType discriminates the two shapes a charge can take.
type ChargeType string

const (
	ChargeTypeRecurring ChargeType = "recurring"
	ChargeTypeVariable  ChargeType = "variable"
)

// Periodicity is the billing cadence of a recurring charge.
type Periodicity string

const (
	PeriodicityMonthly Periodicity = "monthly"
	PeriodicityYearly  Periodicity = "yearly"
)

// Validity is the operator-controlled soft-exclude flag rendered as a tag.
type Validity string

const (
	ValidityValid   Validity = "valid"
	ValidityInvalid Validity = "invalid"
)

// Charge represents a cost obligation: a recurring charge billed over several
// periods, or a variable charge with a single amount on a single date.
// Exactly one of Recurring and Variable is set, and it matches Type.
type Charge struct {
	ID            string          `json:"id"`
	Type          ChargeType      `json:"type"`
	Label         string          `json:"label"`
	SupplierID    string          `json:"supplier_id,omitempty"`
	CategoryID    string          `json:"category_id,omitempty"`
	CityID        string          `json:"city_id,omitempty"`
	AmbulanceID   string          `json:"ambulance_id,omitempty"`
	StaffID       string          `json:"staff_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	InvoicePeriod string          `json:"invoice_period,omitempty"`
	IsValid       bool            `json:"is_valid"`
	Recurring     *RecurringTerms `json:"recurring,omitempty"`
	Variable      *VariableTerms  `json:"variable,omitempty"`
	Installments  []*Installment  `json:"installments,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RecurringTerms holds the billing parameters of a recurring charge.
// A zero StartDate means the start is not known yet.
type RecurringTerms struct {
	Periodicity Periodicity     `json:"periodicity"`
	UnitAmount  decimal.Decimal `json:"unit_amount"`
	PeriodCount int             `json:"period_count"`
	StartDate   time.Time       `json:"start_date"`
}

// VariableTerms holds the single amount and date of a variable charge.
type VariableTerms struct {
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate time.Time       `json:"effective_date"`
}

// DueDate returns StartDate advanced by i periods, clamping the day of month.
func (t RecurringTerms) DueDate(i int) time.Time {
	if t.Periodicity == PeriodicityYearly {
		return utils.AddYearsClamped(t.StartDate, i)
	}
	return utils.AddMonthsClamped(t.StartDate, i)
}

// EndDate returns the due date of the last installment. It is false until
// both StartDate and a positive PeriodCount are known.
func (t RecurringTerms) EndDate() (time.Time, bool) {
	if t.StartDate.IsZero() || t.PeriodCount <= 0 {
		return time.Time{}, false
	}
	return t.DueDate(t.PeriodCount - 1), true
}

// MarshalJSON adds the derived end_date to the encoded terms.
func (t RecurringTerms) MarshalJSON() ([]byte, error) {
	type terms RecurringTerms
	out := struct {
		terms
		EndDate *time.Time `json:"end_date,omitempty"`
	}{terms: terms(t)}

	if end, ok := t.EndDate(); ok {
		out.EndDate = &end
	}
	return json.Marshal(out)
}

// EndDate is the derived end date of a recurring charge.
func (c *Charge) EndDate() (time.Time, bool) {
	if c.Recurring == nil {
		return time.Time{}, false
	}
	return c.Recurring.EndDate()
}

// PaymentStatus aggregates the loaded installments of the charge.
func (c *Charge) PaymentStatus() PaymentStatus {
	return ComputePaymentStatus(c.Installments)
}

// Validity renders IsValid as a filterable tag.
func (c *Charge) Validity() Validity {
	if c.IsValid {
		return ValidityValid
	}
	return ValidityInvalid
}

// Validate checks the union invariant and the amount rules of a built charge.
func (c *Charge) Validate() error {
	verr := &customError.ValidationError{}

	switch c.Type {
	case ChargeTypeRecurring:
		if c.Recurring == nil {
			verr.Add("recurring", "is required for a recurring charge")
		}
		if c.Variable != nil {
			verr.Add("variable", "must be absent for a recurring charge")
		}
	case ChargeTypeVariable:
		if c.Variable == nil {
			verr.Add("variable", "is required for a variable charge")
		}
		if c.Recurring != nil {
			verr.Add("recurring", "must be absent for a variable charge")
		}
	default:
		verr.Add("type", "must be one of: recurring variable")
	}

	if r := c.Recurring; r != nil {
		if r.Periodicity != PeriodicityMonthly && r.Periodicity != PeriodicityYearly {
			verr.Add("recurring.periodicity", "must be one of: monthly yearly")
		}
		if r.UnitAmount.IsNegative() {
			verr.Add("recurring.unit_amount", "must not be negative")
		}
		if r.PeriodCount < 1 {
			verr.Add("recurring.period_count", "must be at least 1")
		}
		if r.StartDate.IsZero() {
			verr.Add("recurring.start_date", "is required")
		}
	}
	if v := c.Variable; v != nil {
		if v.Amount.IsNegative() {
			verr.Add("variable.amount", "must not be negative")
		}
		if v.EffectiveDate.IsZero() {
			verr.Add("variable.effective_date", "is required")
		}
	}

	return verr.OrNil()
}

// SameSchedule reports whether other would produce the same installments as c.
// Edits that only touch descriptive fields keep the existing paid flags.
func (c *Charge) SameSchedule(other *Charge) bool {
	if c.Type != other.Type {
		return false
	}
	switch {
	case c.Recurring != nil && other.Recurring != nil:
		a, b := c.Recurring, other.Recurring
		return a.Periodicity == b.Periodicity &&
			a.UnitAmount.Equal(b.UnitAmount) &&
			a.PeriodCount == b.PeriodCount &&
			a.StartDate.Equal(b.StartDate)
	case c.Variable != nil && other.Variable != nil:
		return c.Variable.Amount.Equal(other.Variable.Amount) &&
			c.Variable.EffectiveDate.Equal(other.Variable.EffectiveDate)
	}
	return false
}
