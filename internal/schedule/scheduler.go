// Package schedule derives the installment schedule of a charge.
//
// Every function here is pure: it reads its arguments and returns new values.
// Under-specified input (missing dates, non-positive period counts) yields an
// empty schedule instead of an error because callers routinely run the
// scheduler against a form that is still being filled in.
package schedule

import (
	"time"

	"github.com/segyhp/fleet-charges/internal/domain"
	"github.com/segyhp/fleet-charges/pkg/utils"
)

// Preview is the schedule of an in-progress edit.
type Preview struct {
	Installments []*domain.Installment `json:"installments"`
	EndDate      *time.Time            `json:"end_date,omitempty"`
}

// ScheduleInstallments returns the ordered installments of a charge.
// A recurring charge yields PeriodCount installments of UnitAmount, the i-th
// due i periods after StartDate. A variable charge yields a single installment.
func ScheduleInstallments(charge *domain.Charge) []*domain.Installment {
	if charge == nil {
		return []*domain.Installment{}
	}

	switch {
	case charge.Type == domain.ChargeTypeRecurring && charge.Recurring != nil:
		return recurring(charge.ID, *charge.Recurring)
	case charge.Type == domain.ChargeTypeVariable && charge.Variable != nil:
		return variable(charge.ID, *charge.Variable)
	}
	return []*domain.Installment{}
}

func recurring(chargeID string, terms domain.RecurringTerms) []*domain.Installment {
	if terms.StartDate.IsZero() || terms.PeriodCount <= 0 {
		return []*domain.Installment{}
	}

	installments := make([]*domain.Installment, 0, terms.PeriodCount)
	for i := 0; i < terms.PeriodCount; i++ {
		// Always offset from StartDate so a clamped month does not shift later ones
		installments = append(installments, &domain.Installment{
			ChargeID: chargeID,
			Sequence: i + 1,
			DueDate:  terms.DueDate(i),
			Amount:   terms.UnitAmount,
		})
	}
	return installments
}

func variable(chargeID string, terms domain.VariableTerms) []*domain.Installment {
	if terms.EffectiveDate.IsZero() {
		return []*domain.Installment{}
	}
	return []*domain.Installment{{
		ChargeID: chargeID,
		Sequence: 1,
		DueDate:  terms.EffectiveDate,
		Amount:   terms.Amount,
	}}
}

// PreviewInput runs the scheduler against raw, possibly incomplete form input.
// Fields that cannot be read are treated as absent; it never fails.
func PreviewInput(input domain.ChargeInput) Preview {
	charge := &domain.Charge{Type: input.Type}

	switch input.Type {
	case domain.ChargeTypeRecurring:
		if r := input.Recurring; r != nil {
			start, _ := utils.ParseDate(r.StartDate)
			periodicity := r.Periodicity
			if periodicity != domain.PeriodicityYearly {
				periodicity = domain.PeriodicityMonthly
			}
			charge.Recurring = &domain.RecurringTerms{
				Periodicity: periodicity,
				UnitAmount:  r.UnitAmount,
				PeriodCount: r.PeriodCount,
				StartDate:   start,
			}
		}
	case domain.ChargeTypeVariable:
		if v := input.Variable; v != nil {
			effective, _ := utils.ParseDate(v.EffectiveDate)
			charge.Variable = &domain.VariableTerms{
				Amount:        v.Amount,
				EffectiveDate: effective,
			}
		}
	}

	preview := Preview{Installments: ScheduleInstallments(charge)}
	if end, ok := charge.EndDate(); ok {
		preview.EndDate = &end
	}
	return preview
}
