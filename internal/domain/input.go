package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	customError "github.com/segyhp/fleet-charges/pkg/errors"
	"github.com/segyhp/fleet-charges/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DTOs for requests

type ChargeInput struct {
	Type          ChargeType      `json:"type" validate:"required,oneof=recurring variable"`
	Label         string          `json:"label" validate:"max=255"`
	SupplierID    string          `json:"supplier_id"`
	CategoryID    string          `json:"category_id"`
	CityID        string          `json:"city_id"`
	AmbulanceID   string          `json:"ambulance_id,omitempty"`
	StaffID       string          `json:"staff_id,omitempty"`
	Notes         string          `json:"notes"`
	InvoicePeriod string          `json:"invoice_period,omitempty" validate:"omitempty,datetime=2006-01"`
	IsValid       *bool           `json:"is_valid,omitempty"`
	Recurring     *RecurringInput `json:"recurring,omitempty"`
	Variable      *VariableInput  `json:"variable,omitempty"`
}

type RecurringInput struct {
	Periodicity Periodicity     `json:"periodicity" validate:"required,oneof=monthly yearly"`
	UnitAmount  decimal.Decimal `json:"unit_amount" validate:"decimal_gte=0"`
	PeriodCount int             `json:"period_count" validate:"gte=1"`
	StartDate   string          `json:"start_date" validate:"required,datetime=2006-01-02"`
}

type VariableInput struct {
	Amount        decimal.Decimal `json:"amount" validate:"decimal_gte=0"`
	EffectiveDate string          `json:"effective_date" validate:"required,datetime=2006-01-02"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Decimals are validated through their string form
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gte", decimalCompare(func(d, p decimal.Decimal) bool {
		return d.GreaterThanOrEqual(p)
	}))
	_ = v.RegisterValidation("decimal_gt", decimalCompare(func(d, p decimal.Decimal) bool {
		return d.GreaterThan(p)
	}))

	return v
}

func decimalCompare(cmp func(d, p decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		p, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return cmp(d, p)
	}
}

// NewCharge validates raw input and builds a Charge from it. Every offending
// field is reported in a *errors.ValidationError; nothing is coerced.
func NewCharge(input ChargeInput) (*Charge, error) {
	verr := &customError.ValidationError{}

	if err := validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		for _, fe := range fieldErrs {
			verr.Add(fieldPath(fe), fieldMessage(fe))
		}
	}

	switch input.Type {
	case ChargeTypeRecurring:
		if input.Recurring == nil {
			verr.Add("recurring", "is required for a recurring charge")
		}
		if input.Variable != nil {
			verr.Add("variable", "must be absent for a recurring charge")
		}
	case ChargeTypeVariable:
		if input.Variable == nil {
			verr.Add("variable", "is required for a variable charge")
		}
		if input.Recurring != nil {
			verr.Add("recurring", "must be absent for a variable charge")
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	charge := &Charge{
		Type:          input.Type,
		Label:         strings.TrimSpace(input.Label),
		SupplierID:    input.SupplierID,
		CategoryID:    input.CategoryID,
		CityID:        input.CityID,
		AmbulanceID:   input.AmbulanceID,
		StaffID:       input.StaffID,
		Notes:         input.Notes,
		InvoicePeriod: input.InvoicePeriod,
		IsValid:       true,
	}
	if input.IsValid != nil {
		charge.IsValid = *input.IsValid
	}

	// Date formats were checked above
	if r := input.Recurring; r != nil {
		start, _ := utils.ParseDate(r.StartDate)
		charge.Recurring = &RecurringTerms{
			Periodicity: r.Periodicity,
			UnitAmount:  r.UnitAmount,
			PeriodCount: r.PeriodCount,
			StartDate:   start,
		}
	}
	if v := input.Variable; v != nil {
		effective, _ := utils.ParseDate(v.EffectiveDate)
		charge.Variable = &VariableTerms{
			Amount:        v.Amount,
			EffectiveDate: effective,
		}
	}

	return charge, nil
}

// fieldPath strips the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "decimal_gte":
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return "must be at least " + fe.Param()
	case "decimal_gt":
		return "must be greater than " + fe.Param()
	case "datetime":
		return "must match " + layoutHint(fe.Param())
	}
	return "is invalid"
}

func layoutHint(layout string) string {
	switch layout {
	case utils.DateLayout:
		return "YYYY-MM-DD"
	case utils.PeriodLayout:
		return "YYYY-MM"
	}
	return layout
}
