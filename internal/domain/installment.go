package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the aggregate payment state of a charge.
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusUnpaid PaymentStatus = "unpaid"
)

// Installment represents one scheduled payment unit of a charge
type Installment struct {
	ID        string          `json:"id" db:"id"`
	ChargeID  string          `json:"charge_id" db:"charge_id"`
	Sequence  int             `json:"sequence" db:"sequence"`
	DueDate   time.Time       `json:"due_date" db:"due_date"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	IsPaid    bool            `json:"is_paid" db:"is_paid"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// ComputePaymentStatus reports paid only when there is at least one installment
// and every installment is paid. No installments is never paid.
func ComputePaymentStatus(installments []*Installment) PaymentStatus {
	if len(installments) == 0 {
		return PaymentStatusUnpaid
	}
	for _, inst := range installments {
		if !inst.IsPaid {
			return PaymentStatusUnpaid
		}
	}
	return PaymentStatusPaid
}

// ChargeStatus is the payment balance of a single charge.
type ChargeStatus struct {
	ChargeID         string          `json:"charge_id"`
	Status           PaymentStatus   `json:"status"`
	IsValid          bool            `json:"is_valid"`
	InstallmentCount int             `json:"installment_count"`
	PaidCount        int             `json:"paid_count"`
	Total            decimal.Decimal `json:"total"`
	Paid             decimal.Decimal `json:"paid"`
	Outstanding      decimal.Decimal `json:"outstanding"`
	TotalInclVAT     decimal.Decimal `json:"total_incl_vat"`
}

// OverdueReport summarizes unpaid installments past their due date.
type OverdueReport struct {
	AsOf         time.Time       `json:"as_of"`
	Installments []*Installment  `json:"installments"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}
