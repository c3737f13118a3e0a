package repository

import (
	"context"
	"time"

	"github.com/segyhp/fleet-charges/internal/domain"
)

// ChargeRepository defines the interface for charge data operations.
// Unknown ids are reported as sql.ErrNoRows.
type ChargeRepository interface {
	// List retrieves every charge in insertion order
	List(ctx context.Context) ([]*domain.Charge, error)

	// GetByID retrieves a charge by its ID
	GetByID(ctx context.Context, id string) (*domain.Charge, error)

	// Create stores a new charge with its installments and assigns their IDs
	Create(ctx context.Context, charge *domain.Charge, installments []*domain.Installment) error

	// Update stores a full edit. A nil installments slice keeps the stored ones,
	// a non-nil slice replaces them all in the same transaction
	Update(ctx context.Context, charge *domain.Charge, installments []*domain.Installment) error

	// Delete removes a charge and all its installments
	Delete(ctx context.Context, id string) error

	// SetValid updates the validity flag of a charge
	SetValid(ctx context.Context, id string, valid bool) error
}

// InstallmentRepository defines the interface for installment data operations
type InstallmentRepository interface {
	// ListByChargeID retrieves the installments of a charge ordered by sequence
	ListByChargeID(ctx context.Context, chargeID string) ([]*domain.Installment, error)

	// ListByChargeIDs retrieves the installments of several charges at once
	ListByChargeIDs(ctx context.Context, chargeIDs []string) ([]*domain.Installment, error)

	// GetByID retrieves a single installment
	GetByID(ctx context.Context, id string) (*domain.Installment, error)

	// SetPaid updates the paid flag of an installment
	SetPaid(ctx context.Context, id string, paid bool) error

	// ListOverdue gets unpaid installments of valid charges due before asOf
	ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.Installment, error)
}

// LookupRepository loads the master-data dictionaries
type LookupRepository interface {
	Load(ctx context.Context) (domain.Lookups, error)
}
