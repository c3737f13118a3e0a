package repository

import (
	"context"
	"time"

	"github.com/segyhp/fleet-charges/internal/domain"
	"github.com/segyhp/fleet-charges/pkg/utils"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const installmentColumns = `id, charge_id, sequence, due_date, amount, is_paid, created_at`

type installmentRepository struct {
	db *sqlx.DB
}

func NewInstallmentRepository(db *sqlx.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) ListByChargeID(ctx context.Context, chargeID string) ([]*domain.Installment, error) {
	query := `
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE charge_id = $1
		ORDER BY sequence
	`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, chargeID); err != nil {
		return nil, err
	}
	return normalizeDates(installments), nil
}

func (r *installmentRepository) ListByChargeIDs(ctx context.Context, chargeIDs []string) ([]*domain.Installment, error) {
	if len(chargeIDs) == 0 {
		return []*domain.Installment{}, nil
	}

	query := `
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE charge_id = ANY($1)
		ORDER BY charge_id, sequence
	`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, pq.Array(chargeIDs)); err != nil {
		return nil, err
	}
	return normalizeDates(installments), nil
}

func (r *installmentRepository) GetByID(ctx context.Context, id string) (*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE id = $1`

	var inst domain.Installment
	if err := r.db.GetContext(ctx, &inst, query, id); err != nil {
		return nil, err
	}
	inst.DueDate = utils.DateOnly(inst.DueDate)
	return &inst, nil
}

func (r *installmentRepository) SetPaid(ctx context.Context, id string, paid bool) error {
	query := `
		UPDATE installments
		SET is_paid = $2
		WHERE id = $1
	`

	// PostgreSQL counts matched rows, so re-applying the same flag still reports 1
	res, err := r.db.ExecContext(ctx, query, id, paid)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *installmentRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.Installment, error) {
	query := `
		SELECT i.id, i.charge_id, i.sequence, i.due_date, i.amount, i.is_paid, i.created_at
		FROM installments i
		JOIN charges c ON c.id = i.charge_id
		WHERE i.is_paid = FALSE AND c.is_valid = TRUE AND i.due_date < $1
		ORDER BY i.due_date, i.charge_id, i.sequence
	`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, utils.DateOnly(asOf)); err != nil {
		return nil, err
	}
	return normalizeDates(installments), nil
}

func normalizeDates(installments []*domain.Installment) []*domain.Installment {
	for _, inst := range installments {
		inst.DueDate = utils.DateOnly(inst.DueDate)
	}
	return installments
}
