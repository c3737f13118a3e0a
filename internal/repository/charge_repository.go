package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/segyhp/fleet-charges/internal/domain"
	"github.com/segyhp/fleet-charges/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// chargeRow is the flat storage shape of a charge; the column group that does
// not belong to the charge type is NULL.
type chargeRow struct {
	ID            string              `db:"id"`
	Type          string              `db:"type"`
	Label         string              `db:"label"`
	SupplierID    string              `db:"supplier_id"`
	CategoryID    string              `db:"category_id"`
	CityID        string              `db:"city_id"`
	AmbulanceID   string              `db:"ambulance_id"`
	StaffID       string              `db:"staff_id"`
	Notes         string              `db:"notes"`
	InvoicePeriod string              `db:"invoice_period"`
	IsValid       bool                `db:"is_valid"`
	Periodicity   sql.NullString      `db:"periodicity"`
	UnitAmount    decimal.NullDecimal `db:"unit_amount"`
	PeriodCount   sql.NullInt64       `db:"period_count"`
	StartDate     sql.NullTime        `db:"start_date"`
	EndDate       sql.NullTime        `db:"end_date"`
	Amount        decimal.NullDecimal `db:"amount"`
	EffectiveDate sql.NullTime        `db:"effective_date"`
	CreatedAt     time.Time           `db:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at"`
}

func newChargeRow(c *domain.Charge) chargeRow {
	row := chargeRow{
		ID:            c.ID,
		Type:          string(c.Type),
		Label:         c.Label,
		SupplierID:    c.SupplierID,
		CategoryID:    c.CategoryID,
		CityID:        c.CityID,
		AmbulanceID:   c.AmbulanceID,
		StaffID:       c.StaffID,
		Notes:         c.Notes,
		InvoicePeriod: c.InvoicePeriod,
		IsValid:       c.IsValid,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}

	if r := c.Recurring; r != nil {
		row.Periodicity = sql.NullString{String: string(r.Periodicity), Valid: true}
		row.UnitAmount = decimal.NullDecimal{Decimal: r.UnitAmount, Valid: true}
		row.PeriodCount = sql.NullInt64{Int64: int64(r.PeriodCount), Valid: true}
		row.StartDate = sql.NullTime{Time: r.StartDate, Valid: !r.StartDate.IsZero()}
		// end_date is derived and only stored so SQL can range-scan on it
		if end, ok := r.EndDate(); ok {
			row.EndDate = sql.NullTime{Time: end, Valid: true}
		}
	}
	if v := c.Variable; v != nil {
		row.Amount = decimal.NullDecimal{Decimal: v.Amount, Valid: true}
		row.EffectiveDate = sql.NullTime{Time: v.EffectiveDate, Valid: !v.EffectiveDate.IsZero()}
	}

	return row
}

func (row chargeRow) toDomain() *domain.Charge {
	c := &domain.Charge{
		ID:            row.ID,
		Type:          domain.ChargeType(row.Type),
		Label:         row.Label,
		SupplierID:    row.SupplierID,
		CategoryID:    row.CategoryID,
		CityID:        row.CityID,
		AmbulanceID:   row.AmbulanceID,
		StaffID:       row.StaffID,
		Notes:         row.Notes,
		InvoicePeriod: row.InvoicePeriod,
		IsValid:       row.IsValid,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}

	switch c.Type {
	case domain.ChargeTypeRecurring:
		terms := &domain.RecurringTerms{
			Periodicity: domain.Periodicity(row.Periodicity.String),
			UnitAmount:  row.UnitAmount.Decimal,
			PeriodCount: int(row.PeriodCount.Int64),
		}
		if row.StartDate.Valid {
			terms.StartDate = utils.DateOnly(row.StartDate.Time)
		}
		c.Recurring = terms
	case domain.ChargeTypeVariable:
		terms := &domain.VariableTerms{Amount: row.Amount.Decimal}
		if row.EffectiveDate.Valid {
			terms.EffectiveDate = utils.DateOnly(row.EffectiveDate.Time)
		}
		c.Variable = terms
	}

	return c
}

const chargeColumns = `id, type, label, supplier_id, category_id, city_id, ambulance_id, staff_id, notes,
		invoice_period, is_valid, periodicity, unit_amount, period_count, start_date, end_date,
		amount, effective_date, created_at, updated_at`

type chargeRepository struct {
	db *sqlx.DB
}

func NewChargeRepository(db *sqlx.DB) ChargeRepository {
	return &chargeRepository{db: db}
}

func (r *chargeRepository) List(ctx context.Context) ([]*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges ORDER BY created_at, id`

	var rows []chargeRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	charges := make([]*domain.Charge, 0, len(rows))
	for _, row := range rows {
		charges = append(charges, row.toDomain())
	}
	return charges, nil
}

func (r *chargeRepository) GetByID(ctx context.Context, id string) (*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges WHERE id = $1`

	var row chargeRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *chargeRepository) Create(ctx context.Context, charge *domain.Charge, installments []*domain.Installment) error {
	if err := charge.Validate(); err != nil {
		return err
	}

	now := time.Now()
	charge.ID = uuid.New().String()
	charge.CreatedAt = now
	charge.UpdatedAt = now

	query := `
		INSERT INTO charges (` + chargeColumns + `)
		VALUES (:id, :type, :label, :supplier_id, :category_id, :city_id, :ambulance_id, :staff_id, :notes,
			:invoice_period, :is_valid, :periodicity, :unit_amount, :period_count, :start_date, :end_date,
			:amount, :effective_date, :created_at, :updated_at)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.NamedExecContext(ctx, query, newChargeRow(charge)); err != nil {
		return err
	}
	if err = insertInstallments(ctx, tx, charge.ID, installments, now); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *chargeRepository) Update(ctx context.Context, charge *domain.Charge, installments []*domain.Installment) error {
	if err := charge.Validate(); err != nil {
		return err
	}

	now := time.Now()
	charge.UpdatedAt = now

	query := `
		UPDATE charges
		SET type = :type, label = :label, supplier_id = :supplier_id, category_id = :category_id,
			city_id = :city_id, ambulance_id = :ambulance_id, staff_id = :staff_id, notes = :notes,
			invoice_period = :invoice_period, is_valid = :is_valid, periodicity = :periodicity,
			unit_amount = :unit_amount, period_count = :period_count, start_date = :start_date,
			end_date = :end_date, amount = :amount, effective_date = :effective_date,
			updated_at = :updated_at
		WHERE id = :id
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, query, newChargeRow(charge))
	if err != nil {
		return err
	}
	if err = requireAffected(res); err != nil {
		return err
	}

	if installments != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM installments WHERE charge_id = $1`, charge.ID); err != nil {
			return err
		}
		if err = insertInstallments(ctx, tx, charge.ID, installments, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *chargeRepository) Delete(ctx context.Context, id string) error {
	// installments go with it through ON DELETE CASCADE
	res, err := r.db.ExecContext(ctx, `DELETE FROM charges WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *chargeRepository) SetValid(ctx context.Context, id string, valid bool) error {
	query := `
		UPDATE charges
		SET is_valid = $2, updated_at = $3
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id, valid, time.Now())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func insertInstallments(ctx context.Context, tx *sqlx.Tx, chargeID string, installments []*domain.Installment, createdAt time.Time) error {
	query := `
		INSERT INTO installments (id, charge_id, sequence, due_date, amount, is_paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, inst := range installments {
		inst.ID = uuid.New().String()
		inst.ChargeID = chargeID
		inst.CreatedAt = createdAt

		_, err := tx.ExecContext(ctx, query,
			inst.ID,
			inst.ChargeID,
			inst.Sequence,
			inst.DueDate,
			inst.Amount,
			inst.IsPaid,
			inst.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// requireAffected turns an UPDATE or DELETE that matched nothing into sql.ErrNoRows.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
