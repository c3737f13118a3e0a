package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segyhp/fleet-charges/internal/config"
	"github.com/segyhp/fleet-charges/internal/domain"
	"github.com/segyhp/fleet-charges/internal/mocks"
	"github.com/segyhp/fleet-charges/internal/observability"
	customError "github.com/segyhp/fleet-charges/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	chargeID      = "0b8f3c52-6c0a-4a57-9f3e-2a1d7c9b0c11"
	installmentID = "5d2e9a10-3b7c-4f61-8e0d-9c4b2a7f6e22"
)

type fixture struct {
	service      *ChargeService
	charges      *mocks.MockChargeRepository
	installments *mocks.MockInstallmentRepository
	lookups      *mocks.MockLookupRepository
	cache        *mocks.MockChargeCache
}

func newFixture(pageSize int) *fixture {
	f := &fixture{
		charges:      &mocks.MockChargeRepository{},
		installments: &mocks.MockInstallmentRepository{},
		lookups:      &mocks.MockLookupRepository{},
		cache:        &mocks.MockChargeCache{},
	}
	cfg := &config.Config{
		Business: config.BusinessConfig{
			DefaultPageSize: pageSize,
			MaxPageSize:     500,
			VATRate:         "0.20",
		},
	}
	f.service = NewChargeService(f.charges, f.installments, f.lookups, f.cache, cfg, nil, observability.NewMetrics())
	return f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func recurringInput(count int) domain.ChargeInput {
	return domain.ChargeInput{
		Type:       domain.ChargeTypeRecurring,
		Label:      "Leasing VSL",
		CategoryID: "leasing",
		Recurring: &domain.RecurringInput{
			Periodicity: domain.PeriodicityMonthly,
			UnitAmount:  decimal.NewFromInt(100),
			PeriodCount: count,
			StartDate:   "2024-01-31",
		},
	}
}

func storedCharge(count int) *domain.Charge {
	return &domain.Charge{
		ID:      chargeID,
		Type:    domain.ChargeTypeRecurring,
		Label:   "Leasing VSL",
		IsValid: true,
		Recurring: &domain.RecurringTerms{
			Periodicity: domain.PeriodicityMonthly,
			UnitAmount:  decimal.NewFromInt(100),
			PeriodCount: count,
			StartDate:   day(2024, time.January, 31),
		},
	}
}

func TestCreateCharge_Success(t *testing.T) {
	f := newFixture(100)

	f.charges.On("Create", mock.Anything, mock.AnythingOfType("*domain.Charge"), mock.MatchedBy(func(inst []*domain.Installment) bool {
		return len(inst) == 3 && inst[1].DueDate.Equal(day(2024, time.February, 29))
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Charge).ID = chargeID
	}).Return(nil)
	f.cache.On("Invalidate", mock.Anything).Return(nil)
	f.charges.On("GetByID", mock.Anything, chargeID).Return(storedCharge(3), nil)
	f.installments.On("ListByChargeID", mock.Anything, chargeID).Return([]*domain.Installment{{}, {}, {}}, nil)

	charge, err := f.service.CreateCharge(context.Background(), recurringInput(3))

	require.NoError(t, err)
	assert.Equal(t, chargeID, charge.ID)
	assert.Len(t, charge.Installments, 3)
	f.charges.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func TestCreateCharge_ValidationError(t *testing.T) {
	f := newFixture(100)

	input := recurringInput(0)
	input.Variable = &domain.VariableInput{Amount: decimal.NewFromInt(5), EffectiveDate: "2024-01-01"}

	_, err := f.service.CreateCharge(context.Background(), input)

	var verr *customError.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, errors.Is(err, customError.ErrInvalidCharge))
	assert.GreaterOrEqual(t, len(verr.Fields), 2)
	f.charges.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateCharge_DatabaseError(t *testing.T) {
	f := newFixture(100)
	dbErr := errors.New("connection refused")
	f.charges.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(dbErr)

	_, err := f.service.CreateCharge(context.Background(), recurringInput(3))

	var bizErr *customError.BusinessError
	require.True(t, errors.As(err, &bizErr))
	assert.Equal(t, customError.ErrCodeDatabaseError, bizErr.Code)
	assert.True(t, errors.Is(err, dbErr))
}

func TestUpdateCharge_DescriptiveEditKeepsInstallments(t *testing.T) {
	f := newFixture(100)
	existing := storedCharge(3)
	existing.IsValid = false

	f.charges.On("GetByID", mock.Anything, chargeID).Return(existing, nil).Once()
	f.charges.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Charge) bool {
		return c.ID == chargeID && c.Label == "Leasing VSL 2" && !c.IsValid
	}), mock.MatchedBy(func(inst []*domain.Installment) bool {
		return inst == nil
	})).Return(nil)
	f.cache.On("Invalidate", mock.Anything).Return(nil)
	f.charges.On("GetByID", mock.Anything, chargeID).Return(storedCharge(3), nil)
	f.installments.On("ListByChargeID", mock.Anything, chargeID).Return([]*domain.Installment{}, nil)

	input := recurringInput(3)
	input.Label = "Leasing VSL 2"

	_, err := f.service.UpdateCharge(context.Background(), chargeID, input)

	require.NoError(t, err)
	f.charges.AssertExpectations(t)
}

func TestUpdateCharge_ScheduleEditRegenerates(t *testing.T) {
	f := newFixture(100)

	f.charges.On("GetByID", mock.Anything, chargeID).Return(storedCharge(3), nil)
	f.charges.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(inst []*domain.Installment) bool {
		return len(inst) == 12 && inst[11].Sequence == 12
	})).Return(nil)
	f.cache.On("Invalidate", mock.Anything).Return(nil)
	f.installments.On("ListByChargeID", mock.Anything, chargeID).Return([]*domain.Installment{}, nil)

	_, err := f.service.UpdateCharge(context.Background(), chargeID, recurringInput(12))

	require.NoError(t, err)
	f.charges.AssertExpectations(t)
}

func TestUpdateCharge_NotFound(t *testing.T) {
	f := newFixture(100)
	f.charges.On("GetByID", mock.Anything, chargeID).Return(nil, sql.ErrNoRows)

	_, err := f.service.UpdateCharge(context.Background(), chargeID, recurringInput(3))

	assert.True(t, errors.Is(err, customError.ErrChargeNotFound))
}

func TestGetCharge_MalformedIDIsNotFound(t *testing.T) {
	f := newFixture(100)

	_, err := f.service.GetCharge(context.Background(), "not-a-uuid")

	assert.True(t, customError.IsNotFound(err))
	f.charges.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestDeleteCharge(t *testing.T) {
	f := newFixture(100)
	f.charges.On("Delete", mock.Anything, chargeID).Return(nil).Once()
	f.charges.On("Delete", mock.Anything, chargeID).Return(sql.ErrNoRows)
	f.cache.On("Invalidate", mock.Anything).Return(nil)

	require.NoError(t, f.service.DeleteCharge(context.Background(), chargeID))

	err := f.service.DeleteCharge(context.Background(), chargeID)
	assert.True(t, errors.Is(err, customError.ErrChargeNotFound))
}

func TestMarkPaid_Idempotent(t *testing.T) {
	f := newFixture(100)
	paid := &domain.Installment{ID: installmentID, ChargeID: chargeID, IsPaid: true}

	f.installments.On("SetPaid", mock.Anything, installmentID, true).Return(nil)
	f.installments.On("GetByID", mock.Anything, installmentID).Return(paid, nil)
	f.cache.On("Invalidate", mock.Anything).Return(nil)

	for i := 0; i < 2; i++ {
		inst, err := f.service.MarkPaid(context.Background(), installmentID)
		require.NoError(t, err)
		assert.True(t, inst.IsPaid)
	}
	f.installments.AssertNumberOfCalls(t, "SetPaid", 2)
}

func TestMarkUnpaid_UnknownInstallment(t *testing.T) {
	f := newFixture(100)
	f.installments.On("SetPaid", mock.Anything, installmentID, false).Return(sql.ErrNoRows)

	_, err := f.service.MarkUnpaid(context.Background(), installmentID)

	assert.True(t, errors.Is(err, customError.ErrInstallmentNotFound))
	f.cache.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestInvalidateCharge_DatabaseErrorPassesThrough(t *testing.T) {
	f := newFixture(100)
	dbErr := errors.New("deadlock detected")
	f.charges.On("SetValid", mock.Anything, chargeID, false).Return(dbErr)

	_, err := f.service.InvalidateCharge(context.Background(), chargeID)

	assert.True(t, errors.Is(err, dbErr))
	assert.False(t, customError.IsNotFound(err))
}

func TestValidateCharge(t *testing.T) {
	f := newFixture(100)
	f.charges.On("SetValid", mock.Anything, chargeID, true).Return(nil)
	f.cache.On("Invalidate", mock.Anything).Return(nil)
	f.charges.On("GetByID", mock.Anything, chargeID).Return(storedCharge(3), nil)
	f.installments.On("ListByChargeID", mock.Anything, chargeID).Return([]*domain.Installment{}, nil)

	charge, err := f.service.ValidateCharge(context.Background(), chargeID)

	require.NoError(t, err)
	assert.Equal(t, domain.ValidityValid, charge.Validity())
}

func TestComputePaymentStatus(t *testing.T) {
	f := newFixture(100)
	f.charges.On("GetByID", mock.Anything, chargeID).Return(storedCharge(3), nil)
	f.installments.On("ListByChargeID", mock.Anything, chargeID).Return([]*domain.Installment{
		{Sequence: 1, Amount: decimal.NewFromInt(100), IsPaid: true},
		{Sequence: 2, Amount: decimal.NewFromInt(100)},
		{Sequence: 3, Amount: decimal.NewFromInt(100)},
	}, nil)

	status, err := f.service.ComputePaymentStatus(context.Background(), chargeID)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusUnpaid, status.Status)
	assert.Equal(t, 3, status.InstallmentCount)
	assert.Equal(t, 1, status.PaidCount)
	assert.True(t, status.Total.Equal(decimal.NewFromInt(300)))
	assert.True(t, status.Outstanding.Equal(decimal.NewFromInt(200)))
	assert.True(t, status.TotalInclVAT.Equal(decimal.NewFromInt(360)))
}

func TestComputePaymentStatus_NoInstallmentsIsUnpaid(t *testing.T) {
	f := newFixture(100)
	f.charges.On("GetByID", mock.Anything, chargeID).Return(storedCharge(3), nil)
	f.installments.On("ListByChargeID", mock.Anything, chargeID).Return([]*domain.Installment{}, nil)

	status, err := f.service.ComputePaymentStatus(context.Background(), chargeID)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusUnpaid, status.Status)
	assert.True(t, status.Outstanding.IsZero())
}

func listedCharges() []*domain.Charge {
	ids := []string{
		"11111111-1111-4111-8111-111111111111",
		"22222222-2222-4222-8222-222222222222",
		"33333333-3333-4333-8333-333333333333",
	}
	charges := make([]*domain.Charge, 0, len(ids))
	for _, id := range ids {
		c := storedCharge(1)
		c.ID = id
		charges = append(charges, c)
	}
	return charges
}

func TestQueryCharges_LoadsAndCaches(t *testing.T) {
	f := newFixture(2)
	charges := listedCharges()

	f.cache.On("Get", mock.Anything).Return(nil, uint64(7), false, nil)
	f.charges.On("List", mock.Anything).Return(charges, nil)
	f.installments.On("ListByChargeIDs", mock.Anything, []string{charges[0].ID, charges[1].ID, charges[2].ID}).
		Return([]*domain.Installment{{ChargeID: charges[1].ID, IsPaid: true}}, nil)
	f.cache.On("Set", mock.Anything, uint64(7), charges).Return(true, nil)
	f.lookups.On("Load", mock.Anything).Return(domain.Lookups{}, nil)

	page, err := f.service.QueryCharges(context.Background(), domain.ChargeQuery{
		PaidStatuses: []domain.PaymentStatus{domain.PaymentStatusPaid},
		Page:         1,
	})

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, charges[1].ID, page.Items[0].ID)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.Clamped)
	f.cache.AssertExpectations(t)
}

func TestQueryCharges_ClampsOutOfRangePage(t *testing.T) {
	f := newFixture(2)

	f.cache.On("Get", mock.Anything).Return(listedCharges(), uint64(1), true, nil)
	f.lookups.On("Load", mock.Anything).Return(domain.Lookups{}, nil)

	page, err := f.service.QueryCharges(context.Background(), domain.ChargeQuery{Page: 5})

	require.NoError(t, err)
	assert.True(t, page.Clamped)
	assert.Equal(t, 5, page.RequestedPage)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.StartIndex)
	assert.Equal(t, 3, page.EndIndex)
	assert.Len(t, page.Items, 1)
	f.charges.AssertNotCalled(t, "List", mock.Anything)
}

func TestQueryCharges_CacheFailureFallsBackToRepository(t *testing.T) {
	f := newFixture(100)

	f.cache.On("Get", mock.Anything).Return(nil, uint64(0), false, errors.New("redis down"))
	f.charges.On("List", mock.Anything).Return([]*domain.Charge{}, nil)
	f.installments.On("ListByChargeIDs", mock.Anything, []string{}).Return([]*domain.Installment{}, nil)
	f.lookups.On("Load", mock.Anything).Return(domain.Lookups{}, nil)

	page, err := f.service.QueryCharges(context.Background(), domain.ChargeQuery{})

	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalItems)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.False(t, page.Clamped)
	// without a generation the reload cannot be proven fresh
	f.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

// memoryCache follows the generation rule of the redis cache.
type memoryCache struct {
	mu         sync.Mutex
	generation uint64
	charges    []*domain.Charge
}

func (m *memoryCache) Get(ctx context.Context) ([]*domain.Charge, uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.charges, m.generation, m.charges != nil, nil
}

func (m *memoryCache) Set(ctx context.Context, generation uint64, charges []*domain.Charge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.generation {
		return false, nil
	}
	m.charges = charges
	return true, nil
}

func (m *memoryCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.charges = nil
	return nil
}

func (m *memoryCache) snapshot() []*domain.Charge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.charges
}

func TestQueryCharges_WriteDuringLoadIsNotCached(t *testing.T) {
	f := newFixture(100)
	mem := &memoryCache{}
	f.service.cache = mem

	listing := make(chan struct{})
	release := make(chan struct{})

	f.lookups.On("Load", mock.Anything).Return(domain.Lookups{}, nil)
	f.charges.On("List", mock.Anything).Run(func(mock.Arguments) {
		close(listing)
		<-release
	}).Return([]*domain.Charge{storedCharge(1)}, nil).Once()
	f.charges.On("List", mock.Anything).Return([]*domain.Charge{storedCharge(1)}, nil)
	f.installments.On("ListByChargeIDs", mock.Anything, []string{chargeID}).
		Return([]*domain.Installment{{ID: installmentID, ChargeID: chargeID}}, nil).Once()
	f.installments.On("ListByChargeIDs", mock.Anything, []string{chargeID}).
		Return([]*domain.Installment{{ID: installmentID, ChargeID: chargeID, IsPaid: true}}, nil)
	f.installments.On("SetPaid", mock.Anything, installmentID, true).Return(nil)
	f.installments.On("GetByID", mock.Anything, installmentID).
		Return(&domain.Installment{ID: installmentID, ChargeID: chargeID, IsPaid: true}, nil)

	paidOnly := domain.ChargeQuery{PaidStatuses: []domain.PaymentStatus{domain.PaymentStatusPaid}}

	done := make(chan error, 1)
	go func() {
		_, err := f.service.QueryCharges(context.Background(), paidOnly)
		done <- err
	}()

	// The listing missed the cache and holds the pre-payment rows
	<-listing
	_, err := f.service.MarkPaid(context.Background(), installmentID)
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	assert.Nil(t, mem.snapshot())

	page, err := f.service.QueryCharges(context.Background(), paidOnly)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].Installments[0].IsPaid)
	assert.NotNil(t, mem.snapshot())
}

func TestQueryCharges_LookupFailure(t *testing.T) {
	f := newFixture(100)

	f.cache.On("Get", mock.Anything).Return(listedCharges(), uint64(1), true, nil)
	f.lookups.On("Load", mock.Anything).Return(domain.Lookups{}, errors.New("relation \"cities\" does not exist"))

	_, err := f.service.QueryCharges(context.Background(), domain.ChargeQuery{})

	var bizErr *customError.BusinessError
	require.True(t, errors.As(err, &bizErr))
	assert.Equal(t, customError.ErrCodeDatabaseError, bizErr.Code)
}

func TestOverdueInstallments(t *testing.T) {
	f := newFixture(100)
	asOf := day(2024, time.March, 1)

	f.installments.On("ListOverdue", mock.Anything, asOf).Return([]*domain.Installment{
		{Amount: decimal.RequireFromString("612.40")},
		{Amount: decimal.RequireFromString("75.00")},
	}, nil)

	report, err := f.service.OverdueInstallments(context.Background(), asOf.Add(15*time.Hour))

	require.NoError(t, err)
	assert.Equal(t, asOf, report.AsOf)
	assert.Len(t, report.Installments, 2)
	assert.True(t, report.Outstanding.Equal(decimal.RequireFromString("687.40")))
}

func TestPreviewSchedule(t *testing.T) {
	f := newFixture(100)

	preview := f.service.PreviewSchedule(recurringInput(36))

	require.NotNil(t, preview.EndDate)
	assert.Equal(t, day(2026, time.December, 31), *preview.EndDate)
	assert.Len(t, preview.Installments, 36)
}
