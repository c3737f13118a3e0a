package mocks

import (
	"context"
	"time"

	"github.com/segyhp/fleet-charges/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockChargeRepository struct {
	mock.Mock
}

func (m *MockChargeRepository) List(ctx context.Context) ([]*domain.Charge, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Charge), args.Error(1)
}

func (m *MockChargeRepository) GetByID(ctx context.Context, id string) (*domain.Charge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Charge), args.Error(1)
}

func (m *MockChargeRepository) Create(ctx context.Context, charge *domain.Charge, installments []*domain.Installment) error {
	args := m.Called(ctx, charge, installments)
	return args.Error(0)
}

func (m *MockChargeRepository) Update(ctx context.Context, charge *domain.Charge, installments []*domain.Installment) error {
	args := m.Called(ctx, charge, installments)
	return args.Error(0)
}

func (m *MockChargeRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChargeRepository) SetValid(ctx context.Context, id string, valid bool) error {
	args := m.Called(ctx, id, valid)
	return args.Error(0)
}

type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) ListByChargeID(ctx context.Context, chargeID string) ([]*domain.Installment, error) {
	args := m.Called(ctx, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) ListByChargeIDs(ctx context.Context, chargeIDs []string) ([]*domain.Installment, error) {
	args := m.Called(ctx, chargeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) GetByID(ctx context.Context, id string) (*domain.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) SetPaid(ctx context.Context, id string, paid bool) error {
	args := m.Called(ctx, id, paid)
	return args.Error(0)
}

func (m *MockInstallmentRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.Installment, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

type MockLookupRepository struct {
	mock.Mock
}

func (m *MockLookupRepository) Load(ctx context.Context) (domain.Lookups, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Lookups), args.Error(1)
}

type MockChargeCache struct {
	mock.Mock
}

func (m *MockChargeCache) Get(ctx context.Context) ([]*domain.Charge, uint64, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Bool(2), args.Error(3)
	}
	return args.Get(0).([]*domain.Charge), args.Get(1).(uint64), args.Bool(2), args.Error(3)
}

func (m *MockChargeCache) Set(ctx context.Context, generation uint64, charges []*domain.Charge) (bool, error) {
	args := m.Called(ctx, generation, charges)
	return args.Bool(0), args.Error(1)
}

func (m *MockChargeCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
