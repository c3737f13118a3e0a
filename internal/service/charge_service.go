package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/segyhp/fleet-charges/internal/config"
	"github.com/segyhp/fleet-charges/internal/domain"
	"github.com/segyhp/fleet-charges/internal/observability"
	"github.com/segyhp/fleet-charges/internal/query"
	"github.com/segyhp/fleet-charges/internal/repository"
	"github.com/segyhp/fleet-charges/internal/schedule"
	customError "github.com/segyhp/fleet-charges/pkg/errors"
	"github.com/segyhp/fleet-charges/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChargeCache holds the loaded charge collection between listings. Get
// reports the generation current at read time; Set must refuse a snapshot
// whose generation was superseded by an Invalidate.
type ChargeCache interface {
	Get(ctx context.Context) ([]*domain.Charge, uint64, bool, error)
	Set(ctx context.Context, generation uint64, charges []*domain.Charge) (bool, error)
	Invalidate(ctx context.Context) error
}

type ChargeService struct {
	ChargeRepo      repository.ChargeRepository
	InstallmentRepo repository.InstallmentRepository
	LookupRepo      repository.LookupRepository
	cache           ChargeCache
	config          *config.Config
	logger          *zap.Logger
	metrics         *observability.Metrics
}

// NewChargeService wires the service. cache may be nil, in which case every
// listing reloads from the repositories.
func NewChargeService(
	chargeRepo repository.ChargeRepository,
	installmentRepo repository.InstallmentRepository,
	lookupRepo repository.LookupRepository,
	cache ChargeCache,
	config *config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *ChargeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChargeService{
		ChargeRepo:      chargeRepo,
		InstallmentRepo: installmentRepo,
		LookupRepo:      lookupRepo,
		cache:           cache,
		config:          config,
		logger:          logger,
		metrics:         metrics,
	}
}

// CreateCharge validates the input, generates its schedule and stores both.
func (s *ChargeService) CreateCharge(ctx context.Context, input domain.ChargeInput) (*domain.Charge, error) {
	charge, err := domain.NewCharge(input)
	if err != nil {
		return nil, err
	}

	installments := schedule.ScheduleInstallments(charge)

	err = s.ChargeRepo.Create(ctx, charge, installments)
	s.metrics.IncrMutation("create", err)
	if err != nil {
		if errors.Is(err, customError.ErrInvalidCharge) {
			return nil, err
		}
		s.logger.Error("failed to create charge", zap.Error(err))
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.Info("charge created",
		zap.String("charge_id", charge.ID),
		zap.String("type", string(charge.Type)),
		zap.Int("installments", len(installments)),
	)

	s.invalidate(ctx)
	return s.GetCharge(ctx, charge.ID)
}

// UpdateCharge applies a full edit. Installments are regenerated, and their
// paid flags lost, only when the schedule inputs changed.
func (s *ChargeService) UpdateCharge(ctx context.Context, id string, input domain.ChargeInput) (*domain.Charge, error) {
	existing, err := s.getCharge(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := domain.NewCharge(input)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if input.IsValid == nil {
		updated.IsValid = existing.IsValid
	}

	var installments []*domain.Installment
	regenerate := !existing.SameSchedule(updated)
	if regenerate {
		installments = schedule.ScheduleInstallments(updated)
	}

	err = s.ChargeRepo.Update(ctx, updated, installments)
	s.metrics.IncrMutation("update", err)
	if err != nil {
		return nil, s.chargeError(id, err)
	}

	s.logger.Info("charge updated",
		zap.String("charge_id", id),
		zap.Bool("schedule_regenerated", regenerate),
	)

	s.invalidate(ctx)
	return s.GetCharge(ctx, id)
}

// DeleteCharge removes a charge and its installments.
func (s *ChargeService) DeleteCharge(ctx context.Context, id string) error {
	if !validID(id) {
		return customError.WrapChargeNotFound(id)
	}

	err := s.ChargeRepo.Delete(ctx, id)
	s.metrics.IncrMutation("delete", err)
	if err != nil {
		return s.chargeError(id, err)
	}

	s.logger.Info("charge deleted", zap.String("charge_id", id))
	s.invalidate(ctx)
	return nil
}

// GetCharge returns a charge with its installments.
func (s *ChargeService) GetCharge(ctx context.Context, id string) (*domain.Charge, error) {
	charge, err := s.getCharge(ctx, id)
	if err != nil {
		return nil, err
	}

	installments, err := s.InstallmentRepo.ListByChargeID(ctx, id)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	charge.Installments = installments
	return charge, nil
}

// ListInstallments returns the installments of an existing charge in sequence order.
func (s *ChargeService) ListInstallments(ctx context.Context, chargeID string) ([]*domain.Installment, error) {
	charge, err := s.GetCharge(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	return charge.Installments, nil
}

// MarkPaid sets an installment paid. Marking an already paid installment is a no-op.
func (s *ChargeService) MarkPaid(ctx context.Context, installmentID string) (*domain.Installment, error) {
	return s.setPaid(ctx, installmentID, true)
}

// MarkUnpaid sets an installment unpaid.
func (s *ChargeService) MarkUnpaid(ctx context.Context, installmentID string) (*domain.Installment, error) {
	return s.setPaid(ctx, installmentID, false)
}

func (s *ChargeService) setPaid(ctx context.Context, installmentID string, paid bool) (*domain.Installment, error) {
	if !validID(installmentID) {
		return nil, customError.WrapInstallmentNotFound(installmentID)
	}

	err := s.InstallmentRepo.SetPaid(ctx, installmentID, paid)
	s.metrics.IncrMutation(paidOperation(paid), err)
	if err != nil {
		return nil, s.installmentError(installmentID, err)
	}

	s.logger.Info("installment payment updated",
		zap.String("installment_id", installmentID),
		zap.Bool("paid", paid),
	)
	s.invalidate(ctx)

	installment, err := s.InstallmentRepo.GetByID(ctx, installmentID)
	if err != nil {
		return nil, s.installmentError(installmentID, err)
	}
	return installment, nil
}

func paidOperation(paid bool) string {
	if paid {
		return "mark_paid"
	}
	return "mark_unpaid"
}

// ValidateCharge flags a charge valid. There is no transition restriction.
func (s *ChargeService) ValidateCharge(ctx context.Context, id string) (*domain.Charge, error) {
	return s.setValid(ctx, id, true)
}

// InvalidateCharge flags a charge invalid.
func (s *ChargeService) InvalidateCharge(ctx context.Context, id string) (*domain.Charge, error) {
	return s.setValid(ctx, id, false)
}

func (s *ChargeService) setValid(ctx context.Context, id string, valid bool) (*domain.Charge, error) {
	if !validID(id) {
		return nil, customError.WrapChargeNotFound(id)
	}

	operation := "invalidate"
	if valid {
		operation = "validate"
	}

	err := s.ChargeRepo.SetValid(ctx, id, valid)
	s.metrics.IncrMutation(operation, err)
	if err != nil {
		return nil, s.chargeError(id, err)
	}

	s.logger.Info("charge validity updated", zap.String("charge_id", id), zap.Bool("valid", valid))
	s.invalidate(ctx)
	return s.GetCharge(ctx, id)
}

// ComputePaymentStatus derives the aggregate payment state and balance of a charge.
func (s *ChargeService) ComputePaymentStatus(ctx context.Context, chargeID string) (*domain.ChargeStatus, error) {
	charge, err := s.GetCharge(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	status := &domain.ChargeStatus{
		ChargeID:         charge.ID,
		Status:           domain.ComputePaymentStatus(charge.Installments),
		IsValid:          charge.IsValid,
		InstallmentCount: len(charge.Installments),
	}

	for _, inst := range charge.Installments {
		status.Total = status.Total.Add(inst.Amount)
		if inst.IsPaid {
			status.PaidCount++
			status.Paid = status.Paid.Add(inst.Amount)
		}
	}

	// Outstanding = Total - Paid
	status.Outstanding = status.Total.Sub(status.Paid)
	status.TotalInclVAT = utils.ApplyRate(status.Total, s.config.GetVATRate())

	return status, nil
}

// OverdueInstallments reports unpaid installments of valid charges due before asOf.
func (s *ChargeService) OverdueInstallments(ctx context.Context, asOf time.Time) (*domain.OverdueReport, error) {
	asOf = utils.DateOnly(asOf)

	installments, err := s.InstallmentRepo.ListOverdue(ctx, asOf)
	if err != nil {
		s.logger.Error("failed to list overdue installments", zap.Error(err))
		return nil, customError.WrapDatabaseError(err)
	}

	report := &domain.OverdueReport{AsOf: asOf, Installments: installments}
	for _, inst := range installments {
		report.Outstanding = report.Outstanding.Add(inst.Amount)
	}
	return report, nil
}

// PreviewSchedule computes the schedule of an incomplete form without storing anything.
func (s *ChargeService) PreviewSchedule(input domain.ChargeInput) schedule.Preview {
	return schedule.PreviewInput(input)
}

// QueryCharges filters and paginates the charge collection. A page outside the
// result is clamped to the nearest existing page and reported as such.
func (s *ChargeService) QueryCharges(ctx context.Context, q domain.ChargeQuery) (*domain.ChargePage, error) {
	started := time.Now()
	charges, lookups, err := s.load(ctx)
	s.metrics.ObserveQuery("load", time.Since(started))
	if err != nil {
		s.metrics.IncrQuery("error")
		return nil, err
	}

	started = time.Now()
	filtered := query.Filter(charges, q, lookups)
	s.metrics.ObserveQuery("filter", time.Since(started))

	pageSize := s.pageSize(q.PageSize)
	requested := q.Page
	if requested == 0 {
		requested = 1
	}

	started = time.Now()
	page, err := query.Paginate(filtered, pageSize, requested)
	clamped := false
	var outOfRange *query.PageOutOfRangeError
	if errors.As(err, &outOfRange) {
		clamped = true
		page, err = query.Paginate(filtered, pageSize, query.ClampPage(requested, outOfRange.TotalPages))
	}
	s.metrics.ObserveQuery("paginate", time.Since(started))
	if err != nil {
		s.metrics.IncrQuery("error")
		return nil, err
	}

	result := &domain.ChargePage{
		Items:      page.Items,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
		Page:       page.PageNumber,
		PageSize:   page.PageSize,
		StartIndex: page.StartIndex,
		EndIndex:   page.EndIndex,
		Clamped:    clamped,
	}
	if clamped {
		result.RequestedPage = requested
		s.metrics.IncrQuery("clamped")
	} else {
		s.metrics.IncrQuery("ok")
	}
	return result, nil
}

func (s *ChargeService) pageSize(requested int) int {
	size := s.config.Business.DefaultPageSize
	if requested > 0 {
		size = requested
	}
	if limit := s.config.Business.MaxPageSize; limit > 0 && size > limit {
		size = limit
	}
	return size
}

// load fetches the lookups and the charge collection concurrently.
func (s *ChargeService) load(ctx context.Context) ([]*domain.Charge, domain.Lookups, error) {
	var (
		charges []*domain.Charge
		lookups domain.Lookups
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lookups, err = s.LookupRepo.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		charges, err = s.loadCharges(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load charges", zap.Error(err))
		return nil, domain.Lookups{}, customError.WrapDatabaseError(err)
	}
	return charges, lookups, nil
}

func (s *ChargeService) loadCharges(ctx context.Context) ([]*domain.Charge, error) {
	// Only a generation read before List may store the result
	var generation uint64
	cacheable := false
	if s.cache != nil {
		cached, gen, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			s.logger.Warn("charge cache read failed", zap.Error(err))
		case ok:
			s.metrics.IncrCacheHit()
			return cached, nil
		default:
			generation, cacheable = gen, true
		}
		s.metrics.IncrCacheMiss()
	}

	charges, err := s.ChargeRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(charges))
	for _, c := range charges {
		ids = append(ids, c.ID)
	}
	installments, err := s.InstallmentRepo.ListByChargeIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byCharge := make(map[string][]*domain.Installment, len(charges))
	for _, inst := range installments {
		byCharge[inst.ChargeID] = append(byCharge[inst.ChargeID], inst)
	}
	for _, c := range charges {
		c.Installments = byCharge[c.ID]
	}

	if cacheable {
		stored, err := s.cache.Set(ctx, generation, charges)
		switch {
		case err != nil:
			s.logger.Warn("charge cache write failed", zap.Error(customError.WrapCacheError(err)))
		case !stored:
			s.logger.Debug("charge snapshot superseded by a write, not cached", zap.Uint64("generation", generation))
		}
	}
	return charges, nil
}

func (s *ChargeService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("charge cache invalidation failed", zap.Error(customError.WrapCacheError(err)))
	}
}

func (s *ChargeService) getCharge(ctx context.Context, id string) (*domain.Charge, error) {
	if !validID(id) {
		return nil, customError.WrapChargeNotFound(id)
	}

	charge, err := s.ChargeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.chargeError(id, err)
	}
	return charge, nil
}

func (s *ChargeService) chargeError(id string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return customError.WrapChargeNotFound(id)
	case errors.Is(err, customError.ErrInvalidCharge):
		return err
	}
	s.logger.Error("charge persistence failed", zap.String("charge_id", id), zap.Error(err))
	return customError.WrapDatabaseError(err)
}

func (s *ChargeService) installmentError(id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return customError.WrapInstallmentNotFound(id)
	}
	s.logger.Error("installment persistence failed", zap.String("installment_id", id), zap.Error(err))
	return customError.WrapDatabaseError(err)
}

// validID rejects ids the database could not parse as a uuid; they can never exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
