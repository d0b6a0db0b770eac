package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sfdfinance/finance-core/internal/api/metrics"
	"github.com/sfdfinance/finance-core/internal/core/domain"
	"github.com/sfdfinance/finance-core/internal/core/ports"
)

// SubsidyService is the only writer of SubsidyPool.UsedAmount. Consumption
// and reversal are transactional with their audit entries; threshold alerts
// are the single best-effort side effect and never roll back a consumption.
type SubsidyService struct {
	pools       ports.SubsidyPoolRepository
	audit       ports.AuditRepository
	tx          ports.TxRunner
	broadcaster ports.Broadcaster
	sink        ports.NotificationSink
	marker      ports.AlertMarker
	logger      zerolog.Logger
	maxAttempts int
}

func NewSubsidyService(
	pools ports.SubsidyPoolRepository,
	audit ports.AuditRepository,
	tx ports.TxRunner,
	broadcaster ports.Broadcaster,
	sink ports.NotificationSink,
	marker ports.AlertMarker,
	maxAttempts int,
	logger zerolog.Logger,
) *SubsidyService {
	if maxAttempts <= 0 {
		maxAttempts = defaultTransferAttempts
	}
	return &SubsidyService{
		pools:       pools,
		audit:       audit,
		tx:          tx,
		broadcaster: broadcaster,
		sink:        sink,
		marker:      marker,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// CreatePool registers a new allocation. Thresholds must sit inside the
// allocation, low at or below critical.
func (s *SubsidyService) CreatePool(ctx context.Context, in ports.CreatePoolInput) (*domain.SubsidyPool, error) {
	if in.InstitutionID == "" || in.AllocatedAmount <= 0 {
		return nil, domain.ErrValidation
	}
	if in.LowThreshold < 0 || in.CriticalThreshold < 0 ||
		in.LowThreshold > in.CriticalThreshold ||
		in.CriticalThreshold > in.AllocatedAmount {
		return nil, domain.ErrValidation
	}

	now := time.Now().UTC()
	pool := &domain.SubsidyPool{
		ID:                newID("SUB"),
		InstitutionID:     in.InstitutionID,
		AllocatedAmount:   in.AllocatedAmount,
		UsedAmount:        0,
		Currency:          in.Currency,
		LowThreshold:      in.LowThreshold,
		CriticalThreshold: in.CriticalThreshold,
		Status:            domain.PoolActive,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.pools.Create(ctx, pool); err != nil {
			return fmt.Errorf("create pool: %w", err)
		}
		if err := s.audit.Record(ctx, &domain.AuditLogEntry{
			ActorID:    in.ActorID,
			EntityType: domain.EntitySubsidyPool,
			EntityID:   pool.ID,
			Action:     "create",
			AfterState: pool,
			OccurredAt: now,
		}); err != nil {
			return fmt.Errorf("audit create pool: %w", err)
		}
		s.tx.OnCommit(ctx, func() {
			s.broadcaster.Announce(poolChange(pool))
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("pool_id", pool.ID).
		Str("institution_id", in.InstitutionID).
		Int64("allocated", in.AllocatedAmount).
		Msg("subsidy pool created")
	return pool, nil
}

// Consume draws amount from the pool. The usage increment, the exhausted
// flip, and the audit entry commit atomically; threshold alerts fire after
// the commit and only on the first crossing of each level.
func (s *SubsidyService) Consume(ctx context.Context, in ports.ConsumeInput) (*domain.SubsidyPool, error) {
	if in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var updated *domain.SubsidyPool
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		updated, err = s.tryConsume(ctx, in)
		if !errors.Is(err, domain.ErrConcurrentModification) {
			break
		}
	}
	return updated, err
}

func (s *SubsidyService) tryConsume(ctx context.Context, in ports.ConsumeInput) (*domain.SubsidyPool, error) {
	var updated *domain.SubsidyPool

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		pool, err := s.pools.FindByID(ctx, in.PoolID)
		if err != nil {
			return err
		}
		if pool.Status != domain.PoolActive {
			return domain.ErrPoolNotActive
		}
		if pool.UsedAmount+in.Amount > pool.AllocatedAmount {
			return domain.ErrSubsidyExhausted
		}

		newUsed := pool.UsedAmount + in.Amount
		status := pool.Status
		if newUsed == pool.AllocatedAmount {
			status = domain.PoolExhausted
		}

		now := time.Now().UTC()
		if err := s.pools.UpdateUsage(ctx, pool.ID, pool.Version, newUsed, status, now); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, &domain.AuditLogEntry{
			ActorID:     in.ActorID,
			EntityType:  domain.EntitySubsidyPool,
			EntityID:    pool.ID,
			Action:      "consume",
			BeforeState: map[string]int64{"used_amount": pool.UsedAmount},
			AfterState:  map[string]int64{"used_amount": newUsed},
			OccurredAt:  now,
		}); err != nil {
			return fmt.Errorf("audit consume: %w", err)
		}

		next := *pool
		next.UsedAmount = newUsed
		next.Status = status
		next.Version = pool.Version + 1
		next.UpdatedAt = now
		updated = &next

		crossed := pool.CrossedThresholds(pool.UsedAmount, newUsed)
		s.tx.OnCommit(ctx, func() {
			s.broadcaster.Announce(poolChange(&next))
			for _, level := range crossed {
				s.raiseAlert(ctx, &next, level)
			}
			if status == domain.PoolExhausted {
				metrics.SubsidyPoolsExhaustedTotal.Inc()
				s.logger.Warn().Str("pool_id", pool.ID).Msg("subsidy pool exhausted")
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("pool_id", in.PoolID).
		Int64("amount", in.Amount).
		Int64("used", updated.UsedAmount).
		Msg("subsidy consumed")
	return updated, nil
}

// Revoke gives consumption back after a cancelled or rejected disbursement.
// Usage is floored at zero; a previously exhausted pool becomes active again.
func (s *SubsidyService) Revoke(ctx context.Context, in ports.RevokeInput) (*domain.SubsidyPool, error) {
	if in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var updated *domain.SubsidyPool

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			pool, err := s.pools.FindByID(ctx, in.PoolID)
			if err != nil {
				return err
			}
			if pool.Status == domain.PoolRevoked {
				return domain.ErrPoolNotActive
			}

			newUsed := pool.UsedAmount - in.Amount
			if newUsed < 0 {
				newUsed = 0
			}
			status := pool.Status
			if status == domain.PoolExhausted && newUsed < pool.AllocatedAmount {
				status = domain.PoolActive
			}

			now := time.Now().UTC()
			if err := s.pools.UpdateUsage(ctx, pool.ID, pool.Version, newUsed, status, now); err != nil {
				return err
			}
			if err := s.audit.Record(ctx, &domain.AuditLogEntry{
				ActorID:     in.ActorID,
				EntityType:  domain.EntitySubsidyPool,
				EntityID:    pool.ID,
				Action:      "reversal",
				BeforeState: map[string]int64{"used_amount": pool.UsedAmount},
				AfterState:  map[string]int64{"used_amount": newUsed},
				OccurredAt:  now,
			}); err != nil {
				return fmt.Errorf("audit reversal: %w", err)
			}

			next := *pool
			next.UsedAmount = newUsed
			next.Status = status
			next.Version = pool.Version + 1
			next.UpdatedAt = now
			updated = &next

			s.tx.OnCommit(ctx, func() {
				s.broadcaster.Announce(poolChange(&next))
			})
			return nil
		})
		if !errors.Is(err, domain.ErrConcurrentModification) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("pool_id", in.PoolID).
		Int64("amount", in.Amount).
		Str("reason", in.Reason).
		Msg("subsidy consumption reversed")
	return updated, nil
}

func (s *SubsidyService) GetPool(ctx context.Context, id string) (*domain.SubsidyPool, error) {
	return s.pools.FindByID(ctx, id)
}

// raiseAlert notifies the sink once per pool per threshold. Marker and sink
// failures are logged and swallowed.
func (s *SubsidyService) raiseAlert(ctx context.Context, pool *domain.SubsidyPool, level domain.ThresholdLevel) {
	raised, err := s.marker.AlreadyRaised(ctx, pool.ID, level)
	if err != nil {
		s.logger.Warn().Err(err).Str("pool_id", pool.ID).Msg("alert marker check failed, notifying anyway")
	} else if raised {
		return
	}

	if err := s.marker.MarkRaised(ctx, pool.ID, level); err != nil {
		s.logger.Warn().Err(err).Str("pool_id", pool.ID).Msg("failed to set alert marker")
	}

	alert := ports.ThresholdAlert{
		PoolID:          pool.ID,
		InstitutionID:   pool.InstitutionID,
		Level:           level,
		UsedAmount:      pool.UsedAmount,
		AllocatedAmount: pool.AllocatedAmount,
		RaisedAt:        time.Now().UTC(),
	}
	if err := s.sink.Notify(ctx, alert); err != nil {
		s.logger.Error().Err(err).
			Str("pool_id", pool.ID).
			Str("level", string(level)).
			Msg("threshold alert delivery failed")
		return
	}

	metrics.SubsidyAlertsTotal.WithLabelValues(string(level)).Inc()
	s.logger.Warn().
		Str("pool_id", pool.ID).
		Str("level", string(level)).
		Int64("used", pool.UsedAmount).
		Int64("allocated", pool.AllocatedAmount).
		Msg("subsidy threshold crossed")
}

func poolChange(p *domain.SubsidyPool) ports.StateChange {
	return ports.StateChange{
		EntityType:    domain.EntitySubsidyPool,
		EntityID:      p.ID,
		InstitutionID: p.InstitutionID,
		Version:       p.Version,
		NewState:      p,
	}
}
