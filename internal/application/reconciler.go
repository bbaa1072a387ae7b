package app

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
)

// ReconcilerConfig повторы записи статуса
type ReconcilerConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultReconcilerConfig три повтора с нарастающей паузой от 200ms
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Reconciler записывает итог сканирования в запись растения
type Reconciler struct {
	plants port.PlantRepository
	cfg    ReconcilerConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewReconciler создаёт запись статусов поверх репозитория растений
func NewReconciler(plants port.PlantRepository, cfg ReconcilerConfig, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		plants: plants,
		cfg:    cfg,
		logger: logger.Named("reconciler"),
		now:    time.Now,
	}
}

// Reconcile записывает статус, метку болезни и время.
// Все повторы пишут одно и то же значение с одной отметкой времени.
func (r *Reconciler) Reconcile(ctx context.Context, plantID string, outcome entity.Outcome) error {
	status, disease, at := outcome.Status(), outcome.DiseaseField(), r.now().UTC()

	write := func() error {
		return r.plants.UpdateStatus(ctx, plantID, status, disease, at)
	}
	onRetry := func(err error, wait time.Duration) {
		r.logger.Warn("status write failed, retrying",
			zap.String("plant_id", plantID),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(write, r.policy(ctx), onRetry); err != nil {
		return errors.Wrapf(entity.ErrRemoteWriteFailed, "plant %s: %v", plantID, err)
	}
	return nil
}

func (r *Reconciler) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.cfg.InitialInterval > 0 {
		b.InitialInterval = r.cfg.InitialInterval
	}
	if r.cfg.MaxInterval > 0 {
		b.MaxInterval = r.cfg.MaxInterval
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx)
}
