package app

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
)

// DefaultTriggerPath точка сигнала в базе
const DefaultTriggerPath = "ai_monitoring/trigger"

// ErrMalformedTrigger в точке сигнала лежит не объект
var ErrMalformedTrigger = errors.New("malformed trigger")

// TriggerObserver считает сигналы по типу
type TriggerObserver interface {
	TriggerReceived(kind string)
}

type nopTriggerObserver struct{}

func (nopTriggerObserver) TriggerReceived(string) {}

// TriggerService разбирает сигнал из базы, запускает сканирование и сбрасывает сигнал
type TriggerService struct {
	store    port.Store
	path     string
	scans    *ScanService
	observer TriggerObserver
	logger   *zap.Logger
}

// NewTriggerService создаёт обработчик сигналов по пути path
func NewTriggerService(store port.Store, path string, scans *ScanService, observer TriggerObserver, logger *zap.Logger) *TriggerService {
	if path == "" {
		path = DefaultTriggerPath
	}
	if observer == nil {
		observer = nopTriggerObserver{}
	}
	return &TriggerService{
		store:    store,
		path:     path,
		scans:    scans,
		observer: observer,
		logger:   logger.Named("trigger"),
	}
}

// Read читает текущее содержимое точки сигнала.
// Не-объект возвращается как ErrMalformedTrigger.
func (t *TriggerService) Read(ctx context.Context) (map[string]any, error) {
	var raw any
	if err := t.store.Get(ctx, t.path, &raw); err != nil {
		return nil, errors.Wrapf(err, "read %s", t.path)
	}
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedTrigger, "%s holds %T", t.path, raw)
	}
	return m, nil
}

// Handle выполняет сигнал и всегда сбрасывает точку, если в ней что-то было.
// Ошибка означает, что сигнал остался в базе после обработки.
func (t *TriggerService) Handle(ctx context.Context, raw map[string]any) (trigger entity.Trigger, resetErr error) {
	trigger = entity.ParseTrigger(raw)
	if len(raw) == 0 {
		return trigger, nil
	}
	t.observer.TriggerReceived(trigger.Kind.String())

	ctx = context.WithoutCancel(ctx)
	defer func() { resetErr = t.Reset(ctx) }()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("trigger handling panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	switch trigger.Kind {
	case entity.TriggerSingle:
		t.logger.Info("manual scan requested",
			zap.String("plant_id", trigger.PlantID),
			zap.String("sensor_node", trigger.SensorNode),
		)
		t.scans.ScanPlant(ctx, trigger.PlantID, trigger.SensorNode)
	case entity.TriggerSweep:
		t.logger.Info("sweep requested", zap.String("request_type", trigger.RequestType))
		if _, err := t.scans.Sweep(ctx); err != nil {
			t.logger.Error("sweep failed", zap.Error(err))
		}
	default:
		t.logger.Warn("ignoring malformed trigger", zap.String("payload", fmt.Sprint(raw)))
	}
	return trigger, nil
}

// Reset очищает точку сигнала
func (t *TriggerService) Reset(ctx context.Context) error {
	if err := t.store.Set(ctx, t.path, map[string]any{}); err != nil {
		t.logger.Error("trigger reset failed", zap.String("path", t.path), zap.Error(err))
		return errors.Wrapf(err, "reset %s", t.path)
	}
	t.logger.Debug("trigger reset", zap.String("path", t.path))
	return nil
}
