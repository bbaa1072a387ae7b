package app

import (
	"context"

	"go.uber.org/zap"

	"plant-monitor/internal/worker"
)

// Источники задач
const (
	SourceTimer    = "timer"
	SourceTrigger  = "trigger"
	SourceTelegram = "telegram"
	SourceCLI      = "cli"
)

// TaskQueue очередь единственного воркера
type TaskQueue interface {
	Submit(task worker.Task) error
}

// Dispatcher ставит сканирования в общую очередь, чтобы модели работали строго по одной
type Dispatcher struct {
	queue    TaskQueue
	scans    *ScanService
	triggers *TriggerService
	logger   *zap.Logger
}

// NewDispatcher создаёт диспетчер задач
func NewDispatcher(queue TaskQueue, scans *ScanService, triggers *TriggerService, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		scans:    scans,
		triggers: triggers,
		logger:   logger.Named("dispatcher"),
	}
}

// EnqueueScan ставит в очередь сканирование одного растения
func (d *Dispatcher) EnqueueScan(source, plantID, sensorNode string) error {
	return d.queue.Submit(worker.Task{
		Name:   "scan",
		Source: source,
		Run: func(ctx context.Context) {
			d.scans.ScanPlant(ctx, plantID, sensorNode)
		},
	})
}

// EnqueueSweep ставит в очередь обход всех растений
func (d *Dispatcher) EnqueueSweep(source string) error {
	return d.queue.Submit(worker.Task{
		Name:   "sweep",
		Source: source,
		Run: func(ctx context.Context) {
			if _, err := d.scans.Sweep(ctx); err != nil {
				d.logger.Error("sweep failed", zap.String("source", source), zap.Error(err))
			}
		},
	})
}

// EnqueueTrigger ставит в очередь обработку сигнала.
// done вызывается после попытки сброса; cleared сообщает, что точка сигнала очищена.
func (d *Dispatcher) EnqueueTrigger(raw map[string]any, done func(cleared bool)) error {
	return d.queue.Submit(worker.Task{
		Name:   "trigger",
		Source: SourceTrigger,
		Run: func(ctx context.Context) {
			cleared := false
			if done != nil {
				defer func() { done(cleared) }()
			}
			_, err := d.triggers.Handle(ctx, raw)
			cleared = err == nil
		},
	})
}

// EnqueueTriggerReset ставит в очередь сброс битого сигнала
func (d *Dispatcher) EnqueueTriggerReset(done func(cleared bool)) error {
	return d.queue.Submit(worker.Task{
		Name:   "trigger-reset",
		Source: SourceTrigger,
		Run: func(ctx context.Context) {
			cleared := false
			if done != nil {
				defer func() { done(cleared) }()
			}
			cleared = d.triggers.Reset(context.WithoutCancel(ctx)) == nil
		},
	})
}
