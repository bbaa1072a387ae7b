package trigger

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	app "plant-monitor/internal/application"
)

// Reader читает точку сигнала
type Reader interface {
	Read(ctx context.Context) (map[string]any, error)
}

// Enqueuer ставит обработку сигнала в очередь воркера
type Enqueuer interface {
	EnqueueTrigger(raw map[string]any, done func(cleared bool)) error
	EnqueueTriggerReset(done func(cleared bool)) error
}

// Listener опрашивает точку сигнала и передаёт непустые сигналы воркеру.
// Пока сигнал в очереди или обрабатывается, новые не ставятся.
type Listener struct {
	reader   Reader
	enqueuer Enqueuer
	interval time.Duration
	logger   *zap.Logger

	pending atomic.Bool
	mu      sync.Mutex
	last    string // отпечаток сигнала, который не удалось сбросить
}

// NewListener создаёт опросчик с периодом interval
func NewListener(reader Reader, enqueuer Enqueuer, interval time.Duration, logger *zap.Logger) *Listener {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Listener{
		reader:   reader,
		enqueuer: enqueuer,
		interval: interval,
		logger:   logger.Named("trigger_listener"),
	}
}

// Run опрашивает до отмены ctx
func (l *Listener) Run(ctx context.Context) {
	l.logger.Info("listening for triggers", zap.Duration("interval", l.interval))
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.Poll(ctx)
		select {
		case <-ctx.Done():
			l.logger.Info("trigger listener stopped")
			return
		case <-ticker.C:
		}
	}
}

// Poll один цикл опроса
func (l *Listener) Poll(ctx context.Context) {
	if l.pending.Load() {
		return
	}

	raw, err := l.reader.Read(ctx)
	if errors.Is(err, app.ErrMalformedTrigger) {
		l.logger.Warn("malformed trigger, resetting", zap.Error(err))
		l.submit(func(done func(bool)) error { return l.enqueuer.EnqueueTriggerReset(done) }, "")
		return
	}
	if err != nil {
		if ctx.Err() == nil {
			l.logger.Warn("trigger read failed", zap.Error(err))
		}
		return
	}
	if len(raw) == 0 {
		l.remember("")
		return
	}

	// Сигнал, который не удалось сбросить, не обрабатывается повторно
	fp := fingerprint(raw)
	if fp == l.stuck() {
		return
	}
	l.submit(func(done func(bool)) error { return l.enqueuer.EnqueueTrigger(raw, done) }, fp)
}

// submit ставит задачу; если после неё точка сигнала не очищена, fp запоминается
func (l *Listener) submit(enqueue func(done func(cleared bool)) error, fp string) {
	l.pending.Store(true)
	done := func(cleared bool) {
		if cleared {
			l.remember("")
		} else {
			l.remember(fp)
		}
		l.pending.Store(false)
	}
	if err := enqueue(done); err != nil {
		l.pending.Store(false)
		l.logger.Warn("trigger not queued", zap.Error(err))
	}
}

func (l *Listener) remember(fp string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = fp
}

func (l *Listener) stuck() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func fingerprint(raw map[string]any) string {
	// json.Marshal сортирует ключи map
	data, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	return string(data)
}
