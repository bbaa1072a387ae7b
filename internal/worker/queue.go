package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull очередь заполнена, задача отклонена
	ErrQueueFull = errors.New("task queue is full")
	// ErrQueueClosed очередь остановлена
	ErrQueueClosed = errors.New("task queue is closed")
)

// Task единица работы для воркера
type Task struct {
	ID     string
	Name   string // "scan", "sweep", "trigger"
	Source string // кто поставил задачу: timer, trigger, telegram, cli
	Run    func(ctx context.Context)
}

// Observer получает длину очереди и отказы
type Observer interface {
	SetQueueDepth(n int)
	TaskRejected(source string)
}

type nopObserver struct{}

func (nopObserver) SetQueueDepth(int)   {}
func (nopObserver) TaskRejected(string) {}

// Queue ограниченная FIFO-очередь с единственным воркером.
// Задачи выполняются строго по одной.
type Queue struct {
	tasks    chan Task
	logger   *zap.Logger
	observer Observer

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewQueue создаёт очередь на capacity задач
func NewQueue(capacity int, logger *zap.Logger, observer Observer) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Queue{
		tasks:    make(chan Task, capacity),
		logger:   logger.Named("queue"),
		observer: observer,
	}
}

// Submit ставит задачу в очередь без блокировки
func (q *Queue) Submit(t Task) error {
	if t.Run == nil {
		return errors.New("task has no run func")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- t:
		q.observer.SetQueueDepth(len(q.tasks))
		q.logger.Debug("task queued",
			zap.String("task_id", t.ID),
			zap.String("task", t.Name),
			zap.String("source", t.Source),
		)
		return nil
	default:
		q.observer.TaskRejected(t.Source)
		q.logger.Warn("task rejected, queue is full",
			zap.String("task", t.Name),
			zap.String("source", t.Source),
			zap.Int("capacity", cap(q.tasks)),
		)
		return errors.Wrap(ErrQueueFull, t.Name)
	}
}

// Len сколько задач ждёт воркера
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Start запускает воркер. Повторный вызов ничего не делает.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go q.loop(ctx)
}

// Stop закрывает очередь и ждёт окончания текущей задачи.
// Задачи, не успевшие начаться, отбрасываются.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.closed = true
	cancel := q.cancel
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.wg.Wait()

	if dropped := len(q.tasks); dropped > 0 {
		q.logger.Warn("dropping pending tasks", zap.Int("count", dropped))
	}
}

func (q *Queue) loop(ctx context.Context) {
	defer q.wg.Done()
	for {
		// Остановка имеет приоритет над ожидающими задачами
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case t := <-q.tasks:
			q.observer.SetQueueDepth(len(q.tasks))
			q.run(ctx, t)
		}
	}
}

func (q *Queue) run(ctx context.Context, t Task) {
	logger := q.logger.With(zap.String("task_id", t.ID), zap.String("task", t.Name), zap.String("source", t.Source))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	logger.Debug("task started")
	t.Run(ctx)
	logger.Debug("task finished")
}
