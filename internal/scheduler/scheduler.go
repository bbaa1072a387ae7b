package scheduler

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config расписание обхода
type Config struct {
	// Schedule длительность ("30m") или cron-выражение ("*/30 * * * *")
	Schedule string
	// RunOnStart запускает первый обход сразу после старта
	RunOnStart bool
}

// Scheduler периодически вызывает функцию обхода
type Scheduler struct {
	scheduler gocron.Scheduler
	job       gocron.Job
	logger    *zap.Logger
}

// New создаёт планировщик с одним заданием.
// Задание в режиме singleton: если предыдущий вызов не закончился, следующий переносится.
func New(cfg Config, fn func(), logger *zap.Logger) (*Scheduler, error) {
	logger = logger.Named("scheduler")

	definition, err := jobDefinition(cfg.Schedule)
	if err != nil {
		return nil, err
	}

	s, err := gocron.NewScheduler(gocron.WithLogger(gocronLogger{logger.Sugar()}))
	if err != nil {
		return nil, errors.Wrap(err, "create scheduler")
	}

	opts := []gocron.JobOption{
		gocron.WithName("sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if cfg.RunOnStart {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := s.NewJob(definition, gocron.NewTask(fn), opts...)
	if err != nil {
		_ = s.Shutdown()
		return nil, errors.Wrapf(err, "schedule %q", cfg.Schedule)
	}

	logger.Info("sweep job created", zap.String("schedule", cfg.Schedule), zap.Stringer("job_id", job.ID()))
	return &Scheduler{scheduler: s, job: job, logger: logger}, nil
}

// jobDefinition как в конфигурации заданий: сначала длительность, затем cron
func jobDefinition(schedule string) (gocron.JobDefinition, error) {
	if schedule == "" {
		return nil, errors.New("empty schedule")
	}
	d, err := time.ParseDuration(schedule)
	if err != nil {
		return gocron.CronJob(schedule, false), nil
	}
	if d <= 0 {
		return nil, errors.Errorf("non-positive interval %s", d)
	}
	return gocron.DurationJob(d), nil
}

// Start запускает планировщик
func (s *Scheduler) Start() {
	s.scheduler.Start()
	if next, err := s.job.NextRun(); err == nil {
		s.logger.Info("scheduler started", zap.Time("next_run", next))
	}
}

// Shutdown останавливает планировщик и ждёт выполняющееся задание
func (s *Scheduler) Shutdown() error {
	s.logger.Info("shutting down scheduler")
	return s.scheduler.Shutdown()
}

// gocronLogger передаёт журнал gocron в zap; аргументы идут парами ключ-значение
type gocronLogger struct {
	s *zap.SugaredLogger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l gocronLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l gocronLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
