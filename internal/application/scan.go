package app

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
)

// ScanObserver получает результаты для метрик
type ScanObserver interface {
	ObserveScan(result entity.ScanResult)
	ObserveSweep(scanned int)
}

type nopScanObserver struct{}

func (nopScanObserver) ObserveScan(entity.ScanResult) {}
func (nopScanObserver) ObserveSweep(int)              {}

// ScanDeps внешние зависимости конвейера
type ScanDeps struct {
	Images     port.ImageSource
	Detector   port.RegionDetector
	Classifier port.DiseaseClassifier
	Plants     port.PlantRepository
	Reconciler *Reconciler
	Notifiers  []port.ScanNotifier
	Observer   ScanObserver
}

// ScanConfig параметры конвейера
type ScanConfig struct {
	SensorNodes    []string // узлы, которые обходит sweep
	UnhealthyLabel string
}

// ScanService прогоняет снимок через детектор и классификатор и записывает статус.
// Методы не потокобезопасны по отношению к моделям: вызывайте их из одного воркера.
type ScanService struct {
	images     port.ImageSource
	detector   port.RegionDetector
	classifier port.DiseaseClassifier
	plants     port.PlantRepository
	reconciler *Reconciler
	notifiers  []port.ScanNotifier
	observer   ScanObserver

	nodes          map[string]struct{}
	unhealthyLabel string
	logger         *zap.Logger
	now            func() time.Time
}

// NewScanService создаёт сервис сканирования
func NewScanService(deps ScanDeps, cfg ScanConfig, logger *zap.Logger) *ScanService {
	nodes := make(map[string]struct{}, len(cfg.SensorNodes))
	for _, n := range cfg.SensorNodes {
		nodes[n] = struct{}{}
	}
	label := cfg.UnhealthyLabel
	if label == "" {
		label = entity.UnhealthyLabel
	}
	observer := deps.Observer
	if observer == nil {
		observer = nopScanObserver{}
	}

	return &ScanService{
		images:         deps.Images,
		detector:       deps.Detector,
		classifier:     deps.Classifier,
		plants:         deps.Plants,
		reconciler:     deps.Reconciler,
		notifiers:      deps.Notifiers,
		observer:       observer,
		nodes:          nodes,
		unhealthyLabel: label,
		logger:         logger.Named("scan"),
		now:            time.Now,
	}
}

// AddNotifier подключает получателя результатов; вызывать до запуска воркера
func (s *ScanService) AddNotifier(n port.ScanNotifier) {
	s.notifiers = append(s.notifiers, n)
}

// ScanPlant сканирует одно растение и записывает ровно один итоговый статус.
// Ошибки этапов не возвращаются, они попадают в результат.
func (s *ScanService) ScanPlant(ctx context.Context, plantID, sensorNode string) entity.ScanResult {
	// Начатое сканирование доводится до записи статуса даже при остановке сервиса
	ctx = context.WithoutCancel(ctx)

	res := entity.ScanResult{
		ScanID:     uuid.NewString(),
		PlantID:    plantID,
		SensorNode: sensorNode,
		StartedAt:  s.now(),
	}
	logger := s.logger.With(
		zap.String("scan_id", res.ScanID),
		zap.String("plant_id", plantID),
		zap.String("sensor_node", sensorNode),
	)

	res.Outcome, res.Regions, res.Err = s.evaluate(ctx, sensorNode, logger)
	res.Status = res.Outcome.Status()
	res.WriteErr = s.reconciler.Reconcile(ctx, plantID, res.Outcome)
	res.FinishedAt = s.now()

	fields := []zap.Field{
		zap.String("outcome", string(res.Outcome.Kind)),
		zap.String("status", res.Status),
		zap.Int("regions", res.Regions),
		zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)),
	}
	switch {
	case res.WriteErr != nil:
		logger.Error("status write failed", append(fields, zap.Error(res.WriteErr))...)
	case res.Err != nil:
		logger.Warn("scan finished with unknown status", append(fields, zap.Error(res.Err))...)
	default:
		logger.Info("scan finished", fields...)
	}

	s.observer.ObserveScan(res)
	s.notify(ctx, res, logger)
	return res
}

// evaluate проходит FETCH_IMAGE → DETECT → (HEALTHY | SELECT_AND_CROP → CLASSIFY).
// Паника в любом этапе превращается в OutcomeUnexpected.
func (s *ScanService) evaluate(ctx context.Context, sensorNode string, logger *zap.Logger) (outcome entity.Outcome, regions int, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scan panicked", zap.Any("panic", r), zap.Stack("stack"))
			outcome = entity.Failed(entity.OutcomeUnexpected)
			err = errors.Wrap(entity.ErrUnexpected, fmt.Sprint(r))
		}
	}()

	img, err := s.images.Fetch(ctx, sensorNode)
	if err != nil {
		return fail(entity.ErrImageUnavailable, err, 0)
	}

	found, err := s.detector.Detect(ctx, img)
	if err != nil {
		return fail(entity.ErrDetectionFailed, err, 0)
	}
	regions = len(found)

	region, ok := entity.FirstWithLabel(found, s.unhealthyLabel)
	if !ok {
		return entity.Healthy(), regions, nil
	}
	logger.Debug("unhealthy region selected",
		zap.Float64("confidence", region.Confidence),
		zap.Stringer("box", region.Rect()),
	)

	crop, err := CropRegion(img, region)
	if err != nil {
		return fail(entity.ErrInvalidRegion, err, regions)
	}

	label, err := s.classify(ctx, crop)
	if err != nil {
		return fail(entity.ErrClassificationFailed, err, regions)
	}
	return entity.Diseased(label), regions, nil
}

func (s *ScanService) classify(ctx context.Context, img image.Image) (string, error) {
	scores, err := s.classifier.Classify(ctx, img)
	if err != nil {
		return "", err
	}
	return entity.DiseaseFromScores(scores)
}

// fail приводит ошибку этапа к его сентинелу, если адаптер этого не сделал
func fail(stage error, err error, regions int) (entity.Outcome, int, error) {
	if !errors.Is(err, stage) {
		err = fmt.Errorf("%w: %w", stage, err)
	}
	return entity.OutcomeForError(err), regions, err
}

func (s *ScanService) notify(ctx context.Context, res entity.ScanResult, logger *zap.Logger) {
	for _, n := range s.notifiers {
		if err := n.Notify(ctx, res); err != nil {
			logger.Warn("scan notification failed", zap.String("notifier", fmt.Sprintf("%T", n)), zap.Error(err))
		}
	}
}

// SweepReport итог обхода
type SweepReport struct {
	Total   int // растений в базе
	Skipped int // узел не из списка
	Results []entity.ScanResult
	Aborted bool // обход прерван остановкой сервиса
}

// Failed сколько сканирований закончились Unknown или ошибкой записи
func (r SweepReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil || res.WriteErr != nil {
			n++
		}
	}
	return n
}

// Sweep сканирует по очереди все растения с узлом из списка.
// Ошибка одного растения не останавливает обход.
func (s *ScanService) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	plants, err := s.plants.List(ctx)
	if err != nil {
		return report, errors.Wrap(err, "list plants")
	}
	report.Total = len(plants)

	selected := s.Eligible(plants)
	report.Skipped = len(plants) - len(selected)
	s.logger.Info("sweep started", zap.Int("plants", len(selected)), zap.Int("skipped", report.Skipped))

	for i, p := range selected {
		if ctx.Err() != nil {
			report.Aborted = true
			s.logger.Warn("sweep interrupted", zap.Int("done", i), zap.Int("total", len(selected)))
			break
		}
		s.logger.Info("scanning plant",
			zap.String("plant_id", p.ID),
			zap.String("progress", fmt.Sprintf("%d/%d", i+1, len(selected))),
		)
		report.Results = append(report.Results, s.ScanPlant(ctx, p.ID, p.SensorNode))
	}

	s.observer.ObserveSweep(len(report.Results))
	s.logger.Info("sweep finished",
		zap.Int("scanned", len(report.Results)),
		zap.Int("failed", report.Failed()),
	)
	return report, nil
}

// Eligible оставляет растения с узлом из списка, сохраняя порядок
func (s *ScanService) Eligible(plants []entity.Plant) []entity.Plant {
	out := make([]entity.Plant, 0, len(plants))
	for _, p := range plants {
		if _, ok := s.nodes[p.SensorNode]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Plant возвращает запись растения (для /status)
func (s *ScanService) Plant(ctx context.Context, plantID string) (entity.Plant, error) {
	return s.plants.Get(ctx, plantID)
}
