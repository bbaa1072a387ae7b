package container

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plant-monitor/config"
	app "plant-monitor/internal/application"
	"plant-monitor/internal/domain/port"
	"plant-monitor/internal/infrastructure/camera"
	"plant-monitor/internal/infrastructure/external"
	"plant-monitor/internal/infrastructure/metrics"
	"plant-monitor/internal/infrastructure/mqtt"
	"plant-monitor/internal/infrastructure/rtdb"
	"plant-monitor/internal/infrastructure/storage"
	"plant-monitor/internal/infrastructure/tensor"
	"plant-monitor/internal/infrastructure/tflite"
	"plant-monitor/internal/infrastructure/vision"
	"plant-monitor/internal/worker"
)

// Models готовые модели вместо загрузки из конфигурации (тесты, встраивание)
type Models struct {
	Detector   port.RegionDetector
	Classifier port.DiseaseClassifier
}

type Container struct {
	Config  *config.Config
	Store   port.Store
	Metrics *metrics.Metrics

	UserService    *app.UserService
	DiseaseService *app.DiseaseService

	// Заполняются EnableScanning
	ScanService    *app.ScanService
	TriggerService *app.TriggerService
	Queue          *worker.Queue
	Dispatcher     *app.Dispatcher

	logger  *zap.Logger
	closers []func() error
}

// New собирает хранилище и лёгкие сервисы; модели не загружаются
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newWithStore(cfg, store, logger), nil
}

func newWithStore(cfg *config.Config, store port.Store, logger *zap.Logger) *Container {
	return &Container{
		Config:         cfg,
		Store:          store,
		Metrics:        metrics.New(),
		UserService:    app.NewUserService(storage.NewMemoryUserRepository()),
		DiseaseService: app.NewDiseaseService(storage.NewDiseaseRepository(store, cfg.Database.DiseasesPath), logger),
		logger:         logger,
	}
}

func newStore(ctx context.Context, cfg *config.Config) (port.Store, error) {
	if !cfg.Store.DryRun {
		return rtdb.NewStore(ctx, cfg.Firebase.DatabaseURL, cfg.Firebase.CredentialsFile)
	}
	if cfg.Store.SeedFile == "" {
		return storage.NewMemoryStore(), nil
	}

	f, err := os.Open(cfg.Store.SeedFile)
	if err != nil {
		return nil, errors.Wrap(err, "open seed file")
	}
	defer f.Close()
	return storage.NewMemoryStoreFromJSON(f)
}

// EnableScanning загружает модели и собирает конвейер, очередь и диспетчер.
// Пустые поля models загружаются по конфигурации.
func (c *Container) EnableScanning(models Models) error {
	cfg := c.Config

	detector := models.Detector
	if detector == nil {
		d, closer, err := newDetector(cfg.Detector, c.logger)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, closer)
		detector = d
	}

	classifier := models.Classifier
	if classifier == nil {
		mean, std := cfg.Classifier.Normalization()
		cl, err := tflite.NewClassifier(tflite.ClassifierConfig{
			ModelPath:     cfg.Classifier.ModelPath,
			Threads:       cfg.Classifier.Threads,
			Normalization: tensor.Normalization{Mean: mean, Std: std},
		}, c.logger)
		if err != nil {
			return errors.Wrap(err, "load classifier")
		}
		c.closers = append(c.closers, cl.Close)
		classifier = cl
	}

	plants := storage.NewPlantRepository(c.Store, cfg.Database.PlantsPath, c.logger)
	reconcilerCfg := app.DefaultReconcilerConfig()
	reconcilerCfg.MaxRetries = uint64(cfg.Scan.WriteRetries)

	var notifiers []port.ScanNotifier
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewPublisher(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Retain:      cfg.MQTT.Retain,
			Timeout:     cfg.MQTT.Timeout,
		}, c.logger)
		if err != nil {
			return errors.Wrap(err, "connect mqtt")
		}
		c.closers = append(c.closers, func() error { pub.Close(); return nil })
		notifiers = append(notifiers, pub)
	}

	c.ScanService = app.NewScanService(app.ScanDeps{
		Images:     camera.NewImageSource(c.Store, cfg.Database.CameraFeedKey),
		Detector:   detector,
		Classifier: classifier,
		Plants:     plants,
		Reconciler: app.NewReconciler(plants, reconcilerCfg, c.logger),
		Notifiers:  notifiers,
		Observer:   c.Metrics,
	}, app.ScanConfig{
		SensorNodes:    cfg.Scan.SensorNodes,
		UnhealthyLabel: cfg.Scan.UnhealthyLabel,
	}, c.logger)

	c.TriggerService = app.NewTriggerService(c.Store, cfg.Database.TriggerPath, c.ScanService, c.Metrics, c.logger)
	c.Queue = worker.NewQueue(cfg.Scan.QueueCapacity, c.logger, c.Metrics)
	c.Dispatcher = app.NewDispatcher(c.Queue, c.ScanService, c.TriggerService, c.logger)
	return nil
}

func newDetector(cfg config.DetectorConfig, logger *zap.Logger) (port.RegionDetector, func() error, error) {
	switch cfg.Backend {
	case config.BackendTFLite:
		d, err := tflite.NewDetector(tflite.DetectorConfig{
			ModelPath:     cfg.ModelPath,
			Labels:        cfg.Labels,
			Threads:       cfg.Threads,
			ConfThreshold: cfg.ConfThreshold,
			IoUThreshold:  cfg.IoUThreshold,
		}, logger)
		if err != nil {
			return nil, nil, errors.Wrap(err, "load detector")
		}
		return d, d.Close, nil

	case config.BackendExec:
		d, err := external.NewDetector(cfg.Command, cfg.Args, cfg.ScratchDir, logger)
		if err != nil {
			return nil, nil, errors.Wrap(err, "external detector")
		}
		return d, func() error { return nil }, nil

	case config.BackendGoCV:
		d, err := vision.NewGoCVDetector(cfg.ModelPath, cfg.Labels, cfg.InputSize, cfg.ConfThreshold, cfg.IoUThreshold)
		if err != nil {
			return nil, nil, errors.Wrap(err, "load gocv detector")
		}
		return d, d.Close, nil

	default:
		return nil, nil, errors.Errorf("unknown detector backend %q", cfg.Backend)
	}
}

// Close останавливает очередь и освобождает модели и соединения
func (c *Container) Close() error {
	if c.Queue != nil {
		c.Queue.Stop()
	}

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if len(errs) > 0 {
		return errors.Errorf("close: %v", errs)
	}
	return nil
}

var _ io.Closer = (*Container)(nil)
