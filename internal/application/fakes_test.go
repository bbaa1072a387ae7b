package app

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
	"plant-monitor/internal/infrastructure/storage"
)

type fakeImages struct {
	img     image.Image
	err     error
	panics  bool
	fetched []string
}

func (f *fakeImages) Fetch(_ context.Context, node string) (image.Image, error) {
	f.fetched = append(f.fetched, node)
	if f.panics {
		panic("decoder exploded")
	}
	return f.img, f.err
}

type fakeDetector struct {
	regions []entity.Region
	err     error
	calls   int
}

func (f *fakeDetector) Detect(context.Context, image.Image) ([]entity.Region, error) {
	f.calls++
	return f.regions, f.err
}

type fakeClassifier struct {
	scores []float32
	err    error
	seen   []image.Rectangle
}

func (f *fakeClassifier) Classify(_ context.Context, img image.Image) ([]float32, error) {
	f.seen = append(f.seen, img.Bounds())
	return f.scores, f.err
}

// countingPlants считает записи статуса и может отказывать первые failures раз
type countingPlants struct {
	port.PlantRepository

	mu       sync.Mutex
	writes   []string
	failures int
}

func (c *countingPlants) UpdateStatus(ctx context.Context, plantID, status, disease string, at time.Time) error {
	c.mu.Lock()
	c.writes = append(c.writes, plantID)
	fail := c.failures > 0
	if fail {
		c.failures--
	}
	c.mu.Unlock()

	if fail {
		return errors.New("connection reset")
	}
	return c.PlantRepository.UpdateStatus(ctx, plantID, status, disease, at)
}

func (c *countingPlants) writesFor(plantID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, id := range c.writes {
		if id == plantID {
			n++
		}
	}
	return n
}

type recordingNotifier struct {
	results []entity.ScanResult
	err     error
}

func (r *recordingNotifier) Notify(_ context.Context, res entity.ScanResult) error {
	r.results = append(r.results, res)
	return r.err
}

type fixture struct {
	store      *storage.MemoryStore
	plants     *countingPlants
	images     *fakeImages
	detector   *fakeDetector
	classifier *fakeClassifier
	notifier   *recordingNotifier
	scans      *ScanService
}

func newFixture(nodes ...string) *fixture {
	return newLoggedFixture(zap.NewNop(), nodes...)
}

func newLoggedFixture(logger *zap.Logger, nodes ...string) *fixture {
	if len(nodes) == 0 {
		nodes = []string{"JSON", "JSON2", "JSON3"}
	}
	store := storage.NewMemoryStore()

	f := &fixture{
		store:      store,
		plants:     &countingPlants{PlantRepository: storage.NewPlantRepository(store, "plants", logger)},
		images:     &fakeImages{img: solidImage(64, 48)},
		detector:   &fakeDetector{},
		classifier: &fakeClassifier{},
		notifier:   &recordingNotifier{},
	}
	reconciler := NewReconciler(f.plants, ReconcilerConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}, logger)
	f.scans = NewScanService(ScanDeps{
		Images:     f.images,
		Detector:   f.detector,
		Classifier: f.classifier,
		Plants:     f.plants,
		Reconciler: reconciler,
		Notifiers:  []port.ScanNotifier{f.notifier},
	}, ScanConfig{SensorNodes: nodes}, logger)
	return f
}

func (f *fixture) addPlant(id, node string) {
	_ = f.store.Set(context.Background(), "plants/"+id, map[string]any{
		"sensorNode": node,
		"status":     "pending",
	})
}

func (f *fixture) status(id string) string {
	var p struct {
		Status string `json:"status"`
	}
	_ = f.store.Get(context.Background(), "plants/"+id, &p)
	return p.Status
}

func solidImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 40, G: 160, B: 60, A: 255})
		}
	}
	return img
}

func scoresFor(index int) []float32 {
	s := make([]float32, entity.VocabularySize())
	s[index] = 1
	return s
}
