package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	app "plant-monitor/internal/application"
)

type stubReader struct {
	mu  sync.Mutex
	raw map[string]any
	err error
}

func (r *stubReader) set(raw map[string]any, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw, r.err = raw, err
}

func (r *stubReader) Read(context.Context) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.raw, r.err
}

type stubEnqueuer struct {
	mu     sync.Mutex
	queued []map[string]any
	resets int
	dones  []func(bool)
	refuse bool
}

func (e *stubEnqueuer) EnqueueTrigger(raw map[string]any, done func(bool)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.refuse {
		return errors.New("queue full")
	}
	e.queued = append(e.queued, raw)
	e.dones = append(e.dones, done)
	return nil
}

func (e *stubEnqueuer) EnqueueTriggerReset(done func(bool)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resets++
	e.dones = append(e.dones, done)
	return nil
}

// finish завершает поставленные задачи; cleared сообщает, удалось ли сбросить сигнал
func (e *stubEnqueuer) finish(cleared bool) {
	e.mu.Lock()
	dones := e.dones
	e.dones = nil
	e.mu.Unlock()
	for _, d := range dones {
		d(cleared)
	}
}

func (e *stubEnqueuer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queued)
}

func TestListener_SkipsWhilePending(t *testing.T) {
	reader := &stubReader{}
	enq := &stubEnqueuer{}
	l := NewListener(reader, enq, time.Second, zap.NewNop())
	ctx := context.Background()

	reader.set(map[string]any{"requestType": "manual", "plantId": "p1", "sensorNode": "JSON"}, nil)
	l.Poll(ctx)
	reader.set(map[string]any{"requestType": "manual", "plantId": "p2", "sensorNode": "JSON"}, nil)
	l.Poll(ctx)
	require.Equal(t, 1, enq.count())

	enq.finish(true)
	l.Poll(ctx)
	require.Equal(t, 2, enq.count())
}

func TestListener_DoesNotRepeatUnresetTrigger(t *testing.T) {
	reader := &stubReader{}
	enq := &stubEnqueuer{}
	l := NewListener(reader, enq, time.Second, zap.NewNop())
	ctx := context.Background()

	reader.set(map[string]any{"requestType": "all"}, nil)
	l.Poll(ctx)
	enq.finish(false)
	l.Poll(ctx)
	require.Equal(t, 1, enq.count())

	reader.set(nil, nil)
	l.Poll(ctx)
	reader.set(map[string]any{"requestType": "all"}, nil)
	l.Poll(ctx)
	require.Equal(t, 2, enq.count())
}

func TestListener_SamePayloadAfterSuccessfulReset(t *testing.T) {
	reader := &stubReader{}
	enq := &stubEnqueuer{}
	l := NewListener(reader, enq, time.Second, zap.NewNop())
	ctx := context.Background()

	// Клиент пишет тот же сигнал до следующего опроса, пустое значение опрос не видит
	reader.set(map[string]any{"requestType": "auto"}, nil)
	l.Poll(ctx)
	enq.finish(true)
	l.Poll(ctx)
	require.Equal(t, 2, enq.count())
}

func TestListener_EmptyAndFailedReads(t *testing.T) {
	reader := &stubReader{}
	enq := &stubEnqueuer{}
	l := NewListener(reader, enq, time.Second, zap.NewNop())

	l.Poll(context.Background())
	reader.set(nil, errors.New("permission denied"))
	l.Poll(context.Background())
	require.Zero(t, enq.count())
}

func TestListener_MalformedIsReset(t *testing.T) {
	reader := &stubReader{}
	enq := &stubEnqueuer{}
	l := NewListener(reader, enq, time.Second, zap.NewNop())

	reader.set(nil, errors.Wrap(app.ErrMalformedTrigger, "trigger holds string"))
	l.Poll(context.Background())
	require.Equal(t, 1, enq.resets)
	require.Zero(t, enq.count())
}

func TestListener_RetriesWhenQueueRefuses(t *testing.T) {
	reader := &stubReader{}
	enq := &stubEnqueuer{refuse: true}
	l := NewListener(reader, enq, time.Second, zap.NewNop())
	ctx := context.Background()

	reader.set(map[string]any{"requestType": "all"}, nil)
	l.Poll(ctx)
	require.Zero(t, enq.count())

	enq.refuse = false
	l.Poll(ctx)
	require.Equal(t, 1, enq.count())
}

func TestListener_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	reader := &stubReader{}
	l := NewListener(reader, &stubEnqueuer{}, 5*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
