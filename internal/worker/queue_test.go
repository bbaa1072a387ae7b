package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingObserver struct {
	mu       sync.Mutex
	depth    int
	rejected map[string]int
}

func (o *countingObserver) SetQueueDepth(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.depth = n
}

func (o *countingObserver) TaskRejected(source string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rejected == nil {
		o.rejected = make(map[string]int)
	}
	o.rejected[source]++
}

func TestQueue_RunsTasksInOrder(t *testing.T) {
	q := NewQueue(8, zap.NewNop(), nil)
	q.Start(context.Background())
	defer q.Stop()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, q.Submit(Task{Name: "scan", Source: "test", Run: func(context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 4 {
				close(done)
			}
		}}))
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tasks did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestQueue_SingleWorker(t *testing.T) {
	q := NewQueue(16, zap.NewNop(), nil)
	q.Start(context.Background())
	defer q.Stop()

	var mu sync.Mutex
	running, peak := 0, 0
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, q.Submit(Task{Name: "scan", Run: func(context.Context) {
			defer wg.Done()
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}}))
	}

	wg.Wait()
	require.Equal(t, 1, peak)
}

func TestQueue_RejectsWhenFull(t *testing.T) {
	obs := &countingObserver{}
	q := NewQueue(1, zap.NewNop(), obs)

	// Воркер не запущен, поэтому первая задача занимает единственное место
	noop := func(context.Context) {}
	require.NoError(t, q.Submit(Task{Name: "sweep", Source: "timer", Run: noop}))

	err := q.Submit(Task{Name: "sweep", Source: "trigger", Run: noop})
	require.ErrorIs(t, err, ErrQueueFull)
	require.Equal(t, 1, obs.rejected["trigger"])
	require.Equal(t, 1, q.Len())

	q.Stop()
}

func TestQueue_StopWaitsForRunningTask(t *testing.T) {
	q := NewQueue(4, zap.NewNop(), nil)
	q.Start(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	finished := false

	require.NoError(t, q.Submit(Task{Name: "scan", Run: func(context.Context) {
		close(started)
		<-release
		finished = true
	}}))

	<-started
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()

	q.Stop()
	require.True(t, finished)

	err := q.Submit(Task{Name: "scan", Run: func(context.Context) {}})
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_SurvivesPanickingTask(t *testing.T) {
	q := NewQueue(4, zap.NewNop(), nil)
	q.Start(context.Background())
	defer q.Stop()

	done := make(chan struct{})
	require.NoError(t, q.Submit(Task{Name: "scan", Run: func(context.Context) { panic("boom") }}))
	require.NoError(t, q.Submit(Task{Name: "scan", Run: func(context.Context) { close(done) }}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker stopped after panic")
	}
}

func TestQueue_SubmitWithoutRun(t *testing.T) {
	q := NewQueue(1, zap.NewNop(), nil)
	require.Error(t, q.Submit(Task{Name: "scan"}))
	q.Stop()
}
