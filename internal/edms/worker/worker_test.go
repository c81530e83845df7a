package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitfantasy/phase/internal/shared/queue"
	"go.uber.org/zap"
)

type collector struct {
	mu   sync.Mutex
	ids  []string
	done chan struct{}
	want int
}

func newCollector(want int) *collector {
	return &collector{done: make(chan struct{}), want: want}
}

func (c *collector) Process(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, id)
	if len(c.ids) == c.want {
		close(c.done)
	}
	return nil
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tasks")
	}
}

func TestPoolDispatchesByKind(t *testing.T) {
	q := queue.NewMemoryQueue(8)
	imports := newCollector(2)
	exports := newCollector(1)

	p := NewPool(q, 3, zap.NewNop())
	p.Handle(queue.KindImport, imports)
	p.Handle(queue.KindExport, exports)
	p.Start(context.Background())
	defer p.Stop()

	ctx := context.Background()
	q.Enqueue(ctx, queue.Task{Kind: queue.KindImport, ID: "i1"})
	q.Enqueue(ctx, queue.Task{Kind: queue.KindExport, ID: "e1"})
	q.Enqueue(ctx, queue.Task{Kind: queue.KindImport, ID: "i2"})

	waitFor(t, imports.done)
	waitFor(t, exports.done)
	if exports.ids[0] != "e1" {
		t.Errorf("unexpected export ids %v", exports.ids)
	}
}

func TestPoolSurvivesFailures(t *testing.T) {
	q := queue.NewMemoryQueue(8)
	ok := newCollector(1)

	p := NewPool(q, 1, zap.NewNop())
	p.Handle("boom", ProcessorFunc(func(context.Context, string) error { panic("boom") }))
	p.Handle("fail", ProcessorFunc(func(context.Context, string) error { return errors.New("failed") }))
	p.Handle(queue.KindImport, ok)
	p.Start(context.Background())
	defer p.Stop()

	ctx := context.Background()
	q.Enqueue(ctx, queue.Task{Kind: "boom", ID: "1"})
	q.Enqueue(ctx, queue.Task{Kind: "fail", ID: "2"})
	q.Enqueue(ctx, queue.Task{Kind: "unknown", ID: "3"})
	q.Enqueue(ctx, queue.Task{Kind: queue.KindImport, ID: "4"})

	waitFor(t, ok.done)
}

func TestPoolStopsOnClose(t *testing.T) {
	q := queue.NewMemoryQueue(1)
	p := NewPool(q, 2, zap.NewNop())
	p.Start(context.Background())
	q.Close()

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	waitFor(t, stopped)
}

func TestPeriodic(t *testing.T) {
	var runs int32
	done := make(chan struct{})

	p := NewPool(queue.NewMemoryQueue(1), 1, zap.NewNop())
	p.Every(Periodic{
		Name:     "overdue",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) error {
			if atomic.AddInt32(&runs, 1) == 2 {
				close(done)
			}
			return nil
		},
	})
	p.Start(context.Background())
	waitFor(t, done)
	p.Stop()
}

func TestStopWaitsForRunningTask(t *testing.T) {
	q := queue.NewMemoryQueue(1)
	started := make(chan struct{})
	release := make(chan struct{})
	var taskErr atomic.Value

	p := NewPool(q, 1, zap.NewNop())
	p.Handle(queue.KindExport, ProcessorFunc(func(ctx context.Context, _ string) error {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			taskErr.Store(err)
		}
		return nil
	}))
	p.Start(context.Background())
	q.Enqueue(context.Background(), queue.Task{Kind: queue.KindExport, ID: "e1"})
	waitFor(t, started)

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the running task finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	waitFor(t, stopped)
	if err := taskErr.Load(); err != nil {
		t.Errorf("running task saw a cancelled context: %v", err)
	}
}
