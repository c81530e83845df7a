// Package worker 消费任务队列，执行导入/导出等后台任务
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bitfantasy/phase/internal/shared/queue"
	"go.uber.org/zap"
)

// Processor 按ID处理一个任务
type Processor interface {
	Process(ctx context.Context, id string) error
}

// ProcessorFunc 函数适配 Processor
type ProcessorFunc func(ctx context.Context, id string) error

func (f ProcessorFunc) Process(ctx context.Context, id string) error {
	return f(ctx, id)
}

// Periodic 定时任务
type Periodic struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Pool 固定数量的消费者
type Pool struct {
	queue       queue.Queue
	concurrency int
	retryDelay  time.Duration
	logger      *zap.Logger

	mu         sync.RWMutex
	processors map[string]Processor
	periodic   []Periodic

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool 创建消费者池，concurrency 小于1时按1处理
func NewPool(q queue.Queue, concurrency int, logger *zap.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		queue:       q,
		concurrency: concurrency,
		retryDelay:  time.Second,
		logger:      logger.With(zap.String("component", "worker")),
		processors:  make(map[string]Processor),
	}
}

// Handle 注册任务类型的处理器
func (p *Pool) Handle(kind string, proc Processor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processors[kind] = proc
}

// Every 注册定时任务，Start 之前调用
func (p *Pool) Every(job Periodic) {
	p.periodic = append(p.periodic, job)
}

// Start 启动消费者和定时任务
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.consume(ctx, i)
	}
	for _, job := range p.periodic {
		p.wg.Add(1)
		go p.tick(ctx, job)
	}
	p.logger.Info("worker pool started",
		zap.Int("concurrency", p.concurrency),
		zap.Int("periodic", len(p.periodic)),
	)
}

// Stop 停止取新任务，等待正在执行的任务跑完
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) consume(ctx context.Context, n int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker", n))

	for {
		task, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			log.Error("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
			continue
		}

		// 已取出的任务不随 Stop 取消
		start := time.Now()
		if err := p.dispatch(context.WithoutCancel(ctx), task); err != nil {
			log.Error("task failed",
				zap.String("kind", task.Kind),
				zap.String("id", task.ID),
				zap.Error(err),
			)
			continue
		}
		log.Info("task done",
			zap.String("kind", task.Kind),
			zap.String("id", task.ID),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// dispatch 执行任务，panic 转为错误
func (p *Pool) dispatch(ctx context.Context, task queue.Task) (err error) {
	p.mu.RLock()
	proc, ok := p.processors[task.Kind]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no processor for task kind %q", task.Kind)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return proc.Process(ctx, task.ID)
}

func (p *Pool) tick(ctx context.Context, job Periodic) {
	defer p.wg.Done()
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("periodic job failed", zap.String("job", job.Name), zap.Error(err))
			}
		}
	}
}
