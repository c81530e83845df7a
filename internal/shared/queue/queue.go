// Package queue 后台任务队列：Redis list，或进程内 channel
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// 任务类型
const (
	KindImport = "import"
	KindExport = "export"
)

// ErrClosed 队列已关闭
var ErrClosed = errors.New("queue closed")

// Task 队列中的任务，只带ID，状态存在数据库里
type Task struct {
	Kind       string    `json:"kind"`
	ID         string    `json:"id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue 任务队列
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	// Dequeue 阻塞直到有任务或 ctx 结束
	Dequeue(ctx context.Context) (Task, error)
	Close() error
}

// RedisQueue LPUSH 入队，BRPOP 出队
type RedisQueue struct {
	rdb     *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisQueue 创建Redis队列
func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key, timeout: 5 * time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push task: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Task{}, err
		}
		res, err := q.rdb.BRPop(ctx, q.timeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Task{}, ctx.Err()
			}
			if errors.Is(err, redis.ErrClosed) {
				return Task{}, ErrClosed
			}
			return Task{}, fmt.Errorf("pop task: %w", err)
		}
		// res[0] 是 key，res[1] 是值
		var task Task
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			return Task{}, fmt.Errorf("unmarshal task: %w", err)
		}
		return task, nil
	}
}

// Close Redis 客户端由调用方关闭
func (q *RedisQueue) Close() error {
	return nil
}

// MemoryQueue 进程内队列，未启用Redis时使用
type MemoryQueue struct {
	tasks     chan Task
	closed    chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueue size 为缓冲大小
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{
		tasks:  make(chan Task, size),
		closed: make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task Task) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	select {
	case q.tasks <- task:
		return nil
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Task, error) {
	select {
	case task := <-q.tasks:
		return task, nil
	case <-q.closed:
		return Task{}, ErrClosed
	case <-ctx.Done():
		return Task{}, ctx.Err()
	}
}

// Close 关闭后 Enqueue/Dequeue 返回 ErrClosed，可重复调用
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.closed) })
	return nil
}
