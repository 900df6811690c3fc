package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"gearshare-backend/internal/logger"
)

var (
	ErrDeliveryQueueFull   = errors.New("delivery queue is full")
	ErrDeliveryQueueClosed = errors.New("delivery queue is closed")
)

// DeliveryTask is one outbound email or push to a single recipient.
type DeliveryTask struct {
	Name string
	Send func(ctx context.Context) error
}

// DeliveryQueue sends notifications from background workers so the request that caused
// them never waits on the email or push provider. Failed sends are retried with a
// quadratic backoff.
type DeliveryQueue struct {
	tasks      chan DeliveryTask
	quit       chan struct{}
	workers    int
	maxRetries int
	timeout    time.Duration
	retryDelay time.Duration

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewDeliveryQueue(workers, queueSize, maxRetries int, timeout time.Duration) *DeliveryQueue {
	if workers < 1 {
		workers = 1
	}
	return &DeliveryQueue{
		tasks:      make(chan DeliveryTask, queueSize),
		quit:       make(chan struct{}),
		workers:    workers,
		maxRetries: maxRetries,
		timeout:    timeout,
		retryDelay: time.Second,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (q *DeliveryQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Enqueue hands a task to the workers without blocking.
func (q *DeliveryQueue) Enqueue(task DeliveryTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrDeliveryQueueClosed
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrDeliveryQueueFull
	}
}

// Stop refuses new tasks, gives every queued task its first attempt and waits for the
// workers. Pending retries are abandoned.
func (q *DeliveryQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.quit)
	close(q.tasks)
	started := q.started
	q.mu.Unlock()

	if !started {
		for task := range q.tasks {
			q.process(task)
		}
		return
	}
	q.wg.Wait()
}

func (q *DeliveryQueue) worker(id int) {
	defer q.wg.Done()
	logger.Debug("Delivery worker started", "worker", id)
	for task := range q.tasks {
		q.process(task)
	}
	logger.Debug("Delivery worker stopped", "worker", id)
}

func (q *DeliveryQueue) process(task DeliveryTask) {
	for attempt := 0; ; attempt++ {
		err := q.send(task)
		if err == nil {
			return
		}
		if attempt >= q.maxRetries {
			logger.Warn("Notification delivery failed", "task", task.Name, "attempts", attempt+1, "error", err)
			return
		}

		backoff := time.Duration((attempt+1)*(attempt+1)) * q.retryDelay
		logger.Debug("Retrying notification delivery", "task", task.Name, "attempt", attempt+1, "backoff", backoff, "error", err)
		select {
		case <-time.After(backoff):
		case <-q.quit:
			logger.Warn("Notification delivery abandoned on shutdown", "task", task.Name, "error", err)
			return
		}
	}
}

func (q *DeliveryQueue) send(task DeliveryTask) error {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	return task.Send(ctx)
}
