package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(workers, size, maxRetries int) *DeliveryQueue {
	q := NewDeliveryQueue(workers, size, maxRetries, time.Second)
	q.retryDelay = time.Millisecond
	return q
}

func TestDeliveryQueue_RetriesUntilSent(t *testing.T) {
	q := newTestQueue(2, 10, 3)
	q.Start()

	var attempts atomic.Int32
	require.NoError(t, q.Enqueue(DeliveryTask{Name: "email", Send: func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("provider unavailable")
		}
		return nil
	}}))

	assert.Eventually(t, func() bool { return attempts.Load() == 3 }, time.Second, time.Millisecond)
	q.Stop()
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDeliveryQueue_GivesUpAfterMaxRetries(t *testing.T) {
	q := newTestQueue(1, 10, 2)
	q.Start()

	var attempts atomic.Int32
	done := make(chan struct{})
	require.NoError(t, q.Enqueue(DeliveryTask{Name: "push", Send: func(ctx context.Context) error {
		if attempts.Add(1) == 3 {
			close(done)
		}
		return errors.New("invalid token")
	}}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task was not retried")
	}
	q.Stop()
	assert.Equal(t, int32(3), attempts.Load(), "one attempt plus two retries")
}

func TestDeliveryQueue_EnqueueNeverBlocks(t *testing.T) {
	q := newTestQueue(1, 1, 0)
	var sent atomic.Int32
	task := DeliveryTask{Name: "email", Send: func(ctx context.Context) error {
		sent.Add(1)
		return nil
	}}

	require.NoError(t, q.Enqueue(task))
	assert.ErrorIs(t, q.Enqueue(task), ErrDeliveryQueueFull)

	// Stopping a queue that was never started still sends what it holds.
	q.Stop()
	assert.Equal(t, int32(1), sent.Load())
	assert.ErrorIs(t, q.Enqueue(task), ErrDeliveryQueueClosed)
	q.Stop()
}

func TestDeliveryQueue_TaskGetsItsOwnDeadline(t *testing.T) {
	q := newTestQueue(1, 10, 0)
	q.Start()
	defer q.Stop()

	seen := make(chan error, 1)
	require.NoError(t, q.Enqueue(DeliveryTask{Name: "email", Send: func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			seen <- errors.New("no deadline")
			return nil
		}
		seen <- ctx.Err()
		return nil
	}}))

	select {
	case err := <-seen:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}
