package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Decision is returned by a processFunc with the outcome for an item.
type Decision int

const (
	// DecisionDone is returned by a processFunc when an item was processed.
	DecisionDone Decision = iota

	// DecisionFailed is returned by a processFunc when an item failed.
	DecisionFailed
)

// GenericQueue is a sequential queue of items. It keeps the items not
// reached yet and counts the outcomes of the processed ones.
type GenericQueue[T any] struct {
	sync.RWMutex
	hasStarted  bool
	hasFinished bool
	startTime   time.Time
	finishTime  time.Time
	head        int
	items       []T
	done        int
	failed      int
}

// NewGenericQueue returns a pointer to a new [GenericQueue].
func NewGenericQueue[T any]() *GenericQueue[T] {
	return &GenericQueue[T]{}
}

// GetRemaining returns a copy of all items that were not dequeued yet.
func (q *GenericQueue[T]) GetRemaining() []T {
	q.RLock()
	defer q.RUnlock()

	if q.head >= len(q.items) {
		return []T{}
	}

	result := make([]T, len(q.items)-q.head)
	copy(result, q.items[q.head:])

	return result
}

// Enqueue adds items to the queue.
func (q *GenericQueue[T]) Enqueue(items ...T) {
	q.Lock()
	defer q.Unlock()

	if q.hasFinished {
		q.finishTime = time.Time{}
		q.hasFinished = false
	}

	q.items = append(q.items, items...)
}

// Dequeue returns an item from the queue and advances the queue head.
func (q *GenericQueue[T]) Dequeue() (T, bool) { //nolint:ireturn
	q.Lock()
	defer q.Unlock()

	if q.head >= len(q.items) {
		var zeroVal T

		return zeroVal, false
	}

	if q.head == len(q.items)-1 {
		q.finishTime = time.Now()
		q.hasFinished = true
	}

	if !q.hasStarted {
		q.startTime = time.Now()
		q.hasStarted = true
	}

	item := q.items[q.head]
	q.head++

	return item, true
}

// record counts the [Decision] for a processed item.
func (q *GenericQueue[T]) record(d Decision) {
	q.Lock()
	defer q.Unlock()

	if d == DecisionFailed {
		q.failed++
	} else {
		q.done++
	}
}

// Progress returns the [Progress] for the [GenericQueue].
func (q *GenericQueue[T]) Progress() Progress {
	q.RLock()
	defer q.RUnlock()

	totalItems := len(q.items)

	processedItems := q.done + q.failed
	processedItems = min(processedItems, totalItems)

	var progressPct float64
	if totalItems > 0 {
		progressPct = float64(processedItems) / float64(totalItems) * 100 //nolint:mnd
		progressPct = max(float64(0), min(progressPct, float64(100)))     //nolint:mnd
	}

	var eta time.Time
	var timeLeft time.Duration

	if q.hasStarted && processedItems > 0 && processedItems < totalItems {
		elapsed := time.Since(q.startTime)
		itemsPerSec := float64(processedItems) / max(elapsed.Seconds(), 1)

		if itemsPerSec > 0 {
			remainingSeconds := float64(totalItems-processedItems) / itemsPerSec
			timeLeft = time.Duration(remainingSeconds * float64(time.Second))
			eta = time.Now().Add(timeLeft)
		}
	}

	return Progress{
		HasStarted:     q.hasStarted,
		HasFinished:    q.hasFinished,
		StartTime:      q.startTime,
		FinishTime:     q.finishTime,
		ProgressPct:    progressPct,
		TotalItems:     totalItems,
		ProcessedItems: processedItems,
		DoneItems:      q.done,
		FailedItems:    q.failed,
		ETA:            eta,
		TimeLeft:       timeLeft,
	}
}

// DequeueAndProcess sequentially dequeues and processes items using the given
// processFunc. The context is checked before every item, an error is only
// returned in case of a context cancellation. The items not reached are then
// available from [GenericQueue.GetRemaining].
func (q *GenericQueue[T]) DequeueAndProcess(ctx context.Context, processFunc func(T) Decision) error {
	for {
		if ctx.Err() != nil {
			break
		}

		item, ok := q.Dequeue()
		if !ok {
			break
		}

		q.record(processFunc(item))
	}

	if ctx.Err() != nil {
		return fmt.Errorf("(queue-proc) %w", ctx.Err())
	}

	return nil
}
