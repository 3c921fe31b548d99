package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// ErrQueueFull rejects a turn when its session lane's buffer is at
// capacity. The submitter should back off and resubmit.
var ErrQueueFull = errors.New("session lane full")

// Queue manages per-session lanes with a global concurrency semaphore.
// Each session key gets its own FIFO channel (lane) so that turns within
// a conversation are processed sequentially, while the semaphore limits
// the total number of concurrent turn processors across all sessions.
type Queue struct {
	lanes     map[types.SessionKey]chan *Turn
	semaphore *semaphore.Weighted
	processor func(*Turn) error
	active    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewQueue creates a Queue that allows up to maxConcurrent turns to
// execute simultaneously across all session lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:     make(map[types.SessionKey]chan *Turn),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for
// in-flight processors to finish.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	for _, lane := range q.lanes {
		close(lane)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a Turn to its session's lane, creating the lane (and its
// goroutine) on first use. Returns an error if the lane's buffer is full.
func (q *Queue) Enqueue(turn *Turn) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	lane, exists := q.lanes[turn.Lane]
	if !exists {
		lane = make(chan *Turn, 100)
		q.lanes[turn.Lane] = lane
		q.wg.Add(1)
		go q.processLane(turn.Lane, lane)
	}

	select {
	case lane <- turn:
		return nil
	default:
		return fmt.Errorf("session %s: %w", turn.Lane, ErrQueueFull)
	}
}

// processLane drains a single session lane, acquiring a semaphore slot
// before running the processor synchronously. This keeps strict FIFO
// ordering within a conversation while the semaphore limits
// cross-session parallelism. A processor error completes the turn with
// the error so a waiting submitter is never left hanging; the processor
// itself completes successful turns.
func (q *Queue) processLane(key types.SessionKey, lane chan *Turn) {
	defer q.wg.Done()
	for {
		select {
		case turn, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				return
			}
			if q.processor != nil {
				q.active.Add(1)
				turn.Ctx = q.ctx
				turn.Status = TurnStatusRunning
				started := time.Now()
				turn.StartedAt = &started
				if err := q.processor(turn); err != nil {
					turn.Status = TurnStatusFailed
					turn.Error = err
					slog.Error("turn failed",
						"turn_id", string(turn.ID), "session_key", string(key), "error", err)
					if turn.OnComplete != nil {
						turn.OnComplete(&TurnResult{Err: err})
					}
				} else {
					turn.Status = TurnStatusComplete
				}
				ended := time.Now()
				turn.EndedAt = &ended
				q.active.Add(-1)
			}
			q.semaphore.Release(1)
		case <-q.ctx.Done():
			return
		}
	}
}

// WaitIdle blocks until no turns are actively being processed, or the
// timeout expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.active.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// SetProcessor sets the function invoked for each dequeued Turn.
func (q *Queue) SetProcessor(fn func(*Turn) error) {
	q.processor = fn
}
