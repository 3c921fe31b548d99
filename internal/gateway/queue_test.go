package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestQueueConcurrency(t *testing.T) {
	queue := NewQueue(2)
	ctx := context.Background()
	queue.Start(ctx)
	defer queue.Stop()

	var running int32
	var maxSeen int32

	queue.SetProcessor(func(turn *Turn) error {
		current := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if current <= old || atomic.CompareAndSwapInt32(&maxSeen, old, current) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})

	for i := 0; i < 5; i++ {
		turn := &Turn{
			ID:     types.NewTurnID(),
			Lane:   types.SessionKey(fmt.Sprintf("sms:%d", i)),
			Status: TurnStatusQueued,
		}
		if err := queue.Enqueue(turn); err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(500 * time.Millisecond)

	if m := atomic.LoadInt32(&maxSeen); m > 2 {
		t.Errorf("expected max 2 concurrent, saw %d", m)
	}
}

func TestQueueProcessorCalled(t *testing.T) {
	queue := NewQueue(1)
	ctx := context.Background()
	queue.Start(ctx)
	defer queue.Stop()

	var processed int32

	queue.SetProcessor(func(turn *Turn) error {
		atomic.AddInt32(&processed, 1)
		return nil
	})

	turn := &Turn{
		ID:     types.NewTurnID(),
		Lane:   types.SessionKey("sms:test"),
		Status: TurnStatusQueued,
	}
	if err := queue.Enqueue(turn); err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt32(&processed) != 1 {
		t.Errorf("expected 1 processed turn, got %d", processed)
	}
}

func TestQueueSameSessionOrdering(t *testing.T) {
	queue := NewQueue(1)
	ctx := context.Background()
	queue.Start(ctx)
	defer queue.Stop()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	queue.SetProcessor(func(turn *Turn) error {
		mu.Lock()
		order = append(order, turn.Attempts) // reuse Attempts as sequence marker
		n := len(order)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
		return nil
	})

	lane := types.SessionKey("sms:same-session")
	for i := 0; i < 3; i++ {
		turn := &Turn{
			ID:       types.NewTurnID(),
			Lane:     lane,
			Status:   TurnStatusQueued,
			Attempts: i,
		}
		if err := queue.Enqueue(turn); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for turns to process")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Errorf("expected order[%d] = %d, got %d", i, i, v)
		}
	}
}

func TestQueueFailureCompletesTurn(t *testing.T) {
	queue := NewQueue(1)
	ctx := context.Background()
	queue.Start(ctx)
	defer queue.Stop()

	boom := errors.New("store exploded")
	queue.SetProcessor(func(turn *Turn) error {
		return boom
	})

	done := make(chan *TurnResult, 1)
	turn := &Turn{
		ID:         types.NewTurnID(),
		Lane:       types.SessionKey("sms:fail"),
		Status:     TurnStatusQueued,
		OnComplete: func(res *TurnResult) { done <- res },
	}
	if err := queue.Enqueue(turn); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-done:
		if !errors.Is(res.Err, boom) {
			t.Errorf("expected processor error in result, got %v", res.Err)
		}
		if res.Decision != nil || res.Reply != "" {
			t.Errorf("failed turn should carry no decision or reply: %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failed turn never completed")
	}

	if !queue.WaitIdle(2 * time.Second) {
		t.Fatal("queue did not go idle")
	}
	if turn.Status != TurnStatusFailed {
		t.Errorf("expected failed status, got %s", turn.Status)
	}
}

func TestQueueNoProcessor(t *testing.T) {
	queue := NewQueue(1)
	ctx := context.Background()
	queue.Start(ctx)
	defer queue.Stop()

	// Enqueue without setting a processor -- should not panic
	turn := &Turn{
		ID:     types.NewTurnID(),
		Lane:   types.SessionKey("sms:no-proc"),
		Status: TurnStatusQueued,
	}
	if err := queue.Enqueue(turn); err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)
}
