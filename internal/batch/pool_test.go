package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestProcessOrderedVisitsEverySlotOnce(t *testing.T) {
	const n = 25
	var (
		visits  [n]int32
		running int32
		peak    int32
	)
	processOrdered(context.Background(), n, 4, func(_ context.Context, i int) {
		cur := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&visits[i], 1)
		atomic.AddInt32(&running, -1)
	})
	for i, v := range visits {
		if v != 1 {
			t.Fatalf("slot %d visited %d times", i, v)
		}
	}
	if peak > 4 {
		t.Fatalf("expected at most 4 concurrent workers, saw %d", peak)
	}
}

func TestProcessOrderedRunsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32
	processOrdered(ctx, 5, 3, func(ctx context.Context, _ int) {
		if ctx.Err() == nil {
			t.Error("expected cancelled context")
		}
		atomic.AddInt32(&calls, 1)
	})
	if calls != 5 {
		t.Fatalf("expected every slot to be visited, got %d", calls)
	}
}

func TestProcessOrderedSequentialKeepsOrder(t *testing.T) {
	var order []int
	processOrdered(context.Background(), 4, 1, func(_ context.Context, i int) {
		order = append(order, i)
	})
	for i, got := range order {
		if got != i {
			t.Fatalf("unexpected order %v", order)
		}
	}
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	var (
		km     keyedMutex
		inside int32
		wg     sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("keynote")
			defer unlock()
			if atomic.AddInt32(&inside, 1) != 1 {
				t.Error("two holders of the same key")
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	if len(km.locks) != 0 {
		t.Fatalf("expected lock table to drain, got %d entries", len(km.locks))
	}
}
