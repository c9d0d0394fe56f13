package batch

import (
	"context"
	"sync"
)

// processOrdered calls fn once for every index in [0, n) using at most
// workers goroutines. fn owns slot i of whatever it writes to, so callers
// get input-ordered results without further synchronization. fn is invoked
// even after ctx is cancelled so every slot reaches a terminal state.
func processOrdered(ctx context.Context, n, workers int, fn func(ctx context.Context, index int)) {
	if n == 0 {
		return
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		for i := range n {
			fn(ctx, i)
		}
		return
	}

	jobs := make(chan int, n)
	for i := range n {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				fn(ctx, index)
			}
		}()
	}
	wg.Wait()
}

// keyedMutex serializes work that shares a key, such as two rows whose
// titles slug to the same job id and therefore the same output path.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	lock, ok := k.locks[key]
	if !ok {
		lock = &keyedLock{}
		k.locks[key] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		k.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
