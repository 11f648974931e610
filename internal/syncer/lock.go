package syncer

import (
	"sync"
	"sync/atomic"
)

// IndexLock provides non-blocking lock semantics using atomic operations.
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// indexLocks hands out one IndexLock per target index.
type indexLocks struct {
	mu    sync.Mutex
	locks map[string]*IndexLock
}

func (l *indexLocks) get(index string) *IndexLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*IndexLock)
	}
	lock, ok := l.locks[index]
	if !ok {
		lock = &IndexLock{}
		l.locks[index] = lock
	}
	return lock
}
