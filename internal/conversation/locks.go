package conversation

import "sync"

// convLocks serializes exchanges per conversation. Distinct
// conversations share no state and proceed in parallel.
type convLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newConvLocks() *convLocks {
	return &convLocks{locks: make(map[int]*sync.Mutex)}
}

func (l *convLocks) forConversation(id int) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	return lock
}
