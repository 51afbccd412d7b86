package stores

import "sync"

// convLocks hands out one mutex per conversation id so concurrent appends to
// the same conversation serialize while different conversations stay
// independent. Locks are never released from the map; conversation counts are
// small relative to message volume and the map only grows by one pointer per
// conversation touched since process start.
type convLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newConvLocks() *convLocks {
	return &convLocks{locks: make(map[uint]*sync.Mutex)}
}

func (l *convLocks) forConversation(id uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}
