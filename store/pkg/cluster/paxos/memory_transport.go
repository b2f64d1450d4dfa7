package paxos

import "sync"

// MemoryTransport connects engines living in one process. Each send is
// delivered on its own goroutine, so sends never block and ordering is not
// kept, as with the network transport.
type MemoryTransport struct {
	mu      sync.RWMutex
	engines map[uint64]Engine
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		engines: make(map[uint64]Engine),
	}
}

// Register routes messages addressed to id into e.
func (t *MemoryTransport) Register(id uint64, e Engine) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.engines[id] = e
}

// Unregister makes id unreachable; later messages to it are lost.
func (t *MemoryTransport) Unregister(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.engines, id)
}

func (t *MemoryTransport) SendConsensus(to uint64, m Message) {
	if e, ok := t.engine(to); ok {
		go e.ReceiveConsensus(m)
	}
}

func (t *MemoryTransport) SendElection(to uint64, m BLEMessage) {
	if e, ok := t.engine(to); ok {
		go e.ReceiveElection(m)
	}
}

func (t *MemoryTransport) engine(id uint64) (Engine, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.engines[id]
	return e, ok
}
