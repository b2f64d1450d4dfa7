package rpc

import (
	"context"
	"sync"
)

// Directory maps a peer address to its pool. Pools are created on first use
// and live as long as the directory; the lock covers the map only, never a
// dial or a call.
type Directory struct {
	mu       sync.Mutex
	pools    map[string]*ConnectionPool
	capacity int
	dial     Dialer
}

func NewDirectory(capacity int, dial Dialer) *Directory {
	return &Directory{
		pools:    make(map[string]*ConnectionPool),
		capacity: capacity,
		dial:     dial,
	}
}

// Pool returns the pool for addr, creating it once.
func (d *Directory) Pool(addr string) *ConnectionPool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pools[addr]
	if !ok {
		p = NewConnectionPool(addr, d.capacity, d.dial)
		d.pools[addr] = p
	}
	return p
}

// Connection leases a handle to addr.
func (d *Directory) Connection(ctx context.Context, addr string) (*Lease, error) {
	pool := d.Pool(addr)
	c, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Lease{Client: c, pool: pool}, nil
}

func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pools)
}

func (d *Directory) Close() {
	d.mu.Lock()
	pools := make([]*ConnectionPool, 0, len(d.pools))
	for _, p := range d.pools {
		pools = append(pools, p)
	}
	d.mu.Unlock()
	for _, p := range pools {
		p.Close()
	}
}
