package rpc

import (
	"context"
	"sync"

	"chisel/store/pkg/logger"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const DefaultPoolCapacity = 16

// ConnectionPool caches idle handles to one peer. It bounds idle handles
// only: Acquire never waits for a handle to come back.
type ConnectionPool struct {
	addr      string
	dial      Dialer
	idle      chan Client // bounded, non-blocking push and pop
	discarded atomic.Uint64
	logger.Log
}

func NewConnectionPool(addr string, capacity int, dial Dialer) *ConnectionPool {
	if capacity <= 0 {
		capacity = DefaultPoolCapacity
	}
	return &ConnectionPool{
		addr: addr,
		dial: dial,
		idle: make(chan Client, capacity),
		Log:  logger.NewLog("pool"),
	}
}

// Acquire pops an idle handle or dials a new one.
func (p *ConnectionPool) Acquire(ctx context.Context) (Client, error) {
	select {
	case c := <-p.idle:
		return c, nil
	default:
	}
	return p.dial(ctx, p.addr)
}

// Release returns c for reuse, or closes it when the pool is full.
func (p *ConnectionPool) Release(c Client) {
	if c == nil {
		return
	}
	select {
	case p.idle <- c:
	default:
		p.discarded.Inc()
		if err := c.Close(); err != nil {
			p.Warn("close discarded connection failed", zap.String("addr", p.addr), zap.Error(err))
		}
	}
}

func (p *ConnectionPool) Addr() string {
	return p.addr
}

func (p *ConnectionPool) Cap() int {
	return cap(p.idle)
}

// Idle is the number of cached handles.
func (p *ConnectionPool) Idle() int {
	return len(p.idle)
}

// Discarded is the number of handles closed because the pool was full.
func (p *ConnectionPool) Discarded() uint64 {
	return p.discarded.Load()
}

// Close closes every idle handle. Handles released afterwards are cached
// again, so Close belongs to process shutdown.
func (p *ConnectionPool) Close() {
	for {
		select {
		case c := <-p.idle:
			_ = c.Close()
		default:
			return
		}
	}
}

// Lease is a handle borrowed from a pool for one call.
type Lease struct {
	Client
	pool *ConnectionPool
	once sync.Once
}

// Release hands the handle back to its pool. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.pool.Release(l.Client)
	})
}
