package rpc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type fakeClient struct {
	addr   string
	closed atomic.Bool
}

func (c *fakeClient) Call(ctx context.Context, method string, req, resp interface{}) error {
	return nil
}

func (c *fakeClient) Addr() string { return c.addr }

func (c *fakeClient) Close() error {
	c.closed.Store(true)
	return nil
}

type fakeDialer struct {
	dials  atomic.Int64
	delays map[string]time.Duration
	fail   map[string]error
}

func (f *fakeDialer) Dial(ctx context.Context, addr string) (Client, error) {
	f.dials.Inc()
	if err := f.fail[addr]; err != nil {
		return nil, err
	}
	if d := f.delays[addr]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &fakeClient{addr: addr}, nil
}

func TestPoolReuse(t *testing.T) {
	dialer := &fakeDialer{}
	pool := NewConnectionPool("peer", 2, dialer.Dial)

	c1, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(c1)
	assert.Equal(t, 1, pool.Idle())

	c2, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, int64(1), dialer.dials.Load())
	assert.Equal(t, 0, pool.Idle())
}

func TestPoolBound(t *testing.T) {
	dialer := &fakeDialer{}
	pool := NewConnectionPool("peer", DefaultPoolCapacity, dialer.Dial)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		clients []Client
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := pool.Acquire(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			clients = append(clients, c)
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, clients, 20)
	assert.Equal(t, int64(20), dialer.dials.Load())

	for _, c := range clients {
		pool.Release(c)
		assert.LessOrEqual(t, pool.Idle(), DefaultPoolCapacity)
	}
	assert.Equal(t, 16, pool.Idle())
	assert.Equal(t, uint64(4), pool.Discarded())

	closed := 0
	for _, c := range clients {
		if c.(*fakeClient).closed.Load() {
			closed++
		}
	}
	assert.Equal(t, 4, closed)
}

func TestPoolDefaultCapacity(t *testing.T) {
	pool := NewConnectionPool("peer", 0, (&fakeDialer{}).Dial)
	assert.Equal(t, DefaultPoolCapacity, pool.Cap())
}

func TestPoolClose(t *testing.T) {
	pool := NewConnectionPool("peer", 4, (&fakeDialer{}).Dial)
	c, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(c)

	pool.Close()
	assert.Equal(t, 0, pool.Idle())
	assert.True(t, c.(*fakeClient).closed.Load())
}

func TestLeaseReleaseOnce(t *testing.T) {
	d := NewDirectory(4, (&fakeDialer{}).Dial)
	lease, err := d.Connection(context.Background(), "peer")
	require.NoError(t, err)

	lease.Release()
	lease.Release()
	assert.Equal(t, 1, d.Pool("peer").Idle())
}

func TestDirectoryOnePoolPerAddr(t *testing.T) {
	d := NewDirectory(4, (&fakeDialer{}).Dial)

	var wg sync.WaitGroup
	pools := make([]*ConnectionPool, 32)
	for i := range pools {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pools[i] = d.Pool("peer")
		}(i)
	}
	wg.Wait()

	for _, p := range pools {
		assert.Same(t, pools[0], p)
	}
	assert.Equal(t, 1, d.Len())
	d.Pool("other")
	assert.Equal(t, 2, d.Len())
}

func TestDirectorySlowPeerDoesNotBlockOthers(t *testing.T) {
	dialer := &fakeDialer{delays: map[string]time.Duration{"slow": 2 * time.Second}}
	d := NewDirectory(4, dialer.Dial)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		_, _ = d.Connection(ctx, "slow")
	}()
	// let the slow dial start
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	lease, err := d.Connection(context.Background(), "fast")
	require.NoError(t, err)
	lease.Release()
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	cancel()
	<-slowDone
}

func TestDirectoryDialError(t *testing.T) {
	boom := errors.New("connection refused")
	d := NewDirectory(4, (&fakeDialer{fail: map[string]error{"down": boom}}).Dial)

	_, err := d.Connection(context.Background(), "down")
	assert.ErrorIs(t, err, boom)

	// the failure leaves the directory usable
	lease, err := d.Connection(context.Background(), "up")
	require.NoError(t, err)
	lease.Release()
	assert.Equal(t, 0, d.Pool("down").Idle())
	assert.Equal(t, 1, d.Pool("up").Idle())
}
