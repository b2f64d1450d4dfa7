package rpc

import (
	"context"
	"errors"
	"sync"
	"time"

	"chisel/store/pkg/cluster/paxos"
	"chisel/store/pkg/logger"

	"github.com/lni/goutils/syncutil"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// AddrFunc resolves a node id to the address of its rpc listener.
type AddrFunc func(id uint64) string

type Options struct {
	NodeId         uint64        // local node, logged as the sender
	PoolCapacity   int           // idle handles kept per peer
	ConnectTimeout time.Duration // used by the default dialer
	Dialer         Dialer
}

type Option func(o *Options)

func NewOptions() *Options {
	return &Options{
		PoolCapacity:   DefaultPoolCapacity,
		ConnectTimeout: 5 * time.Second,
	}
}

func WithNodeId(id uint64) Option {
	return func(o *Options) {
		o.NodeId = id
	}
}

func WithPoolCapacity(capacity int) Option {
	return func(o *Options) {
		o.PoolCapacity = capacity
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = d
	}
}

func WithDialer(dial Dialer) Option {
	return func(o *Options) {
		o.Dialer = dial
	}
}

// Stats counts outbound sends since the transport started.
type Stats struct {
	Sent    uint64 // acknowledged by the peer
	Failed  uint64 // connect or remote error
	Dropped uint64 // not encodable, or sent after Stop
}

// Transport is the engine facing send side. SendConsensus and SendElection
// return at once; each message is delivered by its own worker and a failure
// only costs that message.
type Transport struct {
	opts      *Options
	addrOf    AddrFunc
	directory *Directory
	stopper   *syncutil.Stopper

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	stopped bool

	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
	logger.Log
}

var _ paxos.Transport = (*Transport)(nil)

func NewTransport(addrOf AddrFunc, optList ...Option) *Transport {
	opts := NewOptions()
	for _, opt := range optList {
		opt(opts)
	}
	if opts.Dialer == nil {
		opts.Dialer = DialHTTP(opts.ConnectTimeout)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		opts:      opts,
		addrOf:    addrOf,
		directory: NewDirectory(opts.PoolCapacity, opts.Dialer),
		stopper:   syncutil.NewStopper(),
		ctx:       ctx,
		cancel:    cancel,
		Log:       logger.NewLog("transport"),
	}
}

func (t *Transport) SendConsensus(to uint64, m paxos.Message) {
	method, req, err := EncodeMessage(m)
	if err != nil {
		t.dropped.Inc()
		t.Error("encode consensus message failed", zap.Uint64("from", t.opts.NodeId), zap.Uint64("to", to), zap.Error(err))
		return
	}
	t.dispatch(to, m.Msg.Type(), method, req)
}

func (t *Transport) SendElection(to uint64, m paxos.BLEMessage) {
	method, req, err := EncodeBLEMessage(m)
	if err != nil {
		t.dropped.Inc()
		t.Error("encode election message failed", zap.Uint64("from", t.opts.NodeId), zap.Uint64("to", to), zap.Error(err))
		return
	}
	t.dispatch(to, m.Msg.Type(), method, req)
}

func (t *Transport) dispatch(to uint64, msgType paxos.MsgType, method string, req interface{}) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.stopped {
		t.dropped.Inc()
		t.Debug("transport stopped, drop message", zap.Uint64("to", to), zap.String("msgType", msgType.String()))
		return
	}
	addr := t.addrOf(to)
	t.stopper.RunWorker(func() {
		if err := t.call(t.ctx, addr, method, req, nil); err != nil {
			t.failed.Inc()
			if errors.Is(err, context.Canceled) {
				return
			}
			t.Warn("send message failed", zap.Uint64("from", t.opts.NodeId), zap.Uint64("to", to), zap.String("addr", addr), zap.String("msgType", msgType.String()), zap.Error(err))
			return
		}
		t.sent.Inc()
	})
}

// Execute runs sql on node to and waits for the rows.
func (t *Transport) Execute(ctx context.Context, to uint64, sql string) (*paxos.QueryResults, error) {
	resp := &QueryResults{}
	if err := t.call(ctx, t.addrOf(to), MethodExecute, &Query{SQL: sql}, resp); err != nil {
		return nil, err
	}
	return resultsFromPb(resp), nil
}

func (t *Transport) call(ctx context.Context, addr, method string, req, resp interface{}) error {
	lease, err := t.directory.Connection(ctx, addr)
	if err != nil {
		return err
	}
	defer lease.Release()
	return lease.Call(ctx, method, req, resp)
}

// NodeId is the id of the node this transport sends for.
func (t *Transport) NodeId() uint64 {
	return t.opts.NodeId
}

func (t *Transport) Stats() Stats {
	return Stats{
		Sent:    t.sent.Load(),
		Failed:  t.failed.Load(),
		Dropped: t.dropped.Load(),
	}
}

// Directory exposes the connection cache.
func (t *Transport) Directory() *Directory {
	return t.directory
}

// Stop cancels in-flight sends, waits for their workers and closes idle
// connections. Later sends are dropped.
func (t *Transport) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()

	t.cancel()
	t.stopper.Stop()
	t.directory.Close()
}
