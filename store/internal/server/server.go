package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"chisel/store/pkg/cluster/paxos"
	"chisel/store/pkg/cluster/rpc"
	"chisel/store/pkg/logger"

	"github.com/lni/goutils/syncutil"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Server runs one node's transport: the rpc listener feeding a Mailbox and
// the outbound Transport the engine sends through.
type Server struct {
	opts       *Options
	mailbox    *paxos.Mailbox
	transport  *rpc.Transport
	local      *paxos.MemoryTransport
	sender     *sender
	service    *rpc.Service
	httpServer *http.Server
	listener   net.Listener
	stopper    *syncutil.Stopper
	started    atomic.Bool

	mu          sync.RWMutex
	onConsensus func(m paxos.Message)
	onElection  func(m paxos.BLEMessage)
	logger.Log
}

// New builds a server. querier answers execute calls; nil makes every
// execute fail with not leader.
func New(opts *Options, querier paxos.Querier) *Server {
	if opts.Cluster.MailboxSize <= 0 {
		opts.Cluster.MailboxSize = 1024
	}
	s := &Server{
		opts:    opts,
		mailbox: paxos.NewMailbox(opts.Cluster.MailboxSize, querier),
		stopper: syncutil.NewStopper(),
		Log:     logger.NewLog("server"),
	}
	s.transport = rpc.NewTransport(
		opts.AddrFunc(),
		rpc.WithNodeId(opts.NodeId),
		rpc.WithPoolCapacity(opts.Cluster.PoolCapacity),
		rpc.WithConnectTimeout(opts.Cluster.ConnectTimeout),
	)
	s.local = paxos.NewMemoryTransport()
	s.local.Register(opts.NodeId, s.mailbox)
	s.sender = &sender{self: opts.NodeId, local: s.local, remote: s.transport}
	s.service = rpc.NewService(s.mailbox, rpc.WithCORSOrigins(opts.Cluster.CORSOrigins))
	return s
}

// OnConsensus sets the engine callback for consensus messages.
func (s *Server) OnConsensus(f func(m paxos.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConsensus = f
}

// OnElection sets the engine callback for election messages.
func (s *Server) OnElection(f func(m paxos.BLEMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onElection = f
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.service.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.started.Store(true)
	s.stopper.RunWorker(func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Error("rpc server stopped", zap.Error(err))
		}
	})
	s.stopper.RunWorker(s.loop)
	s.Info("rpc server started", zap.Uint64("nodeId", s.opts.NodeId), zap.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) loop() {
	tk := time.NewTicker(time.Minute)
	defer tk.Stop()
	for {
		select {
		case m := <-s.mailbox.Consensus():
			s.mu.RLock()
			f := s.onConsensus
			s.mu.RUnlock()
			if f != nil {
				f(m)
			} else {
				s.Debug("no engine attached, discard consensus message", zap.Uint64("from", m.From), zap.String("msgType", m.Msg.Type().String()))
			}
		case m := <-s.mailbox.Election():
			s.mu.RLock()
			f := s.onElection
			s.mu.RUnlock()
			if f != nil {
				f(m)
			} else {
				s.Debug("no engine attached, discard election message", zap.Uint64("from", m.From), zap.String("msgType", m.Msg.Type().String()))
			}
		case <-tk.C:
			st := s.transport.Stats()
			s.Info("transport stats", zap.Uint64("nodeId", s.transport.NodeId()), zap.Uint64("sent", st.Sent), zap.Uint64("failed", st.Failed), zap.Uint64("dropped", st.Dropped), zap.Uint64("mailboxDropped", s.mailbox.Dropped()))
		case <-s.stopper.ShouldStop():
			return
		}
	}
}

func (s *Server) Stop() {
	if s.started.CompareAndSwap(true, false) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Warn("rpc server shutdown", zap.Error(err))
		}
	}
	s.local.Unregister(s.opts.NodeId)
	s.transport.Stop()
	s.stopper.Stop()
}

// Addr is the bound listen address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.opts.Addr
	}
	return s.listener.Addr().String()
}

// Sender is the paxos.Transport an engine on this node sends through.
// Messages to this node stay in process; the rest go over rpc.
func (s *Server) Sender() paxos.Transport {
	return s.sender
}

// Transport is the rpc send side, for peers and client execute calls.
func (s *Server) Transport() *rpc.Transport {
	return s.transport
}

func (s *Server) Mailbox() *paxos.Mailbox {
	return s.mailbox
}
