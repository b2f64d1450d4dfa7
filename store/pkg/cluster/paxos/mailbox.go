package paxos

import (
	"context"

	"chisel/store/pkg/logger"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Querier answers client SQL on behalf of the state machine.
type Querier interface {
	Query(ctx context.Context, sql string) (*QueryResults, error)
}

type QuerierFunc func(ctx context.Context, sql string) (*QueryResults, error)

func (f QuerierFunc) Query(ctx context.Context, sql string) (*QueryResults, error) {
	return f(ctx, sql)
}

// Mailbox is an Engine that queues inbound messages for a consensus loop
// reading Consensus() and Election(). Pushes never block: when a queue is
// full the message is dropped, which the protocol tolerates like any loss.
type Mailbox struct {
	consensusc chan Message
	electionc  chan BLEMessage
	querier    Querier
	dropped    atomic.Uint64
	logger.Log
}

func NewMailbox(size int, querier Querier) *Mailbox {
	return &Mailbox{
		consensusc: make(chan Message, size),
		electionc:  make(chan BLEMessage, size),
		querier:    querier,
		Log:        logger.NewLog("mailbox"),
	}
}

func (m *Mailbox) ReceiveConsensus(msg Message) {
	select {
	case m.consensusc <- msg:
	default:
		m.dropped.Inc()
		m.Warn("consensus queue full, drop message", zap.Uint64("from", msg.From), zap.String("msgType", typeOf(msg.Msg).String()))
	}
}

func (m *Mailbox) ReceiveElection(msg BLEMessage) {
	select {
	case m.electionc <- msg:
	default:
		m.dropped.Inc()
		m.Warn("election queue full, drop message", zap.Uint64("from", msg.From), zap.String("msgType", typeOf(msg.Msg).String()))
	}
}

func (m *Mailbox) Query(ctx context.Context, sql string) (*QueryResults, error) {
	if m.querier == nil {
		return nil, ErrNotLeader
	}
	return m.querier.Query(ctx, sql)
}

func (m *Mailbox) Consensus() <-chan Message {
	return m.consensusc
}

func (m *Mailbox) Election() <-chan BLEMessage {
	return m.electionc
}

// Dropped is the number of messages discarded on a full queue.
func (m *Mailbox) Dropped() uint64 {
	return m.dropped.Load()
}

func typeOf(t interface{ Type() MsgType }) MsgType {
	if t == nil {
		return MsgUnknown
	}
	return t.Type()
}
