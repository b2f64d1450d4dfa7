package paxos

import (
	"context"
	"errors"
)

var (
	ErrNotLeader = errors.New("not leader")
	ErrStopped   = errors.New("stopped")
)

// Engine is the local consensus engine fed by the transport. Receive calls
// must not block; engines queue messages for their own loop.
type Engine interface {
	ReceiveConsensus(m Message)
	ReceiveElection(m BLEMessage)
	Query(ctx context.Context, sql string) (*QueryResults, error)
}

// Transport is what an engine uses to reach its peers. Sends are fire and
// forget.
type Transport interface {
	SendConsensus(to uint64, m Message)
	SendElection(to uint64, m BLEMessage)
}

type QueryRow struct {
	Values []string
}

type QueryResults struct {
	Rows []QueryRow
}
