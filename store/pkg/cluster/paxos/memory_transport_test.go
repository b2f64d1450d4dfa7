package paxos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryTransport(t *testing.T) {
	var tr Transport = NewMemoryTransport()
	mt := tr.(*MemoryTransport)
	mb := NewMailbox(4, nil)
	mt.Register(2, mb)

	m := Message{From: 1, To: 2, Msg: Accepted{N: Ballot{N: 1, Pid: 1}, La: 3}}
	tr.SendConsensus(2, m)
	select {
	case got := <-mb.Consensus():
		assert.Equal(t, m, got)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	hb := BLEMessage{From: 1, To: 2, Msg: HeartbeatRequest{Round: 1}}
	tr.SendElection(2, hb)
	select {
	case got := <-mb.Election():
		assert.Equal(t, hb, got)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	mt.Unregister(2)
	tr.SendConsensus(2, m)
	tr.SendConsensus(3, m)
	select {
	case <-mb.Consensus():
		t.Fatal("message delivered to unregistered node")
	case <-time.After(50 * time.Millisecond):
	}
}
