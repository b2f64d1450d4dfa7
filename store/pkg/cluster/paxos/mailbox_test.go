package paxos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBallotOrder(t *testing.T) {
	assert.True(t, Ballot{N: 1, Priority: 9, Pid: 9}.Less(Ballot{N: 2}))
	assert.True(t, Ballot{N: 2, Priority: 1, Pid: 9}.Less(Ballot{N: 2, Priority: 2}))
	assert.True(t, Ballot{N: 2, Priority: 2, Pid: 1}.Less(Ballot{N: 2, Priority: 2, Pid: 3}))
	assert.Equal(t, 0, Ballot{N: 2, Priority: 2, Pid: 3}.Compare(Ballot{N: 2, Priority: 2, Pid: 3}))
	assert.Equal(t, 1, Ballot{N: 3}.Compare(Ballot{N: 2, Priority: 5, Pid: 5}))
	assert.Equal(t, "(2,0,1)", Ballot{N: 2, Pid: 1}.String())
}

func TestMsgTypeString(t *testing.T) {
	for typ := MsgPrepare; typ < MsgMaxValue; typ++ {
		assert.NotEqual(t, "MsgUnknown", typ.String())
	}
	assert.Equal(t, "MsgAcceptStopSign", AcceptStopSign{}.Type().String())
	assert.Equal(t, MsgHeartbeatReply, HeartbeatReply{}.Type())
}

func TestMailboxQueues(t *testing.T) {
	mb := NewMailbox(1, nil)

	m := Message{From: 1, To: 2, Msg: Decide{Ld: 4}}
	mb.ReceiveConsensus(m)
	mb.ReceiveConsensus(Message{From: 1, To: 2, Msg: Decide{Ld: 5}})
	assert.Equal(t, uint64(1), mb.Dropped())
	assert.Equal(t, m, <-mb.Consensus())

	hb := BLEMessage{From: 3, To: 2, Msg: HeartbeatRequest{Round: 8}}
	mb.ReceiveElection(hb)
	mb.ReceiveElection(hb)
	assert.Equal(t, uint64(2), mb.Dropped())
	assert.Equal(t, hb, <-mb.Election())
}

func TestMailboxQuery(t *testing.T) {
	_, err := NewMailbox(1, nil).Query(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrNotLeader)

	mb := NewMailbox(1, QuerierFunc(func(ctx context.Context, sql string) (*QueryResults, error) {
		return &QueryResults{Rows: []QueryRow{{Values: []string{sql}}}}, nil
	}))
	res, err := mb.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1"}, res.Rows[0].Values)
}
