package server

import (
	"context"
	"os"
	"path"
	"testing"
	"time"

	"chisel/store/pkg/cluster/paxos"
	"chisel/store/pkg/cluster/rpc"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureWithViper(t *testing.T) {
	cfgPath := path.Join(t.TempDir(), "config.yml")
	err := os.WriteFile(cfgPath, []byte(`
chisel:
  nodeId: 2
  addr: 127.0.0.1:12002
  logger:
    level: debug
  cluster:
    poolCapacity: 8
    connectTimeout: 2s
    corsOrigins: http://a.local,http://b.local
    nodes:
      - id: 1
        addr: 127.0.0.1:12001
      - id: 2
        addr: 127.0.0.1:12002
`), 0o644)
	require.NoError(t, err)

	v := viper.New()
	v.SetConfigFile(cfgPath)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadInConfig())

	opts := DefaultOptions()
	require.NoError(t, opts.ConfigureWithViper(v))

	assert.Equal(t, uint64(2), opts.NodeId)
	assert.Equal(t, "127.0.0.1:12002", opts.Addr)
	assert.Equal(t, "debug", opts.Logger.Level)
	assert.Equal(t, 8, opts.Cluster.PoolCapacity)
	assert.Equal(t, 2*time.Second, opts.Cluster.ConnectTimeout)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, opts.Cluster.CORSOrigins)
	require.Len(t, opts.Cluster.Nodes, 2)
	assert.Equal(t, "127.0.0.1:12001", opts.AddrOf(1))
	assert.Equal(t, "", opts.AddrOf(3))
	assert.Equal(t, "127.0.0.1:12002", opts.AddrFunc()(2))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, rpc.DefaultPoolCapacity, opts.Cluster.PoolCapacity)
	require.NoError(t, opts.Check())
}

func TestCheckRejectsBadMembership(t *testing.T) {
	opts := DefaultOptions()
	opts.Cluster.Nodes = []*Node{{Id: 1, Addr: "a"}, {Id: 1, Addr: "b"}}
	assert.Error(t, opts.Check())

	opts.Cluster.Nodes = []*Node{{Id: 1}}
	assert.Error(t, opts.Check())

	opts = DefaultOptions()
	opts.NodeId = 0
	assert.Error(t, opts.Check())
}

func newTestServer(t *testing.T, nodeId uint64, nodes []*Node, querier paxos.Querier) *Server {
	opts := DefaultOptions()
	opts.Mode = TestMode
	opts.NodeId = nodeId
	opts.Addr = "127.0.0.1:0"
	opts.Cluster.Nodes = nodes
	s := New(opts, querier)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

func TestServerExchange(t *testing.T) {
	s2 := newTestServer(t, 2, nil, paxos.QuerierFunc(func(ctx context.Context, sql string) (*paxos.QueryResults, error) {
		return &paxos.QueryResults{Rows: []paxos.QueryRow{{Values: []string{"1"}}}}, nil
	}))
	consensusc := make(chan paxos.Message, 1)
	electionc := make(chan paxos.BLEMessage, 1)
	s2.OnConsensus(func(m paxos.Message) { consensusc <- m })
	s2.OnElection(func(m paxos.BLEMessage) { electionc <- m })

	s1 := newTestServer(t, 1, []*Node{{Id: 2, Addr: s2.Addr()}}, nil)

	m := paxos.Message{From: 1, To: 2, Msg: paxos.AcceptDecide{
		N:       paxos.Ballot{N: 3, Pid: 1},
		Ld:      4,
		Entries: []paxos.StoreCommand{{ID: 9, SQL: "INSERT INTO t VALUES (9)"}},
	}}
	s1.Transport().SendConsensus(2, m)
	select {
	case got := <-consensusc:
		assert.Equal(t, m, got)
	case <-time.After(5 * time.Second):
		t.Fatal("consensus message not delivered")
	}

	hb := paxos.BLEMessage{From: 1, To: 2, Msg: paxos.HeartbeatReply{Round: 2, Ballot: paxos.Ballot{N: 3, Pid: 1}, MajorityConnected: true}}
	s1.Transport().SendElection(2, hb)
	select {
	case got := <-electionc:
		assert.Equal(t, hb, got)
	case <-time.After(5 * time.Second):
		t.Fatal("election message not delivered")
	}

	res, err := s1.Transport().Execute(context.Background(), 2, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, res.Rows[0].Values)
}

func TestServerExecuteWithoutQuerier(t *testing.T) {
	s2 := newTestServer(t, 2, nil, nil)
	s1 := newTestServer(t, 1, []*Node{{Id: 2, Addr: s2.Addr()}}, nil)

	_, err := s1.Transport().Execute(context.Background(), 2, "SELECT 1")
	require.Error(t, err)
	assert.True(t, rpc.IsNotLeader(err))
}

func TestServerSenderLoopback(t *testing.T) {
	s2 := newTestServer(t, 2, nil, nil)
	consensusc := make(chan paxos.Message, 1)
	electionc := make(chan paxos.BLEMessage, 1)
	s2.OnConsensus(func(m paxos.Message) { consensusc <- m })
	s2.OnElection(func(m paxos.BLEMessage) { electionc <- m })

	s1 := newTestServer(t, 1, []*Node{{Id: 2, Addr: s2.Addr()}}, nil)
	selfc := make(chan paxos.Message, 1)
	s1.OnConsensus(func(m paxos.Message) { selfc <- m })
	assert.Equal(t, uint64(1), s1.Transport().NodeId())

	self := paxos.Message{From: 1, To: 1, Msg: paxos.Accepted{N: paxos.Ballot{N: 2, Pid: 1}, La: 5}}
	s1.Sender().SendConsensus(1, self)
	select {
	case got := <-selfc:
		assert.Equal(t, self, got)
	case <-time.After(5 * time.Second):
		t.Fatal("loopback message not delivered")
	}
	assert.Equal(t, uint64(0), s1.Transport().Stats().Sent)

	peer := paxos.Message{From: 1, To: 2, Msg: paxos.Decide{N: paxos.Ballot{N: 2, Pid: 1}, Ld: 5}}
	s1.Sender().SendConsensus(2, peer)
	select {
	case got := <-consensusc:
		assert.Equal(t, peer, got)
	case <-time.After(5 * time.Second):
		t.Fatal("peer message not delivered")
	}

	hb := paxos.BLEMessage{From: 1, To: 2, Msg: paxos.HeartbeatRequest{Round: 3}}
	s1.Sender().SendElection(2, hb)
	select {
	case got := <-electionc:
		assert.Equal(t, hb, got)
	case <-time.After(5 * time.Second):
		t.Fatal("election message not delivered")
	}
}

func TestSampleConfig(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(path.Join("..", "..", "..", "config.yml"))
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadInConfig())

	opts := DefaultOptions()
	require.NoError(t, opts.ConfigureWithViper(v))
	assert.Equal(t, ReleaseMode, opts.Mode)
	assert.Equal(t, rpc.DefaultPoolCapacity, opts.Cluster.PoolCapacity)
	assert.Equal(t, 3*time.Second, opts.Cluster.ConnectTimeout)
	assert.Equal(t, 1024, opts.Cluster.MailboxSize)
	require.Len(t, opts.Cluster.Nodes, 3)
	assert.Equal(t, "127.0.0.1:12003", opts.AddrOf(3))
}
