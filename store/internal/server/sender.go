package server

import (
	"chisel/store/pkg/cluster/paxos"
	"chisel/store/pkg/cluster/rpc"
)

// sender routes messages addressed to the local node through the in-process
// transport and everything else through rpc.
type sender struct {
	self   uint64
	local  *paxos.MemoryTransport
	remote *rpc.Transport
}

var _ paxos.Transport = (*sender)(nil)

func (s *sender) SendConsensus(to uint64, m paxos.Message) {
	if to == s.self {
		s.local.SendConsensus(to, m)
		return
	}
	s.remote.SendConsensus(to, m)
}

func (s *sender) SendElection(to uint64, m paxos.BLEMessage) {
	if to == s.self {
		s.local.SendElection(to, m)
		return
	}
	s.remote.SendElection(to, m)
}
