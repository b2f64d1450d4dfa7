package paxos

type MsgType uint16

const (
	MsgUnknown          MsgType = iota // unknown
	MsgPrepare                         // leader asks followers to promise
	MsgPromise                         // follower promise with its log state
	MsgAcceptSync                      // leader syncs a follower's log suffix
	MsgFirstAccept                     // first accept of a new leader round
	MsgAcceptDecide                    // entries to accept with decided index
	MsgAccepted                        // follower accepted up to la
	MsgDecide                          // leader decided up to ld
	MsgProposalForward                 // follower forwards proposals to the leader
	MsgCompaction                      // trim or snapshot the log
	MsgForwardCompaction               // compaction forwarded to the leader
	MsgAcceptStopSign                  // leader asks to accept a stop sign
	MsgAcceptedStopSign                // follower accepted the stop sign
	MsgDecideStopSign                  // stop sign decided
	MsgHeartbeatRequest                // election heartbeat request
	MsgHeartbeatReply                  // election heartbeat reply
	MsgMaxValue
)

func (m MsgType) String() string {
	switch m {
	case MsgUnknown:
		return "MsgUnknown[0]"
	case MsgPrepare:
		return "MsgPrepare"
	case MsgPromise:
		return "MsgPromise"
	case MsgAcceptSync:
		return "MsgAcceptSync"
	case MsgFirstAccept:
		return "MsgFirstAccept"
	case MsgAcceptDecide:
		return "MsgAcceptDecide"
	case MsgAccepted:
		return "MsgAccepted"
	case MsgDecide:
		return "MsgDecide"
	case MsgProposalForward:
		return "MsgProposalForward"
	case MsgCompaction:
		return "MsgCompaction"
	case MsgForwardCompaction:
		return "MsgForwardCompaction"
	case MsgAcceptStopSign:
		return "MsgAcceptStopSign"
	case MsgAcceptedStopSign:
		return "MsgAcceptedStopSign"
	case MsgDecideStopSign:
		return "MsgDecideStopSign"
	case MsgHeartbeatRequest:
		return "MsgHeartbeatRequest"
	case MsgHeartbeatReply:
		return "MsgHeartbeatReply"
	}
	return "MsgUnknown"
}

// PaxosMsg is one phase of sequence consensus.
type PaxosMsg interface {
	Type() MsgType
}

type Prepare struct {
	N         Ballot // ballot of the new leader
	Ld        uint64 // decided index of the leader
	NAccepted Ballot // ballot the leader last accepted in
	La        uint64 // accepted index of the leader
}

type Promise struct {
	N         Ballot
	NAccepted Ballot
	SyncItem  SyncItem // nil when the follower has nothing the leader lacks
	Ld        uint64
	La        uint64
	StopSign  *StopSign
}

type AcceptSync struct {
	N         Ballot
	SyncItem  SyncItem // never nil
	SyncIdx   uint64
	DecideIdx uint64
	StopSign  *StopSign
}

type FirstAccept struct {
	N       Ballot
	Entries []StoreCommand
}

type AcceptDecide struct {
	N       Ballot
	Ld      uint64
	Entries []StoreCommand
}

type Accepted struct {
	N  Ballot
	La uint64
}

type Decide struct {
	N  Ballot
	Ld uint64
}

type ProposalForward struct {
	Entries []StoreCommand
}

// CompactionReq carries a compaction sent directly to a replica.
type CompactionReq struct {
	Compaction Compaction
}

// ForwardCompaction carries a compaction forwarded to the leader.
type ForwardCompaction struct {
	Compaction Compaction
}

type AcceptStopSign struct {
	N  Ballot
	SS StopSign
}

type AcceptedStopSign struct {
	N Ballot
}

type DecideStopSign struct {
	N Ballot
}

func (Prepare) Type() MsgType           { return MsgPrepare }
func (Promise) Type() MsgType           { return MsgPromise }
func (AcceptSync) Type() MsgType        { return MsgAcceptSync }
func (FirstAccept) Type() MsgType       { return MsgFirstAccept }
func (AcceptDecide) Type() MsgType      { return MsgAcceptDecide }
func (Accepted) Type() MsgType          { return MsgAccepted }
func (Decide) Type() MsgType            { return MsgDecide }
func (ProposalForward) Type() MsgType   { return MsgProposalForward }
func (CompactionReq) Type() MsgType     { return MsgCompaction }
func (ForwardCompaction) Type() MsgType { return MsgForwardCompaction }
func (AcceptStopSign) Type() MsgType    { return MsgAcceptStopSign }
func (AcceptedStopSign) Type() MsgType  { return MsgAcceptedStopSign }
func (DecideStopSign) Type() MsgType    { return MsgDecideStopSign }

// HeartbeatMsg is one ballot-leader-election message.
type HeartbeatMsg interface {
	Type() MsgType
}

type HeartbeatRequest struct {
	Round uint64
}

type HeartbeatReply struct {
	Round             uint64
	Ballot            Ballot
	MajorityConnected bool
}

func (HeartbeatRequest) Type() MsgType { return MsgHeartbeatRequest }
func (HeartbeatReply) Type() MsgType   { return MsgHeartbeatReply }
