package rpc

// Wire records exchanged between peers. They are flat JSON documents; each
// one-of group is a set of optional pointers of which exactly one is set.

type BallotPb struct {
	N        uint64 `json:"n"`
	Priority uint64 `json:"priority"`
	Pid      uint64 `json:"pid"`
}

// StoreCommandPb carries the statement as raw bytes so that any payload,
// valid UTF-8 or not, survives the trip unchanged.
type StoreCommandPb struct {
	ID  uint64 `json:"id"`
	SQL []byte `json:"sql"`
}

type EntriesPb struct {
	StoreCommands []StoreCommandPb `json:"store_commands"`
}

type SnapshotPb struct {
	Complete bool `json:"complete"`
}

type NonePb struct{}

type SyncItemPb struct {
	Entries  *EntriesPb  `json:"entries,omitempty"`
	Snapshot *SnapshotPb `json:"snapshot,omitempty"`
	None     *NonePb     `json:"none,omitempty"`
}

// StopSignPb carries metadata as small integers, one per byte. A null
// metadata means none was attached.
type StopSignPb struct {
	ConfigID uint64   `json:"config_id"`
	Nodes    []uint64 `json:"nodes"`
	Metadata []uint32 `json:"metadata"`
}

type TrimPb struct {
	Trim uint64 `json:"trim"`
}

type SnapshotDataPb struct {
	Data []byte `json:"data"`
}

type CompactionPb struct {
	Trim     *TrimPb         `json:"trim,omitempty"`
	Snapshot *SnapshotDataPb `json:"snapshot,omitempty"`
}

type PrepareReq struct {
	From      uint64    `json:"from"`
	To        uint64    `json:"to"`
	N         *BallotPb `json:"n"`
	Ld        uint64    `json:"ld"`
	NAccepted *BallotPb `json:"n_accepted"`
	La        uint64    `json:"la"`
}

type PromiseReq struct {
	From      uint64      `json:"from"`
	To        uint64      `json:"to"`
	N         *BallotPb   `json:"n"`
	NAccepted *BallotPb   `json:"n_accepted"`
	SyncItem  *SyncItemPb `json:"sync_item,omitempty"`
	Ld        uint64      `json:"ld"`
	La        uint64      `json:"la"`
	StopSign  *StopSignPb `json:"stop_sign,omitempty"`
}

type AcceptSyncReq struct {
	From      uint64      `json:"from"`
	To        uint64      `json:"to"`
	N         *BallotPb   `json:"n"`
	SyncItem  *SyncItemPb `json:"sync_item"`
	SyncIdx   uint64      `json:"sync_idx"`
	DecideIdx uint64      `json:"decide_idx"`
	StopSign  *StopSignPb `json:"stop_sign,omitempty"`
}

type FirstAcceptReq struct {
	From    uint64           `json:"from"`
	To      uint64           `json:"to"`
	N       *BallotPb        `json:"n"`
	Entries []StoreCommandPb `json:"entries"`
}

type AcceptDecideReq struct {
	From    uint64           `json:"from"`
	To      uint64           `json:"to"`
	N       *BallotPb        `json:"n"`
	Ld      uint64           `json:"ld"`
	Entries []StoreCommandPb `json:"entries"`
}

type AcceptedReq struct {
	From uint64    `json:"from"`
	To   uint64    `json:"to"`
	N    *BallotPb `json:"n"`
	La   uint64    `json:"la"`
}

type DecideReq struct {
	From uint64    `json:"from"`
	To   uint64    `json:"to"`
	N    *BallotPb `json:"n"`
	Ld   uint64    `json:"ld"`
}

type ProposalForwardReq struct {
	From    uint64           `json:"from"`
	To      uint64           `json:"to"`
	Entries []StoreCommandPb `json:"entries"`
}

type CompactionReq struct {
	From       uint64        `json:"from"`
	To         uint64        `json:"to"`
	Compaction *CompactionPb `json:"compaction"`
}

type ForwardCompactionReq struct {
	From       uint64        `json:"from"`
	To         uint64        `json:"to"`
	Compaction *CompactionPb `json:"compaction"`
}

type AcceptStopSignReq struct {
	From uint64      `json:"from"`
	To   uint64      `json:"to"`
	N    *BallotPb   `json:"n"`
	SS   *StopSignPb `json:"ss"`
}

type AcceptedStopSignReq struct {
	From uint64    `json:"from"`
	To   uint64    `json:"to"`
	N    *BallotPb `json:"n"`
}

type DecideStopSignReq struct {
	From uint64    `json:"from"`
	To   uint64    `json:"to"`
	N    *BallotPb `json:"n"`
}

type HeartbeatRequestReq struct {
	From  uint64 `json:"from"`
	To    uint64 `json:"to"`
	Round uint64 `json:"round"`
}

type HeartbeatReplyReq struct {
	From              uint64    `json:"from"`
	To                uint64    `json:"to"`
	Round             uint64    `json:"round"`
	Ballot            *BallotPb `json:"ballot"`
	MajorityConnected bool      `json:"majority_connected"`
}

type Query struct {
	SQL string `json:"sql"`
}

type QueryRow struct {
	Values []string `json:"values"`
}

type QueryResults struct {
	Rows []QueryRow `json:"rows"`
}

type Void struct{}

// StatusPb is the body of every non-2xx reply.
type StatusPb struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
