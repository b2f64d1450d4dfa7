package paxos

import "fmt"

const (
	None uint64 = 0 // no node
)

// Ballot orders leadership claims. Comparison is lexicographic on (N, Priority, Pid).
type Ballot struct {
	N        uint64 // round
	Priority uint64 // tie breaker before pid
	Pid      uint64 // proposer node id
}

// Compare returns -1, 0 or 1 when b is lower, equal or higher than o.
func (b Ballot) Compare(o Ballot) int {
	switch {
	case b.N != o.N:
		return cmpUint64(b.N, o.N)
	case b.Priority != o.Priority:
		return cmpUint64(b.Priority, o.Priority)
	default:
		return cmpUint64(b.Pid, o.Pid)
	}
}

func (b Ballot) Less(o Ballot) bool {
	return b.Compare(o) < 0
}

func (b Ballot) String() string {
	return fmt.Sprintf("(%d,%d,%d)", b.N, b.Priority, b.Pid)
}

func cmpUint64(a, b uint64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// StoreCommand is one replicated SQL statement.
type StoreCommand struct {
	ID  uint64
	SQL string
}

// Envelope addresses a payload from one cluster member to another.
type Envelope[T any] struct {
	From uint64 // source node
	To   uint64 // destination node
	Msg  T
}

// Message is a sequence-consensus message.
type Message = Envelope[PaxosMsg]

// BLEMessage is a ballot-leader-election message.
type BLEMessage = Envelope[HeartbeatMsg]

// StopSign closes the current configuration. A nil Metadata means no
// metadata was attached; an empty non-nil slice is kept as is.
type StopSign struct {
	ConfigID uint64
	Nodes    []uint64
	Metadata []byte
}

type SnapshotKind uint8

const (
	SnapshotDelta    SnapshotKind = iota // snapshot relative to the follower's log
	SnapshotComplete                     // snapshot replacing the whole log
)

func (k SnapshotKind) String() string {
	switch k {
	case SnapshotDelta:
		return "delta"
	case SnapshotComplete:
		return "complete"
	}
	return fmt.Sprintf("SnapshotKind[%d]", uint8(k))
}

// SyncItem is what a leader ships to a lagging follower. Implemented by
// SyncEntries, SyncSnapshot and SyncNone only.
type SyncItem interface {
	isSyncItem()
}

type SyncEntries struct {
	Entries []StoreCommand
}

type SyncSnapshot struct {
	Kind SnapshotKind
}

type SyncNone struct{}

func (SyncEntries) isSyncItem()  {}
func (SyncSnapshot) isSyncItem() {}
func (SyncNone) isSyncItem()     {}

// Compaction asks a replica to discard a log prefix. Implemented by
// CompactionTrim and CompactionSnapshot only.
type Compaction interface {
	isCompaction()
}

type CompactionTrim struct {
	Index uint64
}

type CompactionSnapshot struct {
	Data []byte
}

func (CompactionTrim) isCompaction()     {}
func (CompactionSnapshot) isCompaction() {}
