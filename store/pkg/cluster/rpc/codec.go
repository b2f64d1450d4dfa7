package rpc

import (
	"errors"
	"fmt"

	"chisel/store/pkg/cluster/paxos"
)

const (
	MethodExecute           = "execute"
	MethodPrepare           = "prepare"
	MethodPromise           = "promise"
	MethodAcceptSync        = "accept_sync"
	MethodFirstAccept       = "first_accept"
	MethodAcceptDecide      = "accept_decide"
	MethodAccepted          = "accepted"
	MethodDecide            = "decide"
	MethodProposalForward   = "proposal_forward"
	MethodCompaction        = "compaction"
	MethodForwardCompaction = "forward_compaction"
	MethodAcceptStopSign    = "accept_stop_sign"
	MethodAcceptedStopSign  = "accepted_stop_sign"
	MethodDecideStopSign    = "decide_stop_sign"
	MethodHeartbeatRequest  = "heartbeat_request"
	MethodHeartbeatReply    = "heartbeat_reply"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownMessage = errors.New("unknown message")
)

func errMissing(field string) error {
	return fmt.Errorf("%w: missing %s", ErrInvalidRequest, field)
}

// EncodeMessage returns the method and wire request carrying m.
func EncodeMessage(m paxos.Message) (string, interface{}, error) {
	switch msg := m.Msg.(type) {
	case paxos.Prepare:
		return MethodPrepare, &PrepareReq{
			From:      m.From,
			To:        m.To,
			N:         ballotToPb(msg.N),
			Ld:        msg.Ld,
			NAccepted: ballotToPb(msg.NAccepted),
			La:        msg.La,
		}, nil
	case paxos.Promise:
		req := &PromiseReq{
			From:      m.From,
			To:        m.To,
			N:         ballotToPb(msg.N),
			NAccepted: ballotToPb(msg.NAccepted),
			Ld:        msg.Ld,
			La:        msg.La,
			StopSign:  stopSignToPb(msg.StopSign),
		}
		if msg.SyncItem != nil {
			si, err := syncItemToPb(msg.SyncItem)
			if err != nil {
				return "", nil, err
			}
			req.SyncItem = si
		}
		return MethodPromise, req, nil
	case paxos.AcceptSync:
		si, err := syncItemToPb(msg.SyncItem)
		if err != nil {
			return "", nil, err
		}
		return MethodAcceptSync, &AcceptSyncReq{
			From:      m.From,
			To:        m.To,
			N:         ballotToPb(msg.N),
			SyncItem:  si,
			SyncIdx:   msg.SyncIdx,
			DecideIdx: msg.DecideIdx,
			StopSign:  stopSignToPb(msg.StopSign),
		}, nil
	case paxos.FirstAccept:
		return MethodFirstAccept, &FirstAcceptReq{
			From:    m.From,
			To:      m.To,
			N:       ballotToPb(msg.N),
			Entries: commandsToPb(msg.Entries),
		}, nil
	case paxos.AcceptDecide:
		return MethodAcceptDecide, &AcceptDecideReq{
			From:    m.From,
			To:      m.To,
			N:       ballotToPb(msg.N),
			Ld:      msg.Ld,
			Entries: commandsToPb(msg.Entries),
		}, nil
	case paxos.Accepted:
		return MethodAccepted, &AcceptedReq{From: m.From, To: m.To, N: ballotToPb(msg.N), La: msg.La}, nil
	case paxos.Decide:
		return MethodDecide, &DecideReq{From: m.From, To: m.To, N: ballotToPb(msg.N), Ld: msg.Ld}, nil
	case paxos.ProposalForward:
		return MethodProposalForward, &ProposalForwardReq{From: m.From, To: m.To, Entries: commandsToPb(msg.Entries)}, nil
	case paxos.CompactionReq:
		c, err := compactionToPb(msg.Compaction)
		if err != nil {
			return "", nil, err
		}
		return MethodCompaction, &CompactionReq{From: m.From, To: m.To, Compaction: c}, nil
	case paxos.ForwardCompaction:
		c, err := compactionToPb(msg.Compaction)
		if err != nil {
			return "", nil, err
		}
		return MethodForwardCompaction, &ForwardCompactionReq{From: m.From, To: m.To, Compaction: c}, nil
	case paxos.AcceptStopSign:
		return MethodAcceptStopSign, &AcceptStopSignReq{
			From: m.From,
			To:   m.To,
			N:    ballotToPb(msg.N),
			SS:   stopSignToPb(&msg.SS),
		}, nil
	case paxos.AcceptedStopSign:
		return MethodAcceptedStopSign, &AcceptedStopSignReq{From: m.From, To: m.To, N: ballotToPb(msg.N)}, nil
	case paxos.DecideStopSign:
		return MethodDecideStopSign, &DecideStopSignReq{From: m.From, To: m.To, N: ballotToPb(msg.N)}, nil
	}
	return "", nil, fmt.Errorf("%w: %T", ErrUnknownMessage, m.Msg)
}

// EncodeBLEMessage returns the method and wire request carrying m.
func EncodeBLEMessage(m paxos.BLEMessage) (string, interface{}, error) {
	switch msg := m.Msg.(type) {
	case paxos.HeartbeatRequest:
		return MethodHeartbeatRequest, &HeartbeatRequestReq{From: m.From, To: m.To, Round: msg.Round}, nil
	case paxos.HeartbeatReply:
		return MethodHeartbeatReply, &HeartbeatReplyReq{
			From:              m.From,
			To:                m.To,
			Round:             msg.Round,
			Ballot:            ballotToPb(msg.Ballot),
			MajorityConnected: msg.MajorityConnected,
		}, nil
	}
	return "", nil, fmt.Errorf("%w: %T", ErrUnknownMessage, m.Msg)
}

func DecodePrepare(req *PrepareReq) (paxos.Message, error) {
	n, err := ballotFromPb(req.N, "n")
	if err != nil {
		return paxos.Message{}, err
	}
	nAccepted, err := ballotFromPb(req.NAccepted, "n_accepted")
	if err != nil {
		return paxos.Message{}, err
	}
	return paxos.Message{
		From: req.From,
		To:   req.To,
		Msg:  paxos.Prepare{N: n, Ld: req.Ld, NAccepted: nAccepted, La: req.La},
	}, nil
}

func DecodePromise(req *PromiseReq) (paxos.Message, error) {
	n, err := ballotFromPb(req.N, "n")
	if err != nil {
		return paxos.Message{}, err
	}
	nAccepted, err := ballotFromPb(req.NAccepted, "n_accepted")
	if err != nil {
		return paxos.Message{}, err
	}
	promise := paxos.Promise{N: n, NAccepted: nAccepted, Ld: req.Ld, La: req.La}
	if req.SyncItem != nil {
		if promise.SyncItem, err = syncItemFromPb(req.SyncItem); err != nil {
			return paxos.Message{}, err
		}
	}
	if req.StopSign != nil {
		ss, err := stopSignFromPb(req.StopSign)
		if err != nil {
			return paxos.Message{}, err
		}
		promise.StopSign = &ss
	}
	return paxos.Message{From: req.From, To: req.To, Msg: promise}, nil
}

func DecodeAcceptSync(req *AcceptSyncReq) (paxos.Message, error) {
	n, err := ballotFromPb(req.N, "n")
	if err != nil {
		return paxos.Message{}, err
	}
	if req.SyncItem == nil {
		return paxos.Message{}, errMissing("sync_item")
	}
	si, err := syncItemFromPb(req.SyncItem)
	if err != nil {
		return paxos.Message{}, err
	}
	acceptSync := paxos.AcceptSync{N: n, SyncItem: si, SyncIdx: req.SyncIdx, DecideIdx: req.DecideIdx}
	if req.StopSign != nil {
		ss, err := stopSignFromPb(req.StopSign)
		if err != nil {
			return paxos.Message{}, err
		}
		acceptSync.StopSign = &ss
	}
	return paxos.Message{From: req.From, To: req.To, Msg: acceptSync}, nil
}

func DecodeFirstAccept(req *FirstAcceptReq) (paxos.Message, error) {
	n, err := ballotFromPb(req.N, "n")
	if err != nil {
		return paxos.Message{}, err
	}
	return paxos.Message{
		From: req.From,
		To:   req.To,
		Msg:  paxos.FirstAccept{N: n, Entries: commandsFromPb(req.Entries)},
	}, nil
}

func DecodeAcceptDecide(req *AcceptDecideReq) (paxos.Message, error) {
	n, err := ballotFromPb(req.N, "n")
	if err != nil {
		return paxos.Message{}, err
	}
	return paxos.Message{
		From: req.From,
		To:   req.To,
		Msg:  paxos.AcceptDecide{N: n, Ld: req.Ld, Entries: commandsFromPb(req.Entries)},
	}, nil
}

func DecodeAccepted(req *AcceptedReq) (paxos.Message, error) {
	n, err := ballotFromPb(req.N, "n")
	if err != nil {
		return paxos.Message{}, err
	}
	return paxos.Message{From: req.From, To: req.To, Msg: paxos.Accepted{N: n, La: req.La}}, nil
}

func DecodeDecide(req *DecideReq) (paxos.Message, error) {
	n, err := ballotFromPb(req.N, "n")
	if err != nil {
		return paxos.Message{}, err
	}
	return paxos.Message{From: req.From, To: req.To, Msg: paxos.Decide{N: n, Ld: req.Ld}}, nil
}

func DecodeProposalForward(req *ProposalForwardReq) (paxos.Message, error) {
	return paxos.Message{
		From: req.From,
		To:   req.To,
		Msg:  paxos.ProposalForward{Entries: commandsFromPb(req.Entries)},
	}, nil
}

func DecodeCompaction(req *CompactionReq) (paxos.Message, error) {
	c, err := compactionFromPb(req.Compaction)
	if err != nil {
		return paxos.Message{}, err
	}
	return paxos.Message{From: req.From, To: req.To, Msg: paxos.CompactionReq{Compaction: c}}, nil
}

func DecodeForwardCompaction(req *ForwardCompactionReq) (paxos.Message, error) {
	c, err := compactionFromPb(req.Compaction)
	if err != nil {
		return paxos.Message{}, err
	}
	return paxos.Message{From: req.From, To: req.To, Msg: paxos.ForwardCompaction{Compaction: c}}, nil
}

func DecodeAcceptStopSign(req *AcceptStopSignReq) (paxos.Message, error) {
	n, err := ballotFromPb(req.N, "n")
	if err != nil {
		return paxos.Message{}, err
	}
	if req.SS == nil {
		return paxos.Message{}, errMissing("ss")
	}
	ss, err := stopSignFromPb(req.SS)
	if err != nil {
		return paxos.Message{}, err
	}
	return paxos.Message{From: req.From, To: req.To, Msg: paxos.AcceptStopSign{N: n, SS: ss}}, nil
}

func DecodeAcceptedStopSign(req *AcceptedStopSignReq) (paxos.Message, error) {
	n, err := ballotFromPb(req.N, "n")
	if err != nil {
		return paxos.Message{}, err
	}
	return paxos.Message{From: req.From, To: req.To, Msg: paxos.AcceptedStopSign{N: n}}, nil
}

func DecodeDecideStopSign(req *DecideStopSignReq) (paxos.Message, error) {
	n, err := ballotFromPb(req.N, "n")
	if err != nil {
		return paxos.Message{}, err
	}
	return paxos.Message{From: req.From, To: req.To, Msg: paxos.DecideStopSign{N: n}}, nil
}

func DecodeHeartbeatRequest(req *HeartbeatRequestReq) (paxos.BLEMessage, error) {
	return paxos.BLEMessage{From: req.From, To: req.To, Msg: paxos.HeartbeatRequest{Round: req.Round}}, nil
}

func DecodeHeartbeatReply(req *HeartbeatReplyReq) (paxos.BLEMessage, error) {
	ballot, err := ballotFromPb(req.Ballot, "ballot")
	if err != nil {
		return paxos.BLEMessage{}, err
	}
	return paxos.BLEMessage{
		From: req.From,
		To:   req.To,
		Msg:  paxos.HeartbeatReply{Round: req.Round, Ballot: ballot, MajorityConnected: req.MajorityConnected},
	}, nil
}

func ballotToPb(b paxos.Ballot) *BallotPb {
	return &BallotPb{N: b.N, Priority: b.Priority, Pid: b.Pid}
}

func ballotFromPb(b *BallotPb, field string) (paxos.Ballot, error) {
	if b == nil {
		return paxos.Ballot{}, errMissing(field)
	}
	return paxos.Ballot{N: b.N, Priority: b.Priority, Pid: b.Pid}, nil
}

// commandsToPb and commandsFromPb keep nil and empty distinct.
func commandsToPb(cmds []paxos.StoreCommand) []StoreCommandPb {
	if cmds == nil {
		return nil
	}
	out := make([]StoreCommandPb, len(cmds))
	for i, c := range cmds {
		out[i] = StoreCommandPb{ID: c.ID, SQL: []byte(c.SQL)}
	}
	return out
}

func commandsFromPb(cmds []StoreCommandPb) []paxos.StoreCommand {
	if cmds == nil {
		return nil
	}
	out := make([]paxos.StoreCommand, len(cmds))
	for i, c := range cmds {
		out[i] = paxos.StoreCommand{ID: c.ID, SQL: string(c.SQL)}
	}
	return out
}

func syncItemToPb(si paxos.SyncItem) (*SyncItemPb, error) {
	switch item := si.(type) {
	case paxos.SyncEntries:
		return &SyncItemPb{Entries: &EntriesPb{StoreCommands: commandsToPb(item.Entries)}}, nil
	case paxos.SyncSnapshot:
		return &SyncItemPb{Snapshot: &SnapshotPb{Complete: item.Kind == paxos.SnapshotComplete}}, nil
	case paxos.SyncNone:
		return &SyncItemPb{None: &NonePb{}}, nil
	}
	return nil, fmt.Errorf("%w: sync item %T", ErrUnknownMessage, si)
}

func syncItemFromPb(si *SyncItemPb) (paxos.SyncItem, error) {
	set := 0
	for _, ok := range []bool{si.Entries != nil, si.Snapshot != nil, si.None != nil} {
		if ok {
			set++
		}
	}
	if set == 0 {
		return nil, errMissing("sync_item.item")
	}
	if set > 1 {
		return nil, fmt.Errorf("%w: sync_item has %d items set", ErrInvalidRequest, set)
	}
	switch {
	case si.Entries != nil:
		return paxos.SyncEntries{Entries: commandsFromPb(si.Entries.StoreCommands)}, nil
	case si.Snapshot != nil:
		kind := paxos.SnapshotDelta
		if si.Snapshot.Complete {
			kind = paxos.SnapshotComplete
		}
		return paxos.SyncSnapshot{Kind: kind}, nil
	default:
		return paxos.SyncNone{}, nil
	}
}

func stopSignToPb(ss *paxos.StopSign) *StopSignPb {
	if ss == nil {
		return nil
	}
	pb := &StopSignPb{ConfigID: ss.ConfigID}
	if ss.Nodes != nil {
		pb.Nodes = append(make([]uint64, 0, len(ss.Nodes)), ss.Nodes...)
	}
	if ss.Metadata != nil {
		pb.Metadata = make([]uint32, len(ss.Metadata))
		for i, b := range ss.Metadata {
			pb.Metadata[i] = uint32(b)
		}
	}
	return pb
}

func stopSignFromPb(pb *StopSignPb) (paxos.StopSign, error) {
	ss := paxos.StopSign{ConfigID: pb.ConfigID}
	if pb.Nodes != nil {
		ss.Nodes = append(make([]uint64, 0, len(pb.Nodes)), pb.Nodes...)
	}
	if pb.Metadata != nil {
		ss.Metadata = make([]byte, len(pb.Metadata))
		for i, v := range pb.Metadata {
			if v > 0xff {
				return paxos.StopSign{}, fmt.Errorf("%w: stop sign metadata[%d]=%d is not a byte", ErrInvalidRequest, i, v)
			}
			ss.Metadata[i] = byte(v)
		}
	}
	return ss, nil
}

func compactionToPb(c paxos.Compaction) (*CompactionPb, error) {
	switch cmp := c.(type) {
	case paxos.CompactionTrim:
		return &CompactionPb{Trim: &TrimPb{Trim: cmp.Index}}, nil
	case paxos.CompactionSnapshot:
		return &CompactionPb{Snapshot: &SnapshotDataPb{Data: cloneBytes(cmp.Data)}}, nil
	}
	return nil, fmt.Errorf("%w: compaction %T", ErrUnknownMessage, c)
}

func compactionFromPb(c *CompactionPb) (paxos.Compaction, error) {
	if c == nil {
		return nil, errMissing("compaction")
	}
	switch {
	case c.Trim != nil && c.Snapshot != nil:
		return nil, fmt.Errorf("%w: compaction has both trim and snapshot set", ErrInvalidRequest)
	case c.Trim != nil:
		return paxos.CompactionTrim{Index: c.Trim.Trim}, nil
	case c.Snapshot != nil:
		return paxos.CompactionSnapshot{Data: cloneBytes(c.Snapshot.Data)}, nil
	}
	return nil, errMissing("compaction.compaction")
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}

func resultsToPb(res *paxos.QueryResults) *QueryResults {
	out := &QueryResults{Rows: make([]QueryRow, 0)}
	if res == nil {
		return out
	}
	for _, row := range res.Rows {
		out.Rows = append(out.Rows, QueryRow{Values: row.Values})
	}
	return out
}

func resultsFromPb(res *QueryResults) *paxos.QueryResults {
	out := &paxos.QueryResults{}
	for _, row := range res.Rows {
		out.Rows = append(out.Rows, paxos.QueryRow{Values: row.Values})
	}
	return out
}
