// Package types holds the wire-level and arena-level identifiers
// shared across the engine: peer identities, resource ids, conduit
// ids and sequence numbers.
package types

import (
	"bytes"
	"fmt"
)

// PeerID is an opaque, globally-unique (per running instance) peer
// identity. Length must be in [1,16].
type PeerID []byte

// MaxPeerIDLen is the largest peer id the wire format can carry.
const MaxPeerIDLen = 16

func (id PeerID) String() string {
	return fmt.Sprintf("%x", []byte(id))
}

// Equal reports whether two peer ids denote the same peer.
func (id PeerID) Equal(other PeerID) bool {
	return bytes.Equal(id, other)
}

// Less implements the tie-break ordering used on simultaneous open:
// the lexicographically smaller id is the passive side.
func (id PeerID) Less(other PeerID) bool {
	return bytes.Compare(id, other) < 0
}

// PeerIndex is the arena handle for per-peer state, a small integer
// in [0, MaxPeers). PeerIndexInvalid is the "none" sentinel.
type PeerIndex int16

// PeerIndexInvalid denotes "no peer" / "not in arena".
const PeerIndexInvalid PeerIndex = -1

// RID is a resource id: the routable name of a topic.
type RID uint64

// RIDWidth returns how many wire bytes are needed to carry rid values
// up to and including maxRID, mirroring the original implementation's
// WC_RID_SIZE table (zhe-pubsub.h).
func RIDWidth(maxRID RID) int {
	switch {
	case maxRID <= 127:
		return 1
	case maxRID <= 16383:
		return 2
	case maxRID <= 2097151:
		return 3
	case maxRID <= 268435455:
		return 4
	case maxRID <= 34359738367:
		return 5
	case maxRID <= 4398046511103:
		return 6
	case maxRID <= 562949953421311:
		return 7
	case maxRID <= 72057594037927935:
		return 8
	default:
		return 9
	}
}

// ConduitID numbers an outgoing logical channel.
type ConduitID uint8

// Seq is a modular sequence number. Its effective width is governed
// by the engine's configured SeqnumWidth; comparisons always use
// SeqLT/SeqLE rather than native operators so wrap is handled
// correctly regardless of width.
type Seq uint32

// PubIdx is a dense handle into the local publication table.
type PubIdx uint16

// SubIdx is a dense handle into the local subscription table.
type SubIdx uint16

// CommitID identifies a declaration transaction within a single
// peer's packet stream.
type CommitID uint8
