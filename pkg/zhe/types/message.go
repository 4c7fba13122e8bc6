package types

// Kind identifies the message carried by a single framed entry inside
// a datagram, per spec §6 "Wire protocol".
type Kind uint8

const (
	KindScout Kind = iota
	KindHello
	KindOpen
	KindAccept
	KindClose
	KindSynch
	KindAckNack
	KindDeclRes
	KindDeclPub
	KindDeclSub
	KindDeclCommit
	KindDeclResult
	KindData
	KindMData
	KindWData
)

func (k Kind) String() string {
	switch k {
	case KindScout:
		return "SCOUT"
	case KindHello:
		return "HELLO"
	case KindOpen:
		return "OPEN"
	case KindAccept:
		return "ACCEPT"
	case KindClose:
		return "CLOSE"
	case KindSynch:
		return "SYNCH"
	case KindAckNack:
		return "ACKNACK"
	case KindDeclRes:
		return "DECL-RES"
	case KindDeclPub:
		return "DECL-PUB"
	case KindDeclSub:
		return "DECL-SUB"
	case KindDeclCommit:
		return "DECL-COMMIT"
	case KindDeclResult:
		return "DECL-RESULT"
	case KindData:
		return "DATA"
	case KindMData:
		return "MDATA"
	case KindWData:
		return "WDATA"
	default:
		return "UNKNOWN"
	}
}

// SubMode is the declared subscription mode, carried by DECL-SUB.
type SubMode uint8

const (
	SubModePush SubMode = iota
	SubModePull
)

// DeclStatus is the per-declaration outcome reported by DECL-RESULT.
type DeclStatus uint8

const (
	DeclOK DeclStatus = iota
	DeclErrRIDRange
	DeclErrConflictingMode
	DeclErrURIOverflow
)

// Error bitmask bits accumulated by a declaration transaction
// precommit, one bit per error kind in spec §4.5.
const (
	DeclErrBitRIDRange       byte = 1 << iota
	DeclErrBitConflictingMode
	DeclErrBitURIOverflow
)

// Scout is the initial discovery broadcast.
type Scout struct {
	ID PeerID
}

// Hello announces a peer's identity in response to a Scout, or
// unsolicited as a beacon.
type Hello struct {
	ID   PeerID
	Lease uint32 // milliseconds
}

// Open requests session establishment.
type Open struct {
	ID    PeerID
	Lease uint32
}

// Accept completes session establishment.
type Accept struct {
	ID         PeerID
	WhatPeerID PeerID
}

// Close tears down a session, optionally carrying a reason.
type Close struct {
	ID     PeerID
	Reason uint8
}

// Synch announces the sender's current transmit-window tail sequence
// for a conduit, used both as a keepalive and to trigger ACKNACK.
type Synch struct {
	Conduit ConduitID
	SeqBase Seq
}

// AckNack acknowledges up to SeqBase and optionally requests
// selective retransmission of the sequences flagged in Mask
// (bit i => SeqBase+i is missing).
type AckNack struct {
	Conduit ConduitID
	SeqBase Seq
	Mask    uint32
}

// DeclRes declares a resource, optionally URI-named.
type DeclRes struct {
	RID RID
	URI []byte // nil if not URI-named
}

// DeclPub declares a publication of RID by the sending peer.
type DeclPub struct {
	RID RID
}

// DeclSub declares a subscription to RID by the sending peer.
type DeclSub struct {
	RID  RID
	Mode SubMode
}

// DeclCommit finalises all declarations staged since the previous
// commit/abort in this peer's transaction.
type DeclCommit struct {
	Commit CommitID
}

// DeclResult reports the precommit outcome: ok, or the first
// offending RID plus the accumulated error bitmask.
type DeclResult struct {
	Commit CommitID
	Status DeclStatus
	RID    RID
	Errors byte
}

// Data is a best-effort or reliable unicast-conduit sample.
type Data struct {
	RID     RID
	Payload []byte
}

// MData is a reliable conduit sample (unicast or mconduit), carrying
// the conduit id so the receiver can track gaps and address its
// SYNCH/ACKNACK replies to the right sequence space.
type MData struct {
	Conduit ConduitID
	Seq     Seq
	RID     RID
	Payload []byte
}

// WData is a URI-named sample.
type WData struct {
	URI     []byte
	Payload []byte
}
