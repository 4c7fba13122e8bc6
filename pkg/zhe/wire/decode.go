package wire

import "github.com/jim1993/zhe/pkg/zhe/types"

// The Decode* functions assume buf is exactly the payload slice
// returned by Reader.Next for the matching Kind; they do not
// re-validate lengths (Reader.Next already proved the slice is
// well-formed) but do defend against being handed the wrong slice by
// returning ok=false rather than panicking.

func DecodeScout(buf []byte) (types.Scout, bool) {
	id, _, ok := getBytes(buf)
	if !ok {
		return types.Scout{}, false
	}
	return types.Scout{ID: types.PeerID(id)}, true
}

func DecodeHello(buf []byte) (types.Hello, bool) {
	id, n, ok := getBytes(buf)
	if !ok {
		return types.Hello{}, false
	}
	lease, _, ok := GetVarint(buf[n:])
	if !ok {
		return types.Hello{}, false
	}
	return types.Hello{ID: types.PeerID(id), Lease: uint32(lease)}, true
}

func DecodeOpen(buf []byte) (types.Open, bool) {
	id, n, ok := getBytes(buf)
	if !ok {
		return types.Open{}, false
	}
	lease, _, ok := GetVarint(buf[n:])
	if !ok {
		return types.Open{}, false
	}
	return types.Open{ID: types.PeerID(id), Lease: uint32(lease)}, true
}

func DecodeAccept(buf []byte) (types.Accept, bool) {
	id, n1, ok := getBytes(buf)
	if !ok {
		return types.Accept{}, false
	}
	what, _, ok := getBytes(buf[n1:])
	if !ok {
		return types.Accept{}, false
	}
	return types.Accept{ID: types.PeerID(id), WhatPeerID: types.PeerID(what)}, true
}

func DecodeClose(buf []byte) (types.Close, bool) {
	id, n, ok := getBytes(buf)
	if !ok {
		return types.Close{}, false
	}
	if n >= len(buf) {
		return types.Close{}, false
	}
	return types.Close{ID: types.PeerID(id), Reason: buf[n]}, true
}

func DecodeSynch(buf []byte) (types.Synch, bool) {
	if len(buf) < 1 {
		return types.Synch{}, false
	}
	seq, _, ok := GetVarint(buf[1:])
	if !ok {
		return types.Synch{}, false
	}
	return types.Synch{Conduit: types.ConduitID(buf[0]), SeqBase: types.Seq(seq)}, true
}

func DecodeAckNack(buf []byte) (types.AckNack, bool) {
	if len(buf) < 1 {
		return types.AckNack{}, false
	}
	seq, n1, ok := GetVarint(buf[1:])
	if !ok {
		return types.AckNack{}, false
	}
	mask, _, ok := GetVarint(buf[1+n1:])
	if !ok {
		return types.AckNack{}, false
	}
	return types.AckNack{Conduit: types.ConduitID(buf[0]), SeqBase: types.Seq(seq), Mask: uint32(mask)}, true
}

func DecodeDeclRes(buf []byte) (types.DeclRes, bool) {
	rid, n, ok := GetVarint(buf)
	if !ok {
		return types.DeclRes{}, false
	}
	if n >= len(buf) {
		return types.DeclRes{}, false
	}
	hasURI := buf[n]
	n++
	var uri []byte
	if hasURI != 0 {
		u, _, ok := getBytes(buf[n:])
		if !ok {
			return types.DeclRes{}, false
		}
		uri = u
	}
	return types.DeclRes{RID: types.RID(rid), URI: uri}, true
}

func DecodeDeclPub(buf []byte) (types.DeclPub, bool) {
	rid, _, ok := GetVarint(buf)
	if !ok {
		return types.DeclPub{}, false
	}
	return types.DeclPub{RID: types.RID(rid)}, true
}

func DecodeDeclSub(buf []byte) (types.DeclSub, bool) {
	rid, n, ok := GetVarint(buf)
	if !ok {
		return types.DeclSub{}, false
	}
	if n >= len(buf) {
		return types.DeclSub{}, false
	}
	return types.DeclSub{RID: types.RID(rid), Mode: types.SubMode(buf[n])}, true
}

func DecodeDeclCommit(buf []byte) (types.DeclCommit, bool) {
	if len(buf) < 1 {
		return types.DeclCommit{}, false
	}
	return types.DeclCommit{Commit: types.CommitID(buf[0])}, true
}

func DecodeDeclResult(buf []byte) (types.DeclResult, bool) {
	if len(buf) < 2 {
		return types.DeclResult{}, false
	}
	rid, n, ok := GetVarint(buf[2:])
	if !ok {
		return types.DeclResult{}, false
	}
	if 2+n >= len(buf) {
		return types.DeclResult{}, false
	}
	return types.DeclResult{
		Commit: types.CommitID(buf[0]),
		Status: types.DeclStatus(buf[1]),
		RID:    types.RID(rid),
		Errors: buf[2+n],
	}, true
}

func DecodeData(buf []byte) (types.Data, bool) {
	rid, n1, ok := GetVarint(buf)
	if !ok {
		return types.Data{}, false
	}
	payload, _, ok := getBytes(buf[n1:])
	if !ok {
		return types.Data{}, false
	}
	return types.Data{RID: types.RID(rid), Payload: payload}, true
}

func DecodeMData(buf []byte) (types.MData, bool) {
	if len(buf) < 1 {
		return types.MData{}, false
	}
	seq, n1, ok := GetVarint(buf[1:])
	if !ok {
		return types.MData{}, false
	}
	rid, n2, ok := GetVarint(buf[1+n1:])
	if !ok {
		return types.MData{}, false
	}
	payload, _, ok := getBytes(buf[1+n1+n2:])
	if !ok {
		return types.MData{}, false
	}
	return types.MData{Conduit: types.ConduitID(buf[0]), Seq: types.Seq(seq), RID: types.RID(rid), Payload: payload}, true
}

func DecodeWData(buf []byte) (types.WData, bool) {
	uri, n1, ok := getBytes(buf)
	if !ok {
		return types.WData{}, false
	}
	payload, _, ok := getBytes(buf[n1:])
	if !ok {
		return types.WData{}, false
	}
	return types.WData{URI: uri, Payload: payload}, true
}
