package zhe

import (
	"errors"

	"github.com/jim1993/zhe/pkg/zhe/wire"
)

// Sentinel errors, one per error kind enumerated in spec §7. Packet
// and message-level problems never propagate past Input/Housekeeping
// as a returned error — they are logged and the offending packet or
// message is dropped; these are returned only from Init/Publish/
// Subscribe/Write, where the caller can and should react.
var (
	// ErrMalformedPacket aliases wire.ErrMalformed so callers that
	// only import this package still have a name for it.
	ErrMalformedPacket = wire.ErrMalformed

	ErrUnsupportedProtocol  = errors.New("zhe: unsupported protocol version")
	ErrNoFreePeerIndex      = errors.New("zhe: no free peer index")
	ErrReliabilityViolation = errors.New("zhe: reliability violation")
	ErrBadConfig            = errors.New("zhe: invalid configuration")
	ErrTransportInit        = errors.New("zhe: transport initialization failed")
	ErrUnknownPeer          = errors.New("zhe: message from unknown peer")
	ErrUnknownConduit       = errors.New("zhe: unknown conduit id")
	ErrUnknownPub           = errors.New("zhe: unknown publication handle")
	ErrWindowFull           = errors.New("zhe: transmit window full")
)
