package zhe

// Time is the monotonic millisecond counter capability (spec §6):
// every engine entry point that cares about elapsed time takes one as
// an explicit parameter rather than reading a wall clock itself.
type Time uint32

// Sub returns t-u as a signed difference, safe across wrap.
func (t Time) Sub(u Time) int32 { return int32(t - u) }

// Before reports whether t happened strictly before u, wrap-aware.
func (t Time) Before(u Time) bool { return t.Sub(u) < 0 }

// Seconds/Millis are display-only conversions (spec §6: "conversion
// macros expose seconds/milliseconds for display only").
func (t Time) Seconds() uint32 { return uint32(t) / 1000 }
func (t Time) Millis() uint32  { return uint32(t) % 1000 }

// Address is an opaque, comparable, printable peer address handed out
// by the Transport capability.
type Address interface {
	String() string
	Equal(Address) bool
}

// Transport is the datagram capability the engine is driven through.
// Send is the only method the engine itself calls (from Start/Input/
// Housekeeping/Write); Wait/Recv belong to the driver's own loop (§5).
type Transport interface {
	// Wait blocks up to timeoutMs for a datagram to become
	// receivable, returning whether one is ready. It is the only
	// permitted suspension point in the whole system (§5).
	Wait(timeoutMs int) bool
	// Recv copies at most len(buf) bytes of one pending datagram into
	// buf, returning its length and source address. Returns n==0,
	// err==nil if nothing is pending.
	Recv(buf []byte) (n int, src Address, err error)
	// Send transmits buf to dst, returning sent=false (not an error)
	// if the transport's own buffer is momentarily full.
	Send(buf []byte, dst Address) (sent bool, err error)
	// ParseAddr turns a driver-supplied string (CLI flag, config
	// file) into an Address.
	ParseAddr(s string) (Address, error)
}

// Entropy supplies randomness for generating a local peer id when the
// driver does not pass an explicit one.
type Entropy interface {
	Read(buf []byte) (int, error)
}
