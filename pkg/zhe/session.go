package zhe

// peerEvent enumerates the events the peer state machine reacts to
// (spec §4.4's dispatcher table).
type peerEvent uint8

const (
	evDiscover      peerEvent = iota // valid SCOUT/HELLO from a new address
	evAccept                         // ACCEPT received, peer ids compatible
	evLeaseTimeout                   // no traffic within the lease window
	evValidMessage                   // any valid message while Operational
	evClose                          // CLOSE received
	evDrainComplete                  // transmit window drained, or drain deadline hit
)

// peerPhase is the peer session's state, matching spec §4.4 exactly:
// Free, Discovering, Operational, Draining.
type peerPhase uint8

const (
	phaseFree peerPhase = iota
	phaseDiscovering
	phaseOperational
	phaseDraining
)

func (p peerPhase) String() string {
	switch p {
	case phaseFree:
		return "free"
	case phaseDiscovering:
		return "discovering"
	case phaseOperational:
		return "operational"
	case phaseDraining:
		return "draining"
	default:
		return "unknown"
	}
}

type transitionKey struct {
	phase peerPhase
	event peerEvent
}

// peerTransitions is the literal state table from spec §4.4: one
// entry per legal (state, event) pair. Any pair absent here is a
// no-op rather than a panic — an unexpected event must degrade
// gracefully, never crash the engine (spec §7).
var peerTransitions = map[transitionKey]peerPhase{
	{phaseFree, evDiscover}:           phaseDiscovering,
	{phaseDiscovering, evAccept}:      phaseOperational,
	{phaseDiscovering, evLeaseTimeout}: phaseFree,
	{phaseOperational, evValidMessage}: phaseOperational,
	{phaseOperational, evClose}:        phaseDraining,
	{phaseOperational, evLeaseTimeout}: phaseDraining,
	{phaseDraining, evDrainComplete}:   phaseFree,
}

// advance looks up the next phase for (cur, ev). ok is false, and
// next==cur, if the pair is not a legal transition.
func advance(cur peerPhase, ev peerEvent) (next peerPhase, ok bool) {
	n, found := peerTransitions[transitionKey{cur, ev}]
	if !found {
		return cur, false
	}
	return n, true
}
