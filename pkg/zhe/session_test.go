package zhe

import "testing"

func TestAdvance_LegalTransitions(t *testing.T) {
	cases := []struct {
		cur  peerPhase
		ev   peerEvent
		next peerPhase
	}{
		{phaseFree, evDiscover, phaseDiscovering},
		{phaseDiscovering, evAccept, phaseOperational},
		{phaseDiscovering, evLeaseTimeout, phaseFree},
		{phaseOperational, evValidMessage, phaseOperational},
		{phaseOperational, evClose, phaseDraining},
		{phaseOperational, evLeaseTimeout, phaseDraining},
		{phaseDraining, evDrainComplete, phaseFree},
	}
	for _, c := range cases {
		got, ok := advance(c.cur, c.ev)
		if !ok || got != c.next {
			t.Errorf("advance(%v,%v) = (%v,%v), want (%v,true)", c.cur, c.ev, got, ok, c.next)
		}
	}
}

func TestAdvance_IllegalTransitionsAreNoOps(t *testing.T) {
	phases := []peerPhase{phaseFree, phaseDiscovering, phaseOperational, phaseDraining}
	events := []peerEvent{evDiscover, evAccept, evLeaseTimeout, evValidMessage, evClose, evDrainComplete}
	legal := map[transitionKey]bool{
		{phaseFree, evDiscover}:            true,
		{phaseDiscovering, evAccept}:       true,
		{phaseDiscovering, evLeaseTimeout}: true,
		{phaseOperational, evValidMessage}: true,
		{phaseOperational, evClose}:        true,
		{phaseOperational, evLeaseTimeout}: true,
		{phaseDraining, evDrainComplete}:   true,
	}
	for _, p := range phases {
		for _, e := range events {
			if legal[transitionKey{p, e}] {
				continue
			}
			next, ok := advance(p, e)
			if ok {
				t.Errorf("advance(%v,%v) should be illegal, got next=%v", p, e, next)
			}
			if next != p {
				t.Errorf("advance(%v,%v) illegal transition must leave phase unchanged, got %v", p, e, next)
			}
		}
	}
}
