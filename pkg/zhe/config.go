package zhe

import (
	"fmt"

	"github.com/alecthomas/units"
	"github.com/hashicorp/go-version"

	"github.com/jim1993/zhe/pkg/zhe/core"
	"github.com/jim1993/zhe/pkg/zhe/definition"
	"github.com/jim1993/zhe/pkg/zhe/types"
)

// EngineVersion is the protocol/implementation version this build
// speaks. Config.RequiredVersion, if set, is checked against it at
// Init using real semver comparison rather than a single integer
// equality test.
const EngineVersion = "1.0.0"

// ConduitKind classifies a configured conduit the way spec §3 splits
// them: best-effort, reliable unicast (independent window per
// destination), or reliable multi-destination (one window gated by
// the slowest live destination, via the min-sequence heap).
type ConduitKind uint8

const (
	ConduitBestEffort ConduitKind = iota
	ConduitReliableUnicast
	ConduitReliableMulti
)

func (k ConduitKind) String() string {
	switch k {
	case ConduitBestEffort:
		return "best-effort"
	case ConduitReliableUnicast:
		return "reliable-unicast"
	case ConduitReliableMulti:
		return "reliable-multi"
	default:
		return "unknown"
	}
}

// ConduitSpec binds a wire ConduitID to its static reliability kind;
// the whole table is fixed for the engine's lifetime (spec: "Conduit
// count and kind are configured, not negotiated at run time").
type ConduitSpec struct {
	ID   types.ConduitID
	Kind ConduitKind
}

// Config is the engine's full construction-time configuration,
// mirroring the option table in spec §6.
type Config struct {
	ID types.PeerID

	ScoutAddr        Address
	MCGroupsJoin     []Address
	MConduitDstAddrs []Address // one per ConduitReliableMulti entry in Conduits, in declaration order

	MaxPeers     int
	Conduits     []ConduitSpec
	MaxRID       types.RID
	MaxURISpace  int
	TransportMTU int

	LeaseDuration uint32 // ms
	SynchInterval uint32 // ms
	SeqnumWidth   core.Width

	// RequiredVersion gates Init against EngineVersion; empty accepts
	// whatever EngineVersion this build carries.
	RequiredVersion string

	Logger definition.Logger
}

// DefaultConfig returns a Config with the same shape every demo and
// test in this repo starts from: one reliable unicast conduit, one
// reliable mconduit, generous arena sizing.
func DefaultConfig(id types.PeerID) *Config {
	return &Config{
		ID: id,
		Conduits: []ConduitSpec{
			{ID: 0, Kind: ConduitReliableUnicast},
			{ID: 1, Kind: ConduitReliableMulti},
		},
		MaxPeers:        8,
		MaxRID:          1 << 20,
		MaxURISpace:     0,
		TransportMTU:    1500,
		LeaseDuration:   10000,
		SynchInterval:   1000,
		SeqnumWidth:     core.DefaultWidth,
		RequiredVersion: EngineVersion,
		Logger:          definition.NewDefaultLogger(),
	}
}

func (c *Config) conduitKind(cid types.ConduitID) (ConduitKind, bool) {
	for _, cs := range c.Conduits {
		if cs.ID == cid {
			return cs.Kind, true
		}
	}
	return 0, false
}

func (c *Config) mconduitIDs() []types.ConduitID {
	var ids []types.ConduitID
	for _, cs := range c.Conduits {
		if cs.Kind == ConduitReliableMulti {
			ids = append(ids, cs.ID)
		}
	}
	return ids
}

// Validate checks the configuration is internally consistent before
// Init commits to it, per spec §7's "invalid configuration" error
// kind.
func (c *Config) Validate() error {
	if len(c.ID) == 0 || len(c.ID) > types.MaxPeerIDLen {
		return fmt.Errorf("%w: peer id length %d out of [1,%d]", ErrBadConfig, len(c.ID), types.MaxPeerIDLen)
	}
	if c.MaxPeers <= 0 {
		return fmt.Errorf("%w: MaxPeers must be positive", ErrBadConfig)
	}
	if c.TransportMTU <= 0 {
		return fmt.Errorf("%w: TransportMTU must be positive", ErrBadConfig)
	}
	if c.MaxRID == 0 {
		return fmt.Errorf("%w: MaxRID must be positive", ErrBadConfig)
	}
	seen := make(map[types.ConduitID]bool, len(c.Conduits))
	for _, cs := range c.Conduits {
		if seen[cs.ID] {
			return fmt.Errorf("%w: duplicate conduit id %d", ErrBadConfig, cs.ID)
		}
		seen[cs.ID] = true
	}
	if nmc := len(c.mconduitIDs()); nmc != len(c.MConduitDstAddrs) {
		return fmt.Errorf("%w: %d reliable-multi conduits but %d MConduitDstAddrs", ErrBadConfig, nmc, len(c.MConduitDstAddrs))
	}
	if c.RequiredVersion != "" {
		have, err := version.NewVersion(EngineVersion)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadConfig, err)
		}
		want, err := version.NewVersion(c.RequiredVersion)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedProtocol, err)
		}
		if want.GreaterThan(have) {
			return fmt.Errorf("%w: requires %s, build speaks %s", ErrUnsupportedProtocol, want, have)
		}
	}
	return nil
}

// ParseByteSize parses a human byte-size string (e.g. "1.5KB", "64B")
// the way a driver's CLI flag for TransportMTU or window sizing would,
// rather than requiring callers to hand-roll the conversion.
func ParseByteSize(s string) (int, error) {
	v, err := units.ParseBase2Bytes(s)
	if err != nil {
		return 0, fmt.Errorf("zhe: %w", err)
	}
	return int(v), nil
}
