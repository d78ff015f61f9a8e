package hook

import (
	"fmt"

	"github.com/tilegate/gethook/event"
)

// MassWireOpPolicy selects which tile edits a mass wire operation implies.
type MassWireOpPolicy int

const (
	DontInvoke MassWireOpPolicy = iota
	// AlwaysPlaceWire raises a single PlaceWire edit whatever wires were used.
	AlwaysPlaceWire
	// ForEach raises one edit per wire kind in the tool mode.
	ForEach
)

var massWirePolicyNames = [...]string{"DontInvoke", "AlwaysPlaceWire", "ForEach"}

func (p MassWireOpPolicy) String() string {
	if p >= 0 && int(p) < len(massWirePolicyNames) {
		return massWirePolicyNames[p]
	}

	return fmt.Sprintf("MassWireOpPolicy(%d)", int(p))
}

func ParseMassWireOpPolicy(name string) (MassWireOpPolicy, error) {
	for i, n := range massWirePolicyNames {
		if n == name {
			return MassWireOpPolicy(i), nil
		}
	}

	return DontInvoke, fmt.Errorf("unknown mass wire policy %q", name)
}

type Config struct {
	InvokeTileEditOnChestKill       bool
	InvokeTileEditOnObjectPlacement bool
	MassWireOpTileEdit              MassWireOpPolicy
	TraceEvents                     []string
	HookPriority                    int
}

// runtimeConfig is Config with the trace names resolved.
type runtimeConfig struct {
	Config
	trace map[event.Type]struct{}
}

func compileConfig(cfg Config) (*runtimeConfig, error) {
	rc := &runtimeConfig{Config: cfg, trace: make(map[event.Type]struct{}, len(cfg.TraceEvents))}
	rc.TraceEvents = append([]string(nil), cfg.TraceEvents...)
	for _, name := range cfg.TraceEvents {
		typ, err := event.ParseType(name)
		if err != nil {
			return nil, err
		}
		rc.trace[typ] = struct{}{}
	}

	return rc, nil
}

func (rc *runtimeConfig) traced(typ event.Type) bool {
	_, ok := rc.trace[typ]
	return ok
}
