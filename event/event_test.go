package event

import (
	"testing"

	"github.com/tilegate/gethook/world"
)

func TestParseTypeRoundTrip(t *testing.T) {
	for _, typ := range Types() {
		parsed, err := ParseType(typ.String())
		if err != nil || parsed != typ {
			t.Fatalf("ParseType(%q)=%v,%v", typ.String(), parsed, err)
		}
	}
	if len(Types()) != 27 {
		t.Fatalf("expected 27 event types, got %d", len(Types()))
	}
	if _, err := ParseType("NoSuchEvent"); err == nil {
		t.Fatal("expected error")
	}
	if Type(99).Valid() || Invalid.Valid() {
		t.Fatal("invalid types reported valid")
	}
}

func TestEventsShareBase(t *testing.T) {
	events := []Event{
		&TileEditEvent{}, &ChestOpenEvent{}, &MassWireOperationEvent{}, &PlayerDeathEvent{},
	}
	for _, ev := range events {
		if ev.IsHandled() {
			t.Fatalf("%s starts handled", ev.Type())
		}
		ev.SetHandled(true)
		if !ev.IsHandled() {
			t.Fatalf("%s did not keep handled", ev.Type())
		}
	}
}

func TestToolModeString(t *testing.T) {
	if got := (ToolRed | ToolActuator | ToolCutter).String(); got != "Red|Actuator|Cutter" {
		t.Fatalf("unexpected %q", got)
	}
	if MultiToolMode(0).String() != "None" {
		t.Fatal("expected None")
	}
	if SlopePoundTile.String() != "SlopePoundTile" || TileEditType(200).String() != "Unknown" {
		t.Fatal("unexpected tile edit names")
	}
}

func TestChestPlaceTileType(t *testing.T) {
	for action, want := range map[int]int{0: world.TileContainers, 2: world.TileDressers, 4: world.TileContainers} {
		if got := (&ChestPlaceEvent{StorageType: action}).TileType(); got != want {
			t.Fatalf("action %d: tile type %d want %d", action, got, want)
		}
	}
}
