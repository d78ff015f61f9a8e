package event

import "fmt"

type Type int

const (
	Invalid Type = iota
	TileEdit
	ObjectPlacement
	ChestPlace
	ChestOpen
	ChestRename
	ChestKill
	ChestGetContents
	ChestModifySlot
	SignEdit
	SignRead
	HitSwitch
	BossSpawn
	ItemUpdate
	ItemOwner
	QuickStackNearby
	PlayerModifySlot
	LiquidSet
	DoorUse
	PlayerSpawn
	ChestUnlock
	ChatText
	SendTileSquare
	TilePaint
	PlayerDeath
	Teleport
	NpcTookDamage
	MassWireOperation

	typeCount
)

var typeNames = [typeCount]string{
	Invalid:           "Invalid",
	TileEdit:          "TileEdit",
	ObjectPlacement:   "ObjectPlacement",
	ChestPlace:        "ChestPlace",
	ChestOpen:         "ChestOpen",
	ChestRename:       "ChestRename",
	ChestKill:         "ChestKill",
	ChestGetContents:  "ChestGetContents",
	ChestModifySlot:   "ChestModifySlot",
	SignEdit:          "SignEdit",
	SignRead:          "SignRead",
	HitSwitch:         "HitSwitch",
	BossSpawn:         "BossSpawn",
	ItemUpdate:        "ItemUpdate",
	ItemOwner:         "ItemOwner",
	QuickStackNearby:  "QuickStackNearby",
	PlayerModifySlot:  "PlayerModifySlot",
	LiquidSet:         "LiquidSet",
	DoorUse:           "DoorUse",
	PlayerSpawn:       "PlayerSpawn",
	ChestUnlock:       "ChestUnlock",
	ChatText:          "ChatText",
	SendTileSquare:    "SendTileSquare",
	TilePaint:         "TilePaint",
	PlayerDeath:       "PlayerDeath",
	Teleport:          "Teleport",
	NpcTookDamage:     "NpcTookDamage",
	MassWireOperation: "MassWireOperation",
}

var typesByName = func() map[string]Type {
	m := make(map[string]Type, typeCount)
	for t := TileEdit; t < typeCount; t++ {
		m[typeNames[t]] = t
	}
	return m
}()

func (t Type) String() string {
	if t.Valid() || t == Invalid {
		return typeNames[t]
	}

	return fmt.Sprintf("Type(%d)", int(t))
}

func (t Type) Valid() bool {
	return t > Invalid && t < typeCount
}

func ParseType(name string) (Type, error) {
	if t, ok := typesByName[name]; ok {
		return t, nil
	}

	return Invalid, fmt.Errorf("unknown event type %q", name)
}

// Types lists every valid event type in declaration order.
func Types() []Type {
	types := make([]Type, 0, typeCount-1)
	for t := TileEdit; t < typeCount; t++ {
		types = append(types, t)
	}

	return types
}
