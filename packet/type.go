// Package packet holds the wire tags and a bounds-checked reader for message payloads.
package packet

import "strconv"

type Type uint8

const (
	PlayerSlot                Type = 5
	PlayerSpawn               Type = 12
	Tile                      Type = 17
	DoorUse                   Type = 19
	TileSendSquare            Type = 20
	ItemDrop                  Type = 21
	ItemOwner                 Type = 22
	ChatText                  Type = 25
	NpcStrike                 Type = 28
	ChestGetContents          Type = 31
	ChestItem                 Type = 32
	ChestOpen                 Type = 33
	PlaceChest                Type = 34
	SignRead                  Type = 46
	SignNew                   Type = 47
	LiquidSet                 Type = 48
	ChestUnlock               Type = 52
	HitSwitch                 Type = 59
	SpawnBossorInvasion       Type = 61
	PaintTile                 Type = 63
	Teleport                  Type = 65
	PlaceObject               Type = 79
	ForceItemIntoNearestChest Type = 85
	UpdateItemDrop            Type = 90
	MassWireOperation         Type = 109
	PlayerDeathV2             Type = 118
)

var typeNames = map[Type]string{
	PlayerSlot:                "PlayerSlot",
	PlayerSpawn:               "PlayerSpawn",
	Tile:                      "Tile",
	DoorUse:                   "DoorUse",
	TileSendSquare:            "TileSendSquare",
	ItemDrop:                  "ItemDrop",
	ItemOwner:                 "ItemOwner",
	ChatText:                  "ChatText",
	NpcStrike:                 "NpcStrike",
	ChestGetContents:          "ChestGetContents",
	ChestItem:                 "ChestItem",
	ChestOpen:                 "ChestOpen",
	PlaceChest:                "PlaceChest",
	SignRead:                  "SignRead",
	SignNew:                   "SignNew",
	LiquidSet:                 "LiquidSet",
	ChestUnlock:               "ChestUnlock",
	HitSwitch:                 "HitSwitch",
	SpawnBossorInvasion:       "SpawnBossorInvasion",
	PaintTile:                 "PaintTile",
	Teleport:                  "Teleport",
	PlaceObject:               "PlaceObject",
	ForceItemIntoNearestChest: "ForceItemIntoNearestChest",
	UpdateItemDrop:            "UpdateItemDrop",
	MassWireOperation:         "MassWireOperation",
	PlayerDeathV2:             "PlayerDeathV2",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return "Packet(" + strconv.Itoa(int(t)) + ")"
}

// Known reports whether the tag has a decoder.
func (t Type) Known() bool {
	_, ok := typeNames[t]
	return ok
}
