package event

import "strings"

type TileEditType uint8

const (
	TileKill TileEditType = iota
	PlaceTile
	DestroyWall
	PlaceWall
	TileKillNoItem
	PlaceWire
	DestroyWire
	PoundTile
	PlaceActuator
	DestroyActuator
	PlaceWireBlue
	DestroyWireBlue
	PlaceWireGreen
	DestroyWireGreen
	SlopeTile
	FrameTrack
	PlaceWireYellow
	DestroyWireYellow
	PokeLogicGate
	Actuate
	TryKillTile
	ReplaceTile
	ReplaceWall
	SlopePoundTile
)

var tileEditNames = [...]string{
	"TileKill", "PlaceTile", "DestroyWall", "PlaceWall", "TileKillNoItem", "PlaceWire", "DestroyWire",
	"PoundTile", "PlaceActuator", "DestroyActuator", "PlaceWireBlue", "DestroyWireBlue", "PlaceWireGreen",
	"DestroyWireGreen", "SlopeTile", "FrameTrack", "PlaceWireYellow", "DestroyWireYellow", "PokeLogicGate",
	"Actuate", "TryKillTile", "ReplaceTile", "ReplaceWall", "SlopePoundTile",
}

func (t TileEditType) String() string {
	if int(t) < len(tileEditNames) {
		return tileEditNames[t]
	}

	return "Unknown"
}

// MultiToolMode is the tool bitmask of a mass wire operation.
type MultiToolMode uint8

const (
	ToolRed      MultiToolMode = 1
	ToolGreen    MultiToolMode = 2
	ToolBlue     MultiToolMode = 4
	ToolYellow   MultiToolMode = 8
	ToolActuator MultiToolMode = 16
	ToolCutter   MultiToolMode = 32
)

func (m MultiToolMode) Has(flag MultiToolMode) bool {
	return m&flag != 0
}

func (m MultiToolMode) String() string {
	var parts []string
	for _, f := range []struct {
		flag MultiToolMode
		name string
	}{
		{ToolRed, "Red"}, {ToolGreen, "Green"}, {ToolBlue, "Blue"},
		{ToolYellow, "Yellow"}, {ToolActuator, "Actuator"}, {ToolCutter, "Cutter"},
	} {
		if m.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "None"
	}

	return strings.Join(parts, "|")
}

type DoorAction uint8

const (
	OpenDoor DoorAction = iota
	CloseDoor
	OpenTrapdoor
	CloseTrapdoor
	OpenTallGate
	CloseTallGate
)

type Direction int8

const (
	DirectionUnknown Direction = iota
	DirectionLeft
	DirectionRight
)

type LiquidKind uint8

const (
	Water LiquidKind = iota
	Lava
	Honey
	Shimmer
)

type UnlockType uint8

const (
	UnlockChest UnlockType = 1
	UnlockDoor  UnlockType = 2
)

type TeleportType uint8

const (
	PlayerToPos TeleportType = iota
	NpcToPos
	PlayerNearPlayerWormhole
	TeleportUnknown
)

// BossType is an npc type for bosses and a negative id for invasions and events.
type BossType int16

const (
	MoonLordInvasion  BossType = -8
	MartianInvasion   BossType = -7
	SolarEclipse      BossType = -6
	SnowMoon          BossType = -5
	PumpkinMoon       BossType = -4
	PirateInvasion    BossType = -3
	FrostLegion       BossType = -2
	GoblinInvasion    BossType = -1
	EyeOfCthulhu      BossType = 4
	EaterOfWorlds     BossType = 13
	SkeletronHead     BossType = 35
	WallOfFlesh       BossType = 113
	Retinazer         BossType = 125
	Spazmatism        BossType = 126
	SkeletronPrime    BossType = 127
	TheDestroyer      BossType = 134
	QueenBee          BossType = 222
	Golem             BossType = 245
	BrainOfCthulhu    BossType = 266
	Plantera          BossType = 262
	DukeFishron       BossType = 370
	MoonLord          BossType = 398
	KingSlime         BossType = 50
	EmpressOfLight    BossType = 636
	QueenSlime        BossType = 657
	DeerClops         BossType = 668
)

type PaintColor uint8

const (
	PaintNone PaintColor = iota
	PaintRed
	PaintOrange
	PaintYellow
	PaintLime
	PaintGreen
	PaintTeal
	PaintCyan
	PaintSkyBlue
	PaintBlue
	PaintPurple
	PaintViolet
	PaintPink
	PaintDeepRed
	PaintDeepOrange
	PaintDeepYellow
	PaintDeepLime
	PaintDeepGreen
	PaintDeepTeal
	PaintDeepCyan
	PaintDeepSkyBlue
	PaintDeepBlue
	PaintDeepPurple
	PaintDeepViolet
	PaintDeepPink
	PaintBlack
	PaintWhite
	PaintGray
	PaintBrown
	PaintShadow
	PaintNegative
	PaintIlluminant
	PaintEcho
)
