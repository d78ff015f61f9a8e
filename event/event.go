// Package event defines one value type per intercepted client action.
package event

import (
	"github.com/tilegate/gethook/player"
	"github.com/tilegate/gethook/world"
)

// Event is implemented by pointers to the variant types below. A variant is built for a
// single dispatch and handed to each subscriber in turn.
type Event interface {
	Type() Type
	Sender() *player.Player
	IsHandled() bool
	SetHandled(handled bool)
}

// Base carries what every variant shares. Once Handled is set the raw message is
// suppressed from default processing.
type Base struct {
	Player  *player.Player `json:"player"`
	Handled bool           `json:"handled"`
}

func (b *Base) Sender() *player.Player  { return b.Player }
func (b *Base) IsHandled() bool         { return b.Handled }
func (b *Base) SetHandled(handled bool) { b.Handled = handled }

type ItemData struct {
	Prefix    int `json:"prefix"`
	Type      int `json:"type"`
	StackSize int `json:"stackSize"`
}

type Vector2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

type TileEditEvent struct {
	Base
	Location    world.Point  `json:"location"`
	EditType    TileEditType `json:"editType"`
	BlockType   int          `json:"blockType"`
	ObjectStyle int          `json:"objectStyle"`
}

type ObjectPlacementEvent struct {
	Base
	Location    world.Point `json:"location"`
	BlockType   int         `json:"blockType"`
	ObjectStyle int         `json:"objectStyle"`
	Alternative int         `json:"alternative"`
	Random      int         `json:"random"`
	Direction   bool        `json:"direction"`
}

type ChestPlaceEvent struct {
	Base
	Location     world.Point `json:"location"`
	StorageType  int         `json:"storageType"`
	StorageStyle int         `json:"storageStyle"`
}

// TileType is the tile the placement creates: action 2 places a dresser, 0 and 4 a chest.
func (e *ChestPlaceEvent) TileType() int {
	if e.StorageType == 2 {
		return world.TileDressers
	}
	return world.TileContainers
}

type ChestOpenEvent struct {
	Base
	ChestIndex int         `json:"chestIndex"`
	Location   world.Point `json:"location"`
}

type ChestRenameEvent struct {
	Base
	ChestIndex int    `json:"chestIndex"`
	NewName    string `json:"newName"`
}

type ChestKillEvent struct {
	Base
	Location world.Point `json:"location"`
}

type ChestGetContentsEvent struct {
	Base
	Location world.Point `json:"location"`
}

type ChestModifySlotEvent struct {
	Base
	ChestIndex int      `json:"chestIndex"`
	SlotIndex  int      `json:"slotIndex"`
	NewItem    ItemData `json:"newItem"`
}

type SignEditEvent struct {
	Base
	SignIndex int         `json:"signIndex"`
	Location  world.Point `json:"location"`
	NewText   string      `json:"newText"`
}

type SignReadEvent struct {
	Base
	Location world.Point `json:"location"`
}

type HitSwitchEvent struct {
	Base
	Location world.Point `json:"location"`
}

type BossSpawnEvent struct {
	Base
	BossType BossType `json:"bossType"`
}

type ItemUpdateEvent struct {
	Base
	ItemIndex int      `json:"itemIndex"`
	Location  Vector2  `json:"location"`
	Velocity  Vector2  `json:"velocity"`
	NoDelay   bool     `json:"noDelay"`
	Item      ItemData `json:"item"`
}

type ItemOwnerEvent struct {
	Base
	ItemIndex int            `json:"itemIndex"`
	NewOwner  *player.Player `json:"newOwner"`
}

type QuickStackNearbyEvent struct {
	Base
	SlotIndex int `json:"slotIndex"`
}

type PlayerModifySlotEvent struct {
	Base
	SlotIndex int      `json:"slotIndex"`
	NewItem   ItemData `json:"newItem"`
}

type LiquidSetEvent struct {
	Base
	Location     world.Point `json:"location"`
	LiquidAmount int         `json:"liquidAmount"`
	LiquidKind   LiquidKind  `json:"liquidKind"`
}

type DoorUseEvent struct {
	Base
	Location  world.Point `json:"location"`
	Action    DoorAction  `json:"action"`
	Direction Direction   `json:"direction"`
}

type PlayerSpawnEvent struct {
	Base
	SpawnTileLocation world.Point `json:"spawnTileLocation"`
}

type ChestUnlockEvent struct {
	Base
	Location   world.Point `json:"location"`
	UnlockType UnlockType  `json:"unlockType"`
}

type ChatTextEvent struct {
	Base
	Color Color  `json:"color"`
	Text  string `json:"text"`
}

type SendTileSquareEvent struct {
	Base
	Location world.Point `json:"location"`
	Size     int         `json:"size"`
}

type TilePaintEvent struct {
	Base
	Location world.Point `json:"location"`
	Color    PaintColor  `json:"color"`
}

type PlayerDeathEvent struct {
	Base
	DeathReason DeathReason `json:"deathReason"`
	Direction   int         `json:"direction"`
	Damage      int         `json:"damage"`
	PvP         bool        `json:"pvp"`
}

type TeleportEvent struct {
	Base
	Destination  Vector2      `json:"destination"`
	TeleportType TeleportType `json:"teleportType"`
}

type NpcTookDamageEvent struct {
	Base
	NpcIndex     int     `json:"npcIndex"`
	Damage       int     `json:"damage"`
	Knockback    float32 `json:"knockback"`
	HitDirection int     `json:"hitDirection"`
	IsCritical   bool    `json:"isCritical"`
}

type MassWireOperationEvent struct {
	Base
	StartLocation world.Point   `json:"startLocation"`
	EndLocation   world.Point   `json:"endLocation"`
	ToolMode      MultiToolMode `json:"toolMode"`
}

func (*TileEditEvent) Type() Type          { return TileEdit }
func (*ObjectPlacementEvent) Type() Type   { return ObjectPlacement }
func (*ChestPlaceEvent) Type() Type        { return ChestPlace }
func (*ChestOpenEvent) Type() Type         { return ChestOpen }
func (*ChestRenameEvent) Type() Type       { return ChestRename }
func (*ChestKillEvent) Type() Type         { return ChestKill }
func (*ChestGetContentsEvent) Type() Type  { return ChestGetContents }
func (*ChestModifySlotEvent) Type() Type   { return ChestModifySlot }
func (*SignEditEvent) Type() Type          { return SignEdit }
func (*SignReadEvent) Type() Type          { return SignRead }
func (*HitSwitchEvent) Type() Type         { return HitSwitch }
func (*BossSpawnEvent) Type() Type         { return BossSpawn }
func (*ItemUpdateEvent) Type() Type        { return ItemUpdate }
func (*ItemOwnerEvent) Type() Type         { return ItemOwner }
func (*QuickStackNearbyEvent) Type() Type  { return QuickStackNearby }
func (*PlayerModifySlotEvent) Type() Type  { return PlayerModifySlot }
func (*LiquidSetEvent) Type() Type         { return LiquidSet }
func (*DoorUseEvent) Type() Type           { return DoorUse }
func (*PlayerSpawnEvent) Type() Type       { return PlayerSpawn }
func (*ChestUnlockEvent) Type() Type       { return ChestUnlock }
func (*ChatTextEvent) Type() Type          { return ChatText }
func (*SendTileSquareEvent) Type() Type    { return SendTileSquare }
func (*TilePaintEvent) Type() Type         { return TilePaint }
func (*PlayerDeathEvent) Type() Type       { return PlayerDeath }
func (*TeleportEvent) Type() Type          { return Teleport }
func (*NpcTookDamageEvent) Type() Type     { return NpcTookDamage }
func (*MassWireOperationEvent) Type() Type { return MassWireOperation }
