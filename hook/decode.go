package hook

import (
	"errors"

	"github.com/tilegate/gethook/event"
	"github.com/tilegate/gethook/packet"
	"github.com/tilegate/gethook/player"
	"github.com/tilegate/gethook/world"
)

var errInvalidCoord = errors.New("coordinate outside the world")

const hitSwitchRange = 32

type decodeContext struct {
	cfg    *runtimeConfig
	player *player.Player
	whoAmI int
	r      packet.Reader
}

// route ties a tag to its decoder. wanted reports whether any event the tag can produce
// has a subscriber under the current config.
type route struct {
	wanted func(h *Handler, cfg *runtimeConfig) bool
	decode func(h *Handler, dc *decodeContext) (bool, error)
}

func wants(types ...event.Type) func(h *Handler, cfg *runtimeConfig) bool {
	return func(h *Handler, _ *runtimeConfig) bool {
		for _, typ := range types {
			if h.Has(typ) {
				return true
			}
		}
		return false
	}
}

var routes = map[packet.Type]route{
	packet.Tile: {wants(event.TileEdit), (*Handler).decodeTile},
	packet.PlaceObject: {func(h *Handler, cfg *runtimeConfig) bool {
		return h.Has(event.ObjectPlacement) || (cfg.InvokeTileEditOnObjectPlacement && h.Has(event.TileEdit))
	}, (*Handler).decodePlaceObject},
	packet.PlaceChest: {func(h *Handler, cfg *runtimeConfig) bool {
		return h.Has(event.ChestPlace) || h.Has(event.ChestKill) || (cfg.InvokeTileEditOnChestKill && h.Has(event.TileEdit))
	}, (*Handler).decodePlaceChest},
	packet.ChestOpen:                 {wants(event.ChestOpen, event.ChestRename), (*Handler).decodeChestOpen},
	packet.ChestGetContents:          {wants(event.ChestGetContents), (*Handler).decodeChestGetContents},
	packet.ChestItem:                 {wants(event.ChestModifySlot), (*Handler).decodeChestItem},
	packet.SignNew:                   {wants(event.SignEdit), (*Handler).decodeSignNew},
	packet.SignRead:                  {wants(event.SignRead), (*Handler).decodeSignRead},
	packet.HitSwitch:                 {wants(event.HitSwitch), (*Handler).decodeHitSwitch},
	packet.SpawnBossorInvasion:       {wants(event.BossSpawn), (*Handler).decodeBossSpawn},
	packet.ItemDrop:                  {wants(event.ItemUpdate), (*Handler).decodeItemDrop},
	packet.UpdateItemDrop:            {wants(event.ItemUpdate), (*Handler).decodeItemDrop},
	packet.ItemOwner:                 {wants(event.ItemOwner), (*Handler).decodeItemOwner},
	packet.ForceItemIntoNearestChest: {wants(event.QuickStackNearby), (*Handler).decodeQuickStack},
	packet.PlayerSlot:                {wants(event.PlayerModifySlot), (*Handler).decodePlayerSlot},
	packet.LiquidSet:                 {wants(event.LiquidSet), (*Handler).decodeLiquidSet},
	packet.DoorUse:                   {wants(event.DoorUse), (*Handler).decodeDoorUse},
	packet.PlayerSpawn:               {wants(event.PlayerSpawn), (*Handler).decodePlayerSpawn},
	packet.ChestUnlock:               {wants(event.ChestUnlock), (*Handler).decodeChestUnlock},
	packet.ChatText:                  {wants(event.ChatText), (*Handler).decodeChatText},
	packet.TileSendSquare:            {wants(event.SendTileSquare), (*Handler).decodeTileSendSquare},
	packet.PaintTile:                 {wants(event.TilePaint), (*Handler).decodePaintTile},
	packet.PlayerDeathV2:             {wants(event.PlayerDeath), (*Handler).decodePlayerDeath},
	packet.Teleport:                  {wants(event.Teleport), (*Handler).decodeTeleport},
	packet.NpcStrike:                 {wants(event.NpcTookDamage), (*Handler).decodeNpcStrike},
	packet.MassWireOperation: {func(h *Handler, cfg *runtimeConfig) bool {
		return h.Has(event.MassWireOperation) || (cfg.MassWireOpTileEdit != DontInvoke && h.Has(event.TileEdit))
	}, (*Handler).decodeMassWire},
}

// point reads an int16 coordinate pair at at and at+2 and checks it against the world.
func (h *Handler) point(r packet.Reader, at int) (world.Point, error) {
	x, err := r.Int16(at)
	if err != nil {
		return world.Point{}, err
	}
	y, err := r.Int16(at + 2)
	if err != nil {
		return world.Point{}, err
	}

	if !h.world.IsValidCoord(int(x), int(y)) {
		return world.Point{}, errInvalidCoord
	}

	return world.Point{X: int(x), Y: int(y)}, nil
}

// activePoint is point that also requires an occupied tile.
func (h *Handler) activePoint(r packet.Reader, at int) (world.Point, error) {
	p, err := h.point(r, at)
	if err != nil {
		return p, err
	}

	if !h.world.IsActive(p.X, p.Y) {
		return p, errInvalidCoord
	}

	return p, nil
}

func base(dc *decodeContext) event.Base {
	return event.Base{Player: dc.player}
}

func (h *Handler) decodeTile(dc *decodeContext) (bool, error) {
	editType, err := dc.r.Byte(0)
	if err != nil {
		return false, err
	}
	at, err := h.point(dc.r, 1)
	if err != nil {
		return false, err
	}
	blockType, err := dc.r.Int16(5)
	if err != nil {
		return false, err
	}
	style, err := dc.r.Byte(7)
	if err != nil {
		return false, err
	}

	return h.raise(dc, &event.TileEditEvent{
		Base:        base(dc),
		Location:    at,
		EditType:    event.TileEditType(editType),
		BlockType:   int(blockType),
		ObjectStyle: int(style),
	}), nil
}

func (h *Handler) decodePlaceObject(dc *decodeContext) (bool, error) {
	at, err := h.point(dc.r, 0)
	if err != nil {
		return false, err
	}

	blockType, err := dc.r.Int16(4)
	if err != nil {
		return false, err
	}
	style, err := dc.r.Int16(6)
	if err != nil {
		return false, err
	}
	alternative, err := dc.r.Byte(8)
	if err != nil {
		return false, err
	}
	random, err := dc.r.SByte(9)
	if err != nil {
		return false, err
	}
	direction, err := dc.r.Bool(10)
	if err != nil {
		return false, err
	}

	handled := false
	if dc.cfg.InvokeTileEditOnObjectPlacement {
		handled = h.raise(dc, &event.TileEditEvent{
			Base:        base(dc),
			Location:    at,
			EditType:    event.PlaceTile,
			BlockType:   int(blockType),
			ObjectStyle: int(style),
		})
	}
	if !handled {
		handled = h.raise(dc, &event.ObjectPlacementEvent{
			Base:        base(dc),
			Location:    at,
			BlockType:   int(blockType),
			ObjectStyle: int(style),
			Alternative: int(alternative),
			Random:      int(random),
			Direction:   direction,
		})
	}

	return handled, nil
}

// decodePlaceChest handles both placing and killing chests and dressers. Actions 0, 2 and 4
// place; anything else only counts as a kill when the target tile still is a container, since
// clients announce the kill before the tile is actually gone.
func (h *Handler) decodePlaceChest(dc *decodeContext) (bool, error) {
	action, err := dc.r.Byte(0)
	if err != nil {
		return false, err
	}
	at, err := h.point(dc.r, 1)
	if err != nil {
		return false, err
	}
	style, err := dc.r.Int16(5)
	if err != nil {
		return false, err
	}

	switch action {
	case 0, 2, 4:
		return h.raise(dc, &event.ChestPlaceEvent{
			Base:         base(dc),
			Location:     at,
			StorageType:  int(action),
			StorageStyle: int(style),
		}), nil
	}

	if tileType := h.world.TileType(at.X, at.Y); tileType != world.TileContainers && tileType != world.TileDressers {
		return false, nil
	}

	handled := false
	if dc.cfg.InvokeTileEditOnChestKill {
		handled = h.raise(dc, &event.TileEditEvent{Base: base(dc), Location: at, EditType: event.TileKill})
	}
	if !handled {
		handled = h.raise(dc, &event.ChestKillEvent{Base: base(dc), Location: at})
	}

	return handled, nil
}

func (h *Handler) decodeChestOpen(dc *decodeContext) (bool, error) {
	chestIndex, err := dc.r.Int16(0)
	if err != nil {
		return false, err
	}
	at, err := h.point(dc.r, 2)
	if err != nil {
		return false, err
	}
	nameLen, err := dc.r.Byte(6)
	if err != nil {
		return false, err
	}

	handled := false
	if (nameLen > 0 && nameLen <= 20) || nameLen == 255 {
		newName := ""
		if nameLen != 255 {
			if newName, err = dc.r.UTF8(8, int(nameLen)); err != nil {
				return false, err
			}
		}

		handled = h.raise(dc, &event.ChestRenameEvent{Base: base(dc), ChestIndex: int(chestIndex), NewName: newName})
	}
	if !handled {
		handled = h.raise(dc, &event.ChestOpenEvent{Base: base(dc), ChestIndex: int(chestIndex), Location: at})
	}

	return handled, nil
}

func (h *Handler) decodeChestGetContents(dc *decodeContext) (bool, error) {
	at, err := h.activePoint(dc.r, 0)
	if err != nil {
		return false, err
	}

	return h.raise(dc, &event.ChestGetContentsEvent{Base: base(dc), Location: at}), nil
}

func (h *Handler) decodeChestItem(dc *decodeContext) (bool, error) {
	c := dc.r.Cursor(0)
	chestIndex := c.Int16()
	slot := c.Byte()
	stack := c.Int16()
	prefix := c.Byte()
	itemType := c.Int16()
	if err := c.Err(); err != nil {
		return false, err
	}

	if int(chestIndex) >= world.MaxChests || int(slot) > world.MaxChestSlot {
		return false, nil
	}

	return h.raise(dc, &event.ChestModifySlotEvent{
		Base:       base(dc),
		ChestIndex: int(chestIndex),
		SlotIndex:  int(slot),
		NewItem:    event.ItemData{Prefix: int(prefix), Type: int(itemType), StackSize: int(stack)},
	}), nil
}

func (h *Handler) decodeSignNew(dc *decodeContext) (bool, error) {
	signIndex, err := dc.r.Int16(0)
	if err != nil {
		return false, err
	}
	at, err := h.activePoint(dc.r, 2)
	if err != nil {
		return false, err
	}
	text, err := dc.r.String7(6)
	if err != nil {
		return false, err
	}

	return h.raise(dc, &event.SignEditEvent{Base: base(dc), SignIndex: int(signIndex), Location: at, NewText: text}), nil
}

func (h *Handler) decodeSignRead(dc *decodeContext) (bool, error) {
	at, err := h.point(dc.r, 0)
	if err != nil {
		return false, err
	}

	return h.raise(dc, &event.SignReadEvent{Base: base(dc), Location: at}), nil
}

// decodeHitSwitch checks disabled players and reach itself since the host does not.
func (h *Handler) decodeHitSwitch(dc *decodeContext) (bool, error) {
	at, err := h.activePoint(dc.r, 0)
	if err != nil {
		return false, err
	}

	if dc.player.IsBeingDisabled() || !dc.player.IsInRange(at.X, at.Y, hitSwitchRange) {
		return false, nil
	}

	return h.raise(dc, &event.HitSwitchEvent{Base: base(dc), Location: at}), nil
}

func (h *Handler) decodeBossSpawn(dc *decodeContext) (bool, error) {
	bossType, err := dc.r.Int16(2)
	if err != nil {
		return false, err
	}

	return h.raise(dc, &event.BossSpawnEvent{Base: base(dc), BossType: event.BossType(bossType)}), nil
}

func (h *Handler) decodeItemDrop(dc *decodeContext) (bool, error) {
	c := dc.r.Cursor(0)
	itemIndex := c.Int16()
	location := event.Vector2{X: c.Float32(), Y: c.Float32()}
	velocity := event.Vector2{X: c.Float32(), Y: c.Float32()}
	stack := c.Int16()
	prefix := c.Byte()
	noDelay := c.Bool()
	itemType := c.Int16()
	if err := c.Err(); err != nil {
		return false, err
	}

	// type 0 is a pick up and must name an existing item
	if itemType == 0 && (itemIndex < 0 || int(itemIndex) >= world.MaxItems) {
		return false, nil
	}

	return h.raise(dc, &event.ItemUpdateEvent{
		Base:      base(dc),
		ItemIndex: int(itemIndex),
		Location:  location,
		Velocity:  velocity,
		NoDelay:   noDelay,
		Item:      event.ItemData{Prefix: int(prefix), Type: int(itemType), StackSize: int(stack)},
	}), nil
}

func (h *Handler) decodeItemOwner(dc *decodeContext) (bool, error) {
	itemIndex, err := dc.r.Int16(0)
	if err != nil {
		return false, err
	}
	owner, err := dc.r.Byte(2)
	if err != nil {
		return false, err
	}

	if owner == 255 {
		return false, nil
	}

	return h.raise(dc, &event.ItemOwnerEvent{
		Base:      base(dc),
		ItemIndex: int(itemIndex),
		NewOwner:  h.players.Get(int(owner)),
	}), nil
}

func (h *Handler) decodeQuickStack(dc *decodeContext) (bool, error) {
	slot, err := dc.r.Byte(0)
	if err != nil {
		return false, err
	}

	if int(slot) >= world.InventorySlots {
		return false, nil
	}

	return h.raise(dc, &event.QuickStackNearbyEvent{Base: base(dc), SlotIndex: int(slot)}), nil
}

func (h *Handler) decodePlayerSlot(dc *decodeContext) (bool, error) {
	c := dc.r.Cursor(1)
	slot := c.Byte()
	stack := c.Int16()
	prefix := c.Byte()
	itemType := c.Int16()
	if err := c.Err(); err != nil {
		return false, err
	}

	if int(slot) >= world.InventorySlots+world.BankSlots+world.Bank2Slots {
		return false, nil
	}

	return h.raise(dc, &event.PlayerModifySlotEvent{
		Base:      base(dc),
		SlotIndex: int(slot),
		NewItem:   event.ItemData{Prefix: int(prefix), Type: int(itemType), StackSize: int(stack)},
	}), nil
}

func (h *Handler) decodeLiquidSet(dc *decodeContext) (bool, error) {
	at, err := h.point(dc.r, 0)
	if err != nil {
		return false, err
	}
	amount, err := dc.r.Byte(4)
	if err != nil {
		return false, err
	}
	kind, err := dc.r.Byte(5)
	if err != nil {
		return false, err
	}

	return h.raise(dc, &event.LiquidSetEvent{
		Base:         base(dc),
		Location:     at,
		LiquidAmount: int(amount),
		LiquidKind:   event.LiquidKind(kind),
	}), nil
}

func (h *Handler) decodeDoorUse(dc *decodeContext) (bool, error) {
	action, err := dc.r.Byte(0)
	if err != nil {
		return false, err
	}
	at, err := h.point(dc.r, 1)
	if err != nil {
		return false, err
	}
	dir, err := dc.r.Byte(5)
	if err != nil {
		return false, err
	}

	direction := event.DirectionRight
	if dir == 0 {
		direction = event.DirectionLeft
	}

	return h.raise(dc, &event.DoorUseEvent{
		Base:      base(dc),
		Location:  at,
		Action:    event.DoorAction(action),
		Direction: direction,
	}), nil
}

func (h *Handler) decodePlayerSpawn(dc *decodeContext) (bool, error) {
	if _, err := dc.r.Byte(0); err != nil {
		return false, err
	}
	at, err := h.point(dc.r, 1)
	if err != nil {
		return false, err
	}

	return h.raise(dc, &event.PlayerSpawnEvent{Base: base(dc), SpawnTileLocation: at}), nil
}

// decodeChestUnlock also covers doors, told apart by the unlock type.
func (h *Handler) decodeChestUnlock(dc *decodeContext) (bool, error) {
	unlockType, err := dc.r.Byte(0)
	if err != nil {
		return false, err
	}
	at, err := h.point(dc.r, 1)
	if err != nil {
		return false, err
	}

	return h.raise(dc, &event.ChestUnlockEvent{Base: base(dc), Location: at, UnlockType: event.UnlockType(unlockType)}), nil
}

// decodeChatText ignores messages claiming to come from another player slot. The text
// runs to the end of the payload.
func (h *Handler) decodeChatText(dc *decodeContext) (bool, error) {
	sender, err := dc.r.Byte(0)
	if err != nil {
		return false, err
	}
	if int(sender) != dc.whoAmI {
		return false, nil
	}

	c := dc.r.Cursor(1)
	color := event.Color{R: c.Byte(), G: c.Byte(), B: c.Byte()}
	if err = c.Err(); err != nil {
		return false, err
	}
	text, err := dc.r.Remainder(4)
	if err != nil {
		return false, err
	}

	return h.raise(dc, &event.ChatTextEvent{Base: base(dc), Color: color, Text: text}), nil
}

func (h *Handler) decodeTileSendSquare(dc *decodeContext) (bool, error) {
	size, err := dc.r.Int16(0)
	if err != nil {
		return false, err
	}
	at, err := h.point(dc.r, 2)
	if err != nil {
		return false, err
	}

	return h.raise(dc, &event.SendTileSquareEvent{Base: base(dc), Location: at, Size: int(size)}), nil
}

func (h *Handler) decodePaintTile(dc *decodeContext) (bool, error) {
	at, err := h.point(dc.r, 0)
	if err != nil {
		return false, err
	}
	color, err := dc.r.Byte(4)
	if err != nil {
		return false, err
	}

	return h.raise(dc, &event.TilePaintEvent{Base: base(dc), Location: at, Color: event.PaintColor(color)}), nil
}

func (h *Handler) decodePlayerDeath(dc *decodeContext) (bool, error) {
	c := dc.r.Cursor(0)
	c.Byte()
	reason := readDeathReason(c)
	damage := c.Int16()
	direction := int(c.Byte()) - 1
	pvp := c.Bool()
	if err := c.Err(); err != nil {
		return false, err
	}

	return h.raise(dc, &event.PlayerDeathEvent{
		Base:        base(dc),
		DeathReason: reason,
		Direction:   direction,
		Damage:      int(damage),
		PvP:         pvp,
	}), nil
}

// readDeathReason reads a flags byte followed by the fields whose bit is set.
func readDeathReason(c *packet.Cursor) event.DeathReason {
	reason := event.EmptyDeathReason()
	flags := c.Byte()
	if flags&event.DeathFromPlayer != 0 {
		reason.SourcePlayerIndex = int(c.Int16())
	}
	if flags&event.DeathFromNPC != 0 {
		reason.SourceNPCIndex = int(c.Int16())
	}
	if flags&event.DeathFromProjectile != 0 {
		reason.SourceProjectileIndex = int(c.Int16())
	}
	if flags&event.DeathFromOther != 0 {
		reason.SourceOtherIndex = int(c.Byte())
	}
	if flags&event.DeathFromProjectileType != 0 {
		reason.SourceProjectileType = int(c.Int16())
	}
	if flags&event.DeathFromItemType != 0 {
		reason.SourceItemType = int(c.Int16())
	}
	if flags&event.DeathFromItemPrefix != 0 {
		reason.SourceItemPrefix = int(c.Byte())
	}
	if flags&event.DeathCustomReason != 0 {
		reason.CustomReason, _ = c.String7()
	}

	return reason
}

func (h *Handler) decodeTeleport(dc *decodeContext) (bool, error) {
	c := dc.r.Cursor(0)
	flags := c.Byte()
	c.Int16()
	destination := event.Vector2{X: c.Float32(), Y: c.Float32()}
	if err := c.Err(); err != nil {
		return false, err
	}

	tpType := event.PlayerToPos
	switch {
	case flags&1 != 0 && flags&2 != 0:
		tpType = event.TeleportUnknown
	case flags&1 != 0:
		tpType = event.NpcToPos
	case flags&2 != 0:
		tpType = event.PlayerNearPlayerWormhole
	}

	return h.raise(dc, &event.TeleportEvent{Base: base(dc), Destination: destination, TeleportType: tpType}), nil
}

func (h *Handler) decodeNpcStrike(dc *decodeContext) (bool, error) {
	c := dc.r.Cursor(0)
	npcIndex := c.Int16()
	damage := c.Int16()
	knockback := c.Float32()
	hitDirection := int(c.Byte()) - 1
	critical := c.Byte() == 1
	if err := c.Err(); err != nil {
		return false, err
	}

	return h.raise(dc, &event.NpcTookDamageEvent{
		Base:         base(dc),
		NpcIndex:     int(npcIndex),
		Damage:       int(damage),
		Knockback:    knockback,
		HitDirection: hitDirection,
		IsCritical:   critical,
	}), nil
}
