// Package world answers coordinate and tile queries about the loaded world.
package world

import (
	"math"
	"sync"
)

const (
	TileContainers = 21
	TileDressers   = 88
)

// Limits of the world arrays a client may index into.
const (
	MaxChests      = 8000
	MaxItems       = 401
	MaxPlayers     = 256
	MaxNPCs        = 200
	InventorySlots = 59
	BankSlots      = 40
	Bank2Slots     = 40
	MaxChestSlot   = 39
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Validator must be safe for concurrent use by decoders.
type Validator interface {
	IsValidCoord(x, y int) bool
	IsActive(x, y int) bool
	TileType(x, y int) int
}

type tile struct {
	active   bool
	tileType uint16
}

// TileMap is an in-memory Validator.
type TileMap struct {
	width  int
	height int

	locker sync.RWMutex
	tiles  []tile
}

func NewTileMap(width, height int) *TileMap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	return &TileMap{width: width, height: height, tiles: make([]tile, width*height)}
}

func (tm *TileMap) Width() int {
	return tm.width
}

func (tm *TileMap) Height() int {
	return tm.height
}

func (tm *TileMap) IsValidCoord(x, y int) bool {
	return x >= 0 && y >= 0 && x < tm.width && y < tm.height
}

func (tm *TileMap) IsActive(x, y int) bool {
	if !tm.IsValidCoord(x, y) {
		return false
	}

	tm.locker.RLock()
	defer tm.locker.RUnlock()
	return tm.tiles[y*tm.width+x].active
}

// TileType returns -1 for out of world coordinates.
func (tm *TileMap) TileType(x, y int) int {
	if !tm.IsValidCoord(x, y) {
		return -1
	}

	tm.locker.RLock()
	defer tm.locker.RUnlock()
	return int(tm.tiles[y*tm.width+x].tileType)
}

// SetTile refuses tile types outside 0..65535.
func (tm *TileMap) SetTile(x, y int, tileType int) bool {
	if !tm.IsValidCoord(x, y) || tileType < 0 || tileType > math.MaxUint16 {
		return false
	}

	tm.locker.Lock()
	defer tm.locker.Unlock()
	tm.tiles[y*tm.width+x] = tile{active: true, tileType: uint16(tileType)}
	return true
}

func (tm *TileMap) ClearTile(x, y int) bool {
	if !tm.IsValidCoord(x, y) {
		return false
	}

	tm.locker.Lock()
	defer tm.locker.Unlock()
	tm.tiles[y*tm.width+x] = tile{}
	return true
}
