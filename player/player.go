package player

import (
	"github.com/tilegate/gethook/world"
)

// Player is the actor behind one connection slot.
type Player struct {
	Index       int
	Name        string
	IP          string
	AccountName string
	AccountID   int
	TileX       int
	TileY       int
	Disabled    bool
}

func (p *Player) IsBeingDisabled() bool {
	return p.Disabled
}

// IsInRange reports whether the tile x,y lies within r tiles of the player on both axes.
func (p *Player) IsInRange(x, y, r int) bool {
	dx := x - p.TileX
	dy := y - p.TileY
	return dx >= -r && dx <= r && dy >= -r && dy <= r
}

func (p *Player) TileLocation() world.Point {
	return world.Point{X: p.TileX, Y: p.TileY}
}

// MarshalJSON writes only the player name so traced events stay short.
func (p *Player) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}

	return json.Marshal(p.Name)
}

func (p *Player) String() string {
	if p == nil {
		return "<nil>"
	}

	return p.Name
}
