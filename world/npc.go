package world

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
)

const (
	NPCTypeMin = -65
	NPCTypeMax = 687

	minLifeOverride = 128
	maxLifeOverride = 32768
	maxSpecificNPCs = 18
)

var (
	ErrNPCTableFull   = errors.New("npc table is full")
	ErrUnknownNPCType = errors.New("unknown npc type")
)

var (
	FriendlyNPCTypes       = []int{17, 18, 19, 20, 22, 38, 54, 107, 108, 124, 160, 178, 207, 208, 209, 227, 228, 229, 368, 369, 589, 633, 663}
	FriendlyFemaleNPCTypes = []int{18, 20, 124, 178, 208, 633, 663}
	FriendlyMaleNPCTypes   = []int{17, 19, 22, 38, 54, 107, 108, 160, 207, 209, 227, 228, 229, 368, 369, 589}
	ShopNPCTypes           = []int{17, 18, 19, 20, 38, 54, 107, 108, 124, 160, 178, 207, 208, 209, 227, 228, 229, 368, 633, 663}
)

type Vector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type NPCDefaults struct {
	Width    int
	Height   int
	LifeMax  int
	Value    float32
	Slots    float32
	Friendly bool
}

type NPC struct {
	Index    int
	Type     int
	Active   bool
	Friendly bool
	Position Vector
	Width    int
	Height   int
	Life     int
	LifeMax  int
	Value    float32
	Slots    float32
}

type SpawnOptions struct {
	LifeOverride  int
	ValueOverride float32 // negative keeps the catalog value
	NoDrops       bool
}

func DefaultSpawnOptions() SpawnOptions {
	return SpawnOptions{ValueOverride: -1}
}

// NPCTable holds the active NPC slots. OnUpdate is called with the slot index after
// every spawn or move so the host can broadcast the change.
type NPCTable struct {
	Catalog  map[int]NPCDefaults
	OnUpdate func(index int)

	locker sync.RWMutex
	npcs   []NPC
}

func NewNPCTable(catalog map[int]NPCDefaults) *NPCTable {
	table := &NPCTable{Catalog: catalog, npcs: make([]NPC, MaxNPCs)}
	for i := range table.npcs {
		table.npcs[i].Index = i
	}

	return table
}

func (nt *NPCTable) notify(index int) {
	if nt.OnUpdate != nil {
		nt.OnUpdate(index)
	}
}

func (nt *NPCTable) Get(index int) (NPC, bool) {
	nt.locker.RLock()
	defer nt.locker.RUnlock()
	if index < 0 || index >= len(nt.npcs) {
		return NPC{}, false
	}

	return nt.npcs[index], true
}

// Spawn places an npc of npcType centered at location and returns its slot index.
func (nt *NPCTable) Spawn(npcType int, location Point, opts SpawnOptions) (int, error) {
	nt.locker.Lock()
	index := slices.IndexFunc(nt.npcs, func(n NPC) bool { return !n.Active })
	if index == -1 {
		nt.locker.Unlock()
		return -1, ErrNPCTableFull
	}

	defaults, ok := nt.Catalog[npcType]
	if !ok {
		nt.locker.Unlock()
		return -1, fmt.Errorf("%w: %d", ErrUnknownNPCType, npcType)
	}

	npc := NPC{
		Index:    index,
		Type:     npcType,
		Active:   true,
		Friendly: defaults.Friendly,
		Width:    defaults.Width,
		Height:   defaults.Height,
		Life:     defaults.LifeMax,
		LifeMax:  defaults.LifeMax,
		Value:    defaults.Value,
		Slots:    defaults.Slots,
	}
	npc.Position = Vector{X: float32(location.X - npc.Width/2), Y: float32(location.Y - npc.Height)}

	if opts.LifeOverride > 0 {
		lifeOverride := opts.LifeOverride
		if npc.LifeMax < minLifeOverride {
			lifeOverride = minLifeOverride
		} else if lifeOverride > maxLifeOverride {
			lifeOverride = maxLifeOverride
		}

		npc.Life = lifeOverride
		npc.LifeMax = lifeOverride
	}

	if opts.NoDrops {
		npc.Value = 0
		npc.Slots = 0
	}
	if opts.ValueOverride > -1 {
		npc.Value = opts.ValueOverride
	}

	nt.npcs[index] = npc
	nt.locker.Unlock()

	nt.notify(index)
	return index, nil
}

func (nt *NPCTable) Kill(index int) bool {
	nt.locker.Lock()
	if index < 0 || index >= len(nt.npcs) || !nt.npcs[index].Active {
		nt.locker.Unlock()
		return false
	}
	nt.npcs[index] = NPC{Index: index}
	nt.locker.Unlock()

	nt.notify(index)
	return true
}

func (nt *NPCTable) Move(index int, location Point) error {
	nt.locker.Lock()
	if index < 0 || index >= len(nt.npcs) {
		nt.locker.Unlock()
		return fmt.Errorf("npc index %d out of range", index)
	}

	npc := &nt.npcs[index]
	if !npc.Active {
		nt.locker.Unlock()
		return fmt.Errorf("npc index %d is not active", index)
	}
	npc.Position.X = float32(location.X - npc.Width/2)
	npc.Position.Y = float32(location.Y - (npc.Height - 1))
	nt.locker.Unlock()

	nt.notify(index)
	return nil
}

// MoveOrSpawnSpecificType moves the first friendly npc of npcType to location, spawning one
// if none exists.
func (nt *NPCTable) MoveOrSpawnSpecificType(npcType int, location Point) error {
	if npcType < NPCTypeMin || npcType > NPCTypeMax {
		return fmt.Errorf("npc type %d out of range", npcType)
	}

	if indexes := nt.SpecificIndexes(npcType); len(indexes) > 0 {
		return nt.Move(indexes[0], location)
	}

	_, err := nt.Spawn(npcType, location, DefaultSpawnOptions())
	return err
}

func (nt *NPCTable) AroundPoint(location Point, radius float64) []NPC {
	nt.locker.RLock()
	defer nt.locker.RUnlock()

	var found []NPC
	for _, npc := range nt.npcs {
		if !npc.Active {
			continue
		}

		dx := float64(npc.Position.X) - float64(location.X)
		dy := float64(npc.Position.Y) - float64(location.Y)
		if math.Sqrt(dx*dx+dy*dy) <= radius {
			found = append(found, npc)
		}
	}

	return found
}

// SpecificIndexes lists active friendly npcs of the given types. At most 18 are returned,
// and a single-type query stops after the first match.
func (nt *NPCTable) SpecificIndexes(npcTypes ...int) []int {
	nt.locker.RLock()
	defer nt.locker.RUnlock()

	var indexes []int
	for i, npc := range nt.npcs {
		if !npc.Active || !npc.Friendly {
			continue
		}

		if slices.Contains(npcTypes, npc.Type) {
			indexes = append(indexes, i)
			if len(indexes) == maxSpecificNPCs || len(npcTypes) == 1 {
				break
			}
		}
	}

	return indexes
}

func (nt *NPCTable) FriendlyIndexes() []int {
	return nt.SpecificIndexes(FriendlyNPCTypes...)
}

func (nt *NPCTable) FriendlyFemaleIndexes() []int {
	return nt.SpecificIndexes(FriendlyFemaleNPCTypes...)
}

func (nt *NPCTable) FriendlyMaleIndexes() []int {
	return nt.SpecificIndexes(FriendlyMaleNPCTypes...)
}

func (nt *NPCTable) ShopIndexes() []int {
	return nt.SpecificIndexes(ShopNPCTypes...)
}
