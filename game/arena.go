package game

import "math"

const (
	ArenaWidth  = 2000.0
	ArenaHeight = 1200.0
)

// SpawnPoint is a seat's start position and facing
type SpawnPoint struct {
	Pos   Vec
	Angle float64
}

// DefaultSpawns are the two seat spawn points, facing each other
var DefaultSpawns = [2]SpawnPoint{
	{Pos: Vec{200, ArenaHeight / 2}, Angle: 0},
	{Pos: Vec{ArenaWidth - 200, ArenaHeight / 2}, Angle: math.Pi},
}

// wall slots on the left half; each is mirrored onto the right half
var mirroredSlots = []Rect{
	{Center: Vec{450, 350}, HalfW: 20, HalfH: 90},
	{Center: Vec{450, 850}, HalfW: 20, HalfH: 90},
	{Center: Vec{720, 600}, HalfW: 70, HalfH: 20},
	{Center: Vec{800, 200}, HalfW: 80, HalfH: 20},
	{Center: Vec{800, 1000}, HalfW: 80, HalfH: 20},
}

// wall slots on the center line
var centerSlots = []Rect{
	{Center: Vec{ArenaWidth / 2, 600}, HalfW: 30, HalfH: 120},
	{Center: Vec{ArenaWidth / 2, 180}, HalfW: 20, HalfH: 60},
	{Center: Vec{ArenaWidth / 2, 1020}, HalfW: 20, HalfH: 60},
}

// Arena is the static layout of a match: bounds, walls and spawn points
type Arena struct {
	Bounds
	Walls  []*Wall
	Spawns [2]SpawnPoint
}

// NewArena builds the standard layout, drawing one material per mirrored
// pair so both sides stay symmetric.
func NewArena(rng Rand) *Arena {
	a := &Arena{
		Bounds: Bounds{Width: ArenaWidth, Height: ArenaHeight},
		Spawns: DefaultSpawns,
	}
	id := 0
	add := func(box Rect, m Material) {
		id++
		a.Walls = append(a.Walls, NewWall(id, box, m))
	}
	for _, slot := range mirroredSlots {
		m := PickWeighted(rng, MaterialWeights)
		add(slot, m)
		mirror := slot
		mirror.Center.X = ArenaWidth - slot.Center.X
		add(mirror, m)
	}
	for _, slot := range centerSlots {
		add(slot, PickWeighted(rng, MaterialWeights))
	}
	return a
}

// RemoveDestroyed drops walls with no health left
func (a *Arena) RemoveDestroyed() {
	kept := a.Walls[:0]
	for _, w := range a.Walls {
		if !w.Destroyed() {
			kept = append(kept, w)
		}
	}
	for i := len(kept); i < len(a.Walls); i++ {
		a.Walls[i] = nil
	}
	a.Walls = kept
}
