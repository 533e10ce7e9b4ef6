package game

import "math"

// Material is a wall material
type Material string

const (
	MaterialWood     Material = "wood"
	MaterialBrick    Material = "brick"
	MaterialConcrete Material = "concrete"
	MaterialSteel    Material = "steel"
)

// MaterialSpec holds the durability of a material
type MaterialSpec struct {
	Health     int
	Resistance float64 // fraction of non-piercing damage absorbed
}

var materials = map[Material]MaterialSpec{
	MaterialWood:     {Health: 100, Resistance: 0},
	MaterialBrick:    {Health: 200, Resistance: 0.25},
	MaterialConcrete: {Health: 300, Resistance: 0.5},
	MaterialSteel:    {Health: 500, Resistance: 0.75},
}

// MaterialWeights is the draw table used when an arena is built
var MaterialWeights = []Weighted[Material]{
	{MaterialWood, 35},
	{MaterialBrick, 30},
	{MaterialConcrete, 25},
	{MaterialSteel, 10},
}

// SpecFor returns the spec for a material, defaulting to wood
func SpecFor(m Material) MaterialSpec {
	if s, ok := materials[m]; ok {
		return s
	}
	return materials[MaterialWood]
}

// Wall is a destructible axis-aligned obstacle
type Wall struct {
	ID        int
	Box       Rect
	Material  Material
	Health    int
	MaxHealth int
}

// NewWall creates a wall at full health
func NewWall(id int, box Rect, m Material) *Wall {
	spec := SpecFor(m)
	return &Wall{ID: id, Box: box, Material: m, Health: spec.Health, MaxHealth: spec.Health}
}

// Destroyed reports whether the wall has no health left
func (w *Wall) Destroyed() bool { return w.Health <= 0 }

// TakeHit applies bullet damage after material resistance. A pierce of 1
// ignores resistance entirely. Returns the damage dealt.
func (w *Wall) TakeHit(damage int, pierce float64) int {
	resist := SpecFor(w.Material).Resistance * (1 - Clamp(pierce, 0, 1))
	dealt := int(math.Round(float64(damage) * (1 - resist)))
	w.Health -= dealt
	if w.Health < 0 {
		w.Health = 0
	}
	return dealt
}
