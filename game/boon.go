package game

import "time"

// BoonKind is the effect of a power-up
type BoonKind string

const (
	BoonHealth    BoonKind = "health"
	BoonShield    BoonKind = "shield"
	BoonSpeed     BoonKind = "speed"
	BoonDamage    BoonKind = "damage"
	BoonRapidFire BoonKind = "rapid_fire"
)

const (
	BoonInterval     = 8 * time.Second
	BoonLifetime     = 15 * time.Second
	MaxBoons         = 3
	BoonSpawnRetries = 25
	BoonSeparation   = 150.0 // min distance between boons
	SpawnClearance   = 200.0 // min distance from either spawn point
	BoonWallMargin   = 30.0
	BoonEdgeMargin   = 60.0
	PickupRadius     = 35.0

	HealthBoonAmount = 30
	ShieldBoonAmount = 25
)

// BoonWeights is the kind draw table
var BoonWeights = []Weighted[BoonKind]{
	{BoonHealth, 30},
	{BoonShield, 30},
	{BoonSpeed, 15},
	{BoonDamage, 15},
	{BoonRapidFire, 10},
}

// Boon is a collectible power-up on the field
type Boon struct {
	ID        int
	Kind      BoonKind
	Pos       Vec
	SpawnedAt time.Duration
}

// Expired reports whether the boon has outlived BoonLifetime at now
func (b *Boon) Expired(now time.Duration) bool {
	return now-b.SpawnedAt >= BoonLifetime
}

// Spawner places boons on a fixed interval
type Spawner struct {
	rng       Rand
	lastSpawn time.Duration
	nextID    int
	Attempts  int // placement attempts made, for diagnostics
}

// NewSpawner creates a spawner whose first round runs one interval after start
func NewSpawner(rng Rand) *Spawner {
	return &Spawner{rng: rng}
}

// Reset restarts the interval at now
func (s *Spawner) Reset(now time.Duration) {
	s.lastSpawn = now
}

// Update expires old boons, then runs a spawn round when the interval has
// elapsed and there is room. At capacity no placement is attempted.
func (s *Spawner) Update(now time.Duration, boons []*Boon, arena *Arena) []*Boon {
	kept := boons[:0]
	for _, b := range boons {
		if !b.Expired(now) {
			kept = append(kept, b)
		}
	}
	boons = kept

	if now-s.lastSpawn < BoonInterval || len(boons) >= MaxBoons {
		return boons
	}
	s.lastSpawn = now
	for i := 0; i < BoonSpawnRetries; i++ {
		s.Attempts++
		p := Vec{
			X: randRange(s.rng, BoonEdgeMargin, arena.Width-BoonEdgeMargin),
			Y: randRange(s.rng, BoonEdgeMargin, arena.Height-BoonEdgeMargin),
		}
		if !s.placeable(p, boons, arena) {
			continue
		}
		s.nextID++
		return append(boons, &Boon{
			ID:        s.nextID,
			Kind:      PickWeighted(s.rng, BoonWeights),
			Pos:       p,
			SpawnedAt: now,
		})
	}
	return boons
}

func (s *Spawner) placeable(p Vec, boons []*Boon, arena *Arena) bool {
	for _, sp := range arena.Spawns {
		if p.Dist(sp.Pos) < SpawnClearance {
			return false
		}
	}
	for _, b := range boons {
		if p.Dist(b.Pos) < BoonSeparation {
			return false
		}
	}
	return !PointInWalls(arena.Walls, p, BoonWallMargin)
}

// collectBoons gives each boon to the first living car in range. A boon is
// consumed at most once.
func collectBoons(now time.Duration, boons []*Boon, cars []*Car) ([]*Boon, []Pickup) {
	var picked []Pickup
	kept := boons[:0]
	for _, b := range boons {
		var taker *Car
		for _, c := range cars {
			if c.Alive && c.Pos.Dist(b.Pos) <= PickupRadius {
				taker = c
				break
			}
		}
		if taker == nil {
			kept = append(kept, b)
			continue
		}
		applyBoon(taker, b.Kind, now)
		picked = append(picked, Pickup{CarID: taker.ID, Kind: b.Kind})
	}
	return kept, picked
}

// Pickup records a boon collected by a car
type Pickup struct {
	CarID string
	Kind  BoonKind
}

// applyBoon applies the boon effect. Timed kinds set or refresh a buff.
func applyBoon(c *Car, kind BoonKind, now time.Duration) {
	switch kind {
	case BoonHealth:
		c.Heal(HealthBoonAmount)
	case BoonShield:
		c.RestoreShield(ShieldBoonAmount)
	case BoonSpeed:
		c.Buffs.SpeedUntil = now + BuffDuration
	case BoonDamage:
		c.Buffs.DamageUntil = now + BuffDuration
	case BoonRapidFire:
		c.Buffs.RapidUntil = now + BuffDuration
	}
}
