package game

import "time"

// Tier identifies a car stat block. It is fixed for the duration of a match.
type Tier string

const (
	TierStandard Tier = "standard"
	TierAdvanced Tier = "advanced"
	TierElite    Tier = "elite"
)

// TierStats holds the per-tick motion and damage stats of a tier
type TierStats struct {
	MaxSpeed         float64 // units/tick
	BoostSpeed       float64 // units/tick while boosting
	Acceleration     float64 // units/tick²
	TurnRate         float64 // radians/tick
	DamageMultiplier float64
}

var tierStats = map[Tier]TierStats{
	TierStandard: {MaxSpeed: 5.0, BoostSpeed: 8.0, Acceleration: 0.30, TurnRate: 0.060, DamageMultiplier: 1.0},
	TierAdvanced: {MaxSpeed: 5.5, BoostSpeed: 8.8, Acceleration: 0.33, TurnRate: 0.065, DamageMultiplier: 1.1},
	TierElite:    {MaxSpeed: 6.0, BoostSpeed: 9.6, Acceleration: 0.36, TurnRate: 0.070, DamageMultiplier: 1.2},
}

// ParseTier returns the tier for name, falling back to TierStandard
func ParseTier(name string) Tier {
	t := Tier(name)
	if _, ok := tierStats[t]; ok {
		return t
	}
	return TierStandard
}

// StatsFor returns the stat block for a tier
func StatsFor(t Tier) TierStats {
	if s, ok := tierStats[t]; ok {
		return s
	}
	return tierStats[TierStandard]
}

// Timed buff tuning
const (
	BuffDuration     = 8 * time.Second
	BuffSpeedFactor  = 1.3 // scales max speed, boost speed and acceleration
	BuffDamageFactor = 1.5
	BuffRapidFactor  = 2.0 // divides weapon cooldowns
)

// Buffs tracks the expiry of timed combat buffs on the simulation clock.
// A zero expiry means the buff is inactive.
type Buffs struct {
	SpeedUntil  time.Duration
	DamageUntil time.Duration
	RapidUntil  time.Duration
}

// Expire clears buffs whose expiry has passed
func (b *Buffs) Expire(now time.Duration) {
	if b.SpeedUntil != 0 && now >= b.SpeedUntil {
		b.SpeedUntil = 0
	}
	if b.DamageUntil != 0 && now >= b.DamageUntil {
		b.DamageUntil = 0
	}
	if b.RapidUntil != 0 && now >= b.RapidUntil {
		b.RapidUntil = 0
	}
}

func (b Buffs) Speed() bool  { return b.SpeedUntil != 0 }
func (b Buffs) Damage() bool { return b.DamageUntil != 0 }
func (b Buffs) Rapid() bool  { return b.RapidUntil != 0 }
