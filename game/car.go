package game

import "time"

const (
	CarSize     = 40.0
	CarHalfSize = CarSize / 2

	CarMaxHealth = 100
	CarMaxShield = 50
	CarMaxFuel   = 100.0

	ShieldRechargeDelay = 3 * time.Second // no recharge this long after taking damage
	ShieldRechargeEvery = 5               // ticks per recharged shield point
	BoostDrain          = 0.6             // fuel per boosting tick
	BoostRecharge       = 0.25            // fuel per idle tick
	BoostRechargeDelay  = time.Second     // no recharge this long after boosting
)

// Car is one combatant in a match
type Car struct {
	ID       string
	Pos      Vec
	Vel      Vec
	Angle    float64
	Alive    bool
	Boosting bool

	Health    int
	MaxHealth int
	Shield    int
	MaxShield int
	Fuel      float64
	MaxFuel   float64

	shieldWait  time.Duration // remaining recharge delay
	shieldTicks int
	fuelWait    time.Duration
	Tier        Tier
	Stats       TierStats // fixed at spawn
	Buffs       Buffs
	Score       int
	Info        PlayerInfo
	input       Input
}

// PlayerInfo is identity metadata carried through to snapshots, never simulated
type PlayerInfo struct {
	Name     string
	Bot      bool
	Cosmetic map[string]string
}

// NewCar creates a car at a spawn point with full resources
func NewCar(id string, tier Tier, spawn SpawnPoint) *Car {
	c := &Car{ID: id}
	c.Respawn(tier, spawn)
	return c
}

// Respawn resets the car for a new match. The tier stat block is locked here.
func (c *Car) Respawn(tier Tier, spawn SpawnPoint) {
	c.Pos = spawn.Pos
	c.Vel = Vec{}
	c.Angle = spawn.Angle
	c.Alive = true
	c.Boosting = false
	c.Health, c.MaxHealth = CarMaxHealth, CarMaxHealth
	c.Shield, c.MaxShield = CarMaxShield, CarMaxShield
	c.Fuel, c.MaxFuel = CarMaxFuel, CarMaxFuel
	c.shieldWait, c.shieldTicks, c.fuelWait = 0, 0, 0
	c.Tier = ParseTier(string(tier))
	c.Stats = StatsFor(c.Tier)
	c.Buffs = Buffs{}
	c.Score = 0
	c.input = Input{}
}

// Bounds returns the car's axis-aligned box
func (c *Car) Bounds() Rect {
	return Rect{Center: c.Pos, HalfW: CarHalfSize, HalfH: CarHalfSize}
}

// EffectiveStats returns the tier stats with active buffs applied
func (c *Car) EffectiveStats() TierStats {
	s := c.Stats
	if c.Buffs.Speed() {
		s.MaxSpeed *= BuffSpeedFactor
		s.BoostSpeed *= BuffSpeedFactor
		s.Acceleration *= BuffSpeedFactor
	}
	if c.Buffs.Damage() {
		s.DamageMultiplier *= BuffDamageFactor
	}
	return s
}

// ApplyDamage takes dmg through the shield first, then health. Health and
// shield floor at zero. Returns true if this hit killed the car.
func (c *Car) ApplyDamage(dmg int) bool {
	if !c.Alive || dmg <= 0 {
		return false
	}
	absorbed := min(c.Shield, dmg)
	c.Shield -= absorbed
	c.Health -= dmg - absorbed
	c.shieldWait = ShieldRechargeDelay
	c.shieldTicks = 0
	if c.Health <= 0 {
		c.Health = 0
		c.Alive = false
		c.Vel = Vec{}
		c.Boosting = false
		return true
	}
	return false
}

// Heal restores health up to the max
func (c *Car) Heal(amount int) {
	c.Health = min(c.Health+amount, c.MaxHealth)
}

// RestoreShield restores shield up to the max
func (c *Car) RestoreShield(amount int) {
	c.Shield = min(c.Shield+amount, c.MaxShield)
}

// updateTimers runs shield recharge, boost fuel and buff expiry for one tick
func (c *Car) updateTimers(now time.Duration) {
	c.Buffs.Expire(now)

	if c.shieldWait > 0 {
		c.shieldWait -= TickDuration
	} else if c.Shield < c.MaxShield {
		c.shieldTicks++
		if c.shieldTicks >= ShieldRechargeEvery {
			c.shieldTicks = 0
			c.Shield++
		}
	}

	if c.Boosting {
		c.Fuel = max(c.Fuel-BoostDrain, 0)
		c.fuelWait = BoostRechargeDelay
		return
	}
	if c.fuelWait > 0 {
		c.fuelWait -= TickDuration
		return
	}
	c.Fuel = min(c.Fuel+BoostRecharge, c.MaxFuel)
}
