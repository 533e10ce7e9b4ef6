package game

import "time"

// Weapon selects one of the two fire tracks
type Weapon string

const (
	WeaponHeavy Weapon = "heavy"
	WeaponLight Weapon = "light"
)

// WeaponSpec holds the tuning of a weapon track
type WeaponSpec struct {
	Cooldown time.Duration
	Speed    float64 // units/tick
	Damage   int     // before tier multiplier
	Size     float64
	Pierce   float64 // 1 ignores wall resistance
}

var weapons = map[Weapon]WeaponSpec{
	WeaponHeavy: {Cooldown: 800 * time.Millisecond, Speed: 12, Damage: 35, Size: 8, Pierce: 1},
	WeaponLight: {Cooldown: 150 * time.Millisecond, Speed: 16, Damage: 8, Size: 4, Pierce: 0},
}

// WeaponFor returns the spec of a weapon
func WeaponFor(w Weapon) WeaponSpec {
	return weapons[w]
}

// BulletSpawnOffset is the gap between the car's front edge and a new bullet
const BulletSpawnOffset = 6.0

// Bullet is a projectile in flight
type Bullet struct {
	ID     uint64
	Owner  string
	Pos    Vec
	Vel    Vec
	Angle  float64
	Damage int // already scaled by the owner's multiplier
	Weapon Weapon
	Size   float64
}

// Bounds returns the bullet's axis-aligned box
func (b *Bullet) Bounds() Rect {
	h := b.Size / 2
	return Rect{Center: b.Pos, HalfW: h, HalfH: h}
}

// Update moves the bullet one tick
func (b *Bullet) Update() {
	b.Pos = b.Pos.Add(b.Vel)
}

// muzzle returns where a weapon's bullet would appear for a car
func muzzle(c *Car, spec WeaponSpec) Vec {
	return c.Pos.Add(FromAngle(c.Angle, CarHalfSize+spec.Size/2+BulletSpawnOffset))
}
