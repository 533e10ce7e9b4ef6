package game

import (
	"math"
	"time"
)

const (
	HitScore  = 10
	KillScore = 100

	maxBulletsPerMatch = 400
)

// Armory tracks the last fire time of each weapon per car id on the
// simulation clock
type Armory struct {
	lastFire map[Weapon]map[string]time.Duration
	nextID   uint64
}

// NewArmory returns an armory with no fire history
func NewArmory() *Armory {
	return &Armory{lastFire: map[Weapon]map[string]time.Duration{
		WeaponHeavy: {},
		WeaponLight: {},
	}}
}

// Ready reports whether the car's weapon cooldown has elapsed at now
func (a *Armory) Ready(c *Car, w Weapon, now time.Duration) bool {
	last, ok := a.lastFire[w][c.ID]
	if !ok {
		return true
	}
	cd := WeaponFor(w).Cooldown
	if c.Buffs.Rapid() {
		cd = time.Duration(float64(cd) / BuffRapidFactor)
	}
	return now-last >= cd
}

// Fire tries to shoot weapon w from car c. It returns nil without recording
// anything when the weapon is cooling down or the muzzle is inside a wall.
func (a *Armory) Fire(c *Car, w Weapon, now time.Duration, walls []*Wall) *Bullet {
	spec, ok := weapons[w]
	if !ok || !c.Alive || !a.Ready(c, w, now) {
		return nil
	}
	pos := muzzle(c, spec)
	half := spec.Size / 2
	if BoxHitsWall(walls, Rect{Center: pos, HalfW: half, HalfH: half}) {
		return nil
	}
	a.lastFire[w][c.ID] = now
	a.nextID++
	mult := c.EffectiveStats().DamageMultiplier
	return &Bullet{
		ID:     a.nextID,
		Owner:  c.ID,
		Pos:    pos,
		Vel:    FromAngle(c.Angle, spec.Speed),
		Angle:  c.Angle,
		Damage: int(math.Round(float64(spec.Damage) * mult)),
		Weapon: w,
		Size:   spec.Size,
	}
}

// Forget drops the fire history of a car
func (a *Armory) Forget(id string) {
	for _, m := range a.lastFire {
		delete(m, id)
	}
}

// Reset clears all fire history
func (a *Armory) Reset() {
	for w := range a.lastFire {
		a.lastFire[w] = map[string]time.Duration{}
	}
}

// HitResult describes a bullet that struck a car
type HitResult struct {
	Shooter string
	Target  string
	Damage  int
	Killed  bool
}

// applyHit damages the target and credits the shooter
func applyHit(b *Bullet, target *Car, shooter *Car) HitResult {
	killed := target.ApplyDamage(b.Damage)
	res := HitResult{Shooter: b.Owner, Target: target.ID, Damage: b.Damage, Killed: killed}
	if shooter != nil {
		shooter.Score += HitScore
		if res.Killed {
			shooter.Score += KillScore
		}
	}
	return res
}

// stepBullets advances every bullet and resolves its single fate for the
// tick. Walls destroyed by a hit leave the arena before the next bullet is
// tested. Returns the surviving bullets and the hits on cars.
func stepBullets(bullets []*Bullet, arena *Arena, cars []*Car, byID func(string) *Car) ([]*Bullet, []HitResult) {
	var hits []HitResult
	kept := bullets[:0]
	for _, b := range bullets {
		b.Update()
		hit := testBullet(b, arena.Bounds, arena.Walls, cars)
		switch hit.fate {
		case BulletFlying:
			kept = append(kept, b)
		case BulletHitWall:
			hit.wall.TakeHit(b.Damage, WeaponFor(b.Weapon).Pierce)
			if hit.wall.Destroyed() {
				arena.RemoveDestroyed()
			}
		case BulletHitCar:
			hits = append(hits, applyHit(b, hit.car, byID(b.Owner)))
		}
	}
	for i := len(kept); i < len(bullets); i++ {
		bullets[i] = nil
	}
	return kept, hits
}
