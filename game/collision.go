package game

import "math"

const (
	CarBounce             = 0.8 // velocity kept after a car-car swap
	CollisionDamageSpeed  = 3.0 // relative speed (units/tick) above which both cars take damage
	CollisionDamageFactor = 2.0
	WallRestitution       = 0.3
	HitPadding            = 4.0 // extra margin around cars for bullet hits
)

// ResolveCars separates two overlapping cars, bounces their velocities and
// applies impact damage to both when the closing speed is high enough.
// Returns the damage dealt to each car, or -1 when they did not touch.
func ResolveCars(a, b *Car) int {
	if !a.Alive || !b.Alive {
		return -1
	}
	delta := b.Pos.Sub(a.Pos)
	dist := delta.Len()
	if dist >= CarSize {
		return -1
	}
	normal := Vec{1, 0}
	if dist > 0 {
		normal = delta.Scale(1 / dist)
	}
	push := normal.Scale((CarSize - dist) / 2)
	a.Pos = a.Pos.Sub(push)
	b.Pos = b.Pos.Add(push)

	rel := a.Vel.Sub(b.Vel).Len()
	a.Vel, b.Vel = b.Vel.Scale(CarBounce), a.Vel.Scale(CarBounce)

	if rel <= CollisionDamageSpeed {
		return 0
	}
	dmg := int(math.Floor(rel * CollisionDamageFactor))
	a.ApplyDamage(dmg)
	b.ApplyDamage(dmg)
	return dmg
}

// ResolveWall pushes a car out of a wall along the axis of least
// penetration. Returns false when they do not overlap.
func ResolveWall(c *Car, w *Wall) bool {
	box := c.Bounds()
	if !box.Overlaps(w.Box) {
		return false
	}
	dx := c.Pos.X - w.Box.Center.X
	dy := c.Pos.Y - w.Box.Center.Y
	penX := CarHalfSize + w.Box.HalfW - math.Abs(dx)
	penY := CarHalfSize + w.Box.HalfH - math.Abs(dy)

	if penX < penY {
		if dx < 0 {
			c.Pos.X = w.Box.MinX() - CarHalfSize
		} else {
			c.Pos.X = w.Box.MaxX() + CarHalfSize
		}
		if (dx < 0 && c.Vel.X > 0) || (dx >= 0 && c.Vel.X < 0) {
			c.Vel.X = -c.Vel.X * WallRestitution
		}
	} else {
		if dy < 0 {
			c.Pos.Y = w.Box.MinY() - CarHalfSize
		} else {
			c.Pos.Y = w.Box.MaxY() + CarHalfSize
		}
		if (dy < 0 && c.Vel.Y > 0) || (dy >= 0 && c.Vel.Y < 0) {
			c.Vel.Y = -c.Vel.Y * WallRestitution
		}
	}
	return true
}

// SegmentHitsWall reports whether any wall blocks the segment a-b
func SegmentHitsWall(walls []*Wall, a, b Vec) bool {
	for _, w := range walls {
		if w.Box.SegmentHits(a, b) {
			return true
		}
	}
	return false
}

// BoxHitsWall reports whether box overlaps any wall
func BoxHitsWall(walls []*Wall, box Rect) bool {
	for _, w := range walls {
		if box.Overlaps(w.Box) {
			return true
		}
	}
	return false
}

// PointInWalls reports whether p lies within margin of any wall
func PointInWalls(walls []*Wall, p Vec, margin float64) bool {
	for _, w := range walls {
		if w.Box.Expand(margin).Contains(p) {
			return true
		}
	}
	return false
}

// BulletFate is the single reason a bullet leaves play in a tick
type BulletFate int

const (
	BulletFlying BulletFate = iota
	BulletOutOfBounds
	BulletHitWall
	BulletHitCar
)

// bulletHit is the result of testing one bullet against the world
type bulletHit struct {
	fate BulletFate
	wall *Wall
	car  *Car
}

// testBullet checks a bullet against bounds, then walls in order, then cars
// in order. The first collision wins and nothing further is checked.
func testBullet(b *Bullet, bounds Bounds, walls []*Wall, cars []*Car) bulletHit {
	if !bounds.Contains(b.Pos) {
		return bulletHit{fate: BulletOutOfBounds}
	}
	box := b.Bounds()
	for _, w := range walls {
		if box.Overlaps(w.Box) {
			return bulletHit{fate: BulletHitWall, wall: w}
		}
	}
	for _, c := range cars {
		if !c.Alive || c.ID == b.Owner {
			continue
		}
		if box.Overlaps(c.Bounds().Expand(HitPadding)) {
			return bulletHit{fate: BulletHitCar, car: c}
		}
	}
	return bulletHit{fate: BulletFlying}
}
