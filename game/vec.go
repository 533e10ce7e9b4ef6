package game

import "math"

// Vec is a 2D vector in arena units
type Vec struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Scale(s float64) Vec { return Vec{v.X * s, v.Y * s} }
func (v Vec) Dot(o Vec) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vec) LenSq() float64 { return v.X*v.X + v.Y*v.Y }
func (v Vec) Len() float64 { return math.Sqrt(v.LenSq()) }
func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Len() }
func (v Vec) DistSq(o Vec) float64 { return v.Sub(o).LenSq() }
func (v Vec) Angle() float64 { return math.Atan2(v.Y, v.X) }
func (v Vec) AngleTo(o Vec) float64 { return o.Sub(v).Angle() }
func (v Vec) Perp() Vec { return Vec{-v.Y, v.X} }
func (v Vec) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Normalize returns the unit vector, or the zero vector for zero input
func (v Vec) Normalize() Vec {
	l := v.Len()
	if l == 0 {
		return Vec{}
	}
	return Vec{v.X / l, v.Y / l}
}

// FromAngle returns a vector of the given length pointing along angle
func FromAngle(angle, length float64) Vec {
	return Vec{math.Cos(angle) * length, math.Sin(angle) * length}
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// NormalizeAngle wraps angle to [-PI, PI]
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// RotateToward turns from toward target by at most maxStep without overshooting
func RotateToward(from, target, maxStep float64) float64 {
	diff := NormalizeAngle(target - from)
	if diff > maxStep {
		diff = maxStep
	} else if diff < -maxStep {
		diff = -maxStep
	}
	return NormalizeAngle(from + diff)
}

// Rect is an axis-aligned box given by center and half-extents
type Rect struct {
	Center Vec
	HalfW  float64
	HalfH  float64
}

func (r Rect) MinX() float64 { return r.Center.X - r.HalfW }
func (r Rect) MaxX() float64 { return r.Center.X + r.HalfW }
func (r Rect) MinY() float64 { return r.Center.Y - r.HalfH }
func (r Rect) MaxY() float64 { return r.Center.Y + r.HalfH }

// Expand grows the box by margin on every side
func (r Rect) Expand(margin float64) Rect {
	return Rect{Center: r.Center, HalfW: r.HalfW + margin, HalfH: r.HalfH + margin}
}

// Overlaps reports strict overlap between two boxes
func (r Rect) Overlaps(o Rect) bool {
	return math.Abs(r.Center.X-o.Center.X) < r.HalfW+o.HalfW &&
		math.Abs(r.Center.Y-o.Center.Y) < r.HalfH+o.HalfH
}

// Contains reports whether p lies inside the box
func (r Rect) Contains(p Vec) bool {
	return p.X > r.MinX() && p.X < r.MaxX() && p.Y > r.MinY() && p.Y < r.MaxY()
}

// SegmentHits reports whether the segment a-b crosses the box (slab test)
func (r Rect) SegmentHits(a, b Vec) bool {
	d := b.Sub(a)
	tMin, tMax := 0.0, 1.0
	for _, axis := range [2]struct{ p, d, lo, hi float64 }{
		{a.X, d.X, r.MinX(), r.MaxX()},
		{a.Y, d.Y, r.MinY(), r.MaxY()},
	} {
		if axis.d == 0 {
			if axis.p <= axis.lo || axis.p >= axis.hi {
				return false
			}
			continue
		}
		t1 := (axis.lo - axis.p) / axis.d
		t2 := (axis.hi - axis.p) / axis.d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return false
		}
	}
	return true
}
