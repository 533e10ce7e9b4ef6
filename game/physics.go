package game

import "math"

const (
	Friction          = 0.96 // velocity multiplier per tick
	ReverseAccelRatio = 0.5
)

// Input is one tick of control intent, from a socket or a bot.
// The zero value means no input.
type Input struct {
	Forward     bool
	Backward    bool
	Left        bool
	Right       bool
	Boost       bool
	FireHeavy   bool
	FireLight   bool
	TargetAngle *float64 // rotate toward this angle when not steering
}

// Bounds is the playable rectangle [0,Width]x[0,Height]
type Bounds struct {
	Width  float64
	Height float64
}

// Contains reports whether p lies inside the bounds, edges included
func (b Bounds) Contains(p Vec) bool {
	return p.X >= 0 && p.X <= b.Width && p.Y >= 0 && p.Y <= b.Height
}

// Inset clamps p into the bounds shrunk by margin on every side
func (b Bounds) Inset(p Vec, margin float64) Vec {
	return Vec{
		X: Clamp(p.X, margin, b.Width-margin),
		Y: Clamp(p.Y, margin, b.Height-margin),
	}
}

// Advance moves one car by one tick. Order is fixed: rotate, accelerate,
// friction, speed clamp, integrate, bounds clamp.
func Advance(c *Car, in Input, b Bounds) {
	if !c.Alive {
		return
	}
	stats := c.EffectiveStats()

	switch {
	case in.Left && !in.Right:
		c.Angle = NormalizeAngle(c.Angle - stats.TurnRate)
	case in.Right && !in.Left:
		c.Angle = NormalizeAngle(c.Angle + stats.TurnRate)
	case in.TargetAngle != nil && !math.IsNaN(*in.TargetAngle) && !math.IsInf(*in.TargetAngle, 0):
		c.Angle = RotateToward(c.Angle, *in.TargetAngle, stats.TurnRate)
	}

	if in.Forward {
		c.Vel = c.Vel.Add(FromAngle(c.Angle, stats.Acceleration))
	} else if in.Backward {
		c.Vel = c.Vel.Sub(FromAngle(c.Angle, stats.Acceleration*ReverseAccelRatio))
	}

	c.Vel = c.Vel.Scale(Friction)

	c.Boosting = in.Boost && c.Fuel > 0
	limit := stats.MaxSpeed
	if c.Boosting {
		limit = stats.BoostSpeed
	}
	if speed := c.Vel.Len(); speed > limit {
		c.Vel = c.Vel.Scale(limit / speed)
	}

	c.Pos = c.Pos.Add(c.Vel)
	c.Pos = b.Inset(c.Pos, CarHalfSize)
}
