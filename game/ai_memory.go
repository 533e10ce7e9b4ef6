package game

import "time"

// opponentMemory is what a bot remembers about its current target
type opponentMemory struct {
	id         string
	known      bool
	visible    bool
	lastSeen   Vec
	lastSeenAt time.Duration
	velocity   Vec // exponentially smoothed, units/tick
}

// observe refreshes the memory from the target car. Velocity is only
// sampled while the target is in line of sight.
func (m *opponentMemory) observe(now time.Duration, target *Car, visible bool) {
	if m.id != target.ID {
		*m = opponentMemory{id: target.ID}
	}
	m.visible = visible
	if !visible {
		return
	}
	if !m.known {
		m.velocity = target.Vel
	} else {
		m.velocity = m.velocity.Scale(1 - MemorySmoothing).Add(target.Vel.Scale(MemorySmoothing))
	}
	m.known = true
	m.lastSeen = target.Pos
	m.lastSeenAt = now
}

// fresh reports whether the last sighting is recent enough to act on
func (m *opponentMemory) fresh(now time.Duration) bool {
	return m.known && now-m.lastSeenAt <= MemoryTimeout
}

// predict leads base by the smoothed velocity over a bullet's flight time,
// scaled by skill
func (m *opponentMemory) predict(from, base Vec, bulletSpeed, skill float64) Vec {
	if bulletSpeed <= 0 {
		return base
	}
	t := from.Dist(base) / bulletSpeed
	return base.Add(m.velocity.Scale(t * skill))
}

// stuckDetector flags a bot that has barely moved over a window
type stuckDetector struct {
	anchor      Vec
	windowStart time.Duration
	started     bool
}

// check samples the position; it returns true once per window in which the
// bot moved less than StuckDistance
func (s *stuckDetector) check(now time.Duration, pos Vec) bool {
	if !s.started {
		s.started = true
		s.anchor, s.windowStart = pos, now
		return false
	}
	if now-s.windowStart < StuckWindow {
		return false
	}
	stuck := pos.Dist(s.anchor) < StuckDistance
	s.anchor, s.windowStart = pos, now
	return stuck
}

// reset restarts the window at pos
func (s *stuckDetector) reset(now time.Duration, pos Vec) {
	s.anchor, s.windowStart, s.started = pos, now, true
}
