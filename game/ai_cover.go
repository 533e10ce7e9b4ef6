package game

import "math"

// coverCandidates returns points just outside each face of every wall
func coverCandidates(walls []*Wall) []Vec {
	out := make([]Vec, 0, len(walls)*4)
	gap := CarHalfSize + CoverOffset
	for _, w := range walls {
		c := w.Box.Center
		out = append(out,
			Vec{w.Box.MinX() - gap, c.Y},
			Vec{w.Box.MaxX() + gap, c.Y},
			Vec{c.X, w.Box.MinY() - gap},
			Vec{c.X, w.Box.MaxY() + gap},
		)
	}
	return out
}

// concealment rates how well wall w hides point p from an observer at
// threat: 1 when p sits straight behind the wall, falling to 0 at 90°
// off the threat-to-wall line. A blocked sight line adds a full point.
func concealment(p, threat Vec, w *Wall, walls []*Wall) float64 {
	toWall := w.Box.Center.Sub(threat)
	toPoint := p.Sub(threat)
	if toPoint.LenSq() <= toWall.LenSq() {
		return 0
	}
	off := math.Abs(NormalizeAngle(toPoint.Angle() - toWall.Angle()))
	score := Clamp(1-off/(math.Pi/2), 0, 1)
	if SegmentHitsWall(walls, threat, p) {
		score++
	}
	return score
}

// findCover picks the best cover point for a bot at self hiding from
// threat. Points are scored by concealment minus normalized travel distance;
// only in-bounds, unobstructed points within CoverSearchRadius qualify.
func findCover(self, threat Vec, arena *Arena) (Vec, bool) {
	var best Vec
	bestScore := math.Inf(-1)
	for _, w := range arena.Walls {
		for _, p := range coverCandidates([]*Wall{w}) {
			if p.X < CarHalfSize || p.Y < CarHalfSize ||
				p.X > arena.Width-CarHalfSize || p.Y > arena.Height-CarHalfSize {
				continue
			}
			d := self.Dist(p)
			if d > CoverSearchRadius || PointInWalls(arena.Walls, p, CarHalfSize) {
				continue
			}
			score := concealment(p, threat, w, arena.Walls) - d/CoverSearchRadius
			if score > bestScore {
				bestScore, best = score, p
			}
		}
	}
	if bestScore <= 0 {
		return Vec{}, false
	}
	return best, true
}
