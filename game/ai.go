package game

import (
	"math"
	"time"
)

// BotState is a node of the bot tactical state machine
type BotState string

const (
	StatePatrol      BotState = "patrol"
	StateEngage      BotState = "engage"
	StatePursue      BotState = "pursue"
	StateRetreat     BotState = "retreat"
	StateSeekCover   BotState = "seek_cover"
	StateCollectBoon BotState = "collect_boon"
	StateFlank       BotState = "flank"
	StateKite        BotState = "kite"
	StateAmbush      BotState = "ambush"
)

// World is the read-only view a bot decides from
type World struct {
	Arena   *Arena
	Cars    []*Car
	Bullets []*Bullet
	Boons   []*Boon
}

// Bot drives one car by emitting synthetic input. Its tactical state is
// private; the match only consumes the Input it returns.
type Bot struct {
	ID     string
	Config BotConfig

	rng          Rand
	state        BotState
	prev         BotState
	decided      bool
	nextDecision time.Duration
	rerouteUntil time.Duration

	memory opponentMemory
	stuck  stuckDetector

	cover     Vec
	hasCover  bool
	patrol    Vec
	hasPatrol bool
	boon      Vec
	hasBoon   bool

	flankSide  float64
	lastFlank  time.Duration
	flankUntil time.Duration
	dodgeDir   Vec
	dodgeUntil time.Duration

	aimError     float64
	triggerLight bool
	triggerHeavy bool
}

// NewBot creates a bot in the patrol state
func NewBot(id string, cfg BotConfig, rng Rand) *Bot {
	return &Bot{ID: id, Config: cfg, rng: rng, state: StatePatrol, prev: StatePatrol, flankSide: 1}
}

// State returns the current tactical state
func (b *Bot) State() BotState { return b.state }

// PreviousState returns the state before the last transition
func (b *Bot) PreviousState() BotState { return b.prev }

// Think re-decides when the reaction delay has elapsed, then runs the
// current state's policy. The policy runs every tick so steering and aim
// keep tracking a moving target between decisions.
func (b *Bot) Think(now time.Duration, self *Car, w World) Input {
	if !self.Alive {
		return Input{}
	}
	target := nearestOpponent(self, w.Cars)
	if !b.decided || now >= b.nextDecision {
		b.decide(now, self, target, w)
		b.decided = true
		b.nextDecision = now + b.Config.ReactionDelay
	}
	return b.execute(now, self, target, w)
}

// Reset clears tactical state for a new match
func (b *Bot) Reset() {
	*b = *NewBot(b.ID, b.Config, b.rng)
}

func (b *Bot) setState(s BotState) {
	if s != b.state {
		b.prev = b.state
		b.state = s
	}
}

func (b *Bot) decide(now time.Duration, self, target *Car, w World) {
	if b.stuck.check(now, self.Pos) && b.moving(self) {
		b.hasPatrol = false
		b.rerouteUntil = now + StuckWindow
		b.stuck.reset(now, self.Pos)
	}
	if target != nil {
		b.memory.observe(now, target, !SegmentHitsWall(w.Arena.Walls, self.Pos, target.Pos))
	}
	b.aimError = (b.rng.Float64()*2 - 1) * MaxAimError * (1 - b.Config.AimAccuracy)
	b.triggerLight = b.rng.Float64() < b.Config.FireProbability
	b.triggerHeavy = b.rng.Float64() < b.Config.FireProbability*0.6
	b.setState(b.selectState(now, self, target, w))
}

// moving reports whether the current state expects the car to travel
func (b *Bot) moving(self *Car) bool {
	switch b.state {
	case StateEngage, StateAmbush, StateKite:
		return false
	case StateSeekCover:
		return b.hasCover && self.Pos.Dist(b.cover) > CoverArrive
	}
	return true
}

// selectState applies the priority order: danger, urgent boon,
// disadvantage, then the personality default.
func (b *Bot) selectState(now time.Duration, self, target *Car, w World) BotState {
	if now < b.rerouteUntil || target == nil {
		return StatePatrol
	}

	if bullet := incomingBullet(self, w.Bullets); bullet != nil && b.rng.Float64() < b.Config.DodgeProbability {
		if b.rng.Float64() < b.Config.CoverBias && b.takeCover(self, target, w.Arena) {
			return StateSeekCover
		}
		b.startDodge(now, self, bullet)
	}

	if p, ok := urgentBoon(self, w.Boons); ok {
		b.boon, b.hasBoon = p, true
		return StateCollectBoon
	}

	if disadvantaged(self, target, b.Config.RetreatRatio) && b.rng.Float64() > b.Config.Aggressiveness {
		if b.rng.Float64() < b.Config.CoverBias && b.takeCover(self, target, w.Arena) {
			return StateSeekCover
		}
		return StateRetreat
	}

	return b.personalityDefault(now, self, target, w)
}

func (b *Bot) personalityDefault(now time.Duration, self, target *Car, w World) BotState {
	cfg := b.Config
	dist := self.Pos.Dist(b.memory.lastSeen)
	if !b.memory.known {
		dist = self.Pos.Dist(target.Pos)
	}
	near := cfg.PreferredDistance - cfg.DistanceTolerance
	far := cfg.PreferredDistance + cfg.DistanceTolerance
	visible := b.memory.visible

	switch cfg.Personality {
	case PersonalityDefensive:
		if dist < near {
			return StateKite
		}
		if visible && self.Shield < self.MaxShield/2 && b.takeCover(self, target, w.Arena) {
			return StateSeekCover
		}
	case PersonalitySniper:
		if dist < near {
			return StateKite
		}
		if !visible && b.memory.fresh(now) {
			return StateAmbush
		}
	case PersonalityFlanker:
		if cfg.FlankPeriod > 0 && now-b.lastFlank >= cfg.FlankPeriod {
			b.lastFlank = now
			b.flankUntil = now + FlankDuration
			b.flankSide = -b.flankSide
		}
		if now < b.flankUntil {
			return StateFlank
		}
		if dist < near {
			return StateKite
		}
	case PersonalityOpportunist:
		if p, ok := nearestBoon(self.Pos, w.Boons, BoonSeekRange*(1+cfg.BoonBias), ""); ok {
			b.boon, b.hasBoon = p, true
			return StateCollectBoon
		}
	}

	if dist > far || !visible {
		return StatePursue
	}
	return StateEngage
}

func (b *Bot) takeCover(self, target *Car, arena *Arena) bool {
	p, ok := findCover(self.Pos, target.Pos, arena)
	b.cover, b.hasCover = p, ok
	return ok
}

func (b *Bot) startDodge(now time.Duration, self *Car, bullet *Bullet) {
	side := bullet.Vel.Perp().Normalize()
	if self.Pos.Sub(bullet.Pos).Dot(side) < 0 {
		side = side.Scale(-1)
	}
	b.dodgeDir = side
	b.dodgeUntil = now + DodgeDuration
}

// execute runs the current state's movement, aim and fire policy
func (b *Bot) execute(now time.Duration, self, target *Car, w World) Input {
	var in Input
	cfg := b.Config

	aim := Vec{}
	haveAim := target != nil && b.memory.fresh(now)
	if haveAim {
		base := b.memory.lastSeen
		if b.memory.visible {
			base = target.Pos
		}
		aim = b.memory.predict(self.Pos, base, WeaponFor(WeaponHeavy).Speed, cfg.PredictionSkill)
	}
	dist := 0.0
	if haveAim {
		dist = self.Pos.Dist(aim)
	}

	switch b.state {
	case StatePatrol:
		if !b.hasPatrol || self.Pos.Dist(b.patrol) < PatrolArrive {
			b.pickPatrol(w.Arena)
		}
		b.steer(&in, self, b.patrol, w.Arena)

	case StatePursue:
		dest := b.memory.lastSeen
		if target != nil && (b.memory.visible || !b.memory.known) {
			dest = target.Pos
		}
		b.steer(&in, self, dest, w.Arena)
		in.Boost = self.Pos.Dist(dest) > BoostDistance

	case StateEngage:
		if haveAim {
			b.face(&in, self.Pos.AngleTo(aim)+b.aimError)
			switch {
			case dist > cfg.PreferredDistance+cfg.DistanceTolerance/2:
				in.Forward = true
			case dist < cfg.PreferredDistance-cfg.DistanceTolerance/2:
				in.Backward = true
			}
		}

	case StateKite:
		if haveAim {
			b.face(&in, self.Pos.AngleTo(aim)+b.aimError)
			in.Backward = true
		}

	case StateRetreat:
		b.retreat(&in, self, target, w.Arena)

	case StateSeekCover:
		switch {
		case !b.hasCover:
			b.retreat(&in, self, target, w.Arena)
		case self.Pos.Dist(b.cover) > CoverArrive:
			b.steer(&in, self, b.cover, w.Arena)
		case haveAim:
			b.face(&in, self.Pos.AngleTo(aim)+b.aimError)
		}

	case StateCollectBoon:
		if b.hasBoon && !boonAt(b.boon, w.Boons) {
			b.hasBoon = false
		}
		if b.hasBoon {
			b.steer(&in, self, b.boon, w.Arena)
			in.Boost = self.Pos.Dist(b.boon) > BoostDistance/2
		} else if haveAim {
			b.steer(&in, self, aim, w.Arena)
		}

	case StateFlank:
		if target != nil {
			away := self.Pos.Sub(target.Pos).Normalize()
			if away.IsZero() {
				away = Vec{1, 0}
			}
			dest := target.Pos.Add(away.Perp().Scale(b.flankSide * FlankOffset))
			dest = w.Arena.Inset(dest, PatrolMargin)
			b.steer(&in, self, dest, w.Arena)
			in.Boost = self.Pos.Dist(dest) > BoostDistance
		}

	case StateAmbush:
		if b.memory.known {
			b.face(&in, self.Pos.AngleTo(b.memory.lastSeen))
		}
	}

	if now < b.dodgeUntil {
		b.face(&in, b.dodgeDir.Angle())
		in.Forward, in.Backward, in.Boost = true, false, true
	}

	if haveAim && b.memory.visible && target.Alive {
		off := math.Abs(NormalizeAngle(self.Angle - (self.Pos.AngleTo(aim) + b.aimError)))
		if off < FireCone {
			in.FireLight = b.triggerLight && dist < LightRange
			in.FireHeavy = b.triggerHeavy && dist < HeavyRange
		}
	}
	return in
}

func (b *Bot) face(in *Input, angle float64) {
	a := NormalizeAngle(angle)
	in.TargetAngle = &a
}

// steer heads toward dest, bending around walls found by the probe, and
// drives forward once roughly facing the heading
func (b *Bot) steer(in *Input, self *Car, dest Vec, arena *Arena) {
	heading := self.Pos.AngleTo(dest)
	probe := WallProbe * b.Config.WallAwareness
	if probe > 0 {
		heading = clearHeading(self.Pos, heading, probe, arena.Walls)
	}
	b.face(in, heading)
	in.Forward = math.Abs(NormalizeAngle(heading-self.Angle)) < math.Pi/2
}

func (b *Bot) retreat(in *Input, self, target *Car, arena *Arena) {
	if target == nil {
		return
	}
	away := self.Pos.Sub(target.Pos).Normalize()
	if away.IsZero() {
		away = FromAngle(self.Angle+math.Pi, 1)
	}
	dest := arena.Inset(self.Pos.Add(away.Scale(300)), PatrolMargin)
	b.steer(in, self, dest, arena)
	in.Boost = true
}

func (b *Bot) pickPatrol(arena *Arena) {
	for i := 0; i < 10; i++ {
		p := Vec{
			X: randRange(b.rng, PatrolMargin, arena.Width-PatrolMargin),
			Y: randRange(b.rng, PatrolMargin, arena.Height-PatrolMargin),
		}
		if !PointInWalls(arena.Walls, p, CarSize) {
			b.patrol, b.hasPatrol = p, true
			return
		}
	}
	b.patrol, b.hasPatrol = Vec{arena.Width / 2, arena.Height / 2}, true
}

// clearHeading returns heading if the probe along it is clear of walls,
// otherwise the nearest clear deflection, or heading when all are blocked
func clearHeading(from Vec, heading, probe float64, walls []*Wall) float64 {
	if !SegmentHitsWall(walls, from, from.Add(FromAngle(heading, probe))) {
		return heading
	}
	for _, step := range []float64{0.5, 1.0, 1.5, 2.0} {
		for _, sign := range []float64{1, -1} {
			a := heading + sign*step
			if !SegmentHitsWall(walls, from, from.Add(FromAngle(a, probe))) {
				return a
			}
		}
	}
	return heading
}

// nearestOpponent returns the closest living car other than self
func nearestOpponent(self *Car, cars []*Car) *Car {
	var best *Car
	bestD := math.Inf(1)
	for _, c := range cars {
		if c == self || !c.Alive {
			continue
		}
		if d := self.Pos.DistSq(c.Pos); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

// incomingBullet returns the closest enemy bullet on course to pass within
// DangerMissDistance of self
func incomingBullet(self *Car, bullets []*Bullet) *Bullet {
	var best *Bullet
	bestD := math.Inf(1)
	for _, bl := range bullets {
		if bl.Owner == self.ID {
			continue
		}
		rel := self.Pos.Sub(bl.Pos)
		d := rel.Len()
		if d > DangerRadius {
			continue
		}
		dir := bl.Vel.Normalize()
		along := rel.Dot(dir)
		if along <= 0 {
			continue
		}
		miss := rel.Sub(dir.Scale(along)).Len()
		if miss < DangerMissDistance && d < bestD {
			best, bestD = bl, d
		}
	}
	return best
}

// urgentBoon finds a boon that fixes a critical shortage
func urgentBoon(self *Car, boons []*Boon) (Vec, bool) {
	if float64(self.Health) < float64(self.MaxHealth)*CriticalHealth {
		if p, ok := nearestBoon(self.Pos, boons, BoonSeekRange, BoonHealth); ok {
			return p, true
		}
	}
	if self.Shield == 0 {
		if p, ok := nearestBoon(self.Pos, boons, BoonSeekRange, BoonShield); ok {
			return p, true
		}
	}
	return Vec{}, false
}

// nearestBoon returns the closest boon of kind (any kind when empty) within radius
func nearestBoon(from Vec, boons []*Boon, radius float64, kind BoonKind) (Vec, bool) {
	var best Vec
	found := false
	bestD := radius
	for _, bn := range boons {
		if kind != "" && bn.Kind != kind {
			continue
		}
		if d := from.Dist(bn.Pos); d <= bestD {
			best, bestD, found = bn.Pos, d, true
		}
	}
	return best, found
}

func boonAt(p Vec, boons []*Boon) bool {
	for _, bn := range boons {
		if bn.Pos == p {
			return true
		}
	}
	return false
}

// disadvantaged compares combined health and shield against the target
func disadvantaged(self, target *Car, ratio float64) bool {
	theirs := float64(target.Health + target.Shield)
	if theirs <= 0 {
		return false
	}
	return float64(self.Health+self.Shield)/theirs < ratio
}
