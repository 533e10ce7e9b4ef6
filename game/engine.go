package game

import (
	"errors"
	"fmt"
	"time"
)

const (
	TickRate       = 60 // physics ticks per second
	BroadcastRate  = 20 // state broadcasts per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate

	MaxPlayers = 2
)

// Status is the match lifecycle stage
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusGameOver Status = "gameover"
)

// EventKind tags what the engine is announcing
type EventKind string

const (
	EventStart EventKind = "start"
	EventState EventKind = "state"
	EventOver  EventKind = "over"
)

// Event is one outbound announcement from a match
type Event struct {
	Kind   EventKind
	Winner string // empty unless Kind is EventOver and the match was not a draw
	Draw   bool
	State  *Snapshot
}

// Publisher receives match events. Implementations must not block.
type Publisher interface {
	Publish(Event)
}

var (
	ErrMatchFull     = errors.New("match is full")
	ErrDuplicateID   = errors.New("player id already in match")
	ErrPlayerUnknown = errors.New("player not in match")
)

// Engine is the simulation of one match. It is not safe for concurrent use;
// the owner serializes Step with every other call.
type Engine struct {
	pub Publisher
	rng Rand

	arena   *Arena
	cars    []*Car // seat order
	bots    map[string]*Bot
	inputs  map[string]Input
	tiers   map[string]Tier // applied at next spawn
	bullets []*Bullet
	boons   []*Boon
	armory  *Armory
	spawner *Spawner

	tick    uint64
	status  Status
	decided bool
	winner  string
	draw    bool
	botSeq  int
	hits    []HitResult
	pickups []Pickup
}

// NewEngine creates an engine in the waiting state
func NewEngine(pub Publisher, rng Rand) *Engine {
	if rng == nil {
		rng = NewRand()
	}
	return &Engine{
		pub:     pub,
		rng:     rng,
		arena:   NewArena(rng),
		bots:    make(map[string]*Bot),
		inputs:  make(map[string]Input),
		tiers:   make(map[string]Tier),
		armory:  NewArmory(),
		spawner: NewSpawner(rng),
		status:  StatusWaiting,
	}
}

// Now returns the simulation clock
func (e *Engine) Now() time.Duration {
	return time.Duration(e.tick) * TickDuration
}

func (e *Engine) Status() Status { return e.status }
func (e *Engine) Tick() uint64 { return e.tick }
func (e *Engine) Arena() *Arena { return e.arena }
func (e *Engine) PlayerCount() int { return len(e.cars) }

// Car returns the car with id, or nil
func (e *Engine) Car(id string) *Car {
	for _, c := range e.cars {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Cars returns the cars in seat order
func (e *Engine) Cars() []*Car { return e.cars }

// Bullets returns the bullets in flight
func (e *Engine) Bullets() []*Bullet { return e.bullets }

// Boons returns the boons on the field
func (e *Engine) Boons() []*Boon { return e.boons }

// Bot returns the controller for a bot car, or nil for humans
func (e *Engine) Bot(id string) *Bot { return e.bots[id] }

// HasBot reports whether any seat is a bot
func (e *Engine) HasBot() bool { return len(e.bots) > 0 }

// Result returns the decided winner id and draw flag
func (e *Engine) Result() (winner string, draw, decided bool) {
	return e.winner, e.draw, e.decided
}

// AddPlayer seats a human
func (e *Engine) AddPlayer(id string, info PlayerInfo, tier Tier) error {
	if len(e.cars) >= MaxPlayers {
		return ErrMatchFull
	}
	if e.Car(id) != nil {
		return ErrDuplicateID
	}
	info.Bot = false
	c := NewCar(id, tier, e.arena.Spawns[len(e.cars)])
	c.Info = info
	e.cars = append(e.cars, c)
	e.tiers[id] = tier
	return nil
}

// AddBot seats an AI opponent and returns its id
func (e *Engine) AddBot(d Difficulty, p Personality, tier Tier) (string, error) {
	if len(e.cars) >= MaxPlayers {
		return "", ErrMatchFull
	}
	if _, ok := personalities[p]; !ok {
		p = Personalities[e.rng.Intn(len(Personalities))]
	}
	e.botSeq++
	id := fmt.Sprintf("bot-%d", e.botSeq)
	cfg := ResolveBotConfig(d, p)
	c := NewCar(id, tier, e.arena.Spawns[len(e.cars)])
	c.Info = PlayerInfo{Name: fmt.Sprintf("%s %s bot", cfg.Difficulty, cfg.Personality), Bot: true}
	e.cars = append(e.cars, c)
	e.tiers[id] = tier
	e.bots[id] = NewBot(id, cfg, e.rng)
	return id, nil
}

// RemovePlayer drops a seat and everything keyed by it. A running match
// falls back to waiting when fewer than two seats remain.
func (e *Engine) RemovePlayer(id string) error {
	idx := -1
	for i, c := range e.cars {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrPlayerUnknown
	}
	e.cars = append(e.cars[:idx], e.cars[idx+1:]...)
	delete(e.bots, id)
	delete(e.inputs, id)
	delete(e.tiers, id)
	e.armory.Forget(id)

	kept := e.bullets[:0]
	for _, b := range e.bullets {
		if b.Owner != id {
			kept = append(kept, b)
		}
	}
	e.bullets = kept

	if len(e.cars) < MaxPlayers {
		e.toWaiting()
	}
	return nil
}

// Rename changes a seat's id, keeping its car and settings
func (e *Engine) Rename(oldID, newID string) error {
	c := e.Car(oldID)
	if c == nil {
		return ErrPlayerUnknown
	}
	if oldID == newID {
		return nil
	}
	if e.Car(newID) != nil {
		return ErrDuplicateID
	}
	c.ID = newID
	if in, ok := e.inputs[oldID]; ok {
		e.inputs[newID] = in
		delete(e.inputs, oldID)
	}
	if t, ok := e.tiers[oldID]; ok {
		e.tiers[newID] = t
		delete(e.tiers, oldID)
	}
	if bot, ok := e.bots[oldID]; ok {
		bot.ID = newID
		e.bots[newID] = bot
		delete(e.bots, oldID)
	}
	e.armory.Forget(oldID)
	for _, b := range e.bullets {
		if b.Owner == oldID {
			b.Owner = newID
		}
	}
	return nil
}

// RemoveBots drops every bot seat and returns their ids
func (e *Engine) RemoveBots() []string {
	var ids []string
	for _, c := range append([]*Car(nil), e.cars...) {
		if !c.Info.Bot {
			continue
		}
		if err := e.RemovePlayer(c.ID); err != nil {
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids
}

// SetInput stores a human's latest input. Bot seats ignore it.
func (e *Engine) SetInput(id string, in Input) {
	if _, isBot := e.bots[id]; isBot {
		return
	}
	if e.Car(id) == nil {
		return
	}
	e.inputs[id] = in
}

// SelectTier records a tier for the player's next spawn
func (e *Engine) SelectTier(id string, t Tier) error {
	if e.Car(id) == nil {
		return ErrPlayerUnknown
	}
	e.tiers[id] = t
	return nil
}

// Customize replaces the player's cosmetic settings
func (e *Engine) Customize(id string, cosmetic map[string]string) error {
	c := e.Car(id)
	if c == nil {
		return ErrPlayerUnknown
	}
	c.Info.Cosmetic = cosmetic
	return nil
}

// SetName updates the display name of a seat
func (e *Engine) SetName(id, name string) {
	if c := e.Car(id); c != nil {
		c.Info.Name = name
	}
}

// Start begins a fresh match when both seats are filled. It rebuilds the
// arena, respawns cars with their selected tiers and publishes EventStart.
func (e *Engine) Start() bool {
	if len(e.cars) < MaxPlayers {
		return false
	}
	e.tick = 0
	e.arena = NewArena(e.rng)
	for i, c := range e.cars {
		c.Respawn(e.tiers[c.ID], e.arena.Spawns[i])
	}
	for _, bot := range e.bots {
		bot.Reset()
	}
	clear(e.inputs)
	e.bullets = nil
	e.boons = nil
	e.armory.Reset()
	e.spawner.Reset(e.Now())
	e.status = StatusPlaying
	e.decided, e.winner, e.draw = false, "", false
	e.publish(Event{Kind: EventStart, State: e.Snapshot()})
	return true
}

// Restart starts a new match with the current seats. It only applies
// once the previous match is over.
func (e *Engine) Restart() bool {
	if e.status != StatusGameOver {
		return false
	}
	return e.Start()
}

func (e *Engine) toWaiting() {
	e.status = StatusWaiting
	e.bullets = nil
	e.decided, e.winner, e.draw = false, "", false
	for i, c := range e.cars {
		c.Respawn(e.tiers[c.ID], e.arena.Spawns[i])
	}
}

// Step runs one fixed tick. It does nothing unless a match is playing.
func (e *Engine) Step() {
	e.hits = e.hits[:0]
	e.pickups = nil
	if e.status != StatusPlaying {
		return
	}
	e.tick++
	now := e.Now()

	world := World{Arena: e.arena, Cars: e.cars, Bullets: e.bullets, Boons: e.boons}
	for _, c := range e.cars {
		if bot, ok := e.bots[c.ID]; ok {
			e.inputs[c.ID] = bot.Think(now, c, world)
		}
	}

	for _, c := range e.cars {
		c.input = e.inputs[c.ID]
	}

	for _, c := range e.cars {
		Advance(c, c.input, e.arena.Bounds)
	}

	for _, c := range e.cars {
		if c.Alive {
			c.updateTimers(now)
		}
	}

	e.fire(now)
	var hits []HitResult
	e.bullets, hits = stepBullets(e.bullets, e.arena, e.cars, e.Car)
	e.hits = append(e.hits, hits...)

	for i := 0; i < len(e.cars); i++ {
		for j := i + 1; j < len(e.cars); j++ {
			ResolveCars(e.cars[i], e.cars[j])
		}
	}
	for _, c := range e.cars {
		if !c.Alive {
			continue
		}
		for _, w := range e.arena.Walls {
			ResolveWall(c, w)
		}
	}

	e.boons = e.spawner.Update(now, e.boons, e.arena)
	e.boons, e.pickups = collectBoons(now, e.boons, e.cars)

	if e.checkWin() {
		return
	}
	if e.tick%BroadcastEvery == 0 {
		e.publish(Event{Kind: EventState, State: e.Snapshot()})
	}
}

// fire processes weapon requests from this tick's inputs
func (e *Engine) fire(now time.Duration) {
	for _, c := range e.cars {
		if !c.Alive {
			continue
		}
		for _, req := range [...]struct {
			on bool
			w  Weapon
		}{{c.input.FireHeavy, WeaponHeavy}, {c.input.FireLight, WeaponLight}} {
			if !req.on || len(e.bullets) >= maxBulletsPerMatch {
				continue
			}
			if b := e.armory.Fire(c, req.w, now, e.arena.Walls); b != nil {
				e.bullets = append(e.bullets, b)
			}
		}
	}
}

// checkWin decides the match at most once: one car alive wins, none alive
// is a draw. Fewer than two seats never decides.
func (e *Engine) checkWin() bool {
	if e.decided || len(e.cars) < MaxPlayers {
		return false
	}
	var alive []*Car
	for _, c := range e.cars {
		if c.Alive {
			alive = append(alive, c)
		}
	}
	switch len(alive) {
	case 0:
		e.draw = true
	case 1:
		e.winner = alive[0].ID
	default:
		return false
	}
	e.decided = true
	e.status = StatusGameOver
	e.publish(Event{Kind: EventOver, Winner: e.winner, Draw: e.draw, State: e.Snapshot()})
	return true
}

// LastHits returns the car hits resolved in the most recent tick
func (e *Engine) LastHits() []HitResult { return e.hits }

// LastPickups returns the boons collected in the most recent tick
func (e *Engine) LastPickups() []Pickup { return e.pickups }

func (e *Engine) publish(ev Event) {
	if e.pub != nil {
		e.pub.Publish(ev)
	}
}
