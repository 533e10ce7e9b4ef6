package game

import "math"

// PlayerState is one car in a snapshot
type PlayerState struct {
	ID        string            `json:"id" msgpack:"id"`
	Name      string            `json:"n" msgpack:"n"`
	X         float64           `json:"x" msgpack:"x"`
	Y         float64           `json:"y" msgpack:"y"`
	VX        float64           `json:"vx" msgpack:"vx"`
	VY        float64           `json:"vy" msgpack:"vy"`
	Angle     float64           `json:"r" msgpack:"r"`
	Health    int               `json:"hp" msgpack:"hp"`
	MaxHealth int               `json:"mhp" msgpack:"mhp"`
	Shield    int               `json:"sh" msgpack:"sh"`
	MaxShield int               `json:"msh" msgpack:"msh"`
	Fuel      float64           `json:"f" msgpack:"f"`
	MaxFuel   float64           `json:"mf" msgpack:"mf"`
	Boost     bool              `json:"b,omitempty" msgpack:"b,omitempty"`
	Alive     bool              `json:"a" msgpack:"a"`
	Score     int               `json:"sc" msgpack:"sc"`
	Tier      Tier              `json:"tier" msgpack:"tier"`
	Buffs     []BoonKind        `json:"buffs,omitempty" msgpack:"buffs,omitempty"`
	Cosmetic  map[string]string `json:"cos,omitempty" msgpack:"cos,omitempty"`
	Bot       bool              `json:"bot,omitempty" msgpack:"bot,omitempty"`
	BotState  BotState          `json:"bs,omitempty" msgpack:"bs,omitempty"`
}

// BulletState is one bullet in a snapshot
type BulletState struct {
	ID     uint64  `json:"id" msgpack:"id"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Angle  float64 `json:"r" msgpack:"r"`
	Owner  string  `json:"o" msgpack:"o"`
	Weapon Weapon  `json:"w" msgpack:"w"`
}

// WallState is one wall in a snapshot
type WallState struct {
	ID        int      `json:"id" msgpack:"id"`
	X         float64  `json:"x" msgpack:"x"`
	Y         float64  `json:"y" msgpack:"y"`
	W         float64  `json:"w" msgpack:"w"`
	H         float64  `json:"h" msgpack:"h"`
	Material  Material `json:"m" msgpack:"m"`
	Health    int      `json:"hp" msgpack:"hp"`
	MaxHealth int      `json:"mhp" msgpack:"mhp"`
}

// BoonState is one boon in a snapshot
type BoonState struct {
	ID   int      `json:"id" msgpack:"id"`
	X    float64  `json:"x" msgpack:"x"`
	Y    float64  `json:"y" msgpack:"y"`
	Kind BoonKind `json:"k" msgpack:"k"`
}

// Snapshot is the serialized match state sent to clients
type Snapshot struct {
	Tick    uint64        `json:"tick" msgpack:"tick"`
	Status  Status        `json:"st" msgpack:"st"`
	Winner  string        `json:"win,omitempty" msgpack:"win,omitempty"`
	Draw    bool          `json:"draw,omitempty" msgpack:"draw,omitempty"`
	Width   float64       `json:"aw" msgpack:"aw"`
	Height  float64       `json:"ah" msgpack:"ah"`
	Players []PlayerState `json:"p" msgpack:"p"`
	Bullets []BulletState `json:"bl" msgpack:"bl"`
	Walls   []WallState   `json:"wl" msgpack:"wl"`
	Boons   []BoonState   `json:"bn" msgpack:"bn"`
}

// Snapshot captures the current match state
func (e *Engine) Snapshot() *Snapshot {
	s := &Snapshot{
		Tick:    e.tick,
		Status:  e.status,
		Winner:  e.winner,
		Draw:    e.draw,
		Width:   e.arena.Width,
		Height:  e.arena.Height,
		Players: make([]PlayerState, 0, len(e.cars)),
		Bullets: make([]BulletState, 0, len(e.bullets)),
		Walls:   make([]WallState, 0, len(e.arena.Walls)),
		Boons:   make([]BoonState, 0, len(e.boons)),
	}
	for _, c := range e.cars {
		ps := PlayerState{
			ID:        c.ID,
			Name:      c.Info.Name,
			X:         round1(c.Pos.X),
			Y:         round1(c.Pos.Y),
			VX:        round1(c.Vel.X),
			VY:        round1(c.Vel.Y),
			Angle:     round2(c.Angle),
			Health:    c.Health,
			MaxHealth: c.MaxHealth,
			Shield:    c.Shield,
			MaxShield: c.MaxShield,
			Fuel:      round1(c.Fuel),
			MaxFuel:   c.MaxFuel,
			Boost:     c.Boosting,
			Alive:     c.Alive,
			Score:     c.Score,
			Tier:      c.Tier,
			Cosmetic:  c.Info.Cosmetic,
			Bot:       c.Info.Bot,
		}
		if c.Buffs.Speed() {
			ps.Buffs = append(ps.Buffs, BoonSpeed)
		}
		if c.Buffs.Damage() {
			ps.Buffs = append(ps.Buffs, BoonDamage)
		}
		if c.Buffs.Rapid() {
			ps.Buffs = append(ps.Buffs, BoonRapidFire)
		}
		if bot, ok := e.bots[c.ID]; ok {
			ps.BotState = bot.State()
		}
		s.Players = append(s.Players, ps)
	}
	for _, b := range e.bullets {
		s.Bullets = append(s.Bullets, BulletState{
			ID:     b.ID,
			X:      round1(b.Pos.X),
			Y:      round1(b.Pos.Y),
			Angle:  round2(b.Angle),
			Owner:  b.Owner,
			Weapon: b.Weapon,
		})
	}
	for _, w := range e.arena.Walls {
		s.Walls = append(s.Walls, WallState{
			ID:        w.ID,
			X:         w.Box.Center.X,
			Y:         w.Box.Center.Y,
			W:         w.Box.HalfW * 2,
			H:         w.Box.HalfH * 2,
			Material:  w.Material,
			Health:    w.Health,
			MaxHealth: w.MaxHealth,
		})
	}
	for _, b := range e.boons {
		s.Boons = append(s.Boons, BoonState{ID: b.ID, X: round1(b.Pos.X), Y: round1(b.Pos.Y), Kind: b.Kind})
	}
	return s
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
