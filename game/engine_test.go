package game

import (
	"math"
	"math/rand"
	"testing"
)

// mockPublisher captures published events for testing
type mockPublisher struct {
	events []Event
}

func (m *mockPublisher) Publish(ev Event) {
	m.events = append(m.events, ev)
}

func (m *mockPublisher) count(kind EventKind) int {
	n := 0
	for _, ev := range m.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func seeded() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

// newTestMatch starts a two-player match on an arena with no walls
func newTestMatch(t *testing.T) (*Engine, *mockPublisher) {
	t.Helper()
	pub := &mockPublisher{}
	e := NewEngine(pub, seeded())
	if err := e.AddPlayer("player1", PlayerInfo{Name: "A"}, TierStandard); err != nil {
		t.Fatalf("add player1: %v", err)
	}
	if err := e.AddPlayer("player2", PlayerInfo{Name: "B"}, TierStandard); err != nil {
		t.Fatalf("add player2: %v", err)
	}
	if !e.Start() {
		t.Fatal("expected match to start")
	}
	e.arena.Walls = nil
	return e, pub
}

func TestEngineStartNeedsTwoSeats(t *testing.T) {
	pub := &mockPublisher{}
	e := NewEngine(pub, seeded())
	e.AddPlayer("player1", PlayerInfo{}, TierStandard)
	if e.Start() {
		t.Error("one seat should not start a match")
	}
	if e.Status() != StatusWaiting {
		t.Errorf("expected waiting, got %s", e.Status())
	}
	e.AddPlayer("player2", PlayerInfo{}, TierStandard)
	if !e.Start() {
		t.Fatal("two seats should start")
	}
	if e.Status() != StatusPlaying {
		t.Errorf("expected playing, got %s", e.Status())
	}
	if pub.count(EventStart) != 1 {
		t.Errorf("expected one start event, got %d", pub.count(EventStart))
	}
}

func TestEngineRejectsThirdSeat(t *testing.T) {
	e, _ := newTestMatch(t)
	if err := e.AddPlayer("player3", PlayerInfo{}, TierStandard); err != ErrMatchFull {
		t.Errorf("expected ErrMatchFull, got %v", err)
	}
	if _, err := e.AddBot(DifficultyEasy, PersonalityAggressive, TierStandard); err != ErrMatchFull {
		t.Errorf("expected ErrMatchFull for bot, got %v", err)
	}
}

func TestScenarioForwardOneTick(t *testing.T) {
	e, _ := newTestMatch(t)
	p1 := e.Car("player1")
	start := p1.Pos
	angle := p1.Angle

	e.SetInput("player1", Input{Forward: true})
	e.Step()

	moved := p1.Pos.Sub(start)
	if moved.Len() == 0 {
		t.Fatal("player1 did not move")
	}
	if math.Abs(NormalizeAngle(moved.Angle()-angle)) > 1e-9 {
		t.Errorf("moved along %.4f, expected facing %.4f", moved.Angle(), angle)
	}
	want := p1.Stats.Acceleration * Friction
	if math.Abs(p1.Vel.Len()-want) > 1e-9 {
		t.Errorf("speed = %.6f, want accel x friction = %.6f", p1.Vel.Len(), want)
	}
	if p2 := e.Car("player2"); p2.Vel.Len() != 0 {
		t.Errorf("player2 should not move, speed %.4f", p2.Vel.Len())
	}
}

func TestScenarioLethalHitDecidesWinner(t *testing.T) {
	e, pub := newTestMatch(t)
	p1, p2 := e.Car("player1"), e.Car("player2")
	p1.Health, p1.Shield = 10, 0

	// park a 15 damage bullet right in front of player1
	e.bullets = append(e.bullets, &Bullet{
		ID:     99,
		Owner:  "player2",
		Pos:    p1.Pos.Add(Vec{CarHalfSize + 10, 0}),
		Vel:    Vec{-10, 0},
		Damage: 15,
		Weapon: WeaponLight,
		Size:   4,
	})
	e.Step()

	if p1.Health != 0 {
		t.Errorf("health = %d, want 0", p1.Health)
	}
	if p1.Alive {
		t.Error("player1 should be dead")
	}
	winner, draw, decided := e.Result()
	if !decided || draw || winner != "player2" {
		t.Errorf("result = (%q, draw=%v, decided=%v), want player2", winner, draw, decided)
	}
	if e.Status() != StatusGameOver {
		t.Errorf("expected gameover, got %s", e.Status())
	}
	if pub.count(EventOver) != 1 {
		t.Fatalf("expected one over event, got %d", pub.count(EventOver))
	}
	last := pub.events[len(pub.events)-1]
	if last.Kind != EventOver || last.Winner != "player2" {
		t.Errorf("last event = %+v", last)
	}
	if p2.Score != HitScore+KillScore {
		t.Errorf("shooter score = %d, want %d", p2.Score, HitScore+KillScore)
	}
}

func TestEngineSingleDecisionPerMatch(t *testing.T) {
	e, pub := newTestMatch(t)
	e.Car("player1").ApplyDamage(1000)
	e.Step()
	// further deaths after the decision must not emit again
	e.Car("player2").ApplyDamage(1000)
	for i := 0; i < 10; i++ {
		e.Step()
	}
	if n := pub.count(EventOver); n != 1 {
		t.Errorf("expected exactly one over event, got %d", n)
	}
	if winner, _, _ := e.Result(); winner != "player2" {
		t.Errorf("winner = %q, want player2", winner)
	}
}

func TestEngineDraw(t *testing.T) {
	e, pub := newTestMatch(t)
	e.Car("player1").ApplyDamage(1000)
	e.Car("player2").ApplyDamage(1000)
	e.Step()
	winner, draw, decided := e.Result()
	if !decided || !draw || winner != "" {
		t.Errorf("result = (%q, draw=%v, decided=%v), want draw", winner, draw, decided)
	}
	if pub.count(EventOver) != 1 {
		t.Errorf("expected one over event, got %d", pub.count(EventOver))
	}
}

func TestEngineBroadcastDecimation(t *testing.T) {
	e, pub := newTestMatch(t)
	ticks := TickRate // one second
	for i := 0; i < ticks; i++ {
		e.Step()
	}
	if got, want := pub.count(EventState), ticks/BroadcastEvery; got != want {
		t.Errorf("state events = %d over %d ticks, want %d", got, ticks, want)
	}
	if BroadcastEvery != 3 {
		t.Errorf("BroadcastEvery = %d, want 3", BroadcastEvery)
	}
}

func TestEngineStopsBroadcastAfterGameOver(t *testing.T) {
	e, pub := newTestMatch(t)
	e.Car("player1").ApplyDamage(1000)
	e.Step()
	before := len(pub.events)
	for i := 0; i < 30; i++ {
		e.Step()
	}
	if len(pub.events) != before {
		t.Errorf("gameover match published %d more events", len(pub.events)-before)
	}
}

func TestEngineTickOutcomesClearedAfterGameOver(t *testing.T) {
	e, _ := newTestMatch(t)
	e.Car("player1").ApplyDamage(1000)
	e.Step()
	e.hits = append(e.hits, HitResult{Shooter: "player2", Target: "player1", Killed: true})
	e.pickups = []Pickup{{CarID: "player2", Kind: BoonHealth}}
	e.Step()
	if len(e.LastHits()) != 0 || len(e.LastPickups()) != 0 {
		t.Errorf("stale outcomes after gameover: hits=%v pickups=%v", e.LastHits(), e.LastPickups())
	}
}

func TestEngineRestart(t *testing.T) {
	e, pub := newTestMatch(t)
	e.Car("player1").ApplyDamage(1000)
	e.Step()
	if !e.Restart() {
		t.Fatal("restart should succeed with two seats")
	}
	if e.Status() != StatusPlaying {
		t.Errorf("expected playing, got %s", e.Status())
	}
	p1 := e.Car("player1")
	if !p1.Alive || p1.Health != p1.MaxHealth || p1.Pos != DefaultSpawns[0].Pos {
		t.Errorf("player1 not reset: %+v", p1)
	}
	if _, _, decided := e.Result(); decided {
		t.Error("restart should clear the decision")
	}
	if pub.count(EventStart) != 2 {
		t.Errorf("expected two start events, got %d", pub.count(EventStart))
	}
}

func TestEngineRestartIgnoredWhilePlaying(t *testing.T) {
	e, pub := newTestMatch(t)
	p1, p2 := e.Car("player1"), e.Car("player2")
	p1.Health = 5
	p2.Score = 300
	for i := 0; i < 10; i++ {
		e.Step()
	}
	if e.Restart() {
		t.Fatal("restart accepted during a running match")
	}
	if p1.Health != 5 || p2.Score != 300 {
		t.Errorf("running match was reset: p1.health=%d p2.score=%d", p1.Health, p2.Score)
	}
	if pub.count(EventStart) != 1 {
		t.Errorf("expected one start event, got %d", pub.count(EventStart))
	}
}

func TestEngineNormalizesUnknownTier(t *testing.T) {
	e := NewEngine(&mockPublisher{}, seeded())
	if err := e.AddPlayer("player1", PlayerInfo{Name: "A"}, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := e.AddPlayer("player2", PlayerInfo{Name: "B"}, Tier("warp")); err != nil {
		t.Fatalf("add: %v", err)
	}
	for _, p := range e.Snapshot().Players {
		if p.Tier != TierStandard {
			t.Errorf("%s tier = %q, want %q", p.ID, p.Tier, TierStandard)
		}
	}
	if c := e.Car("player2"); c.Stats != StatsFor(TierStandard) {
		t.Errorf("stats do not match tier: %+v", c.Stats)
	}
}

func TestEngineRemovePlayerFallsBackToWaiting(t *testing.T) {
	e, _ := newTestMatch(t)
	if err := e.RemovePlayer("player1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if e.Status() != StatusWaiting {
		t.Errorf("expected waiting, got %s", e.Status())
	}
	if err := e.Rename("player2", "player1"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	c := e.Car("player1")
	if c == nil || c.Info.Name != "B" {
		t.Fatalf("renamed car missing or wrong: %+v", c)
	}
	if c.Pos != DefaultSpawns[0].Pos {
		t.Errorf("remaining car should sit at seat one spawn, got %+v", c.Pos)
	}
	if err := e.RemovePlayer("nobody"); err != ErrPlayerUnknown {
		t.Errorf("expected ErrPlayerUnknown, got %v", err)
	}
}

func TestEngineTierAppliesOnNextSpawn(t *testing.T) {
	e, _ := newTestMatch(t)
	p1 := e.Car("player1")
	e.SelectTier("player1", TierElite)
	if p1.Tier != TierStandard {
		t.Errorf("tier changed mid-match to %s", p1.Tier)
	}
	e.Car("player2").ApplyDamage(1000)
	e.Step()
	e.Restart()
	if p1.Tier != TierElite || p1.Stats != StatsFor(TierElite) {
		t.Errorf("tier after restart = %s", p1.Tier)
	}
}

func TestEngineCustomizePassesThrough(t *testing.T) {
	e, _ := newTestMatch(t)
	e.Customize("player1", map[string]string{"color": "#ff0000"})
	snap := e.Snapshot()
	if snap.Players[0].Cosmetic["color"] != "#ff0000" {
		t.Errorf("cosmetic not in snapshot: %+v", snap.Players[0])
	}
}

func TestEngineBotInputIgnoresSetInput(t *testing.T) {
	pub := &mockPublisher{}
	e := NewEngine(pub, seeded())
	e.AddPlayer("player1", PlayerInfo{}, TierStandard)
	id, err := e.AddBot(DifficultyNormal, PersonalityAggressive, TierStandard)
	if err != nil {
		t.Fatalf("add bot: %v", err)
	}
	if id != "bot-1" {
		t.Errorf("bot id = %q", id)
	}
	e.SetInput(id, Input{Forward: true})
	if _, ok := e.inputs[id]; ok {
		t.Error("bot seat accepted socket input")
	}
	e.Start()
	e.Step()
	snap := e.Snapshot()
	if !snap.Players[1].Bot || snap.Players[1].BotState == "" {
		t.Errorf("bot flag/state missing: %+v", snap.Players[1])
	}
	if removed := e.RemoveBots(); len(removed) != 1 || removed[0] != id {
		t.Errorf("RemoveBots = %v", removed)
	}
	if e.PlayerCount() != 1 || e.Bot(id) != nil {
		t.Errorf("bot seat still present: count=%d", e.PlayerCount())
	}
	if again := e.RemoveBots(); len(again) != 0 {
		t.Errorf("second RemoveBots = %v", again)
	}
}

// Health and shield stay in [0, max] through a long bot-vs-bot brawl.
func TestEngineResourceBoundsHold(t *testing.T) {
	pub := &mockPublisher{}
	e := NewEngine(pub, seeded())
	e.AddBot(DifficultyExpert, PersonalityAggressive, TierElite)
	e.AddBot(DifficultyHard, PersonalityFlanker, TierStandard)
	e.Start()
	for i := 0; i < TickRate*60 && e.Status() == StatusPlaying; i++ {
		e.Step()
		living := 0
		for _, c := range e.Cars() {
			if c.Health < 0 || c.Health > c.MaxHealth {
				t.Fatalf("tick %d: %s health %d out of range", i, c.ID, c.Health)
			}
			if c.Shield < 0 || c.Shield > c.MaxShield {
				t.Fatalf("tick %d: %s shield %d out of range", i, c.ID, c.Shield)
			}
			if c.Alive {
				living++
			}
		}
		if living > MaxPlayers {
			t.Fatalf("tick %d: %d living cars", i, living)
		}
	}
	if pub.count(EventOver) > 1 {
		t.Errorf("more than one decision: %d", pub.count(EventOver))
	}
}
