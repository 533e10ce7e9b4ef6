package room

import (
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-server/game"
	"arena-server/protocol"
)

const waitTimeout = 2 * time.Second

type fakeConn struct {
	id     string
	text   chan []byte
	binary chan []byte
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{
		id:     id,
		text:   make(chan []byte, 256),
		binary: make(chan []byte, 256),
	}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) SendText(b []byte) {
	select {
	case f.text <- b:
	default:
	}
}

func (f *fakeConn) SendBinary(b []byte) {
	select {
	case f.binary <- b:
	default:
	}
}

// expect reads text frames until one of type t arrives
func expect(t *testing.T, c *fakeConn, msgType string) protocol.InEnvelope {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case b := <-c.text:
			env, err := protocol.Decode(b)
			require.NoError(t, err)
			if env.T == msgType {
				return env
			}
		case <-timeout:
			t.Fatalf("%s: timed out waiting for %s", c.id, msgType)
		}
	}
}

func expectPayload[T any](t *testing.T, c *fakeConn, msgType string) T {
	t.Helper()
	out, err := protocol.DecodePayload[T](expect(t, c, msgType))
	require.NoError(t, err)
	return out
}

type countingRecorder struct {
	n atomic.Int32
}

func (r *countingRecorder) Record(string, string, map[string]any) { r.n.Add(1) }

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.MaxRooms == 0 {
		opts.MaxRooms = 10
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = time.Minute
	}
	if opts.SweepInterval == 0 {
		opts.SweepInterval = time.Hour
	}
	opts.Logger = zerolog.Nop()
	var seed atomic.Int64
	opts.NewRand = func() game.Rand { return rand.New(rand.NewSource(seed.Add(1))) }
	m := NewManager(opts)
	t.Cleanup(m.shutdown)
	return m
}

func TestCreateAndJoinStartsMatch(t *testing.T) {
	rec := &countingRecorder{}
	m := newTestManager(t, Options{Recorder: rec})
	a, b := newFakeConn("a"), newFakeConn("b")

	code, err := m.CreateRoom(a, Profile{Name: "Alice"})
	require.NoError(t, err)
	created := expectPayload[protocol.RoomCreatedMsg](t, a, protocol.MsgRoomCreated)
	assert.Equal(t, code, created.Code)
	assert.Equal(t, "player1", created.PlayerID)
	expect(t, a, protocol.MsgWaiting)

	id, err := m.JoinRoom(b, strings.ToLower(code), Profile{Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "player2", id)

	joined := expectPayload[protocol.RoomJoinedMsg](t, b, protocol.MsgRoomJoined)
	assert.Equal(t, 2, joined.Count)
	assert.Equal(t, "player2", joined.PlayerID)

	for _, c := range []*fakeConn{a, b} {
		state := expectPayload[game.Snapshot](t, c, protocol.MsgGameStart)
		assert.Equal(t, game.StatusPlaying, state.Status)
		require.Len(t, state.Players, 2)
		assert.Equal(t, "Alice", state.Players[0].Name)
	}

	select {
	case frame := <-a.binary:
		var s game.Snapshot
		require.NoError(t, protocol.DecodeState(frame, &s))
		assert.Equal(t, uint64(0), s.Tick%game.BroadcastEvery)
		assert.Len(t, s.Players, 2)
	case <-time.After(waitTimeout):
		t.Fatal("no binary game_state frame")
	}
	assert.Eventually(t, func() bool { return rec.n.Load() > 0 }, waitTimeout, 10*time.Millisecond)
}

func TestJoinErrors(t *testing.T) {
	m := newTestManager(t, Options{})
	a, b, c := newFakeConn("a"), newFakeConn("b"), newFakeConn("c")

	_, err := m.JoinRoom(a, "NOPE22", Profile{})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	code, err := m.CreateRoom(a, Profile{})
	require.NoError(t, err)
	_, err = m.CreateRoom(a, Profile{})
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
	_, err = m.JoinRoom(a, code, Profile{})
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	_, err = m.JoinRoom(b, code, Profile{})
	require.NoError(t, err)
	_, err = m.JoinRoom(c, code, Profile{})
	assert.ErrorIs(t, err, ErrRoomFull)

	assert.ErrorIs(t, m.LeaveRoom(c), ErrNotInRoom)
	assert.ErrorIs(t, m.Restart(c), ErrNotInRoom)
	assert.ErrorIs(t, m.SelectTier(c, "elite"), ErrNotInRoom)
}

func TestTooManyRooms(t *testing.T) {
	m := newTestManager(t, Options{MaxRooms: 1})
	_, err := m.CreateRoom(newFakeConn("a"), Profile{})
	require.NoError(t, err)
	_, err = m.CreateRoom(newFakeConn("b"), Profile{})
	assert.ErrorIs(t, err, ErrTooManyRooms)
}

func TestRoomCodes(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, codeLen)
		for _, ch := range code {
			require.Contains(t, codeChars, string(ch))
		}
	}
}

func TestLeaveRenumbersRemainingPlayer(t *testing.T) {
	m := newTestManager(t, Options{})
	a, b := newFakeConn("a"), newFakeConn("b")
	code, err := m.CreateRoom(a, Profile{Name: "Alice"})
	require.NoError(t, err)
	_, err = m.JoinRoom(b, code, Profile{Name: "Bob"})
	require.NoError(t, err)
	expect(t, b, protocol.MsgGameStart)

	require.NoError(t, m.LeaveRoom(a))

	gone := expectPayload[protocol.PlayerDisconnectedMsg](t, b, protocol.MsgPlayerDisconnected)
	assert.Equal(t, "player1", gone.PlayerID)
	joined := expectPayload[protocol.RoomJoinedMsg](t, b, protocol.MsgRoomJoined)
	assert.Equal(t, "player1", joined.PlayerID)
	assert.Equal(t, 1, joined.Count)
	expect(t, b, protocol.MsgWaiting)

	info := m.Room(code).Info()
	assert.Equal(t, []string{"player1"}, info.Players)
	assert.Equal(t, string(game.StatusWaiting), info.Status)

	// a newcomer takes the second seat again
	c := newFakeConn("c")
	id, err := m.JoinRoom(c, code, Profile{})
	require.NoError(t, err)
	assert.Equal(t, "player2", id)
	expect(t, c, protocol.MsgGameStart)
}

func TestAddBotStartsMatch(t *testing.T) {
	m := newTestManager(t, Options{})
	a := newFakeConn("a")
	code, err := m.CreateRoom(a, Profile{})
	require.NoError(t, err)

	id, cfg, err := m.AddBot(a, BotRequest{Difficulty: "hard", Personality: "sniper"})
	require.NoError(t, err)
	assert.Equal(t, "bot-1", id)
	assert.Equal(t, game.DifficultyHard, cfg.Difficulty)
	assert.Equal(t, game.PersonalitySniper, cfg.Personality)

	added := expectPayload[protocol.BotAddedMsg](t, a, protocol.MsgBotAdded)
	assert.Equal(t, "bot-1", added.BotID)
	assert.Equal(t, "sniper", added.Personality)
	state := expectPayload[game.Snapshot](t, a, protocol.MsgGameStart)
	require.Len(t, state.Players, 2)
	assert.True(t, state.Players[1].Bot)

	_, _, err = m.AddBot(a, BotRequest{})
	assert.ErrorIs(t, err, ErrRoomFull)
	_, err = m.JoinRoom(newFakeConn("b"), code, Profile{})
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestAddBotDefaults(t *testing.T) {
	m := newTestManager(t, Options{})
	a := newFakeConn("a")
	_, err := m.CreateRoom(a, Profile{})
	require.NoError(t, err)

	_, cfg, err := m.AddBot(a, BotRequest{Difficulty: "impossible", Personality: "??"})
	require.NoError(t, err)
	assert.Equal(t, game.DifficultyNormal, cfg.Difficulty)
	assert.Contains(t, game.Personalities, cfg.Personality)

	_, _, err = m.AddBot(newFakeConn("z"), BotRequest{})
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestBotLeavesWithLastHuman(t *testing.T) {
	m := newTestManager(t, Options{})
	a := newFakeConn("a")
	code, err := m.CreateRoom(a, Profile{})
	require.NoError(t, err)
	_, _, err = m.AddBot(a, BotRequest{})
	require.NoError(t, err)
	require.True(t, m.Room(code).Info().HasBot)

	require.NoError(t, m.LeaveRoom(a))
	info := m.Room(code).Info()
	assert.False(t, info.HasBot)
	assert.Empty(t, info.Players)
	assert.Equal(t, 0, m.Room(code).Humans())
}

func TestInputReachesEngine(t *testing.T) {
	m := newTestManager(t, Options{})
	a, b := newFakeConn("a"), newFakeConn("b")
	code, err := m.CreateRoom(a, Profile{})
	require.NoError(t, err)
	_, err = m.JoinRoom(b, code, Profile{})
	require.NoError(t, err)
	r := m.Room(code)

	r.mu.Lock()
	start := r.engine.Car("player1").Pos
	r.mu.Unlock()

	m.Input(a, game.Input{Forward: true})
	assert.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.engine.Car("player1").Pos.Dist(start) > 1
	}, waitTimeout, 10*time.Millisecond)
}

func TestCustomizeAndSelectTier(t *testing.T) {
	m := newTestManager(t, Options{})
	a := newFakeConn("a")
	code, err := m.CreateRoom(a, Profile{Name: "Alice"})
	require.NoError(t, err)

	require.NoError(t, m.Customize(a, "Ace", map[string]string{"color": "#ff0000"}))
	require.NoError(t, m.SelectTier(a, "elite"))

	r := m.Room(code)
	r.mu.Lock()
	car := r.engine.Car("player1")
	assert.Equal(t, "Ace", car.Info.Name)
	assert.Equal(t, "#ff0000", car.Info.Cosmetic["color"])
	assert.Equal(t, game.TierStandard, car.Tier, "tier applies on the next start")
	r.mu.Unlock()

	_, err = m.JoinRoom(newFakeConn("b"), code, Profile{})
	require.NoError(t, err)
	state := expectPayload[game.Snapshot](t, a, protocol.MsgGameStart)
	assert.Equal(t, game.TierElite, state.Players[0].Tier)
}

func TestRestartPublishesStart(t *testing.T) {
	m := newTestManager(t, Options{})
	a, b := newFakeConn("a"), newFakeConn("b")
	code, err := m.CreateRoom(a, Profile{})
	require.NoError(t, err)
	_, err = m.JoinRoom(b, code, Profile{})
	require.NoError(t, err)
	expect(t, a, protocol.MsgGameStart)

	assert.ErrorIs(t, m.Restart(b), ErrMatchNotOver, "a running match cannot be restarted")

	r := m.Room(code)
	r.mu.Lock()
	r.engine.Car("player1").ApplyDamage(1000)
	r.mu.Unlock()
	over := expectPayload[protocol.GameOverMsg](t, a, protocol.MsgGameOver)
	assert.Equal(t, "player2", over.Winner)

	require.NoError(t, m.Restart(b))
	state := expectPayload[game.Snapshot](t, a, protocol.MsgGameStart)
	assert.Equal(t, game.StatusPlaying, state.Status)
}

type kindRecorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *kindRecorder) Record(kind, _ string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func TestRecordOutcomes(t *testing.T) {
	rec := &kindRecorder{}
	m := newTestManager(t, Options{Recorder: rec})
	code, err := m.CreateRoom(newFakeConn("a"), Profile{})
	require.NoError(t, err)

	m.Room(code).recordOutcomes(
		[]game.HitResult{
			{Shooter: "player1", Target: "player2", Damage: 8},
			{Shooter: "player1", Target: "player2", Damage: 35, Killed: true},
		},
		[]game.Pickup{{CarID: "player2", Kind: game.BoonHealth}},
	)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"kill", "boon_collected"}, rec.kinds)
}

func TestSweepRemovesIdleRooms(t *testing.T) {
	m := newTestManager(t, Options{IdleTimeout: time.Minute})
	a := newFakeConn("a")
	code, err := m.CreateRoom(a, Profile{})
	require.NoError(t, err)

	assert.Zero(t, m.Sweep(time.Now().Add(time.Hour)), "occupied rooms are never swept")

	require.NoError(t, m.LeaveRoom(a))
	assert.Zero(t, m.Sweep(time.Now()))
	assert.NotNil(t, m.Room(code))

	assert.Equal(t, 1, m.Sweep(time.Now().Add(time.Minute)))
	assert.Nil(t, m.Room(code))
	rooms, _ := m.Stats()
	assert.Zero(t, rooms)
}

func TestPanicInTickIsIsolated(t *testing.T) {
	m := newTestManager(t, Options{})
	a, b := newFakeConn("a"), newFakeConn("b")
	bad, err := m.CreateRoom(a, Profile{})
	require.NoError(t, err)
	good, err := m.CreateRoom(b, Profile{})
	require.NoError(t, err)

	r := m.Room(bad)
	r.mu.Lock()
	r.step = func() { panic("boom") }
	r.mu.Unlock()

	errMsg := expectPayload[protocol.RoomErrorMsg](t, a, protocol.MsgRoomError)
	assert.NotEmpty(t, errMsg.Message)
	assert.True(t, r.Info().Failed)

	// the healthy room keeps ticking through the failure
	_, _, err = m.AddBot(b, BotRequest{})
	require.NoError(t, err)
	select {
	case <-b.binary:
	case <-time.After(waitTimeout):
		t.Fatal("healthy room stopped broadcasting")
	}

	assert.Equal(t, 1, m.Sweep(time.Now()))
	assert.Nil(t, m.Room(bad))
	assert.Nil(t, m.RoomOf(a))
	assert.NotNil(t, m.Room(good))
}

func TestStopIsIdempotent(t *testing.T) {
	m := newTestManager(t, Options{})
	a := newFakeConn("a")
	code, err := m.CreateRoom(a, Profile{})
	require.NoError(t, err)
	r := m.Room(code)
	r.Stop()
	r.Stop()

	// calls after stop are ignored rather than panicking on the closed outbox
	m.Input(a, game.Input{Forward: true})
	assert.ErrorIs(t, r.restart(a), ErrNotInRoom)
}
