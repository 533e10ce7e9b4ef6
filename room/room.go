package room

import (
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"arena-server/game"
	"arena-server/protocol"
)

const outboxSize = 256

// Conn is the room's view of a client socket. Sends must not block.
type Conn interface {
	ID() string
	SendText([]byte)
	SendBinary([]byte)
}

// Recorder receives operational events for offline analysis. Record must
// not block.
type Recorder interface {
	Record(kind, room string, fields map[string]any)
}

type seat struct {
	id   string
	conn Conn
}

// outbound is one queued delivery. Either ev is set, or msgType/payload.
type outbound struct {
	to      []Conn
	ev      *game.Event
	msgType string
	payload any
}

type publisherFunc func(game.Event)

func (f publisherFunc) Publish(ev game.Event) { f(ev) }

// Room runs one match on its own ticker goroutine. Every engine call happens
// with mu held, so inputs and ticks never interleave. Outbound traffic goes
// through a buffered outbox drained by a pump goroutine, so a slow socket
// never delays a tick.
type Room struct {
	Code      string
	CreatedAt time.Time

	log     zerolog.Logger
	metrics *Metrics
	rec     Recorder

	mu         sync.Mutex
	engine     *game.Engine
	seats      []seat // humans in seat order
	emptySince time.Time
	failed     bool
	closed     bool
	step       func()

	outbox   chan outbound
	stop     chan struct{}
	done     chan struct{}
	pumpDone chan struct{}
	stopOnce sync.Once
}

func newRoom(code string, rng game.Rand, log zerolog.Logger, metrics *Metrics, rec Recorder) *Room {
	now := time.Now()
	r := &Room{
		Code:       code,
		CreatedAt:  now,
		log:        log.With().Str("room", code).Logger(),
		metrics:    metrics,
		rec:        rec,
		emptySince: now,
		outbox:     make(chan outbound, outboxSize),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		pumpDone:   make(chan struct{}),
	}
	r.engine = game.NewEngine(publisherFunc(r.publish), rng)
	r.step = r.engine.Step
	go r.run()
	go r.pump()
	return r
}

// run is the room's tick loop
func (r *Room) run() {
	defer close(r.done)
	ticker := time.NewTicker(game.TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if !r.tick() {
				return
			}
		}
	}
}

// tick advances the match once. A panic marks the room failed and ends the
// loop; other rooms keep running.
func (r *Room) tick() (ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			r.failed = true
			r.log.Error().
				Interface("panic", p).
				Bytes("stack", debug.Stack()).
				Msg("room tick panicked, stopping room")
			r.metrics.roomFailed()
			r.enqueue(outbound{
				to:      r.humans(),
				msgType: protocol.MsgRoomError,
				payload: protocol.RoomErrorMsg{Message: "match aborted by a server error"},
			})
			r.record("room_failed", map[string]any{"panic": fmt.Sprint(p)})
			ok = false
		}
	}()

	start := time.Now()
	r.step()
	r.metrics.tick(time.Since(start))
	r.recordOutcomes(r.engine.LastHits(), r.engine.LastPickups())
	return true
}

// recordOutcomes logs kills and boon pickups of the last tick
func (r *Room) recordOutcomes(hits []game.HitResult, pickups []game.Pickup) {
	for _, h := range hits {
		if h.Killed {
			r.record("kill", map[string]any{"shooter": h.Shooter, "target": h.Target, "damage": h.Damage})
		}
	}
	for _, p := range pickups {
		r.record("boon_collected", map[string]any{"player": p.CarID, "kind": p.Kind})
	}
}

// Stop halts the tick loop, then drains the outbox. Safe to call twice.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		<-r.done
		r.mu.Lock()
		r.closed = true
		close(r.outbox)
		r.mu.Unlock()
		<-r.pumpDone
	})
}

// publish is the engine's sink. Called with mu held.
func (r *Room) publish(ev game.Event) {
	r.enqueue(outbound{to: r.humans(), ev: &ev})
}

// send queues a JSON event to one socket. Called with mu held.
func (r *Room) send(c Conn, msgType string, payload any) {
	r.enqueue(outbound{to: []Conn{c}, msgType: msgType, payload: payload})
}

// broadcast queues a JSON event to every seated human. Called with mu held.
func (r *Room) broadcast(msgType string, payload any) {
	r.enqueue(outbound{to: r.humans(), msgType: msgType, payload: payload})
}

func (r *Room) enqueue(o outbound) {
	if r.closed || len(o.to) == 0 {
		return
	}
	select {
	case r.outbox <- o:
	default:
		kind := o.msgType
		if o.ev != nil {
			kind = string(o.ev.Kind)
		}
		r.metrics.eventDropped(kind)
		r.log.Warn().Str("kind", kind).Msg("outbox full, dropping event")
	}
}

func (r *Room) humans() []Conn {
	out := make([]Conn, 0, len(r.seats))
	for _, s := range r.seats {
		out = append(out, s.conn)
	}
	return out
}

// pump encodes each queued event once and fans it out
func (r *Room) pump() {
	defer close(r.pumpDone)
	for o := range r.outbox {
		if o.ev != nil {
			r.deliverEvent(o.to, *o.ev)
			continue
		}
		b, err := protocol.Encode(o.msgType, o.payload)
		if err != nil {
			r.log.Error().Err(err).Str("type", o.msgType).Msg("encode failed")
			continue
		}
		for _, c := range o.to {
			c.SendText(b)
		}
	}
}

func (r *Room) deliverEvent(to []Conn, ev game.Event) {
	var (
		msgType string
		payload any
	)
	switch ev.Kind {
	case game.EventState:
		b, err := protocol.EncodeState(ev.State)
		if err != nil {
			r.log.Error().Err(err).Msg("state encode failed")
			return
		}
		for _, c := range to {
			c.SendBinary(b)
		}
		return
	case game.EventStart:
		msgType, payload = protocol.MsgGameStart, ev.State
		r.record("match_start", map[string]any{"players": playerIDs(ev.State)})
	case game.EventOver:
		msgType = protocol.MsgGameOver
		payload = protocol.GameOverMsg{Winner: ev.Winner, Draw: ev.Draw, State: ev.State}
		r.metrics.matchFinished(ev.Draw)
		r.record("match_end", map[string]any{"winner": ev.Winner, "draw": ev.Draw, "tick": ev.State.Tick})
	default:
		return
	}

	b, err := protocol.Encode(msgType, payload)
	if err != nil {
		r.log.Error().Err(err).Str("type", msgType).Msg("encode failed")
		return
	}
	for _, c := range to {
		c.SendText(b)
	}
}

func (r *Room) record(kind string, fields map[string]any) {
	if r.rec != nil {
		r.rec.Record(kind, r.Code, fields)
	}
}

func playerIDs(s *game.Snapshot) []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

// --- seat management, all called by the Manager ---

func (r *Room) seatIndex(c Conn) int {
	return slices.IndexFunc(r.seats, func(s seat) bool { return s.conn.ID() == c.ID() })
}

func (r *Room) usable() bool {
	return !r.failed && !r.closed
}

// join seats a human and returns its seat id
func (r *Room) join(c Conn, info game.PlayerInfo, tier game.Tier) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.usable() {
		return "", ErrRoomNotFound
	}
	if r.seatIndex(c) >= 0 {
		return "", ErrAlreadyInRoom
	}
	if r.engine.PlayerCount() >= game.MaxPlayers {
		return "", ErrRoomFull
	}
	id := fmt.Sprintf("player%d", len(r.seats)+1)
	if err := r.engine.AddPlayer(id, info, tier); err != nil {
		return "", fmt.Errorf("seat %s: %w", id, err)
	}
	r.seats = append(r.seats, seat{id: id, conn: c})
	r.emptySince = time.Time{}
	r.log.Info().Str("conn", c.ID()).Str("seat", id).Msg("player joined")
	return id, nil
}

// announceJoin tells every seated human the room's size and their seat id
func (r *Room) announceJoin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.seats {
		r.send(s.conn, protocol.MsgRoomJoined, protocol.RoomJoinedMsg{
			Code:     r.Code,
			Count:    len(r.seats),
			PlayerID: s.id,
		})
	}
}

// notify queues one JSON event to a seated socket
func (r *Room) notify(c Conn, msgType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send(c, msgType, payload)
}

// startIfReady starts a match when both seats are filled
func (r *Room) startIfReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.usable() || r.engine.PlayerCount() < game.MaxPlayers {
		return false
	}
	return r.engine.Start()
}

// leave unseats a human and returns how many humans remain. Bots never stay
// without a human opponent; a remaining human becomes player1 and waits.
func (r *Room) leave(c Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.seatIndex(c)
	if idx < 0 {
		return len(r.seats)
	}
	left := r.seats[idx].id
	r.seats = slices.Delete(r.seats, idx, idx+1)
	if r.closed {
		return len(r.seats)
	}
	if err := r.engine.RemovePlayer(left); err != nil {
		r.log.Warn().Err(err).Str("seat", left).Msg("remove player")
	}
	if bots := r.engine.RemoveBots(); len(bots) > 0 {
		r.log.Info().Strs("bots", bots).Msg("bots removed")
	}
	r.log.Info().Str("conn", c.ID()).Str("seat", left).Int("remaining", len(r.seats)).Msg("player left")

	if len(r.seats) == 0 {
		r.emptySince = time.Now()
		return 0
	}

	s := &r.seats[0]
	if s.id != "player1" {
		if err := r.engine.Rename(s.id, "player1"); err != nil {
			r.log.Error().Err(err).Str("seat", s.id).Msg("renumber seat")
		} else {
			s.id = "player1"
		}
	}
	r.send(s.conn, protocol.MsgPlayerDisconnected, protocol.PlayerDisconnectedMsg{PlayerID: left})
	r.send(s.conn, protocol.MsgRoomJoined, protocol.RoomJoinedMsg{Code: r.Code, Count: 1, PlayerID: s.id})
	r.send(s.conn, protocol.MsgWaiting, protocol.WaitingMsg{Message: "Opponent left. Waiting for another player..."})
	return len(r.seats)
}

// addBot fills the empty seat with an AI opponent and starts the match
func (r *Room) addBot(c Conn, d game.Difficulty, p game.Personality, tier game.Tier) (game.BotConfig, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seatIndex(c) < 0 || !r.usable() {
		return game.BotConfig{}, "", ErrNotInRoom
	}
	if r.engine.PlayerCount() >= game.MaxPlayers {
		return game.BotConfig{}, "", ErrRoomFull
	}
	id, err := r.engine.AddBot(d, p, tier)
	if err != nil {
		return game.BotConfig{}, "", fmt.Errorf("add bot: %w", err)
	}
	cfg := r.engine.Bot(id).Config
	r.log.Info().
		Str("bot", id).
		Str("difficulty", string(cfg.Difficulty)).
		Str("personality", string(cfg.Personality)).
		Msg("bot added")
	r.broadcast(protocol.MsgBotAdded, protocol.BotAddedMsg{
		BotID:       id,
		Difficulty:  string(cfg.Difficulty),
		Personality: string(cfg.Personality),
	})
	r.record("bot_added", map[string]any{"difficulty": cfg.Difficulty, "personality": cfg.Personality})
	r.engine.Start()
	return cfg, id, nil
}

// seatOf returns the seat id of a connection, or "" when not seated
func (r *Room) seatOf(c Conn) string {
	if i := r.seatIndex(c); i >= 0 {
		return r.seats[i].id
	}
	return ""
}

func (r *Room) input(c Conn, in game.Input) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id := r.seatOf(c); id != "" && r.usable() {
		r.engine.SetInput(id, in)
	}
}

func (r *Room) restart(c Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seatOf(c) == "" || !r.usable() {
		return ErrNotInRoom
	}
	if !r.engine.Restart() {
		return ErrMatchNotOver
	}
	return nil
}

func (r *Room) selectTier(c Conn, t game.Tier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.seatOf(c)
	if id == "" || !r.usable() {
		return ErrNotInRoom
	}
	return r.engine.SelectTier(id, t)
}

func (r *Room) customize(c Conn, name string, cosmetic map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.seatOf(c)
	if id == "" || !r.usable() {
		return ErrNotInRoom
	}
	if name != "" {
		r.engine.SetName(id, name)
	}
	if cosmetic != nil {
		return r.engine.Customize(id, cosmetic)
	}
	return nil
}

// Info summarizes the room for listings
func (r *Room) Info() protocol.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := protocol.RoomInfo{
		Code:   r.Code,
		Status: string(r.engine.Status()),
		HasBot: r.engine.HasBot(),
		Failed: r.failed,
	}
	for _, c := range r.engine.Cars() {
		info.Players = append(info.Players, c.ID)
	}
	return info
}

// Humans returns the number of seated humans
func (r *Room) Humans() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seats)
}

// expired reports whether the sweeper should remove the room
func (r *Room) expired(now time.Time, idle time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed {
		return true
	}
	return len(r.seats) == 0 && !r.emptySince.IsZero() && now.Sub(r.emptySince) >= idle
}

// members returns the connection ids seated in the room
func (r *Room) members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.seats))
	for _, s := range r.seats {
		ids = append(ids, s.conn.ID())
	}
	return ids
}
