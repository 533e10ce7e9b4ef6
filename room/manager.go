package room

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"arena-server/game"
	"arena-server/protocol"
)

const (
	codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLen   = 6
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrNotInRoom     = errors.New("not in a room")
	ErrTooManyRooms  = errors.New("too many active rooms")
	ErrMatchNotOver  = errors.New("match is not over")
)

// Options configures a Manager
type Options struct {
	MaxRooms      int
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Logger        zerolog.Logger
	Metrics       *Metrics
	Recorder      Recorder
	// NewRand seeds each room's engine. Defaults to game.NewRand.
	NewRand func() game.Rand
}

// Profile is what a player brings into a seat
type Profile struct {
	Name string
	Tier game.Tier
}

func (p Profile) info() game.PlayerInfo {
	return game.PlayerInfo{Name: p.Name}
}

type queued struct {
	conn    Conn
	profile Profile
}

// Manager owns the room registry, seat membership and the matchmaking
// queue. One mutex guards all three; per-room work then runs under the
// room's own lock.
type Manager struct {
	opts Options
	log  zerolog.Logger

	mu      sync.Mutex
	rooms   map[string]*Room
	members map[string]*Room // conn id -> room
	queue   []queued
}

// NewManager creates a Manager. Call Run to start the idle sweeper.
func NewManager(opts Options) *Manager {
	if opts.NewRand == nil {
		opts.NewRand = func() game.Rand { return game.NewRand() }
	}
	return &Manager{
		opts:    opts,
		log:     opts.Logger.With().Str("component", "rooms").Logger(),
		rooms:   make(map[string]*Room),
		members: make(map[string]*Room),
	}
}

// Run sweeps idle and failed rooms until ctx is done, then stops every room
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// Sweep removes rooms that failed or sat empty past the idle timeout. The
// room's tick loop is stopped before it leaves the registry.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for code, r := range m.rooms {
		if !r.expired(now, m.opts.IdleTimeout) {
			continue
		}
		for _, id := range r.members() {
			delete(m.members, id)
		}
		r.Stop()
		delete(m.rooms, code)
		m.opts.Metrics.roomClosed()
		removed++
		m.log.Info().Str("room", code).Msg("room removed")
	}
	return removed
}

func (m *Manager) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, r := range m.rooms {
		r.Stop()
		delete(m.rooms, code)
		m.opts.Metrics.roomClosed()
	}
	clear(m.members)
	m.opts.Metrics.queueChanged(-len(m.queue))
	m.queue = nil
}

func generateCode() (string, error) {
	b := make([]byte, codeLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("room code: %w", err)
	}
	// 256 is a multiple of len(codeChars), so the draw is unbiased
	for i := range b {
		b[i] = codeChars[int(b[i])%len(codeChars)]
	}
	return string(b), nil
}

// newRoomLocked registers an empty room under a fresh code
func (m *Manager) newRoomLocked() (*Room, error) {
	if len(m.rooms) >= m.opts.MaxRooms {
		return nil, ErrTooManyRooms
	}
	var code string
	for {
		c, err := generateCode()
		if err != nil {
			return nil, err
		}
		if _, exists := m.rooms[c]; !exists {
			code = c
			break
		}
	}
	r := newRoom(code, m.opts.NewRand(), m.opts.Logger, m.opts.Metrics, m.opts.Recorder)
	m.rooms[code] = r
	m.opts.Metrics.roomOpened()
	m.log.Info().Str("room", code).Msg("room created")
	return r, nil
}

// dequeueLocked drops conn from the matchmaking queue
func (m *Manager) dequeueLocked(conn Conn) bool {
	for i, q := range m.queue {
		if q.conn.ID() == conn.ID() {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			m.opts.Metrics.queueChanged(-1)
			return true
		}
	}
	return false
}

// CreateRoom opens a room and seats conn as player1
func (m *Manager) CreateRoom(conn Conn, p Profile) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[conn.ID()] != nil {
		return "", ErrAlreadyInRoom
	}
	r, err := m.newRoomLocked()
	if err != nil {
		return "", err
	}
	id, err := r.join(conn, p.info(), p.Tier)
	if err != nil {
		return "", err
	}
	m.dequeueLocked(conn)
	m.members[conn.ID()] = r
	r.notify(conn, protocol.MsgRoomCreated, protocol.RoomCreatedMsg{Code: r.Code, PlayerID: id})
	r.notify(conn, protocol.MsgWaiting, protocol.WaitingMsg{Message: "Waiting for an opponent..."})
	return r.Code, nil
}

// JoinRoom seats conn in the room with code and starts the match when full
func (m *Manager) JoinRoom(conn Conn, code string, p Profile) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[conn.ID()] != nil {
		return "", ErrAlreadyInRoom
	}
	r, ok := m.rooms[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return "", ErrRoomNotFound
	}
	id, err := r.join(conn, p.info(), p.Tier)
	if err != nil {
		return "", err
	}
	m.dequeueLocked(conn)
	m.members[conn.ID()] = r
	r.announceJoin()
	r.startIfReady()
	return id, nil
}

// LeaveRoom unseats conn. Empty rooms linger until the sweeper removes them.
func (m *Manager) LeaveRoom(conn Conn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.members[conn.ID()]
	if r == nil {
		return ErrNotInRoom
	}
	delete(m.members, conn.ID())
	r.leave(conn)
	return nil
}

// Disconnect releases everything held by a closed socket
func (m *Manager) Disconnect(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dequeueLocked(conn)
	if r := m.members[conn.ID()]; r != nil {
		delete(m.members, conn.ID())
		r.leave(conn)
	}
}

// RoomOf returns the room conn is seated in, or nil
func (m *Manager) RoomOf(conn Conn) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[conn.ID()]
}

// Room returns the room with code, or nil
func (m *Manager) Room(code string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[strings.ToUpper(code)]
}

// Rooms lists live rooms ordered by creation time
func (m *Manager) Rooms() []protocol.RoomInfo {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })
	out := make([]protocol.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	return out
}

// Stats returns the number of live rooms and queued sockets
func (m *Manager) Stats() (rooms, queued int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms), len(m.queue)
}

// --- per-room routing ---

func (m *Manager) Input(conn Conn, in game.Input) {
	if r := m.RoomOf(conn); r != nil {
		r.input(conn, in)
	}
}

func (m *Manager) Restart(conn Conn) error {
	r := m.RoomOf(conn)
	if r == nil {
		return ErrNotInRoom
	}
	return r.restart(conn)
}

// BotRequest carries the optional settings of an add_bot message
type BotRequest struct {
	Difficulty  string
	Personality string
	Tier        string
}

// AddBot seats an AI opponent next to a lone human and starts the match.
// An unknown difficulty falls back to normal; an unknown or missing
// personality is drawn at random.
func (m *Manager) AddBot(conn Conn, req BotRequest) (string, game.BotConfig, error) {
	r := m.RoomOf(conn)
	if r == nil {
		return "", game.BotConfig{}, ErrNotInRoom
	}
	p, _ := game.ParsePersonality(req.Personality)
	cfg, id, err := r.addBot(conn, game.ParseDifficulty(req.Difficulty), p, game.ParseTier(req.Tier))
	return id, cfg, err
}

func (m *Manager) SelectTier(conn Conn, tier string) error {
	r := m.RoomOf(conn)
	if r == nil {
		return ErrNotInRoom
	}
	return r.selectTier(conn, game.ParseTier(tier))
}

func (m *Manager) Customize(conn Conn, name string, cosmetic map[string]string) error {
	r := m.RoomOf(conn)
	if r == nil {
		return ErrNotInRoom
	}
	return r.customize(conn, name, cosmetic)
}
