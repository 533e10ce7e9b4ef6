package main

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"arena-server/game"
	"arena-server/protocol"
	"arena-server/room"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	maxNameLen        = 16
	maxCosmeticKeys   = 8
	maxCosmeticLen    = 32
	defaultName       = "Driver"
)

// frame is one queued outbound websocket message
type frame struct {
	binary bool
	data   []byte
}

// Client is one websocket connection. It satisfies room.Conn.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	id         string
	remoteAddr string
	identity   *Identity // set when the socket presented a valid token
	log        zerolog.Logger

	sendMu  sync.Mutex
	send    chan frame
	closed  bool
	dropped int

	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, identity *Identity) *Client {
	id := uuid.NewString()
	return &Client{
		hub:        hub,
		conn:       conn,
		id:         id,
		remoteAddr: remoteAddr,
		identity:   identity,
		log:        hub.log.With().Str("conn", id).Logger(),
		send:       make(chan frame, sendBufSize),
	}
}

func (c *Client) ID() string { return c.id }

// SendText queues a JSON frame, dropping it when the client is too slow
func (c *Client) SendText(data []byte) { c.enqueue(frame{data: data}) }

// SendBinary queues a binary frame, dropping it when the client is too slow
func (c *Client) SendBinary(data []byte) { c.enqueue(frame{binary: true, data: data}) }

func (c *Client) enqueue(f frame) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- f:
	default:
		c.dropped++
		if c.dropped%100 == 1 {
			c.log.Debug().Int("dropped", c.dropped).Msg("client too slow, dropping frames")
		}
	}
}

// closeSend ends WritePump. Later sends are ignored.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// sendJSON encodes and queues a typed event
func (c *Client) sendJSON(msgType string, payload any) {
	b, err := protocol.Encode(msgType, payload)
	if err != nil {
		c.log.Error().Err(err).Str("type", msgType).Msg("encode failed")
		return
	}
	c.SendText(b)
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("ws error")
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn().Str("ip", c.remoteAddr).Msg("rate limit exceeded, disconnecting")
			break
		}

		if msgType != websocket.TextMessage {
			c.log.Debug().Msg("dropping non-text frame")
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind := websocket.TextMessage
			if f.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, f.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes one inbound control message. Malformed messages are
// logged and dropped; they never close the socket.
func (c *Client) handleMessage(raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		c.log.Debug().Err(err).Msg("dropping malformed message")
		return
	}

	switch env.T {
	case protocol.MsgInput:
		if msg, ok := decode[protocol.InputMsg](c, env); ok {
			c.hub.rooms.Input(c, toInput(msg))
		}
	case protocol.MsgRestart:
		c.roomResult(c.hub.rooms.Restart(c))
	case protocol.MsgAddBot:
		if msg, ok := decode[protocol.AddBotMsg](c, env); ok {
			c.handleAddBot(msg)
		}
	case protocol.MsgSelectTier:
		if msg, ok := decode[protocol.SelectTierMsg](c, env); ok {
			c.roomResult(c.hub.rooms.SelectTier(c, msg.Tier))
		}
	case protocol.MsgCustomize:
		if msg, ok := decode[protocol.CustomizeMsg](c, env); ok {
			c.handleCustomize(msg)
		}
	case protocol.MsgCreateRoom:
		if msg, ok := decode[protocol.CreateRoomMsg](c, env); ok {
			_, err := c.hub.rooms.CreateRoom(c, c.profile(msg.Name, msg.Tier))
			c.roomResult(err)
		}
	case protocol.MsgJoinRoom:
		if msg, ok := decode[protocol.JoinRoomMsg](c, env); ok {
			_, err := c.hub.rooms.JoinRoom(c, msg.Code, c.profile(msg.Name, msg.Tier))
			c.roomResult(err)
		}
	case protocol.MsgLeaveRoom:
		c.roomResult(c.hub.rooms.LeaveRoom(c))
	case protocol.MsgFindMatch:
		if msg, ok := decode[protocol.FindMatchMsg](c, env); ok {
			c.roomResult(c.hub.rooms.FindMatch(c, c.profile(msg.Name, msg.Tier)))
		}
	case protocol.MsgCancelMatch:
		c.hub.rooms.CancelMatch(c)
	default:
		c.log.Debug().Str("type", env.T).Msg("unknown message type")
	}
}

func decode[T any](c *Client, env protocol.InEnvelope) (T, bool) {
	msg, err := protocol.DecodePayload[T](env)
	if err != nil {
		c.log.Debug().Err(err).Msg("dropping malformed payload")
		return msg, false
	}
	return msg, true
}

// roomResult reports a coordinator error to this socket
func (c *Client) roomResult(err error) {
	if err == nil {
		return
	}
	c.sendJSON(protocol.MsgRoomError, protocol.RoomErrorMsg{Message: err.Error()})
}

func (c *Client) handleAddBot(msg protocol.AddBotMsg) {
	_, _, err := c.hub.rooms.AddBot(c, room.BotRequest{
		Difficulty:  msg.Difficulty,
		Personality: msg.Personality,
		Tier:        msg.Tier,
	})
	if err != nil {
		c.sendJSON(protocol.MsgError, protocol.ErrorMsg{Message: "cannot add bot: " + err.Error()})
	}
}

func (c *Client) handleCustomize(msg protocol.CustomizeMsg) {
	name := ""
	if msg.Name != "" && c.identity == nil {
		name = sanitizeName(msg.Name)
	}
	err := c.hub.rooms.Customize(c, name, sanitizeCosmetic(msg.Cosmetic))
	if errors.Is(err, room.ErrNotInRoom) {
		c.roomResult(err)
	}
}

// profile builds the seat profile. A signed identity overrides the
// requested name and supplies the default tier.
func (c *Client) profile(name, tier string) room.Profile {
	if c.identity != nil {
		name = c.identity.Name
		if tier == "" {
			tier = c.identity.Tier
		}
	}
	return room.Profile{Name: sanitizeName(name), Tier: game.ParseTier(tier)}
}

func toInput(msg protocol.InputMsg) game.Input {
	return game.Input{
		Forward:     msg.Forward,
		Backward:    msg.Backward,
		Left:        msg.Left,
		Right:       msg.Right,
		Boost:       msg.Boost,
		FireHeavy:   msg.FireHeavy,
		FireLight:   msg.FireLight,
		TargetAngle: msg.Angle,
	}
}

// sanitizeName strips control characters and clamps the length
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	if runes := []rune(name); len(runes) > maxNameLen {
		name = strings.TrimSpace(string(runes[:maxNameLen]))
	}
	if name == "" {
		return defaultName
	}
	return name
}

// sanitizeCosmetic bounds a client-supplied cosmetic map
func sanitizeCosmetic(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, min(len(in), maxCosmeticKeys))
	for k, v := range in {
		if len(out) >= maxCosmeticKeys {
			break
		}
		if k == "" || len(k) > maxCosmeticLen || len(v) > maxCosmeticLen {
			continue
		}
		out[k] = v
	}
	return out
}
