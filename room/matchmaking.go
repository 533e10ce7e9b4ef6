package room

import "arena-server/protocol"

// FindMatch pairs conn with the longest-waiting socket, or queues it. A
// paired socket never stays in the queue, and a socket is never paired
// with itself.
func (m *Manager) FindMatch(conn Conn, p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[conn.ID()] != nil {
		return ErrAlreadyInRoom
	}
	for i, q := range m.queue {
		if q.conn.ID() == conn.ID() {
			m.sendJSON(conn, protocol.MsgMatchmakingStatus, protocol.MatchmakingStatusMsg{
				Status:   protocol.StatusSearching,
				Position: i + 1,
			})
			return nil
		}
	}

	if len(m.queue) == 0 {
		m.queue = append(m.queue, queued{conn: conn, profile: p})
		m.opts.Metrics.queueChanged(1)
		m.log.Debug().Str("conn", conn.ID()).Msg("queued for matchmaking")
		m.sendJSON(conn, protocol.MsgMatchmakingStatus, protocol.MatchmakingStatusMsg{
			Status:   protocol.StatusSearching,
			Position: len(m.queue),
		})
		return nil
	}

	// the opponent stays queued if no room can be opened
	r, err := m.newRoomLocked()
	if err != nil {
		return err
	}
	other := m.queue[0]
	m.queue = m.queue[1:]
	m.opts.Metrics.queueChanged(-1)

	for _, q := range []queued{other, {conn: conn, profile: p}} {
		id, err := r.join(q.conn, q.profile.info(), q.profile.Tier)
		if err != nil {
			return err
		}
		m.members[q.conn.ID()] = r
		r.notify(q.conn, protocol.MsgMatchFound, protocol.MatchFoundMsg{Code: r.Code, PlayerID: id})
	}
	m.log.Info().Str("room", r.Code).Str("a", other.conn.ID()).Str("b", conn.ID()).Msg("match found")
	r.announceJoin()
	r.startIfReady()
	return nil
}

// CancelMatch removes conn from the queue and confirms the cancellation
func (m *Manager) CancelMatch(conn Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := m.dequeueLocked(conn)
	m.sendJSON(conn, protocol.MsgMatchmakingStatus, protocol.MatchmakingStatusMsg{Status: protocol.StatusCancelled})
	return removed
}

// Queued reports whether conn is waiting for a match
func (m *Manager) Queued(conn Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queue {
		if q.conn.ID() == conn.ID() {
			return true
		}
	}
	return false
}

// sendJSON writes straight to a socket that has no room outbox
func (m *Manager) sendJSON(conn Conn, msgType string, payload any) {
	b, err := protocol.Encode(msgType, payload)
	if err != nil {
		m.log.Error().Err(err).Str("type", msgType).Msg("encode failed")
		return
	}
	conn.SendText(b)
}
