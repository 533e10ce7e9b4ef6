package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const (
	analyticsBufSize = 1024
	analyticsBatch   = 50
	// fixed width so stored timestamps sort as text
	timeLayout       = "2006-01-02 15:04:05.000"
)

// AnalyticsEvent is a single operational event: room lifecycle, match
// outcomes and connection churn
type AnalyticsEvent struct {
	Kind      string
	Room      string
	Data      string // JSON metadata (optional)
	Timestamp time.Time
}

// Analytics persists events to sqlite with batched background writes
type Analytics struct {
	conn   *sql.DB
	log    zerolog.Logger
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup
	flush  time.Duration

	mu      sync.Mutex
	dropped int
}

// OpenAnalytics opens (or creates) the event database and starts the writer
func OpenAnalytics(path string, flushInterval time.Duration, log zerolog.Logger) (*Analytics, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}

	a := &Analytics{
		conn:   conn,
		log:    log.With().Str("component", "analytics").Logger(),
		events: make(chan AnalyticsEvent, analyticsBufSize),
		stop:   make(chan struct{}),
		flush:  flushInterval,
	}
	a.wg.Add(1)
	go a.writer()
	return a, nil
}

func migrate(conn *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		room TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_kind_time ON events(kind, created_at);
	`
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate analytics db: %w", err)
	}
	return nil
}

// Record enqueues an event without blocking. It satisfies room.Recorder.
func (a *Analytics) Record(kind, room string, fields map[string]any) {
	var data string
	if len(fields) > 0 {
		b, err := json.Marshal(fields)
		if err != nil {
			a.log.Warn().Err(err).Str("kind", kind).Msg("unencodable event fields")
		} else {
			data = string(b)
		}
	}
	select {
	case a.events <- AnalyticsEvent{Kind: kind, Room: room, Data: data, Timestamp: time.Now().UTC()}:
	default:
		// buffer full, drop the event rather than stall a room
		a.mu.Lock()
		a.dropped++
		a.mu.Unlock()
	}
}

// Dropped returns how many events were discarded on a full buffer
func (a *Analytics) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Stop drains pending events, then closes the database
func (a *Analytics) Stop() error {
	close(a.stop)
	a.wg.Wait()
	return a.conn.Close()
}

// writer is the background goroutine that batches events into the database
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, analyticsBatch)
	ticker := time.NewTicker(a.flush)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatch {
				a.write(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.write(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					a.write(batch)
					return
				}
			}
		}
	}
}

func (a *Analytics) write(events []AnalyticsEvent) {
	if len(events) == 0 {
		return
	}
	if err := a.insert(events); err != nil {
		a.log.Error().Err(err).Int("events", len(events)).Msg("flush failed")
	}
}

func (a *Analytics) insert(events []AnalyticsEvent) error {
	tx, err := a.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (kind, room, data, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, evt := range events {
		room := sql.NullString{String: evt.Room, Valid: evt.Room != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Kind, room, data, evt.Timestamp.Format(timeLayout)); err != nil {
			return fmt.Errorf("insert %s: %w", evt.Kind, err)
		}
	}
	return tx.Commit()
}

// EventCounts returns counts of each event kind recorded since t
func (a *Analytics) EventCounts(since time.Time) (map[string]int, error) {
	rows, err := a.conn.Query(`
		SELECT kind, COUNT(*) FROM events
		WHERE created_at >= ?
		GROUP BY kind
	`, since.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		result[kind] = count
	}
	return result, rows.Err()
}

// MatchOutcomes returns how many recorded matches ended in a win or a draw
func (a *Analytics) MatchOutcomes(since time.Time) (wins, draws int, err error) {
	err = a.conn.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN json_extract(data, '$.draw') THEN 0 ELSE 1 END), 0),
			COALESCE(SUM(CASE WHEN json_extract(data, '$.draw') THEN 1 ELSE 0 END), 0)
		FROM events
		WHERE kind = 'match_end' AND created_at >= ?
	`, since.UTC().Format(timeLayout)).Scan(&wins, &draws)
	return wins, draws, err
}
