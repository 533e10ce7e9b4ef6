package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"

	"arena-server/protocol"
)

const qrSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(v)
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		identity, err := hub.auth.Authenticate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		ip := extractIP(r)
		if !hub.Admit(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.TrackDisconnect(ip)
			hub.log.Warn().Err(err).Str("ip", ip).Msg("upgrade error")
			return
		}

		client := NewClient(hub, conn, ip, identity)
		if !hub.join(client) {
			hub.TrackDisconnect(ip)
			conn.Close()
			return
		}
		client.sendJSON(protocol.MsgConnected, protocol.ConnectedMsg{PlayerID: client.id})

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		rooms, queued := hub.rooms.Stats()
		writeJSON(w, map[string]any{
			"status":  "ok",
			"rooms":   rooms,
			"queued":  queued,
			"clients": hub.ClientCount(),
		})
	})

	mux.HandleFunc("GET /rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, hub.rooms.Rooms())
	})

	// Invite QR code pointing at the room's join link
	mux.HandleFunc("GET /rooms/{code}/qr", func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(r.PathValue("code"))
		if hub.rooms.Room(code) == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		png, err := qrcode.Encode(inviteURL(hub.publicURL, r, code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		if hub.analytics == nil {
			http.Error(w, "analytics disabled", http.StatusNotFound)
			return
		}
		since := time.Now().Add(-24 * time.Hour)
		counts, err := hub.analytics.EventCounts(since)
		if err == nil {
			var wins, draws int
			wins, draws, err = hub.analytics.MatchOutcomes(since)
			if err == nil {
				writeJSON(w, map[string]any{"events": counts, "wins": wins, "draws": draws})
				return
			}
		}
		hub.log.Error().Err(err).Msg("stats query failed")
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
	})

	return mux
}

// inviteURL builds the link a phone opens to join a room
func inviteURL(publicURL string, r *http.Request, code string) string {
	base := strings.TrimSuffix(publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?room=" + url.QueryEscape(code)
}

// errServerClosed reports whether err is the normal result of Shutdown
func errServerClosed(err error) bool {
	return err == nil || errors.Is(err, http.ErrServerClosed)
}
