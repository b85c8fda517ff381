package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS upgrades the request and hands the connection to the broker. The
// connection id is minted here and stays opaque to the client until it shows
// up in roster broadcasts.
func serveWS(cfg *Config, b *Broker) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		c := &client{
			id:   uuid.NewString(),
			send: make(chan any, 8),
			conn: conn,
		}

		b.events <- brokerEvent{kind: evRegister, c: c}

		logf(cfg, "GAMES: Player %s connected from %s", c.id, realIP(r))

		go c.writePump()
		c.readPump(cfg, b)
	}
}

// readPump decodes inbound frames and forwards them to the broker. A frame
// that fails to decode is logged and skipped; only a transport error ends
// the connection, at which point the broker gets a single disconnect event.
func (c *client) readPump(cfg *Config, b *Broker) {
	defer func() {
		b.events <- brokerEvent{kind: evDisconnect, c: c}
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logf(cfg, "GAMES: Discarding malformed message from %s: %v", c.id, err)
			continue
		}

		b.events <- brokerEvent{kind: evMessage, c: c, msg: msg}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// qrHandler generates a PNG QR code linking straight to the join page for a
// game code.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameCode := ps.ByName("gamecode")
		if gameCode == "" {
			http.Error(w, "missing game code", http.StatusBadRequest)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/game?code=" + gameCode

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}
