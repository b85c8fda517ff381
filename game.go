// Impostorbox game broker
//
// Each game session holds a fixed roster of 5 player slots and is identified
// by a short shareable code. Players connect over a websocket, create or join
// a session, and when the round starts every connected player privately
// receives a secret word. Exactly one of them, the impostor, receives a
// near-identical misspelled variant of the same word.
//
// Features:
// - WebSocket endpoint shared by all games: /game/ws
// - Sessions created on demand via a createGame message, joined by code
// - Codes are 5-char uppercase alphanumeric, matched case-insensitively
// - Roster is always exactly 5 slots; vacant slots keep placeholder names
// - Secret words are assigned only when at least 2 players are connected
// - Public broadcasts never include secret words; those go out privately
// - Disconnects free the slot but keep the name until the next occupant
// - Optional idle-session reaping behind --session-timeout
// - In-browser QR button to share a join link, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const rosterSize = 5

// playerSlot is one of the 5 fixed positions in a session roster. The
// password field is server-side only; clients see it exclusively through
// their own yourPassword message.
type playerSlot struct {
	ID         string
	Name       string
	Connected  bool
	Password   string
	IsImpostor bool
}

// playerView is the public shape of a slot, broadcast to every client in a
// session. It deliberately carries no password.
type playerView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Connected  bool   `json:"connected"`
	IsImpostor bool   `json:"isImpostor"`
}

// Session is one game round. Sessions are never explicitly deleted unless
// the idle reaper is enabled.
type Session struct {
	Code        string
	Players     [rosterSize]playerSlot
	GameStarted bool
	HostID      string

	lastActive time.Time
}

func (s *Session) view() []playerView {
	players := make([]playerView, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, playerView{
			ID:         p.ID,
			Name:       p.Name,
			Connected:  p.Connected,
			IsImpostor: p.IsImpostor,
		})
	}
	return players
}

// findOpenSlot returns the index of the first vacant slot, or -1 when the
// session is full.
func (s *Session) findOpenSlot() int {
	for i := range s.Players {
		if !s.Players[i].Connected {
			return i
		}
	}
	return -1
}

// occupySlot overwrites the slot with a fresh record, discarding any stale
// password or impostor state left behind by a previous occupant.
func (s *Session) occupySlot(index int, connID, name string) {
	s.Players[index] = playerSlot{
		ID:        connID,
		Name:      name,
		Connected: true,
	}
}

// markDisconnected frees the slot held by connID. The name, password and
// impostor flag stay behind until the slot is reoccupied or the game is
// reset; only the occupant id and connected flag are cleared.
func (s *Session) markDisconnected(connID string) {
	if connID == "" {
		return
	}
	for i := range s.Players {
		if s.Players[i].ID == connID {
			s.Players[i].Connected = false
			s.Players[i].ID = ""
			break
		}
	}
}

// reset clears round state for connected slots and returns the session to
// the lobby. Disconnected slots keep whatever stale state they hold.
func (s *Session) reset() {
	s.GameStarted = false
	for i := range s.Players {
		if s.Players[i].Connected {
			s.Players[i].Password = ""
			s.Players[i].IsImpostor = false
		}
	}
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}

// client is one live websocket connection, registered with the broker under
// a unique id and optionally bound to a session code.
type client struct {
	id      string
	session string
	send    chan any
	conn    *websocket.Conn
}

// Messages coming from clients
type ClientMessage struct {
	Type       string `json:"type"`                 // "createGame", "joinGame", "startGame", "resetGame"
	GameCode   string `json:"gameCode,omitempty"`   // joinGame / startGame / resetGame
	PlayerName string `json:"playerName,omitempty"` // joinGame
}

// Messages sent to clients
type GameCreatedMessage struct {
	Type     string       `json:"type"` // "gameCreated"
	GameCode string       `json:"gameCode"`
	Players  []playerView `json:"players"`
}

// ErrorMessage is sent only to the requesting client.
type ErrorMessage struct {
	Type    string `json:"type"`    // "error"
	Message string `json:"message"` // user-facing text
}

type PlayerJoinedMessage struct {
	Type          string       `json:"type"` // "playerJoined"
	Players       []playerView `json:"players"`
	NewPlayerID   string       `json:"newPlayerId"`
	NewPlayerSlot int          `json:"newPlayerSlot"`
}

type GameStartedMessage struct {
	Type    string       `json:"type"` // "gameStarted"
	Players []playerView `json:"players"`
}

// YourPasswordMessage carries a single player's secret word and is only ever
// delivered privately.
type YourPasswordMessage struct {
	Type        string `json:"type"` // "yourPassword"
	Password    string `json:"password"`
	IsImpostor  bool   `json:"isImpostor"`
	PlayerIndex int    `json:"playerIndex"`
}

type GameResetMessage struct {
	Type    string       `json:"type"` // "gameReset"
	Players []playerView `json:"players"`
}

type PlayerLeftMessage struct {
	Type    string       `json:"type"` // "playerLeft"
	Players []playerView `json:"players"`
}

type eventKind int

const (
	evRegister eventKind = iota
	evMessage
	evDisconnect
)

type brokerEvent struct {
	kind eventKind
	c    *client
	msg  ClientMessage
}

// Broker owns every session and every live connection. All mutation happens
// on the single run goroutine, which drains the events channel strictly in
// arrival order, so no handler ever interleaves with another and no locks
// are needed around the session or connection maps.
type Broker struct {
	cfg      *Config
	sessions map[string]*Session
	conns    map[string]*client
	events   chan brokerEvent

	// Swappable for deterministic tests.
	codeFunc func() string
	randFunc func(int) int
}

func newBroker(cfg *Config) *Broker {
	return &Broker{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		conns:    make(map[string]*client),
		events:   make(chan brokerEvent, 64),
		codeFunc: newGameCode,
		randFunc: randomIndex,
	}
}

// run drains broker events until ctx is cancelled. The idle reaper ticks
// inside the same select, so eviction is serialized with request handling.
func (b *Broker) run(ctx context.Context) {
	var reap <-chan time.Time
	if b.cfg.sessionTimeout > 0 {
		ticker := time.NewTicker(b.cfg.sessionTimeout / 2)
		defer ticker.Stop()
		reap = ticker.C
	}

	for {
		select {
		case ev := <-b.events:
			b.dispatch(ev)
		case <-reap:
			b.reapIdle()
		case <-ctx.Done():
			return
		}
	}
}

func (b *Broker) dispatch(ev brokerEvent) {
	switch ev.kind {
	case evRegister:
		b.conns[ev.c.id] = ev.c

	case evDisconnect:
		b.handleDisconnect(ev.c)

	case evMessage:
		switch ev.msg.Type {
		case "createGame":
			b.handleCreate(ev.c)
		case "joinGame":
			b.handleJoin(ev.c, ev.msg)
		case "startGame":
			b.handleStart(ev.c, ev.msg)
		case "resetGame":
			b.handleReset(ev.c, ev.msg)
		default:
			// ignore unknown types
		}
	}
}

// bindSession associates a connection with a session code. Unknown ids are
// ignored.
func (b *Broker) bindSession(id, code string) {
	if c, ok := b.conns[id]; ok {
		c.session = code
	}
}

// session resolves a game code case-insensitively.
func (b *Broker) session(code string) *Session {
	return b.sessions[strings.ToUpper(strings.TrimSpace(code))]
}

// createSession builds a fresh 5-slot session and stores it under a newly
// generated code. Codes are not checked for collisions; a colliding write
// silently replaces the older session, as the game's scale never made this
// worth guarding against.
func (b *Broker) createSession(hostID string) *Session {
	s := &Session{
		Code:       b.codeFunc(),
		HostID:     hostID,
		lastActive: time.Now(),
	}
	for i := range s.Players {
		s.Players[i] = playerSlot{Name: fmt.Sprintf("Player %d", i+1)}
	}
	b.sessions[s.Code] = s
	return s
}

func (b *Broker) handleCreate(c *client) {
	s := b.createSession(c.id)
	b.bindSession(c.id, s.Code)

	logf(b.cfg, "GAMES: Player %s created game %s", c.id, s.Code)

	b.sendPrivate(c.id, GameCreatedMessage{
		Type:     "gameCreated",
		GameCode: s.Code,
		Players:  s.view(),
	})
}

func (b *Broker) handleJoin(c *client, msg ClientMessage) {
	s := b.session(msg.GameCode)
	if s == nil {
		b.sendPrivate(c.id, ErrorMessage{
			Type:    "error",
			Message: "No game found with that code",
		})
		return
	}

	slot := s.findOpenSlot()
	if slot < 0 {
		b.sendPrivate(c.id, ErrorMessage{
			Type:    "error",
			Message: "Game is already full",
		})
		return
	}

	name := msg.PlayerName
	if name == "" {
		name = fmt.Sprintf("Player %d", slot+1)
	}

	s.occupySlot(slot, c.id, name)
	s.touch()
	b.bindSession(c.id, s.Code)

	logf(b.cfg, "GAMES: Player %q joined game %s in slot %d", name, s.Code, slot)

	b.broadcastPublic(s.Code, PlayerJoinedMessage{
		Type:          "playerJoined",
		Players:       s.view(),
		NewPlayerID:   c.id,
		NewPlayerSlot: slot,
	})
}

// handleStart assigns secrets and announces the round. An unknown code is a
// silent no-op, unlike join; the asymmetry is long-standing observable
// behavior that clients rely on.
func (b *Broker) handleStart(c *client, msg ClientMessage) {
	s := b.session(msg.GameCode)
	if s == nil {
		return
	}

	b.assignSecrets(s)
	s.touch()

	logf(b.cfg, "GAMES: Game %s started by %s", s.Code, c.id)

	b.broadcastPublic(s.Code, GameStartedMessage{
		Type:    "gameStarted",
		Players: s.view(),
	})

	// Each connected player learns only their own word.
	for i := range s.Players {
		p := &s.Players[i]
		if !p.Connected || p.ID == "" {
			continue
		}
		b.sendPrivate(p.ID, YourPasswordMessage{
			Type:        "yourPassword",
			Password:    p.Password,
			IsImpostor:  p.IsImpostor,
			PlayerIndex: i,
		})
	}
}

func (b *Broker) handleReset(c *client, msg ClientMessage) {
	s := b.session(msg.GameCode)
	if s == nil {
		return
	}

	s.reset()
	s.touch()

	logf(b.cfg, "GAMES: Game %s reset by %s", s.Code, c.id)

	b.broadcastPublic(s.Code, GameResetMessage{
		Type:    "gameReset",
		Players: s.view(),
	})
}

func (b *Broker) handleDisconnect(c *client) {
	if c.session != "" {
		if s := b.sessions[c.session]; s != nil {
			s.markDisconnected(c.id)
			s.touch()

			b.broadcastPublic(s.Code, PlayerLeftMessage{
				Type:    "playerLeft",
				Players: s.view(),
			})
		}
	}

	delete(b.conns, c.id)
	close(c.send)

	logf(b.cfg, "GAMES: Player %s disconnected", c.id)
}

// broadcastPublic delivers msg to every connected occupant of the session.
// Slots whose occupant id no longer resolves to a live connection are
// skipped silently.
func (b *Broker) broadcastPublic(code string, msg any) {
	s := b.sessions[code]
	if s == nil {
		return
	}

	for i := range s.Players {
		p := &s.Players[i]
		if !p.Connected || p.ID == "" {
			continue
		}
		b.sendPrivate(p.ID, msg)
	}
}

// sendPrivate enqueues msg for a single connection, fire and forget. A full
// send buffer drops the message rather than blocking the broker loop.
func (b *Broker) sendPrivate(id string, msg any) {
	c, ok := b.conns[id]
	if !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// reapIdle removes sessions idle longer than the configured timeout. Only
// reached when --session-timeout is non-zero.
func (b *Broker) reapIdle() {
	cutoff := time.Now().Add(-b.cfg.sessionTimeout)

	for code, s := range b.sessions {
		if s.lastActive.Before(cutoff) {
			delete(b.sessions, code)
			logf(b.cfg, "GAMES: Removed idle game %s", code)
		}
	}
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newGameCode generates a crypto-random 5-char game code.
func newGameCode() string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	out := make([]byte, len(buf))
	for i := range out {
		out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}

	return string(out)
}

// randomIndex picks a uniform-ish index below n using crypto/rand.
func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}

	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}

	return int(b[0]) % n
}
