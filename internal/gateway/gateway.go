// Package gateway connects players over websockets. It turns inbound
// messages into match commands and delivers every match event to the two
// players of its room and to anyone watching the room.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/pongmatch-go/internal/api/apierr"
	"github.com/mcoot/pongmatch-go/internal/events"
	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/services/match"
)

// Config holds the websocket timings
type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration // Must be less than PongWait
	MaxMessageSize int64
	SendBuffer     int
}

// DefaultConfig returns default gateway configuration
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     256,
	}
}

var errUnknownCommand = errors.New("unknown command")

// Gateway owns every open player connection
type Gateway struct {
	cfg        Config
	controller match.ControllerInterface
	upgrader   websocket.Upgrader
	logger     *slog.Logger

	mu     sync.RWMutex
	byUser map[model.UserID]map[*Conn]struct{}
	byRoom map[model.RoomID]map[*Conn]struct{}
}

// New creates a new Gateway
func New(cfg Config, controller match.ControllerInterface, logger *slog.Logger) *Gateway {
	return &Gateway{
		cfg:        cfg,
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "gateway")),
		byUser: make(map[model.UserID]map[*Conn]struct{}),
		byRoom: make(map[model.RoomID]map[*Conn]struct{}),
	}
}

// ServeWS upgrades the request and serves the connection until it closes
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request, session *model.Session) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		g.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newConn(ws, session, g.cfg.SendBuffer)
	g.register(c)
	defer g.unregister(c)

	go c.writePump(g.cfg, g.logger)
	g.readPump(r.Context(), c)
}

// Publish delivers an event to the players of its room and the room's watchers
func (g *Gateway) Publish(event model.Event) {
	g.mu.RLock()
	targets := make(map[*Conn]struct{})
	for _, userID := range event.Players {
		for c := range g.byUser[userID] {
			targets[c] = struct{}{}
		}
	}
	for c := range g.byRoom[event.RoomID] {
		targets[c] = struct{}{}
	}
	g.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := events.Encode(event)
	if err != nil {
		g.logger.Error("failed to encode event",
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
		return
	}
	for c := range targets {
		if !c.enqueue(data) {
			g.logger.Warn("websocket message dropped - client buffer full",
				slog.String("session_id", string(c.session.ID)),
				slog.String("type", string(event.Type)))
		}
	}

	if event.Type == model.EventMatchEnd {
		g.mu.Lock()
		for c := range g.byRoom[event.RoomID] {
			c.unwatch(event.RoomID)
		}
		delete(g.byRoom, event.RoomID)
		g.mu.Unlock()
	}
}

// ConnectionCount returns the number of open connections
func (g *Gateway) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, conns := range g.byUser {
		n += len(conns)
	}
	return n
}

// CloseAll closes every open connection and returns how many there were.
// Clients see a normal close frame.
func (g *Gateway) CloseAll() int {
	g.mu.RLock()
	var conns []*Conn
	for _, userConns := range g.byUser {
		for c := range userConns {
			conns = append(conns, c)
		}
	}
	g.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
	if len(conns) > 0 {
		g.logger.Info("websocket connections closed", slog.Int("count", len(conns)))
	}
	return len(conns)
}

func (g *Gateway) register(c *Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	conns, ok := g.byUser[c.session.UserID]
	if !ok {
		conns = make(map[*Conn]struct{})
		g.byUser[c.session.UserID] = conns
	}
	conns[c] = struct{}{}
	g.logger.Info("websocket connected",
		slog.String("session_id", string(c.session.ID)),
		slog.Int64("user_id", int64(c.session.UserID)))
}

func (g *Gateway) unregister(c *Conn) {
	g.mu.Lock()
	if conns, ok := g.byUser[c.session.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(g.byUser, c.session.UserID)
		}
	}
	for _, roomID := range c.watchedRooms() {
		g.removeWatcherLocked(c, roomID)
	}
	g.mu.Unlock()

	c.close()
	g.logger.Info("websocket disconnected",
		slog.String("session_id", string(c.session.ID)),
		slog.Duration("connection_duration", time.Since(c.connectedAt)))
}

func (g *Gateway) watch(c *Conn, roomID model.RoomID) error {
	if _, err := g.controller.Snapshot(roomID); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	watchers, ok := g.byRoom[roomID]
	if !ok {
		watchers = make(map[*Conn]struct{})
		g.byRoom[roomID] = watchers
	}
	watchers[c] = struct{}{}
	c.watch(roomID)
	return nil
}

func (g *Gateway) unwatch(c *Conn, roomID model.RoomID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeWatcherLocked(c, roomID)
}

func (g *Gateway) removeWatcherLocked(c *Conn, roomID model.RoomID) {
	c.unwatch(roomID)
	if watchers, ok := g.byRoom[roomID]; ok {
		delete(watchers, c)
		if len(watchers) == 0 {
			delete(g.byRoom, roomID)
		}
	}
}

func (g *Gateway) readPump(ctx context.Context, c *Conn) {
	c.ws.SetReadLimit(g.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("websocket read error",
					slog.String("session_id", string(c.session.ID)),
					slog.String("error", err.Error()))
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.reply(errorReply("", apierr.NewInvalidRequestError("Invalid JSON")))
			continue
		}

		result, err := g.handle(ctx, c, cmd)
		if err != nil {
			c.reply(errorReply(cmd.Type, err))
			continue
		}
		c.reply(Reply{Type: ReplyAck, Command: cmd.Type, Data: result})
	}
}
