package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/pongmatch-go/internal/model"
)

// Conn is one player's websocket connection
type Conn struct {
	ws          *websocket.Conn
	session     *model.Session
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	connectedAt time.Time

	mu       sync.Mutex
	watching map[model.RoomID]bool
}

func newConn(ws *websocket.Conn, session *model.Session, buffer int) *Conn {
	return &Conn{
		ws:          ws,
		session:     session,
		send:        make(chan []byte, buffer),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
		watching:    make(map[model.RoomID]bool),
	}
}

// enqueue queues a message without blocking. Returns false if it was dropped.
func (c *Conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Conn) reply(r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Conn) watch(roomID model.RoomID) {
	c.mu.Lock()
	c.watching[roomID] = true
	c.mu.Unlock()
}

func (c *Conn) unwatch(roomID model.RoomID) {
	c.mu.Lock()
	delete(c.watching, roomID)
	c.mu.Unlock()
}

func (c *Conn) watchedRooms() []model.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := make([]model.RoomID, 0, len(c.watching))
	for roomID := range c.watching {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// writePump is the only writer of the connection
func (c *Conn) writePump(cfg Config, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("websocket write failed",
					slog.String("session_id", string(c.session.ID)),
					slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(cfg.WriteWait)); err != nil {
				return
			}

		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(cfg.WriteWait))
			return
		}
	}
}
