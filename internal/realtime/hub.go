package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"plate/internal/dto"
	"plate/internal/routing"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

const (
	MessageSnapshot = "snapshot"
	MessageChange   = "change"
)

// Message is what a KDS screen receives over its websocket: a snapshot on
// connect and after every reload, then one change per event. Every message
// carries the whole board recomputed from the merged state, in display
// order, so screens only filter by station.
type Message struct {
	Type   string           `json:"type"`
	Event  *Event           `json:"event,omitempty"`
	Board  []dto.RoutingDTO `json:"board"`
	SentAt time.Time        `json:"sentAt"`
}

// Board derives status, elapsed time, overdue flag and priority for every
// active routing in s and sorts the result.
func Board(s State, now time.Time) []dto.RoutingDTO {
	entries := routing.AnnotateAll(s.Views(), now)
	routing.Sort(entries)
	return dto.NewRoutingDTOs(entries)
}

func SnapshotMessage(s State, now time.Time) Message {
	return Message{Type: MessageSnapshot, Board: Board(s, now), SentAt: now}
}

func ChangeMessage(s State, e *Event, now time.Time) Message {
	return Message{Type: MessageChange, Event: e, Board: Board(s, now), SentAt: now}
}

type SnapshotFunc func(ctx context.Context) (State, error)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans store changes out to connected KDS screens.
type Hub struct {
	snapshot   SnapshotFunc
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	connected  atomic.Int64
	now        func() time.Time
}

func NewHub(snapshot SnapshotFunc, logger *zap.Logger) *Hub {
	return &Hub{
		snapshot: snapshot,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Listen is a store Listener that forwards each change to every screen.
func (h *Hub) Listen(s State, e *Event) {
	now := h.now().UTC()
	msg := ChangeMessage(s, e, now)
	if e == nil {
		msg = SnapshotMessage(s, now)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding websocket message", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message", zap.String("type", msg.Type))
	}
}

// Connected is the number of screens currently attached.
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

func (h *Hub) Run(ctx context.Context) error {
	defer h.connected.Store(0)
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return nil
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.connected.Store(int64(len(h.clients)))
			h.logger.Debug("kds screen connected", zap.String("client", c.id), zap.Int("clients", len(h.clients)))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.connected.Store(int64(len(h.clients)))
				h.logger.Debug("kds screen disconnected", zap.String("client", c.id), zap.Int("clients", len(h.clients)))
			}
		case data := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// slow screen; it will resync on reconnect
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.connected.Store(int64(len(h.clients)))
		}
	}
}

// ServeHTTP upgrades the request and streams messages until the screen
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{id: uuid.New().String(), conn: conn, send: make(chan []byte, sendBuffer)}

	state, err := h.snapshot(r.Context())
	if err != nil {
		h.logger.Warn("initial snapshot unavailable", zap.String("client", c.id), zap.Error(err))
		state = EmptyState()
	}
	data, err := json.Marshal(SnapshotMessage(state, h.now().UTC()))
	if err == nil {
		c.send <- data
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump only drains control frames; screens do not send commands here.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
