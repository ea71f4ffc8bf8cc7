package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
	"github.com/vncsmyrnk/kioskvote/internal/core/ports"
)

const (
	clientBuffer = 64
	writeTimeout = 5 * time.Second
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// NotificationHub fans session notifications out to websocket clients. Notify
// never blocks: a client whose buffer is full is disconnected.
type NotificationHub struct {
	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	upgrader websocket.Upgrader
	l        *zap.Logger
}

var _ ports.Notifier = (*NotificationHub)(nil)

func NewNotificationHub(l *zap.Logger) *NotificationHub {
	if l == nil {
		l = zap.NewNop()
	}
	return &NotificationHub{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		l: l,
	}
}

func (h *NotificationHub) Notify(n domain.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		h.l.Error("failed to encode notification", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.l.Warn("dropping slow notification client", zap.String("remote", c.conn.RemoteAddr().String()))
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *NotificationHub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *NotificationHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

// Close disconnects every client.
func (h *NotificationHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *NotificationHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.l.Info("ws connected", zap.String("remote", r.RemoteAddr))

	c := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
	h.add(c)
	go h.writePump(c)
	go h.readPump(c)
}

func (h *NotificationHub) writePump(c *wsClient) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *NotificationHub) readPump(c *wsClient) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.l.Info("ws disconnected", zap.Error(err))
			return
		}
	}
}
