package services

import (
	"net/http"
	"sync"
	"time"

	"donorflow/internal/automation"
	"donorflow/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// FeedMessage is one frame on the live execution feed. RuleID is empty for
// frames every client should see.
type FeedMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	RuleID    string      `json:"rule_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type FeedClient struct {
	ID     string
	RuleID string // optional filter: only frames for this rule
	Conn   *websocket.Conn
	Send   chan FeedMessage
	Hub    *FeedHub
}

// FeedHub pushes finalized automation executions to connected dashboards.
type FeedHub struct {
	clients    map[string]*FeedClient
	broadcast  chan FeedMessage
	register   chan *FeedClient
	unregister chan *FeedClient
	mutex      sync.RWMutex
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 生产环境需要验证源
	},
}

func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients:    make(map[string]*FeedClient),
		broadcast:  make(chan FeedMessage),
		register:   make(chan *FeedClient),
		unregister: make(chan *FeedClient),
	}
}

func (h *FeedHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ID] = client
			h.mutex.Unlock()
			logrus.Infof("Feed client %s connected", client.ID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				logrus.Infof("Feed client %s disconnected", client.ID)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.RLock()
			for _, client := range h.clients {
				if client.RuleID != "" && message.RuleID != "" && client.RuleID != message.RuleID {
					continue
				}
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client.ID)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// BroadcastExecution pushes one finalized execution record to the feed. Safe
// to use as the engine's execution hook.
func (h *FeedHub) BroadcastExecution(ex *automation.Execution) {
	if ex == nil {
		return
	}
	h.broadcast <- FeedMessage{
		Type:      "execution",
		Data:      ex,
		RuleID:    ex.RuleID,
		Timestamp: time.Now(),
	}
}

func (h *FeedHub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Error("WebSocket upgrade failed:", err)
		return
	}

	client := &FeedClient{
		ID:     utils.GenerateClientID(),
		RuleID: c.Query("rule_id"),
		Conn:   conn,
		Send:   make(chan FeedMessage, 256),
		Hub:    h,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains and discards client frames; the feed is one-way. Reading
// keeps ping/pong alive and detects disconnects.
func (c *FeedClient) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Errorf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *FeedClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				logrus.Error("WriteJSON error:", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *FeedHub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
