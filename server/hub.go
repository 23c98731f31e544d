// Package server exposes the local control surface: a small JSON API for
// status and monitor control, plus a websocket feed of cycle activity.
package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/document"
	"github.com/floriandheer/ordermon/logger"
	"github.com/floriandheer/ordermon/monitor"
)

// WebSocket timeout constants following Gorilla best practices
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Activity messages are small; anything bigger from a peer is garbage
	maxMessageSize = 4096
)

// client is one connected websocket consumer.
type client struct {
	conn    *websocket.Conn
	sendMsg chan interface{}
}

// ActivityHub fans cycle activity out to websocket clients. It implements
// monitor.Broadcaster; sends never block the cycle loop, a slow client just
// misses messages.
type ActivityHub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	log     *zap.SugaredLogger
}

// NewActivityHub creates an empty hub.
func NewActivityHub(log *zap.SugaredLogger) *ActivityHub {
	if log == nil {
		log = logger.Logger
	}
	return &ActivityHub{
		clients: make(map[*client]bool),
		log:     log,
	}
}

// CycleStartedMessage announces a cycle beginning.
type CycleStartedMessage struct {
	Type      string `json:"type"`
	CycleID   string `json:"cycle_id"`
	Trigger   string `json:"trigger"`
	Timestamp int64  `json:"timestamp"`
}

// OrderProcessedMessage reports one order's outcome.
type OrderProcessedMessage struct {
	Type        string `json:"type"`
	CycleID     string `json:"cycle_id"`
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Outcome     string `json:"outcome"`
	FolderPath  string `json:"folder_path,omitempty"`
	Invoice     string `json:"invoice"`
	Label       string `json:"label"`
	Details     string `json:"details"`
	Error       string `json:"error,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// CycleCompletedMessage carries the full cycle stats.
type CycleCompletedMessage struct {
	Type      string             `json:"type"`
	Stats     monitor.CycleStats `json:"stats"`
	Timestamp int64              `json:"timestamp"`
}

// BroadcastCycleStarted implements monitor.Broadcaster.
func (h *ActivityHub) BroadcastCycleStarted(cycleID, trigger string) {
	h.broadcastMessage(CycleStartedMessage{
		Type:      "cycle_started",
		CycleID:   cycleID,
		Trigger:   trigger,
		Timestamp: time.Now().Unix(),
	})
}

// BroadcastOrderProcessed implements monitor.Broadcaster.
func (h *ActivityHub) BroadcastOrderProcessed(cycleID string, res monitor.OrderResult) {
	msg := OrderProcessedMessage{
		Type:        "order_processed",
		CycleID:     cycleID,
		OrderID:     res.OrderID,
		OrderNumber: res.OrderNumber,
		Outcome:     string(res.Outcome),
		FolderPath:  res.FolderPath,
		Invoice:     outcomeString(res.Invoice),
		Label:       outcomeString(res.Label),
		Details:     outcomeString(res.Details),
		Timestamp:   time.Now().Unix(),
	}
	if res.Err != nil {
		msg.Error = res.Err.Error()
	}
	h.broadcastMessage(msg)
}

// BroadcastCycleCompleted implements monitor.Broadcaster.
func (h *ActivityHub) BroadcastCycleCompleted(stats monitor.CycleStats) {
	h.broadcastMessage(CycleCompletedMessage{
		Type:      "cycle_completed",
		Stats:     stats,
		Timestamp: time.Now().Unix(),
	})
}

func outcomeString(res document.Result) string {
	if res.Outcome == "" {
		return string(document.OutcomeSkipped)
	}
	return string(res.Outcome)
}

// broadcastMessage sends a message to all connected clients.
// Returns the number of clients that accepted the message.
//
// Sends stay under the read lock: unregister closes sendMsg under the
// write lock, so a send can never race the close.
func (h *ActivityHub) broadcastMessage(msg interface{}) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.clients {
		select {
		case c.sendMsg <- msg:
			sent++
		default:
			// Channel full - skip
		}
	}
	return sent
}

// ClientCount reports connected websocket clients.
func (h *ActivityHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *ActivityHub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Debugw("Activity client connected", logger.FieldCount, count)
}

func (h *ActivityHub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.sendMsg)
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Debugw("Activity client disconnected", logger.FieldCount, count)
}

// closeAll disconnects every client, used during shutdown.
func (h *ActivityHub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.sendMsg)
		c.conn.Close()
	}
	h.mu.Unlock()
}

// writePump serializes outgoing messages and keeps the connection alive.
func (h *ActivityHub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendMsg:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the feed is one-way. It exists to
// process pongs and notice closed connections.
func (h *ActivityHub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
