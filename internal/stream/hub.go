package stream

import (
	"bidding-engine/internal/notification"
	"bidding-engine/utils"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Update is what live watchers of an auction receive
type Update struct {
	Type       notification.EventType `json:"type"`
	AuctionID  string                 `json:"auctionId"`
	BidID      string                 `json:"bidId,omitempty"`
	BidderID   string                 `json:"bidderId,omitempty"`
	Amount     string                 `json:"amount,omitempty"`
	Price      string                 `json:"currentPrice,omitempty"`
	WinnerID   string                 `json:"winnerId,omitempty"`
	Status     string                 `json:"status,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}

type subscriber struct {
	send chan []byte
}

// Hub fans auction events out to websocket watchers.
// It is a notification.Sink; events that do not change an auction's price or status are ignored.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[*subscriber]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Notify broadcasts event to every watcher of its auction. userID is not used.
func (h *Hub) Notify(ctx context.Context, userID string, event notification.Event) error {
	if !event.Broadcast() {
		return nil
	}

	payload, err := json.Marshal(Update{
		Type:       event.Type,
		AuctionID:  event.AuctionID,
		BidID:      event.BidID,
		BidderID:   event.BidderID,
		Amount:     event.Amount,
		Price:      event.Price,
		WinnerID:   event.WinnerID,
		Status:     event.Status,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("stream: encode update: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[event.AuctionID] {
		select {
		case sub.send <- payload:
		default:
			// watcher is not keeping up
			h.removeLocked(event.AuctionID, sub)
		}
	}
	return nil
}

// Subscribers reports how many watchers an auction has
func (h *Hub) Subscribers(auctionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[auctionID])
}

// ServeAuction handles GET /api/bids/auction/:auctionId/live
func (h *Hub) ServeAuction(c *gin.Context) {
	auctionID := c.Param("auctionId")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Warn("ServeAuction: websocket upgrade failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	sub := &subscriber{send: make(chan []byte, sendBuffer)}
	h.add(auctionID, sub)
	utils.Info("ServeAuction: watcher connected", map[string]any{"auction_id": auctionID})

	go h.writePump(conn, sub)
	h.readPump(conn, auctionID, sub)
}

func (h *Hub) add(auctionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[auctionID] == nil {
		h.subs[auctionID] = make(map[*subscriber]struct{})
	}
	h.subs[auctionID][sub] = struct{}{}
}

func (h *Hub) remove(auctionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(auctionID, sub)
}

func (h *Hub) removeLocked(auctionID string, sub *subscriber) {
	set, ok := h.subs[auctionID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.send)
	if len(set) == 0 {
		delete(h.subs, auctionID)
	}
}

// readPump discards client messages and returns once the connection drops
func (h *Hub) readPump(conn *websocket.Conn, auctionID string, sub *subscriber) {
	defer func() {
		h.remove(auctionID, sub)
		conn.Close()
		utils.Info("ServeAuction: watcher disconnected", map[string]any{"auction_id": auctionID})
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
