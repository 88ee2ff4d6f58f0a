package server

import (
	"bitnow-bidding/internal/broadcast"
	"bitnow-bidding/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// observers are read-only; any origin may watch
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type connectedMessage struct {
	Type         string `json:"type"`
	AuctionID    string `json:"auction_id"`
	SubscriberID string `json:"subscriber_id"`
}

// LiveHandler streams an auction's BidPlaced events over websocket
type LiveHandler struct {
	hub *broadcast.Hub
}

func NewLiveHandler(hub *broadcast.Hub) *LiveHandler {
	return &LiveHandler{hub: hub}
}

// HandleLive handles GET /auctions/:auction_id/live
func (h *LiveHandler) HandleLive(c *gin.Context) {
	auctionID := c.Param("auction_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Warn("HandleLive: websocket upgrade failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	sub := h.hub.Subscribe(auctionID)
	go writePump(conn, sub)
	go readPump(conn, sub)
}

// StatsHandler handles GET /auctions/:auction_id/live/stats
func (h *LiveHandler) StatsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	utils.JSONResponse(c, http.StatusOK, gin.H{
		"auction_id":  auctionID,
		"subscribers": h.hub.SubscriberCount(auctionID),
	}, "live stats retrieved successfully")
}

// readPump discards client frames and ends the subscription when the peer goes away
func readPump(conn *websocket.Conn, sub *broadcast.Subscription) {
	defer sub.Close()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Debug("readPump: connection closed", map[string]any{"subscriber_id": sub.ID, "error": err.Error()})
			}
			return
		}
	}
}

// writePump is the only writer on conn
func writePump(conn *websocket.Conn, sub *broadcast.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(connectedMessage{Type: "connected", AuctionID: sub.AuctionID, SubscriberID: sub.ID}); err != nil {
		sub.Close()
		return
	}

	for {
		select {
		case event, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub dropped us or the reader finished
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				sub.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.Close()
				return
			}
		}
	}
}
