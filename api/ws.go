package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamProgress pushes a snapshot immediately and then every interval until
// the client goes away.
func (h *Handler) streamProgress(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Handler.streamProgress",
			"error":    err.Error(),
		}).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// Control frames are only processed while reading; the reader also tells
	// us when the client disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(h.engine.Snapshot()); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Handler.streamProgress",
				"error":    err.Error(),
			}).Debug("Progress stream closed")
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
