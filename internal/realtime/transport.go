package realtime

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Serve runs one websocket session until the peer goes away or the gateway
// drops the client. authUser is the identity proven during the upgrade.
func (g *Gateway) Serve(ws *websocket.Conn, authUser string) {
	c := g.Connect(authUser)
	go g.writePump(ws, c)
	g.readPump(ws, c)
}

func (g *Gateway) readPump(ws *websocket.Conn, c *Client) {
	defer g.Disconnect(c)

	ws.SetReadLimit(g.cfg.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				g.log.Debug("peer closed", zap.String("conn_id", c.ID))
			case isTimeout(err):
				g.log.Info("read timeout", zap.String("conn_id", c.ID))
			default:
				g.log.Debug("read failed", zap.String("conn_id", c.ID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		g.HandleFrame(c, data)
	}
}

func (g *Gateway) writePump(ws *websocket.Conn, c *Client) {
	ticker := time.NewTicker(g.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case frame := <-c.Outbox():
			_ = ws.SetWriteDeadline(time.Now().Add(g.cfg.WriteWait))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				g.log.Debug("write failed", zap.String("conn_id", c.ID), zap.Error(err))
				g.Disconnect(c)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(g.cfg.WriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				g.Disconnect(c)
				return
			}
		case <-c.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(g.cfg.WriteWait))
			return
		}
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
