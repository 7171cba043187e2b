package hub

import (
	"encoding/json"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/soar/padcursor/internal/gamepad"
)

// AllControllers is the selection of a client that watches every controller.
const AllControllers = 0

// Controllers looks up controllers for client commands.
type Controllers interface {
	Controller(id int) (*gamepad.Controller, bool)
}

// Client represents a connected WebSocket client.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	selected atomic.Int64 // controller id this client is watching, or AllControllers
}

// NewClient creates a new Client attached to the hub. It watches all
// controllers until it selects one.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Select sets the controller this client is watching.
func (c *Client) Select(id int) {
	c.selected.Store(int64(id))
}

// Selected returns the controller id this client is watching.
func (c *Client) Selected() int {
	return int(c.selected.Load())
}

// Watches reports whether messages about controller id go to this client.
func (c *Client) Watches(id int) bool {
	sel := c.Selected()
	return sel == AllControllers || sel == id
}

// WritePump sends messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// ReadPumpWithHandler reads messages from the WebSocket and handles client
// commands until the connection fails.
func (c *Client) ReadPumpWithHandler(controllers Controllers, b *Broadcaster) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	log := c.hub.log
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Debug("error parsing client message", zap.Error(err))
			continue
		}

		switch clientMsg.Type {
		case "select_controller":
			if clientMsg.ID != AllControllers {
				if _, ok := controllers.Controller(clientMsg.ID); !ok {
					log.Debug("select of unknown controller", zap.Int("id", clientMsg.ID))
					c.sendError("unknown controller")
					continue
				}
			}
			c.Select(clientMsg.ID)
			c.sendJSON(NewControllerSelectedMessage(clientMsg.ID))
			b.SendInitialState(c)
			log.Debug("client switched controller", zap.Int("id", clientMsg.ID))

		case "set_enabled":
			ctrl, ok := controllers.Controller(clientMsg.ID)
			if !ok || clientMsg.Enabled == nil {
				c.sendError("unknown controller")
				continue
			}
			if err := ctrl.SetEnabled(*clientMsg.Enabled); err != nil {
				log.Warn("set enabled failed", zap.Int("id", clientMsg.ID), zap.Error(err))
				c.sendError(err.Error())
			}

		default:
			log.Debug("unknown client message", zap.String("type", clientMsg.Type))
		}
	}
}

func (c *Client) sendError(reason string) {
	c.sendJSON(NewErrorMessage(reason))
}

func (c *Client) sendJSON(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Error("error marshaling message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	c.hub.SendTo(c, data)
}
