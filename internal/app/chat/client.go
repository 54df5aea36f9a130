package chat

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 64 * 1024

	// capacity of the per-connection outbound buffer.
	sendBufferSize = 256

	// timeout for the presence write performed when a connection goes away.
	disconnectTimeout = 5 * time.Second

	// WsCloseCodeSessionExpired is a custom WebSocket Close Code (4000-4999 range)
	// telling the client its session ended and it must log in again.
	WsCloseCodeSessionExpired = 4001
)

// Client is an active WebSocket connection of an authenticated user.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	id     string
	userID string

	// sessionExpiry is when the session token used for the handshake expires.
	sessionExpiry time.Time

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// closed once the connection starts shutting down. send itself is never closed.
	done      chan struct{}
	closeOnce sync.Once

	logger zerolog.Logger
}

// NewClient constructs and returns a new Client instance.
func NewClient(hub *Hub, wsConn *websocket.Conn, userID string, sessionExpiry time.Time) *Client {
	id := randx.ConnectionID()

	return &Client{
		hub:           hub,
		conn:          wsConn,
		id:            id,
		userID:        userID,
		sessionExpiry: sessionExpiry,
		send:          make(chan []byte, sendBufferSize),
		done:          make(chan struct{}),
		logger: logx.Logger().With().
			Str("conn_id", id).
			Str("user_id", userID).
			Logger(),
	}
}

// ID implements Conn.
func (c *Client) ID() string { return c.id }

// UserID implements Conn.
func (c *Client) UserID() string { return c.userID }

// Enqueue implements Conn. It never blocks.
func (c *Client) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame")
		return false
	}
}

// Close implements Conn. It asks the write pump to send a close frame and stop.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ReadPump handles reading frames from the WebSocket connection and dispatching them.
// It runs on the handler goroutine and performs the connection cleanup when it returns.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		c.hub.Dispatch(ctx, c, frame)
	}
}

// cleanupOnDisconnect runs exactly once per connection, whatever ended it.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	c.hub.Disconnect(ctx, c)
	c.Close()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump handles writing frames from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit so ReadPump unblocks
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.writeFrame(websocket.TextMessage, frame) {
				return
			}

		case <-c.done:
			c.writeFrame(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing connection"))
			return

		case <-ticker.C:
			if time.Now().After(c.sessionExpiry) {
				c.logger.Info().Time("session_expiry", c.sessionExpiry).Msg("Session expired, closing connection.")
				c.writeFrame(websocket.CloseMessage, websocket.FormatCloseMessage(WsCloseCodeSessionExpired, "session expired"))
				return
			}

			if !c.writeFrame(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// writeFrame writes one frame with a deadline. It reports whether the pump should continue.
func (c *Client) writeFrame(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing frame")
		return false
	}

	return true
}
