// Order delivery over WebSocket. The client authenticates with a signed
// nonce header, then receives a stream of signed orders; orders whose
// client signature does not verify are dropped before they reach the
// consumer.
package stream

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zkmarket/zkmarket/log"
	"github.com/zkmarket/zkmarket/market"
)

// Stream configuration constants.
const (
	// MaxMessageSize is the maximum size of a single order frame (1 MB).
	MaxMessageSize = 1 << 20
	// PingInterval is the interval between ping frames sent to the server.
	PingInterval = 30 * time.Second
	// PongTimeout is the read deadline extension granted per pong.
	PongTimeout = 60 * time.Second
	// WriteTimeout is the deadline for a control write.
	WriteTimeout = 10 * time.Second
	// OrderBuffer is the delivery channel capacity; a consumer that lags
	// further than this loses orders rather than stalling the read loop.
	OrderBuffer = 64
)

// AuthHeader carries the base64 JSON auth message on the handshake.
const AuthHeader = "X-Zkmarket-Auth"

// Client errors.
var (
	ErrAlreadyConnected = errors.New("stream: already connected")
	ErrNotConnected     = errors.New("stream: not connected")
)

// ClientConfig configures an order-stream subscription.
type ClientConfig struct {
	// URL is the ws or wss endpoint of the order stream.
	URL string
	// Key signs the auth handshake; its address is the subscriber.
	Key *ecdsa.PrivateKey
	// Domain is the market domain orders are signed in.
	Domain market.Domain
	// Dialer overrides the default websocket dialer.
	Dialer *websocket.Dialer
}

// Client subscribes to an order stream.
type Client struct {
	cfg    ClientConfig
	logger *log.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	orders chan market.Order
	closed chan struct{}
}

// NewClient creates an unconnected stream client.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		cfg:    cfg,
		logger: log.Default().Module("stream"),
	}
}

// Connect dials the stream endpoint, authenticates and starts the read
// and keepalive loops. It may be called again after Close.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return ErrAlreadyConnected
	}

	var nonceBytes [8]byte
	if _, err := rand.Read(nonceBytes[:]); err != nil {
		return fmt.Errorf("stream: nonce: %w", err)
	}
	auth, err := SignAuth(c.cfg.Key, c.cfg.Domain, binary.BigEndian.Uint64(nonceBytes[:]))
	if err != nil {
		return fmt.Errorf("stream: sign auth: %w", err)
	}
	authJSON, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("stream: encode auth: %w", err)
	}
	header := http.Header{}
	header.Set(AuthHeader, base64.StdEncoding.EncodeToString(authJSON))

	dialer := c.cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("stream: dial %s: status %d: %w", c.cfg.URL, resp.StatusCode, err)
		}
		return fmt.Errorf("stream: dial %s: %w", c.cfg.URL, err)
	}
	conn.SetReadLimit(MaxMessageSize)

	c.conn = conn
	c.orders = make(chan market.Order, OrderBuffer)
	c.closed = make(chan struct{})
	go c.readLoop(conn, c.orders, c.closed)
	go c.pingLoop(conn, c.closed)
	return nil
}

// Orders returns the delivery channel. It is closed when the connection
// ends; nil before the first Connect.
func (c *Client) Orders() <-chan market.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orders
}

// Close tears down the connection and closes the delivery channel.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) readLoop(conn *websocket.Conn, orders chan<- market.Order, closed chan struct{}) {
	defer close(orders)
	defer close(closed)

	conn.SetReadDeadline(time.Now().Add(PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("stream read ended", "err", err)
			}
			return
		}
		var order market.Order
		if err := json.Unmarshal(data, &order); err != nil {
			c.logger.Warn("dropping undecodable order frame", "err", err)
			continue
		}
		if err := market.VerifyOrder(order, c.cfg.Domain); err != nil {
			c.logger.Warn("dropping unverifiable order", "id", order.Request.ID.Hex(), "err", err)
			continue
		}
		select {
		case orders <- order:
		default:
			c.logger.Warn("consumer lagging, dropping order", "id", order.Request.ID.Hex())
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, closed <-chan struct{}) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// DecodeAuthHeader parses the handshake auth header a server receives.
func DecodeAuthHeader(h http.Header) (AuthMsg, error) {
	raw := h.Get(AuthHeader)
	if raw == "" {
		return AuthMsg{}, ErrBadAuth
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return AuthMsg{}, ErrBadAuth
	}
	var msg AuthMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		return AuthMsg{}, ErrBadAuth
	}
	return msg, nil
}
