// Package wsconn provides a WebSocket client with reconnection on top of coder/websocket.
package wsconn

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/paybridge/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("wsconn: client closed")

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration
	PongTimeout    time.Duration
	ReadTimeout    time.Duration // 0 = no per-read deadline
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// MessageHandler receives every data frame.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler is notified on every state transition.
type StateHandler func(state State, err error)

// Client is a WebSocket client that redials with exponential backoff.
type Client struct {
	cfg Config

	mu    sync.RWMutex
	conn  *websocket.Conn
	state State

	writeMu sync.Mutex

	handlersMu sync.RWMutex
	onMessage  MessageHandler
	onState    StateHandler
	onConnect  func(ctx context.Context) error

	messages chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New validates cfg and creates a client. It does not dial.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err), apperror.WithContext("invalid url"))
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithContext(fmt.Sprintf("unsupported scheme %q", u.Scheme)))
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:      cfg,
		state:    StateDisconnected,
		messages: make(chan []byte, 256),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// OnMessage registers the frame handler. Without one, frames go to Messages().
func (c *Client) OnMessage(h MessageHandler) {
	c.handlersMu.Lock()
	c.onMessage = h
	c.handlersMu.Unlock()
}

// OnStateChange registers a state transition observer.
func (c *Client) OnStateChange(h StateHandler) {
	c.handlersMu.Lock()
	c.onState = h
	c.handlersMu.Unlock()
}

// OnConnect registers a hook run after every successful dial, e.g. to resubscribe.
func (c *Client) OnConnect(h func(ctx context.Context) error) {
	c.handlersMu.Lock()
	c.onConnect = h
	c.handlersMu.Unlock()
}

// Connect dials once. On success the read loop keeps the connection alive
// and redials on failure until Close.
func (c *Client) Connect(ctx context.Context) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	c.setState(StateConnecting, nil)

	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected, err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err), apperror.WithContext(c.cfg.Name))
	}
	c.wg.Add(1)
	go c.run()
	return nil
}

// ConnectWithRetry dials with backoff until it succeeds, ctx ends or
// MaxReconnects is exhausted.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.cfg.InitialBackoff
	for attempt := 0; ; attempt++ {
		err := c.Connect(ctx)
		if err == nil || errors.Is(err, ErrClosed) {
			return err
		}
		if c.cfg.MaxReconnects > 0 && attempt+1 >= c.cfg.MaxReconnects {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return ErrClosed
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, c.cfg.MaxBackoff)
	}
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}
	if c.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(c.cfg.MaxMessageSize)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected, nil)

	c.handlersMu.RLock()
	hook := c.onConnect
	c.handlersMu.RUnlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			_ = conn.Close(websocket.StatusInternalError, "connect hook failed")
			return err
		}
	}
	return nil
}

// run owns the read loop and the reconnect cycle.
func (c *Client) run() {
	defer c.wg.Done()

	for {
		err := c.readLoop()
		if c.ctx.Err() != nil {
			return
		}
		c.setState(StateReconnecting, err)
		if !c.reconnect() {
			return
		}
	}
}

func (c *Client) readLoop() error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrClosed
	}

	pingCtx, stopPing := context.WithCancel(c.ctx)
	defer stopPing()
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(pingCtx, conn)
	}

	for {
		readCtx := c.ctx
		var cancel context.CancelFunc = func() {}
		if c.cfg.ReadTimeout > 0 {
			readCtx, cancel = context.WithTimeout(c.ctx, c.cfg.ReadTimeout)
		}
		_, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			_ = conn.CloseNow()
			return err
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	c.handlersMu.RLock()
	h := c.onMessage
	c.handlersMu.RUnlock()

	if h != nil {
		h(c.ctx, data)
		return
	}
	select {
	case c.messages <- data:
	default:
		// slow consumer; drop
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			timeout := c.cfg.PongTimeout
			if timeout <= 0 {
				timeout = c.cfg.PingInterval
			}
			pctx, cancel := context.WithTimeout(ctx, timeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				_ = conn.CloseNow()
				return
			}
		}
	}
}

func (c *Client) reconnect() bool {
	backoff := c.cfg.InitialBackoff
	for attempt := 1; c.cfg.MaxReconnects == 0 || attempt <= c.cfg.MaxReconnects; attempt++ {
		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(backoff):
		}
		err := c.dial(c.ctx)
		if err == nil {
			return true
		}
		c.setState(StateReconnecting, err)
		backoff = nextBackoff(backoff, c.cfg.MaxBackoff)
	}
	c.setState(StateDisconnected, errors.New("max reconnects exceeded"))
	return false
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	next := cur * 2
	if next > limit {
		return limit
	}
	return next
}

// Send writes a text frame.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()
	if state != StateConnected || conn == nil {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.cfg.Name))
	}

	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError, apperror.WithCause(err))
	}
	return nil
}

// Messages returns frames received while no MessageHandler is registered.
func (c *Client) Messages() <-chan []byte {
	return c.messages
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the connection is up.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close stops reconnection and closes the socket. Safe to call twice.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "closing")
		}
		c.wg.Wait()
		c.setState(StateClosed, nil)
	})
	return nil
}

func (c *Client) setState(state State, err error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()

	c.handlersMu.RLock()
	h := c.onState
	c.handlersMu.RUnlock()
	if h != nil {
		h(state, err)
	}
}
