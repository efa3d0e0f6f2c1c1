package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Default connection settings.
const (
	defaultReconnectInitial = 1 * time.Second
	defaultReconnectMax     = 60 * time.Second
	defaultPingInterval     = 30 * time.Second
	defaultHandshakeTimeout = 10 * time.Second

	websocketPath = "/api/websocket"

	// stableSession is how long a session must last before the reconnect
	// backoff resets to its initial value.
	stableSession = 30 * time.Second
)

// Config holds Home Assistant connection settings.
type Config struct {
	// URL is the Home Assistant base URL (http, https, ws or wss).
	URL         string
	AccessToken string

	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReconnectInitial <= 0 {
		c.ReconnectInitial = defaultReconnectInitial
	}
	if c.ReconnectMax < c.ReconnectInitial {
		c.ReconnectMax = defaultReconnectMax
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	return c
}

// Sink receives entity state from the client. Hub implements it.
type Sink interface {
	Publish(s Snapshot) Snapshot
	Remove(entityID string) bool
	EntityIDs() []string
}

// Logger defines the logging interface used by the Client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Status describes the client's connection for health reporting.
type Status struct {
	Connected   bool      `json:"connected"`
	SessionID   string    `json:"session_id,omitempty"`
	HAVersion   string    `json:"ha_version,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Resyncs     int       `json:"resyncs"`
}

// Client maintains a WebSocket session with Home Assistant and mirrors
// entity state into a Sink.
//
// Thread Safety:
//   - Run must be called once; Status is safe to call concurrently.
type Client struct {
	cfg    Config
	sink   Sink
	dialer *websocket.Dialer
	logger Logger

	mu     sync.RWMutex
	status Status
}

// NewClient creates a client. Call Run to connect.
func NewClient(cfg Config, sink Sink) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:    cfg,
		sink:   sink,
		logger: noopLogger{},
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			Proxy:            websocket.DefaultDialer.Proxy,
		},
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// Status returns a copy of the current connection status.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// WebSocketURL converts a Home Assistant base URL to its WebSocket API URL.
//
// Parameters:
//   - raw: e.g. "http://homeassistant.local:8123" or "wss://ha.example/api/websocket"
//
// Returns:
//   - string: e.g. "ws://homeassistant.local:8123/api/websocket"
//   - error: wraps ErrInvalidURL for unsupported schemes or missing host
func WebSocketURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	path := strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(path, websocketPath) {
		path += websocketPath
	}
	u.Path = path
	return u.String(), nil
}

// Run connects and keeps the session alive until ctx is cancelled.
// Lost connections are retried with exponential backoff. Run returns nil
// on cancellation and ErrAuthFailed if the token is rejected.
func (c *Client) Run(ctx context.Context) error {
	wsURL, err := WebSocketURL(c.cfg.URL)
	if err != nil {
		return err
	}

	backoff := c.cfg.ReconnectInitial
	for {
		started := time.Now()
		err := c.session(ctx, wsURL)
		c.setDisconnected(err)

		if ctx.Err() != nil {
			return nil //nolint:nilerr // cancellation is a clean shutdown
		}
		if errors.Is(err, ErrAuthFailed) {
			c.logger.Error("home assistant rejected access token", "error", err)
			return err
		}
		if time.Since(started) >= stableSession {
			backoff = c.cfg.ReconnectInitial
		}

		c.logger.Warn("home assistant connection lost",
			"error", err,
			"retry_in", backoff,
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.cfg.ReconnectMax {
			backoff = c.cfg.ReconnectMax
		}
	}
}

// conn wraps a WebSocket connection with a write lock and command ids.
type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	nextID  atomic.Int64
}

func (cn *conn) writeJSON(v any) error {
	cn.writeMu.Lock()
	defer cn.writeMu.Unlock()
	return cn.ws.WriteJSON(v)
}

func (cn *conn) send(cmdType, eventType string) (int, error) {
	id := int(cn.nextID.Add(1))
	return id, cn.writeJSON(command{ID: id, Type: cmdType, EventType: eventType})
}

func (cn *conn) read() (incoming, error) {
	var msg incoming
	_, data, err := cn.ws.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("%w: decoding message: %w", ErrProtocol, err)
	}
	return msg, nil
}

// session runs one connection from dial to disconnect.
func (c *Client) session(ctx context.Context, wsURL string) error {
	ws, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dialing %s: %s: %w", wsURL, resp.Status, err)
		}
		return fmt.Errorf("dialing %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer ws.Close()

	// Unblock ReadMessage when the context ends.
	stop := context.AfterFunc(ctx, func() {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		ws.Close()
	})
	defer stop()

	cn := &conn{ws: ws}
	haVersion, err := c.authenticate(cn)
	if err != nil {
		return err
	}

	subID, err := cn.send(cmdSubscribeEvents, eventStateChanged)
	if err != nil {
		return fmt.Errorf("subscribing to state changes: %w", err)
	}
	statesID, err := cn.send(cmdGetStates, "")
	if err != nil {
		return fmt.Errorf("requesting states: %w", err)
	}

	sessionID := uuid.NewString()
	c.setConnected(sessionID, haVersion)
	c.logger.Info("connected to home assistant",
		"session_id", sessionID,
		"ha_version", haVersion,
	)

	var pending atomic.Int32
	pingDone := make(chan struct{})
	defer close(pingDone)
	go c.keepalive(cn, &pending, pingDone)

	for {
		msg, err := cn.read()
		if err != nil {
			return err
		}
		switch msg.Type {
		case msgPong:
			pending.Store(0)
		case msgResult:
			if err := c.handleResult(msg, subID, statesID); err != nil {
				return err
			}
		case msgEvent:
			if msg.ID == subID {
				c.handleEvent(msg.Event)
			}
		default:
			c.logger.Debug("ignoring home assistant message", "type", msg.Type)
		}
	}
}

// authenticate performs the auth_required / auth / auth_ok handshake.
func (c *Client) authenticate(cn *conn) (string, error) {
	_ = cn.ws.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	defer func() { _ = cn.ws.SetReadDeadline(time.Time{}) }()

	msg, err := cn.read()
	if err != nil {
		return "", fmt.Errorf("reading auth request: %w", err)
	}
	if msg.Type != msgAuthRequired {
		return "", fmt.Errorf("%w: expected %s, got %q", ErrProtocol, msgAuthRequired, msg.Type)
	}

	if err := cn.writeJSON(authMessage{Type: msgAuth, AccessToken: c.cfg.AccessToken}); err != nil {
		return "", fmt.Errorf("sending auth: %w", err)
	}

	msg, err = cn.read()
	if err != nil {
		return "", fmt.Errorf("reading auth response: %w", err)
	}
	switch msg.Type {
	case msgAuthOK:
		return msg.HAVersion, nil
	case msgAuthInvalid:
		return "", fmt.Errorf("%w: %s", ErrAuthFailed, msg.Message)
	default:
		return "", fmt.Errorf("%w: unexpected auth response %q", ErrProtocol, msg.Type)
	}
}

// keepalive sends application-level pings. If the previous ping was never
// answered the connection is closed, which ends the read loop.
func (c *Client) keepalive(cn *conn, pending *atomic.Int32, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if pending.Load() > 0 {
				c.logger.Warn("home assistant ping timed out")
				cn.ws.Close()
				return
			}
			pending.Add(1)
			if _, err := cn.send(msgPing, ""); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleResult(msg incoming, subID, statesID int) error {
	if !msg.Success {
		detail := "unknown error"
		if msg.Error != nil {
			detail = msg.Error.Code + ": " + msg.Error.Message
		}
		return fmt.Errorf("%w: command %d: %s", ErrCommandFailed, msg.ID, detail)
	}
	if msg.ID != statesID {
		if msg.ID == subID {
			c.logger.Debug("subscribed to state changes")
		}
		return nil
	}

	var states []stateObject
	if err := json.Unmarshal(msg.Result, &states); err != nil {
		return fmt.Errorf("%w: decoding states: %w", ErrProtocol, err)
	}
	c.resync(states)
	return nil
}

// resync publishes every state and removes entities that no longer exist.
func (c *Client) resync(states []stateObject) {
	seen := make(map[string]struct{}, len(states))
	for _, st := range states {
		if st.EntityID == "" {
			continue
		}
		seen[st.EntityID] = struct{}{}
		c.sink.Publish(st.snapshot())
	}

	removed := 0
	for _, id := range c.sink.EntityIDs() {
		if _, ok := seen[id]; !ok {
			c.sink.Remove(id)
			removed++
		}
	}

	c.mu.Lock()
	c.status.Resyncs++
	c.mu.Unlock()

	c.logger.Info("home assistant states synchronised",
		"entities", len(seen),
		"removed", removed,
	)
}

func (c *Client) handleEvent(raw json.RawMessage) {
	var ev eventMessage
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.logger.Warn("malformed home assistant event", "error", err)
		return
	}
	if ev.EventType != eventStateChanged {
		return
	}

	var data stateChangedData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		c.logger.Warn("malformed state_changed event", "error", err)
		return
	}
	if data.NewState == nil {
		if data.EntityID != "" {
			c.sink.Remove(data.EntityID)
		}
		return
	}
	if data.NewState.EntityID == "" {
		data.NewState.EntityID = data.EntityID
	}
	c.sink.Publish(data.NewState.snapshot())
}

func (c *Client) setConnected(sessionID, haVersion string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Connected = true
	c.status.SessionID = sessionID
	c.status.HAVersion = haVersion
	c.status.ConnectedAt = time.Now()
	c.status.LastError = ""
}

func (c *Client) setDisconnected(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Connected = false
	if err != nil {
		c.status.LastError = err.Error()
	}
}
