package filmroom

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ============================================================================
// Configuration
// ============================================================================

const (
	DefaultReconnectInterval    = 3 * time.Second
	DefaultMaxReconnectAttempts = 10
	realtimePath                = "/ws"
)

// RealtimeConfig configures a RealtimeClient. It is read once at construction.
type RealtimeConfig struct {
	// URL of the realtime endpoint, e.g. "wss://host/ws".
	URL string
	// ReconnectInterval is the fixed delay before each retry.
	ReconnectInterval time.Duration
	// MaxReconnectAttempts caps consecutive retries. Zero means the default;
	// a negative value disables automatic reconnection.
	MaxReconnectAttempts int
	// Transport creates the underlying connection. Defaults to a WebSocket.
	Transport TransportFactory
	// Scheduler runs retry timers. Defaults to time.AfterFunc.
	Scheduler Scheduler
	Logger    *slog.Logger
}

func (c *RealtimeConfig) defaults() {
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Transport == nil {
		c.Transport = NewWebSocketTransport(WebSocketOptions{})
	}
	if c.Scheduler == nil {
		c.Scheduler = timeScheduler{}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
}

// RealtimeURL derives the realtime endpoint from an HTTP base URL: the scheme
// becomes ws or wss and the path becomes /ws.
func RealtimeURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url %q has no host", baseURL)
	}
	u.Path = realtimePath
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// ConnectionState is the state of the realtime link.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// ============================================================================
// RealtimeClient
// ============================================================================

// RealtimeClient keeps one connection to the realtime endpoint open, retries it
// when it drops and fans pushed events out to subscribers.
//
// Connect and Disconnect never block and never return errors. Transport
// failures are retried up to MaxReconnectAttempts and are otherwise visible
// only as a disconnected status. Events sent while disconnected are lost.
type RealtimeClient struct {
	config     RealtimeConfig
	logger     *slog.Logger
	dispatcher *eventDispatcher
	status     *statusBroadcaster

	mu        sync.Mutex
	state     ConnectionState
	recon     *reconnector
	transport Transport
	gen       uint64 // bumped for every new transport and on Disconnect
	lost      bool   // current transport already reported its loss

	statusQueue []bool
	flushing    bool
}

// NewRealtimeClient builds a client. Nothing connects until Connect is called.
func NewRealtimeClient(config RealtimeConfig) *RealtimeClient {
	config.defaults()
	return &RealtimeClient{
		config:     config,
		logger:     config.Logger,
		dispatcher: newEventDispatcher(config.Logger),
		status:     newStatusBroadcaster(config.Logger),
		recon:      newReconnector(&config),
		state:      StateDisconnected,
	}
}

// Subscribe registers h for events of type t and returns a func that removes
// it again. Each call creates a separate subscription.
func (rc *RealtimeClient) Subscribe(t EventType, h EventHandler) func() {
	return rc.dispatcher.subscribe(t, h)
}

// Unsubscribe removes every handler registered for t.
func (rc *RealtimeClient) Unsubscribe(t EventType) {
	rc.dispatcher.unsubscribeAll(t)
}

// OnStatusChange registers a listener for connected/disconnected changes.
func (rc *RealtimeClient) OnStatusChange(l StatusListener) func() {
	return rc.status.add(l)
}

// State returns the current connection state.
func (rc *RealtimeClient) State() ConnectionState {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

// IsConnected reports whether the link is currently up.
func (rc *RealtimeClient) IsConnected() bool {
	return rc.State() == StateConnected
}

// Attempts returns the number of reconnect attempts since the last successful
// connection.
func (rc *RealtimeClient) Attempts() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.recon.attempt
}

// RetryPending reports whether a reconnect is scheduled.
func (rc *RealtimeClient) RetryPending() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.recon.pending()
}

// Connect opens the connection. It is a no-op while connecting or connected.
// Called while a retry is pending, it connects immediately instead. Every
// explicit Connect starts with a fresh attempt budget.
func (rc *RealtimeClient) Connect() {
	rc.mu.Lock()
	if rc.state == StateConnecting || rc.state == StateConnected {
		rc.mu.Unlock()
		return
	}
	rc.recon.reset()
	t := rc.openLocked()
	rc.mu.Unlock()

	rc.logger.Info("realtime: connecting", "url", rc.config.URL)
	t.Open(rc.config.URL)
}

// Disconnect closes the connection and cancels any pending retry. It is safe
// to call from any state, any number of times.
func (rc *RealtimeClient) Disconnect() {
	rc.mu.Lock()
	rc.recon.reset()
	t := rc.transport
	rc.transport = nil
	rc.gen++
	rc.state = StateDisconnected
	rc.statusQueue = append(rc.statusQueue, false)
	rc.mu.Unlock()

	if t != nil {
		t.Close()
		rc.logger.Info("realtime: disconnected")
	}
	rc.flushStatus()
}

// Close disconnects and drops every subscription and status listener.
func (rc *RealtimeClient) Close() {
	rc.Disconnect()
	rc.dispatcher.clear()
	rc.status.clear()
}

func (rc *RealtimeClient) openLocked() Transport {
	rc.gen++
	gen := rc.gen
	rc.lost = false
	rc.state = StateConnecting
	t := rc.config.Transport(TransportEvents{
		OnOpen: func() { rc.handleOpen(gen) },
		OnClose: func(code int, reason string) {
			rc.handleLoss(gen, slog.Int("code", code), slog.String("reason", reason))
		},
		OnError: func(err error) {
			rc.handleLoss(gen, slog.Any("error", err))
		},
		OnMessage: func(data []byte) { rc.handleFrame(gen, data) },
	})
	rc.transport = t
	return t
}

func (rc *RealtimeClient) handleOpen(gen uint64) {
	rc.mu.Lock()
	if gen != rc.gen || rc.state != StateConnecting {
		rc.mu.Unlock()
		return
	}
	rc.state = StateConnected
	rc.recon.reset()
	rc.statusQueue = append(rc.statusQueue, true)
	rc.mu.Unlock()

	rc.logger.Info("realtime: connected", "url", rc.config.URL)
	rc.flushStatus()
}

func (rc *RealtimeClient) handleLoss(gen uint64, attrs ...slog.Attr) {
	rc.mu.Lock()
	if gen != rc.gen || rc.lost {
		rc.mu.Unlock()
		return
	}
	rc.lost = true
	wasConnected := rc.state == StateConnected
	t := rc.transport
	rc.transport = nil

	retry := rc.recon.schedule(rc.fire)
	if retry {
		rc.state = StateReconnecting
	} else {
		rc.state = StateDisconnected
	}
	attempt := rc.recon.attempt
	if wasConnected {
		rc.statusQueue = append(rc.statusQueue, false)
	}
	rc.mu.Unlock()

	if t != nil {
		t.Close()
	}

	args := make([]any, 0, len(attrs)+1)
	for _, a := range attrs {
		args = append(args, a)
	}
	rc.logger.Warn("realtime: connection lost", args...)
	if retry {
		rc.logger.Info("realtime: reconnecting", "attempt", attempt, "interval", rc.config.ReconnectInterval)
	} else if rc.config.MaxReconnectAttempts >= 0 {
		rc.logger.Warn("realtime: max reconnect attempts reached", "attempt", attempt)
	}
	rc.flushStatus()
}

// fire runs when a retry timer expires.
func (rc *RealtimeClient) fire(token uint64) {
	rc.mu.Lock()
	if !rc.recon.take(token) || rc.state != StateReconnecting {
		rc.mu.Unlock()
		return
	}
	t := rc.openLocked()
	rc.mu.Unlock()

	t.Open(rc.config.URL)
}

func (rc *RealtimeClient) handleFrame(gen uint64, data []byte) {
	rc.mu.Lock()
	current := gen == rc.gen
	rc.mu.Unlock()
	if !current {
		return
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		rc.logger.Warn("realtime: dropping malformed frame", "error", err, "size", len(data))
		return
	}
	if env.Type == "" {
		rc.logger.Warn("realtime: dropping frame without type", "size", len(data))
		return
	}
	rc.dispatcher.dispatch(env)
}

// flushStatus delivers queued status changes in the order they happened. A
// call made while another goroutine (or a listener further up the stack) is
// already flushing leaves the work to that flusher.
func (rc *RealtimeClient) flushStatus() {
	rc.mu.Lock()
	if rc.flushing {
		rc.mu.Unlock()
		return
	}
	rc.flushing = true
	for len(rc.statusQueue) > 0 {
		connected := rc.statusQueue[0]
		rc.statusQueue = rc.statusQueue[1:]
		rc.mu.Unlock()
		rc.status.broadcast(connected)
		rc.mu.Lock()
	}
	rc.flushing = false
	rc.mu.Unlock()
}
