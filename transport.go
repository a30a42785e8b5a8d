package filmroom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// TransportEvents are the signals a Transport reports. They are called from the
// transport's own goroutine, one at a time.
type TransportEvents struct {
	OnOpen    func()
	OnClose   func(code int, reason string)
	OnError   func(err error)
	OnMessage func(data []byte)
}

// Transport owns one network connection.
type Transport interface {
	// Open starts connecting to url. It never blocks and never fails directly;
	// failures arrive as OnError.
	Open(url string)
	// Close tears the connection down without blocking. Closing twice, or
	// before Open, is a no-op.
	Close()
}

// TransportFactory creates a fresh Transport bound to events.
type TransportFactory func(events TransportEvents) Transport

// WebSocketOptions tune the default transport.
type WebSocketOptions struct {
	HTTPClient       *http.Client
	Header           http.Header
	HandshakeTimeout time.Duration
	ReadLimit        int64
}

// NewWebSocketTransport returns a factory for WebSocket transports.
func NewWebSocketTransport(opts WebSocketOptions) TransportFactory {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.ReadLimit == 0 {
		opts.ReadLimit = 1 << 20
	}
	return func(events TransportEvents) Transport {
		return &wsTransport{opts: opts, events: events}
	}
}

type wsTransport struct {
	opts   WebSocketOptions
	events TransportEvents

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	opened bool
	closed bool
}

func (t *wsTransport) Open(url string) {
	t.mu.Lock()
	if t.closed || t.opened {
		t.mu.Unlock()
		return
	}
	t.opened = true
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.mu.Unlock()

	go t.run(ctx, url)
}

func (t *wsTransport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	conn := t.conn
	cancel := t.cancel
	t.mu.Unlock()

	// The close handshake waits for the peer, so it runs off the caller's goroutine.
	go func() {
		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "client disconnect")
		}
		if cancel != nil {
			cancel()
		}
	}()
}

func (t *wsTransport) run(ctx context.Context, url string) {
	dialCtx, cancelDial := context.WithTimeout(ctx, t.opts.HandshakeTimeout)
	conn, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		HTTPClient: t.opts.HTTPClient,
		HTTPHeader: t.opts.Header,
	})
	cancelDial()
	if err != nil {
		t.emitError(fmt.Errorf("websocket dial: %w", err))
		return
	}
	conn.SetReadLimit(t.opts.ReadLimit)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "client disconnect")
		return
	}
	t.conn = conn
	t.mu.Unlock()

	if t.events.OnOpen != nil {
		t.events.OnOpen()
	}
	t.readLoop(ctx, conn)
}

func (t *wsTransport) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			t.emitLoss(ctx, err)
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		if t.events.OnMessage != nil {
			t.events.OnMessage(data)
		}
	}
}

// emitLoss reports a clean close as OnClose and anything else as OnError.
func (t *wsTransport) emitLoss(ctx context.Context, err error) {
	t.mu.Lock()
	closedLocally := t.closed
	t.mu.Unlock()

	status := websocket.CloseStatus(err)
	switch {
	case closedLocally || ctx.Err() != nil:
		if t.events.OnClose != nil {
			t.events.OnClose(int(websocket.StatusNormalClosure), "client disconnect")
		}
	case status != -1:
		if t.events.OnClose != nil {
			var ce websocket.CloseError
			reason := ""
			if errors.As(err, &ce) {
				reason = ce.Reason
			}
			t.events.OnClose(int(status), reason)
		}
	default:
		t.emitError(err)
	}
}

func (t *wsTransport) emitError(err error) {
	if t.events.OnError != nil {
		t.events.OnError(err)
	}
}
