package filmroom

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"
)

// ============================================================================
// Test Helpers
// ============================================================================

// fakeNetwork hands out fakeTransports and records every one created.
type fakeNetwork struct {
	transports []*fakeTransport
	failOpen   bool
}

func (n *fakeNetwork) factory(events TransportEvents) Transport {
	t := &fakeTransport{net: n, events: events}
	n.transports = append(n.transports, t)
	return t
}

func (n *fakeNetwork) last(t *testing.T) *fakeTransport {
	t.Helper()
	if len(n.transports) == 0 {
		t.Fatal("no transport created")
	}
	return n.transports[len(n.transports)-1]
}

func (n *fakeNetwork) opens() int {
	total := 0
	for _, tr := range n.transports {
		total += tr.opens
	}
	return total
}

type fakeTransport struct {
	net    *fakeNetwork
	events TransportEvents
	url    string
	opens  int
	closes int
}

func (t *fakeTransport) Open(url string) {
	t.url = url
	t.opens++
	if t.net.failOpen {
		t.events.OnError(errors.New("connection refused"))
	}
}

func (t *fakeTransport) Close() { t.closes++ }

func (t *fakeTransport) send(tb testing.TB, v any) {
	tb.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal frame: %v", err)
	}
	t.events.OnMessage(data)
}

// manualScheduler records timers and fires them only when told to.
type manualScheduler struct {
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (m *manualTimer) Stop() bool {
	if m.stopped || m.fired {
		return false
	}
	m.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) pending() []*manualTimer {
	var out []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

func (s *manualScheduler) fireNext(t *testing.T) {
	t.Helper()
	p := s.pending()
	if len(p) == 0 {
		t.Fatal("no pending timer to fire")
	}
	p[0].fired = true
	p[0].f()
}

type harness struct {
	rc       *RealtimeClient
	net      *fakeNetwork
	sched    *manualScheduler
	statuses []bool
}

func newHarness(t *testing.T, mutate func(*RealtimeConfig)) *harness {
	t.Helper()
	h := &harness{net: &fakeNetwork{}, sched: &manualScheduler{}}
	cfg := RealtimeConfig{
		URL:       "ws://capture.test/ws",
		Transport: h.net.factory,
		Scheduler: h.sched,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.rc = NewRealtimeClient(cfg)
	h.rc.OnStatusChange(func(connected bool) {
		h.statuses = append(h.statuses, connected)
	})
	t.Cleanup(h.rc.Close)
	return h
}

// connected drives the client to StateConnected.
func (h *harness) connected(t *testing.T) *fakeTransport {
	t.Helper()
	h.rc.Connect()
	tr := h.net.last(t)
	tr.events.OnOpen()
	if got := h.rc.State(); got != StateConnected {
		t.Fatalf("expected connected, got %s", got)
	}
	return tr
}

func expectState(t *testing.T, rc *RealtimeClient, want ConnectionState) {
	t.Helper()
	if got := rc.State(); got != want {
		t.Fatalf("expected state %s, got %s", want, got)
	}
}

func expectStatuses(t *testing.T, got []bool, want ...bool) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("expected statuses %v, got %v", want, got)
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestRealtimeConnect(t *testing.T) {
	h := newHarness(t, nil)
	expectState(t, h.rc, StateDisconnected)

	h.rc.Connect()
	expectState(t, h.rc, StateConnecting)
	if len(h.net.transports) != 1 {
		t.Fatalf("expected 1 transport, got %d", len(h.net.transports))
	}
	tr := h.net.last(t)
	if tr.url != "ws://capture.test/ws" {
		t.Fatalf("unexpected url %q", tr.url)
	}

	tr.events.OnOpen()
	expectState(t, h.rc, StateConnected)
	if !h.rc.IsConnected() {
		t.Fatal("expected IsConnected")
	}
	expectStatuses(t, h.statuses, true)
}

func TestRealtimeConnectIsNoopWhenBusy(t *testing.T) {
	t.Run("connecting", func(t *testing.T) {
		h := newHarness(t, nil)
		h.rc.Connect()
		h.rc.Connect()
		h.rc.Connect()
		if len(h.net.transports) != 1 {
			t.Fatalf("expected 1 transport, got %d", len(h.net.transports))
		}
	})

	t.Run("connected", func(t *testing.T) {
		h := newHarness(t, nil)
		h.connected(t)
		h.rc.Connect()
		if len(h.net.transports) != 1 {
			t.Fatalf("expected 1 transport, got %d", len(h.net.transports))
		}
		expectStatuses(t, h.statuses, true)
	})
}

func TestRealtimeReconnectCounter(t *testing.T) {
	h := newHarness(t, nil)
	h.connected(t)

	for i := 0; i < 3; i++ {
		h.net.last(t).events.OnClose(1006, "abnormal")
		expectState(t, h.rc, StateReconnecting)
		if got := h.rc.Attempts(); got != 1 {
			t.Fatalf("round %d: expected 1 attempt, got %d", i, got)
		}

		h.sched.fireNext(t)
		expectState(t, h.rc, StateConnecting)

		h.net.last(t).events.OnOpen()
		expectState(t, h.rc, StateConnected)
		if got := h.rc.Attempts(); got != 0 {
			t.Fatalf("round %d: expected counter reset, got %d", i, got)
		}
		if n := len(h.sched.pending()); n != 0 {
			t.Fatalf("round %d: expected no pending timer while connected, got %d", i, n)
		}
	}
	if len(h.net.transports) != 4 {
		t.Fatalf("expected 4 transports, got %d", len(h.net.transports))
	}
}

func TestRealtimeUsesFixedInterval(t *testing.T) {
	h := newHarness(t, func(c *RealtimeConfig) { c.ReconnectInterval = 250 * time.Millisecond })
	h.net.failOpen = true
	h.rc.Connect()
	h.sched.fireNext(t)
	h.sched.fireNext(t)

	for i, tm := range h.sched.timers {
		if tm.d != 250*time.Millisecond {
			t.Fatalf("timer %d: expected 250ms, got %s", i, tm.d)
		}
	}
}

func TestRealtimeDefaults(t *testing.T) {
	var cfg RealtimeConfig
	cfg.defaults()
	if cfg.ReconnectInterval != 3*time.Second {
		t.Fatalf("expected 3s interval, got %s", cfg.ReconnectInterval)
	}
	if cfg.MaxReconnectAttempts != 10 {
		t.Fatalf("expected 10 attempts, got %d", cfg.MaxReconnectAttempts)
	}
	if cfg.Transport == nil || cfg.Scheduler == nil || cfg.Logger == nil {
		t.Fatal("expected transport, scheduler and logger defaults")
	}
}

func TestRealtimeSinglePendingTimer(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)

	tr.events.OnError(errors.New("read: connection reset"))
	tr.events.OnClose(1006, "abnormal")
	tr.events.OnError(errors.New("again"))

	if !h.rc.RetryPending() {
		t.Fatal("expected a retry to be pending")
	}

	if n := len(h.sched.pending()); n != 1 {
		t.Fatalf("expected 1 pending timer, got %d", n)
	}
	if got := h.rc.Attempts(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
	expectStatuses(t, h.statuses, true, false)
	if tr.closes == 0 {
		t.Fatal("expected lost transport to be closed")
	}
}

func TestRealtimeGivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness(t, func(c *RealtimeConfig) { c.MaxReconnectAttempts = 2 })
	h.net.failOpen = true

	h.rc.Connect()
	expectState(t, h.rc, StateReconnecting)

	h.sched.fireNext(t)
	h.sched.fireNext(t)

	if got := len(h.sched.timers); got != 2 {
		t.Fatalf("expected exactly 2 scheduled retries, got %d", got)
	}
	if got := h.net.opens(); got != 3 {
		t.Fatalf("expected 3 open calls, got %d", got)
	}
	if n := len(h.sched.pending()); n != 0 {
		t.Fatalf("expected no pending timer after giving up, got %d", n)
	}
	expectState(t, h.rc, StateDisconnected)
	expectStatuses(t, h.statuses)

	t.Run("explicit connect retries with fresh budget", func(t *testing.T) {
		h.rc.Connect()
		if got := h.net.opens(); got != 4 {
			t.Fatalf("expected a 4th open, got %d", got)
		}
		if got := h.rc.Attempts(); got != 1 {
			t.Fatalf("expected counter restarted at 1, got %d", got)
		}
		if n := len(h.sched.pending()); n != 1 {
			t.Fatalf("expected a retry to be scheduled, got %d", n)
		}
	})
}

func TestRealtimeNegativeMaxAttemptsDisablesReconnect(t *testing.T) {
	h := newHarness(t, func(c *RealtimeConfig) { c.MaxReconnectAttempts = -1 })
	tr := h.connected(t)
	tr.events.OnClose(1001, "going away")

	expectState(t, h.rc, StateDisconnected)
	if len(h.sched.timers) != 0 {
		t.Fatalf("expected no retries, got %d", len(h.sched.timers))
	}
	expectStatuses(t, h.statuses, true, false)
}

func TestRealtimeConnectWhileReconnecting(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)
	tr.events.OnClose(1006, "")
	expectState(t, h.rc, StateReconnecting)
	pending := h.sched.pending()[0]

	h.rc.Connect()
	expectState(t, h.rc, StateConnecting)
	if !pending.stopped {
		t.Fatal("expected pending retry to be cancelled")
	}
	if len(h.net.transports) != 2 {
		t.Fatalf("expected 2 transports, got %d", len(h.net.transports))
	}

	// The cancelled timer firing late must not open a third transport.
	pending.f()
	if len(h.net.transports) != 2 {
		t.Fatalf("expected stale timer to be ignored, got %d transports", len(h.net.transports))
	}
}

func TestRealtimeDisconnectFromAnyState(t *testing.T) {
	cases := []struct {
		name  string
		setup func(t *testing.T, h *harness)
	}{
		{"disconnected", func(t *testing.T, h *harness) {}},
		{"connecting", func(t *testing.T, h *harness) { h.rc.Connect() }},
		{"connected", func(t *testing.T, h *harness) { h.connected(t) }},
		{"reconnecting", func(t *testing.T, h *harness) {
			h.connected(t).events.OnClose(1006, "")
		}},
		{"exhausted", func(t *testing.T, h *harness) {
			h.net.failOpen = true
			h.rc.Connect()
			for len(h.sched.pending()) > 0 {
				h.sched.fireNext(t)
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, func(c *RealtimeConfig) { c.MaxReconnectAttempts = 3 })
			tc.setup(t, h)
			timers := h.sched.pending()

			h.rc.Disconnect()
			h.rc.Disconnect()

			expectState(t, h.rc, StateDisconnected)
			if n := len(h.sched.pending()); n != 0 {
				t.Fatalf("expected no pending timer, got %d", n)
			}
			if got := h.rc.Attempts(); got != 0 {
				t.Fatalf("expected counter reset, got %d", got)
			}
			if h.rc.RetryPending() {
				t.Fatal("expected no pending retry")
			}
			for _, tm := range timers {
				tm.f()
			}
			expectState(t, h.rc, StateDisconnected)
			for i, tr := range h.net.transports {
				if tr.opens > 0 && tr.closes == 0 {
					t.Fatalf("transport %d left open", i)
				}
			}
			if n := len(h.statuses); n == 0 || h.statuses[n-1] {
				t.Fatalf("expected last status false, got %v", h.statuses)
			}
		})
	}
}

func TestRealtimeIgnoresStaleTransport(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)

	calls := 0
	h.rc.Subscribe(EventClipReady, func(json.RawMessage) error {
		calls++
		return nil
	})

	h.rc.Disconnect()
	expectStatuses(t, h.statuses, true, false)

	tr.events.OnClose(1000, "client disconnect")
	tr.events.OnError(errors.New("late"))
	tr.events.OnOpen()
	tr.send(t, Envelope{Type: EventClipReady, Payload: json.RawMessage(`{}`)})

	expectState(t, h.rc, StateDisconnected)
	if len(h.sched.timers) != 0 {
		t.Fatalf("expected no retry after deliberate disconnect, got %d", len(h.sched.timers))
	}
	if calls != 0 {
		t.Fatalf("expected stale frame to be dropped, handler ran %d times", calls)
	}
	expectStatuses(t, h.statuses, true, false)
}

// ============================================================================
// Status broadcasting
// ============================================================================

func TestRealtimeStatusTransitions(t *testing.T) {
	h := newHarness(t, nil)

	h.net.failOpen = true
	h.rc.Connect()
	expectStatuses(t, h.statuses)

	h.net.failOpen = false
	h.sched.fireNext(t)
	h.net.last(t).events.OnOpen()
	expectStatuses(t, h.statuses, true)

	h.net.last(t).events.OnClose(1011, "server error")
	expectStatuses(t, h.statuses, true, false)

	h.sched.fireNext(t)
	h.net.last(t).events.OnOpen()
	expectStatuses(t, h.statuses, true, false, true)

	h.rc.Disconnect()
	expectStatuses(t, h.statuses, true, false, true, false)
}

func TestRealtimeStatusUnsubscribe(t *testing.T) {
	h := newHarness(t, nil)
	var got []bool
	off := h.rc.OnStatusChange(func(c bool) { got = append(got, c) })
	h.connected(t)
	off()
	off()
	h.rc.Disconnect()
	expectStatuses(t, got, true)
}

func TestRealtimeStatusListenerMayDisconnect(t *testing.T) {
	h := newHarness(t, nil)
	var order []bool
	h.rc.OnStatusChange(func(c bool) {
		order = append(order, c)
		if c {
			h.rc.Disconnect()
		}
	})
	h.rc.OnStatusChange(func(bool) { panic("listener bug") })

	h.rc.Connect()
	h.net.last(t).events.OnOpen()

	expectState(t, h.rc, StateDisconnected)
	expectStatuses(t, order, true, false)
	expectStatuses(t, h.statuses, true, false)
}

// ============================================================================
// Event dispatch
// ============================================================================

func TestRealtimeSubscribe(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)

	var got []string
	off := h.rc.Subscribe(EventClipReady, func(p json.RawMessage) error {
		got = append(got, string(p))
		return nil
	})

	tr.send(t, Envelope{Type: EventClipReady, Payload: json.RawMessage(`{"n":1}`)})
	tr.send(t, Envelope{Type: EventClipCreated, Payload: json.RawMessage(`{"n":2}`)})
	if len(got) != 1 || got[0] != `{"n":1}` {
		t.Fatalf("expected one clip_ready payload, got %v", got)
	}

	off()
	off()
	tr.send(t, Envelope{Type: EventClipReady, Payload: json.RawMessage(`{"n":3}`)})
	if len(got) != 1 {
		t.Fatalf("expected no delivery after unsubscribe, got %v", got)
	}
}

func TestRealtimeSameHandlerSubscribedTwice(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)

	calls := 0
	handler := func(json.RawMessage) error { calls++; return nil }
	offA := h.rc.Subscribe(EventSessionStart, handler)
	h.rc.Subscribe(EventSessionStart, handler)

	tr.send(t, Envelope{Type: EventSessionStart, Payload: json.RawMessage(`{}`)})
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}

	offA()
	tr.send(t, Envelope{Type: EventSessionStart, Payload: json.RawMessage(`{}`)})
	if calls != 3 {
		t.Fatalf("expected the second subscription to survive, got %d calls", calls)
	}
}

func TestRealtimeSessionStartHandlers(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)

	var a, b []string
	h.rc.OnSessionStart(func(p SessionEventPayload) error {
		a = append(a, p.Session.ID)
		return nil
	})
	h.rc.OnSessionStart(func(p SessionEventPayload) error {
		b = append(b, p.Session.ID)
		return nil
	})

	tr.events.OnMessage([]byte(`{"type":"session_start","payload":{"session":{"id":"s1","name":"Week 3 vs Tigers"}}}`))

	if !slices.Equal(a, []string{"s1"}) || !slices.Equal(b, []string{"s1"}) {
		t.Fatalf("expected each handler once with s1, got %v and %v", a, b)
	}
}

func TestRealtimeHandlerFailureIsolated(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)

	var order []string
	h.rc.Subscribe(EventClipReady, func(json.RawMessage) error {
		order = append(order, "panics")
		panic("boom")
	})
	h.rc.Subscribe(EventClipReady, func(json.RawMessage) error {
		order = append(order, "errors")
		return errors.New("bad clip")
	})
	h.rc.Subscribe(EventClipReady, func(json.RawMessage) error {
		order = append(order, "ok")
		return nil
	})

	tr.send(t, Envelope{Type: EventClipReady, Payload: json.RawMessage(`{}`)})
	tr.send(t, Envelope{Type: EventClipReady, Payload: json.RawMessage(`{}`)})

	want := []string{"panics", "errors", "ok", "panics", "errors", "ok"}
	if !slices.Equal(order, want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	expectState(t, h.rc, StateConnected)
}

func TestRealtimeDropsMalformedFrames(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)

	calls := 0
	for _, et := range EventTypes {
		h.rc.Subscribe(et, func(json.RawMessage) error { calls++; return nil })
	}

	frames := []string{
		`not json`,
		`[1,2,3]`,
		`{"payload":{}}`,
		`{"type":"","payload":{}}`,
		`{"type":"clip_deleted","payload":{}}`,
		`{"type":42}`,
	}
	for _, f := range frames {
		tr.events.OnMessage([]byte(f))
	}

	if calls != 0 {
		t.Fatalf("expected no handler calls, got %d", calls)
	}
	expectState(t, h.rc, StateConnected)
	if len(h.sched.timers) != 0 {
		t.Fatal("malformed frames must not trigger a reconnect")
	}

	tr.events.OnMessage([]byte(`{"type":"clip_failed","payload":{"clip_id":"c1","error":"encoder crashed"}}`))
	if calls != 1 {
		t.Fatalf("expected valid frame after garbage to be delivered, got %d", calls)
	}
}

func TestRealtimeTypedPayloadDecodeFailure(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)

	var ready []string
	h.rc.OnClipReady(func(p ClipReadyPayload) error {
		ready = append(ready, p.Clip.ID)
		return nil
	})

	tr.events.OnMessage([]byte(`{"type":"clip_ready","payload":{"clip":"not-an-object"}}`))
	tr.events.OnMessage([]byte(`{"type":"clip_ready","payload":{"clip":{"id":"c9"}}}`))

	if !slices.Equal(ready, []string{"c9"}) {
		t.Fatalf("expected only c9, got %v", ready)
	}
}

func TestRealtimeUnsubscribeAll(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)

	calls := 0
	h.rc.Subscribe(EventClipCreated, func(json.RawMessage) error { calls++; return nil })
	h.rc.Subscribe(EventClipCreated, func(json.RawMessage) error { calls++; return nil })
	h.rc.Subscribe(EventSessionEnd, func(json.RawMessage) error { calls++; return nil })

	h.rc.Unsubscribe(EventClipCreated)
	h.rc.Unsubscribe(EventClipSegmentReady)

	tr.send(t, Envelope{Type: EventClipCreated, Payload: json.RawMessage(`{}`)})
	tr.send(t, Envelope{Type: EventSessionEnd, Payload: json.RawMessage(`{}`)})
	if calls != 1 {
		t.Fatalf("expected only the session_end handler, got %d calls", calls)
	}
}

func TestRealtimeHandlerMayDisconnect(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)

	h.rc.Subscribe(EventSessionEnd, func(json.RawMessage) error {
		h.rc.Disconnect()
		return nil
	})
	tr.send(t, Envelope{Type: EventSessionEnd, Payload: json.RawMessage(`{}`)})

	expectState(t, h.rc, StateDisconnected)
	expectStatuses(t, h.statuses, true, false)
}

func TestRealtimeSubscriptionsSurviveReconnect(t *testing.T) {
	h := newHarness(t, nil)
	tr := h.connected(t)

	calls := 0
	h.rc.Subscribe(EventClipSegmentReady, func(json.RawMessage) error { calls++; return nil })

	tr.events.OnClose(1006, "")
	h.sched.fireNext(t)
	next := h.net.last(t)
	next.events.OnOpen()
	next.send(t, Envelope{Type: EventClipSegmentReady, Payload: json.RawMessage(`{}`)})

	if calls != 1 {
		t.Fatalf("expected delivery on the new connection, got %d", calls)
	}
}

func TestRealtimeCloseDropsSubscribers(t *testing.T) {
	h := newHarness(t, nil)
	h.connected(t)

	calls := 0
	h.rc.Subscribe(EventClipReady, func(json.RawMessage) error { calls++; return nil })
	h.rc.Close()

	if n := h.rc.dispatcher.count(EventClipReady); n != 0 {
		t.Fatalf("expected no handlers after Close, got %d", n)
	}

	// The client remains usable after Close.
	h.rc.Connect()
	tr := h.net.last(t)
	tr.events.OnOpen()
	tr.send(t, Envelope{Type: EventClipReady, Payload: json.RawMessage(`{}`)})
	if calls != 0 {
		t.Fatalf("expected dropped handler to stay silent, got %d calls", calls)
	}
	expectState(t, h.rc, StateConnected)
}

// ============================================================================
// RealtimeURL
// ============================================================================

func TestRealtimeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "https://capture.example.com", want: "wss://capture.example.com/ws"},
		{in: "https://capture.example.com/api/v1?x=1", want: "wss://capture.example.com/ws"},
		{in: " ws://10.0.0.5:8080/ ", want: "ws://10.0.0.5:8080/ws"},
		{in: "ftp://capture.example.com", wantErr: true},
		{in: "localhost:8080", wantErr: true},
		{in: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := RealtimeURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
