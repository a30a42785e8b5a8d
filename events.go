package filmroom

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Event Types
// ============================================================================

// EventType is the closed set of server-pushed event kinds.
type EventType string

const (
	EventClipCreated      EventType = "clip_created"
	EventClipReady        EventType = "clip_ready"
	EventClipFailed       EventType = "clip_failed"
	EventClipSegmentReady EventType = "clip_segment_ready"
	EventSessionStart     EventType = "session_start"
	EventSessionEnd       EventType = "session_end"
)

// EventTypes lists every known event type.
var EventTypes = []EventType{
	EventClipCreated,
	EventClipReady,
	EventClipFailed,
	EventClipSegmentReady,
	EventSessionStart,
	EventSessionEnd,
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventClipCreated, EventClipReady, EventClipFailed,
		EventClipSegmentReady, EventSessionStart, EventSessionEnd:
		return true
	}
	return false
}

// ParseEventType converts a wire tag to an EventType.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return t, nil
}

// Envelope is the wire format of every inbound frame.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ============================================================================
// Event Payload Types
// ============================================================================

// ClipReadyPayload is carried by clip_created and clip_ready.
type ClipReadyPayload struct {
	Clip Clip `json:"clip"`
}

// ClipFailedPayload is sent when clip generation fails.
type ClipFailedPayload struct {
	ClipID    string `json:"clip_id,omitempty"`
	PlayID    string `json:"play_id,omitempty"`
	ChannelID string `json:"channel_id"`
	Error     string `json:"error"`
}

// ClipSegmentReadyPayload announces a live segment of a clip still being recorded.
type ClipSegmentReadyPayload struct {
	PlayID     string `json:"play_id"`
	ChannelID  string `json:"channel_id"`
	SegmentURL string `json:"segment_url"`
	Sequence   int    `json:"sequence"`
	Timestamp  int64  `json:"timestamp"`
	IsFinal    bool   `json:"is_final"`
}

// SessionEventPayload is carried by session_start and session_end.
type SessionEventPayload struct {
	Session Session `json:"session"`
}

// ============================================================================
// Typed subscriptions
// ============================================================================

// subscribeTyped decodes the payload before calling fn. A payload that does not
// decode is reported as a handler error.
func subscribeTyped[T any](rc *RealtimeClient, t EventType, fn func(T) error) func() {
	return rc.Subscribe(t, func(payload json.RawMessage) error {
		var p T
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", t, err)
		}
		return fn(p)
	})
}

// OnClipCreated registers a handler for clip_created.
func (rc *RealtimeClient) OnClipCreated(fn func(ClipReadyPayload) error) func() {
	return subscribeTyped(rc, EventClipCreated, fn)
}

// OnClipReady registers a handler for clip_ready.
func (rc *RealtimeClient) OnClipReady(fn func(ClipReadyPayload) error) func() {
	return subscribeTyped(rc, EventClipReady, fn)
}

// OnClipFailed registers a handler for clip_failed.
func (rc *RealtimeClient) OnClipFailed(fn func(ClipFailedPayload) error) func() {
	return subscribeTyped(rc, EventClipFailed, fn)
}

// OnClipSegmentReady registers a handler for clip_segment_ready.
func (rc *RealtimeClient) OnClipSegmentReady(fn func(ClipSegmentReadyPayload) error) func() {
	return subscribeTyped(rc, EventClipSegmentReady, fn)
}

// OnSessionStart registers a handler for session_start.
func (rc *RealtimeClient) OnSessionStart(fn func(SessionEventPayload) error) func() {
	return subscribeTyped(rc, EventSessionStart, fn)
}

// OnSessionEnd registers a handler for session_end.
func (rc *RealtimeClient) OnSessionEnd(fn func(SessionEventPayload) error) func() {
	return subscribeTyped(rc, EventSessionEnd, fn)
}
