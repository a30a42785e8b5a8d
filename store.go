package filmroom

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrNotCached is returned by store operations on an entity the store has not
// loaded.
var ErrNotCached = errors.New("filmroom: not in store")

// ============================================================================
// ClipStore
// ============================================================================

// ClipStore caches a page of clips and keeps it current from realtime events.
// It is safe for concurrent use.
type ClipStore struct {
	api *ClipsClient

	mu    sync.RWMutex
	clips []Clip
	total int
	query ClipQuery
}

// NewClipStore creates an empty store backed by api.
func NewClipStore(api *ClipsClient) *ClipStore {
	return &ClipStore{api: api}
}

// Fetch replaces the cached list with the page matching q.
func (s *ClipStore) Fetch(ctx context.Context, q ClipQuery) error {
	page, err := s.api.List(ctx, q)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.clips = slices.Clone(page.Data)
	s.total = page.Total
	s.query = q
	s.mu.Unlock()
	return nil
}

// List returns a copy of the cached clips, newest first.
func (s *ClipStore) List() []Clip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.clips)
}

// Total is the server-side count from the last fetch, adjusted for clips
// added by events since.
func (s *ClipStore) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

func (s *ClipStore) Get(id string) (Clip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.clips[i], true
	}
	return Clip{}, false
}

// ToggleFavorite flips the favourite flag on the server and stores the result.
// A clip the store has not loaded is left alone and yields ErrNotCached.
func (s *ClipStore) ToggleFavorite(ctx context.Context, id string) (*Clip, error) {
	current, ok := s.Get(id)
	if !ok {
		return nil, ErrNotCached
	}
	var (
		clip *Clip
		err  error
	)
	if current.IsFavorite {
		clip, err = s.api.Unfavorite(ctx, id)
	} else {
		clip, err = s.api.Favorite(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.clips[i] = *clip
	}
	s.mu.Unlock()
	return clip, nil
}

// Bind subscribes the store to clip events on rc. The returned func removes
// the subscriptions.
func (s *ClipStore) Bind(rc *RealtimeClient) func() {
	unsubs := []func(){
		rc.OnClipCreated(func(p ClipReadyPayload) error {
			s.upsert(p.Clip)
			return nil
		}),
		rc.OnClipReady(func(p ClipReadyPayload) error {
			s.upsert(p.Clip)
			return nil
		}),
		rc.OnClipFailed(func(p ClipFailedPayload) error {
			s.markFailed(p)
			return nil
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (s *ClipStore) upsert(c Clip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(c.ID); i >= 0 {
		s.clips[i] = c
		return
	}
	if !s.matchesLocked(c) {
		return
	}
	s.clips = slices.Insert(s.clips, 0, c)
	s.total++
}

func (s *ClipStore) markFailed(p ClipFailedPayload) {
	if p.ClipID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(p.ClipID); i >= 0 {
		s.clips[i].Status = ClipFailed
		s.clips[i].ErrorMessage = p.Error
	}
}

// matchesLocked reports whether a pushed clip belongs in the current view.
func (s *ClipStore) matchesLocked(c Clip) bool {
	q := s.query
	if q.SessionID != "" && c.SessionID != q.SessionID {
		return false
	}
	if q.ChannelID != "" && c.ChannelID != q.ChannelID {
		return false
	}
	if q.Favorite != nil && c.IsFavorite != *q.Favorite {
		return false
	}
	return true
}

func (s *ClipStore) indexLocked(id string) int {
	return slices.IndexFunc(s.clips, func(c Clip) bool { return c.ID == id })
}

// ============================================================================
// SessionStore
// ============================================================================

// SessionStore caches sessions and keeps them current from realtime events.
type SessionStore struct {
	api *SessionsClient

	mu       sync.RWMutex
	sessions []Session
	total    int
}

func NewSessionStore(api *SessionsClient) *SessionStore {
	return &SessionStore{api: api}
}

func (s *SessionStore) Fetch(ctx context.Context, q SessionQuery) error {
	page, err := s.api.List(ctx, q)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions = slices.Clone(page.Data)
	s.total = page.Total
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sessions)
}

func (s *SessionStore) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.sessions[i], true
	}
	return Session{}, false
}

// Active returns the cached sessions that are currently recording.
func (s *SessionStore) Active() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Session
	for _, sess := range s.sessions {
		if sess.Status == SessionActive {
			out = append(out, sess)
		}
	}
	return out
}

func (s *SessionStore) Start(ctx context.Context, id string) (*Session, error) {
	return s.apply(s.api.Start(ctx, id))
}

func (s *SessionStore) Pause(ctx context.Context, id string) (*Session, error) {
	return s.apply(s.api.Pause(ctx, id))
}

func (s *SessionStore) Complete(ctx context.Context, id string) (*Session, error) {
	return s.apply(s.api.Complete(ctx, id))
}

func (s *SessionStore) apply(sess *Session, err error) (*Session, error) {
	if err != nil {
		return nil, err
	}
	s.upsert(*sess)
	return sess, nil
}

// Bind subscribes the store to session events on rc.
func (s *SessionStore) Bind(rc *RealtimeClient) func() {
	onEvent := func(p SessionEventPayload) error {
		s.upsert(p.Session)
		return nil
	}
	startOff := rc.OnSessionStart(onEvent)
	endOff := rc.OnSessionEnd(onEvent)
	return func() {
		startOff()
		endOff()
	}
}

func (s *SessionStore) upsert(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(sess.ID); i >= 0 {
		s.sessions[i] = sess
		return
	}
	s.sessions = slices.Insert(s.sessions, 0, sess)
	s.total++
}

func (s *SessionStore) indexLocked(id string) int {
	return slices.IndexFunc(s.sessions, func(sess Session) bool { return sess.ID == id })
}
