// Package filmroom is the Go SDK for the filmroom capture service.
//
// It covers the REST API for sessions, clips, channels, tags and agents, and a
// realtime client that keeps a WebSocket open and pushes clip and session
// events to subscribers.
//
// Example:
//
//	client := filmroom.NewClient("https://capture.local")
//
//	sessions, _ := client.Sessions.List(ctx, filmroom.SessionQuery{})
//	client.Sessions.Start(ctx, sessions.Data[0].ID)
//
//	rc, _ := client.Realtime(filmroom.RealtimeConfig{})
//	rc.OnClipReady(func(p filmroom.ClipReadyPayload) error {
//		fmt.Println("clip ready:", p.Clip.ID)
//		return nil
//	})
//	rc.Connect()
//	defer rc.Close()
package filmroom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTimeout = 30 * time.Second
	apiPrefix      = "/api/v1"
)

// ============================================================================
// Client
// ============================================================================

// Client talks to the filmroom REST API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	Sessions *SessionsClient
	Clips    *ClipsClient
	Channels *ChannelsClient
	Tags     *TagsClient
	Agents   *AgentsClient
}

type ClientOption func(*Client)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the service at baseURL, e.g.
// "https://capture.local".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "filmroom-go",
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Sessions = &SessionsClient{c: c}
	c.Clips = &ClipsClient{c: c}
	c.Channels = &ChannelsClient{c: c}
	c.Tags = &TagsClient{c: c}
	c.Agents = &AgentsClient{c: c}
	return c
}

// BaseURL returns the base URL the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Realtime builds a RealtimeClient for this service. An empty config.URL is
// derived from the base URL; a nil config.Logger uses the client's logger.
func (c *Client) Realtime(config RealtimeConfig) (*RealtimeClient, error) {
	if config.URL == "" {
		u, err := RealtimeURL(c.baseURL)
		if err != nil {
			return nil, err
		}
		config.URL = u
	}
	if config.Logger == nil {
		config.Logger = c.logger
	}
	return NewRealtimeClient(config), nil
}

// ============================================================================
// Internal request helper
// ============================================================================

func (c *Client) doRequest(ctx context.Context, method, path string, body any, query map[string]string, dest any) error {
	u := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		params := url.Values{}
		for k, v := range query {
			params.Set(k, v)
		}
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, data)
	}
	if resp.StatusCode == http.StatusNoContent || dest == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, data []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body APIError
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		apiErr.Message = body.Message
		apiErr.Details = body.Details
	}
	return apiErr
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func call[T any](ctx context.Context, c *Client, method, path string, body any, query map[string]string) (*T, error) {
	var result T
	if err := c.doRequest(ctx, method, path, body, query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func escape(id string) string {
	return url.PathEscape(id)
}

// ============================================================================
// Sessions
// ============================================================================

// SessionsClient manages recording sessions.
type SessionsClient struct{ c *Client }

func (s *SessionsClient) List(ctx context.Context, q SessionQuery) (*Page[Session], error) {
	return call[Page[Session]](ctx, s.c, http.MethodGet, "/sessions", nil, q.query())
}

func (s *SessionsClient) Get(ctx context.Context, id string) (*Session, error) {
	return call[Session](ctx, s.c, http.MethodGet, "/sessions/"+escape(id), nil, nil)
}

func (s *SessionsClient) Create(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	return call[Session](ctx, s.c, http.MethodPost, "/sessions", req, nil)
}

func (s *SessionsClient) Update(ctx context.Context, id string, req *UpdateSessionRequest) (*Session, error) {
	return call[Session](ctx, s.c, http.MethodPut, "/sessions/"+escape(id), req, nil)
}

func (s *SessionsClient) Delete(ctx context.Context, id string) error {
	return s.c.doRequest(ctx, http.MethodDelete, "/sessions/"+escape(id), nil, nil, nil)
}

// Start begins recording a scheduled or paused session.
func (s *SessionsClient) Start(ctx context.Context, id string) (*Session, error) {
	return s.action(ctx, id, "start")
}

func (s *SessionsClient) Pause(ctx context.Context, id string) (*Session, error) {
	return s.action(ctx, id, "pause")
}

func (s *SessionsClient) Resume(ctx context.Context, id string) (*Session, error) {
	return s.action(ctx, id, "resume")
}

func (s *SessionsClient) Complete(ctx context.Context, id string) (*Session, error) {
	return s.action(ctx, id, "complete")
}

func (s *SessionsClient) Archive(ctx context.Context, id string) (*Session, error) {
	return s.action(ctx, id, "archive")
}

func (s *SessionsClient) action(ctx context.Context, id, verb string) (*Session, error) {
	return call[Session](ctx, s.c, http.MethodPost, "/sessions/"+escape(id)+"/"+verb, nil, nil)
}

// ============================================================================
// Clips
// ============================================================================

// ClipsClient manages generated clips.
type ClipsClient struct{ c *Client }

func (cl *ClipsClient) List(ctx context.Context, q ClipQuery) (*Page[Clip], error) {
	return call[Page[Clip]](ctx, cl.c, http.MethodGet, "/clips", nil, q.query())
}

func (cl *ClipsClient) Get(ctx context.Context, id string) (*Clip, error) {
	return call[Clip](ctx, cl.c, http.MethodGet, "/clips/"+escape(id), nil, nil)
}

func (cl *ClipsClient) Delete(ctx context.Context, id string) error {
	return cl.c.doRequest(ctx, http.MethodDelete, "/clips/"+escape(id), nil, nil, nil)
}

func (cl *ClipsClient) Favorite(ctx context.Context, id string) (*Clip, error) {
	return call[Clip](ctx, cl.c, http.MethodPost, "/clips/"+escape(id)+"/favorite", nil, nil)
}

func (cl *ClipsClient) Unfavorite(ctx context.Context, id string) (*Clip, error) {
	return call[Clip](ctx, cl.c, http.MethodDelete, "/clips/"+escape(id)+"/favorite", nil, nil)
}

// StreamURL returns the URL the clip video can be streamed from.
func (cl *ClipsClient) StreamURL(id string) string {
	return cl.c.baseURL + apiPrefix + "/clips/" + escape(id) + "/stream"
}

func (cl *ClipsClient) ThumbnailURL(id string) string {
	return cl.c.baseURL + apiPrefix + "/clips/" + escape(id) + "/thumbnail"
}

func (cl *ClipsClient) DownloadURL(id string) string {
	return cl.c.baseURL + apiPrefix + "/clips/" + escape(id) + "/download"
}

// ============================================================================
// Channels
// ============================================================================

// ChannelsClient manages capture channels.
type ChannelsClient struct{ c *Client }

func (ch *ChannelsClient) List(ctx context.Context, q ChannelQuery) (*Page[Channel], error) {
	return call[Page[Channel]](ctx, ch.c, http.MethodGet, "/channels", nil, q.query())
}

func (ch *ChannelsClient) Get(ctx context.Context, id string) (*Channel, error) {
	return call[Channel](ctx, ch.c, http.MethodGet, "/channels/"+escape(id), nil, nil)
}

func (ch *ChannelsClient) Create(ctx context.Context, req *CreateChannelRequest) (*Channel, error) {
	return call[Channel](ctx, ch.c, http.MethodPost, "/channels", req, nil)
}

func (ch *ChannelsClient) Update(ctx context.Context, id string, req *UpdateChannelRequest) (*Channel, error) {
	return call[Channel](ctx, ch.c, http.MethodPut, "/channels/"+escape(id), req, nil)
}

func (ch *ChannelsClient) Delete(ctx context.Context, id string) error {
	return ch.c.doRequest(ctx, http.MethodDelete, "/channels/"+escape(id), nil, nil, nil)
}

func (ch *ChannelsClient) Activate(ctx context.Context, id string) (*Channel, error) {
	return call[Channel](ctx, ch.c, http.MethodPost, "/channels/"+escape(id)+"/activate", nil, nil)
}

func (ch *ChannelsClient) Deactivate(ctx context.Context, id string) (*Channel, error) {
	return call[Channel](ctx, ch.c, http.MethodPost, "/channels/"+escape(id)+"/deactivate", nil, nil)
}

func (ch *ChannelsClient) Heartbeat(ctx context.Context, id string) error {
	return ch.c.doRequest(ctx, http.MethodPost, "/channels/"+escape(id)+"/heartbeat", nil, nil, nil)
}

// ============================================================================
// Tags
// ============================================================================

// TagsClient manages play tags.
type TagsClient struct{ c *Client }

func (t *TagsClient) List(ctx context.Context, q TagQuery) (*Page[Tag], error) {
	return call[Page[Tag]](ctx, t.c, http.MethodGet, "/tags", nil, q.query())
}

func (t *TagsClient) Get(ctx context.Context, id string) (*Tag, error) {
	return call[Tag](ctx, t.c, http.MethodGet, "/tags/"+escape(id), nil, nil)
}

func (t *TagsClient) Create(ctx context.Context, req *CreateTagRequest) (*Tag, error) {
	return call[Tag](ctx, t.c, http.MethodPost, "/tags", req, nil)
}

func (t *TagsClient) Update(ctx context.Context, id string, req *UpdateTagRequest) (*Tag, error) {
	return call[Tag](ctx, t.c, http.MethodPut, "/tags/"+escape(id), req, nil)
}

func (t *TagsClient) Delete(ctx context.Context, id string) error {
	return t.c.doRequest(ctx, http.MethodDelete, "/tags/"+escape(id), nil, nil, nil)
}

func (t *TagsClient) MarkReviewed(ctx context.Context, id string) (*Tag, error) {
	return call[Tag](ctx, t.c, http.MethodPost, "/tags/"+escape(id)+"/reviewed", nil, nil)
}

func (t *TagsClient) MarkImportant(ctx context.Context, id string, important bool) (*Tag, error) {
	body := map[string]bool{"is_important": important}
	return call[Tag](ctx, t.c, http.MethodPatch, "/tags/"+escape(id), body, nil)
}

// ============================================================================
// Agents
// ============================================================================

// AgentsClient manages capture agents.
type AgentsClient struct{ c *Client }

const defaultAgentPageSize = 50

// List returns one page of agents. The agents endpoint does not echo limit and
// offset, so they are filled in from q.
func (a *AgentsClient) List(ctx context.Context, q AgentQuery) (*Page[Agent], error) {
	var resp struct {
		Agents []Agent `json:"agents"`
		Total  int     `json:"total"`
	}
	if err := a.c.doRequest(ctx, http.MethodGet, "/agents", nil, q.query(), &resp); err != nil {
		return nil, err
	}
	page := &Page[Agent]{
		Data:   resp.Agents,
		Total:  resp.Total,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if page.Data == nil {
		page.Data = []Agent{}
	}
	if page.Limit == 0 {
		page.Limit = defaultAgentPageSize
	}
	return page, nil
}

func (a *AgentsClient) Get(ctx context.Context, id string) (*Agent, error) {
	return call[Agent](ctx, a.c, http.MethodGet, "/agents/"+escape(id), nil, nil)
}

func (a *AgentsClient) Update(ctx context.Context, id string, req *UpdateAgentRequest) (*Agent, error) {
	return call[Agent](ctx, a.c, http.MethodPatch, "/agents/"+escape(id), req, nil)
}

func (a *AgentsClient) Delete(ctx context.Context, id string) error {
	return a.c.doRequest(ctx, http.MethodDelete, "/agents/"+escape(id), nil, nil, nil)
}

func (a *AgentsClient) AssignChannel(ctx context.Context, id, channelID string) (*Agent, error) {
	body := map[string]string{"channel_id": channelID}
	return call[Agent](ctx, a.c, http.MethodPost, "/agents/"+escape(id)+"/assign", body, nil)
}

func (a *AgentsClient) StartRecording(ctx context.Context, id, sessionID string) (*Agent, error) {
	body := map[string]string{"session_id": sessionID}
	return call[Agent](ctx, a.c, http.MethodPost, "/agents/"+escape(id)+"/start", body, nil)
}

func (a *AgentsClient) StopRecording(ctx context.Context, id string) (*Agent, error) {
	return call[Agent](ctx, a.c, http.MethodPost, "/agents/"+escape(id)+"/stop", nil, nil)
}
