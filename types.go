package filmroom

import (
	"fmt"
	"time"
)

// ============================================================================
// Shared Types
// ============================================================================

// APIError is returned for any non-2xx response from the REST API.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error (status %d): %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Page is one page of a paginated list endpoint.
type Page[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListOptions holds the pagination and sort parameters shared by list endpoints.
type ListOptions struct {
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string // "asc" or "desc"
}

func (o ListOptions) query() map[string]string {
	q := map[string]string{}
	if o.Limit > 0 {
		q["limit"] = fmt.Sprint(o.Limit)
	}
	if o.Offset > 0 {
		q["offset"] = fmt.Sprint(o.Offset)
	}
	if o.SortBy != "" {
		q["sort_by"] = o.SortBy
	}
	if o.SortOrder != "" {
		q["sort_order"] = o.SortOrder
	}
	return q
}

// ============================================================================
// Sessions
// ============================================================================

type SessionType string

const (
	SessionGame      SessionType = "game"
	SessionPractice  SessionType = "practice"
	SessionScrimmage SessionType = "scrimmage"
	SessionTraining  SessionType = "training"
	SessionOther     SessionType = "other"
)

type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionArchived  SessionStatus = "archived"
)

// Session is a recording session (a game, practice, ...).
type Session struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	SessionType          SessionType   `json:"session_type"`
	Status               SessionStatus `json:"status"`
	ScheduledStart       *time.Time    `json:"scheduled_start,omitempty"`
	ActualStart          *time.Time    `json:"actual_start,omitempty"`
	ActualEnd            *time.Time    `json:"actual_end,omitempty"`
	Opponent             string        `json:"opponent,omitempty"`
	Location             string        `json:"location,omitempty"`
	Season               int           `json:"season,omitempty"`
	Week                 int           `json:"week,omitempty"`
	Notes                string        `json:"notes,omitempty"`
	ClipCount            int           `json:"clip_count"`
	TagCount             int           `json:"tag_count"`
	TotalDurationSeconds float64       `json:"total_duration_seconds"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

type CreateSessionRequest struct {
	Name           string      `json:"name"`
	SessionType    SessionType `json:"session_type"`
	ScheduledStart *time.Time  `json:"scheduled_start,omitempty"`
	Opponent       string      `json:"opponent,omitempty"`
	Location       string      `json:"location,omitempty"`
	Season         int         `json:"season,omitempty"`
	Week           int         `json:"week,omitempty"`
	Notes          string      `json:"notes,omitempty"`
}

type UpdateSessionRequest struct {
	Name           *string      `json:"name,omitempty"`
	SessionType    *SessionType `json:"session_type,omitempty"`
	ScheduledStart *time.Time   `json:"scheduled_start,omitempty"`
	Opponent       *string      `json:"opponent,omitempty"`
	Location       *string      `json:"location,omitempty"`
	Season         *int         `json:"season,omitempty"`
	Week           *int         `json:"week,omitempty"`
	Notes          *string      `json:"notes,omitempty"`
}

type SessionQuery struct {
	ListOptions
	Status      SessionStatus
	SessionType SessionType
}

func (q SessionQuery) query() map[string]string {
	m := q.ListOptions.query()
	if q.Status != "" {
		m["status"] = string(q.Status)
	}
	if q.SessionType != "" {
		m["session_type"] = string(q.SessionType)
	}
	return m
}

// ============================================================================
// Clips
// ============================================================================

type ClipStatus string

const (
	ClipPending    ClipStatus = "pending"
	ClipProcessing ClipStatus = "processing"
	ClipReady      ClipStatus = "ready"
	ClipFailed     ClipStatus = "failed"
	ClipDeleted    ClipStatus = "deleted"
)

// Clip is a generated video clip of a single play.
type Clip struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"session_id"`
	ChannelID       string     `json:"channel_id"`
	Title           string     `json:"title,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationSeconds float64    `json:"duration_seconds"`
	FilePath        string     `json:"file_path,omitempty"`
	FileSizeBytes   int64      `json:"file_size_bytes,omitempty"`
	ThumbnailPath   string     `json:"thumbnail_path,omitempty"`
	Format          string     `json:"format"`
	Codec           string     `json:"codec"`
	Resolution      string     `json:"resolution,omitempty"`
	Status          ClipStatus `json:"status"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	ViewCount       int        `json:"view_count"`
	IsFavorite      bool       `json:"is_favorite"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ClipQuery filters the clip list.
type ClipQuery struct {
	ListOptions
	SessionID string
	ChannelID string
	Status    ClipStatus
	Favorite  *bool
	Search    string
}

func (q ClipQuery) query() map[string]string {
	m := q.ListOptions.query()
	if q.SessionID != "" {
		m["session_id"] = q.SessionID
	}
	if q.ChannelID != "" {
		m["channel_id"] = q.ChannelID
	}
	if q.Status != "" {
		m["status"] = string(q.Status)
	}
	if q.Favorite != nil {
		m["favorite"] = fmt.Sprint(*q.Favorite)
	}
	if q.Search != "" {
		m["search"] = q.Search
	}
	return m
}

// ============================================================================
// Channels
// ============================================================================

type ChannelStatus string

const (
	ChannelActive   ChannelStatus = "active"
	ChannelInactive ChannelStatus = "inactive"
	ChannelError    ChannelStatus = "error"
)

// Channel is a capture input (a camera feed).
type Channel struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	InputType    string        `json:"input_type,omitempty"`
	InputURL     string        `json:"input_url,omitempty"`
	Resolution   string        `json:"resolution,omitempty"`
	Framerate    float64       `json:"framerate,omitempty"`
	Bitrate      int64         `json:"bitrate,omitempty"`
	Status       ChannelStatus `json:"status"`
	LastSeenAt   *time.Time    `json:"last_seen_at,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type CreateChannelRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputType   string `json:"input_type,omitempty"`
	InputURL    string `json:"input_url,omitempty"`
}

type UpdateChannelRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	InputType   *string `json:"input_type,omitempty"`
	InputURL    *string `json:"input_url,omitempty"`
}

type ChannelQuery struct {
	ListOptions
	Status ChannelStatus
}

func (q ChannelQuery) query() map[string]string {
	m := q.ListOptions.query()
	if q.Status != "" {
		m["status"] = string(q.Status)
	}
	return m
}

// ============================================================================
// Tags
// ============================================================================

// Tag annotates a clip with play metadata.
type Tag struct {
	ID          string     `json:"id"`
	ClipID      string     `json:"clip_id"`
	SessionID   string     `json:"session_id"`
	Quarter     int        `json:"quarter,omitempty"`
	Down        int        `json:"down,omitempty"`
	Distance    int        `json:"distance,omitempty"`
	YardLine    int        `json:"yard_line,omitempty"`
	PlayType    string     `json:"play_type,omitempty"`
	Formation   string     `json:"formation,omitempty"`
	Result      string     `json:"result,omitempty"`
	YardsGained int        `json:"yards_gained,omitempty"`
	Category    string     `json:"category,omitempty"`
	Labels      []string   `json:"labels,omitempty"`
	Players     []string   `json:"players,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CoachNotes  string     `json:"coach_notes,omitempty"`
	IsImportant bool       `json:"is_important"`
	IsReviewed  bool       `json:"is_reviewed"`
	TaggedBy    string     `json:"tagged_by,omitempty"`
	TaggedAt    *time.Time `json:"tagged_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateTagRequest struct {
	ClipID      string   `json:"clip_id"`
	SessionID   string   `json:"session_id"`
	Quarter     int      `json:"quarter,omitempty"`
	Down        int      `json:"down,omitempty"`
	Distance    int      `json:"distance,omitempty"`
	YardLine    int      `json:"yard_line,omitempty"`
	PlayType    string   `json:"play_type,omitempty"`
	Formation   string   `json:"formation,omitempty"`
	Result      string   `json:"result,omitempty"`
	YardsGained int      `json:"yards_gained,omitempty"`
	Category    string   `json:"category,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Players     []string `json:"players,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

type UpdateTagRequest struct {
	Quarter     *int     `json:"quarter,omitempty"`
	Down        *int     `json:"down,omitempty"`
	Distance    *int     `json:"distance,omitempty"`
	YardLine    *int     `json:"yard_line,omitempty"`
	PlayType    *string  `json:"play_type,omitempty"`
	Formation   *string  `json:"formation,omitempty"`
	Result      *string  `json:"result,omitempty"`
	YardsGained *int     `json:"yards_gained,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Players     []string `json:"players,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	CoachNotes  *string  `json:"coach_notes,omitempty"`
	IsImportant *bool    `json:"is_important,omitempty"`
	IsReviewed  *bool    `json:"is_reviewed,omitempty"`
}

type TagQuery struct {
	ListOptions
	SessionID   string
	ClipID      string
	IsImportant *bool
	IsReviewed  *bool
	PlayType    string
	Category    string
}

func (q TagQuery) query() map[string]string {
	m := q.ListOptions.query()
	if q.SessionID != "" {
		m["session_id"] = q.SessionID
	}
	if q.ClipID != "" {
		m["clip_id"] = q.ClipID
	}
	if q.IsImportant != nil {
		m["is_important"] = fmt.Sprint(*q.IsImportant)
	}
	if q.IsReviewed != nil {
		m["is_reviewed"] = fmt.Sprint(*q.IsReviewed)
	}
	if q.PlayType != "" {
		m["play_type"] = q.PlayType
	}
	if q.Category != "" {
		m["category"] = q.Category
	}
	return m
}

// ============================================================================
// Agents
// ============================================================================

type AgentStatus string

const (
	AgentOnline    AgentStatus = "online"
	AgentRecording AgentStatus = "recording"
	AgentError     AgentStatus = "error"
	AgentOffline   AgentStatus = "offline"
)

type AgentCapabilities struct {
	CanCaptureSRT   bool     `json:"can_capture_srt"`
	CanCaptureRTSP  bool     `json:"can_capture_rtsp"`
	CanCaptureRTMP  bool     `json:"can_capture_rtmp"`
	CanCaptureNDI   bool     `json:"can_capture_ndi"`
	CanCaptureUSB   bool     `json:"can_capture_usb"`
	SupportedCodecs []string `json:"supported_codecs"`
	MaxResolution   string   `json:"max_resolution"`
	MaxBitrate      int64    `json:"max_bitrate"`
}

// Agent is a capture process that records a channel.
type Agent struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	URL          string            `json:"url"`
	ChannelID    string            `json:"channel_id,omitempty"`
	SessionID    string            `json:"session_id,omitempty"`
	Status       AgentStatus       `json:"status"`
	Capabilities AgentCapabilities `json:"capabilities"`
	Version      string            `json:"version,omitempty"`
	Hostname     string            `json:"hostname,omitempty"`
	LastSeenAt   time.Time         `json:"last_seen_at"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type UpdateAgentRequest struct {
	Name         *string      `json:"name,omitempty"`
	ChannelID    *string      `json:"channel_id,omitempty"`
	SessionID    *string      `json:"session_id,omitempty"`
	Status       *AgentStatus `json:"status,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
}

type AgentQuery struct {
	ListOptions
	Status AgentStatus
}

func (q AgentQuery) query() map[string]string {
	m := q.ListOptions.query()
	if q.Status != "" {
		m["status"] = string(q.Status)
	}
	return m
}
