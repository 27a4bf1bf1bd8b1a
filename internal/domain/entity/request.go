package entity

import "time"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Context is an opaque mapping of context data. It is either caller-supplied
// seed data or the payload returned by a context provider.
type Context map[string]any

type Request struct {
	Query           string         `json:"query"`
	Context         Context        `json:"context,omitempty"`
	UserID          string         `json:"user_id,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	ProtocolVersion string         `json:"protocol_version,omitempty"`
	Priority        Priority       `json:"priority,omitempty"`
}

// Normalize fills in defaults for omitted optional fields.
func (r *Request) Normalize() {
	if r.ProtocolVersion == "" {
		r.ProtocolVersion = CurrentProtocolVersion
	}
	if r.Priority == "" {
		r.Priority = PriorityNormal
	}
}

type Response struct {
	Response        string         `json:"response"`
	Context         Context        `json:"context,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	ProtocolVersion string         `json:"protocol_version"`
	ProcessingTime  float64        `json:"processing_time,omitempty"`
}

// BatchRequest shares one user, seed context and metadata across all queries.
type BatchRequest struct {
	Queries         []string       `json:"queries"`
	Context         Context        `json:"context,omitempty"`
	UserID          string         `json:"user_id,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	ProtocolVersion string         `json:"protocol_version,omitempty"`
}

func (r *BatchRequest) Normalize() {
	if r.ProtocolVersion == "" {
		r.ProtocolVersion = CurrentProtocolVersion
	}
}

type BatchResponse struct {
	Responses       []*Response    `json:"responses"`
	BatchMetadata   map[string]any `json:"batch_metadata,omitempty"`
	ProtocolVersion string         `json:"protocol_version"`
}

// RateLimitDecision is the outcome of a single admission check.
type RateLimitDecision struct {
	Allowed    bool
	RetryAfter time.Duration
	ResetAt    time.Time
	Limit      int
	Period     time.Duration
}

// RateLimitStats is a point-in-time view of the rate-limit ledger.
type RateLimitStats struct {
	Clients int
	Limit   int
	Period  time.Duration
}

// Timestamp formats t the way every envelope reports time.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
