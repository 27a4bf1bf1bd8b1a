package entity

import "time"

// Interaction is one completed query/response exchange handed to the
// persistence stores. Context holds the canonical JSON of the fetched context.
type Interaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Context   string    `json:"context"`
	Timestamp time.Time `json:"timestamp"`
}
