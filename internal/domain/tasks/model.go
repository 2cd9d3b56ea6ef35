package tasks

import (
	"strings"
	"time"
)

// Priority orders the task board.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalizes user input, defaulting to medium.
func ParsePriority(raw string) Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Task is one entry of the farmer's to-do list.
type Task struct {
	ID        string    `json:"id" bson:"_id"`
	Text      string    `json:"text" bson:"text"`
	Completed bool      `json:"completed" bson:"completed"`
	Priority  Priority  `json:"priority" bson:"priority"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Owner scopes a collection to an identity: the JWT user when
// authenticated, otherwise an opaque session key served from memory only.
type Owner struct {
	Key           string
	Authenticated bool
}

// AddRequest is the payload for creating a task.
type AddRequest struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
}
