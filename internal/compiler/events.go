package compiler

import "time"

type EventType string

const (
	EventBuildStarted   EventType = "build_started"
	EventBuildLog       EventType = "build_log"
	EventBuildCompleted EventType = "build_completed"
	EventBuildFailed    EventType = "build_failed"
)

// Event is one progress notification of a build.
type Event struct {
	Type      EventType      `json:"type"`
	BuildID   string         `json:"build_id"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message"`
	Code      string         `json:"code,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Sink receives build events. Publish must not block.
type Sink interface {
	Publish(Event)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}
