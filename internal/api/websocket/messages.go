package websocket

import (
	"time"

	"github.com/KevinKickass/pointc/internal/compiler"
)

type MessageType string

const (
	MessageTypeBuildStarted   MessageType = "build_started"
	MessageTypeBuildLog       MessageType = "build_log"
	MessageTypeBuildCompleted MessageType = "build_completed"
	MessageTypeBuildFailed    MessageType = "build_failed"

	MessageTypeSubscribed MessageType = "subscribed"
	MessageTypeError      MessageType = "error"
)

type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// BuildEventData is the payload of every build message.
type BuildEventData struct {
	BuildID string         `json:"build_id"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewBuildMessage converts a compiler event.
func NewBuildMessage(e compiler.Event) Message {
	return Message{
		Type:      MessageType(e.Type),
		Timestamp: e.Timestamp,
		Data: BuildEventData{
			BuildID: e.BuildID,
			Message: e.Message,
			Code:    e.Code,
			Fields:  e.Fields,
		},
	}
}

// buildID returns the build a message belongs to, if any.
func (m Message) buildID() string {
	if d, ok := m.Data.(BuildEventData); ok {
		return d.BuildID
	}
	return ""
}
