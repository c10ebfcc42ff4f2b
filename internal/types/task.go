package types

type TaskKind string

const (
	TaskMonitor      TaskKind = "monitor"
	TaskBatchMonitor TaskKind = "batch_monitor"
	TaskPeriodic     TaskKind = "periodic"
	TaskChange       TaskKind = "change"
	TaskHandshake    TaskKind = "handshake"
)

// HandshakeProtocol holds the register values and bounds of one
// trigger/acknowledge cycle.
type HandshakeProtocol struct {
	TriggerValue   int `json:"trigger_value"`
	AckValue       int `json:"ack_value"`
	ResetValue     int `json:"reset_value"`
	TimeoutMs      int `json:"timeout_ms"`
	PollIntervalMs int `json:"poll_interval_ms"`
}

// TaskDescriptor describes one runtime task of the generated application.
type TaskDescriptor struct {
	Name           string             `json:"name"`
	Kind           TaskKind           `json:"kind"`
	Sheet          string             `json:"sheet"`
	Module         int                `json:"module"`
	GroupKey       string             `json:"group_key"`
	TableName      string             `json:"table_name,omitempty"`
	TimingMs       int                `json:"timing_ms"`
	TriggerAddress string             `json:"trigger_address,omitempty"`
	ReturnAddress  string             `json:"return_address,omitempty"`
	Handshake      *HandshakeProtocol `json:"handshake,omitempty"`
	Tags           []Tag              `json:"tags"`
	Blocks         []RequestBlock     `json:"blocks,omitempty"`
}
