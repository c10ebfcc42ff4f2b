package compiler

import (
	"fmt"

	"github.com/KevinKickass/pointc/internal/codec"
	"github.com/KevinKickass/pointc/internal/config"
	"github.com/KevinKickass/pointc/internal/ir"
	"github.com/KevinKickass/pointc/internal/modbus"
	"github.com/KevinKickass/pointc/internal/optimizer"
	"github.com/KevinKickass/pointc/internal/tasks"
	"github.com/KevinKickass/pointc/internal/types"
)

// Settings are the build knobs. Changing any of them requires a full
// rebuild; the result records the settings it was built with.
type Settings struct {
	MaxModules              int             `json:"max_modules"`
	MaxGap                  int             `json:"max_gap"`
	MaxBatchSize            int             `json:"max_batch_size"`
	MaxCoilBatchSize        int             `json:"max_coil_batch_size"`
	NumericByteOrder        codec.ByteOrder `json:"numeric_byte_order"`
	StringByteOrder         codec.ByteOrder `json:"string_byte_order"`
	MonitorIntervalMs       int             `json:"monitor_interval_ms"`
	HandshakeTimeoutMs      int             `json:"handshake_timeout_ms"`
	HandshakePollIntervalMs int             `json:"handshake_poll_interval_ms"`
	HandshakePeriodScale    float64         `json:"handshake_period_scale"`
	DefaultStringLength     int             `json:"default_string_length"`
	DefaultArrayLength      int             `json:"default_array_length"`
	DefaultHost             string          `json:"default_host"`
	UnitID                  uint8           `json:"unit_id"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxModules:              2,
		MaxGap:                  optimizer.DefaultMaxGap,
		MaxBatchSize:            optimizer.DefaultMaxBatchSize,
		MaxCoilBatchSize:        modbus.MaxReadCoils,
		NumericByteOrder:        codec.ABCD,
		StringByteOrder:         codec.BADC,
		MonitorIntervalMs:       tasks.DefaultMonitorInterval,
		HandshakeTimeoutMs:      tasks.DefaultHandshakeTimeout,
		HandshakePollIntervalMs: tasks.DefaultHandshakePoll,
		HandshakePeriodScale:    tasks.DefaultHandshakeScale,
		DefaultStringLength:     ir.DefaultStringLength,
		DefaultArrayLength:      ir.DefaultArrayLength,
		DefaultHost:             ir.DefaultHost,
		UnitID:                  modbus.DefaultUnitID,
	}
}

// SettingsFromConfig converts the compiler section of the configuration.
func SettingsFromConfig(c config.CompilerConfig) (Settings, error) {
	numeric, err := codec.ParseByteOrder(c.NumericByteOrder)
	if err != nil {
		return Settings{}, err
	}
	str, err := codec.ParseStringOrder(c.StringByteOrder)
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		MaxModules:              c.MaxModules,
		MaxGap:                  c.MaxGap,
		MaxBatchSize:            c.MaxBatchSize,
		MaxCoilBatchSize:        c.MaxCoilBatchSize,
		NumericByteOrder:        numeric,
		StringByteOrder:         str,
		MonitorIntervalMs:       int(c.MonitorInterval.Milliseconds()),
		HandshakeTimeoutMs:      int(c.HandshakeTimeout.Milliseconds()),
		HandshakePollIntervalMs: int(c.HandshakePollInterval.Milliseconds()),
		HandshakePeriodScale:    c.HandshakePeriodScale,
		DefaultStringLength:     c.DefaultStringLength,
		DefaultArrayLength:      c.DefaultArrayLength,
		DefaultHost:             c.DefaultHost,
		UnitID:                  uint8(c.UnitID),
	}
	return s, s.Validate()
}

func (s Settings) Validate() error {
	_, err := s.Normalize()
	return err
}

// Normalize validates the settings and returns them with byte orders in
// canonical upper case.
func (s Settings) Normalize() (Settings, error) {
	if s.MaxModules < 1 || s.MaxModules > types.MaxModulesLimit {
		return s, fmt.Errorf("max modules must be 1-%d, got %d", types.MaxModulesLimit, s.MaxModules)
	}
	numeric, err := codec.ParseByteOrder(string(s.NumericByteOrder))
	if err != nil {
		return s, err
	}
	str, err := codec.ParseStringOrder(string(s.StringByteOrder))
	if err != nil {
		return s, err
	}
	s.NumericByteOrder, s.StringByteOrder = numeric, str

	if s.DefaultStringLength < 1 || s.DefaultArrayLength < 1 {
		return s, fmt.Errorf("default string and array lengths must be >= 1")
	}
	return s, s.taskSettings().Validate()
}

func (s Settings) irOptions() ir.Options {
	return ir.Options{
		DefaultStringLength: s.DefaultStringLength,
		DefaultArrayLength:  s.DefaultArrayLength,
		DefaultHost:         s.DefaultHost,
	}
}

func (s Settings) taskSettings() tasks.Settings {
	handshake := tasks.DefaultHandshake()
	handshake.TimeoutMs = s.HandshakeTimeoutMs
	handshake.PollIntervalMs = s.HandshakePollIntervalMs

	return tasks.Settings{
		Optimizer:            optimizer.Params{MaxGap: s.MaxGap, MaxBatchSize: s.MaxBatchSize},
		MonitorIntervalMs:    s.MonitorIntervalMs,
		HandshakePeriodScale: s.HandshakePeriodScale,
		Handshake:            handshake,
	}
}

func (s Settings) modbusOptions() modbus.Options {
	return modbus.Options{
		UnitID:   s.UnitID,
		Numeric:  s.NumericByteOrder,
		String:   s.StringByteOrder,
		MaxCoils: s.MaxCoilBatchSize,
	}
}

// Overrides carries per-request changes to the knobs that trigger a
// rebuild. Nil fields keep the configured value.
type Overrides struct {
	MaxModules           *int     `json:"max_modules,omitempty"`
	MaxGap               *int     `json:"max_gap,omitempty"`
	MaxBatchSize         *int     `json:"max_batch_size,omitempty"`
	NumericByteOrder     *string  `json:"numeric_byte_order,omitempty"`
	StringByteOrder      *string  `json:"string_byte_order,omitempty"`
	HandshakePeriodScale *float64 `json:"handshake_period_scale,omitempty"`
}

// Apply returns s with the set fields of o replaced.
func (s Settings) Apply(o *Overrides) Settings {
	if o == nil {
		return s
	}
	if o.MaxModules != nil {
		s.MaxModules = *o.MaxModules
	}
	if o.MaxGap != nil {
		s.MaxGap = *o.MaxGap
	}
	if o.MaxBatchSize != nil {
		s.MaxBatchSize = *o.MaxBatchSize
	}
	if o.NumericByteOrder != nil {
		s.NumericByteOrder = codec.ByteOrder(*o.NumericByteOrder)
	}
	if o.StringByteOrder != nil {
		s.StringByteOrder = codec.ByteOrder(*o.StringByteOrder)
	}
	if o.HandshakePeriodScale != nil {
		s.HandshakePeriodScale = *o.HandshakePeriodScale
	}
	return s
}
