// Package tasks classifies period groups into runtime task descriptors.
package tasks

import (
	"fmt"
	"math"

	"github.com/KevinKickass/pointc/internal/ir"
	"github.com/KevinKickass/pointc/internal/optimizer"
	"github.com/KevinKickass/pointc/internal/types"
)

const (
	HandshakeTriggerValue   = 11
	HandshakeAckValue       = 11
	HandshakeResetValue     = 0
	DefaultHandshakeTimeout = 5000
	DefaultHandshakePoll    = 100
	DefaultMonitorInterval  = 1000
	DefaultHandshakeScale   = 1000
)

type Settings struct {
	Optimizer optimizer.Params
	// MonitorIntervalMs is the poll interval of monitor tasks.
	MonitorIntervalMs int
	// HandshakePeriodScale converts |period| of a handshake group into
	// milliseconds. 1 keeps the period as a raw millisecond count.
	HandshakePeriodScale float64
	Handshake            types.HandshakeProtocol
}

func DefaultSettings() Settings {
	return Settings{
		Optimizer:            optimizer.DefaultParams(),
		MonitorIntervalMs:    DefaultMonitorInterval,
		HandshakePeriodScale: DefaultHandshakeScale,
		Handshake:            DefaultHandshake(),
	}
}

func DefaultHandshake() types.HandshakeProtocol {
	return types.HandshakeProtocol{
		TriggerValue:   HandshakeTriggerValue,
		AckValue:       HandshakeAckValue,
		ResetValue:     HandshakeResetValue,
		TimeoutMs:      DefaultHandshakeTimeout,
		PollIntervalMs: DefaultHandshakePoll,
	}
}

func (s Settings) Validate() error {
	if err := s.Optimizer.Validate(); err != nil {
		return err
	}
	if s.MonitorIntervalMs < 1 {
		return fmt.Errorf("monitor interval must be >= 1ms, got %d", s.MonitorIntervalMs)
	}
	if s.HandshakePeriodScale <= 0 {
		return fmt.Errorf("handshake period scale must be > 0, got %v", s.HandshakePeriodScale)
	}
	if s.Handshake.TimeoutMs < 1 || s.Handshake.PollIntervalMs < 1 {
		return fmt.Errorf("handshake timeout and poll interval must be >= 1ms")
	}
	return nil
}

// KindFor maps a period onto its task kind. Period 0 only gets the
// monitor task every point has.
func KindFor(period float64) types.TaskKind {
	switch {
	case period >= 1:
		return types.TaskPeriodic
	case period > 0:
		return types.TaskChange
	case period < 0:
		return types.TaskHandshake
	default:
		return types.TaskMonitor
	}
}

// TimingMs returns the tick interval of a logging group.
func (s Settings) TimingMs(period float64) int {
	switch KindFor(period) {
	case types.TaskPeriodic:
		return int(math.Round(period))
	case types.TaskChange:
		return int(math.Round(period * 1000))
	case types.TaskHandshake:
		return int(math.Round(math.Abs(period) * s.HandshakePeriodScale))
	default:
		return s.MonitorIntervalMs
	}
}

// Classify emits every task of the program: first the monitor tasks of
// all modules (one per point plus one per optimized read block), then
// the logging tasks of every period group. Modules are outer, sheets
// inner, source order everywhere.
func Classify(prog *ir.Program, s Settings) ([]types.TaskDescriptor, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var out []types.TaskDescriptor
	for m := 1; m <= prog.MaxModules; m++ {
		for _, sheet := range prog.Sheets {
			out = append(out, monitorTasks(sheet, m, s)...)
		}
	}
	for m := 1; m <= prog.MaxModules; m++ {
		for _, sheet := range prog.Sheets {
			for _, g := range sheet.Groups {
				out = append(out, groupTasks(sheet.Name, m, g, s)...)
			}
		}
	}
	return out, nil
}

func monitorTasks(sheet ir.Sheet, module int, s Settings) []types.TaskDescriptor {
	out := make([]types.TaskDescriptor, 0, len(sheet.Points)+2)
	tags := ir.Tags(sheet.Points, module)

	for _, tag := range tags {
		out = append(out, types.TaskDescriptor{
			Name:     MonitorName(tag.Name),
			Kind:     types.TaskMonitor,
			Sheet:    sheet.Name,
			Module:   module,
			GroupKey: tag.Name,
			TimingMs: s.MonitorIntervalMs,
			Tags:     []types.Tag{tag},
		})
	}

	coils, registers := optimizer.Partition(tags)
	for i, b := range optimizer.Optimize(coils, s.Optimizer) {
		out = append(out, batchTask(CoilBlockName(sheet.Name, module, i), sheet.Name, module, "coils", b, s))
	}
	for i, b := range optimizer.Optimize(registers, s.Optimizer) {
		out = append(out, batchTask(RegisterBlockName(sheet.Name, module, i), sheet.Name, module, "registers", b, s))
	}
	return out
}

func batchTask(name, sheet string, module int, key string, b types.RequestBlock, s Settings) types.TaskDescriptor {
	return types.TaskDescriptor{
		Name:     name,
		Kind:     types.TaskBatchMonitor,
		Sheet:    sheet,
		Module:   module,
		GroupKey: key,
		TimingMs: s.MonitorIntervalMs,
		Tags:     b.IncludedTags,
		Blocks:   []types.RequestBlock{b},
	}
}

func groupTasks(sheet string, module int, g ir.PeriodGroup, s Settings) []types.TaskDescriptor {
	kind := KindFor(g.Period)
	timing := s.TimingMs(g.Period)

	if kind != types.TaskHandshake {
		tags := ir.Tags(g.Points, module)
		name := PeriodicName(sheet, module, g.Period)
		if kind == types.TaskChange {
			name = ChangeName(sheet, module, g.Period)
		}
		return []types.TaskDescriptor{{
			Name:      name,
			Kind:      kind,
			Sheet:     sheet,
			Module:    module,
			GroupKey:  ir.FormatPeriod(g.Period),
			TableName: g.TableName,
			TimingMs:  timing,
			Tags:      tags,
			Blocks:    blocks(tags, s.Optimizer),
		}}
	}

	out := make([]types.TaskDescriptor, 0, len(g.Triggers))
	for _, tg := range g.Triggers {
		tags := ir.Tags(tg.Points, module)
		protocol := s.Handshake
		out = append(out, types.TaskDescriptor{
			Name:           HandshakeName(sheet, module, tg.Trigger),
			Kind:           kind,
			Sheet:          sheet,
			Module:         module,
			GroupKey:       tg.Trigger,
			TableName:      g.TableName,
			TimingMs:       timing,
			TriggerAddress: tg.Trigger,
			ReturnAddress:  tg.ReturnAddress,
			Handshake:      &protocol,
			Tags:           tags,
			Blocks:         blocks(tags, s.Optimizer),
		})
	}
	return out
}

// blocks optimizes coils and registers separately, coils first.
func blocks(tags []types.Tag, p optimizer.Params) []types.RequestBlock {
	coils, registers := optimizer.Partition(tags)
	return append(optimizer.Optimize(coils, p), optimizer.Optimize(registers, p)...)
}
