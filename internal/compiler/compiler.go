// Package compiler runs one configuration snapshot through validation,
// IR construction, optimization and task classification.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KevinKickass/pointc/internal/codec"
	"github.com/KevinKickass/pointc/internal/ir"
	"github.com/KevinKickass/pointc/internal/modbus"
	"github.com/KevinKickass/pointc/internal/optimizer"
	"github.com/KevinKickass/pointc/internal/pointtable"
	"github.com/KevinKickass/pointc/internal/tasks"
	"github.com/KevinKickass/pointc/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is everything a build produces. Apart from ID and CompiledAt it
// is a pure function of the snapshot and the settings.
type Result struct {
	ID         uuid.UUID              `json:"id"`
	CompiledAt time.Time              `json:"compiled_at"`
	Settings   Settings               `json:"settings"`
	Program    *ir.Program            `json:"program"`
	Tasks      []types.TaskDescriptor `json:"tasks"`
	Requests   []modbus.Request       `json:"requests"`
	Writes     []modbus.Write         `json:"writes,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
}

type Compiler struct {
	logger *zap.Logger
	sink   Sink
	now    func() time.Time
}

// New creates a compiler. sink may be nil.
func New(logger *zap.Logger, sink Sink) *Compiler {
	if sink == nil {
		sink = nopSink{}
	}
	return &Compiler{
		logger: logger,
		sink:   sink,
		now:    time.Now,
	}
}

// Build compiles one snapshot. A build error from pointtable aborts the
// build and is returned unwrapped so callers can errors.As it.
func (c *Compiler) Build(ctx context.Context, wb types.Workbook, settings Settings) (*Result, error) {
	id := uuid.New()
	logger := c.logger.With(zap.String("build_id", id.String()))

	c.emit(id, EventBuildStarted, "build started", map[string]any{
		"sheets":      len(wb.Sheets),
		"max_modules": settings.MaxModules,
	})
	logger.Info("Compiling snapshot",
		zap.Int("sheets", len(wb.Sheets)),
		zap.Int("devices", len(wb.Devices)),
		zap.Int("max_modules", settings.MaxModules))

	res, err := c.build(ctx, id, logger, wb, settings)
	if err != nil {
		ev := Event{Type: EventBuildFailed, BuildID: id.String(), Timestamp: c.now(), Message: err.Error()}
		var buildErr pointtable.BuildError
		if errors.As(err, &buildErr) {
			ev.Code = buildErr.Code()
			logger.Warn("Snapshot rejected",
				zap.String("code", buildErr.Code()),
				zap.String("subject", buildErr.Subject()),
				zap.Error(err))
		} else {
			logger.Error("Build failed", zap.Error(err))
		}
		c.sink.Publish(ev)
		return nil, err
	}

	for _, w := range res.Warnings {
		logger.Warn("Build warning", zap.String("warning", w))
	}
	logger.Info("Build complete",
		zap.Int("units", len(res.Program.Units)),
		zap.Int("tasks", len(res.Tasks)),
		zap.Int("requests", len(res.Requests)),
		zap.Int("warnings", len(res.Warnings)))
	c.emit(id, EventBuildCompleted, "build completed", map[string]any{
		"tasks":    len(res.Tasks),
		"requests": len(res.Requests),
		"warnings": len(res.Warnings),
	})

	return res, nil
}

func (c *Compiler) build(ctx context.Context, id uuid.UUID, logger *zap.Logger, wb types.Workbook, settings Settings) (*Result, error) {
	settings, err := settings.Normalize()
	if err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	validated, err := pointtable.NewValidator(settings.MaxModules).
		WithHandshakeScale(settings.HandshakePeriodScale).
		Validate(wb)
	if err != nil {
		return nil, err
	}
	c.emit(id, EventBuildLog, "snapshot validated", map[string]any{
		"sheets":  len(validated.Sheets),
		"devices": len(validated.Devices),
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prog, err := ir.Build(validated, settings.irOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to build IR: %w", err)
	}
	for _, s := range prog.Sheets {
		logger.Debug("Sheet grouped",
			zap.String("sheet", s.Name),
			zap.Int("points", len(s.Points)),
			zap.Int("groups", len(s.Groups)))
	}

	descriptors, err := tasks.Classify(prog, settings.taskSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to classify tasks: %w", err)
	}
	c.emit(id, EventBuildLog, "tasks classified", map[string]any{"tasks": len(descriptors)})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		ID:         id,
		CompiledAt: c.now().UTC(),
		Settings:   settings,
		Program:    prog,
		Tasks:      descriptors,
	}
	c.plan(res, settings)

	return res, nil
}

// plan derives the wire requests of every task block and the handshake
// acknowledge writes. Transaction IDs count up per device in task order.
func (c *Compiler) plan(res *Result, settings Settings) {
	txIDs := make(map[string]uint16)
	next := func(device string) uint16 {
		txIDs[device]++
		return txIDs[device]
	}
	opts := settings.modbusOptions()

	for _, td := range res.Tasks {
		unit, ok := res.Program.Unit(td.Sheet, td.Module)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: no unit for %s module %d", td.Name, td.Sheet, td.Module))
			continue
		}

		for _, b := range optimizer.Oversized(td.Blocks, settings.MaxBatchSize) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: tag %s spans %d addresses, more than the batch size %d",
				td.Name, b.IncludedTags[0].Name, b.Length, settings.MaxBatchSize))
		}
		for _, b := range td.Blocks {
			req, warnings := modbus.NewReadRequest(td.Name, unit.Endpoint, b, next(unit.Device), opts)
			res.Requests = append(res.Requests, req)
			res.Warnings = append(res.Warnings, warnings...)
		}

		if td.Kind != types.TaskHandshake {
			continue
		}
		if td.ReturnAddress == "0" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: no return address, acknowledge goes to register 0", td.Name))
		}
		addr, err := codec.ParseAddress(td.ReturnAddress)
		if err == nil {
			var w modbus.Write
			w, err = modbus.NewWrite(td.Name, "ack", addr, td.Handshake.AckValue, next(unit.Device), opts.UnitID)
			if err == nil {
				res.Writes = append(res.Writes, w)
			}
		}
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
	}
}

func (c *Compiler) emit(id uuid.UUID, typ EventType, msg string, fields map[string]any) {
	c.sink.Publish(Event{
		Type:      typ,
		BuildID:   id.String(),
		Timestamp: c.now(),
		Message:   msg,
		Fields:    fields,
	})
}
