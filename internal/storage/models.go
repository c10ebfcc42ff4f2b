package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KevinKickass/pointc/internal/compiler"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("build not found")

// BuildSummary is one row of the builds table without the stored result.
type BuildSummary struct {
	ID           uuid.UUID `json:"id"`
	CompiledAt   time.Time `json:"compiled_at"`
	MaxModules   int       `json:"max_modules"`
	SheetCount   int       `json:"sheet_count"`
	TaskCount    int       `json:"task_count"`
	WarningCount int       `json:"warning_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type taskRow struct {
	Name     string
	Kind     string
	Sheet    string
	Module   int
	TimingMs int
}

type buildRecord struct {
	Summary  BuildSummary
	Settings []byte // JSONB
	Result   []byte // JSONB
	Tasks    []taskRow
}

func newBuildRecord(res *compiler.Result) (*buildRecord, error) {
	if res == nil || res.Program == nil {
		return nil, fmt.Errorf("nothing to store")
	}

	settingsJSON, err := json.Marshal(res.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	rec := &buildRecord{
		Summary: BuildSummary{
			ID:           res.ID,
			CompiledAt:   res.CompiledAt,
			MaxModules:   res.Program.MaxModules,
			SheetCount:   len(res.Program.Sheets),
			TaskCount:    len(res.Tasks),
			WarningCount: len(res.Warnings),
		},
		Settings: settingsJSON,
		Result:   resultJSON,
		Tasks:    make([]taskRow, 0, len(res.Tasks)),
	}
	for _, td := range res.Tasks {
		rec.Tasks = append(rec.Tasks, taskRow{
			Name:     td.Name,
			Kind:     string(td.Kind),
			Sheet:    td.Sheet,
			Module:   td.Module,
			TimingMs: td.TimingMs,
		})
	}
	return rec, nil
}

func decodeResult(data []byte) (*compiler.Result, error) {
	var res compiler.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &res, nil
}
