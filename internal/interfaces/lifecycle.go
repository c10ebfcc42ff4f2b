package interfaces

import (
	"context"

	"github.com/KevinKickass/pointc/internal/compiler"
	"github.com/KevinKickass/pointc/internal/config"
	"github.com/KevinKickass/pointc/internal/storage"
	"github.com/google/uuid"
)

// SystemStatus represents the current service state
type SystemStatus struct {
	State            string `json:"state"`
	StorageEnabled   bool   `json:"storage_enabled"`
	ConnectedClients int    `json:"connected_clients"`
	BuildsCompiled   int64  `json:"builds_compiled"`
	BuildsFailed     int64  `json:"builds_failed"`
}

// BuildStore persists build results. *storage.PostgresClient implements it.
type BuildStore interface {
	SaveBuild(ctx context.Context, res *compiler.Result) error
	ListBuilds(ctx context.Context, limit int) ([]storage.BuildSummary, error)
	LoadBuild(ctx context.Context, id uuid.UUID) (*compiler.Result, error)
}

var _ BuildStore = (*storage.PostgresClient)(nil)

type LifecycleManager interface {
	Config() *config.Config
	Compiler() *compiler.Compiler
	Settings() compiler.Settings
	// BuildStore returns nil when persistence is disabled.
	BuildStore() BuildStore
	RecordBuild(err error)
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
