package system

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/KevinKickass/pointc/internal/api/rest"
	"github.com/KevinKickass/pointc/internal/api/websocket"
	"github.com/KevinKickass/pointc/internal/compiler"
	"github.com/KevinKickass/pointc/internal/config"
	"github.com/KevinKickass/pointc/internal/interfaces"
	"github.com/KevinKickass/pointc/internal/storage"
	"go.uber.org/zap"
)

// LifecycleManager owns the long-lived parts of the service: the build-event
// hub, the REST API and the optional build store. It holds no compiled
// state between requests.
type LifecycleManager struct {
	config   *config.Config
	storage  *storage.PostgresClient
	compiler *compiler.Compiler
	settings compiler.Settings
	wsHub    *websocket.Hub
	logger   *zap.Logger

	restServer *rest.Server
	stopHub    context.CancelFunc

	stateMu      sync.RWMutex
	currentState SystemState

	buildsCompiled atomic.Int64
	buildsFailed   atomic.Int64

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

var _ interfaces.LifecycleManager = (*LifecycleManager)(nil)

// NewLifecycleManager wires the service. store may be nil when persistence
// is disabled.
func NewLifecycleManager(store *storage.PostgresClient, cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	settings, err := compiler.SettingsFromConfig(cfg.Compiler)
	if err != nil {
		return nil, fmt.Errorf("invalid compiler settings: %w", err)
	}

	hub := websocket.NewHub(logger)

	return &LifecycleManager{
		config:       cfg,
		storage:      store,
		compiler:     compiler.New(logger, hub),
		settings:     settings,
		wsHub:        hub,
		logger:       logger,
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start starts the hub and the REST API.
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.logger.Info("Starting pointc service")

	if lm.storage != nil {
		if err := lm.storage.EnsureSchema(ctx); err != nil {
			lm.setState(StateError)
			return fmt.Errorf("failed to prepare storage: %w", err)
		}
	}

	hubCtx, cancel := context.WithCancel(context.Background())
	lm.stopHub = cancel
	go lm.wsHub.Run(hubCtx)

	server, err := rest.NewServer(lm.config, lm, lm.logger, lm.wsHub)
	if err != nil {
		lm.setState(StateError)
		return fmt.Errorf("failed to create REST API: %w", err)
	}
	lm.restServer = server
	if err := lm.restServer.Start(); err != nil {
		lm.setState(StateError)
		return fmt.Errorf("failed to start REST API: %w", err)
	}

	lm.setState(StateRunning)
	lm.logger.Info("Service started",
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.Bool("storage_enabled", lm.storage != nil),
		zap.Int("max_modules", lm.settings.MaxModules))

	return nil
}

// Shutdown stops the REST API and the hub. It is safe to call more than once.
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down service")
		lm.setState(StateStopping)

		if lm.restServer != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, lm.config.Server.ShutdownTimeout)
			defer cancel()
			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				shutdownErr = fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}
		if lm.stopHub != nil {
			lm.stopHub()
		}

		lm.setState(StateStopped)
		close(lm.shutdownChan)
	})

	return shutdownErr
}

// Done is closed once Shutdown has completed.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Unexpected state transition", zap.Error(err))
	}
	lm.currentState = state
}

func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

// RecordBuild counts a finished compile.
func (lm *LifecycleManager) RecordBuild(err error) {
	if err != nil {
		lm.buildsFailed.Add(1)
		return
	}
	lm.buildsCompiled.Add(1)
}

func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	return interfaces.SystemStatus{
		State:            lm.State().String(),
		StorageEnabled:   lm.storage != nil,
		ConnectedClients: lm.wsHub.GetClientCount(),
		BuildsCompiled:   lm.buildsCompiled.Load(),
		BuildsFailed:     lm.buildsFailed.Load(),
	}
}

// BuildStore returns nil when persistence is disabled.
func (lm *LifecycleManager) BuildStore() interfaces.BuildStore {
	if lm.storage == nil {
		return nil
	}
	return lm.storage
}

func (lm *LifecycleManager) Compiler() *compiler.Compiler {
	return lm.compiler
}

func (lm *LifecycleManager) Settings() compiler.Settings {
	return lm.settings
}

func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}
