package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/KevinKickass/pointc/internal/compiler"
	"github.com/KevinKickass/pointc/internal/config"
	"github.com/KevinKickass/pointc/internal/pointtable"
	"github.com/KevinKickass/pointc/internal/storage"
	"github.com/KevinKickass/pointc/internal/system"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const usage = `usage:
  pointc build -f snapshot.yaml [-o result.json] [--persist] [flags]
  pointc serve [--http-port 8080] [--persist] [flags]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		var buildErr pointtable.BuildError
		if errors.As(err, &buildErr) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", buildErr.Code(), err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// commonFlags registers the flags shared by every command. Their names
// match the keys config.Load binds.
func commonFlags(name string) (*pflag.FlagSet, *string, *bool) {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	configPath := fs.String("config", "configs/config.yaml", "config file")
	debug := fs.Bool("debug", false, "development logging")
	fs.Int("max-modules", 2, "number of identical modules")
	fs.Int("max-gap", 20, "largest address hole merged into one request")
	fs.Int("max-batch-size", 100, "largest request span in addresses")
	fs.String("numeric-order", "ABCD", "byte order of numeric values")
	fs.String("string-order", "BADC", "byte order of string values")
	fs.Bool("persist", false, "store build results in PostgreSQL")
	return fs, configPath, debug
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage.PostgresClient, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}
	db, err := storage.NewPostgresClient(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connected successfully",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))
	return db, nil
}

func runBuild(args []string) error {
	fs, configPath, debug := commonFlags("build")
	snapshotPath := fs.StringP("file", "f", "", "snapshot file (.yaml, .yml or .json)")
	outPath := fs.StringP("output", "o", "", "write the result here instead of stdout")
	fs.Parse(args)

	if *snapshotPath == "" {
		return fmt.Errorf("build needs -f snapshot")
	}

	logger := newLogger(*debug)
	defer logger.Sync()

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	settings, err := compiler.SettingsFromConfig(cfg.Compiler)
	if err != nil {
		return fmt.Errorf("invalid compiler settings: %w", err)
	}

	loader, err := pointtable.NewLoader(cfg.Tables.SearchPaths)
	if err != nil {
		return err
	}
	wb, err := loader.Load(*snapshotPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := compiler.New(logger, nil).Build(ctx, *wb, settings)
	if err != nil {
		return err
	}

	db, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := db.SaveBuild(ctx, res); err != nil {
			return err
		}
		logger.Info("Build stored", zap.String("build_id", res.ID.String()))
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

func runServe(args []string) error {
	fs, configPath, debug := commonFlags("serve")
	fs.Int("http-port", 8080, "HTTP API port")
	fs.Parse(args)

	logger := newLogger(*debug)
	defer logger.Sync()

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Info("Config loaded successfully")

	ctx := context.Background()
	db, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	lifecycle, err := system.NewLifecycleManager(db, cfg, logger)
	if err != nil {
		return err
	}
	if err := lifecycle.Start(ctx); err != nil {
		return err
	}

	logger.Info("pointc started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received")

	if err := lifecycle.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("pointc stopped successfully")
	return nil
}
