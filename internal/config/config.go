package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/KevinKickass/pointc/internal/types"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Compiler CompilerConfig `mapstructure:"compiler"`
	Tables   TablesConfig   `mapstructure:"tables"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
}

type CompilerConfig struct {
	MaxModules            int           `mapstructure:"max_modules"`
	MaxGap                int           `mapstructure:"max_gap"`
	MaxBatchSize          int           `mapstructure:"max_batch_size"`
	MaxCoilBatchSize      int           `mapstructure:"max_coil_batch_size"`
	NumericByteOrder      string        `mapstructure:"numeric_byte_order"`
	StringByteOrder       string        `mapstructure:"string_byte_order"`
	MonitorInterval       time.Duration `mapstructure:"monitor_interval"`
	HandshakeTimeout      time.Duration `mapstructure:"handshake_timeout"`
	HandshakePollInterval time.Duration `mapstructure:"handshake_poll_interval"`
	HandshakePeriodScale  float64       `mapstructure:"handshake_period_scale"`
	DefaultStringLength   int           `mapstructure:"default_string_length"`
	DefaultArrayLength    int           `mapstructure:"default_array_length"`
	DefaultHost           string        `mapstructure:"default_host"`
	UnitID                int           `mapstructure:"unit_id"`
}

type TablesConfig struct {
	SearchPaths []string `mapstructure:"search_paths"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// Flag names bound onto config keys by Load.
var flagKeys = map[string]string{
	"max-modules":    "compiler.max_modules",
	"max-gap":        "compiler.max_gap",
	"max-batch-size": "compiler.max_batch_size",
	"numeric-order":  "compiler.numeric_byte_order",
	"string-order":   "compiler.string_byte_order",
	"http-port":      "server.http_port",
	"persist":        "database.enabled",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("compiler.max_modules", 2)
	v.SetDefault("compiler.max_gap", 20)
	v.SetDefault("compiler.max_batch_size", 100)
	v.SetDefault("compiler.max_coil_batch_size", 2000)
	v.SetDefault("compiler.numeric_byte_order", "ABCD")
	v.SetDefault("compiler.string_byte_order", "BADC")
	v.SetDefault("compiler.monitor_interval", "1s")
	v.SetDefault("compiler.handshake_timeout", "5s")
	v.SetDefault("compiler.handshake_poll_interval", "100ms")
	v.SetDefault("compiler.handshake_period_scale", 1000)
	v.SetDefault("compiler.default_string_length", 10)
	v.SetDefault("compiler.default_array_length", 5)
	v.SetDefault("compiler.default_host", "127.0.0.1")
	v.SetDefault("compiler.unit_id", 1)

	v.SetDefault("tables.search_paths", []string{"."})

	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "pointc")
	v.SetDefault("database.user", "pointc")
	v.SetDefault("database.max_connections", 10)
}

// Load reads the YAML file at path on top of the defaults. An empty path
// or a missing file leaves the defaults in place. Environment variables
// with the POINTC_ prefix (POINTC_COMPILER_MAX_GAP) and the flags in
// flags, when set, override the file.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("POINTC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	cc := c.Compiler
	switch {
	case cc.MaxModules < 1 || cc.MaxModules > types.MaxModulesLimit:
		return fmt.Errorf("compiler.max_modules must be 1-%d, got %d", types.MaxModulesLimit, cc.MaxModules)
	case cc.MaxGap < 0:
		return fmt.Errorf("compiler.max_gap must be >= 0, got %d", cc.MaxGap)
	case cc.MaxBatchSize < 1:
		return fmt.Errorf("compiler.max_batch_size must be >= 1, got %d", cc.MaxBatchSize)
	case cc.UnitID < 0 || cc.UnitID > 255:
		return fmt.Errorf("compiler.unit_id must be 0-255, got %d", cc.UnitID)
	case c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535:
		return fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort)
	}

	if !validOrder(cc.NumericByteOrder, "ABCD", "CDAB", "BADC", "DCBA") {
		return fmt.Errorf("compiler.numeric_byte_order %q is not ABCD, CDAB, BADC or DCBA", cc.NumericByteOrder)
	}
	if !validOrder(cc.StringByteOrder, "ABCD", "BADC") {
		return fmt.Errorf("compiler.string_byte_order %q is not ABCD or BADC", cc.StringByteOrder)
	}
	return nil
}

func validOrder(s string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(s), a) {
			return true
		}
	}
	return false
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}
