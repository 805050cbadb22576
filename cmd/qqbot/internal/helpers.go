package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chewangneko/qqcallback/pkg/config"
	"github.com/chewangneko/qqcallback/pkg/logger"
	"github.com/chewangneko/qqcallback/pkg/store"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

// configPath is set by the root --config flag.
var configPath string

func SetConfigPath(path string) {
	configPath = path
}

func GetConfigPath() string {
	if configPath != "" {
		return configPath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".qqbot", "config.json")
}

// LoadConfig loads and validates the config file.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(GetConfigPath())
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", GetConfigPath(), err)
	}
	return cfg, nil
}

// SetupLogging applies the logging section. debug forces DEBUG level.
func SetupLogging(cfg *config.Config, debug bool) error {
	level := logger.ParseLevel(cfg.Logging.Level)
	if debug {
		level = logger.DEBUG
	}
	logger.SetLevel(level)

	if !cfg.Logging.FileEnabled {
		return nil
	}
	return logger.EnableRotatingFileLogging(cfg.LogFileOptions())
}

// OpenStore connects to the configured user store and makes sure its tables
// exist.
func OpenStore(ctx context.Context, cfg *config.Config) (*store.Database, error) {
	db, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	took, err := db.InitTables(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.InfoCF("store", "User store ready", map[string]interface{}{
		"driver": cfg.Database.Driver,
		"took":   took.String(),
	})
	return db, nil
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

func GetVersion() string {
	return version
}
