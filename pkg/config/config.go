package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"

	"github.com/chewangneko/qqcallback/pkg/logger"
	"github.com/chewangneko/qqcallback/pkg/store"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Bot      BotConfig      `json:"bot"`
	Database DatabaseConfig `json:"database"`
	Commands CommandsConfig `json:"commands"`
	Logging  LoggingConfig  `json:"logging"`
	mu       sync.RWMutex
}

type BotConfig struct {
	AppID          string              `json:"app_id" env:"QQBOT_BOT_APP_ID"`
	AppSecret      string              `json:"app_secret" env:"QQBOT_BOT_APP_SECRET"`
	Sandbox        bool                `json:"sandbox" env:"QQBOT_BOT_SANDBOX"`
	TimeoutSeconds int                 `json:"timeout_seconds" env:"QQBOT_BOT_TIMEOUT_SECONDS"`
	AllowFrom      FlexibleStringSlice `json:"allow_from" env:"QQBOT_BOT_ALLOW_FROM"`
	AvatarAPI      string              `json:"avatar_api" env:"QQBOT_BOT_AVATAR_API"`
	AvatarSize     int                 `json:"avatar_size" env:"QQBOT_BOT_AVATAR_SIZE"`
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled" env:"QQBOT_DATABASE_ENABLED"`
	Driver   string `json:"driver" env:"QQBOT_DATABASE_DRIVER"`
	User     string `json:"user" env:"QQBOT_DATABASE_USER"`
	Password string `json:"password" env:"QQBOT_DATABASE_PASSWORD"`
	Host     string `json:"host" env:"QQBOT_DATABASE_HOST"`
	Port     int    `json:"port" env:"QQBOT_DATABASE_PORT"`
	Name     string `json:"name" env:"QQBOT_DATABASE_NAME"`
	// Path is the SQLite file.
	Path string `json:"path" env:"QQBOT_DATABASE_PATH"`
}

type CommandsConfig struct {
	Prefixes []string `json:"prefixes" env:"QQBOT_COMMANDS_PREFIXES"`
}

type LoggingConfig struct {
	Level       string `json:"level" env:"QQBOT_LOGGING_LEVEL"`
	FileEnabled bool   `json:"file_enabled" env:"QQBOT_LOGGING_FILE_ENABLED"`
	FilePath    string `json:"file_path" env:"QQBOT_LOGGING_FILE_PATH"`
	MaxSizeMB   int    `json:"max_size_mb" env:"QQBOT_LOGGING_MAX_SIZE_MB"`
	MaxAgeDays  int    `json:"max_age_days" env:"QQBOT_LOGGING_MAX_AGE_DAYS"`
	MaxBackups  int    `json:"max_backups" env:"QQBOT_LOGGING_MAX_BACKUPS"`
	Compress    bool   `json:"compress" env:"QQBOT_LOGGING_COMPRESS"`
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			TimeoutSeconds: 3,
			AllowFrom:      FlexibleStringSlice{},
			AvatarAPI:      "https://thirdqq.qlogo.cn/qqapp/%s/%s/%d",
			AvatarSize:     640,
		},
		Database: DatabaseConfig{
			Enabled: false,
			Driver:  "mysql",
			User:    "root",
			Host:    store.DefaultHost,
			Port:    store.DefaultPort,
			Name:    store.DefaultName,
			Path:    "~/.qqbot/users.db",
		},
		Commands: CommandsConfig{
			Prefixes: []string{"/", ""},
		},
		Logging: LoggingConfig{
			Level:       "info",
			FileEnabled: false,
			FilePath:    "~/.qqbot/logs/qqbot.log",
			MaxSizeMB:   50,
			MaxAgeDays:  7,
			MaxBackups:  5,
			Compress:    true,
		},
	}
}

// LoadConfig reads path over the defaults and applies QQBOT_* environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	resolveSecretRefs(cfg)

	return cfg, nil
}

func resolveSecretRefs(cfg *Config) {
	cfg.Bot.AppID = resolveEnvRef(cfg.Bot.AppID)
	cfg.Bot.AppSecret = resolveEnvRef(cfg.Bot.AppSecret)
	cfg.Database.User = resolveEnvRef(cfg.Database.User)
	cfg.Database.Password = resolveEnvRef(cfg.Database.Password)
}

// resolveEnvRef replaces "$NAME" or "${NAME}" with the variable's value when
// it is set, and leaves v untouched otherwise.
func resolveEnvRef(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return v
	}
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		key := strings.TrimSpace(s[2 : len(s)-1])
		if key == "" {
			return v
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return v
	}
	if strings.HasPrefix(s, "$") && len(s) > 1 {
		key := strings.TrimSpace(s[1:])
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
	}
	return v
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Secrets live in this file.
	return os.WriteFile(path, data, 0600)
}

// Validate checks the settings every subcommand relies on. Bot credentials
// are checked separately by ValidateBot.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	if c.Bot.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("bot.timeout_seconds must not be negative"))
	}
	if c.Bot.AvatarSize <= 0 {
		errs = append(errs, errors.New("bot.avatar_size must be positive"))
	}
	if strings.Count(c.Bot.AvatarAPI, "%") < 3 {
		errs = append(errs, errors.New("bot.avatar_api needs app id, open id and size verbs"))
	}

	if c.Database.Enabled {
		dialect, err := store.ParseDialect(c.Database.Driver)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("database.driver: %w", err))
		case dialect == store.SQLite && strings.TrimSpace(c.Database.Path) == "":
			errs = append(errs, errors.New("database.path is required for sqlite"))
		case dialect == store.MySQL && strings.TrimSpace(c.Database.User) == "":
			errs = append(errs, errors.New("database.user is required for mysql"))
		}
	}

	if c.Logging.FileEnabled && strings.TrimSpace(c.Logging.FilePath) == "" {
		errs = append(errs, errors.New("logging.file_path is required when file logging is enabled"))
	}
	return errors.Join(errs...)
}

// ValidateBot checks the credentials needed to connect to QQ.
func (c *Config) ValidateBot() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	if strings.TrimSpace(c.Bot.AppID) == "" {
		errs = append(errs, errors.New("bot.app_id is required"))
	}
	if strings.TrimSpace(c.Bot.AppSecret) == "" {
		errs = append(errs, errors.New("bot.app_secret is required"))
	}
	return errors.Join(errs...)
}

// StoreConfig maps the database section onto the store's connection settings.
func (c *Config) StoreConfig() store.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return store.Config{
		Driver:   c.Database.Driver,
		User:     c.Database.User,
		Password: c.Database.Password,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Name:     c.Database.Name,
		Path:     expandHome(c.Database.Path),
	}
}

// LogFileOptions maps the logging section onto rotating file settings.
func (c *Config) LogFileOptions() logger.FileOptions {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return logger.FileOptions{
		Path:       expandHome(c.Logging.FilePath),
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxAgeDays: c.Logging.MaxAgeDays,
		MaxBackups: c.Logging.MaxBackups,
		Compress:   c.Logging.Compress,
	}
}

// IsAllowed reports whether senderID may talk to the bot. An empty allow
// list lets everyone through.
func (c *Config) IsAllowed(senderID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.Bot.AllowFrom) == 0 {
		return true
	}
	for _, allowed := range c.Bot.AllowFrom {
		if allowed == senderID {
			return true
		}
	}
	return false
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
