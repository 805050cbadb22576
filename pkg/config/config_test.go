package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Database.Enabled {
		t.Error("Database should be disabled by default")
	}
	if cfg.Bot.AvatarSize != 640 {
		t.Errorf("Expected avatar size 640, got %d", cfg.Bot.AvatarSize)
	}
	if len(cfg.Commands.Prefixes) != 2 || cfg.Commands.Prefixes[0] != "/" || cfg.Commands.Prefixes[1] != "" {
		t.Errorf("Unexpected default prefixes %q", cfg.Commands.Prefixes)
	}
}

func TestDefaultConfig_BotNeedsCredentials(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.ValidateBot()
	if err == nil {
		t.Fatal("ValidateBot should fail without credentials")
	}
	if !strings.Contains(err.Error(), "bot.app_id") || !strings.Contains(err.Error(), "bot.app_secret") {
		t.Errorf("error should name both fields, got %v", err)
	}

	cfg.Bot.AppID = "102000000"
	cfg.Bot.AppSecret = "secret"
	if err := cfg.ValidateBot(); err != nil {
		t.Errorf("ValidateBot should pass, got %v", err)
	}
}

func TestValidate_Database(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Enabled = true

	cfg.Database.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown driver should fail")
	}

	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("sqlite without path should fail")
	}

	cfg.Database.Path = "/tmp/users.db"
	if err := cfg.Validate(); err != nil {
		t.Errorf("sqlite with path should pass, got %v", err)
	}

	cfg.Database.Driver = "mysql"
	cfg.Database.User = ""
	if err := cfg.Validate(); err == nil {
		t.Error("mysql without user should fail")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default level info, got %q", cfg.Logging.Level)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"bot": {"app_id": "102000000", "app_secret": "${QQBOT_TEST_SECRET}", "allow_from": ["u1", 12345]},
		"database": {"enabled": true, "driver": "sqlite", "path": "/tmp/qq.db"}
	}`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QQBOT_TEST_SECRET", "from-env")
	t.Setenv("QQBOT_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Bot.AppSecret != "from-env" {
		t.Errorf("secret ref not resolved, got %q", cfg.Bot.AppSecret)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("env override not applied, got %q", cfg.Logging.Level)
	}
	if len(cfg.Bot.AllowFrom) != 2 || cfg.Bot.AllowFrom[1] != "12345" {
		t.Errorf("allow_from not flexible, got %q", cfg.Bot.AllowFrom)
	}
	// Untouched sections keep their defaults.
	if cfg.Bot.AvatarSize != 640 {
		t.Errorf("Expected default avatar size, got %d", cfg.Bot.AvatarSize)
	}

	sc := cfg.StoreConfig()
	if sc.Driver != "sqlite" || sc.Path != "/tmp/qq.db" {
		t.Errorf("unexpected store config %+v", sc)
	}
}

func TestLoadConfig_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Bot.AppID = "42"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["bot"]["app_id"] != "42" {
		t.Errorf("app_id not saved, got %v", decoded["bot"]["app_id"])
	}
}

func TestIsAllowed(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.IsAllowed("anyone") {
		t.Error("empty allow list should allow everyone")
	}

	cfg.Bot.AllowFrom = FlexibleStringSlice{"u1"}
	if !cfg.IsAllowed("u1") {
		t.Error("u1 should be allowed")
	}
	if cfg.IsAllowed("u2") {
		t.Error("u2 should be rejected")
	}
}

func TestResolveEnvRefKeepsOriginalWhenUnset(t *testing.T) {
	_ = os.Unsetenv("QQBOT_TEST_UNSET_SECRET")
	raw := "${QQBOT_TEST_UNSET_SECRET}"
	if got := resolveEnvRef(raw); got != raw {
		t.Fatalf("expected unresolved ref to stay unchanged, got %q", got)
	}

	t.Setenv("QQBOT_TEST_PLAIN", "plain")
	if got := resolveEnvRef("$QQBOT_TEST_PLAIN"); got != "plain" {
		t.Fatalf("expected $VAR to resolve, got %q", got)
	}
}
