// Package config loads the bot's deployment configuration: a config.toml
// with the transcribe/admins sections plus a .env (or environment) carrying
// the bot token.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Engine selection values for transcribe.engine.
const (
	EngineWhisper = "whisper"
	EngineAPI     = "api"
)

// Defaults applied when a key is absent from the config file.
const (
	DefaultLedgerCapacity = 1024
	DefaultWorkers        = 4
)

// Config is the fully resolved deployment configuration.
type Config struct {
	// BotToken comes from the BOT_TOKEN environment variable (.env is
	// loaded first when present). Required to run the bot, not required
	// for offline commands.
	BotToken string

	Engine            string
	APIKey            string
	APIURL            string
	Automatic         bool
	VoiceMessagesOnly bool
	Model             string
	ModelDir          string
	Language          string

	AdminUsers []string
	AdminRole  string

	LedgerCapacity int
	Workers        int
}

// Load reads the config file at path and the token from the environment.
func Load(path string) (*Config, error) {
	// Missing .env is fine; the token may come from the real environment.
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetDefault("transcribe.engine", EngineWhisper)
	v.SetDefault("transcribe.automatically", true)
	v.SetDefault("transcribe.voice_messages_only", true)
	v.SetDefault("transcribe.model", "small")
	v.SetDefault("transcribe.language", "auto")
	v.SetDefault("admins.role", "0")
	v.SetDefault("limits.ledger_capacity", DefaultLedgerCapacity)
	v.SetDefault("limits.workers", DefaultWorkers)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{
		BotToken:          strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		Engine:            strings.TrimSpace(v.GetString("transcribe.engine")),
		APIKey:            normalizeAPIKey(v.GetString("transcribe.apikey")),
		APIURL:            strings.TrimSpace(v.GetString("transcribe.api_url")),
		Automatic:         v.GetBool("transcribe.automatically"),
		VoiceMessagesOnly: v.GetBool("transcribe.voice_messages_only"),
		Model:             strings.TrimSpace(v.GetString("transcribe.model")),
		ModelDir:          strings.TrimSpace(v.GetString("transcribe.model_dir")),
		Language:          strings.TrimSpace(v.GetString("transcribe.language")),
		AdminUsers:        parseIDList(v.GetStringSlice("admins.users")),
		AdminRole:         normalizeRole(v.GetString("admins.role")),
		LedgerCapacity:    v.GetInt("limits.ledger_capacity"),
		Workers:           v.GetInt("limits.workers"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineWhisper, EngineAPI:
	default:
		return fmt.Errorf("transcribe.engine must be %q or %q, got %q", EngineWhisper, EngineAPI, c.Engine)
	}

	if c.LedgerCapacity <= 0 {
		return fmt.Errorf("limits.ledger_capacity must be positive, got %d", c.LedgerCapacity)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("limits.workers must be positive, got %d", c.Workers)
	}

	return nil
}

// RoleGateEnabled reports whether a non-zero admin role is configured.
func (c *Config) RoleGateEnabled() bool {
	return c.AdminRole != "" && c.AdminRole != "0"
}

// The original deployments used "0" as the unset marker for the key.
func normalizeAPIKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "0" {
		return ""
	}
	return key
}

func normalizeRole(role string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		return "0"
	}
	return role
}

// parseIDList accepts both a TOML array and the legacy single
// comma-separated string.
func parseIDList(values []string) []string {
	var ids []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				ids = append(ids, part)
			}
		}
	}
	return ids
}
